package gateway

import (
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/P3dro7wz/Luxy/internal/model"
)

// flexID accepts both integer and string ids. The reference backend uses
// integer primary keys; the client treats every id as an opaque string.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	if string(b) == "null" {
		return fmt.Errorf("id is null")
	}
	*f = flexID(b)
	return nil
}

type wireContent struct {
	ID            flexID  `json:"id"`
	Title         string  `json:"title"`
	Description   *string `json:"description"`
	Category      string  `json:"category"`
	FilePath      string  `json:"file_path"`
	ThumbnailPath *string `json:"thumbnail_path"`
	FileType      string  `json:"file_type"`
	FileSize      *int64  `json:"file_size"`
	Duration      *string `json:"duration"`
	Width         *int    `json:"width"`
	Height        *int    `json:"height"`
	UploadDate    string  `json:"upload_date"`
	IsPublished   *bool   `json:"is_published"`
	LikesCount    int     `json:"likes_count"`
	AverageRating float64 `json:"average_rating"`
	RatingsCount  int     `json:"ratings_count"`
}

type wireCategory struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type wireUser struct {
	ID        flexID `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	IsActive  *bool  `json:"is_active"`
	CreatedAt string `json:"created_at"`
}

type wireToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	User        *wireUser `json:"user"`
}

type wireCollection struct {
	ID          flexID  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	CreatedAt   string  `json:"created_at"`
	Items       []struct {
		ID flexID `json:"id"`
	} `json:"items"`
}

type wireStats struct {
	TotalContent  int     `json:"total_content"`
	TotalPhotos   int     `json:"total_photos"`
	TotalVideos   int     `json:"total_videos"`
	TotalLikes    int     `json:"total_likes"`
	TotalRatings  int     `json:"total_ratings"`
	AverageRating float64 `json:"average_rating"`
}

type wireRateAck struct {
	Message       string   `json:"message"`
	AverageRating *float64 `json:"average_rating"`
	RatingsCount  *int     `json:"ratings_count"`
}

type wireRate struct {
	ContentID flexIDOut `json:"content_id"`
	Score     int       `json:"score"`
}

// flexIDOut writes numeric ids as JSON numbers so the reference backend's
// integer validation accepts them.
type flexIDOut string

func (f flexIDOut) MarshalJSON() ([]byte, error) {
	s := string(f)
	if s != "" && strings.Trim(s, "0123456789") == "" {
		return []byte(s), nil
	}
	return json.Marshal(s)
}

type wireContentUpdate struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Category    string  `json:"category"`
}

type wireCollectionCreate struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

type wireDetail struct {
	Detail interface{} `json:"detail"`
}

// timeLayouts lists the timestamp shapes seen on the wire, most specific
// first. Naive timestamps are taken as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func (c *Client) contentFromWire(w wireContent) (model.ContentItem, error) {
	uploaded, err := parseTime(w.UploadDate)
	if err != nil {
		return model.ContentItem{}, fmt.Errorf("content %s: %w", w.ID, err)
	}
	kind := model.Kind(w.FileType)
	item := model.ContentItem{
		ID:            string(w.ID),
		Kind:          kind,
		Title:         w.Title,
		Description:   deref(w.Description),
		Category:      w.Category,
		MediaURL:      c.assetURL(w.FilePath),
		UploadedAt:    uploaded,
		LikeCount:     w.LikesCount,
		AverageRating: w.AverageRating,
		RatingCount:   w.RatingsCount,
		FileSize:      deref(w.FileSize),
		Width:         deref(w.Width),
		Height:        deref(w.Height),
		Published:     w.IsPublished == nil || *w.IsPublished,
	}
	if thumb := deref(w.ThumbnailPath); thumb != "" {
		item.ThumbnailURL = c.assetURL(thumb)
	} else {
		item.ThumbnailURL = item.MediaURL
	}
	if kind == model.KindVideo {
		item.Duration = deref(w.Duration)
		if item.Duration == "" {
			item.Duration = model.VideoDurationPlaceholder
		}
	}
	return item, nil
}

func (c *Client) contentsFromWire(ws []wireContent) ([]model.ContentItem, error) {
	items := make([]model.ContentItem, 0, len(ws))
	for _, w := range ws {
		item, err := c.contentFromWire(w)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// assetURL resolves a stored file path against the gateway origin. Absolute
// URLs pass through untouched.
func (c *Client) assetURL(p string) string {
	if p == "" || strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		return p
	}
	return c.origin + "/" + strings.TrimLeft(p, "/")
}

func userFromWire(w wireUser) model.User {
	u := model.User{
		ID:     string(w.ID),
		Email:  w.Email,
		Name:   w.Name,
		Role:   model.Role(w.Role),
		Active: w.IsActive == nil || *w.IsActive,
	}
	if u.Role == "" {
		u.Role = model.RoleClient
	}
	if t, err := parseTime(w.CreatedAt); err == nil {
		u.CreatedAt = t
	}
	return u
}

func collectionFromWire(w wireCollection) model.Collection {
	coll := model.Collection{
		ID:          string(w.ID),
		Name:        w.Name,
		Description: deref(w.Description),
		Items:       make([]string, 0, len(w.Items)),
	}
	for _, it := range w.Items {
		coll.Items = append(coll.Items, string(it.ID))
	}
	if t, err := parseTime(w.CreatedAt); err == nil {
		coll.CreatedAt = t
	}
	return coll
}

func categoryLabel(w wireCategory) string {
	if w.Name != "" {
		return w.Name
	}
	if label, ok := model.CategoryLabels[w.ID]; ok {
		return label
	}
	return w.ID
}

// detailMessage extracts the human message of an error body. FastAPI puts
// it under "detail" as a string, or as a list of field errors for 422s.
func detailMessage(body []byte) string {
	var d wireDetail
	if err := json.Unmarshal(body, &d); err != nil || d.Detail == nil {
		return ""
	}
	switch v := d.Detail.(type) {
	case string:
		return v
	case []interface{}:
		var parts []string
		for _, e := range v {
			if m, ok := e.(map[string]interface{}); ok {
				if msg, ok := m["msg"].(string); ok {
					parts = append(parts, msg)
				}
			}
		}
		return strings.Join(parts, "; ")
	default:
		return fmt.Sprint(v)
	}
}
