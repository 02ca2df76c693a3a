// internal/model/gallery.go
// Package model defines the data structures used throughout the gallery engine.
// These structures represent content items, categories, users and collections
// as seen by the client; wire shapes of the gateway live in package gateway.
package model

import (
	"strings"
	"time"
)

// Kind is the media kind of a content item.
type Kind string

const (
	KindPhoto Kind = "photo"
	KindVideo Kind = "video"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindPhoto || k == KindVideo
}

// KindForMimeType classifies an uploaded file. Anything that is not a video
// is treated as a photo, matching the admin panel's file picker.
func KindForMimeType(mimeType string) Kind {
	if strings.HasPrefix(mimeType, "video/") {
		return KindVideo
	}
	return KindPhoto
}

// CategoryAll is the synthetic category matching every item.
const CategoryAll = "all"

// Categories lists the fixed category ids in display order.
var Categories = []string{
	"portrait",
	"wedding",
	"event",
	"family",
	"nature",
	"architecture",
	"urban",
}

// CategoryLabels maps category ids to their display label.
var CategoryLabels = map[string]string{
	CategoryAll:    "Todas",
	"portrait":     "Retratos",
	"wedding":      "Casamentos",
	"event":        "Eventos",
	"family":       "Família",
	"nature":       "Natureza",
	"architecture": "Arquitetura",
	"urban":        "Urbano",
}

// ValidCategory reports whether c is one of the fixed categories.
func ValidCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// VideoDurationPlaceholder is shown for freshly uploaded videos until the
// gateway reports the real duration.
const VideoDurationPlaceholder = "00:00"

// ContentItem is a single photo or video with its engagement metrics.
type ContentItem struct {
	ID            string    `json:"id"`                  // Gateway id, or local-<ULID> while an upload is pending
	Kind          Kind      `json:"kind"`                // photo or video
	Title         string    `json:"title"`               // Display title
	Description   string    `json:"description"`         // Free text, may be empty
	Category      string    `json:"category"`            // One of Categories
	MediaURL      string    `json:"mediaUrl"`            // Full representation
	ThumbnailURL  string    `json:"thumbnailUrl"`        // Preview representation
	UploadedAt    time.Time `json:"uploadedAt"`          // Immutable after creation
	LikeCount     int       `json:"likeCount"`           // Never negative
	AverageRating float64   `json:"averageRating"`       // In [0,5]
	RatingCount   int       `json:"ratingCount"`         // Number of scores behind AverageRating
	Duration      string    `json:"duration,omitempty"`  // Present iff Kind is video
	FileSize      int64     `json:"fileSize,omitempty"`  // Bytes, when known
	Width         int       `json:"width,omitempty"`     // Pixels, when known
	Height        int       `json:"height,omitempty"`    // Pixels, when known
	Published     bool      `json:"published"`           // Hidden from the public list when false
	Pending       bool      `json:"pending,omitempty"`   // Optimistic insert awaiting confirmation
}

// Category is a category with the number of items currently in it.
type Category struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// ContentPatch carries the fields an admin edit may change. Nil fields are
// left as they are.
type ContentPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty" validate:"omitempty,oneof=portrait wedding event family nature architecture urban"`
}

// Empty reports whether the patch changes nothing.
func (p ContentPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Category == nil
}

// UploadMeta is the metadata shared by every file of one upload.
type UploadMeta struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Category    string `json:"category" validate:"required,oneof=portrait wedding event family nature architecture urban"`
}

// UploadFile is one binary file of an upload.
type UploadFile struct {
	Name     string // Original filename
	MimeType string // image/* or video/*
	Data     []byte // File contents
}

// ContentFilter narrows a gateway listing.
type ContentFilter struct {
	Category string `json:"category,omitempty"`
	Search   string `json:"search,omitempty"`
	Skip     int    `json:"skip,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// RatingResult is what the gateway reports after a rating, when it reports
// anything. A zero Count means the gateway only acknowledged.
type RatingResult struct {
	AverageRating float64 `json:"averageRating"`
	Count         int     `json:"count"`
}

// Role of an account.
type Role string

const (
	RoleClient Role = "client"
	RoleAdmin  Role = "admin"
)

// User is the profile of an authenticated account.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

// Credentials are the login inputs of a client account.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Profile is the registration input of a client account.
type Profile struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name" validate:"required"`
}

// AdminCredentials are the admin panel login inputs.
type AdminCredentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResult is a successful login or registration.
type AuthResult struct {
	Token string `json:"token"`
	User  *User  `json:"user,omitempty"` // Nil for admin logins
}

// Collection is a named, user-owned list of content ids.
type Collection struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Items       []string  `json:"items"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Contains reports whether the collection references contentID.
func (c Collection) Contains(contentID string) bool {
	for _, id := range c.Items {
		if id == contentID {
			return true
		}
	}
	return false
}

// AdminStats summarizes the catalog for the admin panel.
type AdminStats struct {
	TotalContent  int     `json:"totalContent"`
	TotalPhotos   int     `json:"totalPhotos"`
	TotalVideos   int     `json:"totalVideos"`
	TotalLikes    int     `json:"totalLikes"`
	TotalRatings  int     `json:"totalRatings"`
	AverageRating float64 `json:"averageRating"`
}
