package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	errordefs "github.com/P3dro7wz/Luxy/internal/errors"
	"github.com/P3dro7wz/Luxy/internal/gateway/gatewaytest"
	"github.com/P3dro7wz/Luxy/internal/model"
	"github.com/P3dro7wz/Luxy/internal/storage"
)

func newClient(t *testing.T, baseURL string) (*Client, storage.Store) {
	t.Helper()
	tokens := storage.NewMemory()
	c, err := New(Config{BaseURL: baseURL, Tokens: tokens})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c, tokens
}

func TestListContentAndCategories(t *testing.T) {
	srv := gatewaytest.New()
	defer srv.Close()
	ids := srv.Seed(
		gatewaytest.Item{Title: "Noiva", Category: "wedding", Likes: 2, Ratings: []int{4, 5}},
		gatewaytest.Item{Title: "Trilha", Description: "serra", Category: "nature", Kind: model.KindVideo},
		gatewaytest.Item{Title: "Oculto", Category: "urban", Unpublished: true},
	)
	c, _ := newClient(t, srv.URL)
	ctx := context.Background()

	items, err := c.ListContent(ctx, model.ContentFilter{})
	if err != nil {
		t.Fatalf("ListContent() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("ListContent() returned %d items, want 2", len(items))
	}
	first := items[0]
	if first.ID != ids[0] || first.LikeCount != 2 || first.RatingCount != 2 || first.AverageRating != 4.5 {
		t.Errorf("first item = %+v", first)
	}
	if !strings.HasPrefix(first.MediaURL, srv.URL+"/uploads/") || first.ThumbnailURL != first.MediaURL {
		t.Errorf("media urls = %q, %q", first.MediaURL, first.ThumbnailURL)
	}
	if first.UploadedAt.IsZero() || first.Duration != "" {
		t.Errorf("photo uploadedAt = %v, duration = %q", first.UploadedAt, first.Duration)
	}
	if items[1].Kind != model.KindVideo || items[1].Duration != model.VideoDurationPlaceholder {
		t.Errorf("video item = %+v", items[1])
	}

	filtered, err := c.ListContent(ctx, model.ContentFilter{Category: "nature"})
	if err != nil || len(filtered) != 1 || filtered[0].Title != "Trilha" {
		t.Errorf("ListContent(nature) = %+v, %v", filtered, err)
	}

	cats, err := c.ListCategories(ctx)
	if err != nil {
		t.Fatalf("ListCategories() error = %v", err)
	}
	if cats[0].ID != model.CategoryAll || cats[0].Count != 2 || cats[0].Label != "Todas" {
		t.Errorf("ListCategories()[0] = %+v", cats[0])
	}
}

func TestLikeAndRateConflicts(t *testing.T) {
	srv := gatewaytest.New()
	defer srv.Close()
	ids := srv.Seed(gatewaytest.Item{Title: "Retrato", Category: "portrait"})
	c, _ := newClient(t, srv.URL)
	ctx := context.Background()

	if err := c.Like(ctx, ids[0]); err != nil {
		t.Fatalf("Like() error = %v", err)
	}
	if err := c.Like(ctx, ids[0]); !errordefs.Is(err, errordefs.LUXY_CONFLICT) {
		t.Errorf("second Like() error = %v, want LUXY_CONFLICT", err)
	}

	res, err := c.Rate(ctx, ids[0], 4)
	if err != nil {
		t.Fatalf("Rate() error = %v", err)
	}
	if res.Count != 0 {
		t.Errorf("Rate() = %+v, want ack only", res)
	}
	if _, err := c.Rate(ctx, ids[0], 5); !errordefs.Is(err, errordefs.LUXY_CONFLICT) {
		t.Errorf("second Rate() error = %v, want LUXY_CONFLICT", err)
	}
	if _, err := c.Rate(ctx, ids[0], 9); !errordefs.Is(err, errordefs.LUXY_VALIDATION) {
		t.Errorf("Rate(9) error = %v, want LUXY_VALIDATION", err)
	}
	if err := c.Like(ctx, "999"); !errordefs.Is(err, errordefs.LUXY_NOT_FOUND) {
		t.Errorf("Like(unknown) error = %v, want LUXY_NOT_FOUND", err)
	}
	if srv.LikeCount(ids[0]) != 1 || srv.RatingCount(ids[0]) != 1 {
		t.Errorf("server counts = %d likes, %d ratings", srv.LikeCount(ids[0]), srv.RatingCount(ids[0]))
	}
}

func TestUnauthorizedClearsTokens(t *testing.T) {
	srv := gatewaytest.New()
	defer srv.Close()
	c, tokens := newClient(t, srv.URL)
	ctx := context.Background()

	fired := 0
	c.OnUnauthorized(func() { fired++ })
	_ = storage.PutString(ctx, tokens, storage.KeyUserToken, "stale")
	_ = storage.PutString(ctx, tokens, storage.KeyAdminToken, "stale-admin")

	_, err := c.CurrentUser(ctx)
	if !errordefs.Is(err, errordefs.LUXY_AUTH) {
		t.Fatalf("CurrentUser() error = %v, want LUXY_AUTH", err)
	}
	if fired != 1 {
		t.Errorf("unauthorized hook fired %d times, want 1", fired)
	}
	for _, key := range []string{storage.KeyUserToken, storage.KeyAdminToken} {
		if v, _ := storage.GetString(ctx, tokens, key); v != "" {
			t.Errorf("%s = %q after 401, want cleared", key, v)
		}
	}

	// A failed login carries no token and must not tear anything down.
	if _, err := c.Login(ctx, model.Credentials{Email: "x@y.z", Password: "nope"}); !errordefs.Is(err, errordefs.LUXY_AUTH) {
		t.Errorf("Login() error = %v, want LUXY_AUTH", err)
	}
	if fired != 1 {
		t.Errorf("hook fired on anonymous 401")
	}
}

func TestAuthAndAdminFlow(t *testing.T) {
	srv := gatewaytest.New()
	defer srv.Close()
	ids := srv.Seed(gatewaytest.Item{Title: "Ponte", Category: "architecture"})
	c, tokens := newClient(t, srv.URL)
	ctx := context.Background()

	reg, err := c.Register(ctx, model.Profile{Email: "ana@example.com", Password: "secret1", Name: "Ana"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if reg.Token == "" || reg.User == nil || reg.User.Email != "ana@example.com" || reg.User.Role != model.RoleClient {
		t.Errorf("Register() = %+v", reg)
	}
	if _, err := c.Register(ctx, model.Profile{Email: "ana@example.com", Password: "secret1", Name: "Ana"}); !errordefs.Is(err, errordefs.LUXY_CONFLICT) {
		t.Errorf("duplicate Register() error = %v, want LUXY_CONFLICT", err)
	}
	_ = storage.PutString(ctx, tokens, storage.KeyUserToken, reg.Token)

	me, err := c.CurrentUser(ctx)
	if err != nil || me.Name != "Ana" {
		t.Errorf("CurrentUser() = %+v, %v", me, err)
	}

	coll, err := c.CreateCollection(ctx, "Favoritas", "")
	if err != nil {
		t.Fatalf("CreateCollection() error = %v", err)
	}
	if err := c.AddToCollection(ctx, coll.ID, ids[0]); err != nil {
		t.Errorf("AddToCollection() error = %v", err)
	}
	if err := c.AddToCollection(ctx, coll.ID, ids[0]); !errordefs.Is(err, errordefs.LUXY_CONFLICT) {
		t.Errorf("duplicate AddToCollection() error = %v, want LUXY_CONFLICT", err)
	}
	colls, err := c.ListCollections(ctx)
	if err != nil || len(colls) != 1 || !colls[0].Contains(ids[0]) {
		t.Errorf("ListCollections() = %+v, %v", colls, err)
	}

	// User token on an admin path is forbidden.
	if _, err := c.AdminStats(ctx); !errordefs.Is(err, errordefs.LUXY_AUTH) {
		t.Errorf("AdminStats() with user token error = %v, want LUXY_AUTH", err)
	}

	admin, err := c.AdminLogin(ctx, model.AdminCredentials{Username: gatewaytest.AdminUsername, Password: gatewaytest.AdminPassword})
	if err != nil || admin.User != nil {
		t.Fatalf("AdminLogin() = %+v, %v", admin, err)
	}
	_ = storage.PutString(ctx, tokens, storage.KeyAdminToken, admin.Token)

	created, err := c.CreateContent(ctx,
		model.UploadMeta{Title: "Festa", Category: "event"},
		model.UploadFile{Name: "festa.mp4", MimeType: "video/mp4", Data: []byte("frames")})
	if err != nil {
		t.Fatalf("CreateContent() error = %v", err)
	}
	if created.Kind != model.KindVideo || created.FileSize != 6 || created.Duration != model.VideoDurationPlaceholder {
		t.Errorf("CreateContent() = %+v", created)
	}

	title, desc, cat := "Festa junina", "quadrilha", "event"
	updated, err := c.UpdateContent(ctx, created.ID, model.ContentPatch{Title: &title, Description: &desc, Category: &cat})
	if err != nil || updated.Title != title || updated.Description != desc {
		t.Errorf("UpdateContent() = %+v, %v", updated, err)
	}

	stats, err := c.AdminStats(ctx)
	if err != nil || stats.TotalContent != 2 || stats.TotalVideos != 1 {
		t.Errorf("AdminStats() = %+v, %v", stats, err)
	}

	if err := c.DeleteContent(ctx, created.ID); err != nil {
		t.Errorf("DeleteContent() error = %v", err)
	}
	if err := c.DeleteContent(ctx, created.ID); !errordefs.Is(err, errordefs.LUXY_NOT_FOUND) {
		t.Errorf("second DeleteContent() error = %v, want LUXY_NOT_FOUND", err)
	}
}

func TestServerErrorsTripBreaker(t *testing.T) {
	srv := gatewaytest.New()
	defer srv.Close()
	srv.Fail(gatewaytest.Fault{PathPrefix: "/content", Status: http.StatusServiceUnavailable})
	c, _ := newClient(t, srv.URL)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := c.ListContent(ctx, model.ContentFilter{}); !errordefs.Is(err, errordefs.LUXY_NETWORK) {
			t.Fatalf("ListContent() #%d error = %v, want LUXY_NETWORK", i, err)
		}
	}
	before := srv.Calls(http.MethodGet, "/content")
	_, err := c.ListContent(ctx, model.ContentFilter{})
	if !errordefs.Is(err, errordefs.LUXY_NETWORK) {
		t.Errorf("ListContent() with open breaker error = %v, want LUXY_NETWORK", err)
	}
	if after := srv.Calls(http.MethodGet, "/content"); after != before {
		t.Errorf("open breaker let a request through (%d -> %d)", before, after)
	}
}

func TestClientErrorsKeepBreakerClosed(t *testing.T) {
	srv := gatewaytest.New()
	defer srv.Close()
	c, _ := newClient(t, srv.URL)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		if _, err := c.GetContent(ctx, "404"); !errordefs.Is(err, errordefs.LUXY_NOT_FOUND) {
			t.Fatalf("GetContent() #%d error = %v, want LUXY_NOT_FOUND", i, err)
		}
	}
}

func TestMalformedResponseRejected(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1,"title":"sem categoria","file_path":"x","file_type":"photo","upload_date":"2024-01-01T00:00:00"}]`))
	}))
	defer ts.Close()
	c, _ := newClient(t, ts.URL)

	_, err := c.ListContent(context.Background(), model.ContentFilter{})
	e := errordefs.As(err)
	if e == nil || e.Code != errordefs.LUXY_INTERNAL || e.CorrelationID == "" {
		t.Errorf("ListContent() error = %v, want LUXY_INTERNAL with correlation id", err)
	}
}

func TestTransportFailureIsNetwork(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()
	c, _ := newClient(t, url)

	if _, err := c.ListCategories(context.Background()); !errordefs.Is(err, errordefs.LUXY_NETWORK) {
		t.Errorf("ListCategories() error = %v, want LUXY_NETWORK", err)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	if _, err := New(Config{BaseURL: "not a url", Tokens: storage.NewMemory()}); err == nil {
		t.Errorf("New() accepted an invalid url")
	}
	if _, err := New(Config{BaseURL: "http://localhost:1"}); err == nil {
		t.Errorf("New() accepted a nil token store")
	}
}
