// Package conformance provides a test harness for verifying that a running
// luxyd stack honors the gallery API contract.
package conformance

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/P3dro7wz/Luxy/internal/engine"
	errordefs "github.com/P3dro7wz/Luxy/internal/errors"
	"github.com/P3dro7wz/Luxy/internal/event"
	"github.com/P3dro7wz/Luxy/internal/gateway"
	"github.com/P3dro7wz/Luxy/internal/gateway/gatewaytest"
	"github.com/P3dro7wz/Luxy/internal/model"
	"github.com/P3dro7wz/Luxy/internal/server"
	"github.com/P3dro7wz/Luxy/internal/session"
	"github.com/P3dro7wz/Luxy/internal/storage"
	"github.com/P3dro7wz/Luxy/internal/store"
)

// Harness runs luxyd against an in-memory gateway on local listeners.
type Harness struct {
	server  *httptest.Server
	gateway *gatewaytest.Server
	state   storage.Store
	engine  *engine.Engine
	ids     []string
}

// Config holds configuration for the conformance test harness.
type Config struct {
	// UseBadger keeps session state in an in-memory badger database
	// instead of the map store
	UseBadger bool

	// Seed is the gateway catalog. The default catalog is used when empty.
	Seed []gatewaytest.Item

	// RateLimit is the per-client request budget; zero disables limiting
	RateLimit float64
}

// DefaultSeed is the catalog the contract checks are written against.
var DefaultSeed = []gatewaytest.Item{
	{Title: "Noiva no jardim", Category: "wedding", Likes: 1, Ratings: []int{5}},
	{Title: "Trilha da serra", Category: "nature", Likes: 4},
	{Title: "Festa", Category: "wedding", Likes: 2, Kind: model.KindVideo},
}

// NewHarness creates a new conformance test harness.
func NewHarness(cfg Config) (*Harness, error) {
	var state storage.Store
	if cfg.UseBadger {
		s, err := storage.NewBadgerInMemory()
		if err != nil {
			return nil, fmt.Errorf("failed to open state: %w", err)
		}
		state = s
	} else {
		state = storage.NewMemory()
	}

	gw := gatewaytest.New()
	seed := cfg.Seed
	if len(seed) == 0 {
		seed = DefaultSeed
	}
	ids := gw.Seed(seed...)

	client, err := gateway.New(gateway.Config{BaseURL: gw.URL, Tokens: state, Timeout: 2 * time.Second})
	if err != nil {
		gw.Close()
		_ = state.Close()
		return nil, fmt.Errorf("failed to initialize gateway client: %w", err)
	}
	sess := session.New()
	mgr := session.NewManager(client, state, sess, nil)
	client.OnUnauthorized(mgr.Teardown)
	feed := event.NewRecorder(100, nil)
	eng := engine.New(engine.Deps{Store: store.New(), Gateway: client, Session: sess, Publisher: feed})

	mux := server.NewMux(server.Options{
		Engine:    eng,
		Sessions:  mgr,
		State:     state,
		Changes:   feed,
		RateLimit: cfg.RateLimit,
	})

	return &Harness{
		server:  httptest.NewServer(mux),
		gateway: gw,
		state:   state,
		engine:  eng,
		ids:     ids,
	}, nil
}

// URL returns the base URL of the test server.
func (h *Harness) URL() string {
	return h.server.URL
}

// Close shuts down the test server and cleans up resources.
func (h *Harness) Close() {
	h.server.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = h.engine.Shutdown(ctx)
	h.gateway.Close()
	_ = h.state.Close()
}

// RunConformanceTests checks the response contract of every endpoint.
func (h *Harness) RunConformanceTests(t *testing.T) {
	t.Run("HealthEndpoints", h.testHealthEndpoints)
	t.Run("Envelope", h.testEnvelope)
	t.Run("ErrorTaxonomy", h.testErrorTaxonomy)
	t.Run("CorrelationID", h.testCorrelationID)
}

// RunAcceptanceTests checks gallery behavior end to end.
func (h *Harness) RunAcceptanceTests(t *testing.T) {
	t.Run("Projection", h.testProjection)
	t.Run("OptimisticLike", h.testOptimisticLike)
	t.Run("RatingAverage", h.testRatingAverage)
	t.Run("ChangeFeed", h.testChangeFeed)
}

type envelope struct {
	Data  json.RawMessage  `json:"data"`
	Error *errordefs.Error `json:"error"`
}

func (h *Harness) call(t *testing.T, method, path string, body interface{}, header http.Header) (*http.Response, envelope) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, h.URL()+path, rdr)
	if err != nil {
		t.Fatal(err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("%s %s: read body: %v", method, path, err)
	}
	var env envelope
	if strings.HasPrefix(path, "/v1/") {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("%s %s: body %q is not an envelope: %v", method, path, raw, err)
		}
	}
	return resp, env
}

func (h *Harness) reload(t *testing.T) {
	t.Helper()
	if resp, env := h.call(t, "POST", "/v1/gallery/reload", nil, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("reload = %d %+v", resp.StatusCode, env.Error)
	}
}

func (h *Harness) gallery(t *testing.T, query string) []model.ContentItem {
	t.Helper()
	resp, env := h.call(t, "GET", "/v1/gallery"+query, nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("gallery%s = %d %+v", query, resp.StatusCode, env.Error)
	}
	var items []model.ContentItem
	if err := json.Unmarshal(env.Data, &items); err != nil {
		t.Fatal(err)
	}
	return items
}

// testHealthEndpoints tests the health check endpoints.
func (h *Harness) testHealthEndpoints(t *testing.T) {
	for _, path := range []string{"/healthz", "/readyz"} {
		resp, _ := h.call(t, "GET", path, nil, nil)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected status 200 for %s, got %d", path, resp.StatusCode)
		}
	}
}

// testEnvelope checks that every read endpoint answers with exactly one of
// data or error.
func (h *Harness) testEnvelope(t *testing.T) {
	h.reload(t)
	endpoints := []string{
		"/v1/gallery",
		"/v1/categories",
		"/v1/pending",
		"/v1/changes",
		"/v1/saved",
		"/v1/collections",
		"/v1/me",
		"/v1/admin/stats",
	}
	for _, endpoint := range endpoints {
		resp, env := h.call(t, "GET", endpoint, nil, nil)
		hasData := len(env.Data) > 0 && string(env.Data) != "null"
		if hasData == (env.Error != nil) {
			t.Errorf("%s: data present = %v, error = %+v", endpoint, hasData, env.Error)
		}
		if env.Error != nil && resp.StatusCode < 400 {
			t.Errorf("%s: error envelope with status %d", endpoint, resp.StatusCode)
		}
		if got := resp.Header.Get("Content-Type"); !strings.HasPrefix(got, "application/json") {
			t.Errorf("%s: Content-Type = %q", endpoint, got)
		}
	}
}

// testErrorTaxonomy maps each failure class to its code and status.
func (h *Harness) testErrorTaxonomy(t *testing.T) {
	h.reload(t)

	tests := []struct {
		name   string
		setup  func()
		method string
		path   string
		body   interface{}
		status int
		code   errordefs.ErrorCode
	}{
		{name: "unknown sort", method: "GET", path: "/v1/gallery?sort=random", status: http.StatusBadRequest, code: errordefs.LUXY_VALIDATION},
		{name: "score out of range", method: "POST", path: "/v1/content/" + h.ids[1] + "/rate", body: map[string]int{"score": 0}, status: http.StatusBadRequest, code: errordefs.LUXY_VALIDATION},
		{name: "unknown content", method: "POST", path: "/v1/content/424242/like", status: http.StatusNotFound, code: errordefs.LUXY_NOT_FOUND},
		{name: "admin required", method: "GET", path: "/v1/admin/stats", status: http.StatusUnauthorized, code: errordefs.LUXY_AUTH},
		{name: "bad credentials", method: "POST", path: "/v1/auth/login", body: model.Credentials{Email: "x@example.com", Password: "nope"}, status: http.StatusUnauthorized, code: errordefs.LUXY_AUTH},
		{
			name: "gateway down",
			setup: func() {
				h.gateway.Fail(gatewaytest.Fault{Method: "GET", PathPrefix: "/content", Status: http.StatusServiceUnavailable, Times: 1})
			},
			method: "POST", path: "/v1/gallery/reload", status: http.StatusBadGateway, code: errordefs.LUXY_NETWORK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup()
			}
			resp, env := h.call(t, tt.method, tt.path, tt.body, nil)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if env.Error == nil || env.Error.Code != tt.code {
				t.Errorf("error = %+v, want code %s", env.Error, tt.code)
			}
		})
	}
	h.gateway.ClearFaults()
}

// testCorrelationID checks that a caller-supplied correlation id is echoed.
func (h *Harness) testCorrelationID(t *testing.T) {
	header := http.Header{}
	header.Set(server.CorrelationHeader, "conformance-1")
	resp, env := h.call(t, "GET", "/v1/gallery?sort=nope", nil, header)
	if resp.Header.Get(server.CorrelationHeader) != "conformance-1" {
		t.Errorf("%s = %q", server.CorrelationHeader, resp.Header.Get(server.CorrelationHeader))
	}
	if env.Error == nil || env.Error.CorrelationID != "conformance-1" {
		t.Errorf("error = %+v", env.Error)
	}
}

// testProjection checks filtering, search and ordering of the gallery view.
func (h *Harness) testProjection(t *testing.T) {
	h.reload(t)

	all := h.gallery(t, "")
	if len(all) != 3 {
		t.Fatalf("gallery = %d items, want 3", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].UploadedAt.Before(all[i].UploadedAt) {
			t.Errorf("default order is not newest first at %d", i)
		}
	}

	wedding := h.gallery(t, "?category=wedding&sort=popular")
	if len(wedding) != 2 || wedding[0].LikeCount < wedding[1].LikeCount {
		t.Errorf("wedding by popularity = %+v", wedding)
	}
	for _, it := range wedding {
		if it.Category != "wedding" {
			t.Errorf("category filter leaked %q", it.Category)
		}
	}

	found := h.gallery(t, "?search=SERRA")
	if len(found) != 1 || found[0].ID != h.ids[1] {
		t.Errorf("search = %+v", found)
	}
	if found := h.gallery(t, "?search=serra&category=wedding"); len(found) != 0 {
		t.Errorf("search within wedding = %+v", found)
	}
}

// testOptimisticLike checks that a like is visible before the gateway
// confirms it.
func (h *Harness) testOptimisticLike(t *testing.T) {
	h.reload(t)
	id := h.ids[2]
	before := h.gateway.LikeCount(id)

	release := h.gateway.Hold("/content/" + id + "/like")
	resp, env := h.call(t, "POST", "/v1/content/"+id+"/like", nil, nil)
	if resp.StatusCode != http.StatusAccepted {
		release()
		t.Fatalf("like = %d %+v", resp.StatusCode, env.Error)
	}
	var op struct {
		State engine.OpState `json:"state"`
	}
	_ = json.Unmarshal(env.Data, &op)
	if op.State != engine.StatePending {
		t.Errorf("state before confirmation = %q", op.State)
	}
	for _, it := range h.gallery(t, "") {
		if it.ID == id && it.LikeCount != before+1 {
			t.Errorf("optimistic like count = %d, want %d", it.LikeCount, before+1)
		}
	}
	release()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.engine.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if got := h.gateway.LikeCount(id); got != before+1 {
		t.Errorf("gateway like count = %d, want %d", got, before+1)
	}

	// A second like in the same session is not sent again.
	if resp, env := h.call(t, "POST", "/v1/content/"+id+"/like?wait=true", nil, nil); resp.StatusCode != http.StatusAccepted {
		t.Errorf("repeat like = %d %+v", resp.StatusCode, env.Error)
	}
	if got := h.gateway.Calls("POST", "/content/"+id+"/like"); got != 1 {
		t.Errorf("gateway like calls = %d, want 1", got)
	}
}

// testRatingAverage checks the running mean after a rating.
func (h *Harness) testRatingAverage(t *testing.T) {
	h.reload(t)
	id := h.ids[0]
	resp, env := h.call(t, "POST", "/v1/content/"+id+"/rate?wait=true", map[string]int{"score": 3}, nil)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("rate = %d %+v", resp.StatusCode, env.Error)
	}
	var op struct {
		State engine.OpState     `json:"state"`
		Item  *model.ContentItem `json:"item"`
	}
	if err := json.Unmarshal(env.Data, &op); err != nil {
		t.Fatal(err)
	}
	if op.State != engine.StateConfirmed || op.Item == nil {
		t.Fatalf("rate op = %+v", op)
	}
	if op.Item.RatingCount != 2 || op.Item.AverageRating != 4 {
		t.Errorf("rating = %v over %d, want 4 over 2", op.Item.AverageRating, op.Item.RatingCount)
	}
	if resp, env := h.call(t, "POST", "/v1/content/"+id+"/rate", map[string]int{"score": 5}, nil); resp.StatusCode != http.StatusConflict || env.Error.Code != errordefs.LUXY_CONFLICT {
		t.Errorf("second rate = %d %+v", resp.StatusCode, env.Error)
	}
}

// testChangeFeed checks that mutations show up in the change feed.
func (h *Harness) testChangeFeed(t *testing.T) {
	resp, env := h.call(t, "GET", "/v1/changes", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("changes = %d %+v", resp.StatusCode, env.Error)
	}
	var changes []event.Change
	if err := json.Unmarshal(env.Data, &changes); err != nil {
		t.Fatal(err)
	}
	seen := make(map[event.Type]bool)
	for _, ch := range changes {
		seen[ch.Type] = true
	}
	for _, want := range []event.Type{event.ContentLoaded, event.ContentLiked, event.ContentRated} {
		if !seen[want] {
			t.Errorf("change feed has no %s", want)
		}
	}
}
