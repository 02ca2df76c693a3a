// internal/server/mux_test.go
// Package server provides unit tests for the HTTP handlers and routing.
package server

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
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
	"github.com/P3dro7wz/Luxy/internal/session"
	"github.com/P3dro7wz/Luxy/internal/storage"
	"github.com/P3dro7wz/Luxy/internal/store"
)

// envelope is the decoded form of every /v1 response.
type envelope struct {
	Data  json.RawMessage  `json:"data"`
	Error *errordefs.Error `json:"error"`
}

type fixture struct {
	srv *gatewaytest.Server
	eng *engine.Engine
	h   http.Handler
	ids []string
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	srv := gatewaytest.New()
	t.Cleanup(srv.Close)
	ids := srv.Seed(
		gatewaytest.Item{Title: "Noiva", Category: "wedding", Likes: 1},
		gatewaytest.Item{Title: "Trilha", Category: "nature", Likes: 4},
		gatewaytest.Item{Title: "Festa", Category: "wedding", Likes: 2},
	)

	state := storage.NewMemory()
	gw, err := gateway.New(gateway.Config{BaseURL: srv.URL, Tokens: state, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("gateway.New() error = %v", err)
	}
	sess := session.New()
	mgr := session.NewManager(gw, state, sess, nil)
	gw.OnUnauthorized(mgr.Teardown)
	feed := event.NewRecorder(100, nil)
	eng := engine.New(engine.Deps{Store: store.New(), Gateway: gw, Session: sess, Publisher: feed})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = eng.Shutdown(ctx)
	})

	opts.Engine, opts.Sessions, opts.State, opts.Changes = eng, mgr, state, feed
	return &fixture{srv: srv, eng: eng, h: NewMux(opts), ids: ids}
}

func (f *fixture) do(t *testing.T, method, target string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return f.serve(t, req)
}

func (f *fixture) serve(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rr := httptest.NewRecorder()
	f.h.ServeHTTP(rr, req)
	var env envelope
	if strings.HasPrefix(req.URL.Path, "/v1/") && rr.Code != http.StatusNoContent {
		if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
			t.Fatalf("%s %s: undecodable body %q: %v", req.Method, req.URL, rr.Body.String(), err)
		}
	}
	return rr, env
}

func (f *fixture) reload(t *testing.T) {
	t.Helper()
	if rr, env := f.do(t, "POST", "/v1/gallery/reload", nil); rr.Code != http.StatusOK {
		t.Fatalf("reload status = %d, error = %+v", rr.Code, env.Error)
	}
}

func (f *fixture) adminLogin(t *testing.T) {
	t.Helper()
	rr, env := f.do(t, "POST", "/v1/auth/admin-login", model.AdminCredentials{Username: gatewaytest.AdminUsername, Password: gatewaytest.AdminPassword})
	if rr.Code != http.StatusOK {
		t.Fatalf("admin-login status = %d, error = %+v", rr.Code, env.Error)
	}
}

// TestHealthEndpoints tests the liveness and readiness endpoints.
func TestHealthEndpoints(t *testing.T) {
	f := newFixture(t, Options{})
	for _, path := range []string{"/healthz", "/readyz"} {
		rr, _ := f.do(t, "GET", path, nil)
		if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
			t.Errorf("%s = %d %q, want 200 ok", path, rr.Code, rr.Body.String())
		}
	}
	if rr, _ := f.do(t, "GET", "/metrics", nil); rr.Code != http.StatusOK {
		t.Errorf("/metrics status = %d", rr.Code)
	}
}

func TestGalleryAndCategories(t *testing.T) {
	f := newFixture(t, Options{})
	f.reload(t)

	rr, env := f.do(t, "GET", "/v1/gallery?category=wedding&sort=popular", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("gallery status = %d", rr.Code)
	}
	var items []model.ContentItem
	if err := json.Unmarshal(env.Data, &items); err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 || items[0].Title != "Festa" || items[1].Title != "Noiva" {
		t.Errorf("wedding by popularity = %+v", items)
	}

	_, env = f.do(t, "GET", "/v1/categories", nil)
	var cats []model.Category
	if err := json.Unmarshal(env.Data, &cats); err != nil {
		t.Fatal(err)
	}
	if cats[0].ID != model.CategoryAll || cats[0].Count != 3 {
		t.Errorf("categories[0] = %+v", cats[0])
	}
}

func TestErrorEnvelopeCarriesCorrelationID(t *testing.T) {
	f := newFixture(t, Options{})
	req := httptest.NewRequest("GET", "/v1/gallery?sort=random", nil)
	req.Header.Set(CorrelationHeader, "corr-42")
	rr, env := f.serve(t, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
	if rr.Header().Get(CorrelationHeader) != "corr-42" {
		t.Errorf("%s = %q, want corr-42", CorrelationHeader, rr.Header().Get(CorrelationHeader))
	}
	if env.Error == nil || env.Error.Code != errordefs.LUXY_VALIDATION || env.Error.CorrelationID != "corr-42" {
		t.Errorf("error = %+v", env.Error)
	}
}

func TestLikeAndRate(t *testing.T) {
	f := newFixture(t, Options{})
	f.reload(t)

	rr, env := f.do(t, "POST", "/v1/content/"+f.ids[0]+"/like?wait=true", nil)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("like status = %d, error = %+v", rr.Code, env.Error)
	}
	var op opView
	if err := json.Unmarshal(env.Data, &op); err != nil {
		t.Fatal(err)
	}
	if op.State != engine.StateConfirmed || op.Item == nil || op.Item.LikeCount != 2 {
		t.Errorf("like op = %+v", op)
	}

	rr, env = f.do(t, "POST", "/v1/content/"+f.ids[0]+"/rate", map[string]int{"score": 6})
	if rr.Code != http.StatusBadRequest || env.Error.Code != errordefs.LUXY_VALIDATION {
		t.Errorf("rate(6) = %d %+v", rr.Code, env.Error)
	}
	rr, env = f.do(t, "POST", "/v1/content/"+f.ids[0]+"/rate?wait=true", map[string]int{"score": 4})
	if rr.Code != http.StatusAccepted {
		t.Fatalf("rate status = %d, error = %+v", rr.Code, env.Error)
	}
	rr, env = f.do(t, "POST", "/v1/content/"+f.ids[0]+"/rate", map[string]int{"score": 5})
	if rr.Code != http.StatusConflict || env.Error.Code != errordefs.LUXY_CONFLICT {
		t.Errorf("second rate = %d %+v", rr.Code, env.Error)
	}
	if rr, _ := f.do(t, "POST", "/v1/content/999/like", nil); rr.Code != http.StatusNotFound {
		t.Errorf("like(unknown) status = %d, want 404", rr.Code)
	}
}

func TestAdminEndpoints(t *testing.T) {
	f := newFixture(t, Options{})
	f.reload(t)

	if rr, env := f.do(t, "GET", "/v1/admin/stats", nil); rr.Code != http.StatusUnauthorized || env.Error.Code != errordefs.LUXY_AUTH {
		t.Errorf("stats without admin = %d %+v", rr.Code, env.Error)
	}
	f.adminLogin(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("title", "Ensaio")
	_ = mw.WriteField("category", "portrait")
	for _, name := range []string{"a.jpg", "b.jpg"} {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
		h.Set("Content-Type", "image/jpeg")
		part, _ := mw.CreatePart(h)
		_, _ = part.Write([]byte("jpeg"))
	}
	_ = mw.Close()
	req := httptest.NewRequest("POST", "/v1/content?wait=true", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr, env := f.serve(t, req)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("upload status = %d, error = %+v", rr.Code, env.Error)
	}
	var ops []opView
	if err := json.Unmarshal(env.Data, &ops); err != nil {
		t.Fatal(err)
	}
	if len(ops) != 2 || ops[0].State != engine.StateConfirmed || ops[0].Item == nil || ops[0].Item.Title != "Ensaio 1" {
		t.Fatalf("upload ops = %+v", ops)
	}
	created := ops[0].Item.ID

	rr, env = f.do(t, "PATCH", "/v1/content/"+created, map[string]string{"description": "estúdio"})
	var item model.ContentItem
	_ = json.Unmarshal(env.Data, &item)
	if rr.Code != http.StatusOK || item.Description != "estúdio" || item.Title != "Ensaio 1" {
		t.Errorf("patch = %d %+v %+v", rr.Code, item, env.Error)
	}

	if rr, env := f.do(t, "DELETE", "/v1/content/"+created, nil); rr.Code != http.StatusBadRequest || env.Error.Code != errordefs.LUXY_VALIDATION {
		t.Errorf("unconfirmed delete = %d %+v", rr.Code, env.Error)
	}
	if rr, env := f.do(t, "DELETE", "/v1/content/"+created+"?confirm=true", nil); rr.Code != http.StatusOK {
		t.Errorf("confirmed delete = %d %+v", rr.Code, env.Error)
	}
	if _, ok := f.eng.Store().Get(created); ok {
		t.Error("deleted item still in store")
	}

	rr, env = f.do(t, "GET", "/v1/admin/stats", nil)
	var stats model.AdminStats
	_ = json.Unmarshal(env.Data, &stats)
	if rr.Code != http.StatusOK || stats.TotalContent != 4 {
		t.Errorf("stats = %d %+v", rr.Code, stats)
	}
}

func TestSavedAndCollections(t *testing.T) {
	f := newFixture(t, Options{})
	f.reload(t)

	for _, id := range []string{f.ids[1], "gone"} {
		if rr, env := f.do(t, "PUT", "/v1/saved/"+id, nil); rr.Code != http.StatusOK {
			t.Fatalf("save %s = %d %+v", id, rr.Code, env.Error)
		}
	}
	_, env := f.do(t, "GET", "/v1/saved", nil)
	var saved struct {
		IDs   []string            `json:"ids"`
		Items []model.ContentItem `json:"items"`
	}
	_ = json.Unmarshal(env.Data, &saved)
	if len(saved.IDs) != 2 || len(saved.Items) != 1 || saved.Items[0].ID != f.ids[1] {
		t.Errorf("saved = %+v", saved)
	}

	rr, env := f.do(t, "POST", "/v1/collections", map[string]string{"name": "Favoritas"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create collection = %d %+v", rr.Code, env.Error)
	}
	var coll model.Collection
	_ = json.Unmarshal(env.Data, &coll)
	if !strings.HasPrefix(coll.ID, session.LocalIDPrefix) {
		t.Errorf("anonymous collection id = %q", coll.ID)
	}
	if rr, _ := f.do(t, "POST", "/v1/collections/"+coll.ID+"/items/"+f.ids[2], nil); rr.Code != http.StatusOK {
		t.Errorf("add to collection status = %d", rr.Code)
	}
	_, env = f.do(t, "GET", "/v1/collections/"+coll.ID, nil)
	var view struct {
		Items []model.ContentItem `json:"items"`
	}
	_ = json.Unmarshal(env.Data, &view)
	if len(view.Items) != 1 || view.Items[0].ID != f.ids[2] {
		t.Errorf("collection items = %+v", view.Items)
	}
	if rr, _ := f.do(t, "GET", "/v1/collections/nope", nil); rr.Code != http.StatusNotFound {
		t.Errorf("unknown collection status = %d", rr.Code)
	}
	if rr, _ := f.do(t, "GET", "/v1/me", nil); rr.Code != http.StatusUnauthorized {
		t.Errorf("anonymous /v1/me status = %d", rr.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t, Options{CORSAllowedOrigins: []string{"http://localhost:5173"}})

	req := httptest.NewRequest("OPTIONS", "/v1/content/1/like", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rr, _ := f.serve(t, req)
	if rr.Code != http.StatusNoContent || rr.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Errorf("allowed preflight = %d, headers %v", rr.Code, rr.Header())
	}

	req = httptest.NewRequest("OPTIONS", "/v1/content/1/like", nil)
	req.Header.Set("Origin", "http://evil.example")
	rr, _ = f.serve(t, req)
	if rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Errorf("disallowed origin got CORS headers: %v", rr.Header())
	}
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, Options{RateLimit: 1})

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		rr, _ := f.do(t, "GET", "/v1/categories", nil)
		codes = append(codes, rr.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[3] != http.StatusTooManyRequests {
		t.Errorf("status codes = %v, want two 200s then 429", codes)
	}
}
