// integration/gallery_test.go
// Package integration drives luxyd end to end: the HTTP surface over a real
// listener, the gateway client over gatewaytest and badger-backed state.
package integration

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
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

const (
	email    = "ana@example.com"
	password = "segredo1"
)

type envelope struct {
	Data  json.RawMessage  `json:"data"`
	Error *errordefs.Error `json:"error"`
}

// stack is one running luxyd instance.
type stack struct {
	mgr *session.Manager
	eng *engine.Engine
	ts  *httptest.Server
}

func start(t *testing.T, gw *gatewaytest.Server, state storage.Store) *stack {
	t.Helper()
	client, err := gateway.New(gateway.Config{BaseURL: gw.URL, Tokens: state, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("gateway.New() error = %v", err)
	}
	sess := session.New()
	mgr := session.NewManager(client, state, sess, nil)
	client.OnUnauthorized(mgr.Teardown)
	feed := event.NewRecorder(50, nil)
	eng := engine.New(engine.Deps{Store: store.New(), Gateway: client, Session: sess, Publisher: feed})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := mgr.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	ts := httptest.NewServer(server.NewMux(server.Options{Engine: eng, Sessions: mgr, State: state, Changes: feed}))
	t.Cleanup(func() {
		ts.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = eng.Shutdown(ctx)
	})
	return &stack{mgr: mgr, eng: eng, ts: ts}
}

func (s *stack) call(t *testing.T, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.ts.URL+path, rdr)
	if err != nil {
		t.Fatal(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("%s %s: undecodable body: %v", method, path, err)
	}
	return resp.StatusCode, env
}

func (s *stack) gallery(t *testing.T) []model.ContentItem {
	t.Helper()
	code, env := s.call(t, "GET", "/v1/gallery", nil)
	if code != http.StatusOK {
		t.Fatalf("gallery status = %d, error = %+v", code, env.Error)
	}
	var items []model.ContentItem
	if err := json.Unmarshal(env.Data, &items); err != nil {
		t.Fatal(err)
	}
	return items
}

func badgerState(t *testing.T) storage.Store {
	t.Helper()
	state, err := storage.NewBadgerInMemory()
	if err != nil {
		t.Fatalf("NewBadgerInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = state.Close() })
	return state
}

func TestSessionSurvivesRestart(t *testing.T) {
	gw := gatewaytest.New()
	defer gw.Close()
	gw.AddUser(email, password, "Ana")
	ids := gw.Seed(gatewaytest.Item{Title: "Noiva", Category: "wedding"})
	state := badgerState(t)

	first := start(t, gw, state)
	if code, env := first.call(t, "POST", "/v1/auth/login", model.Credentials{Email: email, Password: password}); code != http.StatusOK {
		t.Fatalf("login = %d %+v", code, env.Error)
	}
	if code, env := first.call(t, "PUT", "/v1/saved/"+ids[0], nil); code != http.StatusOK {
		t.Fatalf("save = %d %+v", code, env.Error)
	}

	second := start(t, gw, state)
	code, env := second.call(t, "GET", "/v1/me", nil)
	if code != http.StatusOK {
		t.Fatalf("me after restart = %d %+v", code, env.Error)
	}
	var me struct {
		User  model.User `json:"user"`
		Admin bool       `json:"admin"`
	}
	if err := json.Unmarshal(env.Data, &me); err != nil {
		t.Fatal(err)
	}
	if me.User.Email != email || me.Admin {
		t.Errorf("restored session = %+v", me)
	}
	if !second.mgr.Session().IsSaved(ids[0]) {
		t.Error("saved items not restored")
	}
}

func TestUnauthorizedTearsSessionDown(t *testing.T) {
	gw := gatewaytest.New()
	defer gw.Close()
	gw.AddUser(email, password, "Ana")
	ids := gw.Seed(gatewaytest.Item{Title: "Trilha", Category: "nature", Likes: 3})
	state := badgerState(t)

	s := start(t, gw, state)
	if code, env := s.call(t, "POST", "/v1/auth/login", model.Credentials{Email: email, Password: password}); code != http.StatusOK {
		t.Fatalf("login = %d %+v", code, env.Error)
	}
	if code, env := s.call(t, "POST", "/v1/gallery/reload", nil); code != http.StatusOK {
		t.Fatalf("reload = %d %+v", code, env.Error)
	}

	gw.Fail(gatewaytest.Fault{Method: "POST", PathPrefix: "/content/" + ids[0] + "/like", Status: http.StatusUnauthorized, Times: 1})
	code, env := s.call(t, "POST", "/v1/content/"+ids[0]+"/like?wait=true", nil)
	if code != http.StatusAccepted {
		t.Fatalf("like = %d %+v", code, env.Error)
	}
	var op struct {
		State engine.OpState `json:"state"`
	}
	_ = json.Unmarshal(env.Data, &op)
	if op.State != engine.StateFailed {
		t.Errorf("like state = %q, want %q", op.State, engine.StateFailed)
	}

	if code, env := s.call(t, "GET", "/v1/me", nil); code != http.StatusUnauthorized || env.Error.Code != errordefs.LUXY_AUTH {
		t.Errorf("me after 401 = %d %+v", code, env.Error)
	}
	tok, err := storage.GetString(context.Background(), state, storage.KeyUserToken)
	if err != nil || tok != "" {
		t.Errorf("persisted token after 401 = %q, %v", tok, err)
	}

	// Anonymous browsing keeps working on the loaded aggregate.
	items := s.gallery(t)
	if len(items) != 1 || items[0].LikeCount != 4 {
		t.Errorf("gallery after teardown = %+v", items)
	}
}

func TestDeletedContentLeavesSavedView(t *testing.T) {
	gw := gatewaytest.New()
	defer gw.Close()
	ids := gw.Seed(
		gatewaytest.Item{Title: "Noiva", Category: "wedding"},
		gatewaytest.Item{Title: "Festa", Category: "wedding"},
	)
	s := start(t, gw, badgerState(t))

	creds := model.AdminCredentials{Username: gatewaytest.AdminUsername, Password: gatewaytest.AdminPassword}
	if code, env := s.call(t, "POST", "/v1/auth/admin-login", creds); code != http.StatusOK {
		t.Fatalf("admin-login = %d %+v", code, env.Error)
	}
	if code, env := s.call(t, "POST", "/v1/gallery/reload?scope=admin", nil); code != http.StatusOK {
		t.Fatalf("admin reload = %d %+v", code, env.Error)
	}
	for _, id := range ids {
		if code, env := s.call(t, "PUT", "/v1/saved/"+id, nil); code != http.StatusOK {
			t.Fatalf("save %s = %d %+v", id, code, env.Error)
		}
	}

	if code, env := s.call(t, "DELETE", "/v1/content/"+ids[0]+"?confirm=true", nil); code != http.StatusOK {
		t.Fatalf("delete = %d %+v", code, env.Error)
	}
	if code, env := s.call(t, "DELETE", "/v1/content/"+ids[0]+"?confirm=true", nil); code != http.StatusNotFound || env.Error.Code != errordefs.LUXY_NOT_FOUND {
		t.Errorf("second delete = %d %+v", code, env.Error)
	}

	code, env := s.call(t, "GET", "/v1/saved", nil)
	if code != http.StatusOK {
		t.Fatalf("saved = %d %+v", code, env.Error)
	}
	var saved struct {
		IDs   []string            `json:"ids"`
		Items []model.ContentItem `json:"items"`
	}
	if err := json.Unmarshal(env.Data, &saved); err != nil {
		t.Fatal(err)
	}
	if len(saved.IDs) != 2 {
		t.Errorf("saved ids = %v, want both kept", saved.IDs)
	}
	if len(saved.Items) != 1 || saved.Items[0].ID != ids[1] {
		t.Errorf("saved items = %+v", saved.Items)
	}
	if items := s.gallery(t); len(items) != 1 || items[0].Title != "Festa" {
		t.Errorf("gallery after delete = %+v", items)
	}
}
