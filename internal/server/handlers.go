package server

import (
	"context"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/P3dro7wz/Luxy/internal/engine"
	errordefs "github.com/P3dro7wz/Luxy/internal/errors"
	"github.com/P3dro7wz/Luxy/internal/event"
	"github.com/P3dro7wz/Luxy/internal/model"
	"github.com/P3dro7wz/Luxy/internal/projection"
)

// opView is the JSON rendering of an optimistic operation.
type opView struct {
	ID        string             `json:"id"`
	Kind      engine.OpKind      `json:"kind"`
	ContentID string             `json:"contentId"`
	Score     int                `json:"score,omitempty"`
	State     engine.OpState     `json:"state"`
	StartedAt time.Time          `json:"startedAt"`
	Error     *errordefs.Error   `json:"error,omitempty"`
	Item      *model.ContentItem `json:"item,omitempty"` // Current store entry, or the confirmed upload
}

func (m *Mux) view(op *engine.Op) opView {
	v := opView{
		ID:        op.ID,
		Kind:      op.Kind,
		ContentID: op.ContentID,
		Score:     op.Score,
		State:     op.State(),
		StartedAt: op.StartedAt,
	}
	if err := op.Err(); err != nil {
		v.Error = errordefs.As(err)
	}
	if v.Kind == engine.OpCreate && v.State == engine.StateConfirmed {
		item := op.Result()
		v.Item = &item
	} else if item, ok := m.engine.Store().Get(op.ContentID); ok {
		v.Item = &item
	}
	return v
}

// detach keeps an operation alive after its request returns while carrying
// the request's values (correlation id, span) along.
func detach(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

// waitRequested reports whether the client asked to block until the
// operation settles.
func waitRequested(r *http.Request) bool {
	return r.URL.Query().Get("wait") == "true"
}

// settle waits for op when requested, bounded by the request context.
func settle(r *http.Request, op *engine.Op) {
	if waitRequested(r) {
		_ = op.Wait(r.Context())
	}
}

// handleGallery handles GET /v1/gallery?category=&search=&sort=
func (m *Mux) handleGallery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sort, err := projection.ParseSort(q.Get("sort"))
	if err != nil {
		m.writeErr(w, r, err)
		return
	}
	items := m.engine.Gallery(projection.Query{Category: q.Get("category"), Search: q.Get("search"), Sort: sort})
	m.writeSuccess(w, http.StatusOK, items)
}

// handleCategories handles GET /v1/categories
func (m *Mux) handleCategories(w http.ResponseWriter, r *http.Request) {
	m.writeSuccess(w, http.StatusOK, m.engine.Categories())
}

// handleReload handles POST /v1/gallery/reload. Admin sessions may pass
// scope=admin to include unpublished items.
func (m *Mux) handleReload(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var err error
	if q.Get("scope") == "admin" {
		if !m.sessions.Session().IsAdmin() {
			m.writeErr(w, r, errordefs.New(errordefs.LUXY_AUTH, "admin login required"))
			return
		}
		err = m.engine.LoadAdmin(r.Context())
	} else {
		err = m.engine.Load(r.Context(), model.ContentFilter{Category: q.Get("category"), Search: q.Get("search")})
	}
	if err != nil {
		m.writeErr(w, r, err)
		return
	}
	m.writeSuccess(w, http.StatusOK, map[string]interface{}{
		"items":      m.engine.Store().Len(),
		"generation": m.engine.Store().Generation(),
	})
}

// handleLike handles POST /v1/content/{id}/like
func (m *Mux) handleLike(w http.ResponseWriter, r *http.Request) {
	op, err := m.engine.Like(detach(r), r.PathValue("id"))
	if err != nil {
		m.writeErr(w, r, err)
		return
	}
	settle(r, op)
	m.writeSuccess(w, http.StatusAccepted, m.view(op))
}

// handleRate handles POST /v1/content/{id}/rate with body {"score": n}
func (m *Mux) handleRate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Score int `json:"score"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		m.writeErr(w, r, err)
		return
	}
	op, err := m.engine.Rate(detach(r), r.PathValue("id"), body.Score)
	if err != nil {
		m.writeErr(w, r, err)
		return
	}
	settle(r, op)
	m.writeSuccess(w, http.StatusAccepted, m.view(op))
}

// handlePending handles GET /v1/pending
func (m *Mux) handlePending(w http.ResponseWriter, r *http.Request) {
	ops := m.engine.Pending()
	out := make([]opView, 0, len(ops))
	for _, op := range ops {
		out = append(out, m.view(op))
	}
	m.writeSuccess(w, http.StatusOK, out)
}

// handleCancelPending handles DELETE /v1/pending
func (m *Mux) handleCancelPending(w http.ResponseWriter, r *http.Request) {
	m.writeSuccess(w, http.StatusOK, map[string]int{"canceled": m.engine.CancelAll()})
}

// handleChanges handles GET /v1/changes
func (m *Mux) handleChanges(w http.ResponseWriter, r *http.Request) {
	changes := []event.Change{}
	if m.changes != nil {
		changes = append(changes, m.changes.Changes()...)
	}
	m.writeSuccess(w, http.StatusOK, changes)
}

// handleCreateContent handles POST /v1/content, a multipart form with
// title, description, category and one or more "file" parts.
func (m *Mux) handleCreateContent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		m.writeErr(w, r, errordefs.Newf(errordefs.LUXY_VALIDATION, "invalid multipart form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	meta := model.UploadMeta{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
	}
	var files []model.UploadFile
	for _, hdr := range r.MultipartForm.File["file"] {
		f, err := hdr.Open()
		if err != nil {
			m.writeErr(w, r, errordefs.Newf(errordefs.LUXY_VALIDATION, "read %s: %v", hdr.Filename, err))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			m.writeErr(w, r, errordefs.Newf(errordefs.LUXY_VALIDATION, "read %s: %v", hdr.Filename, err))
			return
		}
		mimeType := hdr.Header.Get("Content-Type")
		if mimeType == "" || mimeType == "application/octet-stream" {
			mimeType = mime.TypeByExtension(strings.ToLower(filepath.Ext(hdr.Filename)))
		}
		files = append(files, model.UploadFile{Name: hdr.Filename, MimeType: mimeType, Data: data})
	}

	ops, err := m.engine.CreateContent(detach(r), meta, files)
	if err != nil {
		m.writeErr(w, r, err)
		return
	}
	out := make([]opView, 0, len(ops))
	for _, op := range ops {
		settle(r, op)
		out = append(out, m.view(op))
	}
	m.writeSuccess(w, http.StatusAccepted, out)
}

// handleUpdateContent handles PATCH /v1/content/{id}
func (m *Mux) handleUpdateContent(w http.ResponseWriter, r *http.Request) {
	var patch model.ContentPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		m.writeErr(w, r, err)
		return
	}
	item, err := m.engine.UpdateContent(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		m.writeErr(w, r, err)
		return
	}
	m.writeSuccess(w, http.StatusOK, item)
}

// handleDeleteContent handles DELETE /v1/content/{id}?confirm=true
func (m *Mux) handleDeleteContent(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "true" {
		m.writeErr(w, r, errordefs.New(errordefs.LUXY_VALIDATION, "deletion must be confirmed with confirm=true"))
		return
	}
	id := r.PathValue("id")
	if err := m.engine.DeleteContent(r.Context(), id); err != nil {
		m.writeErr(w, r, err)
		return
	}
	m.writeSuccess(w, http.StatusOK, map[string]string{"deleted": id})
}

// handleStats handles GET /v1/admin/stats
func (m *Mux) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := m.engine.Stats(r.Context())
	if err != nil {
		m.writeErr(w, r, err)
		return
	}
	m.writeSuccess(w, http.StatusOK, stats)
}

// handleLogin handles POST /v1/auth/login
func (m *Mux) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds model.Credentials
	if err := decodeJSON(w, r, &creds); err != nil {
		m.writeErr(w, r, err)
		return
	}
	user, err := m.sessions.Login(r.Context(), creds)
	if err != nil {
		m.writeErr(w, r, err)
		return
	}
	m.writeSuccess(w, http.StatusOK, user)
}

// handleRegister handles POST /v1/auth/register
func (m *Mux) handleRegister(w http.ResponseWriter, r *http.Request) {
	var profile model.Profile
	if err := decodeJSON(w, r, &profile); err != nil {
		m.writeErr(w, r, err)
		return
	}
	user, err := m.sessions.Register(r.Context(), profile)
	if err != nil {
		m.writeErr(w, r, err)
		return
	}
	m.writeSuccess(w, http.StatusCreated, user)
}

// handleAdminLogin handles POST /v1/auth/admin-login
func (m *Mux) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var creds model.AdminCredentials
	if err := decodeJSON(w, r, &creds); err != nil {
		m.writeErr(w, r, err)
		return
	}
	if err := m.sessions.AdminLogin(r.Context(), creds); err != nil {
		m.writeErr(w, r, err)
		return
	}
	m.writeSuccess(w, http.StatusOK, map[string]bool{"admin": true})
}

// handleLogout handles POST /v1/auth/logout. With scope=admin only the
// admin token is dropped.
func (m *Mux) handleLogout(w http.ResponseWriter, r *http.Request) {
	var err error
	if r.URL.Query().Get("scope") == "admin" {
		err = m.sessions.AdminLogout(r.Context())
	} else {
		err = m.sessions.Logout(r.Context())
	}
	if err != nil {
		m.writeErr(w, r, err)
		return
	}
	m.writeSuccess(w, http.StatusOK, map[string]bool{"loggedOut": true})
}

// handleMe handles GET /v1/me
func (m *Mux) handleMe(w http.ResponseWriter, r *http.Request) {
	sess := m.sessions.Session()
	user := sess.User()
	if user == nil {
		m.writeErr(w, r, errordefs.New(errordefs.LUXY_AUTH, "not signed in"))
		return
	}
	m.writeSuccess(w, http.StatusOK, map[string]interface{}{
		"user":  user,
		"admin": sess.IsAdmin(),
	})
}

// handleSaved handles GET /v1/saved. Saved ids of deleted content stay in
// ids but are left out of items.
func (m *Mux) handleSaved(w http.ResponseWriter, r *http.Request) {
	ids := m.sessions.Session().Saved()
	if ids == nil {
		ids = []string{}
	}
	m.writeSuccess(w, http.StatusOK, map[string]interface{}{
		"ids":   ids,
		"items": m.sessions.SavedItems(m.engine.Store().Snapshot()),
	})
}

// handleSave handles PUT /v1/saved/{id}
func (m *Mux) handleSave(w http.ResponseWriter, r *http.Request) {
	if err := m.sessions.SaveItem(r.Context(), r.PathValue("id")); err != nil {
		m.writeErr(w, r, err)
		return
	}
	m.writeSuccess(w, http.StatusOK, map[string]bool{"saved": true})
}

// handleUnsave handles DELETE /v1/saved/{id}
func (m *Mux) handleUnsave(w http.ResponseWriter, r *http.Request) {
	if err := m.sessions.UnsaveItem(r.Context(), r.PathValue("id")); err != nil {
		m.writeErr(w, r, err)
		return
	}
	m.writeSuccess(w, http.StatusOK, map[string]bool{"saved": false})
}

// handleCollections handles GET /v1/collections
func (m *Mux) handleCollections(w http.ResponseWriter, r *http.Request) {
	m.writeSuccess(w, http.StatusOK, m.sessions.Session().Collections())
}

// handleCreateCollection handles POST /v1/collections
func (m *Mux) handleCreateCollection(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		m.writeErr(w, r, err)
		return
	}
	coll, err := m.sessions.CreateCollection(r.Context(), body.Name, body.Description)
	if err != nil {
		m.writeErr(w, r, err)
		return
	}
	m.writeSuccess(w, http.StatusCreated, coll)
}

// handleCollection handles GET /v1/collections/{cid}
func (m *Mux) handleCollection(w http.ResponseWriter, r *http.Request) {
	cid := r.PathValue("cid")
	coll, ok := m.sessions.Session().Collection(cid)
	if !ok {
		m.writeErr(w, r, errordefs.Newf(errordefs.LUXY_NOT_FOUND, "collection %s not found", cid))
		return
	}
	items, err := m.sessions.CollectionItems(m.engine.Store().Snapshot(), cid)
	if err != nil {
		m.writeErr(w, r, err)
		return
	}
	m.writeSuccess(w, http.StatusOK, map[string]interface{}{"collection": coll, "items": items})
}

// handleAddToCollection handles POST /v1/collections/{cid}/items/{id}
func (m *Mux) handleAddToCollection(w http.ResponseWriter, r *http.Request) {
	coll, err := m.sessions.AddToCollection(r.Context(), r.PathValue("cid"), r.PathValue("id"))
	if err != nil {
		m.writeErr(w, r, err)
		return
	}
	m.writeSuccess(w, http.StatusOK, coll)
}
