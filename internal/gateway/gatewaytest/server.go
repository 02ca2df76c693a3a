// Package gatewaytest provides an in-memory Remote Content Gateway for tests
// and local development. It serves the same /api contract as the reference
// backend: integer ids, snake_case records, FastAPI style {"detail": ...}
// errors and HS256 bearer tokens.
package gatewaytest

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/P3dro7wz/Luxy/internal/model"
	"github.com/P3dro7wz/Luxy/internal/token"
)

// Admin panel credentials accepted by every Server.
const (
	AdminUsername = "admin"
	AdminPassword = "admin123"
)

// Item seeds one content record.
type Item struct {
	Title       string
	Description string
	Category    string
	Kind        model.Kind // photo when empty
	UploadedAt  time.Time  // now when zero
	Likes       int        // anonymous likes already recorded
	Ratings     []int      // scores already recorded
	Unpublished bool
}

// Fault makes matching requests fail with Status. Times limits how many
// requests fail; zero fails until ClearFaults.
type Fault struct {
	Method     string // Any method when empty
	PathPrefix string // Matched against the path below /api
	Status     int
	Detail     string
	Times      int
}

type record struct {
	ID            int       `json:"id"`
	Title         string    `json:"title"`
	Description   *string   `json:"description"`
	Category      string    `json:"category"`
	FilePath      string    `json:"file_path"`
	ThumbnailPath *string   `json:"thumbnail_path"`
	FileType      string    `json:"file_type"`
	FileSize      *int64    `json:"file_size"`
	Duration      *string   `json:"duration"`
	Width         *int      `json:"width"`
	Height        *int      `json:"height"`
	UploadDate    string    `json:"upload_date"`
	IsPublished   bool      `json:"is_published"`
	LikesCount    int       `json:"likes_count"`
	AverageRating float64   `json:"average_rating"`
	RatingsCount  int       `json:"ratings_count"`
	likes         map[string]bool
	ratings       map[string]int
}

type user struct {
	ID        int    `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
	password  string
}

type collection struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   string    `json:"created_at"`
	Items       []*record `json:"items"`
	owner       string
}

// Server is an in-memory gateway listening on a local port.
type Server struct {
	*httptest.Server

	TokenTTL time.Duration // Lifetime of issued tokens, one hour by default

	secret []byte

	mu          sync.Mutex
	nextID      int
	content     map[int]*record
	users       map[string]*user
	collections map[int]*collection
	faults      []*Fault
	holds       map[string]chan struct{}
	calls       map[string]int
}

// New starts a Server. Call Close when done.
func New() *Server {
	s := &Server{
		TokenTTL:    time.Hour,
		secret:      []byte(fmt.Sprintf("gatewaytest-%d", time.Now().UnixNano())),
		nextID:      1,
		content:     make(map[int]*record),
		users:       make(map[string]*user),
		collections: make(map[int]*collection),
		holds:       make(map[string]chan struct{}),
		calls:       make(map[string]int),
	}
	s.Server = httptest.NewServer(s.routes())
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/content", s.listContent)
	mux.HandleFunc("GET /api/content/{id}", s.getContent)
	mux.HandleFunc("GET /api/categories", s.listCategories)
	mux.HandleFunc("POST /api/content/{id}/like", s.like)
	mux.HandleFunc("POST /api/content/{id}/rate", s.rate)

	mux.HandleFunc("POST /api/auth/register", s.register)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("POST /api/auth/admin-login", s.adminLogin)
	mux.HandleFunc("GET /api/auth/me", s.me)

	mux.HandleFunc("GET /api/collections", s.listCollections)
	mux.HandleFunc("POST /api/collections", s.createCollection)
	mux.HandleFunc("POST /api/collections/{cid}/items/{id}", s.addToCollection)

	mux.HandleFunc("GET /api/admin/content", s.adminOnly(s.adminContent))
	mux.HandleFunc("POST /api/admin/content", s.adminOnly(s.createContent))
	mux.HandleFunc("PUT /api/admin/content/{id}", s.adminOnly(s.updateContent))
	mux.HandleFunc("DELETE /api/admin/content/{id}", s.adminOnly(s.deleteContent))
	mux.HandleFunc("GET /api/admin/stats", s.adminOnly(s.stats))
	return s.intercept(mux)
}

// intercept applies holds and faults before routing.
func (s *Server) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api")

		s.mu.Lock()
		s.calls[r.Method+" "+path]++
		var hold chan struct{}
		for prefix, ch := range s.holds {
			if strings.HasPrefix(path, prefix) {
				hold = ch
				break
			}
		}
		s.mu.Unlock()

		if hold != nil {
			select {
			case <-hold:
			case <-r.Context().Done():
				return
			}
		}

		if f := s.takeFault(r.Method, path); f != nil {
			detail := f.Detail
			if detail == "" {
				detail = http.StatusText(f.Status)
			}
			writeDetail(w, f.Status, detail)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) takeFault(method, path string) *Fault {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, f := range s.faults {
		if (f.Method == "" || f.Method == method) && strings.HasPrefix(path, f.PathPrefix) {
			if f.Times > 0 {
				f.Times--
				if f.Times == 0 {
					s.faults = append(s.faults[:i], s.faults[i+1:]...)
				}
			}
			return f
		}
	}
	return nil
}

// Fail installs a fault.
func (s *Server) Fail(f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fc := f
	s.faults = append(s.faults, &fc)
}

// ClearFaults removes every installed fault.
func (s *Server) ClearFaults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = nil
}

// Hold blocks requests whose path below /api starts with prefix until the
// returned release func is called.
func (s *Server) Hold(prefix string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.holds[prefix] = ch
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.holds, prefix)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// Calls reports how many requests hit method and path (below /api).
func (s *Server) Calls(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method+" "+path]
}

// Seed inserts items and returns their ids in order.
func (s *Server) Seed(items ...Item) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(items))
	for i, it := range items {
		kind := it.Kind
		if kind == "" {
			kind = model.KindPhoto
		}
		uploaded := it.UploadedAt
		if uploaded.IsZero() {
			uploaded = time.Now().UTC().Add(time.Duration(i) * time.Second)
		}
		rec := s.newRecord(it.Title, it.Description, it.Category, kind, fmt.Sprintf("seed-%d", i), 0, uploaded)
		rec.IsPublished = !it.Unpublished
		for n := 0; n < it.Likes; n++ {
			rec.likes[fmt.Sprintf("seed-like-%d", n)] = true
		}
		for n, score := range it.Ratings {
			rec.ratings[fmt.Sprintf("seed-rating-%d", n)] = score
		}
		rec.refresh()
		ids = append(ids, strconv.Itoa(rec.ID))
	}
	return ids
}

// AddUser registers a client account directly.
func (s *Server) AddUser(email, password, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addUser(email, password, name)
}

// IssueToken returns a valid client token for email.
func (s *Server) IssueToken(email string) string {
	tok, _ := token.Issue(s.secret, email, string(model.RoleClient), "", s.TokenTTL)
	return tok
}

// LikeCount reports the server-side like count of id.
func (s *Server) LikeCount(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec := s.lookup(id); rec != nil {
		return len(rec.likes)
	}
	return -1
}

// RatingCount reports the server-side rating count of id.
func (s *Server) RatingCount(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec := s.lookup(id); rec != nil {
		return len(rec.ratings)
	}
	return -1
}

// Remove deletes id server-side, as another admin would.
func (s *Server) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec := s.lookup(id); rec != nil {
		delete(s.content, rec.ID)
	}
}

func (s *Server) addUser(email, password, name string) *user {
	u := &user{
		ID:        len(s.users) + 1,
		Email:     email,
		Name:      name,
		Role:      string(model.RoleClient),
		IsActive:  true,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		password:  password,
	}
	s.users[email] = u
	return u
}

func (s *Server) newRecord(title, description, category string, kind model.Kind, file string, size int64, uploaded time.Time) *record {
	id := s.nextID
	s.nextID++
	rec := &record{
		ID:          id,
		Title:       title,
		Category:    category,
		FileType:    string(kind),
		FilePath:    fmt.Sprintf("uploads/%ss/%d-%s", kind, id, file),
		UploadDate:  uploaded.UTC().Format("2006-01-02T15:04:05.999999"),
		IsPublished: true,
		likes:       make(map[string]bool),
		ratings:     make(map[string]int),
	}
	if description != "" {
		rec.Description = &description
	}
	if size > 0 {
		rec.FileSize = &size
	}
	if kind == model.KindVideo {
		d := model.VideoDurationPlaceholder
		rec.Duration = &d
	}
	s.content[id] = rec
	return rec
}

func (r *record) refresh() {
	r.LikesCount = len(r.likes)
	r.RatingsCount = len(r.ratings)
	r.AverageRating = 0
	if r.RatingsCount > 0 {
		sum := 0
		for _, v := range r.ratings {
			sum += v
		}
		r.AverageRating = float64(sum) / float64(r.RatingsCount)
	}
}

func (s *Server) lookup(id string) *record {
	n, err := strconv.Atoi(id)
	if err != nil {
		return nil
	}
	return s.content[n]
}

// ordered returns records by id.
func (s *Server) ordered(includeUnpublished bool) []*record {
	out := make([]*record, 0, len(s.content))
	for _, rec := range s.content {
		if rec.IsPublished || includeUnpublished {
			rec.refresh()
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// claims returns the verified claims of the request, nil without a bearer
// token, or an error for a bad one.
func (s *Server) claims(r *http.Request) (*token.Claims, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return nil, nil
	}
	raw, ok := strings.CutPrefix(h, "Bearer ")
	if !ok {
		return nil, fmt.Errorf("malformed authorization header")
	}
	c, err := token.Verify(s.secret, raw)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// currentUser resolves the client account behind the request.
func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) *user {
	c, err := s.claims(r)
	if err != nil || c == nil || c.IsAdmin() {
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		return nil
	}
	s.mu.Lock()
	u := s.users[c.Subject]
	s.mu.Unlock()
	if u == nil {
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		return nil
	}
	return u
}

func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := s.claims(r)
		if err != nil || c == nil {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		if c.Type != "admin" {
			writeDetail(w, http.StatusForbidden, "Admin access required")
			return
		}
		next(w, r)
	}
}

// actor identifies who likes or rates: the account when authenticated, the
// remote address otherwise.
func (s *Server) actor(w http.ResponseWriter, r *http.Request) (string, bool) {
	c, err := s.claims(r)
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		return "", false
	}
	if c != nil {
		return "user:" + c.Subject, true
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host, true
}

func (s *Server) listContent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	category, search := q.Get("category"), q.Get("search")
	skip, _ := strconv.Atoi(q.Get("skip"))
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit <= 0 {
		limit = 100
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*record{}
	for _, rec := range s.ordered(false) {
		if category != "" && category != model.CategoryAll && rec.Category != category {
			continue
		}
		if search != "" && !strings.Contains(rec.Title, search) &&
			(rec.Description == nil || !strings.Contains(*rec.Description, search)) {
			continue
		}
		out = append(out, rec)
	}
	if skip > len(out) {
		skip = len(out)
	}
	out = out[skip:]
	if len(out) > limit {
		out = out[:limit]
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getContent(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.lookup(r.PathValue("id"))
	if rec == nil || !rec.IsPublished {
		writeDetail(w, http.StatusNotFound, "Content not found")
		return
	}
	rec.refresh()
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := map[string]int{}
	var order []string
	total := 0
	for _, rec := range s.ordered(false) {
		if _, seen := counts[rec.Category]; !seen {
			order = append(order, rec.Category)
		}
		counts[rec.Category]++
		total++
	}
	out := []map[string]interface{}{{"id": model.CategoryAll, "name": model.CategoryLabels[model.CategoryAll], "count": total}}
	for _, id := range order {
		name, ok := model.CategoryLabels[id]
		if !ok {
			name = id
		}
		out = append(out, map[string]interface{}{"id": id, "name": name, "count": counts[id]})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) like(w http.ResponseWriter, r *http.Request) {
	who, ok := s.actor(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.lookup(r.PathValue("id"))
	if rec == nil {
		writeDetail(w, http.StatusNotFound, "Content not found")
		return
	}
	if rec.likes[who] {
		writeDetail(w, http.StatusBadRequest, "Already liked")
		return
	}
	rec.likes[who] = true
	writeJSON(w, http.StatusOK, map[string]string{"message": "Content liked successfully"})
}

func (s *Server) rate(w http.ResponseWriter, r *http.Request) {
	who, ok := s.actor(w, r)
	if !ok {
		return
	}
	var in struct {
		ContentID int `json:"content_id"`
		Score     int `json:"score"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	if in.Score < 1 || in.Score > 5 {
		writeDetail(w, http.StatusBadRequest, "Rating must be between 1 and 5")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.lookup(r.PathValue("id"))
	if rec == nil {
		writeDetail(w, http.StatusNotFound, "Content not found")
		return
	}
	if _, dup := rec.ratings[who]; dup {
		writeDetail(w, http.StatusBadRequest, "Already rated")
		return
	}
	rec.ratings[who] = in.Score
	writeJSON(w, http.StatusOK, map[string]string{"message": "Content rated successfully"})
}

func (s *Server) tokenFor(u *user) map[string]interface{} {
	tok, _ := token.Issue(s.secret, u.Email, u.Role, "", s.TokenTTL)
	return map[string]interface{}{"access_token": tok, "token_type": "bearer", "user": u}
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Email == "" || in.Password == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[in.Email]; exists {
		writeDetail(w, http.StatusBadRequest, "Email already registered")
		return
	}
	writeJSON(w, http.StatusOK, s.tokenFor(s.addUser(in.Email, in.Password, in.Name)))
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[in.Email]
	if !ok || u.password != in.Password {
		writeDetail(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	writeJSON(w, http.StatusOK, s.tokenFor(u))
}

func (s *Server) adminLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	if in.Username != AdminUsername || in.Password != AdminPassword {
		writeDetail(w, http.StatusUnauthorized, "Invalid admin credentials")
		return
	}
	tok, _ := token.Issue(s.secret, in.Username, string(model.RoleAdmin), "admin", s.TokenTTL)
	writeJSON(w, http.StatusOK, map[string]string{"access_token": tok, "token_type": "bearer"})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	if u := s.currentUser(w, r); u != nil {
		writeJSON(w, http.StatusOK, u)
	}
}

func (s *Server) listCollections(w http.ResponseWriter, r *http.Request) {
	u := s.currentUser(w, r)
	if u == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*collection{}
	for _, c := range s.collections {
		if c.owner == u.Email {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createCollection(w http.ResponseWriter, r *http.Request) {
	u := s.currentUser(w, r)
	if u == nil {
		return
	}
	var in struct {
		Name        string  `json:"name"`
		Description *string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Name == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &collection{
		ID:          len(s.collections) + 1,
		Name:        in.Name,
		Description: in.Description,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
		Items:       []*record{},
		owner:       u.Email,
	}
	s.collections[c.ID] = c
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) addToCollection(w http.ResponseWriter, r *http.Request) {
	u := s.currentUser(w, r)
	if u == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cid, _ := strconv.Atoi(r.PathValue("cid"))
	c, ok := s.collections[cid]
	if !ok || c.owner != u.Email {
		writeDetail(w, http.StatusNotFound, "Collection not found")
		return
	}
	rec := s.lookup(r.PathValue("id"))
	if rec == nil {
		writeDetail(w, http.StatusNotFound, "Content not found")
		return
	}
	for _, it := range c.Items {
		if it.ID == rec.ID {
			writeDetail(w, http.StatusBadRequest, "Item already in collection")
			return
		}
	}
	c.Items = append(c.Items, rec)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Item added to collection"})
}

func (s *Server) adminContent(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.ordered(true))
}

func (s *Server) createContent(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid form")
		return
	}
	title, category := r.FormValue("title"), r.FormValue("category")
	if title == "" || category == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "title and category are required")
		return
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "file is required")
		return
	}
	defer f.Close()
	size, _ := io.Copy(io.Discard, f)

	kind := model.KindForMimeType(hdr.Header.Get("Content-Type"))
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.newRecord(title, r.FormValue("description"), category, kind, hdr.Filename, size, time.Now().UTC())
	rec.refresh()
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) updateContent(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Title       string  `json:"title"`
		Description *string `json:"description"`
		Category    string  `json:"category"`
		IsPublished *bool   `json:"is_published"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Title == "" || in.Category == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.lookup(r.PathValue("id"))
	if rec == nil {
		writeDetail(w, http.StatusNotFound, "Content not found")
		return
	}
	rec.Title, rec.Description, rec.Category = in.Title, in.Description, in.Category
	if in.IsPublished != nil {
		rec.IsPublished = *in.IsPublished
	}
	rec.refresh()
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) deleteContent(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.lookup(r.PathValue("id"))
	if rec == nil {
		writeDetail(w, http.StatusNotFound, "Content not found")
		return
	}
	delete(s.content, rec.ID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Content deleted successfully"})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var photos, videos, likes, ratings, sum int
	for _, rec := range s.content {
		if rec.FileType == string(model.KindVideo) {
			videos++
		} else {
			photos++
		}
		likes += len(rec.likes)
		for _, v := range rec.ratings {
			ratings++
			sum += v
		}
	}
	avg := 0.0
	if ratings > 0 {
		avg = float64(sum) / float64(ratings)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_content":  len(s.content),
		"total_photos":   photos,
		"total_videos":   videos,
		"total_likes":    likes,
		"total_ratings":  ratings,
		"average_rating": avg,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
