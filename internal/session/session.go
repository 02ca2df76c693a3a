// Package session holds the per-user context of the gallery and manages its
// lifecycle: start-up resolution of persisted tokens, login, logout, saved
// items and collections.
//
// A Session is an explicit value passed to the engine and the manager; there
// is no package level session state.
package session

import (
	"sync"

	"github.com/P3dro7wz/Luxy/internal/model"
)

// Session is the state of one user of the gallery. All methods are safe for
// concurrent use. The session holds content ids only, never content records.
type Session struct {
	mu          sync.RWMutex
	user        *model.User
	userToken   string
	adminToken  string
	saved       []string
	collections []model.Collection
	liked       map[string]bool
	rated       map[string]bool
}

// New returns an anonymous, empty session.
func New() *Session {
	return &Session{
		liked: make(map[string]bool),
		rated: make(map[string]bool),
	}
}

// User returns a copy of the authenticated user, or nil.
func (s *Session) User() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Authenticated reports whether a user token is held.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userToken != ""
}

// IsAdmin reports whether an admin token is held.
func (s *Session) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.adminToken != ""
}

// Saved returns the saved content ids in the order they were saved.
func (s *Session) Saved() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.saved...)
}

// IsSaved reports whether id is in the saved set.
func (s *Session) IsSaved(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return indexOf(s.saved, id) >= 0
}

// Collections returns a copy of the collection list.
func (s *Session) Collections() []model.Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Collection, len(s.collections))
	for i, c := range s.collections {
		out[i] = copyCollection(c)
	}
	return out
}

// Collection returns the collection with the given id.
func (s *Session) Collection(id string) (model.Collection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.collections {
		if c.ID == id {
			return copyCollection(c), true
		}
	}
	return model.Collection{}, false
}

// MarkLiked records a like of id in this session. It returns false when id
// was already liked.
func (s *Session) MarkLiked(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.liked[id] {
		return false
	}
	s.liked[id] = true
	return true
}

// UnmarkLiked forgets a like, after it was compensated.
func (s *Session) UnmarkLiked(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.liked, id)
}

// HasLiked reports whether id was liked in this session.
func (s *Session) HasLiked(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.liked[id]
}

// MarkRated records a rating of id in this session. It returns false when
// id was already rated.
func (s *Session) MarkRated(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rated[id] {
		return false
	}
	s.rated[id] = true
	return true
}

// UnmarkRated forgets a rating, after it was compensated.
func (s *Session) UnmarkRated(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rated, id)
}

// HasRated reports whether id was rated in this session.
func (s *Session) HasRated(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rated[id]
}

func (s *Session) setUser(u *model.User, tok string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u != nil {
		cp := *u
		s.user = &cp
	}
	s.userToken = tok
}

func (s *Session) setAdminToken(tok string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adminToken = tok
}

func (s *Session) setSaved(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = dedup(ids)
}

// addSaved adds id and returns the resulting set and whether it changed.
func (s *Session) addSaved(id string) ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if indexOf(s.saved, id) >= 0 {
		return append([]string(nil), s.saved...), false
	}
	s.saved = append(s.saved, id)
	return append([]string(nil), s.saved...), true
}

// removeSaved removes id and returns the resulting set and whether it changed.
func (s *Session) removeSaved(id string) ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.saved, id)
	if i < 0 {
		return append([]string(nil), s.saved...), false
	}
	s.saved = append(s.saved[:i:i], s.saved[i+1:]...)
	return append([]string(nil), s.saved...), true
}

func (s *Session) setCollections(colls []model.Collection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections = make([]model.Collection, len(colls))
	for i, c := range colls {
		s.collections[i] = copyCollection(c)
	}
}

func (s *Session) appendCollection(c model.Collection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections = append(s.collections, copyCollection(c))
}

// addToCollection appends contentID to the collection. It reports false
// when the collection does not exist.
func (s *Session) addToCollection(collectionID, contentID string) (model.Collection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.collections {
		c := &s.collections[i]
		if c.ID != collectionID {
			continue
		}
		if !c.Contains(contentID) {
			c.Items = append(c.Items, contentID)
		}
		return copyCollection(*c), true
	}
	return model.Collection{}, false
}

// reset drops identity, tokens, saved ids, collections and the liked and
// rated sets.
func (s *Session) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.userToken = ""
	s.adminToken = ""
	s.saved = nil
	s.collections = nil
	s.liked = make(map[string]bool)
	s.rated = make(map[string]bool)
}

func copyCollection(c model.Collection) model.Collection {
	c.Items = append(make([]string, 0, len(c.Items)), c.Items...)
	return c
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func dedup(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && indexOf(out, id) < 0 {
			out = append(out, id)
		}
	}
	return out
}
