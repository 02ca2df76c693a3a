package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	errordefs "github.com/P3dro7wz/Luxy/internal/errors"
	"github.com/P3dro7wz/Luxy/internal/gateway"
	"github.com/P3dro7wz/Luxy/internal/model"
	"github.com/P3dro7wz/Luxy/internal/projection"
	"github.com/P3dro7wz/Luxy/internal/storage"
	"github.com/P3dro7wz/Luxy/internal/token"
	"github.com/P3dro7wz/Luxy/internal/validation"
)

// LocalIDPrefix marks collections that exist on this device only.
const LocalIDPrefix = "local-"

// Manager owns the lifecycle of a Session: it resolves persisted tokens on
// start-up, performs login and logout, and keeps the saved set persisted.
type Manager struct {
	gw    gateway.Gateway
	state storage.Store
	sess  *Session
	log   *slog.Logger
	now   func() time.Time

	persistMu sync.Mutex // Serializes saved-set writes so the last change wins
}

// NewManager creates a Manager for sess. A nil logger uses slog.Default().
func NewManager(gw gateway.Gateway, state storage.Store, sess *Session, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{gw: gw, state: state, sess: sess, log: logger, now: time.Now}
}

// Session returns the managed session.
func (m *Manager) Session() *Session {
	return m.sess
}

// Init restores the session from persisted state. A locally expired user
// token is dropped on its own; a token the gateway rejects tears the
// session down. When the gateway is unreachable the token is kept, the
// offline saved list is loaded and the network error is returned so the
// caller can report degraded mode.
func (m *Manager) Init(ctx context.Context) error {
	saved, err := storage.GetIDs(ctx, m.state, storage.KeySavedItems)
	if err != nil {
		return errordefs.Newf(errordefs.LUXY_INTERNAL, "read saved items: %v", err)
	}
	m.sess.setSaved(saved)

	adminTok, err := storage.GetString(ctx, m.state, storage.KeyAdminToken)
	if err != nil {
		return errordefs.Newf(errordefs.LUXY_INTERNAL, "read admin token: %v", err)
	}
	if adminTok != "" {
		if m.usable(adminTok) {
			m.sess.setAdminToken(adminTok)
		} else {
			m.log.Info("discarding expired admin token")
			_ = m.state.Delete(ctx, storage.KeyAdminToken)
		}
	}

	userTok, err := storage.GetString(ctx, m.state, storage.KeyUserToken)
	if err != nil {
		return errordefs.Newf(errordefs.LUXY_INTERNAL, "read user token: %v", err)
	}
	if userTok == "" {
		return nil
	}
	if !m.usable(userTok) {
		m.log.Info("user token expired, signing out")
		return m.expireUser(ctx)
	}

	m.sess.setUser(nil, userTok)
	user, err := m.gw.CurrentUser(ctx)
	switch {
	case err == nil:
		m.sess.setUser(&user, userTok)
		m.refreshCollections(ctx)
		return nil
	case errordefs.Is(err, errordefs.LUXY_AUTH):
		m.log.Info("user token rejected, tearing session down", "error", err)
		return m.Logout(ctx)
	default:
		m.log.Warn("gateway unreachable, continuing offline", "error", err)
		return err
	}
}

// expireUser drops a locally expired user token. The admin token and the
// offline saved list are left alone.
func (m *Manager) expireUser(ctx context.Context) error {
	m.sess.setUser(nil, "")
	if err := m.state.Delete(ctx, storage.KeyUserToken); err != nil {
		return errordefs.Newf(errordefs.LUXY_INTERNAL, "clear user token: %v", err)
	}
	return nil
}

// usable reports whether a persisted token can still be presented. Tokens
// that cannot be inspected are handed to the gateway, which decides.
func (m *Manager) usable(raw string) bool {
	claims, err := token.Inspect(raw)
	if err != nil {
		return true
	}
	return !claims.Expired(m.now())
}

// Login authenticates a client account.
func (m *Manager) Login(ctx context.Context, creds model.Credentials) (model.User, error) {
	if verr := validation.ValidateStruct(creds); verr != nil {
		return model.User{}, verr
	}
	res, err := m.gw.Login(ctx, creds)
	if err != nil {
		return model.User{}, err
	}
	return m.establish(ctx, res)
}

// Register creates a client account and signs it in.
func (m *Manager) Register(ctx context.Context, profile model.Profile) (model.User, error) {
	if verr := validation.ValidateStruct(profile); verr != nil {
		return model.User{}, verr
	}
	res, err := m.gw.Register(ctx, profile)
	if err != nil {
		return model.User{}, err
	}
	return m.establish(ctx, res)
}

// establish persists the token of a successful login and populates the
// session.
func (m *Manager) establish(ctx context.Context, res model.AuthResult) (model.User, error) {
	if err := storage.PutString(ctx, m.state, storage.KeyUserToken, res.Token); err != nil {
		return model.User{}, errordefs.Newf(errordefs.LUXY_INTERNAL, "persist token: %v", err)
	}
	m.sess.setUser(nil, res.Token)

	var user model.User
	if res.User != nil {
		user = *res.User
	} else {
		u, err := m.gw.CurrentUser(ctx)
		if err != nil {
			return model.User{}, err
		}
		user = u
	}
	m.sess.setUser(&user, res.Token)
	m.refreshCollections(ctx)
	m.log.Info("user signed in", "user_id", user.ID)
	return user, nil
}

// refreshCollections replaces the local collection list with the remote one.
// Failures are logged; the local list is kept.
func (m *Manager) refreshCollections(ctx context.Context) {
	colls, err := m.gw.ListCollections(ctx)
	if err != nil {
		m.log.Warn("failed to fetch collections", "error", err)
		return
	}
	m.sess.setCollections(colls)
}

// AdminLogin authenticates the admin panel.
func (m *Manager) AdminLogin(ctx context.Context, creds model.AdminCredentials) error {
	if verr := validation.ValidateStruct(creds); verr != nil {
		return verr
	}
	res, err := m.gw.AdminLogin(ctx, creds)
	if err != nil {
		return err
	}
	if err := storage.PutString(ctx, m.state, storage.KeyAdminToken, res.Token); err != nil {
		return errordefs.Newf(errordefs.LUXY_INTERNAL, "persist admin token: %v", err)
	}
	m.sess.setAdminToken(res.Token)
	m.log.Info("admin signed in")
	return nil
}

// AdminLogout drops the admin token only.
func (m *Manager) AdminLogout(ctx context.Context) error {
	m.sess.setAdminToken("")
	if err := m.state.Delete(ctx, storage.KeyAdminToken); err != nil {
		return errordefs.Newf(errordefs.LUXY_INTERNAL, "clear admin token: %v", err)
	}
	return nil
}

// Logout clears tokens, identity, saved items and collections. Calling it
// on an anonymous session is a no-op.
func (m *Manager) Logout(ctx context.Context) error {
	m.persistMu.Lock()
	defer m.persistMu.Unlock()
	m.sess.reset()
	for _, key := range []string{storage.KeyUserToken, storage.KeyAdminToken, storage.KeySavedItems} {
		if err := m.state.Delete(ctx, key); err != nil {
			return errordefs.Newf(errordefs.LUXY_INTERNAL, "clear %s: %v", key, err)
		}
	}
	return nil
}

// Teardown is the gateway's unauthorized hook: the gateway has already
// cleared the tokens, the session follows.
func (m *Manager) Teardown() {
	if err := m.Logout(context.Background()); err != nil {
		m.log.Warn("session teardown incomplete", "error", err)
		return
	}
	m.log.Info("session torn down after unauthorized response")
}

// SaveItem adds id to the saved set. Saving a saved id is a no-op.
func (m *Manager) SaveItem(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return errordefs.New(errordefs.LUXY_VALIDATION, "content id is required")
	}
	m.persistMu.Lock()
	defer m.persistMu.Unlock()
	ids, changed := m.sess.addSaved(id)
	if !changed {
		return nil
	}
	return m.persistSaved(ctx, ids)
}

// UnsaveItem removes id from the saved set. Unsaving an absent id is a no-op.
func (m *Manager) UnsaveItem(ctx context.Context, id string) error {
	m.persistMu.Lock()
	defer m.persistMu.Unlock()
	ids, changed := m.sess.removeSaved(id)
	if !changed {
		return nil
	}
	return m.persistSaved(ctx, ids)
}

func (m *Manager) persistSaved(ctx context.Context, ids []string) error {
	if err := storage.PutIDs(ctx, m.state, storage.KeySavedItems, ids); err != nil {
		return errordefs.Newf(errordefs.LUXY_INTERNAL, "persist saved items: %v", err)
	}
	return nil
}

// CreateCollection appends a new, empty collection. Authenticated sessions
// create it on the gateway; otherwise it is kept on this device with a
// local id.
func (m *Manager) CreateCollection(ctx context.Context, name, description string) (model.Collection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Collection{}, errordefs.New(errordefs.LUXY_VALIDATION, "collection name is required")
	}
	var coll model.Collection
	if m.sess.Authenticated() {
		c, err := m.gw.CreateCollection(ctx, name, description)
		if err != nil {
			return model.Collection{}, err
		}
		coll = c
	} else {
		coll = model.Collection{
			ID:          LocalIDPrefix + ulid.Make().String(),
			Name:        name,
			Description: description,
			CreatedAt:   m.now().UTC(),
		}
	}
	if coll.Items == nil {
		coll.Items = []string{}
	}
	if coll.CreatedAt.IsZero() {
		coll.CreatedAt = m.now().UTC()
	}
	m.sess.appendCollection(coll)
	return coll, nil
}

// AddToCollection appends contentID to a collection. Adding an item that is
// already present is a no-op.
func (m *Manager) AddToCollection(ctx context.Context, collectionID, contentID string) (model.Collection, error) {
	coll, ok := m.sess.Collection(collectionID)
	if !ok {
		return model.Collection{}, errordefs.Newf(errordefs.LUXY_NOT_FOUND, "collection %s not found", collectionID)
	}
	if coll.Contains(contentID) {
		return coll, nil
	}
	if m.sess.Authenticated() && !strings.HasPrefix(collectionID, LocalIDPrefix) {
		err := m.gw.AddToCollection(ctx, collectionID, contentID)
		if err != nil && !errordefs.Is(err, errordefs.LUXY_CONFLICT) {
			return model.Collection{}, err
		}
	}
	updated, ok := m.sess.addToCollection(collectionID, contentID)
	if !ok {
		// Torn down while the gateway call was in flight
		return model.Collection{}, errordefs.Newf(errordefs.LUXY_NOT_FOUND, "collection %s not found", collectionID)
	}
	return updated, nil
}

// SavedItems resolves the saved set against a store snapshot. Saved ids
// whose content no longer exists are left out.
func (m *Manager) SavedItems(snapshot []model.ContentItem) []model.ContentItem {
	return projection.Resolve(snapshot, m.sess.Saved())
}

// CollectionItems resolves a collection against a store snapshot.
func (m *Manager) CollectionItems(snapshot []model.ContentItem, collectionID string) ([]model.ContentItem, error) {
	coll, ok := m.sess.Collection(collectionID)
	if !ok {
		return nil, errordefs.Newf(errordefs.LUXY_NOT_FOUND, "collection %s not found", collectionID)
	}
	return projection.Resolve(snapshot, coll.Items), nil
}
