// internal/gateway/client.go
// Package gateway provides the typed client of the Remote Content Gateway,
// the HTTP JSON backend that owns content, engagement and accounts.
// Responses are validated against JSON schemas and mapped onto model types;
// failures are reported as *errors.Error values with a stable code.
package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	errordefs "github.com/P3dro7wz/Luxy/internal/errors"
	"github.com/P3dro7wz/Luxy/internal/metrics"
	"github.com/P3dro7wz/Luxy/internal/model"
	"github.com/P3dro7wz/Luxy/internal/schema"
	"github.com/P3dro7wz/Luxy/internal/storage"
	"github.com/P3dro7wz/Luxy/internal/telemetry"
)

// Gateway is the contract of the Remote Content Gateway as used by the
// engine and the session manager.
type Gateway interface {
	ListContent(ctx context.Context, filter model.ContentFilter) ([]model.ContentItem, error)
	GetContent(ctx context.Context, id string) (model.ContentItem, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	Like(ctx context.Context, id string) error
	Rate(ctx context.Context, id string, score int) (model.RatingResult, error)

	CreateContent(ctx context.Context, meta model.UploadMeta, file model.UploadFile) (model.ContentItem, error)
	UpdateContent(ctx context.Context, id string, patch model.ContentPatch) (model.ContentItem, error)
	DeleteContent(ctx context.Context, id string) error
	AdminContent(ctx context.Context) ([]model.ContentItem, error)
	AdminStats(ctx context.Context) (model.AdminStats, error)

	Login(ctx context.Context, creds model.Credentials) (model.AuthResult, error)
	Register(ctx context.Context, profile model.Profile) (model.AuthResult, error)
	AdminLogin(ctx context.Context, creds model.AdminCredentials) (model.AuthResult, error)
	CurrentUser(ctx context.Context) (model.User, error)

	ListCollections(ctx context.Context) ([]model.Collection, error)
	CreateCollection(ctx context.Context, name, description string) (model.Collection, error)
	AddToCollection(ctx context.Context, collectionID, contentID string) error
}

// CorrelationHeader carries the per-request correlation id.
const CorrelationHeader = "X-Correlation-Id"

// Config configures a Client.
type Config struct {
	BaseURL string        // Gateway origin; the API lives under /api
	Timeout time.Duration // Per-request timeout, 10s when zero
	Tokens  storage.Store // Source of the bearer tokens
	Logger  *slog.Logger  // slog.Default() when nil
	Metrics *metrics.Metrics
}

// Client is the HTTP implementation of Gateway.
type Client struct {
	origin  string            // Gateway origin without trailing slash
	api     string            // origin + "/api"
	hc      *http.Client      // HTTP client with connection and request timeouts
	tokens  storage.Store     // Persisted tokens
	schemas *schema.Validator // Response validation
	breaker *gobreaker.CircuitBreaker[reply]
	metrics *metrics.Metrics
	log     *slog.Logger
	tracer  trace.Tracer

	mu             sync.RWMutex
	onUnauthorized func()
}

// reply is a raw gateway response that made it through the breaker.
type reply struct {
	status int
	body   []byte
}

// New creates a gateway client for cfg.BaseURL.
func New(cfg Config) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid gateway url %q", cfg.BaseURL)
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("gateway client needs a token store")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	validator, err := schema.NewValidator()
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.NewMetrics()
	}

	origin := strings.TrimRight(u.String(), "/")
	transport := &http.Transport{
		DialContext: (&net.Dialer{Timeout: 3 * time.Second}).DialContext,
	}
	c := &Client{
		origin:  origin,
		api:     origin + "/api",
		hc:      &http.Client{Transport: transport, Timeout: timeout},
		tokens:  cfg.Tokens,
		schemas: validator,
		metrics: m,
		log:     logger,
		tracer:  telemetry.Tracer("github.com/P3dro7wz/Luxy/internal/gateway"),
	}
	c.breaker = newBreaker("content-gateway", logger, m)
	return c, nil
}

// OnUnauthorized registers fn to run after a 401 has cleared the persisted
// tokens. The session manager uses it to tear the session down.
func (c *Client) OnUnauthorized(fn func()) {
	c.mu.Lock()
	c.onUnauthorized = fn
	c.mu.Unlock()
}

// request describes one gateway call.
type request struct {
	op          string    // Operation name for metrics and spans
	method      string    // HTTP method
	path        string    // Path below /api
	query       url.Values
	body        []byte
	contentType string
	schema      string // Response schema, empty to skip decoding
}

// do executes r and decodes a validated response into out.
func (c *Client) do(ctx context.Context, r request, out interface{}) (err error) {
	start := time.Now()
	correlationID := uuid.New().String()
	ctx, span := c.tracer.Start(ctx, "gateway."+r.op, trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", r.method),
			attribute.String("gateway.path", r.path),
			attribute.String("correlation_id", correlationID),
		))
	defer func() {
		code := "ok"
		if err != nil {
			code = string(errordefs.CodeOf(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		c.metrics.GatewayRequestTotal.WithLabelValues(r.op, code).Inc()
		c.metrics.GatewayRequestDuration.WithLabelValues(r.op).Observe(time.Since(start).Seconds())
	}()

	target := c.api + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.method, target, bytes.NewReader(r.body))
	if err != nil {
		return errordefs.Newf(errordefs.LUXY_INTERNAL, "build %s request: %v", r.op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(CorrelationHeader, correlationID)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	authed, err := c.authorize(ctx, req, r.path)
	if err != nil {
		return err
	}

	rep, err := c.breaker.Execute(func() (reply, error) {
		resp, err := c.hc.Do(req)
		if err != nil {
			return reply{}, errordefs.Newf(errordefs.LUXY_NETWORK, "%s: %v", r.op, err)
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return reply{}, errordefs.Newf(errordefs.LUXY_NETWORK, "%s: read body: %v", r.op, err)
		}
		rep := reply{status: resp.StatusCode, body: body}
		if errordefs.FromHTTPStatus(resp.StatusCode) == errordefs.LUXY_NETWORK {
			return rep, statusError(r.op, rep)
		}
		return rep, nil
	})
	if err != nil {
		if errordefs.CodeOf(err) == errordefs.LUXY_INTERNAL {
			// Open or half-open breaker rejections
			err = errordefs.Newf(errordefs.LUXY_NETWORK, "%s: gateway unavailable: %v", r.op, err)
		}
		return errordefs.As(err).WithCorrelationID(correlationID)
	}
	span.SetAttributes(attribute.Int("http.status_code", rep.status))

	if rep.status >= 400 {
		if rep.status == http.StatusUnauthorized && authed {
			c.unauthorized(ctx)
		}
		return statusError(r.op, rep).WithCorrelationID(correlationID)
	}

	if r.schema == "" || out == nil {
		return nil
	}
	if err := c.schemas.Validate(r.schema, rep.body); err != nil {
		c.metrics.SchemaValidationTotal.WithLabelValues(r.schema, "rejected").Inc()
		c.log.Warn("gateway response rejected", "operation", r.op, "correlation_id", correlationID, "error", err)
		return errordefs.As(err).WithCorrelationID(correlationID)
	}
	c.metrics.SchemaValidationTotal.WithLabelValues(r.schema, "accepted").Inc()
	if err := json.Unmarshal(rep.body, out); err != nil {
		return errordefs.Newf(errordefs.LUXY_INTERNAL, "decode %s response: %v", r.op, err).WithCorrelationID(correlationID)
	}
	return nil
}

// authorize sets the bearer token: the admin token for /admin/ paths when
// one is held, the user token otherwise. It reports whether a token was sent.
func (c *Client) authorize(ctx context.Context, req *http.Request, path string) (bool, error) {
	var tok string
	var err error
	if strings.HasPrefix(path, "/admin/") {
		tok, err = storage.GetString(ctx, c.tokens, storage.KeyAdminToken)
		if err != nil {
			return false, errordefs.Newf(errordefs.LUXY_INTERNAL, "read admin token: %v", err)
		}
	}
	if tok == "" {
		tok, err = storage.GetString(ctx, c.tokens, storage.KeyUserToken)
		if err != nil {
			return false, errordefs.Newf(errordefs.LUXY_INTERNAL, "read user token: %v", err)
		}
	}
	if tok == "" {
		return false, nil
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	return true, nil
}

// unauthorized clears both persisted tokens and fires the hook.
func (c *Client) unauthorized(ctx context.Context) {
	for _, key := range []string{storage.KeyUserToken, storage.KeyAdminToken} {
		if err := c.tokens.Delete(context.WithoutCancel(ctx), key); err != nil {
			c.log.Warn("failed to clear token", "key", key, "error", err)
		}
	}
	c.mu.RLock()
	hook := c.onUnauthorized
	c.mu.RUnlock()
	if hook != nil {
		hook()
	}
}

// statusError maps a non-2xx reply to an error. The reference backend
// reports duplicates as 400 with an "Already ..." detail.
func statusError(op string, rep reply) *errordefs.Error {
	msg := detailMessage(rep.body)
	if msg == "" {
		msg = http.StatusText(rep.status)
	}
	code := errordefs.FromHTTPStatus(rep.status)
	if rep.status == http.StatusBadRequest && strings.Contains(strings.ToLower(msg), "already") {
		code = errordefs.LUXY_CONFLICT
	}
	return errordefs.NewWithDetails(code, fmt.Sprintf("%s: %s", op, msg), map[string]int{"status": rep.status})
}

// ListContent implements Gateway.
func (c *Client) ListContent(ctx context.Context, filter model.ContentFilter) ([]model.ContentItem, error) {
	q := url.Values{}
	if filter.Category != "" && filter.Category != model.CategoryAll {
		q.Set("category", filter.Category)
	}
	if filter.Search != "" {
		q.Set("search", filter.Search)
	}
	if filter.Skip > 0 {
		q.Set("skip", strconv.Itoa(filter.Skip))
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	var ws []wireContent
	if err := c.do(ctx, request{op: "list_content", method: http.MethodGet, path: "/content", query: q, schema: schema.ContentList}, &ws); err != nil {
		return nil, err
	}
	return c.contentsFromWire(ws)
}

// GetContent implements Gateway.
func (c *Client) GetContent(ctx context.Context, id string) (model.ContentItem, error) {
	var w wireContent
	if err := c.do(ctx, request{op: "get_content", method: http.MethodGet, path: "/content/" + url.PathEscape(id), schema: schema.Content}, &w); err != nil {
		return model.ContentItem{}, err
	}
	return c.contentFromWire(w)
}

// ListCategories implements Gateway.
func (c *Client) ListCategories(ctx context.Context) ([]model.Category, error) {
	var ws []wireCategory
	if err := c.do(ctx, request{op: "list_categories", method: http.MethodGet, path: "/categories", schema: schema.CategoryList}, &ws); err != nil {
		return nil, err
	}
	cats := make([]model.Category, 0, len(ws))
	for _, w := range ws {
		cats = append(cats, model.Category{ID: w.ID, Label: categoryLabel(w), Count: w.Count})
	}
	return cats, nil
}

// Like implements Gateway.
func (c *Client) Like(ctx context.Context, id string) error {
	var ack map[string]interface{}
	return c.do(ctx, request{op: "like", method: http.MethodPost, path: "/content/" + url.PathEscape(id) + "/like", schema: schema.LikeAck}, &ack)
}

// Rate implements Gateway. The reference backend only acknowledges; a
// gateway that reports the new aggregate fills the result.
func (c *Client) Rate(ctx context.Context, id string, score int) (model.RatingResult, error) {
	body, err := json.Marshal(wireRate{ContentID: flexIDOut(id), Score: score})
	if err != nil {
		return model.RatingResult{}, errordefs.Newf(errordefs.LUXY_INTERNAL, "encode rating: %v", err)
	}
	var ack wireRateAck
	if err := c.do(ctx, request{op: "rate", method: http.MethodPost, path: "/content/" + url.PathEscape(id) + "/rate",
		body: body, contentType: "application/json", schema: schema.RateAck}, &ack); err != nil {
		return model.RatingResult{}, err
	}
	if ack.AverageRating == nil || ack.RatingsCount == nil {
		return model.RatingResult{}, nil
	}
	return model.RatingResult{AverageRating: *ack.AverageRating, Count: *ack.RatingsCount}, nil
}

// CreateContent implements Gateway with a multipart upload of one file.
func (c *Client) CreateContent(ctx context.Context, meta model.UploadMeta, file model.UploadFile) (model.ContentItem, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := [][2]string{{"title", meta.Title}, {"description", meta.Description}, {"category", meta.Category}}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return model.ContentItem{}, errordefs.Newf(errordefs.LUXY_INTERNAL, "encode upload: %v", err)
		}
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Name))
	h.Set("Content-Type", file.MimeType)
	part, err := mw.CreatePart(h)
	if err == nil {
		_, err = part.Write(file.Data)
	}
	if err == nil {
		err = mw.Close()
	}
	if err != nil {
		return model.ContentItem{}, errordefs.Newf(errordefs.LUXY_INTERNAL, "encode upload: %v", err)
	}

	var w wireContent
	if err := c.do(ctx, request{op: "create_content", method: http.MethodPost, path: "/admin/content",
		body: buf.Bytes(), contentType: mw.FormDataContentType(), schema: schema.Content}, &w); err != nil {
		return model.ContentItem{}, err
	}
	return c.contentFromWire(w)
}

// UpdateContent implements Gateway. The backend replaces title, description
// and category together, so patch must carry all three.
func (c *Client) UpdateContent(ctx context.Context, id string, patch model.ContentPatch) (model.ContentItem, error) {
	if patch.Title == nil || patch.Category == nil {
		return model.ContentItem{}, errordefs.New(errordefs.LUXY_VALIDATION, "update needs title and category")
	}
	body, err := json.Marshal(wireContentUpdate{Title: *patch.Title, Description: patch.Description, Category: *patch.Category})
	if err != nil {
		return model.ContentItem{}, errordefs.Newf(errordefs.LUXY_INTERNAL, "encode update: %v", err)
	}
	var w wireContent
	if err := c.do(ctx, request{op: "update_content", method: http.MethodPut, path: "/admin/content/" + url.PathEscape(id),
		body: body, contentType: "application/json", schema: schema.Content}, &w); err != nil {
		return model.ContentItem{}, err
	}
	return c.contentFromWire(w)
}

// DeleteContent implements Gateway.
func (c *Client) DeleteContent(ctx context.Context, id string) error {
	return c.do(ctx, request{op: "delete_content", method: http.MethodDelete, path: "/admin/content/" + url.PathEscape(id)}, nil)
}

// AdminContent implements Gateway. Unlike ListContent it includes
// unpublished items.
func (c *Client) AdminContent(ctx context.Context) ([]model.ContentItem, error) {
	var ws []wireContent
	if err := c.do(ctx, request{op: "admin_content", method: http.MethodGet, path: "/admin/content", schema: schema.ContentList}, &ws); err != nil {
		return nil, err
	}
	return c.contentsFromWire(ws)
}

// AdminStats implements Gateway.
func (c *Client) AdminStats(ctx context.Context) (model.AdminStats, error) {
	var w wireStats
	if err := c.do(ctx, request{op: "admin_stats", method: http.MethodGet, path: "/admin/stats", schema: schema.Stats}, &w); err != nil {
		return model.AdminStats{}, err
	}
	return model.AdminStats(w), nil
}

// Login implements Gateway.
func (c *Client) Login(ctx context.Context, creds model.Credentials) (model.AuthResult, error) {
	return c.authenticate(ctx, "login", "/auth/login", creds)
}

// Register implements Gateway.
func (c *Client) Register(ctx context.Context, profile model.Profile) (model.AuthResult, error) {
	return c.authenticate(ctx, "register", "/auth/register", profile)
}

// AdminLogin implements Gateway.
func (c *Client) AdminLogin(ctx context.Context, creds model.AdminCredentials) (model.AuthResult, error) {
	return c.authenticate(ctx, "admin_login", "/auth/admin-login", creds)
}

func (c *Client) authenticate(ctx context.Context, op, path string, in interface{}) (model.AuthResult, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return model.AuthResult{}, errordefs.Newf(errordefs.LUXY_INTERNAL, "encode %s: %v", op, err)
	}
	var w wireToken
	if err := c.do(ctx, request{op: op, method: http.MethodPost, path: path, body: body,
		contentType: "application/json", schema: schema.Token}, &w); err != nil {
		return model.AuthResult{}, err
	}
	res := model.AuthResult{Token: w.AccessToken}
	if w.User != nil {
		u := userFromWire(*w.User)
		res.User = &u
	}
	return res, nil
}

// CurrentUser implements Gateway.
func (c *Client) CurrentUser(ctx context.Context) (model.User, error) {
	var w wireUser
	if err := c.do(ctx, request{op: "current_user", method: http.MethodGet, path: "/auth/me", schema: schema.User}, &w); err != nil {
		return model.User{}, err
	}
	return userFromWire(w), nil
}

// ListCollections implements Gateway.
func (c *Client) ListCollections(ctx context.Context) ([]model.Collection, error) {
	var ws []wireCollection
	if err := c.do(ctx, request{op: "list_collections", method: http.MethodGet, path: "/collections", schema: schema.CollectionList}, &ws); err != nil {
		return nil, err
	}
	colls := make([]model.Collection, 0, len(ws))
	for _, w := range ws {
		colls = append(colls, collectionFromWire(w))
	}
	return colls, nil
}

// CreateCollection implements Gateway.
func (c *Client) CreateCollection(ctx context.Context, name, description string) (model.Collection, error) {
	in := wireCollectionCreate{Name: name}
	if description != "" {
		in.Description = &description
	}
	body, err := json.Marshal(in)
	if err != nil {
		return model.Collection{}, errordefs.Newf(errordefs.LUXY_INTERNAL, "encode collection: %v", err)
	}
	var w wireCollection
	if err := c.do(ctx, request{op: "create_collection", method: http.MethodPost, path: "/collections",
		body: body, contentType: "application/json", schema: schema.Collection}, &w); err != nil {
		return model.Collection{}, err
	}
	return collectionFromWire(w), nil
}

// AddToCollection implements Gateway.
func (c *Client) AddToCollection(ctx context.Context, collectionID, contentID string) error {
	path := "/collections/" + url.PathEscape(collectionID) + "/items/" + url.PathEscape(contentID)
	return c.do(ctx, request{op: "add_to_collection", method: http.MethodPost, path: path}, nil)
}
