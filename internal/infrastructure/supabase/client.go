package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/fridday/backend/internal/config"
	"github.com/fridday/backend/internal/domain"
	"github.com/fridday/backend/internal/infrastructure/logger"
	"github.com/valyala/fasthttp"
)

// Client talks to a Supabase project over its REST surfaces: PostgREST
// under /rest/v1 and GoTrue under /auth/v1. Every data call carries the
// project anon key plus the caller's JWT, so row-level security applies
// per request.
type Client struct {
	baseURL string
	anonKey string
	timeout time.Duration
	http    *fasthttp.Client
	log     *logger.Logger
}

func NewClient(cfg config.SupabaseConfig, log *logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		anonKey: cfg.AnonKey,
		timeout: cfg.RequestTimeout,
		http:    &fasthttp.Client{},
		log:     log,
	}
}

func (c *Client) do(ctx context.Context, method, path string, headers map[string]string, body []byte, token string) (int, []byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.Set("apikey", c.anonKey)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if body != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return 0, nil, fmt.Errorf("supabase request failed: %w", err)
	}

	// resp.Body() is pooled, copy before release
	out := append([]byte(nil), resp.Body()...)
	return resp.StatusCode(), out, nil
}

func (c *Client) restError(op string, status int, body []byte) error {
	detail := string(body)
	if len(detail) > 512 {
		detail = detail[:512]
	}
	return fmt.Errorf("%s: status %d: %s", op, status, detail)
}

// Insert posts a row to a PostgREST table and returns the
// representation echoed back by the database.
func (c *Client) Insert(ctx context.Context, table string, record interface{}, token string) ([]byte, error) {
	body, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("marshal %s insert: %w", table, err)
	}
	headers := map[string]string{"Prefer": "return=representation"}
	status, out, err := c.do(ctx, fasthttp.MethodPost, "/rest/v1/"+table, headers, body, token)
	if err != nil {
		return nil, err
	}
	if status != fasthttp.StatusOK && status != fasthttp.StatusCreated {
		return nil, c.restError("insert "+table, status, out)
	}
	return out, nil
}

// Update patches rows matched by the eq filters.
func (c *Client) Update(ctx context.Context, table string, patch interface{}, filters map[string]string, token string) error {
	body, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("marshal %s update: %w", table, err)
	}
	q := url.Values{}
	for col, val := range filters {
		q.Set(col, "eq."+val)
	}
	status, out, err := c.do(ctx, fasthttp.MethodPatch, "/rest/v1/"+table+"?"+q.Encode(), nil, body, token)
	if err != nil {
		return err
	}
	if status != fasthttp.StatusOK && status != fasthttp.StatusNoContent {
		return c.restError("update "+table, status, out)
	}
	return nil
}

// Select runs a GET against a table with a raw PostgREST query string.
func (c *Client) Select(ctx context.Context, table, rawQuery, token string) ([]byte, error) {
	path := "/rest/v1/" + table
	if rawQuery != "" {
		path += "?" + rawQuery
	}
	status, out, err := c.do(ctx, fasthttp.MethodGet, path, nil, nil, token)
	if err != nil {
		return nil, err
	}
	if status != fasthttp.StatusOK {
		return nil, c.restError("select "+table, status, out)
	}
	return out, nil
}

// RPC invokes a database function under /rest/v1/rpc.
func (c *Client) RPC(ctx context.Context, fn string, args interface{}, token string) ([]byte, error) {
	body, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("marshal rpc %s args: %w", fn, err)
	}
	status, out, err := c.do(ctx, fasthttp.MethodPost, "/rest/v1/rpc/"+fn, nil, body, token)
	if err != nil {
		return nil, err
	}
	if status != fasthttp.StatusOK {
		return nil, c.restError("rpc "+fn, status, out)
	}
	return out, nil
}

// ==================== GoTrue (auth) ====================

// GetUser resolves the user behind an access token.
func (c *Client) GetUser(ctx context.Context, token string) (*domain.AuthUser, error) {
	status, out, err := c.do(ctx, fasthttp.MethodGet, "/auth/v1/user", nil, nil, token)
	if err != nil {
		return nil, err
	}
	if status != fasthttp.StatusOK {
		c.log.Warnw("supabase_get_user_rejected", "status", status)
		return nil, domain.ErrUnauthorized
	}
	var user domain.AuthUser
	if err := json.Unmarshal(out, &user); err != nil {
		return nil, fmt.Errorf("decode auth user: %w", err)
	}
	if user.ID == "" {
		return nil, domain.ErrUnauthorized
	}
	return &user, nil
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*domain.AuthSession, error) {
	return c.tokenGrant(ctx, "password", map[string]string{
		"email":    email,
		"password": password,
	})
}

func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*domain.AuthSession, error) {
	return c.tokenGrant(ctx, "refresh_token", map[string]string{
		"refresh_token": refreshToken,
	})
}

func (c *Client) tokenGrant(ctx context.Context, grantType string, creds map[string]string) (*domain.AuthSession, error) {
	body, err := json.Marshal(creds)
	if err != nil {
		return nil, err
	}
	status, out, err := c.do(ctx, fasthttp.MethodPost, "/auth/v1/token?grant_type="+grantType, nil, body, "")
	if err != nil {
		return nil, err
	}
	if status != fasthttp.StatusOK {
		c.log.Warnw("supabase_token_grant_rejected", "grant_type", grantType, "status", status)
		return nil, domain.ErrUnauthorized
	}
	var session domain.AuthSession
	if err := json.Unmarshal(out, &session); err != nil {
		return nil, fmt.Errorf("decode auth session: %w", err)
	}
	if session.TokenType == "" {
		session.TokenType = "bearer"
	}
	return &session, nil
}
