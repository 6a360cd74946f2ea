// Package httpapi implements the session.API contract against the portal
// server's auth endpoints. The server issues the signed credential in an
// x-id response header, never in the body.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/cpope-co/portal-session/guard"
	"github.com/cpope-co/portal-session/session"
)

// TokenHeader is the response header carrying the issued credential.
const TokenHeader = "x-id"

const (
	loginPath   = "/api/auth/login"
	refreshPath = "/api/auth/refresh"
	verifyPath  = "/api/auth/verify"
	logoutPath  = "/api/auth/logout"
)

var _ session.API = (*Client)(nil)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient sets the underlying http.Client, typically one whose
// transport is the guard so auth traffic shares the portal's interceptor.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func New(baseURL string, options ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login posts the identifier/secret pair. Not yet authenticated, so the
// request skips bearer injection.
func (c *Client) Login(ctx context.Context, identifier, secret string) (string, error) {
	body, err := json.Marshal(loginRequest{Username: identifier, Password: secret})
	if err != nil {
		return "", errors.Wrap(err, "[Client.Login] marshal")
	}

	req, err := http.NewRequestWithContext(guard.WithSkipAuth(ctx), http.MethodPost, c.baseURL+loginPath, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "[Client.Login] build request")
	}
	req.Header.Set("Content-Type", "application/json")

	return c.tokenFromResponse(req, "Login")
}

// Refresh presents the current credential and expects a replacement. Marked
// skip-refresh so a 401 here can never recurse through the guard.
func (c *Client) Refresh(ctx context.Context, credential string) (string, error) {
	req, err := http.NewRequestWithContext(guard.WithSkipRefresh(ctx), http.MethodPost, c.baseURL+refreshPath, nil)
	if err != nil {
		return "", errors.Wrap(err, "[Client.Refresh] build request")
	}
	req.Header.Set("Authorization", "Bearer "+credential)

	return c.tokenFromResponse(req, "Refresh")
}

// Verify exchanges an email-link one-time token, passed as a query
// parameter. Unauthenticated, like Login.
func (c *Client) Verify(ctx context.Context, oneTimeToken string) (string, error) {
	endpoint := c.baseURL + verifyPath + "?token=" + url.QueryEscape(oneTimeToken)
	req, err := http.NewRequestWithContext(guard.WithSkipAuth(ctx), http.MethodGet, endpoint, nil)
	if err != nil {
		return "", errors.Wrap(err, "[Client.Verify] build request")
	}

	return c.tokenFromResponse(req, "Verify")
}

// Logout invalidates the credential server-side. The response body is
// irrelevant; local teardown proceeds regardless of this call's outcome.
func (c *Client) Logout(ctx context.Context, credential string) error {
	req, err := http.NewRequestWithContext(guard.WithSkipRefresh(ctx), http.MethodPost, c.baseURL+logoutPath, nil)
	if err != nil {
		return errors.Wrap(err, "[Client.Logout] build request")
	}
	req.Header.Set("Authorization", "Bearer "+credential)

	resp, err := c.do(req)
	if err != nil {
		return errors.Wrap(err, "[Client.Logout] do")
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Errorf("[Client.Logout] unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) tokenFromResponse(req *http.Request, op string) (string, error) {
	resp, err := c.do(req)
	if err != nil {
		return "", errors.Wrapf(err, "[Client.%s] do", op)
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", errors.Errorf("[Client.%s] unexpected status %d", op, resp.StatusCode)
	}

	// A 2xx without the token header is not a success.
	token := resp.Header.Get(TokenHeader)
	if token == "" {
		return "", errors.Wrapf(session.NoTokenErr, "[Client.%s]", op)
	}
	return token, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("X-Request-Id", uuid.New().String())
	return c.httpClient.Do(req)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
