// Package backend is the HTTP client for the AMS REST API. It owns the wire
// format only; deciding what a failure means for a browser session is left to
// the session package.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Backend route constants
const (
	RouteLogin                = "/users/login"
	RouteMe                   = "/users/me"
	RouteRefresh              = "/users/refresh"
	RouteUpdate               = "/users/update"
	RouteUpdatePassword       = "/users/update/password"
	RouteUploadProfilePicture = "/users/upload/profile-picture"

	// UploadFieldName is the multipart field the backend reads the picture from.
	UploadFieldName = "upload_file"
)

type Client struct {
	baseURL string
	http    *http.Client
}

type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client (tests use the httptest client).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout bounds every request, including reading the response body.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

func New(baseURL string, options ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// BaseURL returns the backend root, used to build links to uploaded pictures.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	var tokens TokenResponse
	err := c.doJSON(ctx, c.http, "login", http.MethodPost, RouteLogin, LoginRequest{Email: email, Password: password}, &tokens)
	if err != nil {
		return nil, err
	}
	return &tokens, nil
}

// Refresh exchanges a refresh token for a new access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	var tokens TokenResponse
	err := c.doJSON(ctx, c.http, "refresh", http.MethodPost, RouteRefresh, RefreshRequest{RefreshToken: refreshToken}, &tokens)
	if err != nil {
		return nil, err
	}
	return &tokens, nil
}

// Authorized returns a client whose requests carry the bearer token handed out
// by ts. The token source is consulted on every request.
func (c *Client) Authorized(ts oauth2.TokenSource) *AuthorizedClient {
	base := c.http.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	return &AuthorizedClient{
		client: c,
		http: &http.Client{
			Transport: &oauth2.Transport{Source: ts, Base: base},
			Timeout:   c.http.Timeout,
		},
	}
}

// AuthorizedClient calls the bearer-protected user endpoints.
type AuthorizedClient struct {
	client *Client
	http   *http.Client
}

// Me returns the profile of the token's owner.
func (a *AuthorizedClient) Me(ctx context.Context) (*User, error) {
	var user User
	if err := a.client.doJSON(ctx, a.http, "me", http.MethodGet, RouteMe, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile replaces the caller's contact details.
func (a *AuthorizedClient) UpdateProfile(ctx context.Context, update ProfileUpdate) (*MutationResponse, error) {
	var resp MutationResponse
	if err := a.client.doJSON(ctx, a.http, "update profile", http.MethodPost, RouteUpdate, update, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdatePassword changes the caller's password. The backend verifies OldPassword.
func (a *AuthorizedClient) UpdatePassword(ctx context.Context, update PasswordUpdate) (*MutationResponse, error) {
	var resp MutationResponse
	if err := a.client.doJSON(ctx, a.http, "update password", http.MethodPost, RouteUpdatePassword, update, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UploadProfilePicture streams content to the backend as a multipart form.
func (a *AuthorizedClient) UploadProfilePicture(ctx context.Context, filename string, content io.Reader) error {
	pr, pw := io.Pipe()
	defer pr.Close()

	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writePicturePart(mw, filename, content))
	}()

	return a.client.do(ctx, a.http, "upload profile picture", http.MethodPost, RouteUploadProfilePicture, pr, mw.FormDataContentType(), nil)
}

func writePicturePart(mw *multipart.Writer, filename string, content io.Reader) error {
	ctype := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	if ctype == "" {
		ctype = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, UploadFieldName, filepath.Base(filename)))
	h.Set("Content-Type", ctype)

	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create multipart part: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return fmt.Errorf("copy picture: %w", err)
	}
	return mw.Close()
}

func (c *Client) doJSON(ctx context.Context, hc *http.Client, op, method, path string, in, out any) error {
	var (
		body        io.Reader
		contentType string
	)
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("[backend %s] encode request: %w", op, err)
		}
		body = bytes.NewReader(buf)
		contentType = "application/json"
	}
	return c.do(ctx, hc, op, method, path, body, contentType, out)
}

func (c *Client) do(ctx context.Context, hc *http.Client, op, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("[backend %s] build request: %w", op, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("[backend %s] %w: %w", op, ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newStatusError(op, resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("[backend %s] %w: %w", op, ErrMalformedResponse, err)
	}
	return nil
}
