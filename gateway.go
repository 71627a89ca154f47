package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// HTTPGateway talks to the portal backend's auth endpoints. It normalizes
// the `{success, message, data}` envelope and classifies failures as either
// transport (service unreachable) or rejection (backend said no).
type HTTPGateway struct {
	baseURL string
	client  *http.Client
	logger  Logger
}

var _ Gateway = (*HTTPGateway)(nil)

type GatewayOption func(*HTTPGateway)

// WithHTTPClient overrides the transport. The gateway enforces no timeout of
// its own; it relies on the client's defaults.
func WithHTTPClient(client *http.Client) GatewayOption {
	return func(g *HTTPGateway) {
		if client != nil {
			g.client = client
		}
	}
}

func WithGatewayLogger(logger Logger) GatewayOption {
	return func(g *HTTPGateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func NewHTTPGateway(baseURL string, opts ...GatewayOption) *HTTPGateway {
	g := &HTTPGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  http.DefaultClient,
		logger:  defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	return g
}

// Login submits credentials (optionally carrying a 2FA code) and returns the
// backend's LoginResult payload.
func (g *HTTPGateway) Login(ctx context.Context, creds Credentials) (*LoginResult, error) {
	env, err := g.do(ctx, http.MethodPost, "/auth/login", creds, "", ErrLoginRejected)
	if err != nil {
		return nil, err
	}

	result := &LoginResult{}
	if err := env.DecodeData(result); err != nil {
		return nil, g.unreachable(err)
	}
	return result, nil
}

// Register creates a portal user and returns the created record.
func (g *HTTPGateway) Register(ctx context.Context, payload Registration) (*RegisteredUser, error) {
	env, err := g.do(ctx, http.MethodPost, "/auth/registro", payload, "", ErrRegistrationRejected)
	if err != nil {
		return nil, err
	}

	created := &RegisteredUser{}
	if err := env.DecodeData(created); err != nil {
		return nil, g.unreachable(err)
	}
	return created, nil
}

// QRCode fetches the 2FA secret bootstrap image (base64 or URI) for a user.
// Only meaningful while that user's login is pending a 2FA challenge.
func (g *HTTPGateway) QRCode(ctx context.Context, userID int64) (string, error) {
	env, err := g.do(ctx, http.MethodGet, fmt.Sprintf("/auth/2fa/qrcode/%d", userID), nil, "", ErrQRCodeRejected)
	if err != nil {
		return "", err
	}

	var qr string
	if err := env.DecodeData(&qr); err != nil {
		return "", g.unreachable(err)
	}
	return qr, nil
}

// Profile fetches the full user record, authorized with the bearer token
// obtained at login.
func (g *HTTPGateway) Profile(ctx context.Context, userID int64, token string) (*Profile, error) {
	env, err := g.do(ctx, http.MethodGet, fmt.Sprintf("/usuarios/%d", userID), nil, token, ErrProfileRejected)
	if err != nil {
		return nil, err
	}

	profile := &Profile{}
	if err := env.DecodeData(profile); err != nil {
		return nil, g.unreachable(err)
	}
	return profile, nil
}

func (g *HTTPGateway) do(ctx context.Context, method, path string, body any, token string, fallback *goerrors.Error) (*Envelope, error) {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode request payload")
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build request")
	}

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Warn("gateway request failed", "method", method, "path", path, "error", err)
		return nil, g.unreachable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := ""
		if env, decErr := decodeEnvelope(resp.Body); decErr == nil && env != nil {
			message = env.Message
		}
		g.logger.Info("gateway rejection", "method", method, "path", path, "status", resp.StatusCode)
		return nil, rejected(fallback, message, resp.StatusCode)
	}

	env, err := decodeEnvelope(resp.Body)
	if err != nil {
		return nil, g.unreachable(err)
	}

	if env.Rejected() {
		return nil, rejected(fallback, env.Message, 0)
	}

	return env, nil
}

func (g *HTTPGateway) unreachable(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryOperation, ErrServiceUnreachable.Message).
		WithTextCode(TextCodeServiceUnreachable)
}

// PersistedToken reads the bearer token from durable storage. It returns an
// empty string and never fails: disabled or broken storage means no session.
func PersistedToken(ctx context.Context, store Storage, key string) string {
	if store == nil {
		return ""
	}
	if key == "" {
		key = DefaultStorageKeys().Token
	}
	value, ok, err := store.Get(ctx, key)
	if err != nil || !ok {
		return ""
	}
	return value
}
