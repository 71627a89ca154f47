package session

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Gateway holds the credential operations exposed by the portal backend.
// Implementations perform network I/O only; they never mutate session state.
type Gateway interface {
	Login(ctx context.Context, creds Credentials) (*LoginResult, error)
	Register(ctx context.Context, payload Registration) (*RegisteredUser, error)
	QRCode(ctx context.Context, userID int64) (string, error)
	Profile(ctx context.Context, userID int64, token string) (*Profile, error)
}

// Storage is a fallible key-value store. Durable instances survive restarts;
// volatile instances are scoped to the current tab/session. Errors degrade
// to "session not persisted" and are never fatal to the auth flow.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Config holds session options
type Config interface {
	GetBaseURL() string
	GetTokenKey() string
	GetUserKey() string
	GetPendingLoginKey() string
	GetRejectedRouteKey() string
	GetRejectedRouteDefault() string
}

// StorageKeys names the persisted slots for the three session fields.
type StorageKeys struct {
	Token        string
	User         string
	PendingLogin string
}

// DefaultStorageKeys match the keys the portal frontend has always used, so
// sessions persisted by older builds rehydrate cleanly.
func DefaultStorageKeys() StorageKeys {
	return StorageKeys{
		Token:        "token",
		User:         "user",
		PendingLogin: "pendingLogin",
	}
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] SESSION "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] SESSION "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] SESSION "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] SESSION "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
