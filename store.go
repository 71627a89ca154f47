package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// Store is the session state machine over {user, token, pendingLogin}. One
// instance is constructed per app; guards and screens read it, only the
// Store itself writes. Every transition is observable as a single atomic
// Snapshot.
type Store struct {
	gateway  Gateway
	durable  Storage
	volatile Storage
	logger   Logger
	sink     ActivitySink
	now      func() time.Time
	keys     StorageKeys

	mu          sync.Mutex
	user        *User
	token       string
	pending     *PendingLogin
	nextSubID   int
	subscribers map[int]func(Snapshot)

	hydrations sync.WaitGroup
}

type StoreOption func(*Store)

// WithDurableStorage sets the reload-surviving store for token and user.
func WithDurableStorage(storage Storage) StoreOption {
	return func(s *Store) {
		if storage != nil {
			s.durable = storage
		}
	}
}

// WithVolatileStorage sets the tab-scoped store for the pending login.
func WithVolatileStorage(storage Storage) StoreOption {
	return func(s *Store) {
		if storage != nil {
			s.volatile = storage
		}
	}
}

func WithLogger(logger Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithActivitySink configures an ActivitySink for emitting session events.
func WithActivitySink(sink ActivitySink) StoreOption {
	return func(s *Store) {
		s.sink = normalizeActivitySink(sink)
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) StoreOption {
	return func(s *Store) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithStorageKeys overrides the persisted key names.
func WithStorageKeys(keys StorageKeys) StoreOption {
	return func(s *Store) {
		def := DefaultStorageKeys()
		if keys.Token == "" {
			keys.Token = def.Token
		}
		if keys.User == "" {
			keys.User = def.User
		}
		if keys.PendingLogin == "" {
			keys.PendingLogin = def.PendingLogin
		}
		s.keys = keys
	}
}

// New returns a Store wired to the given gateway and restores any persisted
// session, so a reload reconstructs the previous state without network
// access.
func New(gateway Gateway, opts ...StoreOption) *Store {
	s := &Store{
		gateway:     gateway,
		durable:     NewMemoryStorage(),
		volatile:    NewMemoryStorage(),
		logger:      defLogger{},
		sink:        noopActivitySink{},
		now:         time.Now,
		keys:        DefaultStorageKeys(),
		subscribers: map[int]func(Snapshot){},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	s.restore(context.Background())

	return s
}

// NewFromConfig builds an HTTP gateway and Store from app configuration.
// Options may still override any piece, including the gateway's storage.
func NewFromConfig(cfg Config, opts ...StoreOption) *Store {
	keyed := WithStorageKeys(StorageKeys{
		Token:        cfg.GetTokenKey(),
		User:         cfg.GetUserKey(),
		PendingLogin: cfg.GetPendingLoginKey(),
	})

	return New(NewHTTPGateway(cfg.GetBaseURL()), append([]StoreOption{keyed}, opts...)...)
}

// Snapshot returns an atomic copy of the current session state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to receive a Snapshot after every transition. The
// returned function unsubscribes.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	if fn == nil {
		return func() {}
	}

	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// Login submits credentials through the gateway and interprets the result.
//
// A result carrying a token is a SUCCESS: the minimal user record and token
// are persisted and set, and profile hydration is triggered asynchronously
// (hydration failure never affects the outcome). A Requires2FA result
// without a token is a CHALLENGE: state is untouched and the caller decides
// whether to StartPendingLogin. Gateway errors propagate unchanged; offline
// fallback to MockLogin is the caller's policy, never this method's.
func (s *Store) Login(ctx context.Context, creds Credentials) (*LoginResult, error) {
	result, err := s.gateway.Login(ctx, creds)
	if err != nil {
		s.emit(ctx, ActivityEventLoginFailure, 0, map[string]any{
			"email": creds.Email,
			"error": err.Error(),
		})
		return nil, err
	}

	if result.Authenticated() {
		s.establish(ctx, result.UserData(), result.Token)
		s.emit(ctx, ActivityEventLoginSuccess, result.ID, map[string]any{
			"email": creds.Email,
		})
		s.hydrateAsync(result.ID, result.Token)
		return result, nil
	}

	if result.Challenge() {
		s.emit(ctx, ActivityEventLoginChallenge, result.ID, map[string]any{
			"email": creds.Email,
		})
	}

	return result, nil
}

// StartPendingLogin records an outstanding 2FA challenge: the original
// credentials plus the user id the backend reported. Persisted to volatile
// storage only, so it cannot outlive the tab.
func (s *Store) StartPendingLogin(ctx context.Context, creds Credentials, userID int64) *PendingLogin {
	pending := &PendingLogin{Credentials: creds, UserID: userID}

	if raw, err := json.Marshal(pending); err != nil {
		s.logger.Warn("pending login not persisted", "error", err)
	} else if err := s.volatile.Set(ctx, s.keys.PendingLogin, string(raw)); err != nil {
		s.logger.Warn("pending login not persisted", "error", err)
	}

	s.mu.Lock()
	s.pending = pending
	snapshot := s.snapshotLocked()
	subs := s.subscribersLocked()
	s.mu.Unlock()

	s.notify(subs, snapshot)

	return clonePending(pending)
}

// ClearPendingLogin abandons the outstanding challenge, if any.
func (s *Store) ClearPendingLogin(ctx context.Context) {
	if err := s.volatile.Delete(ctx, s.keys.PendingLogin); err != nil {
		s.logger.Warn("pending login not cleared from storage", "error", err)
	}

	s.mu.Lock()
	s.pending = nil
	snapshot := s.snapshotLocked()
	subs := s.subscribersLocked()
	s.mu.Unlock()

	s.notify(subs, snapshot)
}

// Complete2FA re-submits the pending credentials with the one-time code. It
// fails fast with ErrNoPendingLogin, before any network call, when no
// challenge is outstanding. A result without a token (wrong code) is
// returned unchanged so the caller can retry; a token result establishes the
// session and clears the pending login in one transition, additionally
// forcing Requires2FA off. Never is a snapshot observable in which the
// session user and the pending challenge coexist.
func (s *Store) Complete2FA(ctx context.Context, code string) (*LoginResult, error) {
	s.mu.Lock()
	pending := clonePending(s.pending)
	s.mu.Unlock()

	if pending == nil {
		return nil, ErrNoPendingLogin
	}

	creds := pending.Credentials
	creds.TwoFACode = code

	result, err := s.gateway.Login(ctx, creds)
	if err != nil {
		s.emit(ctx, ActivityEventTwoFAFailure, pending.UserID, map[string]any{
			"error": err.Error(),
		})
		return nil, err
	}

	if !result.Authenticated() {
		return result, nil
	}

	s.mu.Lock()
	stillPending := s.pending != nil && s.pending.UserID == pending.UserID
	s.mu.Unlock()

	if !stillPending {
		// challenge was abandoned while the request was in flight
		s.logger.Info("dropping stale 2FA completion", "user_id", pending.UserID)
		return result, nil
	}

	user := result.UserData()
	user.Requires2FA = false

	s.persistSession(ctx, user, result.Token)
	if err := s.volatile.Delete(ctx, s.keys.PendingLogin); err != nil {
		s.logger.Warn("pending login not cleared from storage", "error", err)
	}

	s.mu.Lock()
	s.user = user
	s.token = result.Token
	s.pending = nil
	snapshot := s.snapshotLocked()
	subs := s.subscribersLocked()
	s.mu.Unlock()

	s.notify(subs, snapshot)
	s.emit(ctx, ActivityEventTwoFASuccess, result.ID, nil)
	s.hydrateAsync(result.ID, result.Token)

	return result, nil
}

// MockLogin unconditionally sets the session user without a token. It is an
// explicit degraded-mode entry point for when the backend is unreachable;
// Login and Complete2FA never call it. Mock users get a deterministic id
// derived from their email so repeated offline entries map to one identity.
func (s *Store) MockLogin(ctx context.Context, user *User) *User {
	if user == nil {
		return nil
	}

	mock := cloneUser(user)
	if mock.MockID == uuid.Nil && mock.Email != "" {
		if id, err := hashid.NewUUID(mock.Email); err == nil {
			mock.MockID = id
		}
	}

	if err := s.durable.Delete(ctx, s.keys.Token); err != nil {
		s.logger.Warn("stale token not cleared from storage", "error", err)
	}

	s.establish(ctx, mock, "")
	s.emit(ctx, ActivityEventMockLogin, mock.ID, map[string]any{
		"email":   mock.Email,
		"mock_id": mock.MockID.String(),
	})

	return cloneUser(mock)
}

// Logout clears user and token from memory and durable storage. The pending
// login is left alone; callers abandon it separately when relevant.
//
// Memory is cleared before storage is touched: hydration writes the durable
// user record while holding the state lock, so once the deletes below run,
// no in-flight hydration can re-write the record afterwards.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	s.user = nil
	s.token = ""
	snapshot := s.snapshotLocked()
	subs := s.subscribersLocked()
	s.mu.Unlock()

	if err := s.durable.Delete(ctx, s.keys.Token); err != nil {
		s.logger.Warn("token not cleared from storage", "error", err)
	}
	if err := s.durable.Delete(ctx, s.keys.User); err != nil {
		s.logger.Warn("user not cleared from storage", "error", err)
	}

	s.notify(subs, snapshot)
	s.emit(ctx, ActivityEventLogout, 0, nil)
}

// establish persists and sets the authenticated (or mock) session in one
// transition.
func (s *Store) establish(ctx context.Context, user *User, token string) {
	s.persistSession(ctx, user, token)

	s.mu.Lock()
	s.user = user
	s.token = token
	snapshot := s.snapshotLocked()
	subs := s.subscribersLocked()
	s.mu.Unlock()

	s.notify(subs, snapshot)
}

func (s *Store) persistSession(ctx context.Context, user *User, token string) {
	if token != "" {
		if err := s.durable.Set(ctx, s.keys.Token, token); err != nil {
			s.logger.Warn("session not persisted: token", "error", err)
		}
	}

	raw, err := json.Marshal(user)
	if err != nil {
		s.logger.Warn("session not persisted: user", "error", err)
		return
	}
	if err := s.durable.Set(ctx, s.keys.User, string(raw)); err != nil {
		s.logger.Warn("session not persisted: user", "error", err)
	}
}

// restore reconstructs the in-memory session from storage. Tokens that parse
// as JWTs and are already expired are discarded together with their user
// record; opaque tokens are restored as-is. Mock sessions (no token, MockID
// set) survive restarts like any other.
func (s *Store) restore(ctx context.Context) {
	token := PersistedToken(ctx, s.durable, s.keys.Token)
	if token != "" && IsExpiredToken(token, s.now()) {
		s.logger.Info("discarding expired persisted token")
		token = ""
		if err := s.durable.Delete(ctx, s.keys.Token); err != nil {
			s.logger.Warn("expired token not cleared from storage", "error", err)
		}
	}

	var user *User
	if raw, ok, err := s.durable.Get(ctx, s.keys.User); err != nil {
		s.logger.Warn("persisted user not readable", "error", err)
	} else if ok {
		parsed := &User{}
		if err := json.Unmarshal([]byte(raw), parsed); err != nil {
			s.logger.Warn("persisted user not parseable", "error", err)
		} else {
			user = parsed
		}
	}

	if token == "" && user != nil && user.MockID == uuid.Nil {
		// a real session whose token is gone cannot be resumed
		user = nil
		if err := s.durable.Delete(ctx, s.keys.User); err != nil {
			s.logger.Warn("orphaned user not cleared from storage", "error", err)
		}
	}

	var pending *PendingLogin
	if raw, ok, err := s.volatile.Get(ctx, s.keys.PendingLogin); err != nil {
		s.logger.Warn("pending login not readable", "error", err)
	} else if ok {
		parsed := &PendingLogin{}
		if err := json.Unmarshal([]byte(raw), parsed); err != nil {
			s.logger.Warn("pending login not parseable", "error", err)
		} else {
			pending = parsed
		}
	}

	s.mu.Lock()
	s.user = user
	s.token = token
	s.pending = pending
	s.mu.Unlock()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		User:    cloneUser(s.user),
		Token:   s.token,
		Pending: clonePending(s.pending),
	}
}

func (s *Store) subscribersLocked() []func(Snapshot) {
	subs := make([]func(Snapshot), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	return subs
}

func (s *Store) notify(subs []func(Snapshot), snapshot Snapshot) {
	for _, fn := range subs {
		fn(snapshot)
	}
}

func (s *Store) emit(ctx context.Context, eventType ActivityEventType, userID int64, metadata map[string]any) {
	if metadata == nil {
		metadata = map[string]any{}
	}

	event := ActivityEvent{
		ID:         uuid.New(),
		EventType:  eventType,
		Actor:      ActorRef{Type: "user"},
		UserID:     userID,
		Metadata:   metadata,
		OccurredAt: s.now(),
	}

	sink := normalizeActivitySink(s.sink)
	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error: %v", err)
	}
}
