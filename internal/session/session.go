// Package session owns the signed-in identity, its durable persistence,
// and the one-time startup restore.
package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"bookworm/internal/api"
	"bookworm/internal/domain"
)

const (
	tokenKey = "token"
	userKey  = "user"
)

// AuthError carries the user-facing message for a failed register or
// login, with the underlying cause preserved for logs.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Authenticator is the slice of the API client the session needs.
type Authenticator interface {
	Register(ctx context.Context, username, email, password string) (api.Credentials, error)
	Login(ctx context.Context, email, password string) (api.Credentials, error)
}

// Storage is the durable key-value collaborator.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}

// Snapshot is a consistent copy of the session state. User and Token are
// both set or both empty, never one without the other.
type Snapshot struct {
	User           *domain.User
	Token          string
	IsLoading      bool
	IsCheckingAuth bool
}

func (s Snapshot) SignedIn() bool {
	return s.User != nil && s.Token != ""
}

type Store struct {
	auth    Authenticator
	storage Storage
	log     *slog.Logger

	// opMu serializes the identity-changing operations so persisted
	// storage has a single writer at a time.
	opMu        sync.Mutex
	restoreOnce sync.Once

	mu             sync.Mutex
	user           *domain.User
	token          string
	isLoading      bool
	isCheckingAuth bool

	subMu     sync.Mutex
	subs      map[int]func(Snapshot)
	nextSubID int
}

func New(auth Authenticator, storage Storage, log *slog.Logger) *Store {
	return &Store{
		auth:           auth,
		storage:        storage,
		log:            log,
		isCheckingAuth: true,
		subs:           make(map[int]func(Snapshot)),
	}
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		Token:          s.token,
		IsLoading:      s.isLoading,
		IsCheckingAuth: s.isCheckingAuth,
	}
	if s.user != nil {
		user := *s.user
		snap.User = &user
	}

	return snap
}

// Token returns the current bearer token. It satisfies api.TokenSource.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.token
}

// Subscribe registers fn to run after every state change. The returned
// func removes the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify() {
	snap := s.Snapshot()

	s.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

func (s *Store) Register(
	ctx context.Context,
	username string,
	email string,
	password string,
) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.setLoading(true)

	creds, err := s.auth.Register(ctx, username, email, password)
	if err != nil {
		s.setLoading(false)
		s.log.ErrorContext(ctx, "Registration failed",
			"error", err,
			"username", username)

		return &AuthError{Message: api.UserMessage(err), Err: err}
	}

	return s.completeSignIn(ctx, creds)
}

func (s *Store) Login(ctx context.Context, email string, password string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.setLoading(true)

	creds, err := s.auth.Login(ctx, email, password)
	if err != nil {
		s.setLoading(false)
		s.log.ErrorContext(ctx, "Login failed",
			"error", err)

		return &AuthError{Message: api.UserMessage(err), Err: err}
	}

	return s.completeSignIn(ctx, creds)
}

// completeSignIn persists the credentials and only then installs them in
// memory, so a crash between the two leaves storage ahead of memory,
// never the reverse.
func (s *Store) completeSignIn(ctx context.Context, creds api.Credentials) error {
	if err := s.persist(ctx, creds); err != nil {
		s.clearStorage(ctx)
		s.setLoading(false)
		s.log.ErrorContext(ctx, "Failed to persist session",
			"error", err,
			"userID", creds.User.ID)

		return &AuthError{Message: api.FallbackMessage, Err: err}
	}

	user := creds.User
	s.mu.Lock()
	s.user = &user
	s.token = creds.Token
	s.isLoading = false
	s.mu.Unlock()
	s.notify()

	return nil
}

func (s *Store) persist(ctx context.Context, creds api.Credentials) error {
	raw, err := json.Marshal(creds.User)
	if err != nil {
		return err
	}

	if err := s.storage.Set(ctx, tokenKey, creds.Token); err != nil {
		return err
	}

	return s.storage.Set(ctx, userKey, string(raw))
}

// Logout clears persisted and in-memory state. Safe to call when already
// signed out.
func (s *Store) Logout(ctx context.Context) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.clearStorage(ctx)

	s.mu.Lock()
	s.user = nil
	s.token = ""
	s.mu.Unlock()
	s.notify()

	s.log.InfoContext(ctx, "User logged out")
}

func (s *Store) clearStorage(ctx context.Context) {
	if err := s.storage.Delete(ctx, tokenKey); err != nil {
		s.log.ErrorContext(ctx, "Failed to delete persisted token",
			"error", err)
	}
	if err := s.storage.Delete(ctx, userKey); err != nil {
		s.log.ErrorContext(ctx, "Failed to delete persisted user",
			"error", err)
	}
}

// Restore reads the persisted session once per process. Every outcome,
// including errors, ends with the one-time isCheckingAuth transition that
// unblocks initial navigation.
func (s *Store) Restore(ctx context.Context) {
	s.restoreOnce.Do(func() {
		s.restore(ctx)
	})
}

func (s *Store) restore(ctx context.Context) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	defer s.finishChecking(ctx)

	token, ok, err := s.storage.Get(ctx, tokenKey)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to read persisted token",
			"error", err)

		return
	}
	if !ok {
		return
	}

	rawUser, ok, err := s.storage.Get(ctx, userKey)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to read persisted user",
			"error", err)

		return
	}
	if !ok {
		return
	}

	var user domain.User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		// Corrupted local state is worse than absent state: drop both
		// entries so the next start does not repeat this failure.
		s.log.ErrorContext(ctx, "Persisted user is corrupted, clearing session",
			"error", err)
		s.clearStorage(ctx)

		return
	}

	s.mu.Lock()
	s.user = &user
	s.token = token
	s.mu.Unlock()
	s.notify()

	s.log.InfoContext(ctx, "Session restored",
		"userID", user.ID)
}

func (s *Store) finishChecking(ctx context.Context) {
	s.mu.Lock()
	s.isCheckingAuth = false
	s.mu.Unlock()
	s.notify()

	s.log.InfoContext(ctx, "Auth check finished")
}

func (s *Store) setLoading(loading bool) {
	s.mu.Lock()
	s.isLoading = loading
	s.mu.Unlock()
	s.notify()
}
