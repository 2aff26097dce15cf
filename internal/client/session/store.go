package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dmitrijs2005/authkeeper/internal/client/models"
	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
)

// ErrEmptyToken is returned by Login when called without a token.
var ErrEmptyToken = errors.New("empty session token")

// Storage is the durable key-value backend of a Store.
// Get returns (nil, nil) for an absent key.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, values map[string][]byte) error
	Remove(ctx context.Context, keys ...string) error
}

type Option func(*Store)

func WithLogger(l logging.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithErrorReporter makes persistence failures observable to r.
func WithErrorReporter(r common.ErrorReporter) Option {
	return func(s *Store) { s.report = r }
}

type Store struct {
	// writeMu serializes mutations end to end: persistence, state change and
	// notification. mu guards state and subs only.
	writeMu sync.Mutex
	mu      sync.Mutex
	state   Session
	storage Storage
	subs    map[uint64]func(Session)
	nextSub uint64

	log    logging.Logger
	report common.ErrorReporter
}

// NewStore builds a Store and restores any session persisted in storage.
// storage may be nil.
func NewStore(ctx context.Context, storage Storage, opts ...Option) *Store {
	s := &Store{
		storage: storage,
		subs:    make(map[uint64]func(Session)),
		log:     logging.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}

	s.state = s.restore(ctx)
	return s
}

// storageCtx detaches ctx from cancellation so that a canceled caller
// cannot leave the persisted session out of step with memory.
func storageCtx(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

func (s *Store) restore(ctx context.Context) Session {
	var st Session
	ctx = storageCtx(ctx)

	token := s.storedToken(ctx)
	st.Token = token
	st.IsAuthenticated = token != ""

	if s.storage == nil {
		return st
	}

	raw, err := s.storage.Get(ctx, common.UserStorageKey)
	if err != nil {
		s.fail(ctx, "session.restore", err)
		return st
	}
	if raw == nil {
		return st
	}

	var u models.User
	if err := json.Unmarshal(raw, &u); err != nil {
		s.fail(ctx, "session.restore", fmt.Errorf("decode stored user: %w", err))
		return st
	}
	st.User = &u
	return st
}

func (s *Store) storedToken(ctx context.Context) string {
	if s.storage == nil {
		return ""
	}
	raw, err := s.storage.Get(storageCtx(ctx), common.TokenStorageKey)
	if err != nil {
		s.fail(ctx, "session.read_token", err)
		return ""
	}
	return string(raw)
}

func (s *Store) fail(ctx context.Context, op string, err error) {
	s.log.Warn(ctx, "session storage failure", "op", op, "error", err)
	s.report.Report(op, err)
}

// Subscribe registers fn. fn receives the current snapshot right away and
// then one snapshot after every mutation, in the order the mutations were
// applied. fn may read the store but must not mutate it. The returned func
// unregisters fn.
func (s *Store) Subscribe(fn func(Session)) (unsubscribe func()) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	snap := s.state.clone()
	s.mu.Unlock()

	fn(snap)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Token returns the current token, or "" when unauthenticated.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Token
}

func (s *Store) IsAuthenticated() bool { return IsAuthenticated(s.Snapshot()) }

func (s *Store) CurrentUser() *models.User { return CurrentUser(s.Snapshot()) }

func (s *Store) IsAdmin() bool { return IsAdmin(s.Snapshot()) }

// update applies fn to the state under the lock and notifies subscribers
// exactly once with the resulting snapshot. Callers hold writeMu.
func (s *Store) update(fn func(st *Session)) {
	s.mu.Lock()
	fn(&s.state)
	s.state.IsAuthenticated = s.state.Token != ""
	snap := s.state.clone()

	ids := make([]uint64, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	subs := make([]func(Session), 0, len(ids))
	for _, id := range ids {
		subs = append(subs, s.subs[id])
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub(snap.clone())
	}
}

// Login persists token and user and switches to the authenticated state.
// Storage failures are reported but do not fail the call.
func (s *Store) Login(ctx context.Context, user models.User, token string) error {
	if token == "" {
		return ErrEmptyToken
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.storage != nil {
		raw, err := json.Marshal(user)
		if err == nil {
			err = s.storage.Put(storageCtx(ctx), map[string][]byte{
				common.TokenStorageKey: []byte(token),
				common.UserStorageKey:  raw,
			})
		}
		if err != nil {
			s.fail(ctx, "session.persist", err)
		}
	}

	s.update(func(st *Session) {
		st.User = &user
		st.Token = token
		st.IsLoading = false
	})
	return nil
}

// Logout removes the persisted session and resets the state. It is
// idempotent.
func (s *Store) Logout(ctx context.Context) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.storage != nil {
		if err := s.storage.Remove(storageCtx(ctx), common.TokenStorageKey, common.UserStorageKey); err != nil {
			s.fail(ctx, "session.clear", err)
		}
	}

	s.update(func(st *Session) {
		*st = Session{}
	})
}

// UpdateUser replaces the user and rewrites only the stored user record.
// Token and IsAuthenticated are left as they are, even when unauthenticated.
func (s *Store) UpdateUser(ctx context.Context, user models.User) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.storage != nil {
		raw, err := json.Marshal(user)
		if err == nil {
			err = s.storage.Put(storageCtx(ctx), map[string][]byte{common.UserStorageKey: raw})
		}
		if err != nil {
			s.fail(ctx, "session.persist", err)
		}
	}

	s.update(func(st *Session) {
		st.User = &user
	})
}

func (s *Store) SetLoading(loading bool) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.update(func(st *Session) {
		st.IsLoading = loading
	})
}

// CheckAuth reports whether a token is persisted. Without one the state is
// reset and false is returned. A persisted token is not validated against the
// server; use services.AuthService.CheckAuth for that.
func (s *Store) CheckAuth(ctx context.Context) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.storedToken(ctx) != "" {
		return true
	}

	s.update(func(st *Session) {
		*st = Session{}
	})
	return false
}
