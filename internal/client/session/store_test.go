package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/dmitrijs2005/authkeeper/internal/client/models"
	"github.com/dmitrijs2005/authkeeper/internal/client/repositories/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

// memStorage is an in-memory Storage with failure injection.
type memStorage struct {
	mu     sync.Mutex
	data   map[string][]byte
	puts   [][]string
	getErr error
	putErr error
	rmErr  error
}

func newMemStorage() *memStorage {
	return &memStorage{data: map[string][]byte{}}
}

func (m *memStorage) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (m *memStorage) Put(_ context.Context, values map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	keys := make([]string, 0, len(values))
	for k, v := range values {
		m.data[k] = append([]byte(nil), v...)
		keys = append(keys, k)
	}
	sort.Strings(keys)
	m.puts = append(m.puts, keys)
	return nil
}

func (m *memStorage) Remove(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rmErr != nil {
		return m.rmErr
	}
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memStorage) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

func alice() models.User {
	return models.User{ID: "1", Name: "Alice", Username: "alice", Email: "alice@test.com", IsAdmin: true, AuthProvider: "local"}
}

func TestNewStore_StartsEmpty(t *testing.T) {
	s := NewStore(context.Background(), newMemStorage())

	st := s.Snapshot()
	assert.Nil(t, st.User)
	assert.Empty(t, st.Token)
	assert.False(t, st.IsAuthenticated)
	assert.False(t, st.IsLoading)
}

func TestLogin_UpdatesStateAndStorage(t *testing.T) {
	ctx := context.Background()
	storage := newMemStorage()
	s := NewStore(ctx, storage)

	require.NoError(t, s.Login(ctx, alice(), "abc123"))

	st := s.Snapshot()
	require.NotNil(t, st.User)
	assert.Equal(t, alice(), *st.User)
	assert.Equal(t, "abc123", st.Token)
	assert.True(t, st.IsAuthenticated)
	assert.False(t, st.IsLoading)

	assert.Equal(t, "abc123", string(storage.data["authToken"]))
	var stored models.User
	require.NoError(t, json.Unmarshal(storage.data["user"], &stored))
	assert.Equal(t, alice(), stored)
}

func TestLogin_ClearsLoadingFlag(t *testing.T) {
	ctx := context.Background()
	s := NewStore(ctx, newMemStorage())

	s.SetLoading(true)
	require.NoError(t, s.Login(ctx, alice(), "abc"))
	assert.False(t, s.Snapshot().IsLoading)
}

func TestLogin_EmptyTokenIsRejected(t *testing.T) {
	ctx := context.Background()
	storage := newMemStorage()
	s := NewStore(ctx, storage)

	notified := 0
	s.Subscribe(func(Session) { notified++ })
	notified = 0

	err := s.Login(ctx, alice(), "")
	require.ErrorIs(t, err, ErrEmptyToken)
	assert.False(t, s.IsAuthenticated())
	assert.Empty(t, storage.data)
	assert.Equal(t, 0, notified)
}

func TestLogout_ClearsEverything(t *testing.T) {
	ctx := context.Background()
	storage := newMemStorage()
	s := NewStore(ctx, storage)
	require.NoError(t, s.Login(ctx, alice(), "abc"))

	s.Logout(ctx)

	assert.Equal(t, Session{}, s.Snapshot())
	assert.False(t, storage.has("authToken"))
	assert.False(t, storage.has("user"))
}

func TestLogout_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewStore(ctx, newMemStorage())

	require.NotPanics(t, func() {
		s.Logout(ctx)
		s.Logout(ctx)
	})
	assert.Equal(t, Session{}, s.Snapshot())
}

func TestUpdateUser_ChangesOnlyUser(t *testing.T) {
	ctx := context.Background()
	storage := newMemStorage()
	s := NewStore(ctx, storage)
	require.NoError(t, s.Login(ctx, models.User{ID: "1", Name: "A", Username: "a", Email: "a@test", AuthProvider: "local"}, "abc"))
	before := s.Snapshot()
	storage.puts = nil

	updated := models.User{ID: "1", Name: "Updated", Username: "new", Email: "new@test.com", IsAdmin: true, AuthProvider: "local"}
	s.UpdateUser(ctx, updated)

	after := s.Snapshot()
	assert.Equal(t, "Updated", after.User.Name)
	assert.Equal(t, before.Token, after.Token)
	assert.Equal(t, before.IsAuthenticated, after.IsAuthenticated)
	assert.Equal(t, [][]string{{"user"}}, storage.puts)
	assert.Equal(t, "abc", string(storage.data["authToken"]))
}

func TestUpdateUser_WhileUnauthenticatedSetsUserOnly(t *testing.T) {
	ctx := context.Background()
	s := NewStore(ctx, newMemStorage())

	s.UpdateUser(ctx, alice())

	st := s.Snapshot()
	require.NotNil(t, st.User)
	assert.Empty(t, st.Token)
	assert.False(t, st.IsAuthenticated)
}

func TestSetLoading_TogglesWithoutPersistence(t *testing.T) {
	ctx := context.Background()
	storage := newMemStorage()
	s := NewStore(ctx, storage)

	s.SetLoading(true)
	assert.True(t, s.Snapshot().IsLoading)
	s.SetLoading(false)
	assert.False(t, s.Snapshot().IsLoading)
	assert.Empty(t, storage.puts)
}

func TestNewStore_RestoresPersistedSession(t *testing.T) {
	ctx := context.Background()
	storage := newMemStorage()
	require.NoError(t, NewStore(ctx, storage).Login(ctx, alice(), "abc123"))

	reloaded := NewStore(ctx, storage)

	st := reloaded.Snapshot()
	require.NotNil(t, st.User)
	assert.Equal(t, alice(), *st.User)
	assert.Equal(t, "abc123", st.Token)
	assert.True(t, st.IsAuthenticated)
	assert.False(t, st.IsLoading)
}

func TestNewStore_CorruptUserIsReportedAndIgnored(t *testing.T) {
	ctx := context.Background()
	storage := newMemStorage()
	storage.data["authToken"] = []byte("abc")
	storage.data["user"] = []byte("{not json")

	var ops []string
	s := NewStore(ctx, storage, WithErrorReporter(func(op string, err error) { ops = append(ops, op) }))

	st := s.Snapshot()
	assert.Nil(t, st.User)
	assert.True(t, st.IsAuthenticated)
	assert.Equal(t, []string{"session.restore"}, ops)
}

func TestCheckAuth_NoTokenResetsAndReturnsFalse(t *testing.T) {
	ctx := context.Background()
	storage := newMemStorage()
	s := NewStore(ctx, storage)
	s.UpdateUser(ctx, alice())
	s.SetLoading(true)

	require.False(t, s.CheckAuth(ctx))
	assert.Equal(t, Session{}, s.Snapshot())
}

func TestCheckAuth_TokenPresentReturnsTrueWithoutClearing(t *testing.T) {
	ctx := context.Background()
	storage := newMemStorage()
	s := NewStore(ctx, storage)
	require.NoError(t, s.Login(ctx, alice(), "maybe-revoked"))

	require.True(t, s.CheckAuth(ctx))
	assert.Equal(t, "maybe-revoked", s.Token())
	assert.NotNil(t, s.CurrentUser())
}

func TestCheckAuth_NilStorageIsUnauthenticated(t *testing.T) {
	ctx := context.Background()
	s := NewStore(ctx, nil)
	require.NoError(t, s.Login(ctx, alice(), "abc"))

	require.False(t, s.CheckAuth(ctx))
	assert.False(t, s.IsAuthenticated())
}

func TestNilStorage_LoginStillAuthenticates(t *testing.T) {
	ctx := context.Background()
	s := NewStore(ctx, nil)

	require.NoError(t, s.Login(ctx, alice(), "abc"))
	assert.True(t, s.IsAuthenticated())
	s.Logout(ctx)
	assert.False(t, s.IsAuthenticated())
}

func TestSubscribe_ImmediateSnapshotThenOnePerMutation(t *testing.T) {
	ctx := context.Background()
	s := NewStore(ctx, newMemStorage())

	var got []Session
	unsubscribe := s.Subscribe(func(st Session) { got = append(got, st) })
	require.Len(t, got, 1)
	assert.False(t, got[0].IsAuthenticated)

	require.NoError(t, s.Login(ctx, alice(), "abc"))
	s.UpdateUser(ctx, models.User{ID: "1", Name: "Renamed"})
	s.SetLoading(true)
	s.Logout(ctx)
	require.Len(t, got, 5)

	assert.True(t, got[1].IsAuthenticated)
	assert.Equal(t, "abc", got[1].Token)
	assert.Equal(t, "Renamed", got[2].User.Name)
	assert.Equal(t, "abc", got[2].Token)
	assert.True(t, got[3].IsLoading)
	assert.Equal(t, Session{}, got[4])

	unsubscribe()
	unsubscribe()
	s.SetLoading(false)
	assert.Len(t, got, 5)
}

func TestSubscribe_SnapshotsAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := NewStore(ctx, newMemStorage())
	require.NoError(t, s.Login(ctx, alice(), "abc"))

	s.Subscribe(func(st Session) {
		if st.User != nil {
			st.User.Name = "mutated by subscriber"
		}
	})

	assert.Equal(t, "Alice", s.CurrentUser().Name)
}

func TestSubscribe_CallbackMayReenterStore(t *testing.T) {
	ctx := context.Background()
	s := NewStore(ctx, newMemStorage())

	var seen []bool
	s.Subscribe(func(st Session) { seen = append(seen, s.IsAuthenticated()) })
	require.NoError(t, s.Login(ctx, alice(), "abc"))

	assert.Equal(t, []bool{false, true}, seen)
}

func TestDerivedViews(t *testing.T) {
	ctx := context.Background()
	s := NewStore(ctx, newMemStorage())

	assert.False(t, s.IsAuthenticated())
	assert.Nil(t, s.CurrentUser())
	assert.False(t, s.IsAdmin())

	require.NoError(t, s.Login(ctx, alice(), "tok"))
	assert.True(t, s.IsAuthenticated())
	assert.Equal(t, "alice", s.CurrentUser().Username)
	assert.True(t, s.IsAdmin())

	s.UpdateUser(ctx, models.User{ID: "1", Name: "Alice", IsAdmin: false})
	assert.False(t, s.IsAdmin())
	assert.True(t, s.IsAuthenticated())
}

func TestStorageFailures_AreReportedNotReturned(t *testing.T) {
	ctx := context.Background()
	storage := newMemStorage()
	storage.putErr = errors.New("quota exceeded")
	storage.rmErr = errors.New("read-only")

	type report struct {
		op  string
		err error
	}
	var reports []report
	s := NewStore(ctx, storage, WithErrorReporter(func(op string, err error) {
		reports = append(reports, report{op, err})
	}))

	require.NoError(t, s.Login(ctx, alice(), "abc"))
	assert.True(t, s.IsAuthenticated())

	s.UpdateUser(ctx, alice())
	s.Logout(ctx)
	assert.False(t, s.IsAuthenticated())

	require.Len(t, reports, 3)
	assert.Equal(t, "session.persist", reports[0].op)
	assert.ErrorIs(t, reports[0].err, storage.putErr)
	assert.Equal(t, "session.persist", reports[1].op)
	assert.Equal(t, "session.clear", reports[2].op)
	assert.ErrorIs(t, reports[2].err, storage.rmErr)
}

func TestConcurrentLogins_LastWriteWins(t *testing.T) {
	ctx := context.Background()
	s := NewStore(ctx, newMemStorage())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u := models.User{ID: fmt.Sprint(i)}
			_ = s.Login(ctx, u, "tok-"+fmt.Sprint(i))
		}(i)
	}
	wg.Wait()

	st := s.Snapshot()
	require.NotNil(t, st.User)
	assert.Equal(t, "tok-"+st.User.ID, st.Token)
}

func TestStore_WithSQLiteStorage(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE metadata (key TEXT PRIMARY KEY, value BLOB NOT NULL);`)
	require.NoError(t, err)

	storage := metadata.NewStorage(db)
	require.NoError(t, NewStore(ctx, storage).Login(ctx, alice(), "abc123"))

	reloaded := NewStore(ctx, storage)
	assert.Equal(t, "abc123", reloaded.Token())
	assert.Equal(t, alice(), *reloaded.CurrentUser())

	reloaded.Logout(ctx)
	assert.False(t, NewStore(ctx, storage).IsAuthenticated())
}

func newSQLiteStorage(t *testing.T) *metadata.Storage {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE metadata (key TEXT PRIMARY KEY, value BLOB NOT NULL);`)
	require.NoError(t, err)
	return metadata.NewStorage(db)
}

func TestStore_CanceledContextStillPersists(t *testing.T) {
	storage := newSQLiteStorage(t)
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	var reports []string
	s := NewStore(context.Background(), storage,
		WithErrorReporter(func(op string, err error) { reports = append(reports, op) }))

	require.NoError(t, s.Login(canceled, alice(), "abc123"))
	assert.Equal(t, "abc123", NewStore(context.Background(), storage).Token())

	updated := alice()
	updated.Name = "Alice B"
	s.UpdateUser(canceled, updated)
	assert.Equal(t, "Alice B", NewStore(context.Background(), storage).CurrentUser().Name)

	s.Logout(canceled)
	reloaded := NewStore(context.Background(), storage)
	assert.False(t, reloaded.IsAuthenticated())
	assert.Empty(t, reloaded.Token())
	assert.Nil(t, reloaded.CurrentUser())
	assert.Empty(t, reports)
}

func TestConcurrentMutations_NotifyInApplyOrder(t *testing.T) {
	ctx := context.Background()
	storage := newMemStorage()
	s := NewStore(ctx, storage)

	var mu sync.Mutex
	var last Session
	s.Subscribe(func(st Session) {
		mu.Lock()
		last = st
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			switch i % 3 {
			case 0:
				_ = s.Login(ctx, models.User{ID: fmt.Sprint(i)}, "tok-"+fmt.Sprint(i))
			case 1:
				s.Logout(ctx)
			default:
				s.SetLoading(i%2 == 0)
			}
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, s.Snapshot(), last)

	stored, err := storage.Get(ctx, "authToken")
	require.NoError(t, err)
	assert.Equal(t, s.Token(), string(stored))
}
