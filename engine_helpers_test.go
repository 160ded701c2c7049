package carnet

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/carnet-digital/carnet/password"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const (
	testStateActive   = 1
	testStateInactive = 2
	testStateBlocked  = 3

	testTypeStudent = 1
	testTypeAdmin   = 2

	testPassword = "correct"
)

type fakeUsers struct {
	mu          sync.Mutex
	records     map[string]*CredentialRecord
	findErr     error
	updateErr   error
	findCalls   int
	updateCalls int
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{records: map[string]*CredentialRecord{}}
}

func (f *fakeUsers) add(t testing.TB, id, email, plain string, userType, state, failed int) {
	t.Helper()
	hash, err := password.HashBcrypt(plain, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[strings.ToLower(email)] = &CredentialRecord{
		ID:             id,
		Email:          email,
		PasswordHash:   hash,
		UserTypeCode:   userType,
		StateCode:      state,
		FailedAttempts: failed,
	}
}

func (f *fakeUsers) get(email string) CredentialRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := f.records[strings.ToLower(email)]
	if rec == nil {
		return CredentialRecord{}
	}
	return *rec
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (CredentialRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCalls++
	if f.findErr != nil {
		return CredentialRecord{}, f.findErr
	}
	rec := f.records[strings.ToLower(email)]
	if rec == nil {
		return CredentialRecord{}, fmt.Errorf("user %q: %w", email, ErrNotFound)
	}
	return *rec, nil
}

func (f *fakeUsers) UpdateCredentials(_ context.Context, userID string, update CredentialUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.updateErr != nil {
		return f.updateErr
	}
	for _, rec := range f.records {
		if rec.ID != userID {
			continue
		}
		if update.FailedAttempts != nil {
			rec.FailedAttempts = *update.FailedAttempts
		}
		if update.StateCode != nil {
			rec.StateCode = *update.StateCode
		}
		return nil
	}
	return fmt.Errorf("user %s: %w", userID, ErrNotFound)
}

type fakeCatalog struct {
	mu          sync.Mutex
	types       map[int]string
	states      []State
	statesErr   error
	typesErr    error
	statesCalls int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		types: map[int]string{
			testTypeStudent: "estudiante",
			testTypeAdmin:   "Administrador",
		},
		states: []State{
			{Code: testStateActive, Name: "Activo"},
			{Code: testStateInactive, Name: "Inactivo"},
			{Code: testStateBlocked, Name: "Bloqueado"},
		},
	}
}

func (f *fakeCatalog) UserTypeName(_ context.Context, code int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.typesErr != nil {
		return "", f.typesErr
	}
	name, ok := f.types[code]
	if !ok {
		return "", fmt.Errorf("user type %d: %w", code, ErrNotFound)
	}
	return name, nil
}

func (f *fakeCatalog) States(context.Context) ([]State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statesCalls++
	if f.statesErr != nil {
		return nil, f.statesErr
	}
	return append([]State(nil), f.states...), nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Now().Truncate(time.Second)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	engine  *Engine
	mr      *miniredis.Miniredis
	rdb     *redis.Client
	users   *fakeUsers
	catalog *fakeCatalog
	clock   *testClock
	audit   *ChannelSink
}

// advance moves both the token clock and Redis TTLs forward.
func (env *testEnv) advance(d time.Duration) {
	env.clock.Advance(d)
	env.mr.FastForward(d)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.AccessSecret = []byte("access-secret-for-tests-0123456789")
	cfg.JWT.RefreshSecret = []byte("refresh-secret-for-tests-0123456789")
	cfg.Audit.DropIfFull = true
	cfg.Audit.BufferSize = 256
	return cfg
}

func newTestEnv(t testing.TB, mutate func(*Config)) *testEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	env := &testEnv{
		mr:      mr,
		rdb:     rdb,
		users:   newFakeUsers(),
		catalog: newFakeCatalog(),
		clock:   newTestClock(),
		audit:   NewChannelSink(256),
	}
	env.users.add(t, "3f2a0c9e-1111-4c1d-9a55-000000000001", "juan@cuc.cr", testPassword, testTypeStudent, testStateActive, 0)
	env.users.add(t, "3f2a0c9e-1111-4c1d-9a55-000000000002", "admin@cuc.cr", testPassword, testTypeAdmin, testStateActive, 0)

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(env.users).
		WithCatalogProvider(env.catalog).
		WithAuditSink(env.audit).
		withClock(env.clock.Now).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	env.engine = engine

	t.Cleanup(func() {
		engine.Close()
		rdb.Close()
		mr.Close()
	})
	return env
}

func (env *testEnv) login(t testing.TB, email, plain, userType string) (*TokenPair, error) {
	t.Helper()
	return env.engine.Login(context.Background(), LoginRequest{Email: email, Password: plain, UserType: userType})
}

func (env *testEnv) mustLogin(t testing.TB) *TokenPair {
	t.Helper()
	pair, err := env.login(t, "juan@cuc.cr", testPassword, "estudiante")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	return pair
}

// drainAudit collects the events delivered so far after closing the dispatcher.
func (env *testEnv) drainAudit() []AuditEvent {
	env.engine.Close()
	var out []AuditEvent
	for {
		select {
		case ev := <-env.audit.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}
