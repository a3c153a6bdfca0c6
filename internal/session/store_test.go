package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/amishk599/cvvin/internal/model"
	"github.com/amishk599/cvvin/internal/store"
)

// flakyKV wraps a MemoryStore and fails writes to selected keys.
type flakyKV struct {
	*store.MemoryStore
	mu         sync.Mutex
	failSet    map[string]bool
	failRemove bool
}

func newFlakyKV() *flakyKV {
	return &flakyKV{MemoryStore: store.NewMemoryStore(), failSet: make(map[string]bool)}
}

func (f *flakyKV) failWrites(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failSet[key] = true
}

func (f *flakyKV) Set(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	fail := f.failSet[key]
	f.mu.Unlock()
	if fail {
		return errors.New("disk full")
	}
	return f.MemoryStore.Set(ctx, key, value)
}

func (f *flakyKV) Remove(ctx context.Context, key string) error {
	if f.failRemove {
		return errors.New("read-only filesystem")
	}
	return f.MemoryStore.Remove(ctx, key)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testOptions(c *clock) Options {
	return Options{
		Issuer:     "cvvin-test",
		TokenTTL:   time.Hour,
		BcryptCost: bcrypt.MinCost,
		Now:        c.Now,
	}
}

func openStore(t *testing.T, kv model.KVStore, c *clock) *Store {
	t.Helper()
	s, err := Open(context.Background(), kv, testOptions(c))
	require.NoError(t, err)
	return s
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
}

var cred = model.Credential{Email: "ada@example.com", Password: "s3cret-pass"}

func strPtr(s string) *string { return &s }

func TestOpen_EmptyStorageIsLoggedOut(t *testing.T) {
	s := openStore(t, store.NewMemoryStore(), newClock())

	assert.False(t, s.IsAuthenticated())
	assert.False(t, s.CurrentProfile().IsComplete)
	assert.Equal(t, model.StageLogin, s.NextStage())
	assert.NoError(t, s.CanEnter(model.StageLogin))
	for _, stage := range []model.Stage{model.StageProfileSetup, model.StageDashboard, model.StageAnalysis} {
		assert.ErrorIs(t, s.CanEnter(stage), model.ErrNotAuthenticated)
	}
}

func TestSignup_RoutesToProfileSetupUntilComplete(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, store.NewMemoryStore(), newClock())

	var events []model.EventKind
	s.Subscribe(func(ev model.Event) { events = append(events, ev.Kind) })

	sess, err := s.Signup(ctx, cred)
	require.NoError(t, err)
	assert.True(t, sess.IsAuthenticated)
	assert.Equal(t, "ada", sess.Name)
	assert.Equal(t, model.OriginSignup, sess.Origin)
	assert.NotEmpty(t, sess.UserID)
	assert.NotEmpty(t, sess.Credential)

	assert.Equal(t, []model.EventKind{model.EventSessionChanged, model.EventProfileChanged}, events)
	assert.Equal(t, "ada@example.com", s.CurrentProfile().Email, "signup seeds the profile email")
	assert.Equal(t, model.StageProfileSetup, s.NextStage())

	p, err := s.SaveProfile(ctx, model.ProfileUpdate{FullName: strPtr("Ada Lovelace")})
	require.NoError(t, err)
	assert.True(t, p.IsComplete)
	assert.Equal(t, model.StageDashboard, s.NextStage())
}

func TestSignup_Validation(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, store.NewMemoryStore(), newClock())

	_, err := s.Signup(ctx, model.Credential{Email: "not-an-email", Password: "longenough"})
	require.ErrorIs(t, err, model.ErrInvalidCredentials)
	assert.Contains(t, model.UserMessage(err), "email")

	_, err = s.Signup(ctx, model.Credential{Email: "a@example.com", Password: "123"})
	require.ErrorIs(t, err, model.ErrInvalidCredentials)
	assert.Contains(t, model.UserMessage(err), "password")

	assert.False(t, s.IsAuthenticated())
}

func TestSignup_SecondAccountRejected(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, store.NewMemoryStore(), newClock())

	_, err := s.Signup(ctx, cred)
	require.NoError(t, err)
	_, err = s.Signup(ctx, model.Credential{Email: "bob@example.com", Password: "another-pass"})
	assert.ErrorIs(t, err, model.ErrAccountExists)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, store.NewMemoryStore(), newClock())

	_, err := s.Login(ctx, cred)
	require.ErrorIs(t, err, model.ErrInvalidCredentials, "no account yet")

	_, err = s.Signup(ctx, cred)
	require.NoError(t, err)
	require.NoError(t, s.Logout(ctx))

	_, err = s.Login(ctx, model.Credential{Email: cred.Email, Password: "wrong-password"})
	require.ErrorIs(t, err, model.ErrInvalidCredentials)
	_, err = s.Login(ctx, model.Credential{Email: "eve@example.com", Password: cred.Password})
	require.ErrorIs(t, err, model.ErrInvalidCredentials)
	assert.False(t, s.IsAuthenticated())

	sess, err := s.Login(ctx, model.Credential{Email: "ADA@example.com", Password: cred.Password})
	require.NoError(t, err)
	assert.Equal(t, model.OriginLogin, sess.Origin)
	assert.True(t, s.IsAuthenticated())
	// A login never forces profile setup, even with an incomplete profile.
	assert.Equal(t, model.StageDashboard, s.NextStage())
}

func TestLogout_ClearsMemoryAndStorage(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()
	s := openStore(t, kv, newClock())

	_, err := s.Signup(ctx, cred)
	require.NoError(t, err)

	var got []model.Event
	s.Subscribe(func(ev model.Event) { got = append(got, ev) })

	require.NoError(t, s.Logout(ctx))
	assert.False(t, s.IsAuthenticated())
	assert.Equal(t, model.Session{}, s.CurrentSession())
	_, ok, _ := kv.Get(ctx, KeySession)
	assert.False(t, ok, "session must be removed from storage")

	require.Len(t, got, 1)
	assert.Equal(t, model.EventSessionChanged, got[0].Kind)
	assert.False(t, got[0].Session.IsAuthenticated)
}

func TestLogout_RemoveFailureStoresLoggedOutRecord(t *testing.T) {
	ctx := context.Background()
	kv := newFlakyKV()
	c := newClock()
	s := openStore(t, kv, c)
	_, err := s.Signup(ctx, cred)
	require.NoError(t, err)

	kv.failRemove = true
	require.NoError(t, s.Logout(ctx))
	assert.False(t, s.IsAuthenticated())

	restarted := openStore(t, kv, c)
	assert.False(t, restarted.IsAuthenticated(), "a restart must not bring the session back")
	assert.Equal(t, model.StageLogin, restarted.NextStage())
}

func TestLogout_StorageFailureStillLogsOutInMemory(t *testing.T) {
	ctx := context.Background()
	kv := newFlakyKV()
	s := openStore(t, kv, newClock())
	_, err := s.Signup(ctx, cred)
	require.NoError(t, err)

	kv.failRemove = true
	kv.failWrites(KeySession)
	err = s.Logout(ctx)
	assert.ErrorIs(t, err, model.ErrStorageFailure)
	assert.False(t, s.IsAuthenticated())
}

func TestSignup_SessionWriteFailureLeavesNoAccount(t *testing.T) {
	ctx := context.Background()
	kv := newFlakyKV()
	s := openStore(t, kv, newClock())

	kv.failWrites(KeySession)
	_, err := s.Signup(ctx, cred)
	require.ErrorIs(t, err, model.ErrStorageFailure)
	assert.False(t, s.IsAuthenticated())
	_, ok, _ := kv.Get(ctx, KeyAccount)
	assert.False(t, ok, "the account is rolled back")

	kv.mu.Lock()
	delete(kv.failSet, KeySession)
	kv.mu.Unlock()
	sess, err := s.Signup(ctx, cred)
	require.NoError(t, err, "signup can be retried")
	assert.True(t, sess.IsAuthenticated)
}

func TestStateSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()
	c := newClock()

	s := openStore(t, kv, c)
	_, err := s.Signup(ctx, cred)
	require.NoError(t, err)
	_, err = s.SaveProfile(ctx, model.ProfileUpdate{
		FullName: strPtr("Ada"),
		College:  strPtr("Analytical Engine Institute"),
		Skills:   &[]string{"Go", "SQL"},
	})
	require.NoError(t, err)

	restarted := openStore(t, kv, c)
	assert.True(t, restarted.IsAuthenticated())
	assert.Equal(t, s.CurrentSession(), restarted.CurrentSession())
	p := restarted.CurrentProfile()
	assert.Equal(t, "Ada", p.FullName)
	assert.Equal(t, "Analytical Engine Institute", p.College)
	assert.Equal(t, []string{"Go", "SQL"}, p.Skills)
	assert.True(t, p.IsComplete)
}

func TestExpiredSessionIsDiscardedOnOpen(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()
	c := newClock()

	s := openStore(t, kv, c)
	_, err := s.Signup(ctx, cred)
	require.NoError(t, err)

	c.Advance(2 * time.Hour) // past the one hour TTL
	restarted := openStore(t, kv, c)
	assert.False(t, restarted.IsAuthenticated())
	_, ok, _ := kv.Get(ctx, KeySession)
	assert.False(t, ok)
	// The profile is durable and independent of the session.
	assert.Equal(t, "ada@example.com", restarted.CurrentProfile().Email)
}

func TestSessionSignedWithOtherKeyIsDiscarded(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()
	c := newClock()

	opts := testOptions(c)
	opts.Secret = "first-secret-0123456789"
	s, err := Open(ctx, kv, opts)
	require.NoError(t, err)
	_, err = s.Signup(ctx, cred)
	require.NoError(t, err)

	opts.Secret = "second-secret-0123456789"
	restarted, err := Open(ctx, kv, opts)
	require.NoError(t, err)
	assert.False(t, restarted.IsAuthenticated())
}

func TestOpen_CorruptProfileIsStorageFailure(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()
	require.NoError(t, kv.Set(ctx, KeyProfile, []byte("{not json")))

	_, err := Open(ctx, kv, testOptions(newClock()))
	assert.ErrorIs(t, err, model.ErrStorageFailure)
}

func TestSaveProfile_MergesPartialUpdates(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, store.NewMemoryStore(), newClock())

	_, err := s.SaveProfile(ctx, model.ProfileUpdate{
		FullName:      strPtr("Ada"),
		PhoneNumber:   strPtr("+44 20 0000 0000"),
		Qualification: strPtr("B.Tech"),
	})
	require.NoError(t, err)

	p, err := s.SaveProfile(ctx, model.ProfileUpdate{Email: strPtr(" ada@example.com ")})
	require.NoError(t, err)

	assert.Equal(t, "Ada", p.FullName)
	assert.Equal(t, "+44 20 0000 0000", p.PhoneNumber)
	assert.Equal(t, "B.Tech", p.Qualification)
	assert.Equal(t, "ada@example.com", p.Email)
	assert.True(t, p.IsComplete)

	p, err = s.SaveProfile(ctx, model.ProfileUpdate{FullName: strPtr("  ")})
	require.NoError(t, err)
	assert.False(t, p.IsComplete, "blank name makes the profile incomplete again")
}

func TestSaveProfile_Idempotent(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()
	c := newClock()
	s := openStore(t, kv, c)

	_, err := s.SaveProfile(ctx, model.ProfileUpdate{FullName: strPtr("A")})
	require.NoError(t, err)
	once, _, _ := kv.Get(ctx, KeyProfile)

	c.Advance(time.Minute)
	_, err = s.SaveProfile(ctx, model.ProfileUpdate{FullName: strPtr("A")})
	require.NoError(t, err)
	twice, _, _ := kv.Get(ctx, KeyProfile)

	assert.JSONEq(t, string(once), string(twice))
}

func TestSaveProfile_FailureLeavesPriorProfileIntact(t *testing.T) {
	ctx := context.Background()
	kv := newFlakyKV()
	s := openStore(t, kv, newClock())

	_, err := s.SaveProfile(ctx, model.ProfileUpdate{FullName: strPtr("Ada"), Email: strPtr("ada@example.com")})
	require.NoError(t, err)
	before, _, _ := kv.Get(ctx, KeyProfile)

	var events int
	s.Subscribe(func(model.Event) { events++ })

	kv.failWrites(KeyProfile)
	_, err = s.SaveProfile(ctx, model.ProfileUpdate{FullName: strPtr("Grace"), College: strPtr("Yale")})
	require.ErrorIs(t, err, model.ErrStorageFailure)

	p := s.CurrentProfile()
	assert.Equal(t, "Ada", p.FullName)
	assert.Empty(t, p.College)
	after, _, _ := kv.Get(ctx, KeyProfile)
	assert.Equal(t, before, after)
	assert.Zero(t, events, "no notification for a failed save")
}

func TestLogin_StorageFailureDoesNotAuthenticate(t *testing.T) {
	ctx := context.Background()
	kv := newFlakyKV()
	s := openStore(t, kv, newClock())
	_, err := s.Signup(ctx, cred)
	require.NoError(t, err)
	require.NoError(t, s.Logout(ctx))

	kv.failWrites(KeySession)
	_, err = s.Login(ctx, cred)
	require.ErrorIs(t, err, model.ErrStorageFailure)
	assert.False(t, s.IsAuthenticated())
}

func TestSkillsAndRoles(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, store.NewMemoryStore(), newClock())

	_, err := s.AddSkill(ctx, "React")
	require.NoError(t, err)
	_, err = s.AddSkill(ctx, "react")
	require.NoError(t, err)
	p, err := s.AddSkill(ctx, "Docker")
	require.NoError(t, err)
	assert.Equal(t, []string{"React", "Docker"}, p.Skills)

	p, err = s.RemoveSkill(ctx, "REACT")
	require.NoError(t, err)
	assert.Equal(t, []string{"Docker"}, p.Skills)

	p, err = s.ToggleRole(ctx, "Backend Developer")
	require.NoError(t, err)
	assert.Equal(t, []string{"Backend Developer"}, p.InterestedRoles)
	p, err = s.ToggleRole(ctx, "backend developer")
	require.NoError(t, err)
	assert.Empty(t, p.InterestedRoles)
}

func TestConcurrentUpdatesAreSerialized(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, store.NewMemoryStore(), newClock())

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := s.AddSkill(ctx, fmt.Sprintf("skill-%d", i)); err != nil {
				t.Errorf("AddSkill: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, s.CurrentProfile().Skills, n)
}

func TestSkipProfileSetup(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, store.NewMemoryStore(), newClock())

	require.ErrorIs(t, s.SkipProfileSetup(ctx), model.ErrNotAuthenticated)

	_, err := s.Signup(ctx, cred)
	require.NoError(t, err)
	require.Equal(t, model.StageProfileSetup, s.NextStage())

	require.NoError(t, s.SkipProfileSetup(ctx))
	assert.Equal(t, model.StageDashboard, s.NextStage())
}

func TestUnsubscribe(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, store.NewMemoryStore(), newClock())

	calls := 0
	unsubscribe := s.Subscribe(func(model.Event) { calls++ })
	_, err := s.SaveProfile(ctx, model.ProfileUpdate{FullName: strPtr("A")})
	require.NoError(t, err)
	unsubscribe()
	_, err = s.SaveProfile(ctx, model.ProfileUpdate{FullName: strPtr("B")})
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
}

func TestCurrentProfileIsACopy(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, store.NewMemoryStore(), newClock())
	_, err := s.SaveProfile(ctx, model.ProfileUpdate{Skills: &[]string{"Go"}})
	require.NoError(t, err)

	p := s.CurrentProfile()
	p.Skills[0] = "Rust"
	assert.Equal(t, []string{"Go"}, s.CurrentProfile().Skills)
}
