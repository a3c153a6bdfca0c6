package session

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/amishk599/cvvin/internal/model"
)

// Fixed storage keys.
const (
	KeySession    = "session"
	KeyProfile    = "profile"
	KeyAccount    = "account"
	KeySigningKey = "signing_key"
)

// Options configures a Store. Zero values fall back to defaults.
type Options struct {
	Secret     string        // signing secret; generated and persisted when empty
	Issuer     string        // credential issuer, default "cvvin"
	TokenTTL   time.Duration // credential lifetime, default 30 days
	BcryptCost int           // default bcrypt.DefaultCost
	Logger     *slog.Logger
	Now        func() time.Time
}

// Store owns the process's Session and Profile. All mutations go through its
// methods and are serialized; subscribers are notified after each committed
// change, outside the lock.
type Store struct {
	kv     model.KVStore
	tokens *TokenIssuer
	cost   int
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	session model.Session
	profile model.Profile

	subMu  sync.Mutex
	subs   map[int]func(model.Event)
	nextID int
}

// Open loads the persisted session and profile from kv. Missing keys mean
// logged out with an empty profile. A stored session whose credential no
// longer verifies is discarded.
func Open(ctx context.Context, kv model.KVStore, opts Options) (*Store, error) {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Issuer == "" {
		opts.Issuer = "cvvin"
	}
	if opts.TokenTTL == 0 {
		opts.TokenTTL = 30 * 24 * time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = 10
	}

	secret, err := signingKey(ctx, kv, opts.Secret)
	if err != nil {
		return nil, err
	}

	s := &Store{
		kv:     kv,
		tokens: NewTokenIssuer(secret, opts.Issuer, opts.TokenTTL, opts.Now),
		cost:   opts.BcryptCost,
		logger: opts.Logger,
		now:    opts.Now,
		subs:   make(map[int]func(model.Event)),
	}

	if err := s.loadProfile(ctx); err != nil {
		return nil, err
	}
	if err := s.loadSession(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func signingKey(ctx context.Context, kv model.KVStore, configured string) ([]byte, error) {
	if configured != "" {
		return []byte(configured), nil
	}
	key, ok, err := kv.Get(ctx, KeySigningKey)
	if err != nil {
		return nil, storageErr("reading signing key", err)
	}
	if ok && len(key) > 0 {
		return key, nil
	}
	key = make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generating signing key: %w", err)
	}
	if err := kv.Set(ctx, KeySigningKey, key); err != nil {
		return nil, storageErr("saving signing key", err)
	}
	return key, nil
}

func (s *Store) loadProfile(ctx context.Context) error {
	data, ok, err := s.kv.Get(ctx, KeyProfile)
	if err != nil {
		return storageErr("reading profile", err)
	}
	if !ok {
		return nil
	}
	var p model.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return storageErr("decoding profile", err)
	}
	s.profile = p
	return nil
}

func (s *Store) loadSession(ctx context.Context) error {
	data, ok, err := s.kv.Get(ctx, KeySession)
	if err != nil {
		return storageErr("reading session", err)
	}
	if !ok {
		return nil
	}

	var sess model.Session
	switch err := json.Unmarshal(data, &sess); {
	case err != nil:
		s.logger.Warn("discarding unreadable session", "error", err)
	case !sess.IsAuthenticated:
		// left behind by a logout that could not remove the key
	default:
		claims, verr := s.tokens.Verify(sess.Credential)
		if verr == nil && claims.Subject == sess.UserID {
			s.session = sess
			return nil
		}
		s.logger.Info("stored session is no longer valid, logging out", "error", verr)
	}

	if err := s.kv.Remove(ctx, KeySession); err != nil {
		s.logger.Warn("could not remove stale session", "error", err)
	}
	return nil
}

// IsAuthenticated reports whether a session is live.
func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.IsAuthenticated
}

// CurrentSession returns a copy of the live session (zero when logged out).
func (s *Store) CurrentSession() model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// CurrentProfile returns a deep copy of the profile.
func (s *Store) CurrentProfile() model.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile.Clone()
}

// Signup creates the local account and logs it in. There is one account per
// store; a second signup fails with ErrAccountExists.
func (s *Store) Signup(ctx context.Context, c model.Credential) (model.Session, error) {
	c, err := validateCredential(c)
	if err != nil {
		return model.Session{}, err
	}

	s.mu.Lock()
	if _, exists, err := s.readAccount(ctx); err != nil {
		s.mu.Unlock()
		return model.Session{}, err
	} else if exists {
		s.mu.Unlock()
		return model.Session{}, model.ErrAccountExists
	}

	hash, err := hashPassword(c.Password, s.cost)
	if err != nil {
		s.mu.Unlock()
		return model.Session{}, err
	}
	acct := account{UserID: uuid.NewString(), Email: c.Email, PasswordHash: hash, CreatedAt: s.now().UTC()}
	if err := s.putJSON(ctx, KeyAccount, acct); err != nil {
		s.mu.Unlock()
		return model.Session{}, err
	}

	sess, err := s.startSession(ctx, acct, model.OriginSignup)
	if err != nil {
		if rerr := s.kv.Remove(ctx, KeyAccount); rerr != nil {
			s.logger.Warn("could not roll back account after failed signup", "error", rerr)
		}
		s.mu.Unlock()
		return model.Session{}, err
	}

	var events []model.Event
	events = append(events, s.event(model.EventSessionChanged))

	// Seed the profile email the way the signup form does.
	if s.profile.Email == "" {
		email := acct.Email
		next := s.profile.Merge(model.ProfileUpdate{Email: &email})
		next.UpdatedAt = s.now().UTC()
		if err := s.putJSON(ctx, KeyProfile, next); err != nil {
			s.logger.Warn("could not seed profile email", "error", err)
		} else {
			s.profile = next
			events = append(events, s.event(model.EventProfileChanged))
		}
	}
	s.mu.Unlock()

	s.logger.Info("signed up", "user_id", sess.UserID, "email", sess.Email)
	s.publish(events...)
	return sess, nil
}

// Login verifies c against the local account and starts a session.
func (s *Store) Login(ctx context.Context, c model.Credential) (model.Session, error) {
	s.mu.Lock()
	acct, exists, err := s.readAccount(ctx)
	if err != nil {
		s.mu.Unlock()
		return model.Session{}, err
	}
	if !exists {
		s.mu.Unlock()
		return model.Session{}, model.ErrInvalidCredentials
	}
	if err := acct.check(c); err != nil {
		s.mu.Unlock()
		return model.Session{}, err
	}

	sess, err := s.startSession(ctx, acct, model.OriginLogin)
	if err != nil {
		s.mu.Unlock()
		return model.Session{}, err
	}
	ev := s.event(model.EventSessionChanged)
	s.mu.Unlock()

	s.logger.Info("logged in", "user_id", sess.UserID)
	s.publish(ev)
	return sess, nil
}

// startSession persists a new session and then publishes it in memory.
// Caller holds s.mu.
func (s *Store) startSession(ctx context.Context, acct account, origin model.Origin) (model.Session, error) {
	cred, err := s.tokens.Issue(acct.UserID, acct.Email)
	if err != nil {
		return model.Session{}, err
	}
	sess := model.Session{
		IsAuthenticated: true,
		Credential:      cred,
		UserID:          acct.UserID,
		Email:           acct.Email,
		Name:            displayName(acct.Email),
		Origin:          origin,
		CreatedAt:       s.now().UTC(),
	}
	if err := s.putJSON(ctx, KeySession, sess); err != nil {
		return model.Session{}, err
	}
	s.session = sess
	return sess, nil
}

// Logout clears the session in memory first, so IsAuthenticated is false
// immediately, then removes it from storage. If the key cannot be removed it
// is overwritten with a logged-out record so a restart stays logged out.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	wasAuthenticated := s.session.IsAuthenticated
	s.session = model.Session{}
	err := s.kv.Remove(ctx, KeySession)
	if err != nil {
		if perr := s.putJSON(ctx, KeySession, model.Session{}); perr == nil {
			s.logger.Warn("could not remove session, stored a logged-out record instead", "error", err)
			err = nil
		}
	}
	ev := s.event(model.EventSessionChanged)
	s.mu.Unlock()

	if wasAuthenticated {
		s.logger.Info("logged out")
		s.publish(ev)
	}
	if err != nil {
		return storageErr("removing session", err)
	}
	return nil
}

// SaveProfile merges u into the profile and persists the whole profile in a
// single write. On failure the previous profile stays in place, both in
// memory and in storage.
func (s *Store) SaveProfile(ctx context.Context, u model.ProfileUpdate) (model.Profile, error) {
	return s.updateProfile(ctx, func(p model.Profile) model.ProfileUpdate { return u })
}

// AddSkill adds skill to the profile unless already present (case-insensitive).
func (s *Store) AddSkill(ctx context.Context, skill string) (model.Profile, error) {
	return s.updateProfile(ctx, func(p model.Profile) model.ProfileUpdate {
		skills := append(append([]string(nil), p.Skills...), skill)
		return model.ProfileUpdate{Skills: &skills}
	})
}

// RemoveSkill removes skill from the profile (case-insensitive).
func (s *Store) RemoveSkill(ctx context.Context, skill string) (model.Profile, error) {
	return s.updateProfile(ctx, func(p model.Profile) model.ProfileUpdate {
		skills := without(p.Skills, skill)
		return model.ProfileUpdate{Skills: &skills}
	})
}

// ToggleRole adds role to the interested roles, or removes it if present.
func (s *Store) ToggleRole(ctx context.Context, role string) (model.Profile, error) {
	return s.updateProfile(ctx, func(p model.Profile) model.ProfileUpdate {
		roles := without(p.InterestedRoles, role)
		if len(roles) == len(p.InterestedRoles) {
			roles = append(roles, role)
		}
		return model.ProfileUpdate{InterestedRoles: &roles}
	})
}

// updateProfile computes the update from the current profile under the lock,
// so read-modify-write helpers never interleave.
func (s *Store) updateProfile(ctx context.Context, build func(model.Profile) model.ProfileUpdate) (model.Profile, error) {
	s.mu.Lock()
	next := s.profile.Merge(build(s.profile.Clone()))
	next.UpdatedAt = s.profile.UpdatedAt
	if reflect.DeepEqual(next, s.profile) {
		// Nothing changed; the stored record is already this profile.
		s.mu.Unlock()
		return next.Clone(), nil
	}
	next.UpdatedAt = s.now().UTC()
	if err := s.putJSON(ctx, KeyProfile, next); err != nil {
		s.mu.Unlock()
		return model.Profile{}, err
	}
	s.profile = next
	ev := s.event(model.EventProfileChanged)
	s.mu.Unlock()

	s.logger.Debug("profile saved", "complete", next.IsComplete, "skills", len(next.Skills))
	s.publish(ev)
	return next.Clone(), nil
}

// SkipProfileSetup lets a freshly signed-up user continue to the dashboard
// with an incomplete profile.
func (s *Store) SkipProfileSetup(ctx context.Context) error {
	s.mu.Lock()
	if !s.session.IsAuthenticated {
		s.mu.Unlock()
		return model.ErrNotAuthenticated
	}
	next := s.session
	next.SetupSkipped = true
	if err := s.putJSON(ctx, KeySession, next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.session = next
	ev := s.event(model.EventSessionChanged)
	s.mu.Unlock()

	s.publish(ev)
	return nil
}

// Subscribe registers fn for session-changed and profile-changed events and
// returns a function that removes it. fn runs synchronously on the goroutine
// that made the change, after the store lock is released.
func (s *Store) Subscribe(fn func(model.Event)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) publish(events ...model.Event) {
	s.subMu.Lock()
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(model.Event), len(ids))
	for i, id := range ids {
		fns[i] = s.subs[id]
	}
	s.subMu.Unlock()

	for _, ev := range events {
		for _, fn := range fns {
			fn(ev)
		}
	}
}

// event snapshots the current state. Caller holds s.mu.
func (s *Store) event(kind model.EventKind) model.Event {
	return model.Event{Kind: kind, Session: s.session, Profile: s.profile.Clone(), At: s.now().UTC()}
}

func (s *Store) readAccount(ctx context.Context) (account, bool, error) {
	data, ok, err := s.kv.Get(ctx, KeyAccount)
	if err != nil {
		return account{}, false, storageErr("reading account", err)
	}
	if !ok {
		return account{}, false, nil
	}
	var a account
	if err := json.Unmarshal(data, &a); err != nil {
		return account{}, false, storageErr("decoding account", err)
	}
	return a, true, nil
}

func (s *Store) putJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, data); err != nil {
		return storageErr("saving "+key, err)
	}
	return nil
}

func storageErr(doing string, err error) error {
	if errors.Is(err, model.ErrStorageFailure) {
		return fmt.Errorf("%s: %w", doing, err)
	}
	return fmt.Errorf("%w: %s: %w", model.ErrStorageFailure, doing, err)
}

func without(items []string, item string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if !strings.EqualFold(strings.TrimSpace(it), strings.TrimSpace(item)) {
			out = append(out, it)
		}
	}
	return out
}
