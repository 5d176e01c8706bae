package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/cinebase/internal/catalog"
	"github.com/goliatone/cinebase/pkg/testsupport"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type memoryUsers struct {
	mu      sync.Mutex
	byEmail map[string]catalog.User
	creates int
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byEmail: make(map[string]catalog.User)}
}

func (m *memoryUsers) FindByEmail(_ context.Context, email string) (catalog.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byEmail[catalog.NormalizeEmail(email)]
	if !ok {
		return catalog.User{}, catalog.ErrNotFound
	}
	return user, nil
}

func (m *memoryUsers) Create(_ context.Context, user catalog.User) (catalog.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if _, dup := m.byEmail[user.Email]; dup {
		return catalog.User{}, catalog.ErrConflict
	}
	user.ID = "user-" + user.Email
	m.byEmail[user.Email] = user
	return user, nil
}

func testTokenConfig() TokenConfig {
	return TokenConfig{Secret: "0123456789abcdef0123456789abcdef", Issuer: "cinebase-test", TTL: DefaultTokenTTL}
}

func newTestService(t *testing.T, now func() time.Time) (*Service, *memoryUsers) {
	t.Helper()
	tokens, err := NewTokenIssuer(testTokenConfig(), now)
	if err != nil {
		t.Fatalf("failed to create issuer: %v", err)
	}
	users := newMemoryUsers()
	return NewService(users, NewHasher(bcrypt.MinCost), tokens, []string{" Admin@Example.com"}), users
}

func TestHasher(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hash, err := h.Hash("correct horse")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if hash == "correct horse" || !h.Check(hash, "correct horse") {
		t.Error("expected hash to verify")
	}
	if h.Check(hash, "wrong horse") {
		t.Error("expected mismatch for wrong password")
	}

	for _, pw := range []string{"", "short", strings.Repeat("x", MaxPasswordLength+1)} {
		if _, err := h.Hash(pw); err == nil {
			t.Errorf("expected length error for %d byte password", len(pw))
		}
	}

	if NewHasher(100).cost != bcrypt.DefaultCost {
		t.Error("out of range cost should fall back to the default")
	}
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	clock := testsupport.NewClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	issuer, err := NewTokenIssuer(testTokenConfig(), clock.Now)
	if err != nil {
		t.Fatalf("NewTokenIssuer failed: %v", err)
	}

	user := catalog.User{ID: "u-1", Email: "a@example.com", Role: catalog.RoleAdmin}
	token, expires, err := issuer.Issue(user)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if !expires.Equal(clock.Now().Add(15 * time.Minute)) {
		t.Errorf("unexpected expiry %v", expires)
	}

	id, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if id.UserID != "u-1" || id.Email != "a@example.com" || !id.IsAdmin() {
		t.Errorf("unexpected identity %+v", id)
	}

	clock.Advance(16 * time.Minute)
	if _, err := issuer.Verify(token); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestTokenIssuer_Rejects(t *testing.T) {
	issuer, _ := NewTokenIssuer(testTokenConfig(), nil)

	other := testTokenConfig()
	other.Secret = "ffffffffffffffffffffffffffffffff"
	forger, _ := NewTokenIssuer(other, nil)
	forged, _, _ := forger.Issue(catalog.User{ID: "u-1", Role: catalog.RoleAdmin})

	otherIssuer := testTokenConfig()
	otherIssuer.Issuer = "someone-else"
	foreign, _ := NewTokenIssuer(otherIssuer, nil)
	foreignToken, _, _ := foreign.Issue(catalog.User{ID: "u-1", Role: catalog.RoleUser})

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		Role:             catalog.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1", Issuer: "cinebase-test"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	noRole, _, _ := issuer.Issue(catalog.User{ID: "u-1"})

	for name, token := range map[string]string{
		"garbage":      "not.a.token",
		"wrong secret": forged,
		"wrong issuer": foreignToken,
		"alg none":     none,
		"no role":      noRole,
	} {
		if _, err := issuer.Verify(token); !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("%s: expected ErrTokenInvalid, got %v", name, err)
		}
	}

	if _, err := NewTokenIssuer(TokenConfig{Secret: "short", Issuer: "x", TTL: time.Minute}, nil); err == nil {
		t.Error("expected short secret to be rejected")
	}
}

func TestService_Register(t *testing.T) {
	svc, users := newTestService(t, nil)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Reader@Example.com", "password123")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.Role != catalog.RoleUser || user.Email != "reader@example.com" {
		t.Errorf("unexpected user %+v", user)
	}
	if !svc.hasher.Check(user.PasswordHash, "password123") {
		t.Error("expected stored hash to match")
	}

	admin, err := svc.Register(ctx, "admin@example.com", "password123")
	if err != nil || admin.Role != catalog.RoleAdmin {
		t.Errorf("expected admin role for configured email, got %+v, %v", admin, err)
	}

	if _, err := svc.Register(ctx, "reader@example.com", "password123"); !errors.Is(err, catalog.ErrConflict) {
		t.Errorf("expected conflict, got %v", err)
	}

	creates := users.creates
	_, err = svc.Register(ctx, "new@example.com", "short")
	var verr *catalog.ValidationError
	if !errors.As(err, &verr) || verr.Fields["password"] == "" {
		t.Errorf("expected password validation error, got %v", err)
	}
	if users.creates != creates {
		t.Error("an invalid password must not reach the store")
	}
}

func TestService_Login(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "reader@example.com", "password123"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	session, err := svc.Login(ctx, "READER@example.com", "password123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if session.TokenType != "bearer" || session.User.PasswordHash != "" {
		t.Errorf("unexpected session %+v", session)
	}
	id, err := svc.Tokens().Verify(session.AccessToken)
	if err != nil || id.UserID != session.User.ID {
		t.Errorf("issued token does not verify: %+v, %v", id, err)
	}

	_, wrongPassword := svc.Login(ctx, "reader@example.com", "password124")
	_, unknownEmail := svc.Login(ctx, "ghost@example.com", "password123")
	if !errors.Is(wrongPassword, ErrInvalidCredentials) || !errors.Is(unknownEmail, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v and %v", wrongPassword, unknownEmail)
	}
	if wrongPassword.Error() != unknownEmail.Error() {
		t.Error("login failures must not reveal which part was wrong")
	}
}
