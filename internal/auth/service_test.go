package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/amoralabs/amora/internal/apperr"
	"github.com/amoralabs/amora/internal/types"
)

type fakeUserStore struct {
	byEmail map[string]*types.User
	hashes  map[string]string
	created []types.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		byEmail: make(map[string]*types.User),
		hashes:  make(map[string]string),
	}
}

func (s *fakeUserStore) Create(ctx context.Context, user types.User, passwordHash string) (*types.User, error) {
	user.ID = "u-" + user.Email
	s.byEmail[user.Email] = &user
	s.hashes[user.Email] = passwordHash
	s.created = append(s.created, user)
	return &user, nil
}

func (s *fakeUserStore) GetByID(ctx context.Context, id string) (*types.User, error) {
	for _, user := range s.byEmail {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, apperr.ErrUserNotFound
}

func (s *fakeUserStore) GetByEmail(ctx context.Context, email string) (*types.User, error) {
	user, ok := s.byEmail[email]
	if !ok {
		return nil, apperr.ErrUserNotFound
	}
	return user, nil
}

func (s *fakeUserStore) GetCredentials(ctx context.Context, email string) (*types.User, string, error) {
	user, ok := s.byEmail[email]
	if !ok {
		return nil, "", apperr.ErrUserNotFound
	}
	return user, s.hashes[email], nil
}

func newTestService(store UserStore) *Service {
	return NewService(store, Config{
		JWTSecret: "test-secret",
		TokenTTL:  time.Hour,
	})
}

func TestRegisterAndLogin(t *testing.T) {
	store := newFakeUserStore()
	service := newTestService(store)
	ctx := context.Background()

	user, token, err := service.Register(ctx, "a@example.com", "password123", "Ada")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected token on register")
	}
	if store.hashes["a@example.com"] == "password123" {
		t.Fatal("password stored in plaintext")
	}
	if bcrypt.CompareHashAndPassword([]byte(store.hashes["a@example.com"]), []byte("password123")) != nil {
		t.Fatal("stored hash does not match password")
	}

	loggedIn, token2, err := service.Login(ctx, "a@example.com", "password123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if loggedIn.ID != user.ID || token2 == "" {
		t.Errorf("unexpected login result: %+v", loggedIn)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	store := newFakeUserStore()
	service := newTestService(store)
	ctx := context.Background()

	if _, _, err := service.Register(ctx, "a@example.com", "password123", ""); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	_, _, err := service.Register(ctx, "a@example.com", "different-pass", "")
	if !errors.Is(err, apperr.ErrEmailTaken) {
		t.Fatalf("expected email taken, got %v", err)
	}
}

func TestLoginFailuresAreUniform(t *testing.T) {
	store := newFakeUserStore()
	service := newTestService(store)
	ctx := context.Background()

	if _, _, err := service.Register(ctx, "a@example.com", "password123", ""); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	_, _, wrongPass := service.Login(ctx, "a@example.com", "wrong")
	_, _, unknownUser := service.Login(ctx, "nobody@example.com", "whatever")

	if !errors.Is(wrongPass, apperr.ErrInvalidCredentials) {
		t.Errorf("wrong password: expected invalid credentials, got %v", wrongPass)
	}
	if !errors.Is(unknownUser, apperr.ErrInvalidCredentials) {
		t.Errorf("unknown user: expected invalid credentials, got %v", unknownUser)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	service := newTestService(newFakeUserStore())

	token, err := service.IssueToken("user-42", "a@example.com")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	session, err := service.VerifyToken(token)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if session.UserID != "user-42" || session.Email != "a@example.com" {
		t.Errorf("unexpected session: %+v", session)
	}
}

func TestVerifyTokenRejectsTampering(t *testing.T) {
	service := newTestService(newFakeUserStore())
	other := NewService(newFakeUserStore(), Config{JWTSecret: "other-secret", TokenTTL: time.Hour})

	token, err := other.IssueToken("user-42", "a@example.com")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := service.VerifyToken(token); !errors.Is(err, apperr.ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
	if _, err := service.VerifyToken("not-a-token"); !errors.Is(err, apperr.ErrInvalidToken) {
		t.Fatalf("expected invalid token for garbage, got %v", err)
	}
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	store := newFakeUserStore()
	service := NewService(store, Config{JWTSecret: "test-secret", TokenTTL: -time.Minute})

	token, err := service.IssueToken("user-42", "a@example.com")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := service.VerifyToken(token); !errors.Is(err, apperr.ErrInvalidToken) {
		t.Fatalf("expected expired token rejection, got %v", err)
	}
}
