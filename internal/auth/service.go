// Package auth handles credentials, OAuth sign-in, and bearer tokens.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/amoralabs/amora/internal/apperr"
	"github.com/amoralabs/amora/internal/types"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// UserStore is the slice of the user repository auth needs.
type UserStore interface {
	Create(ctx context.Context, user types.User, passwordHash string) (*types.User, error)
	GetByID(ctx context.Context, id string) (*types.User, error)
	GetByEmail(ctx context.Context, email string) (*types.User, error)
	GetCredentials(ctx context.Context, email string) (*types.User, string, error)
}

// Config holds signing and OAuth settings.
type Config struct {
	JWTSecret          string
	TokenTTL           time.Duration
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	AppleClientID      string
	AppleTeamID        string
	AppleKeyID         string
	ApplePrivateKey    string
	AppleRedirectURL   string
}

// Service issues and verifies sessions.
type Service struct {
	users  UserStore
	secret []byte
	ttl    time.Duration
	google *oauth2.Config
	apple  *appleConfig

	fetchAppleKeys func(ctx context.Context) (jwk.Set, error)
}

// NewService wires the auth service. OAuth providers stay nil when not
// configured; their login paths then fail cleanly.
func NewService(users UserStore, cfg Config) *Service {
	s := &Service{
		users:  users,
		secret: []byte(cfg.JWTSecret),
		ttl:    cfg.TokenTTL,
		fetchAppleKeys: func(ctx context.Context) (jwk.Set, error) {
			return jwk.Fetch(ctx, appleKeysURL)
		},
	}
	if cfg.GoogleClientID != "" {
		s.google = &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		}
	}
	if cfg.AppleClientID != "" {
		key, err := parseApplePrivateKey(cfg.ApplePrivateKey)
		if err != nil {
			slog.Warn("apple sign-in disabled", "error", err)
		} else {
			s.apple = &appleConfig{
				clientID:    cfg.AppleClientID,
				teamID:      cfg.AppleTeamID,
				keyID:       cfg.AppleKeyID,
				key:         key,
				redirectURL: cfg.AppleRedirectURL,
			}
		}
	}
	return s
}

// Session is an authenticated identity extracted from a token.
type Session struct {
	UserID string
	Email  string
}

// Register creates an account and returns the user with a fresh token.
func (s *Service) Register(ctx context.Context, email, password, name string) (*types.User, string, error) {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, "", goerr.Wrap(apperr.ErrEmailTaken, "email already registered", goerr.V("email", email))
	} else if !errors.Is(err, apperr.ErrUserNotFound) {
		return nil, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", goerr.Wrap(err, "failed to hash password")
	}

	user, err := s.users.Create(ctx, types.User{Email: email, Name: name}, string(hash))
	if err != nil {
		return nil, "", err
	}

	token, err := s.IssueToken(user.ID, user.Email)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login verifies credentials and returns the user with a fresh token. Unknown
// emails and wrong passwords fail identically.
func (s *Service) Login(ctx context.Context, email, password string) (*types.User, string, error) {
	user, hash, err := s.users.GetCredentials(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrUserNotFound) {
			return nil, "", goerr.Wrap(apperr.ErrInvalidCredentials, "login failed")
		}
		return nil, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, "", goerr.Wrap(apperr.ErrInvalidCredentials, "login failed")
	}

	token, err := s.IssueToken(user.ID, user.Email)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// AuthURL returns the Google consent URL for the given state.
func (s *Service) AuthURL(state string) (string, error) {
	if s.google == nil {
		return "", goerr.New("google oauth is not configured")
	}
	return s.google.AuthCodeURL(state), nil
}

// OAuthLogin exchanges an authorization code, fetches the Google profile, and
// signs the user in, creating the account on first sight.
func (s *Service) OAuthLogin(ctx context.Context, code string) (*types.User, string, error) {
	if s.google == nil {
		return nil, "", goerr.New("google oauth is not configured")
	}
	token, err := s.google.Exchange(ctx, code)
	if err != nil {
		return nil, "", goerr.Wrap(apperr.ErrInvalidCredentials, "oauth code exchange failed")
	}

	profile, err := s.fetchGoogleProfile(ctx, token)
	if err != nil {
		return nil, "", err
	}

	user, err := s.users.GetByEmail(ctx, profile.Email)
	if errors.Is(err, apperr.ErrUserNotFound) {
		user, err = s.users.Create(ctx, types.User{
			Email:         profile.Email,
			Name:          profile.Name,
			Avatar:        profile.Picture,
			EmailVerified: true,
		}, "")
	}
	if err != nil {
		return nil, "", err
	}

	session, err := s.IssueToken(user.ID, user.Email)
	if err != nil {
		return nil, "", err
	}
	return user, session, nil
}

type googleProfile struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (s *Service) fetchGoogleProfile(ctx context.Context, token *oauth2.Token) (*googleProfile, error) {
	resp, err := s.google.Client(ctx, token).Get(googleUserInfoURL)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch google profile")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read google profile")
	}
	var profile googleProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, goerr.Wrap(err, "failed to decode google profile")
	}
	if profile.Email == "" {
		return nil, goerr.New("google profile contained no email")
	}
	return &profile, nil
}

// IssueToken signs a session token for the user.
func (s *Service) IssueToken(userID, email string) (string, error) {
	now := time.Now()
	token, err := jwt.NewBuilder().
		Subject(userID).
		Claim("email", email).
		IssuedAt(now).
		Expiration(now.Add(s.ttl)).
		Build()
	if err != nil {
		return "", goerr.Wrap(err, "failed to build token")
	}
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, s.secret))
	if err != nil {
		return "", goerr.Wrap(err, "failed to sign token")
	}
	return string(signed), nil
}

// VerifyToken validates a signed token and returns its session.
func (s *Service) VerifyToken(raw string) (*Session, error) {
	token, err := jwt.Parse([]byte(raw), jwt.WithKey(jwa.HS256, s.secret), jwt.WithValidate(true))
	if err != nil {
		return nil, goerr.Wrap(apperr.ErrInvalidToken, "token rejected")
	}
	session := &Session{UserID: token.Subject()}
	if email, ok := token.Get("email"); ok {
		if v, ok := email.(string); ok {
			session.Email = v
		}
	}
	if session.UserID == "" {
		return nil, goerr.Wrap(apperr.ErrInvalidToken, "token missing subject")
	}
	return session, nil
}

// CurrentUser loads the full account for a session.
func (s *Service) CurrentUser(ctx context.Context, session *Session) (*types.User, error) {
	return s.users.GetByID(ctx, session.UserID)
}
