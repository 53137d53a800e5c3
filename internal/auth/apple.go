package auth

import (
	"context"
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"net/url"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/oauth2"

	"github.com/amoralabs/amora/internal/apperr"
	"github.com/amoralabs/amora/internal/types"
)

const (
	appleAuthURL  = "https://appleid.apple.com/auth/authorize"
	appleTokenURL = "https://appleid.apple.com/auth/token"
	appleKeysURL  = "https://appleid.apple.com/auth/keys"
	appleIssuer   = "https://appleid.apple.com"

	// Apple allows up to six months; one secret is signed per exchange.
	appleSecretTTL = 5 * time.Minute
)

// appleConfig is the Sign in with Apple credential set: the services ID, the
// developer team, and the ES256 key Apple issued for it.
type appleConfig struct {
	clientID    string
	teamID      string
	keyID       string
	key         *ecdsa.PrivateKey
	redirectURL string
}

func parseApplePrivateKey(pemData string) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, goerr.New("apple private key is not PEM encoded")
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse apple private key")
	}
	key, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, goerr.New("apple private key is not an EC key")
	}
	return key, nil
}

// AppleAuthURL returns the Apple consent URL for the given state. Apple
// requires form_post when name or email scopes are requested, so the callback
// arrives as a POST.
func (s *Service) AppleAuthURL(state string) (string, error) {
	if s.apple == nil {
		return "", goerr.New("apple sign-in is not configured")
	}
	query := url.Values{
		"response_type": {"code"},
		"response_mode": {"form_post"},
		"client_id":     {s.apple.clientID},
		"redirect_uri":  {s.apple.redirectURL},
		"scope":         {"name email"},
		"state":         {state},
	}
	return appleAuthURL + "?" + query.Encode(), nil
}

// appleClientSecret signs the short-lived JWT Apple accepts in place of a
// static client secret: ES256, kid header, team ID as issuer, services ID as
// subject.
func (s *Service) appleClientSecret(now time.Time) (string, error) {
	token, err := jwt.NewBuilder().
		Issuer(s.apple.teamID).
		Subject(s.apple.clientID).
		Audience([]string{appleIssuer}).
		IssuedAt(now).
		Expiration(now.Add(appleSecretTTL)).
		Build()
	if err != nil {
		return "", goerr.Wrap(err, "failed to build apple client secret")
	}
	headers := jws.NewHeaders()
	if err := headers.Set(jws.KeyIDKey, s.apple.keyID); err != nil {
		return "", goerr.Wrap(err, "failed to set apple key id")
	}
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.ES256, s.apple.key, jws.WithProtectedHeaders(headers)))
	if err != nil {
		return "", goerr.Wrap(err, "failed to sign apple client secret")
	}
	return string(signed), nil
}

// AppleLogin exchanges an authorization code, verifies the returned identity
// token against Apple's published keys, and signs the user in, creating the
// account on first sight. The name only arrives on the first authorization,
// so the callback passes it through.
func (s *Service) AppleLogin(ctx context.Context, code, name string) (*types.User, string, error) {
	if s.apple == nil {
		return nil, "", goerr.New("apple sign-in is not configured")
	}
	secret, err := s.appleClientSecret(time.Now())
	if err != nil {
		return nil, "", err
	}

	conf := &oauth2.Config{
		ClientID:     s.apple.clientID,
		ClientSecret: secret,
		RedirectURL:  s.apple.redirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:   appleAuthURL,
			TokenURL:  appleTokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	token, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, "", goerr.Wrap(apperr.ErrInvalidCredentials, "apple code exchange failed")
	}
	idToken, _ := token.Extra("id_token").(string)
	if idToken == "" {
		return nil, "", goerr.Wrap(apperr.ErrInvalidCredentials, "apple response contained no identity token")
	}

	email, err := s.verifyAppleIdentity(ctx, idToken)
	if err != nil {
		return nil, "", err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, apperr.ErrUserNotFound) {
		user, err = s.users.Create(ctx, types.User{
			Email:         email,
			Name:          name,
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

// verifyAppleIdentity validates the id_token signature against Apple's JWKS
// and returns the email claim.
func (s *Service) verifyAppleIdentity(ctx context.Context, idToken string) (string, error) {
	keys, err := s.fetchAppleKeys(ctx)
	if err != nil {
		return "", goerr.Wrap(err, "failed to fetch apple signing keys")
	}
	token, err := jwt.Parse([]byte(idToken),
		jwt.WithKeySet(keys),
		jwt.WithValidate(true),
		jwt.WithIssuer(appleIssuer),
		jwt.WithAudience(s.apple.clientID),
	)
	if err != nil {
		return "", goerr.Wrap(apperr.ErrInvalidCredentials, "apple identity token rejected")
	}
	email, _ := token.Get("email")
	v, ok := email.(string)
	if !ok || v == "" {
		return "", goerr.Wrap(apperr.ErrInvalidCredentials, "apple identity token contained no email")
	}
	return v, nil
}
