// Package session keeps the signed-in user's tokens: the identity token
// sent to the backend and the refresh token used to renew it.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/golang/glog"
	"golang.org/x/oauth2"

	"todosync/internal/config"
	"todosync/internal/service"
)

// expirySkew renews the identity token slightly before it expires.
const expirySkew = time.Minute

// UsernameClaim is the identity token claim holding the username.
const UsernameClaim = "cognito:username"

// storedToken is the token file layout.
type storedToken struct {
	oauth2.Token
	IDToken string `json:"id_token"`
}

// Provider implements service.Session backed by a token file.
type Provider struct {
	oauth *oauth2.Config
	path  string
	now   func() time.Time

	mu       sync.Mutex
	token    *oauth2.Token
	idToken  string
	username string
	expiry   time.Time
}

// OAuthConfig returns the OAuth client configuration for the hosted UI.
func OAuthConfig(s config.Settings) *oauth2.Config {
	return &oauth2.Config{
		ClientID: s.ClientID,
		Scopes:   s.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   s.AuthorizeURL(),
			TokenURL:  s.TokenURL(),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// NewProvider creates a provider for the token file at path. Call Load to
// read an existing session.
func NewProvider(oauthConfig *oauth2.Config, path string) *Provider {
	return &Provider{
		oauth: oauthConfig,
		path:  path,
		now:   time.Now,
	}
}

// Open creates a provider from the config and loads its session.
func Open(cfg *config.Config) (*Provider, error) {
	p := NewProvider(OAuthConfig(cfg.Settings), cfg.TokenPath())
	if err := p.Load(); err != nil {
		return nil, err
	}
	return p, nil
}

// Load reads the token file. A missing or unusable file is
// ErrNotAuthenticated.
func (p *Provider) Load() error {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("not logged in (run: todosync login): %w", service.ErrNotAuthenticated)
	}
	if err != nil {
		return fmt.Errorf("failed to read token.json: %w", err)
	}

	var st storedToken
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("invalid token.json: %v: %w", err, service.ErrNotAuthenticated)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.setLocked(&st.Token, st.IDToken)
}

// Save stores a token obtained from the authorization code exchange. The
// token must carry an id_token.
func (p *Provider) Save(tok *oauth2.Token) error {
	idToken, _ := tok.Extra("id_token").(string)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.setLocked(tok, idToken); err != nil {
		return err
	}
	return p.writeLocked()
}

// Token returns the identity token, refreshing it first when it has expired.
func (p *Provider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.idToken == "" {
		return "", fmt.Errorf("not logged in (run: todosync login): %w", service.ErrNotAuthenticated)
	}
	if !p.expiry.IsZero() && !p.now().Add(expirySkew).Before(p.expiry) {
		glog.V(1).Infof("[session]identity token expired, refreshing")
		if err := p.refreshLocked(ctx); err != nil {
			return "", fmt.Errorf("session expired (run: todosync login): %v: %w", err, service.ErrNotAuthenticated)
		}
	}
	return p.idToken, nil
}

// Refresh exchanges the refresh token for a new identity token.
func (p *Provider) Refresh(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.refreshLocked(ctx)
}

// Username returns the signed-in user's name, or "" when signed out.
func (p *Provider) Username() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.username
}

// Expiry returns the identity token expiry.
func (p *Provider) Expiry() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.expiry
}

// Logout discards the session and removes the token file.
func (p *Provider) Logout() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.token = nil
	p.idToken = ""
	p.username = ""
	p.expiry = time.Time{}

	if err := os.Remove(p.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (p *Provider) refreshLocked(ctx context.Context) error {
	if p.token == nil || p.token.RefreshToken == "" {
		return fmt.Errorf("no refresh token: %w", service.ErrRefreshFailed)
	}
	refreshToken := p.token.RefreshToken

	// Only the refresh token is passed so the token source always performs
	// the refresh grant.
	tok, err := p.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return fmt.Errorf("%v: %w", err, service.ErrRefreshFailed)
	}
	idToken, _ := tok.Extra("id_token").(string)
	if tok.RefreshToken == "" {
		tok.RefreshToken = refreshToken
	}

	if err := p.setLocked(tok, idToken); err != nil {
		return fmt.Errorf("%v: %w", err, service.ErrRefreshFailed)
	}
	if err := p.writeLocked(); err != nil {
		return fmt.Errorf("save token: %v: %w", err, service.ErrRefreshFailed)
	}
	glog.V(1).Infof("[session]refreshed, expires %s", p.expiry.Format(time.RFC3339))
	return nil
}

func (p *Provider) setLocked(tok *oauth2.Token, idToken string) error {
	if idToken == "" {
		return fmt.Errorf("token has no id_token: %w", service.ErrNotAuthenticated)
	}
	username, expiry, err := parseIDToken(idToken)
	if err != nil {
		return fmt.Errorf("invalid id_token: %v: %w", err, service.ErrNotAuthenticated)
	}
	p.token = tok
	p.idToken = idToken
	p.username = username
	p.expiry = expiry
	return nil
}

func (p *Provider) writeLocked() error {
	data, err := json.MarshalIndent(storedToken{Token: *p.token, IDToken: p.idToken}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p.path, data, 0600)
}

// parseIDToken reads the username and expiry claims. The signature is not
// verified; the backend verifies every request.
func parseIDToken(idToken string) (string, time.Time, error) {
	claims := gojwt.MapClaims{}
	if _, _, err := gojwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return "", time.Time{}, err
	}

	username, ok := claims[UsernameClaim].(string)
	if !ok || username == "" {
		return "", time.Time{}, fmt.Errorf("missing %s claim", UsernameClaim)
	}

	var expiry time.Time
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return "", time.Time{}, err
	}
	if exp != nil {
		expiry = exp.Time
	}
	return username, expiry, nil
}
