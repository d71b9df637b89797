package auth

import (
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoToken      = errors.New("no access token set")
	ErrInvalidToken = errors.New("access token has no usable user_id claim")
)

// TokenSource is the read-only view the stores and the API client get. They
// never mutate tokens themselves, only trigger Logout on the provider.
type TokenSource interface {
	Token() string
}

// Provider holds the current access/refresh token pair in memory and lets
// interested components watch for changes (login, logout). Persisting the
// pair across restarts is the embedding app's job.
type Provider struct {
	mu       sync.RWMutex
	access   string
	refresh  string
	watchers []chan struct{}

	logger *slog.Logger
}

func NewProvider(logger *slog.Logger) *Provider {
	return &Provider{logger: logger}
}

// Token returns the current access token, empty when logged out.
func (p *Provider) Token() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.access
}

func (p *Provider) RefreshToken() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.refresh
}

func (p *Provider) Authenticated() bool {
	return p.Token() != ""
}

// SetTokens installs a new token pair and wakes every watcher.
func (p *Provider) SetTokens(access, refresh string) {
	p.mu.Lock()
	p.access = strings.TrimSpace(access)
	p.refresh = strings.TrimSpace(refresh)
	p.mu.Unlock()
	p.notify()
}

// Logout drops both tokens. Callers treat this as unrecoverable for the
// current session; watchers see the change and reset their own state.
func (p *Provider) Logout() {
	p.mu.Lock()
	had := p.access != ""
	p.access = ""
	p.refresh = ""
	p.mu.Unlock()
	if had {
		p.logger.Info("auth: logged out")
	}
	p.notify()
}

// Changed returns a channel that receives after every token change. Each
// caller gets its own channel; notifications coalesce when the receiver
// lags.
func (p *Provider) Changed() <-chan struct{} {
	ch := make(chan struct{}, 1)
	p.mu.Lock()
	p.watchers = append(p.watchers, ch)
	p.mu.Unlock()
	return ch
}

func (p *Provider) notify() {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, ch := range p.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// UserID recovers the numeric user id from the access token's user_id claim.
// The client never holds the signing secret, so the claims are read without
// signature verification; the backend is the one enforcing validity.
func (p *Provider) UserID() (int, error) {
	tok := p.Token()
	if tok == "" {
		return 0, ErrNoToken
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return 0, err
	}

	raw, ok := claims["user_id"]
	if !ok {
		return 0, ErrInvalidToken
	}
	id, ok := raw.(float64)
	if !ok {
		return 0, ErrInvalidToken
	}
	return int(id), nil
}
