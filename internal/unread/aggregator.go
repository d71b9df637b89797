package unread

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"stumart/internal/auth"
)

// CountsAPI is the slice of the REST client the aggregator needs.
type CountsAPI interface {
	ChatUnreadCount(ctx context.Context) (int, error)
	NotificationsUnreadCount(ctx context.Context) (int, error)
	ResetNotificationsUnread(ctx context.Context) error
}

// Aggregator is the process-wide unread counter: chat messages plus
// notifications, independent of whichever screen is mounted. It refreshes on
// a fixed interval, on token changes, and whenever chat flows ask it to.
type Aggregator struct {
	api    CountsAPI
	tokens auth.TokenSource
	logger *slog.Logger

	mu         sync.RWMutex
	chatCount  int
	notifCount int
	onChange   func()
}

func New(api CountsAPI, tokens auth.TokenSource, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		api:    api,
		tokens: tokens,
		logger: logger,
	}
}

func (a *Aggregator) SetOnChange(fn func()) {
	a.mu.Lock()
	a.onChange = fn
	a.mu.Unlock()
}

func (a *Aggregator) ChatCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.chatCount
}

func (a *Aggregator) NotificationCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.notifCount
}

// Total is what the badge shows.
func (a *Aggregator) Total() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.chatCount + a.notifCount
}

// Refresh recounts both sources. Without a token it is a silent no-op (not
// authenticated, not an error). A failed fetch keeps the previous count;
// nothing here is ever surfaced to the user.
func (a *Aggregator) Refresh(ctx context.Context) {
	if a.tokens.Token() == "" {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		count, err := a.api.ChatUnreadCount(gctx)
		if err != nil {
			a.logger.Error("unread: chat count refresh failed", "err", err)
			return nil
		}
		a.mu.Lock()
		a.chatCount = count
		a.mu.Unlock()
		return nil
	})
	g.Go(func() error {
		count, err := a.api.NotificationsUnreadCount(gctx)
		if err != nil {
			a.logger.Error("unread: notification count refresh failed", "err", err)
			return nil
		}
		a.mu.Lock()
		a.notifCount = count
		a.mu.Unlock()
		return nil
	})
	_ = g.Wait()
	a.notify()
}

// ResetNotifications clears the server-side notification counter and, on
// success, the local one.
func (a *Aggregator) ResetNotifications(ctx context.Context) error {
	if a.tokens.Token() == "" {
		return nil
	}
	if err := a.api.ResetNotificationsUnread(ctx); err != nil {
		a.logger.Error("unread: reset failed", "err", err)
		return fmt.Errorf("resetting notifications: %w", err)
	}
	a.mu.Lock()
	a.notifCount = 0
	a.mu.Unlock()
	a.notify()
	return nil
}

// ResetLocal zeroes both counts without touching the server (logout path).
func (a *Aggregator) ResetLocal() {
	a.mu.Lock()
	a.chatCount = 0
	a.notifCount = 0
	a.mu.Unlock()
	a.notify()
}

// Run polls while the context lives: an immediate refresh, then one per
// interval, plus one on every token change. Logout resets the counts
// locally instead.
func (a *Aggregator) Run(ctx context.Context, every time.Duration, tokenChanged <-chan struct{}) {
	a.Refresh(ctx)

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.Refresh(ctx)
		case <-tokenChanged:
			if a.tokens.Token() == "" {
				a.ResetLocal()
			} else {
				a.Refresh(ctx)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (a *Aggregator) notify() {
	a.mu.RLock()
	fn := a.onChange
	a.mu.RUnlock()
	if fn != nil {
		fn()
	}
}
