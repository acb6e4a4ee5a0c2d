// Package session keeps the bearer access token fresh. A Manager decodes the
// token's expiry, arms a timer ahead of it, refreshes through the auth
// endpoint, and tears the session down when refreshing is impossible.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"campusbook/pkg/logger"
	"campusbook/pkg/model"
	"campusbook/pkg/storage"
)

const (
	DefaultRefreshLead      = 5 * time.Minute
	DefaultPollInterval     = 60 * time.Second
	DefaultMalformedRecheck = 5 * time.Minute

	RootPath = "/"
)

type State int

const (
	StateIdle State = iota
	StateScheduled
	StateRefreshing
	StateLoggedOut
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScheduled:
		return "scheduled"
	case StateRefreshing:
		return "refreshing"
	case StateLoggedOut:
		return "logged_out"
	default:
		return "unknown"
	}
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*model.RefreshResult, error)
}

// LogoutHook performs the host's hard reset after the store is cleared,
// typically a full navigation to redirectTo.
type LogoutHook interface {
	OnLogout(ctx context.Context, redirectTo string, cause error)
}

type LogoutHookFunc func(ctx context.Context, redirectTo string, cause error)

func (f LogoutHookFunc) OnLogout(ctx context.Context, redirectTo string, cause error) {
	f(ctx, redirectTo, cause)
}

// Broadcaster tells other instances sharing the store that the session is gone.
type Broadcaster interface {
	BroadcastClear(ctx context.Context) error
}

type Status struct {
	State      State      `json:"state"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	Refreshing bool       `json:"refreshing"`
}

type Manager struct {
	store       storage.Store
	refresher   Refresher
	scheduler   Scheduler
	now         func() time.Time
	log         *logger.Logger
	hook        LogoutHook
	broadcaster Broadcaster

	refreshLead      time.Duration
	pollInterval     time.Duration
	malformedRecheck time.Duration

	refreshing atomic.Bool

	mu      sync.Mutex
	baseCtx context.Context
	state   State
	timer   Task
	poll    Task
	started bool
	stopped bool
	cache   expiryCache
	logouts uint64
}

type expiryCache struct {
	token  string
	expiry time.Time
	ok     bool
}

type Option func(*Manager)

func WithScheduler(s Scheduler) Option {
	return func(m *Manager) { m.scheduler = s }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithLogger(log *logger.Logger) Option {
	return func(m *Manager) { m.log = log }
}

func WithLogoutHook(h LogoutHook) Option {
	return func(m *Manager) { m.hook = h }
}

func WithBroadcaster(b Broadcaster) Option {
	return func(m *Manager) { m.broadcaster = b }
}

func WithRefreshLead(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.refreshLead = d
		}
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.pollInterval = d
		}
	}
}

func WithMalformedRecheck(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.malformedRecheck = d
		}
	}
}

func NewManager(store storage.Store, refresher Refresher, opts ...Option) *Manager {
	m := &Manager{
		store:            store,
		refresher:        refresher,
		scheduler:        NewTimeScheduler(),
		now:              time.Now,
		refreshLead:      DefaultRefreshLead,
		pollInterval:     DefaultPollInterval,
		malformedRecheck: DefaultMalformedRecheck,
		baseCtx:          context.Background(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = logger.Discard()
	}
	return m
}

// Start arms the fallback poll and runs the first expiry check. Calling it on
// a running manager does nothing; calling it after Stop or a logout starts
// over from Idle.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started && !m.stopped {
		m.mu.Unlock()
		return nil
	}
	// Timer callbacks outlive the caller's request, so drop its cancellation.
	m.baseCtx = context.WithoutCancel(ctx)
	m.started = true
	m.stopped = false
	m.state = StateIdle
	m.cache = expiryCache{}
	m.poll = m.scheduler.Every(m.pollInterval, m.onPoll)
	m.mu.Unlock()

	m.log.Info("Session manager started",
		"refresh_lead", m.refreshLead,
		"poll_interval", m.pollInterval,
	)
	return m.Check(ctx)
}

// Stop cancels pending timers and the poll. A refresh already in flight is
// allowed to finish and rotate the stored tokens, but nothing is re-armed and
// the logout hook is not called afterwards.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started || m.stopped {
		return
	}
	m.stopped = true
	m.stopTimersLocked()
	m.log.Info("Session manager stopped")
}

// Check decodes the stored access token and decides between doing nothing,
// refreshing now, or arming a timer.
func (m *Manager) Check(ctx context.Context) error {
	if !m.active() {
		return nil
	}

	token, err := storage.GetOptional(ctx, m.store, storage.KeyToken)
	if err != nil {
		return fmt.Errorf("failed to read access token: %w", err)
	}
	if token == "" {
		m.mu.Lock()
		m.cancelTimerLocked()
		m.state = StateIdle
		m.mu.Unlock()
		return nil
	}

	expiry, ok := m.expiryFor(token)
	if !ok {
		m.log.Warn("Access token expiry unreadable, rechecking later", "recheck_in", m.malformedRecheck)
		m.arm(m.malformedRecheck, m.onRecheck)
		return nil
	}

	remaining := expiry.Sub(m.now())
	if remaining <= m.refreshLead {
		return m.Refresh(ctx)
	}

	m.arm(remaining-m.refreshLead, m.onTimer)
	return nil
}

// Refresh exchanges the stored refresh token for a new token pair. A second
// call while one is in flight returns immediately without a network call.
// Any failure logs the session out and is returned. A logged-out manager
// refuses to refresh until it is started again, and a refresh overtaken by a
// logout discards the rotated pair.
func (m *Manager) Refresh(ctx context.Context) error {
	if !m.refreshing.CompareAndSwap(false, true) {
		m.log.Debug("Token refresh already in flight, skipping")
		return nil
	}
	defer m.refreshing.Store(false)

	m.mu.Lock()
	if m.state == StateLoggedOut {
		m.mu.Unlock()
		return ErrNoRefreshToken
	}
	m.state = StateRefreshing
	gen := m.logouts
	m.mu.Unlock()

	refreshToken, err := storage.GetOptional(ctx, m.store, storage.KeyRefreshToken)
	if err != nil {
		return m.Logout(ctx, fmt.Errorf("%w: %v", ErrNoRefreshToken, err))
	}
	if refreshToken == "" {
		return m.Logout(ctx, ErrNoRefreshToken)
	}

	result, err := m.refresher.Refresh(ctx, refreshToken)
	if m.loggedOutSince(gen) {
		m.log.Info("Session ended during token refresh, discarding result")
		return ErrSessionCleared
	}
	if err != nil {
		return m.Logout(ctx, fmt.Errorf("%w: %v", ErrRefreshRequestFailed, err))
	}
	if result == nil || result.Token == "" || result.RefreshToken == "" {
		return m.Logout(ctx, ErrMalformedToken)
	}

	expiry, ok := ExpiryFromToken(result.Token)

	// Held across the writes so a concurrent logout clears after them.
	m.mu.Lock()
	if m.logouts != gen {
		m.mu.Unlock()
		return ErrSessionCleared
	}
	if err := m.persist(ctx, result, expiry, ok); err != nil {
		m.mu.Unlock()
		return m.Logout(ctx, fmt.Errorf("failed to persist refreshed session: %w", err))
	}
	m.cache = expiryCache{token: result.Token, expiry: expiry, ok: ok}
	stopped := m.stopped
	m.mu.Unlock()

	m.log.Info("Access token refreshed", "expires_at", expiry, "expiry_known", ok)

	if stopped {
		return nil
	}
	m.rearmAfterRefresh(expiry, ok)
	return nil
}

// Establish stores a freshly issued token pair, as handed over after login,
// and starts (or re-evaluates) the lifecycle for it.
func (m *Manager) Establish(ctx context.Context, result *model.RefreshResult) error {
	if result == nil || result.Token == "" || result.RefreshToken == "" {
		return ErrMalformedToken
	}

	expiry, ok := ExpiryFromToken(result.Token)
	if err := m.persist(ctx, result, expiry, ok); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}

	m.mu.Lock()
	running := m.started && !m.stopped
	m.mu.Unlock()

	m.log.Info("Session established", "expires_at", expiry, "expiry_known", ok)
	if !running {
		return m.Start(ctx)
	}
	return m.Check(ctx)
}

// Foreground re-checks expiry when the host regains focus; timers may have
// been suspended while it was in the background.
func (m *Manager) Foreground(ctx context.Context) error {
	return m.Check(ctx)
}

func (m *Manager) VisibilityChanged(ctx context.Context, visible bool) error {
	if !visible {
		return nil
	}
	return m.Foreground(ctx)
}

// Logout clears every persisted session key, tells other instances, and
// hands control to the logout hook. It returns cause.
func (m *Manager) Logout(ctx context.Context, cause error) error {
	return m.logout(ctx, cause, true)
}

// HandleExternalClear logs out locally after another instance cleared the
// shared session. It does not broadcast again.
func (m *Manager) HandleExternalClear(ctx context.Context) error {
	m.mu.Lock()
	skip := !m.started || m.state == StateLoggedOut
	m.mu.Unlock()
	if skip {
		return nil
	}
	return m.logout(ctx, ErrSessionCleared, false)
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := Status{
		State:      m.state,
		Refreshing: m.refreshing.Load(),
	}
	if m.cache.ok && m.state != StateLoggedOut {
		exp := m.cache.expiry
		st.ExpiresAt = &exp
	}
	return st
}

func (m *Manager) logout(ctx context.Context, cause error, broadcast bool) error {
	m.mu.Lock()
	m.state = StateLoggedOut
	m.logouts++
	m.started = false
	m.cache = expiryCache{}
	m.stopTimersLocked()
	stopped := m.stopped
	m.mu.Unlock()

	m.log.Warn("Session ended, logging out", "reason", cause)

	if err := m.store.Clear(ctx); err != nil {
		m.log.Error("Failed to clear session store", "error", err)
	}
	if broadcast && m.broadcaster != nil {
		if err := m.broadcaster.BroadcastClear(ctx); err != nil {
			m.log.Error("Failed to broadcast session clear", "error", err)
		}
	}
	if !stopped && m.hook != nil {
		m.hook.OnLogout(ctx, RootPath, cause)
	}
	return cause
}

func (m *Manager) persist(ctx context.Context, result *model.RefreshResult, expiry time.Time, ok bool) error {
	if err := m.store.Set(ctx, storage.KeyToken, result.Token); err != nil {
		return err
	}
	if err := m.store.Set(ctx, storage.KeyRefreshToken, result.RefreshToken); err != nil {
		return err
	}
	if len(result.User) > 0 && string(result.User) != "null" {
		if err := m.store.Set(ctx, storage.KeyUser, string(result.User)); err != nil {
			return err
		}
	}
	if ok {
		return m.store.Set(ctx, storage.KeyTokenExpiry, strconv.FormatInt(expiry.UnixMilli(), 10))
	}
	return m.store.Remove(ctx, storage.KeyTokenExpiry)
}

// rearmAfterRefresh never refreshes synchronously; a token that is already
// inside the lead window is left to the next poll so that a backend issuing
// short tokens cannot drive a refresh loop.
func (m *Manager) rearmAfterRefresh(expiry time.Time, ok bool) {
	if !ok {
		m.log.Warn("Refreshed token expiry unreadable, rechecking later", "recheck_in", m.malformedRecheck)
		m.arm(m.malformedRecheck, m.onRecheck)
		return
	}
	remaining := expiry.Sub(m.now())
	if remaining <= m.refreshLead {
		m.log.Warn("Refreshed token already inside refresh window", "remaining", remaining)
		m.mu.Lock()
		m.cancelTimerLocked()
		m.state = StateScheduled
		m.mu.Unlock()
		return
	}
	m.arm(remaining-m.refreshLead, m.onTimer)
}

func (m *Manager) expiryFor(token string) (time.Time, bool) {
	m.mu.Lock()
	if m.cache.token == token {
		c := m.cache
		m.mu.Unlock()
		return c.expiry, c.ok
	}
	m.mu.Unlock()

	expiry, ok := ExpiryFromToken(token)

	m.mu.Lock()
	m.cache = expiryCache{token: token, expiry: expiry, ok: ok}
	m.mu.Unlock()
	return expiry, ok
}

func (m *Manager) arm(d time.Duration, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started || m.stopped {
		return
	}
	m.cancelTimerLocked()
	m.timer = m.scheduler.AfterFunc(d, fn)
	m.state = StateScheduled
}

func (m *Manager) onTimer() {
	if err := m.Refresh(m.context()); err != nil && !isSessionEnd(err) {
		m.log.Error("Scheduled token refresh failed", "error", err)
	}
}

func (m *Manager) onRecheck() {
	if err := m.Check(m.context()); err != nil && !isSessionEnd(err) {
		m.log.Error("Token recheck failed", "error", err)
	}
}

func (m *Manager) onPoll() {
	if err := m.Check(m.context()); err != nil && !isSessionEnd(err) {
		m.log.Error("Token poll failed", "error", err)
	}
}

func (m *Manager) context() context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.baseCtx
}

func (m *Manager) active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started && !m.stopped
}

func (m *Manager) loggedOutSince(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.logouts != gen
}

func (m *Manager) cancelTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Manager) stopTimersLocked() {
	m.cancelTimerLocked()
	if m.poll != nil {
		m.poll.Stop()
		m.poll = nil
	}
}

// isSessionEnd reports errors that already triggered a logout and were
// logged there.
func isSessionEnd(err error) bool {
	return errors.Is(err, ErrNoRefreshToken) ||
		errors.Is(err, ErrRefreshRequestFailed) ||
		errors.Is(err, ErrMalformedToken) ||
		errors.Is(err, ErrSessionCleared)
}
