package sap

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// SessionManager owns the one ERP session the process holds. Ensure
// hands out a session id: the first call and every call after the TTL
// elapses perform a full login; calls inside the TTL window validate
// the cached id with the cheap company-info probe and only re-login if
// the probe fails. Concurrent refreshes collapse into a single login.
type SessionManager struct {
	client *Client
	ttl    time.Duration

	group singleflight.Group

	mu        sync.Mutex
	id        string
	createdAt time.Time
}

func newSessionManager(client *Client, ttl time.Duration) *SessionManager {
	return &SessionManager{client: client, ttl: ttl}
}

// Ensure returns a session id that the ERP currently accepts.
func (m *SessionManager) Ensure(ctx context.Context) (string, error) {
	m.mu.Lock()
	id := m.id
	fresh := id != "" && time.Since(m.createdAt) <= m.ttl
	m.mu.Unlock()

	if fresh {
		if err := m.client.validateSession(ctx, id); err == nil {
			return id, nil
		}
		m.client.log.Warn("cached erp session rejected, re-authenticating")
	}
	return m.refresh(ctx, id)
}

// Invalidate drops the cached session so the next Ensure performs a
// full login.
func (m *SessionManager) Invalidate() {
	m.mu.Lock()
	m.id = ""
	m.createdAt = time.Time{}
	m.mu.Unlock()
}

// Logout releases the cached session server-side and forgets it.
func (m *SessionManager) Logout(ctx context.Context) {
	m.mu.Lock()
	id := m.id
	m.id = ""
	m.createdAt = time.Time{}
	m.mu.Unlock()

	if id != "" {
		m.client.logout(ctx, id)
	}
}

// refresh logs in through a singleflight group so that any number of
// concurrent callers trigger at most one login. stale is the id the
// caller found unusable; if another caller already replaced it, the
// replacement is reused without a second login.
func (m *SessionManager) refresh(ctx context.Context, stale string) (string, error) {
	v, err, _ := m.group.Do("login", func() (interface{}, error) {
		m.mu.Lock()
		if m.id != "" && m.id != stale && time.Since(m.createdAt) <= m.ttl {
			id := m.id
			m.mu.Unlock()
			return id, nil
		}
		m.mu.Unlock()

		id, err := m.client.login(ctx)
		if err != nil {
			return "", err
		}

		m.mu.Lock()
		m.id = id
		m.createdAt = time.Now()
		m.mu.Unlock()
		return id, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}
