package conversation

import "sync"

// SessionLocker serializes turns for the same session inside one instance.
// Cross-instance races are caught by the version-checked session update.
type SessionLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewSessionLocker() *SessionLocker {
	return &SessionLocker{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the per-session mutex, creating it on first use, and
// returns the unlock function.
func (l *SessionLocker) Lock(sessionKey string) func() {
	l.mu.Lock()
	m, ok := l.locks[sessionKey]
	if !ok {
		m = &sync.Mutex{}
		l.locks[sessionKey] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
