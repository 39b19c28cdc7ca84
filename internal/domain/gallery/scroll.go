package gallery

import "sync"

// ScrollLock suppresses page scrolling while at least one slideshow holds
// it. onChange fires on the 0->1 and 1->0 transitions only.
type ScrollLock struct {
	mu       sync.Mutex
	holders  int
	onChange func(locked bool)
}

// NewScrollLock creates a released lock. onChange may be nil.
func NewScrollLock(onChange func(locked bool)) *ScrollLock {
	return &ScrollLock{onChange: onChange}
}

// Acquire adds a holder
func (l *ScrollLock) Acquire() {
	l.mu.Lock()
	l.holders++
	first := l.holders == 1
	l.mu.Unlock()

	if first && l.onChange != nil {
		l.onChange(true)
	}
}

// Release drops a holder. Extra releases are ignored.
func (l *ScrollLock) Release() {
	l.mu.Lock()
	if l.holders == 0 {
		l.mu.Unlock()
		return
	}
	l.holders--
	last := l.holders == 0
	l.mu.Unlock()

	if last && l.onChange != nil {
		l.onChange(false)
	}
}

// Locked reports whether anyone holds the lock
func (l *ScrollLock) Locked() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.holders > 0
}

// Holders is the current reference count
func (l *ScrollLock) Holders() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.holders
}
