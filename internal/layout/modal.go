package layout

import "sync"

// CloseReason tells how a modal was dismissed.
type CloseReason int

const (
	Backdrop CloseReason = iota + 1
	CloseButton
	Escape
	Unmount
)

func (r CloseReason) String() string {
	switch r {
	case Backdrop:
		return "backdrop"
	case CloseButton:
		return "close-button"
	case Escape:
		return "escape"
	case Unmount:
		return "unmount"
	default:
		return "unknown"
	}
}

// ScrollLock disables page scrolling while at least one holder has it.
type ScrollLock struct {
	mu    sync.Mutex
	count int
	// onChange is called with true when the first holder acquires and false when the last releases.
	onChange func(locked bool)
}

// NewScrollLock returns a lock that reports transitions to onChange, which may be nil.
func NewScrollLock(onChange func(locked bool)) *ScrollLock {
	return &ScrollLock{onChange: onChange}
}

// Acquire takes a reference and returns its release func. Calling release more than once is a no-op.
func (l *ScrollLock) Acquire() (release func()) {
	l.mu.Lock()
	l.count++
	if l.count == 1 && l.onChange != nil {
		l.onChange(true)
	}
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.count--
			if l.count == 0 && l.onChange != nil {
				l.onChange(false)
			}
		})
	}
}

// Locked reports whether scrolling is currently disabled.
func (l *ScrollLock) Locked() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count > 0
}

// Modal is the detail viewer. It holds the scroll lock from Open until the first Close.
type Modal struct {
	lock *ScrollLock

	mu      sync.Mutex
	release func()
	closed  CloseReason
}

// NewModal binds a modal to lock.
func NewModal(lock *ScrollLock) *Modal { return &Modal{lock: lock} }

// Open shows the modal. Opening an open modal does nothing.
func (m *Modal) Open() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.release != nil {
		return
	}
	m.release = m.lock.Acquire()
	m.closed = 0
}

// IsOpen reports whether the modal currently holds the lock.
func (m *Modal) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.release != nil
}

// Close hides the modal and releases the lock. Only the first call after Open has any effect;
// it returns false otherwise.
func (m *Modal) Close(reason CloseReason) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.release == nil {
		return false
	}
	m.release()
	m.release = nil
	m.closed = reason
	return true
}

// ClosedBy is the reason passed to the last effective Close, or zero.
func (m *Modal) ClosedBy() CloseReason {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// KeyCloses maps a key name to a close reason. Only Escape dismisses the modal.
func KeyCloses(key string) (CloseReason, bool) {
	if key == "Escape" || key == "Esc" {
		return Escape, true
	}
	return 0, false
}
