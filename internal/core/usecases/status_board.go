package usecases

import (
	"sync"
	"time"

	"github.com/juju/clock"

	"github.com/samirrijal/mapsurvey/internal/core/domain"
)

// StatusBoard holds the persistent status indicator and the transient notice.
type StatusBoard struct {
	mu       sync.Mutex
	clock    clock.Clock
	status   domain.Status
	notice   *domain.Notice
	timer    clock.Timer
	onChange func()
}

// NewStatusBoard starts in the ok state.
func NewStatusBoard(clk clock.Clock) *StatusBoard {
	if clk == nil {
		clk = clock.WallClock
	}
	return &StatusBoard{
		clock:  clk,
		status: domain.Status{Level: domain.StatusOK, Text: "Ready"},
	}
}

// OnChange registers a callback run after every status or notice change.
func (b *StatusBoard) OnChange(fn func()) {
	b.mu.Lock()
	b.onChange = fn
	b.mu.Unlock()
}

// Set replaces the persistent indicator.
func (b *StatusBoard) Set(level domain.StatusLevel, text string) {
	b.mu.Lock()
	b.status = domain.Status{Level: level, Text: text}
	fn := b.onChange
	b.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Status returns the persistent indicator.
func (b *StatusBoard) Status() domain.Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// Notify shows a toast that dismisses itself after d. A newer toast replaces
// the current one and its timer.
func (b *StatusBoard) Notify(kind domain.NoticeKind, text string, d time.Duration) {
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
	}
	n := &domain.Notice{Kind: kind, Text: text, ExpiresAt: b.clock.Now().Add(d)}
	b.notice = n
	b.timer = b.clock.AfterFunc(d, func() { b.dismiss(n) })
	fn := b.onChange
	b.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (b *StatusBoard) dismiss(n *domain.Notice) {
	b.mu.Lock()
	if b.notice != n {
		b.mu.Unlock()
		return
	}
	b.notice = nil
	b.timer = nil
	fn := b.onChange
	b.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Notice returns a copy of the active toast, or nil.
func (b *StatusBoard) Notice() *domain.Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.notice == nil {
		return nil
	}
	n := *b.notice
	return &n
}
