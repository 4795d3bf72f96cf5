// Package timing records phase durations and discrete events of a run.
package timing

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// AtomicDuration allows for atomic updates to a time.Duration value.
type AtomicDuration int64

func (a *AtomicDuration) Add(d time.Duration) {
	atomic.AddInt64((*int64)(a), int64(d))
}

func (a *AtomicDuration) Since(start time.Time) {
	a.Add(time.Since(start))
}

func (a *AtomicDuration) Duration() time.Duration {
	return time.Duration(atomic.LoadInt64((*int64)(a)))
}

type Event struct {
	Time time.Time
	Text string
}

// Timings accumulates named phase durations and events. It is safe for
// concurrent use; a nil *Timings records nothing.
type Timings struct {
	Start time.Time

	mu     sync.Mutex
	order  []string
	phases map[string]*AtomicDuration
	events []Event
}

func New() *Timings {
	return &Timings{
		Start:  time.Now(),
		phases: make(map[string]*AtomicDuration),
	}
}

func (t *Timings) phase(name string) *AtomicDuration {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.phases[name]
	if !ok {
		d = new(AtomicDuration)
		t.phases[name] = d
		t.order = append(t.order, name)
	}
	return d
}

// Since adds the time elapsed from start to the named phase.
func (t *Timings) Since(name string, start time.Time) {
	if t == nil {
		return
	}
	t.phase(name).Since(start)
}

func (t *Timings) Phase(name string) time.Duration {
	if t == nil {
		return 0
	}
	return t.phase(name).Duration()
}

func (t *Timings) Event(text string) {
	if t == nil {
		return
	}
	now := time.Now()
	t.mu.Lock()
	t.events = append(t.events, Event{Time: now, Text: text})
	t.mu.Unlock()
}

// Events returns the recorded events ordered by time.
func (t *Timings) Events() []Event {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	events := append([]Event(nil), t.events...)
	t.mu.Unlock()

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Time.Before(events[j].Time)
	})
	return events
}

// Report logs every phase in first-use order followed by the total.
func (t *Timings) Report(logger *zap.Logger) {
	if t == nil || logger == nil {
		return
	}
	t.mu.Lock()
	order := append([]string(nil), t.order...)
	t.mu.Unlock()

	fields := make([]zap.Field, 0, len(order)+1)
	for _, name := range order {
		fields = append(fields, zap.Duration(name, t.Phase(name)))
	}
	fields = append(fields, zap.Duration("total", time.Since(t.Start)))
	logger.Info("timings", fields...)
}
