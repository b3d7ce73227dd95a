// Package schedule откладывает выполнение функций: time.AfterFunc в сервисе, ручные часы в тестах.
package schedule

import (
	"sort"
	"sync"
	"time"
)

// Scheduler выполняет f один раз после задержки d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func())
}

// Real: планировщик на time.AfterFunc.
type Real struct{}

// AfterFunc реализует Scheduler.
func (Real) AfterFunc(d time.Duration, f func()) {
	time.AfterFunc(d, f)
}

type pending struct {
	at  time.Duration
	seq int
	f   func()
}

// Manual: планировщик для тестов, время двигается только через Advance.
type Manual struct {
	mu    sync.Mutex
	now   time.Duration
	seq   int
	queue []pending
}

// NewManual создаёт ручной планировщик.
func NewManual() *Manual {
	return &Manual{}
}

// AfterFunc реализует Scheduler.
func (m *Manual) AfterFunc(d time.Duration, f func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.queue = append(m.queue, pending{at: m.now + d, seq: m.seq, f: f})
}

// Advance сдвигает время и синхронно выполняет всё, что успело наступить, в порядке срабатывания.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now += d
	var due []pending
	rest := m.queue[:0]
	for _, p := range m.queue {
		if p.at <= m.now {
			due = append(due, p)
		} else {
			rest = append(rest, p)
		}
	}
	m.queue = rest
	m.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].at != due[j].at {
			return due[i].at < due[j].at
		}
		return due[i].seq < due[j].seq
	})
	for _, p := range due {
		p.f()
	}
}

// Pending возвращает число ещё не сработавших таймеров.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}
