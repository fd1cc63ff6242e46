package crdt

import (
	"sync"
	"time"
)

// Clock выдает строго возрастающие метки времени для локальных записей.
// Две записи подряд никогда не получат одинаковый UpdatedAt, даже если системные часы
// не успели сдвинуться или откатились назад.
type Clock struct {
	last time.Time        // последняя выданная метка
	now  func() time.Time // источник физического времени
	mu   sync.Mutex
}

// NewClock создает часы на системном времени.
func NewClock() *Clock {
	return NewClockWithSource(time.Now)
}

// NewClockWithSource создает часы с заданным источником времени.
func NewClockWithSource(now func() time.Time) *Clock {
	return &Clock{now: now}
}

// Tick возвращает новую метку времени в UTC, строго большую предыдущей.
func (c *Clock) Tick() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC()
	if !t.After(c.last) {
		t = c.last.Add(time.Nanosecond)
	}
	c.last = t
	return t
}

// Observe учитывает метку, полученную от другого узла: следующий Tick будет больше нее.
func (c *Clock) Observe(remote time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if remote.After(c.last) {
		c.last = remote.UTC()
	}
}
