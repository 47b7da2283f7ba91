// Package attention provides a placeholder attention source. It does not
// analyse camera frames; it samples a posture at a fixed interval so the
// shell has a live signal to render.
package attention

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"mockinterview/internal/domain"
	"mockinterview/internal/ports"
)

const (
	PostureUpright  = "upright"
	PostureLeaning  = "leaning"
	PostureSlouched = "slouched"
)

// Monitor implements ports.AttentionMonitor.
type Monitor struct {
	clock    ports.Clock
	interval time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

func New(clock ports.Clock, interval time.Duration, seed uint64) *Monitor {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Monitor{
		clock:    clock,
		interval: interval,
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Watch emits one signal per interval until ctx is done, then closes the
// channel. Signals are dropped while the consumer lags.
func (m *Monitor) Watch(ctx context.Context) <-chan domain.Attention {
	out := make(chan domain.Attention, 1)

	var (
		mu     sync.Mutex
		timer  ports.Timer
		closed bool
		tick   func()
	)
	tick = func() {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case out <- m.sample():
		default:
		}
		timer = m.clock.AfterFunc(m.interval, tick)
	}

	mu.Lock()
	timer = m.clock.AfterFunc(m.interval, tick)
	mu.Unlock()

	go func() {
		<-ctx.Done()
		mu.Lock()
		defer mu.Unlock()
		closed = true
		timer.Stop()
		close(out)
	}()
	return out
}

func (m *Monitor) sample() domain.Attention {
	m.mu.Lock()
	defer m.mu.Unlock()

	posture := PostureUpright
	switch r := m.rng.Float64(); {
	case r >= 0.9:
		posture = PostureSlouched
	case r >= 0.7:
		posture = PostureLeaning
	}
	return domain.Attention{
		Posture: posture,
		Focused: posture == PostureUpright || m.rng.Float64() < 0.5,
		At:      m.clock.Now(),
	}
}
