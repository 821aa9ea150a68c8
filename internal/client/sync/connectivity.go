package sync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/iudanet/gophsync/pkg/api"
)

//go:generate moq -out connectivity_mock.go . HealthChecker

// Connectivity источник сигнала online/offline
type Connectivity interface {
	// IsOnline возвращает текущее состояние сети
	IsOnline() bool

	// Subscribe подписывает на изменения состояния, возвращает функцию отписки
	Subscribe(listener func(online bool)) (unsubscribe func())
}

// StaticConnectivity состояние сети, задаваемое вручную.
// Используется в headless режиме и тестах для детерминированных переходов.
type StaticConnectivity struct {
	listeners *listenerSet[bool]
	mu        sync.Mutex
	online    bool
}

var _ Connectivity = (*StaticConnectivity)(nil)

// NewStaticConnectivity создает источник с начальным состоянием online
func NewStaticConnectivity(online bool) *StaticConnectivity {
	return &StaticConnectivity{
		listeners: newListenerSet[bool](),
		online:    online,
	}
}

// IsOnline возвращает текущее состояние
func (c *StaticConnectivity) IsOnline() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.online
}

// SetOnline меняет состояние и уведомляет подписчиков, если оно изменилось
func (c *StaticConnectivity) SetOnline(online bool) {
	c.mu.Lock()
	changed := c.online != online
	c.online = online
	c.mu.Unlock()

	if changed {
		c.listeners.notify(online)
	}
}

// Subscribe подписывает на изменения состояния
func (c *StaticConnectivity) Subscribe(listener func(online bool)) func() {
	return c.listeners.add(listener)
}

// HealthChecker проверка доступности координатора (реализуется api.Client)
type HealthChecker interface {
	Health(ctx context.Context) (*api.HealthResponse, error)
}

// ProbeConnectivity определяет доступность координатора периодическим
// запросом /api/v1/health.
type ProbeConnectivity struct {
	checker   HealthChecker
	clock     clockwork.Clock
	logger    *slog.Logger
	listeners *listenerSet[bool]
	cancel    context.CancelFunc
	done      chan struct{}
	interval  time.Duration
	timeout   time.Duration
	mu        sync.Mutex
	online    bool
}

var _ Connectivity = (*ProbeConnectivity)(nil)

// ProbeOption настраивает ProbeConnectivity
type ProbeOption func(*ProbeConnectivity)

// WithProbeClock задает источник времени для тикера проверок
func WithProbeClock(clock clockwork.Clock) ProbeOption {
	return func(p *ProbeConnectivity) {
		p.clock = clock
	}
}

// WithProbeTimeout задает таймаут одной проверки
func WithProbeTimeout(timeout time.Duration) ProbeOption {
	return func(p *ProbeConnectivity) {
		p.timeout = timeout
	}
}

// NewProbeConnectivity создает источник, опрашивающий координатор с интервалом interval.
// До первой проверки состояние считается offline.
func NewProbeConnectivity(checker HealthChecker, interval time.Duration, logger *slog.Logger, opts ...ProbeOption) *ProbeConnectivity {
	p := &ProbeConnectivity{
		checker:   checker,
		clock:     clockwork.NewRealClock(),
		logger:    logger,
		listeners: newListenerSet[bool](),
		interval:  interval,
		timeout:   DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start выполняет первую проверку и запускает периодический опрос
func (p *ProbeConnectivity) Start(ctx context.Context) {
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	done := p.done
	p.mu.Unlock()

	p.Probe(ctx)

	go func() {
		defer close(done)

		ticker := p.clock.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				p.Probe(ctx)
			}
		}
	}()
}

// Stop останавливает опрос и дожидается завершения горутины
func (p *ProbeConnectivity) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Probe выполняет одну проверку и возвращает новое состояние
func (p *ProbeConnectivity) Probe(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	_, err := p.checker.Health(probeCtx)
	online := err == nil
	if err != nil {
		p.logger.Debug("Coordinator health check failed", "error", err)
	}

	p.mu.Lock()
	changed := p.online != online
	p.online = online
	p.mu.Unlock()

	if changed {
		p.logger.Info("Connectivity changed", "online", online)
		p.listeners.notify(online)
	}

	return online
}

// IsOnline возвращает результат последней проверки
func (p *ProbeConnectivity) IsOnline() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.online
}

// Subscribe подписывает на изменения состояния
func (p *ProbeConnectivity) Subscribe(listener func(online bool)) func() {
	return p.listeners.add(listener)
}
