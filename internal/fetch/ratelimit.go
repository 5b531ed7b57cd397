package fetch

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HostLimiter enforces per-host request spacing with token buckets. Hosts get
// the default delay unless the config table or a robots.txt crawl-delay says
// otherwise; the stricter value wins.
type HostLimiter struct {
	defaultDelay time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	delays   map[string]time.Duration
}

// NewHostLimiter builds a limiter with a default delay and explicit per-host
// overrides.
func NewHostLimiter(defaultDelay time.Duration, overrides map[string]time.Duration) *HostLimiter {
	hl := &HostLimiter{
		defaultDelay: defaultDelay,
		limiters:     map[string]*rate.Limiter{},
		delays:       map[string]time.Duration{},
	}
	for host, d := range overrides {
		hl.delays[host] = d
	}
	return hl
}

// Wait blocks until the host's next request slot, honoring cancellation.
func (hl *HostLimiter) Wait(ctx context.Context, host string) error {
	return hl.limiterFor(host).Wait(ctx)
}

// Observe raises the host's delay when robots.txt asks for a larger
// crawl-delay. Delays never shrink below an explicit override.
func (hl *HostLimiter) Observe(host string, crawlDelay time.Duration) {
	if crawlDelay <= 0 {
		return
	}
	hl.mu.Lock()
	defer hl.mu.Unlock()
	if crawlDelay > hl.delayLocked(host) {
		hl.delays[host] = crawlDelay
		if lim, ok := hl.limiters[host]; ok {
			lim.SetLimit(rate.Every(crawlDelay))
		}
	}
}

// Delay returns the effective spacing for a host.
func (hl *HostLimiter) Delay(host string) time.Duration {
	hl.mu.Lock()
	defer hl.mu.Unlock()
	return hl.delayLocked(host)
}

func (hl *HostLimiter) delayLocked(host string) time.Duration {
	if d, ok := hl.delays[host]; ok {
		return d
	}
	return hl.defaultDelay
}

func (hl *HostLimiter) limiterFor(host string) *rate.Limiter {
	hl.mu.Lock()
	defer hl.mu.Unlock()
	if lim, ok := hl.limiters[host]; ok {
		return lim
	}
	lim := rate.NewLimiter(rate.Every(hl.delayLocked(host)), 1)
	hl.limiters[host] = lim
	return lim
}

// semaphores caps in-flight requests globally and per host.
type semaphores struct {
	global  chan struct{}
	perCap  int
	mu      sync.Mutex
	perHost map[string]chan struct{}
}

func newSemaphores(globalCap, perHostCap int) *semaphores {
	return &semaphores{
		global:  make(chan struct{}, globalCap),
		perCap:  perHostCap,
		perHost: map[string]chan struct{}{},
	}
}

// acquire takes the global slot first, then the host slot. The returned
// release function gives both back.
func (s *semaphores) acquire(ctx context.Context, host string) (func(), error) {
	select {
	case s.global <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	hostSem := s.hostSem(host)
	select {
	case hostSem <- struct{}{}:
	case <-ctx.Done():
		<-s.global
		return nil, ctx.Err()
	}

	return func() {
		<-hostSem
		<-s.global
	}, nil
}

func (s *semaphores) hostSem(host string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	sem, ok := s.perHost[host]
	if !ok {
		sem = make(chan struct{}, s.perCap)
		s.perHost[host] = sem
	}
	return sem
}
