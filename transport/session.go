package transport

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/arloliu/go-chamber/internal/pool"
	"github.com/arloliu/go-chamber/logger"
)

type leaseKey struct{}

// Session serializes request/response exchanges over one Link.
//
// Session is goroutine-safe. At most one lease is held at any time; the
// link-open state is only touched by the lease holder.
type Session struct {
	id      string
	link    Link
	cfg     *sessionConfig
	logger  logger.Logger
	metrics *Metrics

	// sem holds the lease token; a buffered channel lets waiters honor ctx.
	sem chan struct{}

	// guarded by the lease
	open     bool
	keepOpen bool
	lastRx   time.Time

	closed atomic.Bool
}

// NewSession creates a session owning link. The link is not opened until the
// first lease or an explicit Open.
func NewSession(link Link, opts ...Option) (*Session, error) {
	if link == nil {
		return nil, ErrLinkNil
	}
	cfg := defaultSessionConfig()
	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}
	id := uuid.NewString()

	return &Session{
		id:      id,
		link:    link,
		cfg:     cfg,
		logger:  cfg.logger.With("sessionID", id, "link", link.String()),
		metrics: newMetrics(),
		sem:     make(chan struct{}, 1),
	}, nil
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string { return s.id }

// Link returns the underlying link.
func (s *Session) Link() Link { return s.link }

// Metrics returns the session counters.
func (s *Session) Metrics() *Metrics { return s.metrics }

// Timeout returns the per-request reply timeout.
func (s *Session) Timeout() time.Duration { return s.cfg.timeout }

func (s *Session) holds(ctx context.Context) bool {
	held, _ := ctx.Value(leaseKey{}).(*Session)
	return held == s
}

func (s *Session) acquire(ctx context.Context) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) release() {
	<-s.sem
}

// Open opens the link and keeps it open across leases until Close. It also
// re-enables a session that was closed.
func (s *Session) Open(ctx context.Context) error {
	s.closed.Store(false)
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	s.keepOpen = true
	if s.open {
		return nil
	}

	return s.openLink(ctx)
}

// Close closes the link after the current lease, if any, ends. Later leases
// fail with ErrSessionClosed until Open is called.
func (s *Session) Close() error {
	s.sem <- struct{}{}
	defer s.release()

	s.closed.Store(true)
	s.keepOpen = false

	return s.closeLink()
}

func (s *Session) openLink(ctx context.Context) error {
	if err := s.link.Open(ctx); err != nil {
		s.metrics.OpenFailures.Inc()
		s.logger.Error("open link failed", "error", err)
		return fmt.Errorf("%w: %s: %w", ErrOpen, s.link, err)
	}
	s.metrics.Opens.Inc()
	s.open = true
	s.logger.Debug("link opened")

	return nil
}

func (s *Session) closeLink() error {
	if !s.open {
		return nil
	}
	s.open = false
	err := s.link.Close()
	s.logger.Debug("link closed", "error", err)

	return err
}

// Do runs fn while holding the session lease. Exchanges made with the context
// passed to fn reuse the lease. If the link was closed it is opened for the
// lease and closed again on return, including when fn panics.
func (s *Session) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.holds(ctx) {
		return fn(ctx)
	}
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	if !s.open {
		if err := s.openLink(ctx); err != nil {
			return err
		}
		if !s.keepOpen {
			defer func() { _ = s.closeLink() }()
		}
	}

	return fn(context.WithValue(ctx, leaseKey{}, s))
}

// Exchange writes req and reads until framer reports a complete reply or the
// request timeout expires. Outside a lease it takes one for this request.
func (s *Session) Exchange(ctx context.Context, req []byte, framer Framer) ([]byte, error) {
	if s.holds(ctx) {
		return s.exchange(ctx, req, framer)
	}
	var reply []byte
	err := s.Do(ctx, func(ctx context.Context) error {
		var err error
		reply, err = s.exchange(ctx, req, framer)
		return err
	})

	return reply, err
}

func (s *Session) exchange(ctx context.Context, req []byte, framer Framer) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.cfg.settleDelay > 0 && !s.lastRx.IsZero() {
		if err := pool.Sleep(ctx, s.cfg.settleDelay-time.Since(s.lastRx)); err != nil {
			return nil, err
		}
	}
	if err := s.link.Discard(); err != nil {
		s.logger.Debug("discard stale input failed", "error", err)
	}

	s.metrics.Exchanges.Inc()
	s.logger.Debug("request", "frame", fmt.Sprintf("% x", req))
	if _, err := s.link.Write(req); err != nil {
		s.metrics.Failures.Inc()
		return nil, fmt.Errorf("transport: write %s: %w", s.link, err)
	}
	s.metrics.BytesSent.Add(int64(len(req)))

	deadline := time.Now().Add(s.cfg.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	buf := make([]byte, 0, 64)
	chunk := make([]byte, 256)
	for {
		step := time.Now().Add(s.cfg.pollInterval)
		if step.After(deadline) {
			step = deadline
		}
		n, err := s.link.Read(chunk, step)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			s.metrics.BytesRecv.Add(int64(n))
			done, ferr := framer(buf)
			if ferr != nil {
				s.metrics.Failures.Inc()
				return buf, fmt.Errorf("transport: malformed reply % x: %w", buf, ferr)
			}
			if done {
				s.lastRx = time.Now()
				s.logger.Debug("reply", "frame", fmt.Sprintf("% x", buf))
				return buf, nil
			}
		}
		if err != nil {
			s.metrics.Failures.Inc()
			return nil, fmt.Errorf("transport: read %s: %w", s.link, err)
		}
		if cerr := ctx.Err(); cerr != nil {
			s.metrics.Failures.Inc()
			return nil, cerr
		}
		if !time.Now().Before(deadline) {
			s.metrics.Timeouts.Inc()
			s.metrics.Failures.Inc()
			return buf, fmt.Errorf("%w after %v (%d bytes received)", ErrTimeout, s.cfg.timeout, len(buf))
		}
	}
}
