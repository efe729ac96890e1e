package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"market_dashboard/binance"
	"market_dashboard/cache"
	"market_dashboard/metrics"
	"market_dashboard/middleware"
	"market_dashboard/parser"
	"market_dashboard/utils"
	"market_dashboard/ws"
)

var ErrAlreadyStarted = errors.New("stream: already started")

type State int32

const (
	Idle State = iota
	Connecting
	Streaming
	Backoff
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Streaming:
		return "streaming"
	case Backoff:
		return "backoff"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Clock schedules the reconnect delay.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

type Dialer interface {
	Dial(ctx context.Context) (ws.Conn, error)
}

// Streamer keeps the live ticker cache fed from the aggregate ticker stream.
// A session ends on any transport error or a rejected subscription; the
// streamer then waits one backoff delay and starts a new session. It only
// stops when its context is cancelled or Stop is called.
type Streamer struct {
	dialer  Dialer
	cache   *cache.TickerCache
	metrics *metrics.Metrics
	clock   Clock
	backOff backoff.BackOff
	streams []string

	state     int32
	requestID int64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type Option func(*Streamer)

func WithClock(c Clock) Option {
	return func(s *Streamer) { s.clock = c }
}

func WithBackOff(b backoff.BackOff) Option {
	return func(s *Streamer) { s.backOff = b }
}

func WithStreams(streams ...string) Option {
	return func(s *Streamer) { s.streams = streams }
}

func New(dialer Dialer, c *cache.TickerCache, m *metrics.Metrics, opts ...Option) *Streamer {
	s := &Streamer{
		dialer:  dialer,
		cache:   c,
		metrics: m,
		clock:   realClock{},
		backOff: utils.NewReconnectBackoff(utils.DefaultReconnectDelay),
		streams: []string{binance.MiniTickerAllStream},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Streamer) State() State {
	return State(atomic.LoadInt32(&s.state))
}

func (s *Streamer) setState(st State) {
	atomic.StoreInt32(&s.state, int32(st))
	s.metrics.SetStreamState(int(st))
}

// Start launches the supervisor goroutine and returns immediately.
func (s *Streamer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(ctx, s.done)
	return nil
}

// Stop cancels the running session and waits for the supervisor to exit.
func (s *Streamer) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel == nil {
		s.setState(Stopped)
		return
	}
	cancel()
	<-done
}

func (s *Streamer) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer s.setState(Stopped)

	for {
		if ctx.Err() != nil {
			return
		}

		s.setState(Connecting)
		err := middleware.Guard(func() error {
			return s.session(ctx)
		})
		if ctx.Err() != nil {
			return
		}

		delay := s.backOff.NextBackOff()
		if delay == backoff.Stop {
			delay = utils.DefaultReconnectDelay
		}

		s.metrics.Reconnect()
		s.setState(Backoff)
		utils.Logger.Warnw("Ticker stream session ended",
			"error", err,
			"retry_in", delay.String(),
			"cached_symbols", s.cache.Len())

		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(delay):
		}
	}
}

// session runs one connection from dial to failure. It always returns a non-nil
// error unless ctx was cancelled.
func (s *Streamer) session(ctx context.Context) error {
	conn, err := s.dialer.Dial(ctx)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	var closeOnce sync.Once
	closeConn := func() { closeOnce.Do(func() { _ = conn.Close() }) }
	defer closeConn()

	// ReadMessage only returns on data or error; closing unblocks it on shutdown.
	sessionDone := make(chan struct{})
	defer close(sessionDone)
	go func() {
		select {
		case <-ctx.Done():
			closeConn()
		case <-sessionDone:
		}
	}()

	req := binance.NewSubscribeRequest(atomic.AddInt64(&s.requestID, 1), s.streams...)
	if err := conn.WriteJSON(req); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	s.setState(Streaming)
	s.backOff.Reset()
	utils.Logger.Infow("Ticker stream subscribed", "streams", s.streams, "id", req.ID)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		snapshots, err := parser.ParseMiniTickers(message)
		if err != nil {
			if errors.Is(err, parser.ErrSubscriptionRejected) {
				return err
			}
			s.metrics.DecodeError()
			utils.Logger.Debugw("Dropping stream message", "error", err, "size", len(message))
			continue
		}
		if len(snapshots) == 0 {
			continue
		}

		s.cache.Apply(snapshots)
		s.metrics.StreamMessage(len(snapshots))
		s.metrics.SetCacheSize(s.cache.Len())
	}
}
