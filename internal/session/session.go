package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"sotto/internal/domain"
)

// State is the session's position in its lifecycle.
type State int

const (
	Disconnected State = iota
	Connecting
	Authenticating
	Ready
	FailedPermanently
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Authenticating:
		return "authenticating"
	case Ready:
		return "ready"
	case FailedPermanently:
		return "failed"
	}
	return "unknown"
}

// Conn is a wire-level connection carrying opaque frames in order.
type Conn interface {
	ReadFrame() ([]byte, error)
	WriteFrame(data []byte) error
	// Close shuts the transport; normal indicates an explicit local
	// disconnect rather than a failure.
	Close(normal bool) error
}

// Dialer opens wire-level connections. Tests substitute their own.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// Handler receives a decoded frame payload. One handler per frame type:
// registering again for the same type replaces the previous handler
// atomically (last registration wins).
type Handler func(payload any)

const (
	defaultBaseDelay   = 250 * time.Millisecond
	defaultMaxAttempts = 5
	defaultAuthTimeout = 10 * time.Second
)

// Session drives one logical connection for one principal.
type Session struct {
	dialer Dialer
	url    string
	log    zerolog.Logger

	baseDelay   time.Duration
	maxAttempts int
	authTimeout time.Duration

	mu         sync.Mutex
	state      State
	conn       Conn
	principal  domain.PrincipalID
	handlers   map[domain.FrameType]Handler
	attempts   int
	localClose bool
	pending    chan error  // resolves the in-flight Connect call
	retry      *time.Timer // scheduled reconnect, if any
}

// Option tweaks session construction.
type Option func(*Session)

// WithBackoff overrides the reconnect base delay and attempt budget.
func WithBackoff(base time.Duration, maxAttempts int) Option {
	return func(s *Session) {
		s.baseDelay = base
		s.maxAttempts = maxAttempts
	}
}

// WithAuthTimeout bounds the wait for the authenticated acknowledgement.
func WithAuthTimeout(d time.Duration) Option {
	return func(s *Session) { s.authTimeout = d }
}

// New returns a disconnected session for url.
func New(dialer Dialer, url string, log zerolog.Logger, opts ...Option) *Session {
	s := &Session{
		dialer:      dialer,
		url:         url,
		log:         log,
		baseDelay:   defaultBaseDelay,
		maxAttempts: defaultMaxAttempts,
		authTimeout: defaultAuthTimeout,
		handlers:    make(map[domain.FrameType]Handler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Attempts returns the current reconnect attempt counter. It resets to
// zero on every successful authentication.
func (s *Session) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// On registers the handler for a frame type, replacing any previous one.
func (s *Session) On(t domain.FrameType, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[t] = h
}

// Connect dials, authenticates as principalID, and returns once the server
// acknowledges. An error frame received before the acknowledgement rejects
// the connect with that error's message. After a successful connect the
// session reconnects on its own following unclean closes, up to the
// attempt budget.
func (s *Session) Connect(ctx context.Context, principalID domain.PrincipalID) error {
	s.mu.Lock()
	if s.state != Disconnected && s.state != FailedPermanently {
		s.mu.Unlock()
		return fmt.Errorf("connect in state %s", s.state)
	}
	s.principal = principalID
	s.localClose = false
	s.attempts = 0
	pending := make(chan error, 1)
	s.pending = pending
	s.mu.Unlock()

	if err := s.dialAndAuthenticate(ctx); err != nil {
		// The initial open failed; start the reconnect policy and keep
		// waiting. Connect resolves on eventual success or exhaustion.
		s.log.Warn().Err(err).Msg("initial connect failed")
		s.failedAttempt()
	}

	timeout := time.NewTimer(s.authTimeout)
	defer timeout.Stop()
	select {
	case err := <-pending:
		return err
	case <-ctx.Done():
		s.clearPending()
		return ctx.Err()
	case <-timeout.C:
		s.clearPending()
		return fmt.Errorf("authentication timed out: %w", domain.ErrTransportClosed)
	}
}

// Disconnect closes the transport with a normal closure and suppresses the
// reconnect path entirely.
func (s *Session) Disconnect() {
	s.mu.Lock()
	s.localClose = true
	if s.retry != nil {
		s.retry.Stop()
		s.retry = nil
	}
	conn := s.conn
	s.conn = nil
	s.state = Disconnected
	s.mu.Unlock()

	if conn != nil {
		_ = conn.Close(true)
	}
}

// Send marshals and writes a frame. Outside Ready it is a no-op beyond a
// logged error; frames are never buffered for replay.
func (s *Session) Send(frame any) error {
	s.mu.Lock()
	conn := s.conn
	ready := s.state == Ready
	s.mu.Unlock()

	if !ready || conn == nil {
		s.log.Error().Str("state", s.State().String()).Msg("send dropped: transport not ready")
		return domain.ErrTransportClosed
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	return conn.WriteFrame(data)
}

// dialAndAuthenticate performs one transport attempt: open, send the
// authenticate frame, and hand the connection to the read loop.
func (s *Session) dialAndAuthenticate(ctx context.Context) error {
	s.mu.Lock()
	s.state = Connecting
	principal := s.principal
	s.mu.Unlock()

	conn, err := s.dialer.Dial(ctx, s.url)
	if err != nil {
		s.mu.Lock()
		s.state = Disconnected
		s.mu.Unlock()
		return fmt.Errorf("dial %s: %w", s.url, err)
	}

	s.mu.Lock()
	s.conn = conn
	s.state = Authenticating
	s.mu.Unlock()

	auth, err := json.Marshal(domain.Authenticate{
		Type:        domain.FrameAuthenticate,
		PrincipalID: principal,
	})
	if err != nil {
		return err
	}
	if err := conn.WriteFrame(auth); err != nil {
		_ = conn.Close(false)
		s.mu.Lock()
		s.conn = nil
		s.state = Disconnected
		s.mu.Unlock()
		return fmt.Errorf("send authenticate: %w", err)
	}

	go s.readLoop(conn)
	return nil
}

// readLoop consumes frames until the transport fails, then routes the
// close through the reconnect policy.
func (s *Session) readLoop(conn Conn) {
	for {
		data, err := conn.ReadFrame()
		if err != nil {
			s.handleClose(conn)
			return
		}
		s.dispatch(data)
	}
}

func (s *Session) dispatch(data []byte) {
	frameType, payload, err := domain.DecodeFrame(data)
	if err != nil {
		s.log.Warn().Err(err).Msg("dropping malformed frame")
		return
	}

	switch f := payload.(type) {
	case *domain.Authenticated:
		s.mu.Lock()
		s.state = Ready
		s.attempts = 0
		pending := s.pending
		s.pending = nil
		s.mu.Unlock()
		if pending != nil {
			pending <- nil
		}
		s.log.Info().Str("principal", string(f.PrincipalID)).Msg("session ready")
		return
	case *domain.ErrorFrame:
		s.mu.Lock()
		pending := s.pending
		s.pending = nil
		authenticating := s.state == Authenticating
		s.mu.Unlock()
		if authenticating && pending != nil {
			pending <- fmt.Errorf("%s", f.Message)
			return
		}
	}

	s.mu.Lock()
	handler := s.handlers[frameType]
	s.mu.Unlock()
	if handler != nil && payload != nil {
		handler(payload)
	}
}

// handleClose cleans up after the read loop exits and routes the unclean
// close through the reconnect policy.
func (s *Session) handleClose(conn Conn) {
	_ = conn.Close(false)

	s.mu.Lock()
	if s.conn != conn {
		// A newer connection superseded this one; nothing to do.
		s.mu.Unlock()
		return
	}
	s.conn = nil
	s.state = Disconnected
	s.mu.Unlock()

	s.failedAttempt()
}

// reconnect performs one background reconnect attempt.
func (s *Session) reconnect() {
	s.mu.Lock()
	if s.localClose || s.state == FailedPermanently {
		s.mu.Unlock()
		return
	}
	s.retry = nil
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.authTimeout)
	defer cancel()
	if err := s.dialAndAuthenticate(ctx); err != nil {
		s.log.Warn().Err(err).Msg("reconnect failed")
		s.failedAttempt()
	}
}

// failedAttempt advances the reconnect policy after a failed open or an
// unclean close: schedule the next attempt with exponential backoff, or
// park in FailedPermanently once the budget is spent.
func (s *Session) failedAttempt() {
	s.mu.Lock()
	if s.localClose || s.state == FailedPermanently {
		s.mu.Unlock()
		return
	}
	if s.attempts >= s.maxAttempts {
		s.state = FailedPermanently
		pending := s.pending
		s.pending = nil
		s.mu.Unlock()
		s.log.Error().Int("attempts", s.maxAttempts).Msg("reconnect attempts exhausted")
		if pending != nil {
			pending <- domain.ErrReconnectExhausted
		}
		s.notifyExhausted()
		return
	}
	delay := s.baseDelay << uint(s.attempts)
	s.attempts++
	attempt := s.attempts
	s.retry = time.AfterFunc(delay, s.reconnect)
	s.mu.Unlock()

	s.log.Warn().Int("attempt", attempt).Dur("delay", delay).Msg("scheduling reconnect")
}

// notifyExhausted surfaces ErrReconnectExhausted through the error-frame
// handler, so callers learn the session parked without polling.
func (s *Session) notifyExhausted() {
	s.mu.Lock()
	handler := s.handlers[domain.FrameError]
	s.mu.Unlock()
	if handler != nil {
		handler(&domain.ErrorFrame{
			Type:    domain.FrameError,
			Message: domain.ErrReconnectExhausted.Error(),
		})
	}
}

func (s *Session) clearPending() {
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
}
