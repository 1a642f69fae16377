package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"sotto/internal/domain"
	"sotto/internal/registry"
)

// Engine dispatches frames for all connections of one server.
type Engine struct {
	store    domain.Store
	registry *registry.Registry
	presence domain.PresenceTracker
	log      zerolog.Logger
}

// New constructs an engine over the given store, registry and presence
// tracker.
func New(store domain.Store, reg *registry.Registry, presence domain.PresenceTracker, log zerolog.Logger) *Engine {
	return &Engine{
		store:    store,
		registry: reg,
		presence: presence,
		log:      log,
	}
}

// State is a connection's position in the protocol lifecycle.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticated
	StateClosed // terminal
)

// Peer is the per-connection state machine. One Peer exists per transport
// connection; its HandleFrame is driven from that connection's read loop,
// so frames on one connection are processed in order and independently of
// every other connection.
type Peer struct {
	engine *Engine
	conn   domain.Conn

	mu        sync.Mutex
	state     State
	principal domain.PrincipalID
}

// NewPeer wraps a freshly accepted connection. It owns no principal until
// an authenticate frame arrives.
func (e *Engine) NewPeer(conn domain.Conn) *Peer {
	return &Peer{engine: e, conn: conn}
}

// State returns the peer's current lifecycle state.
func (p *Peer) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Principal returns the owning principal, empty until authenticated.
func (p *Peer) Principal() domain.PrincipalID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.principal
}

// HandleFrame processes one inbound frame.
//
// Before authentication only an authenticate frame is accepted; anything
// else is answered with an error frame and leaves the state untouched.
// After authentication, unknown frame types are ignored without notice.
func (p *Peer) HandleFrame(ctx context.Context, data []byte) {
	p.mu.Lock()
	if p.state == StateClosed {
		p.mu.Unlock()
		return
	}
	authenticated := p.state == StateAuthenticated
	self := p.principal
	p.mu.Unlock()

	frameType, payload, err := domain.DecodeFrame(data)
	if err != nil {
		p.reply(domain.NewErrorFrame("Malformed frame"))
		return
	}

	if !authenticated {
		auth, ok := payload.(*domain.Authenticate)
		if !ok {
			p.reply(domain.NewErrorFrame("Not authenticated"))
			return
		}
		p.authenticate(auth.PrincipalID)
		return
	}

	switch f := payload.(type) {
	case *domain.SendMessage:
		p.sendMessage(ctx, self, f)
	case *domain.Typing:
		p.typing(ctx, self, f)
	case *domain.MessageStatusFrame:
		p.messageStatus(ctx, self, f)
	case *domain.Authenticate:
		// Already authenticated; re-authentication is not part of the
		// lifecycle and is ignored like any other unexpected frame.
	default:
		p.engine.log.Debug().Str("type", string(frameType)).Msg("ignoring unknown frame type")
	}
}

// Closed marks the peer terminal and removes its connection from the
// registry. The transport close handler calls this exactly once; no frame
// is processed afterwards.
func (p *Peer) Closed() {
	p.mu.Lock()
	already := p.state == StateClosed
	p.state = StateClosed
	p.mu.Unlock()
	if already {
		return
	}
	p.engine.registry.Unregister(p.conn)
}

func (p *Peer) authenticate(id domain.PrincipalID) {
	p.engine.registry.Register(id, p.conn)

	p.mu.Lock()
	p.state = StateAuthenticated
	p.principal = id
	p.mu.Unlock()

	p.reply(domain.Authenticated{Type: domain.FrameAuthenticated, PrincipalID: id})
	p.engine.log.Info().Str("principal", string(id)).Msg("connection authenticated")
}

// sendMessage persists the draft and fans the stored message out to every
// member connection, the sender's other devices included. Success has no
// reply of its own; the fanout reaching the sender's connections is the
// acknowledgement.
func (p *Peer) sendMessage(ctx context.Context, self domain.PrincipalID, f *domain.SendMessage) {
	if f.ConversationID == "" || !f.Envelope.Valid() {
		p.reply(domain.NewErrorFrame("Invalid message payload"))
		return
	}

	msg, err := p.engine.store.CreateMessage(ctx, domain.MessageDraft{
		ConversationID: f.ConversationID,
		SenderID:       self,
		Envelope:       f.Envelope,
		MessageType:    f.MessageType,
		Metadata:       f.Metadata,
	})
	if err != nil {
		p.replyStoreError(err)
		return
	}

	members, err := p.engine.store.GetConversationMembers(ctx, f.ConversationID)
	if err != nil {
		p.replyStoreError(err)
		return
	}

	out := domain.NewMessage{Type: domain.FrameNewMessage, Message: msg}
	for _, member := range members {
		p.engine.registry.Fanout(member.ID, out)
	}
}

// typing refreshes the presence mark and relays the state to every other
// member. The sender's own connections are excluded; a client already
// knows it is typing.
func (p *Peer) typing(ctx context.Context, self domain.PrincipalID, f *domain.Typing) {
	members, err := p.engine.store.GetConversationMembers(ctx, f.ConversationID)
	if err != nil {
		p.replyStoreError(err)
		return
	}

	if err := p.engine.presence.SetTyping(ctx, f.ConversationID, self, f.IsTyping); err != nil {
		p.engine.log.Error().Err(err).Msg("presence update failed")
	}

	var username string
	for _, member := range members {
		if member.ID == self {
			username = member.Username
			break
		}
	}

	out := domain.TypingStatus{
		Type:           domain.FrameTypingStatus,
		ConversationID: f.ConversationID,
		PrincipalID:    self,
		Username:       username,
		IsTyping:       f.IsTyping,
	}
	for _, member := range members {
		if member.ID == self {
			continue
		}
		p.engine.registry.Fanout(member.ID, out)
	}
}

// messageStatus persists the status and notifies only the original
// sender's connections.
func (p *Peer) messageStatus(ctx context.Context, self domain.PrincipalID, f *domain.MessageStatusFrame) {
	if !domain.ValidStatus(f.Status) {
		p.reply(domain.NewErrorFrame("Invalid message status"))
		return
	}

	sender, err := p.engine.store.UpdateMessageStatus(ctx, f.MessageID, self, f.Status)
	if err != nil {
		p.replyStoreError(err)
		return
	}

	p.engine.registry.Fanout(sender, domain.MessageStatusUpdate{
		Type:        domain.FrameMessageStatusUpdate,
		MessageID:   f.MessageID,
		PrincipalID: self,
		Status:      f.Status,
	})
}

// reply writes a frame back on this peer's own connection. A failed write
// means the transport is going away; the close handler will clean up.
func (p *Peer) reply(frame any) {
	if err := p.conn.Send(frame); err != nil {
		p.engine.log.Debug().Err(err).Msg("reply dropped on closing connection")
	}
}

func (p *Peer) replyStoreError(err error) {
	switch {
	case err == nil:
		return
	case errors.Is(err, domain.ErrConversationNotFound) || errors.Is(err, domain.ErrMessageNotFound):
		p.reply(domain.NewErrorFrame(err.Error()))
	default:
		p.engine.log.Error().Err(err).Msg("store operation failed")
		p.reply(domain.NewErrorFrame("Internal error"))
	}
}
