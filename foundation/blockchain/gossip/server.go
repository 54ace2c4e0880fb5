package gossip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/ledger"
)

// Handler represents the node behavior the server dispatches inbound
// messages to. The interface keeps this package free of the state machinery
// that implements it.
type Handler interface {
	Handshake(remote Handshake) HandshakeAck
	KnownPeers() []PeerSummary
	BlocksInRange(start uint64, end uint64) []ledger.BlockData
	IncomingBlock(block ledger.BlockData) error
	IncomingTransaction(tx ledger.SignedTx) error
}

// =============================================================================

// ServerConfig represents the configuration required to construct a server.
type ServerConfig struct {
	Host      string
	Port      int
	Handler   Handler
	Timeout   time.Duration
	EvHandler EventHandler
}

// Server accepts peer connections and dispatches one request frame per
// connection to the configured handler.
type Server struct {
	host      string
	port      int
	handler   Handler
	timeout   time.Duration
	evHandler EventHandler
	listener  net.Listener
	wg        sync.WaitGroup
}

// NewServer constructs a server ready to start.
func NewServer(cfg ServerConfig) *Server {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Server{
		host:      cfg.Host,
		port:      cfg.Port,
		handler:   cfg.Handler,
		timeout:   timeout,
		evHandler: ev,
	}
}

// Start binds the listener and begins accepting connections. It returns
// once the listener is bound; accepted connections are served on their own
// goroutines.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", s.host, s.port))
	if err != nil {
		return fmt.Errorf("binding %s:%d: %w", s.host, s.port, err)
	}
	s.listener = listener

	s.evHandler("gossip: server: listening on %s", listener.Addr())

	s.wg.Add(1)
	go s.accept()

	return nil
}

// Addr returns the bound listener address. Useful when the server was
// started on port 0.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown stops accepting new connections and waits for in flight
// connections to drain or the context to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.listener == nil {
		return nil
	}

	s.evHandler("gossip: server: shutdown started")
	defer s.evHandler("gossip: server: shutdown complete")

	if err := s.listener.Close(); err != nil {
		return fmt.Errorf("closing listener: %w", err)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// =============================================================================

// accept runs the listener loop until the listener is closed.
func (s *Server) accept() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.evHandler("gossip: server: accept: ERROR: %s", err)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serve(conn)
		}()
	}
}

// serve handles a single connection carrying one request frame.
func (s *Server) serve(conn net.Conn) {
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(s.timeout))

	frame, err := readFrame(conn)
	if err != nil {
		s.evHandler("gossip: server: read from %s: ERROR: %s", conn.RemoteAddr(), err)
		return
	}

	msg, err := Decode(frame)
	if err != nil {
		s.evHandler("gossip: server: decode from %s: ERROR: %s", conn.RemoteAddr(), err)
		return
	}

	switch m := msg.(type) {
	case *Handshake:
		ack := s.handler.Handshake(*m)
		ack.Type = TypeHandshakeAck
		s.reply(conn, ack)

	case *GetPeers:
		s.reply(conn, NewPeerList(s.handler.KnownPeers()))

	case *GetBlocks:
		s.reply(conn, NewBlocks(s.handler.BlocksInRange(m.StartHeight, m.EndHeight)))

	case *NewBlock:
		if err := s.handler.IncomingBlock(m.Block); err != nil {
			s.evHandler("gossip: server: block from %s: rejected: %s", conn.RemoteAddr(), err)
		}

	case *NewTransaction:
		if err := s.handler.IncomingTransaction(m.Transaction); err != nil {
			s.evHandler("gossip: server: transaction from %s: rejected: %s", conn.RemoteAddr(), err)
		}

	default:
		s.evHandler("gossip: server: %s from %s: reply message as request", msg.messageType(), conn.RemoteAddr())
	}
}

// reply writes one frame back on the request connection.
func (s *Server) reply(conn net.Conn, msg Message) {
	if err := json.NewEncoder(conn).Encode(msg); err != nil {
		s.evHandler("gossip: server: reply %s to %s: ERROR: %s", msg.messageType(), conn.RemoteAddr(), err)
	}
}
