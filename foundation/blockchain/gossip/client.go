package gossip

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/dht"
	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/ledger"
)

// DefaultTimeout bounds every dial, read and write so an unresponsive peer
// cannot stall reconciliation or a broadcast fan out.
const DefaultTimeout = 5 * time.Second

// EventHandler defines a function that is called when interesting protocol
// events occur.
type EventHandler func(v string, args ...any)

// =============================================================================

// Client speaks the wire protocol to remote peers. One connection carries
// one request frame and, when the type has one, a single reply frame.
type Client struct {
	host      string
	port      int
	version   string
	timeout   time.Duration
	evHandler EventHandler
}

// NewClient constructs a client advertising the specified local identity.
func NewClient(host string, port int, version string, timeout time.Duration, evHandler EventHandler) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	return &Client{
		host:      host,
		port:      port,
		version:   version,
		timeout:   timeout,
		evHandler: ev,
	}
}

// Handshake introduces the local node to a peer and returns the peer's
// version and height.
func (c *Client) Handshake(peer dht.Peer, height uint64) (HandshakeAck, error) {
	var ack HandshakeAck
	if err := c.roundTrip(peer.Address(), NewHandshake(c.host, c.port, c.version, height), &ack); err != nil {
		return HandshakeAck{}, err
	}

	return ack, nil
}

// GetPeers asks a peer for the peers it knows about.
func (c *Client) GetPeers(peer dht.Peer) ([]PeerSummary, error) {
	var list PeerList
	if err := c.roundTrip(peer.Address(), NewGetPeers(), &list); err != nil {
		return nil, err
	}

	return list.Peers, nil
}

// GetBlocks fetches the peer's stored blocks in the inclusive height range.
func (c *Client) GetBlocks(peer dht.Peer, start uint64, end uint64) ([]ledger.BlockData, error) {
	var blocks Blocks
	if err := c.roundTrip(peer.Address(), NewGetBlocks(start, end), &blocks); err != nil {
		return nil, err
	}

	return blocks.Blocks, nil
}

// SendBlock announces a block to a peer. Fire and forget: the call returns
// once the frame is written.
func (c *Client) SendBlock(peer dht.Peer, bd ledger.BlockData) error {
	return c.send(peer.Address(), NewNewBlock(bd))
}

// SendTransaction announces a transaction to a peer. Fire and forget.
func (c *Client) SendTransaction(peer dht.Peer, tx ledger.SignedTx) error {
	return c.send(peer.Address(), NewNewTransaction(tx))
}

// Ping probes a peer for liveness with a handshake round trip. It
// implements the dht.Pinger interface for the routing table's full bucket
// decisions.
func (c *Client) Ping(peer dht.Peer) bool {
	if _, err := c.Handshake(peer, 0); err != nil {
		c.evHandler("gossip: client: ping: peer %s unresponsive: %s", peer.Address(), err)
		return false
	}

	return true
}

// =============================================================================

// send writes one frame to the peer without waiting for a reply.
func (c *Client) send(address string, msg Message) error {
	conn, err := net.DialTimeout("tcp", address, c.timeout)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", address, err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	if err := json.NewEncoder(conn).Encode(msg); err != nil {
		return fmt.Errorf("writing %s to %s: %w", msg.messageType(), address, err)
	}

	return nil
}

// roundTrip writes one frame and decodes the single reply into the
// specified message value, checking the reply carries the expected type.
func (c *Client) roundTrip(address string, msg Message, reply Message) error {
	conn, err := net.DialTimeout("tcp", address, c.timeout)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", address, err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	if err := json.NewEncoder(conn).Encode(msg); err != nil {
		return fmt.Errorf("writing %s to %s: %w", msg.messageType(), address, err)
	}

	frame, err := readFrame(conn)
	if err != nil {
		return fmt.Errorf("reading reply from %s: %w", address, err)
	}

	decoded, err := Decode(frame)
	if err != nil {
		return fmt.Errorf("reply from %s: %w", address, err)
	}

	if decoded.messageType() != reply.messageType() {
		return fmt.Errorf("reply from %s: expected %s, got %s", address, reply.messageType(), decoded.messageType())
	}

	if err := json.Unmarshal(frame, reply); err != nil {
		return fmt.Errorf("decoding reply from %s: %w", address, err)
	}

	return nil
}

// readFrame reads one newline delimited JSON frame. A frame terminated by
// connection close instead of a newline is accepted.
func readFrame(r io.Reader) ([]byte, error) {
	data, err := bufio.NewReader(r).ReadBytes('\n')
	if err != nil {
		if err == io.EOF && len(data) > 0 {
			return data, nil
		}
		return nil, err
	}

	return data, nil
}
