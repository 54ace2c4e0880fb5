// Package gossip implements the peer to peer synchronization protocol: a
// JSON message envelope over TCP carrying handshakes, peer exchange, block
// ranges and the propagation of new blocks and transactions.
package gossip

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/ledger"
)

// ErrUnknownMessage is returned when a frame carries a type tag outside the
// protocol. Unknown variants are rejected, never silently ignored.
var ErrUnknownMessage = errors.New("unknown message type")

// MessageType tags every frame on the wire.
type MessageType string

// The complete set of wire message types.
const (
	TypeHandshake      MessageType = "handshake"
	TypeHandshakeAck   MessageType = "handshake_ack"
	TypeGetPeers       MessageType = "get_peers"
	TypePeerList       MessageType = "peer_list"
	TypeGetBlocks      MessageType = "get_blocks"
	TypeBlocks         MessageType = "blocks"
	TypeNewBlock       MessageType = "new_block"
	TypeNewTransaction MessageType = "new_transaction"
)

// Message is implemented by every wire message variant.
type Message interface {
	messageType() MessageType
}

// =============================================================================

// Handshake introduces a node and its chain height. The receiver registers
// the sender as a peer and replies with a HandshakeAck.
type Handshake struct {
	Type    MessageType `json:"type"`
	Host    string      `json:"host"`
	Port    int         `json:"port"`
	Version string      `json:"version"`
	Height  uint64      `json:"height"`
}

func (Handshake) messageType() MessageType { return TypeHandshake }

// NewHandshake constructs a handshake frame.
func NewHandshake(host string, port int, version string, height uint64) Handshake {
	return Handshake{Type: TypeHandshake, Host: host, Port: port, Version: version, Height: height}
}

// HandshakeAck answers a handshake with the receiver's version and height.
type HandshakeAck struct {
	Type    MessageType `json:"type"`
	Version string      `json:"version"`
	Height  uint64      `json:"height"`
}

func (HandshakeAck) messageType() MessageType { return TypeHandshakeAck }

// NewHandshakeAck constructs a handshake reply frame.
func NewHandshakeAck(version string, height uint64) HandshakeAck {
	return HandshakeAck{Type: TypeHandshakeAck, Version: version, Height: height}
}

// =============================================================================

// GetPeers asks a node for the peers it knows about.
type GetPeers struct {
	Type MessageType `json:"type"`
}

func (GetPeers) messageType() MessageType { return TypeGetPeers }

// NewGetPeers constructs a peer request frame.
func NewGetPeers() GetPeers {
	return GetPeers{Type: TypeGetPeers}
}

// PeerSummary is the wire form of one known peer.
type PeerSummary struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Version  string `json:"version"`
	Height   uint64 `json:"height"`
	LastSeen uint64 `json:"last_seen"`
}

// PeerList answers GetPeers with peer summaries.
type PeerList struct {
	Type  MessageType   `json:"type"`
	Peers []PeerSummary `json:"peers"`
}

func (PeerList) messageType() MessageType { return TypePeerList }

// NewPeerList constructs a peer list reply frame.
func NewPeerList(peers []PeerSummary) PeerList {
	return PeerList{Type: TypePeerList, Peers: peers}
}

// =============================================================================

// GetBlocks asks for the stored blocks in an inclusive height range.
type GetBlocks struct {
	Type        MessageType `json:"type"`
	StartHeight uint64      `json:"start_height"`
	EndHeight   uint64      `json:"end_height"`
}

func (GetBlocks) messageType() MessageType { return TypeGetBlocks }

// NewGetBlocks constructs a block range request frame.
func NewGetBlocks(start uint64, end uint64) GetBlocks {
	return GetBlocks{Type: TypeGetBlocks, StartHeight: start, EndHeight: end}
}

// Blocks answers GetBlocks with the requested range.
type Blocks struct {
	Type   MessageType        `json:"type"`
	Blocks []ledger.BlockData `json:"blocks"`
}

func (Blocks) messageType() MessageType { return TypeBlocks }

// NewBlocks constructs a block range reply frame.
func NewBlocks(blocks []ledger.BlockData) Blocks {
	return Blocks{Type: TypeBlocks, Blocks: blocks}
}

// =============================================================================

// NewBlock announces a freshly mined or accepted block. It is fire and
// forget: no reply is sent.
type NewBlock struct {
	Type  MessageType      `json:"type"`
	Block ledger.BlockData `json:"block"`
}

func (NewBlock) messageType() MessageType { return TypeNewBlock }

// NewNewBlock constructs a block announcement frame.
func NewNewBlock(bd ledger.BlockData) NewBlock {
	return NewBlock{Type: TypeNewBlock, Block: bd}
}

// NewTransaction announces an accepted transaction. It is fire and forget:
// no reply is sent.
type NewTransaction struct {
	Type        MessageType     `json:"type"`
	Transaction ledger.SignedTx `json:"transaction"`
}

func (NewTransaction) messageType() MessageType { return TypeNewTransaction }

// NewNewTransaction constructs a transaction announcement frame.
func NewNewTransaction(tx ledger.SignedTx) NewTransaction {
	return NewTransaction{Type: TypeNewTransaction, Transaction: tx}
}

// =============================================================================

// Decode parses one raw frame into its typed message. A missing or unknown
// type tag is an error.
func Decode(data []byte) (Message, error) {
	var env struct {
		Type MessageType `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding envelope: %w", err)
	}

	var msg Message
	switch env.Type {
	case TypeHandshake:
		msg = &Handshake{}
	case TypeHandshakeAck:
		msg = &HandshakeAck{}
	case TypeGetPeers:
		msg = &GetPeers{}
	case TypePeerList:
		msg = &PeerList{}
	case TypeGetBlocks:
		msg = &GetBlocks{}
	case TypeBlocks:
		msg = &Blocks{}
	case TypeNewBlock:
		msg = &NewBlock{}
	case TypeNewTransaction:
		msg = &NewTransaction{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, env.Type)
	}

	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", env.Type, err)
	}

	return msg, nil
}
