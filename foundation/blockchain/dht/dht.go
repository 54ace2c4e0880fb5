// Package dht implements a Kademlia style routing table that organizes
// known peers into buckets by XOR distance to the local node identifier.
package dht

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/bits"
	"time"
)

// IDLength is the byte width of a node identifier.
const IDLength = 20

// Buckets is the number of routing buckets, one per bit of the identifier
// space.
const Buckets = IDLength * 8

// K is the default maximum number of peers held in one bucket.
const K = 20

// =============================================================================

// NodeID is a 160 bit identifier in the routing keyspace, derived from a
// peer's network address.
type NodeID [IDLength]byte

// IDFromAddress derives the node identifier for a host and port pair.
func IDFromAddress(host string, port int) NodeID {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s:%d", host, port))

	var id NodeID
	copy(id[:], sum[:IDLength])

	return id
}

// Distance returns the XOR distance between two identifiers.
func (id NodeID) Distance(other NodeID) NodeID {
	var d NodeID
	for i := range id {
		d[i] = id[i] ^ other[i]
	}

	return d
}

// Less compares two identifiers as big endian integers. It is used to order
// peers by distance to a target.
func (id NodeID) Less(other NodeID) bool {
	for i := range id {
		if id[i] != other[i] {
			return id[i] < other[i]
		}
	}

	return false
}

// String implements the fmt.Stringer interface.
func (id NodeID) String() string {
	return hex.EncodeToString(id[:])
}

// bucketIndex returns the bucket that holds the identifier relative to the
// local one: the position of the highest order bit where the two differ.
// Identical identifiers map to the last bucket.
func bucketIndex(self NodeID, id NodeID) int {
	xor := self.Distance(id)

	for i, b := range xor {
		if b != 0 {
			return i*8 + (8 - bits.Len8(b))
		}
	}

	return Buckets - 1
}

// =============================================================================

// Peer represents a known node in the network.
type Peer struct {
	Host     string
	Port     int
	ID       NodeID
	Version  string
	Height   uint64
	LastSeen time.Time
	Active   bool
}

// NewPeer constructs a peer record for the specified address, deriving its
// node identifier and stamping it as just seen.
func NewPeer(host string, port int) Peer {
	return Peer{
		Host:     host,
		Port:     port,
		ID:       IDFromAddress(host, port),
		LastSeen: time.Now(),
		Active:   true,
	}
}

// Address returns the host:port form of the peer.
func (p Peer) Address() string {
	return fmt.Sprintf("%s:%d", p.Host, p.Port)
}

// =============================================================================

// Pinger probes a peer for liveness. A full bucket uses it to decide
// between keeping its least recently seen entry and admitting a newcomer.
type Pinger interface {
	Ping(peer Peer) bool
}

// PingerFunc adapts a function to the Pinger interface.
type PingerFunc func(peer Peer) bool

// Ping implements the Pinger interface.
func (f PingerFunc) Ping(peer Peer) bool {
	return f(peer)
}
