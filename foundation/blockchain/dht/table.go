package dht

import (
	"sort"
	"sync"
	"time"
)

// Table is the routing table for one node. All mutations are serialized
// under a single lock; reads hand out copies so no caller ever holds the
// lock during network I/O.
type Table struct {
	mu sync.Mutex

	self    NodeID
	k       int
	pinger  Pinger
	buckets [Buckets][]Peer
}

// NewTable constructs a routing table for the specified local identifier.
// A nil pinger means full buckets always keep their existing entries.
func NewTable(self NodeID, k int, pinger Pinger) *Table {
	if k <= 0 {
		k = K
	}

	return &Table{
		self:   self,
		k:      k,
		pinger: pinger,
	}
}

// Self returns the local node identifier the table is organized around.
func (t *Table) Self() NodeID {
	return t.self
}

// AddNode records contact with a peer. A known peer has its record
// refreshed. A new peer is inserted when its bucket has room, replaces an
// inactive entry otherwise, and displaces the least recently seen entry
// only when that entry fails a liveness probe. The probe runs with the
// lock released.
func (t *Table) AddNode(peer Peer) {
	if peer.ID == (NodeID{}) {
		peer.ID = IDFromAddress(peer.Host, peer.Port)
	}
	peer.Active = true
	if peer.LastSeen.IsZero() {
		peer.LastSeen = time.Now()
	}

	t.mu.Lock()

	idx := bucketIndex(t.self, peer.ID)
	bucket := t.buckets[idx]

	// Known peer: refresh the record.
	for i := range bucket {
		if bucket[i].ID == peer.ID {
			bucket[i].LastSeen = time.Now()
			bucket[i].Version = peer.Version
			bucket[i].Height = peer.Height
			bucket[i].Active = true
			t.mu.Unlock()
			return
		}
	}

	// Room in the bucket.
	if len(bucket) < t.k {
		t.buckets[idx] = append(bucket, peer)
		t.mu.Unlock()
		return
	}

	// Full bucket: replace an inactive entry if one exists.
	for i := range bucket {
		if !bucket[i].Active {
			bucket[i] = peer
			t.mu.Unlock()
			return
		}
	}

	// Probe the least recently seen entry for liveness. The bucket can
	// change while the lock is released, so the outcome is applied against
	// a fresh view.
	oldest := 0
	for i := range bucket {
		if bucket[i].LastSeen.Before(bucket[oldest].LastSeen) {
			oldest = i
		}
	}
	candidate := bucket[oldest]
	t.mu.Unlock()

	alive := t.pinger != nil && t.pinger.Ping(candidate)

	t.mu.Lock()
	defer t.mu.Unlock()

	bucket = t.buckets[idx]
	i := indexOf(bucket, candidate.ID)

	switch {
	case alive:
		// The bucket is full of live peers. Favor stability and drop the
		// newcomer.
		if i >= 0 {
			bucket[i].LastSeen = time.Now()
		}

	case i >= 0:
		bucket[i] = peer

	case len(bucket) < t.k:
		t.buckets[idx] = append(bucket, peer)
	}
}

// FindNode returns up to k peers closest to the target identifier, sorted
// ascending by XOR distance. Candidates are gathered from the target's
// bucket, widening to neighboring buckets until enough are found or the
// table is exhausted.
func (t *Table) FindNode(target NodeID) []Peer {
	t.mu.Lock()

	home := bucketIndex(t.self, target)
	candidates := append([]Peer{}, t.buckets[home]...)

	for d := 1; d < Buckets && len(candidates) < t.k; d++ {
		if lo := home - d; lo >= 0 {
			candidates = append(candidates, t.buckets[lo]...)
		}
		if hi := home + d; hi < Buckets {
			candidates = append(candidates, t.buckets[hi]...)
		}
	}

	t.mu.Unlock()

	sort.Slice(candidates, func(i, j int) bool {
		di := candidates[i].ID.Distance(target)
		dj := candidates[j].ID.Distance(target)
		return di.Less(dj)
	})

	if len(candidates) > t.k {
		candidates = candidates[:t.k]
	}

	return candidates
}

// MarkInactive flags a peer so the next full bucket decision can replace
// it and broadcasts skip it.
func (t *Table) MarkInactive(id NodeID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for idx := range t.buckets {
		for i := range t.buckets[idx] {
			if t.buckets[idx][i].ID == id {
				t.buckets[idx][i].Active = false
				return
			}
		}
	}
}

// EvictStale removes peers whose last contact is older than the threshold
// and returns the evicted records.
func (t *Table) EvictStale(threshold time.Duration) []Peer {
	now := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	var evicted []Peer

	for idx := range t.buckets {
		bucket := t.buckets[idx]
		keep := bucket[:0]

		for _, peer := range bucket {
			if now.Sub(peer.LastSeen) > threshold {
				evicted = append(evicted, peer)
				continue
			}
			keep = append(keep, peer)
		}

		t.buckets[idx] = keep
	}

	return evicted
}

// Peers returns a copy of every peer in the table.
func (t *Table) Peers() []Peer {
	t.mu.Lock()
	defer t.mu.Unlock()

	var peers []Peer
	for idx := range t.buckets {
		peers = append(peers, t.buckets[idx]...)
	}

	return peers
}

// ActivePeers returns a copy of the peers currently marked active.
func (t *Table) ActivePeers() []Peer {
	t.mu.Lock()
	defer t.mu.Unlock()

	var peers []Peer
	for idx := range t.buckets {
		for _, peer := range t.buckets[idx] {
			if peer.Active {
				peers = append(peers, peer)
			}
		}
	}

	return peers
}

// Count returns the number of peers in the table.
func (t *Table) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	var count int
	for idx := range t.buckets {
		count += len(t.buckets[idx])
	}

	return count
}

// =============================================================================

func indexOf(bucket []Peer, id NodeID) int {
	for i := range bucket {
		if bucket[i].ID == id {
			return i
		}
	}

	return -1
}
