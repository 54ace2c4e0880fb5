package dht_test

import (
	"testing"
	"time"

	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/dht"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// testPeer builds a peer with a handcrafted identifier so tests control
// exactly which bucket it lands in relative to a zero local identifier.
func testPeer(firstByte byte, port int, lastSeen time.Time) dht.Peer {
	var id dht.NodeID
	id[0] = firstByte

	return dht.Peer{
		Host:     "192.168.0.1",
		Port:     port,
		ID:       id,
		LastSeen: lastSeen,
		Active:   true,
	}
}

// =============================================================================

func Test_NodeID(t *testing.T) {
	t.Log("Given the need to derive stable identifiers from network addresses.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen deriving identifiers.", testID)
		{
			a := dht.IDFromAddress("10.0.0.1", 8333)
			b := dht.IDFromAddress("10.0.0.1", 8333)
			c := dht.IDFromAddress("10.0.0.1", 8334)

			if a != b {
				t.Fatalf("\t%s\tTest %d:\tShould derive the same id for the same address.", failed, testID)
			}
			if a == c {
				t.Fatalf("\t%s\tTest %d:\tShould derive different ids for different ports.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould derive ids deterministically from the address.", success, testID)

			if a.Distance(a) != (dht.NodeID{}) {
				t.Fatalf("\t%s\tTest %d:\tShould measure zero distance to itself.", failed, testID)
			}
			if a.Distance(c) != c.Distance(a) {
				t.Fatalf("\t%s\tTest %d:\tShould measure symmetric distances.", failed, testID)
			}
			if !(dht.NodeID{}).Less(a) {
				t.Fatalf("\t%s\tTest %d:\tShould order the zero id below any other.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould behave as a metric over the keyspace.", success, testID)
		}
	}
}

func Test_AddNode(t *testing.T) {
	t.Log("Given the need to track peer contact in routing buckets.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the same peer reports contact twice.", testID)
		{
			table := dht.NewTable(dht.NodeID{}, 2, nil)

			peer := testPeer(0x80, 9000, time.Now())
			peer.Version = "1.0.0"
			peer.Height = 5
			table.AddNode(peer)

			peer.Version = "1.0.1"
			peer.Height = 9
			table.AddNode(peer)

			if table.Count() != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould hold a single record: %d", failed, testID, table.Count())
			}

			got := table.Peers()[0]
			if got.Version != "1.0.1" || got.Height != 9 {
				t.Fatalf("\t%s\tTest %d:\tShould refresh version and height: %s %d", failed, testID, got.Version, got.Height)
			}
			t.Logf("\t%s\tTest %d:\tShould refresh the existing record.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen a bucket fills and the oldest entry is dead.", testID)
		{
			pinger := dht.PingerFunc(func(peer dht.Peer) bool {
				return false
			})
			table := dht.NewTable(dht.NodeID{}, 2, pinger)

			// All three land in the same bucket relative to the zero id.
			oldest := testPeer(0x80, 9000, time.Now().Add(-3*time.Minute))
			second := testPeer(0x81, 9001, time.Now().Add(-2*time.Minute))
			newcomer := testPeer(0x82, 9002, time.Now())

			table.AddNode(oldest)
			table.AddNode(second)
			table.AddNode(newcomer)

			if table.Count() != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould keep the bucket at capacity: %d", failed, testID, table.Count())
			}
			for _, peer := range table.Peers() {
				if peer.ID == oldest.ID {
					t.Fatalf("\t%s\tTest %d:\tShould evict the dead oldest entry.", failed, testID)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould evict the dead oldest entry for the newcomer.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen a bucket fills and the oldest entry is alive.", testID)
		{
			pinger := dht.PingerFunc(func(peer dht.Peer) bool {
				return true
			})
			table := dht.NewTable(dht.NodeID{}, 2, pinger)

			oldest := testPeer(0x80, 9000, time.Now().Add(-3*time.Minute))
			second := testPeer(0x81, 9001, time.Now().Add(-2*time.Minute))
			newcomer := testPeer(0x82, 9002, time.Now())

			table.AddNode(oldest)
			table.AddNode(second)
			table.AddNode(newcomer)

			if table.Count() != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould keep the bucket at capacity: %d", failed, testID, table.Count())
			}
			for _, peer := range table.Peers() {
				if peer.ID == newcomer.ID {
					t.Fatalf("\t%s\tTest %d:\tShould drop the newcomer when the oldest answers.", failed, testID)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould keep live entries and drop the newcomer.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen a full bucket holds an inactive entry.", testID)
		{
			table := dht.NewTable(dht.NodeID{}, 2, nil)

			stale := testPeer(0x80, 9000, time.Now())
			live := testPeer(0x81, 9001, time.Now())
			newcomer := testPeer(0x82, 9002, time.Now())

			table.AddNode(stale)
			table.AddNode(live)
			table.MarkInactive(stale.ID)
			table.AddNode(newcomer)

			if table.Count() != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould keep the bucket at capacity: %d", failed, testID, table.Count())
			}
			for _, peer := range table.Peers() {
				if peer.ID == stale.ID {
					t.Fatalf("\t%s\tTest %d:\tShould replace the inactive entry first.", failed, testID)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould replace the inactive entry without probing.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen a peer arrives without an identifier.", testID)
		{
			table := dht.NewTable(dht.IDFromAddress("10.0.0.1", 8333), dht.K, nil)

			table.AddNode(dht.Peer{Host: "10.0.0.2", Port: 8333})

			peers := table.Peers()
			if len(peers) != 1 || peers[0].ID != dht.IDFromAddress("10.0.0.2", 8333) {
				t.Fatalf("\t%s\tTest %d:\tShould derive the id from the address.", failed, testID)
			}
			if peers[0].LastSeen.IsZero() || !peers[0].Active {
				t.Fatalf("\t%s\tTest %d:\tShould stamp the record as just seen.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould derive the id and stamp the record.", success, testID)
		}
	}
}

func Test_FindNode(t *testing.T) {
	t.Log("Given the need to locate the peers closest to a target.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen peers spread across neighboring buckets.", testID)
		{
			table := dht.NewTable(dht.NodeID{}, 3, nil)

			for i, b := range []byte{0x01, 0x02, 0x04, 0x08, 0x10} {
				table.AddNode(testPeer(b, 9000+i, time.Now()))
			}

			var target dht.NodeID
			target[0] = 0x03

			got := table.FindNode(target)
			if len(got) != 3 {
				t.Fatalf("\t%s\tTest %d:\tShould cap the result at k: %d", failed, testID, len(got))
			}

			want := []byte{0x02, 0x01, 0x04}
			for i := range want {
				if got[i].ID[0] != want[i] {
					t.Fatalf("\t%s\tTest %d:\tShould order by distance, position %d got %#x exp %#x", failed, testID, i, got[i].ID[0], want[i])
				}
			}
			t.Logf("\t%s\tTest %d:\tShould return the k closest ordered by distance.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the table holds fewer than k peers.", testID)
		{
			table := dht.NewTable(dht.NodeID{}, 20, nil)
			table.AddNode(testPeer(0x40, 9000, time.Now()))
			table.AddNode(testPeer(0x20, 9001, time.Now()))

			got := table.FindNode(table.Self())
			if len(got) != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould return every known peer: %d", failed, testID, len(got))
			}
			if got[0].ID[0] != 0x20 {
				t.Fatalf("\t%s\tTest %d:\tShould place the closest peer first: %#x", failed, testID, got[0].ID[0])
			}
			t.Logf("\t%s\tTest %d:\tShould return all peers when under k.", success, testID)
		}
	}
}

func Test_EvictStale(t *testing.T) {
	t.Log("Given the need to drop peers that stopped reporting contact.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen some peers have gone quiet.", testID)
		{
			table := dht.NewTable(dht.NodeID{}, dht.K, nil)

			quiet := testPeer(0x80, 9000, time.Now().Add(-2*time.Hour))
			fresh := testPeer(0x40, 9001, time.Now())
			table.AddNode(quiet)
			table.AddNode(fresh)

			evicted := table.EvictStale(time.Hour)
			if len(evicted) != 1 || evicted[0].ID != quiet.ID {
				t.Fatalf("\t%s\tTest %d:\tShould evict exactly the quiet peer: %d", failed, testID, len(evicted))
			}
			if table.Count() != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould keep the fresh peer: %d", failed, testID, table.Count())
			}
			t.Logf("\t%s\tTest %d:\tShould evict quiet peers and keep fresh ones.", success, testID)
		}
	}
}

func Test_ActivePeers(t *testing.T) {
	t.Log("Given the need to broadcast only to reachable peers.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen a peer is marked inactive.", testID)
		{
			table := dht.NewTable(dht.NodeID{}, dht.K, nil)

			up := testPeer(0x80, 9000, time.Now())
			down := testPeer(0x40, 9001, time.Now())
			table.AddNode(up)
			table.AddNode(down)
			table.MarkInactive(down.ID)

			active := table.ActivePeers()
			if len(active) != 1 || active[0].ID != up.ID {
				t.Fatalf("\t%s\tTest %d:\tShould report only the active peer: %d", failed, testID, len(active))
			}
			if table.Count() != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould still track the inactive peer: %d", failed, testID, table.Count())
			}
			t.Logf("\t%s\tTest %d:\tShould exclude inactive peers from broadcasts only.", success, testID)
		}
	}
}
