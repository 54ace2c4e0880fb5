package merkle_test

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/merkle"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// emptyRoot is the hash of the empty byte string.
const emptyRoot = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

type tx struct {
	Sender    string  `json:"sender"`
	Recipient string  `json:"recipient"`
	Amount    float64 `json:"amount"`
}

// =============================================================================

func Test_EmptyList(t *testing.T) {
	t.Log("Given the need to commit to an empty transaction list.")
	{
		t.Logf("\tTest 0:\tWhen computing the root of no transactions.")
		{
			root, err := merkle.Root([]tx{})
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to compute the root: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to compute the root.", success)

			if root != emptyRoot {
				t.Logf("\t\tTest 0:\tgot: %s", root)
				t.Logf("\t\tTest 0:\texp: %s", emptyRoot)
				t.Fatalf("\t%s\tTest 0:\tShould commit to the hash of the empty byte string.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould commit to the hash of the empty byte string.", success)
		}
	}
}

func Test_SingleValue(t *testing.T) {
	t.Log("Given the need to commit to a single transaction.")
	{
		t.Logf("\tTest 0:\tWhen computing the root of one transaction.")
		{
			value := tx{Sender: "bill", Recipient: "jill", Amount: 10}

			root, err := merkle.Root([]tx{value})
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to compute the root: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to compute the root.", success)

			data, err := json.Marshal(value)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to marshal the transaction: %v", failed, err)
			}
			sum := sha256.Sum256(data)

			if exp := hex.EncodeToString(sum[:]); root != exp {
				t.Logf("\t\tTest 0:\tgot: %s", root)
				t.Logf("\t\tTest 0:\texp: %s", exp)
				t.Fatalf("\t%s\tTest 0:\tShould equal the hash of the transaction itself.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould equal the hash of the transaction itself.", success)
		}
	}
}

func Test_Determinism(t *testing.T) {
	type table struct {
		name string
		txs  []tx
	}

	tt := []table{
		{
			name: "pair",
			txs: []tx{
				{Sender: "bill", Recipient: "jill", Amount: 10},
				{Sender: "jill", Recipient: "bill", Amount: 5},
			},
		},
		{
			name: "five",
			txs: []tx{
				{Sender: "a", Recipient: "b", Amount: 1},
				{Sender: "b", Recipient: "c", Amount: 2},
				{Sender: "c", Recipient: "d", Amount: 3},
				{Sender: "d", Recipient: "e", Amount: 4},
				{Sender: "e", Recipient: "a", Amount: 5},
			},
		},
	}

	t.Log("Given the need to validate the root is a pure function of the ordered list.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen computing the root of the %s list twice.", testID, tst.name)
			{
				f := func(t *testing.T) {
					root1, err := merkle.Root(tst.txs)
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to compute the first root: %v", failed, testID, err)
					}

					root2, err := merkle.Root(tst.txs)
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to compute the second root: %v", failed, testID, err)
					}

					if root1 != root2 {
						t.Fatalf("\t%s\tTest %d:\tShould compute identical roots for identical lists.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould compute identical roots for identical lists.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func Test_OrderSensitivity(t *testing.T) {
	t.Log("Given the need to validate the root depends on transaction order.")
	{
		t.Logf("\tTest 0:\tWhen reversing a two transaction list.")
		{
			a := tx{Sender: "bill", Recipient: "jill", Amount: 10}
			b := tx{Sender: "jill", Recipient: "bill", Amount: 5}

			root1, err := merkle.Root([]tx{a, b})
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to compute the root: %v", failed, err)
			}

			root2, err := merkle.Root([]tx{b, a})
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to compute the root: %v", failed, err)
			}

			if root1 == root2 {
				t.Fatalf("\t%s\tTest 0:\tShould compute different roots for different orders.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould compute different roots for different orders.", success)
		}
	}
}

func Test_OddCountPairing(t *testing.T) {
	t.Log("Given the need to validate odd levels pair the last digest with itself.")
	{
		t.Logf("\tTest 0:\tWhen comparing a three item list to the same list with its last item doubled.")
		{
			a := tx{Sender: "a", Recipient: "b", Amount: 1}
			b := tx{Sender: "b", Recipient: "c", Amount: 2}
			c := tx{Sender: "c", Recipient: "d", Amount: 3}

			root1, err := merkle.Root([]tx{a, b, c})
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to compute the root: %v", failed, err)
			}

			root2, err := merkle.Root([]tx{a, b, c, c})
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to compute the root: %v", failed, err)
			}

			if root1 != root2 {
				t.Fatalf("\t%s\tTest 0:\tShould pair the trailing digest with itself.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould pair the trailing digest with itself.", success)
		}
	}
}
