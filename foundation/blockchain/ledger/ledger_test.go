package ledger_test

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/ledger"
	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/merkle"
	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/signature"
	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/storage/memory"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// Accounts used across the tests. The from address is the one derived from
// the private key.
const (
	pkHexKey  = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	from      = "0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4"
	recipient = "0xF01813E4B85e178A83e29B8E7bF429c8ebA4a4a4"
)

// signedTx builds a signed transaction from the test key.
func signedTx(t *testing.T, amount float64, stamp uint64) ledger.SignedTx {
	t.Helper()

	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to parse the private key: %v", failed, err)
	}

	tx := ledger.Tx{
		Sender:    from,
		Recipient: recipient,
		Amount:    amount,
		TimeStamp: stamp,
	}

	signed, err := tx.Sign(pk)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to sign the transaction: %v", failed, err)
	}

	return signed
}

// mineTestBlock searches nonces until the block hash satisfies the
// difficulty. Tests run at difficulty 1 so this stays fast.
func mineTestBlock(t *testing.T, prev ledger.BlockData, txs []ledger.SignedTx, difficulty int) ledger.BlockData {
	t.Helper()

	root, err := merkle.Root(txs)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to compute the merkle root: %v", failed, err)
	}

	block := ledger.Block{
		Index:         prev.Index + 1,
		TimeStamp:     prev.TimeStamp + 60,
		Transactions:  txs,
		PrevBlockHash: prev.Hash,
		Nonce:         0,
		Difficulty:    difficulty,
		MerkleRoot:    root,
	}

	for {
		bd := ledger.NewBlockData(block)
		if ledger.IsHashSolved(difficulty, bd.Hash) {
			return bd
		}
		block.Nonce++
	}
}

func newLedger(t *testing.T) (*ledger.Ledger, *memory.Memory) {
	t.Helper()

	strg, err := memory.New()
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct storage: %v", failed, err)
	}

	lgr, err := ledger.New(strg, 1, nil)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the ledger: %v", failed, err)
	}

	return lgr, strg
}

// =============================================================================

func Test_Genesis(t *testing.T) {
	t.Log("Given the need to establish the chain from a genesis block.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen starting with empty storage.", testID)
		{
			lgr, strg := newLedger(t)

			gen := lgr.GenesisBlock()
			if gen.Index != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould have index 0: %d", failed, testID, gen.Index)
			}
			if gen.PrevBlockHash != signature.ZeroHash {
				t.Fatalf("\t%s\tTest %d:\tShould link to the zero hash: %s", failed, testID, gen.PrevBlockHash)
			}
			if len(gen.Transactions) != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould carry no transactions: %d", failed, testID, len(gen.Transactions))
			}
			if gen.MerkleRoot != merkle.EmptyRoot() {
				t.Fatalf("\t%s\tTest %d:\tShould carry the empty merkle root: %s", failed, testID, gen.MerkleRoot)
			}
			t.Logf("\t%s\tTest %d:\tShould create a well formed genesis block.", success, testID)

			blocks, err := strg.LoadChain()
			if err != nil || len(blocks) != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould persist the genesis block: %v %d", failed, testID, err, len(blocks))
			}
			t.Logf("\t%s\tTest %d:\tShould persist the genesis block.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen reopening the same storage.", testID)
		{
			lgr, strg := newLedger(t)
			gen := lgr.GenesisBlock()

			lgr2, err := ledger.New(strg, 1, nil)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to reopen the ledger: %v", failed, testID, err)
			}

			if lgr2.GenesisBlock().Hash != gen.Hash {
				t.Fatalf("\t%s\tTest %d:\tShould keep the original genesis block.", failed, testID)
			}
			if lgr2.Height() != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould not grow the chain on reopen: %d", failed, testID, lgr2.Height())
			}
			t.Logf("\t%s\tTest %d:\tShould keep the original genesis block on reopen.", success, testID)
		}
	}
}

func Test_Transactions(t *testing.T) {
	t.Log("Given the need to accept only valid signed transactions.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen submitting a valid transaction.", testID)
		{
			lgr, _ := newLedger(t)

			tx := signedTx(t, 12.5, 1760000000)
			idx, err := lgr.SubmitTransaction(tx)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept the transaction: %v", failed, testID, err)
			}
			if idx != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould target block 1: %d", failed, testID, idx)
			}
			if lgr.PendingCount() != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould hold 1 pending transaction: %d", failed, testID, lgr.PendingCount())
			}
			t.Logf("\t%s\tTest %d:\tShould accept the transaction into the pool.", success, testID)

			if _, err := lgr.SubmitTransaction(tx); !errors.Is(err, ledger.ErrDuplicateTransaction) {
				t.Fatalf("\t%s\tTest %d:\tShould reject a duplicate submission: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a duplicate submission.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen submitting tampered transactions.", testID)
		{
			lgr, _ := newLedger(t)

			// Raising the amount after signing breaks the recovery: the
			// signature recovers a different sender.
			tampered := signedTx(t, 10, 1760000000)
			tampered.Amount = 10000
			if _, err := lgr.SubmitTransaction(tampered); !errors.Is(err, ledger.ErrInvalidSignature) {
				t.Fatalf("\t%s\tTest %d:\tShould reject a tampered amount: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a tampered amount.", success, testID)

			forged := signedTx(t, 10, 1760000000)
			forged.Sender = recipient
			if _, err := lgr.SubmitTransaction(forged); !errors.Is(err, ledger.ErrInvalidSignature) {
				t.Fatalf("\t%s\tTest %d:\tShould reject a forged sender: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a forged sender.", success, testID)

			var missing ledger.SignedTx
			if _, err := lgr.SubmitTransaction(missing); !errors.Is(err, ledger.ErrMissingFields) {
				t.Fatalf("\t%s\tTest %d:\tShould reject an empty transaction: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject an empty transaction.", success, testID)
		}
	}
}

func Test_AppendBlock(t *testing.T) {
	t.Log("Given the need to extend the chain one validated block at a time.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen appending mined blocks.", testID)
		{
			lgr, _ := newLedger(t)

			b1 := mineTestBlock(t, lgr.GenesisBlock(), []ledger.SignedTx{signedTx(t, 5, 1760000000)}, 1)
			if err := lgr.AppendBlock(b1); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould append block 1: %v", failed, testID, err)
			}

			b2 := mineTestBlock(t, b1, []ledger.SignedTx{signedTx(t, 7, 1760000060)}, 1)
			if err := lgr.AppendBlock(b2); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould append block 2: %v", failed, testID, err)
			}

			if lgr.Height() != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould be at height 2: %d", failed, testID, lgr.Height())
			}
			if err := lgr.Validate(); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould hold a valid chain: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould extend the chain with valid blocks.", success, testID)

			if !lgr.KnowsBlockHash(b1.Hash) || lgr.KnowsBlockHash("feed") {
				t.Fatalf("\t%s\tTest %d:\tShould know exactly its own block hashes.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould know its own block hashes.", success, testID)

			blocks := lgr.Blocks(1, 9)
			if len(blocks) != 2 || blocks[0].Index != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould clamp range queries to the tip: %d", failed, testID, len(blocks))
			}
			t.Logf("\t%s\tTest %d:\tShould clamp range queries to the tip.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen appending invalid blocks.", testID)
		{
			lgr, _ := newLedger(t)
			gen := lgr.GenesisBlock()

			// A block linking to something other than the tip.
			orphan := mineTestBlock(t, gen, nil, 1)
			orphan.PrevBlockHash = "feedfeed"
			orphan = ledger.NewBlockData(orphan.Block)
			for !ledger.IsHashSolved(1, orphan.Hash) {
				orphan.Nonce++
				orphan = ledger.NewBlockData(orphan.Block)
			}
			if err := lgr.AppendBlock(orphan); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould reject a block not linking to the tip.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a block not linking to the tip.", success, testID)

			// A block whose hash does not satisfy its difficulty.
			unsolved := mineTestBlock(t, gen, nil, 1)
			unsolved.Difficulty = 64
			unsolved = ledger.NewBlockData(unsolved.Block)
			if err := lgr.AppendBlock(unsolved); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould reject an unsolved block.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould reject an unsolved block.", success, testID)

			// A block carrying a transaction not in its merkle root.
			wrongRoot := mineTestBlock(t, gen, []ledger.SignedTx{signedTx(t, 5, 1760000000)}, 1)
			wrongRoot.MerkleRoot = merkle.EmptyRoot()
			wrongRoot = ledger.NewBlockData(wrongRoot.Block)
			for !ledger.IsHashSolved(1, wrongRoot.Hash) {
				wrongRoot.Nonce++
				wrongRoot = ledger.NewBlockData(wrongRoot.Block)
			}
			if err := lgr.AppendBlock(wrongRoot); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould reject a block with a wrong merkle root.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a block with a wrong merkle root.", success, testID)
		}
	}
}

func Test_LongestChainReplacement(t *testing.T) {
	t.Log("Given the need to adopt the longest valid chain on the network.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen a peer offers a longer chain.", testID)
		{
			lgr, _ := newLedger(t)
			gen := lgr.GenesisBlock()

			local1 := mineTestBlock(t, gen, []ledger.SignedTx{signedTx(t, 1, 1760000000)}, 1)
			if err := lgr.AppendBlock(local1); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould append the local block: %v", failed, testID, err)
			}

			// A competing chain from the same genesis, one block longer.
			remote1 := mineTestBlock(t, gen, []ledger.SignedTx{signedTx(t, 2, 1760000001)}, 1)
			remote2 := mineTestBlock(t, remote1, []ledger.SignedTx{signedTx(t, 3, 1760000061)}, 1)
			candidate := []ledger.BlockData{gen, remote1, remote2}

			if err := lgr.ReplaceChain(candidate); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould adopt the longer chain: %v", failed, testID, err)
			}
			if lgr.Height() != 2 || lgr.LatestBlock().Hash != remote2.Hash {
				t.Fatalf("\t%s\tTest %d:\tShould sit on the adopted tip: %d", failed, testID, lgr.Height())
			}
			if lgr.KnowsBlockHash(local1.Hash) {
				t.Fatalf("\t%s\tTest %d:\tShould drop the replaced local block.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould adopt the longer chain wholesale.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen a peer offers an equal or invalid chain.", testID)
		{
			lgr, _ := newLedger(t)
			gen := lgr.GenesisBlock()

			b1 := mineTestBlock(t, gen, []ledger.SignedTx{signedTx(t, 1, 1760000000)}, 1)
			if err := lgr.AppendBlock(b1); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould append the local block: %v", failed, testID, err)
			}

			// Same length is not longer. Ties keep the local chain.
			other1 := mineTestBlock(t, gen, []ledger.SignedTx{signedTx(t, 9, 1760000002)}, 1)
			if err := lgr.ReplaceChain([]ledger.BlockData{gen, other1}); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould reject an equal length chain.", failed, testID)
			}
			if lgr.LatestBlock().Hash != b1.Hash {
				t.Fatalf("\t%s\tTest %d:\tShould keep the local tip on a tie.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould keep the local chain on a length tie.", success, testID)

			// Longer but tampered. The candidate is validated first.
			remote1 := mineTestBlock(t, gen, []ledger.SignedTx{signedTx(t, 2, 1760000001)}, 1)
			remote2 := mineTestBlock(t, remote1, []ledger.SignedTx{signedTx(t, 3, 1760000061)}, 1)
			remote2.Transactions[0].Amount = 10000
			if err := lgr.ReplaceChain([]ledger.BlockData{gen, remote1, remote2}); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould reject a tampered chain.", failed, testID)
			}
			if lgr.LatestBlock().Hash != b1.Hash {
				t.Fatalf("\t%s\tTest %d:\tShould keep the local tip after rejecting.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a longer but tampered chain.", success, testID)
		}
	}
}

func Test_Balance(t *testing.T) {
	t.Log("Given the need to fold balances out of the chain.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen an account sends and receives.", testID)
		{
			lgr, _ := newLedger(t)

			txs := []ledger.SignedTx{
				signedTx(t, 10, 1760000000),
				signedTx(t, 2.5, 1760000001),
			}
			b1 := mineTestBlock(t, lgr.GenesisBlock(), txs, 1)
			if err := lgr.AppendBlock(b1); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould append the block: %v", failed, testID, err)
			}

			if got := lgr.Balance(from); got != -12.5 {
				t.Fatalf("\t%s\tTest %d:\tShould debit the sender 12.5: %v", failed, testID, got)
			}
			if got := lgr.Balance(recipient); got != 12.5 {
				t.Fatalf("\t%s\tTest %d:\tShould credit the recipient 12.5: %v", failed, testID, got)
			}
			if got := lgr.Balance("0x0000000000000000000000000000000000000001"); got != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould report zero for unknown accounts: %v", failed, testID, got)
			}
			t.Logf("\t%s\tTest %d:\tShould fold amounts into balances.", success, testID)
		}
	}
}

func Test_PoolDrainRequeue(t *testing.T) {
	t.Log("Given the need to hand the pool to the mining engine atomically.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen draining and requeueing.", testID)
		{
			lgr, _ := newLedger(t)

			tx1 := signedTx(t, 1, 1760000000)
			tx2 := signedTx(t, 2, 1760000001)
			lgr.SubmitTransaction(tx1)
			lgr.SubmitTransaction(tx2)

			drained := lgr.DrainPool()
			if len(drained) != 2 || lgr.PendingCount() != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould drain the whole pool: %d left %d", failed, testID, len(drained), lgr.PendingCount())
			}
			t.Logf("\t%s\tTest %d:\tShould drain the whole pool at once.", success, testID)

			lgr.RequeueTransactions(drained)
			if lgr.PendingCount() != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould requeue cancelled transactions: %d", failed, testID, lgr.PendingCount())
			}
			t.Logf("\t%s\tTest %d:\tShould requeue cancelled transactions.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen requeueing transactions that got mined meanwhile.", testID)
		{
			lgr, _ := newLedger(t)

			tx1 := signedTx(t, 1, 1760000000)
			lgr.SubmitTransaction(tx1)
			drained := lgr.DrainPool()

			// The identical transaction arrives in a peer block while the
			// local attempt is cancelled.
			b1 := mineTestBlock(t, lgr.GenesisBlock(), []ledger.SignedTx{tx1}, 1)
			if err := lgr.AppendBlock(b1); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould append the peer block: %v", failed, testID, err)
			}

			lgr.RequeueTransactions(drained)
			if lgr.PendingCount() != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould drop already mined transactions: %d", failed, testID, lgr.PendingCount())
			}
			t.Logf("\t%s\tTest %d:\tShould drop already mined transactions on requeue.", success, testID)
		}
	}
}

func Test_BackupRecover(t *testing.T) {
	t.Log("Given the need to recover the chain from backups.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen recovering from the most recent backup.", testID)
		{
			lgr, _ := newLedger(t)

			b1 := mineTestBlock(t, lgr.GenesisBlock(), []ledger.SignedTx{signedTx(t, 1, 1760000000)}, 1)
			lgr.AppendBlock(b1)
			if err := lgr.Backup("height-000000000001"); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould take a backup: %v", failed, testID, err)
			}

			b2 := mineTestBlock(t, b1, []ledger.SignedTx{signedTx(t, 2, 1760000060)}, 1)
			lgr.AppendBlock(b2)

			if err := lgr.Recover(); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould recover from the backup: %v", failed, testID, err)
			}
			if lgr.Height() != 1 || lgr.LatestBlock().Hash != b1.Hash {
				t.Fatalf("\t%s\tTest %d:\tShould sit on the backed up tip: %d", failed, testID, lgr.Height())
			}
			t.Logf("\t%s\tTest %d:\tShould recover to the backed up tip.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen no backup exists.", testID)
		{
			lgr, _ := newLedger(t)

			if err := lgr.Recover(); !errors.Is(err, ledger.ErrRecoveryFailed) {
				t.Fatalf("\t%s\tTest %d:\tShould report the recovery failure: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould report recovery failure without backups.", success, testID)
		}
	}
}

func Test_DifficultyPersistence(t *testing.T) {
	t.Log("Given the need to carry difficulty across restarts.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the difficulty was adjusted before a restart.", testID)
		{
			strg, err := memory.New()
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould construct storage: %v", failed, testID, err)
			}

			lgr, err := ledger.New(strg, 1, nil)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould construct the ledger: %v", failed, testID, err)
			}

			if err := lgr.UpdateDifficulty(3); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould persist the new difficulty: %v", failed, testID, err)
			}

			lgr2, err := ledger.New(strg, 1, nil)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould reopen the ledger: %v", failed, testID, err)
			}
			if lgr2.Difficulty() != 3 {
				t.Fatalf("\t%s\tTest %d:\tShould restore difficulty 3: %d", failed, testID, lgr2.Difficulty())
			}
			t.Logf("\t%s\tTest %d:\tShould restore the adjusted difficulty.", success, testID)
		}
	}
}
