package public

import (
	"github.com/Caraveo/ZiaCoin-Network/business/sys/validate"
	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/ledger"
)

// newTx is what a wallet submits to get a transaction into the mempool.
type newTx struct {
	Sender    string  `json:"sender" validate:"required"`
	Recipient string  `json:"recipient" validate:"required"`
	Amount    float64 `json:"amount" validate:"required,gt=0"`
	Timestamp uint64  `json:"timestamp" validate:"required,gt=0"`
	Signature string  `json:"signature" validate:"required"`
}

// Validate checks the data in the model is considered clean.
func (nt newTx) Validate() error {
	if err := validate.Check(nt); err != nil {
		return err
	}
	return nil
}

// tx is the view of a pending transaction with nicknames resolved.
type tx struct {
	Sender        ledger.AccountID `json:"sender"`
	SenderName    string           `json:"sender_name,omitempty"`
	Recipient     ledger.AccountID `json:"recipient"`
	RecipientName string           `json:"recipient_name,omitempty"`
	Amount        float64          `json:"amount"`
	TimeStamp     uint64           `json:"timestamp"`
	Signature     string           `json:"signature"`
}

// balance is the folded value of a single account.
type balance struct {
	Account ledger.AccountID `json:"account"`
	Name    string           `json:"name,omitempty"`
	Balance float64          `json:"balance"`
}

// chainStatus reports the outcome of a full chain validation.
type chainStatus struct {
	Valid  bool   `json:"valid"`
	Height uint64 `json:"height"`
	Error  string `json:"error,omitempty"`
}

// nodeStatus is the summary returned by the status route.
type nodeStatus struct {
	Version       string `json:"version"`
	Host          string `json:"host"`
	NodeID        string `json:"node_id"`
	Height        uint64 `json:"height"`
	LatestHash    string `json:"latest_hash"`
	Difficulty    int    `json:"difficulty"`
	Mempool       int    `json:"mempool"`
	ActivePeers   int    `json:"active_peers"`
	MiningAllowed bool   `json:"mining_allowed"`
}
