package ledger

import (
	"crypto/ecdsa"
	"fmt"
	"time"

	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
)

// AccountID represents an account id that is used to sign transactions and
// is associated with transactions on the blockchain.
type AccountID string

// ToAccountID converts a hex encoded string to an account and validates the
// hex encoded string is formatted correctly.
func ToAccountID(hex string) (AccountID, error) {
	a := AccountID(hex)
	if !a.IsAccountID() {
		return "", fmt.Errorf("invalid account format: %q", hex)
	}

	return a, nil
}

// PublicKeyToAccountID converts the public key to an account value.
func PublicKeyToAccountID(pk ecdsa.PublicKey) AccountID {
	return AccountID(crypto.PubkeyToAddress(pk).String())
}

// IsAccountID verifies whether the underlying data represents a valid
// hex encoded account.
func (a AccountID) IsAccountID() bool {
	const addressLength = 20

	if has0xPrefix(a) {
		a = a[2:]
	}

	return len(a) == 2*addressLength && isHex(a)
}

// =============================================================================

// Tx is the transactional information between two parties.
type Tx struct {
	Sender    AccountID `json:"sender"`    // Account sending the funds.
	Recipient AccountID `json:"recipient"` // Account receiving the funds.
	Amount    float64   `json:"amount"`    // Monetary value moved by this transaction.
	TimeStamp uint64    `json:"timestamp"` // The time the transaction was created.
}

// NewTx constructs a new transaction stamped with the current time.
func NewTx(sender AccountID, recipient AccountID, amount float64) (Tx, error) {
	if !sender.IsAccountID() {
		return Tx{}, fmt.Errorf("sender account is not properly formatted")
	}

	if !recipient.IsAccountID() {
		return Tx{}, fmt.Errorf("recipient account is not properly formatted")
	}

	if amount <= 0 {
		return Tx{}, ErrInvalidAmount
	}

	tx := Tx{
		Sender:    sender,
		Recipient: recipient,
		Amount:    amount,
		TimeStamp: uint64(time.Now().UTC().Unix()),
	}

	return tx, nil
}

// Sign uses the specified private key to sign the transaction.
func (tx Tx) Sign(privateKey *ecdsa.PrivateKey) (SignedTx, error) {

	// Sign the transaction with the private key to produce a signature.
	v, r, s, err := signature.Sign(tx, privateKey)
	if err != nil {
		return SignedTx{}, err
	}

	// Construct the signed transaction, carrying the signature in its
	// single hex string wire form.
	signedTx := SignedTx{
		Tx:        tx,
		Signature: signature.SignatureString(v, r, s),
	}

	return signedTx, nil
}

// Fresh reports whether the transaction timestamp falls within the window
// around the specified time.
func (tx Tx) Fresh(now time.Time, window time.Duration) bool {
	ts := time.Unix(int64(tx.TimeStamp), 0)

	diff := now.Sub(ts)
	if diff < 0 {
		diff = -diff
	}

	return diff <= window
}

// =============================================================================

// SignedTx is a signed version of the transaction. This is how clients like
// a wallet provide transactions for inclusion into the blockchain.
type SignedTx struct {
	Tx
	Signature string `json:"signature"` // Hex encoded [R|S|V] signature of the transaction.
}

// Validate verifies the transaction carries its required fields, a positive
// amount and a signature that recovers to the stated sender.
func (tx SignedTx) Validate() error {
	if tx.Sender == "" || tx.Recipient == "" || tx.TimeStamp == 0 {
		return ErrMissingFields
	}

	if !tx.Sender.IsAccountID() || !tx.Recipient.IsAccountID() {
		return ErrMissingFields
	}

	if tx.Amount <= 0 {
		return ErrInvalidAmount
	}

	v, r, s, err := signature.ToVRSFromHexSignature(tx.Signature)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}

	if err := signature.VerifySignature(v, r, s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}

	from, err := signature.FromAddress(tx.Tx, v, r, s)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}

	if AccountID(from) != tx.Sender {
		return fmt.Errorf("%w: signature does not recover to sender", ErrInvalidSignature)
	}

	return nil
}

// FromAddress extracts the account id that signed the transaction.
func (tx SignedTx) FromAddress() (AccountID, error) {
	v, r, s, err := signature.ToVRSFromHexSignature(tx.Signature)
	if err != nil {
		return "", err
	}

	address, err := signature.FromAddress(tx.Tx, v, r, s)
	return AccountID(address), err
}

// String implements the fmt.Stringer interface for logging.
func (tx SignedTx) String() string {
	return fmt.Sprintf("%s:%s:%.8f", tx.Sender, tx.Recipient, tx.Amount)
}

// =============================================================================

// has0xPrefix validates the account starts with a 0x.
func has0xPrefix(a AccountID) bool {
	return len(a) >= 2 && a[0] == '0' && (a[1] == 'x' || a[1] == 'X')
}

// isHex validates whether each byte is valid hexadecimal string.
func isHex(a AccountID) bool {
	if len(a)%2 != 0 {
		return false
	}

	for _, c := range []byte(a) {
		if !isHexCharacter(c) {
			return false
		}
	}

	return true
}

// isHexCharacter returns bool of c being a valid hexadecimal.
func isHexCharacter(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
