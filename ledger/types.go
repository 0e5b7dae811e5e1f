package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	// ErrSignerUnavailable is returned by Anchor when no signing key is configured.
	ErrSignerUnavailable = errors.New("signer unavailable")
	// ErrAnchoringFailed wraps any submission, estimation or inclusion failure.
	ErrAnchoringFailed = errors.New("anchoring failed")
	// ErrLookupFailed covers malformed identifiers and unreachable endpoints.
	ErrLookupFailed = errors.New("ledger lookup failed")
	// ErrTransactionNotFound means the ledger answered and has no such transaction.
	ErrTransactionNotFound = errors.New("transaction not found")
)

// TxRecord is the part of a ledger transaction this service relies on.
type TxRecord struct {
	Hash    string
	From    string
	To      string
	Payload []byte
	Pending bool
}

// PayloadHex returns the payload as 0x-prefixed hex, "0x" when empty.
func (r *TxRecord) PayloadHex() string {
	return hexutil.Encode(r.Payload)
}

type Reader interface {
	Transaction(ctx context.Context, txHash string) (*TxRecord, error)
}

// Anchorer writes a payload to the ledger in a zero-value transaction sent
// to the signer's own address and returns the hash once it is included.
// Every successful call is a paid, irreversible ledger write.
type Anchorer interface {
	Anchor(ctx context.Context, payload []byte) (string, error)
	// Signer returns the anchoring address, or "" when none is configured.
	Signer() string
}

// ParseTxHash validates a 0x-prefixed 32 byte transaction hash.
func ParseTxHash(s string) (common.Hash, error) {
	raw, err := hexutil.Decode(s)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: malformed transaction hash %q: %w", ErrLookupFailed, s, err)
	}
	if len(raw) != common.HashLength {
		return common.Hash{}, fmt.Errorf("%w: transaction hash %q has %d bytes, expected %d", ErrLookupFailed, s, len(raw), common.HashLength)
	}
	return common.BytesToHash(raw), nil
}
