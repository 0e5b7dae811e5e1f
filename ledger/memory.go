package ledger

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"
)

// Memory is an in-process ledger. It backs the --test mode and the tests of
// the packages that depend on a ledger.
type Memory struct {
	sync.Mutex
	signer string
	seq    uint64
	txs    map[string]*TxRecord

	// FailAnchor, when set, is returned (wrapped) by the next Anchor calls.
	FailAnchor error
	// FailLookup, when set, is returned (wrapped) by Transaction.
	FailLookup error
}

// NewMemory returns an empty ledger. An empty signer makes Anchor fail with
// ErrSignerUnavailable.
func NewMemory(signer string) *Memory {
	return &Memory{
		signer: signer,
		txs:    make(map[string]*TxRecord),
	}
}

func (m *Memory) Signer() string {
	return m.signer
}

func (m *Memory) Anchor(ctx context.Context, payload []byte) (string, error) {
	if m.signer == "" {
		return "", ErrSignerUnavailable
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrAnchoringFailed, err)
	}
	m.Lock()
	defer m.Unlock()
	if m.FailAnchor != nil {
		return "", fmt.Errorf("%w: %w", ErrAnchoringFailed, m.FailAnchor)
	}

	m.seq++
	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], m.seq)
	hash := crypto.Keccak256Hash([]byte(m.signer), seq[:], payload).Hex()
	m.txs[hash] = &TxRecord{
		Hash:    hash,
		From:    m.signer,
		To:      m.signer,
		Payload: append([]byte(nil), payload...),
	}
	return hash, nil
}

// Put stores an arbitrary transaction, e.g. one with an empty payload.
func (m *Memory) Put(record TxRecord) error {
	hash, err := ParseTxHash(record.Hash)
	if err != nil {
		return err
	}
	m.Lock()
	defer m.Unlock()
	record.Hash = hash.Hex()
	m.txs[record.Hash] = &record
	return nil
}

func (m *Memory) Transaction(ctx context.Context, txHash string) (*TxRecord, error) {
	hash, err := ParseTxHash(txHash)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLookupFailed, err)
	}
	m.Lock()
	defer m.Unlock()
	if m.FailLookup != nil {
		return nil, fmt.Errorf("%w: %w", ErrLookupFailed, m.FailLookup)
	}
	record, found := m.txs[hash.Hex()]
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, hash.Hex())
	}
	copied := *record
	return &copied, nil
}

// Len returns the number of stored transactions.
func (m *Memory) Len() int {
	m.Lock()
	defer m.Unlock()
	return len(m.txs)
}
