package ledger

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

type fakeBackend struct {
	sync.Mutex
	chainID     *big.Int
	sent        []*types.Transaction
	sendErr     error
	lookupErr   error
	status      uint64
	minedAfter  int // receipt polls answered with NotFound before inclusion
	receiptPoll int
	txs         map[common.Hash]*types.Transaction
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		chainID: big.NewInt(11155111),
		status:  types.ReceiptStatusSuccessful,
		txs:     make(map[common.Hash]*types.Transaction),
	}
}

func (f *fakeBackend) ChainID(context.Context) (*big.Int, error) {
	return f.chainID, nil
}

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	f.Lock()
	defer f.Unlock()
	return uint64(len(f.sent)), nil
}

func (f *fakeBackend) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (f *fakeBackend) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(100), BaseFee: big.NewInt(7)}, nil
}

func (f *fakeBackend) EstimateGas(_ context.Context, msg ethereum.CallMsg) (uint64, error) {
	return 21000 + uint64(len(msg.Data))*16, nil
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.Lock()
	defer f.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, tx)
	f.txs[tx.Hash()] = tx
	return nil
}

func (f *fakeBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	f.Lock()
	defer f.Unlock()
	if _, found := f.txs[hash]; !found {
		return nil, ethereum.NotFound
	}
	f.receiptPoll++
	if f.receiptPoll <= f.minedAfter {
		return nil, ethereum.NotFound
	}
	return &types.Receipt{Status: f.status, TxHash: hash, BlockNumber: big.NewInt(101)}, nil
}

func (f *fakeBackend) TransactionByHash(_ context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	f.Lock()
	defer f.Unlock()
	if f.lookupErr != nil {
		return nil, false, f.lookupErr
	}
	tx, found := f.txs[hash]
	if !found {
		return nil, false, ethereum.NotFound
	}
	return tx, false, nil
}

func newTestEthereum(t *testing.T, backend Backend) (*Ethereum, common.Address) {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	e, err := NewEthereum(backend, common.Bytes2Hex(crypto.FromECDSA(key)), time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	return e, crypto.PubkeyToAddress(key.PublicKey)
}

func TestAnchorBuildsSelfAddressedZeroValueTx(t *testing.T) {
	backend := newFakeBackend()
	backend.minedAfter = 2
	e, address := newTestEthereum(t, backend)
	payload := crypto.Keccak256([]byte("hello"))

	txHash, err := e.Anchor(context.Background(), payload)
	if err != nil {
		t.Fatal(err)
	}
	if len(backend.sent) != 1 {
		t.Fatalf("expected one broadcast, got %d", len(backend.sent))
	}
	tx := backend.sent[0]
	if tx.Hash().Hex() != txHash {
		t.Fatalf("returned hash %s, broadcast %s", txHash, tx.Hash().Hex())
	}
	if tx.To() == nil || *tx.To() != address {
		t.Fatalf("tx is not self-addressed: to=%v signer=%s", tx.To(), address.Hex())
	}
	if tx.Value().Sign() != 0 {
		t.Fatalf("tx value = %v, want 0", tx.Value())
	}
	if !bytes.Equal(tx.Data(), payload) {
		t.Fatalf("tx data = %x, want %x", tx.Data(), payload)
	}
	if want := big.NewInt(1_000_000_000 + 14); tx.GasFeeCap().Cmp(want) != 0 {
		t.Fatalf("fee cap = %v, want %v", tx.GasFeeCap(), want)
	}
	if e.Signer() != address.Hex() {
		t.Fatalf("Signer() = %s, want %s", e.Signer(), address.Hex())
	}

	record, err := e.Transaction(context.Background(), txHash)
	if err != nil {
		t.Fatal(err)
	}
	if record.From != address.Hex() || record.To != address.Hex() {
		t.Fatalf("unexpected record parties: %+v", record)
	}
	if !bytes.Equal(record.Payload, payload) {
		t.Fatalf("record payload = %x", record.Payload)
	}
}

func TestAnchorWithoutSigner(t *testing.T) {
	e, err := NewEthereum(newFakeBackend(), "", time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if e.Signer() != "" {
		t.Fatalf("expected no signer, got %s", e.Signer())
	}
	if _, err := e.Anchor(context.Background(), []byte{1}); !errors.Is(err, ErrSignerUnavailable) {
		t.Fatalf("expected ErrSignerUnavailable, got %v", err)
	}
}

func TestAnchorSendFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.sendErr = errors.New("insufficient funds for gas * price + value")
	e, _ := newTestEthereum(t, backend)

	_, err := e.Anchor(context.Background(), []byte{1})
	if !errors.Is(err, ErrAnchoringFailed) {
		t.Fatalf("expected ErrAnchoringFailed, got %v", err)
	}
	if !errors.Is(err, backend.sendErr) {
		t.Fatalf("expected cause to be kept, got %v", err)
	}
}

func TestAnchorReverted(t *testing.T) {
	backend := newFakeBackend()
	backend.status = types.ReceiptStatusFailed
	e, _ := newTestEthereum(t, backend)

	if _, err := e.Anchor(context.Background(), []byte{1}); !errors.Is(err, ErrAnchoringFailed) {
		t.Fatalf("expected ErrAnchoringFailed, got %v", err)
	}
}

func TestAnchorCancelledWhileWaiting(t *testing.T) {
	backend := newFakeBackend()
	backend.minedAfter = 1 << 30
	e, _ := newTestEthereum(t, backend)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := e.Anchor(ctx, []byte{1})
	if !errors.Is(err, ErrAnchoringFailed) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected ErrAnchoringFailed wrapping the deadline, got %v", err)
	}
}

func TestInvalidPrivateKey(t *testing.T) {
	if _, err := NewEthereum(newFakeBackend(), "0xnotakey", time.Millisecond); err == nil {
		t.Fatal("expected error for invalid key")
	}
}

func TestTransactionErrors(t *testing.T) {
	backend := newFakeBackend()
	e, _ := newTestEthereum(t, backend)
	ctx := context.Background()

	if _, err := e.Transaction(ctx, "0xdeadbeef"); !errors.Is(err, ErrLookupFailed) {
		t.Fatalf("malformed hash: expected ErrLookupFailed, got %v", err)
	}
	unknown := common.HexToHash("0x01").Hex()
	if _, err := e.Transaction(ctx, unknown); !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("unknown hash: expected ErrTransactionNotFound, got %v", err)
	}
	backend.lookupErr = errors.New("connection refused")
	if _, err := e.Transaction(ctx, unknown); !errors.Is(err, ErrLookupFailed) {
		t.Fatalf("unreachable: expected ErrLookupFailed, got %v", err)
	}
}

func TestGasFeeCapWithoutBaseFee(t *testing.T) {
	got, err := gasFeeCap(nil, big.NewInt(5))
	if err != nil {
		t.Fatal(err)
	}
	if got.Cmp(big.NewInt(5)) != 0 {
		t.Fatalf("gasFeeCap = %v, want 5", got)
	}
}
