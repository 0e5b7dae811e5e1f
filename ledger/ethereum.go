package ledger

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/RobertPKyle/proofqr/internal/metrics"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/holiman/uint256"
)

const DefaultPollInterval = 2 * time.Second

// Backend is the subset of ethclient.Client used by Ethereum.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
}

// Ethereum anchors payloads on an EVM chain and reads transactions back.
type Ethereum struct {
	backend      Backend
	key          *ecdsa.PrivateKey
	address      common.Address
	pollInterval time.Duration

	// held from nonce selection to broadcast
	submitMu sync.Mutex
}

// DialEthereum connects to a JSON-RPC endpoint. privateKey may be empty, in
// which case the client can only read.
func DialEthereum(ctx context.Context, rpcURL, privateKey string, pollInterval time.Duration) (*Ethereum, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", rpcURL, err)
	}
	return NewEthereum(client, privateKey, pollInterval)
}

func NewEthereum(backend Backend, privateKey string, pollInterval time.Duration) (*Ethereum, error) {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	e := &Ethereum{
		backend:      backend,
		pollInterval: pollInterval,
	}
	if privateKey = strings.TrimPrefix(strings.TrimSpace(privateKey), "0x"); privateKey != "" {
		key, err := crypto.HexToECDSA(privateKey)
		if err != nil {
			return nil, fmt.Errorf("invalid private key: %w", err)
		}
		e.key = key
		e.address = crypto.PubkeyToAddress(key.PublicKey)
	}
	return e, nil
}

func (e *Ethereum) Signer() string {
	if e.key == nil {
		return ""
	}
	return e.address.Hex()
}

func (e *Ethereum) Anchor(ctx context.Context, payload []byte) (string, error) {
	if e.key == nil {
		return "", ErrSignerUnavailable
	}
	signed, err := e.submit(ctx, payload)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAnchoringFailed, err)
	}
	log.Printf("Submitted anchor transaction %s, waiting for inclusion", signed.Hash().Hex())

	receipt, err := e.waitMined(ctx, signed.Hash())
	if err != nil {
		return "", fmt.Errorf("%w: waiting for %s: %w", ErrAnchoringFailed, signed.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return "", fmt.Errorf("%w: transaction %s failed in block %v", ErrAnchoringFailed, receipt.TxHash.Hex(), receipt.BlockNumber)
	}
	return receipt.TxHash.Hex(), nil
}

func (e *Ethereum) submit(ctx context.Context, payload []byte) (*types.Transaction, error) {
	e.submitMu.Lock()
	defer e.submitMu.Unlock()

	defer metrics.ObserveLedgerCall("eth_sendRawTransaction", time.Now())

	chainID, err := e.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}
	nonce, err := e.backend.PendingNonceAt(ctx, e.address)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	tip, err := e.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to suggest gas tip: %w", err)
	}
	head, err := e.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest header: %w", err)
	}
	feeCap, err := gasFeeCap(head.BaseFee, tip)
	if err != nil {
		return nil, err
	}
	to := e.address
	gas, err := e.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  e.address,
		To:    &to,
		Value: common.Big0,
		Data:  payload,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to estimate gas: %w", err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Value:     big.NewInt(0),
		Data:      payload,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), e.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	if err := e.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}
	return signed, nil
}

// gasFeeCap returns 2*baseFee + tip, leaving headroom for base fee growth
// over the next few blocks.
func gasFeeCap(baseFee, tip *big.Int) (*big.Int, error) {
	t, overflow := uint256.FromBig(tip)
	if overflow {
		return nil, fmt.Errorf("gas tip %v overflows", tip)
	}
	if baseFee == nil {
		return t.ToBig(), nil
	}
	b, overflow := uint256.FromBig(baseFee)
	if overflow {
		return nil, fmt.Errorf("base fee %v overflows", baseFee)
	}
	capped := new(uint256.Int).Mul(b, uint256.NewInt(2))
	return capped.Add(capped, t).ToBig(), nil
}

func (e *Ethereum) waitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()
	for {
		started := time.Now()
		receipt, err := e.backend.TransactionReceipt(ctx, hash)
		metrics.ObserveLedgerCall("eth_getTransactionReceipt", started)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			log.Printf("Receipt lookup for %s failed: %v", hash.Hex(), err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (e *Ethereum) Transaction(ctx context.Context, txHash string) (*TxRecord, error) {
	hash, err := ParseTxHash(txHash)
	if err != nil {
		return nil, err
	}
	started := time.Now()
	tx, pending, err := e.backend.TransactionByHash(ctx, hash)
	metrics.ObserveLedgerCall("eth_getTransactionByHash", started)
	if errors.Is(err, ethereum.NotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, hash.Hex())
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLookupFailed, err)
	}
	return recordFromTx(tx, pending), nil
}

func recordFromTx(tx *types.Transaction, pending bool) *TxRecord {
	record := &TxRecord{
		Hash:    tx.Hash().Hex(),
		Payload: tx.Data(),
		Pending: pending,
	}
	if to := tx.To(); to != nil {
		record.To = to.Hex()
	}
	if from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx); err == nil {
		record.From = from.Hex()
	}
	return record
}
