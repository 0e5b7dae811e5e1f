package ledger

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultCacheSize = 4096

// CachedReader keeps included transactions in an LRU. Misses, failures and
// pending transactions always go to the underlying reader.
type CachedReader struct {
	reader Reader
	cache  *lru.Cache[common.Hash, TxRecord]
}

func NewCachedReader(reader Reader, size int) (*CachedReader, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[common.Hash, TxRecord](size)
	if err != nil {
		return nil, err
	}
	return &CachedReader{reader: reader, cache: cache}, nil
}

func (c *CachedReader) Transaction(ctx context.Context, txHash string) (*TxRecord, error) {
	hash, err := ParseTxHash(txHash)
	if err != nil {
		return nil, err
	}
	if record, ok := c.cache.Get(hash); ok {
		return &record, nil
	}
	record, err := c.reader.Transaction(ctx, txHash)
	if err != nil {
		return nil, err
	}
	if !record.Pending {
		c.cache.Add(hash, *record)
	}
	return record, nil
}

// Len returns the number of cached records.
func (c *CachedReader) Len() int {
	return c.cache.Len()
}
