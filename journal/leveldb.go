package journal

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/RobertPKyle/proofqr/internal/kvstore"
)

const (
	entryPrefix = "anchor/"
	// timeline keys sort newest first: "time/" + (MaxInt64 - unixNano) + txHash
	timePrefix = "time/"
)

// LevelDB stores entries in a local leveldb directory.
type LevelDB struct {
	bm *kvstore.ByteMap
}

func OpenLevelDB(path string) (*LevelDB, error) {
	bm, err := kvstore.NewByteMap(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal at %s: %w", path, err)
	}
	return &LevelDB{bm: bm}, nil
}

func entryKey(txHash string) []byte {
	return []byte(entryPrefix + strings.ToLower(txHash))
}

func timeKey(entry Entry) []byte {
	key := make([]byte, 0, len(timePrefix)+8+len(entry.TxHash))
	key = append(key, timePrefix...)
	key = binary.BigEndian.AppendUint64(key, uint64(math.MaxInt64-entry.CreatedAt.UnixNano()))
	return append(key, strings.ToLower(entry.TxHash)...)
}

func (l *LevelDB) Record(_ context.Context, entry Entry) error {
	value, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := l.bm.Insert(entryKey(entry.TxHash), value); err != nil {
		return err
	}
	return l.bm.Insert(timeKey(entry), []byte(strings.ToLower(entry.TxHash)))
}

func (l *LevelDB) Get(_ context.Context, txHash string) (*Entry, error) {
	value, err := l.bm.Get(entryKey(txHash))
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, txHash)
	}
	if err != nil {
		return nil, err
	}
	var entry Entry
	if err := json.Unmarshal(value, &entry); err != nil {
		return nil, fmt.Errorf("corrupt journal entry %s: %w", txHash, err)
	}
	return &entry, nil
}

func (l *LevelDB) List(ctx context.Context, limit int) ([]Entry, error) {
	var hashes []string
	err := l.bm.Range([]byte(timePrefix), func(_, value []byte) bool {
		hashes = append(hashes, string(value))
		return limit <= 0 || len(hashes) < limit
	})
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(hashes))
	for _, h := range hashes {
		entry, err := l.Get(ctx, h)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}

func (l *LevelDB) Close() error {
	return l.bm.Close()
}
