package kvstore

import (
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var ErrNotFound = errors.New("key not found")

type ByteMap struct {
	db *leveldb.DB
}

func NewByteMap(dbPath string) (*ByteMap, error) {
	db, err := leveldb.OpenFile(dbPath, nil)
	if err != nil {
		return nil, err
	}
	return &ByteMap{
		db: db,
	}, nil
}

func (bm *ByteMap) Get(key []byte) ([]byte, error) {
	value, err := bm.db.Get(key, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, err
	}
	return value, nil
}

// Insert adds or updates a key-value pair in the map.
func (bm *ByteMap) Insert(key []byte, value []byte) error {
	return bm.db.Put(key, value, nil)
}

func (bm *ByteMap) Delete(key []byte) error {
	return bm.db.Delete(key, nil)
}

// Has reports whether key is present.
func (bm *ByteMap) Has(key []byte) (bool, error) {
	return bm.db.Has(key, nil)
}

// Range calls fn for every key with the given prefix, in key order, until fn
// returns false.
func (bm *ByteMap) Range(prefix []byte, fn func(key, value []byte) bool) error {
	iter := bm.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()
	for iter.Next() {
		if !fn(iter.Key(), iter.Value()) {
			break
		}
	}
	return iter.Error()
}

func (bm *ByteMap) Close() error {
	return bm.db.Close()
}
