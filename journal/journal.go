// Package journal keeps an audit trail of the anchors this service paid for.
// It never stores scan counts.
package journal

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("journal entry not found")

// Entry records one anchoring transaction.
type Entry struct {
	TxHash    string    `json:"txHash"`
	Token     string    `json:"token"`
	Signer    string    `json:"signer"`
	CreatedAt time.Time `json:"createdAt"`
}

type Journal interface {
	Record(ctx context.Context, entry Entry) error
	Get(ctx context.Context, txHash string) (*Entry, error)
	// List returns the most recent entries first.
	List(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}
