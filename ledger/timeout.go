package ledger

import (
	"context"
	"time"
)

// Ledger is a client that can both anchor and read.
type Ledger interface {
	Reader
	Anchorer
}

type timeoutReader struct {
	Reader
	timeout time.Duration
}

func (t timeoutReader) Transaction(ctx context.Context, txHash string) (*TxRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.Reader.Transaction(ctx, txHash)
}

type timeoutAnchorer struct {
	Anchorer
	timeout time.Duration
}

func (t timeoutAnchorer) Anchor(ctx context.Context, payload []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.Anchorer.Anchor(ctx, payload)
}

// ReaderWithTimeout bounds every lookup by d. A non-positive d returns r as is.
func ReaderWithTimeout(r Reader, d time.Duration) Reader {
	if d <= 0 {
		return r
	}
	return timeoutReader{Reader: r, timeout: d}
}

// AnchorerWithTimeout bounds every anchoring call, receipt wait included, by d.
func AnchorerWithTimeout(a Anchorer, d time.Duration) Anchorer {
	if d <= 0 {
		return a
	}
	return timeoutAnchorer{Anchorer: a, timeout: d}
}
