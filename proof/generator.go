// Package proof runs the generate pipeline: hash the input, anchor the hash
// on the ledger and render the resulting transaction hash as a QR code.
package proof

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/RobertPKyle/proofqr/internal/metrics"
	"github.com/RobertPKyle/proofqr/journal"
	"github.com/RobertPKyle/proofqr/ledger"
	"github.com/RobertPKyle/proofqr/qr"
	"github.com/RobertPKyle/proofqr/token"
)

type Publisher interface {
	Publish(ctx context.Context, txHash string, code *qr.Code) ([]string, error)
}

type Result struct {
	TxHash    string
	Token     token.Token
	Code      *qr.Code
	CreatedAt time.Time
	// Published holds the object keys of the uploaded renderings, if any.
	Published []string
}

type Generator struct {
	anchorer  ledger.Anchorer
	renderer  *qr.Renderer
	journal   journal.Journal
	publisher Publisher
	now       func() time.Time
}

// NewGenerator wires the pipeline. The journal and publisher may be nil.
func NewGenerator(anchorer ledger.Anchorer, renderer *qr.Renderer, j journal.Journal, publisher Publisher) *Generator {
	return &Generator{
		anchorer:  anchorer,
		renderer:  renderer,
		journal:   j,
		publisher: publisher,
		now:       time.Now,
	}
}

// Generate anchors the token of data and renders the transaction hash.
// Once the anchor succeeded, journal and publishing failures are only logged.
func (g *Generator) Generate(ctx context.Context, data string) (*Result, error) {
	tok := token.Encode(data)

	txHash, err := g.anchorer.Anchor(ctx, tok.Bytes())
	metrics.Anchors.WithLabelValues(anchorResult(err)).Inc()
	if err != nil {
		return nil, err
	}

	code, err := g.renderer.Render(txHash)
	if err != nil {
		return nil, fmt.Errorf("anchored %s but could not render it: %w", txHash, err)
	}

	result := &Result{
		TxHash:    txHash,
		Token:     tok,
		Code:      code,
		CreatedAt: g.now().UTC(),
	}

	if g.journal != nil {
		entry := journal.Entry{
			TxHash:    txHash,
			Token:     tok.Hex(),
			Signer:    g.anchorer.Signer(),
			CreatedAt: result.CreatedAt,
		}
		if err := g.journal.Record(ctx, entry); err != nil {
			log.Printf("Failed to journal anchor %s: %v", txHash, err)
		}
	}

	if g.publisher != nil {
		keys, err := g.publisher.Publish(ctx, txHash, code)
		if err != nil {
			log.Printf("Failed to publish QR code for %s: %v", txHash, err)
		}
		result.Published = keys
	}

	return result, nil
}

func anchorResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ledger.ErrSignerUnavailable):
		return "signer_unavailable"
	}
	return "failed"
}
