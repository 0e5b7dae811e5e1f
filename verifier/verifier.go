package verifier

import (
	"context"
	"errors"
	"log"

	"github.com/RobertPKyle/proofqr/internal/metrics"
	"github.com/RobertPKyle/proofqr/ledger"
	"github.com/RobertPKyle/proofqr/scans"
)

// ErrEmptyPayload means the transaction exists but carries no data.
var ErrEmptyPayload = errors.New("no data found in transaction")

// State is the client-observable progress of one verification attempt.
type State int

const (
	Idle State = iota
	Scanning
	Checking
	Valid
	Invalid
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scanning:
		return "scanning"
	case Checking:
		return "checking"
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	}
	return "unknown"
}

// Verdict is the outcome of one Verify call. Status is Valid or Invalid.
// Err keeps the precise reason for an Invalid verdict: ErrEmptyPayload,
// ledger.ErrTransactionNotFound or ledger.ErrLookupFailed.
type Verdict struct {
	TxHash    string
	Status    State
	Message   string
	Payload   []byte
	ScanCount int64
	Err       error
}

func (v Verdict) Valid() bool {
	return v.Status == Valid
}

// Reason is a short label for logs and metrics.
func (v Verdict) Reason() string {
	switch {
	case v.Err == nil:
		return "ok"
	case errors.Is(v.Err, ErrEmptyPayload):
		return "empty_payload"
	case errors.Is(v.Err, ledger.ErrTransactionNotFound):
		return "not_found"
	default:
		return "lookup_failed"
	}
}

// PublicMessage is the text shown to end users. Not-found and lookup
// failures are deliberately indistinguishable here.
func (v Verdict) PublicMessage() string {
	if v.Valid() || errors.Is(v.Err, ErrEmptyPayload) {
		return v.Message
	}
	return "Invalid or unknown transaction"
}

// Service checks candidate transaction hashes against the ledger and records
// every attempt whose lookup returned a transaction.
type Service struct {
	reader  ledger.Reader
	counter *scans.Counter
}

func NewService(reader ledger.Reader, counter *scans.Counter) *Service {
	return &Service{reader: reader, counter: counter}
}

// Verify accepts any transaction with a non-empty payload. The payload is not
// compared with an expected token.
//
// The scan is counted right after a successful lookup, before the payload
// check: empty-payload attempts are counted, lookup failures and unknown
// hashes are not.
func (s *Service) Verify(ctx context.Context, candidate string) Verdict {
	verdict := s.verify(ctx, candidate)
	metrics.Verifications.WithLabelValues(verdict.Status.String(), verdict.Reason()).Inc()
	if verdict.Err != nil {
		log.Printf("Verification of %s: %s (%v)", candidate, verdict.Status, verdict.Err)
	}
	return verdict
}

func (s *Service) verify(ctx context.Context, candidate string) Verdict {
	verdict := Verdict{TxHash: candidate, Status: Invalid}

	record, err := s.reader.Transaction(ctx, candidate)
	if err != nil {
		verdict.Err = err
		verdict.Message = err.Error()
		verdict.ScanCount = s.counter.Count(candidate)
		return verdict
	}

	verdict.ScanCount = s.counter.RecordScan(candidate)
	metrics.TrackedCodes.Set(float64(s.counter.Len()))

	if len(record.Payload) == 0 {
		verdict.Err = ErrEmptyPayload
		verdict.Message = "No data found in transaction"
		return verdict
	}

	verdict.Status = Valid
	verdict.Payload = record.Payload
	verdict.Message = "Blockchain verified! Data hash: " + summarize(record.PayloadHex()) + "..."
	return verdict
}

func summarize(payloadHex string) string {
	const keep = 20
	if len(payloadHex) <= keep {
		return payloadHex
	}
	return payloadHex[:keep]
}
