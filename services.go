package main

import (
	"context"
	"fmt"
	"log"

	"github.com/RobertPKyle/proofqr/apis"
	"github.com/RobertPKyle/proofqr/journal"
	"github.com/RobertPKyle/proofqr/ledger"
	"github.com/RobertPKyle/proofqr/proof"
	"github.com/RobertPKyle/proofqr/publish"
	"github.com/RobertPKyle/proofqr/qr"
	"github.com/RobertPKyle/proofqr/scans"
	"github.com/RobertPKyle/proofqr/verifier"
)

// memorySigner is the anchoring address reported in test mode.
const memorySigner = "0x00000000000000000000000000000000000000aa"

type Services struct {
	Counter     *scans.Counter
	Verifier    *verifier.Service
	Generator   *proof.Generator
	Renderer    *qr.Renderer
	Journal     journal.Journal
	ExplorerURL string
}

func (s *Services) Deps() apis.Deps {
	return apis.Deps{
		Generator:   s.Generator,
		Verifier:    s.Verifier,
		Counter:     s.Counter,
		Renderer:    s.Renderer,
		Journal:     s.Journal,
		ExplorerURL: s.ExplorerURL,
	}
}

func (s *Services) Close() {
	if s.Journal != nil {
		if err := s.Journal.Close(); err != nil {
			log.Printf("Failed to close the anchor journal: %v", err)
		}
	}
}

func newLedger(ctx context.Context, c *Config, enableTest bool) (ledger.Ledger, error) {
	if enableTest {
		return ledger.NewMemory(memorySigner), nil
	}
	if c.Ledger.RPCURL == "" {
		return nil, fmt.Errorf("no RPC endpoint configured, set RPC_URL or ledger.rpcURL")
	}
	if c.Ledger.PrivateKey == "" {
		log.Printf("No PRIVATE_KEY configured, anchoring is disabled.")
	}
	eth, err := ledger.DialEthereum(ctx, c.Ledger.RPCURL, c.Ledger.PrivateKey, c.pollInterval())
	if err != nil {
		return nil, err
	}
	return eth, nil
}

func newPublisher(ctx context.Context, c *Config) (proof.Publisher, error) {
	switch c.Publish.Method {
	case "":
		return nil, nil
	case "S3":
		p, err := publish.NewS3Publisher(ctx, c.Publish.S3)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, fmt.Errorf("unknown publish method: %s", c.Publish.Method)
}

// BuildServices wires one counter, verifier and generator for the process.
func BuildServices(ctx context.Context, c *Config, enableTest bool) (*Services, error) {
	l, err := newLedger(ctx, c, enableTest)
	if err != nil {
		return nil, err
	}

	reader, err := ledger.NewCachedReader(ledger.ReaderWithTimeout(l, c.ledgerTimeout()), c.Ledger.CacheSize)
	if err != nil {
		return nil, err
	}

	j, err := journal.Open(c.Journal.Driver, c.Journal.Target)
	if err != nil {
		return nil, err
	}

	publisher, err := newPublisher(ctx, c)
	if err != nil {
		if j != nil {
			_ = j.Close()
		}
		return nil, err
	}

	renderer := qr.NewRenderer(c.QR.Size)
	counter := scans.NewCounter()
	return &Services{
		Counter:     counter,
		Verifier:    verifier.NewService(reader, counter),
		Generator:   proof.NewGenerator(ledger.AnchorerWithTimeout(l, c.ledgerTimeout()), renderer, j, publisher),
		Renderer:    renderer,
		Journal:     j,
		ExplorerURL: c.Service.ExplorerURL,
	}, nil
}

func mustBuildServices(ctx context.Context, arguments *RuntimeArguments) *Services {
	config, err := LoadConfig(arguments.ConfigFilePath, arguments.EnvFilePath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	GlobalConfig = config

	services, err := BuildServices(ctx, &GlobalConfig, arguments.EnableTest)
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	return services
}
