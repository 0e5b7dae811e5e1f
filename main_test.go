package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/RobertPKyle/proofqr/token"
)

func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		if err := os.Unsetenv(k); err != nil {
			t.Fatal(err)
		}
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	unsetEnv(t, "PRIVATE_KEY", "RPC_URL", "LISTEN")
	c, err := LoadConfig("", "")
	if err != nil {
		t.Fatal(err)
	}
	if c.Service.Listen != ":8080" || c.QR.Size != 256 || c.Journal.Driver != "" {
		t.Fatalf("unexpected defaults %+v", c)
	}
	if c.ledgerTimeout() != 0 {
		t.Fatal("no ledger timeout by default")
	}
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	unsetEnv(t, "PRIVATE_KEY", "RPC_URL", "LISTEN")
	dir := t.TempDir()

	configPath := filepath.Join(dir, "config.json")
	config := `{
		"service": {"listen": ":7000", "explorerURL": "https://example.org/tx/"},
		"ledger": {"rpcURL": "http://file", "timeout": 30},
		"journal": {"driver": "leveldb", "target": "anchors"}
	}`
	if err := os.WriteFile(configPath, []byte(config), 0o644); err != nil {
		t.Fatal(err)
	}
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("RPC_URL=http://dotenv\nPRIVATE_KEY=abc\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadConfig(configPath, envPath)
	if err != nil {
		t.Fatal(err)
	}
	if c.Service.Listen != ":7000" || c.Service.ExplorerURL != "https://example.org/tx/" {
		t.Fatalf("file values not applied: %+v", c.Service)
	}
	if c.Ledger.RPCURL != "http://dotenv" || c.Ledger.PrivateKey != "abc" {
		t.Fatalf("env values not applied: %+v", c.Ledger)
	}
	if c.QR.Size != 256 {
		t.Fatal("defaults must survive a partial config file")
	}
	if c.ledgerTimeout().Seconds() != 30 {
		t.Fatal(c.ledgerTimeout())
	}

	t.Setenv("LISTEN", ":9000")
	if c, err = LoadConfig(configPath, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatal(err)
	}
	if c.Service.Listen != ":9000" {
		t.Fatal(c.Service.Listen)
	}

	if _, err := LoadConfig(filepath.Join(dir, "missing.json"), ""); err == nil {
		t.Fatal("an explicit config path must exist")
	}
}

func newTestServices(t *testing.T) *Services {
	t.Helper()
	c := DefaultConfig()
	c.Journal.Driver = "leveldb"
	c.Journal.Target = filepath.Join(t.TempDir(), "journal")
	services, err := BuildServices(context.Background(), &c, true)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(services.Close)
	return services
}

func TestBuildServicesRequiresEndpoint(t *testing.T) {
	c := DefaultConfig()
	if _, err := BuildServices(context.Background(), &c, false); err == nil {
		t.Fatal("expected an error without RPC endpoint")
	}
	c.Publish.Method = "FTP"
	if _, err := BuildServices(context.Background(), &c, true); err == nil {
		t.Fatal("expected an error for an unknown publish method")
	}
}

func TestRunHash(t *testing.T) {
	var out bytes.Buffer
	runHash(&out, "hello")
	if got := strings.TrimSpace(out.String()); got != token.Encode("hello").Hex() {
		t.Fatal(got)
	}
}

func TestAnchorThenScan(t *testing.T) {
	ctx := context.Background()
	services := newTestServices(t)
	outDir := filepath.Join(t.TempDir(), "codes")

	var out bytes.Buffer
	if err := runAnchor(ctx, &out, services, "hello", outDir); err != nil {
		t.Fatal(err)
	}

	files, err := filepath.Glob(filepath.Join(outDir, "proofqr-*.png"))
	if err != nil || len(files) != 1 {
		t.Fatalf("expected one PNG, got %v %v", files, err)
	}
	if svgs, _ := filepath.Glob(filepath.Join(outDir, "proofqr-*.svg")); len(svgs) != 1 {
		t.Fatalf("expected one SVG, got %v", svgs)
	}

	entries, err := services.Journal.List(ctx, 0)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one journal entry, got %v %v", entries, err)
	}
	txHash := entries[0].TxHash
	if !strings.Contains(out.String(), txHash) {
		t.Fatalf("anchor output misses the hash: %s", out.String())
	}

	out.Reset()
	if err := runScan(ctx, &out, services.Verifier, []string{filepath.Join(outDir, "missing.png"), files[0]}, ""); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "status:  valid") || !strings.Contains(out.String(), "scans:   1") {
		t.Fatalf("unexpected scan output: %s", out.String())
	}

	out.Reset()
	if err := runScan(ctx, &out, services.Verifier, nil, txHash); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "scans:   2") {
		t.Fatalf("unexpected scan output: %s", out.String())
	}

	out.Reset()
	if err := runScan(ctx, &out, services.Verifier, nil, "0xdeadbeef"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Invalid or unknown transaction") || !strings.Contains(out.String(), "scans:   0") {
		t.Fatalf("unexpected scan output: %s", out.String())
	}
}

func TestScanWithoutCode(t *testing.T) {
	services := newTestServices(t)
	err := runScan(context.Background(), &bytes.Buffer{}, services.Verifier, []string{filepath.Join(t.TempDir(), "none.png")}, "")
	if err == nil {
		t.Fatal("expected an error when no image holds a code")
	}
}

func TestAnchorExplorerLink(t *testing.T) {
	services := newTestServices(t)
	services.ExplorerURL = "https://explorer.example/tx"

	var out bytes.Buffer
	if err := runAnchor(context.Background(), &out, services, "hello", t.TempDir()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "explorer: https://explorer.example/tx/0x") {
		t.Fatalf("explorer link not joined with a slash: %s", out.String())
	}

	services.ExplorerURL = ""
	out.Reset()
	if err := runAnchor(context.Background(), &out, services, "hello", t.TempDir()); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out.String(), "explorer:") {
		t.Fatalf("no explorer line expected: %s", out.String())
	}
}

func TestMakeCmd(t *testing.T) {
	cmd := NewRuntimeArguments().MakeCmd()
	for _, name := range []string{"hash", "anchor", "scan"} {
		if sub, _, err := cmd.Find([]string{name}); err != nil || sub.Name() != name {
			t.Fatalf("missing subcommand %s: %v", name, err)
		}
	}

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"hash", "hello"})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out.String()) != token.Encode("hello").Hex() {
		t.Fatal(out.String())
	}
}
