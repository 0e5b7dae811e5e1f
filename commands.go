package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/RobertPKyle/proofqr/apis"
	"github.com/RobertPKyle/proofqr/qr"
	"github.com/RobertPKyle/proofqr/token"
	"github.com/RobertPKyle/proofqr/verifier"
)

const cliScanInterval = 10 * time.Millisecond

func runHash(w io.Writer, text string) {
	fmt.Fprintln(w, token.Encode(text).Hex())
}

func runAnchor(ctx context.Context, w io.Writer, services *Services, text, outDir string) error {
	result, err := services.Generator.Generate(ctx, text)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	pngPath := filepath.Join(outDir, qr.FileName(result.TxHash, "png"))
	if err := os.WriteFile(pngPath, result.Code.PNG, 0o644); err != nil {
		return err
	}
	svgPath := filepath.Join(outDir, qr.FileName(result.TxHash, "svg"))
	if err := os.WriteFile(svgPath, []byte(result.Code.SVG), 0o644); err != nil {
		return err
	}

	fmt.Fprintf(w, "token:  %s\n", result.Token.Hex())
	fmt.Fprintf(w, "txHash: %s\n", result.TxHash)
	fmt.Fprintf(w, "png:    %s\n", pngPath)
	fmt.Fprintf(w, "svg:    %s\n", svgPath)
	if link := apis.ExplorerLink(services.ExplorerURL, result.TxHash); link != "" {
		fmt.Fprintf(w, "explorer: %s\n", link)
	}
	return nil
}

// runScan reads the first code out of paths, or uses txHash when given, and
// prints the verdict.
func runScan(ctx context.Context, w io.Writer, service *verifier.Service, paths []string, txHash string) error {
	log.Printf("Verification state: %s", verifier.Idle)
	if txHash == "" {
		log.Printf("Verification state: %s", verifier.Scanning)
		scanner := qr.NewScanner(qr.NewImageFiles(paths...))
		scanner.Interval = cliScanInterval
		decoded, err := scanner.Scan(ctx)
		if err != nil {
			return err
		}
		txHash = decoded
	}

	log.Printf("Verification state: %s", verifier.Checking)
	verdict := service.Verify(ctx, txHash)
	log.Printf("Verification state: %s", verdict.Status)

	fmt.Fprintf(w, "txHash:  %s\n", verdict.TxHash)
	fmt.Fprintf(w, "status:  %s\n", verdict.Status)
	fmt.Fprintf(w, "message: %s\n", verdict.PublicMessage())
	fmt.Fprintf(w, "scans:   %d\n", verdict.ScanCount)
	return nil
}
