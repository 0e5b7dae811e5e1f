package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

type RuntimeArguments struct {
	// ConfigFilePath: JSON config, optional.
	ConfigFilePath string
	// EnvFilePath: dotenv file holding PRIVATE_KEY, RPC_URL or LISTEN.
	EnvFilePath string
	// MetricAddr: Prometheus listener.
	MetricAddr string
	// EnableTest: use an in-memory ledger instead of the RPC endpoint.
	EnableTest  bool
	EnableDebug bool
	EnablePprof bool

	// OutDir: where anchor writes the rendered codes.
	OutDir string
	// TxHash: skip scanning and verify this transaction hash.
	TxHash string
}

func NewRuntimeArguments() *RuntimeArguments {
	return &RuntimeArguments{}
}

func (arguments *RuntimeArguments) MakeCmd() *cobra.Command {
	var rootCmd = &cobra.Command{
		Use:   "proofqr",
		Short: "Anchors data on an EVM ledger and verifies it through QR codes.",
		Long: `
		proofqr hashes arbitrary text, writes the hash to the ledger in a zero-value transaction and renders the transaction hash as a QR code. Scanning the code later confirms the transaction exists and counts the scan.

		Without a subcommand the HTTP service is started.

		Flags:
		- "--config": JSON config file.
		- "--env": dotenv file read for PRIVATE_KEY, RPC_URL and LISTEN.
		- "--test": Use an in-memory ledger. Nothing is written on chain.
		`,
		Run: func(cmd *cobra.Command, args []string) {
			if arguments.EnableTest {
				log.Println("Test mode is enabled.")
			}
			if arguments.EnablePprof {
				log.Println("Pprof is enabled.")
			}
			Execution(arguments)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&arguments.ConfigFilePath, "config", "c", "", "Path to the JSON config file")
	rootCmd.PersistentFlags().StringVarP(&arguments.EnvFilePath, "env", "", ".env", "Path to the dotenv file")
	rootCmd.PersistentFlags().BoolVarP(&arguments.EnableTest, "test", "", false, "Enable this flag to use an in-memory ledger")
	rootCmd.Flags().StringVarP(&arguments.MetricAddr, "metrics", "", ":9090", "Address of the Prometheus listener")
	rootCmd.Flags().BoolVarP(&arguments.EnableDebug, "debug", "", false, "Enable this flag to run gin in debug mode")
	rootCmd.Flags().BoolVarP(&arguments.EnablePprof, "pprof", "", false, "Enable this flag to serve /debug/pprof")

	hashCmd := &cobra.Command{
		Use:   "hash <text>",
		Short: "Print the verification token of the text.",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			runHash(cmd.OutOrStdout(), strings.Join(args, " "))
		},
	}

	anchorCmd := &cobra.Command{
		Use:   "anchor <text>",
		Short: "Anchor the text and write its QR code as PNG and SVG.",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			services := mustBuildServices(ctx, arguments)
			defer services.Close()
			if err := runAnchor(ctx, cmd.OutOrStdout(), services, strings.Join(args, " "), arguments.OutDir); err != nil {
				log.Fatalf("Failed to anchor: %v", err)
			}
		},
	}
	anchorCmd.Flags().StringVarP(&arguments.OutDir, "out", "o", ".", "Directory to write the QR code files to")

	scanCmd := &cobra.Command{
		Use:   "scan [image...]",
		Short: "Read a QR code from images and verify the transaction it names.",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) == 0 && arguments.TxHash == "" {
				log.Fatalf("Nothing to verify: pass images or --tx")
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			services := mustBuildServices(ctx, arguments)
			defer services.Close()
			if err := runScan(ctx, cmd.OutOrStdout(), services.Verifier, args, arguments.TxHash); err != nil {
				log.Fatalf("Failed to scan: %v", err)
			}
		},
	}
	scanCmd.Flags().StringVarP(&arguments.TxHash, "tx", "", "", "Verify this transaction hash instead of scanning")

	rootCmd.AddCommand(hashCmd, anchorCmd, scanCmd)
	return rootCmd
}
