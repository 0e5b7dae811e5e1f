package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/RobertPKyle/proofqr/apis"
	"github.com/RobertPKyle/proofqr/internal/metrics"
)

var (
	version = "latest"
	gitHash = "unknown"
)

func ServiceStage(ctx context.Context, arguments *RuntimeArguments, services *Services) {
	metrics.Stage.Set(metrics.StageServing)

	opts := apis.Options{
		Addr:         GlobalConfig.Service.Listen,
		AllowOrigins: GlobalConfig.Service.AllowOrigins,
		EnableDebug:  arguments.EnableDebug,
		EnablePprof:  arguments.EnablePprof,
	}
	err := apis.StartService(ctx, services.Deps(), opts, GlobalConfig.shutdownTimeout())

	metrics.Stage.Set(metrics.StageStopping)
	if err != nil {
		log.Fatalf("Failed to serve the API: %v", err)
	}
	log.Printf("Service stopped.")
}

func Execution(arguments *RuntimeArguments) {
	go metrics.ListenAndServe(arguments.MetricAddr)
	metrics.Version.WithLabelValues(version).Set(1)
	metrics.Stage.Set(metrics.StageInitializing)
	log.Printf("proofqr %s (%s)", version, gitHash)

	// Create a context cancelled by SIGINT (Ctrl+C) or SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services := mustBuildServices(ctx, arguments)
	defer services.Close()

	ServiceStage(ctx, arguments, services)
}

func main() {
	arguments := NewRuntimeArguments()
	rootCmd := arguments.MakeCmd()
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Failed to execute: %v", err)
	}
}
