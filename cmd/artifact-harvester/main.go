// Package main is the entry point for the artifact-harvester CLI.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/artifact-harvester/internal/app"
	"github.com/samvad-hq/artifact-harvester/internal/config"
	"github.com/samvad-hq/artifact-harvester/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdin, os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "harvester failed: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(stdin io.Reader, stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "artifact-harvester",
		Short: "Download museum artifact images listed in a CSV catalog",
		Long: `artifact-harvester reads a museum catalog CSV (title, image URL, date,
accession number, medium, location) and saves every image whose URL answers
HEAD with 200 as <title>_<accession number>.jpg.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHarvest(cmd, stdin, stdout)
		},
	}

	flags := cmd.Flags()
	flags.String("config", "", "YAML config file")
	flags.String("csv", "", "catalog CSV path (default \"met artifact data.csv\")")
	flags.String("output-dir", "", "directory images are written to (default \".\")")
	flags.String("log-level", "", "debug, info, warn or error")
	flags.Bool("skip-header", false, "treat the first CSV record as a header")
	flags.String("short-rows", "", "what to do with rows under six fields: fail or skip")
	flags.Bool("wait", true, "wait for Enter before exiting")
	flags.Int64("timeout", 0, "per-request HTTP timeout in seconds (default 100)")
	flags.Bool("resolve-page", false, "follow og:image when an image URL serves an HTML page")
	flags.String("publishers", "", "publishers registry file (YAML or JSON)")

	return cmd
}

func runHarvest(cmd *cobra.Command, stdin io.Reader, stdout io.Writer) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	ctx := cmd.Context()
	harvester, err := app.NewHarvester(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := harvester.Close(); err != nil {
			log.ErrorObj("harvester close failed", "error", err.Error())
		}
	}()

	status, err := harvester.Run(ctx)
	if err != nil {
		return fmt.Errorf("harvester run: %w", err)
	}
	fmt.Fprintln(stdout, status)

	if cfg.WaitForInput {
		waitForEnter(stdin)
	}
	return nil
}

// waitForEnter blocks until a line (or EOF) arrives on r.
func waitForEnter(r io.Reader) {
	if r == nil {
		return
	}
	_, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		logger.WarnObj("reading stdin failed", "stdin_error", err.Error())
	}
}
