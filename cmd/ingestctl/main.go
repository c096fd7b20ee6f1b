// ingestctl drives document processing against a running docuvec
// server, using the retrying client.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/docuvec/docuvec/internal/client"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cmd := &cli.Command{
		Name:  "ingestctl",
		Usage: "trigger and monitor document processing",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Usage:   "base URL of the docuvec API",
				Value:   "http://localhost:8080",
				Sources: cli.EnvVars("DOCUVEC_SERVER_URL"),
			},
			&cli.StringFlag{
				Name:     "token",
				Usage:    "bearer token for the API",
				Sources:  cli.EnvVars("DOCUVEC_TOKEN"),
				Required: true,
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "process",
				Usage:     "run the ingestion pipeline for a file",
				ArgsUsage: "<file-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "provider",
						Usage: "embedding provider (openai or local)",
						Value: "openai",
					},
				},
				Action: processAction,
			},
		},
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func processAction(ctx context.Context, cmd *cli.Command) error {
	fileID := cmd.Args().First()
	if fileID == "" {
		return fmt.Errorf("file ID argument is required")
	}

	c := client.New(cmd.String("server"), cmd.String("token"))

	result, err := c.ProcessFile(ctx, fileID, cmd.String("provider"))
	if err != nil {
		return err
	}

	fmt.Printf("processed %s\n", fileID)
	fmt.Printf("  chunks:  %d\n", result.ChunkCount)
	fmt.Printf("  tokens:  %d\n", result.TokenCount)
	fmt.Printf("  batches: %d\n", result.BatchCount)
	fmt.Printf("  elapsed: %dms\n", result.ElapsedMS)
	return nil
}
