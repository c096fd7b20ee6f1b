package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/docuvec/docuvec/internal/config"
	"github.com/docuvec/docuvec/internal/core"
	db "github.com/docuvec/docuvec/internal/core/database"
	"github.com/docuvec/docuvec/internal/core/ingestion"
	"github.com/docuvec/docuvec/internal/core/llm"
	objectclient "github.com/docuvec/docuvec/internal/core/object-client"
	"github.com/docuvec/docuvec/internal/core/token"
)

type App struct {
	DBClient     core.DbClient
	ObjectClient core.ObjectClient
	Ingestor     *ingestion.FileIngestor
	Server       *Server
	Logger       *slog.Logger
}

// NewApp wires the service together. The database and object clients
// initialize in parallel; both must be ready before the server starts.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	var (
		dbClient  core.DbClient
		objClient core.ObjectClient
	)

	g, gctx := errgroup.WithContext(appCtx)
	g.Go(func() error {
		var err error
		dbClient, err = db.NewDatabaseClient(gctx, cfg)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		logger.Info("database initialized and ready")
		return nil
	})
	g.Go(func() error {
		var err error
		objClient, err = objectclient.NewS3Client(gctx, cfg)
		if err != nil {
			return fmt.Errorf("object storage: %w", err)
		}
		logger.Info("object client initialized and ready")
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tokenizer, err := token.NewCounter()
	if err != nil {
		return nil, fmt.Errorf("tokenizer: %w", err)
	}

	ingCfg := &ingestion.IngestConfig{
		MaxTokens:     cfg.ChunkMaxTokens,
		OverlapTokens: cfg.OverlapTokens,
		ItemCeiling:   cfg.ItemCeiling,
		BatchCeiling:  cfg.BatchCeiling,
		MaxFileBytes:  cfg.MaxFileBytes,
		Lease:         cfg.ProcessLease,
	}
	ingestor := ingestion.NewFileIngestor(dbClient, objClient, tokenizer, ingCfg, cfg.BucketName, logger)

	providers := llm.NewRegistry(cfg)

	server := NewServer(cfg, dbClient, objClient, ingestor, providers, logger)

	return &App{
		DBClient:     dbClient,
		ObjectClient: objClient,
		Ingestor:     ingestor,
		Server:       server,
		Logger:       logger,
	}, nil
}

func (a *App) Close() {
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
