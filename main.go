package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"conflict-pipeline/internal/config"
	"conflict-pipeline/internal/engine"
	"conflict-pipeline/internal/metrics"
	"conflict-pipeline/internal/nats"
	"conflict-pipeline/internal/processor"
	"conflict-pipeline/internal/source"
	"conflict-pipeline/internal/table"
	"conflict-pipeline/internal/workspace"
)

const defaultConfigPath = "config.yaml"

func main() {
	// Setup logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetLevel(logrus.InfoLevel)

	configPath := defaultConfigPath
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := loadConfig(configPath, logger)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Set log level from config
	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatalf("Pipeline failed: %v", err)
	}
}

// loadConfig falls back to the built-in analysis when the default file is absent
func loadConfig(path string, logger *logrus.Logger) (*config.Config, error) {
	cfg, err := config.LoadConfig(path)
	if err == nil {
		return cfg, nil
	}
	if path != defaultConfigPath || !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	logger.Infof("%s not found, using built-in configuration", path)
	cfg = config.Default()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(cfg *config.Config, logger *logrus.Logger) error {
	runID := uuid.NewString()
	logger.Infof("Starting conflict pipeline run %s", runID)

	dir := cfg.Workspace
	if !filepath.IsAbs(dir) {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to resolve working directory: %w", err)
		}
		dir = filepath.Join(cwd, dir)
	}
	ws := workspace.New(dir)
	logger.Infof("Workspace: %s", ws.Dir())

	// Open event source
	var db *sql.DB
	if cfg.Source.Enabled() {
		var err error
		db, err = source.Open(cfg.Source.Driver, cfg.Source.DSN)
		if err != nil {
			return err
		}
		defer db.Close()
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := NewPreflight(cfg, ws, db, logger).Check(ctx); err != nil {
		return fmt.Errorf("preflight failed: %w", err)
	}

	// Initialize NATS connection for step events and the nats engine
	var conn *natsgo.Conn
	var publisher *nats.Publisher
	if cfg.NATS.URL != "" {
		var err error
		conn, err = nats.Connect(cfg.NATS.URL, cfg.NATS.MaxReconnect, cfg.NATS.ReconnectWait, logger)
		if err != nil {
			return err
		}
		publisher = nats.NewPublisher(conn, cfg.NATS.Subject, logger)
		defer publisher.Close()
	}

	eng, err := newEngine(cfg, conn, logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	m := metrics.New()

	deps := processor.Dependencies{
		Toolbox:   engine.NewToolbox(eng, runID, ws.Dir(), logger),
		Workspace: ws,
		Cleaner:   processor.NewCleaner(logger, m),
		Metrics:   m,
		OpenTable: func(name string) (table.Dataset, error) {
			return table.Open(ws.Path(name))
		},
		RunID:  runID,
		DryRun: cfg.Engine.Type == "dryrun",
	}
	if publisher != nil {
		deps.Publisher = publisher
	}
	if cfg.Clean.Script != "" {
		deps.Transformer, err = processor.NewTransformer(cfg.Clean.Script, logger)
		if err != nil {
			return err
		}
	}
	if db != nil {
		deps.Exporter = source.NewExporter(db, logger)
		if cfg.Clean.Target == "source" {
			deps.SourceTable = table.NewSQL(db, cfg.Source.Table, cfg.Source.Key)
		}
	}

	p := processor.NewProcessor(cfg, deps, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	// Start processing in goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- p.Run(ctx)
	}()

	// Wait for signal or completion
	var runErr error
	select {
	case sig := <-sigChan:
		logger.Infof("Received signal: %v, stopping after current step...", sig)
		cancel()
		runErr = <-errChan
	case runErr = <-errChan:
	}

	if cfg.Metrics.Textfile != "" {
		if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Errorf("Error writing metrics: %v", err)
		}
	}

	if runErr != nil {
		return runErr
	}
	logger.Infof("Conflict pipeline run %s finished", runID)
	return nil
}

func newEngine(cfg *config.Config, conn *natsgo.Conn, logger *logrus.Logger) (engine.Engine, error) {
	switch cfg.Engine.Type {
	case "command":
		return engine.NewCommand(cfg.Engine.Command, cfg.Engine.Args, logger)
	case "nats":
		if conn == nil {
			return nil, fmt.Errorf("nats engine requires nats.url")
		}
		return engine.NewNATS(conn, cfg.Engine.Subject, cfg.Engine.Timeout, logger), nil
	case "dryrun":
		return engine.NewDryRun(logger), nil
	default:
		return nil, fmt.Errorf("unsupported engine type %q", cfg.Engine.Type)
	}
}
