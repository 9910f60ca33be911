package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"conflict-pipeline/internal/config"
	"conflict-pipeline/internal/workspace"
)

// Preflight validates the workspace, input layers and event source before a run
type Preflight struct {
	cfg    *config.Config
	ws     *workspace.Workspace
	db     *sql.DB
	logger *logrus.Logger
}

// NewPreflight creates a new checker. db may be nil when no SQL source is configured.
func NewPreflight(cfg *config.Config, ws *workspace.Workspace, db *sql.DB, logger *logrus.Logger) *Preflight {
	return &Preflight{
		cfg:    cfg,
		ws:     ws,
		db:     db,
		logger: logger,
	}
}

// Check verifies everything the first steps depend on
func (c *Preflight) Check(ctx context.Context) error {
	info, err := os.Stat(c.ws.Dir())
	if err != nil {
		return fmt.Errorf("workspace not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("workspace %s is not a directory", c.ws.Dir())
	}

	required := []string{c.cfg.Inputs.Territories, c.cfg.Inputs.AdminRegions}
	if !c.cfg.Source.Enabled() {
		required = append(required, c.cfg.Inputs.Events)
	}

	missing := []string{}
	for _, name := range required {
		ok, err := c.ws.Exists(name)
		if err != nil {
			return err
		}
		if !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing input layers in %s: %s", c.ws.Dir(), strings.Join(missing, ", "))
	}
	c.logger.Info("All input layers present")

	if c.db == nil {
		return nil
	}

	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to event source: %w", err)
	}
	c.logger.Info("Successfully connected to event source")

	if c.cfg.Clean.Target == "source" {
		// LIMIT is accepted by both MySQL and SQLite
		query := fmt.Sprintf("SELECT `%s` FROM `%s` LIMIT 1", c.cfg.Source.Key, c.cfg.Source.Table)
		rows, err := c.db.QueryContext(ctx, query)
		if err != nil {
			return fmt.Errorf("event table %s not usable: %w", c.cfg.Source.Table, err)
		}
		rows.Close()
		c.logger.Infof("Event table %s will be cleaned in place", c.cfg.Source.Table)
	}

	return nil
}
