package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
)

// Command runs tools through an external bridge executable. The request is
// written to stdin as JSON and the response is read from stdout.
type Command struct {
	path   string
	args   []string
	logger *logrus.Logger
}

// NewCommand creates a command engine
func NewCommand(path string, args []string, logger *logrus.Logger) (*Command, error) {
	resolved, err := exec.LookPath(path)
	if err != nil {
		return nil, fmt.Errorf("engine command %s not found: %w", path, err)
	}
	logger.Infof("Using geoprocessing bridge: %s", resolved)
	return &Command{path: resolved, args: args, logger: logger}, nil
}

// Run executes one tool
func (c *Command) Run(ctx context.Context, req *Request) (*Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.path, c.args...)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	c.logger.Debugf("Running %s via %s", req.Tool, c.path)
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("engine command failed for %s: %w", req.Tool, err)
		}
		return nil, fmt.Errorf("engine command failed for %s: %w: %s", req.Tool, err, msg)
	}
	if stderr.Len() > 0 {
		c.logger.Debugf("%s stderr: %s", req.Tool, strings.TrimSpace(stderr.String()))
	}

	var resp Response
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse engine response for %s: %w", req.Tool, err)
	}
	if resp.Tool == "" {
		resp.Tool = req.Tool
	}
	return &resp, resp.Err()
}

// Close is a no-op; every tool runs in its own process
func (c *Command) Close() error {
	return nil
}
