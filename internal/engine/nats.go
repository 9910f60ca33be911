package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// NATS runs tools on remote workers through request/reply on "<subject>.<tool>"
type NATS struct {
	conn    *nats.Conn
	subject string
	timeout time.Duration
	logger  *logrus.Logger
}

// NewNATS creates a NATS engine on an existing connection
func NewNATS(conn *nats.Conn, subject string, timeout time.Duration, logger *logrus.Logger) *NATS {
	return &NATS{
		conn:    conn,
		subject: subject,
		timeout: timeout,
		logger:  logger,
	}
}

// Run sends the request and waits for the worker's reply
func (n *NATS) Run(ctx context.Context, req *Request) (*Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	subject := n.subject + "." + req.Tool
	n.logger.Debugf("Requesting %s on %s", req.Tool, subject)

	msg, err := n.conn.RequestWithContext(ctx, subject, payload)
	if err != nil {
		return nil, fmt.Errorf("engine request %s failed: %w", subject, err)
	}

	var resp Response
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse engine response for %s: %w", req.Tool, err)
	}
	if resp.Tool == "" {
		resp.Tool = req.Tool
	}
	return &resp, resp.Err()
}

// Close leaves the shared connection open; its owner closes it
func (n *NATS) Close() error {
	return nil
}
