package engine

import (
	"context"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// DryRun logs and records requests without executing them
type DryRun struct {
	mu       sync.Mutex
	logger   *logrus.Logger
	requests []*Request
	outputs  map[string]map[string]string
	failures map[string]string
}

// NewDryRun creates a dry-run engine
func NewDryRun(logger *logrus.Logger) *DryRun {
	return &DryRun{
		logger: logger,
		outputs: map[string]map[string]string{
			ToolDescribe: {"xmin": "0", "ymin": "0", "xmax": "0", "ymax": "0"},
		},
		failures: make(map[string]string),
	}
}

// SetOutputs sets the outputs returned for a tool
func (d *DryRun) SetOutputs(tool string, outputs map[string]string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.outputs[tool] = outputs
}

// FailOn makes every call of tool report msg as its error
func (d *DryRun) FailOn(tool, msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures[tool] = msg
}

// Run records the request and returns the configured outputs
func (d *DryRun) Run(ctx context.Context, req *Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.requests = append(d.requests, req)
	if d.logger != nil {
		args := make([]string, 0, len(req.Params))
		for _, p := range req.Params {
			args = append(args, p.Name+"="+p.Value)
		}
		d.logger.Infof("[dry-run] %s(%s)", req.Tool, strings.Join(args, ", "))
	}

	resp := &Response{Tool: req.Tool, Outputs: d.outputs[req.Tool]}
	if msg, ok := d.failures[req.Tool]; ok {
		resp.Error = msg
	}
	return resp, resp.Err()
}

// Requests returns the recorded requests in order
func (d *DryRun) Requests() []*Request {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Request(nil), d.requests...)
}

// Tools returns the recorded tool names in order
func (d *DryRun) Tools() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	tools := make([]string, 0, len(d.requests))
	for _, r := range d.requests {
		tools = append(tools, r.Tool)
	}
	return tools
}

func (d *DryRun) Close() error {
	return nil
}
