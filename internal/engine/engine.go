package engine

import (
	"context"
	"errors"
	"fmt"
)

// ErrToolFailed is returned when the engine reports a failed tool run
var ErrToolFailed = errors.New("geoprocessing tool failed")

// Param is a named tool parameter. Order is preserved on the wire.
type Param struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Request asks the engine to run one tool
type Request struct {
	RunID     string  `json:"run_id"`
	Tool      string  `json:"tool"`
	Workspace string  `json:"workspace"`
	Params    []Param `json:"params"`
}

// Param returns the value of a named parameter
func (r *Request) Param(name string) (string, bool) {
	for _, p := range r.Params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// Response is the engine's answer to a Request
type Response struct {
	Tool     string            `json:"tool"`
	Outputs  map[string]string `json:"outputs,omitempty"`
	Messages []string          `json:"messages,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// Err converts an error reported in the response into a Go error
func (r *Response) Err() error {
	if r == nil || r.Error == "" {
		return nil
	}
	return fmt.Errorf("%w: %s: %s", ErrToolFailed, r.Tool, r.Error)
}

// Engine runs geoprocessing tools
type Engine interface {
	Run(ctx context.Context, req *Request) (*Response, error)
	Close() error
}
