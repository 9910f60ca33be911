package processor

import (
	"errors"
	"fmt"
	"os"

	"github.com/dop251/goja"
	"github.com/sirupsen/logrus"

	"conflict-pipeline/internal/table"
)

// ErrNoTransform is returned when a script defines no transform function
var ErrNoTransform = errors.New("script must export a function (either anonymous function or named 'transform' function)")

// TransformStats summarizes one script pass
type TransformStats struct {
	Scanned int
	Deleted int
	Updated int
}

// Transformer runs a JavaScript transform(row) over every row of a table.
// Returning null or undefined deletes the row, returning an object writes
// the object's fields back.
type Transformer struct {
	path   string
	script string
	logger *logrus.Logger
}

// NewTransformer loads and validates a script file
func NewTransformer(path string, logger *logrus.Logger) (*Transformer, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read JavaScript script file: %w", err)
	}

	t := &Transformer{path: path, script: string(content), logger: logger}
	if _, _, err := t.compile(); err != nil {
		return nil, fmt.Errorf("invalid JavaScript script %s: %w", path, err)
	}

	logger.Infof("Loaded JavaScript transformation script: %s", path)
	return t, nil
}

// compile runs the script in a fresh runtime and resolves the transform function.
// The script can be an anonymous function expression or define a named
// transform function.
func (t *Transformer) compile() (*goja.Runtime, goja.Callable, error) {
	vm := goja.New()
	if err := t.setupConsoleBindings(vm); err != nil {
		return nil, nil, fmt.Errorf("failed to setup console bindings: %w", err)
	}

	result, err := vm.RunString(t.script)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to execute script: %w", err)
	}

	if result != nil && !goja.IsUndefined(result) && !goja.IsNull(result) {
		if fn, ok := goja.AssertFunction(result); ok {
			return vm, fn, nil
		}
	}

	transformVar := vm.Get("transform")
	if transformVar != nil && !goja.IsUndefined(transformVar) && !goja.IsNull(transformVar) {
		if fn, ok := goja.AssertFunction(transformVar); ok {
			return vm, fn, nil
		}
	}

	return nil, nil, ErrNoTransform
}

// Apply runs the script over ds and persists the result
func (t *Transformer) Apply(ds table.Dataset) (TransformStats, error) {
	var stats TransformStats

	vm, transform, err := t.compile()
	if err != nil {
		return stats, err
	}

	err = table.Update(ds, table.AllFields, func(cur *table.UpdateCursor) error {
		fields := cur.Fields()
		for cur.Next() {
			stats.Scanned++

			row := make(map[string]interface{}, len(fields))
			for _, f := range fields {
				row[f.Name], _ = cur.Get(f.Name)
			}

			result, err := transform(goja.Undefined(), vm.ToValue(row))
			if err != nil {
				return fmt.Errorf("JavaScript transform function error: %w", err)
			}

			if result == nil || goja.IsUndefined(result) || goja.IsNull(result) {
				cur.DeleteRow()
				stats.Deleted++
				continue
			}

			exported, ok := result.Export().(map[string]interface{})
			if !ok {
				return fmt.Errorf("transform must return an object or null, got %T", result.Export())
			}
			changed := false
			for _, f := range fields {
				v, ok := exported[f.Name]
				if !ok {
					continue
				}
				if err := cur.Set(f.Name, v); err != nil {
					return err
				}
				changed = true
			}
			if changed {
				stats.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("failed to transform %s with %s: %w", ds.Name(), t.path, err)
	}

	t.logger.Infof("Script %s on %s: %d rows scanned, %d deleted, %d updated",
		t.path, ds.Name(), stats.Scanned, stats.Deleted, stats.Updated)
	return stats, nil
}

// setupConsoleBindings routes console.* to the logger
func (t *Transformer) setupConsoleBindings(vm *goja.Runtime) error {
	consoleObj := vm.NewObject()

	formatArgs := func(call goja.FunctionCall) string {
		args := make([]interface{}, len(call.Arguments))
		for i, arg := range call.Arguments {
			args[i] = arg.Export()
		}
		return fmt.Sprint(args...)
	}

	bindings := map[string]func(args ...interface{}){
		"log":   t.logger.Info,
		"info":  t.logger.Info,
		"warn":  t.logger.Warn,
		"error": t.logger.Error,
		"debug": t.logger.Debug,
	}
	for name, logFn := range bindings {
		logFn := logFn
		fn := func(call goja.FunctionCall) goja.Value {
			logFn(formatArgs(call))
			return goja.Undefined()
		}
		if err := consoleObj.Set(name, fn); err != nil {
			return fmt.Errorf("failed to set console.%s: %w", name, err)
		}
	}

	if err := vm.Set("console", consoleObj); err != nil {
		return fmt.Errorf("failed to set console object: %w", err)
	}
	return nil
}
