package processor

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"conflict-pipeline/internal/metrics"
	"conflict-pipeline/internal/models"
	"conflict-pipeline/internal/table"
)

// CleanStats summarizes one cleaner pass
type CleanStats struct {
	Field   string
	Action  string
	Scanned int
	Deleted int
	Flipped int
	Skipped bool // field missing, dataset untouched
}

// Cleaner applies field edit rules to event tables
type Cleaner struct {
	logger  *logrus.Logger
	metrics *metrics.Metrics
}

// NewCleaner creates a cleaner. m may be nil.
func NewCleaner(logger *logrus.Logger, m *metrics.Metrics) *Cleaner {
	return &Cleaner{logger: logger, metrics: m}
}

// FixEvents applies one rule to ds in place.
//
// delete removes rows whose value equals rule.Value exactly, switch_sign
// negates positive numbers. Any other combination of value and action
// rewrites the rows unchanged. A missing field is reported as a warning and
// leaves ds untouched.
func (c *Cleaner) FixEvents(ds table.Dataset, rule models.FieldEditRule) (CleanStats, error) {
	action := models.ParseAction(rule.Action)
	field := rule.NormalizedField()
	stats := CleanStats{Field: field, Action: string(action)}

	if !rule.Effective() {
		c.logger.Debugf("Rule %s/%s has no effect, rewriting %s unchanged", field, action, ds.Name())
	}

	err := table.Update(ds, field, func(cur *table.UpdateCursor) error {
		for cur.Next() {
			stats.Scanned++
			value := cur.Value()

			if rule.Value != nil && action == models.ActionDelete && table.FormatValue(value) == *rule.Value {
				cur.DeleteRow()
				stats.Deleted++
				continue
			}
			if rule.Value == nil && action == models.ActionSwitchSign {
				if n, ok := table.Number(value); ok && n > 0 {
					negated, _ := table.Negate(value)
					cur.UpdateRow(negated)
					stats.Flipped++
					continue
				}
			}
			cur.UpdateRow(value)
		}
		return nil
	})
	if errors.Is(err, table.ErrFieldNotFound) {
		c.logger.Warnf("Parameter value not found for the specific attribute table: %v", err)
		stats.Skipped = true
		return stats, nil
	}
	if err != nil {
		return stats, fmt.Errorf("failed to clean %s on %s: %w", field, ds.Name(), err)
	}

	if c.metrics != nil {
		c.metrics.AddRows(field, string(models.ActionDelete), stats.Deleted)
		c.metrics.AddRows(field, string(models.ActionSwitchSign), stats.Flipped)
	}
	c.logger.Infof("Cleaned %s.%s (%s): %d rows scanned, %d deleted, %d sign-switched",
		ds.Name(), field, action, stats.Scanned, stats.Deleted, stats.Flipped)

	return stats, nil
}
