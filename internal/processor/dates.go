package processor

import (
	"fmt"
	"strings"

	"conflict-pipeline/internal/table"
)

// UnknownMonth replaces month names missing from the lookup table
const UnknownMonth = "00"

var monthNumbers = map[string]string{
	"January":   "01",
	"February":  "02",
	"March":     "03",
	"April":     "04",
	"May":       "05",
	"June":      "06",
	"July":      "07",
	"August":    "08",
	"September": "09",
	"October":   "10",
	"November":  "11",
	"December":  "12",
}

// NormalizeDate turns "5 March 1999" into "05/03/1999". Input is not validated.
func NormalizeDate(s string) string {
	parts := strings.Split(s, " ")
	if len(parts[0]) == 1 {
		parts[0] = "0" + parts[0]
	}
	if len(parts) > 1 {
		month, ok := monthNumbers[parts[1]]
		if !ok {
			month = UnknownMonth
		}
		parts[1] = month
	}
	return strings.Join(parts, "/")
}

// NormalizeDates rewrites every value of field in ds with NormalizeDate
func (c *Cleaner) NormalizeDates(ds table.Dataset, field string) (int, error) {
	field = strings.ToUpper(field)
	count := 0

	err := table.Update(ds, field, func(cur *table.UpdateCursor) error {
		for cur.Next() {
			cur.UpdateRow(NormalizeDate(table.FormatValue(cur.Value())))
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to normalize %s on %s: %w", field, ds.Name(), err)
	}

	c.logger.Infof("Normalized %d dates in %s.%s", count, ds.Name(), field)
	return count, nil
}
