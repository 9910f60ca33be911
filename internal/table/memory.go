package table

// Memory is a Dataset held entirely in memory
type Memory struct {
	name    string
	fields  []Field
	records [][]interface{}
	saves   int
}

// NewMemory creates an in-memory dataset. Rows are copied.
func NewMemory(name string, fields []Field, rows [][]interface{}) *Memory {
	m := &Memory{name: name, fields: append([]Field(nil), fields...)}
	for _, row := range rows {
		m.records = append(m.records, append([]interface{}(nil), row...))
	}
	return m
}

func (m *Memory) Name() string { return m.name }

func (m *Memory) Load() (*Frame, error) {
	frame := &Frame{Fields: append([]Field(nil), m.fields...)}
	for _, row := range m.records {
		frame.Records = append(frame.Records, &Record{Values: append([]interface{}(nil), row...)})
	}
	return frame, nil
}

func (m *Memory) Save(frame *Frame) error {
	m.fields = append([]Field(nil), frame.Fields...)
	m.records = m.records[:0]
	for _, rec := range frame.Live() {
		m.records = append(m.records, append([]interface{}(nil), rec.Values...))
	}
	m.saves++
	return nil
}

// Rows returns a copy of the stored rows
func (m *Memory) Rows() [][]interface{} {
	out := make([][]interface{}, 0, len(m.records))
	for _, row := range m.records {
		out = append(out, append([]interface{}(nil), row...))
	}
	return out
}

// Column returns the stored values of one field
func (m *Memory) Column(name string) []interface{} {
	idx := (&Frame{Fields: m.fields}).FieldIndex(name)
	if idx < 0 {
		return nil
	}
	out := make([]interface{}, 0, len(m.records))
	for _, row := range m.records {
		out = append(out, row[idx])
	}
	return out
}

// Saves reports how many times the dataset was persisted
func (m *Memory) Saves() int { return m.saves }
