package models

import "strings"

// Action is the edit applied by a FieldEditRule
type Action string

const (
	ActionDelete     Action = "delete"
	ActionSwitchSign Action = "switch_sign"
)

// ParseAction normalizes an action string. Unknown actions are kept as-is and
// result in a no-op pass.
func ParseAction(s string) Action {
	return Action(strings.ToLower(strings.TrimSpace(s)))
}

// FieldEditRule describes an in-place edit of one attribute field
type FieldEditRule struct {
	Field  string  `yaml:"field" json:"field"`
	Value  *string `yaml:"value,omitempty" json:"value,omitempty"` // nil for switch_sign
	Action string  `yaml:"action" json:"action"`
}

// NormalizedField returns the upper-cased field name
func (r FieldEditRule) NormalizedField() string {
	return strings.ToUpper(strings.TrimSpace(r.Field))
}

// Effective reports whether the rule mutates rows at all.
// delete needs a value, switch_sign must not have one.
func (r FieldEditRule) Effective() bool {
	switch ParseAction(r.Action) {
	case ActionDelete:
		return r.Value != nil
	case ActionSwitchSign:
		return r.Value == nil
	}
	return false
}
