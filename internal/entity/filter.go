package entity

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Filter is a tracking rule: a case-insensitive pattern matched against listing
// titles, with an optional price ceiling.
type Filter struct {
	Model    string `json:"model" yaml:"model"`
	MaxPrice *int   `json:"max_price,omitempty" yaml:"max_price,omitempty"`
}

// NewFilter builds a Filter. A nil maxPrice means no ceiling.
func NewFilter(model string, maxPrice *int) Filter {
	f := Filter{Model: strings.TrimSpace(model)}
	if maxPrice != nil {
		p := *maxPrice
		f.MaxPrice = &p
	}
	return f
}

// HasCeiling reports whether a non-zero price ceiling is set.
func (f Filter) HasCeiling() bool {
	return f.MaxPrice != nil && *f.MaxPrice > 0
}

// String renders the filter the way it is shown to users, e.g. "iPhone 13 (Max: 1500 zł)".
func (f Filter) String() string {
	if f.MaxPrice == nil {
		return f.Model
	}
	return fmt.Sprintf("%s (Max: %d zł)", f.Model, *f.MaxPrice)
}

// UnmarshalJSON accepts both the object form {"model": ..., "max_price": ...}
// and the legacy plain-string form "iPhone 13".
func (f *Filter) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*f = Filter{Model: name}
		return nil
	}

	type plain Filter
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("filter must be a string or an object: %w", err)
	}
	*f = Filter(p)
	return nil
}

// UnmarshalYAML accepts the same two forms as UnmarshalJSON.
func (f *Filter) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err == nil {
		*f = Filter{Model: name}
		return nil
	}

	type plain Filter
	var p plain
	if err := unmarshal(&p); err != nil {
		return fmt.Errorf("filter must be a string or a mapping: %w", err)
	}
	*f = Filter(p)
	return nil
}
