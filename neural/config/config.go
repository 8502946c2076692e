// Package config holds the nested configuration trees that every network
// component is built from. A tree is a plain map from string keys to scalars,
// lists or nested trees; components merge their own defaults into it before
// reading, and parents inject keys into derived copies of their children's
// sub-trees rather than mutating shared state.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is a nested configuration tree.
type Config map[string]any

// Error reports a missing or malformed configuration key.
type Error struct {
	Key string
	Msg string
}

func (e *Error) Error() string {
	if e.Key == "" {
		return "config: " + e.Msg
	}
	return fmt.Sprintf("config: key %q: %s", e.Key, e.Msg)
}

// Missing returns the error used for a required key that was never set.
func Missing(key string) *Error {
	return &Error{Key: key, Msg: "required key is not set"}
}

// Has reports whether key is present with a non-nil value.
func (c Config) Has(key string) bool {
	v, ok := c[key]
	return ok && v != nil
}

// Int reads an integer key. YAML and JSON decoders may deliver numbers as
// int, int64 or float64, so all three are accepted.
func (c Config) Int(key string) (int, error) {
	if !c.Has(key) {
		return 0, Missing(key)
	}
	n, ok := toInt(c[key])
	if !ok {
		return 0, &Error{Key: key, Msg: fmt.Sprintf("expected integer, got %T", c[key])}
	}
	return n, nil
}

// IntOr reads an integer key, falling back to def when unset.
func (c Config) IntOr(key string, def int) int {
	if !c.Has(key) {
		return def
	}
	if n, ok := toInt(c[key]); ok {
		return n
	}
	return def
}

// Float reads a floating-point key.
func (c Config) Float(key string) (float64, error) {
	if !c.Has(key) {
		return 0, Missing(key)
	}
	f, ok := toFloat(c[key])
	if !ok {
		return 0, &Error{Key: key, Msg: fmt.Sprintf("expected number, got %T", c[key])}
	}
	return f, nil
}

// FloatOr reads a floating-point key, falling back to def when unset.
func (c Config) FloatOr(key string, def float64) float64 {
	if !c.Has(key) {
		return def
	}
	if f, ok := toFloat(c[key]); ok {
		return f
	}
	return def
}

// Bool reads a boolean key.
func (c Config) Bool(key string) (bool, error) {
	if !c.Has(key) {
		return false, Missing(key)
	}
	b, ok := c[key].(bool)
	if !ok {
		return false, &Error{Key: key, Msg: fmt.Sprintf("expected bool, got %T", c[key])}
	}
	return b, nil
}

// BoolOr reads a boolean key, falling back to def when unset.
func (c Config) BoolOr(key string, def bool) bool {
	if b, ok := c[key].(bool); ok {
		return b
	}
	return def
}

// String reads a string key.
func (c Config) String(key string) (string, error) {
	if !c.Has(key) {
		return "", Missing(key)
	}
	s, ok := c[key].(string)
	if !ok {
		return "", &Error{Key: key, Msg: fmt.Sprintf("expected string, got %T", c[key])}
	}
	return s, nil
}

// Ints reads a list of integers.
func (c Config) Ints(key string) ([]int, error) {
	if !c.Has(key) {
		return nil, Missing(key)
	}
	switch v := c[key].(type) {
	case []int:
		out := make([]int, len(v))
		copy(out, v)
		return out, nil
	case []any:
		out := make([]int, len(v))
		for i, e := range v {
			n, ok := toInt(e)
			if !ok {
				return nil, &Error{Key: key, Msg: fmt.Sprintf("element %d: expected integer, got %T", i, e)}
			}
			out[i] = n
		}
		return out, nil
	default:
		return nil, &Error{Key: key, Msg: fmt.Sprintf("expected list of integers, got %T", c[key])}
	}
}

// Sub returns a deep copy of the nested tree under key. A missing key yields
// an empty tree so callers can merge defaults into it directly.
func (c Config) Sub(key string) Config {
	switch v := c[key].(type) {
	case Config:
		return v.Clone()
	case map[string]any:
		return Config(v).Clone()
	default:
		return Config{}
	}
}

// Clone returns a deep copy of the tree. Nested maps and lists are copied;
// scalar values are shared.
func (c Config) Clone() Config {
	out := make(Config, len(c))
	for k, v := range c {
		out[k] = cloneValue(v)
	}
	return out
}

// With returns a derived copy of the tree with key set to v. The receiver is
// never modified, so a tree can be reused across constructions safely.
func (c Config) With(key string, v any) Config {
	out := c.Clone()
	out[key] = v
	return out
}

// WithDefaults merges defaults into c, with c winning on conflicts. Nested
// trees are merged recursively. Both inputs are left untouched.
func WithDefaults(c, defaults Config) Config {
	out := defaults.Clone()
	for k, v := range c {
		if v == nil {
			// An explicit null falls back to the default, matching how
			// unset keys behave.
			continue
		}
		sub, isMap := asMap(v)
		dsub, defIsMap := asMap(out[k])
		if isMap && defIsMap {
			out[k] = WithDefaults(sub, dsub)
			continue
		}
		out[k] = cloneValue(v)
	}
	return out
}

// FromYAML parses a configuration tree from YAML.
func FromYAML(data []byte) (Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("config: parsing yaml: %w", err)
	}
	return Config(raw), nil
}

// FromFile reads a YAML configuration tree from disk.
func FromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	return FromYAML(data)
}

func asMap(v any) (Config, bool) {
	switch m := v.(type) {
	case Config:
		return m, true
	case map[string]any:
		return Config(m), true
	}
	return nil, false
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case Config:
		return val.Clone()
	case map[string]any:
		return Config(val).Clone()
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = cloneValue(e)
		}
		return out
	case []int:
		out := make([]int, len(val))
		copy(out, val)
		return out
	default:
		return v
	}
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
