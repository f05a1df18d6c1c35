package fleet

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// TagFilterKind identifies the shape of a TagFilter.
type TagFilterKind int

// Tag filter shapes.
const (
	TagFilterNone TagFilterKind = iota
	TagFilterExists
	TagFilterExistsAny
	TagFilterEquals
	// TagFilterMixed combines existence keys and equality pairs, as produced
	// by a list holding both bare names and mappings.
	TagFilterMixed
)

// TagFilter is a predicate over instance tags. Existence keys are OR'd,
// equality pairs are AND'd, and both groups must hold when combined.
type TagFilter struct {
	anyOf  []string
	equals map[string]string
}

// Exists matches instances carrying the named tag.
func Exists(name string) TagFilter {
	return TagFilter{anyOf: []string{name}}
}

// ExistsAny matches instances carrying at least one of the named tags.
func ExistsAny(names ...string) TagFilter {
	return TagFilter{anyOf: dedup(names)}
}

// Equals matches instances whose tags carry every given key with the given value.
func Equals(values map[string]string) TagFilter {
	if len(values) == 0 {
		return TagFilter{}
	}
	return TagFilter{equals: maps.Clone(values)}
}

// Kind reports the shape of the filter.
func (f TagFilter) Kind() TagFilterKind {
	switch {
	case len(f.anyOf) == 0 && len(f.equals) == 0:
		return TagFilterNone
	case len(f.anyOf) > 0 && len(f.equals) > 0:
		return TagFilterMixed
	case len(f.equals) > 0:
		return TagFilterEquals
	case len(f.anyOf) == 1:
		return TagFilterExists
	default:
		return TagFilterExistsAny
	}
}

// IsZero reports whether the filter matches everything.
func (f TagFilter) IsZero() bool {
	return f.Kind() == TagFilterNone
}

// Keys returns the existence keys in sorted order.
func (f TagFilter) Keys() []string {
	keys := slices.Clone(f.anyOf)
	slices.Sort(keys)
	return keys
}

// Values returns a copy of the equality pairs.
func (f TagFilter) Values() map[string]string {
	return maps.Clone(f.equals)
}

// Matches reports whether the given tags satisfy the filter.
func (f TagFilter) Matches(tags map[string]string) bool {
	for k, v := range f.equals {
		got, ok := tags[k]
		if !ok || got != v {
			return false
		}
	}
	if len(f.anyOf) == 0 {
		return true
	}
	for _, k := range f.anyOf {
		if _, ok := tags[k]; ok {
			return true
		}
	}
	return false
}

// UnfilterableKeys returns the keys containing an underscore. Provider tag
// filters do not match such keys reliably.
func (f TagFilter) UnfilterableKeys() []string {
	var out []string
	for _, k := range f.anyOf {
		if strings.Contains(k, "_") {
			out = append(out, k)
		}
	}
	for k := range f.equals {
		if strings.Contains(k, "_") {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}

func (f TagFilter) String() string {
	var parts []string
	for _, k := range f.Keys() {
		parts = append(parts, k)
	}
	for _, k := range slices.Sorted(maps.Keys(f.equals)) {
		parts = append(parts, k+"="+f.equals[k])
	}
	return strings.Join(parts, ",")
}

// UnmarshalYAML accepts a bare name, a list of names and/or mappings, or a
// mapping of name to value.
func (f *TagFilter) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ParseTagFilter(raw)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// MarshalYAML renders the filter back into its mapping or list form.
func (f TagFilter) MarshalYAML() (any, error) {
	switch f.Kind() {
	case TagFilterNone:
		return nil, nil
	case TagFilterExists:
		return f.anyOf[0], nil
	case TagFilterExistsAny:
		return f.Keys(), nil
	case TagFilterEquals:
		return f.Values(), nil
	}
	out := make([]any, 0, len(f.anyOf)+1)
	for _, k := range f.Keys() {
		out = append(out, k)
	}
	return append(out, f.Values()), nil
}

// ParseTagFilter converts a loosely typed tag specification into a TagFilter.
//
// Accepted shapes:
//   - "name": the tag must exist
//   - ["a", "b"]: any of the tags must exist
//   - {"name": "value"}: the tag must equal the value; nil values become ""
//   - a string holding a YAML/JSON literal of a list or mapping
func ParseTagFilter(v any) (TagFilter, error) {
	switch t := v.(type) {
	case nil:
		return TagFilter{}, nil
	case TagFilter:
		return t, nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return TagFilter{}, nil
		}
		if strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[") {
			var literal any
			if err := yaml.Unmarshal([]byte(s), &literal); err == nil {
				return ParseTagFilter(literal)
			}
		}
		return Exists(s), nil
	case []string:
		return ExistsAny(t...), nil
	case map[string]string:
		return Equals(t), nil
	case map[string]any:
		return Equals(blankValues(t)), nil
	case []any:
		var f TagFilter
		for _, item := range t {
			switch it := item.(type) {
			case string:
				f.anyOf = append(f.anyOf, it)
			case map[string]any:
				if f.equals == nil {
					f.equals = make(map[string]string)
				}
				maps.Copy(f.equals, blankValues(it))
			default:
				return TagFilter{}, fmt.Errorf("unsupported tag filter element %T", item)
			}
		}
		f.anyOf = dedup(f.anyOf)
		return f, nil
	default:
		return TagFilter{}, fmt.Errorf("unsupported tag filter type %T", v)
	}
}

// blankValues normalizes nil values to "" so presence-only intents survive.
func blankValues(in map[string]any) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		if v == nil {
			out[k] = ""
			continue
		}
		out[k] = fmt.Sprint(v)
	}
	return out
}

func dedup(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
