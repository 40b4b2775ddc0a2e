// Package norm canonicalizes entity names, calendar dates, and scalar
// values ahead of persistence. Dispatch over value shapes is closed:
// anything outside the recognized set fails with ErrUnsupportedType
// rather than being cast on a best-effort basis.
package norm

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrUnsupportedType reports a value outside the closed normalization
// dispatch. It indicates a new data shape the normalizer has not been
// taught, not a recoverable condition.
var ErrUnsupportedType = eris.New("norm: unsupported type")

var nonWord = regexp.MustCompile(`[^0-9A-Za-z_]+`)

// Name canonicalizes a free-form entity name into a safe column
// identifier: lowercased, trimmed, with every maximal run of non-word
// characters collapsed to a single underscore and leading/trailing
// underscores removed. Idempotent.
func Name(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonWord.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// Names canonicalizes every element of a slice.
func Names(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = Name(s)
	}
	return out
}

// NameKeys canonicalizes the keys of a map, leaving values untouched.
// When two keys collapse to the same identifier the surviving value is
// unspecified; callers that care must dedupe upstream.
func NameKeys[V any](in map[string]V) map[string]V {
	out := make(map[string]V, len(in))
	for k, v := range in {
		out[Name(k)] = v
	}
	return out
}

// Any canonicalizes names across the supported shapes: a string, a
// sequence of strings, or a string-keyed mapping. nil maps to nil.
func Any(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		return Name(x), nil
	case []string:
		return Names(x), nil
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			s, ok := e.(string)
			if !ok {
				return nil, eris.Wrapf(ErrUnsupportedType, "sequence element %T", e)
			}
			out[i] = Name(s)
		}
		return out, nil
	case map[string]any:
		return NameKeys(x), nil
	default:
		return nil, eris.Wrapf(ErrUnsupportedType, "%T", v)
	}
}
