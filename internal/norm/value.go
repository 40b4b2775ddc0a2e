package norm

import (
	"time"

	"github.com/rotisserie/eris"
)

// Value recursively converts a decoded value into the portable scalar
// set {float64, int64, string, bool, nil}. Timestamps become ISO
// calendar-day strings; mappings and sequences recurse. The dispatch is
// closed and exhaustive: a leaf outside the recognized set fails with
// ErrUnsupportedType.
func Value(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case string:
		return x, nil
	case bool:
		return x, nil
	case time.Time:
		return Day(x), nil
	case []time.Time:
		out := make([]any, len(x))
		for i, t := range x {
			out[i] = Day(t)
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			n, err := Value(e)
			if err != nil {
				return nil, eris.Wrapf(err, "key %q", k)
			}
			out[k] = n
		}
		return out, nil
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			n, err := Value(e)
			if err != nil {
				return nil, eris.Wrapf(err, "index %d", i)
			}
			out[i] = n
		}
		return out, nil
	default:
		return nil, eris.Wrapf(ErrUnsupportedType, "%T", v)
	}
}

// Values normalizes every value of a column->value mapping in place of
// a copy, as the last step before the row is handed to the store.
func Values(row map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(row))
	for k, v := range row {
		n, err := Value(v)
		if err != nil {
			return nil, eris.Wrapf(err, "column %q", k)
		}
		out[k] = n
	}
	return out, nil
}
