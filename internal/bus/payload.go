package bus

import "encoding/json"

// As extracts a typed payload from ev. It accepts T, *T and any JSON-shaped
// value (maps, raw JSON) that decodes into T. A nil or undecodable payload
// reports false.
func As[T any](ev Event) (T, bool) {
	var zero T
	switch p := ev.Payload.(type) {
	case nil:
		return zero, false
	case T:
		return p, true
	case *T:
		if p == nil {
			return zero, false
		}
		return *p, true
	case json.RawMessage:
		return decode[T](p)
	case []byte:
		return decode[T](p)
	}
	raw, err := json.Marshal(ev.Payload)
	if err != nil {
		return zero, false
	}
	return decode[T](raw)
}

func decode[T any](raw []byte) (T, bool) {
	var out T
	if len(raw) == 0 || string(raw) == "null" {
		return out, false
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, false
	}
	return out, true
}
