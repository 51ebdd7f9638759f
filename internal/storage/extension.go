package storage

import (
	"encoding/json"
	"fmt"
	"sort"
)

// ExtensionState is a named property bag whose values are kept as raw JSON,
// so it persists verbatim regardless of what the values hold.
type ExtensionState map[string]json.RawMessage

// Set stores v under key after marshalling it to JSON.
func (e *ExtensionState) Set(k string, v any) error {
	if *e == nil {
		*e = ExtensionState{}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal extension %q: %w", k, err)
	}

	(*e)[k] = json.RawMessage(b)
	return nil
}

// Get unmarshals the extension value at key into out.
// Returns (found=false, nil) if not present.
func (e ExtensionState) Get(key string, out any) (bool, error) {
	if e == nil {
		return false, nil
	}

	raw, ok := e[key]
	if !ok || len(raw) == 0 {
		return false, nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return true, fmt.Errorf("unmarshal extension %q: %w", key, err)
	}
	return true, nil
}

// Value decodes the value at key into its generic JSON form.
func (e ExtensionState) Value(key string) (any, bool) {
	var v any
	found, err := e.Get(key, &v)
	if err != nil || !found {
		return nil, false
	}
	return v, true
}

// Delete removes the extension key, if present.
func (e ExtensionState) Delete(key string) {
	if e == nil {
		return
	}
	delete(e, key)
}

// Keys returns the stored keys in sorted order.
func (e ExtensionState) Keys() []string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a copy that shares no map with e.
func (e ExtensionState) Clone() ExtensionState {
	if e == nil {
		return nil
	}
	out := make(ExtensionState, len(e))
	for k, v := range e {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}
