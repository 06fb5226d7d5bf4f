package graph

import "maps"

// State is the record threaded through a run. Fields are open-ended: unset
// fields read as absent, and a field written by a step is only ever
// overwritten by a later step, never deleted.
type State map[string]any

// Clone returns a shallow copy of the state. Values are shared; steps that
// want to change a slice or map field must write a fresh value rather than
// mutate the one they read.
func (s State) Clone() State {
	out := make(State, len(s))
	maps.Copy(out, s)
	return out
}

// Merge returns a new state with every field from update overwriting the
// receiver's value for that field. All other fields are retained. A nil
// update returns an unchanged copy.
func (s State) Merge(update State) State {
	out := s.Clone()
	maps.Copy(out, update)
	return out
}

// Has reports whether the field is set.
func (s State) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// GetString returns the field as a string, or "" when absent or not a string.
func (s State) GetString(key string) string {
	v, _ := s[key].(string)
	return v
}

// GetStrings returns the field as a string slice. Both []string and []any
// holding strings are accepted, since states that crossed a JSON round-trip
// carry the latter.
func (s State) GetStrings(key string) []string {
	switch v := s[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

// mergeBatch folds the batch updates into base in slice order. Updates from
// the same batch ran against the same snapshot, so field-disjoint updates
// commute; a same-field collision resolves to the last writer, which is the
// latest node in registration order because batches are built in that order.
func mergeBatch(base State, updates []State) State {
	out := base
	for _, update := range updates {
		if len(update) == 0 {
			continue
		}
		out = out.Merge(update)
	}
	return out
}
