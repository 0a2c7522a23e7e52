package errors

import "sort"

// FieldErrors maps a request field to every message collected for it.
type FieldErrors map[string][]string

func (f FieldErrors) Add(field, message string) {
	for _, existing := range f[field] {
		if existing == message {
			return
		}
	}
	f[field] = append(f[field], message)
}

func (f FieldErrors) Merge(other FieldErrors) {
	for field, messages := range other {
		for _, msg := range messages {
			f.Add(field, msg)
		}
	}
}

func (f FieldErrors) Has(field string) bool {
	return len(f[field]) > 0
}

func (f FieldErrors) Empty() bool {
	return len(f) == 0
}

// Fields returns the failing field names in a stable order.
func (f FieldErrors) Fields() []string {
	out := make([]string, 0, len(f))
	for field := range f {
		out = append(out, field)
	}
	sort.Strings(out)
	return out
}
