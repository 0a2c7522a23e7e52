package types

// SuccessEnvelope wraps every successful payload.
type SuccessEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// ValidationEnvelope reports per-field failures.
type ValidationEnvelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

// ErrorEnvelope reports any other failure. Error carries the stable code.
type ErrorEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// PageEnvelope is the data payload of cursor-paginated listings.
type PageEnvelope[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}

func NewSuccess(data any) SuccessEnvelope {
	return SuccessEnvelope{Success: true, Data: data}
}

func NewPage[T any](items []T, next string) PageEnvelope[T] {
	if items == nil {
		items = []T{}
	}
	return PageEnvelope[T]{Items: items, NextCursor: next}
}
