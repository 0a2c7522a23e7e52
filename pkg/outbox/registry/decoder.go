package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/angelmondragon/tapcards-backend/pkg/enums"
)

// ErrNoDecoder is returned for an event type and version nobody registered.
var ErrNoDecoder = errors.New("no payload decoder registered")

// DecodeFunc turns an envelope's data field into a typed payload.
type DecodeFunc func(payload json.RawMessage) (any, error)

type decoderKey struct {
	eventType enums.OutboxEventType
	version   int
}

// DecoderRegistry maps (event type, payload version) to a decoder.
type DecoderRegistry struct {
	mu       sync.RWMutex
	decoders map[decoderKey]DecodeFunc
}

func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{decoders: map[decoderKey]DecodeFunc{}}
}

// Register stores fn for the event version, replacing any earlier decoder.
func (r *DecoderRegistry) Register(eventType enums.OutboxEventType, version int, fn DecodeFunc) {
	r.mu.Lock()
	r.decoders[decoderKey{eventType, version}] = fn
	r.mu.Unlock()
}

// RegisterJSON registers a decoder that unmarshals into a fresh *T.
func RegisterJSON[T any](r *DecoderRegistry, eventType enums.OutboxEventType, version int) {
	r.Register(eventType, version, func(payload json.RawMessage) (any, error) {
		out := new(T)
		if err := json.Unmarshal(payload, out); err != nil {
			return nil, fmt.Errorf("decode %s v%d: %w", eventType, version, err)
		}
		return out, nil
	})
}

// Decode runs the registered decoder. Versions below 1 are read as 1.
func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (any, error) {
	if version <= 0 {
		version = 1
	}
	r.mu.RLock()
	fn, ok := r.decoders[decoderKey{eventType, version}]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s v%d", ErrNoDecoder, eventType, version)
	}
	return fn(payload)
}
