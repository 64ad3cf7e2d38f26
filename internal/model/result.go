package model

import (
	"encoding/json"

	hierrors "github.com/Dicklesworthstone/hostinfo/internal/errors"
)

// Unavailable marks a value that could not be measured. It is distinct from a
// measured zero and always carries a reason.
type Unavailable struct {
	Kind   hierrors.Kind `json:"kind" yaml:"kind"`
	Reason string        `json:"reason" yaml:"reason"`
}

// NewUnavailable builds a marker, filling in a generic reason when none is given.
func NewUnavailable(kind hierrors.Kind, reason string) Unavailable {
	if kind == "" {
		kind = hierrors.SourceUnavailable
	}
	if reason == "" {
		reason = "not measured"
	}
	return Unavailable{Kind: kind, Reason: reason}
}

// FromError classifies err and turns it into a marker for the named source.
func FromError(source string, err error) Unavailable {
	kind := hierrors.Classify(err)
	return NewUnavailable(kind, hierrors.Reason(kind, source, err))
}

// Result holds either a measured value or an Unavailable marker.
type Result[T any] struct {
	value T
	miss  *Unavailable
}

// Ok wraps a measured value.
func Ok[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// Fail wraps an unavailable marker.
func Fail[T any](u Unavailable) Result[T] {
	u = NewUnavailable(u.Kind, u.Reason)
	return Result[T]{miss: &u}
}

// Available reports whether a value was measured.
func (r Result[T]) Available() bool { return r.miss == nil }

// Get returns the value and whether it was measured.
func (r Result[T]) Get() (T, bool) { return r.value, r.miss == nil }

// Value returns the measured value, or the zero value when unavailable.
func (r Result[T]) Value() T { return r.value }

// Unavailable returns the marker, or nil when the value was measured.
func (r Result[T]) Unavailable() *Unavailable {
	if r.miss == nil {
		return nil
	}
	u := *r.miss
	return &u
}

type unavailableWire struct {
	Available bool          `json:"available" yaml:"available"`
	Kind      hierrors.Kind `json:"kind" yaml:"kind"`
	Reason    string        `json:"reason" yaml:"reason"`
}

func (r Result[T]) wire() interface{} {
	if r.miss != nil {
		return unavailableWire{Kind: r.miss.Kind, Reason: r.miss.Reason}
	}
	return r.value
}

// MarshalJSON emits the value itself, or an {"available": false, ...} object.
func (r Result[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.wire())
}

// MarshalYAML mirrors MarshalJSON for yaml.v3.
func (r Result[T]) MarshalYAML() (interface{}, error) {
	return r.wire(), nil
}
