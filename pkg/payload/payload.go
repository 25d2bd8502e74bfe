// Package payload carries the single value attached to one event emission.
//
// A Payload is created once per emission and shared by pointer among every
// handler bound to that event. It has no mutators, so concurrent reads are
// safe. Handlers narrow it to a concrete type with Get.
package payload

import (
	"errors"
	"fmt"
)

// ErrEmpty is returned when narrowing a payload that holds no value.
var ErrEmpty = errors.New("payload is empty")

// TypeMismatchError is returned when a payload is narrowed to a type it does
// not hold.
type TypeMismatchError struct {
	Expected string
	Actual   string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("payload type mismatch: expected %s, got %s", e.Expected, e.Actual)
}

// Payload is an immutable, type-erased value.
type Payload struct {
	value    any
	typeName string
	set      bool
}

// Empty returns a payload without a value.
func Empty() *Payload {
	return &Payload{}
}

// New wraps v, keeping its type name for diagnostics.
func New[T any](v T) *Payload {
	name := fmt.Sprintf("%T", v)
	if any(v) == nil {
		name = typeNameOf[T]()
	}
	return &Payload{value: v, typeName: name, set: true}
}

// IsEmpty reports whether p holds no value. A nil payload is empty.
func (p *Payload) IsEmpty() bool {
	return p == nil || !p.set
}

// TypeName returns the type name of the held value, or "empty".
func (p *Payload) TypeName() string {
	if p.IsEmpty() {
		return "empty"
	}
	return p.typeName
}

func (p *Payload) String() string {
	if p.IsEmpty() {
		return "payload(empty)"
	}
	return fmt.Sprintf("payload(%s)", p.typeName)
}

// Get narrows p to T.
func Get[T any](p *Payload) (T, error) {
	var zero T
	if p.IsEmpty() {
		return zero, ErrEmpty
	}
	// A nil interface value narrows to the interface type it was wrapped as.
	if p.value == nil && p.typeName == typeNameOf[T]() {
		return zero, nil
	}
	v, ok := p.value.(T)
	if !ok {
		return zero, &TypeMismatchError{Expected: typeNameOf[T](), Actual: p.typeName}
	}
	return v, nil
}

// Is reports whether p holds a value assignable to T.
func Is[T any](p *Payload) bool {
	_, err := Get[T](p)
	return err == nil
}

func typeNameOf[T any]() string {
	// Going through a pointer keeps interface types such as fmt.Stringer
	// from being reported as <nil>.
	return fmt.Sprintf("%T", (*T)(nil))[1:]
}
