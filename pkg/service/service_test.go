package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systemstart/nya/pkg/bus"
	"github.com/systemstart/nya/pkg/payload"
)

func noop(context.Context, bus.Runtime, *payload.Payload) error { return nil }

func TestFunc(t *testing.T) {
	svc := Func("test", Bind("a", noop), Bind("b", noop))

	assert.Equal(t, "test", svc.Name())
	require.Len(t, svc.Bindings(), 2)
	assert.Equal(t, "a", svc.Bindings()[0].Event)
	assert.Equal(t, "b", svc.Bindings()[1].Event)
}

func TestRegister_MultipleServicesSameEvent(t *testing.T) {
	first := Func("first", Bind("step", noop))
	second := Func("second", Bind("step", func(context.Context, bus.Runtime, *payload.Payload) error {
		return errors.New("nope")
	}))

	b := Register(bus.NewBuilder(), first, second).Build()
	assert.Equal(t, 2, b.Handlers("step"))

	e := b.Emit(context.Background(), nil, "step", payload.Empty())
	require.Error(t, e.Wait())

	failures := e.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "second", failures[0].Owner)
}
