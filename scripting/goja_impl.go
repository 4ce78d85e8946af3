package scripting

import (
	"context"
	"fmt"

	"github.com/dop251/goja"
)

type GojaEngine struct {
	vm *goja.Runtime
}

func NewEngine() *GojaEngine {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.UncapFieldNameMapper())
	return &GojaEngine{vm: vm}
}

func (e *GojaEngine) Execute(ctx context.Context, script string) (interface{}, error) {
	val, err := e.guard(ctx, func() (goja.Value, error) {
		return e.vm.RunString(script)
	})
	if err != nil {
		return nil, err
	}
	return val.Export(), nil
}

func (e *GojaEngine) Call(ctx context.Context, fn string, args ...interface{}) (interface{}, error) {
	callable, ok := goja.AssertFunction(e.vm.Get(fn))
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFunction, fn)
	}
	jsArgs := make([]goja.Value, len(args))
	for i, a := range args {
		jsArgs[i] = e.vm.ToValue(a)
	}
	val, err := e.guard(ctx, func() (goja.Value, error) {
		return callable(goja.Undefined(), jsArgs...)
	})
	if err != nil {
		return nil, err
	}
	return val.Export(), nil
}

func (e *GojaEngine) Set(name string, value interface{}) error {
	return e.vm.Set(name, value)
}

// guard runs f with the VM interrupted when ctx is done.
func (e *GojaEngine) guard(ctx context.Context, f func() (goja.Value, error)) (goja.Value, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done := make(chan struct{})
	defer close(done)
	defer e.vm.ClearInterrupt()

	go func() {
		select {
		case <-ctx.Done():
			e.vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	val, err := f()
	if err != nil {
		if interruptedErr, ok := err.(*goja.InterruptedError); ok {
			if cause := interruptedErr.Unwrap(); cause != nil {
				return nil, cause
			}
			return nil, context.Canceled
		}
		return nil, err
	}
	return val, nil
}
