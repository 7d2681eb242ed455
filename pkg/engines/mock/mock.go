// Package mock provides an in-memory scanner engine driven by the caller.
// It records every engine call so tests can assert on ordering.
package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/toolcrib/toolscan/pkg/scanner"
)

var ErrNotBound = errors.New("engine is not bound")

type Engine struct {
	mu            sync.Mutex
	cameras       []scanner.CameraDevice
	calls         []string
	bound         string
	anchor        string
	onDecode      scanner.DecodeFunc
	onDecodeError scanner.DecodeErrorFunc

	ListErr   error
	BindErr   error
	UnbindErr error
	// OnBind, if set, is called from inside Bind after the callbacks are
	// installed and before Bind returns.
	OnBind func(e *Engine)
}

func New(cameras ...scanner.CameraDevice) *Engine {
	return &Engine{cameras: cameras}
}

func (e *Engine) SetCameras(cameras ...scanner.CameraDevice) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cameras = cameras
}

func (e *Engine) ListCameras(_ context.Context) ([]scanner.CameraDevice, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, "list")
	if e.ListErr != nil {
		return nil, e.ListErr
	}
	return append([]scanner.CameraDevice(nil), e.cameras...), nil
}

func (e *Engine) Bind(
	anchor string,
	deviceId string,
	_ scanner.BindConfig,
	onDecode scanner.DecodeFunc,
	onDecodeError scanner.DecodeErrorFunc,
) error {
	e.mu.Lock()
	e.calls = append(e.calls, "bind:"+deviceId)
	if e.BindErr != nil {
		e.mu.Unlock()
		return e.BindErr
	}
	if e.bound != "" {
		e.mu.Unlock()
		return errors.New("engine already bound to " + e.bound)
	}
	e.bound = deviceId
	e.anchor = anchor
	e.onDecode = onDecode
	e.onDecodeError = onDecodeError
	hook := e.OnBind
	e.mu.Unlock()

	if hook != nil {
		hook(e)
	}

	return nil
}

func (e *Engine) Unbind() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, "unbind")
	e.bound = ""
	e.onDecode = nil
	e.onDecodeError = nil
	return e.UnbindErr
}

// Emit delivers a successful decode as the engine would.
func (e *Engine) Emit(text string, metadata any) error {
	e.mu.Lock()
	fn := e.onDecode
	e.mu.Unlock()
	if fn == nil {
		return ErrNotBound
	}
	fn(text, metadata)
	return nil
}

// EmitError delivers a decode failure as the engine would.
func (e *Engine) EmitError(err error) error {
	e.mu.Lock()
	fn := e.onDecodeError
	e.mu.Unlock()
	if fn == nil {
		return ErrNotBound
	}
	fn(err)
	return nil
}

func (e *Engine) Bound() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bound
}

func (e *Engine) Anchor() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.anchor
}

func (e *Engine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

func (e *Engine) ResetCalls() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = nil
}
