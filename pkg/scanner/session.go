/*
toolscan
Copyright (C) 2023, 2024 Callan Barrett

This file is part of toolscan.

toolscan is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

toolscan is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with toolscan.  If not, see <http://www.gnu.org/licenses/>.
*/

package scanner

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

type State int

const (
	Idle State = iota
	Starting
	Scanning
	Stopping
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Scanning:
		return "scanning"
	case Stopping:
		return "stopping"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

type Mode int

const (
	// ModeSingleShot stops the session after the first successful decode.
	ModeSingleShot Mode = iota
	// ModeContinuous keeps scanning and reports every decode.
	ModeContinuous
)

const (
	ModeSingleShotName = "single"
	ModeContinuousName = "continuous"
)

func (m Mode) String() string {
	if m == ModeContinuous {
		return ModeContinuousName
	}
	return ModeSingleShotName
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", ModeSingleShotName:
		return ModeSingleShot, nil
	case ModeContinuousName:
		return ModeContinuous, nil
	default:
		return ModeSingleShot, fmt.Errorf("unknown scan mode: %s", s)
	}
}

type SessionOptions struct {
	// Anchor names the view region the engine renders into.
	Anchor string
	Mode   Mode
	Bind   BindConfig
}

// Session owns one engine binding at a time. Start, Stop and any teardown
// scheduled from a decode callback are serialized by opMu so the engine is
// always unbound before it is bound again; mu only guards fields and is
// never held across an engine call.
type Session struct {
	engine Engine
	anchor string
	mode   Mode
	cfg    BindConfig

	opMu  sync.Mutex
	bound bool

	mu      sync.Mutex
	state   State
	device  string
	err     string
	gen     uint64
	changes chan State
}

func NewSession(engine Engine, opts SessionOptions) *Session {
	return &Session{
		engine: engine,
		anchor: opts.Anchor,
		mode:   opts.Mode,
		cfg:    opts.Bind.withDefaults(),
		// buffered so transitions never wait on a slow reader
		changes: make(chan State, 16),
	}
}

// Changes delivers state transitions. Transitions are dropped while the
// buffer is full, so readers should treat a value as a hint and read the
// current State.
func (s *Session) Changes() <-chan State {
	return s.changes
}

// setState must be called with mu held.
func (s *Session) setState(st State) {
	s.state = st
	select {
	case s.changes <- st:
	default:
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Mode() Mode {
	return s.mode
}

// Device returns the device the session is bound or binding to.
func (s *Session) Device() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.device
}

// Err returns the message of the last failure, or an empty string.
func (s *Session) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Start binds the engine to deviceId. A nil error means the session is now
// scanning. Starting a session that is already running is refused rather
// than binding the engine twice.
func (s *Session) Start(deviceId string, onSuccess SuccessFunc, onError ErrorFunc) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	if s.state == Starting || s.state == Scanning {
		s.mu.Unlock()
		return ErrAlreadyScanning
	}

	s.gen++
	gen := s.gen

	if deviceId == "" {
		s.setState(Error)
		s.device = ""
		s.err = ErrCameraAccess.Error()
		s.mu.Unlock()
		s.unbind()
		return ErrCameraAccess
	}

	s.setState(Starting)
	s.device = deviceId
	s.err = ""
	s.mu.Unlock()

	// a previous binding may still be waiting on its teardown
	s.unbind()

	r := NewRouter(
		deviceId,
		func(res ScanResult) {
			if !s.accept(gen) {
				return
			}
			if onSuccess != nil {
				onSuccess(res)
			}
			if s.mode == ModeSingleShot {
				go s.release(gen)
			}
		},
		func(msg string) {
			if !s.fail(gen, msg) {
				return
			}
			if onError != nil {
				onError(msg)
			}
			go s.release(gen)
		},
	)

	log.Info().Str("device", deviceId).Str("mode", s.mode.String()).Msg("starting scanner")
	err := s.engine.Bind(s.anchor, deviceId, s.cfg, r.Decode, func(err error) {
		r.DecodeError(err)
	})
	if err != nil {
		be := &BindError{Device: deviceId, Err: err}
		log.Error().Err(err).Str("device", deviceId).Msg("error binding scanner")
		s.mu.Lock()
		s.setState(Error)
		s.err = be.Error()
		s.mu.Unlock()
		return be
	}
	s.bound = true

	s.mu.Lock()
	if s.state != Starting {
		// a hard error arrived before the bind call returned
		msg := s.err
		s.mu.Unlock()
		s.unbind()
		return &BindError{Device: deviceId, Err: errors.New(msg)}
	}
	s.setState(Scanning)
	s.mu.Unlock()

	return nil
}

// Stop releases the engine binding and returns the session to Idle. Safe to
// call from any state and any number of times. Engine teardown errors are
// logged, never returned.
func (s *Session) Stop() {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	if s.state == Idle && !s.bound {
		s.mu.Unlock()
		return
	}
	s.gen++
	s.setState(Stopping)
	s.mu.Unlock()

	s.unbind()

	s.mu.Lock()
	s.setState(Idle)
	s.device = ""
	s.err = ""
	s.mu.Unlock()
}

// accept reports whether a decode from binding gen should reach the caller
// and moves a single-shot session into Stopping.
func (s *Session) accept(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen || s.state != Scanning {
		return false
	}

	if s.mode == ModeSingleShot {
		s.setState(Stopping)
	}

	return true
}

func (s *Session) fail(gen uint64, msg string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen || (s.state != Starting && s.state != Scanning) {
		return false
	}

	s.setState(Error)
	s.err = msg
	return true
}

// release tears down binding gen after a decode callback ended it. It runs
// on its own goroutine because engines may not be unbound from inside their
// own callbacks.
func (s *Session) release(gen uint64) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	stale := s.gen != gen
	s.mu.Unlock()
	if stale {
		return
	}

	s.unbind()

	s.mu.Lock()
	if s.gen == gen && s.state == Stopping {
		s.setState(Idle)
		s.device = ""
	}
	s.mu.Unlock()
}

// unbind must be called with opMu held.
func (s *Session) unbind() {
	if !s.bound {
		return
	}
	s.bound = false

	err := s.engine.Unbind()
	if err != nil {
		log.Warn().Err(err).Msg("error stopping scanner, ignoring")
		return
	}

	log.Debug().Msg("scanner released")
}
