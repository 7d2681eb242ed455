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
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/slices"
)

// DefaultSwitchDelay gives the engine time to let go of the hardware handle
// before the next bind.
const DefaultSwitchDelay = 100 * time.Millisecond

var ErrUnknownCamera = errors.New("unknown camera")

type Options struct {
	Anchor      string
	Mode        Mode
	Bind        BindConfig
	SwitchDelay time.Duration
}

// Scanner is the handle a presentation layer holds: the camera list, the
// selected camera and a single Session bound to one view anchor.
type Scanner struct {
	dir         *Directory
	session     *Session
	switchDelay time.Duration
	switching   atomic.Bool

	// stopMu orders Stop against the restart at the end of a switch, stops
	// counts Stop calls so a switch can tell it was cancelled.
	stopMu sync.Mutex
	stops  uint64

	mu       sync.RWMutex
	cameras  []CameraDevice
	selected string
	err      string
}

func New(engine Engine, opts Options) *Scanner {
	delay := opts.SwitchDelay
	if delay < 0 {
		delay = 0
	}

	return &Scanner{
		dir: NewDirectory(engine),
		session: NewSession(engine, SessionOptions{
			Anchor: opts.Anchor,
			Mode:   opts.Mode,
			Bind:   opts.Bind,
		}),
		switchDelay: delay,
	}
}

// Refresh re-enumerates cameras. The current selection is kept if the
// device is still present, otherwise the default camera is selected.
func (s *Scanner) Refresh(ctx context.Context) error {
	cameras, err := s.dir.List(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.cameras = nil
		s.selected = ""
		s.err = err.Error()
		return err
	}

	s.cameras = cameras
	s.err = ""

	if s.selected != "" && slices.ContainsFunc(cameras, func(c CameraDevice) bool {
		return c.Id == s.selected
	}) {
		return nil
	}

	if c, ok := SelectDefault(cameras); ok {
		s.selected = c.Id
		log.Info().Str("id", c.Id).Str("label", c.Label).Msg("selected camera")
	} else {
		s.selected = ""
	}

	return nil
}

func (s *Scanner) Cameras() []CameraDevice {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.cameras)
}

func (s *Scanner) SelectedCamera() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// Select changes the camera used by the next Start. It does not touch a
// running session, use SwitchCamera for that.
func (s *Scanner) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasCamera(id) {
		return ErrUnknownCamera
	}

	s.selected = id
	return nil
}

func (s *Scanner) State() State {
	return s.session.State()
}

func (s *Scanner) Mode() Mode {
	return s.session.Mode()
}

func (s *Scanner) IsScanning() bool {
	st := s.session.State()
	return st == Starting || st == Scanning
}

// Changes delivers session state transitions, see Session.Changes.
func (s *Scanner) Changes() <-chan State {
	return s.session.Changes()
}

func (s *Scanner) IsSwitching() bool {
	return s.switching.Load()
}

// Error returns the user visible message for the last failure, or an empty
// string.
func (s *Scanner) Error() string {
	s.mu.RLock()
	err := s.err
	s.mu.RUnlock()

	if err != "" {
		return err
	}

	return s.session.Err()
}

// Start begins scanning on the selected camera.
func (s *Scanner) Start(onSuccess SuccessFunc, onError ErrorFunc) error {
	if s.switching.Load() {
		return ErrSwitchInProgress
	}

	return s.session.Start(s.SelectedCamera(), onSuccess, onError)
}

// Stop releases the camera. A switch waiting to restart is cancelled.
func (s *Scanner) Stop() {
	s.stopMu.Lock()
	s.stops++
	s.stopMu.Unlock()

	s.session.Stop()
}

func (s *Scanner) hasCamera(id string) bool {
	return slices.ContainsFunc(s.cameras, func(c CameraDevice) bool {
		return c.Id == id
	})
}

// SwitchCamera stops the current session, waits for the switch delay and
// starts again on id. Only one switch may be in flight. A Stop during the
// delay wins and the switch returns ErrSwitchCancelled with the camera
// released.
func (s *Scanner) SwitchCamera(id string, onSuccess SuccessFunc, onError ErrorFunc) error {
	if !s.switching.CompareAndSwap(false, true) {
		return ErrSwitchInProgress
	}
	defer s.switching.Store(false)

	s.mu.Lock()
	if !s.hasCamera(id) {
		s.mu.Unlock()
		return ErrUnknownCamera
	}
	s.selected = id
	s.mu.Unlock()

	s.stopMu.Lock()
	stops := s.stops
	s.stopMu.Unlock()

	log.Info().Str("id", id).Msg("switching camera")
	s.session.Stop()

	if s.switchDelay > 0 {
		time.Sleep(s.switchDelay)
	}

	// held across Start so a Stop arriving now unbinds after it
	s.stopMu.Lock()
	defer s.stopMu.Unlock()

	if s.stops != stops {
		log.Info().Str("id", id).Msg("camera switch cancelled by stop")
		return ErrSwitchCancelled
	}

	return s.session.Start(id, onSuccess, onError)
}
