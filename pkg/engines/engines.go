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

// Package engines routes scanner sessions to the decode driver named by a
// device string's "driver:" prefix.
package engines

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/toolcrib/toolscan/pkg/scanner"
	"github.com/toolcrib/toolscan/pkg/utils"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"
)

var ErrAlreadyBound = errors.New("engine is already bound")

// Driver is a scanner.Engine for one family of devices. Device ids it
// reports and accepts are prefixed with its Id.
type Driver interface {
	scanner.Engine
	Id() string
}

type Multi struct {
	drivers []Driver

	mu     sync.Mutex
	active Driver
}

func NewMulti(drivers ...Driver) *Multi {
	return &Multi{drivers: drivers}
}

func (m *Multi) Drivers() []string {
	ids := make([]string, 0, len(m.drivers))
	for _, d := range m.drivers {
		ids = append(ids, d.Id())
	}
	return ids
}

func (m *Multi) driver(id string) (Driver, bool) {
	i := slices.IndexFunc(m.drivers, func(d Driver) bool {
		return d.Id() == id
	})
	if i < 0 {
		return nil, false
	}
	return m.drivers[i], true
}

// ListCameras enumerates every driver concurrently. A failing driver is
// logged and skipped; an error is only returned if every driver failed.
func (m *Multi) ListCameras(ctx context.Context) ([]scanner.CameraDevice, error) {
	results := make([][]scanner.CameraDevice, len(m.drivers))
	errs := make([]error, len(m.drivers))

	g, ctx := errgroup.WithContext(ctx)
	for i, d := range m.drivers {
		i, d := i, d
		g.Go(func() error {
			cams, err := d.ListCameras(ctx)
			if err != nil {
				log.Warn().Err(err).Str("driver", d.Id()).Msg("error listing cameras")
				errs[i] = err
				return nil
			}
			results[i] = cams
			return nil
		})
	}
	_ = g.Wait()

	var cameras []scanner.CameraDevice
	var firstErr error
	for i := range m.drivers {
		cameras = append(cameras, results[i]...)
		if firstErr == nil && errs[i] != nil {
			firstErr = errs[i]
		}
	}

	if len(cameras) == 0 && firstErr != nil {
		return nil, firstErr
	}

	return cameras, nil
}

func (m *Multi) Bind(
	anchor string,
	deviceId string,
	cfg scanner.BindConfig,
	onDecode scanner.DecodeFunc,
	onDecodeError scanner.DecodeErrorFunc,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		return ErrAlreadyBound
	}

	id, _, err := utils.SplitDevice(deviceId)
	if err != nil {
		return fmt.Errorf("%w: %s", err, deviceId)
	}

	d, ok := m.driver(id)
	if !ok {
		return fmt.Errorf("no driver for device: %s", deviceId)
	}

	err = d.Bind(anchor, deviceId, cfg, onDecode, onDecodeError)
	if err != nil {
		return err
	}

	m.active = d
	return nil
}

func (m *Multi) Unbind() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return nil
	}

	err := m.active.Unbind()
	m.active = nil
	return err
}
