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

// Package file is a decode driver fed by another process: a decoder writes
// the text of each code it sees to a file, and every change to that file is
// reported as a scan.
package file

import (
	"context"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/toolcrib/toolscan/pkg/scanner"
	"github.com/toolcrib/toolscan/pkg/utils"
)

const DriverId = "file"

// ErrNoCode is reported when the file is emptied, the same way a camera
// engine reports a frame with nothing in it.
var ErrNoCode = errors.New("no QR code found")

type Metadata struct {
	Path string `json:"path"`
	Data string `json:"data"`
}

type Driver struct {
	paths []string

	mu      sync.Mutex
	device  string
	path    string
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewDriver takes the device strings to offer as cameras. Strings for other
// drivers are ignored.
func NewDriver(devices []string) *Driver {
	var paths []string
	for _, d := range devices {
		id, path, err := utils.SplitDevice(d)
		if err != nil || id != DriverId {
			continue
		}
		paths = append(paths, path)
	}
	return &Driver{paths: paths}
}

func (d *Driver) Id() string {
	return DriverId
}

func (d *Driver) ListCameras(_ context.Context) ([]scanner.CameraDevice, error) {
	var cameras []scanner.CameraDevice
	for _, path := range d.paths {
		if _, err := os.Stat(filepath.Dir(path)); err != nil {
			log.Debug().Err(err).Msgf("skipping file device: %s", path)
			continue
		}
		cameras = append(cameras, scanner.CameraDevice{
			Id:    DriverId + ":" + path,
			Label: "File " + filepath.Base(path),
		})
	}
	return cameras, nil
}

func (d *Driver) Bind(
	_ string,
	device string,
	_ scanner.BindConfig,
	onDecode scanner.DecodeFunc,
	onDecodeError scanner.DecodeErrorFunc,
) error {
	id, path, err := utils.SplitDevice(device)
	if err != nil {
		return errors.New("invalid device string: " + device)
	}

	if id != DriverId {
		return errors.New("invalid reader id: " + id)
	}

	if !filepath.IsAbs(path) {
		return errors.New("invalid device path, must be absolute")
	}

	parent := filepath.Dir(path)
	if _, err := os.Stat(parent); err != nil {
		return err
	}

	if _, err := os.Stat(path); err != nil {
		// attempt to create empty file
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		_ = f.Close()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.watcher != nil {
		return errors.New("file driver already bound to " + d.device)
	}

	// watch the directory so editors that replace the file are seen too
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	err = w.Add(parent)
	if err != nil {
		_ = w.Close()
		return err
	}

	d.device = device
	d.path = path
	d.watcher = w
	d.done = make(chan struct{})

	go d.watch(w, path, d.done, onDecode, onDecodeError)

	return nil
}

func (d *Driver) watch(
	w *fsnotify.Watcher,
	path string,
	done chan struct{},
	onDecode scanner.DecodeFunc,
	onDecodeError scanner.DecodeErrorFunc,
) {
	defer close(done)

	var last string

	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}

			if filepath.Clean(ev.Name) != filepath.Clean(path) {
				continue
			}

			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}

			contents, err := os.ReadFile(path)
			if err != nil {
				onDecodeError(err)
				continue
			}

			text := strings.TrimSpace(string(contents))
			if text == "" {
				last = ""
				onDecodeError(ErrNoCode)
				continue
			}

			// editors often write in several steps
			if text == last {
				continue
			}
			last = text

			log.Debug().Msgf("new code in file: %s", text)
			onDecode(text, Metadata{
				Path: path,
				Data: hex.EncodeToString(contents),
			})
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			onDecodeError(err)
		}
	}
}

func (d *Driver) Unbind() error {
	d.mu.Lock()
	w := d.watcher
	done := d.done
	d.watcher = nil
	d.done = nil
	d.device = ""
	d.path = ""
	d.mu.Unlock()

	if w == nil {
		return nil
	}

	err := w.Close()
	<-done

	return err
}
