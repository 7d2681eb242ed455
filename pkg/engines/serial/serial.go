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

// Package serial is a decode driver for hardware barcode and QR scanners
// attached as serial ports. Most of these devices decode on board and send
// one line of text per scan.
package serial

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/toolcrib/toolscan/pkg/scanner"
	"github.com/toolcrib/toolscan/pkg/utils"
	goserial "go.bug.st/serial"
)

const (
	DriverId        = "serial"
	DefaultBaudRate = 9600
)

type Metadata struct {
	Format string `json:"format,omitempty"`
	Raw    string `json:"raw"`
}

type Driver struct {
	paths    []string
	probe    bool
	baudRate int

	mu      sync.Mutex
	device  string
	port    goserial.Port
	polling bool
	done    chan struct{}
}

// NewDriver takes the configured device strings, keeping the serial ones.
// With probe set, ports found on the system are offered as well.
func NewDriver(devices []string, probe bool) *Driver {
	var paths []string
	for _, d := range devices {
		id, path, err := utils.SplitDevice(d)
		if err != nil || id != DriverId {
			continue
		}
		paths = append(paths, path)
	}
	return &Driver{
		paths:    paths,
		probe:    probe,
		baudRate: DefaultBaudRate,
	}
}

func (d *Driver) Id() string {
	return DriverId
}

func (d *Driver) ListCameras(_ context.Context) ([]scanner.CameraDevice, error) {
	paths := append([]string(nil), d.paths...)

	if d.probe {
		found, err := utils.GetSerialDeviceList()
		if err != nil {
			return nil, err
		}
		for _, p := range found {
			if !utils.Contains(paths, p) {
				paths = append(paths, p)
			}
		}
	}

	var cameras []scanner.CameraDevice
	for _, p := range paths {
		cameras = append(cameras, scanner.CameraDevice{
			Id:    DriverId + ":" + p,
			Label: "Serial scanner " + filepath.Base(p),
		})
	}

	return cameras, nil
}

// parseLine turns one line from the scanner into decoded text. Plain lines
// are taken as is. Lines in the "SCAN\t" form carry tab separated
// arguments, text= and format=; without named arguments the rest of the
// line is the text.
func parseLine(line string) (string, *Metadata) {
	line = strings.TrimSpace(line)
	line = strings.Trim(line, "\r")

	if len(line) == 0 {
		return "", nil
	}

	md := &Metadata{Raw: line}

	if !strings.HasPrefix(line, "SCAN\t") {
		return line, md
	}

	args := line[5:]
	if len(args) == 0 {
		return "", nil
	}

	text := ""
	hasArg := false
	for _, p := range strings.Split(args, "\t") {
		p = strings.TrimSpace(p)
		if strings.HasPrefix(p, "text=") {
			text = p[5:]
			hasArg = true
		} else if strings.HasPrefix(p, "format=") {
			md.Format = p[7:]
			hasArg = true
		}
	}

	// if there are no named arguments, whole args becomes text
	if !hasArg {
		text = args
	}

	return text, md
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

	if runtime.GOOS != "windows" {
		if _, err := os.Stat(path); err != nil {
			return err
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.port != nil {
		return errors.New("serial driver already bound to " + d.device)
	}

	port, err := goserial.Open(path, &goserial.Mode{
		BaudRate: d.baudRate,
	})
	if err != nil {
		return err
	}

	err = port.SetReadTimeout(100 * time.Millisecond)
	if err != nil {
		_ = port.Close()
		return err
	}

	d.port = port
	d.device = device
	d.polling = true
	d.done = make(chan struct{})

	go d.read(port, d.done, onDecode, onDecodeError)

	return nil
}

func (d *Driver) isPolling() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.polling
}

func (d *Driver) read(
	port goserial.Port,
	done chan struct{},
	onDecode scanner.DecodeFunc,
	onDecodeError scanner.DecodeErrorFunc,
) {
	defer close(done)

	var lineBuf []byte
	buf := make([]byte, 1024)

	for d.isPolling() {
		n, err := port.Read(buf)
		if err != nil {
			if !d.isPolling() {
				return
			}
			log.Error().Err(err).Msg("failed to read from serial port")
			onDecodeError(fmt.Errorf("serial scanner disconnected: %w", err))
			return
		}

		for i := 0; i < n; i++ {
			if buf[i] != '\n' && buf[i] != '\r' {
				lineBuf = append(lineBuf, buf[i])
				continue
			}

			text, md := parseLine(string(lineBuf))
			lineBuf = nil
			if text == "" {
				continue
			}

			log.Debug().Msgf("serial scan: %s", text)
			onDecode(text, md)
		}
	}
}

func (d *Driver) Unbind() error {
	d.mu.Lock()
	port := d.port
	done := d.done
	d.polling = false
	d.port = nil
	d.done = nil
	d.device = ""
	d.mu.Unlock()

	if port == nil {
		return nil
	}

	err := port.Close()
	<-done

	return err
}
