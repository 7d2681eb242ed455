package scanner

import (
	"errors"
	"fmt"
)

var (
	ErrCameraAccess     = errors.New("camera access denied or no video input available")
	ErrAlreadyScanning  = errors.New("scanner is already running")
	ErrSwitchInProgress = errors.New("camera switch already in progress")
	ErrSwitchCancelled  = errors.New("camera switch cancelled")
)

// BindError is returned when the engine could not attach to a device.
type BindError struct {
	Device string
	Err    error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("error starting scanner on %s: %s", e.Device, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}
