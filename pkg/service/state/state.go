package state

import (
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/toolcrib/toolscan/pkg/api/models"
	"github.com/toolcrib/toolscan/pkg/scanner"
)

type State struct {
	mu            sync.RWMutex
	scanner       *scanner.Scanner
	lastResult    *models.ScanResultResponse
	stopService   bool
	Notifications chan<- models.Notification
}

func NewState(sc *scanner.Scanner, ns chan<- models.Notification) *State {
	return &State{
		scanner:       sc,
		Notifications: ns,
	}
}

func (s *State) Scanner() *scanner.Scanner {
	return s.scanner
}

// Notify queues a notification for API clients. It never blocks; if nobody
// is draining the queue the notification is dropped.
func (s *State) Notify(method string, params any) {
	if s.Notifications == nil {
		return
	}

	select {
	case s.Notifications <- models.Notification{Method: method, Params: params}:
	default:
		log.Warn().Str("method", method).Msg("notification queue full, dropping")
	}
}

func (s *State) SetLastResult(result models.ScanResultResponse) {
	s.mu.Lock()
	s.lastResult = &result
	s.mu.Unlock()

	s.Notify(models.ScannerResult, result)
}

func (s *State) GetLastResult() *models.ScanResultResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastResult == nil {
		return nil
	}
	r := *s.lastResult
	return &r
}

func (s *State) StopService() {
	s.mu.Lock()
	s.stopService = true
	s.mu.Unlock()
}

func (s *State) ShouldStopService() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stopService
}

func (s *State) Cameras() []models.CameraResponse {
	selected := s.scanner.SelectedCamera()
	cameras := make([]models.CameraResponse, 0)
	for _, c := range s.scanner.Cameras() {
		cameras = append(cameras, models.CameraResponse{
			Id:       c.Id,
			Label:    c.Label,
			Selected: c.Id == selected,
		})
	}
	return cameras
}

// Status is the caller facing view of the scanner.
func (s *State) Status() models.StatusResponse {
	sc := s.scanner

	var errText *string
	if e := sc.Error(); e != "" {
		errText = &e
	}

	var selected *string
	if id := sc.SelectedCamera(); id != "" {
		selected = &id
	}

	return models.StatusResponse{
		State:          sc.State().String(),
		Mode:           sc.Mode().String(),
		IsScanning:     sc.IsScanning(),
		Switching:      sc.IsSwitching(),
		Error:          errText,
		SelectedCamera: selected,
		Cameras:        s.Cameras(),
		LastResult:     s.GetLastResult(),
	}
}
