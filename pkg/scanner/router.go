package scanner

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type ErrorClass int

const (
	// Transient errors are per-frame decode misses and are never surfaced.
	Transient ErrorClass = iota
	Hard
)

func (c ErrorClass) String() string {
	if c == Transient {
		return "transient"
	}
	return "hard"
}

// Lowercased fragments of the messages decode engines report when a frame
// simply had no code in it.
var notFoundPatterns = []string{
	"notfoundexception",
	"no multiformat readers",
	"no barcode or qr code detected",
	"no qr code found",
	"not found",
}

// Classify sorts an engine reported decode error into transient misses and
// hard failures.
func Classify(err error) ErrorClass {
	if err == nil {
		return Transient
	}

	msg := strings.ToLower(err.Error())
	for _, p := range notFoundPatterns {
		if strings.Contains(msg, p) {
			return Transient
		}
	}

	return Hard
}

// Router forwards engine callbacks to caller handlers. Successful decodes
// are wrapped in a ScanResult, transient decode errors are dropped and hard
// errors are passed on as plain text, once per occurrence.
type Router struct {
	Device    string
	OnSuccess SuccessFunc
	OnError   ErrorFunc
	now       func() time.Time
}

func NewRouter(device string, onSuccess SuccessFunc, onError ErrorFunc) *Router {
	return &Router{
		Device:    device,
		OnSuccess: onSuccess,
		OnError:   onError,
		now:       time.Now,
	}
}

func (r *Router) Decode(text string, metadata any) {
	if r.OnSuccess == nil {
		return
	}

	r.OnSuccess(ScanResult{
		Text:     text,
		Metadata: metadata,
		Device:   r.Device,
		ScanTime: r.now(),
	})
}

// DecodeError reports whether err was forwarded to the error handler.
func (r *Router) DecodeError(err error) bool {
	if Classify(err) == Transient {
		return false
	}

	log.Debug().Err(err).Str("device", r.Device).Msg("forwarding decode error")
	if r.OnError != nil {
		r.OnError(err.Error())
	}

	return true
}
