package scanner

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// Label substrings that suggest a rear facing camera, checked in order.
var rearLabels = []string{"back", "trasera", "rear"}

// SelectDefault picks the camera a scanner should use when the user hasn't
// chosen one: the first device whose label looks like a rear camera, or the
// first device, or nothing if the list is empty.
func SelectDefault(cameras []CameraDevice) (CameraDevice, bool) {
	if len(cameras) == 0 {
		return CameraDevice{}, false
	}

	for _, c := range cameras {
		label := strings.ToLower(c.Label)
		for _, s := range rearLabels {
			if strings.Contains(label, s) {
				return c, true
			}
		}
	}

	return cameras[0], true
}

type Directory struct {
	engine Engine
}

func NewDirectory(engine Engine) *Directory {
	return &Directory{engine: engine}
}

// List enumerates cameras from the engine. Any engine failure, or an empty
// result, is reported as ErrCameraAccess.
func (d *Directory) List(ctx context.Context) ([]CameraDevice, error) {
	cameras, err := d.engine.ListCameras(ctx)
	if err != nil {
		log.Error().Err(err).Msg("error listing cameras")
		return nil, fmt.Errorf("%w: %s", ErrCameraAccess, err)
	}

	if len(cameras) == 0 {
		return nil, ErrCameraAccess
	}

	log.Debug().Int("count", len(cameras)).Msg("listed cameras")
	return cameras, nil
}
