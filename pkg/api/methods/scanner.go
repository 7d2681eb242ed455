package methods

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/toolcrib/toolscan/pkg/api/models"
	"github.com/toolcrib/toolscan/pkg/api/models/requests"
	"github.com/toolcrib/toolscan/pkg/scanner"
)

func HandleStatus(env requests.RequestEnv) (any, error) {
	log.Info().Msg("received status request")
	return env.State.Status(), nil
}

// HandleCameras re-enumerates devices before answering so a camera plugged
// in since the last request shows up.
func HandleCameras(env requests.RequestEnv) (any, error) {
	log.Info().Msg("received cameras request")

	err := env.Scans.Refresh(context.Background())
	if err != nil && !errors.Is(err, scanner.ErrCameraAccess) {
		return nil, err
	}

	return models.CamerasResponse{
		Cameras: env.State.Cameras(),
	}, nil
}

func HandleStart(env requests.RequestEnv) (any, error) {
	log.Info().Msg("received scanner start request")

	// a running session keeps its camera, refuse before touching selection
	sc := env.State.Scanner()
	if sc.IsSwitching() {
		return nil, scanner.ErrSwitchInProgress
	}
	if sc.IsScanning() {
		return nil, scanner.ErrAlreadyScanning
	}

	if len(env.Params) > 0 {
		var params models.CameraParams
		err := json.Unmarshal(env.Params, &params)
		if err != nil {
			return nil, ErrInvalidParams
		}

		if params.Id != "" {
			err := env.Scans.Select(params.Id)
			if err != nil {
				return nil, err
			}
		}
	}

	err := env.Scans.Start()
	if err != nil {
		return nil, err
	}

	return env.State.Status(), nil
}

func HandleStop(env requests.RequestEnv) (any, error) {
	log.Info().Msg("received scanner stop request")
	env.Scans.Stop()
	return env.State.Status(), nil
}

func parseCamera(env requests.RequestEnv) (string, error) {
	if len(env.Params) == 0 {
		return "", ErrMissingParams
	}

	var params models.CameraParams
	err := json.Unmarshal(env.Params, &params)
	if err != nil {
		return "", ErrInvalidParams
	}

	if params.Id == "" {
		return "", ErrMissingParams
	}

	return params.Id, nil
}

func HandleSwitch(env requests.RequestEnv) (any, error) {
	log.Info().Msg("received scanner switch request")

	id, err := parseCamera(env)
	if err != nil {
		return nil, err
	}

	err = env.Scans.Switch(id)
	if err != nil {
		return nil, err
	}

	return env.State.Status(), nil
}

func HandleSelect(env requests.RequestEnv) (any, error) {
	log.Info().Msg("received scanner select request")

	id, err := parseCamera(env)
	if err != nil {
		return nil, err
	}

	err = env.Scans.Select(id)
	if err != nil {
		return nil, err
	}

	return models.CamerasResponse{
		Cameras: env.State.Cameras(),
	}, nil
}
