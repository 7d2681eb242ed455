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

package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/toolcrib/toolscan/pkg/api"
	"github.com/toolcrib/toolscan/pkg/api/models"
	"github.com/toolcrib/toolscan/pkg/config"
	"github.com/toolcrib/toolscan/pkg/database"
	"github.com/toolcrib/toolscan/pkg/engines"
	"github.com/toolcrib/toolscan/pkg/engines/file"
	"github.com/toolcrib/toolscan/pkg/engines/serial"
	"github.com/toolcrib/toolscan/pkg/engines/snapshot"
	"github.com/toolcrib/toolscan/pkg/scanner"
	"github.com/toolcrib/toolscan/pkg/service/state"
)

const cameraListTimeout = 10 * time.Second

// NewEngine builds the engine for every driver the config can feed.
func NewEngine(cfg *config.UserConfig) *engines.Multi {
	devices := cfg.GetReader()
	return engines.NewMulti(
		file.NewDriver(devices),
		snapshot.NewDriver(devices),
		serial.NewDriver(devices, cfg.GetProbeDevice()),
	)
}

// NewScanner builds a scanner from the config values.
func NewScanner(cfg *config.UserConfig, engine scanner.Engine) (*scanner.Scanner, error) {
	mode, err := scanner.ParseMode(cfg.GetMode())
	if err != nil {
		return nil, err
	}

	return scanner.New(engine, scanner.Options{
		Anchor: cfg.GetAnchor(),
		Mode:   mode,
		Bind: scanner.BindConfig{
			FPS:     cfg.GetFps(),
			BoxSize: cfg.GetBoxSize(),
		},
		SwitchDelay: cfg.GetSwitchDelay(),
	}), nil
}

// Start opens the database in dataDir, enumerates cameras and runs the API
// server. The returned function stops everything and releases the camera.
func Start(cfg *config.UserConfig, dataDir string) (func() error, error) {
	log.Info().Msgf("toolscan v%s", config.Version)
	log.Info().Msgf("config path = %s", cfg.IniPath)
	log.Info().Msgf("readers = %v", cfg.GetReader())
	log.Info().Msgf("mode = %s", cfg.GetMode())
	log.Info().Msgf("probe_device = %t", cfg.GetProbeDevice())
	log.Info().Msgf("debug = %t", cfg.GetDebug())

	log.Debug().Msg("opening database")
	db, err := database.Open(dataDir)
	if err != nil {
		log.Error().Err(err).Msgf("error opening database")
		return nil, err
	}

	sc, err := NewScanner(cfg, NewEngine(cfg))
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	ns := make(chan models.Notification, 64)
	st := state.NewState(sc, ns)

	ctrl, err := NewController(st, db, cfg.GetAccept())
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cameraListTimeout)
	err = ctrl.Refresh(ctx)
	cancel()
	if err != nil {
		// not fatal, a device may be plugged in later
		log.Warn().Err(err).Msg("no cameras available")
	}

	if device := cfg.GetDevice(); device != "" {
		if err := sc.Select(device); err != nil {
			log.Warn().Str("device", device).Msg("configured device not found, using default")
		}
	}

	done := make(chan struct{})
	go ctrl.forwardChanges(done)

	srv := api.NewServer(cfg, st, db, ctrl, ns)
	go func() {
		err := srv.ListenAndServe()
		if err != nil {
			log.Error().Err(err).Msg("error starting http server")
		}
	}()

	if sc.Mode() == scanner.ModeContinuous {
		err := ctrl.Start()
		if err != nil {
			log.Error().Err(err).Msg("error starting continuous scanner")
		}
	}

	return func() error {
		st.StopService()
		close(done)

		// forced stop, nothing to report to anyone
		sc.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("error stopping api server")
		}

		return db.Close()
	}, nil
}
