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

package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/toolcrib/toolscan/pkg/cli"
	"github.com/toolcrib/toolscan/pkg/config"
	"github.com/toolcrib/toolscan/pkg/scanner"
	"github.com/toolcrib/toolscan/pkg/service"
	"github.com/toolcrib/toolscan/pkg/ui"
	"github.com/toolcrib/toolscan/pkg/utils"
)

func runTui(cfg *config.UserConfig) {
	sc, err := service.NewScanner(cfg, service.NewEngine(cfg))
	if err != nil {
		log.Error().Msgf("error creating scanner: %s", err)
		_, _ = fmt.Fprintln(os.Stderr, "Error creating scanner:", err)
		os.Exit(1)
	}

	var last *scanner.ScanResult
	err = ui.Run(sc, func(res scanner.ScanResult) {
		last = &res
	})
	if err != nil {
		log.Error().Msgf("error running scanner: %s", err)
		_, _ = fmt.Fprintln(os.Stderr, "Error running scanner:", err)
		os.Exit(1)
	}

	if last != nil {
		fmt.Println(last.Text)
	}

	os.Exit(0)
}

func main() {
	flags := cli.SetupFlags()
	flags.Pre()

	cfg := cli.Setup(config.BaseDefaults())

	flags.Post(cfg)

	if *flags.Tui {
		runTui(cfg)
	}

	fmt.Printf("%s v%s\n", config.AppName, config.Version)

	stopSvc, err := service.Start(cfg, filepath.Dir(cfg.AppPath))
	if err != nil {
		log.Error().Msgf("error starting service: %s", err)
		_, _ = fmt.Fprintln(os.Stderr, "Error starting service:", err)
		os.Exit(1)
	}

	ip, err := utils.GetLocalIp()
	if err != nil {
		fmt.Println("Device address: Unknown")
	} else {
		fmt.Printf("Device address: %s:%s\n", ip.String(), cfg.GetApiPort())
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	err = stopSvc()
	if err != nil {
		log.Error().Msgf("error stopping service: %s", err)
		_, _ = fmt.Fprintln(os.Stderr, "Error stopping service:", err)
		os.Exit(1)
	}

	os.Exit(0)
}
