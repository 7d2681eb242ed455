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

package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/ini.v1"
)

const UserConfigEnv = "TOOLSCAN_CONFIG"
const UserAppPathEnv = "TOOLSCAN_APP_PATH"

type ToolScanConfig struct {
	Reader         []string `ini:"reader,omitempty,allowshadow"`
	Device         string   `ini:"device,omitempty"` // preferred camera id
	ProbeDevice    bool     `ini:"probe_device"`
	Mode           string   `ini:"mode"`
	SwitchDelay    int      `ini:"switch_delay"` // milliseconds
	Anchor         string   `ini:"anchor"`
	Fps            int      `ini:"fps"`
	BoxSize        int      `ini:"box_size"`
	Accept         []string `ini:"accept,omitempty,allowshadow"`
	ConsoleLogging bool     `ini:"console_logging"`
	Debug          bool     `ini:"debug"`
}

type ApiConfig struct {
	Port      string  `ini:"port"`
	RateLimit float64 `ini:"rate_limit"` // requests per second, 0 disables
	RateBurst int     `ini:"rate_burst"`
}

type UserConfig struct {
	mu       sync.RWMutex
	AppPath  string         `ini:"-"`
	IniPath  string         `ini:"-"`
	ToolScan ToolScanConfig `ini:"toolscan"`
	Api      ApiConfig      `ini:"api"`
}

// BaseDefaults returns a fresh config with default values. A new value is
// returned each call because UserConfig holds a mutex.
func BaseDefaults() *UserConfig {
	return &UserConfig{
		ToolScan: ToolScanConfig{
			ProbeDevice: true,
			Mode:        "single",
			SwitchDelay: 100,
			Anchor:      DefaultAnchor,
			Fps:         10,
			BoxSize:     250,
		},
		Api: ApiConfig{
			Port:      DefaultApiPort,
			RateLimit: 20,
			RateBurst: 40,
		},
	}
}

func (c *UserConfig) GetReader() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ToolScan.Reader
}

func (c *UserConfig) SetReader(reader []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ToolScan.Reader = reader
}

func (c *UserConfig) GetDevice() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ToolScan.Device
}

func (c *UserConfig) SetDevice(device string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ToolScan.Device = device
}

func (c *UserConfig) GetProbeDevice() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ToolScan.ProbeDevice
}

func (c *UserConfig) SetProbeDevice(probeDevice bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ToolScan.ProbeDevice = probeDevice
}

func (c *UserConfig) GetMode() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ToolScan.Mode
}

func (c *UserConfig) SetMode(mode string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ToolScan.Mode = mode
}

func (c *UserConfig) GetSwitchDelay() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.ToolScan.SwitchDelay) * time.Millisecond
}

func (c *UserConfig) GetAnchor() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.ToolScan.Anchor == "" {
		return DefaultAnchor
	}
	return c.ToolScan.Anchor
}

func (c *UserConfig) GetFps() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ToolScan.Fps
}

func (c *UserConfig) GetBoxSize() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ToolScan.BoxSize
}

func (c *UserConfig) GetAccept() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ToolScan.Accept
}

func (c *UserConfig) GetConsoleLogging() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ToolScan.ConsoleLogging
}

func (c *UserConfig) GetDebug() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ToolScan.Debug
}

func (c *UserConfig) SetDebug(debug bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ToolScan.Debug = debug
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func (c *UserConfig) GetApiPort() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Api.Port == "" {
		return DefaultApiPort
	}
	return c.Api.Port
}

func (c *UserConfig) GetRateLimit() (float64, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Api.RateLimit, c.Api.RateBurst
}

func (c *UserConfig) LoadConfig() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cfg, err := ini.ShadowLoad(c.IniPath)
	if err != nil {
		return err
	}

	err = cfg.StrictMapTo(c)
	if err != nil {
		return err
	}

	c.ToolScan.Mode = strings.ToLower(strings.TrimSpace(c.ToolScan.Mode))

	return nil
}

func (c *UserConfig) SaveConfig() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cfg := ini.Empty(ini.LoadOptions{AllowShadows: true})

	ini.PrettyEqual = true
	ini.PrettyFormat = false

	err := cfg.ReflectFrom(c)
	if err != nil {
		return err
	}

	err = cfg.SaveTo(c.IniPath)
	if err != nil {
		return err
	}

	return nil
}

// NewUserConfig loads the ini file next to the executable, or the one named
// by TOOLSCAN_CONFIG, into defaultConfig. A missing file is created from the
// defaults.
func NewUserConfig(defaultConfig *UserConfig) (*UserConfig, error) {
	iniPath := os.Getenv(UserConfigEnv)

	exePath, err := os.Executable()
	if err != nil {
		return defaultConfig, err
	}

	appPath := os.Getenv(UserAppPathEnv)
	if appPath != "" {
		exePath = appPath
	}

	if iniPath == "" {
		iniPath = filepath.Join(filepath.Dir(exePath), AppName+".ini")
	}

	defaultConfig.AppPath = exePath
	defaultConfig.IniPath = iniPath

	if _, err := os.Stat(iniPath); os.IsNotExist(err) {
		// create a blank one on disk
		err := defaultConfig.SaveConfig()
		if err != nil {
			log.Error().Err(err).Msg("failed to save new user config to disk")
			return defaultConfig, err
		}

		return defaultConfig, nil
	}

	err = defaultConfig.LoadConfig()
	if err != nil {
		log.Error().Err(err).Msg("failed to load user config")
		return defaultConfig, err
	}

	return defaultConfig, nil
}
