//go:build mage

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
	"path/filepath"
	"runtime"

	_ "github.com/joho/godotenv/autoload"
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

var (
	cwd, _         = os.Getwd()
	binDir         = filepath.Join(cwd, "_bin")
	binReleasesDir = filepath.Join(binDir, "releases")
	upxBin         = os.Getenv("UPX_BIN")
	appPath        = filepath.Join(cwd, "cmd", "toolscan")
)

type target struct {
	goos   string
	goarch string
	goarm  string
}

func (t target) platform() string {
	if t.goarm != "" {
		return t.goos + "_" + t.goarch + "v" + t.goarm
	}
	return t.goos + "_" + t.goarch
}

func (t target) bin() string {
	if t.goos == "windows" {
		return "toolscan.exe"
	}
	return "toolscan"
}

// release targets, all built without cgo
var targets = []target{
	{goos: "linux", goarch: "amd64"},
	{goos: "linux", goarch: "arm64"},
	{goos: "linux", goarch: "arm", goarm: "7"},
	{goos: "windows", goarch: "amd64"},
	{goos: "darwin", goarch: "arm64"},
}

func cleanPlatform(name string) {
	_ = sh.Rm(filepath.Join(binDir, name))
}

func Clean() {
	_ = sh.Rm(binDir)
}

func buildTarget(t target) error {
	env := map[string]string{
		"CGO_ENABLED": "0",
		"GOOS":        t.goos,
		"GOARCH":      t.goarch,
	}
	if t.goarm != "" {
		env["GOARM"] = t.goarm
	}

	out := filepath.Join(binDir, t.platform(), t.bin())
	return sh.RunWithV(env, "go", "build", "-trimpath", "-o", out, appPath)
}

// Build builds toolscan for the host platform.
func Build() error {
	t := target{goos: runtime.GOOS, goarch: runtime.GOARCH}
	mg.Deps(func() { cleanPlatform(t.platform()) })
	return buildTarget(t)
}

// Cross builds every release target.
func Cross() error {
	for _, t := range targets {
		fmt.Println("Building", t.platform())
		err := buildTarget(t)
		if err != nil {
			return err
		}
	}
	return nil
}

func Release() {
	mg.Deps(Clean)

	err := Cross()
	if err != nil {
		fmt.Println("Error building release", err)
		os.Exit(1)
	}

	_ = os.MkdirAll(binReleasesDir, 0755)

	for _, t := range targets {
		releaseBin := filepath.Join(binReleasesDir, "toolscan_"+t.platform())
		if t.goos == "windows" {
			releaseBin += ".exe"
		}

		err := sh.Copy(releaseBin, filepath.Join(binDir, t.platform(), t.bin()))
		if err != nil {
			fmt.Println("Error copying binary", err)
			os.Exit(1)
		}

		if upxBin == "" || t.goos == "darwin" {
			continue
		}

		err = sh.RunV(upxBin, "-9", releaseBin)
		if err != nil {
			fmt.Println("Error compressing binary", err)
			os.Exit(1)
		}
	}
}

func Test() {
	_ = sh.RunV("go", "test", "./...")
}

func Coverage() {
	_ = sh.RunV("go", "test", "-coverprofile", "coverage.out", "./...")
	_ = sh.RunV("go", "tool", "cover", "-html", "coverage.out")
	_ = sh.Rm("coverage.out")
}
