package utils

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
	"golang.org/x/exp/slices"
)

const serialByIdDir = "/dev/serial/by-id"

type usbId struct {
	Vid string
	Pid string
}

// Port name prefixes that can be a scanner on systems without udev. Other
// entries from the port list are modems, bluetooth and debug consoles.
var portPrefixes = map[string]string{
	"darwin":  "/dev/tty.",
	"windows": "COM",
}

// USB vendors whose serial devices are barcode scanners. Their ports are
// listed first so probing finds a scanner before anything else.
var scannerVendors = map[string]string{
	"0c2e": "Honeywell",
	"05e0": "Zebra",
	"05f9": "Datalogic",
	"1eab": "Newland",
}

// Serial devices that never send scan lines. Probing them only holds the
// port open.
var ignoreDevices = []usbId{
	// Sinden Lightgun
	{Vid: "16c0", Pid: "0f38"},
	{Vid: "16c0", Pid: "0f39"},
	{Vid: "16d0", Pid: "0f38"},
	{Vid: "16d0", Pid: "0f39"},
	// PN532 NFC modules on CH340 bridges
	{Vid: "1a86", Pid: "7523"},
	// u-blox GPS receivers
	{Vid: "1546", Pid: "01a7"},
	{Vid: "1546", Pid: "01a8"},
}

// parseUdevInfo reads the USB vendor and product id from the output of
// udevadm info.
func parseUdevInfo(out string) (usbId, bool) {
	var id usbId
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if v, ok := strings.CutPrefix(line, "E: ID_VENDOR_ID="); ok {
			id.Vid = strings.ToLower(v)
		} else if v, ok := strings.CutPrefix(line, "E: ID_MODEL_ID="); ok {
			id.Pid = strings.ToLower(v)
		}
	}
	return id, id.Vid != "" && id.Pid != ""
}

func (id usbId) ignored() bool {
	return slices.Contains(ignoreDevices, id)
}

func (id usbId) isScanner() bool {
	_, ok := scannerVendors[id.Vid]
	return ok
}

func lookupUsbId(path string) (usbId, bool) {
	out, err := exec.Command("udevadm", "info", "--name="+path).Output()
	if err != nil {
		log.Debug().Err(err).Msgf("udevadm lookup failed: %s", path)
		return usbId{}, false
	}
	return parseUdevInfo(string(out))
}

func getLinuxList() ([]string, error) {
	entries, err := os.ReadDir(serialByIdDir)
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	_, err = exec.LookPath("udevadm")
	haveUdev := err == nil
	if !haveUdev {
		log.Debug().Msg("udevadm not found, skipping usb id checks")
	}

	var scanners, others []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(serialByIdDir, e.Name())

		if !haveUdev {
			others = append(others, path)
			continue
		}

		id, ok := lookupUsbId(path)
		switch {
		case ok && id.ignored():
			continue
		case ok && id.isScanner():
			log.Debug().Msgf("found %s scanner: %s", scannerVendors[id.Vid], path)
			scanners = append(scanners, path)
		default:
			others = append(others, path)
		}
	}

	return append(scanners, others...), nil
}

func filterPorts(ports []string, prefix string) []string {
	var devices []string
	for _, p := range ports {
		if strings.HasPrefix(p, prefix) {
			devices = append(devices, p)
		}
	}
	return devices
}

// GetSerialDeviceList returns serial ports that may have a scanner attached,
// known scanner models first where the system can tell.
func GetSerialDeviceList() ([]string, error) {
	if runtime.GOOS == "linux" {
		return getLinuxList()
	}

	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, err
	}

	prefix, ok := portPrefixes[runtime.GOOS]
	if !ok {
		return ports, nil
	}

	return filterPorts(ports, prefix), nil
}
