package cli

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/mdp/qrterminal/v3"
	"github.com/rs/zerolog/log"
	"github.com/toolcrib/toolscan/pkg/api/client"
	"github.com/toolcrib/toolscan/pkg/api/models"
	"github.com/toolcrib/toolscan/pkg/config"
	"github.com/toolcrib/toolscan/pkg/utils"
)

// ScanTimeout is how long -scan waits for a code to be presented.
const ScanTimeout = 60 * time.Second

type Flags struct {
	Api     *string
	Cameras *bool
	Scan    *bool
	Stop    *bool
	Switch  *string
	History *int
	Export  *string
	Qr      *string
	Tui     *bool
	Version *bool
}

// SetupFlags defines all CLI flags.
func SetupFlags() *Flags {
	return &Flags{
		Api: flag.String(
			"api",
			"",
			"send method and params to API and print response",
		),
		Cameras: flag.Bool(
			"cameras",
			false,
			"list cameras known to the running service",
		),
		Scan: flag.Bool(
			"scan",
			false,
			"scan one code on the selected camera and print it",
		),
		Stop: flag.Bool(
			"stop",
			false,
			"stop the running scanner",
		),
		Switch: flag.String(
			"switch",
			"",
			"switch the running scanner to the given camera ID",
		),
		History: flag.Int(
			"history",
			0,
			"print the given number of recent scans",
		),
		Export: flag.String(
			"export",
			"",
			"write recent scan history to the given CSV file",
		),
		Qr: flag.String(
			"qr",
			"",
			"print text as a QR code, for labelling tools",
		),
		Tui: flag.Bool(
			"tui",
			false,
			"open the interactive scanner instead of running the service",
		),
		Version: flag.Bool(
			"version",
			false,
			"print version and exit",
		),
	}
}

// Pre runs flag parsing and actions any immediate flags that don't
// require environment setup. Add any custom flags before running this.
func (f *Flags) Pre() {
	flag.Parse()

	if *f.Version {
		fmt.Printf("%s v%s\n", config.AppName, config.Version)
		os.Exit(0)
	}

	if *f.Qr != "" {
		qrterminal.GenerateHalfBlock(*f.Qr, qrterminal.L, os.Stdout)
		os.Exit(0)
	}
}

func exitErr(msg string, err error) {
	log.Error().Err(err).Msg(strings.ToLower(msg))
	_, _ = fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}

func callApi(cfg *config.UserConfig, method string, params any) string {
	data := ""
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			exitErr("Error encoding params", err)
		}
		data = string(b)
	}

	resp, err := client.LocalClient(cfg, method, data)
	if err != nil {
		exitErr("Error calling API", err)
	}

	return resp
}

func printStatus(resp string) {
	var status models.StatusResponse
	err := json.Unmarshal([]byte(resp), &status)
	if err != nil {
		exitErr("Error decoding API response", err)
	}

	fmt.Printf("State:  %s\n", status.State)
	if status.SelectedCamera != nil {
		fmt.Printf("Camera: %s\n", *status.SelectedCamera)
	}
	if status.Error != nil {
		fmt.Printf("Error:  %s\n", *status.Error)
	}
}

// WriteCameras prints one line per camera, marking the selected one.
func WriteCameras(w io.Writer, cameras []models.CameraResponse) {
	if len(cameras) == 0 {
		_, _ = fmt.Fprintln(w, "No cameras found")
		return
	}
	for _, c := range cameras {
		mark := " "
		if c.Selected {
			mark = "*"
		}
		_, _ = fmt.Fprintf(w, "%s %s\t%s\n", mark, c.Id, c.Label)
	}
}

// WriteHistory prints history entries, newest first.
func WriteHistory(w io.Writer, entries []models.HistoryResponseEntry) {
	for _, e := range entries {
		status := "accepted"
		if !e.Accepted {
			status = "rejected"
		}
		_, _ = fmt.Fprintf(
			w,
			"%s  %-8s  %s  %s\n",
			e.Time.Format("2006-01-02 15:04:05"),
			status,
			e.Device,
			e.Text,
		)
	}
}

// ExportHistory writes history entries as CSV with a header row.
func ExportHistory(w io.Writer, entries []models.HistoryResponseEntry) error {
	return gocsv.Marshal(&entries, w)
}

func getHistory(cfg *config.UserConfig, maxResults int) []models.HistoryResponseEntry {
	resp := callApi(cfg, models.MethodHistory, models.HistoryParams{
		MaxResults: &maxResults,
	})

	var history models.HistoryResponse
	err := json.Unmarshal([]byte(resp), &history)
	if err != nil {
		exitErr("Error decoding API response", err)
	}

	return history.Entries
}

// Post actions all remaining flags that require the environment to be set
// up. Logging is allowed.
func (f *Flags) Post(cfg *config.UserConfig) {
	switch {
	case *f.Api != "":
		ps := strings.SplitN(*f.Api, ":", 2)
		method := ps[0]
		params := ""
		if len(ps) > 1 {
			params = ps[1]
		}

		resp, err := client.LocalClient(cfg, method, params)
		if err != nil {
			exitErr("Error calling API", err)
		}

		fmt.Println(resp)
	case *f.Cameras:
		resp := callApi(cfg, models.MethodScannerCameras, nil)

		var cams models.CamerasResponse
		err := json.Unmarshal([]byte(resp), &cams)
		if err != nil {
			exitErr("Error decoding API response", err)
		}

		WriteCameras(os.Stdout, cams.Cameras)
	case *f.Scan:
		res, err := client.LocalScan(cfg, ScanTimeout)
		if err != nil {
			exitErr("Error scanning", err)
		}

		fmt.Println(res.Text)
		if !res.Accepted {
			_, _ = fmt.Fprintln(os.Stderr, "Warning: code does not match any accepted pattern")
		}
	case *f.Stop:
		printStatus(callApi(cfg, models.MethodScannerStop, nil))
	case *f.Switch != "":
		printStatus(callApi(cfg, models.MethodScannerSwitch, models.CameraParams{
			Id: *f.Switch,
		}))
	case *f.History > 0:
		WriteHistory(os.Stdout, getHistory(cfg, *f.History))
	case *f.Export != "":
		entries := getHistory(cfg, 1000)

		out, err := os.Create(*f.Export)
		if err != nil {
			exitErr("Error creating export file", err)
		}

		err = ExportHistory(out, entries)
		_ = out.Close()
		if err != nil {
			exitErr("Error writing export file", err)
		}

		fmt.Printf("Exported %d scans to %s\n", len(entries), *f.Export)
	default:
		return
	}

	os.Exit(0)
}

// Setup initializes the user config and logging. Returns a user config object.
func Setup(defaultConfig *config.UserConfig) *config.UserConfig {
	cfg, err := config.NewUserConfig(defaultConfig)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	err = utils.InitLogging(cfg, filepath.Dir(cfg.AppPath))
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
		os.Exit(1)
	}

	return cfg
}
