package serial

import (
	"context"
	"testing"

	"github.com/toolcrib/toolscan/pkg/scanner"
)

func TestParseLine(t *testing.T) {
	tests := map[string]struct {
		line   string
		text   string
		format string
	}{
		"plain":         {line: "TOOL-0042", text: "TOOL-0042"},
		"crlf":          {line: "TOOL-0042\r", text: "TOOL-0042"},
		"empty":         {line: "   ", text: ""},
		"scan no args":  {line: "SCAN\tTOOL-7", text: "TOOL-7"},
		"scan text":     {line: "SCAN\ttext=TOOL-7\tformat=QR_CODE", text: "TOOL-7", format: "QR_CODE"},
		"scan format":   {line: "SCAN\tformat=EAN_13", text: "", format: "EAN_13"},
		"url in text":   {line: "https://crib.example/t/42", text: "https://crib.example/t/42"},
		"spaces inside": {line: "  KIT 12 B  ", text: "KIT 12 B"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			text, md := parseLine(tc.line)
			if text != tc.text {
				t.Fatalf("expected text %q, got %q", tc.text, text)
			}
			if tc.format != "" && (md == nil || md.Format != tc.format) {
				t.Fatalf("expected format %q, got %+v", tc.format, md)
			}
		})
	}
}

func TestListConfiguredCameras(t *testing.T) {
	d := NewDriver([]string{
		"serial:/dev/ttyACM0",
		"file:/tmp/scan.txt",
		"serial:COM3",
	}, false)

	cams, err := d.ListCameras(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []scanner.CameraDevice{
		{Id: "serial:/dev/ttyACM0", Label: "Serial scanner ttyACM0"},
		{Id: "serial:COM3", Label: "Serial scanner COM3"},
	}
	if len(cams) != len(want) {
		t.Fatalf("expected %v, got %v", want, cams)
	}
	for i := range want {
		if cams[i] != want[i] {
			t.Fatalf("expected %v, got %v", want[i], cams[i])
		}
	}
}

func TestBindInvalidDevice(t *testing.T) {
	d := NewDriver(nil, false)
	for _, device := range []string{"serial", "file:/dev/ttyACM0"} {
		err := d.Bind("reader", device, scanner.BindConfig{}, func(string, any) {}, func(error) {})
		if err == nil {
			t.Fatalf("expected error binding %q", device)
		}
	}
	if err := d.Unbind(); err != nil {
		t.Fatalf("unbind without bind should be a no-op, got %v", err)
	}
}
