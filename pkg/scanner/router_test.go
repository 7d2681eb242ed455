package scanner_test

import (
	"errors"
	"testing"

	"github.com/toolcrib/toolscan/pkg/scanner"
)

func TestClassify(t *testing.T) {
	tests := map[string]struct {
		err  error
		want scanner.ErrorClass
	}{
		"zxing not found":    {err: errors.New("NotFoundException: no QR in frame"), want: scanner.Transient},
		"multiformat":        {err: errors.New("No MultiFormat Readers were able to detect the code."), want: scanner.Transient},
		"lowercase":          {err: errors.New("qr code parse error, error = not found"), want: scanner.Transient},
		"nil":                {err: nil, want: scanner.Transient},
		"camera disconnect":  {err: errors.New("Camera disconnected"), want: scanner.Hard},
		"permission revoked": {err: errors.New("NotAllowedError: Permission denied"), want: scanner.Hard},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if got := scanner.Classify(tc.err); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestRouterForwarding(t *testing.T) {
	var results []scanner.ScanResult
	var errs []string

	r := scanner.NewRouter(
		"cam",
		func(res scanner.ScanResult) { results = append(results, res) },
		func(msg string) { errs = append(errs, msg) },
	)

	r.Decode("TOOL-0042", map[string]string{"format": "QR_CODE"})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Text != "TOOL-0042" || results[0].Device != "cam" {
		t.Fatalf("unexpected result: %+v", results[0])
	}
	if results[0].ScanTime.IsZero() {
		t.Fatal("expected scan time to be set")
	}

	if r.DecodeError(errors.New("NotFoundException: no QR in frame")) {
		t.Fatal("transient error should not be forwarded")
	}

	// hard errors are forwarded every time, never deduplicated
	hard := errors.New("Camera disconnected")
	for i := 0; i < 2; i++ {
		if !r.DecodeError(hard) {
			t.Fatal("hard error should be forwarded")
		}
	}
	if len(errs) != 2 || errs[0] != "Camera disconnected" {
		t.Fatalf("unexpected errors: %v", errs)
	}
}

func TestRouterNilHandlers(t *testing.T) {
	r := scanner.NewRouter("cam", nil, nil)
	r.Decode("x", nil)
	if !r.DecodeError(errors.New("boom")) {
		t.Fatal("expected hard error to be reported as forwarded")
	}
}
