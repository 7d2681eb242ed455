package scanner_test

import (
	"context"
	"errors"
	"testing"

	"github.com/toolcrib/toolscan/pkg/engines/mock"
	"github.com/toolcrib/toolscan/pkg/scanner"
)

func TestSelectDefault(t *testing.T) {
	tests := map[string]struct {
		cameras []scanner.CameraDevice
		want    string
		ok      bool
	}{
		"back camera second": {
			cameras: []scanner.CameraDevice{
				{Id: "1", Label: "Front"},
				{Id: "2", Label: "Back Camera"},
			},
			want: "2",
			ok:   true,
		},
		"rear first": {
			cameras: []scanner.CameraDevice{
				{Id: "a", Label: "REAR wide"},
				{Id: "b", Label: "Front"},
			},
			want: "a",
			ok:   true,
		},
		"spanish label": {
			cameras: []scanner.CameraDevice{
				{Id: "1", Label: "Cámara frontal"},
				{Id: "2", Label: "Facing front"},
				{Id: "3", Label: "Cámara trasera 0"},
			},
			want: "3",
			ok:   true,
		},
		"first match wins": {
			cameras: []scanner.CameraDevice{
				{Id: "1", Label: "webcam"},
				{Id: "2", Label: "camera2 1, facing back"},
				{Id: "3", Label: "rear telephoto"},
			},
			want: "2",
			ok:   true,
		},
		"no match uses first": {
			cameras: []scanner.CameraDevice{
				{Id: "x", Label: "Integrated Webcam"},
				{Id: "y", Label: "USB Camera"},
			},
			want: "x",
			ok:   true,
		},
		"empty labels": {
			cameras: []scanner.CameraDevice{{Id: "x"}},
			want:    "x",
			ok:      true,
		},
		"no cameras": {
			cameras: nil,
			want:    "",
			ok:      false,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, ok := scanner.SelectDefault(tc.cameras)
			if ok != tc.ok {
				t.Fatalf("expected ok %v, got %v", tc.ok, ok)
			}
			if got.Id != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got.Id)
			}
		})
	}
}

func TestDirectoryList(t *testing.T) {
	eng := mock.New(scanner.CameraDevice{Id: "1", Label: "Front"})
	dir := scanner.NewDirectory(eng)

	cams, err := dir.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cams) != 1 || cams[0].Id != "1" {
		t.Fatalf("unexpected cameras: %v", cams)
	}
}

func TestDirectoryListErrors(t *testing.T) {
	t.Run("permission denied", func(t *testing.T) {
		eng := mock.New()
		eng.ListErr = errors.New("NotAllowedError: Permission denied")

		_, err := scanner.NewDirectory(eng).List(context.Background())
		if !errors.Is(err, scanner.ErrCameraAccess) {
			t.Fatalf("expected camera access error, got %v", err)
		}
	})

	t.Run("no devices", func(t *testing.T) {
		_, err := scanner.NewDirectory(mock.New()).List(context.Background())
		if !errors.Is(err, scanner.ErrCameraAccess) {
			t.Fatalf("expected camera access error, got %v", err)
		}
	})
}
