package service

import (
	"context"
	"testing"
	"time"

	"github.com/toolcrib/toolscan/pkg/api/models"
	"github.com/toolcrib/toolscan/pkg/config"
	"github.com/toolcrib/toolscan/pkg/database"
	"github.com/toolcrib/toolscan/pkg/engines/mock"
	"github.com/toolcrib/toolscan/pkg/scanner"
	"github.com/toolcrib/toolscan/pkg/service/state"
)

func newTestController(
	t *testing.T,
	accept []string,
) (*Controller, *mock.Engine, *database.Database, chan models.Notification) {
	t.Helper()

	eng := mock.New(scanner.CameraDevice{Id: "cam", Label: "Rear"})
	sc := scanner.New(eng, scanner.Options{})

	db, err := database.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ns := make(chan models.Notification, 32)
	ctrl, err := NewController(state.NewState(sc, ns), db, accept)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := ctrl.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected refresh error: %v", err)
	}

	return ctrl, eng, db, ns
}

func waitNotification(t *testing.T, ns <-chan models.Notification, method string) models.Notification {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case n := <-ns:
			if n.Method == method {
				return n
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s notification", method)
		}
	}
}

func TestControllerAccepts(t *testing.T) {
	tests := []struct {
		name   string
		accept []string
		text   string
		want   bool
	}{
		{"no patterns", nil, "anything", true},
		{"prefix match", []string{"TOOL-*"}, "TOOL-0042", true},
		{"prefix miss", []string{"TOOL-*"}, "https://example.com", false},
		{"second pattern", []string{"TOOL-*", "BIN-??"}, "BIN-07", true},
		{"alternatives", []string{"{drill,saw}-*"}, "saw-3", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl, err := NewController(nil, nil, tt.accept)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := ctrl.Accepts(tt.text); got != tt.want {
				t.Errorf("Accepts(%q) = %t, want %t", tt.text, got, tt.want)
			}
		})
	}
}

func TestControllerInvalidPattern(t *testing.T) {
	_, err := NewController(nil, nil, []string{"TOOL-["})
	if err == nil {
		t.Fatal("expected error for invalid pattern")
	}
}

func TestControllerRecordsScan(t *testing.T) {
	ctrl, eng, db, ns := newTestController(t, []string{"TOOL-*"})

	if err := ctrl.Start(); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}

	if err := eng.Emit("TOOL-0042", nil); err != nil {
		t.Fatalf("emit: %v", err)
	}

	n := waitNotification(t, ns, models.ScannerResult)
	res, ok := n.Params.(models.ScanResultResponse)
	if !ok {
		t.Fatalf("unexpected params type %T", n.Params)
	}
	if res.Text != "TOOL-0042" || !res.Accepted || res.Device != "cam" {
		t.Errorf("unexpected result: %+v", res)
	}

	entries, err := db.GetHistory(0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 1 || entries[0].Text != "TOOL-0042" || !entries[0].Accepted {
		t.Fatalf("unexpected history: %+v", entries)
	}
}

func TestControllerRecordsRejectedScan(t *testing.T) {
	ctrl, eng, db, _ := newTestController(t, []string{"TOOL-*"})

	if err := ctrl.Start(); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	if err := eng.Emit("hello", nil); err != nil {
		t.Fatalf("emit: %v", err)
	}

	entries, err := db.GetHistory(0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 1 || entries[0].Accepted {
		t.Fatalf("unexpected history: %+v", entries)
	}
}

func TestControllerNotifiesError(t *testing.T) {
	ctrl, eng, _, ns := newTestController(t, nil)

	if err := ctrl.Start(); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	if err := eng.EmitError(scanner.ErrCameraAccess); err != nil {
		t.Fatalf("emit: %v", err)
	}

	n := waitNotification(t, ns, models.ScannerError)
	if n.Params != scanner.ErrCameraAccess.Error() {
		t.Errorf("unexpected error params: %v", n.Params)
	}
}

func TestControllerSelectNotifiesCameras(t *testing.T) {
	ctrl, _, _, ns := newTestController(t, nil)

	if err := ctrl.Select("missing"); err == nil {
		t.Fatal("expected error selecting unknown camera")
	}

	if err := ctrl.Select("cam"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitNotification(t, ns, models.ScannerCameras)
}

func TestForwardChanges(t *testing.T) {
	ctrl, _, _, ns := newTestController(t, nil)

	done := make(chan struct{})
	defer close(done)
	go ctrl.forwardChanges(done)

	if err := ctrl.Start(); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}

	n := waitNotification(t, ns, models.ScannerState)
	if _, ok := n.Params.(models.StatusResponse); !ok {
		t.Fatalf("unexpected params type %T", n.Params)
	}

	ctrl.Stop()
}

func TestNewScanner(t *testing.T) {
	cfg := config.BaseDefaults()
	cfg.ToolScan.Mode = "continuous"

	sc, err := NewScanner(cfg, mock.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sc.Mode() != scanner.ModeContinuous {
		t.Errorf("expected continuous mode, got %s", sc.Mode())
	}

	cfg.ToolScan.Mode = "sometimes"
	if _, err := NewScanner(cfg, mock.New()); err == nil {
		t.Error("expected error for unknown mode")
	}
}
