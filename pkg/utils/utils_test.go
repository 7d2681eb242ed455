package utils

import "testing"

func TestSplitDevice(t *testing.T) {
	tests := map[string]struct {
		in      string
		driver  string
		path    string
		wantErr bool
	}{
		"file":        {in: "file:/tmp/scan.txt", driver: "file", path: "/tmp/scan.txt"},
		"windows com": {in: "serial:COM3", driver: "serial", path: "COM3"},
		"colon path":  {in: "serial:/dev/serial/by-id/usb-a:b", driver: "serial", path: "/dev/serial/by-id/usb-a:b"},
		"no driver":   {in: ":/tmp/x", wantErr: true},
		"no path":     {in: "file:", wantErr: true},
		"no colon":    {in: "file", wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			driver, path, err := SplitDevice(tc.in)
			if (err != nil) != tc.wantErr {
				t.Fatalf("unexpected error: %v", err)
			}
			if driver != tc.driver || path != tc.path {
				t.Fatalf("expected %q %q, got %q %q", tc.driver, tc.path, driver, path)
			}
		})
	}
}

func TestContains(t *testing.T) {
	if !Contains([]string{"a", "b"}, "b") {
		t.Fatal("expected b to be found")
	}
	if Contains([]int{1, 2}, 3) {
		t.Fatal("did not expect 3 to be found")
	}
}

func TestParseUdevInfo(t *testing.T) {
	tests := map[string]struct {
		out     string
		want    usbId
		ok      bool
		ignored bool
		scanner bool
	}{
		"honeywell": {
			out:     "P: /devices/usb1\nE: ID_VENDOR_ID=0C2E\nE: ID_MODEL_ID=0b61\n",
			want:    usbId{Vid: "0c2e", Pid: "0b61"},
			ok:      true,
			scanner: true,
		},
		"nfc bridge": {
			out:     "E: ID_VENDOR_ID=1a86\nE: ID_MODEL_ID=7523\n",
			want:    usbId{Vid: "1a86", Pid: "7523"},
			ok:      true,
			ignored: true,
		},
		"no model": {
			out:  "E: ID_VENDOR_ID=0c2e\n",
			want: usbId{Vid: "0c2e"},
		},
		"empty": {},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			id, ok := parseUdevInfo(tc.out)
			if ok != tc.ok || id != tc.want {
				t.Fatalf("expected %v %v, got %v %v", tc.want, tc.ok, id, ok)
			}
			if id.ignored() != tc.ignored {
				t.Errorf("expected ignored %v", tc.ignored)
			}
			if id.isScanner() != tc.scanner {
				t.Errorf("expected scanner %v", tc.scanner)
			}
		})
	}
}

func TestFilterPorts(t *testing.T) {
	ports := []string{"COM3", "/dev/cu.Bluetooth", "COM10"}
	got := filterPorts(ports, "COM")
	if len(got) != 2 || got[0] != "COM3" || got[1] != "COM10" {
		t.Fatalf("unexpected ports: %v", got)
	}
}
