package snapshot

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/toolcrib/toolscan/pkg/scanner"
)

func qrImage(t *testing.T, text string, size int) image.Image {
	t.Helper()
	m, err := qrcode.NewQRCodeWriter().Encode(text, gozxing.BarcodeFormat_QR_CODE, size, size, nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return m
}

func blank(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	return img
}

func writePng(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()

	tmp := filepath.Join(dir, name+".tmp")
	f, err := os.Create(tmp)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, name)
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDecode(t *testing.T) {
	res, err := Decode(qrImage(t, "TOOL-0042", 200), 250)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.GetText() != "TOOL-0042" {
		t.Errorf("unexpected text: %q", res.GetText())
	}
	if res.GetBarcodeFormat() != gozxing.BarcodeFormat_QR_CODE {
		t.Errorf("unexpected format: %s", res.GetBarcodeFormat())
	}
}

func TestDecodeCenterBox(t *testing.T) {
	img := blank(800, 600)
	qr := qrImage(t, "TOOL-7", 200)
	at := image.Pt(300, 200)
	draw.Draw(img, qr.Bounds().Add(at), qr, image.Point{}, draw.Src)

	res, err := Decode(img, 250)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.GetText() != "TOOL-7" {
		t.Errorf("unexpected text: %q", res.GetText())
	}
}

func TestDecodeNoCode(t *testing.T) {
	_, err := Decode(blank(320, 240), 250)
	if !errors.Is(err, ErrNoCode) {
		t.Fatalf("expected ErrNoCode, got %v", err)
	}
	if scanner.Classify(err) != scanner.Transient {
		t.Error("expected a frame without a code to be transient")
	}
}

func TestCenterBox(t *testing.T) {
	tests := []struct {
		name string
		w, h int
		size int
		want image.Rectangle
	}{
		{"smaller than box", 200, 100, 250, image.Rect(0, 0, 200, 100)},
		{"cropped", 800, 600, 250, image.Rect(275, 175, 525, 425)},
		{"one side larger", 800, 200, 250, image.Rect(275, 0, 525, 200)},
		{"no box", 800, 600, 0, image.Rect(0, 0, 800, 600)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := centerBox(blank(tt.w, tt.h), tt.size).Bounds()
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestListCameras(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "not-a-folder.png")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatal(err)
	}

	d := NewDriver([]string{
		"image:" + dir,
		"image:" + file,
		"image:/does/not/exist",
		"file:/tmp/scan.txt",
	})

	cams, err := d.ListCameras(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cams) != 1 || cams[0].Id != "image:"+dir {
		t.Fatalf("unexpected cameras: %v", cams)
	}
}

func TestBindDecodesNewFrames(t *testing.T) {
	dir := t.TempDir()
	d := NewDriver([]string{"image:" + dir})

	texts := make(chan string, 10)
	errs := make(chan error, 10)

	err := d.Bind(
		"reader",
		"image:"+dir,
		scanner.BindConfig{FPS: 100, BoxSize: 250},
		func(text string, md any) {
			if _, ok := md.(Metadata); !ok {
				errs <- errors.New("unexpected metadata type")
			}
			texts <- text
		},
		func(err error) { errs <- err },
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() {
		if err := d.Unbind(); err != nil {
			t.Errorf("unexpected unbind error: %v", err)
		}
	}()

	writePng(t, dir, "frame1.png", qrImage(t, "TOOL-0042", 200))

	select {
	case text := <-texts:
		if text != "TOOL-0042" {
			t.Fatalf("unexpected text: %q", text)
		}
	case err := <-errs:
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for decode")
	}

	// let the limiter refill before the next frame
	time.Sleep(50 * time.Millisecond)
	writePng(t, dir, "frame2.png", blank(320, 240))

	select {
	case err := <-errs:
		if !errors.Is(err, ErrNoCode) {
			t.Fatalf("expected ErrNoCode, got %v", err)
		}
	case text := <-texts:
		t.Fatalf("unexpected decode: %q", text)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for decode error")
	}
}

func TestBindRejectsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "frame.png")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatal(err)
	}

	d := NewDriver(nil)
	err := d.Bind("reader", "image:"+file, scanner.BindConfig{}, func(string, any) {}, func(error) {})
	if err == nil {
		t.Fatal("expected error binding a file")
	}

	if err := d.Unbind(); err != nil {
		t.Errorf("unbind of unbound driver should be a no-op, got %v", err)
	}
}

func TestFrameSet(t *testing.T) {
	now := time.Now()
	f := frame{size: 100, modTime: now}

	fs := make(frameSet)
	if fs.seen("a.png", f) {
		t.Fatal("new frame reported as seen")
	}

	fs.mark("a.png", f)
	if !fs.seen("a.png", f) {
		t.Fatal("expected frame to be seen")
	}
	if fs.seen("a.png", frame{size: 101, modTime: now}) {
		t.Fatal("changed frame reported as seen")
	}

	fs.forget("a.png")
	if fs.seen("a.png", f) {
		t.Fatal("forgotten frame reported as seen")
	}
	if len(fs) != 0 {
		t.Fatalf("expected empty set, got %d entries", len(fs))
	}
}
