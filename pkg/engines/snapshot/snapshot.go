// Package snapshot is a decode driver for snapshot cameras: each image file
// that appears in a watched folder is treated as one frame and searched for
// a QR code or barcode.
package snapshot

import (
	"context"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/rs/zerolog/log"
	"github.com/toolcrib/toolscan/pkg/scanner"
	"github.com/toolcrib/toolscan/pkg/utils"
	"golang.org/x/time/rate"
)

const DriverId = "image"

// ErrNoCode is reported for a frame with no readable code in it. The text
// matches what camera decoders report so it is classified as a miss.
var ErrNoCode = errors.New("NotFoundException: no barcode or QR code detected")

var extensions = []string{".png", ".jpg", ".jpeg", ".gif"}

type Metadata struct {
	Path   string `json:"path"`
	Format string `json:"format"`
}

type frame struct {
	size    int64
	modTime time.Time
}

// frameSet remembers the last decoded version of each frame file so repeat
// write events for the same content are skipped.
type frameSet map[string]frame

func (fs frameSet) seen(path string, f frame) bool {
	last, ok := fs[path]
	return ok && last == f
}

func (fs frameSet) mark(path string, f frame) {
	fs[path] = f
}

func (fs frameSet) forget(path string) {
	delete(fs, path)
}

type Driver struct {
	dirs []string

	mu      sync.Mutex
	device  string
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewDriver takes the device strings to offer as cameras. Strings for other
// drivers are ignored.
func NewDriver(devices []string) *Driver {
	var dirs []string
	for _, d := range devices {
		id, path, err := utils.SplitDevice(d)
		if err != nil || id != DriverId {
			continue
		}
		dirs = append(dirs, path)
	}
	return &Driver{dirs: dirs}
}

func (d *Driver) Id() string {
	return DriverId
}

func (d *Driver) ListCameras(_ context.Context) ([]scanner.CameraDevice, error) {
	var cameras []scanner.CameraDevice
	for _, dir := range d.dirs {
		fi, err := os.Stat(dir)
		if err != nil || !fi.IsDir() {
			log.Debug().Msgf("skipping image folder: %s", dir)
			continue
		}
		cameras = append(cameras, scanner.CameraDevice{
			Id:    DriverId + ":" + dir,
			Label: "Image folder " + filepath.Base(dir),
		})
	}
	return cameras, nil
}

func isImage(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return utils.Contains(extensions, ext)
}

func readers() []gozxing.Reader {
	return []gozxing.Reader{
		qrcode.NewQRCodeReader(),
		oned.NewCode128Reader(),
		oned.NewCode39Reader(),
		oned.NewEAN13Reader(),
	}
}

// centerBox crops a size x size square from the middle of img, or returns
// img unchanged when it is not larger than that.
func centerBox(img image.Image, size int) image.Image {
	b := img.Bounds()
	if size <= 0 || (b.Dx() <= size && b.Dy() <= size) {
		return img
	}

	si, ok := img.(interface {
		SubImage(r image.Rectangle) image.Image
	})
	if !ok {
		return img
	}

	w, h := min(size, b.Dx()), min(size, b.Dy())
	x := b.Min.X + (b.Dx()-w)/2
	y := b.Min.Y + (b.Dy()-h)/2

	return si.SubImage(image.Rect(x, y, x+w, y+h))
}

func decodeImage(img image.Image) (*gozxing.Result, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return nil, err
	}

	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}

	for _, r := range readers() {
		res, err := r.Decode(bmp, hints)
		if err == nil && res != nil {
			return res, nil
		}
	}

	return nil, ErrNoCode
}

// Decode searches img for a code, looking in the center box first and the
// whole frame after.
func Decode(img image.Image, boxSize int) (*gozxing.Result, error) {
	box := centerBox(img, boxSize)
	if box != img {
		res, err := decodeImage(box)
		if err == nil {
			return res, nil
		}
	}
	return decodeImage(img)
}

func (d *Driver) Bind(
	_ string,
	device string,
	cfg scanner.BindConfig,
	onDecode scanner.DecodeFunc,
	onDecodeError scanner.DecodeErrorFunc,
) error {
	id, dir, err := utils.SplitDevice(device)
	if err != nil {
		return errors.New("invalid device string: " + device)
	}

	if id != DriverId {
		return errors.New("invalid reader id: " + id)
	}

	fi, err := os.Stat(dir)
	if err != nil {
		return err
	} else if !fi.IsDir() {
		return errors.New("image device must be a folder: " + dir)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.watcher != nil {
		return errors.New("image driver already bound to " + d.device)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	err = w.Add(dir)
	if err != nil {
		_ = w.Close()
		return err
	}

	fps := cfg.FPS
	if fps <= 0 {
		fps = scanner.DefaultFPS
	}
	limiter := rate.NewLimiter(rate.Limit(fps), 1)

	ctx, cancel := context.WithCancel(context.Background())

	d.device = device
	d.watcher = w
	d.cancel = cancel
	d.done = make(chan struct{})

	go d.watch(ctx, w, limiter, cfg.BoxSize, d.done, onDecode, onDecodeError)

	return nil
}

func (d *Driver) watch(
	ctx context.Context,
	w *fsnotify.Watcher,
	limiter *rate.Limiter,
	boxSize int,
	done chan struct{},
	onDecode scanner.DecodeFunc,
	onDecodeError scanner.DecodeErrorFunc,
) {
	defer close(done)

	seen := make(frameSet)

	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}

			if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				seen.forget(ev.Name)
				continue
			}

			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}

			if !isImage(ev.Name) {
				continue
			}

			fi, err := os.Stat(ev.Name)
			if err != nil || fi.IsDir() {
				continue
			}

			f := frame{size: fi.Size(), modTime: fi.ModTime()}
			if seen.seen(ev.Name, f) {
				continue
			}

			// frames beyond the frame rate are dropped
			if !limiter.Allow() {
				continue
			}

			img, err := readImage(ev.Name)
			if err != nil {
				// usually a file still being written, the next event retries
				log.Debug().Err(err).Msgf("skipping unreadable frame: %s", ev.Name)
				continue
			}
			seen.mark(ev.Name, f)

			res, err := Decode(img, boxSize)
			if err != nil {
				onDecodeError(err)
				continue
			}

			log.Debug().Msgf("decoded frame %s: %s", ev.Name, res.GetText())
			onDecode(res.GetText(), Metadata{
				Path:   ev.Name,
				Format: res.GetBarcodeFormat().String(),
			})
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			onDecodeError(err)
		case <-ctx.Done():
			return
		}
	}
}

func readImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	img, _, err := image.Decode(f)
	return img, err
}

func (d *Driver) Unbind() error {
	d.mu.Lock()
	w := d.watcher
	cancel := d.cancel
	done := d.done
	d.watcher = nil
	d.cancel = nil
	d.done = nil
	d.device = ""
	d.mu.Unlock()

	if w == nil {
		return nil
	}

	cancel()
	err := w.Close()
	<-done

	return err
}
