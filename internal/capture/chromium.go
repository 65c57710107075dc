// Package capture renders the display page in headless Chromium and
// returns it as a PNG, for signage screens that can only show images.
package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"

	appLog "livekeeper/internal/log"
)

const (
	DefaultWidth   = 1280
	DefaultHeight  = 720
	DefaultTimeout = 30 * time.Second

	// ReadySelector matches the page root once the display has rendered.
	ReadySelector = `[data-ready="true"]`
)

// Options defines a single screenshot.
type Options struct {
	// URL of the display page, e.g. "http://127.0.0.1:8080/".
	URL string

	// Width and Height are the viewport size in pixels; zero uses the
	// defaults.
	Width  int
	Height int

	// Timeout bounds navigation, the ready wait and the screenshot.
	Timeout time.Duration

	// Tricolor reduces the screenshot to TricolorPalette for e-paper signs.
	Tricolor bool
}

func (o *Options) normalize() error {
	if o.URL == "" {
		return errors.New("capture: URL is required")
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return nil
}

// PNG navigates to opts.URL, waits for ReadySelector and returns a full
// page screenshot.
func PNG(parent context.Context, opts Options) ([]byte, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}

	ctx, cancel := chromedp.NewContext(parent)
	defer cancel()
	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(ReadySelector, chromedp.ByQuery),
		// Let web fonts and the embed thumbnail finish painting.
		chromedp.Sleep(500 * time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	}
	if err := chromedp.Run(ctx, tasks); err != nil {
		return nil, fmt.Errorf("capture: chromedp run failed: %w", err)
	}
	if opts.Tricolor {
		return Tricolor(png)
	}
	return png, nil
}

// ToFile captures opts.URL and writes the PNG to path, replacing it
// atomically so /preview.png never serves a partial file.
func ToFile(ctx context.Context, opts Options, path string) error {
	if path == "" {
		return errors.New("capture: output path is required")
	}
	png, err := PNG(ctx, opts)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("capture: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".preview-*.png")
	if err != nil {
		return fmt.Errorf("capture: create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(png); err != nil {
		tmp.Close()
		return fmt.Errorf("capture: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("capture: close: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("capture: chmod: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("capture: rename: %w", err)
	}

	appLog.Info("snapshot written", "url", opts.URL, "path", path, "bytes", len(png))
	return nil
}
