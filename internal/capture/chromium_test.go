package capture

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestOptionsNormalize(t *testing.T) {
	var empty Options
	if err := empty.normalize(); err == nil {
		t.Fatal("expected error for missing URL")
	}

	o := Options{URL: "http://127.0.0.1:8080/"}
	if err := o.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if o.Width != DefaultWidth || o.Height != DefaultHeight || o.Timeout != DefaultTimeout {
		t.Errorf("defaults not applied: %+v", o)
	}

	o = Options{URL: "x", Width: 800, Height: 480, Timeout: time.Second}
	_ = o.normalize()
	if o.Width != 800 || o.Height != 480 || o.Timeout != time.Second {
		t.Errorf("explicit values overwritten: %+v", o)
	}
}

func TestToFileRequiresPath(t *testing.T) {
	if err := ToFile(context.Background(), Options{URL: "x"}, ""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

// TestToFileChromium needs a local Chrome; it is skipped unless
// LIVEKEEPER_TEST_CHROME is set.
func TestToFileChromium(t *testing.T) {
	if os.Getenv("LIVEKEEPER_TEST_CHROME") == "" {
		t.Skip("LIVEKEEPER_TEST_CHROME not set")
	}
	page := `data:text/html,<main data-ready="true">hello</main>`
	out := filepath.Join(t.TempDir(), "preview.png")
	if err := ToFile(context.Background(), Options{URL: page, Width: 320, Height: 200}, out); err != nil {
		t.Fatalf("ToFile: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) < 8 || string(data[1:4]) != "PNG" {
		t.Errorf("output is not a PNG")
	}
}
