package flame

import (
	"bytes"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/flame/variation"
)

const testScene = `{
  "camera": {"log_scale": -0.5, "x_offset": 0.1, "y_offset": 0},
  "gamma": 1.8,
  "background": [16, 16, 32],
  "functions": [
    {"name": "f1", "params": [0.5, 0, 0.2, 0, 0.5, 0.1],
     "weight": 5, "variation": "horseshoe", "color": [0, 255, 255]},
    {"name": "f2", "params": [0.4, 0.1, -0.3, 0.1, 0.4, 0],
     "weight": 1, "variation": "handkerchief", "color": [255, 0, 255]}
  ]
}`

func TestLoadScene(t *testing.T) {
	s, err := LoadScene(strings.NewReader(testScene))
	if err != nil {
		t.Fatalf("LoadScene: %v", err)
	}
	if len(s.Functions) != 2 {
		t.Fatalf("got %d functions, want 2", len(s.Functions))
	}
	f := s.Functions[0]
	if f.Variation != variation.Horseshoe || f.Weight != 5 || f.Color != Cyan {
		t.Errorf("f1 = %+v", f)
	}
	if f.Params != [6]float64{0.5, 0, 0.2, 0, 0.5, 0.1} {
		t.Errorf("f1 params = %v", f.Params)
	}

	cfg := DefaultConfig()
	s.Apply(&cfg)
	if cfg.Camera != (Camera{LogScale: -0.5, XOffset: 0.1}) {
		t.Errorf("Camera = %+v", cfg.Camera)
	}
	if cfg.Gamma != 1.8 {
		t.Errorf("Gamma = %v", cfg.Gamma)
	}
	if cfg.Background.R != 16 || cfg.Background.B != 32 || cfg.Background.A != 0xff {
		t.Errorf("Background = %v", cfg.Background)
	}
	if cfg.Resolution != DefaultConfig().Resolution {
		t.Errorf("unset Resolution changed to %d", cfg.Resolution)
	}
}

func TestSceneApplyZeroFieldsKeepConfig(t *testing.T) {
	src := `{"gamma": 0, "resolution": 0, "iterations": 0, "warmup": 0,
  "functions": [{"name": "f1", "params": [0.5, 0, 0, 0, 0.5, 0],
    "weight": 1, "variation": "linear", "color": [255, 255, 255]}]}`
	s, err := LoadScene(strings.NewReader(src))
	if err != nil {
		t.Fatalf("LoadScene: %v", err)
	}

	cfg := DefaultConfig()
	cfg.Warmup = 7
	s.Apply(&cfg)

	want := DefaultConfig()
	want.Warmup = 7
	if cfg.Gamma != want.Gamma || cfg.Resolution != want.Resolution ||
		cfg.Iterations != want.Iterations || cfg.Warmup != want.Warmup {
		t.Errorf("Apply with zero fields changed config: %+v", cfg)
	}
}

func TestLoadSceneErrors(t *testing.T) {
	tests := []struct {
		name   string
		json   string
		config bool
	}{
		{"syntax", `{"functions": [`, false},
		{"unknown field", `{"functions": [], "zoom": 2}`, false},
		{"unknown variation", `{"functions": [{"name": "a", "weight": 1, "variation": "julia", "color": [0,0,0]}]}`, false},
		{"bad color", `{"functions": [{"name": "a", "weight": 1, "variation": "linear", "color": [0,0,300]}]}`, false},
		{"empty", `{"functions": []}`, true},
		{"duplicate names", `{"functions": [
			{"name": "a", "weight": 1, "variation": "linear", "color": [0,0,0]},
			{"name": "a", "weight": 1, "variation": "linear", "color": [0,0,0]}]}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScene(strings.NewReader(tt.json))
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, ErrConfiguration); got != tt.config {
				t.Errorf("errors.Is(err, ErrConfiguration) = %v, want %v (err: %v)", got, tt.config, err)
			}
		})
	}
}

func TestSceneWriteLoad(t *testing.T) {
	fns := DefaultFunctions(rand.New(rand.NewPCG(3, 4)))
	cfg := DefaultConfig()
	cfg.Camera = Camera{LogScale: 0.25}

	var buf bytes.Buffer
	if err := NewScene(cfg, fns).Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}

	path := filepath.Join(t.TempDir(), "scene.json")
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := LoadSceneFile(path)
	if err != nil {
		t.Fatalf("LoadSceneFile: %v", err)
	}
	for i := range fns {
		if s.Functions[i] != fns[i] {
			t.Errorf("function %d = %+v, want %+v", i, s.Functions[i], fns[i])
		}
	}
	if s.Camera == nil || *s.Camera != cfg.Camera {
		t.Errorf("Camera = %v, want %+v", s.Camera, cfg.Camera)
	}
}

func TestLoadSceneFileMissing(t *testing.T) {
	if _, err := LoadSceneFile(filepath.Join(t.TempDir(), "nope.json")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want os.ErrNotExist", err)
	}
}

func TestRandomFunctions(t *testing.T) {
	fns := RandomFunctions(rand.New(rand.NewPCG(5, 6)), 7)
	if len(fns) != 7 {
		t.Fatalf("got %d functions", len(fns))
	}
	r, err := NewRenderer(testConfig(), fns, WithBackend(BackendCPU))
	if err != nil {
		t.Fatalf("random functions rejected: %v", err)
	}
	_ = r.Close()
}
