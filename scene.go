package flame

import (
	"encoding/json"
	"fmt"
	"image/color"
	"io"
	"os"

	"github.com/gogpu/flame/ifs"
)

// Scene is the JSON form of a function system and its view:
//
//	{
//	  "camera": {"log_scale": -0.5, "x_offset": 0, "y_offset": 0},
//	  "gamma": 2.2,
//	  "background": [0, 0, 0],
//	  "functions": [
//	    {"name": "f1", "params": [0.5, 0, 0.2, 0, 0.5, 0.1],
//	     "weight": 5, "variation": "horseshoe", "color": [0, 255, 255]}
//	  ]
//	}
//
// Omitted view fields keep the value of the Config the scene is applied to.
// A zero gamma, resolution, iteration count or warmup reads the same as an
// omitted one, so a scene cannot ask for a zero warmup; set Config.Warmup
// after Apply for that.
type Scene struct {
	Camera     *Camera    `json:"camera,omitempty"`
	Gamma      float32    `json:"gamma,omitempty"`
	Background *Color     `json:"background,omitempty"`
	Resolution int        `json:"resolution,omitempty"`
	Iterations int        `json:"iterations,omitempty"`
	Warmup     int        `json:"warmup,omitempty"`
	Functions  []Function `json:"functions"`
}

// LoadScene decodes a scene and validates its functions.
func LoadScene(r io.Reader) (*Scene, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var s Scene
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("flame: decode scene: %w", err)
	}
	if err := ifs.Validate(s.Functions); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadSceneFile reads a scene from path.
func LoadSceneFile(path string) (*Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("flame: open scene: %w", err)
	}
	defer f.Close()

	s, err := LoadScene(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// NewScene wraps fns and the view settings of cfg.
func NewScene(cfg Config, fns []Function) *Scene {
	cam := cfg.Camera
	bg := ifs.RGB(cfg.Background.R, cfg.Background.G, cfg.Background.B)
	return &Scene{
		Camera:     &cam,
		Gamma:      cfg.Gamma,
		Background: &bg,
		Resolution: cfg.Resolution,
		Iterations: cfg.Iterations,
		Warmup:     cfg.Warmup,
		Functions:  append([]Function(nil), fns...),
	}
}

// Apply overrides the fields of cfg the scene sets.
func (s *Scene) Apply(cfg *Config) {
	if s.Camera != nil {
		cfg.Camera = *s.Camera
	}
	if s.Gamma != 0 {
		cfg.Gamma = s.Gamma
	}
	if s.Background != nil {
		cfg.Background = color.RGBA{R: s.Background.R, G: s.Background.G, B: s.Background.B, A: 0xff}
	}
	if s.Resolution != 0 {
		cfg.Resolution = s.Resolution
	}
	if s.Iterations != 0 {
		cfg.Iterations = s.Iterations
	}
	if s.Warmup != 0 {
		cfg.Warmup = s.Warmup
	}
}

// Write encodes the scene as indented JSON.
func (s *Scene) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("flame: encode scene: %w", err)
	}
	return nil
}
