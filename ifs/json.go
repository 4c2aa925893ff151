package ifs

import (
	"encoding/json"
	"fmt"
)

// MarshalJSON encodes the colour as [r, g, b].
func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]uint8{c.R, c.G, c.B})
}

// UnmarshalJSON accepts [r, g, b] with components in 0..255.
func (c *Color) UnmarshalJSON(data []byte) error {
	var v []int
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("ifs: color: %w", err)
	}
	if len(v) != 3 {
		return fmt.Errorf("ifs: color: want 3 components, got %d", len(v))
	}
	for _, x := range v {
		if x < 0 || x > 255 {
			return fmt.Errorf("ifs: color: component %d out of range 0..255", x)
		}
	}
	*c = Color{R: uint8(v[0]), G: uint8(v[1]), B: uint8(v[2])} //nolint:gosec // range checked above
	return nil
}
