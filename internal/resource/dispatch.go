package resource

// Workgroup sizes of the dispatch shapes.
const (
	LinearWorkgroup = 256
	GridWorkgroup   = 8
)

// Dispatch is the workgroup count of a compute pass.
type Dispatch struct {
	X, Y, Z uint32
}

// Workgroups returns the total number of workgroups.
func (d Dispatch) Workgroups() uint64 {
	return uint64(d.X) * uint64(d.Y) * uint64(d.Z)
}

func ceilDiv(n, d int) uint32 {
	if n <= 0 {
		return 0
	}
	return uint32((n + d - 1) / d)
}

// Linear covers n elements with 1-D workgroups of LinearWorkgroup.
func Linear(n int) Dispatch {
	return Dispatch{X: ceilDiv(n, LinearWorkgroup), Y: 1, Z: 1}
}

// Grid covers a resolution×resolution walker grid with 8×8 workgroups.
// The walker grid is independent of the image size.
func Grid(resolution int) Dispatch {
	n := ceilDiv(resolution, GridWorkgroup)
	return Dispatch{X: n, Y: n, Z: 1}
}

// Grid2D covers a width×height image with 8×8 workgroups.
func Grid2D(width, height int) Dispatch {
	return Dispatch{X: ceilDiv(width, GridWorkgroup), Y: ceilDiv(height, GridWorkgroup), Z: 1}
}
