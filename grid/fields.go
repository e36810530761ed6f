package grid

// Field is a cell-centered scalar field (density, pressure).
type Field struct {
	W, H int
	V    []float32
}

// NewField allocates a zeroed w×h field.
func NewField(w, h int) *Field {
	return &Field{W: w, H: h, V: make([]float32, w*h)}
}

// At returns the value at (x, y), zero outside the domain.
func (f *Field) At(x, y int) float32 {
	if x < 0 || x >= f.W || y < 0 || y >= f.H {
		return 0
	}
	return f.V[y*f.W+x]
}

// Set writes the value at (x, y). Out-of-domain writes are dropped.
func (f *Field) Set(x, y int, v float32) {
	if x < 0 || x >= f.W || y < 0 || y >= f.H {
		return
	}
	f.V[y*f.W+x] = v
}

// Clear zeroes the field.
func (f *Field) Clear() {
	for i := range f.V {
		f.V[i] = 0
	}
}

// Sample bilinearly interpolates the field at a grid-space position.
// Values live at cell centers (i+0.5, j+0.5).
func (f *Field) Sample(x, y float32) float32 {
	return bilinear(f.V, f.W, f.H, x-0.5, y-0.5)
}

// Mark classifies a cell for the pressure solve.
type Mark uint8

const (
	MarkAir Mark = iota
	MarkFluid
	MarkSolid
)

// Marker is the per-cell Air/Fluid/Solid classification field.
type Marker struct {
	W, H int
	M    []Mark
}

// NewMarker allocates an all-air marker field.
func NewMarker(w, h int) *Marker {
	return &Marker{W: w, H: h, M: make([]Mark, w*h)}
}

// At returns the mark at (x, y), MarkSolid outside the domain.
func (m *Marker) At(x, y int) Mark {
	if x < 0 || x >= m.W || y < 0 || y >= m.H {
		return MarkSolid
	}
	return m.M[y*m.W+x]
}

// Velocity is the staggered (face-centered) velocity field: U on
// vertical faces, (W+1)×H, V on horizontal faces, W×(H+1). Y grows
// downward, so positive V points down and gravity adds to V.
type Velocity struct {
	W, H int
	U    []float32
	V    []float32
}

// NewVelocity allocates a zeroed staggered field.
func NewVelocity(w, h int) *Velocity {
	return &Velocity{
		W: w, H: h,
		U: make([]float32, (w+1)*h),
		V: make([]float32, w*(h+1)),
	}
}

// UIdx converts U-face coordinates (i in 0..W, j in 0..H-1) to an index.
func (v *Velocity) UIdx(i, j int) int {
	return j*(v.W+1) + i
}

// VIdx converts V-face coordinates (i in 0..W-1, j in 0..H) to an index.
func (v *Velocity) VIdx(i, j int) int {
	return j*v.W + i
}

// UAt returns the horizontal component on face (i, j), zero out of range.
func (v *Velocity) UAt(i, j int) float32 {
	if i < 0 || i > v.W || j < 0 || j >= v.H {
		return 0
	}
	return v.U[j*(v.W+1)+i]
}

// VAt returns the vertical component on face (i, j), zero out of range.
func (v *Velocity) VAt(i, j int) float32 {
	if i < 0 || i >= v.W || j < 0 || j > v.H {
		return 0
	}
	return v.V[j*v.W+i]
}

// Clear zeroes both components.
func (v *Velocity) Clear() {
	for i := range v.U {
		v.U[i] = 0
	}
	for i := range v.V {
		v.V[i] = 0
	}
}

// CopyFrom copies another field of identical dimensions.
func (v *Velocity) CopyFrom(src *Velocity) {
	copy(v.U, src.U)
	copy(v.V, src.V)
}

// Scale multiplies both components by k (global damping).
func (v *Velocity) Scale(k float32) {
	for i := range v.U {
		v.U[i] *= k
	}
	for i := range v.V {
		v.V[i] *= k
	}
}

// SampleU interpolates the horizontal component at a grid-space point.
// U values live at (i, j+0.5).
func (v *Velocity) SampleU(x, y float32) float32 {
	return bilinear(v.U, v.W+1, v.H, x, y-0.5)
}

// SampleV interpolates the vertical component at a grid-space point.
// V values live at (i+0.5, j).
func (v *Velocity) SampleV(x, y float32) float32 {
	return bilinear(v.V, v.W, v.H+1, x-0.5, y)
}

// bilinear interpolates a flat nx×ny array at (gx, gy) in node space,
// clamping to the border.
func bilinear(data []float32, nx, ny int, gx, gy float32) float32 {
	if gx < 0 {
		gx = 0
	}
	if gy < 0 {
		gy = 0
	}
	maxX := float32(nx - 1)
	maxY := float32(ny - 1)
	if gx > maxX {
		gx = maxX
	}
	if gy > maxY {
		gy = maxY
	}

	i0 := int(gx)
	j0 := int(gy)
	if i0 > nx-2 {
		i0 = nx - 2
	}
	if j0 > ny-2 {
		j0 = ny - 2
	}
	if i0 < 0 {
		i0 = 0
	}
	if j0 < 0 {
		j0 = 0
	}
	tx := gx - float32(i0)
	ty := gy - float32(j0)

	a := data[j0*nx+i0]
	b := data[j0*nx+i0+1]
	c := data[(j0+1)*nx+i0]
	d := data[(j0+1)*nx+i0+1]

	return a*(1-tx)*(1-ty) + b*tx*(1-ty) + c*(1-tx)*ty + d*tx*ty
}
