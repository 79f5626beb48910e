package ui

import "math"

// viridisAnchors samples the viridis colormap at nine evenly spaced points.
var viridisAnchors = [...][3]float64{
	{68, 1, 84},
	{71, 44, 122},
	{59, 81, 139},
	{44, 113, 142},
	{33, 144, 141},
	{39, 173, 129},
	{92, 200, 99},
	{170, 220, 50},
	{253, 231, 37},
}

// viridis maps t in [0, 1] onto the colormap. Values outside are clamped.
func viridis(t float64) color {
	if math.IsNaN(t) || t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	pos := t * float64(len(viridisAnchors)-1)
	i := int(pos)
	if i >= len(viridisAnchors)-1 {
		a := viridisAnchors[len(viridisAnchors)-1]
		return rgb(uint8(a[0]), uint8(a[1]), uint8(a[2]))
	}
	f := pos - float64(i)
	a, b := viridisAnchors[i], viridisAnchors[i+1]
	mix := func(k int) uint8 { return uint8(math.Round(a[k] + (b[k]-a[k])*f)) }
	return rgb(mix(0), mix(1), mix(2))
}

// normalizeDB places db within [lo, hi] as a fraction.
func normalizeDB(db float32, lo, hi float64) float64 {
	return (float64(db) - lo) / (hi - lo)
}
