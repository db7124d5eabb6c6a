// Package chart renders small dependency-free SVG charts for the panel: vertical
// bars for money comparisons and horizontal heat bars for province maps.
package chart

// BarOpts customises the vertical bar renderer.
type BarOpts struct {
	Title       string
	Description string
	Color       string
	AxisColor   string
	GridColor   string
	Padding     float64
	TickCount   int
}

// HeatOpts customises the horizontal heat bar renderer.
type HeatOpts struct {
	Title       string
	Description string
	Color       string
	TextColor   string
	RowHeight   float64
	LabelWidth  float64
}

// HeatRow is one labelled row of a heat chart. Percent is 0..100.
type HeatRow struct {
	Label   string
	Value   int
	Percent float64
}

// Defaults for the panel charts.
const (
	DefaultWidth     = 720
	DefaultHeight    = 240
	DefaultPadding   = 32.0
	DefaultTicks     = 5
	DefaultRowHeight = 22.0
	DefaultLabelW    = 180.0
)
