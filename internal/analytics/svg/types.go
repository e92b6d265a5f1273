package svg

// BarOpts customises the bucket bar chart renderer.
type BarOpts struct {
	Title          string
	Description    string
	Color          string
	HighlightColor string
	AxisColor      string
	GridColor      string
	Padding        float64
	TickCount      int
	// Highlight is the index of the bar drawn in HighlightColor; -1 disables it.
	Highlight int
}

// Defaults for the aging charts.
const (
	DefaultWidth   = 720
	DefaultHeight  = 240
	DefaultPadding = 28.0
	DefaultTicks   = 5
)
