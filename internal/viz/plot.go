package viz

import (
	"github.com/guptarohit/asciigraph"
)

const (
	plotHeight = 10
	plotWidth  = 80
)

// Plot draws data as a line chart with a caption.
func Plot(data []float64, caption string) string {
	return PlotSized(data, caption, plotHeight, plotWidth)
}

func PlotSized(data []float64, caption string, height, width int) string {
	if len(data) == 0 {
		return ""
	}
	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}
