// Package plotting draws survival curves with gonum/plot.
package plotting

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"cox-analyzer/internal/survival"
)

// Chart is a rendered-on-demand survival plot with its size in inches.
type Chart struct {
	Title  string
	plt    *plot.Plot
	width  vg.Length
	height vg.Length
}

// stepPoints turns a right-continuous survival curve into the corners of
// a step function starting at S(0) = 1.
func stepPoints(times, surv []float64) plotter.XYs {
	pts := make(plotter.XYs, 2*len(times)+1)

	j := 0
	pts[j].X = 0
	pts[j].Y = 1
	j++

	for i := range times {
		pts[j].X = times[i]
		pts[j].Y = pts[j-1].Y
		j++
		pts[j].X = times[i]
		pts[j].Y = surv[i]
		j++
	}
	return pts
}

// PartialEffects plots one step curve per covariate value plus the dashed
// baseline curve. width and height are in inches.
func PartialEffects(covariate string, curves []survival.Curve, width, height float64) (*Chart, error) {
	if len(curves) == 0 {
		return nil, errors.New("no curves to plot")
	}

	plt := plot.New()
	plt.Title.Text = fmt.Sprintf("Partial effects of %s on survival", covariate)
	plt.X.Label.Text = "Time"
	plt.Y.Label.Text = "Survival probability"
	plt.Y.Min = 0
	plt.Y.Max = 1
	plt.Add(plotter.NewGrid())

	plt.Legend.Top = true
	plt.Legend.Left = false

	for i, c := range curves {
		if len(c.Times) != len(c.Survival) {
			return nil, fmt.Errorf("curve %q has %d times and %d probabilities", c.Label, len(c.Times), len(c.Survival))
		}
		line, err := plotter.NewLine(stepPoints(c.Times, c.Survival))
		if err != nil {
			return nil, fmt.Errorf("curve %q: %w", c.Label, err)
		}
		line.Width = vg.Points(1.5)
		if c.Baseline {
			line.Color = plotutil.Color(0)
			line.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		} else {
			line.Color = plotutil.Color(i + 1)
		}
		plt.Add(line)
		plt.Legend.Add(c.Label, line)
	}

	return &Chart{
		Title:  plt.Title.Text,
		plt:    plt,
		width:  vg.Length(width) * vg.Inch,
		height: vg.Length(height) * vg.Inch,
	}, nil
}

func (c *Chart) canvas() *vgimg.Canvas {
	cv := vgimg.New(c.width, c.height)
	c.plt.Draw(draw.New(cv))
	return cv
}

// Image renders the chart at the default vgimg resolution.
func (c *Chart) Image() image.Image {
	return c.canvas().Image()
}

// WritePNG renders the chart as PNG to w.
func (c *Chart) WritePNG(w io.Writer) error {
	png := vgimg.PngCanvas{Canvas: c.canvas()}
	_, err := png.WriteTo(w)
	return err
}

// SavePNG writes the chart to a PNG file.
func (c *Chart) SavePNG(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return c.WritePNG(f)
}
