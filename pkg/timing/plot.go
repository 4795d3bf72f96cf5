package timing

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

var ErrNoEvents = errors.New("no events to plot")

// EventKind strips the numbers from an event text so that "worker 3" and
// "worker 7" share a row.
func EventKind(text string) string {
	return strings.Trim(text, " 0123456789")
}

// Plot writes a scatter of events over time, one row per event kind. The
// image format follows the file extension.
func Plot(events []Event, path string) error {
	if len(events) == 0 {
		return ErrNoEvents
	}

	var (
		kinds     = map[string]int{}
		pointsMap = map[string]plotter.XYs{}
		ticks     []plot.Tick
		startTime = events[0].Time
	)
	for _, event := range events {
		key := EventKind(event.Text)
		id, ok := kinds[key]
		if !ok {
			id = len(kinds) + 1
			kinds[key] = id
			ticks = append(ticks, plot.Tick{Value: float64(id), Label: key})
		}
		pointsMap[key] = append(pointsMap[key], plotter.XY{
			X: float64(event.Time.Sub(startTime).Microseconds()) / 1000,
			Y: float64(id),
		})
	}

	p := plot.New()
	p.Title.Text = "Events Over Time"
	p.X.Label.Text = "Milliseconds"
	p.Y.Label.Text = "Event Type"
	p.Y.Tick.Marker = plot.ConstantTicks(ticks)

	colors := plotutil.SoftColors
	for _, tick := range ticks {
		scatter, err := plotter.NewScatter(pointsMap[tick.Label])
		if err != nil {
			return fmt.Errorf("scatter '%s': %w", tick.Label, err)
		}
		scatter.GlyphStyle.Color = colors[(int(tick.Value)-1)%len(colors)]
		p.Add(scatter)
	}

	p.Y.Min = 0.5
	p.Y.Max = float64(len(kinds)) + 0.5

	if err := p.Save(16*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot '%s': %w", path, err)
	}
	return nil
}
