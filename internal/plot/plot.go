// Package plot renders attribution series as stacked area charts. The top
// contributors of the newest commit get their own band; everyone else is
// summed into "Other".
package plot

import (
	"bytes"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/panbanda/contrib/internal/engine"
	"github.com/panbanda/contrib/internal/output"
	"github.com/panbanda/contrib/pkg/orgs"
)

// FormatHTML is the chart format; every other format writes the series data.
const FormatHTML = "html"

// Other labels the band of everyone outside the top N.
const Other = "Other"

// FileName returns the file a series is plotted to.
func FileName(part string, by engine.By, format string) string {
	return fmt.Sprintf("loc-in-%s-by-%s.%s", part, by, format)
}

// Title returns the chart title of a series.
func Title(part string, by engine.By) string {
	return fmt.Sprintf("Contributions (lines of code) over time in %s, by %s", part, by)
}

// Band is one stacked layer of a chart.
type Band struct {
	Label  string
	Values []int
}

// Stack splits s into an "Other" band followed by the top contributors of
// the newest commit, smallest first. Unknown never gets its own band.
func Stack(s *engine.Series, topN int) []Band {
	var top []string
	for _, e := range s.Last().Ranked() {
		if topN > 0 && len(top) == topN {
			break
		}
		if e.Name == orgs.Unknown {
			continue
		}
		top = append(top, e.Name)
	}
	slices.Reverse(top)

	bands := make([]Band, 0, len(top)+1)
	if len(s.Points) > 0 {
		other := Band{Label: Other, Values: make([]int, len(s.Points))}
		for i, p := range s.Points {
			other.Values[i] = p.Counts.Total()
			for _, name := range top {
				other.Values[i] -= p.Counts[name]
			}
		}
		bands = append(bands, other)
	}
	for _, name := range top {
		b := Band{Label: name, Values: make([]int, len(s.Points))}
		for i, p := range s.Points {
			b.Values[i] = p.Counts[name]
		}
		bands = append(bands, b)
	}
	return bands
}

// Chart builds the stacked area chart of s.
func Chart(s *engine.Series, topN int) *charts.Line {
	const opacity = 0.8

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: Title(s.Part, s.By), Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: Title(s.Part, s.By)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Type: "scroll", Orient: "vertical", Right: "0", Top: "40px"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Date"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Lines of code"}),
	)

	dates := make([]string, len(s.Points))
	for i, p := range s.Points {
		dates[i] = p.Commit.Date.Format(time.DateOnly)
	}
	line.SetXAxis(dates)

	for _, b := range Stack(s, topN) {
		data := make([]opts.LineData, len(b.Values))
		for i, v := range b.Values {
			data[i] = opts.LineData{Value: v}
		}
		line.AddSeries(b.Label, data,
			charts.WithLineChartOpts(opts.LineChart{Stack: "total", ShowSymbol: opts.Bool(false)}),
			charts.WithAreaStyleOpts(opts.AreaStyle{Opacity: opts.Float(opacity)}),
			charts.WithLineStyleOpts(opts.LineStyle{Width: 0}),
		)
	}
	return line
}

// Final renders every contributor of the newest commit of s with its line
// count as a JSON list of [name, count] pairs, largest first.
func Final(s *engine.Series) ([]byte, error) {
	var buf bytes.Buffer
	if err := output.NewWriterFormatter(output.FormatJSON, &buf, false).Output(finalPairs(s)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func finalPairs(s *engine.Series) [][2]any {
	ranked := s.Last().Ranked()
	pairs := make([][2]any, len(ranked))
	for i, e := range ranked {
		pairs[i] = [2]any{e.Name, e.Count}
	}
	return pairs
}

// Write plots s into dir and returns the path written. Alongside the plot,
// <plot>.json receives the final counts. Both files are replaced
// atomically.
func Write(dir string, s *engine.Series, format string, topN int) (string, error) {
	path := filepath.Join(dir, FileName(s.Part, s.By, format))

	final := output.NewFileFormatter(output.FormatJSON, path+".json")
	if err := final.Output(finalPairs(s)); err != nil {
		return "", err
	}
	if err := final.Close(); err != nil {
		return "", err
	}

	f := output.NewFileFormatter(output.ParseFormat(format), path)
	if format == FormatHTML {
		if err := Chart(s, topN).Render(f.Writer()); err != nil {
			return "", fmt.Errorf("render chart: %w", err)
		}
	} else if err := f.Output(output.Summary([]*engine.Series{s}, topN)); err != nil {
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}
