package report

import (
	"bytes"
	"fmt"
	"html/template"

	"framescope/internal/model"
)

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>framescope report {{.Report.Id}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; margin-bottom: 2em; }
th, td { border: 1px solid #ccc; padding: 4px 8px; text-align: right; }
th { background: #eee; }
td.kind { text-align: left; }
</style>
</head>
<body>
<h1>{{.Report.Metadata.Path}}</h1>
<table id="metadata">
<tr><th>Resolution</th><td>{{.Report.Metadata.Width}}x{{.Report.Metadata.Height}}</td></tr>
<tr><th>Frame rate</th><td>{{printf "%.2f" .Report.Metadata.FrameRate}}</td></tr>
<tr><th>Duration</th><td>{{printf "%.2f" .Report.Metadata.Duration}}s</td></tr>
<tr><th>Frames read</th><td>{{.Report.FramesRead}}</td></tr>
<tr><th>Skipped pairs</th><td>{{.Report.SkippedPairs}}</td></tr>
<tr><th>Analyzed</th><td>{{.Report.AnalysisDate}}</td></tr>
</table>
{{range .Sections}}
<h2>{{.Family}} ({{len .Events}} events, {{.Raw}} detections)</h2>
<table class="events" data-family="{{.Family}}">
<tr><th>Kind</th><th>Start</th><th>End</th><th>Duration</th><th>Peak</th><th>Count</th><th>Where</th></tr>
{{range .Events}}<tr class="event"><td class="kind">{{.Kind}}</td><td>{{seconds .StartTime}}</td><td>{{seconds .EndTime}}</td><td>{{seconds .Duration}}</td><td>{{printf "%.2f" .PeakMagnitude}}</td><td>{{.InstanceCount}}</td><td>{{where .}}</td></tr>
{{end}}</table>
{{end}}
<h2>Themes</h2>
<table id="themes">
<tr><th>Time</th><th>Theme</th><th>Hue</th><th>Saturation</th><th>Brightness</th></tr>
{{range .Report.Themes}}<tr class="theme"><td>{{seconds .Timestamp}}</td><td class="kind">{{.Theme}}</td><td>{{.DominantHue}}</td><td>{{printf "%.1f" .AvgSaturation}}</td><td>{{printf "%.1f" .AvgBrightness}}</td></tr>
{{end}}</table>
</body>
</html>
`

type section struct {
	Family model.Family
	Events []model.Event
	Raw    int
}

var page = template.Must(template.New("report").Funcs(template.FuncMap{
	"seconds": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"where":   where,
}).Parse(pageTemplate))

// where describes the location of an event: board square, marker position
// or pan axis.
func where(e model.Event) string {
	switch {
	case e.Label != "" && e.Position != nil:
		return fmt.Sprintf("%s %s", e.Label, e.Position)
	case e.Position != nil:
		return e.Position.String()
	case e.ZoomFactor != 0:
		return fmt.Sprintf("x%.2f", e.ZoomFactor)
	default:
		return e.Label
	}
}

func RenderHTML(r *model.Report) ([]byte, error) {
	data := struct {
		Report   *model.Report
		Sections []section
	}{Report: r}
	for _, family := range model.Families {
		data.Sections = append(data.Sections, section{
			Family: family,
			Events: r.Families[family],
			Raw:    r.RawCounts[family],
		})
	}

	buf := &bytes.Buffer{}
	if err := page.Execute(buf, data); err != nil {
		return nil, fmt.Errorf("failed to execute report template: %w", err)
	}
	return buf.Bytes(), nil
}
