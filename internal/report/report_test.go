package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/net/html"

	"framescope/internal/model"
)

func sampleReport() *model.Report {
	r := model.NewReport("b1946ac9-2b1c-4d0c-9a4e-4c7f6e0f1a11")
	r.Metadata = model.VideoMetadata{Path: "match.mp4", Width: 1280, Height: 720, FrameRate: 30, TotalFrames: 90, Duration: 3}
	r.FramesRead = 90
	r.Families[model.FamilyMotion] = []model.Event{
		{Kind: model.KindZoomIn, StartTime: 0, EndTime: 0.9, Duration: 0.9, PeakMagnitude: 3, InstanceCount: 3, ZoomFactor: 1.15},
		{Kind: model.KindPan, StartTime: 2, EndTime: 2, PeakMagnitude: 1, InstanceCount: 1, Label: "horizontal"},
	}
	r.Families[model.FamilyIndicator] = []model.Event{
		{Kind: model.BlobKind("yellow"), StartTime: 1, EndTime: 1.5, Duration: 0.5, PeakMagnitude: 0.8, InstanceCount: 16,
			Position: &model.Point{X: 340, Y: 408}, Label: "e4"},
	}
	r.RawCounts[model.FamilyMotion] = 4
	r.RawCounts[model.FamilyIndicator] = 16
	r.Themes = append(r.Themes, model.ThemeSample{FrameIndex: 0, Theme: "cool", DominantHue: 100})
	return r
}

func TestWriteAndRead(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	files, err := Write(sampleReport(), dir, true)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("files = %v, want json and html", files)
	}

	got, err := Read(filepath.Join(dir, JSONFile))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.EventCount() != 3 || got.Metadata.Path != "match.mp4" {
		t.Fatalf("round trip lost data: %+v", got)
	}
	if events := got.Families[model.FamilyBlob]; events == nil || len(events) != 0 {
		t.Fatalf("empty family = %v, want []", events)
	}
	if _, err := os.Stat(filepath.Join(dir, JSONFile+".tmp")); !os.IsNotExist(err) {
		t.Fatalf("temporary file left behind")
	}
}

func TestWrite_EmptyFamiliesAreArrays(t *testing.T) {
	dir := t.TempDir()
	if _, err := Write(model.NewReport("empty"), dir, false); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, JSONFile))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var raw struct {
		Families map[string]json.RawMessage `json:"families"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, family := range model.Families {
		if string(raw.Families[string(family)]) != "[]" {
			t.Fatalf("family %s = %s, want []", family, raw.Families[string(family)])
		}
	}
	if _, err := os.Stat(filepath.Join(dir, HTMLFile)); !os.IsNotExist(err) {
		t.Fatalf("html written although disabled")
	}
}

func collect(n *html.Node, match func(*html.Node) bool, out *[]*html.Node) {
	if match(n) {
		*out = append(*out, n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collect(c, match, out)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(class string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && attr(n, "class") == class
	}
}

func text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}

func TestRenderHTML(t *testing.T) {
	page, err := RenderHTML(sampleReport())
	if err != nil {
		t.Fatalf("RenderHTML: %v", err)
	}
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	var tables []*html.Node
	collect(doc, hasClass("events"), &tables)
	if len(tables) != len(model.Families) {
		t.Fatalf("event tables = %d, want %d", len(tables), len(model.Families))
	}

	rowsByFamily := map[string]int{}
	for _, table := range tables {
		var rows []*html.Node
		collect(table, hasClass("event"), &rows)
		rowsByFamily[attr(table, "data-family")] = len(rows)
	}
	if rowsByFamily["motion"] != 2 || rowsByFamily["indicator"] != 1 || rowsByFamily["blob"] != 0 {
		t.Fatalf("rows per family = %v", rowsByFamily)
	}

	var kinds []*html.Node
	collect(doc, hasClass("kind"), &kinds)
	var names []string
	for _, k := range kinds {
		names = append(names, text(k))
	}
	joined := strings.Join(names, ",")
	if !strings.Contains(joined, "zoom_in") || !strings.Contains(joined, "blob:yellow") || !strings.Contains(joined, "cool") {
		t.Fatalf("kinds = %s", joined)
	}

	var themes []*html.Node
	collect(doc, hasClass("theme"), &themes)
	if len(themes) != 1 {
		t.Fatalf("theme rows = %d, want 1", len(themes))
	}
}

func TestRenderHTML_EscapesPath(t *testing.T) {
	r := model.NewReport("x")
	r.Metadata.Path = "<script>alert(1)</script>.mp4"
	page, err := RenderHTML(r)
	if err != nil {
		t.Fatalf("RenderHTML: %v", err)
	}
	if bytes.Contains(page, []byte("<script>")) {
		t.Fatalf("path not escaped")
	}
}

func TestWhere(t *testing.T) {
	tests := []struct {
		event model.Event
		want  string
	}{
		{event: model.Event{Label: "e4", Position: &model.Point{X: 1, Y: 2}}, want: "e4 (1,2)"},
		{event: model.Event{Position: &model.Point{X: 3, Y: 4}}, want: "(3,4)"},
		{event: model.Event{ZoomFactor: 1.25}, want: "x1.25"},
		{event: model.Event{Label: "vertical"}, want: "vertical"},
	}
	for _, tc := range tests {
		if got := where(tc.event); got != tc.want {
			t.Errorf("where(%+v) = %q, want %q", tc.event, got, tc.want)
		}
	}
}

func TestSchema(t *testing.T) {
	data, err := SchemaJSON()
	if err != nil {
		t.Fatalf("SchemaJSON: %v", err)
	}
	var schema map[string]any
	if err := json.Unmarshal(data, &schema); err != nil {
		t.Fatalf("unmarshal schema: %v", err)
	}
	props, ok := schema["properties"].(map[string]any)
	if !ok {
		t.Fatalf("schema has no properties: %s", data)
	}
	for _, key := range []string{"id", "metadata", "families", "raw_counts", "themes"} {
		if _, ok := props[key]; !ok {
			t.Errorf("schema misses %s", key)
		}
	}
	if !bytes.Contains(data, []byte("instance_count")) {
		t.Fatalf("event fields not inlined")
	}
}

func TestEventMessages(t *testing.T) {
	msgs := EventMessages(sampleReport())
	if len(msgs) != 3 {
		t.Fatalf("messages = %d, want 3", len(msgs))
	}
	if msgs[0].Family != model.FamilyMotion || msgs[2].Family != model.FamilyIndicator {
		t.Fatalf("messages out of family order: %+v", msgs)
	}
	if msgs[2].Color != "yellow" || msgs[0].Color != "" {
		t.Fatalf("colors = %q, %q", msgs[2].Color, msgs[0].Color)
	}
	if msgs[2].Event.Label != "e4" || msgs[0].Video != "match.mp4" {
		t.Fatalf("unexpected message: %+v", msgs[2])
	}
}

func TestObjectKey(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{prefix: "", want: "r1/report.json"},
		{prefix: "framescope", want: "framescope/r1/report.json"},
		{prefix: "/a/b/", want: "a/b/r1/report.json"},
	}
	for _, tc := range tests {
		if got := ObjectKey(tc.prefix, "r1", "/tmp/out/report.json"); got != tc.want {
			t.Errorf("ObjectKey(%q) = %q, want %q", tc.prefix, got, tc.want)
		}
	}
	if contentType("x/report.HTML") != "text/html" || contentType("a.bin") != "application/octet-stream" {
		t.Fatalf("content type mismatch")
	}
}
