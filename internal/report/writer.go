package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path"

	"framescope/internal/model"
)

const (
	JSONFile = "report.json"
	HTMLFile = "report.html"
)

// Write stores the report under dir and returns the written file paths.
func Write(r *model.Report, dir string, withHTML bool) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report error: %w", err)
	}
	jsonPath := path.Join(dir, JSONFile)
	if err := writeAtomic(jsonPath, data); err != nil {
		return nil, err
	}
	files := []string{jsonPath}

	if withHTML {
		page, err := RenderHTML(r)
		if err != nil {
			return nil, err
		}
		htmlPath := path.Join(dir, HTMLFile)
		if err := writeAtomic(htmlPath, page); err != nil {
			return nil, err
		}
		files = append(files, htmlPath)
	}
	return files, nil
}

func writeAtomic(p string, data []byte) error {
	tmpPath := p + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write %s error: %w", p, err)
	}
	if err := os.Rename(tmpPath, p); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename %s error: %w", p, err)
	}
	return nil
}

func Read(p string) (*model.Report, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var r model.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &r, nil
}
