package model

type VideoMetadata struct {
	Path        string  `json:"video_path"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	FrameRate   float64 `json:"fps"`
	TotalFrames int     `json:"total_frames"`
	Duration    float64 `json:"duration"`
}

type Report struct {
	Id           string             `json:"id"`
	AnalysisDate string             `json:"analysis_date"`
	Metadata     VideoMetadata      `json:"metadata"`
	Families     map[Family][]Event `json:"families"`
	RawCounts    map[Family]int     `json:"raw_counts"`
	Themes       []ThemeSample      `json:"themes"`
	Snapshots    []string           `json:"snapshots"`
	// FramesRead counts decoded frames; SkippedPairs counts frame pairs
	// dropped because of a detector failure.
	FramesRead   int `json:"frames_read"`
	SkippedPairs int `json:"skipped_pairs"`
}

// NewReport returns a report with an empty, non-nil event list for every
// family.
func NewReport(id string) *Report {
	r := &Report{
		Id:        id,
		Families:  make(map[Family][]Event, len(Families)),
		RawCounts: make(map[Family]int, len(Families)),
		Themes:    []ThemeSample{},
		Snapshots: []string{},
	}
	for _, f := range Families {
		r.Families[f] = []Event{}
		r.RawCounts[f] = 0
	}
	return r
}

func (r *Report) EventCount() int {
	n := 0
	for _, events := range r.Families {
		n += len(events)
	}
	return n
}
