package model

// Event is a consolidated interval of same-kind detections of one family.
type Event struct {
	Kind          Kind    `json:"kind" jsonschema:"description=Detection kind shared by every merged detection"`
	StartTime     float64 `json:"start_time" jsonschema:"description=Seconds from the start of the video,minimum=0"`
	EndTime       float64 `json:"end_time" jsonschema:"description=Seconds from the start of the video,minimum=0"`
	Duration      float64 `json:"duration" jsonschema:"description=end_time minus start_time in seconds,minimum=0"`
	PeakMagnitude float64 `json:"peak_magnitude" jsonschema:"description=Largest magnitude among merged detections"`
	InstanceCount int     `json:"instance_count" jsonschema:"description=Number of merged detections,minimum=1"`
	Position      *Point  `json:"position,omitempty" jsonschema:"description=Marker position for blob families"`
	Label         string  `json:"label,omitempty" jsonschema:"description=Board square or pan axis"`
	ZoomFactor    float64 `json:"zoom_factor,omitempty" jsonschema:"description=Zoom factor of the latest merged zoom detection"`
}
