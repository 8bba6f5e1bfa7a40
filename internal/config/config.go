package config

import (
	"fmt"
	"image"
	"os"
	"path"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

type Rect struct {
	X      int `yaml:"x" validate:"min=0"`
	Y      int `yaml:"y" validate:"min=0"`
	Width  int `yaml:"width" validate:"min=0"`
	Height int `yaml:"height" validate:"min=0"`
}

func (r Rect) Rectangle() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// MergeConfig controls how one detection family is folded into events.
type MergeConfig struct {
	Gap float64 `yaml:"gap" validate:"gt=0"`
	// PositionTolerance is the per-axis pixel distance under which two
	// positioned detections count as the same marker. Zero means exact.
	PositionTolerance int `yaml:"positionTolerance" validate:"min=0"`
}

type FarnebackConfig struct {
	PyrScale   float64 `yaml:"pyrScale" validate:"gt=0,lt=1"`
	Levels     int     `yaml:"levels" validate:"min=1"`
	WinSize    int     `yaml:"winSize" validate:"min=3"`
	Iterations int     `yaml:"iterations" validate:"min=1"`
	PolyN      int     `yaml:"polyN" validate:"oneof=5 7"`
	PolySigma  float64 `yaml:"polySigma" validate:"gt=0"`
}

type MatcherConfig struct {
	Enabled     bool `yaml:"enabled"`
	MaxFeatures int  `yaml:"maxFeatures" validate:"min=1"`
	MinMatches  int  `yaml:"minMatches" validate:"min=1"`
}

type MotionConfig struct {
	StaticMaxMagnitude  float64         `yaml:"staticMaxMagnitude" validate:"min=0"`
	ZoomRadialFlow      float64         `yaml:"zoomRadialFlow" validate:"gt=0"`
	ZoomFactorDivisor   float64         `yaml:"zoomFactorDivisor" validate:"gt=0"`
	PanAxisRatio        float64         `yaml:"panAxisRatio" validate:"gt=0"`
	PanMaxVariance      float64         `yaml:"panMaxVariance" validate:"min=0,max=1"`
	RotationMinVariance float64         `yaml:"rotationMinVariance" validate:"min=0,max=1"`
	EmitStatic          bool            `yaml:"emitStatic"`
	Region              Rect            `yaml:"region"`
	Farneback           FarnebackConfig `yaml:"farneback"`
	Matcher             MatcherConfig   `yaml:"matcher"`
	Merge               MergeConfig     `yaml:"merge"`
}

type BoardShakeConfig struct {
	Enabled      bool    `yaml:"enabled"`
	MinMagnitude float64 `yaml:"minMagnitude" validate:"min=0"`
	MinVariance  float64 `yaml:"minVariance" validate:"min=0,max=1"`
	Moderate     float64 `yaml:"moderate" validate:"gtefield=MinMagnitude"`
	Strong       float64 `yaml:"strong" validate:"gtefield=Moderate"`
}

type PerturbationConfig struct {
	GridSize        int              `yaml:"gridSize" validate:"min=1"`
	StrongMax       float64          `yaml:"strongMax" validate:"gt=0"`
	LightAvg        float64          `yaml:"lightAvg" validate:"gt=0"`
	WaveThreshold   float64          `yaml:"waveThreshold" validate:"gt=0"`
	WaveMinVariance float64          `yaml:"waveMinVariance" validate:"min=0"`
	BoardShake      BoardShakeConfig `yaml:"boardShake"`
	Merge           MergeConfig      `yaml:"merge"`
	WaveMerge       MergeConfig      `yaml:"waveMerge"`
}

// HSVRange bounds use the 8-bit OpenCV convention: hue 0-180, saturation
// and value 0-255. A range whose HueMin is greater than HueMax wraps
// through 0.
type HSVRange struct {
	Name   string  `yaml:"name" validate:"required"`
	HueMin float64 `yaml:"hueMin" validate:"min=0,max=180"`
	HueMax float64 `yaml:"hueMax" validate:"min=0,max=180"`
	SatMin float64 `yaml:"satMin" validate:"min=0,max=255"`
	SatMax float64 `yaml:"satMax" validate:"min=0,max=255"`
	ValMin float64 `yaml:"valMin" validate:"min=0,max=255"`
	ValMax float64 `yaml:"valMax" validate:"min=0,max=255"`
	// MinFraction overrides IndicatorConfig.MinFraction when set.
	MinFraction float64 `yaml:"minFraction" validate:"min=0,max=1"`
}

type IndicatorConfig struct {
	Enabled bool `yaml:"enabled"`
	Board   Rect `yaml:"board"`
	Cells   int  `yaml:"cells" validate:"min=1"`
	// Probe offsets are relative to the top-right corner of each cell.
	ProbeOffsetX int         `yaml:"probeOffsetX"`
	ProbeOffsetY int         `yaml:"probeOffsetY"`
	ProbeWidth   int         `yaml:"probeWidth" validate:"min=1"`
	ProbeHeight  int         `yaml:"probeHeight" validate:"min=1"`
	MinFraction  float64     `yaml:"minFraction" validate:"gt=0,max=1"`
	Ranges       []HSVRange  `yaml:"ranges" validate:"min=1,dive"`
	Merge        MergeConfig `yaml:"merge"`
}

type BlobConfig struct {
	Enabled        bool        `yaml:"enabled"`
	SatMin         float64     `yaml:"satMin" validate:"min=0,max=255"`
	ValMin         float64     `yaml:"valMin" validate:"min=0,max=255"`
	MinArea        float64     `yaml:"minArea" validate:"min=0"`
	MaxArea        float64     `yaml:"maxArea" validate:"gtfield=MinArea"`
	MinCircularity float64     `yaml:"minCircularity" validate:"min=0,max=1"`
	Snapshots      bool        `yaml:"snapshots"`
	Merge          MergeConfig `yaml:"merge"`
}

type TransitionConfig struct {
	Enabled        bool        `yaml:"enabled"`
	CutThreshold   float64     `yaml:"cutThreshold" validate:"gt=0"`
	FadeBrightness float64     `yaml:"fadeBrightness" validate:"gt=0"`
	FlashThreshold float64     `yaml:"flashThreshold" validate:"gt=0"`
	Merge          MergeConfig `yaml:"merge"`
}

// ParticleWindow counts the contours of one mask whose area lies strictly
// between MinArea and MaxArea. More than MinCount of them flags the effect.
type ParticleWindow struct {
	MinArea  float64 `yaml:"minArea" validate:"min=0"`
	MaxArea  float64 `yaml:"maxArea" validate:"gtfield=MinArea"`
	MinCount int     `yaml:"minCount" validate:"min=0"`
}

// ParticleConfig covers bursts of small spots: bright unsaturated sparkles
// and saturated confetti in the current frame, and spots that appeared
// since the previous frame.
type ParticleConfig struct {
	Enabled       bool           `yaml:"enabled"`
	SparkleRange  HSVRange       `yaml:"sparkleRange"`
	Sparkles      ParticleWindow `yaml:"sparkles"`
	ConfettiRange HSVRange       `yaml:"confettiRange"`
	Confetti      ParticleWindow `yaml:"confetti"`
	DiffThreshold float64        `yaml:"diffThreshold" validate:"gt=0,max=255"`
	Spots         ParticleWindow `yaml:"spots"`
	Merge         MergeConfig    `yaml:"merge"`
}

// UIConfig drives edge-based detection of interface elements. Outlines
// enclosing more than MinArea are classified by aspect ratio; text bars
// also need more than TextBarMinArea.
type UIConfig struct {
	Enabled        bool        `yaml:"enabled"`
	CannyLow       float32     `yaml:"cannyLow" validate:"gt=0"`
	CannyHigh      float32     `yaml:"cannyHigh" validate:"gtfield=CannyLow"`
	MinArea        float64     `yaml:"minArea" validate:"min=0"`
	TextBarMinArea float64     `yaml:"textBarMinArea" validate:"gtefield=MinArea"`
	Merge          MergeConfig `yaml:"merge"`
}

type ThemeConfig struct {
	Enabled     bool `yaml:"enabled"`
	SampleEvery int  `yaml:"sampleEvery" validate:"min=1"`
}

type AnalysisConfig struct {
	FrameStride int `yaml:"frameStride" validate:"min=1"`
	// FrameRate overrides the container frame rate when positive.
	FrameRate float64 `yaml:"frameRate" validate:"min=0"`
	// ParallelFamilies runs the detector families of one frame pair
	// concurrently.
	ParallelFamilies bool `yaml:"parallelFamilies"`
	// StrictDimensions aborts the run on the first DimensionMismatch
	// instead of skipping the pair.
	StrictDimensions bool `yaml:"strictDimensions"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket" validate:"required_if=Enabled true"`
	Endpoint        string `yaml:"endpoint" validate:"required_if=Enabled true"`
	AccessKeyID     string `yaml:"accessKeyID"`
	SecretAccessKey string `yaml:"secretAccessKey"`
	UseSSL          bool   `yaml:"useSSL"`
	Region          string `yaml:"region"`
	Prefix          string `yaml:"prefix"`
}

func (s3 *S3Config) UrlPrefix() string {
	if s3.UseSSL {
		return fmt.Sprintf("https://%s/%s", s3.Endpoint, s3.Bucket)
	}
	return fmt.Sprintf("http://%s/%s", s3.Endpoint, s3.Bucket)
}

type NSQConfig struct {
	Enabled  bool   `yaml:"enabled"`
	NSQDAddr string `yaml:"nsqdAddr" validate:"required_if=Enabled true"`
	Topic    string `yaml:"topic" validate:"required_if=Enabled true"`
}

type ReportConfig struct {
	OutputDir string    `yaml:"outputDir" validate:"required"`
	HTML      bool      `yaml:"html"`
	S3        S3Config  `yaml:"s3"`
	NSQ       NSQConfig `yaml:"nsq"`
}

type Config struct {
	Analysis     AnalysisConfig     `yaml:"analysis"`
	Motion       MotionConfig       `yaml:"motion"`
	Perturbation PerturbationConfig `yaml:"perturbation"`
	Indicators   IndicatorConfig    `yaml:"indicators"`
	Blobs        BlobConfig         `yaml:"blobs"`
	Transitions  TransitionConfig   `yaml:"transitions"`
	Particles    ParticleConfig     `yaml:"particles"`
	UI           UIConfig           `yaml:"ui"`
	Themes       ThemeConfig        `yaml:"themes"`
	Report       ReportConfig       `yaml:"report"`
}

func (c Config) SnapshotDir() string {
	return path.Join(c.Report.OutputDir, "snapshots")
}

func DefaultIndicatorRanges() []HSVRange {
	return []HSVRange{
		{Name: "yellow", HueMin: 20, HueMax: 40, SatMin: 100, SatMax: 255, ValMin: 100, ValMax: 255},
		{Name: "green", HueMin: 40, HueMax: 80, SatMin: 100, SatMax: 255, ValMin: 100, ValMax: 255},
		{Name: "red", HueMin: 160, HueMax: 10, SatMin: 100, SatMax: 255, ValMin: 100, ValMax: 255},
		{Name: "blue", HueMin: 100, HueMax: 130, SatMin: 100, SatMax: 255, ValMin: 100, ValMax: 255},
		{Name: "bright", HueMin: 0, HueMax: 180, SatMin: 0, SatMax: 50, ValMin: 220, ValMax: 255, MinFraction: 0.15},
	}
}

func DefaultConfig() *Config {
	cfg := &Config{
		Analysis: AnalysisConfig{
			FrameStride:      1,
			ParallelFamilies: true,
		},
		Motion: MotionConfig{
			StaticMaxMagnitude:  1.5,
			ZoomRadialFlow:      0.5,
			ZoomFactorDivisor:   20,
			PanAxisRatio:        2,
			PanMaxVariance:      0.5,
			RotationMinVariance: 0.5,
			Farneback: FarnebackConfig{
				PyrScale:   0.5,
				Levels:     3,
				WinSize:    15,
				Iterations: 3,
				PolyN:      5,
				PolySigma:  1.2,
			},
			Matcher: MatcherConfig{
				Enabled:     true,
				MaxFeatures: 100,
				MinMatches:  10,
			},
			Merge: MergeConfig{Gap: 0.5},
		},
		Perturbation: PerturbationConfig{
			GridSize:        8,
			StrongMax:       30,
			LightAvg:        10,
			WaveThreshold:   20,
			WaveMinVariance: 100,
			BoardShake: BoardShakeConfig{
				Enabled:      true,
				MinMagnitude: 1.5,
				MinVariance:  0.5,
				Moderate:     3,
				Strong:       5,
			},
			Merge:     MergeConfig{Gap: 0.5},
			WaveMerge: MergeConfig{Gap: 0.5},
		},
		Indicators: IndicatorConfig{
			Enabled:      true,
			Board:        Rect{X: 0, Y: 100, Width: 576, Height: 576},
			Cells:        8,
			ProbeOffsetX: -45,
			ProbeOffsetY: 0,
			ProbeWidth:   50,
			ProbeHeight:  40,
			MinFraction:  0.1,
			Ranges:       DefaultIndicatorRanges(),
			Merge:        MergeConfig{Gap: 0.5},
		},
		Blobs: BlobConfig{
			Enabled:        true,
			SatMin:         100,
			ValMin:         100,
			MinArea:        500,
			MaxArea:        10000,
			MinCircularity: 0.6,
			Merge:          MergeConfig{Gap: 0.5},
		},
		Transitions: TransitionConfig{
			Enabled:        true,
			CutThreshold:   50,
			FadeBrightness: 30,
			FlashThreshold: 20,
			Merge:          MergeConfig{Gap: 0.5},
		},
		Particles: ParticleConfig{
			Enabled: true,
			SparkleRange: HSVRange{
				Name: "sparkles", HueMin: 0, HueMax: 180, SatMin: 0, SatMax: 50, ValMin: 200, ValMax: 255,
			},
			Sparkles: ParticleWindow{MinArea: 5, MaxArea: 100, MinCount: 10},
			ConfettiRange: HSVRange{
				Name: "confetti", HueMin: 0, HueMax: 180, SatMin: 150, SatMax: 255, ValMin: 150, ValMax: 255,
			},
			Confetti:      ParticleWindow{MinArea: 20, MaxArea: 500, MinCount: 5},
			DiffThreshold: 50,
			Spots:         ParticleWindow{MinArea: 10, MaxArea: 200, MinCount: 20},
			Merge:         MergeConfig{Gap: 0.5},
		},
		UI: UIConfig{
			Enabled:        true,
			CannyLow:       50,
			CannyHigh:      150,
			MinArea:        1000,
			TextBarMinArea: 2000,
			Merge:          MergeConfig{Gap: 0.5, PositionTolerance: 4},
		},
		Themes: ThemeConfig{
			Enabled:     true,
			SampleEvery: 30,
		},
		Report: ReportConfig{
			HTML: true,
			S3: S3Config{
				Bucket: "framescope",
				Region: "us-east-1",
			},
			NSQ: NSQConfig{
				NSQDAddr: "localhost:4150",
				Topic:    "framescope_events",
			},
		},
	}

	dataDir := os.Getenv("FRAMESCOPE_DATA")
	if dataDir != "" {
		cfg.Report.OutputDir = path.Join(dataDir, "reports")
	} else {
		cfg.Report.OutputDir = "./reports"
	}

	return cfg
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadConfig overlays the YAML file at configPath on the defaults. An empty
// path yields the defaults.
func LoadConfig(configPath string) (*Config, error) {
	conf := DefaultConfig()
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %v", err)
		}
		if err := yaml.Unmarshal(data, conf); err != nil {
			return nil, fmt.Errorf("unmarshal config file: %v", err)
		}
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
