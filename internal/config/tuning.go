package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/deadspace/internal/deadspace/pipeline"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig is the JSON schema for run tunables. Every field is optional;
// the Get* methods supply defaults for fields the file omits.
type TuningConfig struct {
	// Run params
	TrainFrames      *int     `json:"train_frames,omitempty"`
	MinSegmentFrames *int     `json:"min_segment_frames,omitempty"`
	MinContourArea   *float64 `json:"min_contour_area,omitempty"`
	OutputFPS        *float64 `json:"output_fps,omitempty"` // 0 keeps the source rate
	MaxWorkers       *int     `json:"max_workers,omitempty"` // 0 runs every segment at once
	LearningMode     *string  `json:"learning_mode,omitempty"`
	VideoCodec       *string  `json:"video_codec,omitempty"`

	// Background model params
	History         *int     `json:"history,omitempty"`
	VarThreshold    *float64 `json:"var_threshold,omitempty"`
	InitialVariance *float64 `json:"initial_variance,omitempty"`
	MinVariance     *float64 `json:"min_variance,omitempty"`
	MaxVariance     *float64 `json:"max_variance,omitempty"`
	LearningRate    *float64 `json:"learning_rate,omitempty"` // < 0 selects the auto rate
	DetectShadows   *bool    `json:"detect_shadows,omitempty"`
	ShadowRatio     *float64 `json:"shadow_ratio,omitempty"`

	// Mask refinement params
	KernelSize       *int     `json:"kernel_size,omitempty"`
	DilateIterations *int     `json:"dilate_iterations,omitempty"`
	ThresholdCutoff  *int     `json:"threshold_cutoff,omitempty"`
	GaussianSize     *int     `json:"gaussian_size,omitempty"`
	GaussianSigma    *float64 `json:"gaussian_sigma,omitempty"`
	BoxSize          *int     `json:"box_size,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/deadspace/pipeline/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks the values that are set. Cross-field rules that depend on
// defaults are enforced by ToParams.
func (c *TuningConfig) Validate() error {
	if c.TrainFrames != nil && *c.TrainFrames < 1 {
		return fmt.Errorf("train_frames must be >= 1, got %d", *c.TrainFrames)
	}
	if c.MinSegmentFrames != nil && *c.MinSegmentFrames < 1 {
		return fmt.Errorf("min_segment_frames must be >= 1, got %d", *c.MinSegmentFrames)
	}
	if c.MinContourArea != nil && *c.MinContourArea < 0 {
		return fmt.Errorf("min_contour_area must be non-negative, got %f", *c.MinContourArea)
	}
	if c.OutputFPS != nil && *c.OutputFPS < 0 {
		return fmt.Errorf("output_fps must be non-negative, got %f", *c.OutputFPS)
	}
	if c.MaxWorkers != nil && *c.MaxWorkers < 0 {
		return fmt.Errorf("max_workers must be non-negative, got %d", *c.MaxWorkers)
	}
	if c.LearningMode != nil {
		switch pipeline.LearningMode(*c.LearningMode) {
		case pipeline.LearningFrozen, pipeline.LearningShared:
		default:
			return fmt.Errorf("learning_mode must be %q or %q, got %q", pipeline.LearningFrozen, pipeline.LearningShared, *c.LearningMode)
		}
	}
	if c.VideoCodec != nil && *c.VideoCodec == "" {
		return fmt.Errorf("video_codec must not be empty")
	}
	if c.ShadowRatio != nil && (*c.ShadowRatio < 0 || *c.ShadowRatio > 1) {
		return fmt.Errorf("shadow_ratio must be between 0 and 1, got %f", *c.ShadowRatio)
	}
	if c.LearningRate != nil && *c.LearningRate > 1 {
		return fmt.Errorf("learning_rate must be <= 1, got %f", *c.LearningRate)
	}
	if c.ThresholdCutoff != nil && (*c.ThresholdCutoff < 0 || *c.ThresholdCutoff > 255) {
		return fmt.Errorf("threshold_cutoff must be between 0 and 255, got %d", *c.ThresholdCutoff)
	}
	return nil
}

// ToParams resolves the file into a pipeline configuration, filling omitted
// fields from pipeline.DefaultConfig, and validates the result.
func (c *TuningConfig) ToParams() (pipeline.Config, error) {
	cfg := pipeline.DefaultConfig()
	cfg.TrainFrames = c.GetTrainFrames()
	cfg.MinSegmentFrames = c.GetMinSegmentFrames()
	cfg.MinContourArea = c.GetMinContourArea()
	cfg.OutputFPS = c.GetOutputFPS()
	cfg.MaxWorkers = c.GetMaxWorkers()
	cfg.LearningMode = pipeline.LearningMode(c.GetLearningMode())

	cfg.Background.History = c.GetHistory()
	cfg.Background.VarThreshold = c.GetVarThreshold()
	cfg.Background.InitialVariance = c.GetInitialVariance()
	cfg.Background.MinVariance = c.GetMinVariance()
	cfg.Background.MaxVariance = c.GetMaxVariance()
	cfg.Background.LearningRate = c.GetLearningRate()
	cfg.Background.DetectShadows = c.GetDetectShadows()
	cfg.Background.ShadowRatio = c.GetShadowRatio()

	cfg.Perception.KernelSize = c.GetKernelSize()
	cfg.Perception.DilateIterations = c.GetDilateIterations()
	cfg.Perception.ThresholdCutoff = uint8(c.GetThresholdCutoff())
	cfg.Perception.GaussianSize = c.GetGaussianSize()
	cfg.Perception.GaussianSigma = float32(c.GetGaussianSigma())
	cfg.Perception.BoxSize = c.GetBoxSize()

	if err := cfg.Validate(); err != nil {
		return pipeline.Config{}, err
	}
	return cfg, nil
}

// GetTrainFrames returns the train_frames value or the default.
func (c *TuningConfig) GetTrainFrames() int {
	if c.TrainFrames == nil {
		return 500
	}
	return *c.TrainFrames
}

// GetMinSegmentFrames returns the min_segment_frames value or the default.
func (c *TuningConfig) GetMinSegmentFrames() int {
	if c.MinSegmentFrames == nil {
		return 250
	}
	return *c.MinSegmentFrames
}

// GetMinContourArea returns the min_contour_area value or the default.
func (c *TuningConfig) GetMinContourArea() float64 {
	if c.MinContourArea == nil {
		return 10000
	}
	return *c.MinContourArea
}

// GetOutputFPS returns the output_fps value or the default.
func (c *TuningConfig) GetOutputFPS() float64 {
	if c.OutputFPS == nil {
		return 60
	}
	return *c.OutputFPS
}

// GetMaxWorkers returns the max_workers value or the default (unbounded).
func (c *TuningConfig) GetMaxWorkers() int {
	if c.MaxWorkers == nil {
		return 0
	}
	return *c.MaxWorkers
}

// GetLearningMode returns the learning_mode value or the default.
func (c *TuningConfig) GetLearningMode() string {
	if c.LearningMode == nil {
		return string(pipeline.LearningFrozen)
	}
	return *c.LearningMode
}

// GetVideoCodec returns the video_codec value or the default.
func (c *TuningConfig) GetVideoCodec() string {
	if c.VideoCodec == nil {
		return "libx264"
	}
	return *c.VideoCodec
}

// GetHistory returns the history value or the default.
func (c *TuningConfig) GetHistory() int {
	if c.History == nil {
		return 500
	}
	return *c.History
}

// GetVarThreshold returns the var_threshold value or the default.
func (c *TuningConfig) GetVarThreshold() float64 {
	if c.VarThreshold == nil {
		return 16
	}
	return *c.VarThreshold
}

// GetInitialVariance returns the initial_variance value or the default.
func (c *TuningConfig) GetInitialVariance() float64 {
	if c.InitialVariance == nil {
		return 15
	}
	return *c.InitialVariance
}

// GetMinVariance returns the min_variance value or the default.
func (c *TuningConfig) GetMinVariance() float64 {
	if c.MinVariance == nil {
		return 4
	}
	return *c.MinVariance
}

// GetMaxVariance returns the max_variance value or the default.
func (c *TuningConfig) GetMaxVariance() float64 {
	if c.MaxVariance == nil {
		return 75
	}
	return *c.MaxVariance
}

// GetLearningRate returns the learning_rate value or the default (auto).
func (c *TuningConfig) GetLearningRate() float64 {
	if c.LearningRate == nil {
		return -1
	}
	return *c.LearningRate
}

// GetDetectShadows returns the detect_shadows value or the default.
func (c *TuningConfig) GetDetectShadows() bool {
	if c.DetectShadows == nil {
		return true
	}
	return *c.DetectShadows
}

// GetShadowRatio returns the shadow_ratio value or the default.
func (c *TuningConfig) GetShadowRatio() float64 {
	if c.ShadowRatio == nil {
		return 0.5
	}
	return *c.ShadowRatio
}

// GetKernelSize returns the kernel_size value or the default.
func (c *TuningConfig) GetKernelSize() int {
	if c.KernelSize == nil {
		return 3
	}
	return *c.KernelSize
}

// GetDilateIterations returns the dilate_iterations value or the default.
func (c *TuningConfig) GetDilateIterations() int {
	if c.DilateIterations == nil {
		return 5
	}
	return *c.DilateIterations
}

// GetThresholdCutoff returns the threshold_cutoff value or the default.
func (c *TuningConfig) GetThresholdCutoff() int {
	if c.ThresholdCutoff == nil {
		return 175
	}
	return *c.ThresholdCutoff
}

// GetGaussianSize returns the gaussian_size value or the default.
func (c *TuningConfig) GetGaussianSize() int {
	if c.GaussianSize == nil {
		return 5
	}
	return *c.GaussianSize
}

// GetGaussianSigma returns the gaussian_sigma value or the default.
func (c *TuningConfig) GetGaussianSigma() float64 {
	if c.GaussianSigma == nil {
		return 1.1
	}
	return *c.GaussianSigma
}

// GetBoxSize returns the box_size value or the default.
func (c *TuningConfig) GetBoxSize() int {
	if c.BoxSize == nil {
		return 5
	}
	return *c.BoxSize
}
