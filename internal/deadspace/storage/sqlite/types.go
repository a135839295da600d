package sqlite

import (
	"encoding/json"
	"fmt"
	"time"
)

// RunParamsVersion is bumped whenever the RunParams JSON shape changes.
const RunParamsVersion = 1

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// RunParams captures every tunable of a run for reproducibility.
type RunParams struct {
	Version          int                    `json:"version"`
	TrainFrames      int                    `json:"train_frames"`
	MinSegmentFrames int                    `json:"min_segment_frames"`
	MinContourArea   float64                `json:"min_contour_area"`
	OutputFPS        float64                `json:"output_fps"`
	MaxWorkers       int                    `json:"max_workers"`
	LearningMode     string                 `json:"learning_mode"`
	Backend          string                 `json:"backend,omitempty"`
	Background       BackgroundParamsExport `json:"background"`
	Perception       PerceptionParamsExport `json:"perception"`
}

// BackgroundParamsExport is the JSON-serializable background model params.
type BackgroundParamsExport struct {
	History         int     `json:"history"`
	VarThreshold    float64 `json:"var_threshold"`
	InitialVariance float64 `json:"initial_variance"`
	MinVariance     float64 `json:"min_variance"`
	MaxVariance     float64 `json:"max_variance"`
	LearningRate    float64 `json:"learning_rate"`
	DetectShadows   bool    `json:"detect_shadows"`
	ShadowRatio     float64 `json:"shadow_ratio"`
}

// PerceptionParamsExport is the JSON-serializable mask refinement params.
type PerceptionParamsExport struct {
	KernelSize       int     `json:"kernel_size"`
	DilateIterations int     `json:"dilate_iterations"`
	ThresholdCutoff  int     `json:"threshold_cutoff"`
	GaussianSize     int     `json:"gaussian_size"`
	GaussianSigma    float64 `json:"gaussian_sigma"`
	BoxSize          int     `json:"box_size"`
}

// ToJSON serializes RunParams.
func (p *RunParams) ToJSON() (json.RawMessage, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal run params: %w", err)
	}
	return b, nil
}

// ParseRunParams decodes a stored params_json value.
func ParseRunParams(data json.RawMessage) (*RunParams, error) {
	var p RunParams
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse run params: %w", err)
	}
	return &p, nil
}

// Run is one processing run.
type Run struct {
	RunID          string          `json:"run_id"`
	SourcePath     string          `json:"source_path"`
	OutputPath     string          `json:"output_path,omitempty"`
	Status         string          `json:"status"`
	ParamsJSON     json.RawMessage `json:"params"`
	ErrorMessage   string          `json:"error_message,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	TotalFrames    int             `json:"total_frames"`
	TrainedFrames  int             `json:"trained_frames"`
	SegmentCount   int             `json:"segment_count"`
	FramesRead     int             `json:"frames_read"`
	RetainedFrames int             `json:"retained_frames"`
	DurationMs     int64           `json:"duration_ms"`
}

// RunSegment is the outcome of one segment worker.
type RunSegment struct {
	RunID    string `json:"run_id"`
	Ordinal  int    `json:"ordinal"`
	Start    int    `json:"start_frame"`
	Count    int    `json:"frame_count"`
	Read     int    `json:"frames_read"`
	Retained int    `json:"retained_frames"`
	Short    bool   `json:"short_read"`
}

// RunStats are the totals written when a run completes.
type RunStats struct {
	OutputPath     string
	TotalFrames    int
	TrainedFrames  int
	SegmentCount   int
	FramesRead     int
	RetainedFrames int
	DurationMs     int64
}
