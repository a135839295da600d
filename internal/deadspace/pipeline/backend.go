package pipeline

import (
	"context"
	"image"

	"github.com/banshee-data/deadspace/internal/deadspace/l1frames"
	"github.com/banshee-data/deadspace/internal/deadspace/l2background"
	"github.com/banshee-data/deadspace/internal/deadspace/l3perception"
)

// TrainableModel is a background model the runner trains on the opening
// frames before any worker classifies.
type TrainableModel interface {
	ForegroundModel
	Train(ctx context.Context, r l1frames.Reader, maxFrames int) (int, error)
	Trained() bool
}

// Snapshotter is implemented by models that can hand out a read-only copy
// for LearningFrozen.
type Snapshotter interface {
	Snapshot() (ForegroundModel, error)
}

// MaskClassifier refines a raw mask and decides whether it holds motion.
// Each worker owns one.
type MaskClassifier interface {
	RefineMask(mask *image.Gray) *image.Gray
	Classify(mask *image.Gray, minArea float64) l3perception.MotionResult
}

// Backend builds the background model and the per-worker classifiers.
type Backend interface {
	Name() string
	NewModel(p l2background.Params) TrainableModel
	NewClassifier(p l3perception.Params) (MaskClassifier, error)
}

// GoBackend is the pure Go implementation in l2background and l3perception.
type GoBackend struct{}

// Name implements Backend.
func (GoBackend) Name() string { return "go" }

// NewModel implements Backend.
func (GoBackend) NewModel(p l2background.Params) TrainableModel {
	return goModel{l2background.NewModel(p)}
}

// NewClassifier implements Backend.
func (GoBackend) NewClassifier(p l3perception.Params) (MaskClassifier, error) {
	return l3perception.NewClassifier(p)
}

type goModel struct {
	*l2background.Model
}

func (m goModel) Snapshot() (ForegroundModel, error) {
	snap, err := m.Model.Snapshot()
	if err != nil {
		return nil, err
	}
	return snap, nil
}
