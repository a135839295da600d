//go:build gocv

package cvbackend

import (
	"github.com/banshee-data/deadspace/internal/deadspace/l2background"
	"github.com/banshee-data/deadspace/internal/deadspace/l3perception"
	"github.com/banshee-data/deadspace/internal/deadspace/pipeline"
)

// Backend builds OpenCV models and classifiers for the pipeline.
type Backend struct{}

var _ pipeline.Backend = Backend{}

// Name implements pipeline.Backend.
func (Backend) Name() string { return "opencv" }

// NewModel implements pipeline.Backend.
func (Backend) NewModel(p l2background.Params) pipeline.TrainableModel {
	return NewModel(p)
}

// NewClassifier implements pipeline.Backend.
func (Backend) NewClassifier(p l3perception.Params) (pipeline.MaskClassifier, error) {
	return NewClassifier(p)
}
