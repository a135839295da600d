// Package cvbackend implements pipeline.Backend on OpenCV through gocv:
// BackgroundSubtractorMOG2 for the model, and MorphologyEx, GaussianBlur,
// Blur, Dilate, Threshold, FindContours and ContourArea for refinement and
// classification.
//
// The package needs cgo and a system OpenCV 4 install, so it only builds
// with the gocv tag:
//
//	go build -tags gocv ./cmd/deadspace
//
// Without the tag the package is empty and the pure Go backend is the only
// one compiled in.
package cvbackend
