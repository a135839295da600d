// Package monitor holds the optional observers a run can carry: per-frame
// activity recording with summary statistics and charts, annotated preview
// frames, and a terminal progress bar. None of them influence which frames
// the pipeline retains.
package monitor
