// Package deadspace is the root of the motion-retention pipeline that cuts
// motion-free stretches out of recorded video.
//
// The code is organised in layers, each in its own package:
//
//	l1frames      frames and the source/sink/remux ports (ffmpeg adapters in l1frames/ffmpeg)
//	l2background  background model trained on a priming pass
//	l3perception  mask refinement, external contours, motion classification
//	pipeline      segment planning, segment workers, orchestration and export
//
// Dependency rule: a layer may import lower layers only. pipeline is the
// composition root; storage/sqlite and monitor are adapters plugged into it.
package deadspace
