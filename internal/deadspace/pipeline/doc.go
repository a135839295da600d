// Package pipeline orchestrates dead-space removal for one clip.
//
// It is the composition root: it trains the background model (l2background)
// on a dedicated handle, splits the clip into segments, runs one worker per
// segment that classifies frames with l3perception, and joins the retained
// frames in plan order. Frame I/O goes through the l1frames ports so the
// same code runs against ffmpeg or the in-memory source.
//
// None of the layer packages import pipeline.
package pipeline
