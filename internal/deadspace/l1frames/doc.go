// Package l1frames owns Layer 1 (Frames) of the motion pipeline.
//
// Responsibilities: the Frame value, the ports through which frames enter
// (Opener/Reader) and leave (SinkOpener/Writer, Remuxer) the pipeline, and
// in-memory implementations of those ports for tests and synthetic clips.
//
// Dependency rule: L1 depends on nothing above it. Decoding lives in the
// ffmpeg subpackage so the core never shells out.
package l1frames
