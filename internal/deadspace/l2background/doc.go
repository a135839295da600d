// Package l2background owns Layer 2 of the dead-space pipeline: a per-pixel
// statistical model of the static scene, trained on the opening frames of a
// clip and applied to every later frame to produce a foreground mask.
//
// Mask pixels are 0 (background), 127 (shadow: a darker copy of the learned
// background) or 255 (foreground).
//
// Dependency rule: l2background may import l1frames but nothing above it.
package l2background
