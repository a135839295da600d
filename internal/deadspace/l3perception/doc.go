// Package l3perception owns Layer 3 of the dead-space pipeline: turning a
// raw foreground mask into a motion decision.
//
// Responsibilities: mask refinement (morphology, smoothing, threshold),
// external contour extraction, the area-threshold classification, preview
// overlays and mask metrics.
// Key types: Classifier, Contour, MotionResult.
//
// Dependency rule: l3perception may depend on l1frames and l2background,
// never on pipeline or storage.
package l3perception
