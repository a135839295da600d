// Package sqlite contains the SQLite repository for dead-space run history:
// one row per processing run with its exported parameters and outcome, and
// one row per segment worker.
//
// SQL lives here rather than in the pipeline layers so those stay free of
// storage concerns; the schema itself is owned by internal/db migrations.
package sqlite
