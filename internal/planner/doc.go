// Package planner implements the compatibility scoring, zone partitioning and
// allocation engine. Everything here is a pure function of its inputs: no I/O,
// no clocks, no randomness. Catalog plants are read and never mutated, so a
// single catalog may back many concurrent Generate calls.
package planner
