// Package flows holds the step-by-step logic behind each engine operation.
//
// Each Run function receives its collaborators as plain functions in a
// per-flow deps struct and reports how it ended through a failure kind on its
// result. The engine turns that kind into sentinel errors, counters and
// bitácora events, which keeps the flows free of any dependency on package
// carnet.
package flows
