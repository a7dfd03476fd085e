// Package assembler builds multi-file commits on a git hosting
// service from its object primitives.
//
// A commit is assembled as a strict chain: resolve the branch head,
// load its commit for the current tree, create one blob per file
// (fanned out over a bounded worker pool), create a tree as a delta
// on the current tree, create the commit, then advance the branch
// ref. The ref update is the only visible mutation and happens last,
// so a failure at any earlier step leaves the branch untouched. Each
// failure is reported as a StepError naming the step that failed; the
// assembler never retries -- retry policy belongs to the caller.
package assembler
