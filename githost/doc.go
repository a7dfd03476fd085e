// Package githost defines the data model and primitive interfaces for
// a git repository hosting service, plus the sentinel errors used to
// classify upstream failures.
//
// The primitives are split by concern: RefStore for named pointers,
// ObjectStore for blob/tree/commit objects, RepoAdmin for repository
// lifecycle, PullRequester for pull requests, and Account for
// caller-scoped queries. Host composes all of them. Consumers should
// depend on the narrowest interface that covers their calls.
package githost
