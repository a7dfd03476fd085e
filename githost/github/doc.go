// Package github implements githost.Host over the GitHub REST API
// (cloud or enterprise). Configure with a Config containing a
// personal access token; set EnterpriseHost for GitHub Enterprise
// installations. Every call carries a bounded timeout and upstream
// failures are classified into the githost sentinel errors: 404 maps
// to the not-found sentinels, a rejected non-fast-forward ref update
// maps to githost.ErrRefConflict, and transport, timeout, or
// credential failures map to githost.ErrUnavailable.
package github
