// Package gitlab implements githost.PullRequester by creating merge
// requests on a GitLab instance. The owner/repo pair of a request is
// joined into the GitLab project path. When a merge request already
// exists for the source branch (HTTP 409) the existing one is looked
// up and returned instead of an error.
package gitlab
