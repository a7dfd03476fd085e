package githost

import (
	"context"
	"time"
)

// Tree entry constants for regular file blobs.
const (
	// ModeFile is the tree entry mode for a regular,
	// non-executable file.
	ModeFile = "100644"

	// TypeBlob is the tree entry type for file content
	// objects.
	TypeBlob = "blob"
)

// Ref is a named pointer (e.g. a branch) to a commit.
type Ref struct {
	// Name is the fully qualified ref name, e.g.
	// "refs/heads/main".
	Name string
	// SHA is the commit the ref points at.
	SHA string
}

// Commit is a commit object: one tree, zero or more
// parents, a message.
type Commit struct {
	SHA     string
	TreeSHA string
	Message string
	URL     string
	Parents []string
}

// TreeEntry describes one path in a tree delta.
type TreeEntry struct {
	Path string
	Mode string
	Type string
	SHA  string
}

// Repository holds repository metadata as reported by
// the host.
type Repository struct {
	Owner         string
	Name          string
	FullName      string
	Description   string
	Private       bool
	DefaultBranch string
	URL           string
	CloneURL      string
}

// CreateRepoOptions holds the settings for creating a
// repository.
type CreateRepoOptions struct {
	Name        string
	Description string
	Private     bool
	// AutoInit creates an initial commit with a README
	// so the default branch exists immediately.
	AutoInit bool
}

// Branch summarises one branch of a repository.
type Branch struct {
	Name      string
	SHA       string
	Protected bool
}

// CommitSummary is a condensed commit listing entry.
type CommitSummary struct {
	SHA     string
	Message string
	Author  string
	Date    time.Time
	URL     string
}

// NewPullRequest holds the settings for opening a pull
// request from Head into Base.
type NewPullRequest struct {
	Title string
	Head  string
	Base  string
	Body  string
}

// PullRequest describes an open pull request.
type PullRequest struct {
	Number int
	Title  string
	Head   string
	Base   string
	State  string
	URL    string
}

// Rate is one rate-limit bucket.
type Rate struct {
	Limit     int
	Remaining int
	Reset     time.Time
}

// RateLimit reports the caller's remaining quota per
// API surface.
type RateLimit struct {
	Core    Rate
	GraphQL Rate
}

// RefStore reads and writes named refs.
type RefStore interface {
	// GetRef resolves a ref like "heads/main". Returns
	// ErrRefNotFound if it does not exist.
	GetRef(
		ctx context.Context,
		owner string,
		repo string,
		ref string,
	) (*Ref, error)

	// CreateRef creates a new ref pointing at sha.
	CreateRef(
		ctx context.Context,
		owner string,
		repo string,
		ref string,
		sha string,
	) (*Ref, error)

	// UpdateRef moves a ref to sha. The update is
	// fast-forward only: a concurrent move of the ref
	// yields ErrRefConflict and no change.
	UpdateRef(
		ctx context.Context,
		owner string,
		repo string,
		ref string,
		sha string,
	) (*Ref, error)
}

// ObjectStore reads and writes git objects.
type ObjectStore interface {
	// GetCommit fetches a commit object by SHA.
	GetCommit(
		ctx context.Context,
		owner string,
		repo string,
		sha string,
	) (*Commit, error)

	// CreateBlob stores raw content and returns the
	// blob SHA.
	CreateBlob(
		ctx context.Context,
		owner string,
		repo string,
		content []byte,
	) (string, error)

	// CreateTree creates a tree from entries applied on
	// top of baseTree. Paths absent from entries keep
	// their baseTree content. An empty baseTree creates
	// a tree from the entries alone.
	CreateTree(
		ctx context.Context,
		owner string,
		repo string,
		baseTree string,
		entries []TreeEntry,
	) (string, error)

	// CreateCommit creates a commit object referencing
	// treeSHA with the given parents.
	CreateCommit(
		ctx context.Context,
		owner string,
		repo string,
		message string,
		treeSHA string,
		parents []string,
	) (*Commit, error)
}

// RepoAdmin manages repository lifecycle and listings.
type RepoAdmin interface {
	GetRepo(
		ctx context.Context,
		owner string,
		repo string,
	) (*Repository, error)

	CreateRepo(
		ctx context.Context,
		opts CreateRepoOptions,
	) (*Repository, error)

	DeleteRepo(
		ctx context.Context,
		owner string,
		repo string,
	) error

	ListBranches(
		ctx context.Context,
		owner string,
		repo string,
	) ([]Branch, error)

	// ListCommits returns up to limit most recent
	// commits on the default branch.
	ListCommits(
		ctx context.Context,
		owner string,
		repo string,
		limit int,
	) ([]CommitSummary, error)
}

// PullRequester opens pull requests.
//
// Pattern: Strategy -- swap git platform without
// changing the gateway's PR endpoint.
type PullRequester interface {
	CreatePullRequest(
		ctx context.Context,
		owner string,
		repo string,
		pr NewPullRequest,
	) (*PullRequest, error)
}

// PullRequesterFunc adapts a plain function to the
// PullRequester interface. When Body is empty the title
// is used as body.
type PullRequesterFunc func(
	ctx context.Context,
	owner string,
	repo string,
	pr NewPullRequest,
) (*PullRequest, error)

// CreatePullRequest delegates to the wrapped function.
// If pr.Body is empty, pr.Title is substituted.
func (f PullRequesterFunc) CreatePullRequest(
	ctx context.Context,
	owner string,
	repo string,
	pr NewPullRequest,
) (*PullRequest, error) {
	if pr.Body == "" {
		pr.Body = pr.Title
	}

	return f(ctx, owner, repo, pr)
}

// Account answers caller-scoped queries.
type Account interface {
	// AuthenticatedUser returns the login of the
	// credential owner.
	AuthenticatedUser(ctx context.Context) (string, error)

	RateLimit(ctx context.Context) (*RateLimit, error)
}

// Host composes every primitive the gateway needs from
// a repository hosting service.
type Host interface {
	RefStore
	ObjectStore
	RepoAdmin
	PullRequester
	Account
}
