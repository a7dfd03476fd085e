package github

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	gh "github.com/google/go-github/v68/github"

	"github.com/byte4ever/git_gateway/githost"
)

// defaultTimeout bounds each upstream call when no
// explicit timeout is configured.
const defaultTimeout = 10 * time.Second

// Config holds the settings needed to create a GitHub
// host client.
type Config struct {
	// AccessToken is a personal access token or
	// GitHub App token used for authentication.
	AccessToken string
	// EnterpriseHost is an optional GitHub Enterprise
	// hostname (e.g. "git.corp.example.com"). Leave
	// empty for github.com.
	EnterpriseHost string
	// Org is the organisation new repositories are
	// created under. Empty means the authenticated
	// user's account.
	Org string
	// Timeout bounds each upstream call. Zero means
	// the default.
	Timeout time.Duration
}

// Client implements githost.Host over the GitHub REST
// API.
//
// Pattern: Strategy -- implements githost.Host.
type Client struct {
	client  *gh.Client
	org     string
	timeout time.Duration
}

// NewClient validates cfg and returns a Client ready to
// talk to GitHub.
func NewClient(cfg Config) (*Client, error) {
	const errCtx = "creating github client"

	if cfg.AccessToken == "" {
		return nil, fmt.Errorf(
			"%s: access token must be set", errCtx,
		)
	}

	client := gh.NewClient(nil).
		WithAuthToken(cfg.AccessToken)

	if cfg.EnterpriseHost != "" {
		baseURL := "https://" +
			cfg.EnterpriseHost + "/api/v3/"
		uploadURL := "https://" +
			cfg.EnterpriseHost + "/api/uploads/"

		var err error

		client, err = client.WithEnterpriseURLs(
			baseURL, uploadURL,
		)
		if err != nil {
			return nil, fmt.Errorf(
				"%s: enterprise urls: %w",
				errCtx, err,
			)
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		client:  client,
		org:     cfg.Org,
		timeout: timeout,
	}, nil
}

// opCtx derives a per-call context bounded by the
// configured timeout.
func (c *Client) opCtx(
	ctx context.Context,
) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// classify maps a go-github error onto the githost
// taxonomy. notFound is the sentinel to use for HTTP
// 404 (a ref lookup and a repo lookup miss differently).
func classify(
	errCtx string,
	err error,
	notFound error,
) error {
	var ghErr *gh.ErrorResponse

	if errors.As(err, &ghErr) &&
		ghErr.Response != nil {
		switch ghErr.Response.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf(
				"%s: %w: %s",
				errCtx, notFound, ghErr.Message,
			)
		case http.StatusUnauthorized,
			http.StatusForbidden:
			return fmt.Errorf(
				"%s: %w: %s",
				errCtx,
				githost.ErrUnavailable,
				ghErr.Message,
			)
		default:
			return fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}
	}

	// No structured response: transport failure or a
	// timed-out call context.
	return fmt.Errorf(
		"%s: %w: %v",
		errCtx, githost.ErrUnavailable, err,
	)
}

// GetRef resolves a ref like "heads/main".
func (c *Client) GetRef(
	ctx context.Context,
	owner string,
	repo string,
	ref string,
) (*githost.Ref, error) {
	const errCtx = "getting ref"

	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	r, _, err := c.client.Git.GetRef(
		ctx, owner, repo, ref,
	)
	if err != nil {
		return nil, classify(
			errCtx, err, githost.ErrRefNotFound,
		)
	}

	return &githost.Ref{
		Name: r.GetRef(),
		SHA:  r.GetObject().GetSHA(),
	}, nil
}

// CreateRef creates a new ref pointing at sha. ref is
// given without the "refs/" prefix, e.g. "heads/topic".
func (c *Client) CreateRef(
	ctx context.Context,
	owner string,
	repo string,
	ref string,
	sha string,
) (*githost.Ref, error) {
	const errCtx = "creating ref"

	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	full := "refs/" + ref

	r, _, err := c.client.Git.CreateRef(
		ctx, owner, repo,
		&gh.Reference{
			Ref: gh.String(full),
			Object: &gh.GitObject{
				SHA: gh.String(sha),
			},
		},
	)
	if err != nil {
		return nil, classify(
			errCtx, err, githost.ErrNotFound,
		)
	}

	return &githost.Ref{
		Name: r.GetRef(),
		SHA:  r.GetObject().GetSHA(),
	}, nil
}

// UpdateRef moves a ref to sha without force, so the
// host rejects any update that is not a fast-forward.
// HTTP 422 is reported as githost.ErrRefConflict.
func (c *Client) UpdateRef(
	ctx context.Context,
	owner string,
	repo string,
	ref string,
	sha string,
) (*githost.Ref, error) {
	const errCtx = "updating ref"

	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	full := "refs/" + ref

	r, resp, err := c.client.Git.UpdateRef(
		ctx, owner, repo,
		&gh.Reference{
			Ref: gh.String(full),
			Object: &gh.GitObject{
				SHA: gh.String(sha),
			},
		},
		false,
	)
	if err != nil {
		// HTTP 422: not a fast forward -- another
		// writer moved the ref since it was read.
		if resp != nil &&
			resp.StatusCode ==
				http.StatusUnprocessableEntity {
			return nil, fmt.Errorf(
				"%s: %w: %v",
				errCtx,
				githost.ErrRefConflict,
				err,
			)
		}

		return nil, classify(
			errCtx, err, githost.ErrRefNotFound,
		)
	}

	return &githost.Ref{
		Name: r.GetRef(),
		SHA:  r.GetObject().GetSHA(),
	}, nil
}

// GetCommit fetches a commit object by SHA.
func (c *Client) GetCommit(
	ctx context.Context,
	owner string,
	repo string,
	sha string,
) (*githost.Commit, error) {
	const errCtx = "getting commit"

	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	cm, _, err := c.client.Git.GetCommit(
		ctx, owner, repo, sha,
	)
	if err != nil {
		return nil, classify(
			errCtx, err, githost.ErrNotFound,
		)
	}

	return toCommit(cm), nil
}

// CreateBlob stores content base64-encoded so binary
// payloads survive transport.
func (c *Client) CreateBlob(
	ctx context.Context,
	owner string,
	repo string,
	content []byte,
) (string, error) {
	const errCtx = "creating blob"

	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	encoded := base64.StdEncoding.
		EncodeToString(content)

	blob, _, err := c.client.Git.CreateBlob(
		ctx, owner, repo,
		&gh.Blob{
			Content:  gh.String(encoded),
			Encoding: gh.String("base64"),
		},
	)
	if err != nil {
		return "", classify(
			errCtx, err, githost.ErrNotFound,
		)
	}

	return blob.GetSHA(), nil
}

// CreateTree creates a tree from entries applied on top
// of baseTree. The host merges unmentioned paths from
// the base tree.
func (c *Client) CreateTree(
	ctx context.Context,
	owner string,
	repo string,
	baseTree string,
	entries []githost.TreeEntry,
) (string, error) {
	const errCtx = "creating tree"

	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	ghEntries := make(
		[]*gh.TreeEntry, 0, len(entries),
	)

	for _, e := range entries {
		ghEntries = append(
			ghEntries,
			&gh.TreeEntry{
				Path: gh.String(e.Path),
				Mode: gh.String(e.Mode),
				Type: gh.String(e.Type),
				SHA:  gh.String(e.SHA),
			},
		)
	}

	tree, _, err := c.client.Git.CreateTree(
		ctx, owner, repo, baseTree, ghEntries,
	)
	if err != nil {
		return "", classify(
			errCtx, err, githost.ErrNotFound,
		)
	}

	return tree.GetSHA(), nil
}

// CreateCommit creates a commit object referencing
// treeSHA with the given parents.
func (c *Client) CreateCommit(
	ctx context.Context,
	owner string,
	repo string,
	message string,
	treeSHA string,
	parents []string,
) (*githost.Commit, error) {
	const errCtx = "creating commit"

	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	ghParents := make(
		[]*gh.Commit, 0, len(parents),
	)

	for _, p := range parents {
		ghParents = append(
			ghParents,
			&gh.Commit{SHA: gh.String(p)},
		)
	}

	cm, _, err := c.client.Git.CreateCommit(
		ctx, owner, repo,
		&gh.Commit{
			Message: gh.String(message),
			Tree: &gh.Tree{
				SHA: gh.String(treeSHA),
			},
			Parents: ghParents,
		},
		nil,
	)
	if err != nil {
		return nil, classify(
			errCtx, err, githost.ErrNotFound,
		)
	}

	return toCommit(cm), nil
}

// GetRepo fetches repository metadata.
func (c *Client) GetRepo(
	ctx context.Context,
	owner string,
	repo string,
) (*githost.Repository, error) {
	const errCtx = "getting repository"

	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	r, _, err := c.client.Repositories.Get(
		ctx, owner, repo,
	)
	if err != nil {
		return nil, classify(
			errCtx, err, githost.ErrNotFound,
		)
	}

	return toRepository(r), nil
}

// CreateRepo creates a repository under the configured
// organisation, or the authenticated user when no
// organisation is configured.
func (c *Client) CreateRepo(
	ctx context.Context,
	opts githost.CreateRepoOptions,
) (*githost.Repository, error) {
	const errCtx = "creating repository"

	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	r, _, err := c.client.Repositories.Create(
		ctx, c.org,
		&gh.Repository{
			Name:        gh.String(opts.Name),
			Description: gh.String(opts.Description),
			Private:     gh.Bool(opts.Private),
			AutoInit:    gh.Bool(opts.AutoInit),
		},
	)
	if err != nil {
		return nil, classify(
			errCtx, err, githost.ErrNotFound,
		)
	}

	return toRepository(r), nil
}

// DeleteRepo deletes a repository.
func (c *Client) DeleteRepo(
	ctx context.Context,
	owner string,
	repo string,
) error {
	const errCtx = "deleting repository"

	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	_, err := c.client.Repositories.Delete(
		ctx, owner, repo,
	)
	if err != nil {
		return classify(
			errCtx, err, githost.ErrNotFound,
		)
	}

	return nil
}

// ListBranches lists the repository's branches.
func (c *Client) ListBranches(
	ctx context.Context,
	owner string,
	repo string,
) ([]githost.Branch, error) {
	const errCtx = "listing branches"

	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	branches, _, err := c.client.Repositories.
		ListBranches(
			ctx, owner, repo,
			&gh.BranchListOptions{
				ListOptions: gh.ListOptions{
					PerPage: 100,
				},
			},
		)
	if err != nil {
		return nil, classify(
			errCtx, err, githost.ErrNotFound,
		)
	}

	out := make(
		[]githost.Branch, 0, len(branches),
	)

	for _, b := range branches {
		out = append(out, githost.Branch{
			Name:      b.GetName(),
			SHA:       b.GetCommit().GetSHA(),
			Protected: b.GetProtected(),
		})
	}

	return out, nil
}

// ListCommits returns up to limit most recent commits
// on the default branch.
func (c *Client) ListCommits(
	ctx context.Context,
	owner string,
	repo string,
	limit int,
) ([]githost.CommitSummary, error) {
	const errCtx = "listing commits"

	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	commits, _, err := c.client.Repositories.
		ListCommits(
			ctx, owner, repo,
			&gh.CommitsListOptions{
				ListOptions: gh.ListOptions{
					PerPage: limit,
				},
			},
		)
	if err != nil {
		return nil, classify(
			errCtx, err, githost.ErrNotFound,
		)
	}

	out := make(
		[]githost.CommitSummary, 0, len(commits),
	)

	for _, cm := range commits {
		out = append(out, githost.CommitSummary{
			SHA:     cm.GetSHA(),
			Message: cm.GetCommit().GetMessage(),
			Author: cm.GetCommit().
				GetAuthor().GetName(),
			Date: cm.GetCommit().
				GetAuthor().GetDate().Time,
			URL: cm.GetHTMLURL(),
		})
	}

	return out, nil
}

// CreatePullRequest opens a pull request from pr.Head
// into pr.Base.
func (c *Client) CreatePullRequest(
	ctx context.Context,
	owner string,
	repo string,
	pr githost.NewPullRequest,
) (*githost.PullRequest, error) {
	const errCtx = "creating pull request"

	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	created, _, err := c.client.PullRequests.Create(
		ctx, owner, repo,
		&gh.NewPullRequest{
			Title: gh.String(pr.Title),
			Head:  gh.String(pr.Head),
			Base:  gh.String(pr.Base),
			Body:  gh.String(pr.Body),
		},
	)
	if err != nil {
		return nil, classify(
			errCtx, err, githost.ErrNotFound,
		)
	}

	return &githost.PullRequest{
		Number: created.GetNumber(),
		Title:  created.GetTitle(),
		Head:   created.GetHead().GetRef(),
		Base:   created.GetBase().GetRef(),
		State:  created.GetState(),
		URL:    created.GetHTMLURL(),
	}, nil
}

// AuthenticatedUser returns the login of the token
// owner.
func (c *Client) AuthenticatedUser(
	ctx context.Context,
) (string, error) {
	const errCtx = "getting authenticated user"

	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	user, _, err := c.client.Users.Get(ctx, "")
	if err != nil {
		return "", classify(
			errCtx, err, githost.ErrNotFound,
		)
	}

	return user.GetLogin(), nil
}

// RateLimit reports the caller's remaining quota.
func (c *Client) RateLimit(
	ctx context.Context,
) (*githost.RateLimit, error) {
	const errCtx = "getting rate limit"

	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	limits, _, err := c.client.RateLimit.Get(ctx)
	if err != nil {
		return nil, classify(
			errCtx, err, githost.ErrNotFound,
		)
	}

	return &githost.RateLimit{
		Core:    toRate(limits.GetCore()),
		GraphQL: toRate(limits.GetGraphQL()),
	}, nil
}

// toCommit converts a go-github commit object.
func toCommit(cm *gh.Commit) *githost.Commit {
	parents := make(
		[]string, 0, len(cm.Parents),
	)

	for _, p := range cm.Parents {
		parents = append(parents, p.GetSHA())
	}

	return &githost.Commit{
		SHA:     cm.GetSHA(),
		TreeSHA: cm.GetTree().GetSHA(),
		Message: cm.GetMessage(),
		URL:     cm.GetHTMLURL(),
		Parents: parents,
	}
}

// toRepository converts a go-github repository object.
func toRepository(r *gh.Repository) *githost.Repository {
	return &githost.Repository{
		Owner:         r.GetOwner().GetLogin(),
		Name:          r.GetName(),
		FullName:      r.GetFullName(),
		Description:   r.GetDescription(),
		Private:       r.GetPrivate(),
		DefaultBranch: r.GetDefaultBranch(),
		URL:           r.GetHTMLURL(),
		CloneURL:      r.GetCloneURL(),
	}
}

// toRate converts one go-github rate bucket.
func toRate(r *gh.Rate) githost.Rate {
	return githost.Rate{
		Limit:     r.Limit,
		Remaining: r.Remaining,
		Reset:     r.Reset.Time,
	}
}
