package gitlab

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	gl "gitlab.com/gitlab-org/api/client-go"

	"github.com/byte4ever/git_gateway/githost"
)

// Config holds the settings needed to create a GitLab
// merge request provider.
type Config struct {
	// Host is the base URL of the GitLab instance
	// (e.g. "https://gitlab.com").
	Host string
	// AccessToken is a personal or project access
	// token used for authentication.
	AccessToken string
}

// Provider creates merge requests on GitLab.
//
// Pattern: Strategy -- implements
// githost.PullRequester.
type Provider struct {
	client *gl.Client
}

// NewProvider validates cfg and returns a Provider
// ready to create merge requests.
func NewProvider(cfg Config) (*Provider, error) {
	const errCtx = "creating gitlab provider"

	if cfg.AccessToken == "" {
		return nil, fmt.Errorf(
			"%s: access token must be set", errCtx,
		)
	}

	host := cfg.Host
	if host == "" {
		host = "https://gitlab.com"
	}

	client, err := gl.NewClient(
		cfg.AccessToken,
		gl.WithBaseURL(host),
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: new client: %w", errCtx, err,
		)
	}

	return &Provider{client: client}, nil
}

// CreatePullRequest creates a merge request from
// pr.Head into pr.Base on the project owner/repo. If a
// MR already exists for this source branch (HTTP 409)
// the existing one is returned.
func (p *Provider) CreatePullRequest(
	ctx context.Context,
	owner string,
	repo string,
	pr githost.NewPullRequest,
) (*githost.PullRequest, error) {
	const errCtx = "creating gitlab merge request"

	project := owner + "/" + repo

	opts := gl.CreateMergeRequestOptions{
		Title:        &pr.Title,
		Description:  &pr.Body,
		SourceBranch: &pr.Head,
		TargetBranch: &pr.Base,
	}

	created, resp, err := p.client.MergeRequests.
		CreateMergeRequest(
			project, &opts, gl.WithContext(ctx),
		)
	if err == nil {
		slog.Info(
			"created merge request",
			"url", created.WebURL,
		)

		return toMergeRequest(created), nil
	}

	// HTTP 409: MR already exists for this source
	// branch.
	if resp != nil &&
		resp.StatusCode == http.StatusConflict {
		slog.Info("reusing existing merge request")

		return p.findExisting(
			ctx, project, pr.Head, pr.Base,
		)
	}

	return nil, fmt.Errorf(
		"%s: %w: %v",
		errCtx, githost.ErrUnavailable, err,
	)
}

// findExisting looks up the open merge request for the
// given source/target branch pair.
func (p *Provider) findExisting(
	ctx context.Context,
	project string,
	head string,
	base string,
) (*githost.PullRequest, error) {
	const errCtx = "finding existing merge request"

	state := "opened"

	mrs, _, err := p.client.MergeRequests.
		ListProjectMergeRequests(
			project,
			&gl.ListProjectMergeRequestsOptions{
				State:        &state,
				SourceBranch: &head,
				TargetBranch: &base,
			},
			gl.WithContext(ctx),
		)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: %w: %v",
			errCtx, githost.ErrUnavailable, err,
		)
	}

	if len(mrs) == 0 {
		return nil, fmt.Errorf(
			"%s: %w: no open merge request for %s",
			errCtx, githost.ErrNotFound, head,
		)
	}

	return toBasicMergeRequest(mrs[0]), nil
}

// toMergeRequest converts a full GitLab merge request.
func toMergeRequest(
	mr *gl.MergeRequest,
) *githost.PullRequest {
	return &githost.PullRequest{
		Number: int(mr.IID),
		Title:  mr.Title,
		Head:   mr.SourceBranch,
		Base:   mr.TargetBranch,
		State:  mr.State,
		URL:    mr.WebURL,
	}
}

// toBasicMergeRequest converts a list-view GitLab merge
// request.
func toBasicMergeRequest(
	mr *gl.BasicMergeRequest,
) *githost.PullRequest {
	return &githost.PullRequest{
		Number: int(mr.IID),
		Title:  mr.Title,
		Head:   mr.SourceBranch,
		Base:   mr.TargetBranch,
		State:  mr.State,
		URL:    mr.WebURL,
	}
}
