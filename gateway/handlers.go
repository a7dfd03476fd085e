package gateway

import (
	"fmt"
	"net/http"
	"time"

	"github.com/byte4ever/git_gateway/assembler"
	"github.com/byte4ever/git_gateway/githost"
)

type commitFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

type commitRequest struct {
	Message string       `json:"message"`
	Branch  string       `json:"branch"`
	Files   []commitFile `json:"files"`
}

type commitInfo struct {
	SHA     string `json:"sha"`
	Message string `json:"message"`
	URL     string `json:"url"`
	Branch  string `json:"branch"`
}

type commitResponse struct {
	Success bool       `json:"success"`
	Commit  commitInfo `json:"commit"`
}

// handleCommit assembles one commit containing all
// requested files on the target branch.
func (s *Server) handleCommit(
	w http.ResponseWriter,
	r *http.Request,
) {
	var req commitRequest

	if err := decodeBody(r, &req); err != nil {
		writeError(
			w, http.StatusBadRequest,
			"invalid JSON body", err.Error(),
		)

		return
	}

	// Field validation happens before any host call.
	if req.Message == "" {
		writeError(
			w, http.StatusBadRequest,
			"message is required", "",
		)

		return
	}

	if len(req.Files) == 0 {
		writeError(
			w, http.StatusBadRequest,
			"files must not be empty", "",
		)

		return
	}

	files := make(
		[]assembler.File, 0, len(req.Files),
	)

	for i, f := range req.Files {
		if f.Path == "" {
			writeError(
				w, http.StatusBadRequest,
				fmt.Sprintf(
					"files[%d].path is required", i,
				),
				"",
			)

			return
		}

		files = append(files, assembler.File{
			Path:    f.Path,
			Content: f.Content,
		})
	}

	branch := req.Branch
	if branch == "" {
		branch = s.defaultBranch
	}

	result, err := s.asm.Commit(
		r.Context(),
		r.PathValue("owner"),
		r.PathValue("repo"),
		branch,
		req.Message,
		files,
	)
	if err != nil {
		writeHostError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, commitResponse{
		Success: true,
		Commit: commitInfo{
			SHA:     result.SHA,
			Message: result.Message,
			URL:     result.URL,
			Branch:  result.Branch,
		},
	})
}

type healthUpstream struct {
	Connected bool   `json:"connected"`
	User      string `json:"user,omitempty"`
}

type healthResponse struct {
	Status string         `json:"status"`
	Uptime float64        `json:"uptime"`
	GitHub healthUpstream `json:"github"`
}

// handleHealth probes the host credential. Unreachable
// or rejected credentials degrade to 503.
func (s *Server) handleHealth(
	w http.ResponseWriter,
	r *http.Request,
) {
	uptime := time.Since(s.started).Seconds()

	user, err := s.host.AuthenticatedUser(
		r.Context(),
	)
	if err != nil {
		writeJSON(
			w, http.StatusServiceUnavailable,
			healthResponse{
				Status: "degraded",
				Uptime: uptime,
				GitHub: healthUpstream{
					Connected: false,
				},
			},
		)

		return
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status: "ok",
		Uptime: uptime,
		GitHub: healthUpstream{
			Connected: true,
			User:      user,
		},
	})
}

type createRepoRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Private     bool   `json:"private"`
	AutoInit    bool   `json:"autoInit"`
}

type repositoryInfo struct {
	Owner         string `json:"owner"`
	Name          string `json:"name"`
	FullName      string `json:"fullName"`
	Description   string `json:"description,omitempty"`
	Private       bool   `json:"private"`
	DefaultBranch string `json:"defaultBranch"`
	URL           string `json:"url"`
	CloneURL      string `json:"cloneUrl"`
}

type createRepoResponse struct {
	Success    bool           `json:"success"`
	Repository repositoryInfo `json:"repository"`
}

// handleCreateRepo creates a repository.
func (s *Server) handleCreateRepo(
	w http.ResponseWriter,
	r *http.Request,
) {
	var req createRepoRequest

	if err := decodeBody(r, &req); err != nil {
		writeError(
			w, http.StatusBadRequest,
			"invalid JSON body", err.Error(),
		)

		return
	}

	if req.Name == "" {
		writeError(
			w, http.StatusBadRequest,
			"name is required", "",
		)

		return
	}

	repo, err := s.host.CreateRepo(
		r.Context(),
		githost.CreateRepoOptions{
			Name:        req.Name,
			Description: req.Description,
			Private:     req.Private,
			AutoInit:    req.AutoInit,
		},
	)
	if err != nil {
		writeHostError(w, err)

		return
	}

	writeJSON(
		w, http.StatusCreated,
		createRepoResponse{
			Success:    true,
			Repository: toRepositoryInfo(repo),
		},
	)
}

type branchInfo struct {
	Name      string `json:"name"`
	SHA       string `json:"sha"`
	Protected bool   `json:"protected"`
}

type commitSummaryInfo struct {
	SHA     string `json:"sha"`
	Message string `json:"message"`
	Author  string `json:"author,omitempty"`
	Date    string `json:"date"`
	URL     string `json:"url"`
}

type statusResponse struct {
	Repository    repositoryInfo      `json:"repository"`
	Branches      []branchInfo        `json:"branches"`
	RecentCommits []commitSummaryInfo `json:"recentCommits"`
}

// handleStatus reports repository metadata, branches,
// and recent commits.
func (s *Server) handleStatus(
	w http.ResponseWriter,
	r *http.Request,
) {
	ctx := r.Context()
	owner := r.PathValue("owner")
	name := r.PathValue("repo")

	repo, err := s.host.GetRepo(ctx, owner, name)
	if err != nil {
		writeHostError(w, err)

		return
	}

	branches, err := s.host.ListBranches(
		ctx, owner, name,
	)
	if err != nil {
		writeHostError(w, err)

		return
	}

	commits, err := s.host.ListCommits(
		ctx, owner, name, recentCommitCount,
	)
	if err != nil {
		writeHostError(w, err)

		return
	}

	resp := statusResponse{
		Repository: toRepositoryInfo(repo),
		Branches: make(
			[]branchInfo, 0, len(branches),
		),
		RecentCommits: make(
			[]commitSummaryInfo, 0, len(commits),
		),
	}

	for _, b := range branches {
		resp.Branches = append(
			resp.Branches,
			branchInfo{
				Name:      b.Name,
				SHA:       b.SHA,
				Protected: b.Protected,
			},
		)
	}

	for _, c := range commits {
		resp.RecentCommits = append(
			resp.RecentCommits,
			commitSummaryInfo{
				SHA:     c.SHA,
				Message: c.Message,
				Author:  c.Author,
				Date: c.Date.Format(
					time.RFC3339,
				),
				URL: c.URL,
			},
		)
	}

	writeJSON(w, http.StatusOK, resp)
}

type createBranchRequest struct {
	Name string `json:"name"`
	From string `json:"from"`
}

type createdBranchInfo struct {
	Name string `json:"name"`
	From string `json:"from"`
	SHA  string `json:"sha"`
}

type createBranchResponse struct {
	Success bool              `json:"success"`
	Branch  createdBranchInfo `json:"branch"`
}

// handleCreateBranch creates a branch from an existing
// one (default branch when "from" is omitted).
func (s *Server) handleCreateBranch(
	w http.ResponseWriter,
	r *http.Request,
) {
	var req createBranchRequest

	if err := decodeBody(r, &req); err != nil {
		writeError(
			w, http.StatusBadRequest,
			"invalid JSON body", err.Error(),
		)

		return
	}

	if req.Name == "" {
		writeError(
			w, http.StatusBadRequest,
			"name is required", "",
		)

		return
	}

	from := req.From
	if from == "" {
		from = s.defaultBranch
	}

	ctx := r.Context()
	owner := r.PathValue("owner")
	name := r.PathValue("repo")

	base, err := s.host.GetRef(
		ctx, owner, name, "heads/"+from,
	)
	if err != nil {
		writeHostError(w, err)

		return
	}

	created, err := s.host.CreateRef(
		ctx, owner, name,
		"heads/"+req.Name, base.SHA,
	)
	if err != nil {
		writeHostError(w, err)

		return
	}

	writeJSON(
		w, http.StatusCreated,
		createBranchResponse{
			Success: true,
			Branch: createdBranchInfo{
				Name: req.Name,
				From: from,
				SHA:  created.SHA,
			},
		},
	)
}

type createPRRequest struct {
	Title string `json:"title"`
	Head  string `json:"head"`
	Base  string `json:"base"`
	Body  string `json:"body"`
}

type pullRequestInfo struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Head   string `json:"head"`
	Base   string `json:"base"`
	State  string `json:"state"`
	URL    string `json:"url"`
}

type createPRResponse struct {
	Success     bool            `json:"success"`
	PullRequest pullRequestInfo `json:"pullRequest"`
}

// handleCreatePR opens a pull request. An omitted base
// falls back to the default branch; an omitted body is
// rendered from the configured template.
func (s *Server) handleCreatePR(
	w http.ResponseWriter,
	r *http.Request,
) {
	var req createPRRequest

	if err := decodeBody(r, &req); err != nil {
		writeError(
			w, http.StatusBadRequest,
			"invalid JSON body", err.Error(),
		)

		return
	}

	if req.Title == "" {
		writeError(
			w, http.StatusBadRequest,
			"title is required", "",
		)

		return
	}

	if req.Head == "" {
		writeError(
			w, http.StatusBadRequest,
			"head is required", "",
		)

		return
	}

	base := req.Base
	if base == "" {
		base = s.defaultBranch
	}

	body := req.Body
	if body == "" {
		body = renderPRBody(
			s.bodyTemplate,
			req.Title, req.Head, base,
		)
	}

	pr, err := s.prs.CreatePullRequest(
		r.Context(),
		r.PathValue("owner"),
		r.PathValue("repo"),
		githost.NewPullRequest{
			Title: req.Title,
			Head:  req.Head,
			Base:  base,
			Body:  body,
		},
	)
	if err != nil {
		writeHostError(w, err)

		return
	}

	writeJSON(
		w, http.StatusCreated,
		createPRResponse{
			Success: true,
			PullRequest: pullRequestInfo{
				Number: pr.Number,
				Title:  pr.Title,
				Head:   pr.Head,
				Base:   pr.Base,
				State:  pr.State,
				URL:    pr.URL,
			},
		},
	)
}

type deleteRepoRequest struct {
	Confirm string `json:"confirm"`
}

type deleteRepoResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// handleDeleteRepo deletes a repository. The request
// must repeat the repository name in "confirm".
func (s *Server) handleDeleteRepo(
	w http.ResponseWriter,
	r *http.Request,
) {
	var req deleteRepoRequest

	if err := decodeBody(r, &req); err != nil {
		writeError(
			w, http.StatusBadRequest,
			"invalid JSON body", err.Error(),
		)

		return
	}

	owner := r.PathValue("owner")
	name := r.PathValue("repo")

	if req.Confirm != name {
		writeError(
			w, http.StatusBadRequest,
			"confirmation does not match "+
				"repository name",
			"",
		)

		return
	}

	if err := s.host.DeleteRepo(
		r.Context(), owner, name,
	); err != nil {
		writeHostError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, deleteRepoResponse{
		Success: true,
		Message: fmt.Sprintf(
			"repository %s/%s deleted", owner, name,
		),
	})
}

type rateInfo struct {
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
	Reset     string `json:"reset"`
}

type rateLimitInfo struct {
	Core    rateInfo `json:"core"`
	GraphQL rateInfo `json:"graphql"`
}

type rateLimitResponse struct {
	Success   bool          `json:"success"`
	RateLimit rateLimitInfo `json:"rateLimit"`
}

// handleRateLimit reports the credential's remaining
// quota.
func (s *Server) handleRateLimit(
	w http.ResponseWriter,
	r *http.Request,
) {
	limits, err := s.host.RateLimit(r.Context())
	if err != nil {
		writeHostError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, rateLimitResponse{
		Success: true,
		RateLimit: rateLimitInfo{
			Core:    toRateInfo(limits.Core),
			GraphQL: toRateInfo(limits.GraphQL),
		},
	})
}

// toRepositoryInfo converts host repository metadata
// for responses.
func toRepositoryInfo(
	r *githost.Repository,
) repositoryInfo {
	return repositoryInfo{
		Owner:         r.Owner,
		Name:          r.Name,
		FullName:      r.FullName,
		Description:   r.Description,
		Private:       r.Private,
		DefaultBranch: r.DefaultBranch,
		URL:           r.URL,
		CloneURL:      r.CloneURL,
	}
}

// toRateInfo converts one rate bucket for responses.
func toRateInfo(r githost.Rate) rateInfo {
	return rateInfo{
		Limit:     r.Limit,
		Remaining: r.Remaining,
		Reset:     r.Reset.Format(time.RFC3339),
	}
}
