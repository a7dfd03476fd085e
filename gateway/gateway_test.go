package gateway_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/git_gateway/gateway"
	"github.com/byte4ever/git_gateway/githost"
)

const testKey = "secret-key"

// stubHost is a canned githost.Host recording which
// primitives were called.
type stubHost struct {
	mu    sync.Mutex
	calls []string

	userErr       error
	deleteErr     error
	getRefErr     error
	updateRefErr  error
	createBlobErr error

	gotNewPR githost.NewPullRequest
}

func (h *stubHost) record(call string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.calls = append(h.calls, call)
}

func (h *stubHost) called(call string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range h.calls {
		if c == call {
			return true
		}
	}

	return false
}

func (h *stubHost) GetRef(
	_ context.Context, _, _, ref string,
) (*githost.Ref, error) {
	h.record("get-ref")

	if h.getRefErr != nil {
		return nil, h.getRefErr
	}

	return &githost.Ref{
		Name: "refs/" + ref,
		SHA:  "c0",
	}, nil
}

func (h *stubHost) CreateRef(
	_ context.Context, _, _, ref, sha string,
) (*githost.Ref, error) {
	h.record("create-ref")

	return &githost.Ref{
		Name: "refs/" + ref,
		SHA:  sha,
	}, nil
}

func (h *stubHost) UpdateRef(
	_ context.Context, _, _, ref, sha string,
) (*githost.Ref, error) {
	h.record("update-ref")

	if h.updateRefErr != nil {
		return nil, h.updateRefErr
	}

	return &githost.Ref{
		Name: "refs/" + ref,
		SHA:  sha,
	}, nil
}

func (h *stubHost) GetCommit(
	_ context.Context, _, _, sha string,
) (*githost.Commit, error) {
	h.record("get-commit")

	return &githost.Commit{
		SHA:     sha,
		TreeSHA: "t0",
	}, nil
}

func (h *stubHost) CreateBlob(
	_ context.Context, _, _ string, _ []byte,
) (string, error) {
	h.record("create-blob")

	if h.createBlobErr != nil {
		return "", h.createBlobErr
	}

	return "b1", nil
}

func (h *stubHost) CreateTree(
	_ context.Context,
	_, _, _ string,
	_ []githost.TreeEntry,
) (string, error) {
	h.record("create-tree")

	return "t1", nil
}

func (h *stubHost) CreateCommit(
	_ context.Context,
	_, _, message, treeSHA string,
	parents []string,
) (*githost.Commit, error) {
	h.record("create-commit")

	return &githost.Commit{
		SHA:     "c1",
		TreeSHA: treeSHA,
		Message: message,
		URL:     "https://example.com/commit/c1",
		Parents: parents,
	}, nil
}

func (h *stubHost) GetRepo(
	_ context.Context, owner, repo string,
) (*githost.Repository, error) {
	h.record("get-repo")

	return &githost.Repository{
		Owner:         owner,
		Name:          repo,
		FullName:      owner + "/" + repo,
		DefaultBranch: "main",
		URL:           "https://example.com/" + repo,
	}, nil
}

func (h *stubHost) CreateRepo(
	_ context.Context,
	opts githost.CreateRepoOptions,
) (*githost.Repository, error) {
	h.record("create-repo")

	return &githost.Repository{
		Owner:         "org",
		Name:          opts.Name,
		FullName:      "org/" + opts.Name,
		Description:   opts.Description,
		Private:       opts.Private,
		DefaultBranch: "main",
	}, nil
}

func (h *stubHost) DeleteRepo(
	_ context.Context, _, _ string,
) error {
	h.record("delete-repo")

	return h.deleteErr
}

func (h *stubHost) ListBranches(
	_ context.Context, _, _ string,
) ([]githost.Branch, error) {
	h.record("list-branches")

	return []githost.Branch{
		{Name: "main", SHA: "c0"},
		{Name: "topic", SHA: "c9"},
	}, nil
}

func (h *stubHost) ListCommits(
	_ context.Context, _, _ string, limit int,
) ([]githost.CommitSummary, error) {
	h.record(fmt.Sprintf("list-commits-%d", limit))

	return []githost.CommitSummary{
		{
			SHA:     "c0",
			Message: "initial",
			Author:  "dev",
			Date: time.Date(
				2024, 5, 1, 12, 0, 0, 0, time.UTC,
			),
		},
	}, nil
}

func (h *stubHost) CreatePullRequest(
	_ context.Context,
	_, _ string,
	pr githost.NewPullRequest,
) (*githost.PullRequest, error) {
	h.record("create-pr")

	h.mu.Lock()
	h.gotNewPR = pr
	h.mu.Unlock()

	return &githost.PullRequest{
		Number: 7,
		Title:  pr.Title,
		Head:   pr.Head,
		Base:   pr.Base,
		State:  "open",
		URL:    "https://example.com/pr/7",
	}, nil
}

func (h *stubHost) AuthenticatedUser(
	_ context.Context,
) (string, error) {
	h.record("auth-user")

	if h.userErr != nil {
		return "", h.userErr
	}

	return "gateway-bot", nil
}

func (h *stubHost) RateLimit(
	_ context.Context,
) (*githost.RateLimit, error) {
	h.record("rate-limit")

	return &githost.RateLimit{
		Core: githost.Rate{
			Limit:     5000,
			Remaining: 4990,
		},
		GraphQL: githost.Rate{
			Limit:     5000,
			Remaining: 5000,
		},
	}, nil
}

// newTestServer builds a gateway handler over a fresh
// stub host.
func newTestServer(
	t *testing.T,
	host githost.Host,
) http.Handler {
	t.Helper()

	srv, err := gateway.NewServer(gateway.Config{
		APIKey: testKey,
		Host:   host,
	})
	require.NoError(t, err)

	return srv.Handler()
}

// do performs an authenticated request and decodes the
// JSON response into a generic map.
func do(
	t *testing.T,
	handler http.Handler,
	method string,
	path string,
	body string,
) (int, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(
		method, path, strings.NewReader(body),
	)
	req.Header.Set("X-API-Key", testKey)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var decoded map[string]any

	require.NoError(t, json.Unmarshal(
		rec.Body.Bytes(), &decoded,
	))

	return rec.Code, decoded
}

func TestNewServer_missingKey(t *testing.T) {
	t.Parallel()

	srv, err := gateway.NewServer(gateway.Config{
		Host: &stubHost{},
	})

	assert.Nil(t, srv)
	assert.ErrorContains(t, err, "api key")
}

func TestNewServer_missingHost(t *testing.T) {
	t.Parallel()

	srv, err := gateway.NewServer(gateway.Config{
		APIKey: testKey,
	})

	assert.Nil(t, srv)
	assert.ErrorContains(t, err, "host")
}

func TestAuth_missingKey(t *testing.T) {
	t.Parallel()

	host := &stubHost{}
	handler := newTestServer(t, host)

	req := httptest.NewRequest(
		http.MethodGet, "/api/rate-limit", nil,
	)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(
		t, http.StatusUnauthorized, rec.Code,
	)

	// Rejected before any host call.
	assert.Empty(t, host.calls)
}

func TestAuth_wrongKey(t *testing.T) {
	t.Parallel()

	host := &stubHost{}
	handler := newTestServer(t, host)

	req := httptest.NewRequest(
		http.MethodGet, "/api/rate-limit", nil,
	)
	req.Header.Set("X-API-Key", "nope")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(
		t, http.StatusUnauthorized, rec.Code,
	)
	assert.Empty(t, host.calls)
}

func TestHealth_noKeyRequired(t *testing.T) {
	t.Parallel()

	handler := newTestServer(t, &stubHost{})

	req := httptest.NewRequest(
		http.MethodGet, "/health", nil,
	)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any

	require.NoError(t, json.Unmarshal(
		rec.Body.Bytes(), &resp,
	))
	assert.Equal(t, "ok", resp["status"])

	upstream, ok := resp["github"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, upstream["connected"])
	assert.Equal(t, "gateway-bot", upstream["user"])
}

func TestHealth_degraded(t *testing.T) {
	t.Parallel()

	host := &stubHost{
		userErr: githost.ErrUnavailable,
	}
	handler := newTestServer(t, host)

	req := httptest.NewRequest(
		http.MethodGet, "/health", nil,
	)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(
		t, http.StatusServiceUnavailable, rec.Code,
	)

	var resp map[string]any

	require.NoError(t, json.Unmarshal(
		rec.Body.Bytes(), &resp,
	))

	upstream, ok := resp["github"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, upstream["connected"])
}

func TestUnknownRoute(t *testing.T) {
	t.Parallel()

	handler := newTestServer(t, &stubHost{})

	code, resp := do(
		t, handler,
		http.MethodGet, "/api/nope", "",
	)

	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "route not found", resp["error"])
}
