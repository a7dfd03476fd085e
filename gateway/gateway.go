package gateway

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/byte4ever/git_gateway/assembler"
	"github.com/byte4ever/git_gateway/githost"
)

// apiKeyHeader carries the shared secret on every
// authenticated route.
const apiKeyHeader = "X-API-Key"

// defaultPRBodyTemplate renders the pull request body
// when a request omits it.
const defaultPRBodyTemplate = "Merge {{head}} into {{base}}."

// recentCommitCount is how many commits the status
// endpoint reports.
const recentCommitCount = 10

// Config holds all settings for a gateway server.
type Config struct {
	// APIKey is the shared secret callers must send in
	// the X-API-Key header.
	APIKey string

	// DefaultBranch is used when a request omits the
	// branch. Empty means "main".
	DefaultBranch string

	// BlobParallelism bounds concurrent blob creation
	// during commit assembly. Zero means the assembler
	// default.
	BlobParallelism int

	// PRBodyTemplate renders the pull request body
	// when a request omits it. Empty means the
	// built-in template.
	PRBodyTemplate string

	// Host is the repository hosting service.
	Host githost.Host

	// PullRequester creates pull requests. Nil means
	// Host is used.
	PullRequester githost.PullRequester
}

// Server handles the gateway's HTTP surface.
type Server struct {
	host          githost.Host
	prs           githost.PullRequester
	asm           *assembler.Assembler
	apiKey        string
	defaultBranch string
	bodyTemplate  string
	started       time.Time
}

// NewServer validates cfg and returns a Server ready to
// serve.
func NewServer(cfg Config) (*Server, error) {
	const errCtx = "creating gateway server"

	if cfg.APIKey == "" {
		return nil, fmt.Errorf(
			"%s: api key must be set", errCtx,
		)
	}

	if cfg.Host == nil {
		return nil, fmt.Errorf(
			"%s: host must be set", errCtx,
		)
	}

	defaultBranch := cfg.DefaultBranch
	if defaultBranch == "" {
		defaultBranch = "main"
	}

	prs := cfg.PullRequester
	if prs == nil {
		prs = cfg.Host
	}

	bodyTemplate := cfg.PRBodyTemplate
	if bodyTemplate == "" {
		bodyTemplate = defaultPRBodyTemplate
	}

	return &Server{
		host: cfg.Host,
		prs:  prs,
		asm: assembler.New(
			cfg.Host, cfg.BlobParallelism,
		),
		apiKey:        cfg.APIKey,
		defaultBranch: defaultBranch,
		bodyTemplate:  bodyTemplate,
		started:       time.Now(),
	}, nil
}

// Handler returns the gateway's route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(
		"GET /health", s.handleHealth,
	)
	mux.Handle(
		"POST /api/repos/create",
		s.auth(s.handleCreateRepo),
	)
	mux.Handle(
		"POST /api/repos/{owner}/{repo}/commit",
		s.auth(s.handleCommit),
	)
	mux.Handle(
		"GET /api/repos/{owner}/{repo}/status",
		s.auth(s.handleStatus),
	)
	mux.Handle(
		"POST /api/repos/{owner}/{repo}/branch",
		s.auth(s.handleCreateBranch),
	)
	mux.Handle(
		"POST /api/repos/{owner}/{repo}/pr",
		s.auth(s.handleCreatePR),
	)
	mux.Handle(
		"DELETE /api/repos/{owner}/{repo}",
		s.auth(s.handleDeleteRepo),
	)
	mux.Handle(
		"GET /api/rate-limit",
		s.auth(s.handleRateLimit),
	)
	mux.HandleFunc("/", s.handleUnknown)

	return logRequests(mux)
}

// auth enforces the shared-secret header. Mismatch or
// absence yields 401 before any host call; no details
// are leaked.
func (s *Server) auth(
	next http.HandlerFunc,
) http.Handler {
	return http.HandlerFunc(func(
		w http.ResponseWriter,
		r *http.Request,
	) {
		key := r.Header.Get(apiKeyHeader)

		if subtle.ConstantTimeCompare(
			[]byte(key), []byte(s.apiKey),
		) != 1 {
			writeError(
				w, http.StatusUnauthorized,
				"unauthorized", "",
			)

			return
		}

		next(w, r)
	})
}

// handleUnknown answers unmatched routes with the
// uniform JSON body instead of the mux default.
func (s *Server) handleUnknown(
	w http.ResponseWriter,
	r *http.Request,
) {
	writeError(
		w, http.StatusNotFound,
		"route not found",
		r.Method+" "+r.URL.Path,
	)
}

// statusRecorder captures the response status for
// request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

// WriteHeader records the status before delegating.
func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// logRequests logs one line per request.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(
		w http.ResponseWriter,
		r *http.Request,
	) {
		rec := &statusRecorder{
			ResponseWriter: w,
			status:         http.StatusOK,
		}

		start := time.Now()

		next.ServeHTTP(rec, r)

		slog.Info(
			"request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
