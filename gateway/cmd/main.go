// Command git_gateway serves a small authenticated HTTP API in front
// of a git repository host: multi-file commits, repository and branch
// management, pull requests, and rate-limit inspection.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/byte4ever/git_gateway/gateway"
	"github.com/byte4ever/git_gateway/githost"
	"github.com/byte4ever/git_gateway/githost/github"
	"github.com/byte4ever/git_gateway/githost/gitlab"
)

// shutdownGrace bounds graceful shutdown after a
// termination signal.
const shutdownGrace = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // CLI flag setup is inherently long
func run() error {
	const errCtx = "running git_gateway"

	configPath := flag.String(
		"config", "",
		"Path to a YAML configuration file",
	)

	// Server flags.
	listenAddr := flag.String(
		"listen", "",
		"Listen address (host:port)",
	)
	apiKey := flag.String(
		"api_key", "",
		"Shared secret for the X-API-Key header",
	)
	defaultBranch := flag.String(
		"default_branch", "",
		"Branch used when requests omit one",
	)
	blobParallelism := flag.Int(
		"blob_parallelism", 0,
		"Concurrent blob creations per commit",
	)
	prBodyTemplate := flag.String(
		"pr_body_template", "",
		"Template for omitted PR bodies",
	)
	hostTimeout := flag.String(
		"host_timeout", "",
		"Per-call upstream timeout (e.g. 10s)",
	)

	// Pull request platform selection.
	prServer := flag.String(
		"pr_server", "",
		"Pull request platform: github or gitlab",
	)

	// GitHub-specific flags.
	ghToken := flag.String(
		"github_access_token", "",
		"GitHub personal access token",
	)
	ghEnterprise := flag.String(
		"github_enterprise_host", "",
		"GitHub Enterprise hostname",
	)
	ghOrg := flag.String(
		"github_org", "",
		"Organisation for created repositories",
	)

	// GitLab-specific flags.
	glHost := flag.String(
		"gitlab_host", "",
		"GitLab instance URL",
	)
	glToken := flag.String(
		"gitlab_access_token", "",
		"GitLab personal access token",
	)

	flag.Parse()

	fileCfg := &gateway.FileConfig{}

	if *configPath != "" {
		var err error

		fileCfg, err = gateway.LoadFileConfig(
			*configPath,
		)
		if err != nil {
			return fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}
	}

	// Flags override file values.
	addr := pick(
		*listenAddr, fileCfg.ListenAddr, ":8080",
	)

	timeout, err := parseTimeout(pick(
		*hostTimeout, fileCfg.HostTimeout, "",
	))
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	host, err := github.NewClient(github.Config{
		AccessToken: pick(
			*ghToken,
			fileCfg.GitHub.AccessToken, "",
		),
		EnterpriseHost: pick(
			*ghEnterprise,
			fileCfg.GitHub.EnterpriseHost, "",
		),
		Org: pick(
			*ghOrg, fileCfg.GitHub.Org, "",
		),
		Timeout: timeout,
	})
	if err != nil {
		return fmt.Errorf(
			"%s: github client: %w", errCtx, err,
		)
	}

	prs, err := newPullRequester(
		pick(*prServer, fileCfg.PRServer, "github"),
		host,
		gitlab.Config{
			Host: pick(
				*glHost, fileCfg.GitLab.Host, "",
			),
			AccessToken: pick(
				*glToken,
				fileCfg.GitLab.AccessToken, "",
			),
		},
	)
	if err != nil {
		return fmt.Errorf(
			"%s: pull requester: %w", errCtx, err,
		)
	}

	parallelism := *blobParallelism
	if parallelism == 0 {
		parallelism = fileCfg.BlobParallelism
	}

	server, err := gateway.NewServer(gateway.Config{
		APIKey: pick(
			*apiKey, fileCfg.APIKey, "",
		),
		DefaultBranch: pick(
			*defaultBranch,
			fileCfg.DefaultBranch, "",
		),
		BlobParallelism: parallelism,
		PRBodyTemplate: pick(
			*prBodyTemplate,
			fileCfg.PRBodyTemplate, "",
		),
		Host:          host,
		PullRequester: prs,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return serve(addr, server.Handler())
}

// serve runs the HTTP server until SIGINT/SIGTERM, then
// shuts down gracefully.
func serve(
	addr string,
	handler http.Handler,
) error {
	const errCtx = "serving http"

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errs := make(chan error, 1)

	go func() {
		slog.Info("listening", "addr", addr)

		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return fmt.Errorf("%s: %w", errCtx, err)
	case <-ctx.Done():
	}

	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(), shutdownGrace,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf(
			"%s: shutdown: %w", errCtx, err,
		)
	}

	return nil
}

// newPullRequester selects the pull request platform.
// Pattern: Factory -- mirrors host selection at
// runtime.
func newPullRequester(
	server string,
	host githost.PullRequester,
	glCfg gitlab.Config,
) (githost.PullRequester, error) {
	const errCtx = "creating pull requester"

	switch server {
	case "github":
		return host, nil

	case "gitlab":
		p, err := gitlab.NewProvider(glCfg)
		if err != nil {
			return nil, fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}

		return p, nil

	default:
		return nil, fmt.Errorf(
			"%s: unknown server %q", errCtx, server,
		)
	}
}

// pick returns the first non-empty value.
func pick(flagVal, fileVal, fallback string) string {
	if flagVal != "" {
		return flagVal
	}

	if fileVal != "" {
		return fileVal
	}

	return fallback
}

// parseTimeout parses a duration string, empty meaning
// zero (client default).
func parseTimeout(v string) (time.Duration, error) {
	if v == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf(
			"invalid host timeout %q: %w", v, err,
		)
	}

	return d, nil
}
