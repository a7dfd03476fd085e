package gateway

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// FileConfig mirrors the optional YAML configuration
// file. Flags overlay these values in the command.
type FileConfig struct {
	// ListenAddr is the host:port the gateway binds.
	ListenAddr string `yaml:"listen_addr"`

	// APIKey is the shared secret callers must send in
	// the X-API-Key header.
	APIKey string `yaml:"api_key"`

	// DefaultBranch is used when a request omits the
	// branch (commits) or base branch (PRs, branch
	// creation).
	DefaultBranch string `yaml:"default_branch"`

	// BlobParallelism bounds concurrent blob creation
	// during commit assembly.
	BlobParallelism int `yaml:"blob_parallelism"`

	// PRBodyTemplate renders the pull request body
	// when a request omits it. Variables: {{title}},
	// {{head}}, {{base}}.
	PRBodyTemplate string `yaml:"pr_body_template"`

	// PRServer selects the pull request platform:
	// "github" (default) or "gitlab".
	PRServer string `yaml:"pr_server"`

	// HostTimeout bounds each upstream call, in Go
	// duration syntax (e.g. "10s").
	HostTimeout string `yaml:"host_timeout"`

	GitHub GitHubFileConfig `yaml:"github"`
	GitLab GitLabFileConfig `yaml:"gitlab"`
}

// GitHubFileConfig holds the GitHub host settings.
type GitHubFileConfig struct {
	AccessToken    string `yaml:"access_token"`
	EnterpriseHost string `yaml:"enterprise_host"`
	Org            string `yaml:"org"`
}

// GitLabFileConfig holds the GitLab provider settings.
type GitLabFileConfig struct {
	Host        string `yaml:"host"`
	AccessToken string `yaml:"access_token"`
}

// LoadFileConfig reads and decodes a YAML configuration
// file.
func LoadFileConfig(path string) (*FileConfig, error) {
	const errCtx = "loading config file"

	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	defer f.Close() //nolint:errcheck

	var cfg FileConfig

	if err := yaml.NewDecoder(f).
		Decode(&cfg); err != nil {
		return nil, fmt.Errorf(
			"%s: decoding yaml: %w", errCtx, err,
		)
	}

	return &cfg, nil
}
