package assembler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/byte4ever/git_gateway/githost"
)

// defaultParallelism bounds concurrent blob creation
// when no explicit value is configured.
const defaultParallelism = 4

// Precondition errors returned before any host call is
// made.
var (
	// ErrNoFiles reports a commit request without any
	// files.
	ErrNoFiles = errors.New("no files to commit")

	// ErrNoMessage reports an empty commit message.
	ErrNoMessage = errors.New("empty commit message")
)

// Step names one link of the commit assembly chain.
type Step string

// Assembly steps, in execution order.
const (
	StepResolveRef   Step = "resolve-ref"
	StepLoadCommit   Step = "load-commit"
	StepCreateBlobs  Step = "create-blobs"
	StepCreateTree   Step = "create-tree"
	StepCreateCommit Step = "create-commit"
	StepUpdateRef    Step = "update-ref"
)

// StepError reports which step of the commit chain
// failed. It wraps the underlying host error.
type StepError struct {
	Step Step
	Err  error
}

// Error returns the step name followed by the
// underlying error.
func (e *StepError) Error() string {
	return string(e.Step) + ": " + e.Err.Error()
}

// Unwrap returns the underlying host error.
func (e *StepError) Unwrap() error {
	return e.Err
}

// File is one (path, content) pair to store in the
// commit.
type File struct {
	// Path is repository-relative.
	Path string
	// Content is the raw file content.
	Content string
}

// Result describes the commit created by a successful
// assembly.
type Result struct {
	SHA     string
	Message string
	URL     string
	Branch  string
}

// Host is the narrow set of primitives the assembler
// needs from a hosting service.
type Host interface {
	GetRef(
		ctx context.Context,
		owner string,
		repo string,
		ref string,
	) (*githost.Ref, error)

	UpdateRef(
		ctx context.Context,
		owner string,
		repo string,
		ref string,
		sha string,
	) (*githost.Ref, error)

	GetCommit(
		ctx context.Context,
		owner string,
		repo string,
		sha string,
	) (*githost.Commit, error)

	CreateBlob(
		ctx context.Context,
		owner string,
		repo string,
		content []byte,
	) (string, error)

	CreateTree(
		ctx context.Context,
		owner string,
		repo string,
		baseTree string,
		entries []githost.TreeEntry,
	) (string, error)

	CreateCommit(
		ctx context.Context,
		owner string,
		repo string,
		message string,
		treeSHA string,
		parents []string,
	) (*githost.Commit, error)
}

// Assembler builds multi-file commits through a Host.
type Assembler struct {
	host        Host
	parallelism int
}

// New returns an Assembler creating up to parallelism
// blobs concurrently. Values below one fall back to the
// default.
func New(host Host, parallelism int) *Assembler {
	if parallelism <= 0 {
		parallelism = defaultParallelism
	}

	return &Assembler{
		host:        host,
		parallelism: parallelism,
	}
}

// Commit creates one commit on branch containing all
// files, built on top of the branch's current tree.
// Files not mentioned in the request keep their current
// content. Either the branch advances by exactly one
// commit or it is left untouched; objects created
// before a failed ref update are orphaned but harmless.
func (a *Assembler) Commit(
	ctx context.Context,
	owner string,
	repo string,
	branch string,
	message string,
	files []File,
) (*Result, error) {
	if message == "" {
		return nil, ErrNoMessage
	}

	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	ref := "heads/" + branch

	// Step 1: resolve the branch head.
	head, err := a.host.GetRef(ctx, owner, repo, ref)
	if err != nil {
		return nil, &StepError{
			Step: StepResolveRef, Err: err,
		}
	}

	// Step 2: load the head commit for its tree.
	headCommit, err := a.host.GetCommit(
		ctx, owner, repo, head.SHA,
	)
	if err != nil {
		return nil, &StepError{
			Step: StepLoadCommit, Err: err,
		}
	}

	// Step 3: one blob per file, in parallel.
	entries, err := a.createBlobs(
		ctx, owner, repo, files,
	)
	if err != nil {
		return nil, &StepError{
			Step: StepCreateBlobs, Err: err,
		}
	}

	// Step 4: new tree as a delta on the current tree,
	// so unmentioned paths survive.
	treeSHA, err := a.host.CreateTree(
		ctx, owner, repo,
		headCommit.TreeSHA, entries,
	)
	if err != nil {
		return nil, &StepError{
			Step: StepCreateTree, Err: err,
		}
	}

	// Step 5: commit parented on the current head.
	commit, err := a.host.CreateCommit(
		ctx, owner, repo,
		message, treeSHA, []string{head.SHA},
	)
	if err != nil {
		return nil, &StepError{
			Step: StepCreateCommit, Err: err,
		}
	}

	// Step 6: advance the branch. Single point of
	// visible mutation; fast-forward only, so a
	// concurrent writer surfaces as ErrRefConflict.
	if _, err := a.host.UpdateRef(
		ctx, owner, repo, ref, commit.SHA,
	); err != nil {
		return nil, &StepError{
			Step: StepUpdateRef, Err: err,
		}
	}

	slog.Info(
		"assembled commit",
		"repo", owner+"/"+repo,
		"branch", branch,
		"sha", commit.SHA,
		"files", len(files),
	)

	return &Result{
		SHA:     commit.SHA,
		Message: message,
		URL:     commit.URL,
		Branch:  branch,
	}, nil
}

// createBlobs stores one blob per file through a worker
// pool bounded by the configured parallelism. Entries
// keep the request order regardless of completion
// order. Any failure discards the whole batch; workers
// already in flight are awaited, their results dropped.
func (a *Assembler) createBlobs(
	ctx context.Context,
	owner string,
	repo string,
	files []File,
) ([]githost.TreeEntry, error) {
	entries := make([]githost.TreeEntry, len(files))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	sem := make(chan struct{}, a.parallelism)

	for i, f := range files {
		// Check for context cancellation.
		if ctx.Err() != nil {
			mu.Lock()
			errs = append(errs, ctx.Err())
			mu.Unlock()

			break
		}

		sem <- struct{}{}

		// Stop issuing new calls once a failure is
		// recorded. A freed slot means its worker has
		// finished, so any failure it hit is already
		// visible here; workers still in flight are
		// awaited below and their results discarded.
		mu.Lock()
		failed := len(errs) > 0
		mu.Unlock()

		if failed {
			<-sem

			break
		}

		wg.Add(1)

		go func(idx int, file File) {
			defer wg.Done()
			defer func() { <-sem }()

			sha, blobErr := a.host.CreateBlob(
				ctx, owner, repo,
				[]byte(file.Content),
			)
			if blobErr != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf(
					"blob %s: %w",
					file.Path, blobErr,
				))
				mu.Unlock()

				return
			}

			entries[idx] = githost.TreeEntry{
				Path: file.Path,
				Mode: githost.ModeFile,
				Type: githost.TypeBlob,
				SHA:  sha,
			}
		}(i, f)
	}

	wg.Wait()

	if len(errs) > 0 {
		return nil, fmt.Errorf(
			"%d of %d blobs failed, first: %w",
			len(errs), len(files), errs[0],
		)
	}

	return entries, nil
}
