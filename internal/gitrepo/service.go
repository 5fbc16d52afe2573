package gitrepo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"martbuild/internal/common"
	"martbuild/pkg/errors"
	"martbuild/pkg/models"
)

// SyncResult reports the outcome of a models-repository sync
type SyncResult struct {
	Cloned bool
	Head   string
	Branch string
}

// CommitInfo identifies one commit of the models repository
type CommitInfo struct {
	Hash    string
	Message string
	Author  string
	Date    time.Time
}

// Service keeps a local checkout of the models repository in sync. The repo
// carries pipeline configuration and seed files shared across environments.
type Service struct {
	cfg models.ModelsRepo
}

// NewService creates a models-repository service
func NewService(cfg models.ModelsRepo) *Service {
	return &Service{cfg: cfg}
}

// Sync clones the repository if the local path is empty, otherwise fast
// forwards it to the remote branch head
func (s *Service) Sync(ctx context.Context) (*SyncResult, error) {
	if s.cfg.GitURL == "" {
		return nil, errors.ConfigError("No models repository configured", "models_repo.git_url").
			WithSuggestions("Run 'martbuild setup' to configure the models repository")
	}

	path, err := common.CleanPath(s.cfg.Path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRepoSyncFailed, "Invalid models repository path").
			WithContext("path", s.cfg.Path)
	}
	branch := s.cfg.Branch
	if branch == "" {
		branch = "main"
	}

	repo, err := git.PlainOpen(path)
	if err == git.ErrRepositoryNotExists {
		return s.clone(ctx, path, branch)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRepoSyncFailed, "Failed to open models repository").
			WithContext("path", path)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRepoSyncFailed, "Failed to get worktree")
	}

	err = worktree.PullContext(ctx, &git.PullOptions{
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		SingleBranch:  true,
	})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return nil, errors.Wrap(err, errors.ErrCodeRepoSyncFailed, "Failed to pull models repository").
			WithContext("branch", branch).
			AsRecoverable().
			WithSuggestions(
				"Check network connectivity",
				"Verify the branch exists on the remote",
			)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRepoSyncFailed, "Failed to resolve repository head")
	}

	return &SyncResult{Head: head.Hash().String(), Branch: branch}, nil
}

func (s *Service) clone(ctx context.Context, path, branch string) (*SyncResult, error) {
	repo, err := git.PlainCloneContext(ctx, path, false, &git.CloneOptions{
		URL:           s.cfg.GitURL,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		SingleBranch:  true,
		Depth:         1,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRepoSyncFailed, "Failed to clone models repository").
			WithContext("url", s.cfg.GitURL).
			WithContext("branch", branch).
			WithSuggestions("Verify the repository URL and your access to it")
	}

	head, err := repo.Head()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRepoSyncFailed, "Failed to resolve repository head")
	}

	return &SyncResult{Cloned: true, Head: head.Hash().String(), Branch: branch}, nil
}

// RecentCommits lists the newest commits of the local checkout
func (s *Service) RecentCommits(limit int) ([]CommitInfo, error) {
	path, err := common.CleanPath(s.cfg.Path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRepoSyncFailed, "Invalid models repository path").
			WithContext("path", s.cfg.Path)
	}

	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRepoSyncFailed, "Failed to open models repository").
			WithContext("path", path).
			WithSuggestions("Run 'martbuild models sync' first")
	}

	head, err := repo.Head()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRepoSyncFailed, "Failed to get HEAD reference")
	}

	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRepoSyncFailed, "Failed to read commit log")
	}

	var commits []CommitInfo
	err = iter.ForEach(func(c *object.Commit) error {
		if len(commits) >= limit {
			return fmt.Errorf("done")
		}
		commits = append(commits, CommitInfo{
			Hash:    c.Hash.String(),
			Message: strings.TrimSpace(c.Message),
			Author:  c.Author.Name,
			Date:    c.Author.When,
		})
		return nil
	})
	if err != nil && err.Error() != "done" {
		return nil, errors.Wrap(err, errors.ErrCodeRepoSyncFailed, "Failed to iterate commits")
	}
	return commits, nil
}
