package gitclient

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"mcp-local-repo-analyzer/internal/model"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/go-git/go-git/v6/plumbing/storer"
)

// BranchInfo describes the current branch and how it relates to its upstream.
type BranchInfo struct {
	Name     string
	Detached bool
	// Upstream is "<remote>/<branch>", empty when none could be resolved.
	Upstream string
	Ahead    int
	Behind   int
}

// BranchInfo reports the current branch, its upstream and the ahead and
// behind counts against it. The upstream comes from the branch config, or
// origin/<branch> when that remote-tracking ref exists.
func (c *Client) BranchInfo(ctx context.Context, root string) (BranchInfo, error) {
	repo, err := openRepo(root)
	if err != nil {
		return BranchInfo{}, err
	}

	name, detached, err := currentBranch(repo)
	if err != nil {
		return BranchInfo{}, err
	}
	info := BranchInfo{Name: name, Detached: detached}

	head, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			// unborn branch
			return info, nil
		}
		return info, fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	if detached {
		return info, nil
	}

	upstream, upstreamRef, err := resolveUpstream(repo, name)
	if err != nil {
		if errors.Is(err, ErrNoUpstream) {
			return info, nil
		}
		return info, err
	}
	info.Upstream = upstream

	info.Ahead, info.Behind, err = aheadBehind(ctx, repo, head.Hash(), upstreamRef.Hash())
	if err != nil {
		return info, err
	}

	c.logger.Debug("Branch info", "branch", name, "upstream", upstream, "ahead", info.Ahead, "behind", info.Behind)
	return info, nil
}

// resolveUpstream finds the remote-tracking ref a local branch follows.
func resolveUpstream(repo *git.Repository, branch string) (string, *plumbing.Reference, error) {
	cfg, err := repo.Config()
	if err != nil {
		return "", nil, fmt.Errorf("failed to read repository config: %w", err)
	}

	if b, ok := cfg.Branches[branch]; ok && b.Remote != "" && b.Merge != "" && b.Remote != "." {
		merge := b.Merge.Short()
		ref, err := repo.Reference(plumbing.NewRemoteReferenceName(b.Remote, merge), true)
		if err == nil {
			return b.Remote + "/" + merge, ref, nil
		}
	}

	ref, err := repo.Reference(plumbing.NewRemoteReferenceName("origin", branch), true)
	if err == nil {
		return "origin/" + branch, ref, nil
	}

	return "", nil, fmt.Errorf("%w for %s", ErrNoUpstream, branch)
}

// reachable returns every commit reachable from the given tips.
func reachable(ctx context.Context, repo *git.Repository, tips ...plumbing.Hash) (map[plumbing.Hash]struct{}, error) {
	seen := make(map[plumbing.Hash]struct{})
	for _, tip := range tips {
		if _, ok := seen[tip]; ok {
			continue
		}
		iter, err := repo.Log(&git.LogOptions{From: tip})
		if err != nil {
			return nil, fmt.Errorf("failed to walk history from %s: %w", tip, err)
		}
		err = iter.ForEach(func(commit *object.Commit) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			seen[commit.Hash] = struct{}{}
			return nil
		})
		iter.Close()
		if err != nil {
			return nil, err
		}
	}
	return seen, nil
}

func aheadBehind(ctx context.Context, repo *git.Repository, local, upstream plumbing.Hash) (int, int, error) {
	if local == upstream {
		return 0, 0, nil
	}

	localSet, err := reachable(ctx, repo, local)
	if err != nil {
		return 0, 0, err
	}
	upstreamSet, err := reachable(ctx, repo, upstream)
	if err != nil {
		return 0, 0, err
	}

	ahead, behind := 0, 0
	for h := range localSet {
		if _, ok := upstreamSet[h]; !ok {
			ahead++
		}
	}
	for h := range upstreamSet {
		if _, ok := localSet[h]; !ok {
			behind++
		}
	}
	return ahead, behind, nil
}

// remoteTips returns the hashes of all remote-tracking refs.
func remoteTips(repo *git.Repository) ([]plumbing.Hash, error) {
	refs, err := repo.References()
	if err != nil {
		return nil, fmt.Errorf("failed to list references: %w", err)
	}
	defer refs.Close()

	var tips []plumbing.Hash
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		if ref.Name().IsRemote() && ref.Type() == plumbing.HashReference {
			tips = append(tips, ref.Hash())
		}
		return nil
	})
	return tips, err
}

// UnpushedCommits lists commits on branch (the current branch when empty)
// that its upstream does not contain, newest first. Without an upstream,
// commits reachable from any remote-tracking ref are excluded instead.
// A limit of zero or less returns every commit.
func (c *Client) UnpushedCommits(ctx context.Context, root, branch string, limit int) ([]model.UnpushedCommit, error) {
	repo, err := openRepo(root)
	if err != nil {
		return nil, err
	}

	explicit := branch != ""
	if !explicit {
		name, detached, err := currentBranch(repo)
		if err != nil {
			return nil, err
		}
		if !detached {
			branch = name
		}
	}

	var tip plumbing.Hash
	if branch == "" {
		head, err := repo.Head()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
		}
		tip = head.Hash()
	} else {
		ref, err := repo.Reference(plumbing.NewBranchReferenceName(branch), true)
		if err != nil {
			if errors.Is(err, plumbing.ErrReferenceNotFound) {
				if explicit {
					return nil, fmt.Errorf("branch %q not found", branch)
				}
				// unborn branch has nothing to push
				return nil, nil
			}
			return nil, fmt.Errorf("failed to resolve branch %s: %w", branch, err)
		}
		tip = ref.Hash()
	}

	var exclude []plumbing.Hash
	if branch != "" {
		if _, upstreamRef, err := resolveUpstream(repo, branch); err == nil {
			exclude = append(exclude, upstreamRef.Hash())
		}
	}
	if len(exclude) == 0 {
		exclude, err = remoteTips(repo)
		if err != nil {
			return nil, err
		}
	}

	excluded, err := reachable(ctx, repo, exclude...)
	if err != nil {
		return nil, err
	}

	iter, err := repo.Log(&git.LogOptions{From: tip, Order: git.LogOrderCommitterTime})
	if err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}
	defer iter.Close()

	var commits []model.UnpushedCommit
	err = iter.ForEach(func(commit *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, ok := excluded[commit.Hash]; ok {
			return nil
		}
		uc, err := toCommit(commit)
		if err != nil {
			return err
		}
		commits = append(commits, uc)
		if limit > 0 && len(commits) >= limit {
			return storer.ErrStop
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return commits, nil
}

// LogOptions filters Log.
type LogOptions struct {
	// Since is a date (YYYY-MM-DD or RFC 3339) or a revision. With a revision,
	// only commits not reachable from it are returned.
	Since string
	// Author matches the author name or email, case-insensitively.
	Author string
	// MaxCount bounds how many commits get change statistics. Zero means all.
	MaxCount int
}

// LogResult is the outcome of Log.
type LogResult struct {
	// Commits holds at most MaxCount commits, newest first.
	Commits []model.UnpushedCommit
	// Total counts every commit that matched the filters.
	Total int
}

// Log walks history from HEAD applying the filters in opts.
func (c *Client) Log(ctx context.Context, root string, opts LogOptions) (LogResult, error) {
	repo, err := openRepo(root)
	if err != nil {
		return LogResult{}, err
	}

	head, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return LogResult{}, nil
		}
		return LogResult{}, fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	logOpts := &git.LogOptions{From: head.Hash(), Order: git.LogOrderCommitterTime}
	var excluded map[plumbing.Hash]struct{}

	if since := strings.TrimSpace(opts.Since); since != "" {
		if t, ok := parseSinceDate(since); ok {
			logOpts.Since = &t
		} else {
			hash, err := repo.ResolveRevision(plumbing.Revision(since))
			if err != nil {
				return LogResult{}, fmt.Errorf("invalid since value %q: not a date (YYYY-MM-DD) or known revision", since)
			}
			excluded, err = reachable(ctx, repo, *hash)
			if err != nil {
				return LogResult{}, err
			}
		}
	}

	iter, err := repo.Log(logOpts)
	if err != nil {
		return LogResult{}, fmt.Errorf("failed to read log: %w", err)
	}
	defer iter.Close()

	author := strings.ToLower(strings.TrimSpace(opts.Author))
	var result LogResult
	err = iter.ForEach(func(commit *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, ok := excluded[commit.Hash]; ok {
			return nil
		}
		if author != "" &&
			!strings.Contains(strings.ToLower(commit.Author.Name), author) &&
			!strings.Contains(strings.ToLower(commit.Author.Email), author) {
			return nil
		}

		result.Total++
		if opts.MaxCount > 0 && len(result.Commits) >= opts.MaxCount {
			return nil
		}
		uc, err := toCommit(commit)
		if err != nil {
			return err
		}
		result.Commits = append(result.Commits, uc)
		return nil
	})
	if err != nil {
		return LogResult{}, err
	}

	return result, nil
}

func parseSinceDate(s string) (time.Time, bool) {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func toCommit(commit *object.Commit) (model.UnpushedCommit, error) {
	uc := model.UnpushedCommit{
		SHA:          commit.Hash.String(),
		Message:      strings.TrimRight(commit.Message, "\n"),
		Author:       commit.Author.Name,
		AuthorEmail:  commit.Author.Email,
		Date:         commit.Author.When,
		FilesChanged: []string{},
	}

	stats, err := commit.Stats()
	if err != nil {
		return uc, fmt.Errorf("failed to compute stats for %s: %w", commit.Hash, err)
	}
	for _, s := range stats {
		uc.FilesChanged = append(uc.FilesChanged, s.Name)
		uc.Insertions += s.Addition
		uc.Deletions += s.Deletion
	}
	return uc, nil
}

// BranchChanges lists the paths changed on each side since two branches
// diverged.
type BranchChanges struct {
	Target      string
	MergeBase   string
	TargetFiles []string // changed on the target branch since the merge base
	LocalFiles  []string // changed on HEAD since the merge base
}

// ChangesSinceMergeBase compares HEAD with the target branch. The target is
// looked up as a local branch, then as origin/<target>.
func (c *Client) ChangesSinceMergeBase(ctx context.Context, root, target string) (BranchChanges, error) {
	repo, err := openRepo(root)
	if err != nil {
		return BranchChanges{}, err
	}

	head, err := repo.Head()
	if err != nil {
		return BranchChanges{}, fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	targetRef, err := repo.Reference(plumbing.NewBranchReferenceName(target), true)
	if err != nil {
		targetRef, err = repo.Reference(plumbing.NewRemoteReferenceName("origin", target), true)
		if err != nil {
			return BranchChanges{}, fmt.Errorf("target branch %q not found", target)
		}
	}

	headCommit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return BranchChanges{}, fmt.Errorf("failed to read HEAD commit: %w", err)
	}
	targetCommit, err := repo.CommitObject(targetRef.Hash())
	if err != nil {
		return BranchChanges{}, fmt.Errorf("failed to read %s commit: %w", target, err)
	}

	bases, err := headCommit.MergeBase(targetCommit)
	if err != nil {
		return BranchChanges{}, fmt.Errorf("failed to compute merge base: %w", err)
	}

	result := BranchChanges{Target: target}
	if len(bases) == 0 {
		// unrelated histories: everything on both sides counts as changed
		result.TargetFiles, err = changedPaths(ctx, nil, targetCommit)
		if err != nil {
			return result, err
		}
		result.LocalFiles, err = changedPaths(ctx, nil, headCommit)
		return result, err
	}

	base := bases[0]
	result.MergeBase = base.Hash.String()
	if result.TargetFiles, err = changedPaths(ctx, base, targetCommit); err != nil {
		return result, err
	}
	if result.LocalFiles, err = changedPaths(ctx, base, headCommit); err != nil {
		return result, err
	}
	return result, nil
}

func changedPaths(ctx context.Context, from, to *object.Commit) ([]string, error) {
	toTree, err := to.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to read tree of %s: %w", to.Hash, err)
	}

	var fromTree *object.Tree
	if from != nil {
		if from.Hash == to.Hash {
			return nil, nil
		}
		if fromTree, err = from.Tree(); err != nil {
			return nil, fmt.Errorf("failed to read tree of %s: %w", from.Hash, err)
		}
	}

	changes, err := object.DiffTreeWithOptions(ctx, fromTree, toTree, object.DefaultDiffTreeOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to diff trees: %w", err)
	}

	set := make(map[string]struct{}, len(changes))
	for _, ch := range changes {
		if ch.From.Name != "" {
			set[ch.From.Name] = struct{}{}
		}
		if ch.To.Name != "" {
			set[ch.To.Name] = struct{}{}
		}
	}

	paths := make([]string, 0, len(set))
	for p := range set {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}
