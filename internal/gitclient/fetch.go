package gitclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/transport"
)

// RemoteURL returns the first URL configured for the named remote.
func (c *Client) RemoteURL(root, remote string) (string, error) {
	repo, err := openRepo(root)
	if err != nil {
		return "", err
	}

	r, err := repo.Remote(remote)
	if err != nil {
		if errors.Is(err, git.ErrRemoteNotFound) {
			return "", fmt.Errorf("remote %q not found", remote)
		}
		return "", fmt.Errorf("failed to get remote %s: %w", remote, err)
	}
	if urls := r.Config().URLs; len(urls) > 0 {
		return urls[0], nil
	}
	return "", nil
}

// Fetch updates the remote-tracking refs of the named remote. auth may be nil
// for public remotes or local paths. An up to date remote is not an error.
func (c *Client) Fetch(ctx context.Context, root, remote string, auth transport.AuthMethod) error {
	repo, err := openRepo(root)
	if err != nil {
		return err
	}

	if _, err := repo.Remote(remote); err != nil {
		if errors.Is(err, git.ErrRemoteNotFound) {
			return fmt.Errorf("remote %q not found", remote)
		}
		return fmt.Errorf("failed to get remote %s: %w", remote, err)
	}

	c.logger.Info("Fetching remote", "root", root, "remote", remote, "authenticated", auth != nil)

	err = repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: remote,
		Auth:       auth,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to fetch %s: %w", remote, err)
	}

	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		c.logger.Debug("Remote already up to date", "remote", remote)
	}
	return nil
}
