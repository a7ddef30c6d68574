// Package gitsrc fetches a deployment's source tree from a remote
// repository, the "remote_repo" half of spec.md's two source kinds (the
// other half, uploaded_archive, is internal/archive).
//
// A shallow, single-branch clone via go-git/v5 replaces shelling out to the
// system git binary: the control plane's own container image carries no
// git binary, and go-git gives the same depth-1/single-branch clone
// entirely in-process, with progress captured as a plain io.Writer instead
// of parsed off a subprocess's stderr.
package gitsrc

import (
	"fmt"
	"io"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Clone fetches repoURL at branch into destDir via a shallow (depth 1),
// single-branch clone. destDir must not already exist; go-git creates it.
// progress, if non-nil, receives clone progress output.
func Clone(repoURL, branch, destDir string, progress io.Writer) error {
	_, err := git.PlainClone(destDir, false, &git.CloneOptions{
		URL:           repoURL,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		SingleBranch:  true,
		Depth:         1,
		Progress:      progress,
	})
	if err != nil {
		return fmt.Errorf("git clone failed for %q (branch %q): %w", repoURL, branch, err)
	}
	return nil
}
