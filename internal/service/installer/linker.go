package installer

import (
	"errors"
	"fmt"
	"os"
)

// LinkState captures the "current" symlink's situation at promotion time so
// a later rollback can restore it exactly. It is returned from promote and
// passed explicitly into rollback; it is only meaningful for the lifetime
// of the invocation that produced it.
type LinkState struct {
	// promoted records that promote completed and created a new link.
	promoted bool
	// hadPrevious records whether a link existed before promotion.
	hadPrevious bool
	// previousTarget is the pre-promotion link target, when hadPrevious.
	previousTarget string
}

// PreviousTarget returns the link target recorded before promotion and
// whether one existed at all.
func (s *LinkState) PreviousTarget() (string, bool) {
	if s == nil || !s.hadPrevious {
		return "", false
	}

	return s.previousTarget, true
}

// promote points the "current" symlink at installDir, capturing the prior
// target first. The switch deliberately happens before the post-install
// hook runs: hooks commonly read their working directory through the
// "current" pointer, so it must already reflect the new release.
func promote(installDir, currentLinkPath string) (*LinkState, error) {
	state := &LinkState{}

	if _, err := os.Lstat(currentLinkPath); err == nil {
		target, err := os.Readlink(currentLinkPath)
		if err != nil {
			return nil, fmt.Errorf("read current link: %w", err)
		}

		state.hadPrevious = true
		state.previousTarget = target

		if err := os.Remove(currentLinkPath); err != nil {
			return nil, fmt.Errorf("remove current link: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("inspect current link: %w", err)
	}

	if err := os.Symlink(installDir, currentLinkPath); err != nil {
		return nil, fmt.Errorf("create current link: %w", err)
	}

	state.promoted = true

	return state, nil
}

// rollback restores the "current" symlink to its pre-promotion state: the
// recorded previous target, or absent when none existed. Calling it when no
// promotion occurred (nil or unpromoted state) is a no-op, which makes the
// failure path safe to run unconditionally.
func rollback(state *LinkState, currentLinkPath string) error {
	if state == nil || !state.promoted {
		return nil
	}

	if err := os.Remove(currentLinkPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove current link: %w", err)
	}

	if !state.hadPrevious {
		return nil
	}

	if err := os.Symlink(state.previousTarget, currentLinkPath); err != nil {
		return fmt.Errorf("restore current link: %w", err)
	}

	return nil
}
