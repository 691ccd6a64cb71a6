package streamcache

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by OpenRead (and by Delete on backends that say
	// so) when no committed blob exists for the key.
	ErrNotFound = errors.New("streamcache: not found")

	// ErrClosed is returned by any operation on a closed Cache or handle,
	// including a second Close of a WriteHandle.
	ErrClosed = errors.New("streamcache: use after close")

	// ErrExhausted is the umbrella for resource exhaustion.
	// ErrTooLarge and ErrRejected both match it with errors.Is.
	ErrExhausted = errors.New("streamcache: resource exhausted")

	// ErrTooLarge is returned by Write when a blob would exceed the backend's
	// size limit. The handle is poisoned: Close returns the error and commits nothing.
	ErrTooLarge = fmt.Errorf("%w: blob too large", ErrExhausted)

	// ErrRejected is returned by Close when the storage refused the commit
	// (e.g. admission under memory pressure). The store is unchanged.
	ErrRejected = fmt.Errorf("%w: write rejected by provider", ErrExhausted)
)

// DeleteError reports a Delete that could not fully take effect.
type DeleteError struct {
	Key     string
	BumpErr error
	DelErr  error
}

func (e *DeleteError) Error() string {
	switch {
	case e.BumpErr != nil && e.DelErr != nil:
		return fmt.Sprintf("streamcache: delete %q failed: gen bump and delete failed: bump=%v; delete=%v",
			e.Key, e.BumpErr, e.DelErr)
	case e.BumpErr != nil:
		return fmt.Sprintf("streamcache: delete %q: gen bump failed: %v", e.Key, e.BumpErr)
	case e.DelErr != nil:
		return fmt.Sprintf("streamcache: delete %q: provider delete failed: %v", e.Key, e.DelErr)
	default:
		return fmt.Sprintf("streamcache: delete %q: unknown error", e.Key)
	}
}

func (e *DeleteError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.BumpErr != nil {
		errs = append(errs, e.BumpErr)
	}
	if e.DelErr != nil {
		errs = append(errs, e.DelErr)
	}
	return errs
}

func notFound(op, key string) error {
	return fmt.Errorf("%s %q: %w", op, key, ErrNotFound)
}

func closedErr(op string) error {
	return fmt.Errorf("%s: %w", op, ErrClosed)
}
