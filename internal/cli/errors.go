package cli

import (
	"errors"
	"fmt"

	"repologic/internal/domain"
)

// hint adds the next step to errors a user can fix by running another
// command first.
func hint(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrCorruption):
		return fmt.Errorf("%w (re-run `repologic chunk` and `repologic embed` to rebuild)", err)
	case errors.Is(err, domain.ErrDimensionMismatch):
		return fmt.Errorf("%w (the embedding model changed since the index was built, re-run `repologic embed`)", err)
	case errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("%w (run `repologic chunk` then `repologic embed` for repo %q)", err, currentRepo())
	case errors.Is(err, domain.ErrBusy):
		return fmt.Errorf("%w (wait for the running chunk or embed to finish and retry)", err)
	case errors.Is(err, domain.ErrTimeout):
		return fmt.Errorf("%w (raise timeout_seconds in the config)", err)
	}
	return err
}
