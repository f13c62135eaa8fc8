package gpio

import "fmt"

// outputLine is the part of a requested output line needed to release it.
type outputLine interface {
	SetValue(v int) error
	Close() error
}

// releaseOutput drives line to its logical inactive level, then lets idle
// park it at a matching electrical level before closing it. Every step runs
// even if an earlier one failed.
func releaseOutput(line outputLine, idle func() error, name string) []error {
	var errs []error
	if err := line.SetValue(0); err != nil {
		errs = append(errs, fmt.Errorf("release %s pin: %w", name, err))
	}
	if idle != nil {
		if err := idle(); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", name, err))
		}
	}
	if err := line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close %s pin: %w", name, err))
	}
	return errs
}
