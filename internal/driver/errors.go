package driver

import (
	"errors"
	"fmt"
)

var ErrPipelineNotRunning = errors.New("driver: pipeline not running")

// IoError carries the transport failure that stopped the pipeline.
type IoError struct {
	Err error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("driver: io: %v", e.Err)
}

func (e *IoError) Unwrap() error {
	return e.Err
}

func notRunning(cause error) error {
	if cause == nil {
		return ErrPipelineNotRunning
	}
	return fmt.Errorf("%w: %w", ErrPipelineNotRunning, &IoError{Err: cause})
}
