package domain

import "errors"

// Error taxonomy shared by provisioning and job orchestration. Callers classify with errors.Is.
var (
	ErrNetwork             = errors.New("network error")
	ErrIO                  = errors.New("io error")
	ErrCorruptArchive      = errors.New("corrupt archive")
	ErrToolNotFound        = errors.New("tool not found")
	ErrSpawnFailed         = errors.New("spawn failed")
	ErrUnsupportedPlatform = errors.New("unsupported platform")

	ErrJobNotFound    = errors.New("job not found")
	ErrJobFinished    = errors.New("job already finished")
	ErrInvalidRequest = errors.New("invalid request")
)
