package domain

import "context"

// Fetcher streams a remote resource into a local file
type Fetcher interface {
	Fetch(ctx context.Context, url, dest string, onProgress func(ProgressSnapshot)) error
}

// Extractor unpacks an archive into a directory
type Extractor interface {
	Extract(ctx context.Context, archivePath, targetDir string) error
}

// Provisioner installs and updates managed binaries
type Provisioner interface {
	Ensure(ctx context.Context, name BinaryName) (ProvisionOutcome, error)
	ForceUpdate(ctx context.Context, name BinaryName) error
}

// JobRunner spawns fetch-tool jobs and reports their output through a sink
type JobRunner interface {
	// Submit returns once the child is running. Failures after that arrive
	// on sink as the terminal event.
	Submit(ctx context.Context, id string, req DownloadRequest, sink JobSink) error

	// Cancel kills a running job; its terminal event reports the cancellation.
	Cancel(id string) error
}
