package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/afero"
	"github.com/yourusername/ytfetch-go/internal/domain"
	"github.com/yourusername/ytfetch-go/internal/platform"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const cancelledMessage = "download cancelled"

// Orchestrator runs yt-dlp jobs. Every job gets its own context derived from
// the orchestrator's root context, a task group for the two output readers,
// and a waiter goroutine that emits the single terminal event.
type Orchestrator struct {
	fs       afero.Fs
	resolver *platform.Resolver
	builder  *ArgumentBuilder
	logsDir  string
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu   sync.Mutex
	jobs map[string]*job
}

type job struct {
	id        string
	req       domain.DownloadRequest
	cmd       *exec.Cmd
	sink      domain.JobSink
	cancel    context.CancelFunc
	cancelled atomic.Bool
	done      chan struct{}
}

// NewOrchestrator creates a new orchestrator. logsDir may be empty to skip the raw download log.
func NewOrchestrator(fs afero.Fs, resolver *platform.Resolver, builder *ArgumentBuilder, logsDir string, logger *zap.Logger) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		fs:       fs,
		resolver: resolver,
		builder:  builder,
		logsDir:  logsDir,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		jobs:     make(map[string]*job),
	}
}

// Submit spawns yt-dlp for req and returns once the process is running.
// ErrToolNotFound and ErrSpawnFailed are returned without emitting any event.
// After a nil return, sink receives line events and exactly one complete event.
// ctx only bounds submission; the job itself lives until it exits, is
// cancelled, or the orchestrator shuts down.
func (o *Orchestrator) Submit(ctx context.Context, id string, req domain.DownloadRequest, sink domain.JobSink) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if sink == nil {
		sink = func(domain.JobEvent) {}
	}

	fetchTool, ok := o.resolver.Resolve(domain.BinaryYtDlp)
	if !ok {
		return fmt.Errorf("%w: %s is not installed in %s", domain.ErrToolNotFound, domain.BinaryYtDlp, o.resolver.Dir())
	}
	transcodeTool, _ := o.resolver.Resolve(domain.BinaryFFmpeg)

	args := o.builder.Build(req, transcodeTool)

	o.mu.Lock()
	if _, exists := o.jobs[id]; exists {
		o.mu.Unlock()
		return fmt.Errorf("job %s already running", id)
	}
	if o.ctx.Err() != nil {
		o.mu.Unlock()
		return fmt.Errorf("%w: orchestrator is shut down", domain.ErrSpawnFailed)
	}

	jobCtx, cancel := context.WithCancel(o.ctx)
	cmd := exec.CommandContext(jobCtx, fetchTool, args...)
	setProcAttr(cmd)
	cmd.WaitDelay = 5 * time.Second

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		o.mu.Unlock()
		cancel()
		return fmt.Errorf("%w: stdout pipe: %w", domain.ErrSpawnFailed, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		o.mu.Unlock()
		cancel()
		return fmt.Errorf("%w: stderr pipe: %w", domain.ErrSpawnFailed, err)
	}

	if err := cmd.Start(); err != nil {
		o.mu.Unlock()
		cancel()
		return fmt.Errorf("%w: %w", domain.ErrSpawnFailed, err)
	}

	j := &job{
		id:     id,
		req:    req,
		cmd:    cmd,
		sink:   sink,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	o.jobs[id] = j
	o.wg.Add(1)
	o.mu.Unlock()

	cmdLine := ShellEscapeCommand(fetchTool, args...)
	o.logger.Info("Job started",
		zap.String("id", id),
		zap.String("url", req.URL),
		zap.Int("pid", cmd.Process.Pid),
		zap.String("command", cmdLine))

	go o.run(j, cmdLine, stdout, stderr)

	return nil
}

// CommandLine returns the shell-escaped invocation Submit would run for req.
func (o *Orchestrator) CommandLine(req domain.DownloadRequest) string {
	transcodeTool, _ := o.resolver.Resolve(domain.BinaryFFmpeg)
	return ShellEscapeCommand(o.resolver.Path(domain.BinaryYtDlp), o.builder.Build(req, transcodeTool)...)
}

// Cancel kills the job's process. The terminal event reports success=false
// with a cancellation reason.
func (o *Orchestrator) Cancel(id string) error {
	o.mu.Lock()
	j, ok := o.jobs[id]
	o.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrJobNotFound, id)
	}

	j.cancelled.Store(true)
	j.cancel()

	o.logger.Info("Job cancel requested", zap.String("id", id))
	return nil
}

// Done returns a channel closed after the job's terminal event, or nil for unknown jobs.
func (o *Orchestrator) Done(id string) <-chan struct{} {
	o.mu.Lock()
	defer o.mu.Unlock()
	if j, ok := o.jobs[id]; ok {
		return j.done
	}
	return nil
}

// Running returns the ids of jobs that have not emitted their terminal event.
func (o *Orchestrator) Running() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	ids := make([]string, 0, len(o.jobs))
	for id := range o.jobs {
		ids = append(ids, id)
	}
	return ids
}

// Shutdown kills all running jobs and waits for their goroutines to finish.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	for _, j := range o.jobs {
		j.cancelled.Store(true)
	}
	o.mu.Unlock()
	o.cancel()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) run(j *job, cmdLine string, stdout, stderr io.ReadCloser) {
	defer o.wg.Done()
	defer j.cancel()

	dlog, err := openJobLog(o.fs, o.logsDir, j.id)
	if err != nil {
		o.logger.Warn("Failed to open download log", zap.String("id", j.id), zap.Error(err))
	}
	defer dlog.Close()
	dlog.header(cmdLine)

	for _, note := range o.builder.Limitations(j.req) {
		o.logger.Warn("Request option not applied", zap.String("id", j.id), zap.String("note", note))
		dlog.line(string(domain.StreamSystem), note)
		j.sink(domain.JobEvent{
			JobID:     j.id,
			Kind:      domain.JobEventLine,
			Stream:    domain.StreamSystem,
			Line:      note,
			Timestamp: time.Now(),
		})
	}

	printed := &printCollector{}
	var group errgroup.Group
	group.Go(func() error { return o.readLines(j, domain.StreamStdout, stdout, dlog, printed) })
	group.Go(func() error { return o.readLines(j, domain.StreamStderr, stderr, dlog, nil) })

	readErr := group.Wait()
	waitErr := j.cmd.Wait()

	result := o.result(j, waitErr, printed)
	if readErr != nil {
		o.logger.Warn("Output reader failed", zap.String("id", j.id), zap.Error(readErr))
	}

	dlog.footer(result.Success, result.Message)
	o.logger.Info("Job finished",
		zap.String("id", j.id),
		zap.Bool("success", result.Success),
		zap.Int("exit_code", result.ExitCode),
		zap.String("message", result.Message))

	o.mu.Lock()
	delete(o.jobs, j.id)
	o.mu.Unlock()

	j.sink(domain.JobEvent{
		JobID:     j.id,
		Kind:      domain.JobEventComplete,
		Result:    &result,
		Timestamp: time.Now(),
	})
	close(j.done)
}

// readLines forwards every line of r in order, blank ones included. On a
// scanner error a system line reports it and the rest of the stream is
// drained so the child never blocks on a full pipe.
func (o *Orchestrator) readLines(j *job, stream domain.Stream, r io.Reader, dlog *jobLog, printed *printCollector) error {
	sc := newLineScanner(r)
	for sc.Scan() {
		line := strings.ToValidUTF8(sc.Text(), "�")

		dlog.line(string(stream), line)
		if printed != nil {
			printed.observe(line)
		}

		ev := domain.JobEvent{
			JobID:     j.id,
			Kind:      domain.JobEventLine,
			Stream:    stream,
			Line:      line,
			Timestamp: time.Now(),
		}
		if pct, ok := parseDownloadPercent(line); ok {
			pct = domain.ClampPercent(pct)
			ev.Percent = &pct
		}
		j.sink(ev)
	}

	if err := sc.Err(); err != nil {
		notice := fmt.Sprintf("%s reading stopped (%v); rest of %s discarded", stream, err, stream)
		dlog.line(string(domain.StreamSystem), notice)
		j.sink(domain.JobEvent{
			JobID:     j.id,
			Kind:      domain.JobEventLine,
			Stream:    domain.StreamSystem,
			Line:      notice,
			Timestamp: time.Now(),
		})
		io.Copy(io.Discard, r)
		return fmt.Errorf("%s: %w", stream, err)
	}
	return nil
}

// result maps the wait outcome to the terminal result. A child that exited
// 0 succeeded even if a cancel raced its exit.
func (o *Orchestrator) result(j *job, waitErr error, printed *printCollector) domain.JobResult {
	if waitErr != nil && j.cancelled.Load() {
		return domain.JobResult{
			Success:   false,
			ExitCode:  exitCode(j.cmd, waitErr),
			Message:   cancelledMessage,
			Cancelled: true,
		}
	}

	if waitErr != nil {
		code := exitCode(j.cmd, waitErr)
		msg := fmt.Sprintf("yt-dlp exited with code %d", code)
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			msg = fmt.Sprintf("yt-dlp failed: %v", waitErr)
		}
		return domain.JobResult{Success: false, ExitCode: code, Message: msg}
	}

	title, filename, size := printed.resolve(o.fs)
	return domain.JobResult{
		Success:  true,
		ExitCode: 0,
		Message:  "Download completed successfully",
		Title:    title,
		Filename: filename,
		FileSize: size,
	}
}

func exitCode(cmd *exec.Cmd, waitErr error) int {
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return exitErr.ExitCode()
	}
	if waitErr == nil && cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	return -1
}
