package infrastructure

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
	"github.com/yourusername/ytfetch-go/internal/domain"
	"github.com/yourusername/ytfetch-go/internal/platform"
	"go.uber.org/zap"
)

// BinaryProvisioner installs and updates managed binaries inside the
// resolver's directory. Operations on the same binary name are serialized;
// different names proceed in parallel.
type BinaryProvisioner struct {
	fs        afero.Fs
	resolver  *platform.Resolver
	fetcher   domain.Fetcher
	extractor domain.Extractor
	sink      domain.ProvisioningSink
	logger    *zap.Logger

	mu    sync.Mutex
	locks map[domain.BinaryName]chan struct{} // per-name semaphores (limit=1 each)
}

// NewBinaryProvisioner creates a new provisioner. A nil sink discards events.
func NewBinaryProvisioner(
	fs afero.Fs,
	resolver *platform.Resolver,
	fetcher domain.Fetcher,
	extractor domain.Extractor,
	sink domain.ProvisioningSink,
	logger *zap.Logger,
) *BinaryProvisioner {
	if sink == nil {
		sink = func(domain.ProvisioningEvent) {}
	}
	return &BinaryProvisioner{
		fs:        fs,
		resolver:  resolver,
		fetcher:   fetcher,
		extractor: extractor,
		sink:      sink,
		logger:    logger,
		locks:     make(map[domain.BinaryName]chan struct{}),
	}
}

// Ensure installs name unless it is already present. A present binary is
// reported without touching the network.
func (p *BinaryProvisioner) Ensure(ctx context.Context, name domain.BinaryName) (domain.ProvisionOutcome, error) {
	release, err := p.acquire(ctx, name)
	if err != nil {
		return "", err
	}
	defer release()

	if path, ok := p.resolver.Resolve(name); ok {
		p.logger.Debug("Binary already present",
			zap.String("binary", string(name)),
			zap.String("path", path))
		return domain.OutcomeAlreadyPresent, nil
	}

	if err := p.install(ctx, name); err != nil {
		return "", err
	}
	return domain.OutcomeInstalled, nil
}

// ForceUpdate reinstalls name from upstream regardless of what is on disk.
func (p *BinaryProvisioner) ForceUpdate(ctx context.Context, name domain.BinaryName) error {
	release, err := p.acquire(ctx, name)
	if err != nil {
		return err
	}
	defer release()

	return p.install(ctx, name)
}

func (p *BinaryProvisioner) acquire(ctx context.Context, name domain.BinaryName) (func(), error) {
	p.mu.Lock()
	sem, ok := p.locks[name]
	if !ok {
		sem = make(chan struct{}, 1)
		p.locks[name] = sem
	}
	p.mu.Unlock()

	select {
	case sem <- struct{}{}:
		return func() { <-sem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *BinaryProvisioner) install(ctx context.Context, name domain.BinaryName) (err error) {
	profile := p.resolver.Profile()

	src, err := profile.Source(name)
	if err != nil {
		p.fail(name, err)
		return err
	}

	dir := p.resolver.Dir()
	if err := p.fs.MkdirAll(dir, 0755); err != nil {
		err = fmt.Errorf("%w: create binaries dir: %w", domain.ErrIO, err)
		p.fail(name, err)
		return err
	}

	// every file of this install goes if any step fails, so a half
	// installed zip tool never resolves as present
	var installed []string
	defer func() {
		if err != nil {
			for _, path := range installed {
				p.discard(path)
			}
			p.fail(name, err)
		}
	}()

	p.logger.Info("Provisioning binary",
		zap.String("binary", string(name)),
		zap.String("kind", string(src.Kind)),
		zap.String("dir", dir))
	p.sink(domain.NewProvisioningStatus(name, domain.PhaseDownloading, 0))

	switch src.Kind {
	case domain.SourceDirect:
		target := p.resolver.Path(name)
		if err := p.fetcher.Fetch(ctx, src.URL, target, p.progress(name)); err != nil {
			p.discard(target)
			return err
		}
		installed = append(installed, target)

	case domain.SourceZip:
		for _, archive := range src.Archives {
			paths, aerr := p.installArchive(ctx, name, dir, archive, profile)
			if aerr != nil {
				return aerr
			}
			installed = append(installed, paths...)
		}

	default:
		return fmt.Errorf("%w: unknown source kind %q for %s", domain.ErrUnsupportedPlatform, src.Kind, name)
	}

	p.sink(domain.NewProvisioningStatus(name, domain.PhaseInstalling, 100))
	if err := offload(ctx, func() error {
		for _, path := range installed {
			if err := profile.FixPermissions(p.fs, path); err != nil {
				return fmt.Errorf("%w: set executable %s: %w", domain.ErrIO, filepath.Base(path), err)
			}
		}
		return nil
	}); err != nil {
		return err
	}

	for _, path := range installed {
		if err := profile.ClearQuarantine(ctx, path); err != nil {
			// the attribute is usually just absent
			p.logger.Debug("Quarantine attribute not cleared",
				zap.String("path", path),
				zap.Error(err))
		}
	}

	p.logger.Info("Binary installed",
		zap.String("binary", string(name)),
		zap.Strings("files", installed))
	p.sink(domain.NewProvisioningStatus(name, domain.PhaseCompleted, 100))

	return nil
}

// installArchive downloads one zip next to the binaries, unpacks it in place
// and removes it. It returns the paths of the expected members.
func (p *BinaryProvisioner) installArchive(
	ctx context.Context,
	name domain.BinaryName,
	dir string,
	archive domain.ArchiveSource,
	profile platform.Profile,
) ([]string, error) {
	archivePath := filepath.Join(dir, archive.ArchiveName)
	defer p.discard(archivePath)

	if err := p.fetcher.Fetch(ctx, archive.URL, archivePath, p.progress(name)); err != nil {
		return nil, err
	}

	p.sink(domain.NewProvisioningStatus(name, domain.PhaseExtracting, 100))

	members := make([]string, 0, len(archive.Members))
	for _, m := range archive.Members {
		members = append(members, filepath.Join(dir, m+profile.ExecSuffix))
	}

	discardMembers := func() {
		for _, m := range members {
			p.discard(m)
		}
	}

	if err := offload(ctx, func() error {
		return p.extractor.Extract(ctx, archivePath, dir)
	}); err != nil {
		discardMembers()
		return nil, err
	}

	for _, m := range members {
		if info, err := p.fs.Stat(m); err != nil || info.IsDir() {
			discardMembers()
			return nil, fmt.Errorf("%w: %s did not contain %s", domain.ErrCorruptArchive, archive.ArchiveName, filepath.Base(m))
		}
	}

	return members, nil
}

func (p *BinaryProvisioner) progress(name domain.BinaryName) func(domain.ProgressSnapshot) {
	return func(snap domain.ProgressSnapshot) {
		p.sink(domain.NewProvisioningProgress(name, snap))
	}
}

func (p *BinaryProvisioner) fail(name domain.BinaryName, err error) {
	p.logger.Error("Provisioning failed",
		zap.String("binary", string(name)),
		zap.Error(err))
	ev := domain.NewProvisioningStatus(name, domain.PhaseFailed, 0)
	ev.Error = err.Error()
	p.sink(ev)
}

// discard removes a partial or temporary file, ignoring absence.
func (p *BinaryProvisioner) discard(path string) {
	if err := p.fs.Remove(path); err != nil {
		if exists, _ := afero.Exists(p.fs, path); exists {
			p.logger.Warn("Failed to remove file", zap.String("path", path), zap.Error(err))
		}
	}
}

// offload runs CPU or disk bound work on its own goroutine so the caller's
// goroutine only waits on a channel. fn is expected to observe ctx itself.
func offload(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		// wait for fn to notice the cancellation so the per-name lock is not released under it
		<-done
		return ctx.Err()
	}
}
