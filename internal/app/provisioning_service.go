package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/yourusername/ytfetch-go/internal/domain"
	"github.com/yourusername/ytfetch-go/internal/infrastructure"
	"github.com/yourusername/ytfetch-go/internal/platform"
	"github.com/yourusername/ytfetch-go/pkg/logger"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ProvisioningService is the entry point for everything concerning the
// managed tools: presence, versions, install and update.
type ProvisioningService struct {
	provisioner domain.Provisioner
	resolver    *platform.Resolver
	inspector   *infrastructure.ToolInspector
	notifier    *infrastructure.NotificationService
	logs        *logger.LoggerAdapter
}

// NewProvisioningService creates a new provisioning service. notifier may be nil.
func NewProvisioningService(
	provisioner domain.Provisioner,
	resolver *platform.Resolver,
	inspector *infrastructure.ToolInspector,
	notifier *infrastructure.NotificationService,
	logs *logger.LoggerAdapter,
) *ProvisioningService {
	return &ProvisioningService{
		provisioner: provisioner,
		resolver:    resolver,
		inspector:   inspector,
		notifier:    notifier,
		logs:        logs,
	}
}

// Check reports which tools are present in the managed directory
func (s *ProvisioningService) Check() domain.ProvisioningCheck {
	_, fetch := s.resolver.Resolve(domain.BinaryYtDlp)
	_, transcode := s.resolver.Resolve(domain.BinaryFFmpeg)
	return domain.ProvisioningCheck{
		FetchToolPresent:     fetch,
		TranscodeToolPresent: transcode,
		InstallDir:           s.resolver.Dir(),
	}
}

// Binaries describes every managed tool
func (s *ProvisioningService) Binaries() []domain.ManagedBinary {
	out := make([]domain.ManagedBinary, 0, len(domain.ManagedBinaries))
	for _, name := range domain.ManagedBinaries {
		out = append(out, s.resolver.Describe(name))
	}
	return out
}

// Supported reports whether name can be installed on this platform
func (s *ProvisioningService) Supported(name domain.BinaryName) bool {
	return s.resolver.Profile().Supports(name)
}

// Versions returns the installed tool versions
func (s *ProvisioningService) Versions(ctx context.Context) domain.ToolVersions {
	return s.inspector.Versions(ctx)
}

// Latest returns the newest upstream versions
func (s *ProvisioningService) Latest(ctx context.Context) domain.LatestVersions {
	return s.inspector.LatestVersions(ctx)
}

// Encoders lists the hardware encoders of the installed ffmpeg
func (s *ProvisioningService) Encoders(ctx context.Context) ([]string, error) {
	return s.inspector.DetectEncoders(ctx)
}

// VideoInfo returns yt-dlp's JSON description of url
func (s *ProvisioningService) VideoInfo(ctx context.Context, url string) (json.RawMessage, error) {
	return s.inspector.VideoInfo(ctx, url)
}

// Ensure installs name, or both tools for domain.BinaryAll, unless present.
// For BinaryAll every tool is attempted and the failures are combined.
func (s *ProvisioningService) Ensure(ctx context.Context, name domain.BinaryName) (map[domain.BinaryName]domain.ProvisionOutcome, error) {
	outcomes := make(map[domain.BinaryName]domain.ProvisionOutcome)
	err := s.each(ctx, name, "ensure", func(n domain.BinaryName) error {
		outcome, err := s.provisioner.Ensure(ctx, n)
		if err != nil {
			return err
		}
		outcomes[n] = outcome
		if outcome == domain.OutcomeInstalled {
			s.installed(n)
		}
		return nil
	})
	return outcomes, err
}

// Update reinstalls name, or both tools for domain.BinaryAll, from upstream.
func (s *ProvisioningService) Update(ctx context.Context, name domain.BinaryName) error {
	return s.each(ctx, name, "update", func(n domain.BinaryName) error {
		if err := s.provisioner.ForceUpdate(ctx, n); err != nil {
			return err
		}
		s.installed(n)
		return nil
	})
}

func (s *ProvisioningService) each(ctx context.Context, name domain.BinaryName, op string, fn func(domain.BinaryName) error) error {
	targets := []domain.BinaryName{name}
	if name == domain.BinaryAll {
		targets = domain.ManagedBinaries
	}

	var errs error
	for _, n := range targets {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}

		s.logs.LogEvent(logger.CategoryProvision, "binary_"+op+"_started", zap.String("binary", string(n)))
		if err := fn(n); err != nil {
			s.logs.LogError(logger.CategoryProvision, "binary_"+op+"_failed",
				zap.String("binary", string(n)),
				zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", n, err))
			continue
		}
		s.logs.LogEvent(logger.CategoryProvision, "binary_"+op+"_finished", zap.String("binary", string(n)))
	}
	return errs
}

func (s *ProvisioningService) installed(name domain.BinaryName) {
	if s.notifier != nil {
		s.notifier.NotifyBinaryInstalled(name)
	}
}
