// Package platform resolves the per-OS facts about managed binaries: file names,
// upstream sources, and the post-install fixups each operating system needs.
package platform

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/spf13/afero"
	"github.com/yourusername/ytfetch-go/internal/domain"
)

const (
	ytDlpReleaseBase = "https://github.com/yt-dlp/yt-dlp/releases/latest/download/"
	ffbinariesBase   = "https://github.com/ffbinaries/ffbinaries-prebuilt/releases/download/"

	// ExecutableMode is rwxr-xr-x.
	ExecutableMode = 0o755
)

// PermissionFixer makes an installed file runnable
type PermissionFixer func(fs afero.Fs, path string) error

// QuarantineClearer removes OS-level download quarantine from a file. Errors are advisory.
type QuarantineClearer func(ctx context.Context, path string) error

// Profile is the single value object describing the target platform. It is
// resolved once at startup and handed to the resolver and the provisioner.
type Profile struct {
	OS              string
	Arch            string
	ExecSuffix      string
	Sources         map[domain.BinaryName]domain.SourceDescriptor
	FixPermissions  PermissionFixer
	ClearQuarantine QuarantineClearer
}

// Current returns the profile for the running process.
func Current(ffmpegVersion string) Profile {
	return ProfileFor(runtime.GOOS, runtime.GOARCH, ffmpegVersion)
}

// ProfileFor builds the profile for an arbitrary GOOS/GOARCH pair.
func ProfileFor(goos, goarch, ffmpegVersion string) Profile {
	p := Profile{
		OS:              goos,
		Arch:            goarch,
		Sources:         make(map[domain.BinaryName]domain.SourceDescriptor),
		FixPermissions:  chmodExecutable,
		ClearQuarantine: noQuarantine,
	}

	switch goos {
	case "windows":
		p.ExecSuffix = ".exe"
		p.FixPermissions = noPermissions
		p.Sources[domain.BinaryYtDlp] = direct("yt-dlp.exe")
	case "darwin":
		p.ClearQuarantine = clearAppleQuarantine
		p.Sources[domain.BinaryYtDlp] = direct("yt-dlp_macos")
		p.Sources[domain.BinaryFFmpeg] = ffbinariesMacOS(ffmpegVersion)
	case "linux":
		switch goarch {
		case "arm64":
			p.Sources[domain.BinaryYtDlp] = direct("yt-dlp_linux_aarch64")
		case "amd64":
			p.Sources[domain.BinaryYtDlp] = direct("yt-dlp_linux")
		default:
			p.Sources[domain.BinaryYtDlp] = direct("yt-dlp")
		}
	}

	return p
}

// FileName returns the on-disk file name of a managed binary.
func (p Profile) FileName(name domain.BinaryName) string {
	return string(name) + p.ExecSuffix
}

// Source returns the upstream recipe for name, or ErrUnsupportedPlatform.
func (p Profile) Source(name domain.BinaryName) (domain.SourceDescriptor, error) {
	src, ok := p.Sources[name]
	if !ok {
		return domain.SourceDescriptor{}, fmt.Errorf("%w: no %s source configured for %s/%s",
			domain.ErrUnsupportedPlatform, name, p.OS, p.Arch)
	}
	return src, nil
}

// Supports reports whether name can be provisioned on this platform.
func (p Profile) Supports(name domain.BinaryName) bool {
	_, ok := p.Sources[name]
	return ok
}

func direct(asset string) domain.SourceDescriptor {
	return domain.SourceDescriptor{Kind: domain.SourceDirect, URL: ytDlpReleaseBase + asset}
}

// ffbinariesMacOS ships ffmpeg and ffprobe as two separate zip archives.
func ffbinariesMacOS(version string) domain.SourceDescriptor {
	archive := func(tool string) domain.ArchiveSource {
		return domain.ArchiveSource{
			URL:         fmt.Sprintf("%sv%s/%s-%s-macos-64.zip", ffbinariesBase, version, tool, version),
			ArchiveName: tool + ".zip",
			Members:     []string{tool},
		}
	}
	return domain.SourceDescriptor{
		Kind:     domain.SourceZip,
		Archives: []domain.ArchiveSource{archive("ffmpeg"), archive("ffprobe")},
	}
}

func chmodExecutable(fs afero.Fs, path string) error {
	return fs.Chmod(path, ExecutableMode)
}

func noPermissions(afero.Fs, string) error { return nil }

func noQuarantine(context.Context, string) error { return nil }

func clearAppleQuarantine(ctx context.Context, path string) error {
	return exec.CommandContext(ctx, "xattr", "-d", "com.apple.quarantine", path).Run()
}
