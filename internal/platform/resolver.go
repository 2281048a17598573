package platform

import (
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/yourusername/ytfetch-go/internal/domain"
)

// Resolver maps logical binary names to files inside the managed binaries
// directory. It never consults $PATH: only the managed directory is trusted.
type Resolver struct {
	fs      afero.Fs
	dir     string
	profile Profile
}

// NewResolver creates a resolver rooted at dir
func NewResolver(fs afero.Fs, dir string, profile Profile) *Resolver {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return &Resolver{fs: fs, dir: dir, profile: profile}
}

// Dir returns the managed binaries directory.
func (r *Resolver) Dir() string {
	return r.dir
}

// Profile returns the platform profile the resolver was built with.
func (r *Resolver) Profile() Profile {
	return r.profile
}

// Path returns where name is expected to live, whether or not it exists.
func (r *Resolver) Path(name domain.BinaryName) string {
	return filepath.Join(r.dir, r.profile.FileName(name))
}

// Resolve returns the path of name if the file exists. Absence is not an error.
// A tool shipped as zip archives resolves only when every archive member is
// present, e.g. ffmpeg needs ffprobe next to it.
func (r *Resolver) Resolve(name domain.BinaryName) (string, bool) {
	path := r.Path(name)
	if !r.isFile(path) {
		return "", false
	}

	if src, ok := r.profile.Sources[name]; ok && src.Kind == domain.SourceZip {
		for _, archive := range src.Archives {
			for _, m := range archive.Members {
				if !r.isFile(filepath.Join(r.dir, m+r.profile.ExecSuffix)) {
					return "", false
				}
			}
		}
	}
	return path, true
}

func (r *Resolver) isFile(path string) bool {
	info, err := r.fs.Stat(path)
	return err == nil && !info.IsDir()
}

// Describe returns the managed binary record for name.
func (r *Resolver) Describe(name domain.BinaryName) domain.ManagedBinary {
	_, present := r.Resolve(name)
	src, _ := r.profile.Source(name)
	return domain.ManagedBinary{
		Name:          name,
		FileName:      r.profile.FileName(name),
		InstalledPath: r.Path(name),
		Present:       present,
		Source:        src,
	}
}
