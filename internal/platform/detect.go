package platform

import (
	"context"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/host"
)

// Info describes the host the server is running on
type Info struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Platform      string `json:"platform,omitempty"` // distro or product name
	Family        string `json:"family,omitempty"`
	Version       string `json:"version,omitempty"`
	KernelVersion string `json:"kernel_version,omitempty"`
}

// Detect gathers host details. OS and Arch always come from the Go runtime;
// the rest is best effort and left empty when gopsutil cannot determine it.
func Detect(ctx context.Context) (*Info, error) {
	info := &Info{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
	}

	stat, err := host.InfoWithContext(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return info, nil
	}

	info.Platform = strings.ToLower(strings.TrimSpace(stat.Platform))
	info.Family = strings.ToLower(strings.TrimSpace(stat.PlatformFamily))
	info.Version = strings.TrimSpace(stat.PlatformVersion)
	info.KernelVersion = strings.TrimSpace(stat.KernelVersion)

	return info, nil
}
