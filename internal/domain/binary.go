package domain

import (
	"fmt"
	"strings"
)

// BinaryName identifies a managed external tool
type BinaryName string

const (
	BinaryYtDlp  BinaryName = "yt-dlp" // fetch tool
	BinaryFFmpeg BinaryName = "ffmpeg" // transcode tool
	BinaryAll    BinaryName = "all"    // both, for provisioning commands only
)

// ManagedBinaries lists the tools this application provisions, in install order.
var ManagedBinaries = []BinaryName{BinaryYtDlp, BinaryFFmpeg}

// ParseBinaryName accepts the canonical names plus a few common spellings.
func ParseBinaryName(s string) (BinaryName, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yt-dlp", "ytdlp", "yt_dlp":
		return BinaryYtDlp, nil
	case "ffmpeg":
		return BinaryFFmpeg, nil
	case "all", "both":
		return BinaryAll, nil
	default:
		return "", fmt.Errorf("unknown binary: %q", s)
	}
}

// statusTag is the CamelCase fragment used in status keys.
func (n BinaryName) statusTag() string {
	switch n {
	case BinaryYtDlp:
		return "YtDlp"
	case BinaryFFmpeg:
		return "Ffmpeg"
	default:
		return "All"
	}
}

// SourceKind says how a binary is shipped upstream
type SourceKind string

const (
	SourceDirect SourceKind = "direct"
	SourceZip    SourceKind = "zip"
)

// ArchiveSource is one zip download plus the members it is expected to produce.
type ArchiveSource struct {
	URL         string
	ArchiveName string   // temp file name inside the binaries directory
	Members     []string // files that must exist after extraction
}

// SourceDescriptor is the per-platform recipe for obtaining a binary
type SourceDescriptor struct {
	Kind     SourceKind
	URL      string          // SourceDirect only
	Archives []ArchiveSource // SourceZip only
}

// ManagedBinary is a provisioned tool as seen from the managed directory
type ManagedBinary struct {
	Name          BinaryName       `json:"name"`
	FileName      string           `json:"file_name"`
	InstalledPath string           `json:"installed_path"`
	Present       bool             `json:"present"`
	Source        SourceDescriptor `json:"-"`
}

// ProvisionOutcome is the result of an ensure call
type ProvisionOutcome string

const (
	OutcomeAlreadyPresent ProvisionOutcome = "already_present"
	OutcomeInstalled      ProvisionOutcome = "installed"
)

// NotDetected is reported for a tool whose version could not be read.
const NotDetected = "Not detected"

// UnknownVersion is reported when the upstream release could not be queried.
const UnknownVersion = "Unknown"

// ProvisioningCheck reports which managed tools are installed
type ProvisioningCheck struct {
	FetchToolPresent     bool   `json:"fetchToolPresent"`
	TranscodeToolPresent bool   `json:"transcodeToolPresent"`
	InstallDir           string `json:"installDir"`
}

// ToolVersions holds the versions of the installed tools
type ToolVersions struct {
	FetchToolVersion     string `json:"fetchToolVersion"`
	TranscodeToolVersion string `json:"transcodeToolVersion"`
}

// LatestVersions holds the newest upstream releases
type LatestVersions struct {
	FetchTool     string `json:"fetchTool"`
	TranscodeTool string `json:"transcodeTool"`
}
