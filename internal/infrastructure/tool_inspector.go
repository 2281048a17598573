package infrastructure

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/yourusername/ytfetch-go/internal/domain"
	"github.com/yourusername/ytfetch-go/internal/platform"
	"go.uber.org/zap"
)

const (
	// DefaultVersionTimeout bounds each tool invocation made by the inspector
	DefaultVersionTimeout = 10 * time.Second

	ytDlpLatestReleaseURL = "https://api.github.com/repos/yt-dlp/yt-dlp/releases/latest"
	ffbinariesLatestURL   = "https://ffbinaries.com/api/v1/version/latest"
)

// hwEncoderFamilies maps encoder name suffixes to the family reported to callers.
var hwEncoderFamilies = []struct {
	suffix string
	family string
}{
	{"_nvenc", "nvenc"},
	{"_qsv", "qsv"},
	{"_videotoolbox", "videotoolbox"},
	{"_amf", "amf"},
}

// ToolInspector answers questions about the managed tools by running them
// and by asking upstream release feeds.
type ToolInspector struct {
	resolver  *platform.Resolver
	client    *http.Client
	userAgent string
	timeout   time.Duration
	logger    *zap.Logger

	ytDlpLatestURL  string
	ffmpegLatestURL string
}

// NewToolInspector creates a new inspector
func NewToolInspector(resolver *platform.Resolver, client *http.Client, userAgent string, timeout time.Duration, logger *zap.Logger) *ToolInspector {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if timeout <= 0 {
		timeout = DefaultVersionTimeout
	}
	return &ToolInspector{
		resolver:        resolver,
		client:          client,
		userAgent:       userAgent,
		timeout:         timeout,
		logger:          logger,
		ytDlpLatestURL:  ytDlpLatestReleaseURL,
		ffmpegLatestURL: ffbinariesLatestURL,
	}
}

// Versions runs each installed tool with its version flag. Missing tools or
// unreadable output yield domain.NotDetected.
func (t *ToolInspector) Versions(ctx context.Context) domain.ToolVersions {
	versions := domain.ToolVersions{
		FetchToolVersion:     domain.NotDetected,
		TranscodeToolVersion: domain.NotDetected,
	}

	if line, ok := t.firstLine(ctx, domain.BinaryYtDlp, "--version"); ok && line != "" {
		versions.FetchToolVersion = line
	}
	if line, ok := t.firstLine(ctx, domain.BinaryFFmpeg, "-version"); ok {
		versions.TranscodeToolVersion = ParseTranscodeVersion(line)
	}

	return versions
}

// ParseTranscodeVersion keeps the third token of "<name> version <token> ...".
func ParseTranscodeVersion(line string) string {
	fields := strings.Fields(line)
	if len(fields) >= 3 && fields[1] == "version" {
		return fields[2]
	}
	return domain.NotDetected
}

func (t *ToolInspector) firstLine(ctx context.Context, name domain.BinaryName, flag string) (string, bool) {
	out, err := t.run(ctx, name, flag)
	if err != nil {
		t.logger.Debug("Version query failed", zap.String("binary", string(name)), zap.Error(err))
		return "", false
	}
	sc := bufio.NewScanner(bytes.NewReader(out))
	if !sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(sc.Text()), true
}

// run executes a managed tool with a bounded timeout and returns its stdout.
func (t *ToolInspector) run(ctx context.Context, name domain.BinaryName, args ...string) ([]byte, error) {
	path, ok := t.resolver.Resolve(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrToolNotFound, name)
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, path, args...)
	setProcAttr(cmd)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return out, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, msg)
		}
		return out, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return out, nil
}

// LatestVersions queries the upstream release feeds. Failures yield domain.UnknownVersion.
func (t *ToolInspector) LatestVersions(ctx context.Context) domain.LatestVersions {
	latest := domain.LatestVersions{
		FetchTool:     domain.UnknownVersion,
		TranscodeTool: domain.UnknownVersion,
	}

	var release struct {
		TagName string `json:"tag_name"`
	}
	if err := t.getJSON(ctx, t.ytDlpLatestURL, &release); err != nil {
		t.logger.Debug("Latest yt-dlp lookup failed", zap.Error(err))
	} else if release.TagName != "" {
		latest.FetchTool = release.TagName
	}

	var ff struct {
		Version string `json:"version"`
	}
	if err := t.getJSON(ctx, t.ffmpegLatestURL, &ff); err != nil {
		t.logger.Debug("Latest ffmpeg lookup failed", zap.Error(err))
	} else if ff.Version != "" {
		latest.TranscodeTool = ff.Version
	}

	return latest
}

func (t *ToolInspector) getJSON(ctx context.Context, url string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrNetwork, err)
	}
	req.Header.Set("User-Agent", t.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status code: %d", domain.ErrNetwork, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// DetectEncoders lists the hardware encoder families ffmpeg was built with.
func (t *ToolInspector) DetectEncoders(ctx context.Context) ([]string, error) {
	out, err := t.run(ctx, domain.BinaryFFmpeg, "-hide_banner", "-encoders")
	if err != nil {
		return nil, err
	}
	return ParseHWEncoders(string(out)), nil
}

// ParseHWEncoders scans "ffmpeg -encoders" output for h264/hevc hardware encoders.
func ParseHWEncoders(output string) []string {
	found := make(map[string]bool)
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		encoder := fields[1]
		if !strings.HasPrefix(encoder, "h264") && !strings.HasPrefix(encoder, "hevc") {
			continue
		}
		for _, fam := range hwEncoderFamilies {
			if strings.HasSuffix(encoder, fam.suffix) {
				found[fam.family] = true
			}
		}
	}

	encoders := make([]string, 0, len(found))
	for _, fam := range hwEncoderFamilies {
		if found[fam.family] {
			encoders = append(encoders, fam.family)
		}
	}
	return encoders
}

// VideoInfo returns the flat-playlist JSON description of url.
func (t *ToolInspector) VideoInfo(ctx context.Context, url string) (json.RawMessage, error) {
	out, err := t.run(ctx, domain.BinaryYtDlp, "-J", "--flat-playlist", "--no-warnings", url)
	if err != nil {
		return nil, err
	}
	if !json.Valid(out) {
		return nil, fmt.Errorf("yt-dlp returned invalid JSON for %s", url)
	}
	return json.RawMessage(out), nil
}
