package infrastructure

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/yourusername/ytfetch-go/internal/domain"
)

const bestResolution = "best"

// losslessAudioFormats take no bitrate
var losslessAudioFormats = map[string]bool{
	"wav":  true,
	"flac": true,
}

// ArgumentBuilder maps a download request to the yt-dlp argument vector.
// The order of the produced arguments is fixed.
type ArgumentBuilder struct {
	fs afero.Fs
}

// NewArgumentBuilder creates a builder. fs is only used to tell whether the
// transcode tool path is a directory.
func NewArgumentBuilder(fs afero.Fs) *ArgumentBuilder {
	return &ArgumentBuilder{fs: fs}
}

// Build returns the argument list for req. transcodeToolPath may be empty,
// a directory, or the ffmpeg binary itself. Format fields are emitted as
// given, empty ones included; defaults and validation belong to whoever
// produced the request.
func (b *ArgumentBuilder) Build(req domain.DownloadRequest, transcodeToolPath string) []string {
	template := req.OutputTemplate
	if template == "" {
		template = domain.DefaultOutputTemplate
	}

	args := []string{
		req.URL,
		"-o", filepath.Join(req.Location, template),
		"--no-mtime",
		"--print", "after_move:filepath",
		"--print", "title",
		"--encoding", "utf-8",
		"--extractor-args", "youtube:player_client=default",
	}

	if transcodeToolPath != "" {
		args = append(args, "--ffmpeg-location", b.toolDir(transcodeToolPath))
	}

	adv := req.Advanced
	if adv.EmbedThumbnail {
		args = append(args, "--embed-thumbnail")
	}
	if adv.AddMetadata {
		args = append(args, "--add-metadata")
	}
	if req.Mode == domain.ModeVideo {
		if adv.EmbedSubs {
			args = append(args, "--embed-subs")
		}
		if adv.WriteAutoSub {
			args = append(args, "--write-auto-sub")
		}
		if adv.SplitChapters {
			args = append(args, "--split-chapters")
		}
	}
	if adv.CookiesBrowser != "" && adv.CookiesBrowser != "none" {
		args = append(args, "--cookies-from-browser", adv.CookiesBrowser)
	}

	switch adv.Playlist {
	case domain.PlaylistSingle:
		args = append(args, "--no-playlist")
	case domain.PlaylistAll:
		args = append(args, "--yes-playlist")
	}

	if tr := adv.TimeRange; tr != nil && tr.Enabled && tr.Start != "" && tr.End != "" {
		args = append(args,
			"--download-sections", fmt.Sprintf("*%s - %s", tr.Start, tr.End),
			"--force-keyframes-at-cuts")
	}

	if req.Mode == domain.ModeAudio {
		return append(args, audioTail(req.Options)...)
	}
	return append(args, videoTail(req.Options)...)
}

// Limitations lists request options that are accepted but not turned into
// arguments. Callers surface these to the user.
func (b *ArgumentBuilder) Limitations(req domain.DownloadRequest) []string {
	var notes []string
	if vc := req.VideoConversion; vc != nil && vc.Enabled {
		notes = append(notes, fmt.Sprintf(
			"video conversion is not applied (video codec %q, audio codec %q, hardware encoder %q): conversion options are not mapped to fetch tool arguments",
			vc.VideoCodec, vc.AudioCodec, vc.HWEncoder))
	}
	return notes
}

// toolDir returns path when it is a directory and its parent otherwise.
func (b *ArgumentBuilder) toolDir(path string) string {
	if ok, err := afero.IsDir(b.fs, path); err == nil && ok {
		return path
	}
	return filepath.Dir(path)
}

func audioTail(opts domain.FormatOptions) []string {
	tail := []string{"-x", "--audio-format", opts.AudioFormat}
	if losslessAudioFormats[strings.ToLower(opts.AudioFormat)] {
		return tail
	}
	return append(tail, "--audio-quality", opts.AudioBitrate)
}

func videoTail(opts domain.FormatOptions) []string {
	selector := "bestvideo+bestaudio/best"
	if height := resolutionHeight(opts.VideoResolution); height != "" {
		selector = fmt.Sprintf("bestvideo[height<=%s]+bestaudio/best", height)
	}

	return []string{"-f", selector, "--merge-output-format", opts.VideoContainer}
}

// resolutionHeight turns "1080p" into "1080"; "best" and "" mean no ceiling.
func resolutionHeight(resolution string) string {
	r := strings.ToLower(strings.TrimSpace(resolution))
	if r == "" || r == bestResolution {
		return ""
	}
	return strings.TrimSuffix(r, "p")
}
