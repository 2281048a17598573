package infrastructure

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/ytfetch-go/internal/domain"
)

func baseArgs(location, template string) []string {
	return []string{
		"https://example.com/watch?v=1",
		"-o", filepath.Join(location, template),
		"--no-mtime",
		"--print", "after_move:filepath",
		"--print", "title",
		"--encoding", "utf-8",
		"--extractor-args", "youtube:player_client=default",
	}
}

func indexOf(args []string, s string) int {
	for i, a := range args {
		if a == s {
			return i
		}
	}
	return -1
}

func TestArgumentBuilder_VideoDefaults(t *testing.T) {
	b := NewArgumentBuilder(afero.NewMemMapFs())
	req := domain.DownloadRequest{
		URL:      "https://example.com/watch?v=1",
		Mode:     domain.ModeVideo,
		Location: "/downloads",
	}.WithDefaults()

	want := append(baseArgs("/downloads", domain.DefaultOutputTemplate),
		"-f", "bestvideo+bestaudio/best",
		"--merge-output-format", "mp4")
	assert.Equal(t, want, b.Build(req, ""))
}

func TestArgumentBuilder_Video1080pWithTool(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/bin/ffmpeg", []byte("x"), 0755))
	b := NewArgumentBuilder(fs)

	req := domain.DownloadRequest{
		URL:            "https://example.com/watch?v=1",
		Mode:           domain.ModeVideo,
		Location:       "/downloads",
		OutputTemplate: "%(id)s.%(ext)s",
		Options:        domain.FormatOptions{VideoResolution: "1080p", VideoContainer: "mkv"},
		Advanced: domain.AdvancedOptions{
			EmbedThumbnail: true,
			AddMetadata:    true,
			EmbedSubs:      true,
			WriteAutoSub:   true,
			SplitChapters:  true,
			CookiesBrowser: "firefox",
			Playlist:       domain.PlaylistSingle,
		},
	}

	want := append(baseArgs("/downloads", "%(id)s.%(ext)s"),
		"--ffmpeg-location", "/bin",
		"--embed-thumbnail",
		"--add-metadata",
		"--embed-subs",
		"--write-auto-sub",
		"--split-chapters",
		"--cookies-from-browser", "firefox",
		"--no-playlist",
		"-f", "bestvideo[height<=1080]+bestaudio/best",
		"--merge-output-format", "mkv")
	assert.Equal(t, want, b.Build(req, "/bin/ffmpeg"))
}

func TestArgumentBuilder_ToolDirectoryUsedAsIs(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/opt/tools", 0755))
	args := NewArgumentBuilder(fs).Build(domain.DownloadRequest{URL: "u", Mode: domain.ModeVideo}, "/opt/tools")

	i := indexOf(args, "--ffmpeg-location")
	require.GreaterOrEqual(t, i, 0)
	assert.Equal(t, "/opt/tools", args[i+1])
}

func TestArgumentBuilder_AudioOmitsVideoOnlyFlags(t *testing.T) {
	b := NewArgumentBuilder(afero.NewMemMapFs())
	req := domain.DownloadRequest{
		URL:      "https://example.com/watch?v=1",
		Mode:     domain.ModeAudio,
		Location: "/music",
		Options:  domain.FormatOptions{AudioFormat: "mp3", AudioBitrate: "320k"},
		Advanced: domain.AdvancedOptions{
			EmbedSubs:     true,
			WriteAutoSub:  true,
			SplitChapters: true,
			AddMetadata:   true,
		},
	}

	args := b.Build(req, "")
	assert.Equal(t, -1, indexOf(args, "--embed-subs"))
	assert.Equal(t, -1, indexOf(args, "--write-auto-sub"))
	assert.Equal(t, -1, indexOf(args, "--split-chapters"))
	assert.Equal(t, -1, indexOf(args, "-f"))
	assert.Equal(t, []string{"--add-metadata", "-x", "--audio-format", "mp3", "--audio-quality", "320k"}, args[len(args)-6:])
}

func TestArgumentBuilder_LosslessAudioHasNoQuality(t *testing.T) {
	b := NewArgumentBuilder(afero.NewMemMapFs())
	for _, format := range []string{"wav", "flac", "WAV"} {
		req := domain.DownloadRequest{
			URL:     "u",
			Mode:    domain.ModeAudio,
			Options: domain.FormatOptions{AudioFormat: format, AudioBitrate: "320k"},
		}
		args := b.Build(req, "")
		assert.Equal(t, -1, indexOf(args, "--audio-quality"), format)
		assert.Equal(t, []string{"-x", "--audio-format", format}, args[len(args)-3:])
	}
}

func TestArgumentBuilder_EmptyFormatFieldsPassedThrough(t *testing.T) {
	b := NewArgumentBuilder(afero.NewMemMapFs())

	args := b.Build(domain.DownloadRequest{URL: "u", Mode: domain.ModeAudio}, "")
	assert.Equal(t, []string{"-x", "--audio-format", "", "--audio-quality", ""}, args[len(args)-5:])

	args = b.Build(domain.DownloadRequest{URL: "u", Mode: domain.ModeVideo}, "")
	assert.Equal(t, []string{"--merge-output-format", ""}, args[len(args)-2:])
}

func TestArgumentBuilder_AudioDefaultFormat(t *testing.T) {
	req := domain.DownloadRequest{URL: "u", Mode: domain.ModeAudio}.WithDefaults()
	args := NewArgumentBuilder(afero.NewMemMapFs()).Build(req, "")
	assert.Equal(t, []string{"-x", "--audio-format", "mp3", "--audio-quality", ""}, args[len(args)-5:])
}

func TestArgumentBuilder_TimeRangeAndPlaylist(t *testing.T) {
	b := NewArgumentBuilder(afero.NewMemMapFs())
	req := domain.DownloadRequest{
		URL:  "u",
		Mode: domain.ModeVideo,
		Advanced: domain.AdvancedOptions{
			Playlist:       domain.PlaylistAll,
			CookiesBrowser: "none",
			TimeRange:      &domain.TimeRange{Enabled: true, Start: "00:01:00", End: "00:02:30"},
		},
	}

	args := b.Build(req, "")
	assert.Equal(t, -1, indexOf(args, "--cookies-from-browser"))

	p := indexOf(args, "--yes-playlist")
	s := indexOf(args, "--download-sections")
	f := indexOf(args, "-f")
	require.True(t, p >= 0 && s >= 0 && f >= 0)
	assert.Less(t, p, s)
	assert.Less(t, s, f)
	assert.Equal(t, "*00:01:00 - 00:02:30", args[s+1])
	assert.Equal(t, "--force-keyframes-at-cuts", args[s+2])
}

func TestArgumentBuilder_DisabledTimeRangeIgnored(t *testing.T) {
	req := domain.DownloadRequest{
		URL:      "u",
		Mode:     domain.ModeVideo,
		Advanced: domain.AdvancedOptions{TimeRange: &domain.TimeRange{Enabled: false, Start: "1", End: "2"}},
	}
	args := NewArgumentBuilder(afero.NewMemMapFs()).Build(req, "")
	assert.Equal(t, -1, indexOf(args, "--download-sections"))
}

func TestArgumentBuilder_Deterministic(t *testing.T) {
	b := NewArgumentBuilder(afero.NewMemMapFs())
	req := domain.DownloadRequest{
		URL:      "https://example.com/v",
		Mode:     domain.ModeVideo,
		Location: "/d",
		Options:  domain.FormatOptions{VideoResolution: "720p"},
		Advanced: domain.AdvancedOptions{EmbedThumbnail: true, Playlist: domain.PlaylistDefault},
	}

	first := b.Build(req, "")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, b.Build(req, ""))
	}
	assert.Equal(t, -1, indexOf(first, "--no-playlist"))
	assert.Equal(t, -1, indexOf(first, "--yes-playlist"))
}

func TestArgumentBuilder_Limitations(t *testing.T) {
	b := NewArgumentBuilder(afero.NewMemMapFs())

	assert.Empty(t, b.Limitations(domain.DownloadRequest{URL: "u"}))
	assert.Empty(t, b.Limitations(domain.DownloadRequest{URL: "u", VideoConversion: &domain.VideoConversion{}}))

	notes := b.Limitations(domain.DownloadRequest{
		URL:             "u",
		VideoConversion: &domain.VideoConversion{Enabled: true, VideoCodec: "h265", HWEncoder: "hevc_nvenc"},
	})
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0], "hevc_nvenc")
}
