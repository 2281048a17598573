package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DownloadMode selects between a muxed video download and audio extraction
type DownloadMode string

const (
	ModeVideo DownloadMode = "video"
	ModeAudio DownloadMode = "audio"
)

// PlaylistMode controls how playlist URLs are handled
type PlaylistMode string

const (
	PlaylistDefault PlaylistMode = "default"
	PlaylistSingle  PlaylistMode = "single"
	PlaylistAll     PlaylistMode = "playlist"
)

// DefaultOutputTemplate is used when a request carries no template
const DefaultOutputTemplate = "%(title)s.%(ext)s"

// Defaults filled in for submitted requests that leave the field empty
const (
	DefaultVideoContainer = "mp4"
	DefaultAudioFormat    = "mp3"
)

// FormatOptions carries the quality selection for either mode
type FormatOptions struct {
	VideoContainer  string `json:"videoContainer"`  // mp4, mkv, webm
	VideoResolution string `json:"videoResolution"` // best, 2160p, 1080p, 720p...
	AudioFormat     string `json:"audioFormat"`     // mp3, m4a, opus, wav...
	AudioBitrate    string `json:"audioBitrate"`    // 192k, 320k...
}

// TimeRange clips the download to [Start, End]
type TimeRange struct {
	Enabled bool   `json:"enabled"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

// AdvancedOptions toggles post-processing features of the fetch tool
type AdvancedOptions struct {
	EmbedThumbnail bool         `json:"embedThumbnail"`
	AddMetadata    bool         `json:"addMetadata"`
	EmbedSubs      bool         `json:"embedSubs"`
	WriteAutoSub   bool         `json:"writeAutoSub"`
	SplitChapters  bool         `json:"splitChapters"`
	Playlist       PlaylistMode `json:"playlist"`
	CookiesBrowser string       `json:"cookiesBrowser"`
	TimeRange      *TimeRange   `json:"timeRange,omitempty"`
}

// VideoConversion describes an optional post-transcode step. Not mapped to arguments yet.
type VideoConversion struct {
	Enabled      bool   `json:"enabled"`
	VideoCodec   string `json:"videoCodec"`
	VideoBitrate string `json:"videoBitrate"`
	AudioCodec   string `json:"audioCodec"`
	AudioBitrate string `json:"audioBitrate"`
	HWEncoder    string `json:"hwEncoder"`
}

// DownloadRequest is a caller's description of one fetch job
type DownloadRequest struct {
	URL                  string           `json:"url" binding:"required"`
	Mode                 DownloadMode     `json:"mode"`
	Location             string           `json:"location"`
	OutputTemplate       string           `json:"outputTemplate"`
	Options              FormatOptions    `json:"options"`
	Advanced             AdvancedOptions  `json:"advancedOptions"`
	VideoConversion      *VideoConversion `json:"videoConversion,omitempty"`
	NotificationsEnabled bool             `json:"notificationsEnabled"`
}

// WithDefaults returns r with an empty mode, video container and audio format
// filled in. Bitrate and resolution stay empty, which the fetch tool reads as
// its own default.
func (r DownloadRequest) WithDefaults() DownloadRequest {
	if r.Mode == "" {
		r.Mode = ModeVideo
	}
	if r.Options.VideoContainer == "" {
		r.Options.VideoContainer = DefaultVideoContainer
	}
	if r.Options.AudioFormat == "" {
		r.Options.AudioFormat = DefaultAudioFormat
	}
	return r
}

// Validate checks the fields the API layer is responsible for.
func (r DownloadRequest) Validate() error {
	if r.URL == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidRequest)
	}
	if !ValidateMode(r.Mode) {
		return fmt.Errorf("%w: mode must be video or audio", ErrInvalidRequest)
	}
	if r.Advanced.Playlist != "" && !ValidatePlaylistMode(r.Advanced.Playlist) {
		return fmt.Errorf("%w: playlist must be default, single or playlist", ErrInvalidRequest)
	}
	return nil
}

// ValidateMode checks if a download mode is valid
func ValidateMode(mode DownloadMode) bool {
	return mode == ModeVideo || mode == ModeAudio
}

// ValidatePlaylistMode checks if a playlist mode is valid
func ValidatePlaylistMode(mode PlaylistMode) bool {
	return mode == PlaylistDefault || mode == PlaylistSingle || mode == PlaylistAll
}

// JobStatus represents the lifecycle state of a job record
type JobStatus string

const (
	JobCreated     JobStatus = "created"
	JobRunning     JobStatus = "running"
	JobCompleted   JobStatus = "completed"
	JobFailed      JobStatus = "failed"
	JobSpawnFailed JobStatus = "spawn_failed"
	JobCancelled   JobStatus = "cancelled"
)

// JobRecord is the persisted history entry of a download job
type JobRecord struct {
	ID           string       `json:"id" gorm:"primaryKey"`
	URL          string       `json:"url" gorm:"not null"`
	Mode         DownloadMode `json:"mode" gorm:"not null"`
	Location     string       `json:"location"`
	Status       JobStatus    `json:"status" gorm:"not null;index"`
	Request      string       `json:"request,omitempty" gorm:"type:text"` // JSON DownloadRequest
	CommandLine  string       `json:"command_line,omitempty" gorm:"type:text"`
	ExitCode     int          `json:"exit_code"`
	ErrorMessage string       `json:"error_message,omitempty"`
	Title        string       `json:"title,omitempty"`
	FilePath     string       `json:"file_path,omitempty"`
	FileSize     int64        `json:"file_size,omitempty"`
	CreatedAt    time.Time    `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time    `json:"updated_at" gorm:"autoUpdateTime"`
	StartedAt    *time.Time   `json:"started_at,omitempty"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
}

// NewJobRecord creates a history entry for a freshly submitted request
func NewJobRecord(req DownloadRequest) *JobRecord {
	raw, _ := json.Marshal(req)
	now := time.Now()
	return &JobRecord{
		ID:        uuid.New().String(),
		URL:       req.URL,
		Mode:      req.Mode,
		Location:  req.Location,
		Status:    JobCreated,
		Request:   string(raw),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MarkRunning marks the job as spawned
func (j *JobRecord) MarkRunning(commandLine string) {
	j.Status = JobRunning
	j.CommandLine = commandLine
	now := time.Now()
	j.StartedAt = &now
	j.UpdatedAt = now
}

// MarkSpawnFailed marks the job as never started
func (j *JobRecord) MarkSpawnFailed(err error) {
	j.Status = JobSpawnFailed
	j.ErrorMessage = err.Error()
	now := time.Now()
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// ApplyResult records the terminal outcome of the job
func (j *JobRecord) ApplyResult(res JobResult) {
	switch {
	case res.Success:
		j.Status = JobCompleted
	case res.Cancelled:
		j.Status = JobCancelled
	default:
		j.Status = JobFailed
	}
	j.ExitCode = res.ExitCode
	if !res.Success {
		j.ErrorMessage = res.Message
	}
	j.Title = res.Title
	j.FilePath = res.Filename
	j.FileSize = res.FileSize
	now := time.Now()
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// IsTerminal checks if the job can no longer change state
func (j *JobRecord) IsTerminal() bool {
	switch j.Status {
	case JobCompleted, JobFailed, JobSpawnFailed, JobCancelled:
		return true
	}
	return false
}
