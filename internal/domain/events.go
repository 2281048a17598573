package domain

import (
	"strings"
	"time"
)

// ProgressSnapshot describes a single transfer at one point in time
type ProgressSnapshot struct {
	Downloaded int64   `json:"downloaded"`
	Total      int64   `json:"total"` // 0 when the server sent no length
	Speed      float64 `json:"speed"` // bytes/sec since transfer start
}

// Percent returns downloaded*100/total clamped to [0, 100], or 0 when total is unknown.
func (p ProgressSnapshot) Percent() float64 {
	if p.Total <= 0 {
		return 0
	}
	return ClampPercent(float64(p.Downloaded) * 100 / float64(p.Total))
}

// ClampPercent limits v to [0, 100].
func ClampPercent(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

// ProvisioningEventKind discriminates provisioning events
type ProvisioningEventKind string

const (
	ProvisioningProgress ProvisioningEventKind = "progress"
	ProvisioningStatus   ProvisioningEventKind = "status"
)

// ProvisioningPhase is the step a provisioning operation is in
type ProvisioningPhase string

const (
	PhaseDownloading ProvisioningPhase = "downloading"
	PhaseExtracting  ProvisioningPhase = "extracting"
	PhaseInstalling  ProvisioningPhase = "installing"
	PhaseCompleted   ProvisioningPhase = "completed"
	PhaseFailed      ProvisioningPhase = "failed"
)

// ProvisioningEvent is pushed to the caller while a binary is installed or updated.
type ProvisioningEvent struct {
	Kind      ProvisioningEventKind `json:"kind"`
	Type      BinaryName            `json:"type"`
	Phase     ProvisioningPhase     `json:"phase"`
	Percent   float64               `json:"percent"`
	StatusKey string                `json:"statusKey,omitempty"`
	Progress  *ProgressSnapshot     `json:"progressData,omitempty"`
	Error     string                `json:"error,omitempty"`
	Timestamp time.Time             `json:"timestamp"`
}

// StatusKey builds the localisation key for a phase, e.g. statusDownloadingYtDlp.
func StatusKey(name BinaryName, phase ProvisioningPhase) string {
	p := string(phase)
	if p == "" {
		return ""
	}
	return "status" + strings.ToUpper(p[:1]) + p[1:] + name.statusTag()
}

// NewProvisioningStatus builds a status event for name entering phase.
func NewProvisioningStatus(name BinaryName, phase ProvisioningPhase, percent float64) ProvisioningEvent {
	return ProvisioningEvent{
		Kind:      ProvisioningStatus,
		Type:      name,
		Phase:     phase,
		Percent:   ClampPercent(percent),
		StatusKey: StatusKey(name, phase),
		Timestamp: time.Now(),
	}
}

// NewProvisioningProgress builds a progress event from a transfer snapshot.
func NewProvisioningProgress(name BinaryName, snap ProgressSnapshot) ProvisioningEvent {
	return ProvisioningEvent{
		Kind:      ProvisioningProgress,
		Type:      name,
		Phase:     PhaseDownloading,
		Percent:   snap.Percent(),
		StatusKey: StatusKey(name, PhaseDownloading),
		Progress:  &snap,
		Timestamp: time.Now(),
	}
}

// ProvisioningSink receives provisioning events. Implementations must not block for long.
type ProvisioningSink func(ProvisioningEvent)

// JobEventKind discriminates job events
type JobEventKind string

const (
	JobEventLine     JobEventKind = "line"
	JobEventComplete JobEventKind = "complete"
)

// Stream names the child output a line came from
type Stream string

const (
	StreamStdout Stream = "stdout"
	StreamStderr Stream = "stderr"
	StreamSystem Stream = "system" // notices produced by the orchestrator itself
)

// JobEvent is one line of child output, or the single terminal event of a job.
type JobEvent struct {
	JobID     string       `json:"jobId"`
	Kind      JobEventKind `json:"kind"`
	Stream    Stream       `json:"stream,omitempty"`
	Line      string       `json:"line,omitempty"`
	Percent   *float64     `json:"percent,omitempty"`
	Result    *JobResult   `json:"result,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// JobResult is written exactly once per job
type JobResult struct {
	Success   bool   `json:"success"`
	ExitCode  int    `json:"exitCode"`
	Message   string `json:"message"`
	Cancelled bool   `json:"cancelled,omitempty"`
	Title     string `json:"title,omitempty"`
	Filename  string `json:"filename,omitempty"`
	FileSize  int64  `json:"fileSize,omitempty"`
}

// JobSink receives job events. Implementations must not block for long.
type JobSink func(JobEvent)
