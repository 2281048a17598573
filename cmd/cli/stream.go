package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/gorilla/websocket"
	"github.com/yourusername/ytfetch-go/internal/domain"
)

// envelope mirrors the server's event frame; the payload is decoded per channel
type envelope struct {
	Channel string          `json:"channel"`
	Payload json.RawMessage `json:"payload"`
}

const (
	channelBinaryProgress   = "binary-update-progress"
	channelDownloadProgress = "download-progress"
	channelDownloadComplete = "download-complete"
)

// followJob prints the job's output until its terminal event arrives.
// Frames for other jobs are skipped.
func followJob(conn *websocket.Conn, jobID string, out io.Writer, quiet bool) (*domain.JobResult, error) {
	for {
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			return nil, fmt.Errorf("event stream closed: %w", err)
		}
		if env.Channel != channelDownloadProgress && env.Channel != channelDownloadComplete {
			continue
		}

		var ev domain.JobEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			continue
		}
		if ev.JobID != jobID {
			continue
		}

		if ev.Kind == domain.JobEventComplete && ev.Result != nil {
			return ev.Result, nil
		}
		if quiet && ev.Stream != domain.StreamSystem {
			continue
		}
		printJobLine(out, ev)
	}
}

func printJobLine(out io.Writer, ev domain.JobEvent) {
	switch {
	case ev.Stream == domain.StreamSystem:
		fmt.Fprintf(out, "note: %s\n", ev.Line)
	case ev.Stream == domain.StreamStderr:
		fmt.Fprintf(out, "! %s\n", ev.Line)
	default:
		fmt.Fprintln(out, ev.Line)
	}
}

// printProvisioning renders binary-update-progress frames until done is closed.
func printProvisioning(conn *websocket.Conn, out io.Writer, done <-chan struct{}) {
	for {
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			return
		}
		select {
		case <-done:
			return
		default:
		}
		if env.Channel != channelBinaryProgress {
			continue
		}

		var ev domain.ProvisioningEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			continue
		}
		if ev.Kind == domain.ProvisioningStatus {
			fmt.Fprintf(out, "%s: %s (%.0f%%)\n", ev.Type, ev.Phase, ev.Percent)
			continue
		}
		if ev.Progress != nil {
			fmt.Fprintf(out, "\r%s: %.1f%% (%s)", ev.Type, ev.Percent, formatBytes(ev.Progress.Downloaded))
		}
	}
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
