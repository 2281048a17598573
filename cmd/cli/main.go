package main

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/yourusername/ytfetch-go/internal/domain"
)

var (
	serverURL   string
	noAutoStart bool
	rootCmd     = &cobra.Command{
		Use:           "ytfetch",
		Short:         "ytfetch CLI - yt-dlp and ffmpeg manager and download runner",
		Long:          `A command-line interface for provisioning yt-dlp/ffmpeg and running downloads through the ytfetch server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8686", "Server URL")
	rootCmd.PersistentFlags().BoolVar(&noAutoStart, "no-auto-start", false, "Don't auto-start server if not running")

	rootCmd.AddCommand(checkCmd, versionsCmd, latestCmd, encodersCmd)
	rootCmd.AddCommand(installCmd, updateCmd)
	rootCmd.AddCommand(downloadCmd, jobsCmd, jobCmd, statsCmd, cancelCmd, infoCmd)
	rootCmd.AddCommand(serverCmd)
}

// client returns an API client, starting the server first unless --no-auto-start
func client() *apiClient {
	if !noAutoStart {
		if err := ensureServerRunning(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}
	return newAPIClient(serverURL)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Show which managed tools are installed",
	RunE: func(cmd *cobra.Command, args []string) error {
		var check domain.ProvisioningCheck
		if err := client().do(http.MethodGet, "/api/v1/binaries", nil, &check); err != nil {
			return err
		}
		fmt.Printf("Install dir: %s\n", check.InstallDir)
		fmt.Printf("  yt-dlp: %s\n", presence(check.FetchToolPresent))
		fmt.Printf("  ffmpeg: %s\n", presence(check.TranscodeToolPresent))
		return nil
	},
}

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "Show installed tool versions",
	RunE: func(cmd *cobra.Command, args []string) error {
		var v domain.ToolVersions
		if err := client().do(http.MethodGet, "/api/v1/binaries/versions", nil, &v); err != nil {
			return err
		}
		fmt.Printf("yt-dlp: %s\n", v.FetchToolVersion)
		fmt.Printf("ffmpeg: %s\n", v.TranscodeToolVersion)
		return nil
	},
}

var latestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Show the newest upstream releases",
	RunE: func(cmd *cobra.Command, args []string) error {
		var v domain.LatestVersions
		if err := client().do(http.MethodGet, "/api/v1/binaries/latest", nil, &v); err != nil {
			return err
		}
		fmt.Printf("yt-dlp: %s\n", v.FetchTool)
		fmt.Printf("ffmpeg: %s\n", v.TranscodeTool)
		return nil
	},
}

var encodersCmd = &cobra.Command{
	Use:   "encoders",
	Short: "List hardware encoders supported by the installed ffmpeg",
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp struct {
			Encoders []string `json:"encoders"`
		}
		if err := client().do(http.MethodGet, "/api/v1/binaries/encoders", nil, &resp); err != nil {
			return err
		}
		if len(resp.Encoders) == 0 {
			fmt.Println("No hardware encoders detected")
			return nil
		}
		for _, e := range resp.Encoders {
			fmt.Println(e)
		}
		return nil
	},
}

var installCmd = &cobra.Command{
	Use:   "install [yt-dlp|ffmpeg|all]",
	Short: "Install missing tools",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return provision(cmd, "ensure", nameArg(args))
	},
}

var updateCmd = &cobra.Command{
	Use:   "update [yt-dlp|ffmpeg|all]",
	Short: "Re-download tools even if present",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return provision(cmd, "update", nameArg(args))
	},
}

func nameArg(args []string) string {
	if len(args) == 0 {
		return string(domain.BinaryAll)
	}
	return args[0]
}

// provision runs ensure/update while printing progress from the event stream
func provision(cmd *cobra.Command, op, name string) error {
	if _, err := domain.ParseBinaryName(name); err != nil {
		return err
	}

	c := client()
	done := make(chan struct{})
	if conn, err := c.dialEvents(""); err == nil {
		defer conn.Close()
		go printProvisioning(conn, cmd.OutOrStdout(), done)
	}

	var resp struct {
		Success  bool              `json:"success"`
		Outcomes map[string]string `json:"outcomes"`
		Error    string            `json:"error"`
	}
	err := c.do(http.MethodPost, "/api/v1/binaries/"+url.PathEscape(name)+"/"+op, nil, &resp)
	close(done)
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return err
	}

	for tool, outcome := range resp.Outcomes {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", tool, outcome)
	}
	if op == "update" {
		fmt.Fprintf(cmd.OutOrStdout(), "%s updated\n", name)
	}
	return nil
}

var downloadCmd = &cobra.Command{
	Use:   "download <url>",
	Short: "Run a download and follow its output",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := requestFromFlags(cmd, args[0])
		if err != nil {
			return err
		}
		detach, _ := cmd.Flags().GetBool("detach")
		quiet, _ := cmd.Flags().GetBool("quiet")

		c := client()

		// subscribe before submitting so no early line is missed
		var follow func(id string) error
		if !detach {
			conn, err := c.dialEvents("")
			if err != nil {
				return err
			}
			defer conn.Close()
			follow = func(id string) error {
				res, err := followJob(conn, id, cmd.OutOrStdout(), quiet)
				if err != nil {
					return err
				}
				return reportResult(cmd, res)
			}
		}

		var created struct {
			ID string `json:"id"`
		}
		if err := c.do(http.MethodPost, "/api/v1/jobs", req, &created); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Job %s started\n", created.ID)

		if follow == nil {
			fmt.Fprintln(cmd.OutOrStdout(), created.ID)
			return nil
		}
		return follow(created.ID)
	},
}

func requestFromFlags(cmd *cobra.Command, rawURL string) (domain.DownloadRequest, error) {
	flags := cmd.Flags()
	audio, _ := flags.GetBool("audio")
	location, _ := flags.GetString("location")
	template, _ := flags.GetString("output")
	container, _ := flags.GetString("container")
	resolution, _ := flags.GetString("resolution")
	audioFormat, _ := flags.GetString("audio-format")
	bitrate, _ := flags.GetString("audio-bitrate")
	playlist, _ := flags.GetString("playlist")
	cookies, _ := flags.GetString("cookies-from-browser")
	section, _ := flags.GetString("section")
	thumbnail, _ := flags.GetBool("embed-thumbnail")
	metadata, _ := flags.GetBool("add-metadata")
	subs, _ := flags.GetBool("embed-subs")
	autoSubs, _ := flags.GetBool("auto-subs")
	chapters, _ := flags.GetBool("split-chapters")
	notify, _ := flags.GetBool("notify")

	req := domain.DownloadRequest{
		URL:            rawURL,
		Mode:           domain.ModeVideo,
		Location:       location,
		OutputTemplate: template,
		Options: domain.FormatOptions{
			VideoContainer:  container,
			VideoResolution: resolution,
			AudioFormat:     audioFormat,
			AudioBitrate:    bitrate,
		},
		Advanced: domain.AdvancedOptions{
			EmbedThumbnail: thumbnail,
			AddMetadata:    metadata,
			EmbedSubs:      subs,
			WriteAutoSub:   autoSubs,
			SplitChapters:  chapters,
			Playlist:       domain.PlaylistMode(playlist),
			CookiesBrowser: cookies,
		},
		NotificationsEnabled: notify,
	}
	if audio {
		req.Mode = domain.ModeAudio
	}

	if section != "" {
		start, end, ok := strings.Cut(section, "-")
		if !ok || start == "" || end == "" {
			return req, fmt.Errorf("--section must look like START-END, e.g. 00:01:00-00:02:30")
		}
		req.Advanced.TimeRange = &domain.TimeRange{Enabled: true, Start: start, End: end}
	}

	return req, req.Validate()
}

func reportResult(cmd *cobra.Command, res *domain.JobResult) error {
	if !res.Success {
		return fmt.Errorf("%s (exit code %d)", res.Message, res.ExitCode)
	}
	fmt.Fprintln(cmd.ErrOrStderr(), res.Message)
	if res.Filename != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s)\n", res.Filename, formatBytes(res.FileSize))
	}
	return nil
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List job history",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetString("status")

		path := "/api/v1/jobs"
		if status != "" {
			path += "?" + url.Values{"status": {status}}.Encode()
		}

		var resp struct {
			Jobs  []domain.JobRecord `json:"jobs"`
			Count int                `json:"count"`
		}
		if err := client().do(http.MethodGet, path, nil, &resp); err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tURL\tMODE\tSTATUS\tCREATED")
		for _, j := range resp.Jobs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				truncate(j.ID, 8),
				truncate(j.URL, 40),
				j.Mode,
				j.Status,
				j.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

var jobCmd = &cobra.Command{
	Use:   "job <id>",
	Short: "Show job details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var j domain.JobRecord
		if err := client().do(http.MethodGet, "/api/v1/jobs/"+url.PathEscape(args[0]), nil, &j); err != nil {
			return err
		}

		fmt.Printf("Job Details:\n")
		fmt.Printf("  ID:       %s\n", j.ID)
		fmt.Printf("  URL:      %s\n", j.URL)
		fmt.Printf("  Mode:     %s\n", j.Mode)
		fmt.Printf("  Status:   %s\n", j.Status)
		fmt.Printf("  Created:  %s\n", j.CreatedAt.Format("2006-01-02 15:04:05"))
		if j.Title != "" {
			fmt.Printf("  Title:    %s\n", j.Title)
		}
		if j.FilePath != "" {
			fmt.Printf("  File:     %s (%s)\n", j.FilePath, formatBytes(j.FileSize))
		}
		if j.ErrorMessage != "" {
			fmt.Printf("  Error:    %s\n", j.ErrorMessage)
		}
		if j.CommandLine != "" {
			fmt.Printf("  Command:  %s\n", j.CommandLine)
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show job statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		var s domain.JobStats
		if err := client().do(http.MethodGet, "/api/v1/jobs/stats", nil, &s); err != nil {
			return err
		}
		fmt.Println("Job Statistics:")
		fmt.Printf("  Total:        %d\n", s.Total)
		fmt.Printf("  Running:      %d\n", s.Running)
		fmt.Printf("  Completed:    %d\n", s.Completed)
		fmt.Printf("  Failed:       %d\n", s.Failed)
		fmt.Printf("  Spawn failed: %d\n", s.SpawnFailed)
		fmt.Printf("  Cancelled:    %d\n", s.Cancelled)
		return nil
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <id>",
	Short: "Cancel a running job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := client().do(http.MethodPost, "/api/v1/jobs/"+url.PathEscape(args[0])+"/cancel", nil, nil); err != nil {
			return err
		}
		fmt.Println("Cancellation requested")
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info <url>",
	Short: "Print yt-dlp metadata for a URL as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var raw map[string]interface{}
		if err := client().do(http.MethodPost, "/api/v1/info", map[string]string{"url": args[0]}, &raw); err != nil {
			return err
		}
		fmt.Printf("Title:    %v\n", raw["title"])
		fmt.Printf("Uploader: %v\n", raw["uploader"])
		fmt.Printf("Duration: %v\n", raw["duration_string"])
		return nil
	},
}

func init() {
	registerDownloadFlags(downloadCmd)
	jobsCmd.Flags().StringP("status", "s", "", "Filter by status")
}

func registerDownloadFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.BoolP("audio", "x", false, "Extract audio instead of video")
	f.StringP("location", "l", "", "Output directory (server default if empty)")
	f.StringP("output", "o", "", "Output template")
	f.String("container", "", "Video container (mp4, mkv, webm)")
	f.StringP("resolution", "r", "", "Video resolution (best, 2160p, 1080p, 720p...)")
	f.String("audio-format", "", "Audio format (mp3, m4a, opus, wav, flac...)")
	f.String("audio-bitrate", "", "Audio bitrate, e.g. 192k")
	f.String("playlist", "", "Playlist handling (default, single, playlist)")
	f.String("cookies-from-browser", "", "Browser to read cookies from")
	f.String("section", "", "Only download START-END")
	f.Bool("embed-thumbnail", false, "Embed the thumbnail")
	f.Bool("add-metadata", false, "Write metadata to the file")
	f.Bool("embed-subs", false, "Embed subtitles (video only)")
	f.Bool("auto-subs", false, "Write automatic subtitles (video only)")
	f.Bool("split-chapters", false, "Split by chapters")
	f.Bool("notify", false, "Show a desktop notification when done")
	f.BoolP("detach", "d", false, "Print the job id and return immediately")
	f.BoolP("quiet", "q", false, "Only print notes and the result")
}

func presence(ok bool) string {
	if ok {
		return "installed"
	}
	return "missing"
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
