package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/process"
	"github.com/spf13/cobra"
)

const (
	serverBinaryName   = "ytfetch-server"
	serverStartTimeout = 10 * time.Second
	serverPollInterval = 200 * time.Millisecond
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Manage the background server",
}

var serverStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the server if it is not running",
	RunE: func(cmd *cobra.Command, args []string) error {
		if isServerRunning() {
			fmt.Println("Server already running at", serverURL)
			return nil
		}
		return ensureServerRunning()
	},
}

var serverStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), serverStartTimeout)
		defer cancel()

		procs, err := findServerProcesses(ctx)
		if err != nil {
			return err
		}
		if len(procs) == 0 {
			fmt.Println("Server is not running")
			return nil
		}

		for _, p := range procs {
			if err := p.TerminateWithContext(ctx); err != nil {
				return fmt.Errorf("failed to stop server (PID %d): %w", p.Pid, err)
			}
			fmt.Printf("Stopped server (PID %d)\n", p.Pid)
		}
		return nil
	},
}

var serverStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the server is running",
	RunE: func(cmd *cobra.Command, args []string) error {
		var health struct {
			Status      string `json:"status"`
			Version     string `json:"version"`
			RunningJobs int    `json:"running_jobs"`
			FetchTool   bool   `json:"fetch_tool_present"`
			Transcode   bool   `json:"transcode_tool_present"`
		}
		if err := newAPIClient(serverURL).do(http.MethodGet, "/health", nil, &health); err != nil {
			fmt.Printf("Server not reachable at %s: %v\n", serverURL, err)
			return nil
		}
		fmt.Printf("Server %s (version %s) at %s\n", health.Status, health.Version, serverURL)
		fmt.Printf("  Running jobs: %d\n", health.RunningJobs)
		fmt.Printf("  yt-dlp:       %s\n", presence(health.FetchTool))
		fmt.Printf("  ffmpeg:       %s\n", presence(health.Transcode))
		return nil
	},
}

func init() {
	serverCmd.AddCommand(serverStartCmd, serverStopCmd, serverStatusCmd)
}

// isServerRunning checks if the server is responding to health checks
func isServerRunning() bool {
	client := &http.Client{Timeout: 1 * time.Second}
	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// findServerBinary locates the server binary next to the CLI, on PATH, or in common locations
func findServerBinary() (string, error) {
	name := serverBinaryName + exeSuffix

	if execPath, err := os.Executable(); err == nil {
		serverPath := filepath.Join(filepath.Dir(execPath), name)
		if _, err := os.Stat(serverPath); err == nil {
			return serverPath, nil
		}
	}

	if serverPath, err := exec.LookPath(name); err == nil {
		return serverPath, nil
	}

	home, _ := os.UserHomeDir()
	commonPaths := []string{
		"/usr/local/bin/" + name,
		"/usr/bin/" + name,
		filepath.Join(home, "go", "bin", name),
		filepath.Join(home, ".local", "bin", name),
	}
	for _, p := range commonPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("%s binary not found", serverBinaryName)
}

// findServerProcesses returns running server processes owned by anyone visible to us
func findServerProcesses(ctx context.Context) ([]*process.Process, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}

	var found []*process.Process
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		if strings.TrimSuffix(name, ".exe") == serverBinaryName {
			found = append(found, p)
		}
	}
	return found, nil
}

// startServerBackground starts the server as a detached background process
func startServerBackground() error {
	serverPath, err := findServerBinary()
	if err != nil {
		return err
	}

	// -foreground: this process already detaches it
	cmd := exec.Command(serverPath, "-foreground")
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	setSysProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	go func() {
		cmd.Wait()
	}()

	return nil
}

// waitForServerReady polls the server until it's ready or timeout
func waitForServerReady() error {
	deadline := time.Now().Add(serverStartTimeout)

	for time.Now().Before(deadline) {
		if isServerRunning() {
			return nil
		}
		time.Sleep(serverPollInterval)
	}

	return fmt.Errorf("server did not start within %v", serverStartTimeout)
}

// ensureServerRunning checks if server is running, starts it if not
func ensureServerRunning() error {
	if isServerRunning() {
		return nil
	}

	fmt.Fprintln(os.Stderr, "Server not running, starting...")

	if err := startServerBackground(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	if err := waitForServerReady(); err != nil {
		return err
	}

	fmt.Fprintln(os.Stderr, "Server started successfully")
	return nil
}
