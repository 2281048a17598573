package infrastructure

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// jobLog appends raw child output to the daily download log. All output of a
// job is bracketed by a header with the command line and a SUCCESS/FAILED footer.
type jobLog struct {
	mu    sync.Mutex
	file  afero.File
	jobID string
}

// openJobLog opens download-YYYYMMDD.log under logsDir. An empty logsDir
// disables the log and returns a no-op writer.
func openJobLog(fs afero.Fs, logsDir, jobID string) (*jobLog, error) {
	l := &jobLog{jobID: jobID}
	if logsDir == "" {
		return l, nil
	}

	if err := fs.MkdirAll(logsDir, 0755); err != nil {
		return l, fmt.Errorf("failed to create logs directory: %w", err)
	}

	dateStr := time.Now().Format("20060102")
	path := filepath.Join(logsDir, "download-"+dateStr+".log")
	file, err := fs.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return l, err
	}
	l.file = file
	return l, nil
}

func (l *jobLog) header(cmdLine string) {
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	l.write(fmt.Sprintf("\n=== [%s] Download: %s ===\n$ %s\n", timestamp, l.jobID, cmdLine))
}

func (l *jobLog) line(stream, text string) {
	l.write(fmt.Sprintf("[%.8s %s] %s\n", l.jobID, stream, text))
}

func (l *jobLog) footer(success bool, message string) {
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	status := "SUCCESS"
	if !success {
		status = "FAILED"
	}
	l.write(fmt.Sprintf("[%s] %s: %s\n=== END ===\n\n", timestamp, status, message))
}

func (l *jobLog) write(s string) {
	if l.file == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.file.WriteString(s)
}

func (l *jobLog) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
