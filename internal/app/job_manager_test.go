package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/ytfetch-go/internal/domain"
	"github.com/yourusername/ytfetch-go/internal/infrastructure"
	"github.com/yourusername/ytfetch-go/pkg/logger"
	"go.uber.org/zap"
)

// mockRepo implements domain.JobRepository for testing
type mockRepo struct {
	mu   sync.Mutex
	jobs map[string]domain.JobRecord
}

func newMockRepo() *mockRepo {
	return &mockRepo{jobs: make(map[string]domain.JobRecord)}
}

func (m *mockRepo) Create(job *domain.JobRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = *job
	return nil
}

func (m *mockRepo) Update(job *domain.JobRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; !ok {
		return domain.ErrJobNotFound
	}
	m.jobs[job.ID] = *job
	return nil
}

func (m *mockRepo) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
	return nil
}

func (m *mockRepo) FindByID(id string) (*domain.JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrJobNotFound, id)
	}
	return &job, nil
}

func (m *mockRepo) FindAll(filters map[string]interface{}) ([]*domain.JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.JobRecord
	for _, j := range m.jobs {
		j := j
		if status, ok := filters["status"]; ok && string(j.Status) != fmt.Sprint(status) {
			continue
		}
		out = append(out, &j)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	return out, nil
}

func (m *mockRepo) GetStats() (*domain.JobStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &domain.JobStats{Total: int64(len(m.jobs))}
	for _, j := range m.jobs {
		switch j.Status {
		case domain.JobCompleted:
			stats.Completed++
		case domain.JobFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

func (m *mockRepo) MarkInterrupted() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, j := range m.jobs {
		if !j.IsTerminal() {
			j.Status = domain.JobFailed
			m.jobs[id] = j
			n++
		}
	}
	return n, nil
}

func (m *mockRepo) get(t *testing.T, id string) domain.JobRecord {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	require.True(t, ok)
	return job
}

// fakeRunner implements domain.JobRunner and lets tests drive the sink
type fakeRunner struct {
	mu        sync.Mutex
	submitErr error
	sinks     map[string]domain.JobSink
	requests  map[string]domain.DownloadRequest
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		sinks:    make(map[string]domain.JobSink),
		requests: make(map[string]domain.DownloadRequest),
	}
}

func (r *fakeRunner) Submit(_ context.Context, id string, req domain.DownloadRequest, sink domain.JobSink) error {
	if r.submitErr != nil {
		return r.submitErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks[id] = sink
	r.requests[id] = req
	return nil
}

func (r *fakeRunner) Cancel(id string) error {
	r.mu.Lock()
	sink, ok := r.sinks[id]
	delete(r.sinks, id)
	r.mu.Unlock()
	if !ok {
		return domain.ErrJobNotFound
	}
	sink(domain.JobEvent{JobID: id, Kind: domain.JobEventComplete, Result: &domain.JobResult{Cancelled: true, Message: "download cancelled", ExitCode: -1}})
	return nil
}

func (r *fakeRunner) CommandLine(req domain.DownloadRequest) string {
	return "yt-dlp " + req.URL
}

func (r *fakeRunner) emit(id string, ev domain.JobEvent) {
	r.mu.Lock()
	sink := r.sinks[id]
	r.mu.Unlock()
	ev.JobID = id
	sink(ev)
}

type managerFixture struct {
	repo     *mockRepo
	runner   *fakeRunner
	hub      *EventHub
	sub      *Subscription
	notified []string
	manager  *JobManager
}

func newManagerFixture(t *testing.T) *managerFixture {
	t.Helper()
	fx := &managerFixture{
		repo:   newMockRepo(),
		runner: newFakeRunner(),
		hub:    NewEventHub(zap.NewNop()),
	}
	fx.sub = fx.hub.Subscribe(64)

	notifier := infrastructure.NewNotificationService(&domain.NotificationConfig{Enabled: true, Method: "notify-send"}, zap.NewNop())
	notifier.SetRunner(func(name string, args ...string) error {
		fx.notified = append(fx.notified, args[0])
		return nil
	})

	fx.manager = NewJobManager(fx.repo, fx.runner, fx.hub, notifier, logger.NewSingleLoggerAdapter(zap.NewNop()), "/downloads")
	return fx
}

func (fx *managerFixture) next(t *testing.T) Envelope {
	t.Helper()
	select {
	case env := <-fx.sub.C:
		return env
	case <-time.After(time.Second):
		t.Fatal("no envelope published")
		return Envelope{}
	}
}

func TestJobManager_SubmitAndComplete(t *testing.T) {
	fx := newManagerFixture(t)

	rec, err := fx.manager.Submit(context.Background(), domain.DownloadRequest{
		URL:                  "https://example.com/v",
		Mode:                 domain.ModeAudio,
		NotificationsEnabled: true,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.JobRunning, rec.Status)
	assert.Equal(t, "yt-dlp https://example.com/v", rec.CommandLine)
	assert.Equal(t, "/downloads", fx.runner.requests[rec.ID].Location)
	assert.Equal(t, domain.DefaultAudioFormat, fx.runner.requests[rec.ID].Options.AudioFormat)
	assert.Empty(t, fx.runner.requests[rec.ID].Options.AudioBitrate)

	fx.runner.emit(rec.ID, domain.JobEvent{Kind: domain.JobEventLine, Stream: domain.StreamStdout, Line: "[download] 10%"})
	env := fx.next(t)
	assert.Equal(t, ChannelDownloadProgress, env.Channel)

	fx.runner.emit(rec.ID, domain.JobEvent{Kind: domain.JobEventComplete, Result: &domain.JobResult{
		Success:  true,
		Message:  "Download completed successfully",
		Title:    "Song",
		Filename: "/downloads/Song.mp3",
		FileSize: 42,
	}})
	env = fx.next(t)
	assert.Equal(t, ChannelDownloadComplete, env.Channel)

	stored := fx.repo.get(t, rec.ID)
	assert.Equal(t, domain.JobCompleted, stored.Status)
	assert.Equal(t, "/downloads/Song.mp3", stored.FilePath)
	assert.Equal(t, int64(42), stored.FileSize)
	assert.NotNil(t, stored.CompletedAt)
	assert.Equal(t, []string{"Download Completed"}, fx.notified)
}

func TestJobManager_FailureWithoutNotifications(t *testing.T) {
	fx := newManagerFixture(t)

	rec, err := fx.manager.Submit(context.Background(), domain.DownloadRequest{URL: "u", Mode: domain.ModeVideo, Location: "/x"})
	require.NoError(t, err)

	fx.runner.emit(rec.ID, domain.JobEvent{Kind: domain.JobEventComplete, Result: &domain.JobResult{ExitCode: 1, Message: "yt-dlp exited with code 1"}})

	stored := fx.repo.get(t, rec.ID)
	assert.Equal(t, domain.JobFailed, stored.Status)
	assert.Equal(t, "yt-dlp exited with code 1", stored.ErrorMessage)
	assert.Equal(t, 1, stored.ExitCode)
	assert.Empty(t, fx.notified)
}

func TestJobManager_SpawnFailure(t *testing.T) {
	fx := newManagerFixture(t)
	fx.runner.submitErr = fmt.Errorf("%w: yt-dlp is not installed", domain.ErrToolNotFound)

	rec, err := fx.manager.Submit(context.Background(), domain.DownloadRequest{URL: "u"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrToolNotFound))
	require.NotNil(t, rec)

	stored := fx.repo.get(t, rec.ID)
	assert.Equal(t, domain.JobSpawnFailed, stored.Status)
	assert.Contains(t, stored.ErrorMessage, "not installed")
	select {
	case env := <-fx.sub.C:
		t.Fatalf("unexpected event %v", env)
	default:
	}
}

func TestJobManager_InvalidRequest(t *testing.T) {
	fx := newManagerFixture(t)

	_, err := fx.manager.Submit(context.Background(), domain.DownloadRequest{Mode: domain.ModeVideo})
	assert.Error(t, err)
	_, err = fx.manager.Submit(context.Background(), domain.DownloadRequest{URL: "u", Mode: "podcast"})
	assert.Error(t, err)

	jobs, _ := fx.manager.List(nil)
	assert.Empty(t, jobs)
}

func TestJobManager_Cancel(t *testing.T) {
	fx := newManagerFixture(t)

	rec, err := fx.manager.Submit(context.Background(), domain.DownloadRequest{URL: "u", Mode: domain.ModeVideo})
	require.NoError(t, err)

	require.NoError(t, fx.manager.Cancel(rec.ID))
	assert.Equal(t, domain.JobCancelled, fx.repo.get(t, rec.ID).Status)

	err = fx.manager.Cancel(rec.ID)
	assert.True(t, errors.Is(err, domain.ErrJobFinished))

	err = fx.manager.Cancel("nope")
	assert.True(t, errors.Is(err, domain.ErrJobNotFound))
}

func TestJobManager_RecoverInterrupted(t *testing.T) {
	fx := newManagerFixture(t)
	stale := domain.NewJobRecord(domain.DownloadRequest{URL: "u", Mode: domain.ModeVideo})
	stale.MarkRunning("")
	require.NoError(t, fx.repo.Create(stale))

	require.NoError(t, fx.manager.RecoverInterrupted())
	assert.Equal(t, domain.JobFailed, fx.repo.get(t, stale.ID).Status)
}
