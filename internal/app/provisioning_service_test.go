package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/ytfetch-go/internal/domain"
	"github.com/yourusername/ytfetch-go/internal/infrastructure"
	"github.com/yourusername/ytfetch-go/internal/platform"
	"github.com/yourusername/ytfetch-go/pkg/logger"
	"go.uber.org/zap"
)

// stubProvisioner implements domain.Provisioner
type stubProvisioner struct {
	mu       sync.Mutex
	failures map[domain.BinaryName]error
	ensured  []domain.BinaryName
	updated  []domain.BinaryName
}

func (s *stubProvisioner) Ensure(_ context.Context, name domain.BinaryName) (domain.ProvisionOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensured = append(s.ensured, name)
	if err := s.failures[name]; err != nil {
		return "", err
	}
	if name == domain.BinaryYtDlp {
		return domain.OutcomeAlreadyPresent, nil
	}
	return domain.OutcomeInstalled, nil
}

func (s *stubProvisioner) ForceUpdate(_ context.Context, name domain.BinaryName) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updated = append(s.updated, name)
	return s.failures[name]
}

func newTestProvisioningService(t *testing.T, prov domain.Provisioner, fs afero.Fs) *ProvisioningService {
	t.Helper()
	resolver := platform.NewResolver(fs, "/data/bin", platform.ProfileFor("darwin", "arm64", "6.1"))
	inspector := infrastructure.NewToolInspector(resolver, nil, "", 0, zap.NewNop())
	return NewProvisioningService(prov, resolver, inspector, nil, logger.NewSingleLoggerAdapter(zap.NewNop()))
}

func TestProvisioningService_Check(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/bin/yt-dlp", []byte("x"), 0755))
	svc := newTestProvisioningService(t, &stubProvisioner{}, fs)

	check := svc.Check()
	assert.True(t, check.FetchToolPresent)
	assert.False(t, check.TranscodeToolPresent)
	assert.Equal(t, "/data/bin", check.InstallDir)

	binaries := svc.Binaries()
	require.Len(t, binaries, 2)
	assert.True(t, binaries[0].Present)
	assert.Equal(t, domain.BinaryFFmpeg, binaries[1].Name)
	assert.True(t, svc.Supported(domain.BinaryFFmpeg))
}

func TestProvisioningService_EnsureAll(t *testing.T) {
	prov := &stubProvisioner{}
	svc := newTestProvisioningService(t, prov, afero.NewMemMapFs())

	outcomes, err := svc.Ensure(context.Background(), domain.BinaryAll)
	require.NoError(t, err)
	assert.Equal(t, []domain.BinaryName{domain.BinaryYtDlp, domain.BinaryFFmpeg}, prov.ensured)
	assert.Equal(t, domain.OutcomeAlreadyPresent, outcomes[domain.BinaryYtDlp])
	assert.Equal(t, domain.OutcomeInstalled, outcomes[domain.BinaryFFmpeg])
}

func TestProvisioningService_EnsureAllAttemptsEveryTool(t *testing.T) {
	prov := &stubProvisioner{failures: map[domain.BinaryName]error{
		domain.BinaryYtDlp: domain.ErrNetwork,
	}}
	svc := newTestProvisioningService(t, prov, afero.NewMemMapFs())

	outcomes, err := svc.Ensure(context.Background(), domain.BinaryAll)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNetwork))
	assert.Len(t, prov.ensured, 2)
	assert.Equal(t, domain.OutcomeInstalled, outcomes[domain.BinaryFFmpeg])
}

func TestProvisioningService_UpdateSingle(t *testing.T) {
	prov := &stubProvisioner{failures: map[domain.BinaryName]error{
		domain.BinaryFFmpeg: domain.ErrUnsupportedPlatform,
	}}
	svc := newTestProvisioningService(t, prov, afero.NewMemMapFs())

	require.NoError(t, svc.Update(context.Background(), domain.BinaryYtDlp))
	err := svc.Update(context.Background(), domain.BinaryFFmpeg)
	assert.True(t, errors.Is(err, domain.ErrUnsupportedPlatform))
	assert.Equal(t, []domain.BinaryName{domain.BinaryYtDlp, domain.BinaryFFmpeg}, prov.updated)
}

func TestProvisioningService_CancelledContext(t *testing.T) {
	prov := &stubProvisioner{}
	svc := newTestProvisioningService(t, prov, afero.NewMemMapFs())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := svc.Update(ctx, domain.BinaryAll)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, prov.updated)
}

func TestProvisioningService_VersionsWithoutTools(t *testing.T) {
	svc := newTestProvisioningService(t, &stubProvisioner{}, afero.NewMemMapFs())
	versions := svc.Versions(context.Background())
	assert.Equal(t, domain.NotDetected, versions.FetchToolVersion)
	assert.Equal(t, domain.NotDetected, versions.TranscodeToolVersion)

	_, err := svc.Encoders(context.Background())
	assert.True(t, errors.Is(err, domain.ErrToolNotFound))
}
