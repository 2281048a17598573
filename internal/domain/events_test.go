package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressSnapshot_Percent(t *testing.T) {
	assert.Equal(t, 0.0, ProgressSnapshot{Downloaded: 500, Total: 0}.Percent())
	assert.Equal(t, 50.0, ProgressSnapshot{Downloaded: 50, Total: 100}.Percent())
	assert.Equal(t, 100.0, ProgressSnapshot{Downloaded: 100, Total: 100}.Percent())
	assert.Equal(t, 100.0, ProgressSnapshot{Downloaded: 150, Total: 100}.Percent())
}

func TestStatusKey(t *testing.T) {
	assert.Equal(t, "statusDownloadingYtDlp", StatusKey(BinaryYtDlp, PhaseDownloading))
	assert.Equal(t, "statusDownloadingFfmpeg", StatusKey(BinaryFFmpeg, PhaseDownloading))
	assert.Equal(t, "statusExtractingFfmpeg", StatusKey(BinaryFFmpeg, PhaseExtracting))
	assert.Equal(t, "", StatusKey(BinaryFFmpeg, ""))
}

func TestNewProvisioningProgress(t *testing.T) {
	ev := NewProvisioningProgress(BinaryYtDlp, ProgressSnapshot{Downloaded: 25, Total: 100, Speed: 10})

	assert.Equal(t, ProvisioningProgress, ev.Kind)
	assert.Equal(t, BinaryYtDlp, ev.Type)
	assert.Equal(t, 25.0, ev.Percent)
	assert.Equal(t, "statusDownloadingYtDlp", ev.StatusKey)
	if assert.NotNil(t, ev.Progress) {
		assert.Equal(t, int64(25), ev.Progress.Downloaded)
	}
}

func TestNewProvisioningStatus_ClampsPercent(t *testing.T) {
	ev := NewProvisioningStatus(BinaryFFmpeg, PhaseCompleted, 140)

	assert.Equal(t, ProvisioningStatus, ev.Kind)
	assert.Equal(t, 100.0, ev.Percent)
	assert.Nil(t, ev.Progress)
}
