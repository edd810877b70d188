package service

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raito-kakutani/timable/internal/dto"
	"github.com/raito-kakutani/timable/pkg/storage"
)

func newExportService(t *testing.T) *ExportService {
	t.Helper()
	plans, roster := scenarioFixture()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	return NewExportService(plans, roster, store, signer, nil, nil, ExportServiceConfig{
		APIPrefix:  "/api/v1",
		Workers:    2,
		MaxRetries: 1,
		RetryDelay: 10 * time.Millisecond,
	})
}

func waitForStatus(t *testing.T, svc *ExportService, jobID, want string) *dto.ExportStatusResponse {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		res, err := svc.Status(context.Background(), jobID)
		require.NoError(t, err)
		if res.Status == want {
			return res
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never reached status %s", jobID, want)
	return nil
}

func TestExportLifecycleCSV(t *testing.T) {
	svc := newExportService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	job, err := svc.Enqueue(ctx, "tt-1", dto.ExportRequest{
		Format: dto.ExportFormatCSV,
		View:   dto.ExportViewClass,
		Week:   1,
	})
	require.NoError(t, err)
	assert.Equal(t, "PENDING", job.Status)

	status := waitForStatus(t, svc, job.ID, "COMPLETED")
	require.NotNil(t, status.DownloadURL)
	require.NotNil(t, status.FinishedAt)

	parts := strings.Split(*status.DownloadURL, "/")
	token := parts[len(parts)-1]
	download, err := svc.ResolveDownload(ctx, token)
	require.NoError(t, err)
	defer download.File.Close()

	payload, err := io.ReadAll(download.File)
	require.NoError(t, err)
	assert.Contains(t, string(payload), "Class,Day,Period,Subject,Teacher")
	assert.Contains(t, string(payload), "10A")
	assert.Equal(t, dto.ExportFormatCSV, download.Format)
}

func TestExportRejectsUnknownWeek(t *testing.T) {
	svc := newExportService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	_, err := svc.Enqueue(ctx, "tt-1", dto.ExportRequest{
		Format: dto.ExportFormatCSV,
		View:   dto.ExportViewClass,
		Week:   5,
	})
	require.Error(t, err)
}

func TestExportRejectsInvalidDownloadToken(t *testing.T) {
	svc := newExportService(t)
	_, err := svc.ResolveDownload(context.Background(), "not-a-token")
	require.Error(t, err)
}

// Status must stay safe while workers mutate the record in place.
func TestExportStatusDuringProcessing(t *testing.T) {
	svc := newExportService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	job, err := svc.Enqueue(ctx, "tt-1", dto.ExportRequest{
		Format: dto.ExportFormatPDF,
		View:   dto.ExportViewTeacher,
		Week:   1,
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				res, err := svc.Status(ctx, job.ID)
				if err != nil {
					t.Errorf("status failed: %v", err)
					return
				}
				switch res.Status {
				case "PENDING", "PROCESSING", "COMPLETED":
				default:
					t.Errorf("unexpected status %s", res.Status)
				}
			}
		}()
	}
	wg.Wait()

	waitForStatus(t, svc, job.ID, "COMPLETED")
}
