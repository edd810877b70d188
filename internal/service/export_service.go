package service

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/raito-kakutani/timable/internal/dto"
	"github.com/raito-kakutani/timable/internal/models"
	appErrors "github.com/raito-kakutani/timable/pkg/errors"
	"github.com/raito-kakutani/timable/pkg/export"
	"github.com/raito-kakutani/timable/pkg/jobs"
	"github.com/raito-kakutani/timable/pkg/storage"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Size(filename string) (int64, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(title string, sections ...export.Section) ([]byte, error)
}

// ExportServiceConfig tunes export rendering and retention.
type ExportServiceConfig struct {
	APIPrefix       string
	ResultTTL       time.Duration
	CleanupInterval time.Duration
	Workers         int
	MaxRetries      int
	RetryDelay      time.Duration
}

const (
	exportStatusPending    = "PENDING"
	exportStatusProcessing = "PROCESSING"
	exportStatusCompleted  = "COMPLETED"
	exportStatusFailed     = "FAILED"
)

type exportRecord struct {
	ID          string
	TimetableID string
	Format      dto.ExportFormat
	View        dto.ExportView
	Week        int
	Status      string
	RelPath     string
	DownloadURL string
	Error       string
	CreatedAt   time.Time
	FinishedAt  *time.Time
}

// ExportDownload hands a rendered file to the transport layer.
type ExportDownload struct {
	File     *os.File
	Filename string
	Size     int64
	Format   dto.ExportFormat
}

// ExportService renders timetable exports asynchronously and serves
// them through signed download tokens. Job state lives in memory; a
// restart forgets unfinished jobs.
type ExportService struct {
	plans     planSource
	teachers  rosterSource
	store     fileStorage
	signer    *storage.SignedURLSigner
	csv       csvRenderer
	pdf       pdfRenderer
	queue     *jobs.Queue
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportServiceConfig

	mu      sync.RWMutex
	records map[string]*exportRecord
}

// NewExportService constructs an ExportService with its own worker queue.
func NewExportService(plans planSource, teachers rosterSource, store fileStorage, signer *storage.SignedURLSigner, validate *validator.Validate, logger *zap.Logger, cfg ExportServiceConfig) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Hour
	}
	s := &ExportService{
		plans:     plans,
		teachers:  teachers,
		store:     store,
		signer:    signer,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		records:   make(map[string]*exportRecord),
	}
	s.queue = jobs.NewQueue("exports", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// Start launches the worker pool and the retention sweep.
func (s *ExportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
	go s.sweep(ctx)
}

// Stop drains the worker pool.
func (s *ExportService) Stop() {
	s.queue.Stop()
}

// Enqueue registers an export job for a stored timetable.
func (s *ExportService) Enqueue(ctx context.Context, timetableID string, req dto.ExportRequest) (*dto.ExportJobResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export payload")
	}
	timetable, plan, err := s.plans.Plan(ctx, timetableID)
	if err != nil {
		return nil, err
	}
	week := req.Week
	if week == 0 {
		week = 1
	}
	if week < 1 || week > len(plan.Weeks) {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("week %d is outside 1..%d", week, len(plan.Weeks)))
	}

	record := &exportRecord{
		ID:          uuid.NewString(),
		TimetableID: timetable.ID,
		Format:      req.Format,
		View:        req.View,
		Week:        week,
		Status:      exportStatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	s.mu.Lock()
	s.records[record.ID] = record
	s.mu.Unlock()

	jobID := record.ID
	if err := s.queue.Enqueue(jobs.Job{ID: jobID, Type: "export"}); err != nil {
		s.mu.Lock()
		delete(s.records, jobID)
		s.mu.Unlock()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export")
	}
	return &dto.ExportJobResponse{ID: jobID, Status: exportStatusPending}, nil
}

// snapshot copies a record under the read lock. Workers mutate records
// in place, so callers must never read through the shared pointer.
func (s *ExportService) snapshot(jobID string) (exportRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[jobID]
	if !ok {
		return exportRecord{}, false
	}
	return *record, true
}

// Status reports job progress and, once complete, the download URL.
func (s *ExportService) Status(ctx context.Context, jobID string) (*dto.ExportStatusResponse, error) {
	record, ok := s.snapshot(jobID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}

	response := &dto.ExportStatusResponse{
		ID:         record.ID,
		Status:     record.Status,
		Format:     string(record.Format),
		CreatedAt:  record.CreatedAt,
		FinishedAt: record.FinishedAt,
	}
	if record.Status == exportStatusCompleted && record.DownloadURL != "" {
		url := record.DownloadURL
		response.DownloadURL = &url
	}
	if record.Error != "" {
		msg := record.Error
		response.Error = &msg
	}
	return response, nil
}

// ResolveDownload validates a signed token and opens the rendered file.
func (s *ExportService) ResolveDownload(ctx context.Context, token string) (*ExportDownload, error) {
	jobID, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "download link is invalid or expired")
	}
	record, ok := s.snapshot(jobID)
	if !ok || record.Status != exportStatusCompleted || record.RelPath != relPath {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export no longer available")
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export file missing")
	}
	size, err := s.store.Size(relPath)
	if err != nil {
		size = 0
	}
	return &ExportDownload{
		File:     file,
		Filename: relPath,
		Size:     size,
		Format:   record.Format,
	}, nil
}

func (s *ExportService) handle(ctx context.Context, job jobs.Job) error {
	s.mu.Lock()
	record, ok := s.records[job.ID]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	record.Status = exportStatusProcessing
	input := *record
	s.mu.Unlock()

	relPath, url, err := s.generate(ctx, input)

	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if err != nil {
		if job.Attempt+1 < s.queueRetries() {
			record.Status = exportStatusPending
			return err
		}
		record.Status = exportStatusFailed
		record.Error = err.Error()
		record.FinishedAt = &now
		return err
	}
	record.Status = exportStatusCompleted
	record.RelPath = relPath
	record.DownloadURL = url
	record.FinishedAt = &now
	return nil
}

func (s *ExportService) queueRetries() int {
	if s.cfg.MaxRetries > 0 {
		return s.cfg.MaxRetries
	}
	return 3
}

func (s *ExportService) generate(ctx context.Context, record exportRecord) (string, string, error) {
	timetable, plan, err := s.plans.Plan(ctx, record.TimetableID)
	if err != nil {
		return "", "", err
	}
	if record.Week > len(plan.Weeks) {
		return "", "", fmt.Errorf("week %d no longer present", record.Week)
	}
	days, periods, _ := s.plans.WeekShape(ctx, timetable)
	teachers, err := s.teachers.ListAll(ctx)
	if err != nil {
		return "", "", err
	}
	names := make(map[string]string, len(teachers))
	for _, t := range teachers {
		names[t.ID] = t.FullName
	}
	assignment := plan.Weeks[record.Week-1]

	var payload []byte
	title := fmt.Sprintf("Timetable v%d week %d", timetable.Version, record.Week)
	switch record.Format {
	case dto.ExportFormatCSV:
		payload, err = s.csv.Render(flatDataset(assignment, record.View, days, names))
	case dto.ExportFormatPDF:
		payload, err = s.pdf.Render(title, gridSections(assignment, record.View, days, periods, names)...)
	default:
		err = fmt.Errorf("unsupported format %s", record.Format)
	}
	if err != nil {
		return "", "", err
	}

	filename := fmt.Sprintf("timetable-v%d-week%d-%s-%s.%s",
		timetable.Version, record.Week, record.View, record.ID[:8], record.Format)
	relPath, err := s.store.Save(filename, payload)
	if err != nil {
		return "", "", err
	}
	token, _, err := s.signer.Generate(record.ID, relPath)
	if err != nil {
		return "", "", err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return relPath, fmt.Sprintf("%s/exports/download/%s", prefix, token), nil
}

// sweep removes stale files and finished job records past the TTL.
func (s *ExportService) sweep(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed, err := s.store.CleanupOlderThan(s.cfg.ResultTTL); err != nil {
				s.logger.Warn("export cleanup failed", zap.Error(err))
			} else if len(removed) > 0 {
				s.logger.Info("export files removed", zap.Int("count", len(removed)))
			}
			cutoff := time.Now().UTC().Add(-s.cfg.ResultTTL)
			s.mu.Lock()
			for id, record := range s.records {
				if record.FinishedAt != nil && record.FinishedAt.Before(cutoff) {
					delete(s.records, id)
				}
			}
			s.mu.Unlock()
		}
	}
}

func flatDataset(a models.Assignment, view dto.ExportView, days []string, names map[string]string) export.Dataset {
	dayLabel := func(d int) string {
		if d < len(days) {
			return days[d]
		}
		return fmt.Sprintf("Day %d", d+1)
	}
	if view == dto.ExportViewTeacher {
		data := export.Dataset{Headers: []string{"Teacher", "Day", "Period", "Class", "Subject"}}
		keys := a.SortedKeys()
		sort.SliceStable(keys, func(i, j int) bool {
			return names[a.Lessons[keys[i]].TeacherID] < names[a.Lessons[keys[j]].TeacherID]
		})
		for _, key := range keys {
			lesson := a.Lessons[key]
			data.Rows = append(data.Rows, map[string]string{
				"Teacher": names[lesson.TeacherID],
				"Day":     dayLabel(key.Day),
				"Period":  fmt.Sprintf("%d", key.Period+1),
				"Class":   key.ClassID,
				"Subject": lesson.Subject,
			})
		}
		return data
	}
	data := export.Dataset{Headers: []string{"Class", "Day", "Period", "Subject", "Teacher"}}
	for _, key := range a.SortedKeys() {
		lesson := a.Lessons[key]
		data.Rows = append(data.Rows, map[string]string{
			"Class":   key.ClassID,
			"Day":     dayLabel(key.Day),
			"Period":  fmt.Sprintf("%d", key.Period+1),
			"Subject": lesson.Subject,
			"Teacher": names[lesson.TeacherID],
		})
	}
	return data
}

// gridSections renders one day-by-period table per class or teacher.
func gridSections(a models.Assignment, view dto.ExportView, days []string, periods int, names map[string]string) []export.Section {
	headers := append([]string{""}, days...)
	cellGrids := make(map[string]map[int]map[int]string)
	put := func(owner string, day, period int, text string) {
		if cellGrids[owner] == nil {
			cellGrids[owner] = make(map[int]map[int]string)
		}
		if cellGrids[owner][day] == nil {
			cellGrids[owner][day] = make(map[int]string)
		}
		cellGrids[owner][day][period] = text
	}
	for key, lesson := range a.Lessons {
		if view == dto.ExportViewTeacher {
			put(names[lesson.TeacherID], key.Day, key.Period, fmt.Sprintf("%s %s", key.ClassID, lesson.Subject))
		} else {
			put(key.ClassID, key.Day, key.Period, lesson.Subject)
		}
	}

	owners := make([]string, 0, len(cellGrids))
	for owner := range cellGrids {
		owners = append(owners, owner)
	}
	sort.Strings(owners)

	sections := make([]export.Section, 0, len(owners))
	for _, owner := range owners {
		data := export.Dataset{Headers: headers}
		for p := 0; p < periods; p++ {
			row := map[string]string{"": fmt.Sprintf("P%d", p+1)}
			for d, label := range days {
				row[label] = cellGrids[owner][d][p]
			}
			data.Rows = append(data.Rows, row)
		}
		sections = append(sections, export.Section{Heading: owner, Data: data})
	}
	return sections
}
