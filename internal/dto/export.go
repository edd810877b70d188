package dto

import "time"

// ExportFormat enumerates supported export file formats.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportView selects which grid orientation is rendered.
type ExportView string

const (
	ExportViewClass   ExportView = "class"
	ExportViewTeacher ExportView = "teacher"
)

// ExportRequest enqueues an asynchronous export of a stored timetable.
type ExportRequest struct {
	Format ExportFormat `json:"format" validate:"required,oneof=csv pdf"`
	View   ExportView   `json:"view" validate:"required,oneof=class teacher"`
	Week   int          `json:"week" validate:"min=0"`
}

// ExportJobResponse is returned after enqueueing an export.
type ExportJobResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ExportStatusResponse exposes job progress and the signed download URL
// once the file is ready.
type ExportStatusResponse struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	Format      string     `json:"format"`
	DownloadURL *string    `json:"downloadUrl,omitempty"`
	Error       *string    `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	FinishedAt  *time.Time `json:"finishedAt,omitempty"`
}
