package repository

import (
	"context"
	"errors"

	"reportapi/internal/model"
)

// ErrDuplicateReport is returned by Create when a report for the same
// (userId, reportId) pair already exists.
var ErrDuplicateReport = errors.New("report already exists")

// ReportRepository defines data access for reports using SQL queries only.
// No business logic here — strictly persistence operations. Absent rows are
// reported as sql.ErrNoRows; duplicate owner pairs as ErrDuplicateReport.
//
// There is deliberately no compare-and-swap on the manifest or transfer
// updates: concurrent writers to the same report race read-modify-write and
// the last writer wins.
type ReportRepository interface {
	// Create inserts a new report record and returns the stored row
	// (including values set by the database).
	Create(ctx context.Context, report *model.Report) (*model.Report, error)

	// FindByOwner returns the report for the (userID, reportID) pair.
	FindByOwner(ctx context.Context, userID, reportID string) (*model.Report, error)

	// ListByUser returns all reports belonging to a user, newest first.
	ListByUser(ctx context.Context, userID string) ([]model.Report, error)

	// UpdateFiles replaces the report's file manifest.
	UpdateFiles(ctx context.Context, userID, reportID string, files []model.FileEntry) error

	// UpdateTransfer replaces the report's transfer sub-document together
	// with the denormalized status and audio file name.
	UpdateTransfer(ctx context.Context, userID, reportID string, td *model.TransferData, status, audioFile string) error
}
