package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"reportapi/internal/model"
	"reportapi/internal/repository"
)

// uniqueViolation is the PostgreSQL error code raised by the
// UNIQUE (user_id, report_id) constraint.
const uniqueViolation = "23505"

// ReportPostgres is a PostgreSQL implementation of
// repository.ReportRepository. The file manifest and the transfer
// sub-document are stored as JSONB columns; everything else is flat.
type ReportPostgres struct {
	db *sql.DB
}

// NewReportPostgres creates a new ReportPostgres repository.
func NewReportPostgres(db *sql.DB) *ReportPostgres {
	return &ReportPostgres{db: db}
}

var _ repository.ReportRepository = (*ReportPostgres)(nil)

const reportColumns = `id, user_id, report_id, report_name, grade_level, subject, status, audio_file, files, transfer_data, created_at, updated_at`

// Create inserts a new report row and returns the stored record. A unique
// violation on (user_id, report_id) maps to repository.ErrDuplicateReport.
func (r *ReportPostgres) Create(ctx context.Context, report *model.Report) (*model.Report, error) {
	files, err := marshalFiles(report.Files)
	if err != nil {
		return nil, err
	}
	transfer, err := marshalTransfer(report.TransferData)
	if err != nil {
		return nil, err
	}

	const q = `
		INSERT INTO reports (user_id, report_id, report_name, grade_level, subject, status, audio_file, files, transfer_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + reportColumns
	row := r.db.QueryRowContext(ctx, q,
		report.UserID,
		report.ReportID,
		report.ReportName,
		report.GradeLevel,
		report.Subject,
		report.Status,
		report.AudioFile,
		files,
		transfer,
	)
	out, err := scanReport(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, repository.ErrDuplicateReport
		}
		return nil, err
	}
	return out, nil
}

// FindByOwner fetches the single report owned by (userID, reportID).
func (r *ReportPostgres) FindByOwner(ctx context.Context, userID, reportID string) (*model.Report, error) {
	const q = `
		SELECT ` + reportColumns + `
		FROM reports
		WHERE user_id = $1 AND report_id = $2
	`
	return scanReport(r.db.QueryRowContext(ctx, q, userID, reportID))
}

// ListByUser returns the user's reports ordered newest first.
func (r *ReportPostgres) ListByUser(ctx context.Context, userID string) ([]model.Report, error) {
	const q = `
		SELECT ` + reportColumns + `
		FROM reports
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := make([]model.Report, 0)
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *rep)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reports, nil
}

// UpdateFiles replaces the manifest column. sql.ErrNoRows is returned when
// the report does not exist.
func (r *ReportPostgres) UpdateFiles(ctx context.Context, userID, reportID string, files []model.FileEntry) error {
	b, err := marshalFiles(files)
	if err != nil {
		return err
	}
	const q = `
		UPDATE reports
		SET files = $3, updated_at = now()
		WHERE user_id = $1 AND report_id = $2
	`
	return r.exec(ctx, q, userID, reportID, b)
}

// UpdateTransfer replaces the transfer sub-document and the denormalized
// status and audio file columns.
func (r *ReportPostgres) UpdateTransfer(ctx context.Context, userID, reportID string, td *model.TransferData, status, audioFile string) error {
	b, err := marshalTransfer(td)
	if err != nil {
		return err
	}
	const q = `
		UPDATE reports
		SET transfer_data = $3, status = $4, audio_file = $5, updated_at = now()
		WHERE user_id = $1 AND report_id = $2
	`
	return r.exec(ctx, q, userID, reportID, b, status, audioFile)
}

func (r *ReportPostgres) exec(ctx context.Context, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*model.Report, error) {
	var (
		rep      model.Report
		files    []byte
		transfer []byte
	)
	if err := row.Scan(
		&rep.ID,
		&rep.UserID,
		&rep.ReportID,
		&rep.ReportName,
		&rep.GradeLevel,
		&rep.Subject,
		&rep.Status,
		&rep.AudioFile,
		&files,
		&transfer,
		&rep.CreatedAt,
		&rep.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if len(files) > 0 {
		if err := json.Unmarshal(files, &rep.Files); err != nil {
			return nil, fmt.Errorf("decode files manifest: %w", err)
		}
	}
	if rep.Files == nil {
		rep.Files = []model.FileEntry{}
	}
	if len(transfer) > 0 {
		var td model.TransferData
		if err := json.Unmarshal(transfer, &td); err != nil {
			return nil, fmt.Errorf("decode transfer data: %w", err)
		}
		rep.TransferData = &td
	}
	return &rep, nil
}

func marshalFiles(files []model.FileEntry) ([]byte, error) {
	if files == nil {
		files = []model.FileEntry{}
	}
	b, err := json.Marshal(files)
	if err != nil {
		return nil, fmt.Errorf("encode files manifest: %w", err)
	}
	return b, nil
}

// marshalTransfer keeps a NULL column for reports that never dispatched a
// transcription job.
func marshalTransfer(td *model.TransferData) ([]byte, error) {
	if td == nil {
		return nil, nil
	}
	b, err := json.Marshal(td)
	if err != nil {
		return nil, fmt.Errorf("encode transfer data: %w", err)
	}
	return b, nil
}
