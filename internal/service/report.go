package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"reportapi/internal/blob"
	"reportapi/internal/model"
	"reportapi/internal/repository"
	"reportapi/internal/storage"
	"reportapi/internal/workstation"
)

// Validation errors reject a request before any side effect. ErrTransferFailed
// is different: by the time relaying fails the upload is already committed, so
// callers receive the partial result alongside the error.
var (
	ErrUserIDRequired     = errors.New("userId is required")
	ErrReportIDRequired   = errors.New("reportId is required")
	ErrFileRequired       = errors.New("file is required")
	ErrUnsupportedType    = errors.New("invalid file type provided")
	ErrReportNotFound     = errors.New("report not found")
	ErrNoAudioFile        = errors.New("report has no stored audio file")
	ErrTranscriptNotReady = errors.New("transcript is not ready")
	ErrExportUnavailable  = errors.New("object storage is not configured")
	ErrTransferFailed     = errors.New("failed to transfer file")
)

// FileUpload carries one multipart upload into the service layer.
type FileUpload struct {
	OriginalName string
	ContentType  string
	Size         int64
	Content      io.Reader
}

// UploadInput is the parameter set shared by report creation and file
// upload. FileName optionally overrides the stored name; the original
// extension is always kept.
type UploadInput struct {
	UserID     string
	ReportID   string
	FileName   string
	GradeLevel string
	Subject    string
	ReportName string
	File       *FileUpload
}

// UploadResult describes a committed intake and, for audio files, the
// dispatched transcription job.
type UploadResult struct {
	Report     *model.Report
	FileName   string
	StoredPath string

	// Transferred is true when the file was audio and the relay to the
	// transcription engine succeeded end to end.
	Transferred  bool
	JobID        string
	TransferData *model.TransferData
}

// ExportResult points at a rendered transcript in object storage.
type ExportResult struct {
	Key string
	URL string
}

// ReportService defines the use cases around classroom recording reports.
type ReportService interface {
	// CreateReport creates a new report for (userId, reportId), rejecting
	// duplicates, and optionally ingests a first file.
	CreateReport(ctx context.Context, in UploadInput) (*UploadResult, error)

	// UploadFile ingests a file into an existing report, creating the
	// report on the fly if absent. Audio files are relayed to the
	// transcription engine after being stored.
	UploadFile(ctx context.Context, in UploadInput) (*UploadResult, error)

	// GetReport returns the report owned by (userId, reportId).
	GetReport(ctx context.Context, userID, reportID string) (*model.Report, error)

	// ListReports returns all reports of a user, newest first.
	ListReports(ctx context.Context, userID string) ([]model.Report, error)

	// RetryTransfer re-dispatches the report's stored audio file to the
	// transcription engine. Relay failures are never retried
	// automatically; this is the explicit re-trigger.
	RetryTransfer(ctx context.Context, userID, reportID string) (*UploadResult, error)

	// ExportTranscript renders a finished transcript as CSV, stores it in
	// object storage and returns a presigned download URL.
	ExportTranscript(ctx context.Context, userID, reportID string) (*ExportResult, error)
}

type reportService struct {
	repo    repository.ReportRepository
	blobs   *blob.Directory
	engine  workstation.API
	exports storage.ObjectStore
}

// NewReportService constructs a ReportService. exports may be nil when no
// object storage is configured; transcript export is then unavailable.
func NewReportService(repo repository.ReportRepository, blobs *blob.Directory, engine workstation.API, exports storage.ObjectStore) ReportService {
	return &reportService{repo: repo, blobs: blobs, engine: engine, exports: exports}
}

func validateOwner(userID, reportID string) error {
	if userID == "" {
		return ErrUserIDRequired
	}
	if reportID == "" {
		return ErrReportIDRequired
	}
	return nil
}

func newReport(in UploadInput) *model.Report {
	return &model.Report{
		UserID:     in.UserID,
		ReportID:   in.ReportID,
		ReportName: in.ReportName,
		GradeLevel: in.GradeLevel,
		Subject:    in.Subject,
		Files:      []model.FileEntry{},
	}
}

func (s *reportService) CreateReport(ctx context.Context, in UploadInput) (*UploadResult, error) {
	if err := validateOwner(in.UserID, in.ReportID); err != nil {
		return nil, err
	}

	var tempPath string
	if in.File != nil {
		var err error
		tempPath, err = s.stageAndValidate(in)
		if err != nil {
			return nil, err
		}
	}

	rep, err := s.repo.Create(ctx, newReport(in))
	if err != nil {
		if tempPath != "" {
			_ = s.blobs.Discard(tempPath)
		}
		if errors.Is(err, repository.ErrDuplicateReport) {
			return nil, err
		}
		return nil, fmt.Errorf("create report: %w", err)
	}

	res := &UploadResult{Report: rep}
	if in.File == nil {
		return res, nil
	}
	return s.finishIntake(ctx, rep, in, tempPath, res)
}

func (s *reportService) UploadFile(ctx context.Context, in UploadInput) (*UploadResult, error) {
	if err := validateOwner(in.UserID, in.ReportID); err != nil {
		return nil, err
	}
	if in.File == nil {
		return nil, ErrFileRequired
	}

	tempPath, err := s.stageAndValidate(in)
	if err != nil {
		return nil, err
	}

	rep, err := s.resolveReport(ctx, in)
	if err != nil {
		_ = s.blobs.Discard(tempPath)
		return nil, err
	}

	return s.finishIntake(ctx, rep, in, tempPath, &UploadResult{Report: rep})
}

// finishIntake promotes a validated staged file, records it in the manifest
// and, for audio types, dispatches transcription. A relay failure does not
// unwind the committed upload: the result is returned alongside the error.
func (s *reportService) finishIntake(ctx context.Context, rep *model.Report, in UploadInput, tempPath string, res *UploadResult) (*UploadResult, error) {
	fileName := destFileName(in)

	storedPath, err := s.storeFile(ctx, rep, tempPath, fileName, in.File.ContentType)
	if err != nil {
		return nil, err
	}
	res.FileName = fileName
	res.StoredPath = storedPath

	if !model.AudioFileType(in.File.ContentType) {
		return res, nil
	}

	td, jobID, err := s.dispatchTranscription(ctx, rep, storedPath, fileName)
	res.JobID = jobID
	res.TransferData = td
	if err != nil {
		return res, err
	}
	res.Transferred = true
	return res, nil
}

// resolveReport finds the owning report or creates it from the supplied
// optional fields. A create that loses the race to a concurrent upload falls
// back to the winner's row.
func (s *reportService) resolveReport(ctx context.Context, in UploadInput) (*model.Report, error) {
	rep, err := s.repo.FindByOwner(ctx, in.UserID, in.ReportID)
	if err == nil {
		return rep, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load report: %w", err)
	}

	rep, err = s.repo.Create(ctx, newReport(in))
	if err == nil {
		return rep, nil
	}
	if errors.Is(err, repository.ErrDuplicateReport) {
		rep, err = s.repo.FindByOwner(ctx, in.UserID, in.ReportID)
		if err != nil {
			return nil, fmt.Errorf("load report: %w", err)
		}
		return rep, nil
	}
	return nil, fmt.Errorf("create report: %w", err)
}

// stageAndValidate writes the upload to the staging area and enforces the
// type allow-list. A rejected staged file is deleted before returning.
func (s *reportService) stageAndValidate(in UploadInput) (string, error) {
	tempPath, err := s.blobs.StageTemp(in.UserID, in.File.OriginalName, in.File.Content)
	if err != nil {
		return "", fmt.Errorf("stage upload: %w", err)
	}
	if !model.AllowedFileType(in.File.ContentType) {
		_ = s.blobs.Discard(tempPath)
		return "", ErrUnsupportedType
	}
	return tempPath, nil
}

// destFileName computes the stored file name: the provided override or the
// original base name, always carrying the original extension exactly once.
func destFileName(in UploadInput) string {
	ext := filepath.Ext(in.File.OriginalName)
	name := in.FileName
	if name == "" {
		name = filepath.Base(in.File.OriginalName)
		return name
	}
	if ext != "" && !strings.EqualFold(filepath.Ext(name), ext) {
		name += ext
	}
	return name
}

func (s *reportService) storeFile(ctx context.Context, rep *model.Report, tempPath, fileName, contentType string) (string, error) {
	storedPath, err := s.blobs.Promote(tempPath, rep.UserID, rep.ReportID, fileName)
	if err != nil {
		return "", fmt.Errorf("relocate upload: %w", err)
	}

	entry := model.FileEntry{FileName: fileName, FilePath: storedPath, FileType: contentType}
	if i := rep.FindFile(fileName); i >= 0 {
		rep.Files[i] = entry
	} else {
		rep.Files = append(rep.Files, entry)
	}

	// The file already sits at its permanent location. If the manifest
	// update fails it stays there; there is no compensating delete, the
	// caller simply retries the upload.
	if err := s.repo.UpdateFiles(ctx, rep.UserID, rep.ReportID, rep.Files); err != nil {
		return "", fmt.Errorf("update file manifest: %w", err)
	}
	return storedPath, nil
}

// dispatchTranscription relays a stored audio file to the engine, issues one
// immediate status query for the new job and persists the transfer state on
// the report.
func (s *reportService) dispatchTranscription(ctx context.Context, rep *model.Report, storedPath, fileName string) (*model.TransferData, string, error) {
	f, err := s.blobs.Open(storedPath)
	if err != nil {
		return nil, "", fmt.Errorf("%w: open stored file: %v", ErrTransferFailed, err)
	}
	defer f.Close()

	jobID, err := s.engine.StartTranscription(ctx, f, fileName, rep.ReportID)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	state, err := s.engine.JobStatus(ctx, jobID)
	if err != nil {
		return nil, jobID, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	td := &model.TransferData{
		JobID:    jobID,
		Status:   state.Status,
		Progress: state.Progress,
		Messages: state.Messages,
		FileName: fileName,
	}
	if err := s.repo.UpdateTransfer(ctx, rep.UserID, rep.ReportID, td, state.Status, fileName); err != nil {
		return td, jobID, fmt.Errorf("record transfer state: %w", err)
	}

	rep.TransferData = td
	rep.Status = state.Status
	rep.AudioFile = fileName
	return td, jobID, nil
}

func (s *reportService) GetReport(ctx context.Context, userID, reportID string) (*model.Report, error) {
	if err := validateOwner(userID, reportID); err != nil {
		return nil, err
	}
	rep, err := s.repo.FindByOwner(ctx, userID, reportID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}
	return rep, nil
}

func (s *reportService) ListReports(ctx context.Context, userID string) ([]model.Report, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	return s.repo.ListByUser(ctx, userID)
}

func (s *reportService) RetryTransfer(ctx context.Context, userID, reportID string) (*UploadResult, error) {
	rep, err := s.GetReport(ctx, userID, reportID)
	if err != nil {
		return nil, err
	}

	entry, ok := latestAudioEntry(rep)
	if !ok {
		return nil, ErrNoAudioFile
	}

	res := &UploadResult{Report: rep, FileName: entry.FileName, StoredPath: entry.FilePath}
	td, jobID, err := s.dispatchTranscription(ctx, rep, entry.FilePath, entry.FileName)
	res.JobID = jobID
	res.TransferData = td
	if err != nil {
		return res, err
	}
	res.Transferred = true
	return res, nil
}

// latestAudioEntry picks the manifest entry to relay: the denormalized
// AudioFile if it still exists in the manifest, otherwise the last
// audio-typed entry.
func latestAudioEntry(rep *model.Report) (model.FileEntry, bool) {
	if rep.AudioFile != "" {
		if i := rep.FindFile(rep.AudioFile); i >= 0 {
			return rep.Files[i], true
		}
	}
	for i := len(rep.Files) - 1; i >= 0; i-- {
		if model.AudioFileType(rep.Files[i].FileType) {
			return rep.Files[i], true
		}
	}
	return model.FileEntry{}, false
}

func (s *reportService) ExportTranscript(ctx context.Context, userID, reportID string) (*ExportResult, error) {
	if s.exports == nil {
		return nil, ErrExportUnavailable
	}
	rep, err := s.GetReport(ctx, userID, reportID)
	if err != nil {
		return nil, err
	}

	td := rep.TransferData
	if td == nil || !td.Progress.Terminal() || len(td.Result) == 0 {
		return nil, ErrTranscriptNotReady
	}

	var buf bytes.Buffer
	if err := writeTranscriptCSV(&buf, td.Result); err != nil {
		return nil, fmt.Errorf("render transcript: %w", err)
	}

	key := fmt.Sprintf("exports/%s/%s/transcript-%s.csv",
		userID, reportID, time.Now().UTC().Format("20060102T150405Z"))
	if _, err := s.exports.Put(ctx, key, &buf, storage.PutOptions{
		Size:        int64(buf.Len()),
		ContentType: "text/csv",
		Metadata:    map[string]string{"audio-file": td.FileName},
	}); err != nil {
		return nil, fmt.Errorf("store transcript export: %w", err)
	}

	u, err := s.exports.PresignGet(ctx, key, 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("presign transcript export: %w", err)
	}
	return &ExportResult{Key: key, URL: u}, nil
}

func writeTranscriptCSV(w io.Writer, segments []model.TranscriptSegment) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"speaker", "start_time", "end_time", "text"}); err != nil {
		return err
	}
	for _, seg := range segments {
		rec := []string{
			seg.Speaker,
			strconv.FormatFloat(seg.StartTime, 'f', -1, 64),
			strconv.FormatFloat(seg.EndTime, 'f', -1, 64),
			seg.Text,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
