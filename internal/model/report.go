package model

import "time"

// Report aggregates everything recorded for one classroom session of one
// user: free-form metadata, the manifest of uploaded files, and the state of
// the latest transcription transfer. It is a pure domain model with no
// database-specific dependencies or tags; persistence lives in the
// repository layer.
//
// Reports are unique by (UserID, ReportID). The surrogate ID exists only for
// the database; every API operation addresses reports by the owner pair.
type Report struct {
	ID         string `json:"id"`
	UserID     string `json:"userId"`
	ReportID   string `json:"reportId"`
	ReportName string `json:"reportName,omitempty"`
	GradeLevel string `json:"gradeLevel,omitempty"`
	Subject    string `json:"subject,omitempty"`

	// Status mirrors the latest transfer status reported by the
	// transcription engine. AudioFile is the manifest name of the most
	// recently relayed audio file.
	Status    string `json:"status,omitempty"`
	AudioFile string `json:"audioFile,omitempty"`

	Files        []FileEntry   `json:"files"`
	TransferData *TransferData `json:"transferData,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FileEntry is one row of a report's file manifest. Entries are unique by
// FileName within a report; re-uploading the same name replaces the entry in
// place instead of appending a duplicate.
type FileEntry struct {
	FileName string `json:"fileName"`
	FilePath string `json:"filePath"`
	FileType string `json:"fileType"`
}

// TransferData tracks one transcription job on the external engine. It is a
// sub-document of Report, not a persisted entity of its own: each new relay
// of an audio file overwrites it.
type TransferData struct {
	JobID    string   `json:"jobId,omitempty"`
	Status   string   `json:"status,omitempty"`
	Progress Stage    `json:"progress,omitempty"`
	Messages []string `json:"messages,omitempty"`
	FileName string   `json:"fileName,omitempty"`

	// Result is populated once Progress reaches StageFinished.
	Result []TranscriptSegment `json:"result,omitempty"`
}

// TranscriptSegment is one diarized sentence of a finished transcript.
// Field names follow the engine's wire format (start_time/end_time are
// seconds from the start of the recording).
type TranscriptSegment struct {
	Speaker   string  `json:"speaker"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Text      string  `json:"text"`
}

// FindFile returns the index of the manifest entry with the given name, or
// -1 if the report has no such file.
func (r *Report) FindFile(fileName string) int {
	for i, f := range r.Files {
		if f.FileName == fileName {
			return i
		}
	}
	return -1
}
