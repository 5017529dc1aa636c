package model

import "strings"

// Uploads are accepted only for this fixed set of declared MIME types. The
// audio subset additionally triggers a relay to the transcription engine.
var (
	allowedFileTypes = map[string]bool{
		"application/json": true,
		"text/csv":         true,
		"application/pdf":  true,
		"audio/mpeg":       true,
		"audio/wav":        true,
		"audio/aac":        true,
		"audio/ogg":        true,
		"audio/webm":       true,
	}

	audioFileTypes = map[string]bool{
		"audio/mpeg": true,
		"audio/wav":  true,
		"audio/aac":  true,
		"audio/ogg":  true,
		"audio/webm": true,
	}
)

// normalizeFileType strips any media-type parameters (e.g. "; codecs=opus")
// and lowercases the type before matching.
func normalizeFileType(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// AllowedFileType reports whether the declared content type is accepted for
// upload.
func AllowedFileType(contentType string) bool {
	return allowedFileTypes[normalizeFileType(contentType)]
}

// AudioFileType reports whether the declared content type is audio, i.e.
// whether the stored file must be forwarded to the transcription engine.
func AudioFileType(contentType string) bool {
	return audioFileTypes[normalizeFileType(contentType)]
}
