package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowedFileType(t *testing.T) {
	allowed := []string{
		"application/json",
		"text/csv",
		"application/pdf",
		"audio/mpeg",
		"audio/wav",
		"audio/aac",
		"audio/ogg",
		"audio/webm",
	}
	for _, ct := range allowed {
		assert.True(t, AllowedFileType(ct), "content type %q", ct)
	}

	rejected := []string{
		"text/plain",
		"video/mp4",
		"application/octet-stream",
		"image/png",
		"",
	}
	for _, ct := range rejected {
		assert.False(t, AllowedFileType(ct), "content type %q", ct)
	}
}

func TestAllowedFileType_Parameters(t *testing.T) {
	assert.True(t, AllowedFileType("audio/webm; codecs=opus"))
	assert.True(t, AllowedFileType("Audio/WAV"))
	assert.True(t, AllowedFileType(" text/csv "))
}

func TestAudioFileType(t *testing.T) {
	assert.True(t, AudioFileType("audio/wav"))
	assert.True(t, AudioFileType("audio/mpeg"))
	assert.False(t, AudioFileType("application/pdf"))
	assert.False(t, AudioFileType("text/csv"))
}

func TestReportFindFile(t *testing.T) {
	r := &Report{Files: []FileEntry{
		{FileName: "lecture.wav"},
		{FileName: "notes.pdf"},
	}}

	assert.Equal(t, 0, r.FindFile("lecture.wav"))
	assert.Equal(t, 1, r.FindFile("notes.pdf"))
	assert.Equal(t, -1, r.FindFile("missing.csv"))
}
