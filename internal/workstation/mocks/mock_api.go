package mocks

import (
	"context"
	"io"

	"reportapi/internal/workstation"

	"github.com/stretchr/testify/mock"
)

type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) StartTranscription(ctx context.Context, file io.Reader, fileName, reportID string) (string, error) {
	args := m.Called(ctx, file, fileName, reportID)
	return args.String(0), args.Error(1)
}

func (m *MockAPI) JobStatus(ctx context.Context, jobID string) (*workstation.JobState, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*workstation.JobState), args.Error(1)
}
