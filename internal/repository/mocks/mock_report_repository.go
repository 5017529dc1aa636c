package mocks

import (
	"context"

	"reportapi/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockReportRepository struct {
	mock.Mock
}

func (m *MockReportRepository) Create(ctx context.Context, report *model.Report) (*model.Report, error) {
	args := m.Called(ctx, report)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Report), args.Error(1)
}

func (m *MockReportRepository) FindByOwner(ctx context.Context, userID, reportID string) (*model.Report, error) {
	args := m.Called(ctx, userID, reportID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Report), args.Error(1)
}

func (m *MockReportRepository) ListByUser(ctx context.Context, userID string) ([]model.Report, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Report), args.Error(1)
}

func (m *MockReportRepository) UpdateFiles(ctx context.Context, userID, reportID string, files []model.FileEntry) error {
	args := m.Called(ctx, userID, reportID, files)
	return args.Error(0)
}

func (m *MockReportRepository) UpdateTransfer(ctx context.Context, userID, reportID string, td *model.TransferData, status, audioFile string) error {
	args := m.Called(ctx, userID, reportID, td, status, audioFile)
	return args.Error(0)
}
