package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docextract/internal/domain"
	"docextract/internal/port"
)

// MockExtractionService is a mock implementation of service.ExtractionService.
type MockExtractionService struct {
	mock.Mock
}

func (m *MockExtractionService) ExtractFromBytes(ctx context.Context, fileBytes []byte, filename string, requestedFields []string) (*domain.ExtractionResult, error) {
	args := m.Called(ctx, fileBytes, filename, requestedFields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractionResult), args.Error(1)
}

func (m *MockExtractionService) ExtractFromStorage(ctx context.Context, bucket, key string, requestedFields []string) (*domain.ExtractionResult, error) {
	args := m.Called(ctx, bucket, key, requestedFields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractionResult), args.Error(1)
}

func (m *MockExtractionService) WordBoxes(ctx context.Context, fileBytes []byte, filename string) ([]port.WordBox, error) {
	args := m.Called(ctx, fileBytes, filename)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]port.WordBox), args.Error(1)
}
