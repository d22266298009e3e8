package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docextract/internal/domain"
	"docextract/internal/port"
)

// MockTextExtractor is a mock implementation of port.TextExtractor.
type MockTextExtractor struct {
	mock.Mock
}

func (m *MockTextExtractor) Render(ctx context.Context, data []byte, kind domain.FileKind) ([]port.PageImage, error) {
	args := m.Called(ctx, data, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]port.PageImage), args.Error(1)
}

func (m *MockTextExtractor) ImageToText(ctx context.Context, page port.PageImage) (string, error) {
	args := m.Called(ctx, page)
	return args.String(0), args.Error(1)
}

func (m *MockTextExtractor) ImageToWordBoxes(ctx context.Context, page port.PageImage) ([]port.WordBox, error) {
	args := m.Called(ctx, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]port.WordBox), args.Error(1)
}
