package domain

import "errors"

var (
	ErrUnsupportedFileType  = errors.New("unsupported file type")
	ErrFileTooLarge         = errors.New("file exceeds maximum allowed size")
	ErrEmptyDocument        = errors.New("document is empty")
	ErrUndecodableDocument  = errors.New("document could not be decoded")
	ErrStorageNotConfigured = errors.New("object storage is not configured")
	ErrObjectNotFound       = errors.New("object not found")
)
