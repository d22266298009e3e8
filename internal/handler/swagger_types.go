package handler

import (
	"docextract/internal/port"
)

// Swagger type definitions for API documentation.
// These types are used by swag to generate OpenAPI documentation.

// --- Request Types ---

// ExtractS3Request represents the stored-document extraction request body.
type ExtractS3Request struct {
	Key    string   `json:"key" binding:"required" example:"inbox/2024/invoice-0042.pdf"`
	Bucket string   `json:"bucket" example:"scanned-documents"`
	Fields []string `json:"fields" example:"InvoiceNo,InvoiceDate,TotalAmount"`
}

// --- Response Types ---

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
	Error  string `json:"error,omitempty" example:"tesseract not found in PATH"`
}

// WordBoxesResponse represents the OCR word box listing.
type WordBoxesResponse struct {
	Count int            `json:"count" example:"412"`
	Words []port.WordBox `json:"words"`
}

// --- Generic Response Wrappers ---

// Response wraps a successful response with data.
type Response struct {
	Success bool        `json:"success" example:"true"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponseBody wraps an error response.
type ErrorResponseBody struct {
	Success bool      `json:"success" example:"false"`
	Error   *APIError `json:"error"`
}
