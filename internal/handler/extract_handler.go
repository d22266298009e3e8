package handler

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"docextract/internal/domain"
	"docextract/internal/export"
	"docextract/internal/logger"
	"docextract/internal/service"
)

const (
	formatJSON = "json"
	formatCSV  = "csv"
	formatXLSX = "xlsx"

	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ExtractHandler handles document extraction endpoints.
type ExtractHandler struct {
	extractionService service.ExtractionService
	maxBytes          int64
	log               *zap.Logger
}

// NewExtractHandler creates a new ExtractHandler. maxFileSizeMB bounds uploads.
func NewExtractHandler(extractionService service.ExtractionService, maxFileSizeMB int64, log *zap.Logger) *ExtractHandler {
	if maxFileSizeMB <= 0 {
		maxFileSizeMB = 20
	}
	return &ExtractHandler{
		extractionService: extractionService,
		maxBytes:          maxFileSizeMB * 1024 * 1024,
		log:               logger.OrNop(log),
	}
}

// Extract handles POST /api/v1/extract
// @Summary Extract fields from a document
// @Description Classify an uploaded PDF or image, extract the requested fields and run QA checks
// @Tags extract
// @Accept multipart/form-data
// @Produce json
// @Produce text/csv
// @Param file formData file true "Document to extract (PDF, JPG, PNG, GIF, BMP, TIFF, WebP)"
// @Param fields formData string false "Comma-separated field names; may be repeated"
// @Param format query string false "Response format: json (default), csv, xlsx"
// @Success 200 {object} Response{data=domain.ExtractionResult} "Extraction result"
// @Failure 400 {object} ErrorResponseBody "Missing file, unsupported type, or bad format"
// @Failure 413 {object} ErrorResponseBody "File too large"
// @Failure 422 {object} ErrorResponseBody "Document could not be decoded"
// @Failure 500 {object} ErrorResponseBody "Internal error"
// @Router /extract [post]
func (h *ExtractHandler) Extract(c *gin.Context) {
	format, ok := h.format(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	data, filename, err := h.readUpload(file, header)
	if err != nil {
		HandleError(c, h.log, err)
		return
	}

	fields := ParseFieldList(c.PostFormArray("fields"))
	result, err := h.extractionService.ExtractFromBytes(c.Request.Context(), data, filename, fields)
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	h.respondResult(c, format, header.Filename, result)
}

// ExtractFromStorage handles POST /api/v1/extract/s3
// @Summary Extract fields from a stored document
// @Description Fetch a document from the configured S3 bucket and extract the requested fields
// @Tags extract
// @Accept json
// @Produce json
// @Param request body ExtractS3Request true "Object location and requested fields"
// @Param format query string false "Response format: json (default), csv, xlsx"
// @Success 200 {object} Response{data=domain.ExtractionResult} "Extraction result"
// @Failure 400 {object} ErrorResponseBody "Invalid request"
// @Failure 404 {object} ErrorResponseBody "Object not found"
// @Failure 413 {object} ErrorResponseBody "Object too large"
// @Failure 422 {object} ErrorResponseBody "Document could not be decoded"
// @Failure 503 {object} ErrorResponseBody "Storage not configured"
// @Router /extract/s3 [post]
func (h *ExtractHandler) ExtractFromStorage(c *gin.Context) {
	format, ok := h.format(c)
	if !ok {
		return
	}

	var req ExtractS3Request
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	key := strings.TrimSpace(req.Key)
	if key == "" {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "key is required")
		return
	}

	result, err := h.extractionService.ExtractFromStorage(c.Request.Context(), strings.TrimSpace(req.Bucket), key, ParseFieldList(req.Fields))
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	h.respondResult(c, format, path.Base(key), result)
}

// WordBoxes handles POST /api/v1/ocr/words
// @Summary OCR word boxes
// @Description Run OCR on an uploaded document and return every recognized word with its bounding box
// @Tags ocr
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Document to OCR (PDF or image)"
// @Success 200 {object} Response{data=WordBoxesResponse} "Recognized words"
// @Failure 400 {object} ErrorResponseBody "Missing file or unsupported type"
// @Failure 413 {object} ErrorResponseBody "File too large"
// @Failure 422 {object} ErrorResponseBody "Document could not be decoded"
// @Failure 500 {object} ErrorResponseBody "OCR failed"
// @Router /ocr/words [post]
func (h *ExtractHandler) WordBoxes(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	data, filename, err := h.readUpload(file, header)
	if err != nil {
		HandleError(c, h.log, err)
		return
	}

	words, err := h.extractionService.WordBoxes(c.Request.Context(), data, filename)
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	RespondOK(c, WordBoxesResponse{Count: len(words), Words: words})
}

func (h *ExtractHandler) format(c *gin.Context) (string, bool) {
	format := strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", formatJSON)))
	switch format {
	case formatJSON, formatCSV, formatXLSX:
		return format, true
	default:
		RespondError(c, http.StatusBadRequest, "INVALID_FORMAT", "format must be one of: json, csv, xlsx")
		return "", false
	}
}

// readUpload enforces the size limit and sniffs the content type. A sniffed
// PDF is given a .pdf name so the coordinator picks the PDF rendering path.
func (h *ExtractHandler) readUpload(file multipart.File, header *multipart.FileHeader) ([]byte, string, error) {
	if header.Size > h.maxBytes {
		return nil, "", domain.ErrFileTooLarge
	}
	data, err := io.ReadAll(io.LimitReader(file, h.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("reading upload: %w", err)
	}
	if int64(len(data)) > h.maxBytes {
		return nil, "", domain.ErrFileTooLarge
	}
	if len(data) == 0 {
		return nil, "", domain.ErrEmptyDocument
	}

	detected := mimetype.Detect(data)
	kind, ok := domain.AllowedContentTypes[detected.String()]
	if !ok {
		h.log.Debug("rejected upload",
			zap.String("filename", header.Filename),
			zap.String("detected_type", detected.String()),
		)
		return nil, "", domain.ErrUnsupportedFileType
	}

	filename := header.Filename
	if kind == domain.FileKindPDF && !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		filename += ".pdf"
	}
	return data, filename, nil
}

func (h *ExtractHandler) respondResult(c *gin.Context, format, sourceName string, result *domain.ExtractionResult) {
	switch format {
	case formatCSV:
		var buf bytes.Buffer
		buf.Write(export.BOM)
		w := export.NewCSVWriter(&buf)
		if err := w.WriteResult(result); err != nil {
			HandleError(c, h.log, fmt.Errorf("writing csv: %w", err))
			return
		}
		w.Flush()
		if err := w.Error(); err != nil {
			HandleError(c, h.log, fmt.Errorf("flushing csv: %w", err))
			return
		}
		setAttachment(c, export.BuildFilename(sourceName, formatCSV))
		c.Data(http.StatusOK, contentTypeCSV, buf.Bytes())
	case formatXLSX:
		var buf bytes.Buffer
		if err := export.WriteXLSX(&buf, result); err != nil {
			HandleError(c, h.log, err)
			return
		}
		setAttachment(c, export.BuildFilename(sourceName, formatXLSX))
		c.Data(http.StatusOK, contentTypeXLSX, buf.Bytes())
	default:
		RespondOK(c, result)
	}
}

func setAttachment(c *gin.Context, filename string) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
}

// ParseFieldList flattens repeated and comma-separated field names, trimming
// blanks. It returns nil when no names remain so the default set applies.
func ParseFieldList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}
