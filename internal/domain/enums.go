package domain

// DocType is the routing label assigned by the classifier.
type DocType string

const (
	DocTypeInvoice      DocType = "invoice"
	DocTypePrescription DocType = "prescription"
	DocTypeMedicalBill  DocType = "medical_bill"
	DocTypeBill         DocType = "bill"
	DocTypeUnknown      DocType = "unknown"
)

// FileKind selects the rendering path of the text extraction adapter.
type FileKind string

const (
	FileKindPDF   FileKind = "pdf"
	FileKindImage FileKind = "image"
)

// AllowedContentTypes lists the MIME types accepted for extraction.
var AllowedContentTypes = map[string]FileKind{
	"application/pdf": FileKindPDF,
	"image/jpeg":      FileKindImage,
	"image/png":       FileKindImage,
	"image/gif":       FileKindImage,
	"image/bmp":       FileKindImage,
	"image/tiff":      FileKindImage,
	"image/webp":      FileKindImage,
}

// QA rule keys.
const (
	RuleTotalsMatch = "totals_match"
)

// DefaultRequestedFields is used when the caller does not name any fields.
var DefaultRequestedFields = []string{
	"InvoiceNo",
	"InvoiceDate",
	"Vendor",
	"TotalAmount",
	"PatientName",
	"DoctorName",
	"PrescriptionItems",
}
