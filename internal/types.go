package internal

type SupplierID string

// SupplierGeneric is returned when no configured profile matches a document.
const SupplierGeneric SupplierID = "generic"

type ExtractionTier string

const (
	TierSupplier  ExtractionTier = "supplier"
	TierGeneric   ExtractionTier = "generic"
	TierDelegated ExtractionTier = "delegated"
)

type FailureReason string

const (
	ReasonNone               FailureReason = ""
	ReasonAcquisition        FailureReason = "acquisition_failed"
	ReasonNoHeaderFields     FailureReason = "no_header_fields"
	ReasonNoLineItems        FailureReason = "no_line_items"
	ReasonExternalExtraction FailureReason = "external_extraction_error"
)

type LineItem struct {
	Description string
	Quantity    *float64
	UnitPrice   *float64
	Amount      *float64
	BatchNumber *string
	ExpiryDate  *string
}

// Empty reports whether the item carries no numeric fields, no batch and no
// expiry. Such items are either noise or continuations of the previous row.
func (li LineItem) Empty() bool {
	return li.Quantity == nil && li.UnitPrice == nil && li.Amount == nil &&
		li.BatchNumber == nil && li.ExpiryDate == nil
}

type InvoiceRecord struct {
	InvoiceID    *string
	Date         *string // ISO-8601 after normalization
	Vendor       string
	Customer     string
	TotalAmount  *float64
	Currency     string
	PaymentTerms string
	Supplier     SupplierID
	SourceFile   string
	Items        []LineItem
	Warnings     []string
}

// ExtractionResult is always fully constructed: either Record is set and
// Failure is empty, or Record is nil and Failure names the reason.
type ExtractionResult struct {
	Record  *InvoiceRecord
	Tier    ExtractionTier
	Failure FailureReason
}

func (r ExtractionResult) OK() bool {
	return r.Record != nil && r.Failure == ReasonNone
}

type DocumentFailure struct {
	GroupKey string
	Path     string
	Reason   FailureReason
	Detail   string
}

type SheetTable struct {
	Name   string
	Header []string
	Rows   [][]any
}

// SheetPlan holds the ordered sheets of one run; sheet names are unique
// within a plan.
type SheetPlan struct {
	Sheets []SheetTable
}

// RecordGroup pairs a group key (source directory or mailbox) with the
// records extracted from it, in document order.
type RecordGroup struct {
	Key     string
	Records []*InvoiceRecord
}

type DocumentRow struct {
	ID         int
	GroupKey   string
	Path       string
	Hash       string
	Supplier   string
	Status     string
	Reason     string
	ReceivedAt string
}

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}
