package pipeline

import (
	"context"
	"regexp"
	"strings"

	"invosheet/internal"
	"invosheet/internal/profile"
	"invosheet/internal/util"
)

// DelegatedExtractor is the external text-understanding service invoked as
// the last cascade tier. Implementations must return a fully built record or
// an error, never both.
type DelegatedExtractor interface {
	ExtractStructured(ctx context.Context, text, promptHint string) (*internal.InvoiceRecord, error)
}

// Extractor runs the three-tier extraction cascade: supplier-specific
// patterns, then the generic pattern set, then the delegated service. Each
// tier is attempted only when the previous one failed to produce a usable
// record.
type Extractor struct {
	profiles *profile.Set
	delegate DelegatedExtractor // nil disables the delegated tier
}

func NewExtractor(profiles *profile.Set, delegate DelegatedExtractor) *Extractor {
	return &Extractor{profiles: profiles, delegate: delegate}
}

func (e *Extractor) Extract(ctx context.Context, text string, supplier internal.SupplierID) internal.ExtractionResult {
	sawHeader := false
	lastTier := internal.TierGeneric

	if p := e.profiles.ByID(supplier); p != nil {
		rec := e.supplierExtract(text, p)
		if usableRecord(rec) {
			return internal.ExtractionResult{Record: rec, Tier: internal.TierSupplier}
		}
		sawHeader = sawHeader || hasHeaderFields(rec)
	}

	rec := e.genericExtract(text, supplier)
	if usableRecord(rec) {
		return internal.ExtractionResult{Record: rec, Tier: internal.TierGeneric}
	}
	sawHeader = sawHeader || hasHeaderFields(rec)

	if e.delegate != nil {
		lastTier = internal.TierDelegated
		hint := ""
		if p := e.profiles.ByID(supplier); p != nil {
			hint = p.Prompt
		}
		delegated, err := e.delegate.ExtractStructured(ctx, text, hint)
		if err != nil {
			return internal.ExtractionResult{Tier: internal.TierDelegated, Failure: internal.ReasonExternalExtraction}
		}
		if delegated != nil {
			delegated.Supplier = supplier
			if usableRecord(delegated) {
				return internal.ExtractionResult{Record: delegated, Tier: internal.TierDelegated}
			}
			sawHeader = sawHeader || hasHeaderFields(delegated)
		}
	}

	reason := internal.ReasonNoLineItems
	if !sawHeader {
		reason = internal.ReasonNoHeaderFields
	}
	return internal.ExtractionResult{Tier: lastTier, Failure: reason}
}

// A record is usable when at least the invoice id or the vendor is populated
// and it carries at least one line item.
func usableRecord(rec *internal.InvoiceRecord) bool {
	return rec != nil && hasHeaderFields(rec) && len(rec.Items) > 0
}

func hasHeaderFields(rec *internal.InvoiceRecord) bool {
	if rec == nil {
		return false
	}
	return (rec.InvoiceID != nil && *rec.InvoiceID != "") || rec.Vendor != ""
}

// ---- tier 1: supplier-specific extraction ----

func (e *Extractor) supplierExtract(text string, p *profile.Profile) *internal.InvoiceRecord {
	rec := &internal.InvoiceRecord{Supplier: p.ID}
	applyFieldPatterns(rec, text, p.Fields)
	if rec.Vendor == "" {
		rec.Vendor = headerVendor(text)
	}
	rec.Items = sectionLineItems(text)
	return rec
}

func applyFieldPatterns(rec *internal.InvoiceRecord, text string, fields map[string][]*regexp.Regexp) {
	assign := func(field string) {
		patterns := fields[field]
		for _, re := range patterns {
			m := re.FindStringSubmatch(text)
			if m == nil {
				continue
			}
			setHeaderField(rec, field, strings.TrimSpace(m[1]))
			return
		}
	}
	assign(profile.FieldInvoiceID)
	assign(profile.FieldDate)
	assign(profile.FieldVendor)
	assign(profile.FieldCustomer)
	assign(profile.FieldTotalAmount)
	assign(profile.FieldCurrency)
	assign(profile.FieldPaymentTerms)
}

func setHeaderField(rec *internal.InvoiceRecord, field, value string) {
	if value == "" {
		return
	}
	switch field {
	case profile.FieldInvoiceID:
		rec.InvoiceID = util.StringPtr(value)
	case profile.FieldDate:
		rec.Date = util.StringPtr(value)
	case profile.FieldVendor:
		rec.Vendor = value
	case profile.FieldCustomer:
		rec.Customer = value
	case profile.FieldTotalAmount:
		rec.TotalAmount = util.ParseAmount(value)
	case profile.FieldCurrency:
		rec.Currency = value
	case profile.FieldPaymentTerms:
		rec.PaymentTerms = value
	}
}

// ---- tier 2: generic extraction ----

var genericFieldPatterns = map[string][]*regexp.Regexp{
	profile.FieldInvoiceID: {
		regexp.MustCompile(`(?i)invoice\s*(?:#|no\.?|number|reference)\s*[:.]?\s*([A-Za-z0-9][A-Za-z0-9/-]*)`),
		regexp.MustCompile(`(?i)\binv\s*#?\s*[:.]\s*([A-Za-z0-9][A-Za-z0-9/-]*)`),
		regexp.MustCompile(`(?i)\binvoice\s*:\s*([A-Za-z0-9][A-Za-z0-9/-]*)`),
	},
	profile.FieldDate: {
		regexp.MustCompile(`(?im)^\s*(?:invoice\s+)?date\s*:?\s*(\d{1,2}[./-]\d{1,2}[./-]\d{2,4})`),
		regexp.MustCompile(`(?im)^\s*(?:invoice\s+)?date\s*:?\s*(\d{4}[./-]\d{1,2}[./-]\d{1,2})`),
		regexp.MustCompile(`(?im)^\s*(?:invoice\s+)?date\s*:?\s*(\d{1,2}(?:st|nd|rd|th)?\s+[A-Za-z]{3,9}\.?,?\s+\d{2,4})`),
		regexp.MustCompile(`(?im)^\s*(?:invoice\s+)?date\s*:?\s*([A-Za-z]{3,9}\.?\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{2,4})`),
	},
	profile.FieldCustomer: {
		regexp.MustCompile(`(?im)^\s*(?:bill\s+to|ship\s+to|sold\s+to|deliver\s+to|customer)\s*:?\s*(\S.*)$`),
	},
	profile.FieldTotalAmount: {
		regexp.MustCompile(`(?im)^\s*(?:grand\s+total|amount\s+due|balance\s+due|invoice\s+total|total)\s*:?\s*(?:€|\$|£|[A-Za-z]{3})?\s*(\d[\d.,]*)`),
	},
	profile.FieldCurrency: {
		regexp.MustCompile(`(?im)^\s*currency\s*:?\s*([A-Za-z]{3})\b`),
		regexp.MustCompile(`(?i)(€|\$|£)\s*\d`),
		regexp.MustCompile(`(?i)\b(EUR|USD|GBP|CHF|JPY)\b`),
	},
	profile.FieldPaymentTerms: {
		regexp.MustCompile(`(?im)^\s*(?:payment\s+)?terms\s*:?\s*(\S.*)$`),
	},
}

func (e *Extractor) genericExtract(text string, supplier internal.SupplierID) *internal.InvoiceRecord {
	rec := &internal.InvoiceRecord{Supplier: supplier}
	applyFieldPatterns(rec, text, genericFieldPatterns)
	if rec.Vendor == "" {
		rec.Vendor = headerVendor(text)
	}
	rec.Items = sectionLineItems(text)
	if len(rec.Items) == 0 {
		rec.Items = tokenizedLineItems(text)
	}
	return rec
}

var vendorSkipPattern = regexp.MustCompile(`(?i)^(invoice|tax invoice|credit note|statement|page\s+\d)`)

// headerVendor takes the first plausible letterhead line as the vendor name:
// invoices from every supplier seen so far open with the issuing company.
func headerVendor(text string) string {
	lines := util.SplitLines(text)
	for i, line := range lines {
		if i >= 5 {
			break
		}
		if !util.HasLetters(line) || strings.Contains(line, ":") {
			continue
		}
		if vendorSkipPattern.MatchString(line) {
			continue
		}
		if len([]rune(line)) < 3 {
			continue
		}
		return util.CollapseSpaces(line)
	}
	return ""
}

// ---- line-item section extraction ----

var (
	itemEndMarkers = []string{"SUBTOTAL", "SUB-TOTAL", "SUB TOTAL", "GOODS VALUE", "TOTAL", "VAT", "TAX", "CARRIAGE"}

	reRowStart   = regexp.MustCompile(`^\s*(\d+(?:[.,]\d+)?)\s+(\S.*)$`)
	reMoneyToken = regexp.MustCompile(`(?:\d{1,3}(?:[.,]\d{3})*|\d+)[.,]\d{2}\b`)
	reVATCode    = regexp.MustCompile(`^(.*?)\s+([A-Z][0-9A-Z])\s*$`)
)

func isItemHeader(line string) bool {
	upper := strings.ToUpper(line)
	hasQty := strings.Contains(upper, "QTY") || strings.Contains(upper, "QUANTITY")
	hasDesc := strings.Contains(upper, "DESCRIPTION") || strings.Contains(upper, "ITEM")
	hasValue := strings.Contains(upper, "PRICE") || strings.Contains(upper, "RATE") ||
		strings.Contains(upper, "AMOUNT") || strings.Contains(upper, "VALUE") ||
		strings.Contains(upper, "INVOICE")
	return hasQty && hasDesc && hasValue
}

func isItemEndMarker(line string) bool {
	upper := strings.ToUpper(strings.TrimSpace(line))
	for _, marker := range itemEndMarkers {
		if strings.HasPrefix(upper, marker) {
			return true
		}
	}
	return false
}

// sectionLineItems locates a column-marked tabular block (a header line
// naming qty/description/price columns, ended by a totals marker) and parses
// its rows positionally.
func sectionLineItems(text string) []internal.LineItem {
	lines := util.SplitLines(text)

	start := -1
	for i, line := range lines {
		if isItemHeader(line) {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return nil
	}

	var section []string
	for _, line := range lines[start:] {
		if isItemEndMarker(line) {
			break
		}
		section = append(section, line)
	}

	return parseItemRows(section)
}

// parseItemRows groups section lines into entries: a line opening with a
// number starts a new item, anything else continues the previous one (batch
// and expiry details are printed on continuation lines by several suppliers).
func parseItemRows(section []string) []internal.LineItem {
	var entries [][]string
	var current []string
	for _, line := range section {
		if reRowStart.MatchString(line) && !isOnlyNumber(line) {
			if len(current) > 0 {
				entries = append(entries, current)
			}
			current = []string{line}
			continue
		}
		if len(current) > 0 {
			current = append(current, line)
		}
	}
	if len(current) > 0 {
		entries = append(entries, current)
	}

	items := make([]internal.LineItem, 0, len(entries))
	for _, entry := range entries {
		if item := parseItemEntry(entry); item != nil {
			items = append(items, *item)
		}
	}
	return items
}

func parseItemEntry(entry []string) *internal.LineItem {
	main := util.CollapseSpaces(entry[0])
	m := reRowStart.FindStringSubmatch(main)
	if m == nil {
		return nil
	}

	item := &internal.LineItem{Quantity: util.ParseAmount(m[1])}
	rest := m[2]

	money := reMoneyToken.FindAllStringIndex(rest, -1)
	switch {
	case len(money) >= 2:
		unit := money[len(money)-2]
		amount := money[len(money)-1]
		item.UnitPrice = util.ParseAmount(rest[unit[0]:unit[1]])
		item.Amount = util.ParseAmount(rest[amount[0]:amount[1]])
		item.Description = strings.TrimSpace(rest[:unit[0]])
	case len(money) == 1:
		item.UnitPrice = util.ParseAmount(rest[money[0][0]:money[0][1]])
		item.Description = strings.TrimSpace(rest[:money[0][0]])
	default:
		item.Description = strings.TrimSpace(rest)
	}

	// A trailing one-letter-one-digit token is a VAT code, not description.
	if vm := reVATCode.FindStringSubmatch(item.Description); vm != nil {
		item.Description = strings.TrimSpace(vm[1])
	}

	applyBatchExpiry(item, entry)
	return item
}

func isOnlyNumber(line string) bool {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' || r == '.' || r == ',' {
			return -1
		}
		return r
	}, line)) == ""
}

// ---- batch / expiry ----

// Ordered pattern lists; the first match wins, so more specific labels come
// before the looser ones.
var batchPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)batch(?:\s+no\.?)?\s*[:.]?\s*([A-Za-z0-9][\w-]*)`),
	regexp.MustCompile(`(?i)lot(?:\s+number)?\s*[:.]?\s*([A-Za-z0-9][\w-]*)`),
}

var expiryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)exp(?:iry|iration)?(?:\s+date)?\s*[:.]?\s*(\d{1,2}[./-]\d{1,2}[./-]\d{2,4})`),
	regexp.MustCompile(`(?i)exp(?:iry|iration)?(?:\s+date)?\s*[:.]?\s*(\d{1,2}(?:st|nd|rd|th)?\s+[A-Za-z]{3,9}\.?,?\s+\d{2,4})`),
}

func applyBatchExpiry(item *internal.LineItem, fragments []string) {
	for _, fragment := range fragments {
		if item.BatchNumber == nil {
			for _, re := range batchPatterns {
				if m := re.FindStringSubmatch(fragment); m != nil {
					item.BatchNumber = util.StringPtr(m[1])
					break
				}
			}
		}
		if item.ExpiryDate == nil {
			for _, re := range expiryPatterns {
				if m := re.FindStringSubmatch(fragment); m != nil {
					item.ExpiryDate = util.StringPtr(strings.TrimSpace(m[1]))
					break
				}
			}
		}
	}
}

// ---- best-effort row tokenizer ----

var noiseLinePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^--+$`),
	regexp.MustCompile(`^==+$`),
	regexp.MustCompile(`(?i)^page\s+\d`),
	regexp.MustCompile(`(?i)^thank you`),
	regexp.MustCompile(`(?i)^e&oe`),
	regexp.MustCompile(`(?i)^tel[:\s]`),
	regexp.MustCompile(`(?i)^fax[:\s]`),
	regexp.MustCompile(`(?i)^e-?mail[:\s]`),
	regexp.MustCompile(`(?i)^(?:https?://|www\.)`),
}

var (
	reColumnSplit = regexp.MustCompile(`\s{2,}|\t`)
	reDelimSplit  = regexp.MustCompile(`\s*[|;]\s*`)
)

// tokenizedLineItems is the fallback when no column-marked section exists:
// any line that splits into a described column plus numeric columns is a
// candidate row.
func tokenizedLineItems(text string) []internal.LineItem {
	var items []internal.LineItem
	for _, line := range util.SplitLines(text) {
		if isLikelyNoise(line) || isItemHeader(line) || isItemEndMarker(line) {
			continue
		}
		if item := tokenizeRow(line); item != nil {
			items = append(items, *item)
		}
	}
	return items
}

func tokenizeRow(line string) *internal.LineItem {
	splitter := reColumnSplit
	if strings.ContainsAny(line, "|;") {
		splitter = reDelimSplit
	}

	var cols []string
	for _, col := range splitter.Split(line, -1) {
		col = strings.TrimSpace(col)
		if col != "" {
			cols = append(cols, col)
		}
	}
	if len(cols) < 2 || len(cols) > 8 {
		return nil
	}
	if !util.HasLetters(cols[0]) || strings.HasSuffix(cols[0], ":") {
		return nil
	}

	var nums []*float64
	for _, col := range cols[1:] {
		if util.HasLetters(col) {
			continue
		}
		if v := util.ParseAmount(col); v != nil {
			nums = append(nums, v)
		}
	}
	if len(nums) == 0 {
		return nil
	}

	item := &internal.LineItem{Description: cols[0]}
	switch {
	case len(nums) >= 3:
		item.Quantity = nums[0]
		item.UnitPrice = nums[len(nums)-2]
		item.Amount = nums[len(nums)-1]
	case len(nums) == 2:
		item.Quantity = nums[0]
		item.UnitPrice = nums[1]
	default:
		item.Amount = nums[0]
	}

	applyBatchExpiry(item, []string{line})
	return item
}

func isLikelyNoise(line string) bool {
	trimmed := strings.TrimSpace(line)
	for _, re := range noiseLinePatterns {
		if re.MatchString(trimmed) {
			return true
		}
	}
	return false
}
