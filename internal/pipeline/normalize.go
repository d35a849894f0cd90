package pipeline

import (
	"fmt"
	"strings"

	"invosheet/internal"
	"invosheet/internal/util"
)

// Normalizer rewrites extracted records into canonical form: ISO dates,
// three-letter currency codes, merged continuation rows and derived amounts.
// Normalization is idempotent; records that come back around (re-runs,
// delegated output) pass through unchanged.
type Normalizer struct {
	dateOrder       string // "dmy" or "mdy", applied to ambiguous numeric dates
	defaultCurrency string
}

func NewNormalizer(dateOrder, defaultCurrency string) *Normalizer {
	return &Normalizer{dateOrder: dateOrder, defaultCurrency: defaultCurrency}
}

func (n *Normalizer) Normalize(res internal.ExtractionResult) internal.ExtractionResult {
	if res.Record != nil {
		n.NormalizeRecord(res.Record)
	}
	return res
}

func (n *Normalizer) NormalizeRecord(rec *internal.InvoiceRecord) {
	rec.Vendor = util.CollapseSpaces(rec.Vendor)
	rec.Customer = util.CollapseSpaces(rec.Customer)
	rec.PaymentTerms = util.CollapseSpaces(rec.PaymentTerms)

	if rec.InvoiceID != nil {
		trimmed := strings.TrimSpace(*rec.InvoiceID)
		if trimmed == "" {
			rec.InvoiceID = nil
		} else {
			rec.InvoiceID = util.StringPtr(trimmed)
		}
	}

	if rec.Date != nil {
		if iso := util.NormalizeDate(*rec.Date, n.dateOrder); iso != nil {
			rec.Date = iso
		} else {
			warn(rec, fmt.Sprintf("unparseable invoice date %q", *rec.Date))
			rec.Date = nil
		}
	}

	if rec.Currency != "" {
		rec.Currency = util.CurrencyCode(rec.Currency)
	} else if n.defaultCurrency != "" {
		rec.Currency = n.defaultCurrency
	}

	rec.Items = n.normalizeItems(rec)
	n.reconcileTotal(rec)
}

// warn records a warning once; re-normalizing a record must not duplicate
// warnings that were already raised.
func warn(rec *internal.InvoiceRecord, msg string) {
	for _, existing := range rec.Warnings {
		if existing == msg {
			return
		}
	}
	rec.Warnings = append(rec.Warnings, msg)
}

func (n *Normalizer) normalizeItems(rec *internal.InvoiceRecord) []internal.LineItem {
	items := make([]internal.LineItem, 0, len(rec.Items))
	for _, item := range rec.Items {
		item.Description = util.CollapseSpaces(item.Description)

		// A row without figures continues the previous item: wrapped
		// description text or a batch/expiry line from narrow print layouts.
		if item.Quantity == nil && item.UnitPrice == nil && item.Amount == nil {
			if len(items) > 0 {
				prev := &items[len(items)-1]
				if item.Description != "" {
					prev.Description = util.CollapseSpaces(prev.Description + " " + item.Description)
				}
				if prev.BatchNumber == nil {
					prev.BatchNumber = item.BatchNumber
				}
				if prev.ExpiryDate == nil {
					prev.ExpiryDate = item.ExpiryDate
				}
			}
			// A leading fragment has nothing to attach to and is dropped.
			continue
		}
		if item.Description == "" {
			warn(rec, "dropped line item without description")
			continue
		}

		items = append(items, item)
	}

	// Normalize after merging so details attached by continuation rows are
	// covered too.
	for i := range items {
		n.normalizeItem(rec, &items[i])
	}
	return items
}

func (n *Normalizer) normalizeItem(rec *internal.InvoiceRecord, item *internal.LineItem) {
	if item.Quantity == nil && (item.UnitPrice != nil || item.Amount != nil) {
		item.Quantity = util.FloatPtr(1)
	}

	switch {
	case item.Amount == nil && item.Quantity != nil && item.UnitPrice != nil:
		item.Amount = util.FloatPtr(util.Round2(*item.Quantity * *item.UnitPrice))
	case item.UnitPrice == nil && item.Quantity != nil && item.Amount != nil && *item.Quantity != 0:
		item.UnitPrice = util.FloatPtr(util.Round2(*item.Amount / *item.Quantity))
	case item.Amount != nil && item.Quantity != nil && item.UnitPrice != nil:
		// A unit price that equals amount/qty at cent precision is
		// self-consistent; qty*unit can still drift from the amount by
		// per-unit rounding, and that drift is not a mismatch. Without this
		// a unit price the pass above derived would be flagged on the next
		// pass.
		if *item.Quantity != 0 && util.Round2(*item.Amount / *item.Quantity) == *item.UnitPrice {
			break
		}
		expected := util.Round2(*item.Quantity * *item.UnitPrice)
		if diff := expected - *item.Amount; diff > 0.01 || diff < -0.01 {
			warn(rec, fmt.Sprintf(
				"line %q: amount %.2f does not match qty x unit price %.2f",
				item.Description, *item.Amount, expected))
		}
	}

	if item.ExpiryDate != nil {
		if iso := util.NormalizeDate(*item.ExpiryDate, n.dateOrder); iso != nil {
			item.ExpiryDate = iso
		} else {
			warn(rec, fmt.Sprintf(
				"line %q: unparseable expiry date %q", item.Description, *item.ExpiryDate))
			item.ExpiryDate = nil
		}
	}
	if item.BatchNumber != nil {
		trimmed := strings.TrimSpace(*item.BatchNumber)
		if trimmed == "" {
			item.BatchNumber = nil
		} else {
			item.BatchNumber = util.StringPtr(trimmed)
		}
	}
}

// reconcileTotal fills a missing invoice total from the item amounts and
// flags a stated total that disagrees with them. Estimation only happens when
// every surviving item carries an amount; a partial sum would understate.
func (n *Normalizer) reconcileTotal(rec *internal.InvoiceRecord) {
	if len(rec.Items) == 0 {
		return
	}
	sum := 0.0
	for _, item := range rec.Items {
		if item.Amount == nil {
			return
		}
		sum += *item.Amount
	}
	sum = util.Round2(sum)

	if rec.TotalAmount == nil {
		rec.TotalAmount = util.FloatPtr(sum)
		warn(rec, fmt.Sprintf("total estimated from line items: %.2f", sum))
		return
	}
	if diff := *rec.TotalAmount - sum; diff > 0.01 || diff < -0.01 {
		warn(rec, fmt.Sprintf(
			"stated total %.2f differs from line item sum %.2f", *rec.TotalAmount, sum))
	}
}
