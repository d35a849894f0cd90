package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"invosheet/internal"
	"invosheet/internal/util"
)

// Invoice text beyond this many characters is truncated before sending;
// headers and line items sit at the top of every format seen so far.
const maxPromptChars = 12000

const extractSystemPrompt = "You extract structured data from raw invoice text. " +
	"Respond with a single JSON object and nothing else: no prose, no markdown."

const extractSchemaPrompt = `Extract the invoice below into this JSON shape:
{
  "invoice_number": string or null,
  "invoice_date": string or null (as printed),
  "vendor": string or null,
  "customer": string or null,
  "total_amount": number or null,
  "currency": string or null,
  "payment_terms": string or null,
  "items": [
    {
      "description": string,
      "quantity": number or null,
      "unit_price": number or null,
      "amount": number or null,
      "batch_number": string or null,
      "expiry_date": string or null
    }
  ]
}
Use null for anything not present. Do not invent values.`

// ExtractStructured asks the model for an invoice record. Any malformed
// response is an error; the caller treats that as an extraction failure, not
// a crash.
func (c *Client) ExtractStructured(ctx context.Context, text, promptHint string) (*internal.InvoiceRecord, error) {
	if runes := []rune(text); len(runes) > maxPromptChars {
		text = string(runes[:maxPromptChars])
	}

	prompt := extractSchemaPrompt
	if promptHint != "" {
		prompt += "\n\nSupplier notes: " + promptHint
	}
	prompt += "\n\nInvoice text:\n" + text

	content, err := c.chat(ctx, c.model, []chatMessage{
		{Role: "system", Content: extractSystemPrompt},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return nil, err
	}

	var wire wireInvoice
	if err := json.Unmarshal([]byte(stripFences(content)), &wire); err != nil {
		return nil, fmt.Errorf("model response is not valid JSON: %w", err)
	}
	return wire.record(), nil
}

// stripFences removes a ```json ... ``` wrapper; models add one even when
// told not to.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:] // drop the language tag line
	}
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

type wireInvoice struct {
	InvoiceNumber string      `json:"invoice_number"`
	InvoiceDate   string      `json:"invoice_date"`
	Vendor        string      `json:"vendor"`
	Customer      string      `json:"customer"`
	TotalAmount   looseNumber `json:"total_amount"`
	Currency      string      `json:"currency"`
	PaymentTerms  string      `json:"payment_terms"`
	Items         []wireItem  `json:"items"`
}

type wireItem struct {
	Description string      `json:"description"`
	Quantity    looseNumber `json:"quantity"`
	UnitPrice   looseNumber `json:"unit_price"`
	Amount      looseNumber `json:"amount"`
	BatchNumber string      `json:"batch_number"`
	ExpiryDate  string      `json:"expiry_date"`
}

func (w wireInvoice) record() *internal.InvoiceRecord {
	rec := &internal.InvoiceRecord{
		Vendor:       strings.TrimSpace(w.Vendor),
		Customer:     strings.TrimSpace(w.Customer),
		Currency:     strings.TrimSpace(w.Currency),
		PaymentTerms: strings.TrimSpace(w.PaymentTerms),
		TotalAmount:  w.TotalAmount.value,
	}
	if id := strings.TrimSpace(w.InvoiceNumber); id != "" {
		rec.InvoiceID = util.StringPtr(id)
	}
	if date := strings.TrimSpace(w.InvoiceDate); date != "" {
		rec.Date = util.StringPtr(date)
	}
	for _, item := range w.Items {
		li := internal.LineItem{
			Description: strings.TrimSpace(item.Description),
			Quantity:    item.Quantity.value,
			UnitPrice:   item.UnitPrice.value,
			Amount:      item.Amount.value,
		}
		if batch := strings.TrimSpace(item.BatchNumber); batch != "" {
			li.BatchNumber = util.StringPtr(batch)
		}
		if expiry := strings.TrimSpace(item.ExpiryDate); expiry != "" {
			li.ExpiryDate = util.StringPtr(expiry)
		}
		rec.Items = append(rec.Items, li)
	}
	return rec
}

// looseNumber tolerates the shapes models actually emit for numeric fields:
// a number, a quoted number, a formatted amount like "€1,234.56", or null.
// Garbage degrades to null instead of failing the whole response.
type looseNumber struct {
	value *float64
}

func (n *looseNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		n.value = nil
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			n.value = nil
			return nil
		}
		n.value = util.ParseAmount(s)
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		n.value = nil
		return nil
	}
	n.value = &f
	return nil
}
