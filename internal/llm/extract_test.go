package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"invosheet/internal/config"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.Config{
		OpenAIAPIKey:    "test-key",
		OpenAIBaseURL:   server.URL,
		OpenAIModel:     "test-model",
		OpenAITimeoutMs: 5000,
	}
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func completionResponse(content string) []byte {
	body, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
	return body
}

func TestExtractStructured(t *testing.T) {
	const fenced = "```json\n" + `{
  "invoice_number": "INV-42",
  "invoice_date": "05.03.2024",
  "vendor": "Scanned Vendor Ltd",
  "total_amount": "€1,234.56",
  "items": [
    {"description": "Widget", "quantity": "2", "unit_price": 10, "amount": 20,
     "batch_number": "B7", "expiry_date": null}
  ]
}` + "\n```"

	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(completionResponse(fenced))
	})

	rec, err := c.ExtractStructured(context.Background(), "raw invoice text", "")
	if err != nil {
		t.Fatalf("ExtractStructured: %v", err)
	}
	if rec.InvoiceID == nil || *rec.InvoiceID != "INV-42" {
		t.Errorf("InvoiceID = %v", rec.InvoiceID)
	}
	if rec.Vendor != "Scanned Vendor Ltd" {
		t.Errorf("Vendor = %q", rec.Vendor)
	}
	if rec.TotalAmount == nil || *rec.TotalAmount != 1234.56 {
		t.Errorf("TotalAmount = %v, want coerced 1234.56", rec.TotalAmount)
	}
	if len(rec.Items) != 1 {
		t.Fatalf("Items = %d", len(rec.Items))
	}
	item := rec.Items[0]
	if item.Quantity == nil || *item.Quantity != 2 {
		t.Errorf("Quantity = %v, want coerced 2", item.Quantity)
	}
	if item.BatchNumber == nil || *item.BatchNumber != "B7" {
		t.Errorf("BatchNumber = %v", item.BatchNumber)
	}
	if item.ExpiryDate != nil {
		t.Errorf("ExpiryDate = %v, want nil", item.ExpiryDate)
	}
}

func TestExtractStructuredInvalidJSON(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(completionResponse("Sorry, I cannot read this document."))
	})
	if _, err := c.ExtractStructured(context.Background(), "text", ""); err == nil {
		t.Fatal("expected error for non-JSON response")
	}
}

func TestExtractStructuredServerError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
	})
	if _, err := c.ExtractStructured(context.Background(), "text", ""); err == nil {
		t.Fatal("expected error for server failure")
	}
}

func TestStripFences(t *testing.T) {
	cases := []struct{ in, want string }{
		{"{\"a\":1}", "{\"a\":1}"},
		{"```json\n{\"a\":1}\n```", "{\"a\":1}"},
		{"```\n{\"a\":1}\n```", "{\"a\":1}"},
	}
	for _, tc := range cases {
		if got := stripFences(tc.in); got != tc.want {
			t.Errorf("stripFences(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(config.Config{}); err == nil {
		t.Fatal("expected error without an API key")
	}
}
