package profile

// The built-in suppliers are the pharmacy wholesalers this tool was first
// written for. Detection patterns favour letterhead strings and registration
// numbers that survive OCR; field patterns mirror each supplier's printed
// header labels.
var builtinSpecs = []Spec{
	{
		ID: "united_drug",
		Detect: []string{
			`United Drug \(Wholesale\) Limited`,
			`VAT REG NO\. 2226527T`,
			`Magna Business Park, Citywest Road, Dublin 24`,
		},
		Fields: map[string][]string{
			FieldInvoiceID: {
				`Invoice No\.?\s*:?\s*([A-Z0-9][A-Z0-9/-]*)`,
			},
			FieldDate: {
				`Date\s*:?\s*(\d{1,2}\.\d{1,2}\.\d{2,4})`,
			},
			FieldCustomer: {
				`Account\s*:?\s*([A-Z0-9][A-Z0-9 -]*)`,
			},
			FieldTotalAmount: {
				`Total\s*:?\s*€?\s*(\d[\d.,]*)`,
			},
		},
		Prompt: "United Drug invoices list line items after a QTY PACK DESCRIPTION header; " +
			"dates are DD.MM.YYYY and credit values appear in parentheses.",
	},
	{
		ID: "genamed",
		Detect: []string{
			`NiAm Pharma Ltd trading as GenaMed`,
			`Fitzwilliam Business Centre`,
			`info@genamed\.ie`,
		},
		Fields: map[string][]string{
			FieldInvoiceID: {
				`Invoice No\s*:\s*([A-Z0-9][A-Z0-9/-]*)`,
			},
			FieldDate: {
				`Invoice Date\s*:\s*(\d{1,2}[./-]\d{1,2}[./-]\d{2,4})`,
			},
			FieldCustomer: {
				`PO Number\s*:\s*([A-Z0-9][A-Z0-9/-]*)`,
			},
			FieldTotalAmount: {
				`Total\s*:?\s*€?\s*(\d[\d.,]*)`,
			},
		},
		Prompt: "GenaMed invoices carry batch numbers and expiry dates under each product " +
			"description; dates are DD-MM-YYYY.",
	},
	{
		ID: "iskus",
		Detect: []string{
			`Iskus Health Ltd`,
			`Citywest Business Park`,
			`info@iskushealth\.com`,
		},
		Fields: map[string][]string{
			FieldInvoiceID: {
				`Invoice\s*(?:No\.?)?\s*:?\s*(97\d{7})`,
				`Invoice\s*(?:No\.?)?\s*:?\s*([A-Z0-9][A-Z0-9/-]*)`,
			},
			FieldDate: {
				`Date\s*:?\s*(\d{1,2}\.\d{1,2}\.\d{2,4})`,
			},
			FieldCustomer: {
				`Your Ref\s*:?\s*([A-Z0-9][A-Z0-9/-]*)`,
			},
			FieldTotalAmount: {
				`Total\s*:?\s*€?\s*(\d[\d.,]*)`,
			},
		},
		Prompt: "Iskus Health invoices print Batch: and Expiry Date: lines directly under " +
			"each product; invoice numbers are nine digits starting with 97.",
	},
	{
		ID: "feehily",
		Detect: []string{
			`Feehily`,
			`Fehily`,
		},
		Fields: map[string][]string{
			FieldInvoiceID: {
				`Invoice No\s*:?\s*([A-Z0-9][A-Z0-9/-]*)`,
			},
			FieldDate: {
				`Date\s*:?\s*(\d{1,2}[./-]\d{1,2}[./-]\d{2,4})`,
			},
			FieldCustomer: {
				`Account No\s*:?\s*([A-Z0-9][A-Z0-9 -]*)`,
			},
		},
		Prompt: "Feehily's invoices have minimal formatting and often poor scan quality; " +
			"columns are Qty, Description, Pack, Price, Value.",
	},
}
