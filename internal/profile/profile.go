// Package profile holds supplier profiles: ordered detection patterns plus
// per-field extraction patterns. Profiles are plain data compiled once at
// startup and shared read-only; adding a supplier is a configuration change,
// not a code change.
package profile

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"invosheet/internal"
)

// Canonical field keys accepted in a profile's fields map.
const (
	FieldInvoiceID    = "invoice_id"
	FieldDate         = "date"
	FieldVendor       = "vendor"
	FieldCustomer     = "customer"
	FieldTotalAmount  = "total_amount"
	FieldCurrency     = "currency"
	FieldPaymentTerms = "payment_terms"
)

var knownFields = map[string]struct{}{
	FieldInvoiceID:    {},
	FieldDate:         {},
	FieldVendor:       {},
	FieldCustomer:     {},
	FieldTotalAmount:  {},
	FieldCurrency:     {},
	FieldPaymentTerms: {},
}

// Spec is the YAML-facing shape of one supplier profile.
type Spec struct {
	ID     string              `yaml:"id"`
	Detect []string            `yaml:"detect"`
	Fields map[string][]string `yaml:"fields"`
	Prompt string              `yaml:"prompt"`
}

// Profile is a compiled, immutable supplier profile.
type Profile struct {
	ID     internal.SupplierID
	Detect []*regexp.Regexp
	Fields map[string][]*regexp.Regexp
	Prompt string
}

// Set is an ordered collection of profiles; iteration order is priority
// order for detection tie-breaks.
type Set struct {
	ordered []*Profile
	byID    map[internal.SupplierID]*Profile
}

func (s *Set) All() []*Profile { return s.ordered }

func (s *Set) ByID(id internal.SupplierID) *Profile { return s.byID[id] }

func (s *Set) Len() int { return len(s.ordered) }

// Load compiles the built-in profiles and, when path is non-empty, merges the
// YAML file over them: a spec whose id matches a built-in replaces it in
// place, new ids append in file order. Any malformed spec is a hard error
// since every document's detection depends on the set being well-formed.
func Load(path string) (*Set, error) {
	specs := make([]Spec, len(builtinSpecs))
	copy(specs, builtinSpecs)

	if path != "" {
		blob, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read supplier profiles: %w", err)
		}
		var doc struct {
			Suppliers []Spec `yaml:"suppliers"`
		}
		if err := yaml.Unmarshal(blob, &doc); err != nil {
			return nil, fmt.Errorf("parse supplier profiles: %w", err)
		}
		for _, spec := range doc.Suppliers {
			specs = mergeSpec(specs, spec)
		}
	}

	return Compile(specs)
}

// Compile validates and compiles an ordered list of specs into a Set.
func Compile(specs []Spec) (*Set, error) {
	set := &Set{byID: make(map[internal.SupplierID]*Profile, len(specs))}
	for _, spec := range specs {
		p, err := compileSpec(spec)
		if err != nil {
			return nil, err
		}
		if _, exists := set.byID[p.ID]; exists {
			return nil, fmt.Errorf("duplicate supplier profile id %q", p.ID)
		}
		set.ordered = append(set.ordered, p)
		set.byID[p.ID] = p
	}
	return set, nil
}

func compileSpec(spec Spec) (*Profile, error) {
	id := strings.TrimSpace(spec.ID)
	if id == "" {
		return nil, fmt.Errorf("supplier profile with empty id")
	}
	if id == string(internal.SupplierGeneric) {
		return nil, fmt.Errorf("supplier profile id %q is reserved", id)
	}
	if len(spec.Detect) == 0 {
		return nil, fmt.Errorf("supplier profile %q has no detection patterns", id)
	}

	p := &Profile{
		ID:     internal.SupplierID(id),
		Fields: make(map[string][]*regexp.Regexp, len(spec.Fields)),
		Prompt: spec.Prompt,
	}

	for _, pattern := range spec.Detect {
		re, err := compilePattern(pattern)
		if err != nil {
			return nil, fmt.Errorf("supplier profile %q: detect pattern %q: %w", id, pattern, err)
		}
		p.Detect = append(p.Detect, re)
	}

	for field, patterns := range spec.Fields {
		if _, ok := knownFields[field]; !ok {
			return nil, fmt.Errorf("supplier profile %q: unknown field %q", id, field)
		}
		for _, pattern := range patterns {
			re, err := compilePattern(pattern)
			if err != nil {
				return nil, fmt.Errorf("supplier profile %q: field %q pattern %q: %w", id, field, pattern, err)
			}
			if re.NumSubexp() < 1 {
				return nil, fmt.Errorf("supplier profile %q: field %q pattern %q has no capture group", id, field, pattern)
			}
			p.Fields[field] = append(p.Fields[field], re)
		}
	}

	return p, nil
}

// compilePattern makes every profile pattern case-insensitive; detection and
// field matching must not depend on the casing of scanned text.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	if !strings.HasPrefix(pattern, "(?i)") {
		pattern = "(?i)" + pattern
	}
	return regexp.Compile(pattern)
}

func mergeSpec(specs []Spec, spec Spec) []Spec {
	for i := range specs {
		if specs[i].ID == spec.ID {
			specs[i] = spec
			return specs
		}
	}
	return append(specs, spec)
}
