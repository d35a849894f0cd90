package pipeline

import (
	"strings"

	"invosheet/internal"
	"invosheet/internal/profile"
)

// DetectSupplier scans the profiles in priority order and returns the first
// whose detection patterns match the text. Empty text and unmatched text both
// resolve to the generic supplier; ambiguity is never an error.
func DetectSupplier(profiles *profile.Set, text string) internal.SupplierID {
	if strings.TrimSpace(text) == "" {
		return internal.SupplierGeneric
	}
	for _, p := range profiles.All() {
		for _, re := range p.Detect {
			if re.MatchString(text) {
				return p.ID
			}
		}
	}
	return internal.SupplierGeneric
}
