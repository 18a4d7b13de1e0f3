// Package persona defines the derived-profile schema shared by the pipeline
// and the person service.
package persona

import (
	"fmt"
	"strings"
)

// RequiredSections are the top-level sections every derived profile must
// carry. The extractor never enforces this; the orchestrator applies it as an
// explicit schema check before persisting.
var RequiredSections = []string{"identity", "traits", "preferences", "goals", "summary"}

// ValidateProfile checks that the required top-level sections are present.
// A missing section is a validation failure, distinct from a parse failure:
// the output was well-formed JSON but not a profile.
func ValidateProfile(profile map[string]any) error {
	var missing []string
	for _, section := range RequiredSections {
		if _, ok := profile[section]; !ok {
			missing = append(missing, section)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("generated profile missing required sections: %s", strings.Join(missing, ", "))
	}
	return nil
}
