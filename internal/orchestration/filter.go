package orchestration

import (
	"fmt"
	"path/filepath"

	"github.com/bidpanel/bidpanel/internal/models"
)

// FilterVendors returns the subset of vendors whose name matches at least one
// of the given glob patterns. An empty patterns slice returns all vendors
// unchanged.
func FilterVendors(vendors []models.Vendor, patterns []string) ([]models.Vendor, error) {
	if len(patterns) == 0 {
		return vendors, nil
	}

	var matched []models.Vendor
	for _, v := range vendors {
		ok, err := matchesAny(v.Name, patterns)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, v)
		}
	}
	return matched, nil
}

// matchesAny reports whether a vendor name matches any pattern.
func matchesAny(name string, patterns []string) (bool, error) {
	for _, p := range patterns {
		ok, err := filepath.Match(p, name)
		if err != nil {
			return false, fmt.Errorf("invalid vendor filter pattern %q: %w", p, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
