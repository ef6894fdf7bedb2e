// Package products holds the code-to-name catalog used to resolve product
// display names in the CSV report. The form UI owns the authoritative
// option lists; this is just the lookup side of them.
package products

import (
	"os"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/lasoteam/laso-sync/log"
)

type Catalog map[string]string

// Load reads a catalog file, a flat JSON object of code to display name.
// An empty path yields an empty catalog.
func Load(path string) (Catalog, error) {
	if path == "" {
		return Catalog{}, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read product catalog")
	}
	var catalog Catalog
	if err := json.Unmarshal(raw, &catalog); err != nil {
		return nil, errors.Wrap(err, "parse product catalog")
	}

	log.Infof("products: loaded %d codes from %s", len(catalog), path)
	return catalog, nil
}

// Lookup resolves a product code, empty string when unknown.
func (c Catalog) Lookup(code string) string {
	return c[code]
}
