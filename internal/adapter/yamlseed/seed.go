// Package yamlseed reads an initial filter list from a YAML file.
//
// The file is a plain list; entries are either a bare model name or a
// mapping with model and max_price:
//
//   - iPhone 12
//   - model: iPhone 13 Pro
//     max_price: 2500
package yamlseed

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/user/olx-watcher/internal/entity"
)

// Load parses the seed file at path. Blank entries are dropped and a later
// entry with the same model replaces an earlier one in place.
func Load(path string) ([]entity.Filter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read filter seed %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) ([]entity.Filter, error) {
	var raw []entity.Filter
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode filter seed: %w", err)
	}

	filters := make([]entity.Filter, 0, len(raw))
	index := make(map[string]int, len(raw))
	for _, f := range raw {
		f = entity.NewFilter(f.Model, f.MaxPrice)
		if f.Model == "" {
			continue
		}
		if f.MaxPrice != nil && *f.MaxPrice < 0 {
			return nil, fmt.Errorf("filter %q: max_price must not be negative", f.Model)
		}
		if i, ok := index[f.Model]; ok {
			filters[i] = f
			continue
		}
		index[f.Model] = len(filters)
		filters = append(filters, f)
	}
	return filters, nil
}
