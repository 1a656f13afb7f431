package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rebelice/lazyfilter/internal/filter"
	"github.com/rebelice/lazyfilter/internal/models"
)

// Favorite is the exported form of a saved filter
type Favorite struct {
	Label  string            `json:"label"`
	Filter models.FilterData `json:"filter"`
}

// NewFavorite converts f for export. Function filters cannot be exported.
func NewFavorite(label string, f models.Filter) (Favorite, error) {
	d, err := models.ToData(f)
	if err != nil {
		return Favorite{}, err
	}
	if d == nil {
		return Favorite{}, models.Unsupportedf("cannot export an empty filter")
	}
	return Favorite{Label: label, Filter: *d}, nil
}

// ExportToCSV exports favorites to a CSV file
func ExportToCSV(favorites []Favorite, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := csv.NewWriter(file)

	if err := writer.Write([]string{"Label", "Filter"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, fav := range favorites {
		data, err := json.Marshal(fav.Filter)
		if err != nil {
			return fmt.Errorf("failed to encode favorite %q: %w", fav.Label, err)
		}
		if err := writer.Write([]string{fav.Label, string(data)}); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// ExportToJSON exports favorites to a JSON file
func ExportToJSON(favorites []Favorite, path string) error {
	if favorites == nil {
		favorites = []Favorite{}
	}
	data, err := json.MarshalIndent(favorites, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal favorites to JSON: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}
	return nil
}

// ImportFromJSON reads favorites written by ExportToJSON
func ImportFromJSON(path string) ([]models.Filter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON file: %w", err)
	}

	var favorites []Favorite
	if err := json.Unmarshal(data, &favorites); err != nil {
		return nil, fmt.Errorf("failed to parse favorites: %w", err)
	}

	out := make([]models.Filter, 0, len(favorites))
	for _, fav := range favorites {
		f, err := filter.Parse(fav.Filter)
		if err != nil {
			return nil, fmt.Errorf("invalid favorite %q: %w", fav.Label, err)
		}
		if f != nil {
			out = append(out, f)
		}
	}
	return out, nil
}
