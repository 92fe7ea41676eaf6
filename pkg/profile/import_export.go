package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chambrid/xtream-desk/pkg/xtream"
)

// Export writes the whole collection to w as an ExportDocument
func (r *Repository) Export(ctx context.Context, w io.Writer, format Format) error {
	profiles, err := r.profiles(ctx)
	if err != nil {
		return err
	}

	doc := ExportDocument{
		Version:    ExportVersion,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Profiles:   profiles,
	}

	var data []byte
	switch format {
	case FormatJSON:
		data, err = json.MarshalIndent(doc, "", "  ")
		if err == nil {
			data = append(data, '\n')
		}
	case FormatYAML:
		data, err = yaml.Marshal(doc)
	default:
		return NewFormatError(fmt.Sprintf("unsupported export format '%s'", format), nil)
	}
	if err != nil {
		return NewExportError("failed to encode profiles", err)
	}

	if _, err := w.Write(data); err != nil {
		return NewExportError("failed to write export", err)
	}

	r.log.V(1).Info("Exported profiles", "count", len(profiles), "format", string(format))
	return nil
}

// Import reads an ExportDocument from rd and upserts its profiles. Without
// overwrite, ids already in the collection are skipped.
func (r *Repository) Import(ctx context.Context, rd io.Reader, format Format, overwrite bool) (*ImportResult, error) {
	data, err := io.ReadAll(rd)
	if err != nil {
		return nil, NewImportError("failed to read import", err)
	}

	var doc ExportDocument
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &doc)
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	default:
		return nil, NewFormatError(fmt.Sprintf("unsupported import format '%s'", format), nil)
	}
	if err != nil {
		return nil, NewImportError("failed to parse import", err)
	}

	for i, p := range doc.Profiles {
		if p.ID == "" {
			return nil, NewImportError(fmt.Sprintf("profile at index %d has no id", i), nil)
		}
	}

	result := &ImportResult{Skipped: make([]string, 0)}
	err = r.mutate(ctx, func(profiles []xtream.ProfileAccount) ([]xtream.ProfileAccount, error) {
		existing := make(map[string]bool, len(profiles))
		for _, p := range profiles {
			existing[p.ID] = true
		}

		for _, p := range doc.Profiles {
			if existing[p.ID] && !overwrite {
				result.Skipped = append(result.Skipped, p.ID)
				continue
			}

			var replaced bool
			profiles, replaced = upsert(profiles, p)
			if replaced {
				result.Replaced++
			} else {
				result.Imported++
			}
		}
		return profiles, nil
	})
	if err != nil {
		return nil, err
	}

	r.log.Info("Imported profiles", "imported", result.Imported, "replaced", result.Replaced, "skipped", len(result.Skipped))
	return result, nil
}
