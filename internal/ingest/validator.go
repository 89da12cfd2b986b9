// Package ingest validates uploaded tabular artifacts before they touch the
// warehouse: type resolution, header normalization, structural and value
// checks, content fingerprinting and duplicate detection.
package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"LedgerSentinel/internal/filespec"
	"LedgerSentinel/internal/tabular"
	"LedgerSentinel/internal/warehouse"
)

// Report is the outcome of validating one artifact. It is read-only: nothing
// is written to the warehouse during validation.
type Report struct {
	OK           bool     `json:"ok"`
	InferredType string   `json:"inferred_type,omitempty"`
	DeclaredType string   `json:"declared_type,omitempty"`
	Errors       []string `json:"errors"`

	CanonicalHeaders  map[string]string   `json:"canonical_headers"`
	MissingColumns    []string            `json:"missing_columns"`
	NormalizedPreview []map[string]string `json:"normalized_preview"`
	RowsCount         int                 `json:"rows_count"`

	ContentHash   string `json:"content_hash,omitempty"`
	DuplicateOfID int64  `json:"duplicate_of_id,omitempty"`
}

// Options bound the validation work.
type Options struct {
	PreviewRows int // normalized preview size, default 5
	SampleLimit int // allowed-value sample size, default 50
}

func (o Options) withDefaults() Options {
	if o.PreviewRows <= 0 {
		o.PreviewRows = 5
	}
	if o.SampleLimit <= 0 {
		o.SampleLimit = 50
	}
	return o
}

// Fingerprint computes the SHA-256 of a file's raw content (hex).
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Preview validates one artifact: resolves its type (declared wins over
// inferred), normalizes headers, checks required columns and value domains,
// computes the content fingerprint and, when a store and period are given,
// reports an existing duplicate. store may be nil.
func Preview(path, declaredType, mois string, annee int, store *warehouse.Store, opts Options) (*Report, error) {
	opts = opts.withDefaults()

	table, err := tabular.ReadFile(path)
	if err != nil || table.Empty() {
		return &Report{
			OK:               false,
			DeclaredType:     declaredType,
			Errors:           []string{"Fichier vide ou non lisible."},
			CanonicalHeaders: map[string]string{},
		}, nil
	}

	inferred, inferredOK := filespec.GuessFileType(table.Headers)
	ft, resolveErr := resolveType(declaredType, inferred, inferredOK)
	if resolveErr != nil {
		return &Report{
			OK:               false,
			DeclaredType:     declaredType,
			Errors:           []string{resolveErr.Error()},
			CanonicalHeaders: map[string]string{},
			RowsCount:        len(table.Rows),
		}, nil
	}

	canonMap := filespec.NormalizeHeaders(table.Headers, ft)
	normalized := table.Rename(canonMap)

	canonical := make([]string, 0, len(canonMap))
	for _, v := range canonMap {
		canonical = append(canonical, v)
	}

	colsOK, colErrors := filespec.ValidateColumns(canonical, ft)
	valuesOK, valueErrors := filespec.ValidateAllowedValues(normalized.Rows, ft, opts.SampleLimit)

	var errs []string
	errs = append(errs, colErrors...)
	errs = append(errs, valueErrors...)

	report := &Report{
		OK:               colsOK && valuesOK,
		DeclaredType:     string(ft),
		Errors:           errs,
		CanonicalHeaders: canonMap,
		MissingColumns:   filespec.MissingRequired(canonical, ft),
		RowsCount:        len(table.Rows),
	}
	if inferredOK {
		report.InferredType = string(inferred)
	}

	report.NormalizedPreview = preview(normalized, ft, opts.PreviewRows)

	hash, err := Fingerprint(path)
	if err != nil {
		return nil, err
	}
	report.ContentHash = hash

	if store != nil && mois != "" && annee != 0 {
		moisKey, err := filespec.MonthKey(mois)
		if err != nil {
			report.OK = false
			report.Errors = append(report.Errors, err.Error())
			return report, nil
		}
		if id, dup, err := store.FindDuplicate(string(ft), moisKey, annee, hash); err != nil {
			return nil, err
		} else if dup {
			report.DuplicateOfID = id
		}
	}
	return report, nil
}

// resolveType picks the declared type when valid, then the inferred one.
func resolveType(declared string, inferred filespec.FileType, inferredOK bool) (filespec.FileType, error) {
	if declared != "" {
		if ft, err := filespec.Parse(declared); err == nil {
			return ft, nil
		}
	}
	if inferredOK {
		return inferred, nil
	}
	return "", fmt.Errorf("type de fichier indéterminé (aucun en-tête reconnu)")
}

// preview keeps the first n normalized rows, restricted to the type's
// columns of interest.
func preview(t *tabular.Table, ft filespec.FileType, n int) []map[string]string {
	cols := filespec.ColumnsOfInterest(ft)
	out := make([]map[string]string, 0, n)
	for i, row := range t.Rows {
		if i >= n {
			break
		}
		pr := make(map[string]string, len(cols))
		for _, c := range cols {
			if v, ok := row[c]; ok {
				pr[c] = v
			}
		}
		out = append(out, pr)
	}
	return out
}
