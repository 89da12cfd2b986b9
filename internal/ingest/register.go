package ingest

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"LedgerSentinel/internal/filespec"
	"LedgerSentinel/internal/model"
	"LedgerSentinel/internal/warehouse"
)

// Register copies an uploaded file under the upload directory with a
// uuid-prefixed stored name and records the artifact after the dedup check.
// A byte-identical upload for the same (type, period) is rejected with a
// *warehouse.DuplicateError, and the copy is removed.
func Register(store *warehouse.Store, srcPath, filename, declaredType, mois string, annee int, uploadedBy, uploadDir string) (*model.Artifact, error) {
	ft, err := filespec.Parse(declaredType)
	if err != nil {
		return nil, err
	}
	moisKey, err := filespec.MonthKey(mois)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	storedName := fmt.Sprintf("%s_%s", uuid.NewString(), filename)
	destPath := filepath.Join(uploadDir, storedName)
	if err := copyFile(srcPath, destPath); err != nil {
		return nil, err
	}

	hash, err := Fingerprint(destPath)
	if err != nil {
		os.Remove(destPath)
		return nil, err
	}

	artifact := &model.Artifact{
		Filename:   filename,
		StoredName: storedName,
		UploadedBy: uploadedBy,
		UploadDate: time.Time{}, // stamped by the store clock
		Type:       string(ft),
		Mois:       moisKey,
		Annee:      annee,
		FileHash:   hash,
	}
	err = store.WithTx(func(t *warehouse.Tx) error {
		return t.CreateArtifact(artifact)
	})
	if err != nil {
		if rmErr := os.Remove(destPath); rmErr != nil {
			log.Printf("[WARN] remove rejected upload %s: %v", destPath, rmErr)
		}
		return nil, err
	}

	log.Printf("[INFO] artifact registered: id=%d type=%s %s/%d", artifact.ID, ft, moisKey, annee)
	return artifact, nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open upload %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy upload: %w", err)
	}
	return out.Close()
}
