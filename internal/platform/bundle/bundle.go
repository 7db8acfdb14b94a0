// Package bundle reads and writes bundle.json, the flat-file snapshot of
// patients, assessment records and users, and loads it into the stores.
package bundle

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/frat/frat/internal/domain/account"
	"github.com/frat/frat/internal/domain/assessment"
	"github.com/frat/frat/internal/domain/patient"
)

// Bundle is the file layout. Patient ids in the file are local to it;
// assessment records refer to them through patient_id.
type Bundle struct {
	Patients    []*patient.Patient   `json:"patients"`
	Assessments []*assessment.Record `json:"assessments"`
	Users       []*account.User      `json:"users,omitempty"`
}

// Read decodes a bundle from r.
func Read(r io.Reader) (*Bundle, error) {
	var b Bundle
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	return &b, nil
}

// ReadFile decodes the bundle at path.
func ReadFile(path string) (*Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bundle: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Write encodes b as indented JSON.
func Write(w io.Writer, b *Bundle) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	return nil
}

// WriteFile writes b to path, replacing any existing file.
func WriteFile(path string, b *Bundle) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create bundle: %w", err)
	}
	if err := Write(f, b); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
