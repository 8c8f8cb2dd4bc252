package report

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aouyang1/go-seqcast/tensor"
	"github.com/goccy/go-json"
)

// DefaultStorePath is the metrics file used when no path is given
const DefaultStorePath = "performance_metric.plk"

// Store is an append only file of independently encoded records, one JSON object per line.
// Prior records are never rewritten. A single writer is assumed.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	if path == "" {
		path = DefaultStorePath
	}
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

// Append encodes every record and then writes them in order after any existing ones with a
// single write. A record that cannot be encoded leaves the store unchanged.
func (s *Store) Append(records ...Record) (err error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i, r := range records {
		if _, _, err := r.Entry(); err != nil {
			return fmt.Errorf("record %d, %w", i, err)
		}
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("unable to encode record %d, %w", i, err)
		}
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("unable to open metrics store, %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("unable to close metrics store, %w", cerr)
		}
	}()

	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("unable to write records, %w", err)
	}
	return nil
}

// Each decodes records one at a time in write order until the end of the store. A store that
// does not exist yet holds no records.
func (s *Store) Each(fn func(Record) error) error {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("unable to open metrics store, %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	for i := 0; ; i++ {
		var r Record
		if err := dec.Decode(&r); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("unable to read record %d, %w", i, err)
		}
		if err := fn(r); err != nil {
			return err
		}
	}
}

// Records returns every record in write order
func (s *Store) Records() ([]Record, error) {
	var records []Record
	err := s.Each(func(r Record) error {
		records = append(records, r)
		return nil
	})
	return records, err
}

// Save scores the predictions with EvaluateAny and appends the six resulting records
func Save(s *Store, name string, trainTrue *tensor.Dense, trainPred any, testTrue *tensor.Dense, testPred any) error {
	records, err := EvaluateAny(name, trainTrue, trainPred, testTrue, testPred)
	if err != nil {
		return err
	}
	return s.Append(records...)
}
