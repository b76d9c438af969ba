package recipe

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	rgerrors "github.com/matzehuels/recipegraph/pkg/errors"
)

// Format identifies a record file encoding.
type Format string

// Supported record formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatText Format = "text"
)

// FormatFromPath infers the record format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".csv", ".txt":
		return FormatText, nil
	default:
		return "", rgerrors.New(rgerrors.ErrCodeInvalidFormat, "unsupported record file %q (want .json, .yaml, .yml, .csv or .txt)", path)
	}
}

// Read decodes records from r. For JSON and YAML, records are returned as
// written and validated later by the graph builder; for raw text, lines that
// fail to parse are returned in skipped.
func Read(r io.Reader, f Format) (records []Record, skipped []error, err error) {
	switch f {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&records); err != nil {
			return nil, nil, rgerrors.Wrap(rgerrors.ErrCodeInvalidFormat, err, "decode json records")
		}
		return records, nil, nil
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&records); err != nil && err != io.EOF {
			return nil, nil, rgerrors.Wrap(rgerrors.ErrCodeInvalidFormat, err, "decode yaml records")
		}
		return records, nil, nil
	case FormatText:
		return ParseText(r)
	default:
		return nil, nil, rgerrors.New(rgerrors.ErrCodeInvalidFormat, "unknown format %q", f)
	}
}

// ReadFile reads the records stored at path, choosing the decoder from the
// file extension.
func ReadFile(path string) ([]Record, []error, error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return nil, nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, rgerrors.Resource(err, "open %s", path)
	}
	defer file.Close()

	records, skipped, err := Read(file, f)
	if err != nil {
		return nil, skipped, fmt.Errorf("%s: %w", path, err)
	}
	return records, skipped, nil
}

// ReadFiles reads every path in order and concatenates the records. Reading
// stops at the first file that cannot be read.
func ReadFiles(paths ...string) ([]Record, []error, error) {
	var all []Record
	var skipped []error
	for _, p := range paths {
		records, s, err := ReadFile(p)
		skipped = append(skipped, s...)
		if err != nil {
			return nil, skipped, err
		}
		all = append(all, records...)
	}
	return all, skipped, nil
}

// Write encodes records to w. Raw text output uses [FormatLine].
func Write(w io.Writer, f Format, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(records); err != nil {
			return fmt.Errorf("encode: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(records); err != nil {
			return fmt.Errorf("encode: %w", err)
		}
		return enc.Close()
	case FormatText:
		for _, rec := range records {
			if _, err := fmt.Fprintln(w, FormatLine(rec)); err != nil {
				return err
			}
		}
		return nil
	default:
		return rgerrors.New(rgerrors.ErrCodeInvalidFormat, "unknown format %q", f)
	}
}

// WriteFile writes records to path, choosing the encoder from the file
// extension. The file is created with 0644 permissions.
func WriteFile(path string, records []Record) error {
	f, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return rgerrors.Resource(err, "create %s", path)
	}
	if err := Write(file, f, records); err != nil {
		file.Close()
		return rgerrors.Resource(err, "write %s", path)
	}
	return rgerrors.Resource(file.Close(), "close %s", path)
}
