package nbi

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// DefaultEncoding is the character set assumed for NBI delimited files.
const DefaultEncoding = "latin1"

// SchemaError reports required columns missing from a raw file.
type SchemaError struct {
	Path    string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("nbi: %s is missing required columns: %s", e.Path, strings.Join(e.Missing, ", "))
}

// ReadOptions configures ReadRaw.
type ReadOptions struct {
	Encoding string // WHATWG encoding label; "" = DefaultEncoding
}

// ReadRaw decodes every row of an NBI delimited file.
func ReadRaw(ctx context.Context, path string, opts ReadOptions) ([]RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "nbi: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	return DecodeRaw(ctx, f, path, opts)
}

// DecodeRaw decodes NBI rows from r. name is used in errors.
func DecodeRaw(ctx context.Context, r io.Reader, name string, opts ReadOptions) ([]RawRecord, error) {
	charset := opts.Encoding
	if charset == "" {
		charset = DefaultEncoding
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, eris.Wrapf(err, "nbi: unsupported encoding %q", charset)
	}

	reader := csv.NewReader(enc.NewDecoder().Reader(r))
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &SchemaError{Path: name, Missing: RequiredColumns()}
	}
	if err != nil {
		return nil, eris.Wrapf(err, "nbi: read header of %s", name)
	}
	for i := range header {
		header[i] = normalizeColumn(header[i])
	}

	if missing := missingColumns(header); len(missing) > 0 {
		return nil, &SchemaError{Path: name, Missing: missing}
	}

	dec, err := csvutil.NewDecoder(reader, header...)
	if err != nil {
		return nil, eris.Wrapf(err, "nbi: create decoder for %s", name)
	}

	var records []RawRecord
	for {
		if len(records)%transformChunkSize == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		var rec RawRecord
		if err := dec.Decode(&rec); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrapf(err, "nbi: decode %s row %d", name, len(records)+2)
		}
		records = append(records, rec)
	}
	return records, nil
}

// normalizeColumn strips a byte-order mark, quotes and whitespace, and
// upper-cases the name.
func normalizeColumn(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.TrimPrefix(s, "\u00ef\u00bb\u00bf") // UTF-8 BOM read as Latin-1
	return strings.ToUpper(unquote(s))
}

func missingColumns(header []string) []string {
	have := make(map[string]bool, len(header))
	for _, h := range header {
		have[h] = true
	}
	var missing []string
	for _, c := range RequiredColumns() {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	return missing
}
