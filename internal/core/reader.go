package core

// reader.go turns a CSV file into a lazy sequence of rows.
//
// The file is decoded with the detected encoding. If that fails outright the
// bytes are decoded again as Latin-1, which accepts every byte value. The
// delimiter is sniffed from the start of the decoded text.

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// sniffSampleSize is how many characters the delimiter sniffer looks at.
const sniffSampleSize = 2048

// Delimiters the sniffer chooses between, in tie-break order.
var sniffDelimiters = []rune{',', ';'}

var (
	errInvalidUTF8 = errors.New("invalid UTF-8")
	utf8BOM        = []byte{0xEF, 0xBB, 0xBF}
)

// Row is one CSV record as an ordered mapping of header name to value.
// Blank values are not present.
type Row struct {
	Index int // 1-based position among data rows

	keys   []string
	values map[string]string
}

// NewRow builds a row from ordered header names and values. Names and values
// are trimmed; blank names and blank values are dropped. A repeated name keeps
// its first position and its last value.
func NewRow(index int, names, values []string) Row {
	r := Row{Index: index, values: make(map[string]string, len(names))}
	for i, name := range names {
		if i >= len(values) {
			break
		}
		name = strings.TrimSpace(name)
		value := strings.TrimSpace(values[i])
		if name == "" || value == "" {
			continue
		}
		if _, seen := r.values[name]; !seen {
			r.keys = append(r.keys, name)
		}
		r.values[name] = value
	}
	return r
}

// Get returns the value stored under the exact header name.
func (r Row) Get(name string) (string, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Lookup returns the value of the first alias present in the row.
func (r Row) Lookup(aliases ...string) (string, bool) {
	for _, a := range aliases {
		if v, ok := r.values[a]; ok {
			return v, true
		}
	}
	return "", false
}

// Keys returns the present header names in file order.
func (r Row) Keys() []string {
	return r.keys
}

// Reader loads CSV files for import.
type Reader struct {
	detector *Detector
	logger   *slog.Logger
}

// NewReader creates a reader that logs encoding decisions to logger.
func NewReader(logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{detector: NewDetector(logger), logger: logger}
}

// ReadRows loads path and returns its rows. The file is closed before
// ReadRows returns; the sequence reads from the decoded text and is
// single-pass.
func (r *Reader) ReadRows(path string) (iter.Seq2[Row, error], error) {
	text, err := r.Load(path)
	if err != nil {
		return nil, err
	}
	return Rows(text), nil
}

// Load reads path and decodes it to UTF-8 text.
func (r *Reader) Load(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return r.Decode(data), nil
}

// Decode converts data to UTF-8 using the detected encoding, falling back to
// Latin-1 when decoding fails. A leading byte order mark is dropped.
func (r *Reader) Decode(data []byte) string {
	name := r.detector.Detect(data)
	text, err := decode(data, name)
	if err != nil {
		r.logger.Warn("decoding failed, falling back to latin-1",
			"encoding", name,
			"error", err,
		)
		return decodeLatin1(data)
	}
	return text
}

func decode(data []byte, name string) (string, error) {
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return "", fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	if enc == nil {
		return "", fmt.Errorf("unsupported encoding %q", name)
	}
	if canonical, _ := ianaindex.IANA.Name(enc); canonical == "UTF-8" && !utf8.Valid(data) {
		return "", errInvalidUTF8
	}
	out, _, err := transform.Bytes(unicode.BOMOverride(enc.NewDecoder()), data)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", name, err)
	}
	return string(out), nil
}

func decodeLatin1(data []byte) string {
	data = bytes.TrimPrefix(data, utf8BOM)
	out, _ := charmap.ISO8859_1.NewDecoder().Bytes(data)
	return string(out)
}

// Rows parses text as CSV with a header line and yields one Row per record.
// The delimiter is sniffed from the first sniffSampleSize characters.
func Rows(text string) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		cr := csv.NewReader(strings.NewReader(text))
		cr.Comma = sniffDelimiter(text)
		cr.FieldsPerRecord = -1
		cr.LazyQuotes = true

		header, err := cr.Read()
		if err == io.EOF {
			return
		}
		if err != nil {
			yield(Row{}, fmt.Errorf("invalid csv header: %w", err))
			return
		}

		index := 0
		for {
			record, err := cr.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(Row{}, fmt.Errorf("invalid csv: %w", err))
				return
			}
			index++
			if !yield(NewRow(index, header, record), nil) {
				return
			}
		}
	}
}

// sniffDelimiter picks ',' or ';' by counting each outside quotes on every
// complete record of the sample. A candidate qualifies when its count is the
// same non-zero number on every record. The higher count wins, ties and
// failures go to ','.
func sniffDelimiter(text string) rune {
	sample, complete := sampleRunes(text, sniffSampleSize)

	var records [][]int
	counts := make([]int, len(sniffDelimiters))
	inQuotes := false
	flush := func() {
		records = append(records, counts)
		counts = make([]int, len(sniffDelimiters))
	}
	empty := true
	for _, c := range sample {
		switch {
		case c == '"':
			inQuotes = !inQuotes
			empty = false
		case c == '\n' && !inQuotes:
			if !empty {
				flush()
			}
			empty = true
		case c == '\r' && !inQuotes:
		default:
			empty = false
			if inQuotes {
				continue
			}
			for i, d := range sniffDelimiters {
				if c == d {
					counts[i]++
				}
			}
		}
	}
	if complete && !empty && !inQuotes {
		flush()
	}
	if len(records) == 0 {
		return ','
	}

	best, bestCount := ',', 0
	for i, d := range sniffDelimiters {
		n := records[0][i]
		if n == 0 {
			continue
		}
		consistent := true
		for _, rec := range records[1:] {
			if rec[i] != n {
				consistent = false
				break
			}
		}
		if consistent && n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// sampleRunes returns the first n runes of s and whether that is all of s.
func sampleRunes(s string, n int) (string, bool) {
	count := 0
	for i := range s {
		if count == n {
			return s[:i], false
		}
		count++
	}
	return s, true
}
