package core

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/JonMunkholm/collector/internal/logging"
)

// ============================================================================
// Normalization Benchmarks
// ============================================================================

// BenchmarkParseList benchmarks list cell parsing across every accepted form.
// Runs for each list column of every imported row.
func BenchmarkParseList(b *testing.B) {
	testCases := []string{
		`["Fire","Water"]`,
		"Fire|Water|Grass",
		"Fire, Water",
		"Colorless",
		`[{"type":"Water","value":"x2"}]`,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			ParseList(tc)
		}
	}
}

// BenchmarkCanonicalList_Pipe benchmarks the most common CSV list form.
func BenchmarkCanonicalList_Pipe(b *testing.B) {
	for i := 0; i < b.N; i++ {
		CanonicalList("Fire|Water|Lightning")
	}
}

// BenchmarkParseAttacks benchmarks grouping attacks_<i>_<attr> columns.
func BenchmarkParseAttacks(b *testing.B) {
	var names, values []string
	for i := range 4 {
		for _, attr := range []string{"name", "cost", "damage", "text"} {
			names = append(names, fmt.Sprintf("attacks_%d_%s", i, attr))
			values = append(values, fmt.Sprintf("%s %d", attr, i))
		}
	}
	row := NewRow(1, names, values)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ParseAttacks(row)
	}
}

// ============================================================================
// Reader Benchmarks
// ============================================================================

// BenchmarkSniffDelimiter benchmarks delimiter detection on a full sample.
func BenchmarkSniffDelimiter(b *testing.B) {
	text := string(generateTestCSV(200, ';'))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sniffDelimiter(text)
	}
}

// BenchmarkRows benchmarks CSV parsing into rows.
func BenchmarkRows(b *testing.B) {
	text := string(generateTestCSV(1000, ','))

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		for _, err := range Rows(text) {
			if err != nil {
				b.Fatal(err)
			}
		}
	}
}

// BenchmarkDecode_Latin1 benchmarks the detection and decode path for a
// non-UTF-8 file.
func BenchmarkDecode_Latin1(b *testing.B) {
	data := bytes.ReplaceAll(generateTestCSV(500, ','), []byte("Pokemon"), []byte("Pok\xe9mon"))
	r := NewReader(logging.Discard())

	b.ResetTimer()
	b.SetBytes(int64(len(data)))
	for i := 0; i < b.N; i++ {
		r.Decode(data)
	}
}

// ============================================================================
// End-to-end Benchmarks
// ============================================================================

// BenchmarkImportFile benchmarks a full re-import against SQLite, where
// every row is an update.
func BenchmarkImportFile(b *testing.B) {
	dir := b.TempDir()
	path := filepath.Join(dir, "cards.csv")
	if err := os.WriteFile(path, generateTestCSV(500, ','), 0o600); err != nil {
		b.Fatal(err)
	}
	st := openTestStore(b)
	im := NewImporter(st, nil, logging.Discard())
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := im.ImportFile(ctx, path); err != nil {
			b.Fatal(err)
		}
	}
}

// generateTestCSV creates a card CSV with the given number of rows.
func generateTestCSV(rows int, sep byte) []byte {
	var buf bytes.Buffer
	header := []string{"set_id", "number", "name", "hp", "types", "weaknesses", "attacks_0_name", "attacks_0_cost", "attacks_0_damage"}
	for i, h := range header {
		if i > 0 {
			buf.WriteByte(sep)
		}
		buf.WriteString(h)
	}
	buf.WriteByte('\n')
	for i := range rows {
		fields := []string{
			"sv1", fmt.Sprint(i + 1), fmt.Sprintf("Pokemon %d", i), "70",
			"Fire|Water", `"[""Water""]"`, "Scratch", "Colorless|Colorless", "20",
		}
		for j, f := range fields {
			if j > 0 {
				buf.WriteByte(sep)
			}
			buf.WriteString(f)
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}
