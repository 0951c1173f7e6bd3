package testsupport

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
)

// Record is one input line for fixtures. Raw, when set, is written verbatim
// instead of the encoded URL and Text.
type Record struct {
	URL  string `json:"url"`
	Text string `json:"text"`
	Raw  string `json:"-"`
}

// Records builds n records with predictable urls and texts.
func Records(n int) []Record {
	out := make([]Record, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Record{
			URL:  fmt.Sprintf("doc-%04d", i),
			Text: fmt.Sprintf("Tbe qu1ck brown fox %d jumps ovcr the lazy dog", i),
		})
	}
	return out
}

// WriteInput writes records as gzip-compressed JSON lines.
func WriteInput(t testing.TB, path string, records ...Record) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	for _, rec := range records {
		line := []byte(rec.Raw)
		if rec.Raw == "" {
			line, err = json.Marshal(rec)
			if err != nil {
				t.Fatalf("encode %s: %v", rec.URL, err)
			}
		}
		line = append(line, '\n')
		if _, err := gz.Write(line); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close gzip %s: %v", path, err)
	}
}

// WriteLines writes plain text lines, creating parent directories.
func WriteLines(t testing.TB, path string, lines ...string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	var data []byte
	for _, line := range lines {
		data = append(data, line...)
		data = append(data, '\n')
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
