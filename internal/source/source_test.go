package source_test

import (
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"eccorun/internal/services"
	"eccorun/internal/shard"
	"eccorun/internal/source"
	"eccorun/internal/testsupport"
)

func readAll(t *testing.T, r *source.Reader) []source.Record {
	t.Helper()
	var out []source.Record
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		out = append(out, rec)
	}
}

func TestReaderYieldsOwnedRecordsInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.jsonl.gz")
	testsupport.WriteInput(t, path, testsupport.Records(10)...)

	r, err := source.Open(path, shard.Assignment{Rank: 1, Total: 4})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	got := readAll(t, r)
	var urls []string
	var indexes []int64
	for _, rec := range got {
		urls = append(urls, rec.URL)
		indexes = append(indexes, rec.Index)
	}
	if diff := cmp.Diff([]string{"doc-0001", "doc-0005", "doc-0009"}, urls); diff != "" {
		t.Fatalf("urls mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{1, 5, 9}, indexes); diff != "" {
		t.Fatalf("indexes mismatch (-want +got):\n%s", diff)
	}
	if r.Position() != 10 {
		t.Fatalf("position = %d, want 10", r.Position())
	}
}

func TestShardsPartitionTheInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.jsonl.gz")
	testsupport.WriteInput(t, path, testsupport.Records(23)...)

	seen := make(map[string]int)
	for rank := 0; rank < 5; rank++ {
		r, err := source.Open(path, shard.Assignment{Rank: rank, Total: 5})
		if err != nil {
			t.Fatalf("open rank %d: %v", rank, err)
		}
		for _, rec := range readAll(t, r) {
			seen[rec.URL]++
		}
		_ = r.Close()
	}
	if len(seen) != 23 {
		t.Fatalf("expected 23 distinct urls, got %d", len(seen))
	}
	for url, n := range seen {
		if n != 1 {
			t.Fatalf("%s seen %d times", url, n)
		}
	}
}

func TestMalformedForeignLinesAreNotDecoded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.jsonl.gz")
	testsupport.WriteInput(t, path,
		testsupport.Record{URL: "a", Text: "x"},
		testsupport.Record{Raw: "{not json"},
		testsupport.Record{URL: "c", Text: "z"},
	)

	r, err := source.Open(path, shard.Assignment{Rank: 0, Total: 2})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()
	got := readAll(t, r)
	if len(got) != 2 || got[1].URL != "c" || got[1].Index != 2 {
		t.Fatalf("unexpected records %+v", got)
	}
}

func TestMalformedOwnedLineIsInputError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.jsonl.gz")
	testsupport.WriteInput(t, path,
		testsupport.Record{URL: "a", Text: "x"},
		testsupport.Record{Raw: `{"url": "b"}`},
	)

	r, err := source.Open(path, shard.Assignment{Rank: 0, Total: 1})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()
	if _, err := r.Next(); err != nil {
		t.Fatalf("first record: %v", err)
	}
	_, err = r.Next()
	if !errors.Is(err, services.ErrInput) {
		t.Fatalf("expected input error, got %v", err)
	}
	if !services.IsFatal(err) {
		t.Fatal("input errors must be fatal")
	}
}

func TestPlainJSONLAccepted(t *testing.T) {
	input := `{"url":"u0","text":"zero"}` + "\n" + `{"url":"u1","text":"one"}`
	r, err := source.NewReader(strings.NewReader(input), shard.Assignment{Rank: 1, Total: 2})
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}
	got := readAll(t, r)
	want := []source.Record{{Index: 1, URL: "u1", Text: "one"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := source.Open(filepath.Join(t.TempDir(), "nope.gz"), shard.Assignment{Rank: 0, Total: 1})
	if !errors.Is(err, services.ErrInput) {
		t.Fatalf("expected input error, got %v", err)
	}
}

func TestOpenRejectsInvalidAssignment(t *testing.T) {
	_, err := source.NewReader(strings.NewReader(""), shard.Assignment{Rank: 2, Total: 2})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
