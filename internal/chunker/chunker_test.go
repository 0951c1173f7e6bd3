package chunker

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSplitPadsAndTrimsFinalChunk(t *testing.T) {
	got, err := Split("a b c d e", 3)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if diff := cmp.Diff([]string{"a b c", "d e"}, got); diff != "" {
		t.Fatalf("unexpected chunks (-want +got):\n%s", diff)
	}
}

func TestSplitNormalizesWhitespace(t *testing.T) {
	text := "  The   quick\n\n\n\n\nbrown    fox  \n"
	got, err := Split(text, 2)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	want := []string{"The quick\n\nbrown", "fox"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected chunks (-want +got):\n%s", diff)
	}
}

func TestSplitEmptyDocumentYieldsOneEmptyChunk(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\n\n\t"} {
		got, err := Split(text, 5)
		if err != nil {
			t.Fatalf("Split(%q): %v", text, err)
		}
		if diff := cmp.Diff([]string{""}, got); diff != "" {
			t.Fatalf("Split(%q) (-want +got):\n%s", text, diff)
		}
	}
}

func TestSplitRejectsNonPositiveLength(t *testing.T) {
	for _, length := range []int{0, -3} {
		if _, err := Split("a b", length); !errors.Is(err, ErrInvalidLength) {
			t.Fatalf("Split length %d: expected ErrInvalidLength, got %v", length, err)
		}
	}
}

func TestSplitCountAndReconstruction(t *testing.T) {
	texts := []string{
		"one",
		"one two three four five six",
		"Lorem ipsum  dolor sit amet,\nconsectetur adipiscing elit, sed do eiusmod tempor",
		strings.Repeat("word ", 1001),
		"para one.\n\n\n\npara two has more words in it than one",
	}
	for _, text := range texts {
		for _, length := range []int{1, 2, 3, 7, 300} {
			chunks, err := Split(text, length)
			if err != nil {
				t.Fatalf("Split: %v", err)
			}
			words := len(Words(text))
			want := (words + length - 1) / length
			if len(chunks) != want {
				t.Fatalf("len(Split(%.20q, %d)) = %d, want ceil(%d/%d) = %d", text, length, len(chunks), words, length, want)
			}
			if len(chunks) == 0 {
				t.Fatalf("Split(%.20q, %d) returned no chunks", text, length)
			}
			nonEmpty := make([]string, 0, len(chunks))
			for _, c := range chunks {
				if c != "" {
					nonEmpty = append(nonEmpty, c)
				}
			}
			if joined := strings.Join(nonEmpty, " "); joined != Normalize(text) {
				t.Fatalf("rejoined chunks %q differ from normalized text %q", joined, Normalize(text))
			}
		}
	}
}

func TestSplitIsDeterministic(t *testing.T) {
	text := "The  ECCO corpus\n\n\n\nhas many ſ characters and OCR n0ise"
	first, err := Split(text, 3)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, _ := Split(text, 3)
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("run %d differs (-first +again):\n%s", i, diff)
		}
	}
}

func TestNormalizeKeepsDoubleNewlines(t *testing.T) {
	if got := Normalize("a\n\nb"); got != "a\n\nb" {
		t.Fatalf("Normalize kept %q", got)
	}
	if got := Normalize("\x1ca  b\x1f"); got != "a b" {
		t.Fatalf("Normalize = %q, want %q", got, "a b")
	}
}
