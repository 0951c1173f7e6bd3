package ledger

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"

	"eccorun/internal/services"
)

// Files keeps one set of append-only logs per attempt in a shared directory.
//
// Per attempt it writes rank_{s}_of_{T}_{job}.completed.jsonl.gz (one gzip
// member per result), .completed.txt and .failed.txt (one url per line).
// Reads match rank_{s}_* so logs left by attempts with a different pool size
// or job id are folded into the shard's state.
type Files struct {
	dir string

	mu      sync.Mutex
	handles map[string]*os.File
}

// NewFiles prepares dir for ledger files.
func NewFiles(dir string) (*Files, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "ledger", "open", "output directory is required", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrLedger, "ledger", "open", dir, err)
	}
	return &Files{dir: dir, handles: make(map[string]*os.File)}, nil
}

// RecordCompleted appends the result, syncs it, then appends url to the
// completion log and syncs that. A crash between the two leaves a result
// without a completion line, and the record is processed again.
func (f *Files) RecordCompleted(ctx context.Context, id AttemptID, url string, result any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkWrite(id, url); err != nil {
		return err
	}
	member, err := encodeMember(result)
	if err != nil {
		return services.Wrap(services.ErrLedger, "ledger", "encode result", url, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.appendLocked(id.ResultsFile(), member); err != nil {
		return err
	}
	return f.appendLocked(id.CompletedFile(), []byte(url+"\n"))
}

// RecordFailed appends url to the failure log and syncs it.
func (f *Files) RecordFailed(ctx context.Context, id AttemptID, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkWrite(id, url); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.appendLocked(id.FailedFile(), []byte(url+"\n"))
}

// CompletedSet scans every completion log of shard.
func (f *Files) CompletedSet(ctx context.Context, shard int) (map[string]struct{}, error) {
	done := make(map[string]struct{})
	err := f.scan(ctx, shard, "completed.txt", func(url string) {
		done[url] = struct{}{}
	})
	if err != nil {
		return nil, err
	}
	return done, nil
}

// FailureCounts scans every failure log of shard.
func (f *Files) FailureCounts(ctx context.Context, shard int) (map[string]int, error) {
	counts := make(map[string]int)
	err := f.scan(ctx, shard, "failed.txt", func(url string) {
		counts[url]++
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// Close releases the append handles.
func (f *Files) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var first error
	for name, handle := range f.handles {
		if err := handle.Close(); err != nil && first == nil {
			first = services.Wrap(services.ErrLedger, "ledger", "close", name, err)
		}
		delete(f.handles, name)
	}
	return first
}

func (f *Files) appendLocked(name string, data []byte) error {
	handle, err := f.handleLocked(name)
	if err != nil {
		return err
	}
	if _, err := handle.Write(data); err != nil {
		return services.Wrap(services.ErrLedger, "ledger", "append", name, err)
	}
	if err := syncData(handle); err != nil {
		return services.Wrap(services.ErrLedger, "ledger", "sync", name, err)
	}
	return nil
}

func (f *Files) handleLocked(name string) (*os.File, error) {
	if handle, ok := f.handles[name]; ok {
		return handle, nil
	}
	path := filepath.Join(f.dir, name)
	handle, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, services.Wrap(services.ErrLedger, "ledger", "open", name, err)
	}
	f.handles[name] = handle
	return handle, nil
}

// Pattern returns the glob matching every log of kind ("completed.txt" or
// "failed.txt") written for shard.
func (f *Files) Pattern(shard int, kind string) string {
	return filepath.Join(f.dir, fmt.Sprintf("rank_%d_*.%s", shard, kind))
}

func (f *Files) scan(ctx context.Context, shard int, kind string, visit func(string)) error {
	paths, err := filepath.Glob(f.Pattern(shard, kind))
	if err != nil {
		return services.Wrap(services.ErrLedger, "ledger", "glob", kind, err)
	}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := scanLines(path, visit); err != nil {
			return services.Wrap(services.ErrLedger, "ledger", "read", filepath.Base(path), err)
		}
	}
	return nil
}

// scanLines visits every non-blank, trimmed line of path. Lines have no
// length limit, and a final line without a newline still counts.
func scanLines(path string, visit func(string)) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return eachLine(bufio.NewReader(file), func(line []byte) {
		if line = bytes.TrimSpace(line); len(line) > 0 {
			visit(string(line))
		}
	})
}

func eachLine(r *bufio.Reader, visit func([]byte)) error {
	for {
		line, err := r.ReadBytes('\n')
		if len(line) > 0 {
			visit(line)
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func encodeMember(result any) ([]byte, error) {
	line, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(append(line, '\n')); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadResults decodes every result document in a .completed.jsonl.gz file.
// A truncated trailing member ends the read with an error after the
// complete members have been returned.
func ReadResults(path string) ([]json.RawMessage, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return nil, err
	}
	defer gz.Close()

	var out []json.RawMessage
	err = eachLine(bufio.NewReader(gz), func(line []byte) {
		if line = bytes.TrimSpace(line); len(line) > 0 {
			out = append(out, json.RawMessage(line))
		}
	})
	return out, err
}
