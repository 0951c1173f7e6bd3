package preflight

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"eccorun/internal/config"
	"eccorun/internal/shardlock"
	"eccorun/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.jsonl.gz")
	testsupport.WriteInput(t, path, testsupport.Records(3)...)

	result := CheckInput("input", path)
	if !result.Passed || !strings.Contains(result.Detail, "gzip JSONL") {
		t.Fatalf("expected gzip input to pass, got %+v", result)
	}

	if result := CheckInput("input", filepath.Dir(path)); result.Passed {
		t.Fatal("expected failure for directory input")
	}
	if result := CheckInput("input", filepath.Join(t.TempDir(), "missing.gz")); result.Passed {
		t.Fatal("expected failure for missing input")
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if result := CheckFreeSpace("disk", dir, 1); !result.Passed {
		t.Fatalf("expected pass with 1 byte minimum, got %s", result.Detail)
	}
	if result := CheckFreeSpace("disk", dir, ^uint64(0)); result.Passed {
		t.Fatal("expected failure with impossible minimum")
	}
}

func TestCheckShardLock(t *testing.T) {
	dir := t.TempDir()
	if result := CheckShardLock("lock", dir, 2); !result.Passed {
		t.Fatalf("expected free shard, got %s", result.Detail)
	}
	lock, err := shardlock.Acquire(dir, 2)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer lock.Release()
	if result := CheckShardLock("lock", dir, 2); result.Passed {
		t.Fatal("expected failure while shard is locked")
	}
}

func TestCheckLLM(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": "OK"}}},
		})
	}))
	defer srv.Close()

	cfg := config.Default().LLM
	cfg.BaseURL = srv.URL
	if result := CheckLLM(context.Background(), "llm", cfg); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckLLM_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := config.Default().LLM
	cfg.BaseURL = srv.URL
	result := CheckLLM(context.Background(), "llm", cfg)
	if result.Passed {
		t.Fatal("expected failure for 502")
	}
	if !strings.Contains(result.Detail, "502") {
		t.Fatalf("expected status in detail, got %q", result.Detail)
	}
}

func TestRunAllSkipsLLMForEcho(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRecords(testsupport.Records(2)...))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	results := RunAll(context.Background(), cfg)
	for _, r := range results {
		if r.Name == "Correction endpoint" {
			t.Fatal("echo backend must not probe the endpoint")
		}
	}
	if failed := Failed(results); len(failed) != 0 && !(len(failed) == 1 && failed[0].Name == "Output disk space") {
		t.Fatalf("unexpected failures %+v", failed)
	}
}
