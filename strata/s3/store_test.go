package s3

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/justapithecus/strata/strata"
)

// -----------------------------------------------------------------------------
// Unit tests for S3 store
// These use the mock client and don't require real S3/LocalStack/MinIO.
// -----------------------------------------------------------------------------

func TestNew_RequiresClient(t *testing.T) {
	_, err := New(nil, Config{Bucket: "test"})
	if err == nil {
		t.Error("expected error for nil client")
	}
}

func TestNew_RequiresBucket(t *testing.T) {
	_, err := New(NewMockS3Client(), Config{})
	if err == nil {
		t.Error("expected error for empty bucket")
	}
}

func TestNew_PrefixNormalization(t *testing.T) {
	tests := []struct {
		prefix   string
		expected string
	}{
		{"", ""},
		{"foo", "foo/"},
		{"foo/", "foo/"},
		{"foo/bar", "foo/bar/"},
		{"foo/bar/", "foo/bar/"},
	}

	for _, tt := range tests {
		store, err := New(NewMockS3Client(), Config{Bucket: "test", Prefix: tt.prefix})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		if store.prefix != tt.expected {
			t.Errorf("prefix %q: expected %q, got %q", tt.prefix, tt.expected, store.prefix)
		}
	}
}

// -----------------------------------------------------------------------------
// Get tests
// -----------------------------------------------------------------------------

func TestStore_Get_Success(t *testing.T) {
	ctx := context.Background()
	client := NewMockS3Client()
	client.Seed("table/_delta_log/00000000000000000000.json", []byte("hello"))
	store, _ := New(client, Config{Bucket: "test"})

	data, err := store.Get(ctx, "table/_delta_log/00000000000000000000.json")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("expected %q, got %q", "hello", data)
	}
}

func TestStore_Get_NotFound(t *testing.T) {
	ctx := context.Background()
	store, _ := New(NewMockS3Client(), Config{Bucket: "test"})

	_, err := store.Get(ctx, "missing.json")
	if !errors.Is(err, strata.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestStore_Get_AppliesPrefix(t *testing.T) {
	ctx := context.Background()
	client := NewMockS3Client()
	client.Seed("lake/table/file.json", []byte("data"))
	store, _ := New(client, Config{Bucket: "test", Prefix: "lake"})

	data, err := store.Get(ctx, "table/file.json")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(data) != "data" {
		t.Errorf("expected %q, got %q", "data", data)
	}
}

func TestStore_Get_RejectsInvalidKeys(t *testing.T) {
	ctx := context.Background()
	store, _ := New(NewMockS3Client(), Config{Bucket: "test"})

	for _, key := range []string{"", "/absolute", "a/../b"} {
		if _, err := store.Get(ctx, key); err == nil {
			t.Errorf("key %q: expected error", key)
		}
	}
}

// -----------------------------------------------------------------------------
// ReadRange tests
// -----------------------------------------------------------------------------

func TestStore_ReadRange_Success(t *testing.T) {
	ctx := context.Background()
	client := NewMockS3Client()
	client.Seed("file.bin", []byte("0123456789"))
	store, _ := New(client, Config{Bucket: "test"})

	data, err := store.ReadRange(ctx, "file.bin", 2, 4)
	if err != nil {
		t.Fatalf("ReadRange failed: %v", err)
	}
	if string(data) != "2345" {
		t.Errorf("expected %q, got %q", "2345", data)
	}
}

func TestStore_ReadRange_TruncatesAtEOF(t *testing.T) {
	ctx := context.Background()
	client := NewMockS3Client()
	client.Seed("file.bin", []byte("0123456789"))
	store, _ := New(client, Config{Bucket: "test"})

	data, err := store.ReadRange(ctx, "file.bin", 8, 100)
	if err != nil {
		t.Fatalf("ReadRange failed: %v", err)
	}
	if string(data) != "89" {
		t.Errorf("expected %q, got %q", "89", data)
	}
}

func TestStore_ReadRange_BeyondEOF(t *testing.T) {
	ctx := context.Background()
	client := NewMockS3Client()
	client.Seed("file.bin", []byte("0123456789"))
	store, _ := New(client, Config{Bucket: "test"})

	data, err := store.ReadRange(ctx, "file.bin", 50, 10)
	if err != nil {
		t.Fatalf("ReadRange failed: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("expected empty result, got %d bytes", len(data))
	}
}

func TestStore_ReadRange_ZeroLength(t *testing.T) {
	ctx := context.Background()
	client := NewMockS3Client()
	client.Seed("file.bin", []byte("0123456789"))
	store, _ := New(client, Config{Bucket: "test"})

	data, err := store.ReadRange(ctx, "file.bin", 3, 0)
	if err != nil {
		t.Fatalf("ReadRange failed: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("expected empty result, got %d bytes", len(data))
	}
}

func TestStore_ReadRange_ZeroLength_NotFound(t *testing.T) {
	ctx := context.Background()
	store, _ := New(NewMockS3Client(), Config{Bucket: "test"})

	_, err := store.ReadRange(ctx, "missing.bin", 0, 0)
	if !errors.Is(err, strata.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestStore_ReadRange_NegativeRange(t *testing.T) {
	ctx := context.Background()
	store, _ := New(NewMockS3Client(), Config{Bucket: "test"})

	if _, err := store.ReadRange(ctx, "file.bin", -1, 4); err == nil {
		t.Error("expected error for negative offset")
	}
	if _, err := store.ReadRange(ctx, "file.bin", 0, -4); err == nil {
		t.Error("expected error for negative length")
	}
}

// -----------------------------------------------------------------------------
// Stat tests
// -----------------------------------------------------------------------------

func TestStore_Stat_Success(t *testing.T) {
	ctx := context.Background()
	client := NewMockS3Client()
	client.Seed("file.bin", bytes.Repeat([]byte{0xAB}, 1234))
	store, _ := New(client, Config{Bucket: "test"})

	size, err := store.Stat(ctx, "file.bin")
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if size != 1234 {
		t.Errorf("expected size 1234, got %d", size)
	}
}

func TestStore_Stat_NotFound(t *testing.T) {
	ctx := context.Background()
	store, _ := New(NewMockS3Client(), Config{Bucket: "test"})

	_, err := store.Stat(ctx, "missing.bin")
	if !errors.Is(err, strata.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

// -----------------------------------------------------------------------------
// List tests
// -----------------------------------------------------------------------------

func TestStore_List_FiltersByPrefix(t *testing.T) {
	ctx := context.Background()
	client := NewMockS3Client()
	client.Seed("table/_delta_log/00000000000000000000.json", []byte("a"))
	client.Seed("table/_delta_log/00000000000000000001.json", []byte("b"))
	client.Seed("table/part-0.parquet", []byte("c"))
	store, _ := New(client, Config{Bucket: "test"})

	paths, err := store.List(ctx, "table/_delta_log/")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	sort.Strings(paths)

	want := []string{
		"table/_delta_log/00000000000000000000.json",
		"table/_delta_log/00000000000000000001.json",
	}
	if len(paths) != len(want) {
		t.Fatalf("expected %d paths, got %d: %v", len(want), len(paths), paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("path %d: expected %q, got %q", i, want[i], paths[i])
		}
	}
}

func TestStore_List_Paginates(t *testing.T) {
	ctx := context.Background()
	client := NewMockS3Client()
	client.PageSize = 2
	for _, key := range []string{"log/a", "log/b", "log/c", "log/d", "log/e"} {
		client.Seed(key, []byte("x"))
	}
	store, _ := New(client, Config{Bucket: "test"})

	paths, err := store.List(ctx, "log/")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(paths) != 5 {
		t.Errorf("expected 5 paths across pages, got %d: %v", len(paths), paths)
	}
}

func TestStore_List_StripsStorePrefix(t *testing.T) {
	ctx := context.Background()
	client := NewMockS3Client()
	client.Seed("lake/table/_delta_log/00000000000000000000.json", []byte("a"))
	store, _ := New(client, Config{Bucket: "test", Prefix: "lake"})

	paths, err := store.List(ctx, "table/_delta_log/")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(paths) != 1 || paths[0] != "table/_delta_log/00000000000000000000.json" {
		t.Errorf("expected store-relative path, got %v", paths)
	}
}

func TestStore_List_EmptyPrefix(t *testing.T) {
	ctx := context.Background()
	store, _ := New(NewMockS3Client(), Config{Bucket: "test"})

	paths, err := store.List(ctx, "nothing/")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(paths) != 0 {
		t.Errorf("expected no paths, got %v", paths)
	}
}
