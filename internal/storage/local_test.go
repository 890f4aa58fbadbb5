package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestLocalSaveListOpenRemove(t *testing.T) {
	ctx := context.Background()
	local := NewLocal(t.TempDir())

	if err := local.Save(ctx, "alice", "notes.txt", strings.NewReader("hello"), 5); err != nil {
		t.Fatalf("save: %v", err)
	}

	names, err := local.List(ctx, "alice")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(names) != 1 || names[0] != "notes.txt" {
		t.Fatalf("unexpected listing: %v", names)
	}

	rc, err := local.Open(ctx, "alice", "notes.txt")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("unexpected content: %q", data)
	}

	removed, err := local.Remove(ctx, "alice", "notes.txt")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !removed {
		t.Fatalf("expected removal of existing file")
	}

	names, err = local.List(ctx, "alice")
	if err != nil {
		t.Fatalf("list after remove: %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("expected empty listing, got %v", names)
	}
}

func TestLocalListMissingNamespace(t *testing.T) {
	local := NewLocal(t.TempDir())
	names, err := local.List(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("expected empty listing, got %v", names)
	}
}

func TestLocalOverwritesSameName(t *testing.T) {
	ctx := context.Background()
	local := NewLocal(t.TempDir())

	if err := local.Save(ctx, "alice", "doc.txt", strings.NewReader("first"), 5); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := local.Save(ctx, "alice", "doc.txt", strings.NewReader("second"), 6); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	rc, err := local.Open(ctx, "alice", "doc.txt")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "second" {
		t.Fatalf("expected last write to win, got %q", data)
	}
}

func TestLocalConfinesToOwnNamespace(t *testing.T) {
	ctx := context.Background()
	local := NewLocal(t.TempDir())

	if err := local.Save(ctx, "bob", "secret.txt", bytes.NewReader([]byte("bob's")), 5); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Alice must not reach Bob's file, with or without traversal tricks.
	if _, err := local.Open(ctx, "alice", "secret.txt"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := local.Open(ctx, "alice", "../bob/secret.txt"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for traversal, got %v", err)
	}

	removed, err := local.Remove(ctx, "alice", "../bob/secret.txt")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if removed {
		t.Fatalf("traversal removal must not succeed")
	}

	if _, err := local.Open(ctx, "bob", "secret.txt"); err != nil {
		t.Fatalf("bob's file should be untouched: %v", err)
	}
}
