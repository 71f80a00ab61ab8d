package localfs

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestSaveOpenRemove(t *testing.T) {
	storage, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	if err := storage.Save(ctx, "doc-1.txt", strings.NewReader("resume text")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reader, err := storage.Open(ctx, "doc-1.txt")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	raw, err := io.ReadAll(reader)
	reader.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(raw) != "resume text" {
		t.Errorf("content = %q", raw)
	}

	if err := storage.Remove(ctx, "doc-1.txt"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := storage.Open(ctx, "doc-1.txt"); err == nil {
		t.Error("Open succeeded after Remove")
	}
}

func TestRemoveMissingIsNoop(t *testing.T) {
	storage, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := storage.Remove(context.Background(), "never-saved.txt"); err != nil {
		t.Errorf("Remove of missing key: %v", err)
	}
}
