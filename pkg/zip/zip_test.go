package zip

import (
	stdzip "archive/zip"
	"bytes"
	"io"
	"testing"
)

func TestArchivePreservesEntryOrderAndContent(t *testing.T) {
	entries := []Entry{
		{Name: "scene_1.png", Data: []byte("first")},
		{Name: "scene_2.png", Data: []byte("second")},
	}
	archive, err := Archive(entries)
	if err != nil {
		t.Fatalf("Archive error: %v", err)
	}

	zr, err := stdzip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	if len(zr.File) != 2 {
		t.Fatalf("entry count: got %d want 2", len(zr.File))
	}
	for i, want := range entries {
		file := zr.File[i]
		if file.Name != want.Name {
			t.Fatalf("entry %d name: got %q want %q", i, file.Name, want.Name)
		}
		rc, err := file.Open()
		if err != nil {
			t.Fatalf("open entry %s: %v", file.Name, err)
		}
		data, _ := io.ReadAll(rc)
		_ = rc.Close()
		if string(data) != string(want.Data) {
			t.Fatalf("entry %s content: got %q want %q", file.Name, data, want.Data)
		}
	}
}

func TestArchiveEmpty(t *testing.T) {
	archive, err := Archive(nil)
	if err != nil {
		t.Fatalf("Archive error: %v", err)
	}
	zr, err := stdzip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	if len(zr.File) != 0 {
		t.Fatalf("entry count: got %d want 0", len(zr.File))
	}
}
