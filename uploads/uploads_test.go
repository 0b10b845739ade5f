package uploads

import (
	"io"
	"strings"
	"testing"
)

func TestSave_RoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	saved, err := store.Save("report.pdf", "application/pdf", strings.NewReader("pdf bytes"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if saved.Name != "report.pdf" {
		t.Errorf("Name = %q", saved.Name)
	}
	if !strings.HasSuffix(saved.StoredName, "_report.pdf") {
		t.Errorf("StoredName = %q, want prefixed original name", saved.StoredName)
	}
	if saved.URL != "/uploads/"+saved.StoredName {
		t.Errorf("URL = %q", saved.URL)
	}
	if saved.Size != int64(len("pdf bytes")) {
		t.Errorf("Size = %d", saved.Size)
	}

	f, err := store.Open(saved.StoredName)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "pdf bytes" {
		t.Errorf("stored content = %q", data)
	}
}

func TestSave_CollidingNamesStoredSeparately(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	first, err := store.Save("same.txt", "", strings.NewReader("one"))
	if err != nil {
		t.Fatal(err)
	}
	second, err := store.Save("same.txt", "", strings.NewReader("two"))
	if err != nil {
		t.Fatal(err)
	}

	if first.StoredName == second.StoredName {
		t.Errorf("both uploads stored as %q", first.StoredName)
	}
}

func TestSave_SanitizesPathTraversal(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	saved, err := store.Save("../../etc/passwd", "", strings.NewReader("x"))
	if err != nil {
		t.Fatal(err)
	}
	if saved.Name != "passwd" {
		t.Errorf("Name = %q, want base name only", saved.Name)
	}
	if strings.Contains(saved.StoredName, "/") || strings.Contains(saved.StoredName, "..") {
		t.Errorf("StoredName = %q carries path components", saved.StoredName)
	}
}

func TestSave_EmptyFilename(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	saved, err := store.Save("", "", strings.NewReader("x"))
	if err != nil {
		t.Fatal(err)
	}
	if saved.Name != "file" {
		t.Errorf("Name = %q, want fallback", saved.Name)
	}
}

func TestOpen_TraversalConfined(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := store.Open("../../../etc/passwd"); err == nil {
		t.Error("Open() escaped the upload root")
	}
}
