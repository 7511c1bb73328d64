package resolve

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "hello.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	if err := os.Mkdir(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatalf("seed dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "sub", "nested.txt"), []byte("nested"), 0o644); err != nil {
		t.Fatalf("seed nested file: %v", err)
	}
	return root
}

func TestResolve_File(t *testing.T) {
	root := newTestRoot(t)
	r := New(root)

	res := r.Resolve("/hello.txt")
	if res.Kind != KindFile {
		t.Fatalf("expected KindFile, got %v", res.Kind)
	}
	if res.Size != 2 {
		t.Errorf("expected size 2, got %d", res.Size)
	}
}

func TestResolve_Directory(t *testing.T) {
	root := newTestRoot(t)
	r := New(root)

	res := r.Resolve("/sub")
	if res.Kind != KindDir {
		t.Fatalf("expected KindDir, got %v", res.Kind)
	}
	if len(res.Entries) != 1 || res.Entries[0].Name != "nested.txt" {
		t.Errorf("unexpected entries: %+v", res.Entries)
	}
}

func TestResolve_NotFound(t *testing.T) {
	root := newTestRoot(t)
	r := New(root)

	res := r.Resolve("/does-not-exist")
	if res.Kind != KindNotFound {
		t.Fatalf("expected KindNotFound, got %v", res.Kind)
	}
}

func TestResolve_RejectsDotDotEscape(t *testing.T) {
	root := newTestRoot(t)
	r := New(root)

	res := r.Resolve("/../../etc/passwd")
	if res.Kind != KindForbidden {
		t.Fatalf("expected KindForbidden, got %v", res.Kind)
	}
}

func TestResolve_DirsSortedFirst(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"zeta.txt", "Alpha.txt"} {
		if err := os.WriteFile(filepath.Join(root, name), nil, 0o644); err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(root, "omega"), 0o755); err != nil {
		t.Fatalf("seed dir: %v", err)
	}
	r := New(root)
	res := r.Resolve("/")
	if res.Kind != KindDir {
		t.Fatalf("expected KindDir, got %v", res.Kind)
	}
	if len(res.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(res.Entries))
	}
	if !res.Entries[0].IsDir {
		t.Errorf("expected first entry to be the directory, got %+v", res.Entries[0])
	}
	if res.Entries[1].Name != "Alpha.txt" || res.Entries[2].Name != "zeta.txt" {
		t.Errorf("expected case-insensitive order Alpha.txt, zeta.txt; got %q, %q",
			res.Entries[1].Name, res.Entries[2].Name)
	}
}

func TestResolveUploadTarget_RequiresDirectory(t *testing.T) {
	root := newTestRoot(t)
	r := New(root)

	res := r.ResolveUploadTarget("/hello.txt")
	if res.Kind != KindFile {
		t.Fatalf("expected KindFile for the file itself, got %v", res.Kind)
	}
	// The session layer is responsible for rejecting non-KindDir upload
	// targets with 400; ResolveUploadTarget only resolves.
}
