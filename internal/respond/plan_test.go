package respond

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/albertbausili/dropgate/internal/resolve"
)

func TestFile_SetsContentTypeAndLength(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	if err := os.WriteFile(path, []byte("<html></html>"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	res := resolve.New(dir).Resolve("/page.html")
	if res.Kind != resolve.KindFile {
		t.Fatalf("expected KindFile, got %v", res.Kind)
	}

	plan, err := File(DefaultMIMETypes{}, res, ".html", false)
	if err != nil {
		t.Fatalf("File() error = %v", err)
	}
	if plan.Status != 200 {
		t.Errorf("expected status 200, got %d", plan.Status)
	}
	if ct := headerValue(plan, "Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("expected text/html content type, got %q", ct)
	}
	if cl := headerValue(plan, "Content-Length"); cl != "13" {
		t.Errorf("expected Content-Length 13, got %q", cl)
	}
	if plan.Body.Kind != BodyFile {
		t.Errorf("expected BodyFile, got %v", plan.Body.Kind)
	}
	_ = plan.Body.File.Close()
}

func TestFile_HeadOnlyOmitsBody(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	res := resolve.New(dir).Resolve("/page.txt")

	plan, err := File(DefaultMIMETypes{}, res, ".txt", true)
	if err != nil {
		t.Fatalf("File() error = %v", err)
	}
	if plan.Body.Kind != BodyNone {
		t.Errorf("expected BodyNone for HEAD, got %v", plan.Body.Kind)
	}
}

func TestDirectory_RendersUploadFormWhenEnabled(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), nil, 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	res := resolve.New(dir).Resolve("/")

	plan, err := Directory("/", res, true, false)
	if err != nil {
		t.Fatalf("Directory() error = %v", err)
	}
	if !strings.Contains(string(plan.Body.DirHTML), `enctype="multipart/form-data"`) {
		t.Error("expected upload form markup when uploads are enabled")
	}
}

func TestDirectory_NoUploadFormWhenDisabled(t *testing.T) {
	dir := t.TempDir()
	res := resolve.New(dir).Resolve("/")

	plan, err := Directory("/", res, false, false)
	if err != nil {
		t.Fatalf("Directory() error = %v", err)
	}
	if strings.Contains(string(plan.Body.DirHTML), "<form") {
		t.Error("expected no upload form when uploads are disabled")
	}
}

func TestError_BuildsStatusPage(t *testing.T) {
	plan := Error(404)
	if plan.Status != 404 {
		t.Errorf("expected status 404, got %d", plan.Status)
	}
	if !strings.Contains(string(plan.Body.Bytes), "404") {
		t.Error("expected body to mention 404")
	}
}

func TestMethodNotAllowed_SetsAllowHeader(t *testing.T) {
	plan := MethodNotAllowed()
	if plan.Status != 405 {
		t.Errorf("expected status 405, got %d", plan.Status)
	}
	if headerValue(plan, "Allow") != "GET, HEAD" {
		t.Errorf("expected Allow header 'GET, HEAD', got %q", headerValue(plan, "Allow"))
	}
}

func headerValue(p Plan, name string) string {
	for _, h := range p.Header {
		if h[0] == name {
			return h[1]
		}
	}
	return ""
}
