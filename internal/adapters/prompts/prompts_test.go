package prompts

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Antoine93/anki-doc-master/internal/core"
)

func writePrompt(t *testing.T, root, rel, text string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(text), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func newRepo(t *testing.T, root string) *Repository {
	t.Helper()
	repo, err := New(root, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSystemPrompt(t *testing.T) {
	root := t.TempDir()
	writePrompt(t, root, "analyst/system.md", "You are the document analyst.\n")
	repo := newRepo(t, root)

	text, err := repo.SystemPrompt("analyst")
	if err != nil {
		t.Fatalf("SystemPrompt: %v", err)
	}
	if text != "You are the document analyst." {
		t.Errorf("unexpected text %q", text)
	}
}

func TestSystemPrompt_SubpathSpecialist(t *testing.T) {
	root := t.TempDir()
	writePrompt(t, root, "generator/basic/system.md", "basic generator")
	repo := newRepo(t, root)

	text, err := repo.SystemPrompt("generator/basic")
	if err != nil {
		t.Fatalf("SystemPrompt: %v", err)
	}
	if text != "basic generator" {
		t.Errorf("unexpected text %q", text)
	}
}

func TestModulePrompt_ModulesDirThenFlatFallback(t *testing.T) {
	root := t.TempDir()
	writePrompt(t, root, "restructurer/modules/themes.md", "from modules dir")
	writePrompt(t, root, "restructurer/vocabulary.md", "flat fallback")
	repo := newRepo(t, root)

	text, err := repo.ModulePrompt("restructurer", "themes")
	if err != nil {
		t.Fatalf("ModulePrompt: %v", err)
	}
	if text != "from modules dir" {
		t.Errorf("unexpected text %q", text)
	}

	text, err = repo.ModulePrompt("restructurer", "vocabulary")
	if err != nil {
		t.Fatalf("ModulePrompt fallback: %v", err)
	}
	if text != "flat fallback" {
		t.Errorf("unexpected text %q", text)
	}
}

func TestModulePrompt_TxtExtension(t *testing.T) {
	root := t.TempDir()
	writePrompt(t, root, "restructurer/modules/code.txt", "txt prompt")
	repo := newRepo(t, root)

	text, err := repo.ModulePrompt("restructurer", "code")
	if err != nil {
		t.Fatalf("ModulePrompt: %v", err)
	}
	if text != "txt prompt" {
		t.Errorf("unexpected text %q", text)
	}
}

func TestMissingPromptIsPromptCategory(t *testing.T) {
	repo := newRepo(t, t.TempDir())

	_, err := repo.SystemPrompt("analyst")
	if !core.IsCategory(err, core.ErrCatPrompt) {
		t.Fatalf("want prompt_missing category, got %v", err)
	}
	_, err = repo.ModulePrompt("analyst", "themes")
	if !core.IsCategory(err, core.ErrCatPrompt) {
		t.Fatalf("want prompt_missing category, got %v", err)
	}
}

func TestEmptyFileTreatedAsMissing(t *testing.T) {
	root := t.TempDir()
	writePrompt(t, root, "analyst/system.md", "  \n\t\n")
	repo := newRepo(t, root)

	_, err := repo.SystemPrompt("analyst")
	if !core.IsCategory(err, core.ErrCatPrompt) {
		t.Fatalf("want prompt_missing category, got %v", err)
	}
}

func TestCacheInvalidationOnEdit(t *testing.T) {
	root := t.TempDir()
	path := writePrompt(t, root, "analyst/system.md", "first version")
	repo := newRepo(t, root)

	if text, err := repo.SystemPrompt("analyst"); err != nil || text != "first version" {
		t.Fatalf("initial read: %q %v", text, err)
	}

	if err := os.WriteFile(path, []byte("second version"), 0o600); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	// the watcher delivers asynchronously
	deadline := time.Now().Add(2 * time.Second)
	for {
		text, err := repo.SystemPrompt("analyst")
		if err != nil {
			t.Fatalf("SystemPrompt: %v", err)
		}
		if text == "second version" {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("cache never invalidated, still %q", text)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
