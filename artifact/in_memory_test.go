package artifact

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/hupe1980/freeagent/core"
)

func textExport(sessionID, artifactID, title, content string) core.ExportedArtifact {
	return core.ExportedArtifact{
		SessionID:  sessionID,
		ArtifactID: artifactID,
		Type:       core.ArtifactText,
		Title:      title,
		Data:       []byte(content),
	}
}

func TestInMemoryStore_SaveAndGet(t *testing.T) {
	store := NewInMemoryStore()

	if err := store.Save(textExport("session-1", "artifact-1", "summary", "payload")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	export, err := store.Get("session-1", "artifact-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(export.Data) != "payload" {
		t.Errorf("expected %q, got %q", "payload", string(export.Data))
	}
	if export.Title != "summary" || export.Type != core.ArtifactText {
		t.Errorf("metadata not preserved: %+v", export)
	}
	if export.Exported.IsZero() {
		t.Error("export time was not stamped")
	}
}

func TestInMemoryStore_SaveRequiresIDs(t *testing.T) {
	store := NewInMemoryStore()

	if err := store.Save(textExport("", "artifact-1", "x", "y")); !errors.Is(err, ErrMissingID) {
		t.Errorf("expected ErrMissingID for empty session id, got %v", err)
	}
	if err := store.Save(textExport("session-1", "", "x", "y")); !errors.Is(err, ErrMissingID) {
		t.Errorf("expected ErrMissingID for empty artifact id, got %v", err)
	}
}

func TestInMemoryStore_GetNotFound(t *testing.T) {
	store := NewInMemoryStore()

	if _, err := store.Get("missing", "artifact-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	store.Save(textExport("session-1", "artifact-1", "x", "y"))
	if _, err := store.Get("session-1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestInMemoryStore_CopiesData(t *testing.T) {
	store := NewInMemoryStore()

	export := textExport("session-1", "artifact-1", "report", "original")
	store.Save(export)
	export.Data[0] = 'X'

	got, err := store.Get("session-1", "artifact-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got.Data) != "original" {
		t.Errorf("stored payload was mutated through the input slice: %q", string(got.Data))
	}

	got.Data[0] = 'Y'
	again, _ := store.Get("session-1", "artifact-1")
	if string(again.Data) != "original" {
		t.Errorf("stored payload was mutated through the returned slice: %q", string(again.Data))
	}
}

func TestInMemoryStore_SessionIsolation(t *testing.T) {
	store := NewInMemoryStore()

	store.Save(textExport("session-1", "report", "report", "one"))
	store.Save(textExport("session-2", "report", "report", "two"))

	export, err := store.Get("session-2", "report")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(export.Data) != "two" {
		t.Errorf("expected %q, got %q", "two", string(export.Data))
	}
}

func TestInMemoryStore_ListOmitsPayloads(t *testing.T) {
	store := NewInMemoryStore()

	exports, err := store.List("session-1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(exports) != 0 {
		t.Errorf("expected empty list, got %v", exports)
	}

	store.Save(textExport("session-1", "a", "first", "1"))
	store.Save(textExport("session-1", "b", "second", "2"))

	exports, _ = store.List("session-1")
	if len(exports) != 2 {
		t.Fatalf("expected 2 exports, got %d", len(exports))
	}
	// export order, metadata only
	if exports[0].ArtifactID != "a" || exports[1].ArtifactID != "b" {
		t.Errorf("export order not preserved: %v", exports)
	}
	for _, export := range exports {
		if export.Data != nil {
			t.Errorf("List leaked payload for %s", export.ArtifactID)
		}
		if export.Title == "" {
			t.Errorf("List dropped metadata for %s", export.ArtifactID)
		}
	}
}

func TestInMemoryStore_Delete(t *testing.T) {
	store := NewInMemoryStore()

	store.Save(textExport("session-1", "a", "first", "1"))
	store.Save(textExport("session-1", "b", "second", "2"))

	if err := store.Delete("session-1", "a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete("session-1", "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}

	exports, _ := store.List("session-1")
	if len(exports) != 1 || exports[0].ArtifactID != "b" {
		t.Errorf("expected [b], got %v", exports)
	}
}

func TestInMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewInMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("artifact-%d", n)
			store.Save(textExport("session-1", id, id, "data"))
			store.Get("session-1", id)
			store.List("session-1")
		}(i)
	}
	wg.Wait()

	exports, _ := store.List("session-1")
	if len(exports) != 20 {
		t.Errorf("expected 20 exports, got %d", len(exports))
	}
}
