package search

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kailas-cloud/rankeval/internal/domain"
)

func writeImageFixtures(t *testing.T, payloads map[string][]byte) domain.Items {
	t.Helper()
	dir := t.TempDir()
	var items domain.Items
	for name, data := range payloads {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o600); err != nil {
			t.Fatalf("write fixture: %v", err)
		}
		items = append(items, domain.Item{ID: name, Modality: domain.ModalityImage, ImagePath: path})
	}
	return items
}

func TestLoadImages_OrderAndContent(t *testing.T) {
	items := writeImageFixtures(t, map[string][]byte{
		"a.png": []byte("aaa"),
		"b.png": []byte("bbb"),
		"c.png": []byte("ccc"),
	})

	images, err := loadImages(context.Background(), items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(images) != len(items) {
		t.Fatalf("expected %d images, got %d", len(items), len(images))
	}
	for i, img := range images {
		if img.Path != items[i].ImagePath {
			t.Errorf("image %d: path %q out of order, want %q", i, img.Path, items[i].ImagePath)
		}
		want := []byte(items[i].ID[:1] + items[i].ID[:1] + items[i].ID[:1])
		if !bytes.Equal(img.Data, want) {
			t.Errorf("image %d: data %q, want %q", i, img.Data, want)
		}
	}
}

func TestLoadImages_MissingFile(t *testing.T) {
	items := domain.Items{{ID: "x", Modality: domain.ModalityImage, ImagePath: "/nonexistent/x.png"}}
	if _, err := loadImages(context.Background(), items); err == nil {
		t.Fatal("expected error for missing image file")
	}
}
