package assets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newManager(t *testing.T, dir string) *AssetManager {
	t.Helper()
	am, err := NewAssetManager()
	if err != nil {
		t.Fatal(err)
	}
	if err := am.Initialize(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { am.Close() })
	return am
}

// eventually polls cond until it holds or the watcher had ample time.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestDetermineAssetType(t *testing.T) {
	tests := map[string]ResourceType{
		"shaders/mesh.vert":     ResourceTypeShader,
		"shaders/mesh.frag":     ResourceTypeShader,
		"shaders/mesh.frag.spv": ResourceTypeSpirv,
		"scenes/cube.gltf":      ResourceTypeScene,
		"scenes/cube.GLB":       ResourceTypeScene,
		"textures/albedo.png":   ResourceTypeImage,
		"textures/albedo.webp":  ResourceTypeImage,
		"README.md":             ResourceTypeNone,
	}
	for path, want := range tests {
		if got := determineAssetType(path); got != want {
			t.Errorf("determineAssetType(%s) = %s, want %s", path, got, want)
		}
	}
}

func TestInitializeIndexesRecursively(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "shaders", "mesh.vert"), "#version 460\n")
	writeFile(t, filepath.Join(dir, "shaders", "mesh.frag"), "#version 460\n")
	writeFile(t, filepath.Join(dir, "scenes", "deep", "cube.gltf"), "{}")
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")

	am := newManager(t, dir)
	if am.Len() != 3 {
		t.Fatalf("indexed %d assets", am.Len())
	}
	info, err := am.Resolve("scenes/deep/cube.gltf")
	if err != nil {
		t.Fatal(err)
	}
	if info.Type != ResourceTypeScene || info.Path != filepath.Join(dir, "scenes", "deep", "cube.gltf") {
		t.Fatalf("info %+v", info)
	}
	if _, err := am.Resolve("./shaders/../shaders/mesh.vert"); err != nil {
		t.Fatalf("uncleaned name: %v", err)
	}
	if _, err := am.Resolve("notes.txt"); !errors.Is(err, ErrAssetNotFound) {
		t.Fatalf("err = %v", err)
	}

	shaders := am.Assets(ResourceTypeShader)
	if len(shaders) != 2 || shaders[0].Name != "shaders/mesh.frag" || shaders[1].Name != "shaders/mesh.vert" {
		t.Fatalf("shaders %+v", shaders)
	}
}

func TestInitializeRejectsMissingDir(t *testing.T) {
	am, err := NewAssetManager()
	if err != nil {
		t.Fatal(err)
	}
	defer am.Close()
	if err := am.Initialize(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error")
	}
}

func TestWatcherTracksChanges(t *testing.T) {
	dir := t.TempDir()
	am := newManager(t, dir)

	writeFile(t, filepath.Join(dir, "textures", "albedo.png"), "png")
	eventually(t, "new file in new directory", func() bool {
		_, err := am.Resolve("textures/albedo.png")
		return err == nil
	})

	if err := os.RemoveAll(filepath.Join(dir, "textures")); err != nil {
		t.Fatal(err)
	}
	eventually(t, "removal", func() bool {
		_, err := am.Resolve("textures/albedo.png")
		return errors.Is(err, ErrAssetNotFound)
	})
}

func TestCompileAndLoadCheckTypes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "scenes", "cube.gltf"), "{}")
	writeFile(t, filepath.Join(dir, "shaders", "mesh.vert"), "#version 460\n")
	am := newManager(t, dir)
	ctx := context.Background()

	if _, err := am.Compile(ctx, "scenes/cube.gltf", metadata.ShaderStageVertex); err == nil {
		t.Fatal("compiled a scene")
	}
	if _, err := am.Compile(ctx, "shaders/missing.vert", metadata.ShaderStageVertex); !errors.Is(err, ErrAssetNotFound) {
		t.Fatalf("err = %v", err)
	}
	if _, err := am.LoadScene(ctx, "shaders/mesh.vert"); err == nil {
		t.Fatal("loaded a shader as a scene")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	am, err := NewAssetManager()
	if err != nil {
		t.Fatal(err)
	}
	if err := am.Close(); err != nil {
		t.Fatal(err)
	}
	if err := am.Close(); err != nil {
		t.Fatal(err)
	}
}
