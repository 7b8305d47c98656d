package assets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/ember/engine/assets/loaders"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

var ErrAssetNotFound = errors.New("asset not found")

type AssetInfo struct {
	// Slash separated, relative to the assets directory.
	Name     string
	Path     string
	Type     ResourceType
	Modified time.Time
}

// AssetManager indexes an assets directory and keeps the index current as
// files come and go. Assets are addressed by their path relative to the
// directory.
type AssetManager struct {
	root    string
	assets  map[string]AssetInfo
	loaders map[ResourceType]Loader
	glslc   *loaders.GlslcCompiler

	mutex sync.RWMutex

	fsnotify  *fsnotify.Watcher
	watching  bool
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

var _ renderer.ShaderCompiler = (*AssetManager)(nil)

func NewAssetManager() (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	am := &AssetManager{
		assets:   make(map[string]AssetInfo),
		loaders:  make(map[ResourceType]Loader),
		glslc:    &loaders.GlslcCompiler{},
		fsnotify: fsWatch,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}

	// Register loaders
	am.registerLoader(ResourceTypeShader, am.glslc)
	am.registerLoader(ResourceTypeSpirv, &loaders.BinaryLoader{})
	am.registerLoader(ResourceTypeScene, &loaders.SceneLoader{})
	am.registerLoader(ResourceTypeImage, &loaders.TextureLoader{})
	return am, nil
}

// Initialize indexes assetsDir recursively and starts watching it.
func (am *AssetManager) Initialize(assetsDir string) error {
	root, err := filepath.Abs(assetsDir)
	if err != nil {
		return err
	}
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("assets directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("assets directory `%s` is not a directory", assetsDir)
	}
	am.root = root

	if err := am.watchRecursive(root); err != nil {
		return err
	}
	am.watching = true
	go am.start()

	core.LogInfo("Indexed %d assets under `%s`.", am.Len(), assetsDir)
	return nil
}

// SetShaderCompiler replaces the glslc binary used for GLSL sources.
func (am *AssetManager) SetShaderCompiler(binary string) {
	am.glslc.Binary = binary
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

func (am *AssetManager) Len() int {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return len(am.assets)
}

// Resolve looks an asset up by name.
func (am *AssetManager) Resolve(name string) (AssetInfo, error) {
	key := am.key(name)
	am.mutex.RLock()
	asset, exists := am.assets[key]
	am.mutex.RUnlock()
	if !exists {
		return AssetInfo{}, fmt.Errorf("%w: %s", ErrAssetNotFound, name)
	}
	return asset, nil
}

// Assets lists the indexed assets of one type, sorted by name.
func (am *AssetManager) Assets(assetType ResourceType) []AssetInfo {
	am.mutex.RLock()
	var out []AssetInfo
	for _, a := range am.assets {
		if a.Type == assetType {
			out = append(out, a)
		}
	}
	am.mutex.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Load an asset using the appropriate loader
func (am *AssetManager) Load(ctx context.Context, name string) (any, error) {
	asset, err := am.Resolve(name)
	if err != nil {
		return nil, err
	}
	loader, loaderExists := am.loaders[asset.Type]
	if !loaderExists {
		return nil, fmt.Errorf("no loader registered for asset type: %s", asset.Type)
	}
	return loader.Load(ctx, asset.Path)
}

func (am *AssetManager) LoadScene(ctx context.Context, name string) (*metadata.Scene, error) {
	asset, err := am.Resolve(name)
	if err != nil {
		return nil, err
	}
	if asset.Type != ResourceTypeScene {
		return nil, fmt.Errorf("`%s` is a %s asset, not a scene", name, asset.Type)
	}
	v, err := am.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	return v.(*metadata.Scene), nil
}

// Compile resolves a shader through the index and compiles it.
func (am *AssetManager) Compile(ctx context.Context, name string, stage metadata.ShaderStage) ([]uint32, error) {
	asset, err := am.Resolve(name)
	if err != nil {
		return nil, err
	}
	if asset.Type != ResourceTypeShader && asset.Type != ResourceTypeSpirv {
		return nil, fmt.Errorf("`%s` is a %s asset, not a shader", name, asset.Type)
	}
	return am.glslc.Compile(ctx, asset.Path, stage)
}

// Close stops watching. Safe to call more than once.
func (am *AssetManager) Close() error {
	var err error
	am.closeOnce.Do(func() {
		close(am.done)
		if am.watching {
			<-am.stopped
		}
		err = am.fsnotify.Close()
	})
	return err
}

func (am *AssetManager) start() {
	defer close(am.stopped)
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			am.handleEvent(e)

		case e, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", e)

		case <-am.done:
			return
		}
	}
}

func (am *AssetManager) handleEvent(e fsnotify.Event) {
	if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
		s, err := os.Stat(e.Name)
		if err != nil {
			return
		}
		if s.IsDir() {
			if e.Op&fsnotify.Create != 0 {
				if err := am.watchRecursive(e.Name); err != nil {
					core.LogWarn("failed to watch `%s`: %s", e.Name, err)
				}
			}
			return
		}
		am.handleFileEvent(e.Name, s.ModTime())
	}
	// a removed entry cannot be stat'ed, so drop it as a file and as a
	// directory
	if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		am.removeAsset(e.Name)
		_ = am.fsnotify.Remove(e.Name)
	}
}

// watchRecursive watches path and every directory below it, indexing the
// files it finds on the way.
func (am *AssetManager) watchRecursive(path string) error {
	return filepath.WalkDir(path, func(walkPath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return am.fsnotify.Add(walkPath)
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		am.handleFileEvent(walkPath, info.ModTime())
		return nil
	})
}

// Handle the creation or modification of a file
func (am *AssetManager) handleFileEvent(path string, modified time.Time) {
	assetType := determineAssetType(path)
	if assetType == ResourceTypeNone {
		return
	}
	key := am.key(path)

	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.assets[key] = AssetInfo{
		Name:     key,
		Path:     path,
		Type:     assetType,
		Modified: modified,
	}
}

// Remove the asset, or everything below it for a directory, from the index
func (am *AssetManager) removeAsset(path string) {
	key := am.key(path)
	prefix := key + "/"

	am.mutex.Lock()
	defer am.mutex.Unlock()
	for name := range am.assets {
		if name == key || strings.HasPrefix(name, prefix) {
			delete(am.assets, name)
		}
	}
}

// key maps a path inside the assets directory, absolute or relative to it,
// to its index name.
func (am *AssetManager) key(path string) string {
	if filepath.IsAbs(path) && am.root != "" {
		if rel, err := filepath.Rel(am.root, path); err == nil && !strings.HasPrefix(rel, "..") {
			path = rel
		}
	}
	return filepath.ToSlash(filepath.Clean(path))
}

func determineAssetType(path string) ResourceType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".vert", ".frag":
		return ResourceTypeShader
	case ".spv":
		return ResourceTypeSpirv
	case ".gltf", ".glb":
		return ResourceTypeScene
	case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff", ".webp":
		return ResourceTypeImage
	default:
		return ResourceTypeNone
	}
}
