package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/ember/engine/assets/loaders"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/systems"
)

var (
	ErrAssetNotFound = errors.New("asset not found")
	ErrNoLoader      = errors.New("no loader registered for asset type")
	ErrClosed        = errors.New("asset manager already closed")
)

type AssetInfo struct {
	// slash separated path relative to the asset directory
	Name       string
	Path       string
	Type       AssetType
	Modified   time.Time
	LastLoaded time.Time
}

/** @brief One asset to decode in a LoadAll batch. */
type LoadRequest struct {
	Name   string
	Params interface{}
}

// AssetManager keeps a catalog of the asset directory up to date through
// fsnotify and decodes assets with the loader registered for their type.
type AssetManager struct {
	root    string
	assets  map[string]AssetInfo
	loaders map[AssetType]Loader

	mutex sync.RWMutex

	done     chan struct{}
	stopped  chan struct{}
	fsnotify *fsnotify.Watcher
	watching bool
	isClosed bool
}

func NewAssetManager() (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &AssetManager{
		assets:   make(map[string]AssetInfo),
		loaders:  make(map[AssetType]Loader),
		fsnotify: fsWatch,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}, nil
}

/**
 * @brief Indexes assetsDir recursively, starts watching it and registers the
 * built-in loaders.
 */
func (am *AssetManager) Initialize(assetsDir string) error {
	root, err := filepath.Abs(assetsDir)
	if err != nil {
		return err
	}
	am.root = root

	// Register loaders
	am.RegisterLoader(AssetTypeBinary, &loaders.BinaryLoader{})
	am.RegisterLoader(AssetTypeShader, &loaders.ShaderLoader{})
	am.RegisterLoader(AssetTypeImage, &loaders.ImageLoader{})
	am.RegisterLoader(AssetTypeModel, &loaders.ModelLoader{})
	am.RegisterLoader(AssetTypeSound, &loaders.SoundLoader{})
	am.RegisterLoader(AssetTypeBitmapFont, &loaders.BitmapFontLoader{})
	am.RegisterLoader(AssetTypeSystemFont, &loaders.SystemFontLoader{})

	if err := am.addRecursive(root); err != nil {
		return err
	}
	am.watching = true
	go am.start()

	core.LogInfo("Asset manager indexed %d assets under '%s'.", am.Count(), root)
	return nil
}

// RegisterLoader sets the loader for an asset type, replacing any previous one.
func (am *AssetManager) RegisterLoader(assetType AssetType, loader Loader) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.loaders[assetType] = loader
}

// addRecursive starts watching the named directory and all sub-directories.
func (am *AssetManager) addRecursive(name string) error {
	if am.isClosed {
		return ErrClosed
	}
	return am.watchRecursive(name)
}

// Count returns the number of cataloged assets.
func (am *AssetManager) Count() int {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return len(am.assets)
}

// Resolve looks an asset up by its path relative to the asset directory.
func (am *AssetManager) Resolve(name string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[filepath.ToSlash(name)]
	return info, ok
}

// Assets lists the catalog sorted by name, optionally filtered by type.
func (am *AssetManager) Assets(assetType AssetType) []AssetInfo {
	am.mutex.RLock()
	out := make([]AssetInfo, 0, len(am.assets))
	for _, info := range am.assets {
		if assetType == AssetTypeNone || info.Type == assetType {
			out = append(out, info)
		}
	}
	am.mutex.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ModifiedSince lists the assets written after t, for hot reloading.
func (am *AssetManager) ModifiedSince(t time.Time) []AssetInfo {
	var out []AssetInfo
	for _, info := range am.Assets(AssetTypeNone) {
		if info.Modified.After(t) {
			out = append(out, info)
		}
	}
	return out
}

// LoadAsset decodes the named asset with the loader registered for its type.
// It is safe to call from scheduler tasks.
func (am *AssetManager) LoadAsset(name string, params interface{}) (*loaders.Resource, error) {
	key := filepath.ToSlash(name)

	am.mutex.Lock()
	asset, exists := am.assets[key]
	if exists {
		asset.LastLoaded = time.Now()
		am.assets[key] = asset
	}
	loader, loaderExists := am.loaders[asset.Type]
	am.mutex.Unlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, name)
	}
	if !loaderExists {
		return nil, fmt.Errorf("%w: %s", ErrNoLoader, asset.Type)
	}
	return loader.Load(asset.Path, params)
}

func (am *AssetManager) UnloadAsset(assetType AssetType, resource *loaders.Resource) error {
	am.mutex.RLock()
	loader, ok := am.loaders[assetType]
	am.mutex.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoLoader, assetType)
	}
	return loader.Unload(resource)
}

/**
 * @brief Decodes every request on the scheduler and waits for the batch.
 * @return The resources in request order and the joined errors of the failed ones.
 */
func (am *AssetManager) LoadAll(scheduler *systems.Scheduler, requests []LoadRequest) ([]*loaders.Resource, error) {
	results := make([]systems.Result[*loaders.Resource], len(requests))
	for i, req := range requests {
		scheduler.AddTask(func() {
			results[i].Store(am.LoadAsset(req.Name, req.Params))
		})
	}
	scheduler.LaunchThreads()
	scheduler.WaitForThreads()

	out := make([]*loaders.Resource, len(requests))
	var errs []error
	for i := range results {
		res, err := results[i].Load()
		if err != nil {
			errs = append(errs, fmt.Errorf("loading '%s': %w", requests[i].Name, err))
			continue
		}
		out[i] = res
	}
	return out, errors.Join(errs...)
}

// Shutdown stops watching the asset directory.
func (am *AssetManager) Shutdown() error {
	if am.isClosed {
		return nil
	}
	am.isClosed = true
	close(am.done)
	if am.watching {
		<-am.stopped
		return nil
	}
	return am.fsnotify.Close()
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

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err)

		case <-am.done:
			am.fsnotify.Close()
			return
		}
	}
}

func (am *AssetManager) handleEvent(e fsnotify.Event) {
	if e.Op&fsnotify.Create != 0 {
		if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
			if err := am.watchRecursive(e.Name); err != nil {
				core.LogWarn("failed to watch '%s': %s", e.Name, err)
			}
			return
		}
	}
	// Handle create or modify events
	if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
		am.handleFileEvent(e.Name)
	}
	// a removed directory can't be stat'ed, so drop it from both the
	// watch list and the catalog
	if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		am.removeAsset(e.Name)
		_ = am.fsnotify.Remove(e.Name)
	}
}

// watchRecursive adds every directory under path to the watch list and
// catalogs the files it finds.
func (am *AssetManager) watchRecursive(path string) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return am.fsnotify.Add(walkPath)
		}
		am.handleFileEvent(walkPath)
		return nil
	})
}

func (am *AssetManager) assetName(path string) string {
	rel, err := filepath.Rel(am.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// Handle the creation or modification of a file
func (am *AssetManager) handleFileEvent(path string) {
	assetType := determineAssetType(path)
	if assetType == AssetTypeNone {
		return
	}
	name := am.assetName(path)

	am.mutex.Lock()
	defer am.mutex.Unlock()
	info := am.assets[name]
	info.Name = name
	info.Path = path
	info.Type = assetType
	info.Modified = time.Now()
	am.assets[name] = info
}

// Remove the asset, or every asset under a removed directory, from the catalog
func (am *AssetManager) removeAsset(path string) {
	name := am.assetName(path)

	am.mutex.Lock()
	defer am.mutex.Unlock()
	for key := range am.assets {
		if key == name || strings.HasPrefix(key, name+"/") {
			delete(am.assets, key)
		}
	}
}

func determineAssetType(path string) AssetType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".vert", ".frag":
		return AssetTypeShader
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp":
		return AssetTypeImage
	case ".obj":
		return AssetTypeModel
	case ".wav":
		return AssetTypeSound
	case ".fnt":
		return AssetTypeBitmapFont
	case ".fontcfg":
		return AssetTypeSystemFont
	case ".bin", ".spv":
		return AssetTypeBinary
	default:
		return AssetTypeNone
	}
}
