package assets

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/anima-deferred/engine/assets/loaders"
	"github.com/spaghettifunk/anima-deferred/engine/core"
	"github.com/spaghettifunk/anima-deferred/engine/renderer/metadata"
	"golang.org/x/sync/errgroup"
)

type AssetInfo struct {
	Path       string
	Type       metadata.ResourceType
	LastLoaded time.Time
}

type cacheKey struct {
	path   string
	params string
}

// AssetManager indexes the files under a root directory, loads them through the
// loader registered for their type and caches the result until the file
// changes on disk.
type AssetManager struct {
	root    string
	assets  map[string]AssetInfo
	cache   map[cacheKey]*metadata.Resource
	loaders map[metadata.ResourceType]Loader

	mutex sync.RWMutex

	done     chan struct{}
	wg       sync.WaitGroup
	fsnotify *fsnotify.Watcher
	isClosed bool

	// OnChange, if set, is called from the watcher goroutine with the path of
	// every asset dropped from the cache.
	OnChange func(path string)
}

func NewAssetManager(root string) (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create asset watcher")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve asset root `%s`", root)
	}

	return &AssetManager{
		root:     abs,
		assets:   make(map[string]AssetInfo),
		cache:    make(map[cacheKey]*metadata.Resource),
		loaders:  make(map[metadata.ResourceType]Loader),
		fsnotify: fsWatch,
		done:     make(chan struct{}),
	}, nil
}

func (am *AssetManager) Initialize() error {
	if _, err := os.Stat(am.root); err != nil {
		return errors.Wrapf(core.ErrAssetNotFound, "asset root `%s`", am.root)
	}

	// Register loaders
	am.registerLoader(metadata.ResourceTypeBinary, &loaders.BinaryLoader{})
	am.registerLoader(metadata.ResourceTypeImage, &loaders.ImageLoader{})
	am.registerLoader(metadata.ResourceTypeScene, &loaders.SceneLoader{})

	if err := am.watchRecursive(am.root, false); err != nil {
		return err
	}

	am.wg.Add(1)
	go am.start()

	core.LogDebug("asset manager watching `%s` (%d assets)", am.root, len(am.assets))
	return nil
}

// Shutdown stops the watcher goroutine.
func (am *AssetManager) Shutdown() error {
	am.mutex.Lock()
	if am.isClosed {
		am.mutex.Unlock()
		return nil
	}
	am.isClosed = true
	am.mutex.Unlock()

	close(am.done)
	am.wg.Wait()
	return nil
}

// Root returns the absolute asset directory.
func (am *AssetManager) Root() string {
	return am.root
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType metadata.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

// LoadAsset loads name, a path relative to the root or an absolute path inside
// it, with the loader registered for resourceType.
func (am *AssetManager) LoadAsset(name string, resourceType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	path := am.resolve(name)
	key := cacheKey{path: path, params: paramsKey(params)}

	am.mutex.RLock()
	_, exists := am.assets[path]
	cached := am.cache[key]
	loader, loaderExists := am.loaders[resourceType]
	am.mutex.RUnlock()

	if !exists {
		// The watcher may not have seen a file created a moment ago.
		if _, err := os.Stat(path); err != nil {
			return nil, errors.Wrapf(core.ErrAssetNotFound, "asset `%s`", name)
		}
		am.handleFileEvent(path)
	}
	if cached != nil {
		return cached, nil
	}
	if !loaderExists {
		return nil, errors.Newf("no loader registered for asset type: %s", resourceType)
	}

	res, err := loader.Load(path, resourceType, params)
	if err != nil {
		return nil, err
	}

	am.mutex.Lock()
	am.cache[key] = res
	if info, ok := am.assets[path]; ok {
		info.LastLoaded = time.Now()
		info.Type = resourceType
		am.assets[path] = info
	}
	am.mutex.Unlock()

	return res, nil
}

// LoadImages decodes several images concurrently. The result order matches names.
func (am *AssetManager) LoadImages(names []string, params *metadata.ImageResourceParams) ([]*metadata.Resource, error) {
	out := make([]*metadata.Resource, len(names))
	var group errgroup.Group
	for i, name := range names {
		group.Go(func() error {
			res, err := am.LoadAsset(name, metadata.ResourceTypeImage, params)
			if err != nil {
				return err
			}
			out[i] = res
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (am *AssetManager) UnloadAsset(asset *metadata.Resource) error {
	if asset == nil {
		return nil
	}
	am.mutex.Lock()
	for k, v := range am.cache {
		if v == asset {
			delete(am.cache, k)
		}
	}
	loader := am.loaders[asset.Type]
	am.mutex.Unlock()

	if loader != nil {
		return loader.Unload(asset)
	}
	return nil
}

// IsCached reports whether a resource for name is held in the cache.
func (am *AssetManager) IsCached(name string) bool {
	path := am.resolve(name)
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	for k := range am.cache {
		if k.path == path {
			return true
		}
	}
	return false
}

func (am *AssetManager) resolve(name string) string {
	if filepath.IsAbs(name) {
		return filepath.Clean(name)
	}
	return filepath.Join(am.root, filepath.FromSlash(name))
}

func (am *AssetManager) start() {
	defer am.wg.Done()
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			s, err := os.Stat(e.Name)
			if err == nil && s != nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					if err := am.watchRecursive(e.Name, false); err != nil {
						core.LogWarn("failed to watch `%s`: %s", e.Name, err)
					}
				}
				continue
			}
			// Handle create or modify events
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				am.handleFileEvent(e.Name)
				am.invalidate(e.Name)
			}
			// Can't stat a deleted path, drop it from the index and the watch list.
			if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				am.removeAsset(e.Name)
				am.invalidate(e.Name)
				_ = am.fsnotify.Remove(e.Name)
			}

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError(err.Error())

		case <-am.done:
			am.fsnotify.Close()
			return
		}
	}
}

// watchRecursive adds all directories under the given one to the watch list
// and indexes the files found.
func (am *AssetManager) watchRecursive(path string, unWatch bool) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if unWatch {
				return am.fsnotify.Remove(walkPath)
			}
			return am.fsnotify.Add(walkPath)
		}
		am.handleFileEvent(walkPath)
		return nil
	})
}

// Handle the creation or modification of a file
func (am *AssetManager) handleFileEvent(path string) {
	assetType, ok := determineAssetType(path)
	if !ok {
		return
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.assets[filepath.Clean(path)] = AssetInfo{
		Path: path,
		Type: assetType,
	}
}

func (am *AssetManager) invalidate(path string) {
	path = filepath.Clean(path)
	dropped := false

	am.mutex.Lock()
	for k := range am.cache {
		if k.path == path {
			delete(am.cache, k)
			dropped = true
		}
	}
	am.mutex.Unlock()

	if dropped {
		core.LogInfo("asset `%s` changed on disk, dropped from cache", path)
		if am.OnChange != nil {
			am.OnChange(path)
		}
	}
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	delete(am.assets, filepath.Clean(path))
}

func determineAssetType(path string) (metadata.ResourceType, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".spv":
		return metadata.ResourceTypeBinary, true
	case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff", ".webp":
		return metadata.ResourceTypeImage, true
	case ".obj":
		return metadata.ResourceTypeScene, true
	case ".mtl", ".txt", ".vert", ".frag":
		return metadata.ResourceTypeText, true
	default:
		return 0, false
	}
}

func paramsKey(params interface{}) string {
	switch p := params.(type) {
	case *metadata.ImageResourceParams:
		if p != nil && p.FlipY {
			return "flip"
		}
	case map[string]string:
		return p["name"]
	}
	return ""
}
