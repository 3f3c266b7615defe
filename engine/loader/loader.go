package loader

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-avatar/engine/model"

	"go.uber.org/zap"
)

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	avatarCache map[string]*model.ImportedAvatar

	log *zap.Logger
}

// Loader defines the public-facing interface for loading and caching avatar
// assets. It parses glTF, GLB and VRM containers, normalizes both VRM
// spring-bone schema versions, and manages a cache of previously loaded
// avatars keyed by path or name.
type Loader interface {
	// LoadAvatar imports an avatar file and caches the result.
	// If the avatar is already cached (by file path), the cached version is
	// returned. The container format is detected from the file extension and
	// the GLB magic bytes, so .vrm files (GLB containers) need no special
	// handling by callers.
	//
	// Parameters:
	//   - path: the file path to the .gltf, .glb or .vrm file
	//
	// Returns:
	//   - *model.ImportedAvatar: the loaded and cached avatar
	//   - error: error if loading fails
	LoadAvatar(path string) (*model.ImportedAvatar, error)

	// LoadAvatarFromReader imports an avatar from a reader stream and caches
	// it by the given name. Use this for embedded assets or network streams.
	//
	// Parameters:
	//   - r: the reader providing avatar data
	//   - name: the cache key for the loaded avatar
	//   - isGLB: true if the reader provides GLB binary data (.glb/.vrm)
	//
	// Returns:
	//   - *model.ImportedAvatar: the loaded avatar
	//   - error: error if loading fails
	LoadAvatarFromReader(r io.Reader, name string, isGLB bool) (*model.ImportedAvatar, error)

	// Get retrieves a cached avatar by name. Returns nil if not found.
	//
	// Parameters:
	//   - name: the cache key to look up
	//
	// Returns:
	//   - *model.ImportedAvatar: the cached avatar or nil
	Get(name string) *model.ImportedAvatar

	// Avatars returns a copy of the full avatar cache.
	//
	// Returns:
	//   - map[string]*model.ImportedAvatar: all cached avatars keyed by name
	Avatars() map[string]*model.ImportedAvatar

	// ClearCache drops every cached avatar.
	ClearCache()
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance with the provided options applied.
//
// Parameters:
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided options
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:          sync.RWMutex{},
		avatarCache: make(map[string]*model.ImportedAvatar),
		log:         zap.NewNop(),
	}

	for _, option := range options {
		option(l)
	}
	return l
}

func (l *loader) LoadAvatar(path string) (*model.ImportedAvatar, error) {
	l.mu.RLock()
	if cached, ok := l.avatarCache[path]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	if err := validateExtension(path); err != nil {
		return nil, err
	}

	parser := newGLTFParser()
	if err := parser.Parse(path); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	avatar, err := newAvatarExtractor(parser).ExtractAvatar(name)
	if err != nil {
		return nil, fmt.Errorf("failed to extract %s: %w", path, err)
	}

	l.log.Info("avatar loaded",
		zap.String("path", path),
		zap.String("name", avatar.Name),
		zap.Int("nodes", len(avatar.Nodes)),
		zap.Int("springs", len(avatar.Springs)),
		zap.Int("colliderGroups", len(avatar.ColliderGroups)),
	)

	l.mu.Lock()
	l.avatarCache[path] = avatar
	l.mu.Unlock()

	return avatar, nil
}

func (l *loader) LoadAvatarFromReader(r io.Reader, name string, isGLB bool) (*model.ImportedAvatar, error) {
	l.mu.RLock()
	if cached, ok := l.avatarCache[name]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	parser := newGLTFParser()
	if err := parser.ParseReader(r, isGLB); err != nil {
		return nil, fmt.Errorf("failed to load from reader %q: %w", name, err)
	}

	avatar, err := newAvatarExtractor(parser).ExtractAvatar(name)
	if err != nil {
		return nil, fmt.Errorf("failed to extract %q: %w", name, err)
	}

	l.log.Info("avatar loaded",
		zap.String("name", avatar.Name),
		zap.Int("nodes", len(avatar.Nodes)),
		zap.Int("springs", len(avatar.Springs)),
	)

	l.mu.Lock()
	l.avatarCache[name] = avatar
	l.mu.Unlock()

	return avatar, nil
}

func (l *loader) Get(name string) *model.ImportedAvatar {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.avatarCache[name]
}

func (l *loader) Avatars() map[string]*model.ImportedAvatar {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]*model.ImportedAvatar, len(l.avatarCache))
	for k, v := range l.avatarCache {
		result[k] = v
	}
	return result
}

func (l *loader) ClearCache() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.avatarCache = make(map[string]*model.ImportedAvatar)
}

// validateExtension rejects paths whose extension no backend understands.
func validateExtension(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".gltf", ".glb", ".vrm":
		return nil
	default:
		return fmt.Errorf("unsupported avatar format: %s", ext)
	}
}
