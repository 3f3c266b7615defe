package loader

import (
	"github.com/Carmen-Shannon/oxy-avatar/engine/model"

	"go.uber.org/zap"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithLoaderLogger is an option builder that sets the structured logger used
// by the Loader. A nil logger is ignored.
//
// Parameters:
//   - log: the zap logger instance
//
// Returns:
//   - LoaderBuilderOption: a function that applies the logger option to a loader
func WithLoaderLogger(log *zap.Logger) LoaderBuilderOption {
	return func(l *loader) {
		if log != nil {
			l.log = log
		}
	}
}

// WithAvatar is an option builder that pre-populates the cache with an avatar.
//
// Parameters:
//   - key: the cache key for the avatar
//   - avatar: the avatar to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the avatar option to a loader
func WithAvatar(key string, avatar *model.ImportedAvatar) LoaderBuilderOption {
	return func(l *loader) {
		l.avatarCache[key] = avatar
	}
}
