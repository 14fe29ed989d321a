// Package registry keeps the adapter factories known to the process, built in or loaded as plugins.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"plugin"
	"slices"
	"strings"
	"sync"

	"github.com/dukex/flowlink/pkg/protocol"
)

var (
	ErrUnknownAdapterType = errors.New("adapter type not registered")
	ErrInvalidPlugin      = errors.New("invalid adapter plugin")
)

// PluginSymbol is the exported variable an adapter plugin must provide. It must implement
// protocol.AdapterFactory.
const PluginSymbol = "Adapter"

type Registry struct {
	logger           *slog.Logger
	mu               sync.RWMutex
	adapterFactories map[string]protocol.AdapterFactory
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:           log.With("module", "registry"),
		adapterFactories: make(map[string]protocol.AdapterFactory),
	}
}

// RegisterAdapter adds factory under its ID, replacing an earlier factory with the same ID.
func (r *Registry) RegisterAdapter(factory protocol.AdapterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.adapterFactories[factory.ID()] = factory
}

func (r *Registry) CreateAdapter(ctx context.Context, adapterType string, config map[string]any) (protocol.Adapter, error) {
	r.mu.RLock()
	factory, ok := r.adapterFactories[adapterType]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownAdapterType, adapterType)
	}

	return factory.Create(ctx, config, r.logger)
}

// Types returns the registered adapter types in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.adapterFactories))
	for adapterType := range r.adapterFactories {
		types = append(types, adapterType)
	}

	slices.Sort(types)

	return types
}

// LoadAdapterPlugins opens every .so file under <pluginsPath>/adapters and registers the factory
// each one exports.
func (r *Registry) LoadAdapterPlugins(pluginsPath string) ([]protocol.AdapterFactory, error) {
	factories, err := loadPlugin[protocol.AdapterFactory](r.logger, pluginsPath, PluginSymbol)
	if err != nil {
		return nil, err
	}

	for _, factory := range factories {
		r.RegisterAdapter(factory)
	}

	return factories, nil
}

func loadPlugin[T any](logger *slog.Logger, pluginsPath string, symbolName string) ([]T, error) {
	rootPath := pluginsPath + "/" + strings.ToLower(symbolName) + "s"

	pluginPathList, err := fs.Glob(os.DirFS(rootPath), "*.so")
	if err != nil {
		return nil, err
	}

	l := logger.With(slog.String("path", rootPath), slog.String("type", symbolName))
	l.Info("Loading plugins", "count", len(pluginPathList))

	pluginList := make([]T, 0, len(pluginPathList))

	for _, p := range pluginPathList {
		plg, err := plugin.Open(rootPath + "/" + p)
		if err != nil {
			return nil, fmt.Errorf("failed to open plugin %s: %w", p, err)
		}

		v, err := plg.Lookup(symbolName)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidPlugin, p, err)
		}

		castV, ok := v.(T)
		if !ok {
			return nil, fmt.Errorf("%w: %s does not export a %T", ErrInvalidPlugin, p, *new(T))
		}

		pluginList = append(pluginList, castV)

		l.Info("Loaded adapter plugin", slog.String("plugin", p))
	}

	return pluginList, nil
}
