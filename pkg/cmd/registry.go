// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/flowlink/pkg/adapters/fileadapter"
	"github.com/dukex/flowlink/pkg/adapters/httpadapter"
	"github.com/dukex/flowlink/pkg/adapters/pubsub"
	"github.com/dukex/flowlink/pkg/adapters/redisadapter"
	"github.com/dukex/flowlink/pkg/registry"
)

func registerAdapterPlugins(reg *registry.Registry, pluginsPath string) error {
	if pluginsPath == "" {
		return nil
	}

	_, err := reg.LoadAdapterPlugins(pluginsPath)
	if err != nil {
		return fmt.Errorf("failed to load adapter plugins: %w", err)
	}

	return nil
}

func registerNativeAdapters(reg *registry.Registry, publisher message.Publisher) {
	reg.RegisterAdapter(httpadapter.NewFactory())
	reg.RegisterAdapter(fileadapter.NewFactory())
	reg.RegisterAdapter(redisadapter.NewFactory())

	if publisher != nil {
		reg.RegisterAdapter(pubsub.NewFactory(publisher))
	}
}

// NewRegistry returns a registry holding the native adapter types plus the plugins found under
// pluginsPath. Native types win over plugins of the same name.
func NewRegistry(log *slog.Logger, pluginsPath string, publisher message.Publisher) (*registry.Registry, error) {
	reg := registry.NewRegistry(log)

	err := registerAdapterPlugins(reg, pluginsPath)
	if err != nil {
		return nil, err
	}

	registerNativeAdapters(reg, publisher)

	return reg, nil
}
