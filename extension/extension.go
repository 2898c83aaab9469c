// Package extension provides a Forge extension entry point for keysmith.
package extension

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/keysmith"
	"github.com/xraph/keysmith/cache"
	"github.com/xraph/keysmith/plugin"
	"github.com/xraph/keysmith/store"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "keysmith"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Hierarchical claim resolution, delegated service clients, and cascading revocation"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts keysmith as a Forge extension.
type Extension struct {
	config       Config
	eng          *keysmith.Engine
	logger       *slog.Logger
	keysmithOpts []keysmith.Option
	plugins      []plugin.Plugin
}

// New creates a keysmith Forge extension with the given options.
func New(opts ...ExtOption) *Extension {
	e := &Extension{config: DefaultConfig()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the extension name.
func (e *Extension) Name() string { return ExtensionName }

// Description returns the extension description.
func (e *Extension) Description() string { return ExtensionDescription }

// Version returns the extension version.
func (e *Extension) Version() string { return ExtensionVersion }

// Dependencies returns the list of extension names this extension depends on.
func (e *Extension) Dependencies() []string { return []string{} }

// Engine returns the underlying keysmith engine.
func (e *Extension) Engine() *keysmith.Engine { return e.eng }

// Register implements [forge.Extension]. It initializes the engine and
// registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.init(fapp); err != nil {
		return err
	}

	// Register the engine in the DI container.
	if err := vessel.Provide(fapp.Container(), func() (*keysmith.Engine, error) {
		return e.eng, nil
	}); err != nil {
		return fmt.Errorf("keysmith: register engine in container: %w", err)
	}

	return nil
}

func (e *Extension) init(fapp forge.App) error {
	logger := e.logger
	if logger == nil {
		logger = slog.Default()
	}

	// Build engine options.
	opts := make([]keysmith.Option, 0, len(e.keysmithOpts)+len(e.plugins)+2)
	opts = append(opts, keysmith.WithLogger(logger))
	opts = append(opts, keysmith.WithConfig(keysmith.Config{
		MaxHierarchyDepth: e.config.MaxHierarchyDepth,
		DenyListTTL:       e.config.DenyListTTL,
		CacheTTL:          e.config.CacheTTL,
	}))

	// Default in-memory resolution cache; option-provided caches take
	// precedence.
	if e.config.CacheTTL > 0 {
		opts = append(opts, keysmith.WithCache(cache.NewMemory(cache.WithTTL(e.config.CacheTTL))))
	}

	// Try to resolve the store from the DI container; option-provided
	// stores take precedence.
	if s, err := forge.Inject[store.Store](fapp.Container()); err == nil {
		opts = append(opts, keysmith.WithStore(s))
	}

	// Append user-provided options (may override store).
	opts = append(opts, e.keysmithOpts...)

	// Register extension hooks.
	for _, x := range e.plugins {
		opts = append(opts, keysmith.WithPlugin(x))
	}

	eng, err := keysmith.NewEngine(opts...)
	if err != nil {
		return fmt.Errorf("keysmith: create engine: %w", err)
	}
	e.eng = eng

	return nil
}

// Start begins the keysmith engine and runs migrations if enabled.
func (e *Extension) Start(ctx context.Context) error {
	if e.eng == nil {
		return errors.New("keysmith: extension not initialized")
	}

	// Run migrations unless disabled.
	if !e.config.DisableMigrate {
		s := e.eng.Store()
		if s != nil {
			if err := s.Migrate(ctx); err != nil {
				return fmt.Errorf("keysmith: migration failed: %w", err)
			}
		}
	}

	return e.eng.Start(ctx)
}

// Stop gracefully shuts down the keysmith engine.
func (e *Extension) Stop(ctx context.Context) error {
	if e.eng == nil {
		return nil
	}
	return e.eng.Stop(ctx)
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.eng == nil {
		return errors.New("keysmith: extension not initialized")
	}
	s := e.eng.Store()
	if s == nil {
		return errors.New("keysmith: no store configured")
	}
	return s.Ping(ctx)
}
