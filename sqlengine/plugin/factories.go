package plugin

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine"
)

// Descriptor names a configured extension and its properties.
type Descriptor struct {
	Name       string     `yaml:"name" json:"name"`
	Properties Properties `yaml:"properties,omitempty" json:"properties,omitempty"`
}

// Dependencies are the ambient collaborators handed to extension factories.
type Dependencies struct {
	Logger           sqlengine.Logger
	ContextualLogger sqlengine.ContextualLogger
	MetricsCollector sqlengine.MetricsCollector
	TracingCollector sqlengine.TracingCollector
}

// Factory creates a fresh extension instance.
type Factory func(deps Dependencies) (Extension, error)

// Factories maps extension names to factories.
type Factories struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// NewFactories creates an empty registry.
func NewFactories() *Factories {
	return &Factories{factories: make(map[string]Factory)}
}

// Register adds a factory under name.
func (f *Factories) Register(name string, factory Factory) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return configurationError(ErrEmptyExtensionName, nil)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.factories[name]; exists {
		return configurationError(ErrDuplicateFactory, fmt.Errorf("extension %q", name))
	}

	f.factories[name] = factory

	return nil
}

// Lookup returns the factory registered under name.
func (f *Factories) Lookup(name string) (Factory, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	factory, ok := f.factories[name]

	return factory, ok
}

// Names returns the registered names, sorted.
func (f *Factories) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	names := make([]string, 0, len(f.factories))
	for name := range f.factories {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// BuildExtensions instantiates the described extensions in order and hands each its properties.
func (f *Factories) BuildExtensions(descriptors []Descriptor, deps Dependencies) ([]Extension, error) {
	extensions := make([]Extension, 0, len(descriptors))

	for i, descriptor := range descriptors {
		factory, ok := f.Lookup(descriptor.Name)
		if !ok {
			return nil, configurationError(ErrUnknownExtension, fmt.Errorf("descriptor %d: %q", i, descriptor.Name))
		}

		ext, err := factory(deps)
		if err != nil {
			return nil, configurationError(err, fmt.Errorf("descriptor %d: %q", i, descriptor.Name))
		}

		if ext == nil {
			return nil, configurationError(ErrNilExtension, fmt.Errorf("descriptor %d: %q", i, descriptor.Name))
		}

		if err = ext.SetProperties(descriptor.Properties.Clone()); err != nil {
			return nil, configurationError(err, fmt.Errorf("descriptor %d: %q", i, descriptor.Name))
		}

		extensions = append(extensions, ext)
	}

	return extensions, nil
}

// BuildChain creates, fills and freezes a chain from descriptors.
func BuildChain(descriptors []Descriptor, factories *Factories, deps Dependencies, options ...ChainOption) (*Chain, error) {
	extensions, err := factories.BuildExtensions(descriptors, deps)
	if err != nil {
		return nil, err
	}

	chain, err := NewChain(options...)
	if err != nil {
		return nil, err
	}

	for _, ext := range extensions {
		if err = chain.AddExtension(ext); err != nil {
			return nil, err
		}
	}

	chain.Freeze()

	return chain, nil
}
