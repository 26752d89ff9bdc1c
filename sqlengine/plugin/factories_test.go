package plugin_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine"
	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine/plugin"
)

func givenFactories(t *testing.T, log *[]string) *plugin.Factories {
	t.Helper()

	factories := plugin.NewFactories()

	for _, name := range []string{"A", "B"} {
		require.NoError(t, factories.Register(name, func(plugin.Dependencies) (plugin.Extension, error) {
			return loggingExtension(name, log, plugin.ExecutorUpdate), nil
		}))
	}

	return factories
}

func Test_BuildChain_RegistersDescriptorsInOrder(t *testing.T) {
	// arrange
	log := make([]string, 0)
	factories := givenFactories(t, &log)
	descriptors := []plugin.Descriptor{{Name: "A"}, {Name: "B", Properties: plugin.Properties{"k": "v"}}}

	// act
	chain, err := plugin.BuildChain(descriptors, factories, plugin.Dependencies{})
	require.NoError(t, err)

	executor, applyErr := plugin.Apply[sqlengine.Executor](chain, &executorStub{log: &log})
	require.NoError(t, applyErr)
	_, updateErr := executor.Update(context.Background(), givenMappedStatement(), nil)

	// assert
	require.NoError(t, updateErr)
	assert.True(t, chain.IsFrozen())
	assert.Equal(t, []string{"B", "A", "target"}, log)
	assert.Equal(t, "v", chain.Extensions()[1].(*plugin.InterceptorFunc).Properties()["k"])
}

func Test_BuildChain_FailsForUnknownExtension(t *testing.T) {
	// arrange
	log := make([]string, 0)
	factories := givenFactories(t, &log)

	// act
	_, err := plugin.BuildChain([]plugin.Descriptor{{Name: "A"}, {Name: "C"}}, factories, plugin.Dependencies{})

	// assert
	assert.ErrorIs(t, err, plugin.ErrConfiguration)
	assert.ErrorIs(t, err, plugin.ErrUnknownExtension)
}

func Test_BuildChain_FailsWhenFactoryFails(t *testing.T) {
	// arrange
	factoryErr := errors.New("missing collaborator")
	factories := plugin.NewFactories()
	require.NoError(t, factories.Register("broken", func(plugin.Dependencies) (plugin.Extension, error) {
		return nil, factoryErr
	}))

	// act
	_, err := plugin.BuildChain([]plugin.Descriptor{{Name: "broken"}}, factories, plugin.Dependencies{})

	// assert
	assert.ErrorIs(t, err, plugin.ErrConfiguration)
	assert.ErrorIs(t, err, factoryErr)
}

func Test_Factories_RejectsDuplicateAndEmptyNames(t *testing.T) {
	// arrange
	log := make([]string, 0)
	factories := givenFactories(t, &log)
	factory := func(plugin.Dependencies) (plugin.Extension, error) { return nil, nil }

	// act
	duplicateErr := factories.Register("A", factory)
	emptyErr := factories.Register("  ", factory)

	// assert
	assert.ErrorIs(t, duplicateErr, plugin.ErrDuplicateFactory)
	assert.ErrorIs(t, emptyErr, plugin.ErrEmptyExtensionName)
	assert.Equal(t, []string{"A", "B"}, factories.Names())
}

func Test_BuildExtensions_FailsWhenFactoryReturnsNil(t *testing.T) {
	// arrange
	factories := plugin.NewFactories()
	require.NoError(t, factories.Register("nil", func(plugin.Dependencies) (plugin.Extension, error) { return nil, nil }))

	// act
	_, err := factories.BuildExtensions([]plugin.Descriptor{{Name: "nil"}}, plugin.Dependencies{})

	// assert
	assert.ErrorIs(t, err, plugin.ErrNilExtension)
}
