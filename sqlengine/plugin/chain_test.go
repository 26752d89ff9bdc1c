package plugin_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine"
	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine/plugin"
	"github.com/AntonStoeckl/pluggable-sqlengine-go/testutil/helper"
)

func Test_Chain_LastRegisteredExtensionIsOutermost(t *testing.T) {
	// arrange
	log := make([]string, 0)
	target := &executorStub{log: &log}

	chain, err := plugin.NewChain()
	require.NoError(t, err)
	require.NoError(t, chain.AddExtension(loggingExtension("A", &log, plugin.ExecutorUpdate)))
	require.NoError(t, chain.AddExtension(loggingExtension("B", &log, plugin.ExecutorUpdate)))
	chain.Freeze()

	executor, err := plugin.Apply[sqlengine.Executor](chain, target)
	require.NoError(t, err)

	// act
	_, updateErr := executor.Update(context.Background(), givenMappedStatement(), nil)

	// assert
	require.NoError(t, updateErr)
	assert.Equal(t, []string{"B", "A", "target"}, log)
	assert.Same(t, target, plugin.Innermost(executor))
}

func Test_Chain_SameExtensionRegisteredTwiceInterceptsTwice(t *testing.T) {
	// arrange
	log := make([]string, 0)
	target := &executorStub{log: &log}
	ext := loggingExtension("A", &log, plugin.ExecutorUpdate)

	chain, err := plugin.NewChain()
	require.NoError(t, err)
	require.NoError(t, chain.AddExtension(ext))
	require.NoError(t, chain.AddExtension(ext))

	executor, err := plugin.Apply[sqlengine.Executor](chain, target)
	require.NoError(t, err)

	// act
	_, updateErr := executor.Update(context.Background(), givenMappedStatement(), nil)

	// assert
	require.NoError(t, updateErr)
	assert.Equal(t, []string{"A", "A", "target"}, log)
	assert.Len(t, chain.Extensions(), 2)
}

func Test_Chain_TargetErrorsPropagateThroughEveryLayer(t *testing.T) {
	// arrange
	log := make([]string, 0)
	targetErr := errors.New("duplicate key")
	target := &executorStub{log: &log, updateErr: targetErr}

	chain, err := plugin.NewChain()
	require.NoError(t, err)
	require.NoError(t, chain.AddExtension(loggingExtension("A", &log, plugin.ExecutorUpdate)))
	require.NoError(t, chain.AddExtension(loggingExtension("B", &log, plugin.ExecutorUpdate)))

	executor, err := plugin.Apply[sqlengine.Executor](chain, target)
	require.NoError(t, err)

	// act
	_, updateErr := executor.Update(context.Background(), givenMappedStatement(), nil)

	// assert
	assert.ErrorIs(t, updateErr, targetErr)
}

func Test_Chain_WithoutExtensionsReturnsTargetUnchanged(t *testing.T) {
	// arrange
	target := &executorStub{}
	chain, err := plugin.NewChain()
	require.NoError(t, err)
	chain.Freeze()

	// act
	executor, applyErr := plugin.Apply[sqlengine.Executor](chain, target)

	// assert
	require.NoError(t, applyErr)
	assert.Same(t, target, executor)
}

func Test_Chain_ExtensionsForOtherRolesLeaveTargetUnchanged(t *testing.T) {
	// arrange
	log := make([]string, 0)
	target := statementHandlerStub{}

	chain, err := plugin.NewChain()
	require.NoError(t, err)
	require.NoError(t, chain.AddExtension(loggingExtension("A", &log, plugin.ExecutorUpdate)))

	// act
	handler, applyErr := plugin.Apply[sqlengine.StatementHandler](chain, target)

	// assert
	require.NoError(t, applyErr)
	assert.Equal(t, target, handler)
	assert.False(t, plugin.IsProxy(handler))
}

func Test_Chain_RejectsRegistrationAfterFreeze(t *testing.T) {
	// arrange
	log := make([]string, 0)
	chain, err := plugin.NewChain()
	require.NoError(t, err)
	chain.Freeze()

	// act
	addErr := chain.AddExtension(loggingExtension("A", &log, plugin.ExecutorUpdate))

	// assert
	assert.True(t, chain.IsFrozen())
	assert.ErrorIs(t, addErr, plugin.ErrConfiguration)
	assert.ErrorIs(t, addErr, plugin.ErrChainFrozen)
	assert.Empty(t, chain.Extensions())
}

func Test_Chain_RejectsNilAndEmptyExtensions(t *testing.T) {
	// arrange
	chain, err := plugin.NewChain()
	require.NoError(t, err)

	// act
	nilErr := chain.AddExtension(nil)
	emptyErr := chain.AddExtension(&droppingExtension{})

	// assert
	assert.ErrorIs(t, nilErr, plugin.ErrNilExtension)
	assert.ErrorIs(t, emptyErr, plugin.ErrEmptySignatureSet)
	assert.Empty(t, chain.Extensions())
}

func Test_Chain_FailsWhenWrapDropsAConsumedRole(t *testing.T) {
	// arrange
	set, err := plugin.Intercepting(plugin.ExecutorUpdate)
	require.NoError(t, err)

	chain, err := plugin.NewChain()
	require.NoError(t, err)
	require.NoError(t, chain.AddExtension(&droppingExtension{Base: plugin.NewBase(set)}))

	// act
	_, applyErr := chain.ApplyAll(&executorStub{})

	// assert
	assert.ErrorIs(t, applyErr, plugin.ErrConfiguration)
	assert.ErrorIs(t, applyErr, plugin.ErrInvalidWrap)
}

func Test_Chain_IgnoresDroppedRoleTheTargetNeverHad(t *testing.T) {
	// arrange
	set, err := plugin.Intercepting(plugin.ExecutorUpdate)
	require.NoError(t, err)

	chain, err := plugin.NewChain()
	require.NoError(t, err)
	require.NoError(t, chain.AddExtension(&droppingExtension{Base: plugin.NewBase(set)}))

	// act
	_, applyErr := chain.ApplyAll(statementHandlerStub{})

	// assert
	assert.NoError(t, applyErr)
}

func Test_Chain_ApplyRejectsNilTarget(t *testing.T) {
	// arrange
	chain, err := plugin.NewChain()
	require.NoError(t, err)

	// act
	_, applyErr := chain.ApplyAll(nil)

	// assert
	assert.ErrorIs(t, applyErr, plugin.ErrNilTarget)
}

func Test_Chain_LogsRegistrationAndFreeze(t *testing.T) {
	// arrange
	logHandler := helper.NewLogHandlerSpy(false)
	log := make([]string, 0)

	chain, err := plugin.NewChain(plugin.WithChainLogger(slog.New(logHandler)))
	require.NoError(t, err)

	// act
	require.NoError(t, chain.AddExtension(loggingExtension("A", &log, plugin.ExecutorUpdate)))
	chain.Freeze()
	chain.Freeze()

	// assert
	assert.True(t, logHandler.HasDebugLogWithMessage("extension registered").
		WithAttr("signatures").
		WithAttrValue("position", "0").
		Assert())
	assert.True(t, logHandler.HasInfoLogWithMessage("extension chain frozen").
		WithAttrValue("extension_count", "1").
		Assert())
	assert.Equal(t, 2, logHandler.GetRecordCount(), "a second Freeze logs nothing")
}
