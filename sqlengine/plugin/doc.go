// Package plugin composes extensions around the engine's role objects.
//
// An Extension declares, through a SignatureSet, which methods of which roles it intercepts.
// Wrap puts a role object behind a capability proxy that routes exactly those methods through
// the extension's Intercept and calls the target directly for everything else.
// A Chain applies all registered extensions in registration order, so the last registered
// extension is the outermost one.
//
// Common usage pattern:
//
//	signatures, err := plugin.Intercepting(plugin.ExecutorUpdate)
//	if err != nil {
//		// handle error
//	}
//
//	audit := plugin.NewInterceptorFunc(signatures, func(inv *plugin.Invocation) (any, error) {
//		result, err := inv.Proceed()
//		// observe result and err
//		return result, err
//	})
//
//	chain, _ := plugin.NewChain()
//	_ = chain.AddExtension(audit)
//	chain.Freeze()
//
//	executor, err = plugin.Apply(chain, executor)
package plugin
