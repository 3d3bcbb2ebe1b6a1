// Package buildctx tracks which build operation is currently active.
//
// # Scopes and stacks
//
// A build or import operation opens a Scope with Begin and releases it when it
// returns, on every path:
//
//	ctx, scope, err := buildctx.Begin(ctx, identity, intermediateDir, outputDir, logger)
//	if err != nil {
//	    return err
//	}
//	defer scope.Release()
//
// Scopes are kept on a Stack. The innermost open scope is the active one and
// is what Active returns; releasing it makes the next one active again.
// Releasing a scope that is not innermost removes it from wherever it sits and
// leaves the others in order.
//
// # Logical tasks
//
// There is no ambient state. The Stack travels on context.Context and every
// operation that needs it receives the context explicitly. A goroutine that
// builds an independent asset calls Spawn first: the child receives a copy of
// its parent's stack as it was at that moment, so it inherits the parent's
// active context, and nothing either side does afterwards is visible to the
// other.
package buildctx
