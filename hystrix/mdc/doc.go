// Package mdc holds the ambient logging context: a string map attached to a
// context.Context and rendered into every record emitted by the log adapters.
//
// A Store is mutable and owned by whoever attached it (an engine worker, a
// request ingress). A Map is an immutable snapshot taken with Capture and
// installed elsewhere with Store.SetContextMap.
//
//	ctx = mdc.WithStore(ctx, mdc.NewStore())
//	_ = mdc.Put(ctx, "user", "42")
//	snapshot := mdc.Capture(ctx)
package mdc
