// Package observe runs a view-model mapping against a fact source.
//
// An Observer owns exactly one store at a time. Start builds the initial
// snapshot from the root fact and opens the mapping's subscriptions; every
// subsequent change arrives as a store.Transformer and is applied under a
// lock, producing a new revision that shares unchanged subtrees with the
// old one.
//
// Restarting with a different root discards the previous tree entirely,
// and transformers still in flight from the old root are dropped.
package observe
