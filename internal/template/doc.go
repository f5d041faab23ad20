// Package template holds squad templates and resolves which version a
// deployment uses.
//
// A template exists in two places: the built-in copy embedded in the binary
// and at most one persisted copy per template name. [Store.Resolve] returns
// whichever has the higher version (the persisted copy on ties) and syncs the
// persisted copy forward in the background when the built-in copy is newer.
// Persisted writes go through [Repository.CompareAndSwap], so the stored
// version never moves backward.
package template
