// Package dashboard holds the per-session state of the students page: the
// current page and search, the row selection, the listing fetch lifecycle and
// the delete confirmation dialog.
//
// State carries no I/O. Callers serialise access per session, call the
// transition methods in response to requests or timers, and persist the
// value between requests.
package dashboard
