// Package session holds the state of one goal editor and the manager that
// guarantees at most one editor is open at a time.
//
// State is only mutated through Change values passed to Session.Apply. The
// presentation layer reads State snapshots and sends Changes back; it never
// writes fields directly. Timestamp edits arrive as the strings the user
// typed and are converted to UTC by the session's timefmt.Normalizer.
package session
