// Package settings owns the user-editable settings document and the theme
// catalogue: typed defaults, deep-merge loading so partial files never lose
// fields, atomic persistence, and a filesystem watcher that applies edits
// made outside the control panel.
//
// Settings changes from any source converge on Manager.Apply, which
// replaces the document in the shared Store and publishes a ReloadNotice
// for workers to re-read their sections.
package settings
