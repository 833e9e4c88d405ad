// Package watchfs abstracts "a watched directory changed" into a stream of
// per-file events. Two implementations exist: NotifySource rides OS change
// notifications via fsnotify, and PollSource falls back to periodic directory
// scans with size/mtime snapshot diffing. Open selects between them at
// startup; the fallback is transparent and never a startup failure.
package watchfs
