// Package wal names the write-ahead-log collaborator that a buffer pool
// consults before flushing a dirty page (the WAL rule). Recovery and
// durable logging themselves are out of scope here, but the buffer
// pool's call site into a LogManager is not, so a no-op stand-in is
// provided to satisfy that dependency.
package wal

import "github.com/Think5UP/bustub-private/common"

// LogManager is the interface a buffer pool flushes through before writing
// a dirty page back to disk. A real implementation would guarantee the
// page's log records are durable first (the WAL rule); this module does
// not implement recovery, so NoopLogManager below is the only
// implementation.
type LogManager interface {
	// Flush blocks until every log record up to and including the one most
	// recently appended for pageID is durable.
	Flush(pageID common.PageID) error
}

// NoopLogManager satisfies LogManager without writing or persisting
// anything. It exists so BufferPoolManager has a real collaborator to call
// even though this module does not implement recovery.
type NoopLogManager struct{}

// NewNoopLogManager returns a LogManager whose Flush is always an
// immediate no-op success.
func NewNoopLogManager() *NoopLogManager { return &NoopLogManager{} }

func (*NoopLogManager) Flush(common.PageID) error { return nil }
