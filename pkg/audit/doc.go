// Package audit records who changed what: session lifecycle events and
// department mapping edits.
//
// Events are written through a Logger. FileLogger appends JSON lines to
// <dir>/audit.log with size-based rotation; MemoryLogger keeps the most
// recent events for the audit API; MultiLogger fans out to several.
//
//	logger := audit.NewMultiLogger(fileLogger, audit.NewMemoryLogger(1000))
//	event := audit.NewEvent(r, audit.EventTypeDirectoryMappingAdd, audit.EventStatusSuccess)
//	event.Actor = id.Email
//	logger.Log(ctx, event)
//
// Audit failures never fail the request that caused them; callers log and
// continue.
package audit
