// Package response implements the lazy, memoizing consumer of an invocation's
// message stream.
//
// The underlying stream is pulled at most once. The first call to any view
// (Text, JSON, ToolCalls, Usage, SessionID, ...) or to Stream drains it into
// an append-only cache that every later view reads from.
package response
