// Package session persists captured CLI session ids so a conversation can be
// resumed across process restarts.
package session
