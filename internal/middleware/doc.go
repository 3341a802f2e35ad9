// Package middleware provides ready-made interceptors for the query chain.
//
// Interceptors that need to see the response wrap the message stream rather
// than draining it, so the stream stays lazy and single-use. Observation
// callbacks run on the consumer's goroutine as messages are pulled.
package middleware
