package interceptor

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Context is the per-invocation state shared by every stage of one chain run.
//
// The chain only ever adds the fields below; keys interceptors put into
// Metadata are left untouched.
type Context struct {
	CorrelationID string
	RequestID     string
	SessionID     string
	Timestamp     time.Time

	Metadata       map[string]any
	Classification Classification
	Metrics        Metrics

	mu sync.RWMutex
}

// Classification is the routing hint produced by classifying interceptors.
type Classification struct {
	Category       string
	Complexity     string
	SuggestedModel string
}

// Metrics records timing and token counts for the invocation.
type Metrics struct {
	StartTime  time.Time
	EndTime    time.Time
	TokenCount int
	Latency    time.Duration
}

// NewContext creates the context for one invocation of req.
func NewContext(req Request) *Context {
	now := time.Now()

	ictx := &Context{
		CorrelationID: ulid.Make().String(),
		RequestID:     uuid.NewString(),
		Timestamp:     now,
		Metadata:      make(map[string]any),
		Metrics:       Metrics{StartTime: now},
	}

	if req.Options != nil {
		ictx.SessionID = req.Options.SessionID
	}

	return ictx
}

// Set stores a metadata value.
func (c *Context) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Metadata == nil {
		c.Metadata = make(map[string]any)
	}

	c.Metadata[key] = value
}

// Get returns a metadata value.
func (c *Context) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.Metadata[key]

	return v, ok
}

// Value returns the metadata value for key if it holds a T.
func Value[T any](c *Context, key string) (T, bool) {
	var zero T

	v, ok := c.Get(key)
	if !ok {
		return zero, false
	}

	typed, ok := v.(T)

	return typed, ok
}

// finish stamps the end of the invocation.
func (c *Context) finish() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Metrics.EndTime = time.Now()
	c.Metrics.Latency = c.Metrics.EndTime.Sub(c.Metrics.StartTime)
}

// metadataSize is the JSON size of Metadata. Values that cannot be encoded
// are measured by their printed form.
func (c *Context) metadataSize() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.Metadata) == 0 {
		return 0
	}

	data, err := json.Marshal(c.Metadata)
	if err != nil {
		return len(fmt.Sprint(c.Metadata))
	}

	return len(data)
}
