package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"slices"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/wagiedev/claude-pipeline-go/internal/config"
	"github.com/wagiedev/claude-pipeline-go/internal/interceptor"
	"github.com/wagiedev/claude-pipeline-go/internal/message"
)

const (
	DefaultCacheTTL     = 10 * time.Minute
	DefaultCacheCleanup = 30 * time.Minute
)

// MetaCacheKey is the metadata key holding the cache key of a request.
const MetaCacheKey = "cache_key"

// ResponseCache stores completed message streams by request.
type ResponseCache struct {
	log   *slog.Logger
	cache *gocache.Cache
}

// NewResponseCache creates a cache. Zero durations select the defaults.
func NewResponseCache(log *slog.Logger, ttl, cleanup time.Duration) *ResponseCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	if cleanup <= 0 {
		cleanup = DefaultCacheCleanup
	}

	return &ResponseCache{
		log:   log.With("component", "response_cache"),
		cache: gocache.New(ttl, cleanup),
	}
}

// cacheKeyFields are the options that shape the answer. Map keys are
// written in sorted order by encoding/json.
type cacheKeyFields struct {
	Prompt             string                      `json:"prompt"`
	CliPath            string                      `json:"cli_path,omitempty"`
	Model              string                      `json:"model,omitempty"`
	FallbackModel      string                      `json:"fallback_model,omitempty"`
	SystemPrompt       string                      `json:"system_prompt,omitempty"`
	AppendSystemPrompt string                      `json:"append_system_prompt,omitempty"`
	PermissionMode     string                      `json:"permission_mode,omitempty"`
	Cwd                string                      `json:"cwd,omitempty"`
	AllowedTools       []string                    `json:"allowed_tools,omitempty"`
	DisallowedTools    []string                    `json:"disallowed_tools,omitempty"`
	AddDirs            []string                    `json:"add_dirs,omitempty"`
	MaxTurns           int                         `json:"max_turns,omitempty"`
	Env                map[string]string           `json:"env,omitempty"`
	MCPServers         map[string]config.MCPServer `json:"mcp_servers,omitempty"`
	MCPConfig          string                      `json:"mcp_config,omitempty"`
	OutputSchema       map[string]any              `json:"output_schema,omitempty"`
	ExtraArgs          map[string]*string          `json:"extra_args,omitempty"`
}

// Key derives the cache key for req from everything that shapes the answer.
// It returns "" when the options cannot be encoded; such requests are not
// cached.
func (c *ResponseCache) Key(req interceptor.Request) string {
	fields := cacheKeyFields{Prompt: req.Prompt}

	if o := req.Options; o != nil {
		fields.CliPath = o.CliPath
		fields.Model = o.Model
		fields.FallbackModel = o.FallbackModel
		fields.SystemPrompt = o.SystemPrompt
		fields.AppendSystemPrompt = o.AppendSystemPrompt
		fields.PermissionMode = config.NormalizePermissionMode(o.PermissionMode)
		fields.Cwd = o.Cwd
		fields.AllowedTools = o.AllowedTools
		fields.DisallowedTools = o.DisallowedTools
		fields.AddDirs = o.AddDirs
		fields.MaxTurns = o.MaxTurns
		fields.Env = o.Env
		fields.MCPServers = o.MCPServers
		fields.MCPConfig = o.MCPConfig
		fields.OutputSchema = o.OutputSchema
		fields.ExtraArgs = o.ExtraArgs
	}

	raw, err := json.Marshal(fields)
	if err != nil {
		c.log.Warn("Failed to encode cache key", "error", err)

		return ""
	}

	sum := sha256.Sum256(raw)

	return hex.EncodeToString(sum[:])
}

// Get returns the messages stored under key.
func (c *ResponseCache) Get(key string) ([]message.Message, bool) {
	v, found := c.cache.Get(key)
	if !found {
		return nil, false
	}

	msgs, ok := v.([]message.Message)
	if !ok {
		c.log.Error("Unexpected cache entry type", "key", key)

		return nil, false
	}

	return msgs, true
}

// Put stores msgs under key with the default expiration.
func (c *ResponseCache) Put(key string, msgs []message.Message) {
	c.cache.SetDefault(key, slices.Clone(msgs))
}

// Len returns the number of entries, including expired ones not yet evicted.
func (c *ResponseCache) Len() int {
	return c.cache.ItemCount()
}

// Flush removes every entry.
func (c *ResponseCache) Flush() {
	c.cache.Flush()
}

// Cache answers repeated requests from cache. A miss records the stream once
// it drains without error and carries no error result. Requests resuming a
// session bypass the cache since their answer depends on session state.
func Cache(cache *ResponseCache) interceptor.Interceptor {
	return interceptor.Interceptor{
		Name: "cache",
		Intercept: func(
			ctx context.Context,
			req interceptor.Request,
			ictx *interceptor.Context,
			next interceptor.Handler,
		) (interceptor.Response, error) {
			if req.Options != nil && req.Options.SessionID != "" {
				return next(ctx, req, ictx)
			}

			key := cache.Key(req)
			if key == "" {
				return next(ctx, req, ictx)
			}

			ictx.Set(MetaCacheKey, key)

			if msgs, ok := cache.Get(key); ok {
				cache.log.Debug("Cache hit", "key", key, "correlation_id", ictx.CorrelationID)

				return interceptor.Response{
					Messages: replay(msgs),
					Metadata: &interceptor.ResponseMetadata{Model: requestModel(req), CacheHit: true},
				}, nil
			}

			resp, err := next(ctx, req, ictx)
			if err != nil {
				return resp, err
			}

			var (
				collected []message.Message
				failed    bool
			)

			resp.Messages = observe(resp.Messages,
				func(msg message.Message) {
					collected = append(collected, msg)

					if r, ok := msg.(*message.ResultMessage); ok && r.IsError {
						failed = true
					}
				},
				func(err error, complete bool) {
					if err != nil || !complete || failed || len(collected) == 0 {
						return
					}

					cache.Put(key, collected)
					cache.log.Debug("Cached response", "key", key, "messages", len(collected))
				},
			)

			return resp, nil
		},
	}
}
