package services

import "context"

type contextKey string

const (
	shardKey contextKey = "shard"
	jobKey   contextKey = "job"
	urlKey   contextKey = "url"
)

// WithShard annotates context with the worker rank being processed.
func WithShard(ctx context.Context, rank int) context.Context {
	return context.WithValue(ctx, shardKey, rank)
}

// ShardFromContext extracts the worker rank if present.
func ShardFromContext(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(shardKey).(int)
	return v, ok
}

// WithJob annotates context with the attempt (job) identifier.
func WithJob(ctx context.Context, job string) context.Context {
	if job == "" {
		return ctx
	}
	return context.WithValue(ctx, jobKey, job)
}

// JobFromContext returns the attempt identifier if present.
func JobFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(jobKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithURL annotates context with the url of the record in flight.
func WithURL(ctx context.Context, url string) context.Context {
	if url == "" {
		return ctx
	}
	return context.WithValue(ctx, urlKey, url)
}

// URLFromContext returns the record url if present.
func URLFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(urlKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
