package reqctx

import "context"

type ctxKey string

const (
	keyRequestID ctxKey = "request_id"
	keyUID       ctxKey = "uid"
)

// WithRequestID stores the request correlation id for logs.
func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, keyRequestID, rid)
}

// RequestID returns the correlation id if present.
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(keyRequestID).(string)
	return v
}

// WithUID stores the authenticated user id.
func WithUID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, keyUID, uid)
}

// UID returns the authenticated user id, or "" for anonymous requests.
func UID(ctx context.Context) string {
	v, _ := ctx.Value(keyUID).(string)
	return v
}
