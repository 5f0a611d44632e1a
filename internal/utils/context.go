package utils

import "context"

type contextKey string

const (
	OperatorKey     contextKey = "operator"
	OperatorRoleKey contextKey = "operator_role"
)

type ctxKey string

const internalRequestKey ctxKey = "internal_request"

// SetOperatorContext stores the authenticated operator (called by middleware).
func SetOperatorContext(ctx context.Context, subject, role string) context.Context {
	ctx = context.WithValue(ctx, OperatorKey, subject)
	ctx = context.WithValue(ctx, OperatorRoleKey, role)
	return ctx
}

func GetOperatorFromContext(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(OperatorKey).(string)
	return subject, ok && subject != ""
}

func GetOperatorRoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(OperatorRoleKey).(string)
	return role
}

func WithInternalRequest(ctx context.Context) context.Context {
	return context.WithValue(ctx, internalRequestKey, true)
}

func IsInternalRequest(ctx context.Context) bool {
	v, _ := ctx.Value(internalRequestKey).(bool)
	return v
}
