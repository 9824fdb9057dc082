package httpx

import (
	"context"

	"github.com/aussiebroadwan/agrowcrop/pkg/jwtx"
)

type ctxKey string

const (
	CtxKeyPhone  ctxKey = "phone"
	CtxKeyRole   ctxKey = "role"
	CtxKeyClaims ctxKey = "claims"
)

func contextWithAuth(ctx context.Context, c jwtx.Claims) context.Context {
	ctx = context.WithValue(ctx, CtxKeyPhone, c.Phone)
	ctx = context.WithValue(ctx, CtxKeyRole, c.Role)
	ctx = context.WithValue(ctx, CtxKeyClaims, c)
	return ctx
}

// ClaimsFromContext returns the verified session claims set by AuthnMiddleware.
func ClaimsFromContext(ctx context.Context) (jwtx.Claims, bool) {
	c, ok := ctx.Value(CtxKeyClaims).(jwtx.Claims)
	return c, ok
}

func PhoneFromContext(ctx context.Context) string {
	v, _ := ctx.Value(CtxKeyPhone).(string)
	return v
}
