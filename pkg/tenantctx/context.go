// Package tenantctx carries the billing principal through request contexts.
package tenantctx

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type keyType string

const tenantIDKey keyType = "tenant_id"

func WithTenantID(ctx context.Context, id snowflake.ID) context.Context {
	return context.WithValue(ctx, tenantIDKey, id)
}

func TenantID(ctx context.Context) (snowflake.ID, bool) {
	id, ok := ctx.Value(tenantIDKey).(snowflake.ID)
	return id, ok
}
