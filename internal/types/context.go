package types

import "context"

type ContextKey string

const (
	CtxRequestID ContextKey = "ctx_request_id"
	CtxUserID    ContextKey = "ctx_user_id"
	CtxTenantID  ContextKey = "ctx_tenant_id"
	CtxRole      ContextKey = "ctx_role"
	CtxJWT       ContextKey = "ctx_jwt"

	DefaultUserID = "00000000-0000-0000-0000-000000000000"
)

// Role is the capability set a caller was authenticated with.
type Role string

const (
	RoleTenant Role = "tenant"
	RoleAdmin  Role = "admin"
	// RoleSystem is used by background jobs.
	RoleSystem Role = "system"
)

func (r Role) CanManagePayments() bool {
	return r == RoleAdmin || r == RoleSystem
}

func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(CtxUserID).(string); ok {
		return userID
	}
	return ""
}

func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(CtxRequestID).(string); ok {
		return requestID
	}
	return ""
}

// GetTenantID is the tenant an authenticated tenant-role caller acts as.
func GetTenantID(ctx context.Context) string {
	if tenantID, ok := ctx.Value(CtxTenantID).(string); ok {
		return tenantID
	}
	return ""
}

func GetRole(ctx context.Context) Role {
	if role, ok := ctx.Value(CtxRole).(Role); ok {
		return role
	}
	return ""
}

func SetUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, CtxUserID, userID)
}

func SetRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, CtxRequestID, requestID)
}

func SetTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, CtxTenantID, tenantID)
}

func SetRole(ctx context.Context, role Role) context.Context {
	return context.WithValue(ctx, CtxRole, role)
}

// WithSystemActor marks ctx as a background job acting on behalf of nobody.
func WithSystemActor(ctx context.Context) context.Context {
	ctx = SetUserID(ctx, DefaultUserID)
	return SetRole(ctx, RoleSystem)
}
