package guard

import "context"

// Principal captures the identity attached to a request after the
// authentication gate has run.
type Principal struct {
	// Subject is the stable provider subject identifier.
	Subject string
	// Email is optional and present when the token carries it.
	Email string
	// ProviderRoles are the raw role strings from the provider token.
	ProviderRoles []string
}

type principalContextKey struct{}

// SetPrincipal stores the authenticated principal on the context.
func SetPrincipal(ctx context.Context, principal Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, principal)
}

// PrincipalFromContext retrieves the authenticated principal.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	principal, ok := ctx.Value(principalContextKey{}).(Principal)
	return principal, ok
}

type claimsContextKey struct{}

// SetClaims stores the validated token claims on the context.
func SetClaims(ctx context.Context, claims map[string]any) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// ClaimsFromContext retrieves the validated token claims.
func ClaimsFromContext(ctx context.Context) (map[string]any, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(map[string]any)
	return claims, ok
}
