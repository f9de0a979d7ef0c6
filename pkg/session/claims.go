package session

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mitchellh/mapstructure"
)

// ParseClaims decodes the claims of an access token without verifying its
// signature. Verification belongs to the resource server (see pkg/guard);
// here claims feed display state and role extraction only.
func ParseClaims(accessToken string) (map[string]any, error) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(accessToken, claims); err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}
	return claims, nil
}

// ExtractProviderRoles reads the provider role strings from token claims.
// Supports:
//   - Flat arrays: ["jafr-admin", "jafr-reader"]
//   - Nested objects: [{"name": "jafr-admin"}] with claimPath="name"
func ExtractProviderRoles(claims map[string]any, claimField, claimPath string) ([]string, error) {
	rawValue, ok := claims[claimField]
	if !ok {
		// Absent claim means the user simply has no provider roles.
		return []string{}, nil
	}

	if roles, ok := rawValue.([]any); ok {
		result := make([]string, 0, len(roles))
		for _, r := range roles {
			if str, ok := r.(string); ok {
				result = append(result, str)
			}
		}
		if len(result) > 0 || claimPath == "" {
			return result, nil
		}
	}

	if claimPath != "" {
		return extractNestedRoles(rawValue, claimPath)
	}

	return nil, fmt.Errorf("roles claim %s has invalid format (expected []string or []object with path)", claimField)
}

// extractNestedRoles uses mapstructure to extract from nested objects.
// Only simple single-level paths are supported.
func extractNestedRoles(rawValue any, path string) ([]string, error) {
	var objects []map[string]any
	if err := mapstructure.Decode(rawValue, &objects); err != nil {
		return nil, fmt.Errorf("decode nested roles claim: %w", err)
	}

	result := make([]string, 0, len(objects))
	for _, obj := range objects {
		if val, ok := obj[path].(string); ok {
			result = append(result, val)
		}
	}
	return result, nil
}

// claimString extracts a string claim, returning "" when absent.
func claimString(claims map[string]any, field string) string {
	value, _ := claims[field].(string)
	return value
}
