package service

import (
	"github.com/identitystore/identity-service/internal/core/domain"
	"github.com/identitystore/identity-service/internal/pkg/metrics"
)

const (
	policyAdminOnly = "admin_only"
	policySelfOnly  = "self_only"
)

// Authorizer evaluates the admin-only and self-only policies against an
// explicitly supplied principal.
type Authorizer struct{}

// RequireAdmin permits the call iff p holds the administrative role.
func (Authorizer) RequireAdmin(p domain.Principal) error {
	if p.IsAdmin() {
		return nil
	}
	metrics.AuthorizationDenialsTotal.WithLabelValues(policyAdminOnly).Inc()
	return domain.ErrAccessDenied
}

// RequireSelf permits the call when the target belongs to p. Administrators
// bypass the check.
func (Authorizer) RequireSelf(p domain.Principal, ownerUsername string) error {
	if p.Name != "" && p.Name == ownerUsername {
		return nil
	}
	if p.IsAdmin() {
		return nil
	}
	metrics.AuthorizationDenialsTotal.WithLabelValues(policySelfOnly).Inc()
	return domain.ErrAccessDenied
}
