// Package access decides who may reach which page.
package access

import "moi-note/internal/domain"

// RoleResolver derives the role of a session.
type RoleResolver struct {
	adminEmail string
}

// NewRoleResolver returns a resolver that treats adminEmail as the legacy admin identity.
func NewRoleResolver(adminEmail string) RoleResolver {
	return RoleResolver{adminEmail: adminEmail}
}

// Resolve prefers the role claim issued by the identity provider.
func (r RoleResolver) Resolve(session *domain.Session) domain.Role {
	if session == nil {
		return domain.RoleAnonymous
	}
	if session.Role.Valid() {
		return session.Role
	}
	// TODO: drop the email comparison once every issued token carries a role claim.
	if r.adminEmail != "" && session.Email == r.adminEmail {
		return domain.RoleAdmin
	}
	return domain.RoleContributor
}
