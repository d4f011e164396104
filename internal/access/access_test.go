package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"moi-note/internal/domain"
)

const adminEmail = "admin@money-tracker.com"

var (
	adminSession       = &domain.Session{ID: "s-admin", UserID: "a", Email: adminEmail, Role: domain.RoleAdmin}
	contributorSession = &domain.Session{ID: "s-alice", UserID: "u", Email: "alice@example.com", Role: domain.RoleContributor}
	allPaths           = []string{"/", "/entry", "/records", "/admin", "/records/", "/records/42", "/admin/users", "/unknown", "", "entry", "/entry?tab=1"}
)

func TestRoleResolver(t *testing.T) {
	r := NewRoleResolver(adminEmail)

	tests := []struct {
		name    string
		session *domain.Session
		want    domain.Role
	}{
		{name: "no session", session: nil, want: domain.RoleAnonymous},
		{name: "admin claim", session: &domain.Session{Email: "other@example.com", Role: domain.RoleAdmin}, want: domain.RoleAdmin},
		{name: "contributor claim wins over email", session: &domain.Session{Email: adminEmail, Role: domain.RoleContributor}, want: domain.RoleContributor},
		{name: "legacy admin email", session: &domain.Session{Email: adminEmail}, want: domain.RoleAdmin},
		{name: "legacy match is case sensitive", session: &domain.Session{Email: "Admin@Money-Tracker.com"}, want: domain.RoleContributor},
		{name: "legacy contributor", session: &domain.Session{Email: "alice@example.com"}, want: domain.RoleContributor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve(tt.session))
		})
	}
}

func TestPageOf(t *testing.T) {
	cases := map[string]string{
		"":                "/",
		"/":               "/",
		"entry":           "/entry",
		"/records/":       "/records",
		"/records/42":     "/records",
		"/admin/../entry": "/entry",
		"/entry?tab=1":    "/entry",
		"/admin#users":    "/admin",
	}
	for in, want := range cases {
		assert.Equal(t, want, PageOf(in), in)
	}
}

func TestGuard_Decide(t *testing.T) {
	g := NewGuard(NewRoleResolver(adminEmail))

	tests := []struct {
		name    string
		session *domain.Session
		state   domain.LoginState
		path    string
		want    Decision
	}{
		{name: "anonymous login page", path: "/", want: Decision{Outcome: Allow, Path: "/"}},
		{name: "anonymous admin", path: "/admin", want: Decision{Outcome: Redirect, Path: "/admin", Target: "/"}},
		{name: "anonymous entry", path: "/entry", want: Decision{Outcome: Redirect, Path: "/entry", Target: "/"}},
		{name: "contributor admin", session: contributorSession, state: domain.LoginStateNormal, path: "/admin", want: Decision{Outcome: Redirect, Path: "/admin", Target: "/entry"}},
		{name: "contributor records", session: contributorSession, state: domain.LoginStateNormal, path: "/records", want: Decision{Outcome: Allow, Path: "/records"}},
		{name: "contributor login page", session: contributorSession, state: domain.LoginStateNormal, path: "/", want: Decision{Outcome: Redirect, Path: "/", Target: "/entry"}},
		{name: "admin entry", session: adminSession, state: domain.LoginStateNormal, path: "/entry", want: Decision{Outcome: Redirect, Path: "/entry", Target: "/admin"}},
		{name: "admin records", session: adminSession, state: domain.LoginStateNormal, path: "/records/", want: Decision{Outcome: Redirect, Path: "/records", Target: "/admin"}},
		{name: "admin admin", session: adminSession, state: domain.LoginStateNormal, path: "/admin", want: Decision{Outcome: Allow, Path: "/admin"}},
		{name: "admin login page", session: adminSession, state: domain.LoginStateNormal, path: "/", want: Decision{Outcome: Redirect, Path: "/", Target: "/admin"}},
		{name: "pending reset entry", session: contributorSession, state: domain.LoginStatePendingReset, path: "/entry", want: Decision{Outcome: ForcePasswordChange, Path: "/entry"}},
		{name: "pending reset admin", session: contributorSession, state: domain.LoginStatePendingReset, path: "/admin", want: Decision{Outcome: ForcePasswordChange, Path: "/admin"}},
		{name: "unknown page allowed", session: contributorSession, state: domain.LoginStateNormal, path: "/help", want: Decision{Outcome: Allow, Path: "/help"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.Decide(tt.session, tt.state, tt.path))
		})
	}
}

func TestGuard_AdminNeverSentToContributorPage(t *testing.T) {
	g := NewGuard(NewRoleResolver(adminEmail))
	for _, p := range allPaths {
		d := g.Decide(adminSession, domain.LoginStateNormal, p)
		if d.Outcome == Redirect {
			assert.False(t, isContributorPage(d.Target), "path %q redirected to %q", p, d.Target)
		}
		if d.Outcome == Allow {
			assert.False(t, isContributorPage(d.Path), "path %q allowed for admin", p)
		}
	}
	assert.Equal(t, Allow, g.Decide(adminSession, domain.LoginStateNormal, "/admin").Outcome)
}

func TestGuard_PendingResetForcesPasswordChangeEverywhere(t *testing.T) {
	g := NewGuard(NewRoleResolver(adminEmail))
	for _, p := range allPaths {
		assert.Equal(t, ForcePasswordChange, g.Decide(contributorSession, domain.LoginStatePendingReset, p).Outcome, p)
	}
}

func TestHomeOf(t *testing.T) {
	assert.Equal(t, PathAdmin, HomeOf(domain.RoleAdmin))
	assert.Equal(t, PathEntry, HomeOf(domain.RoleContributor))
	assert.Equal(t, PathLogin, HomeOf(domain.RoleAnonymous))
}
