package access

import (
	"path"
	"strings"

	"moi-note/internal/domain"
)

const (
	PathLogin   = "/"
	PathEntry   = "/entry"
	PathRecords = "/records"
	PathAdmin   = "/admin"

	DefaultContributorPath = PathEntry
)

type Outcome string

const (
	Allow               Outcome = "allow"
	Redirect            Outcome = "redirect"
	ForcePasswordChange Outcome = "change-password"
)

// Decision is the result of a navigation check. Target is set for redirects.
type Decision struct {
	Outcome Outcome `json:"outcome"`
	Path    string  `json:"path"`
	Target  string  `json:"target,omitempty"`
}

// Guard maps (session, first-login state, requested path) to a Decision.
// It holds no state and must be re-evaluated on every navigation and session change.
type Guard struct {
	roles RoleResolver
}

func NewGuard(roles RoleResolver) Guard {
	return Guard{roles: roles}
}

func (g Guard) Role(session *domain.Session) domain.Role {
	return g.roles.Resolve(session)
}

func (g Guard) Decide(session *domain.Session, state domain.LoginState, requested string) Decision {
	page := PageOf(requested)
	if session == nil {
		if page == PathLogin {
			return Decision{Outcome: Allow, Path: page}
		}
		return Decision{Outcome: Redirect, Path: page, Target: PathLogin}
	}

	// the route does not change; the page renders the password form instead
	if state == domain.LoginStatePendingReset {
		return Decision{Outcome: ForcePasswordChange, Path: page}
	}

	role := g.roles.Resolve(session)
	switch {
	case role == domain.RoleAdmin && isContributorPage(page):
		return Decision{Outcome: Redirect, Path: page, Target: PathAdmin}
	case role == domain.RoleContributor && page == PathAdmin:
		return Decision{Outcome: Redirect, Path: page, Target: DefaultContributorPath}
	case page == PathLogin:
		return Decision{Outcome: Redirect, Path: page, Target: HomeOf(role)}
	}
	return Decision{Outcome: Allow, Path: page}
}

// HomeOf is the page a signed-in role lands on.
func HomeOf(role domain.Role) string {
	switch role {
	case domain.RoleAdmin:
		return PathAdmin
	case domain.RoleContributor:
		return DefaultContributorPath
	}
	return PathLogin
}

// PageOf cleans a requested path down to the page that serves it, so that
// "/records/" and "/records/42" both belong to "/records".
func PageOf(requested string) string {
	if i := strings.IndexAny(requested, "?#"); i >= 0 {
		requested = requested[:i]
	}
	clean := path.Clean("/" + strings.TrimSpace(requested))
	if clean == "/" {
		return PathLogin
	}
	first := strings.SplitN(strings.TrimPrefix(clean, "/"), "/", 2)[0]
	return "/" + first
}

func isContributorPage(page string) bool {
	return page == PathEntry || page == PathRecords
}
