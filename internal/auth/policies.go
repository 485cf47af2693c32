package auth

import (
	"fmt"

	"go-wiki-cms/internal/logger"

	"github.com/casbin/casbin/v2"
)

// SeedDefaultPolicies ensures that the application has a baseline set of
// authorization rules. Each policy is checked before being added, so the
// seeding is idempotent and safe to run on every start.
//
// The role ladder is anonymous < writer < admin: writers manage content
// but cannot delete; deletion stays admin-only. Publishing is restricted
// at the service layer rather than by route, since save and publish share
// an endpoint.
func SeedDefaultPolicies(e casbin.IEnforcer, log logger.Logger) {
	log.Info("Seeding default authorization policies...")

	policies := [][]string{
		// Anonymous readers browse, search and authenticate.
		{"anonymous", "/", "GET"},
		{"anonymous", "/wiki/*", "GET"},
		{"anonymous", "/tag/*", "GET"},
		{"anonymous", "/search", "GET"},
		{"anonymous", "/api/search", "GET"},
		{"anonymous", "/search/click", "POST"},
		{"anonymous", "/sitemap.xml", "GET"},
		{"anonymous", "/robots.txt", "GET"},
		{"anonymous", "/auth/login", "GET"},
		{"anonymous", "/auth/callback", "GET"},
		{"anonymous", "/auth/logout", "GET"},
		{"anonymous", "/static/*", "GET"},
		{"anonymous", "/uploads/*", "GET"},

		// Writers manage pages and uploads.
		{"writer", "/admin", "GET"},
		{"writer", "/admin/new", "GET"},
		{"writer", "/admin/edit/*", "GET"},
		{"writer", "/admin/save", "POST"},
		{"writer", "/admin/upload", "POST"},

		// Only admins delete.
		{"admin", "/admin/delete/*", "POST"},
	}
	for _, p := range policies {
		if has, _ := e.HasPolicy(p); !has {
			if _, err := e.AddPolicy(p); err != nil {
				log.Error(err, fmt.Sprintf("Failed to add policy %v", p))
			}
		}
	}

	inherits := [][2]string{
		{"writer", "anonymous"},
		{"admin", "writer"},
	}
	for _, pair := range inherits {
		if has, _ := e.HasRoleForUser(pair[0], pair[1]); !has {
			if _, err := e.AddRoleForUser(pair[0], pair[1]); err != nil {
				log.Error(err, fmt.Sprintf("Failed to add role inheritance %s -> %s", pair[0], pair[1]))
			}
		}
	}
	log.Info("Policy seeding complete.")
}
