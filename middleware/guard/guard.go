// Package guard provides the role-based route guards for the portal's four
// route trees. All variants evaluate one decision table: unauthenticated
// requests on protected trees are redirected to the login route with the
// original URL preserved; authenticated users on the wrong tree are
// redirected per policy; public routes bounce authenticated users to their
// role's home.
package guard

import (
	"net/http"

	"github.com/goliatone/go-router"
	session "github.com/goliatone/go-session"
)

// SessionReader is the read-only view of the session store that guards
// need. This mirrors session.Store.Snapshot without tying the middleware to
// the concrete type.
type SessionReader interface {
	Snapshot() session.Snapshot
}

// Policy selects which column of the decision table a guard enforces.
type Policy string

const (
	// PolicyPublic admits unauthenticated users and bounces authenticated
	// ones to their role's home.
	PolicyPublic Policy = "public"
	// PolicyAdmin admits ADMINISTRADOR only.
	PolicyAdmin Policy = "admin"
	// PolicyEmployee admits EMPLEADO only.
	PolicyEmployee Policy = "employee"
	// PolicyClient admits CLIENTE only.
	PolicyClient Policy = "client"
)

type Config struct {
	// Store is required.
	Store SessionReader
	// Policy defaults to PolicyPublic.
	Policy Policy
	// LoginPath receives unauthenticated requests. Defaults to /auth/login.
	LoginPath string
	// MismatchTarget receives authenticated users whose role does not match
	// the policy. Defaults follow the portal's routing table: admin trees
	// send mismatches to /employee, employee trees to /admin, client trees
	// to the login route.
	MismatchTarget string
	// RejectedRouteKey names the cookie preserving the original URL for the
	// unauthenticated case only; role mismatches do not set it.
	RejectedRouteKey string
	// Filter skips the guard for matching requests.
	Filter func(router.Context) bool
}

// GetDefaultConfig fills the zero values of an optional user config.
func GetDefaultConfig(config ...Config) Config {
	cfg := Config{}
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Store == nil {
		panic("guard: missing session store")
	}

	if cfg.Policy == "" {
		cfg.Policy = PolicyPublic
	}

	if cfg.LoginPath == "" {
		cfg.LoginPath = "/auth/login"
	}

	if cfg.MismatchTarget == "" {
		switch cfg.Policy {
		case PolicyAdmin:
			cfg.MismatchTarget = session.RoleEmployee.Home()
		case PolicyEmployee:
			cfg.MismatchTarget = session.RoleAdministrator.Home()
		default:
			cfg.MismatchTarget = cfg.LoginPath
		}
	}

	if cfg.RejectedRouteKey == "" {
		cfg.RejectedRouteKey = session.DefaultRejectedRouteKey
	}

	return cfg
}

// New returns the guard middleware for the given config.
func New(config ...Config) router.MiddlewareFunc {
	cfg := GetDefaultConfig(config...)

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return next(ctx)
			}

			snap := cfg.Store.Snapshot()

			if cfg.Policy == PolicyPublic {
				if snap.IsAuthenticated() {
					return redirect(ctx, snap.Home())
				}
				return next(ctx)
			}

			if !snap.IsAuthenticated() {
				session.SetRedirect(ctx, cfg.RejectedRouteKey)
				return redirect(ctx, cfg.LoginPath)
			}

			if snap.Role() != requiredRole(cfg.Policy) {
				return redirect(ctx, cfg.MismatchTarget)
			}

			return next(ctx)
		}
	}
}

// Public guards the auth screens: login, registration, recovery.
func Public(store SessionReader) router.MiddlewareFunc {
	return New(Config{Store: store, Policy: PolicyPublic})
}

// AdminOnly guards the /admin tree.
func AdminOnly(store SessionReader) router.MiddlewareFunc {
	return New(Config{Store: store, Policy: PolicyAdmin})
}

// EmployeeOnly guards the /employee tree.
func EmployeeOnly(store SessionReader) router.MiddlewareFunc {
	return New(Config{Store: store, Policy: PolicyEmployee})
}

// ClientOnly guards the /client tree.
func ClientOnly(store SessionReader) router.MiddlewareFunc {
	return New(Config{Store: store, Policy: PolicyClient})
}

func requiredRole(policy Policy) session.Role {
	switch policy {
	case PolicyAdmin:
		return session.RoleAdministrator
	case PolicyEmployee:
		return session.RoleEmployee
	case PolicyClient:
		return session.RoleClient
	default:
		return ""
	}
}

func redirect(ctx router.Context, target string) error {
	statusCode := http.StatusSeeOther
	if ctx.Method() == string(router.GET) {
		statusCode = http.StatusFound
	}
	return ctx.Redirect(target, statusCode)
}
