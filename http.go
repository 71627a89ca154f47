package session

import (
	"time"

	"github.com/goliatone/go-router"
)

// DefaultRejectedRouteKey names the cookie that preserves the originally
// requested location across a login redirect.
const DefaultRejectedRouteKey = "rejected_route"

// SetRedirect remembers the originally requested URL so a successful login
// can return the user to their intended destination.
func SetRedirect(ctx router.Context, key string) {
	if key == "" {
		key = DefaultRejectedRouteKey
	}

	ctx.Cookie(&router.Cookie{
		Name:     key,
		Value:    ctx.OriginalURL(),
		Expires:  time.Now().Add(time.Minute * 5),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

// GetRedirect pops the remembered URL, falling back to def when none is set.
func GetRedirect(ctx router.Context, key string, def string) string {
	if key == "" {
		key = DefaultRejectedRouteKey
	}

	r := ctx.Cookies(key)
	if r == "" {
		return def
	}
	cookieDel(ctx, key)
	return r
}

func cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}
