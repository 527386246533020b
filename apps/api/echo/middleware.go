package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/sadhanaschool/backend/core"
	"github.com/sadhanaschool/backend/core/user"
)

// requireRoles lets the request through when the stored account holds one of roles.
// It runs after the jwt middleware, which loads the account.
func requireRoles(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, ok := ctx.Get(contextUserKey).(user.User)
			if !ok {
				return errUnauthorized
			}
			if core.Contains(roles, usr.Role) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}
