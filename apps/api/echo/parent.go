package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sadhanaschool/backend/core/people"
	"github.com/sadhanaschool/backend/core/user"
)

type parentApi struct {
	svc *people.Service
}

func registerParentAPI(g *echo.Group, jwt echo.MiddlewareFunc, _ *authenticator, opts *Options) {
	api := parentApi{svc: opts.PeopleSvc}
	parent := requireRoles(user.RoleParent)

	pg := g.Group("/parents", jwt)
	pg.GET("/me/children", api.children, parent)
	pg.GET("/by-student/:student_id", api.byStudent, requireRoles(user.RoleAdmin, user.RoleFaculty))
	pg.POST("/link-child/:student_id", api.linkChild, parent)
	pg.GET("/student/:student_id/fees", api.childFees, parent)
	pg.GET("/:parent_id", api.get, requireRoles(user.RoleAdmin))
}

func (api *parentApi) children(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	students, err := api.svc.Children(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "listing children")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *parentApi) get(ctx echo.Context) error {
	p, err := api.svc.GetParent(ctx.Request().Context(), ctx.Param("parent_id"))
	if err != nil {
		return errors.Wrap(err, "finding parent")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *parentApi) byStudent(ctx echo.Context) error {
	parents, err := api.svc.ParentsOfStudent(ctx.Request().Context(), ctx.Param("student_id"))
	if err != nil {
		return errors.Wrap(err, "listing student parents")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"parents": parents, "count": len(parents)})
}

func (api *parentApi) linkChild(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.LinkChild(ctx.Request().Context(), claims.Subject, ctx.Param("student_id")); err != nil {
		return errors.Wrap(err, "linking child")
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: "Child linked successfully"})
}

func (api *parentApi) childFees(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	t, err := api.svc.ChildFees(ctx.Request().Context(), claims.Subject, ctx.Param("student_id"))
	if err != nil {
		return errors.Wrap(err, "loading child fees")
	}
	return ctx.JSON(http.StatusOK, t)
}
