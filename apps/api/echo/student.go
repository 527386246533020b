package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sadhanaschool/backend/core/people"
	"github.com/sadhanaschool/backend/core/user"
)

type studentApi struct {
	svc *people.Service
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, _ *authenticator, opts *Options) {
	api := studentApi{svc: opts.PeopleSvc}

	sg := g.Group("/students", jwt)
	sg.GET("", api.query, requireRoles(user.RoleAdmin, user.RoleFaculty))
	sg.GET("/class/:class_name/section/:section", api.querySection, requireRoles(user.RoleFaculty, user.RoleAdmin))
	sg.GET("/me", api.me, requireRoles(user.RoleStudent))
}

func (api *studentApi) query(ctx echo.Context) error {
	page := bindPage(ctx)
	students, err := api.svc.ListStudents(ctx.Request().Context(), page)
	if err != nil {
		return errors.Wrap(err, "listing students")
	}
	return ctx.JSON(http.StatusOK, newPageResponse(students, len(students), page))
}

func (api *studentApi) querySection(ctx echo.Context) error {
	students, err := api.svc.StudentsInSection(ctx.Request().Context(), ctx.Param("class_name"), ctx.Param("section"))
	if err != nil {
		return errors.Wrap(err, "listing section students")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"items": students, "count": len(students)})
}

func (api *studentApi) me(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	stu, err := api.svc.StudentByUser(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "finding student profile")
	}
	return ctx.JSON(http.StatusOK, stu)
}
