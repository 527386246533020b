package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sadhanaschool/backend/core/people"
	"github.com/sadhanaschool/backend/core/user"
)

type facultyApi struct {
	svc *people.Service
}

func registerFacultyAPI(g *echo.Group, jwt echo.MiddlewareFunc, _ *authenticator, opts *Options) {
	api := facultyApi{svc: opts.PeopleSvc}
	teacher := requireRoles(user.RoleFaculty)

	fg := g.Group("/faculty", jwt)
	fg.GET("", api.query, requireRoles(user.RoleAdmin))
	fg.GET("/me", api.me, teacher)
	fg.GET("/me/assigned-class-section", api.assignment, teacher)
	fg.GET("/me/students", api.students, teacher)
	fg.PUT("/me/update-assignment", api.updateAssignment, requireRoles(user.RoleAdmin))
}

func (api *facultyApi) query(ctx echo.Context) error {
	faculty, err := api.svc.ListFaculty(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing faculty")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"items": faculty, "count": len(faculty)})
}

func (api *facultyApi) me(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	f, err := api.svc.FacultyByUser(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "finding faculty profile")
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *facultyApi) assignment(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	f, err := api.svc.FacultyByUser(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "finding faculty profile")
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"assigned_class":   f.AssignedClass,
		"assigned_section": f.AssignedSection,
		"faculty_id":       f.ID,
		"subject":          f.Subject,
	})
}

func (api *facultyApi) students(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	f, students, err := api.svc.ClassStudents(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "listing class students")
	}
	if !f.HasAssignment() {
		return ctx.JSON(http.StatusOK, echo.Map{"items": students, "message": "No class assigned to this teacher"})
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"items":      students,
		"count":      len(students),
		"class_name": f.AssignedClass,
		"section":    f.AssignedSection,
	})
}

// updateAssignment is kept for older clients; assignments are made per faculty id.
func (api *facultyApi) updateAssignment(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, messageResponse{Message: "Use POST /admin/faculty/{faculty_id}/assign-class-section instead"})
}
