package echoapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sadhanaschool/backend/core/academic"
	"github.com/sadhanaschool/backend/core/user"
)

type academicApi struct {
	svc  *academic.Service
	auth *authenticator
}

func registerAcademicAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, opts *Options) {
	api := academicApi{svc: opts.AcademicSvc, auth: auth}
	staff := requireRoles(user.RoleFaculty, user.RoleAdmin)

	atg := g.Group("/attendance", jwt)
	atg.POST("/bulk", api.markAttendance, staff)
	atg.GET("/student/:student_id", api.studentAttendance)

	mg := g.Group("/marks", jwt)
	mg.POST("", api.uploadMarks, staff)
	mg.GET("/student/:student_id", api.studentMarks)

	ang := g.Group("/announcements", jwt)
	ang.GET("", api.announcements)
	ang.POST("", api.createAnnouncement, requireRoles(user.RoleAdmin, user.RoleFaculty))

	tg := g.Group("/timetable", jwt)
	tg.POST("", api.saveTimetable, requireRoles(user.RoleAdmin))
	tg.GET("/:class_name/:section", api.timetable)

	ng := g.Group("/notifications", jwt)
	ng.GET("", api.notifications)
	ng.POST("", api.notify, staff)
	ng.PUT("/:id/read", api.markRead)
}

func (api *academicApi) markAttendance(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	var data academic.BulkAttendance
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkAttendance")
	}

	n, err := api.svc.MarkAttendance(ctx.Request().Context(), data, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "marking attendance")
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: fmt.Sprintf("Marked attendance for %d students", n)})
}

func (api *academicApi) studentAttendance(ctx echo.Context) error {
	sum, err := api.svc.StudentAttendance(ctx.Request().Context(), ctx.Param("student_id"))
	if err != nil {
		return errors.Wrap(err, "loading attendance")
	}
	return ctx.JSON(http.StatusOK, sum)
}

func (api *academicApi) uploadMarks(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	var data academic.NewMarks
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMarks")
	}

	marks, err := api.svc.UploadMarks(ctx.Request().Context(), data, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "uploading marks")
	}
	return ctx.JSON(http.StatusOK, marks)
}

func (api *academicApi) studentMarks(ctx echo.Context) error {
	marks, err := api.svc.StudentMarks(ctx.Request().Context(), ctx.Param("student_id"))
	if err != nil {
		return errors.Wrap(err, "loading marks")
	}
	return ctx.JSON(http.StatusOK, marks)
}

func (api *academicApi) announcements(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	announcements, err := api.svc.Announcements(ctx.Request().Context(), usr.Role)
	if err != nil {
		return errors.Wrap(err, "loading announcements")
	}
	return ctx.JSON(http.StatusOK, announcements)
}

func (api *academicApi) createAnnouncement(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	var data academic.NewAnnouncement
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAnnouncement")
	}

	ann, err := api.svc.CreateAnnouncement(ctx.Request().Context(), data, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "creating announcement")
	}
	return ctx.JSON(http.StatusCreated, ann)
}

func (api *academicApi) saveTimetable(ctx echo.Context) error {
	var data academic.NewTimetable
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTimetable")
	}

	tt, err := api.svc.SaveTimetable(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "saving timetable")
	}
	return ctx.JSON(http.StatusOK, tt)
}

func (api *academicApi) timetable(ctx echo.Context) error {
	tts, err := api.svc.Timetable(ctx.Request().Context(), ctx.Param("class_name"), ctx.Param("section"))
	if err != nil {
		return errors.Wrap(err, "loading timetable")
	}
	return ctx.JSON(http.StatusOK, tts)
}

func (api *academicApi) notifications(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	ns, err := api.svc.Notifications(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "loading notifications")
	}
	return ctx.JSON(http.StatusOK, ns)
}

func (api *academicApi) notify(ctx echo.Context) error {
	var data academic.NewNotification
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewNotification")
	}

	n, err := api.svc.Notify(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating notification")
	}
	return ctx.JSON(http.StatusCreated, n)
}

func (api *academicApi) markRead(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.MarkNotificationRead(ctx.Request().Context(), ctx.Param("id"), claims.Subject); err != nil {
		return errors.Wrap(err, "marking notification read")
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: "Notification marked as read"})
}
