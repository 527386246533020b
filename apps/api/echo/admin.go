package echoapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sadhanaschool/backend/core"
	"github.com/sadhanaschool/backend/core/academic"
	"github.com/sadhanaschool/backend/core/fees"
	"github.com/sadhanaschool/backend/core/people"
	"github.com/sadhanaschool/backend/core/user"
)

type adminApi struct {
	users    *user.Service
	people   *people.Service
	academic *academic.Service
	fees     *fees.Service
}

func registerAdminAPI(g *echo.Group, jwt echo.MiddlewareFunc, _ *authenticator, opts *Options) {
	api := adminApi{
		users:    opts.UserSvc,
		people:   opts.PeopleSvc,
		academic: opts.AcademicSvc,
		fees:     opts.FeeSvc,
	}

	ag := g.Group("/admin", jwt, requireRoles(user.RoleAdmin))
	ag.GET("/stats", api.stats)

	// accounts
	ag.GET("/users/pending", api.pendingUsers)
	ag.POST("/users/approve/:user_id", api.approveUser)
	ag.POST("/users/reject/:user_id", api.rejectUser)
	ag.DELETE("/users/:user_id", api.deleteUser)

	// faculty
	ag.POST("/faculty/:faculty_id/assign-class-section", api.assignClass)
	ag.GET("/faculty/:faculty_id", api.getFaculty)
	ag.DELETE("/faculty/:faculty_id", api.deleteFaculty)
	ag.GET("/faculty-assignments", api.assignments)

	ag.DELETE("/students/:student_id", api.deleteStudent)

	// classes & sections
	ag.POST("/classes", api.createClass)
	ag.GET("/classes", api.classes)
	ag.DELETE("/classes/:class_id", api.deleteClass)
	ag.POST("/sections", api.createSection)
	ag.PUT("/sections/:section_id", api.updateSection)
	ag.DELETE("/sections/:section_id", api.deleteSection)
	ag.GET("/sections/:class_id", api.sections)
	ag.GET("/sections", api.sections)

	// fee structures
	ag.POST("/fees", api.createStructure)
	ag.PUT("/fees/:fee_id", api.updateStructure)
	ag.DELETE("/fees/:fee_id", api.deleteStructure)
	ag.GET("/fees", api.structures)
	ag.GET("/fees/all", api.allStructures)

	// finance
	ag.GET("/finance/summary", api.financeSummary)
	ag.GET("/finance/timeseries", api.timeseries)
	ag.GET("/fees/report/class-wise", api.classReport)
	ag.GET("/fees/report/section-wise/:class_name", api.sectionReport)
	ag.GET("/fees/report/student/:unique_student_id", api.studentReport)
}

type (
	Stats struct {
		people.Counts
		PendingFees float64 `json:"pending_fees"`
	}

	StudentInfo struct {
		Name       string `json:"name"`
		Class      string `json:"class"`
		Section    string `json:"section"`
		RollNumber int    `json:"roll_number"`
	}

	StudentReport struct {
		UniqueStudentID string           `json:"unique_student_id"`
		StudentInfo     *StudentInfo     `json:"student_info"`
		FeeTracking     fees.Tracking    `json:"fee_tracking"`
		ParentDetails   []people.Mapping `json:"parent_details"`
	}
)

func (api *adminApi) stats(ctx echo.Context) error {
	counts, err := api.people.Stats(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "counting profiles")
	}
	pending, err := api.fees.PendingTotal(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "summing pending fees")
	}
	return ctx.JSON(http.StatusOK, Stats{Counts: counts, PendingFees: pending})
}

func (api *adminApi) pendingUsers(ctx echo.Context) error {
	users, err := api.users.ListPending(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing pending users")
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *adminApi) approveUser(ctx echo.Context) error {
	usr, err := api.users.Approve(ctx.Request().Context(), ctx.Param("user_id"))
	if err != nil {
		return errors.Wrap(err, "approving user")
	}
	if err = api.people.Provision(ctx.Request().Context(), usr); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: "User approved"})
}

func (api *adminApi) rejectUser(ctx echo.Context) error {
	usr, err := api.users.Reject(ctx.Request().Context(), ctx.Param("user_id"))
	if err != nil {
		return errors.Wrap(err, "rejecting user")
	}
	if err = api.people.RemoveProfile(ctx.Request().Context(), usr); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: "User rejected and removed"})
}

func (api *adminApi) deleteUser(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	id := ctx.Param("user_id")
	if err = api.users.Delete(ctx.Request().Context(), id, claims.Subject); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: fmt.Sprintf("User %s deleted successfully", id)})
}

func (api *adminApi) assignClass(ctx echo.Context) error {
	var data people.Assignment
	if err := bindQuery(ctx, &data); err != nil {
		return err
	}

	f, err := api.people.AssignClass(ctx.Request().Context(), ctx.Param("faculty_id"), data)
	if err != nil {
		return errors.Wrap(err, "assigning class")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Class and section assigned to teacher", "faculty": f})
}

func (api *adminApi) getFaculty(ctx echo.Context) error {
	f, err := api.people.GetFaculty(ctx.Request().Context(), ctx.Param("faculty_id"))
	if err != nil {
		return errors.Wrap(err, "finding faculty")
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *adminApi) deleteFaculty(ctx echo.Context) error {
	id := ctx.Param("faculty_id")
	if err := api.people.DeleteFaculty(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting faculty")
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: fmt.Sprintf("Faculty %s deleted successfully", id)})
}

func (api *adminApi) assignments(ctx echo.Context) error {
	as, err := api.people.Assignments(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing faculty assignments")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"assignments": as, "count": len(as)})
}

func (api *adminApi) deleteStudent(ctx echo.Context) error {
	id := ctx.Param("student_id")
	if err := api.people.DeleteStudent(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: fmt.Sprintf("Student %s and all related data deleted successfully", id)})
}

func (api *adminApi) createClass(ctx echo.Context) error {
	var data academic.NewClass
	if err := bindQuery(ctx, &data); err != nil {
		return err
	}

	c, err := api.academic.CreateClass(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Class created", "class": c})
}

func (api *adminApi) classes(ctx echo.Context) error {
	page := bindPage(ctx)
	classes, err := api.academic.ListClasses(ctx.Request().Context(), page)
	if err != nil {
		return errors.Wrap(err, "listing classes")
	}
	return ctx.JSON(http.StatusOK, newPageResponse(classes, len(classes), page))
}

func (api *adminApi) deleteClass(ctx echo.Context) error {
	if err := api.academic.DeleteClass(ctx.Request().Context(), ctx.Param("class_id")); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: "Class and related data deleted"})
}

func (api *adminApi) createSection(ctx echo.Context) error {
	var data academic.NewSection
	if err := bindQuery(ctx, &data); err != nil {
		return err
	}

	s, err := api.academic.CreateSection(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating section")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Section created", "section": s})
}

func (api *adminApi) updateSection(ctx echo.Context) error {
	var data academic.SectionUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SectionUpdate")
	}

	s, err := api.academic.UpdateSection(ctx.Request().Context(), ctx.Param("section_id"), data)
	if err != nil {
		return errors.Wrap(err, "updating section")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Section updated", "section": s})
}

func (api *adminApi) deleteSection(ctx echo.Context) error {
	if err := api.academic.DeleteSection(ctx.Request().Context(), ctx.Param("section_id")); err != nil {
		return errors.Wrap(err, "deleting section")
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: "Section deleted"})
}

// sections lists the sections of a class, or all of them when no class is given.
func (api *adminApi) sections(ctx echo.Context) error {
	page := bindPage(ctx)
	sections, err := api.academic.ListSections(ctx.Request().Context(), ctx.Param("class_id"), page)
	if err != nil {
		return errors.Wrap(err, "listing sections")
	}
	return ctx.JSON(http.StatusOK, newPageResponse(sections, len(sections), page))
}

func (api *adminApi) createStructure(ctx echo.Context) error {
	var data fees.NewStructure
	if err := bindQuery(ctx, &data); err != nil {
		return err
	}

	s, err := api.fees.CreateStructure(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating fee structure")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Fee structure created", "fee": s})
}

func (api *adminApi) updateStructure(ctx echo.Context) error {
	var data fees.StructureUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StructureUpdate")
	}

	s, err := api.fees.UpdateStructure(ctx.Request().Context(), ctx.Param("fee_id"), data)
	if err != nil {
		return errors.Wrap(err, "updating fee structure")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Fee updated", "fee": s})
}

func (api *adminApi) deleteStructure(ctx echo.Context) error {
	if err := api.fees.DeleteStructure(ctx.Request().Context(), ctx.Param("fee_id")); err != nil {
		return errors.Wrap(err, "deleting fee structure")
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: "Fee deleted"})
}

func (api *adminApi) structures(ctx echo.Context) error {
	return api.listStructures(ctx, ctx.QueryParam("class_id"))
}

func (api *adminApi) allStructures(ctx echo.Context) error {
	return api.listStructures(ctx, "")
}

func (api *adminApi) listStructures(ctx echo.Context, classID string) error {
	page := bindPage(ctx)
	structures, err := api.fees.ListStructures(ctx.Request().Context(), classID, page)
	if err != nil {
		return errors.Wrap(err, "listing fee structures")
	}
	return ctx.JSON(http.StatusOK, newPageResponse(structures, len(structures), page))
}

func (api *adminApi) financeSummary(ctx echo.Context) error {
	sum, err := api.fees.FinanceSummary(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "summarising finances")
	}
	return ctx.JSON(http.StatusOK, sum)
}

func (api *adminApi) timeseries(ctx echo.Context) error {
	series, err := api.fees.CollectionTimeseries(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "loading collection timeseries")
	}
	return ctx.JSON(http.StatusOK, series)
}

func (api *adminApi) classReport(ctx echo.Context) error {
	report, err := api.fees.ClassReport(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "building class report")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"report": report})
}

func (api *adminApi) sectionReport(ctx echo.Context) error {
	className := ctx.Param("class_name")
	report, err := api.fees.SectionReport(ctx.Request().Context(), className)
	if err != nil {
		return errors.Wrap(err, "building section report")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"class": className, "sections": report})
}

func (api *adminApi) studentReport(ctx echo.Context) error {
	uid := ctx.Param("unique_student_id")
	t, err := api.fees.TrackingByUniqueID(ctx.Request().Context(), uid)
	if err != nil {
		return errors.Wrap(err, "loading fee tracking")
	}

	report := StudentReport{UniqueStudentID: uid, FeeTracking: t}
	stu, err := api.people.StudentByUniqueID(ctx.Request().Context(), uid)
	switch {
	case err == nil:
		report.StudentInfo = &StudentInfo{
			Name:       stu.Name,
			Class:      stu.ClassName,
			Section:    stu.Section,
			RollNumber: stu.RollNumber,
		}
	case !core.IsNotFound(err):
		return errors.Wrap(err, "finding student")
	}

	if report.ParentDetails, err = api.people.MappingsForStudent(ctx.Request().Context(), uid); err != nil {
		return errors.Wrap(err, "loading parent mappings")
	}
	return ctx.JSON(http.StatusOK, report)
}
