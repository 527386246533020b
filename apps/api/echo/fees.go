package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sadhanaschool/backend/core/fees"
	"github.com/sadhanaschool/backend/core/people"
	"github.com/sadhanaschool/backend/core/user"
)

type feeApi struct {
	svc    *fees.Service
	people *people.Service
}

func registerFeeAPI(g *echo.Group, jwt echo.MiddlewareFunc, _ *authenticator, opts *Options) {
	api := feeApi{svc: opts.FeeSvc, people: opts.PeopleSvc}
	payers := requireRoles(user.RoleParent, user.RoleStudent)

	fg := g.Group("/fees", jwt)
	fg.POST("", api.createFee, requireRoles(user.RoleAdmin))
	fg.GET("/student/:student_id", api.studentFees)
	fg.GET("/student-id/:unique_student_id", api.feesByUniqueID)
	fg.POST("/pay-by-student-id", api.payByStudentID, payers)
	fg.POST("/verify-payment-by-student-id", api.verifyByStudentID, payers)

	pg := g.Group("/payments", jwt)
	pg.POST("/create-order", api.createOrder)
	pg.POST("/verify", api.verify)
	pg.GET("/student/:student_id", api.transactions)

	mg := g.Group("/parent-mapping", jwt)
	mg.POST("/register", api.registerMapping, requireRoles(user.RoleParent, user.RoleAdmin))
	mg.GET("/student/:unique_student_id", api.mappings)
}

type (
	PaymentVerified struct {
		Message string `json:"message"`
		Status  string `json:"status"`
	}

	StudentPaymentVerified struct {
		PaymentVerified
		UniqueStudentID string  `json:"unique_student_id"`
		PaidAmount      float64 `json:"paid_amount"`
		PendingAmount   float64 `json:"pending_amount"`
		PaymentStatus   string  `json:"payment_status"`
	}
)

var paymentVerified = PaymentVerified{Message: "Payment verified successfully", Status: fees.PaymentSuccess}

func (api *feeApi) createFee(ctx echo.Context) error {
	var data fees.NewFee
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFee")
	}

	fee, err := api.svc.CreateFee(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating fee")
	}
	return ctx.JSON(http.StatusOK, fee)
}

func (api *feeApi) studentFees(ctx echo.Context) error {
	t, err := api.svc.StudentFees(ctx.Request().Context(), ctx.Param("student_id"))
	if err != nil {
		return errors.Wrap(err, "loading student fees")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *feeApi) feesByUniqueID(ctx echo.Context) error {
	t, err := api.svc.TrackingByUniqueID(ctx.Request().Context(), ctx.Param("unique_student_id"))
	if err != nil {
		return errors.Wrap(err, "loading fee tracking")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *feeApi) payByStudentID(ctx echo.Context) error {
	var data fees.StudentOrderRequest
	if err := bindQuery(ctx, &data); err != nil {
		return err
	}

	order, err := api.svc.CreateOrderForStudent(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student order")
	}
	if stu, err := api.people.StudentByUniqueID(ctx.Request().Context(), order.UniqueStudentID); err == nil {
		order.StudentName = stu.Name
	}
	return ctx.JSON(http.StatusOK, order)
}

func (api *feeApi) verifyByStudentID(ctx echo.Context) error {
	var data fees.StudentVerifyRequest
	if err := bindQuery(ctx, &data); err != nil {
		return err
	}

	t, err := api.svc.VerifyForStudent(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "verifying student payment")
	}
	return ctx.JSON(http.StatusOK, StudentPaymentVerified{
		PaymentVerified: paymentVerified,
		UniqueStudentID: t.UniqueStudentID,
		PaidAmount:      t.PaidAmount,
		PendingAmount:   t.PendingAmount,
		PaymentStatus:   t.PaymentStatus,
	})
}

func (api *feeApi) createOrder(ctx echo.Context) error {
	var data fees.OrderRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to OrderRequest")
	}

	order, err := api.svc.CreateOrder(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating order")
	}
	return ctx.JSON(http.StatusOK, order)
}

func (api *feeApi) verify(ctx echo.Context) error {
	var data fees.VerifyRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to VerifyRequest")
	}

	if _, err := api.svc.Verify(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "verifying payment")
	}
	return ctx.JSON(http.StatusOK, paymentVerified)
}

func (api *feeApi) transactions(ctx echo.Context) error {
	txs, err := api.svc.Transactions(ctx.Request().Context(), ctx.Param("student_id"))
	if err != nil {
		return errors.Wrap(err, "loading transactions")
	}
	return ctx.JSON(http.StatusOK, txs)
}

func (api *feeApi) registerMapping(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	var data people.NewMapping
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMapping")
	}

	m, err := api.people.RegisterMapping(ctx.Request().Context(), data, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "registering parent mapping")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Parent successfully linked to student", "mapping": m})
}

func (api *feeApi) mappings(ctx echo.Context) error {
	ms, err := api.people.MappingsForStudent(ctx.Request().Context(), ctx.Param("unique_student_id"))
	if err != nil {
		return errors.Wrap(err, "loading parent mappings")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"parent_mappings": ms, "count": len(ms)})
}
