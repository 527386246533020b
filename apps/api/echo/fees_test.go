package echoapi_test

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadhanaschool/backend/core/fees"
	"github.com/sadhanaschool/backend/core/people"
	"github.com/sadhanaschool/backend/core/user"
)

func Test_feeApi_payByStudentID(t *testing.T) {
	app := setup(t)
	stuUsr, stu := app.RegisterStudent(t, "Asha", "asha@test.in", "1", "A")
	stuToken := getToken(t, app, stuUsr)
	_, facultyToken := app.newUser(t, "Teacher", "teacher@test.in", user.RoleFaculty)

	payPath := func(uid, amount string) string {
		v := make(url.Values)
		v.Set("unique_student_id", uid)
		v.Set("amount", amount)
		return "/api/fees/pay-by-student-id?" + v.Encode()
	}
	verifyPath := func(orderID, paymentID, signature, amount string) string {
		v := make(url.Values)
		v.Set("unique_student_id", stu.UniqueStudentID)
		v.Set("razorpay_order_id", orderID)
		v.Set("razorpay_payment_id", paymentID)
		v.Set("razorpay_signature", signature)
		v.Set("amount", amount)
		return "/api/fees/verify-payment-by-student-id?" + v.Encode()
	}

	app.run(t, []httpTest{
		{name: "auth required", method: http.MethodPost, path: payPath(stu.UniqueStudentID, "1000"), wantCode: http.StatusUnauthorized},
		{
			name: "payers only", method: http.MethodPost, path: payPath(stu.UniqueStudentID, "1000"), token: facultyToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "Insufficient permissions"}),
		},
		{
			name: "amount required", method: http.MethodPost, path: payPath(stu.UniqueStudentID, "0"), token: stuToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "Amount must be greater than 0"}),
		},
		{
			name: "above pending", method: http.MethodPost, path: payPath(stu.UniqueStudentID, "5000.01"), token: stuToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "Amount exceeds the pending balance"}),
		},
		{
			name: "unknown student", method: http.MethodPost, path: payPath("SMS-2025-1A-999", "10"), token: stuToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "Fee record not found for this Student ID"}),
		},
	})

	rec := app.do(newAuthRequest(http.MethodPost, payPath(stu.UniqueStudentID, "1000"), stuToken))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	order := decode(t, rec)
	assert.Equal(t, "order_1", order["order_id"])
	assert.EqualValues(t, 100000, order["amount"])
	assert.Equal(t, "INR", order["currency"])
	assert.Equal(t, stu.UniqueStudentID, order["unique_student_id"])
	assert.Equal(t, "Asha", order["student_name"])
	assert.EqualValues(t, 5000, order["pending_amount"])

	app.run(t, []httpTest{
		{
			name: "bad signature", method: http.MethodPost, path: verifyPath("order_1", "pay_1", "forged", "1000"), token: stuToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "Invalid payment signature"}),
		},
		{
			name: "amount differs from the order", method: http.MethodPost, path: verifyPath("order_1", "pay_1", app.Sign("order_1", "pay_1"), "999"),
			token: stuToken, wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "Payment amount does not match the order"}),
		},
		{
			name: "verified", method: http.MethodPost, path: verifyPath("order_1", "pay_1", app.Sign("order_1", "pay_1"), "1000"), token: stuToken,
			wantData: marchallObj(t, map[string]interface{}{
				"message":           "Payment verified successfully",
				"status":            "SUCCESS",
				"unique_student_id": stu.UniqueStudentID,
				"paid_amount":       1000,
				"pending_amount":    4000,
				"payment_status":    fees.StatusPartial,
			}),
		},
		{
			name: "credited once", method: http.MethodPost, path: verifyPath("order_1", "pay_1", app.Sign("order_1", "pay_1"), "1000"), token: stuToken,
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "Payment already recorded"}),
		},
	})

	txs, err := app.Fees.Transactions(context.Background(), stu.ID)
	require.NoError(t, err)
	app.run(t, []httpTest{
		{name: "transactions", path: "/api/payments/student/" + stu.ID, token: stuToken, wantData: marchallObj(t, txs)},
	})
	assert.Len(t, txs, 1)
}

func Test_feeApi_payments(t *testing.T) {
	app := setup(t)
	_, stu := app.RegisterStudent(t, "Ravi", "ravi@test.in", "2", "B")
	_, parentToken := app.newUser(t, "Parent", "parent@test.in", user.RoleParent)
	tracking, err := app.Fees.TrackingForStudent(context.Background(), stu.ID)
	require.NoError(t, err)

	rec := app.do(newAuthRequest(http.MethodPost, "/api/payments/create-order", parentToken, marchallObj(t, fees.OrderRequest{
		Amount:     2500.5,
		TrackingID: tracking.ID,
	})))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, map[string]interface{}{
		"order_id": "order_1",
		"amount":   float64(250050),
		"currency": "INR",
		"key_id":   "rzp_test_key",
	}, decode(t, rec))

	verify := fees.VerifyRequest{
		OrderID:    "order_1",
		PaymentID:  "pay_1",
		Signature:  app.Sign("order_1", "pay_1"),
		TrackingID: tracking.ID,
		Amount:     2500.5,
	}
	app.run(t, []httpTest{
		{
			name: "unknown fee", method: http.MethodPost, path: "/api/payments/create-order", token: parentToken,
			body:     marchallObj(t, fees.OrderRequest{Amount: 10, TrackingID: "ft_nope"}),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "Fee tracking not found"}),
		},
		{
			name: "verify", method: http.MethodPost, path: "/api/payments/verify", token: parentToken, body: marchallObj(t, verify),
			wantData: []byte(`{"message": "Payment verified successfully", "status": "SUCCESS"}`),
		},
	})

	rec = app.do(newAuthRequest(http.MethodGet, "/api/fees/student/"+stu.ID, parentToken))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := decode(t, rec)
	assert.EqualValues(t, 2500.5, data["paid_amount"])
	assert.EqualValues(t, tracking.TotalFeeAmount-2500.5, data["pending_amount"])
	assert.Equal(t, fees.StatusPartial, data["payment_status"])

	// the unique id works too
	rec = app.do(newAuthRequest(http.MethodGet, "/api/fees/student-id/"+stu.UniqueStudentID, parentToken))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, tracking.ID, decode(t, rec)["tracking_id"])
}

func Test_feeApi_gatewayNotConfigured(t *testing.T) {
	app := setup(t)
	noGateway := fees.NewService(app.FeeRepo, app.Academic, fees.Gateways{
		Verifier: app.Verifier,
		Orders:   app.Orders,
		Currency: "INR",
	}, app.Validate, app.Conf, app.Logger)
	app.srv = newServer(app.Stack, noGateway)

	stuUsr, stu := app.RegisterStudent(t, "Asha", "asha@test.in", "1", "A")
	app.run(t, []httpTest{
		{
			name:   "pay by student id",
			method: http.MethodPost,
			path:   "/api/fees/pay-by-student-id?amount=100&unique_student_id=" + url.QueryEscape(stu.UniqueStudentID),
			token:  getToken(t, app, stuUsr), wantCode: http.StatusServiceUnavailable,
			wantData: marchallObj(t, httpErr{Error: "Payment gateway not configured"}),
		},
	})
}

func Test_feeApi_studentFees(t *testing.T) {
	app := setup(t)
	_, token := app.newUser(t, "Admin", "admin@test.in", user.RoleAdmin)

	app.run(t, []httpTest{
		{
			name: "unknown student gets an empty record", path: "/api/fees/student/stu_nope", token: token,
			wantData: marchallObj(t, fees.Tracking{StudentID: "stu_nope", PaymentStatus: fees.StatusPending, PaymentHistory: fees.PaymentHistory{}}),
		},
		{
			name: "unknown unique id", path: "/api/fees/student-id/SMS-2025-1A-404", token: token,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "Fee record not found for this Student ID"}),
		},
		{
			name: "create fee", method: http.MethodPost, path: "/api/fees", token: token,
			body:     []byte(`{"student_id": "stu_1", "amount": 0, "due_date": "2025-13-01", "fee_type": "", "academic_year": "2025"}`),
			wantCode: http.StatusBadRequest,
		},
	})

	rec := app.do(newAuthRequest(http.MethodPost, "/api/fees", token, marchallObj(t, fees.NewFee{
		StudentID:    "stu_1",
		Amount:       1200,
		DueDate:      "2025-06-30",
		FeeType:      "Library",
		AcademicYear: "2025-2026",
	})))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := decode(t, rec)
	assert.NotEmpty(t, data["fee_id"])
	assert.Equal(t, fees.StatusPending, data["status"])
}

func Test_feeApi_parentMapping(t *testing.T) {
	app := setup(t)
	_, stu := app.RegisterStudent(t, "Asha", "asha@test.in", "3", "C")
	_, adminToken := app.newUser(t, "Admin", "admin@test.in", user.RoleAdmin)
	_, studentToken := app.newUser(t, "Other", "other@test.in", user.RoleStudent)

	nm := people.NewMapping{
		UniqueStudentID: stu.UniqueStudentID,
		Relationship:    "mother",
		ParentName:      "Lata",
		ParentEmail:     "Lata@Test.in",
		ParentPhone:     "9876543210",
	}
	listPath := "/api/parent-mapping/student/" + stu.UniqueStudentID

	app.run(t, []httpTest{
		{name: "nothing mapped yet", path: listPath, token: adminToken, wantData: []byte(`{"parent_mappings": [], "count": 0}`)},
		{
			name: "students cannot map", method: http.MethodPost, path: "/api/parent-mapping/register", token: studentToken,
			body: marchallObj(t, nm), wantCode: http.StatusForbidden,
		},
		{
			name: "unknown student", method: http.MethodPost, path: "/api/parent-mapping/register", token: adminToken,
			body:     marchallObj(t, people.NewMapping{UniqueStudentID: "SMS-nope", Relationship: "FATHER", ParentName: "X", ParentEmail: "x@test.in", ParentPhone: "1"}),
			wantCode: http.StatusNotFound,
		},
	})

	rec := app.do(newAuthRequest(http.MethodPost, "/api/parent-mapping/register", adminToken, marchallObj(t, nm)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := decode(t, rec)
	assert.Equal(t, "Parent successfully linked to student", data["message"])
	mapping := data["mapping"].(map[string]interface{})
	assert.Equal(t, "MOTHER", mapping["relationship"])
	assert.Equal(t, "lata@test.in", mapping["parent_email"])

	rec = app.do(newAuthRequest(http.MethodGet, listPath, adminToken))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 1, decode(t, rec)["count"])
}
