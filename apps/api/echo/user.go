package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sadhanaschool/backend/core/people"
	"github.com/sadhanaschool/backend/core/user"
)

type userApi struct {
	auth   *authenticator
	svc    *user.Service
	people *people.Service
}

func registerUserAPI(g *echo.Group, jwt, limiter echo.MiddlewareFunc, auth *authenticator, opts *Options) {
	api := userApi{auth: auth, svc: opts.UserSvc, people: opts.PeopleSvc}

	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/register", api.register)
	ag.POST("/register-student", api.registerStudent)
	ag.POST("/login", api.login, limiter)

	// authed endpoints
	ag.GET("/me", api.me, jwt)
	ag.POST("/token-refresh", api.refreshToken, jwt)
}

type (
	TokenResponse struct {
		AccessToken string    `json:"access_token"`
		TokenType   string    `json:"token_type"`
		User        user.User `json:"user"`
	}

	PendingRegistration struct {
		Message string `json:"message"`
		UserID  string `json:"user_id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Role    string `json:"role"`
	}

	StudentRegistered struct {
		Message   string         `json:"message"`
		Student   people.Student `json:"student"`
		StudentID string         `json:"student_id"`
	}
)

func (api *userApi) tokenResponse(usr user.User) (TokenResponse, error) {
	token, err := api.auth.token(usr)
	if err != nil {
		return TokenResponse{}, err
	}
	return TokenResponse{AccessToken: token, TokenType: "bearer", User: usr}, nil
}

func (api *userApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}

	usr, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}

	if !usr.IsActive {
		return ctx.JSON(http.StatusOK, PendingRegistration{
			Message: "Registration submitted and is pending admin approval.",
			UserID:  usr.ID,
			Email:   usr.Email,
			Name:    usr.Name,
			Role:    usr.Role,
		})
	}
	resp, err := api.tokenResponse(usr)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *userApi) registerStudent(ctx echo.Context) error {
	var data people.StudentRegistration
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StudentRegistration")
	}

	stu, err := api.people.RegisterStudent(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering student")
	}
	return ctx.JSON(http.StatusOK, StudentRegistered{
		Message:   "Student registration completed successfully",
		Student:   stu,
		StudentID: stu.UniqueStudentID,
	})
}

func (api *userApi) login(ctx echo.Context) error {
	var data user.Credentials
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Credentials")
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	resp, err := api.tokenResponse(usr)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *userApi) me(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	token, err := api.auth.refresh(ctx)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer", User: usr})
}
