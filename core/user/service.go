package user

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/sadhanaschool/backend/core"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("user", "User not found")
	ErrEmailExists        = core.NewValidationError(errors.New("Email already registered"))
	ErrInvalidCredentials = errors.New("Invalid email or password")
	ErrPendingApproval    = core.NewPermissionError("Account pending admin approval. Please wait for admin to approve your account.")
	ErrDeleteSelf         = core.NewValidationError(errors.New("Cannot delete your own account"))
)

type (
	Repository interface {
		// CreateUser returns ErrEmailExists if the email is taken.
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		QueryUsers(ctx context.Context, filter QueryFilter) ([]User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUser(ctx context.Context, id string) error
	}

	Service struct {
		repo     Repository
		mailSvc  core.EmailService
		validate *validator.Validate
		conf     *core.Config
	}

	// PasswordReset sets a new password on an existing account.
	PasswordReset struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}
)

func NewService(repo Repository, mailSvc core.EmailService, validate *validator.Validate, conf *core.Config) *Service {
	return &Service{
		repo:     repo,
		mailSvc:  mailSvc,
		validate: validate,
		conf:     conf,
	}
}

// Register creates a User. Admin accounts are active right away,
// every other role waits for an admin's approval and the admins are notified.
func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	nu.Clean()
	if err := svc.validate.Struct(nu); err != nil {
		return User{}, err
	}

	now := core.NowFunc()
	usr := User{
		ID:        core.GenerateID("user_"),
		Email:     nu.Email,
		Name:      nu.Name,
		Role:      nu.Role,
		Phone:     nu.Phone,
		IsActive:  nu.Role == RoleAdmin,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}

	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, err
	}

	if !usr.IsActive {
		svc.notifyAdmins(usr)
	}
	return usr, nil
}

// Authenticate checks the credentials and records the login.
func (svc *Service) Authenticate(ctx context.Context, creds Credentials) (User, error) {
	creds.Clean()
	usr, err := svc.repo.GetUserByEmail(ctx, creds.Email)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(creds.Password); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !usr.IsActive && !usr.IsAdmin() {
		return User{}, ErrPendingApproval
	}

	now := core.NowFunc()
	usr.LastLogin = &now
	usr, err = svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "setting last login")
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

// ListPending returns the accounts waiting for approval.
func (svc *Service) ListPending(ctx context.Context) ([]User, error) {
	inactive := false
	return svc.repo.QueryUsers(ctx, QueryFilter{IsActive: &inactive})
}

// Approve activates the account and lets its owner know.
func (svc *Service) Approve(ctx context.Context, id string) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	usr.IsActive = true
	usr.UpdatedAt = core.NowFunc()
	if usr, err = svc.repo.UpdateUser(ctx, usr); err != nil {
		return User{}, errors.Wrap(err, "activating user")
	}

	svc.mailSvc.SendMessages(core.NewEmailMessage(
		"Your account has been approved",
		"Your account has been approved by the admin. You can now login to the system.",
		usr.Email,
	))
	return usr, nil
}

// Reject removes the account and lets its owner know.
func (svc *Service) Reject(ctx context.Context, id string) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if err = svc.repo.DeleteUser(ctx, id); err != nil {
		return User{}, errors.Wrap(err, "deleting user")
	}

	svc.mailSvc.SendMessages(core.NewEmailMessage(
		"Your registration was rejected",
		"Your registration was rejected by the admin. If you believe this is a mistake, contact the school admin.",
		usr.Email,
	))
	return usr, nil
}

// Delete removes the account of another user.
func (svc *Service) Delete(ctx context.Context, id, actorID string) error {
	if id == actorID {
		return ErrDeleteSelf
	}
	if _, err := svc.repo.GetUserByID(ctx, id); err != nil {
		return err
	}
	return svc.repo.DeleteUser(ctx, id)
}

// Remove deletes the account without any further check. Missing accounts are ignored.
func (svc *Service) Remove(ctx context.Context, id string) error {
	if err := svc.repo.DeleteUser(ctx, id); err != nil && errors.Cause(err) != ErrNotFound {
		return err
	}
	return nil
}

// SaveAdmin creates or updates an active admin account.
func (svc *Service) SaveAdmin(ctx context.Context, name string, data PasswordReset) (User, error) {
	data.Email = core.CleanString(data.Email, true /* lower */)
	if err := svc.validate.Struct(data); err != nil {
		return User{}, err
	}

	now := core.NowFunc()
	usr, err := svc.repo.GetUserByEmail(ctx, data.Email)
	create := false
	if err != nil {
		if errors.Cause(err) != ErrNotFound {
			return User{}, err
		}
		create = true
		usr = User{ID: core.GenerateID("user_"), Email: data.Email, CreatedAt: now}
	}
	if name = core.CleanString(name); name != "" {
		usr.Name = name
	} else if usr.Name == "" {
		usr.Name = "Admin"
	}
	usr.Role = RoleAdmin
	usr.IsActive = true
	usr.UpdatedAt = now
	if err = usr.SetPassword(data.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}

	if create {
		return svc.repo.CreateUser(ctx, usr)
	}
	return svc.repo.UpdateUser(ctx, usr)
}

// ResetPassword sets a new password on an existing account.
func (svc *Service) ResetPassword(ctx context.Context, data PasswordReset) error {
	data.Email = core.CleanString(data.Email, true /* lower */)
	if err := svc.validate.Struct(data); err != nil {
		return err
	}
	usr, err := svc.repo.GetUserByEmail(ctx, data.Email)
	if err != nil {
		return err
	}
	if err = usr.SetPassword(data.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = core.NowFunc()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return err
}

func (svc *Service) notifyAdmins(usr User) {
	if len(svc.conf.AdminNotificationEmails) == 0 {
		return
	}
	body := fmt.Sprintf(
		"A new user has registered and requires approval:\n\nName: %s\nEmail: %s\nRole: %s\nUser ID: %s\n\n"+
			"Visit the admin panel to approve or reject this user.",
		usr.Name, usr.Email, usr.Role, usr.ID,
	)
	svc.mailSvc.SendMessages(core.NewEmailMessage(
		fmt.Sprintf("New registration: %s (%s)", usr.Name, usr.Role),
		body,
		svc.conf.AdminNotificationEmails...,
	))
}
