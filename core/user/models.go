package user

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sadhanaschool/backend/core"
)

// Roles
const (
	RoleAdmin   = "ADMIN"
	RoleFaculty = "FACULTY"
	RoleStudent = "STUDENT"
	RoleParent  = "PARENT"
)

var AllRoles = []string{RoleAdmin, RoleFaculty, RoleStudent, RoleParent}

type User struct {
	ID           string     `json:"user_id" db:"user_id"`
	Email        string     `json:"email" db:"email"`
	Name         string     `json:"name" db:"name"`
	Role         string     `json:"role" db:"role"`
	Phone        string     `json:"phone,omitempty" db:"phone"`
	Avatar       string     `json:"avatar,omitempty" db:"avatar"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	PasswordHash []byte     `json:"-" db:"password_hash"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"` // UTC
	LastLogin    *time.Time `json:"last_login,omitempty" db:"last_login"`
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// Person returns the log identity of the user.
func (u User) Person() core.Person {
	return core.Person{ID: u.ID, Name: u.Name, Email: u.Email}
}

// NewUser contains information needed to register a new User.
type NewUser struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name" validate:"required,notblank"`
	Role     string `json:"role" validate:"required,role"`
	Phone    string `json:"phone" validate:"omitempty,max=20"`
}

func (nu *NewUser) Clean() {
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Name = core.CleanString(nu.Name)
	nu.Role = core.CleanString(nu.Role)
	nu.Phone = core.CleanString(nu.Phone)
}

// Credentials are used to authenticate a User.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (c *Credentials) Clean() {
	c.Email = core.CleanString(c.Email, true /* lower */)
}

type QueryFilter struct {
	Role     string
	IsActive *bool
}
