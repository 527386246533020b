package sqlxdb

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/sadhanaschool/backend/core/user"
)

var userTable = table{
	name: "users",
	key:  "user_id",
	columns: []string{
		"user_id", "email", "name", "role", "phone", "avatar", "is_active",
		"password_hash", "created_at", "updated_at", "last_login",
	},
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

// trapEmailTaken maps a duplicate email to user.ErrEmailExists.
func trapEmailTaken(err error, msg string) error {
	if isUniqueViolation(err, "users_email_key") {
		return user.ErrEmailExists
	}
	return errors.Wrap(err, msg)
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if _, err := repo.db.NamedExecContext(ctx, userTable.insertQuery(), usr); err != nil {
		return user.User{}, trapEmailTaken(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) getUser(ctx context.Context, cond string, arg string) (user.User, error) {
	var usr user.User
	if err := repo.db.GetContext(ctx, &usr, userTable.selectQuery()+" WHERE "+cond, arg); err != nil {
		return user.User{}, trapNoRows(err, user.ErrNotFound, "getting user")
	}
	return usr, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	return repo.getUser(ctx, "user_id = $1", id)
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.getUser(ctx, "email = $1", email)
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter) ([]user.User, error) {
	var w where
	if filter.Role != "" {
		w.add("role = ?", filter.Role)
	}
	if filter.IsActive != nil {
		w.add("is_active = ?", *filter.IsActive)
	}

	users := make([]user.User, 0)
	if err := repo.db.SelectContext(ctx, &users, userTable.selectQuery()+w.String()+" ORDER BY seq", w.args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	res, err := repo.db.NamedExecContext(ctx, userTable.updateQuery(), usr)
	if err != nil {
		return user.User{}, trapEmailTaken(err, "updating user")
	}
	if err = mustAffect(res, user.ErrNotFound); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) DeleteUser(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, userTable.deleteQuery(), id)
	if err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return mustAffect(res, user.ErrNotFound)
}
