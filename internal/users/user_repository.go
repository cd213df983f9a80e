package users

import (
	"fmt"

	"stockdesk/internal/repository"
	"stockdesk/pkg/models"

	"github.com/doug-martin/goqu/v9"
)

type UserRepository interface {
	PersistUser(req models.CreateUserRequest, hashedPassword []byte) error
	GetUser(id int) (*models.User, error)
	GetUsers() ([]models.User, error)
	UpdateUser(id int, changes *models.UserChanges) error
}

type userRepositoryImpl struct {
	repository *repository.Repository
}

func NewRepository(r *repository.Repository) UserRepository {
	return &userRepositoryImpl{repository: r}
}

func (r *userRepositoryImpl) PersistUser(req models.CreateUserRequest, hashedPassword []byte) error {
	query := r.repository.GoquDBWrapper.Insert("users").
		Rows(goqu.Record{
			"password_hash": string(hashedPassword),
			"username":      req.Username,
			"role":          req.Role,
		})

	_, err := query.Executor().Exec()
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

func (r *userRepositoryImpl) GetUsers() ([]models.User, error) {
	var users []models.User
	query := r.repository.GoquDBWrapper.Select("id", "username", "role", "created_at").
		From("users")

	err := query.Executor().ScanStructs(&users)
	if err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}

	return users, nil
}

func (r *userRepositoryImpl) GetUser(id int) (*models.User, error) {
	var user models.User
	query := r.repository.GoquDBWrapper.Select("id", "username", "password_hash", "role", "created_at").
		From("users").
		Where(goqu.Ex{"id": id})

	found, err := query.Executor().ScanStruct(&user)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("user %d not found", id)
	}

	return &user, nil
}

func (r *userRepositoryImpl) UpdateUser(id int, changes *models.UserChanges) error {
	record := goqu.Record{}
	if changes.PasswordHash != nil {
		record["password_hash"] = *changes.PasswordHash
	}
	if changes.Role != nil {
		record["role"] = *changes.Role
	}
	if len(record) == 0 {
		return nil
	}

	query := r.repository.GoquDBWrapper.Update("users").
		Set(record).
		Where(goqu.Ex{"id": id})

	_, err := query.Executor().Exec()
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	return nil
}
