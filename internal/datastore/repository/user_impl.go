package repository

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/tphakala/console-panel/internal/datastore/entities"
	"github.com/tphakala/console-panel/internal/errors"
)

// bcryptCost is lowered by tests
var bcryptCost = bcrypt.DefaultCost

// dummyHash is compared against when the email is unknown so that both
// failure paths take about the same time
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.MinCost)

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func hashPassword(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", errors.New(err).
			Component(component).
			Category(errors.CategorySystem).
			Context("operation", "hash_password").
			Build()
	}
	return string(hash), nil
}

func (r *userRepository) Create(ctx context.Context, u *entities.User, password string) (*entities.User, error) {
	if err := validateUser(u); err != nil {
		return nil, err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = hash

	if err := insert(ctx, r.db, u, resUser); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, u.ID)
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*entities.User, error) {
	return getByID[entities.User](ctx, r.db, id, ErrUserNotFound, resUser)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	var u entities.User
	err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundError(ErrUserNotFound, resUser, email)
	}
	if err != nil {
		return nil, dbError(err, "get_by_email", resUser)
	}
	return &u, nil
}

func (r *userRepository) Update(ctx context.Context, id uint, patch UserPatch) (*entities.User, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := getByID[entities.User](ctx, tx, id, ErrUserNotFound, resUser)
		if err != nil {
			return err
		}
		if err := checkVersion(patch.Version, current.Version, resUser, id); err != nil {
			return err
		}

		cols := map[string]any{}
		patchValue(cols, "name", &current.Name, patch.Name)
		patchValue(cols, "role", &current.Role, patch.Role)
		if patch.Email != nil {
			current.Email = *patch.Email
		}
		if err := validateUser(current); err != nil {
			return err
		}
		if patch.Email != nil {
			cols["email"] = current.Email
		}
		if _, ok := cols["name"]; ok {
			cols["name"] = current.Name
		}
		if patch.Password != nil {
			hash, err := hashPassword(*patch.Password)
			if err != nil {
				return err
			}
			cols["password_hash"] = hash
		}
		if len(cols) == 0 {
			return nil
		}
		return updateVersioned[entities.User](ctx, tx, id, current.Version, cols, resUser)
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *userRepository) List(ctx context.Context, opts ListOptions) ([]entities.User, error) {
	return list[entities.User](ctx, r.db, opts, resUser)
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	return count[entities.User](ctx, r.db, resUser)
}

func (r *userRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var configIDs []uint
		if err := tx.Model(&entities.Configuration{}).Where("user_id = ?", id).Pluck("id", &configIDs).Error; err != nil {
			return dbError(err, "delete", resUser)
		}
		if err := deleteConfigurations(ctx, tx, configIDs); err != nil {
			return err
		}
		return deleteByID[entities.User](ctx, tx, id, ErrUserNotFound, resUser)
	})
}

func (r *userRepository) Authenticate(ctx context.Context, email, password string) (*entities.User, error) {
	u, err := r.GetByEmail(ctx, email)
	if err != nil {
		if errors.IsNotFound(err) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, credentialsError(email)
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, credentialsError(email)
	}
	return u, nil
}

func credentialsError(email string) error {
	return errors.New(ErrInvalidCredentials).
		Component(component).
		Category(errors.CategoryAuthentication).
		Context("email", email).
		Build()
}

func (r *userRepository) SetPassword(ctx context.Context, id uint, password string) error {
	_, err := r.Update(ctx, id, UserPatch{Password: &password})
	return err
}
