package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"medprofile/logger"
	"medprofile/model"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// ErrDuplicateUser is returned when the username is already registered.
var ErrDuplicateUser = errors.New("user with this username already exists")

// mysqlDuplicateEntry is the server error number for a unique key violation.
const mysqlDuplicateEntry = 1062

// publicColumns is the default projection: everything except the password hash.
var publicColumns = []string{
	"id", "username", "email", "personal_data", "medical_profile",
	"is_active", "created_at", "updated_at", "last_login",
}

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) (*model.User, error)
	// FindByUsername returns the full record including the password hash.
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	// FindByID omits the password hash and the medical notes.
	FindByID(ctx context.Context, id string) (*model.User, error)
	// FindCompleteByID omits only the password hash.
	FindCompleteByID(ctx context.Context, id string) (*model.User, error)
	UpdateMedicalProfile(ctx context.Context, id string, profile model.MedicalProfile) (bool, error)
	UpdatePersonalData(ctx context.Context, id string, data model.PersonalData) (bool, error)
	// UpdateLastLogin is best effort; failures are logged.
	UpdateLastLogin(ctx context.Context, id string)
	Ping(ctx context.Context) error
}

// gormUserRepository GORM 实现
type gormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a GORM backed UserRepository.
func NewGormUserRepository(db *gorm.DB) UserRepository {
	return &gormUserRepository{db: db}
}

// Create stores a new user. The username uniqueness is checked up front and
// enforced again by the unique index for concurrent registrations.
func (r *gormUserRepository) Create(ctx context.Context, user *model.User) (*model.User, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("username = ?", user.Username).
		Count(&count).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check username %s: %w", user.Username, err)
	}
	if count > 0 {
		return nil, ErrDuplicateUser
	}

	user.MedicalProfile.Normalize()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, ErrDuplicateUser
		}
		return nil, fmt.Errorf("failed to create user %s: %w", user.Username, err)
	}
	return user, nil
}

func (r *gormUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("username = ?", username).Take(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user by username %s: %w", username, err)
	}
	return &user, nil
}

func (r *gormUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := r.findPublic(ctx, id)
	if err != nil || user == nil {
		return nil, err
	}
	return user.WithoutNotes(), nil
}

func (r *gormUserRepository) FindCompleteByID(ctx context.Context, id string) (*model.User, error) {
	return r.findPublic(ctx, id)
}

func (r *gormUserRepository) findPublic(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Select(publicColumns).Where("id = ?", id).Take(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user %s: %w", id, err)
	}
	user.PasswordHash = ""
	user.MedicalProfile.Normalize()
	return &user, nil
}

func (r *gormUserRepository) UpdateMedicalProfile(ctx context.Context, id string, profile model.MedicalProfile) (bool, error) {
	profile.Normalize()
	return r.replace(ctx, id, "medical_profile", profile)
}

func (r *gormUserRepository) UpdatePersonalData(ctx context.Context, id string, data model.PersonalData) (bool, error) {
	return r.replace(ctx, id, "personal_data", data)
}

// replace overwrites one subdocument column and refreshes updated_at.
// The DSN sets clientFoundRows, so RowsAffected counts matched rows.
func (r *gormUserRepository) replace(ctx context.Context, id, column string, value interface{}) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			column:       value,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to update %s for user %s: %w", column, id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *gormUserRepository) UpdateLastLogin(ctx context.Context, id string) {
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login", time.Now().UTC()).Error
	if err != nil {
		logger.Warn("[UserRepository] 更新最后登录时间失败",
			logger.String("userID", id),
			logger.ErrorField(err))
	}
}

func (r *gormUserRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}
