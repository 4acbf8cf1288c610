package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/Skotchmaster/carrental/internal/models"
)

func (r *GormRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindByIdentifier looks the user up by username, or by email when the
// identifier contains an "@".
func (r *GormRepo) FindByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	identifier = strings.TrimSpace(identifier)
	q := r.DB.WithContext(ctx)
	if strings.Contains(identifier, "@") {
		q = q.Where("email = ?", strings.ToLower(identifier))
	} else {
		q = q.Where("username = ?", identifier)
	}

	var user models.User
	if err := q.First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) CreateUserIfNotExists(ctx context.Context, u *models.User) error {
	db := r.DB.WithContext(ctx)

	q := db.Model(&models.User{}).Where("username = ?", u.Username)
	if u.Email != nil {
		q = q.Or("email = ?", *u.Email)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return ErrUserAlreadyExist
	}

	if err := db.Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrUserAlreadyExist
		}
		return err
	}
	return nil
}

func (r *GormRepo) List(ctx context.Context, search string, from, limit int) ([]models.User, int64, error) {
	q := r.DB.WithContext(ctx).Model(&models.User{})
	if s := strings.ToLower(strings.TrimSpace(search)); s != "" {
		like := "%" + s + "%"
		q = q.Where("LOWER(username) LIKE ? OR LOWER(name) LIKE ? OR LOWER(email) LIKE ?", like, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	var users []models.User
	if err := q.Order("created_at DESC").Order("username").Offset(from).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

func (r *GormRepo) SetActive(ctx context.Context, id string, active bool) (*models.User, error) {
	return r.update(ctx, id, "is_active", active)
}

func (r *GormRepo) SetRole(ctx context.Context, id, role string) (*models.User, error) {
	return r.update(ctx, id, "role", role)
}

func (r *GormRepo) update(ctx context.Context, id, column string, value any) (*models.User, error) {
	user, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.DB.WithContext(ctx).Model(user).Update(column, value).Error; err != nil {
		return nil, fmt.Errorf("update %s: %w", column, err)
	}
	return r.FindByID(ctx, id)
}
