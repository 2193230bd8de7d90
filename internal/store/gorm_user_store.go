package store

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"healthhub/internal/domain"
)

func (s *GormStore) FindUserByID(id int64) (domain.User, bool, error) {
	return s.findUser("id = ?", id)
}

func (s *GormStore) FindByOpenid(openid string) (domain.User, bool, error) {
	return s.findUser("openid = ?", openid)
}

func (s *GormStore) FindByPhone(phone string) (domain.User, bool, error) {
	return s.findUser("phone = ?", phone)
}

func (s *GormStore) findUser(cond string, args ...any) (domain.User, bool, error) {
	var m UserModel
	if err := s.db.Where(cond, args...).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(m), true, nil
}

func (s *GormStore) InsertUser(u *domain.User) error {
	m := userToModel(*u)
	m.ID = 0
	if err := s.db.Create(&m).Error; err != nil {
		return translateErr(err)
	}
	*u = userFromModel(m)
	return nil
}

func (s *GormStore) UpdateUser(u domain.User) error {
	m := userToModel(u)
	res := s.db.Model(&UserModel{}).Where("id = ?", u.ID).Select(
		"unionid", "nickname", "avatar_url", "gender", "age", "phone",
		"emergency_contact", "emergency_phone", "medical_history", "allergies",
		"status",
	).Updates(&m)
	if res.Error != nil {
		return translateErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) userQuery(q UserQuery) *gorm.DB {
	tx := s.db.Model(&UserModel{})
	if q.Nickname != "" {
		tx = tx.Where("nickname LIKE ?", "%"+q.Nickname+"%")
	}
	if q.Status != nil {
		tx = tx.Where("status = ?", string(*q.Status))
	}
	return tx
}

func (s *GormStore) ListUsers(q UserQuery) ([]domain.User, error) {
	var models []UserModel
	tx := s.userQuery(q).Order("id ASC").Offset(q.Offset)
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.User, 0, len(models))
	for _, m := range models {
		res = append(res, userFromModel(m))
	}
	return res, nil
}

func (s *GormStore) CountUsers(q UserQuery) (int64, error) {
	var count int64
	if err := s.userQuery(q).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *GormStore) UpdateUserStatus(id int64, status domain.UserStatus) error {
	return s.db.Model(&UserModel{}).Where("id = ?", id).
		Update("status", string(status)).Error
}

func (s *GormStore) CountTotalUsers() (int64, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *GormStore) CountUsersCreatedSince(t time.Time) (int64, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("created_at >= ?", t).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *GormStore) CountUsersUpdatedSince(t time.Time) (int64, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("updated_at >= ?", t).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
