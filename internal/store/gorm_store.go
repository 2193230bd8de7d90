package store

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"healthhub/internal/domain"
)

// GormStore implements DrugStore and UserStore on GORM + Postgres. The unique
// indexes on barcode, approval number, openid and phone are the authoritative
// uniqueness enforcers; service-level existence checks are only an early exit.
type GormStore struct {
	db *gorm.DB
}

var (
	_ DrugStore = (*GormStore)(nil)
	_ UserStore = (*GormStore)(nil)
)

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return NewGormStoreWithDB(db)
}

// NewGormStoreWithDB wraps an already opened connection. Used by tests with
// an in-memory SQLite dialector.
func NewGormStoreWithDB(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&DrugModel{}, &UserModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) FindByID(id int64) (domain.Drug, bool, error) {
	var m DrugModel
	if err := s.db.First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Drug{}, false, nil
		}
		return domain.Drug{}, false, err
	}
	return drugFromModel(m), true, nil
}

func (s *GormStore) FindByBarcode(barcode string) (domain.Drug, bool, error) {
	return s.findDrug("barcode = ?", barcode)
}

func (s *GormStore) FindByApprovalNumber(approvalNumber string) (domain.Drug, bool, error) {
	return s.findDrug("approval_number = ?", approvalNumber)
}

func (s *GormStore) findDrug(cond string, args ...any) (domain.Drug, bool, error) {
	var m DrugModel
	if err := s.db.Where(cond, args...).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Drug{}, false, nil
		}
		return domain.Drug{}, false, err
	}
	return drugFromModel(m), true, nil
}

func (s *GormStore) drugQuery(q DrugQuery) *gorm.DB {
	tx := s.db.Model(&DrugModel{})
	if q.Keyword != "" {
		tx = tx.Where("name LIKE ?", "%"+q.Keyword+"%")
	}
	if q.Manufacturer != "" {
		tx = tx.Where("manufacturer LIKE ?", "%"+q.Manufacturer+"%")
	}
	if q.Status != nil {
		tx = tx.Where("status = ?", string(*q.Status))
	}
	return tx
}

func (s *GormStore) Search(q DrugQuery) ([]domain.Drug, error) {
	var models []DrugModel
	tx := s.drugQuery(q).Order("id ASC").Offset(q.Offset)
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	return drugsFromModels(models), nil
}

func (s *GormStore) Count(q DrugQuery) (int64, error) {
	var count int64
	if err := s.drugQuery(q).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *GormStore) ExistsByBarcode(barcode string) (bool, error) {
	return s.drugExists("barcode = ?", barcode)
}

func (s *GormStore) ExistsByApprovalNumber(approvalNumber string) (bool, error) {
	return s.drugExists("approval_number = ?", approvalNumber)
}

func (s *GormStore) drugExists(cond string, args ...any) (bool, error) {
	var count int64
	if err := s.db.Model(&DrugModel{}).Where(cond, args...).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *GormStore) Insert(d *domain.Drug) error {
	m := drugToModel(*d)
	m.ID = 0
	if err := s.db.Create(&m).Error; err != nil {
		return translateErr(err)
	}
	*d = drugFromModel(m)
	return nil
}

func (s *GormStore) Update(d domain.Drug) error {
	m := drugToModel(d)
	res := s.db.Model(&DrugModel{}).Where("id = ?", d.ID).Select(
		"name", "barcode", "approval_number", "manufacturer", "specification",
		"dosage_form", "main_ingredient", "indications", "contraindications",
		"adverse_reactions", "dosage_usage", "precautions", "interactions",
		"storage_conditions", "validity_period", "image_url", "price", "status",
	).Updates(&m)
	if res.Error != nil {
		return translateErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) Delete(id int64) error {
	return s.db.Delete(&DrugModel{}, "id = ?", id).Error
}

func (s *GormStore) UpdateStatus(id int64, status domain.DrugStatus) error {
	return s.db.Model(&DrugModel{}).Where("id = ?", id).
		Update("status", string(status)).Error
}

func (s *GormStore) FindByNamePrefix(name string, limit int) ([]domain.Drug, error) {
	var models []DrugModel
	if err := s.db.Where("name LIKE ?", name+"%").Order("name ASC").
		Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}
	return drugsFromModels(models), nil
}

func (s *GormStore) Popular(limit int) ([]domain.Drug, error) {
	var models []DrugModel
	if err := s.db.Where("status = ?", string(domain.DrugActive)).
		Order("updated_at DESC").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}
	return drugsFromModels(models), nil
}

func (s *GormStore) CountTotal() (int64, error) {
	var count int64
	if err := s.db.Model(&DrugModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *GormStore) CountCreatedSince(t time.Time) (int64, error) {
	var count int64
	if err := s.db.Model(&DrugModel{}).Where("created_at >= ?", t).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func drugsFromModels(models []DrugModel) []domain.Drug {
	res := make([]domain.Drug, 0, len(models))
	for _, m := range models {
		res = append(res, drugFromModel(m))
	}
	return res
}

// translateErr maps driver duplicate-key errors onto ErrConflict so callers
// see one conflict outcome regardless of whether the pre-check or the unique
// index caught the duplicate.
func translateErr(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}
