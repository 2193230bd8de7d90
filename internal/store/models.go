package store

import (
	"time"

	"github.com/shopspring/decimal"

	"healthhub/internal/domain"
)

// DrugModel is the GORM mapping for drug records. Barcode and ApprovalNumber
// are nullable so the unique indexes only apply to present values.
type DrugModel struct {
	ID                int64            `gorm:"primaryKey;autoIncrement"`
	Name              string           `gorm:"size:255;not null;index"`
	Barcode           *string          `gorm:"size:64;uniqueIndex"`
	ApprovalNumber    *string          `gorm:"size:64;uniqueIndex"`
	Manufacturer      string           `gorm:"size:255;index"`
	Specification     string           `gorm:"size:255"`
	DosageForm        string           `gorm:"size:64"`
	MainIngredient    string           `gorm:"type:text"`
	Indications       string           `gorm:"type:text"`
	Contraindications string           `gorm:"type:text"`
	AdverseReactions  string           `gorm:"type:text"`
	DosageUsage       string           `gorm:"type:text"`
	Precautions       string           `gorm:"type:text"`
	Interactions      string           `gorm:"type:text"`
	StorageConditions string           `gorm:"size:255"`
	ValidityPeriod    string           `gorm:"size:64"`
	ImageURL          string           `gorm:"size:512"`
	Price             *decimal.Decimal `gorm:"type:decimal(10,2)"`
	Status            string           `gorm:"size:16;not null;index"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TableName keeps the table name stable regardless of pluralization rules.
func (DrugModel) TableName() string { return "drugs" }

// UserModel is the GORM mapping for user accounts.
type UserModel struct {
	ID               int64   `gorm:"primaryKey;autoIncrement"`
	Openid           string  `gorm:"size:64;not null;uniqueIndex"`
	Unionid          *string `gorm:"size:64;index"`
	Nickname         string  `gorm:"size:64"`
	AvatarURL        string  `gorm:"size:512"`
	Gender           int     `gorm:"not null;default:0"`
	Age              int
	Phone            *string `gorm:"size:20;uniqueIndex"`
	EmergencyContact string  `gorm:"size:64"`
	EmergencyPhone   string  `gorm:"size:20"`
	MedicalHistory   string  `gorm:"type:text"`
	Allergies        string  `gorm:"type:text"`
	Status           string  `gorm:"size:16;not null;index"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (UserModel) TableName() string { return "users" }

func drugToModel(d domain.Drug) DrugModel {
	return DrugModel{
		ID:                d.ID,
		Name:              d.Name,
		Barcode:           optional(d.Barcode),
		ApprovalNumber:    optional(d.ApprovalNumber),
		Manufacturer:      d.Manufacturer,
		Specification:     d.Specification,
		DosageForm:        d.DosageForm,
		MainIngredient:    d.MainIngredient,
		Indications:       d.Indications,
		Contraindications: d.Contraindications,
		AdverseReactions:  d.AdverseReactions,
		DosageUsage:       d.DosageUsage,
		Precautions:       d.Precautions,
		Interactions:      d.Interactions,
		StorageConditions: d.StorageConditions,
		ValidityPeriod:    d.ValidityPeriod,
		ImageURL:          d.ImageURL,
		Price:             d.Price,
		Status:            string(d.Status),
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

func drugFromModel(m DrugModel) domain.Drug {
	return domain.Drug{
		ID:                m.ID,
		Name:              m.Name,
		Barcode:           deref(m.Barcode),
		ApprovalNumber:    deref(m.ApprovalNumber),
		Manufacturer:      m.Manufacturer,
		Specification:     m.Specification,
		DosageForm:        m.DosageForm,
		MainIngredient:    m.MainIngredient,
		Indications:       m.Indications,
		Contraindications: m.Contraindications,
		AdverseReactions:  m.AdverseReactions,
		DosageUsage:       m.DosageUsage,
		Precautions:       m.Precautions,
		Interactions:      m.Interactions,
		StorageConditions: m.StorageConditions,
		ValidityPeriod:    m.ValidityPeriod,
		ImageURL:          m.ImageURL,
		Price:             m.Price,
		Status:            domain.DrugStatus(m.Status),
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:               u.ID,
		Openid:           u.Openid,
		Unionid:          optional(u.Unionid),
		Nickname:         u.Nickname,
		AvatarURL:        u.AvatarURL,
		Gender:           u.Gender,
		Age:              u.Age,
		Phone:            optional(u.Phone),
		EmergencyContact: u.EmergencyContact,
		EmergencyPhone:   u.EmergencyPhone,
		MedicalHistory:   u.MedicalHistory,
		Allergies:        u.Allergies,
		Status:           string(u.Status),
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:               m.ID,
		Openid:           m.Openid,
		Unionid:          deref(m.Unionid),
		Nickname:         m.Nickname,
		AvatarURL:        m.AvatarURL,
		Gender:           m.Gender,
		Age:              m.Age,
		Phone:            deref(m.Phone),
		EmergencyContact: m.EmergencyContact,
		EmergencyPhone:   m.EmergencyPhone,
		MedicalHistory:   m.MedicalHistory,
		Allergies:        m.Allergies,
		Status:           domain.UserStatus(m.Status),
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// optional maps an empty string to NULL so unique indexes skip absent values.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
