package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DrugStatus is the lifecycle state of a drug record. Offline records stay in
// the store but are hidden from consumer-facing lookups when filtered.
type DrugStatus string

const (
	DrugActive  DrugStatus = "active"
	DrugOffline DrugStatus = "offline"
)

// UserStatus is the account state of a user.
type UserStatus string

const (
	UserActive   UserStatus = "active"
	UserDisabled UserStatus = "disabled"
)

// Gender codes follow the WeChat profile convention.
const (
	GenderUnknown = 0
	GenderMale    = 1
	GenderFemale  = 2
)

// Drug is the canonical drug record. Barcode and ApprovalNumber are optional
// natural keys: empty means absent, and a non-empty value is unique across the
// store. Every remote payload variant is normalized into this shape.
type Drug struct {
	ID                int64            `json:"id"`
	Name              string           `json:"name"`
	Barcode           string           `json:"barcode,omitempty"`
	ApprovalNumber    string           `json:"approvalNumber,omitempty"`
	Manufacturer      string           `json:"manufacturer,omitempty"`
	Specification     string           `json:"specification,omitempty"`
	DosageForm        string           `json:"dosageForm,omitempty"`
	MainIngredient    string           `json:"mainIngredient,omitempty"`
	Indications       string           `json:"indications,omitempty"`
	Contraindications string           `json:"contraindications,omitempty"`
	AdverseReactions  string           `json:"adverseReactions,omitempty"`
	DosageUsage       string           `json:"usage,omitempty"`
	Precautions       string           `json:"precautions,omitempty"`
	Interactions      string           `json:"interactions,omitempty"`
	StorageConditions string           `json:"storageConditions,omitempty"`
	ValidityPeriod    string           `json:"validityPeriod,omitempty"`
	ImageURL          string           `json:"imageUrl,omitempty"`
	Price             *decimal.Decimal `json:"price,omitempty"`
	Status            DrugStatus       `json:"status"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

// User is a mini-program account. Openid is the unique WeChat identity key;
// Unionid is optional and may arrive later than the first login.
type User struct {
	ID               int64      `json:"id"`
	Openid           string     `json:"openid"`
	Unionid          string     `json:"unionid,omitempty"`
	Nickname         string     `json:"nickname,omitempty"`
	AvatarURL        string     `json:"avatarUrl,omitempty"`
	Gender           int        `json:"gender"`
	Age              int        `json:"age,omitempty"`
	Phone            string     `json:"phone,omitempty"`
	EmergencyContact string     `json:"emergencyContact,omitempty"`
	EmergencyPhone   string     `json:"emergencyPhone,omitempty"`
	MedicalHistory   string     `json:"medicalHistory,omitempty"`
	Allergies        string     `json:"allergies,omitempty"`
	Status           UserStatus `json:"status"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// ParseDrugStatus validates a status value coming from a request.
func ParseDrugStatus(s string) (DrugStatus, bool) {
	switch DrugStatus(s) {
	case DrugActive:
		return DrugActive, true
	case DrugOffline:
		return DrugOffline, true
	default:
		return "", false
	}
}

// ParseUserStatus validates a user status value coming from a request.
func ParseUserStatus(s string) (UserStatus, bool) {
	switch UserStatus(s) {
	case UserActive:
		return UserActive, true
	case UserDisabled:
		return UserDisabled, true
	default:
		return "", false
	}
}
