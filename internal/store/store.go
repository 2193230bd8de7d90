package store

import (
	"errors"
	"time"

	"healthhub/internal/domain"
)

// ErrConflict is returned when a write would violate a uniqueness invariant
// (barcode, approval number, openid or phone already taken).
var ErrConflict = errors.New("store: conflict")

// ErrNotFound is returned by updates targeting a missing row. Lookups report
// absence through their boolean result instead.
var ErrNotFound = errors.New("store: not found")

// DrugQuery filters drug search and count operations. Empty string fields and
// a nil Status mean "no filter".
type DrugQuery struct {
	Keyword      string
	Manufacturer string
	Status       *domain.DrugStatus
	Offset       int
	Limit        int
}

// UserQuery filters the administrative user listing.
type UserQuery struct {
	Nickname string
	Status   *domain.UserStatus
	Offset   int
	Limit    int
}

// DrugStore is the local persistence for drug records.
type DrugStore interface {
	FindByID(id int64) (domain.Drug, bool, error)
	FindByBarcode(barcode string) (domain.Drug, bool, error)
	FindByApprovalNumber(approvalNumber string) (domain.Drug, bool, error)
	// Search returns at most q.Limit rows matching q starting at q.Offset.
	Search(q DrugQuery) ([]domain.Drug, error)
	// Count returns the number of rows matching q, ignoring Offset/Limit.
	Count(q DrugQuery) (int64, error)
	ExistsByBarcode(barcode string) (bool, error)
	ExistsByApprovalNumber(approvalNumber string) (bool, error)
	// Insert assigns ID and timestamps on success. A uniqueness violation is
	// reported as ErrConflict.
	Insert(d *domain.Drug) error
	Update(d domain.Drug) error
	Delete(id int64) error
	UpdateStatus(id int64, status domain.DrugStatus) error
	FindByNamePrefix(name string, limit int) ([]domain.Drug, error)
	// Popular returns the most recently updated active drugs.
	Popular(limit int) ([]domain.Drug, error)
	CountTotal() (int64, error)
	CountCreatedSince(t time.Time) (int64, error)
}

// UserStore is the local persistence for user accounts. Method names carry
// the entity so one store implementation can satisfy both interfaces.
type UserStore interface {
	FindUserByID(id int64) (domain.User, bool, error)
	FindByOpenid(openid string) (domain.User, bool, error)
	FindByPhone(phone string) (domain.User, bool, error)
	InsertUser(u *domain.User) error
	UpdateUser(u domain.User) error
	ListUsers(q UserQuery) ([]domain.User, error)
	CountUsers(q UserQuery) (int64, error)
	UpdateUserStatus(id int64, status domain.UserStatus) error
	CountTotalUsers() (int64, error)
	CountUsersCreatedSince(t time.Time) (int64, error)
	CountUsersUpdatedSince(t time.Time) (int64, error)
}
