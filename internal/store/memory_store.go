package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"healthhub/internal/domain"
)

var (
	_ DrugStore = (*MemoryStore)(nil)
	_ UserStore = (*MemoryStore)(nil)
)

// MemoryStore keeps records in-process. It mirrors the GormStore semantics,
// including uniqueness conflicts, and backs tests and local development.
type MemoryStore struct {
	mu         sync.RWMutex
	drugs      map[int64]domain.Drug
	users      map[int64]domain.User
	nextDrugID int64
	nextUserID int64
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		drugs:      make(map[int64]domain.Drug),
		users:      make(map[int64]domain.User),
		nextDrugID: 1,
		nextUserID: 1,
	}
}

func (m *MemoryStore) FindByID(id int64) (domain.Drug, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.drugs[id]
	return d, ok, nil
}

func (m *MemoryStore) FindByBarcode(barcode string) (domain.Drug, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.drugs {
		if d.Barcode != "" && d.Barcode == barcode {
			return d, true, nil
		}
	}
	return domain.Drug{}, false, nil
}

func (m *MemoryStore) FindByApprovalNumber(approvalNumber string) (domain.Drug, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.drugs {
		if d.ApprovalNumber != "" && d.ApprovalNumber == approvalNumber {
			return d, true, nil
		}
	}
	return domain.Drug{}, false, nil
}

func matchesDrug(d domain.Drug, q DrugQuery) bool {
	if q.Keyword != "" && !strings.Contains(d.Name, q.Keyword) {
		return false
	}
	if q.Manufacturer != "" && !strings.Contains(d.Manufacturer, q.Manufacturer) {
		return false
	}
	if q.Status != nil && d.Status != *q.Status {
		return false
	}
	return true
}

func (m *MemoryStore) matchingDrugs(q DrugQuery) []domain.Drug {
	res := make([]domain.Drug, 0, len(m.drugs))
	for _, d := range m.drugs {
		if matchesDrug(d, q) {
			res = append(res, d)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

func (m *MemoryStore) Search(q DrugQuery) ([]domain.Drug, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := m.matchingDrugs(q)
	if q.Offset >= len(res) {
		return []domain.Drug{}, nil
	}
	res = res[q.Offset:]
	if q.Limit > 0 && len(res) > q.Limit {
		res = res[:q.Limit]
	}
	return res, nil
}

func (m *MemoryStore) Count(q DrugQuery) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.matchingDrugs(q))), nil
}

func (m *MemoryStore) ExistsByBarcode(barcode string) (bool, error) {
	_, ok, err := m.FindByBarcode(barcode)
	return ok, err
}

func (m *MemoryStore) ExistsByApprovalNumber(approvalNumber string) (bool, error) {
	_, ok, err := m.FindByApprovalNumber(approvalNumber)
	return ok, err
}

func (m *MemoryStore) Insert(d *domain.Drug) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.drugs {
		if d.Barcode != "" && existing.Barcode == d.Barcode {
			return ErrConflict
		}
		if d.ApprovalNumber != "" && existing.ApprovalNumber == d.ApprovalNumber {
			return ErrConflict
		}
	}
	d.ID = m.nextDrugID
	m.nextDrugID++
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now
	m.drugs[d.ID] = *d
	return nil
}

func (m *MemoryStore) Update(d domain.Drug) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.drugs[d.ID]
	if !ok {
		return ErrNotFound
	}
	for id, other := range m.drugs {
		if id == d.ID {
			continue
		}
		if d.Barcode != "" && other.Barcode == d.Barcode {
			return ErrConflict
		}
		if d.ApprovalNumber != "" && other.ApprovalNumber == d.ApprovalNumber {
			return ErrConflict
		}
	}
	d.CreatedAt = existing.CreatedAt
	d.UpdatedAt = time.Now().UTC()
	m.drugs[d.ID] = d
	return nil
}

func (m *MemoryStore) Delete(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drugs, id)
	return nil
}

func (m *MemoryStore) UpdateStatus(id int64, status domain.DrugStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drugs[id]
	if !ok {
		return nil
	}
	d.Status = status
	d.UpdatedAt = time.Now().UTC()
	m.drugs[id] = d
	return nil
}

func (m *MemoryStore) FindByNamePrefix(name string, limit int) ([]domain.Drug, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Drug, 0, limit)
	for _, d := range m.drugs {
		if strings.HasPrefix(d.Name, name) {
			res = append(res, d)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (m *MemoryStore) Popular(limit int) ([]domain.Drug, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Drug, 0, limit)
	for _, d := range m.drugs {
		if d.Status == domain.DrugActive {
			res = append(res, d)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].UpdatedAt.After(res[j].UpdatedAt) })
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (m *MemoryStore) CountTotal() (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.drugs)), nil
}

func (m *MemoryStore) CountCreatedSince(t time.Time) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var count int64
	for _, d := range m.drugs {
		if !d.CreatedAt.Before(t) {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) FindUserByID(id int64) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

func (m *MemoryStore) FindByOpenid(openid string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Openid == openid {
			return u, true, nil
		}
	}
	return domain.User{}, false, nil
}

func (m *MemoryStore) FindByPhone(phone string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Phone != "" && u.Phone == phone {
			return u, true, nil
		}
	}
	return domain.User{}, false, nil
}

func (m *MemoryStore) InsertUser(u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Openid == u.Openid {
			return ErrConflict
		}
		if u.Phone != "" && existing.Phone == u.Phone {
			return ErrConflict
		}
	}
	u.ID = m.nextUserID
	m.nextUserID++
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	m.users[u.ID] = *u
	return nil
}

func (m *MemoryStore) UpdateUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.users[u.ID]
	if !ok {
		return ErrNotFound
	}
	for id, other := range m.users {
		if id == u.ID {
			continue
		}
		if u.Phone != "" && other.Phone == u.Phone {
			return ErrConflict
		}
	}
	u.Openid = existing.Openid
	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = time.Now().UTC()
	m.users[u.ID] = u
	return nil
}

func (m *MemoryStore) ListUsers(q UserQuery) ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := m.matchingUsers(q)
	if q.Offset >= len(res) {
		return []domain.User{}, nil
	}
	res = res[q.Offset:]
	if q.Limit > 0 && len(res) > q.Limit {
		res = res[:q.Limit]
	}
	return res, nil
}

func (m *MemoryStore) matchingUsers(q UserQuery) []domain.User {
	res := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		if q.Nickname != "" && !strings.Contains(u.Nickname, q.Nickname) {
			continue
		}
		if q.Status != nil && u.Status != *q.Status {
			continue
		}
		res = append(res, u)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

func (m *MemoryStore) CountUsers(q UserQuery) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.matchingUsers(q))), nil
}

func (m *MemoryStore) UpdateUserStatus(id int64, status domain.UserStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil
	}
	u.Status = status
	u.UpdatedAt = time.Now().UTC()
	m.users[id] = u
	return nil
}

func (m *MemoryStore) CountTotalUsers() (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.users)), nil
}

func (m *MemoryStore) CountUsersCreatedSince(t time.Time) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var count int64
	for _, u := range m.users {
		if !u.CreatedAt.Before(t) {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) CountUsersUpdatedSince(t time.Time) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var count int64
	for _, u := range m.users {
		if !u.UpdatedAt.Before(t) {
			count++
		}
	}
	return count, nil
}
