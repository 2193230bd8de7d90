package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"healthhub/internal/domain"
	"healthhub/internal/store"
)

const (
	defaultPage = 1
	defaultSize = 10
)

// DrugDirectory is the remote drug-information source. It is best-effort:
// every failure is absorbed by the service and degrades to local-only data.
type DrugDirectory interface {
	QueryByBarcode(ctx context.Context, barcode string) (domain.Drug, bool, error)
	Search(ctx context.Context, keyword string, page, size int) ([]domain.Drug, error)
}

// DrugService resolves drug lookups local-first with a remote fallback:
// the local store answers when it can, the remote directory fills gaps, and
// remote hits are persisted so the next lookup stays local.
type DrugService struct {
	store     store.DrugStore
	directory DrugDirectory
	log       *slog.Logger
}

// NewDrugService wires the service. directory may be nil to disable the
// remote fallback entirely.
func NewDrugService(st store.DrugStore, directory DrugDirectory, log *slog.Logger) *DrugService {
	if log == nil {
		log = slog.Default()
	}
	return &DrugService{store: st, directory: directory, log: log}
}

// SearchQuery is a consumer search request. Page is 1-based.
type SearchQuery struct {
	Keyword      string
	Manufacturer string
	Status       *domain.DrugStatus
	Page         int
	Size         int
}

// DrugStats is the administrative counters snapshot.
type DrugStats struct {
	Total    int64 `json:"totalDrugs"`
	TodayNew int64 `json:"todayNewDrugs"`
}

// LookupByBarcode returns the drug for a barcode. Local hits return without
// touching the remote directory; on a local miss the directory is consulted
// and a hit is cached back into the store. A remote hit is returned even when
// caching fails, just without an assigned id.
func (s *DrugService) LookupByBarcode(ctx context.Context, barcode string) (domain.Drug, bool, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return domain.Drug{}, false, nil
	}

	drug, ok, err := s.store.FindByBarcode(barcode)
	if err != nil {
		return domain.Drug{}, false, fmt.Errorf("lookup barcode: %w", err)
	}
	if ok {
		return drug, true, nil
	}
	if s.directory == nil {
		return domain.Drug{}, false, nil
	}

	remote, ok, err := s.directory.QueryByBarcode(ctx, barcode)
	if err != nil {
		s.log.Warn("drug directory lookup failed", "barcode", barcode, "err", err)
		return domain.Drug{}, false, nil
	}
	if !ok {
		return domain.Drug{}, false, nil
	}
	return s.cacheRemote(remote), true, nil
}

// Search pages through local matches and, when a keyword query comes up short
// of a full page, supplements from the remote directory. The returned total
// always reflects the local store before supplementation.
func (s *DrugService) Search(ctx context.Context, q SearchQuery) ([]domain.Drug, int64, error) {
	if q.Page < 1 {
		q.Page = defaultPage
	}
	if q.Size < 1 {
		q.Size = defaultSize
	}
	keyword := strings.TrimSpace(q.Keyword)

	storeQuery := store.DrugQuery{
		Keyword:      keyword,
		Manufacturer: q.Manufacturer,
		Status:       q.Status,
		Offset:       (q.Page - 1) * q.Size,
		Limit:        q.Size,
	}
	drugs, err := s.store.Search(storeQuery)
	if err != nil {
		return nil, 0, fmt.Errorf("search drugs: %w", err)
	}
	total, err := s.store.Count(storeQuery)
	if err != nil {
		return nil, 0, fmt.Errorf("count drugs: %w", err)
	}

	if len(drugs) >= q.Size || keyword == "" || s.directory == nil {
		return drugs, total, nil
	}

	need := q.Size - len(drugs)
	remotes, err := s.directory.Search(ctx, keyword, q.Page, need)
	if err != nil {
		s.log.Warn("drug directory search failed", "keyword", keyword, "err", err)
		return drugs, total, nil
	}
	for _, remote := range remotes {
		if len(drugs) >= q.Size {
			break
		}
		if remote.Barcode != "" {
			exists, err := s.store.ExistsByBarcode(remote.Barcode)
			if err != nil {
				s.log.Warn("barcode existence check failed", "barcode", remote.Barcode, "err", err)
				continue
			}
			if exists {
				continue
			}
		}
		drugs = append(drugs, s.cacheRemote(remote))
	}
	return drugs, total, nil
}

// cacheRemote persists a normalized remote record. Persistence failures are
// logged and the unpersisted record is handed back so the caller still gets
// data when local caching is the only thing that broke.
func (s *DrugService) cacheRemote(remote domain.Drug) domain.Drug {
	saved, err := s.SaveDrug(remote)
	if err != nil {
		s.log.Warn("caching remote drug failed",
			"barcode", remote.Barcode, "name", remote.Name, "err", err)
		return remote
	}
	s.log.Info("cached remote drug", "id", saved.ID, "barcode", saved.Barcode)
	return saved
}

// SaveDrug inserts a new record, guarding barcode and approval-number
// uniqueness. The pre-checks are an early exit; the store's unique indexes
// are the real enforcers and report the same ErrConflict.
func (s *DrugService) SaveDrug(d domain.Drug) (domain.Drug, error) {
	if strings.TrimSpace(d.Name) == "" {
		return domain.Drug{}, fmt.Errorf("%w: drug name is required", ErrInvalidInput)
	}
	if d.Barcode != "" {
		exists, err := s.store.ExistsByBarcode(d.Barcode)
		if err != nil {
			return domain.Drug{}, fmt.Errorf("check barcode: %w", err)
		}
		if exists {
			return domain.Drug{}, fmt.Errorf("%w: barcode %s already registered", ErrConflict, d.Barcode)
		}
	}
	if d.ApprovalNumber != "" {
		exists, err := s.store.ExistsByApprovalNumber(d.ApprovalNumber)
		if err != nil {
			return domain.Drug{}, fmt.Errorf("check approval number: %w", err)
		}
		if exists {
			return domain.Drug{}, fmt.Errorf("%w: approval number %s already registered", ErrConflict, d.ApprovalNumber)
		}
	}
	if d.Status == "" {
		d.Status = domain.DrugActive
	} else if _, valid := domain.ParseDrugStatus(string(d.Status)); !valid {
		return domain.Drug{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, d.Status)
	}
	if err := s.store.Insert(&d); err != nil {
		return domain.Drug{}, fmt.Errorf("insert drug: %w", err)
	}
	return d, nil
}

// GetByID returns a drug by its local id.
func (s *DrugService) GetByID(id int64) (domain.Drug, bool, error) {
	if id <= 0 {
		return domain.Drug{}, false, nil
	}
	return s.store.FindByID(id)
}

// UpdateDrug rewrites an existing record. Moving a barcode onto a record
// another drug already owns is a conflict.
func (s *DrugService) UpdateDrug(d domain.Drug) (domain.Drug, error) {
	if d.ID <= 0 {
		return domain.Drug{}, fmt.Errorf("%w: drug id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(d.Name) == "" {
		return domain.Drug{}, fmt.Errorf("%w: drug name is required", ErrInvalidInput)
	}
	existing, ok, err := s.store.FindByID(d.ID)
	if err != nil {
		return domain.Drug{}, fmt.Errorf("load drug: %w", err)
	}
	if !ok {
		return domain.Drug{}, ErrNotFound
	}
	// An omitted status keeps the stored one; anything else must be a known
	// lifecycle value.
	if d.Status == "" {
		d.Status = existing.Status
	} else if _, valid := domain.ParseDrugStatus(string(d.Status)); !valid {
		return domain.Drug{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, d.Status)
	}
	if d.Barcode != "" {
		owner, ok, err := s.store.FindByBarcode(d.Barcode)
		if err != nil {
			return domain.Drug{}, fmt.Errorf("check barcode: %w", err)
		}
		if ok && owner.ID != d.ID {
			return domain.Drug{}, fmt.Errorf("%w: barcode %s belongs to drug %d", ErrConflict, d.Barcode, owner.ID)
		}
	}
	if err := s.store.Update(d); err != nil {
		return domain.Drug{}, fmt.Errorf("update drug: %w", err)
	}
	updated, _, err := s.store.FindByID(d.ID)
	if err != nil {
		return domain.Drug{}, fmt.Errorf("reload drug: %w", err)
	}
	return updated, nil
}

// DeleteDrug removes a record. Deletion is administrative only; the fallback
// path never deletes.
func (s *DrugService) DeleteDrug(id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: drug id is required", ErrInvalidInput)
	}
	_, ok, err := s.store.FindByID(id)
	if err != nil {
		return fmt.Errorf("load drug: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return s.store.Delete(id)
}

// UpdateStatus toggles a drug between active and offline.
func (s *DrugService) UpdateStatus(id int64, status domain.DrugStatus) error {
	if id <= 0 {
		return fmt.Errorf("%w: drug id is required", ErrInvalidInput)
	}
	_, ok, err := s.store.FindByID(id)
	if err != nil {
		return fmt.Errorf("load drug: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return s.store.UpdateStatus(id, status)
}

// Suggest returns name-prefix completions for search-as-you-type.
func (s *DrugService) Suggest(name string, limit int) ([]domain.Drug, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return []domain.Drug{}, nil
	}
	if limit < 1 {
		limit = defaultSize
	}
	return s.store.FindByNamePrefix(name, limit)
}

// Popular returns the most recently maintained active drugs.
func (s *DrugService) Popular(limit int) ([]domain.Drug, error) {
	if limit < 1 {
		limit = defaultSize
	}
	return s.store.Popular(limit)
}

// Statistics reports the administrative counters.
func (s *DrugService) Statistics() (DrugStats, error) {
	total, err := s.store.CountTotal()
	if err != nil {
		return DrugStats{}, fmt.Errorf("count drugs: %w", err)
	}
	todayNew, err := s.store.CountCreatedSince(startOfToday())
	if err != nil {
		return DrugStats{}, fmt.Errorf("count today drugs: %w", err)
	}
	return DrugStats{Total: total, TodayNew: todayNew}, nil
}

func startOfToday() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
