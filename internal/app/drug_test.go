package app

import (
	"context"
	"errors"
	"testing"

	"healthhub/internal/domain"
	"healthhub/internal/store"
)

type fakeDirectory struct {
	drug      domain.Drug
	found     bool
	err       error
	results   []domain.Drug
	searchErr error

	barcodeCalls int
	searchCalls  int
}

func (f *fakeDirectory) QueryByBarcode(_ context.Context, _ string) (domain.Drug, bool, error) {
	f.barcodeCalls++
	return f.drug, f.found, f.err
}

func (f *fakeDirectory) Search(_ context.Context, _ string, _, _ int) ([]domain.Drug, error) {
	f.searchCalls++
	return f.results, f.searchErr
}

// conflictStore simulates losing an insert race: the pre-checks see no row,
// but the insert itself reports a duplicate.
type conflictStore struct {
	*store.MemoryStore
}

func (c *conflictStore) Insert(_ *domain.Drug) error {
	return store.ErrConflict
}

func mustInsert(t *testing.T, st *store.MemoryStore, d domain.Drug) domain.Drug {
	t.Helper()
	if d.Status == "" {
		d.Status = domain.DrugActive
	}
	if err := st.Insert(&d); err != nil {
		t.Fatalf("insert drug: %v", err)
	}
	return d
}

func TestLookupByBarcodeLocalHitSkipsRemote(t *testing.T) {
	st := store.NewMemoryStore()
	mustInsert(t, st, domain.Drug{Name: "Aspirin", Barcode: "6901234567890"})
	dir := &fakeDirectory{}
	svc := NewDrugService(st, dir, nil)

	drug, ok, err := svc.LookupByBarcode(context.Background(), "6901234567890")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !ok || drug.Name != "Aspirin" {
		t.Fatalf("got (%+v, %v), want local Aspirin hit", drug, ok)
	}
	if dir.barcodeCalls != 0 {
		t.Fatalf("remote calls = %d, want 0 on local hit", dir.barcodeCalls)
	}
}

func TestLookupByBarcodeRemoteFallbackCaches(t *testing.T) {
	st := store.NewMemoryStore()
	dir := &fakeDirectory{
		drug:  domain.Drug{Name: "Ibuprofen", Barcode: "6900000000017"},
		found: true,
	}
	svc := NewDrugService(st, dir, nil)

	drug, ok, err := svc.LookupByBarcode(context.Background(), "6900000000017")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !ok || drug.ID == 0 {
		t.Fatalf("got (%+v, %v), want persisted remote hit", drug, ok)
	}
	if drug.Status != domain.DrugActive {
		t.Fatalf("status = %q, want active", drug.Status)
	}

	// The record is now local; a second lookup must not touch the remote.
	_, ok, err = svc.LookupByBarcode(context.Background(), "6900000000017")
	if err != nil || !ok {
		t.Fatalf("second lookup: ok=%v err=%v", ok, err)
	}
	if dir.barcodeCalls != 1 {
		t.Fatalf("remote calls = %d, want 1", dir.barcodeCalls)
	}
}

func TestLookupByBarcodeRemoteFailureDegrades(t *testing.T) {
	st := store.NewMemoryStore()
	dir := &fakeDirectory{err: errors.New("upstream down")}
	svc := NewDrugService(st, dir, nil)

	_, ok, err := svc.LookupByBarcode(context.Background(), "6900000000024")
	if err != nil {
		t.Fatalf("remote failure must be absorbed, got %v", err)
	}
	if ok {
		t.Fatalf("ok = true, want not-found on remote failure")
	}
}

func TestLookupByBarcodeRemoteMiss(t *testing.T) {
	svc := NewDrugService(store.NewMemoryStore(), &fakeDirectory{}, nil)
	_, ok, err := svc.LookupByBarcode(context.Background(), "6900000000031")
	if err != nil || ok {
		t.Fatalf("got ok=%v err=%v, want clean miss", ok, err)
	}
}

func TestLookupByBarcodeWithoutDirectory(t *testing.T) {
	svc := NewDrugService(store.NewMemoryStore(), nil, nil)
	_, ok, err := svc.LookupByBarcode(context.Background(), "6900000000048")
	if err != nil || ok {
		t.Fatalf("got ok=%v err=%v, want local-only miss", ok, err)
	}
}

func TestLookupByBarcodeBlank(t *testing.T) {
	dir := &fakeDirectory{}
	svc := NewDrugService(store.NewMemoryStore(), dir, nil)
	_, ok, err := svc.LookupByBarcode(context.Background(), "   ")
	if err != nil || ok {
		t.Fatalf("got ok=%v err=%v, want miss for blank barcode", ok, err)
	}
	if dir.barcodeCalls != 0 {
		t.Fatalf("remote calls = %d, want 0 for blank barcode", dir.barcodeCalls)
	}
}

func TestLookupByBarcodeInsertRaceReturnsUnpersisted(t *testing.T) {
	st := &conflictStore{MemoryStore: store.NewMemoryStore()}
	dir := &fakeDirectory{
		drug:  domain.Drug{Name: "Paracetamol", Barcode: "6900000000055"},
		found: true,
	}
	svc := NewDrugService(st, dir, nil)

	drug, ok, err := svc.LookupByBarcode(context.Background(), "6900000000055")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !ok || drug.Name != "Paracetamol" {
		t.Fatalf("got (%+v, %v), want the remote record back", drug, ok)
	}
	if drug.ID != 0 {
		t.Fatalf("id = %d, want 0 when persistence lost the race", drug.ID)
	}
	count, _ := st.CountTotal()
	if count != 0 {
		t.Fatalf("row count = %d, want unchanged", count)
	}
}

func TestSearchSupplementsFromRemote(t *testing.T) {
	st := store.NewMemoryStore()
	mustInsert(t, st, domain.Drug{Name: "Amoxicillin Capsules", Barcode: "6900000000062"})
	dir := &fakeDirectory{
		results: []domain.Drug{
			{Name: "Amoxicillin Granules", Barcode: "6900000000079"},
			{Name: "Amoxicillin Capsules", Barcode: "6900000000062"},
			{Name: "Amoxicillin Tablets", Barcode: "6900000000086"},
		},
	}
	svc := NewDrugService(st, dir, nil)

	drugs, total, err := svc.Search(context.Background(), SearchQuery{Keyword: "Amoxicillin", Size: 3})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 1 {
		t.Fatalf("total = %d, want local count before supplementation", total)
	}
	if len(drugs) != 3 {
		t.Fatalf("len = %d, want page filled to 3", len(drugs))
	}
	for _, d := range drugs[1:] {
		if d.ID == 0 {
			t.Fatalf("supplemented drug %q not persisted", d.Name)
		}
	}
	count, _ := st.CountTotal()
	if count != 3 {
		t.Fatalf("row count = %d, want 3 after dedup by barcode", count)
	}
	if dir.searchCalls != 1 {
		t.Fatalf("remote search calls = %d, want 1", dir.searchCalls)
	}
}

func TestSearchFullPageSkipsRemote(t *testing.T) {
	st := store.NewMemoryStore()
	mustInsert(t, st, domain.Drug{Name: "Vitamin C", Barcode: "6900000000093"})
	mustInsert(t, st, domain.Drug{Name: "Vitamin D", Barcode: "6900000000109"})
	dir := &fakeDirectory{}
	svc := NewDrugService(st, dir, nil)

	drugs, total, err := svc.Search(context.Background(), SearchQuery{Keyword: "Vitamin", Size: 2})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(drugs) != 2 || total != 2 {
		t.Fatalf("got %d/%d, want 2/2", len(drugs), total)
	}
	if dir.searchCalls != 0 {
		t.Fatalf("remote search calls = %d, want 0 for a full page", dir.searchCalls)
	}
}

func TestSearchEmptyKeywordSkipsRemote(t *testing.T) {
	dir := &fakeDirectory{results: []domain.Drug{{Name: "Something", Barcode: "6900000000116"}}}
	svc := NewDrugService(store.NewMemoryStore(), dir, nil)

	drugs, total, err := svc.Search(context.Background(), SearchQuery{Size: 5})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(drugs) != 0 || total != 0 {
		t.Fatalf("got %d/%d, want empty local browse", len(drugs), total)
	}
	if dir.searchCalls != 0 {
		t.Fatalf("remote search calls = %d, want 0 without keyword", dir.searchCalls)
	}
}

func TestSearchRemoteFailureReturnsLocal(t *testing.T) {
	st := store.NewMemoryStore()
	mustInsert(t, st, domain.Drug{Name: "Cetirizine", Barcode: "6900000000123"})
	dir := &fakeDirectory{searchErr: errors.New("timeout")}
	svc := NewDrugService(st, dir, nil)

	drugs, total, err := svc.Search(context.Background(), SearchQuery{Keyword: "Cetirizine", Size: 5})
	if err != nil {
		t.Fatalf("remote failure must be absorbed, got %v", err)
	}
	if len(drugs) != 1 || total != 1 {
		t.Fatalf("got %d/%d, want the local row", len(drugs), total)
	}
}

func TestSearchNormalizesPaging(t *testing.T) {
	st := store.NewMemoryStore()
	for i := 0; i < 12; i++ {
		mustInsert(t, st, domain.Drug{Name: "Generic"})
	}
	svc := NewDrugService(st, nil, nil)

	drugs, total, err := svc.Search(context.Background(), SearchQuery{Page: -3, Size: 0})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(drugs) != defaultSize {
		t.Fatalf("len = %d, want default page size %d", len(drugs), defaultSize)
	}
	if total != 12 {
		t.Fatalf("total = %d, want 12", total)
	}
}

func TestSaveDrugRequiresName(t *testing.T) {
	svc := NewDrugService(store.NewMemoryStore(), nil, nil)
	_, err := svc.SaveDrug(domain.Drug{Barcode: "6900000000130"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestSaveDrugBarcodeConflict(t *testing.T) {
	st := store.NewMemoryStore()
	mustInsert(t, st, domain.Drug{Name: "First", Barcode: "6900000000147"})
	svc := NewDrugService(st, nil, nil)

	_, err := svc.SaveDrug(domain.Drug{Name: "Second", Barcode: "6900000000147"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	count, _ := st.CountTotal()
	if count != 1 {
		t.Fatalf("row count = %d, want unchanged", count)
	}
}

func TestSaveDrugApprovalNumberConflict(t *testing.T) {
	st := store.NewMemoryStore()
	mustInsert(t, st, domain.Drug{Name: "First", ApprovalNumber: "H20230001"})
	svc := NewDrugService(st, nil, nil)

	_, err := svc.SaveDrug(domain.Drug{Name: "Second", ApprovalNumber: "H20230001"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestUpdateDrugBarcodeOwnedByOther(t *testing.T) {
	st := store.NewMemoryStore()
	mustInsert(t, st, domain.Drug{Name: "Owner", Barcode: "6900000000154"})
	mine := mustInsert(t, st, domain.Drug{Name: "Mine", Barcode: "6900000000161"})
	svc := NewDrugService(st, nil, nil)

	mine.Barcode = "6900000000154"
	_, err := svc.UpdateDrug(mine)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestUpdateDrugPreservesStatusWhenOmitted(t *testing.T) {
	st := store.NewMemoryStore()
	d := mustInsert(t, st, domain.Drug{Name: "Stable", Barcode: "6900000000185"})
	svc := NewDrugService(st, nil, nil)

	updated, err := svc.UpdateDrug(domain.Drug{ID: d.ID, Name: "Renamed"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != domain.DrugActive {
		t.Fatalf("status = %q, want active preserved", updated.Status)
	}
	if updated.Name != "Renamed" {
		t.Fatalf("name = %q", updated.Name)
	}
}

func TestUpdateDrugRejectsUnknownStatus(t *testing.T) {
	st := store.NewMemoryStore()
	d := mustInsert(t, st, domain.Drug{Name: "Strict", Barcode: "6900000000192"})
	svc := NewDrugService(st, nil, nil)

	d.Status = "retired"
	_, err := svc.UpdateDrug(d)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestSaveDrugRejectsUnknownStatus(t *testing.T) {
	svc := NewDrugService(store.NewMemoryStore(), nil, nil)
	_, err := svc.SaveDrug(domain.Drug{Name: "Strict", Status: "retired"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestUpdateDrugNotFound(t *testing.T) {
	svc := NewDrugService(store.NewMemoryStore(), nil, nil)
	_, err := svc.UpdateDrug(domain.Drug{ID: 42, Name: "Ghost"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteDrugNotFound(t *testing.T) {
	svc := NewDrugService(store.NewMemoryStore(), nil, nil)
	if err := svc.DeleteDrug(42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateStatusAndPopular(t *testing.T) {
	st := store.NewMemoryStore()
	d := mustInsert(t, st, domain.Drug{Name: "Loratadine", Barcode: "6900000000178"})
	svc := NewDrugService(st, nil, nil)

	if err := svc.UpdateStatus(d.ID, domain.DrugOffline); err != nil {
		t.Fatalf("update status: %v", err)
	}
	popular, err := svc.Popular(10)
	if err != nil {
		t.Fatalf("popular: %v", err)
	}
	for _, p := range popular {
		if p.ID == d.ID {
			t.Fatalf("offline drug %d still listed as popular", d.ID)
		}
	}
}

func TestSuggest(t *testing.T) {
	st := store.NewMemoryStore()
	mustInsert(t, st, domain.Drug{Name: "Amoxicillin"})
	mustInsert(t, st, domain.Drug{Name: "Ampicillin"})
	mustInsert(t, st, domain.Drug{Name: "Cefixime"})
	svc := NewDrugService(st, nil, nil)

	got, err := svc.Suggest("Am", 10)
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 prefix matches", len(got))
	}

	got, err = svc.Suggest("  ", 10)
	if err != nil || len(got) != 0 {
		t.Fatalf("blank prefix: got %d results, err %v", len(got), err)
	}
}

func TestStatistics(t *testing.T) {
	st := store.NewMemoryStore()
	mustInsert(t, st, domain.Drug{Name: "Fresh"})
	svc := NewDrugService(st, nil, nil)

	stats, err := svc.Statistics()
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if stats.Total != 1 || stats.TodayNew != 1 {
		t.Fatalf("stats = %+v, want 1/1", stats)
	}
}
