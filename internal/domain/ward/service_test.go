package ward

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/platform/apperror"
)

// -- Mock Repositories --

type txPassthrough struct{}

func (txPassthrough) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockWardRepo struct {
	items map[uuid.UUID]*Ward
}

func newMockWardRepo() *mockWardRepo {
	return &mockWardRepo{items: make(map[uuid.UUID]*Ward)}
}

func (m *mockWardRepo) Create(_ context.Context, w *Ward) error {
	w.ID = uuid.New()
	w.CreatedAt = time.Now()
	w.UpdatedAt = time.Now()
	m.items[w.ID] = w
	return nil
}

func (m *mockWardRepo) GetByID(_ context.Context, id uuid.UUID) (*Ward, error) {
	w, ok := m.items[id]
	if !ok {
		return nil, apperror.NotFound("ward not found")
	}
	return w, nil
}

func (m *mockWardRepo) LockByID(ctx context.Context, id uuid.UUID) (*Ward, error) {
	return m.GetByID(ctx, id)
}

func (m *mockWardRepo) Update(_ context.Context, w *Ward) error {
	cur, ok := m.items[w.ID]
	if !ok {
		return apperror.NotFound("ward not found")
	}
	cur.Name = w.Name
	cur.Type = w.Type
	cur.Floor = w.Floor
	cur.NurseStation = w.NurseStation
	return nil
}

func (m *mockWardRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.items, id)
	return nil
}

func (m *mockWardRepo) List(_ context.Context, wardType string, limit, offset int) ([]*Ward, int, error) {
	var result []*Ward
	for _, w := range m.items {
		if wardType == "" || w.Type == wardType {
			result = append(result, w)
		}
	}
	return result, len(result), nil
}

func (m *mockWardRepo) AdjustCounters(_ context.Context, id uuid.UUID, deltaTotal, deltaAvailable int) error {
	w, ok := m.items[id]
	if !ok {
		return apperror.NotFound("ward not found")
	}
	w.TotalBeds += deltaTotal
	w.AvailableBeds += deltaAvailable
	return nil
}

func (m *mockWardRepo) SetCounters(_ context.Context, id uuid.UUID, total, available int) error {
	w, ok := m.items[id]
	if !ok {
		return apperror.NotFound("ward not found")
	}
	w.TotalBeds = total
	w.AvailableBeds = available
	return nil
}

type mockBedRepo struct {
	items    map[uuid.UUID]*Bed
	occupied map[uuid.UUID]bool
}

func newMockBedRepo() *mockBedRepo {
	return &mockBedRepo{items: make(map[uuid.UUID]*Bed), occupied: make(map[uuid.UUID]bool)}
}

func (m *mockBedRepo) Create(_ context.Context, b *Bed) error {
	b.ID = uuid.New()
	b.CreatedAt = time.Now()
	b.UpdatedAt = time.Now()
	m.items[b.ID] = b
	return nil
}

func (m *mockBedRepo) GetByID(_ context.Context, id uuid.UUID) (*Bed, error) {
	b, ok := m.items[id]
	if !ok {
		return nil, apperror.NotFound("bed not found")
	}
	cp := *b
	return &cp, nil
}

func (m *mockBedRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	b, ok := m.items[id]
	if !ok {
		return apperror.NotFound("bed not found")
	}
	b.Status = status
	return nil
}

func (m *mockBedRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.items, id)
	return nil
}

func (m *mockBedRepo) ListByWard(_ context.Context, wardID uuid.UUID) ([]*Bed, error) {
	var result []*Bed
	for _, b := range m.items {
		if b.WardID == wardID {
			result = append(result, b)
		}
	}
	return result, nil
}

func (m *mockBedRepo) ListAvailable(_ context.Context, wardID *uuid.UUID) ([]*Bed, error) {
	var result []*Bed
	for _, b := range m.items {
		if b.Status != BedAvailable {
			continue
		}
		if wardID != nil && b.WardID != *wardID {
			continue
		}
		result = append(result, b)
	}
	return result, nil
}

func (m *mockBedRepo) List(_ context.Context, status string, limit, offset int) ([]*Bed, int, error) {
	var result []*Bed
	for _, b := range m.items {
		if status == "" || b.Status == status {
			result = append(result, b)
		}
	}
	return result, len(result), nil
}

func (m *mockBedRepo) CountByWardAndStatus(_ context.Context, wardID uuid.UUID, status string) (int, error) {
	n := 0
	for _, b := range m.items {
		if b.WardID == wardID && b.Status == status {
			n++
		}
	}
	return n, nil
}

func (m *mockBedRepo) CountByWard(_ context.Context, wardID uuid.UUID) (int, error) {
	n := 0
	for _, b := range m.items {
		if b.WardID == wardID {
			n++
		}
	}
	return n, nil
}

func (m *mockBedRepo) HasActiveAdmission(_ context.Context, bedID uuid.UUID) (bool, error) {
	return m.occupied[bedID], nil
}

// -- Tests --

func newTestService() (*Service, *mockWardRepo, *mockBedRepo) {
	wards := newMockWardRepo()
	beds := newMockBedRepo()
	return NewService(wards, beds, txPassthrough{}), wards, beds
}

func seedWard(t *testing.T, svc *Service) *Ward {
	t.Helper()
	w := &Ward{Name: "General A", Type: "General"}
	if err := svc.CreateWard(context.Background(), w); err != nil {
		t.Fatalf("CreateWard: %v", err)
	}
	return w
}

// checkCounters asserts the ward counters match a recount from the bed table.
func checkCounters(t *testing.T, svc *Service, beds *mockBedRepo, wardID uuid.UUID) {
	t.Helper()
	w, err := svc.GetWard(context.Background(), wardID)
	if err != nil {
		t.Fatalf("GetWard: %v", err)
	}
	total, _ := beds.CountByWard(context.Background(), wardID)
	available, _ := beds.CountByWardAndStatus(context.Background(), wardID, BedAvailable)
	if w.TotalBeds != total {
		t.Errorf("total_beds = %d, bed table has %d", w.TotalBeds, total)
	}
	if w.AvailableBeds != available {
		t.Errorf("available_beds = %d, bed table has %d available", w.AvailableBeds, available)
	}
	if w.AvailableBeds < 0 || w.AvailableBeds > w.TotalBeds {
		t.Errorf("counter bounds violated: available=%d total=%d", w.AvailableBeds, w.TotalBeds)
	}
}

func TestCreateBed_IncrementsCounters(t *testing.T) {
	svc, _, beds := newTestService()
	w := seedWard(t, svc)

	b := &Bed{BedNumber: "101", WardID: w.ID}
	if err := svc.CreateBed(context.Background(), b); err != nil {
		t.Fatalf("CreateBed: %v", err)
	}
	if b.Status != BedAvailable {
		t.Errorf("default status = %q, want Available", b.Status)
	}
	checkCounters(t, svc, beds, w.ID)

	got, _ := svc.GetWard(context.Background(), w.ID)
	if got.TotalBeds != 1 || got.AvailableBeds != 1 {
		t.Errorf("counters = (%d,%d), want (1,1)", got.TotalBeds, got.AvailableBeds)
	}
}

func TestCreateBed_MaintenanceDoesNotCountAvailable(t *testing.T) {
	svc, _, beds := newTestService()
	w := seedWard(t, svc)

	b := &Bed{BedNumber: "102", WardID: w.ID, Status: BedMaintenance}
	if err := svc.CreateBed(context.Background(), b); err != nil {
		t.Fatalf("CreateBed: %v", err)
	}
	got, _ := svc.GetWard(context.Background(), w.ID)
	if got.TotalBeds != 1 || got.AvailableBeds != 0 {
		t.Errorf("counters = (%d,%d), want (1,0)", got.TotalBeds, got.AvailableBeds)
	}
	checkCounters(t, svc, beds, w.ID)
}

func TestCreateBed_UnknownWard(t *testing.T) {
	svc, _, _ := newTestService()
	b := &Bed{BedNumber: "101", WardID: uuid.New()}
	err := svc.CreateBed(context.Background(), b)
	if !apperror.IsNotFound(err) {
		t.Errorf("err = %v, want NotFound", err)
	}
}

func TestCreateBed_InvalidStatus(t *testing.T) {
	svc, _, _ := newTestService()
	w := seedWard(t, svc)
	err := svc.CreateBed(context.Background(), &Bed{BedNumber: "101", WardID: w.ID, Status: "Broken"})
	if apperror.KindOf(err) != apperror.KindInvalidArgument {
		t.Errorf("err = %v, want InvalidArgument", err)
	}
}

func TestUpdateBedStatus_CounterDeltas(t *testing.T) {
	svc, _, beds := newTestService()
	w := seedWard(t, svc)
	b := &Bed{BedNumber: "101", WardID: w.ID}
	if err := svc.CreateBed(context.Background(), b); err != nil {
		t.Fatalf("CreateBed: %v", err)
	}

	steps := []struct {
		status        string
		wantAvailable int
	}{
		{BedOccupied, 0},    // Available -> Occupied: -1
		{BedMaintenance, 0}, // Occupied -> Maintenance: no change
		{BedAvailable, 1},   // Maintenance -> Available: +1
		{BedAvailable, 1},   // same status: no change
		{BedReserved, 0},    // Available -> Reserved: -1
	}
	for _, st := range steps {
		if _, err := svc.UpdateBedStatus(context.Background(), b.ID, st.status); err != nil {
			t.Fatalf("UpdateBedStatus(%s): %v", st.status, err)
		}
		got, _ := svc.GetWard(context.Background(), w.ID)
		if got.AvailableBeds != st.wantAvailable {
			t.Errorf("after -> %s: available = %d, want %d", st.status, got.AvailableBeds, st.wantAvailable)
		}
		checkCounters(t, svc, beds, w.ID)
	}
}

func TestUpdateBedStatus_InvalidStatus(t *testing.T) {
	svc, _, _ := newTestService()
	w := seedWard(t, svc)
	b := &Bed{BedNumber: "101", WardID: w.ID}
	if err := svc.CreateBed(context.Background(), b); err != nil {
		t.Fatalf("CreateBed: %v", err)
	}
	_, err := svc.UpdateBedStatus(context.Background(), b.ID, "Vacant")
	if apperror.KindOf(err) != apperror.KindInvalidArgument {
		t.Errorf("err = %v, want InvalidArgument", err)
	}
}

func TestDeleteBed_DecrementsCounters(t *testing.T) {
	svc, _, beds := newTestService()
	w := seedWard(t, svc)
	b1 := &Bed{BedNumber: "101", WardID: w.ID}
	b2 := &Bed{BedNumber: "102", WardID: w.ID, Status: BedMaintenance}
	for _, b := range []*Bed{b1, b2} {
		if err := svc.CreateBed(context.Background(), b); err != nil {
			t.Fatalf("CreateBed: %v", err)
		}
	}

	if err := svc.DeleteBed(context.Background(), b1.ID); err != nil {
		t.Fatalf("DeleteBed available: %v", err)
	}
	got, _ := svc.GetWard(context.Background(), w.ID)
	if got.TotalBeds != 1 || got.AvailableBeds != 0 {
		t.Errorf("counters = (%d,%d), want (1,0)", got.TotalBeds, got.AvailableBeds)
	}

	if err := svc.DeleteBed(context.Background(), b2.ID); err != nil {
		t.Fatalf("DeleteBed maintenance: %v", err)
	}
	checkCounters(t, svc, beds, w.ID)
}

func TestDeleteBed_OccupiedRejected(t *testing.T) {
	svc, _, _ := newTestService()
	w := seedWard(t, svc)
	b := &Bed{BedNumber: "101", WardID: w.ID}
	if err := svc.CreateBed(context.Background(), b); err != nil {
		t.Fatalf("CreateBed: %v", err)
	}
	if _, err := svc.Occupy(context.Background(), b.ID); err != nil {
		t.Fatalf("Occupy: %v", err)
	}

	err := svc.DeleteBed(context.Background(), b.ID)
	if apperror.KindOf(err) != apperror.KindReferentialConflict {
		t.Errorf("err = %v, want ReferentialConflict", err)
	}
	if _, err := svc.GetBed(context.Background(), b.ID); err != nil {
		t.Errorf("bed was removed despite rejection: %v", err)
	}
}

func TestRecountWard_RepairsDrift(t *testing.T) {
	svc, wards, beds := newTestService()
	w := seedWard(t, svc)
	for _, n := range []string{"101", "102", "103"} {
		if err := svc.CreateBed(context.Background(), &Bed{BedNumber: n, WardID: w.ID}); err != nil {
			t.Fatalf("CreateBed: %v", err)
		}
	}

	// Simulate out-of-band drift.
	wards.items[w.ID].AvailableBeds = 99
	wards.items[w.ID].TotalBeds = 0

	got, err := svc.RecountWard(context.Background(), w.ID)
	if err != nil {
		t.Fatalf("RecountWard: %v", err)
	}
	if got.TotalBeds != 3 || got.AvailableBeds != 3 {
		t.Errorf("counters = (%d,%d), want (3,3)", got.TotalBeds, got.AvailableBeds)
	}
	checkCounters(t, svc, beds, w.ID)
}

func TestCounterInvariant_RandomishSequence(t *testing.T) {
	svc, _, beds := newTestService()
	w := seedWard(t, svc)

	var ids []uuid.UUID
	for _, n := range []string{"1", "2", "3", "4"} {
		b := &Bed{BedNumber: n, WardID: w.ID}
		if err := svc.CreateBed(context.Background(), b); err != nil {
			t.Fatalf("CreateBed: %v", err)
		}
		ids = append(ids, b.ID)
	}

	seq := []struct {
		bed    int
		status string
	}{
		{0, BedOccupied}, {1, BedReserved}, {2, BedMaintenance},
		{0, BedAvailable}, {1, BedOccupied}, {3, BedOccupied},
		{2, BedAvailable}, {1, BedAvailable},
	}
	for i, st := range seq {
		if _, err := svc.UpdateBedStatus(context.Background(), ids[st.bed], st.status); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		checkCounters(t, svc, beds, w.ID)
	}

	if err := svc.DeleteBed(context.Background(), ids[2]); err != nil {
		t.Fatalf("DeleteBed: %v", err)
	}
	checkCounters(t, svc, beds, w.ID)
}

func TestDeleteWard_WithBedsRejected(t *testing.T) {
	svc, _, _ := newTestService()
	w := seedWard(t, svc)
	if err := svc.CreateBed(context.Background(), &Bed{BedNumber: "101", WardID: w.ID}); err != nil {
		t.Fatalf("CreateBed: %v", err)
	}
	err := svc.DeleteWard(context.Background(), w.ID)
	if apperror.KindOf(err) != apperror.KindReferentialConflict {
		t.Errorf("err = %v, want ReferentialConflict", err)
	}
}

func TestCreateWard_Validation(t *testing.T) {
	svc, _, _ := newTestService()
	if err := svc.CreateWard(context.Background(), &Ward{Type: "General"}); apperror.KindOf(err) != apperror.KindInvalidArgument {
		t.Errorf("missing name: err = %v, want InvalidArgument", err)
	}
	if err := svc.CreateWard(context.Background(), &Ward{Name: "X", Type: "Garage"}); apperror.KindOf(err) != apperror.KindInvalidArgument {
		t.Errorf("bad type: err = %v, want InvalidArgument", err)
	}
	// Counters are never caller-supplied.
	w := &Ward{Name: "X", Type: "General", TotalBeds: 50, AvailableBeds: 50}
	if err := svc.CreateWard(context.Background(), w); err != nil {
		t.Fatalf("CreateWard: %v", err)
	}
	if w.TotalBeds != 0 || w.AvailableBeds != 0 {
		t.Errorf("counters = (%d,%d), want (0,0)", w.TotalBeds, w.AvailableBeds)
	}
}

func TestGetAvailable_FiltersByWard(t *testing.T) {
	svc, _, _ := newTestService()
	w1 := seedWard(t, svc)
	w2 := &Ward{Name: "General B", Type: "General"}
	if err := svc.CreateWard(context.Background(), w2); err != nil {
		t.Fatalf("CreateWard: %v", err)
	}

	b1 := &Bed{BedNumber: "101", WardID: w1.ID}
	b2 := &Bed{BedNumber: "201", WardID: w2.ID}
	b3 := &Bed{BedNumber: "202", WardID: w2.ID, Status: BedOccupied}
	for _, b := range []*Bed{b1, b2, b3} {
		if err := svc.CreateBed(context.Background(), b); err != nil {
			t.Fatalf("CreateBed: %v", err)
		}
	}

	all, err := svc.GetAvailable(context.Background(), nil)
	if err != nil {
		t.Fatalf("GetAvailable: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("len(all) = %d, want 2", len(all))
	}

	w2Only, err := svc.GetAvailable(context.Background(), &w2.ID)
	if err != nil {
		t.Fatalf("GetAvailable(w2): %v", err)
	}
	if len(w2Only) != 1 || w2Only[0].ID != b2.ID {
		t.Errorf("w2 available = %v, want just bed 201", w2Only)
	}
}

func TestOccupyAvailable(t *testing.T) {
	svc, _, beds := newTestService()
	w := seedWard(t, svc)
	b := &Bed{BedNumber: "101", WardID: w.ID}
	if err := svc.CreateBed(context.Background(), b); err != nil {
		t.Fatalf("CreateBed: %v", err)
	}

	got, err := svc.OccupyAvailable(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("OccupyAvailable: %v", err)
	}
	if got.Status != BedOccupied {
		t.Errorf("status = %q, want Occupied", got.Status)
	}
	checkCounters(t, svc, beds, w.ID)

	// A second occupy must fail outright, never no-op to success: that is
	// what keeps two admissions from sharing the bed.
	_, err = svc.OccupyAvailable(context.Background(), b.ID)
	if apperror.KindOf(err) != apperror.KindInvalidState {
		t.Errorf("err = %v, want InvalidState", err)
	}
	checkCounters(t, svc, beds, w.ID)
}

func TestOccupyAvailable_MaintenanceRejected(t *testing.T) {
	svc, _, beds := newTestService()
	w := seedWard(t, svc)
	b := &Bed{BedNumber: "101", WardID: w.ID, Status: BedMaintenance}
	if err := svc.CreateBed(context.Background(), b); err != nil {
		t.Fatalf("CreateBed: %v", err)
	}

	_, err := svc.OccupyAvailable(context.Background(), b.ID)
	if apperror.KindOf(err) != apperror.KindInvalidState {
		t.Errorf("err = %v, want InvalidState", err)
	}
	if got, _ := svc.GetBed(context.Background(), b.ID); got.Status != BedMaintenance {
		t.Errorf("status = %q, want untouched Maintenance", got.Status)
	}
	checkCounters(t, svc, beds, w.ID)
}
