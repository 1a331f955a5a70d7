package admission

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/domain/ward"
	"github.com/hms/hms/internal/platform/apperror"
)

type txPassthrough struct{}

func (txPassthrough) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// -- Ward mocks (the admission service drives beds through ward.Service) --

type mockWardRepo struct {
	items map[uuid.UUID]*ward.Ward
}

func (m *mockWardRepo) Create(_ context.Context, w *ward.Ward) error {
	w.ID = uuid.New()
	m.items[w.ID] = w
	return nil
}

func (m *mockWardRepo) GetByID(_ context.Context, id uuid.UUID) (*ward.Ward, error) {
	w, ok := m.items[id]
	if !ok {
		return nil, apperror.NotFound("ward not found")
	}
	return w, nil
}

func (m *mockWardRepo) LockByID(ctx context.Context, id uuid.UUID) (*ward.Ward, error) {
	return m.GetByID(ctx, id)
}

func (m *mockWardRepo) Update(_ context.Context, w *ward.Ward) error { return nil }

func (m *mockWardRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.items, id)
	return nil
}

func (m *mockWardRepo) List(_ context.Context, _ string, _, _ int) ([]*ward.Ward, int, error) {
	return nil, 0, nil
}

func (m *mockWardRepo) AdjustCounters(_ context.Context, id uuid.UUID, dt, da int) error {
	w, ok := m.items[id]
	if !ok {
		return apperror.NotFound("ward not found")
	}
	w.TotalBeds += dt
	w.AvailableBeds += da
	return nil
}

func (m *mockWardRepo) SetCounters(_ context.Context, id uuid.UUID, total, available int) error {
	w := m.items[id]
	w.TotalBeds = total
	w.AvailableBeds = available
	return nil
}

type mockBedRepo struct {
	items map[uuid.UUID]*ward.Bed
}

func (m *mockBedRepo) Create(_ context.Context, b *ward.Bed) error {
	b.ID = uuid.New()
	m.items[b.ID] = b
	return nil
}

func (m *mockBedRepo) GetByID(_ context.Context, id uuid.UUID) (*ward.Bed, error) {
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

func (m *mockBedRepo) ListByWard(_ context.Context, _ uuid.UUID) ([]*ward.Bed, error) {
	return nil, nil
}

func (m *mockBedRepo) ListAvailable(_ context.Context, wardID *uuid.UUID) ([]*ward.Bed, error) {
	var result []*ward.Bed
	for _, b := range m.items {
		if b.Status == ward.BedAvailable && (wardID == nil || b.WardID == *wardID) {
			result = append(result, b)
		}
	}
	return result, nil
}

func (m *mockBedRepo) List(_ context.Context, _ string, _, _ int) ([]*ward.Bed, int, error) {
	return nil, 0, nil
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

func (m *mockBedRepo) HasActiveAdmission(_ context.Context, _ uuid.UUID) (bool, error) {
	return false, nil
}

// -- Admission mock --

type mockAdmissionRepo struct {
	items map[uuid.UUID]*Admission
	seq   int
}

func newMockAdmissionRepo() *mockAdmissionRepo {
	return &mockAdmissionRepo{items: make(map[uuid.UUID]*Admission)}
}

func (m *mockAdmissionRepo) Create(_ context.Context, a *Admission) error {
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	a.UpdatedAt = time.Now()
	cp := *a
	m.items[a.ID] = &cp
	return nil
}

func (m *mockAdmissionRepo) GetByID(_ context.Context, id uuid.UUID) (*Admission, error) {
	a, ok := m.items[id]
	if !ok {
		return nil, apperror.NotFound("admission not found")
	}
	cp := *a
	return &cp, nil
}

func (m *mockAdmissionRepo) LockByID(ctx context.Context, id uuid.UUID) (*Admission, error) {
	return m.GetByID(ctx, id)
}

func (m *mockAdmissionRepo) UpdateBed(_ context.Context, id uuid.UUID, bedID *uuid.UUID) error {
	a, ok := m.items[id]
	if !ok {
		return apperror.NotFound("admission not found")
	}
	a.BedID = bedID
	return nil
}

func (m *mockAdmissionRepo) Discharge(_ context.Context, a *Admission) error {
	cur, ok := m.items[a.ID]
	if !ok {
		return apperror.NotFound("admission not found")
	}
	cur.Status = a.Status
	cur.DischargeType = a.DischargeType
	cur.DischargeSummary = a.DischargeSummary
	cur.ActualDischargeDate = a.ActualDischargeDate
	return nil
}

func (m *mockAdmissionRepo) List(_ context.Context, status string, patientID *uuid.UUID, _, _ int) ([]*Admission, int, error) {
	var result []*Admission
	for _, a := range m.items {
		if status != "" && a.Status != status {
			continue
		}
		if patientID != nil && a.PatientID != *patientID {
			continue
		}
		result = append(result, a)
	}
	return result, len(result), nil
}

func (m *mockAdmissionRepo) ListActive(_ context.Context) ([]*Admission, error) {
	var result []*Admission
	for _, a := range m.items {
		if a.Status == StatusActive {
			result = append(result, a)
		}
	}
	return result, nil
}

func (m *mockAdmissionRepo) NextCode(_ context.Context) (string, error) {
	m.seq++
	return fmt.Sprintf("ADM-%04d", m.seq), nil
}

// -- Fixtures --

type fixture struct {
	svc     *Service
	repo    *mockAdmissionRepo
	wardSvc *ward.Service
	wards   *mockWardRepo
	beds    *mockBedRepo
	ward    *ward.Ward
	bed1    *ward.Bed
	bed2    *ward.Bed
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	wards := &mockWardRepo{items: make(map[uuid.UUID]*ward.Ward)}
	beds := &mockBedRepo{items: make(map[uuid.UUID]*ward.Bed)}
	wardSvc := ward.NewService(wards, beds, txPassthrough{})

	w := &ward.Ward{Name: "General A", Type: "General"}
	if err := wardSvc.CreateWard(context.Background(), w); err != nil {
		t.Fatalf("CreateWard: %v", err)
	}
	b1 := &ward.Bed{BedNumber: "101", WardID: w.ID}
	b2 := &ward.Bed{BedNumber: "102", WardID: w.ID}
	for _, b := range []*ward.Bed{b1, b2} {
		if err := wardSvc.CreateBed(context.Background(), b); err != nil {
			t.Fatalf("CreateBed: %v", err)
		}
	}

	repo := newMockAdmissionRepo()
	return &fixture{
		svc:     NewService(repo, wardSvc, txPassthrough{}),
		repo:    repo,
		wardSvc: wardSvc,
		wards:   wards,
		beds:    beds,
		ward:    w,
		bed1:    b1,
		bed2:    b2,
	}
}

func (f *fixture) bedStatus(t *testing.T, id uuid.UUID) string {
	t.Helper()
	b, err := f.wardSvc.GetBed(context.Background(), id)
	if err != nil {
		t.Fatalf("GetBed: %v", err)
	}
	return b.Status
}

func (f *fixture) availableBeds(t *testing.T) int {
	t.Helper()
	w, err := f.wardSvc.GetWard(context.Background(), f.ward.ID)
	if err != nil {
		t.Fatalf("GetWard: %v", err)
	}
	return w.AvailableBeds
}

// -- Tests --

func TestAdmit_WithBed(t *testing.T) {
	f := newFixture(t)
	a := &Admission{PatientID: uuid.New(), BedID: &f.bed1.ID}
	if err := f.svc.Admit(context.Background(), a); err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if a.AdmissionCode != "ADM-0001" {
		t.Errorf("code = %q, want ADM-0001", a.AdmissionCode)
	}
	if a.Status != StatusActive {
		t.Errorf("status = %q, want Active", a.Status)
	}
	if got := f.bedStatus(t, f.bed1.ID); got != ward.BedOccupied {
		t.Errorf("bed status = %q, want Occupied", got)
	}
	if got := f.availableBeds(t); got != 1 {
		t.Errorf("available_beds = %d, want 1", got)
	}
}

func TestAdmit_WithoutBed(t *testing.T) {
	f := newFixture(t)
	a := &Admission{PatientID: uuid.New()}
	if err := f.svc.Admit(context.Background(), a); err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if a.BedID != nil {
		t.Errorf("bed_id = %v, want nil", a.BedID)
	}
	if got := f.availableBeds(t); got != 2 {
		t.Errorf("available_beds = %d, want 2", got)
	}
}

func TestAdmit_OccupiedBedRejected(t *testing.T) {
	f := newFixture(t)
	if _, err := f.wardSvc.Occupy(context.Background(), f.bed1.ID); err != nil {
		t.Fatalf("Occupy: %v", err)
	}
	a := &Admission{PatientID: uuid.New(), BedID: &f.bed1.ID}
	err := f.svc.Admit(context.Background(), a)
	if apperror.KindOf(err) != apperror.KindInvalidState {
		t.Errorf("err = %v, want InvalidState", err)
	}
}

func TestAdmit_RequiresPatient(t *testing.T) {
	f := newFixture(t)
	err := f.svc.Admit(context.Background(), &Admission{})
	if apperror.KindOf(err) != apperror.KindInvalidArgument {
		t.Errorf("err = %v, want InvalidArgument", err)
	}
}

func TestBedTransfer(t *testing.T) {
	f := newFixture(t)
	a := &Admission{PatientID: uuid.New(), BedID: &f.bed1.ID}
	if err := f.svc.Admit(context.Background(), a); err != nil {
		t.Fatalf("Admit: %v", err)
	}

	got, err := f.svc.BedTransfer(context.Background(), a.ID, f.bed2.ID)
	if err != nil {
		t.Fatalf("BedTransfer: %v", err)
	}
	if got.BedID == nil || *got.BedID != f.bed2.ID {
		t.Errorf("bed_id = %v, want %s", got.BedID, f.bed2.ID)
	}
	if st := f.bedStatus(t, f.bed1.ID); st != ward.BedAvailable {
		t.Errorf("old bed = %q, want Available", st)
	}
	if st := f.bedStatus(t, f.bed2.ID); st != ward.BedOccupied {
		t.Errorf("new bed = %q, want Occupied", st)
	}
	if got := f.availableBeds(t); got != 1 {
		t.Errorf("available_beds = %d, want 1", got)
	}
}

func TestBedTransfer_ToOccupiedBed(t *testing.T) {
	f := newFixture(t)
	a := &Admission{PatientID: uuid.New(), BedID: &f.bed1.ID}
	if err := f.svc.Admit(context.Background(), a); err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if _, err := f.wardSvc.Occupy(context.Background(), f.bed2.ID); err != nil {
		t.Fatalf("Occupy: %v", err)
	}

	_, err := f.svc.BedTransfer(context.Background(), a.ID, f.bed2.ID)
	if apperror.KindOf(err) != apperror.KindInvalidState {
		t.Errorf("err = %v, want InvalidState", err)
	}
	// Old binding untouched.
	if st := f.bedStatus(t, f.bed1.ID); st != ward.BedOccupied {
		t.Errorf("old bed = %q, want still Occupied", st)
	}
}

func TestBedTransfer_UnassignedAdmission(t *testing.T) {
	f := newFixture(t)
	a := &Admission{PatientID: uuid.New()}
	if err := f.svc.Admit(context.Background(), a); err != nil {
		t.Fatalf("Admit: %v", err)
	}

	got, err := f.svc.BedTransfer(context.Background(), a.ID, f.bed1.ID)
	if err != nil {
		t.Fatalf("BedTransfer: %v", err)
	}
	if got.BedID == nil || *got.BedID != f.bed1.ID {
		t.Errorf("bed_id = %v, want %s", got.BedID, f.bed1.ID)
	}
}

func TestDischarge_ReleasesBed(t *testing.T) {
	f := newFixture(t)
	a := &Admission{PatientID: uuid.New(), BedID: &f.bed1.ID}
	if err := f.svc.Admit(context.Background(), a); err != nil {
		t.Fatalf("Admit: %v", err)
	}

	got, err := f.svc.Discharge(context.Background(), a.ID, DischargeRequest{DischargeType: "Normal"})
	if err != nil {
		t.Fatalf("Discharge: %v", err)
	}
	if got.Status != StatusDischarged {
		t.Errorf("status = %q, want Discharged", got.Status)
	}
	if got.ActualDischargeDate == nil {
		t.Error("actual_discharge_date not stamped")
	}
	if st := f.bedStatus(t, f.bed1.ID); st != ward.BedAvailable {
		t.Errorf("bed = %q, want Available", st)
	}
	if got := f.availableBeds(t); got != 2 {
		t.Errorf("available_beds = %d, want 2", got)
	}
}

func TestDischarge_TwiceRejected(t *testing.T) {
	f := newFixture(t)
	a := &Admission{PatientID: uuid.New(), BedID: &f.bed1.ID}
	if err := f.svc.Admit(context.Background(), a); err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if _, err := f.svc.Discharge(context.Background(), a.ID, DischargeRequest{}); err != nil {
		t.Fatalf("first Discharge: %v", err)
	}

	_, err := f.svc.Discharge(context.Background(), a.ID, DischargeRequest{})
	if apperror.KindOf(err) != apperror.KindInvalidState {
		t.Errorf("err = %v, want InvalidState", err)
	}
	// Counter must not be double-incremented by a second bed release.
	if got := f.availableBeds(t); got != 2 {
		t.Errorf("available_beds = %d, want 2", got)
	}
}

func TestDischarge_Deceased(t *testing.T) {
	f := newFixture(t)
	a := &Admission{PatientID: uuid.New()}
	if err := f.svc.Admit(context.Background(), a); err != nil {
		t.Fatalf("Admit: %v", err)
	}
	got, err := f.svc.Discharge(context.Background(), a.ID, DischargeRequest{DischargeType: "Deceased"})
	if err != nil {
		t.Fatalf("Discharge: %v", err)
	}
	if got.Status != "Deceased" {
		t.Errorf("status = %q, want Deceased", got.Status)
	}
}

func TestDischarge_InvalidType(t *testing.T) {
	f := newFixture(t)
	a := &Admission{PatientID: uuid.New()}
	if err := f.svc.Admit(context.Background(), a); err != nil {
		t.Fatalf("Admit: %v", err)
	}
	_, err := f.svc.Discharge(context.Background(), a.ID, DischargeRequest{DischargeType: "Escaped"})
	if apperror.KindOf(err) != apperror.KindInvalidArgument {
		t.Errorf("err = %v, want InvalidArgument", err)
	}
}

func TestGetActive(t *testing.T) {
	f := newFixture(t)
	a1 := &Admission{PatientID: uuid.New(), BedID: &f.bed1.ID}
	a2 := &Admission{PatientID: uuid.New()}
	for _, a := range []*Admission{a1, a2} {
		if err := f.svc.Admit(context.Background(), a); err != nil {
			t.Fatalf("Admit: %v", err)
		}
	}
	if _, err := f.svc.Discharge(context.Background(), a2.ID, DischargeRequest{}); err != nil {
		t.Fatalf("Discharge: %v", err)
	}

	active, err := f.svc.GetActive(context.Background())
	if err != nil {
		t.Fatalf("GetActive: %v", err)
	}
	if len(active) != 1 || active[0].ID != a1.ID {
		t.Errorf("active = %v, want just %s", active, a1.ID)
	}
}

// Admit then discharge restores the ward to its initial state.
func TestScenario_AdmitDischargeRoundTrip(t *testing.T) {
	f := newFixture(t)
	if got := f.availableBeds(t); got != 2 {
		t.Fatalf("precondition: available_beds = %d, want 2", got)
	}

	a := &Admission{PatientID: uuid.New(), BedID: &f.bed1.ID}
	if err := f.svc.Admit(context.Background(), a); err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if got := f.availableBeds(t); got != 1 {
		t.Errorf("after admit: available_beds = %d, want 1", got)
	}
	if st := f.bedStatus(t, f.bed1.ID); st != ward.BedOccupied {
		t.Errorf("after admit: bed = %q, want Occupied", st)
	}

	if _, err := f.svc.Discharge(context.Background(), a.ID, DischargeRequest{}); err != nil {
		t.Fatalf("Discharge: %v", err)
	}
	if got := f.availableBeds(t); got != 2 {
		t.Errorf("after discharge: available_beds = %d, want 2", got)
	}
	if st := f.bedStatus(t, f.bed1.ID); st != ward.BedAvailable {
		t.Errorf("after discharge: bed = %q, want Available", st)
	}
}

// -- Racing-admission interleavings --

// snapshotBedRepo serves marked beds' next read from a snapshot taken while
// the bed was still Available, then the stored state: the view a request
// holds after a concurrent admission occupied the bed under it.
type snapshotBedRepo struct {
	*mockBedRepo
	staleOnce map[uuid.UUID]bool
}

func (m *snapshotBedRepo) GetByID(ctx context.Context, id uuid.UUID) (*ward.Bed, error) {
	b, err := m.mockBedRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.staleOnce[id] {
		delete(m.staleOnce, id)
		cp := *b
		cp.Status = ward.BedAvailable
		return &cp, nil
	}
	return b, nil
}

type raceFixture struct {
	svc     *Service
	repo    *mockAdmissionRepo
	wardSvc *ward.Service
	beds    *snapshotBedRepo
	wards   *mockWardRepo
	bed1    *ward.Bed
	bed2    *ward.Bed
}

func newRaceFixture(t *testing.T) *raceFixture {
	t.Helper()
	wards := &mockWardRepo{items: make(map[uuid.UUID]*ward.Ward)}
	beds := &snapshotBedRepo{
		mockBedRepo: &mockBedRepo{items: make(map[uuid.UUID]*ward.Bed)},
		staleOnce:   make(map[uuid.UUID]bool),
	}
	wardSvc := ward.NewService(wards, beds, txPassthrough{})

	w := &ward.Ward{Name: "General A", Type: "General"}
	if err := wardSvc.CreateWard(context.Background(), w); err != nil {
		t.Fatalf("CreateWard: %v", err)
	}
	b1 := &ward.Bed{BedNumber: "101", WardID: w.ID}
	b2 := &ward.Bed{BedNumber: "102", WardID: w.ID}
	for _, b := range []*ward.Bed{b1, b2} {
		if err := wardSvc.CreateBed(context.Background(), b); err != nil {
			t.Fatalf("CreateBed: %v", err)
		}
	}

	repo := newMockAdmissionRepo()
	return &raceFixture{
		svc:     NewService(repo, wardSvc, txPassthrough{}),
		repo:    repo,
		wardSvc: wardSvc,
		beds:    beds,
		wards:   wards,
		bed1:    b1,
		bed2:    b2,
	}
}

// An admit racing another admit to the same bed: the loser's availability
// read predates the winner's occupy. The post-lock re-read must reject it,
// not bind a second Active admission to the bed.
func TestAdmit_StaleAvailabilityRead(t *testing.T) {
	f := newRaceFixture(t)

	winner := &Admission{PatientID: uuid.New(), BedID: &f.bed1.ID}
	if err := f.svc.Admit(context.Background(), winner); err != nil {
		t.Fatalf("Admit winner: %v", err)
	}

	f.beds.staleOnce[f.bed1.ID] = true
	loser := &Admission{PatientID: uuid.New(), BedID: &f.bed1.ID}
	err := f.svc.Admit(context.Background(), loser)
	if apperror.KindOf(err) != apperror.KindInvalidState {
		t.Fatalf("err = %v, want InvalidState", err)
	}

	active, err := f.svc.GetActive(context.Background())
	if err != nil {
		t.Fatalf("GetActive: %v", err)
	}
	bound := 0
	for _, a := range active {
		if a.BedID != nil && *a.BedID == f.bed1.ID {
			bound++
		}
	}
	if bound != 1 {
		t.Errorf("admissions bound to bed 101 = %d, want 1", bound)
	}

	w, _ := f.wardSvc.GetWard(context.Background(), f.bed1.WardID)
	if w.AvailableBeds != 1 {
		t.Errorf("available_beds = %d, want 1", w.AvailableBeds)
	}
}

// A transfer racing an admit to the target bed, same stale view. The old
// binding must survive intact.
func TestBedTransfer_StaleAvailabilityRead(t *testing.T) {
	f := newRaceFixture(t)

	a := &Admission{PatientID: uuid.New(), BedID: &f.bed1.ID}
	if err := f.svc.Admit(context.Background(), a); err != nil {
		t.Fatalf("Admit: %v", err)
	}
	rival := &Admission{PatientID: uuid.New(), BedID: &f.bed2.ID}
	if err := f.svc.Admit(context.Background(), rival); err != nil {
		t.Fatalf("Admit rival: %v", err)
	}

	f.beds.staleOnce[f.bed2.ID] = true
	_, err := f.svc.BedTransfer(context.Background(), a.ID, f.bed2.ID)
	if apperror.KindOf(err) != apperror.KindInvalidState {
		t.Fatalf("err = %v, want InvalidState", err)
	}

	got, _ := f.svc.Get(context.Background(), a.ID)
	if got.BedID == nil || *got.BedID != f.bed1.ID {
		t.Errorf("bed_id = %v, want still %s", got.BedID, f.bed1.ID)
	}
	if b, _ := f.wardSvc.GetBed(context.Background(), f.bed1.ID); b.Status != ward.BedOccupied {
		t.Errorf("old bed = %q, want still Occupied", b.Status)
	}
	w, _ := f.wardSvc.GetWard(context.Background(), f.bed1.WardID)
	if w.AvailableBeds != 0 {
		t.Errorf("available_beds = %d, want 0", w.AvailableBeds)
	}
}

// Discharge keeps the bed reference on the record even though the bed
// itself returns to Available.
func TestDischarge_RetainsBedReference(t *testing.T) {
	f := newFixture(t)
	a := &Admission{PatientID: uuid.New(), BedID: &f.bed1.ID}
	if err := f.svc.Admit(context.Background(), a); err != nil {
		t.Fatalf("Admit: %v", err)
	}

	got, err := f.svc.Discharge(context.Background(), a.ID, DischargeRequest{})
	if err != nil {
		t.Fatalf("Discharge: %v", err)
	}
	if got.BedID == nil || *got.BedID != f.bed1.ID {
		t.Errorf("bed_id = %v, want retained %s", got.BedID, f.bed1.ID)
	}
	if st := f.bedStatus(t, f.bed1.ID); st != ward.BedAvailable {
		t.Errorf("bed = %q, want Available", st)
	}
}
