package icu

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/platform/apperror"
)

type txPassthrough struct{}

func (txPassthrough) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockBedRepo struct {
	items map[uuid.UUID]*ICUBed
}

func newMockBedRepo() *mockBedRepo {
	return &mockBedRepo{items: make(map[uuid.UUID]*ICUBed)}
}

func (m *mockBedRepo) Create(_ context.Context, b *ICUBed) error {
	b.ID = uuid.New()
	b.CreatedAt = time.Now()
	m.items[b.ID] = b
	return nil
}

func (m *mockBedRepo) GetByID(_ context.Context, id uuid.UUID) (*ICUBed, error) {
	b, ok := m.items[id]
	if !ok {
		return nil, apperror.NotFound("ICU bed not found")
	}
	return b, nil
}

func (m *mockBedRepo) LockByID(ctx context.Context, id uuid.UUID) (*ICUBed, error) {
	return m.GetByID(ctx, id)
}

func (m *mockBedRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	b, ok := m.items[id]
	if !ok {
		return apperror.NotFound("ICU bed not found")
	}
	b.Status = status
	return nil
}

func (m *mockBedRepo) List(_ context.Context, status string) ([]*ICUBed, error) {
	var result []*ICUBed
	for _, b := range m.items {
		if status == "" || b.Status == status {
			result = append(result, b)
		}
	}
	return result, nil
}

type mockPatientRepo struct {
	items map[uuid.UUID]*Patient
	log   []*VitalsLogEntry
	seq   int
}

func newMockPatientRepo() *mockPatientRepo {
	return &mockPatientRepo{items: make(map[uuid.UUID]*Patient)}
}

func (m *mockPatientRepo) Create(_ context.Context, p *Patient) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	cp := *p
	m.items[p.ID] = &cp
	return nil
}

func (m *mockPatientRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.items[id]
	if !ok {
		return nil, apperror.NotFound("ICU patient not found")
	}
	cp := *p
	return &cp, nil
}

func (m *mockPatientRepo) LockByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return m.GetByID(ctx, id)
}

func (m *mockPatientRepo) UpdateVitals(_ context.Context, id uuid.UUID, v *Vitals) error {
	p, ok := m.items[id]
	if !ok {
		return apperror.NotFound("ICU patient not found")
	}
	p.CurrentVitals = v
	return nil
}

func (m *mockPatientRepo) Discharge(_ context.Context, p *Patient) error {
	cur, ok := m.items[p.ID]
	if !ok {
		return apperror.NotFound("ICU patient not found")
	}
	cur.Status = p.Status
	cur.BedID = nil
	cur.DischargeDate = p.DischargeDate
	cur.DischargeDisposition = p.DischargeDisposition
	return nil
}

func (m *mockPatientRepo) List(_ context.Context, status string, _, _ int) ([]*Patient, int, error) {
	var result []*Patient
	for _, p := range m.items {
		if status == "" || p.Status == status {
			result = append(result, p)
		}
	}
	return result, len(result), nil
}

func (m *mockPatientRepo) NextCode(_ context.Context) (string, error) {
	m.seq++
	return fmt.Sprintf("ICU-%04d", m.seq), nil
}

func (m *mockPatientRepo) AppendVitalsLog(_ context.Context, e *VitalsLogEntry) error {
	e.ID = uuid.New()
	m.log = append(m.log, e)
	return nil
}

func (m *mockPatientRepo) VitalsHistory(_ context.Context, icuPatientID uuid.UUID, _, _ int) ([]*VitalsLogEntry, int, error) {
	var result []*VitalsLogEntry
	for _, e := range m.log {
		if e.ICUPatientID == icuPatientID {
			result = append(result, e)
		}
	}
	return result, len(result), nil
}

func intp(n int) *int { return &n }

func newTestService(t *testing.T) (*Service, *mockPatientRepo, *mockBedRepo, *ICUBed) {
	t.Helper()
	patients := newMockPatientRepo()
	beds := newMockBedRepo()
	svc := NewService(patients, beds, txPassthrough{})

	b := &ICUBed{BedNumber: "ICU-1"}
	if err := svc.CreateBed(context.Background(), b); err != nil {
		t.Fatalf("CreateBed: %v", err)
	}
	return svc, patients, beds, b
}

func TestAdmit_OccupiesBed(t *testing.T) {
	svc, _, beds, bed := newTestService(t)

	p := &Patient{PatientID: uuid.New(), BedID: &bed.ID, AdmittingDiagnosis: "Sepsis"}
	if err := svc.Admit(context.Background(), p); err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if p.AdmissionCode != "ICU-0001" {
		t.Errorf("code = %q, want ICU-0001", p.AdmissionCode)
	}
	if beds.items[bed.ID].Status != BedOccupied {
		t.Errorf("bed status = %q, want Occupied", beds.items[bed.ID].Status)
	}
}

func TestAdmit_OccupiedBedRejected(t *testing.T) {
	svc, _, beds, bed := newTestService(t)
	beds.items[bed.ID].Status = BedOccupied

	p := &Patient{PatientID: uuid.New(), BedID: &bed.ID, AdmittingDiagnosis: "Sepsis"}
	err := svc.Admit(context.Background(), p)
	if apperror.KindOf(err) != apperror.KindInvalidState {
		t.Errorf("err = %v, want InvalidState", err)
	}
}

func TestAdmit_RequiresDiagnosis(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	err := svc.Admit(context.Background(), &Patient{PatientID: uuid.New()})
	if apperror.KindOf(err) != apperror.KindInvalidArgument {
		t.Errorf("err = %v, want InvalidArgument", err)
	}
}

func TestUpdateVitals_DualWrite(t *testing.T) {
	svc, patients, _, bed := newTestService(t)
	p := &Patient{PatientID: uuid.New(), BedID: &bed.ID, AdmittingDiagnosis: "Sepsis"}
	if err := svc.Admit(context.Background(), p); err != nil {
		t.Fatalf("Admit: %v", err)
	}

	v1 := Vitals{HeartRate: intp(88), SpO2: intp(97)}
	e1, err := svc.UpdateVitals(context.Background(), p.ID, v1, "nurse-1")
	if err != nil {
		t.Fatalf("UpdateVitals: %v", err)
	}
	if e1.RecordedBy == nil || *e1.RecordedBy != "nurse-1" {
		t.Errorf("recorded_by = %v, want nurse-1", e1.RecordedBy)
	}

	v2 := Vitals{HeartRate: intp(112), SpO2: intp(91)}
	if _, err := svc.UpdateVitals(context.Background(), p.ID, v2, "nurse-2"); err != nil {
		t.Fatalf("UpdateVitals second: %v", err)
	}

	// Snapshot holds the latest reading.
	got, _ := svc.Get(context.Background(), p.ID)
	if got.CurrentVitals == nil || *got.CurrentVitals.HeartRate != 112 {
		t.Errorf("current vitals = %+v, want heart_rate 112", got.CurrentVitals)
	}
	// History holds both, append-only.
	hist, total, err := svc.VitalsHistory(context.Background(), p.ID, 20, 0)
	if err != nil {
		t.Fatalf("VitalsHistory: %v", err)
	}
	if total != 2 || len(hist) != 2 {
		t.Errorf("history = %d entries, want 2", total)
	}
	if *patients.log[0].HeartRate != 88 {
		t.Errorf("first log entry heart_rate = %d, want 88 (append-only order)", *patients.log[0].HeartRate)
	}
}

func TestUpdateVitals_EmptyReading(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	p := &Patient{PatientID: uuid.New(), AdmittingDiagnosis: "Sepsis"}
	if err := svc.Admit(context.Background(), p); err != nil {
		t.Fatalf("Admit: %v", err)
	}
	_, err := svc.UpdateVitals(context.Background(), p.ID, Vitals{}, "nurse-1")
	if apperror.KindOf(err) != apperror.KindInvalidArgument {
		t.Errorf("err = %v, want InvalidArgument", err)
	}
}

func TestUpdateVitals_DischargedRejected(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	p := &Patient{PatientID: uuid.New(), AdmittingDiagnosis: "Sepsis"}
	if err := svc.Admit(context.Background(), p); err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if _, err := svc.Discharge(context.Background(), p.ID, DischargeRequest{}); err != nil {
		t.Fatalf("Discharge: %v", err)
	}

	_, err := svc.UpdateVitals(context.Background(), p.ID, Vitals{HeartRate: intp(80)}, "nurse-1")
	if apperror.KindOf(err) != apperror.KindInvalidState {
		t.Errorf("err = %v, want InvalidState", err)
	}
}

func TestDischarge_FreesBedOnce(t *testing.T) {
	svc, _, beds, bed := newTestService(t)
	p := &Patient{PatientID: uuid.New(), BedID: &bed.ID, AdmittingDiagnosis: "Sepsis"}
	if err := svc.Admit(context.Background(), p); err != nil {
		t.Fatalf("Admit: %v", err)
	}

	got, err := svc.Discharge(context.Background(), p.ID, DischargeRequest{Disposition: "Ward transfer"})
	if err != nil {
		t.Fatalf("Discharge: %v", err)
	}
	if got.Status != StatusDischarged {
		t.Errorf("status = %q, want Discharged", got.Status)
	}
	if beds.items[bed.ID].Status != BedAvailable {
		t.Errorf("bed = %q, want Available", beds.items[bed.ID].Status)
	}

	_, err = svc.Discharge(context.Background(), p.ID, DischargeRequest{})
	if apperror.KindOf(err) != apperror.KindInvalidState {
		t.Errorf("second discharge: err = %v, want InvalidState", err)
	}
}
