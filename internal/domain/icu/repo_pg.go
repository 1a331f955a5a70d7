package icu

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hms/hms/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// =========== ICU Bed Repository ===========

type bedRepoPG struct{ pool *pgxpool.Pool }

func NewBedRepoPG(pool *pgxpool.Pool) BedRepository { return &bedRepoPG{pool: pool} }

func (r *bedRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const icuBedCols = `id, bed_number, bed_type, daily_rate, status, created_at`

func (r *bedRepoPG) scanBed(row pgx.Row) (*ICUBed, error) {
	var b ICUBed
	err := row.Scan(&b.ID, &b.BedNumber, &b.BedType, &b.DailyRate, &b.Status, &b.CreatedAt)
	if err != nil {
		return nil, db.Translate(err)
	}
	return &b, nil
}

func (r *bedRepoPG) Create(ctx context.Context, b *ICUBed) error {
	b.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO icu_beds (id, bed_number, bed_type, daily_rate, status)
		VALUES ($1,$2,$3,$4,$5)`,
		b.ID, b.BedNumber, b.BedType, b.DailyRate, b.Status)
	return db.Translate(err)
}

func (r *bedRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ICUBed, error) {
	return r.scanBed(r.conn(ctx).QueryRow(ctx, `SELECT `+icuBedCols+` FROM icu_beds WHERE id = $1`, id))
}

func (r *bedRepoPG) LockByID(ctx context.Context, id uuid.UUID) (*ICUBed, error) {
	return r.scanBed(r.conn(ctx).QueryRow(ctx, `SELECT `+icuBedCols+` FROM icu_beds WHERE id = $1 FOR UPDATE`, id))
}

func (r *bedRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE icu_beds SET status = $2 WHERE id = $1`, id, status)
	return db.Translate(err)
}

func (r *bedRepoPG) List(ctx context.Context, status string) ([]*ICUBed, error) {
	query := `SELECT ` + icuBedCols + ` FROM icu_beds`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY bed_number`
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, db.Translate(err)
	}
	defer rows.Close()

	var items []*ICUBed
	for rows.Next() {
		b, err := r.scanBed(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, nil
}

// =========== ICU Patient Repository ===========

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository { return &patientRepoPG{pool: pool} }

func (r *patientRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const icuPatientCols = `i.id, i.admission_code, i.patient_id, i.bed_id, i.attending_doctor_id,
	i.admission_date, i.admitting_diagnosis, i.condition_status, i.ventilator_support,
	i.current_vitals, i.status, i.discharge_date, i.discharge_disposition,
	i.notes, i.created_by, i.created_at, i.updated_at,
	p.name, p.patient_code, COALESCE(b.bed_number, '')`

const icuPatientFrom = ` FROM icu_patients i
	JOIN patients p ON p.id = i.patient_id
	LEFT JOIN icu_beds b ON b.id = i.bed_id`

func (r *patientRepoPG) scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.AdmissionCode, &p.PatientID, &p.BedID, &p.AttendingDoctorID,
		&p.AdmissionDate, &p.AdmittingDiagnosis, &p.ConditionStatus, &p.VentilatorSupport,
		&p.CurrentVitals, &p.Status, &p.DischargeDate, &p.DischargeDisposition,
		&p.Notes, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
		&p.PatientName, &p.PatientCode, &p.BedNumber)
	if err != nil {
		return nil, db.Translate(err)
	}
	return &p, nil
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO icu_patients (id, admission_code, patient_id, bed_id, attending_doctor_id,
			admission_date, admitting_diagnosis, condition_status, ventilator_support,
			current_vitals, status, notes, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		p.ID, p.AdmissionCode, p.PatientID, p.BedID, p.AttendingDoctorID,
		p.AdmissionDate, p.AdmittingDiagnosis, p.ConditionStatus, p.VentilatorSupport,
		p.CurrentVitals, p.Status, p.Notes, p.CreatedBy)
	return db.Translate(err)
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return r.scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+icuPatientCols+icuPatientFrom+` WHERE i.id = $1`, id))
}

func (r *patientRepoPG) LockByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	var p Patient
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, admission_code, patient_id, bed_id, status
		FROM icu_patients WHERE id = $1 FOR UPDATE`, id).
		Scan(&p.ID, &p.AdmissionCode, &p.PatientID, &p.BedID, &p.Status)
	if err != nil {
		return nil, db.Translate(err)
	}
	return &p, nil
}

func (r *patientRepoPG) UpdateVitals(ctx context.Context, id uuid.UUID, v *Vitals) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE icu_patients SET current_vitals = $2, updated_at = NOW() WHERE id = $1`, id, v)
	return db.Translate(err)
}

func (r *patientRepoPG) Discharge(ctx context.Context, p *Patient) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE icu_patients SET status = $2, bed_id = NULL, discharge_date = $3,
			discharge_disposition = $4, updated_at = NOW()
		WHERE id = $1`,
		p.ID, p.Status, p.DischargeDate, p.DischargeDisposition)
	return db.Translate(err)
}

func (r *patientRepoPG) List(ctx context.Context, status string, limit, offset int) ([]*Patient, int, error) {
	where := ``
	args := []interface{}{}
	if status != "" {
		where = ` WHERE i.status = $1`
		args = append(args, status)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM icu_patients i`+where, args...).Scan(&total); err != nil {
		return nil, 0, db.Translate(err)
	}

	query := fmt.Sprintf(`SELECT `+icuPatientCols+icuPatientFrom+where+
		` ORDER BY i.admission_date DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, db.Translate(err)
	}
	defer rows.Close()

	var items []*Patient
	for rows.Next() {
		p, err := r.scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, nil
}

func (r *patientRepoPG) NextCode(ctx context.Context) (string, error) {
	var max int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COALESCE(MAX(CAST(SUBSTRING(admission_code FROM 5) AS INTEGER)), 0)
		FROM icu_patients WHERE admission_code LIKE 'ICU-%'`).Scan(&max)
	if err != nil {
		return "", db.Translate(err)
	}
	return fmt.Sprintf("ICU-%04d", max+1), nil
}

func (r *patientRepoPG) AppendVitalsLog(ctx context.Context, e *VitalsLogEntry) error {
	e.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO icu_vitals_log (id, icu_patient_id, recorded_at, recorded_by,
			bp_systolic, bp_diastolic, heart_rate, temperature, respiratory_rate,
			spo2, cvp, urine_output, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		e.ID, e.ICUPatientID, e.RecordedAt, e.RecordedBy,
		e.BPSystolic, e.BPDiastolic, e.HeartRate, e.Temperature, e.RespiratoryRate,
		e.SpO2, e.CVP, e.UrineOutput, e.Vitals.Notes)
	return db.Translate(err)
}

func (r *patientRepoPG) VitalsHistory(ctx context.Context, icuPatientID uuid.UUID, limit, offset int) ([]*VitalsLogEntry, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM icu_vitals_log WHERE icu_patient_id = $1`, icuPatientID).Scan(&total); err != nil {
		return nil, 0, db.Translate(err)
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, icu_patient_id, recorded_at, recorded_by,
			bp_systolic, bp_diastolic, heart_rate, temperature, respiratory_rate,
			spo2, cvp, urine_output, notes
		FROM icu_vitals_log WHERE icu_patient_id = $1
		ORDER BY recorded_at DESC LIMIT $2 OFFSET $3`, icuPatientID, limit, offset)
	if err != nil {
		return nil, 0, db.Translate(err)
	}
	defer rows.Close()

	var items []*VitalsLogEntry
	for rows.Next() {
		var e VitalsLogEntry
		if err := rows.Scan(&e.ID, &e.ICUPatientID, &e.RecordedAt, &e.RecordedBy,
			&e.BPSystolic, &e.BPDiastolic, &e.HeartRate, &e.Temperature, &e.RespiratoryRate,
			&e.SpO2, &e.CVP, &e.UrineOutput, &e.Vitals.Notes); err != nil {
			return nil, 0, db.Translate(err)
		}
		items = append(items, &e)
	}
	return items, total, nil
}
