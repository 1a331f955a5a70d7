package patient

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

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const patientCols = `id, patient_code, name, gender, date_of_birth, blood_group,
	phone, email, address, created_at, updated_at`

func (r *repoPG) scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.PatientCode, &p.Name, &p.Gender, &p.DateOfBirth, &p.BloodGroup,
		&p.Phone, &p.Email, &p.Address, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, db.Translate(err)
	}
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patients (id, patient_code, name, gender, date_of_birth, blood_group, phone, email, address)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		p.ID, p.PatientCode, p.Name, p.Gender, p.DateOfBirth, p.BloodGroup, p.Phone, p.Email, p.Address)
	return db.Translate(err)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return r.scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
}

func (r *repoPG) GetByCode(ctx context.Context, code string) (*Patient, error) {
	return r.scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE patient_code = $1`, code))
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET name=$2, gender=$3, date_of_birth=$4, blood_group=$5,
			phone=$6, email=$7, address=$8, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Name, p.Gender, p.DateOfBirth, p.BloodGroup, p.Phone, p.Email, p.Address)
	return db.Translate(err)
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	return db.Translate(err)
}

func (r *repoPG) List(ctx context.Context, search string, limit, offset int) ([]*Patient, int, error) {
	where := ``
	args := []interface{}{}
	if search != "" {
		where = ` WHERE name ILIKE $1 OR patient_code ILIKE $1 OR phone ILIKE $1`
		args = append(args, "%"+search+"%")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients`+where, args...).Scan(&total); err != nil {
		return nil, 0, db.Translate(err)
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT `+patientCols+` FROM patients`+where+
		` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, n+1, n+2)
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

// NextCode derives the next PAT-NNN identifier from the current max.
// Called inside the creating transaction so concurrent creates serialize on
// the unique index rather than racing silently.
func (r *repoPG) NextCode(ctx context.Context) (string, error) {
	var max int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COALESCE(MAX(CAST(SUBSTRING(patient_code FROM 5) AS INTEGER)), 0)
		FROM patients WHERE patient_code LIKE 'PAT-%'`).Scan(&max)
	if err != nil {
		return "", db.Translate(err)
	}
	return fmt.Sprintf("PAT-%03d", max+1), nil
}

func (r *repoPG) HasReferences(ctx context.Context, id uuid.UUID) (bool, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT (SELECT COUNT(*) FROM ipd_admissions WHERE patient_id = $1)
		     + (SELECT COUNT(*) FROM icu_patients WHERE patient_id = $1)
		     + (SELECT COUNT(*) FROM bills WHERE patient_id = $1)`, id).Scan(&n)
	return n > 0, db.Translate(err)
}
