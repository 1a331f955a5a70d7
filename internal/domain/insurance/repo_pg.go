package insurance

import (
	"context"
	"fmt"
	"strconv"

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

type providerRepoPG struct{ pool *pgxpool.Pool }

func NewProviderRepoPG(pool *pgxpool.Pool) ProviderRepository { return &providerRepoPG{pool: pool} }

func (r *providerRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const providerCols = `id, name, contact_person, phone, email, address, is_active, created_at, updated_at`

func scanProvider(row pgx.Row) (*Provider, error) {
	var p Provider
	err := row.Scan(&p.ID, &p.Name, &p.ContactPerson, &p.Phone, &p.Email, &p.Address,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, db.Translate(err)
	}
	return &p, nil
}

func (r *providerRepoPG) Create(ctx context.Context, p *Provider) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO insurance_providers (id, name, contact_person, phone, email, address, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		p.ID, p.Name, p.ContactPerson, p.Phone, p.Email, p.Address, p.IsActive)
	return db.Translate(err)
}

func (r *providerRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Provider, error) {
	return scanProvider(r.conn(ctx).QueryRow(ctx,
		`SELECT `+providerCols+` FROM insurance_providers WHERE id = $1`, id))
}

func (r *providerRepoPG) Update(ctx context.Context, p *Provider) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE insurance_providers SET name=$2, contact_person=$3, phone=$4, email=$5,
			address=$6, is_active=$7, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Name, p.ContactPerson, p.Phone, p.Email, p.Address, p.IsActive)
	return db.Translate(err)
}

func (r *providerRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM insurance_providers WHERE id = $1`, id)
	return db.Translate(err)
}

func (r *providerRepoPG) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Provider, int, error) {
	where := ``
	if activeOnly {
		where = ` WHERE is_active`
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM insurance_providers`+where).Scan(&total); err != nil {
		return nil, 0, db.Translate(err)
	}

	rows, err := r.conn(ctx).Query(ctx, `SELECT `+providerCols+` FROM insurance_providers`+where+
		` ORDER BY name ASC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, db.Translate(err)
	}
	defer rows.Close()

	var items []*Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, nil
}

func (r *providerRepoPG) HasClaims(ctx context.Context, id uuid.UUID) (bool, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM insurance_claims WHERE insurance_provider_id = $1`, id).Scan(&n)
	return n > 0, db.Translate(err)
}

type claimRepoPG struct{ pool *pgxpool.Pool }

func NewClaimRepoPG(pool *pgxpool.Pool) ClaimRepository { return &claimRepoPG{pool: pool} }

func (r *claimRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const claimCols = `c.id, c.claim_number, c.bill_id, c.patient_id, c.insurance_provider_id,
	c.amount, c.status, c.documents, c.notes, c.admin_notes, c.created_by, c.created_at, c.updated_at,
	COALESCE(p.name, ''), COALESCE(p.patient_code, ''), COALESCE(ip.name, ''), COALESCE(b.bill_number, '')`

const claimJoins = ` FROM insurance_claims c
	LEFT JOIN patients p ON p.id = c.patient_id
	LEFT JOIN insurance_providers ip ON ip.id = c.insurance_provider_id
	LEFT JOIN bills b ON b.id = c.bill_id`

func scanClaim(row pgx.Row) (*Claim, error) {
	var c Claim
	err := row.Scan(&c.ID, &c.ClaimNumber, &c.BillID, &c.PatientID, &c.InsuranceProviderID,
		&c.Amount, &c.Status, &c.Documents, &c.Notes, &c.AdminNotes, &c.CreatedBy,
		&c.CreatedAt, &c.UpdatedAt,
		&c.PatientName, &c.PatientCode, &c.ProviderName, &c.BillNumber)
	if err != nil {
		return nil, db.Translate(err)
	}
	return &c, nil
}

func (r *claimRepoPG) Create(ctx context.Context, c *Claim) error {
	c.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO insurance_claims
			(id, claim_number, bill_id, patient_id, insurance_provider_id, amount, status, documents, notes, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		c.ID, c.ClaimNumber, c.BillID, c.PatientID, c.InsuranceProviderID,
		c.Amount, c.Status, c.Documents, c.Notes, c.CreatedBy)
	return db.Translate(err)
}

func (r *claimRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Claim, error) {
	return scanClaim(r.conn(ctx).QueryRow(ctx,
		`SELECT `+claimCols+claimJoins+` WHERE c.id = $1`, id))
}

func (r *claimRepoPG) LockByID(ctx context.Context, id uuid.UUID) (*Claim, error) {
	var c Claim
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, claim_number, bill_id, patient_id, insurance_provider_id,
			amount, status, documents, notes, admin_notes, created_by, created_at, updated_at
		FROM insurance_claims WHERE id = $1 FOR UPDATE`, id).
		Scan(&c.ID, &c.ClaimNumber, &c.BillID, &c.PatientID, &c.InsuranceProviderID,
			&c.Amount, &c.Status, &c.Documents, &c.Notes, &c.AdminNotes, &c.CreatedBy,
			&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, db.Translate(err)
	}
	return &c, nil
}

func (r *claimRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string, adminNotes *string) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE insurance_claims SET status=$2, admin_notes=COALESCE($3, admin_notes), updated_at=NOW()
		WHERE id = $1`, id, status, adminNotes)
	return db.Translate(err)
}

func (r *claimRepoPG) List(ctx context.Context, patientID, providerID *uuid.UUID, status string, limit, offset int) ([]*Claim, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	if patientID != nil {
		args = append(args, *patientID)
		where += ` AND c.patient_id = $` + strconv.Itoa(len(args))
	}
	if providerID != nil {
		args = append(args, *providerID)
		where += ` AND c.insurance_provider_id = $` + strconv.Itoa(len(args))
	}
	if status != "" {
		args = append(args, status)
		where += ` AND c.status = $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM insurance_claims c`+where, args...).Scan(&total); err != nil {
		return nil, 0, db.Translate(err)
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT `+claimCols+claimJoins+where+
		` ORDER BY c.created_at DESC LIMIT $%d OFFSET $%d`, n+1, n+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, db.Translate(err)
	}
	defer rows.Close()

	var items []*Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, nil
}

func (r *claimRepoPG) NextNumber(ctx context.Context) (string, error) {
	var max int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COALESCE(MAX(CAST(SUBSTRING(claim_number FROM 5) AS INTEGER)), 0)
		FROM insurance_claims WHERE claim_number LIKE 'CLM-%'`).Scan(&max)
	if err != nil {
		return "", db.Translate(err)
	}
	return fmt.Sprintf("CLM-%05d", max+1), nil
}
