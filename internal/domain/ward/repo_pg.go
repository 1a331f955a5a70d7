package ward

import (
	"context"
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

// =========== Ward Repository ===========

type wardRepoPG struct{ pool *pgxpool.Pool }

func NewWardRepoPG(pool *pgxpool.Pool) WardRepository { return &wardRepoPG{pool: pool} }

func (r *wardRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const wardCols = `id, name, type, floor, total_beds, available_beds, nurse_station, created_at, updated_at`

func (r *wardRepoPG) scanWard(row pgx.Row) (*Ward, error) {
	var w Ward
	err := row.Scan(&w.ID, &w.Name, &w.Type, &w.Floor, &w.TotalBeds, &w.AvailableBeds,
		&w.NurseStation, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, db.Translate(err)
	}
	return &w, nil
}

func (r *wardRepoPG) Create(ctx context.Context, w *Ward) error {
	w.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO wards (id, name, type, floor, total_beds, available_beds, nurse_station)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		w.ID, w.Name, w.Type, w.Floor, w.TotalBeds, w.AvailableBeds, w.NurseStation)
	return db.Translate(err)
}

func (r *wardRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Ward, error) {
	return r.scanWard(r.conn(ctx).QueryRow(ctx, `SELECT `+wardCols+` FROM wards WHERE id = $1`, id))
}

func (r *wardRepoPG) LockByID(ctx context.Context, id uuid.UUID) (*Ward, error) {
	return r.scanWard(r.conn(ctx).QueryRow(ctx, `SELECT `+wardCols+` FROM wards WHERE id = $1 FOR UPDATE`, id))
}

func (r *wardRepoPG) Update(ctx context.Context, w *Ward) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE wards SET name=$2, type=$3, floor=$4, nurse_station=$5, updated_at=NOW()
		WHERE id = $1`,
		w.ID, w.Name, w.Type, w.Floor, w.NurseStation)
	return db.Translate(err)
}

func (r *wardRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM wards WHERE id = $1`, id)
	return db.Translate(err)
}

func (r *wardRepoPG) List(ctx context.Context, wardType string, limit, offset int) ([]*Ward, int, error) {
	where := ``
	args := []interface{}{}
	if wardType != "" {
		where = ` WHERE type = $1`
		args = append(args, wardType)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM wards`+where, args...).Scan(&total); err != nil {
		return nil, 0, db.Translate(err)
	}

	n := len(args)
	query := `SELECT ` + wardCols + ` FROM wards` + where +
		` ORDER BY name LIMIT $` + strconv.Itoa(n+1) + ` OFFSET $` + strconv.Itoa(n+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, db.Translate(err)
	}
	defer rows.Close()

	var items []*Ward
	for rows.Next() {
		w, err := r.scanWard(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, w)
	}
	return items, total, nil
}

func (r *wardRepoPG) AdjustCounters(ctx context.Context, id uuid.UUID, deltaTotal, deltaAvailable int) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE wards SET total_beds = total_beds + $2, available_beds = available_beds + $3, updated_at = NOW()
		WHERE id = $1`,
		id, deltaTotal, deltaAvailable)
	return db.Translate(err)
}

func (r *wardRepoPG) SetCounters(ctx context.Context, id uuid.UUID, total, available int) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE wards SET total_beds = $2, available_beds = $3, updated_at = NOW()
		WHERE id = $1`,
		id, total, available)
	return db.Translate(err)
}

// =========== Bed Repository ===========

type bedRepoPG struct{ pool *pgxpool.Pool }

func NewBedRepoPG(pool *pgxpool.Pool) BedRepository { return &bedRepoPG{pool: pool} }

func (r *bedRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const bedCols = `b.id, b.bed_number, b.ward_id, b.bed_type, b.daily_rate, b.status, b.created_at, b.updated_at, w.name`

func (r *bedRepoPG) scanBed(row pgx.Row) (*Bed, error) {
	var b Bed
	err := row.Scan(&b.ID, &b.BedNumber, &b.WardID, &b.BedType, &b.DailyRate, &b.Status,
		&b.CreatedAt, &b.UpdatedAt, &b.WardName)
	if err != nil {
		return nil, db.Translate(err)
	}
	return &b, nil
}

func (r *bedRepoPG) Create(ctx context.Context, b *Bed) error {
	b.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO beds (id, bed_number, ward_id, bed_type, daily_rate, status)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		b.ID, b.BedNumber, b.WardID, b.BedType, b.DailyRate, b.Status)
	return db.Translate(err)
}

func (r *bedRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Bed, error) {
	return r.scanBed(r.conn(ctx).QueryRow(ctx, `
		SELECT `+bedCols+` FROM beds b JOIN wards w ON w.id = b.ward_id
		WHERE b.id = $1`, id))
}

func (r *bedRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE beds SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	return db.Translate(err)
}

func (r *bedRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM beds WHERE id = $1`, id)
	return db.Translate(err)
}

func (r *bedRepoPG) ListByWard(ctx context.Context, wardID uuid.UUID) ([]*Bed, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+bedCols+` FROM beds b JOIN wards w ON w.id = b.ward_id
		WHERE b.ward_id = $1 ORDER BY b.bed_number`, wardID)
	if err != nil {
		return nil, db.Translate(err)
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *bedRepoPG) ListAvailable(ctx context.Context, wardID *uuid.UUID) ([]*Bed, error) {
	query := `SELECT ` + bedCols + ` FROM beds b JOIN wards w ON w.id = b.ward_id WHERE b.status = 'Available'`
	args := []interface{}{}
	if wardID != nil {
		query += ` AND b.ward_id = $1`
		args = append(args, *wardID)
	}
	query += ` ORDER BY w.name, b.bed_number`
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, db.Translate(err)
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *bedRepoPG) List(ctx context.Context, status string, limit, offset int) ([]*Bed, int, error) {
	where := ``
	args := []interface{}{}
	if status != "" {
		where = ` WHERE b.status = $1`
		args = append(args, status)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM beds b`+where, args...).Scan(&total); err != nil {
		return nil, 0, db.Translate(err)
	}

	n := len(args)
	query := `SELECT ` + bedCols + ` FROM beds b JOIN wards w ON w.id = b.ward_id` + where +
		` ORDER BY w.name, b.bed_number LIMIT $` + strconv.Itoa(n+1) + ` OFFSET $` + strconv.Itoa(n+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, db.Translate(err)
	}
	defer rows.Close()

	items, err := r.collect(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *bedRepoPG) collect(rows pgx.Rows) ([]*Bed, error) {
	var items []*Bed
	for rows.Next() {
		b, err := r.scanBed(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, nil
}

func (r *bedRepoPG) CountByWardAndStatus(ctx context.Context, wardID uuid.UUID, status string) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM beds WHERE ward_id = $1 AND status = $2`, wardID, status).Scan(&n)
	return n, db.Translate(err)
}

func (r *bedRepoPG) CountByWard(ctx context.Context, wardID uuid.UUID) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM beds WHERE ward_id = $1`, wardID).Scan(&n)
	return n, db.Translate(err)
}

func (r *bedRepoPG) HasActiveAdmission(ctx context.Context, bedID uuid.UUID) (bool, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM ipd_admissions WHERE bed_id = $1 AND status = 'Active'`, bedID).Scan(&n)
	return n > 0, db.Translate(err)
}
