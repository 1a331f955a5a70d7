package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hms/hms/internal/platform/db"
	"github.com/hms/hms/pkg/money"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// =========== Bill Repository ===========

type billRepoPG struct{ pool *pgxpool.Pool }

func NewBillRepoPG(pool *pgxpool.Pool) BillRepository { return &billRepoPG{pool: pool} }

func (r *billRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const billCols = `b.id, b.bill_number, b.patient_id, b.admission_id, b.opd_visit_id,
	b.bill_date, b.due_date, b.subtotal, b.discount_amount, b.discount_reason,
	b.tax_amount, b.total_amount, b.paid_amount, b.balance_due,
	b.payment_status, b.status, b.insurance_claim_id, b.insurance_amount,
	b.notes, b.created_by, b.created_at, b.updated_at`

const billHydrated = billCols + `, p.name, p.patient_code`

const billFrom = ` FROM bills b JOIN patients p ON p.id = b.patient_id`

func (r *billRepoPG) scanBill(row pgx.Row) (*Bill, error) {
	var b Bill
	err := row.Scan(&b.ID, &b.BillNumber, &b.PatientID, &b.AdmissionID, &b.OPDVisitID,
		&b.BillDate, &b.DueDate, &b.Subtotal, &b.DiscountAmount, &b.DiscountReason,
		&b.TaxAmount, &b.TotalAmount, &b.PaidAmount, &b.BalanceDue,
		&b.PaymentStatus, &b.Status, &b.InsuranceClaimID, &b.InsuranceAmount,
		&b.Notes, &b.CreatedBy, &b.CreatedAt, &b.UpdatedAt,
		&b.PatientName, &b.PatientCode)
	if err != nil {
		return nil, db.Translate(err)
	}
	return &b, nil
}

func (r *billRepoPG) Create(ctx context.Context, b *Bill) error {
	b.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO bills (id, bill_number, patient_id, admission_id, opd_visit_id,
			bill_date, due_date, subtotal, discount_amount, discount_reason,
			tax_amount, total_amount, paid_amount, balance_due,
			payment_status, status, notes, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		b.ID, b.BillNumber, b.PatientID, b.AdmissionID, b.OPDVisitID,
		b.BillDate, b.DueDate, b.Subtotal, b.DiscountAmount, b.DiscountReason,
		b.TaxAmount, b.TotalAmount, b.PaidAmount, b.BalanceDue,
		b.PaymentStatus, b.Status, b.Notes, b.CreatedBy)
	return db.Translate(err)
}

func (r *billRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Bill, error) {
	return r.scanBill(r.conn(ctx).QueryRow(ctx, `SELECT `+billHydrated+billFrom+` WHERE b.id = $1`, id))
}

func (r *billRepoPG) LockByID(ctx context.Context, id uuid.UUID) (*Bill, error) {
	var b Bill
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, bill_number, patient_id, subtotal, discount_amount, tax_amount,
			total_amount, paid_amount, balance_due, payment_status, status,
			insurance_claim_id, insurance_amount
		FROM bills WHERE id = $1 FOR UPDATE`, id).
		Scan(&b.ID, &b.BillNumber, &b.PatientID, &b.Subtotal, &b.DiscountAmount, &b.TaxAmount,
			&b.TotalAmount, &b.PaidAmount, &b.BalanceDue, &b.PaymentStatus, &b.Status,
			&b.InsuranceClaimID, &b.InsuranceAmount)
	if err != nil {
		return nil, db.Translate(err)
	}
	return &b, nil
}

func (r *billRepoPG) UpdateAggregates(ctx context.Context, b *Bill) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE bills SET subtotal=$2, discount_amount=$3, tax_amount=$4, total_amount=$5,
			paid_amount=$6, balance_due=$7, payment_status=$8, updated_at=NOW()
		WHERE id = $1`,
		b.ID, b.Subtotal, b.DiscountAmount, b.TaxAmount, b.TotalAmount,
		b.PaidAmount, b.BalanceDue, b.PaymentStatus)
	return db.Translate(err)
}

func (r *billRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE bills SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	return db.Translate(err)
}

func (r *billRepoPG) StampClaim(ctx context.Context, id uuid.UUID, claimID uuid.UUID, amount money.Cents) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE bills SET insurance_claim_id = $2, insurance_amount = $3, updated_at = NOW()
		WHERE id = $1`, id, claimID, amount)
	return db.Translate(err)
}

func (r *billRepoPG) List(ctx context.Context, patientID *uuid.UUID, paymentStatus, status string, limit, offset int) ([]*Bill, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	if patientID != nil {
		args = append(args, *patientID)
		where += fmt.Sprintf(` AND b.patient_id = $%d`, len(args))
	}
	if paymentStatus != "" {
		args = append(args, paymentStatus)
		where += fmt.Sprintf(` AND b.payment_status = $%d`, len(args))
	}
	if status != "" {
		args = append(args, status)
		where += fmt.Sprintf(` AND b.status = $%d`, len(args))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM bills b`+where, args...).Scan(&total); err != nil {
		return nil, 0, db.Translate(err)
	}

	query := fmt.Sprintf(`SELECT `+billHydrated+billFrom+where+
		` ORDER BY b.bill_date DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, db.Translate(err)
	}
	defer rows.Close()

	var items []*Bill
	for rows.Next() {
		b, err := r.scanBill(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, b)
	}
	return items, total, nil
}

func (r *billRepoPG) NextNumber(ctx context.Context) (string, error) {
	var max int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COALESCE(MAX(CAST(SUBSTRING(bill_number FROM 6) AS INTEGER)), 0)
		FROM bills WHERE bill_number LIKE 'BILL-%'`).Scan(&max)
	if err != nil {
		return "", db.Translate(err)
	}
	return fmt.Sprintf("BILL-%05d", max+1), nil
}

// =========== Item Repository ===========

type itemRepoPG struct{ pool *pgxpool.Pool }

func NewItemRepoPG(pool *pgxpool.Pool) ItemRepository { return &itemRepoPG{pool: pool} }

func (r *itemRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const itemCols = `id, bill_id, description, quantity, unit_price, discount, tax, total,
	service_date, notes, created_at`

func (r *itemRepoPG) Create(ctx context.Context, item *BillItem) error {
	item.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO bill_items (id, bill_id, description, quantity, unit_price,
			discount, tax, total, service_date, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		item.ID, item.BillID, item.Description, item.Quantity, item.UnitPrice,
		item.Discount, item.Tax, item.Total, item.ServiceDate, item.Notes)
	return db.Translate(err)
}

func (r *itemRepoPG) ListByBill(ctx context.Context, billID uuid.UUID) ([]*BillItem, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+itemCols+` FROM bill_items WHERE bill_id = $1 ORDER BY created_at`, billID)
	if err != nil {
		return nil, db.Translate(err)
	}
	defer rows.Close()

	var items []*BillItem
	for rows.Next() {
		var it BillItem
		if err := rows.Scan(&it.ID, &it.BillID, &it.Description, &it.Quantity, &it.UnitPrice,
			&it.Discount, &it.Tax, &it.Total, &it.ServiceDate, &it.Notes, &it.CreatedAt); err != nil {
			return nil, db.Translate(err)
		}
		items = append(items, &it)
	}
	return items, nil
}

func (r *itemRepoPG) SumByBill(ctx context.Context, billID uuid.UUID) (ItemSums, error) {
	var s ItemSums
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COALESCE(SUM(total), 0), COALESCE(SUM(tax), 0), COALESCE(SUM(discount), 0)
		FROM bill_items WHERE bill_id = $1`, billID).
		Scan(&s.Subtotal, &s.Tax, &s.Discount)
	return s, db.Translate(err)
}

// =========== Payment Repository ===========

type paymentRepoPG struct{ pool *pgxpool.Pool }

func NewPaymentRepoPG(pool *pgxpool.Pool) PaymentRepository { return &paymentRepoPG{pool: pool} }

func (r *paymentRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const paymentCols = `id, payment_code, bill_id, patient_id, amount, payment_date,
	payment_method, transaction_reference, receipt_number, notes, created_by, created_at`

func (r *paymentRepoPG) scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.PaymentCode, &p.BillID, &p.PatientID, &p.Amount, &p.PaymentDate,
		&p.PaymentMethod, &p.TransactionReference, &p.ReceiptNumber, &p.Notes, &p.CreatedBy, &p.CreatedAt)
	if err != nil {
		return nil, db.Translate(err)
	}
	return &p, nil
}

func (r *paymentRepoPG) Create(ctx context.Context, p *Payment) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO payments (id, payment_code, bill_id, patient_id, amount, payment_date,
			payment_method, transaction_reference, receipt_number, notes, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		p.ID, p.PaymentCode, p.BillID, p.PatientID, p.Amount, p.PaymentDate,
		p.PaymentMethod, p.TransactionReference, p.ReceiptNumber, p.Notes, p.CreatedBy)
	return db.Translate(err)
}

func (r *paymentRepoPG) ListByBill(ctx context.Context, billID uuid.UUID) ([]*Payment, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+paymentCols+` FROM payments WHERE bill_id = $1 ORDER BY payment_date`, billID)
	if err != nil {
		return nil, db.Translate(err)
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *paymentRepoPG) List(ctx context.Context, billID, patientID *uuid.UUID, method string, limit, offset int) ([]*Payment, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	if billID != nil {
		args = append(args, *billID)
		where += fmt.Sprintf(` AND bill_id = $%d`, len(args))
	}
	if patientID != nil {
		args = append(args, *patientID)
		where += fmt.Sprintf(` AND patient_id = $%d`, len(args))
	}
	if method != "" {
		args = append(args, method)
		where += fmt.Sprintf(` AND payment_method = $%d`, len(args))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM payments`+where, args...).Scan(&total); err != nil {
		return nil, 0, db.Translate(err)
	}

	query := fmt.Sprintf(`SELECT `+paymentCols+` FROM payments`+where+
		` ORDER BY payment_date DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
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

func (r *paymentRepoPG) collect(rows pgx.Rows) ([]*Payment, error) {
	var items []*Payment
	for rows.Next() {
		p, err := r.scanPayment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, nil
}

func (r *paymentRepoPG) CountByBill(ctx context.Context, billID uuid.UUID) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM payments WHERE bill_id = $1`, billID).Scan(&n)
	return n, db.Translate(err)
}

func (r *paymentRepoPG) NextCode(ctx context.Context) (string, error) {
	var max int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COALESCE(MAX(CAST(SUBSTRING(payment_code FROM 5) AS INTEGER)), 0)
		FROM payments WHERE payment_code LIKE 'PAY-%'`).Scan(&max)
	if err != nil {
		return "", db.Translate(err)
	}
	return fmt.Sprintf("PAY-%05d", max+1), nil
}
