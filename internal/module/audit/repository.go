package audit

import (
	"context"
	"database/sql"

	"gorm.io/gorm"

	"github.com/jonathanbglass/cloudauditor/internal/domain"
)

// Repository is the read-only view of the audit store.
type Repository interface {
	domain.Executor
	LatestPolicy(ctx context.Context, arn string) (*PolicyDocument, error)
}

// reportRepository implements Repository using raw GORM queries.
type reportRepository struct {
	db *gorm.DB
}

// NewReportRepository creates a Repository backed by the given GORM database.
func NewReportRepository(db *gorm.DB) Repository {
	return &reportRepository{db: db}
}

// Query runs stmt and reads every row into memory. The rows are closed
// before returning so callers may issue further queries on the same
// connection.
func (r *reportRepository) Query(ctx context.Context, stmt domain.Statement) (*domain.ResultSet, error) {
	rows, err := r.db.WithContext(ctx).Raw(stmt.SQL, stmt.Args...).Rows()
	if err != nil {
		return nil, domain.NewQueryError(stmt.Intent, err)
	}
	defer rows.Close()

	rs, err := scanRows(rows)
	if err != nil {
		return nil, domain.NewQueryError(stmt.Intent, err)
	}
	return rs, nil
}

func scanRows(rows *sql.Rows) (*domain.ResultSet, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	rs := &domain.ResultSet{Columns: cols}
	values := make([]any, len(cols))
	dest := make([]any, len(cols))
	for i := range values {
		dest[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		row := make(domain.Row, len(cols))
		for i, c := range cols {
			row[c] = normalizeValue(values[i])
		}
		rs.Rows = append(rs.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rs, nil
}

// normalizeValue maps text columns some drivers return as []byte to strings.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// policyRow is the latest stored document for one policy ARN.
type policyRow struct {
	PolicyName     string `gorm:"column:policyname"`
	PolicyDocument string `gorm:"column:policy_document"`
}

// LatestPolicy returns the most recently inserted document for arn.
func (r *reportRepository) LatestPolicy(ctx context.Context, arn string) (*PolicyDocument, error) {
	var row policyRow
	res := r.db.WithContext(ctx).
		Raw(`SELECT policyname, policy_document FROM audit_users_and_policies WHERE policyarn = ? ORDER BY insert_ts DESC LIMIT 1`, arn).
		Scan(&row)
	if res.Error != nil {
		return nil, domain.NewQueryError("load policy document", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrNotFound
	}
	return &PolicyDocument{Name: row.PolicyName, Document: row.PolicyDocument}, nil
}
