package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/majiny/eksops/internal/domain/model"
	"github.com/majiny/eksops/internal/domain/port/outbound"
)

// InvocationRepo implements outbound.InvocationRepository using SQLite.
type InvocationRepo struct {
	db *sql.DB
}

// NewInvocationRepo creates a new InvocationRepo backed by the given store.
func NewInvocationRepo(store *Store) *InvocationRepo {
	return &InvocationRepo{db: store.DB}
}

var _ outbound.InvocationRepository = (*InvocationRepo)(nil)

// Create inserts a new invocation row.
func (r *InvocationRepo) Create(ctx context.Context, rec model.InvocationRecord) error {
	const q = `INSERT INTO invocations
		(id, action, namespace, deployment, status, error_kind, duration_ms, created_at)
		VALUES (?,?,?,?,?,?,?,?)`

	_, err := r.db.ExecContext(ctx, q,
		rec.ID, rec.Action, rec.Namespace, rec.Deployment,
		rec.Status, rec.ErrorKind, rec.DurationMS, rec.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting invocation record: %w", err)
	}
	return nil
}

// allowedOrderColumns defines valid columns for ORDER BY to prevent SQL injection.
var allowedOrderColumns = map[string]bool{
	"created_at": true, "action": true, "status": true, "duration_ms": true,
}

// List returns a paginated, filtered list of invocation records.
func (r *InvocationRepo) List(ctx context.Context, filter outbound.InvocationFilter, page outbound.PageRequest) (outbound.PageResult[model.InvocationRecord], error) {
	where, args := buildInvocationWhere(filter)

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM invocations"+where, args...).Scan(&total); err != nil {
		return outbound.PageResult[model.InvocationRecord]{}, fmt.Errorf("counting invocations: %w", err)
	}

	orderCol := "created_at"
	if page.OrderBy != "" {
		if !allowedOrderColumns[page.OrderBy] {
			return outbound.PageResult[model.InvocationRecord]{}, fmt.Errorf("invalid order column: %q", page.OrderBy)
		}
		orderCol = page.OrderBy
	}
	dir := "ASC"
	if page.Desc {
		dir = "DESC"
	}
	size := page.Size
	if size <= 0 {
		size = 20
	}
	offset := page.Page * size

	dataQ := fmt.Sprintf(`SELECT id, action, namespace, deployment, status, error_kind, duration_ms, created_at
		FROM invocations%s ORDER BY %s %s LIMIT ? OFFSET ?`, where, orderCol, dir)

	rows, err := r.db.QueryContext(ctx, dataQ, append(args, size, offset)...)
	if err != nil {
		return outbound.PageResult[model.InvocationRecord]{}, fmt.Errorf("listing invocations: %w", err)
	}
	defer rows.Close()

	var items []model.InvocationRecord
	for rows.Next() {
		var rec model.InvocationRecord
		if err := rows.Scan(
			&rec.ID, &rec.Action, &rec.Namespace, &rec.Deployment,
			&rec.Status, &rec.ErrorKind, &rec.DurationMS, &rec.CreatedAt,
		); err != nil {
			return outbound.PageResult[model.InvocationRecord]{}, fmt.Errorf("scanning invocation: %w", err)
		}
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return outbound.PageResult[model.InvocationRecord]{}, fmt.Errorf("iterating invocations: %w", err)
	}

	return outbound.PageResult[model.InvocationRecord]{
		Items:      items,
		TotalCount: total,
		Page:       page.Page,
		Size:       size,
	}, nil
}

func buildInvocationWhere(f outbound.InvocationFilter) (string, []any) {
	var clauses []string
	var args []any

	if f.Action != "" {
		clauses = append(clauses, "action = ?")
		args = append(args, f.Action)
	}
	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, f.Status)
	}
	if f.ErrorKind != "" {
		clauses = append(clauses, "error_kind = ?")
		args = append(args, f.ErrorKind)
	}
	if f.Since != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, f.Since.UTC())
	}
	if f.Until != nil {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, f.Until.UTC())
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
