package contentservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/sushihentaime/showcase/internal/common"
)

func newContentModel(db *sql.DB, r Resource) *ContentModel {
	return &ContentModel{db: db, r: r, q: buildQueries(r)}
}

// buildQueries renders the statements for r once. Identifiers come from the Resource definition, every value is a bind parameter.
func buildQueries(r Resource) queries {
	cols := r.columns()
	selectCols := "id, " + strings.Join(cols, ", ") + ", created_at, updated_at"

	placeholders := make([]string, len(cols))
	assignments := make([]string, len(cols))
	for i, c := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		assignments[i] = fmt.Sprintf("%s = $%d", c, i+1)
	}

	slotPredicates := make([]string, len(r.Slots))
	for i, s := range r.Slots {
		slotPredicates[i] = fmt.Sprintf("SELECT %s FROM %s WHERE %s IS NOT NULL", s, r.Table, s)
	}

	return queries{
		insert: fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES (%s)
		RETURNING id, created_at, updated_at`, r.Table, strings.Join(cols, ", "), strings.Join(placeholders, ", ")),
		selectAll: fmt.Sprintf(`
		SELECT %s
		FROM %s
		ORDER BY id DESC`, selectCols, r.Table),
		selectByID: fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1`, selectCols, r.Table),
		update: fmt.Sprintf(`
		UPDATE %s
		SET %s, updated_at = NOW()
		WHERE id = $%d
		RETURNING updated_at`, r.Table, strings.Join(assignments, ", "), len(cols)+1),
		delete: fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = $1`, r.Table),
		storedFilenames: strings.Join(slotPredicates, "\n\t\tUNION\n\t\t"),
	}
}

// args returns the column values of e in column order. Absent values become NULL.
func (m *ContentModel) args(e *Entity) []any {
	args := make([]any, 0, len(m.r.Fields)+len(m.r.Slots))
	for _, f := range m.r.Fields {
		args = append(args, nullable(e.Fields[f.Name]))
	}
	for _, s := range m.r.Slots {
		args = append(args, nullable(e.Slots[s]))
	}
	return args
}

func nullable(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

type scanner interface {
	Scan(dest ...any) error
}

func (m *ContentModel) scan(row scanner) (*Entity, error) {
	values := make([]sql.NullString, len(m.r.Fields)+len(m.r.Slots))

	dest := make([]any, 0, len(values)+3)
	e := newEntity(m.r)
	dest = append(dest, &e.ID)
	for i := range values {
		dest = append(dest, &values[i])
	}
	dest = append(dest, &e.CreatedAt, &e.UpdatedAt)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	for i, f := range m.r.Fields {
		e.Fields[f.Name] = fromNull(values[i])
	}
	for i, s := range m.r.Slots {
		e.Slots[s] = fromNull(values[len(m.r.Fields)+i])
	}

	return e, nil
}

func fromNull(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func (m *ContentModel) insert(ctx context.Context, e *Entity) error {
	err := m.db.QueryRowContext(ctx, m.q.insert, m.args(e)...).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert %s: %w", m.r.Name, err)
	}

	return nil
}

func (m *ContentModel) selectAll(ctx context.Context) ([]*Entity, error) {
	rows, err := m.db.QueryContext(ctx, m.q.selectAll)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", m.r.Name, err)
	}
	defer rows.Close()

	entities := []*Entity{}
	for rows.Next() {
		e, err := m.scan(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entities, nil
}

func (m *ContentModel) selectByID(ctx context.Context, id int) (*Entity, error) {
	e, err := m.scan(m.db.QueryRowContext(ctx, m.q.selectByID, id))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, common.ErrRecordNotFound
		default:
			return nil, fmt.Errorf("select %s %d: %w", m.r.Name, id, err)
		}
	}

	return e, nil
}

func (m *ContentModel) update(ctx context.Context, e *Entity) error {
	args := append(m.args(e), e.ID)

	err := m.db.QueryRowContext(ctx, m.q.update, args...).Scan(&e.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return common.ErrRecordNotFound
		default:
			return fmt.Errorf("update %s %d: %w", m.r.Name, e.ID, err)
		}
	}

	return nil
}

func (m *ContentModel) delete(ctx context.Context, id int) error {
	res, err := m.db.ExecContext(ctx, m.q.delete, id)
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", m.r.Name, id, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if rows != 1 {
		switch {
		case rows == 0:
			return common.ErrRecordNotFound
		default:
			return fmt.Errorf("expected 1 row to be affected, got %d", rows)
		}
	}

	return nil
}

// storedFilenames returns every filename referenced by any slot of any row.
func (m *ContentModel) storedFilenames(ctx context.Context) ([]string, error) {
	rows, err := m.db.QueryContext(ctx, m.q.storedFilenames)
	if err != nil {
		return nil, fmt.Errorf("select %s filenames: %w", m.r.Name, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return names, nil
}
