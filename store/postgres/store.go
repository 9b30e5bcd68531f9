// Package postgres implementa store.Client sobre uma tabela JSONB no Postgres.
package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"rental-backend/store"
)

//go:embed schema.sql
var schemaSQL string

const scanPageSize = 500

var tableNameRE = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool  *pgxpool.Pool
	table string
}

var _ store.Client = (*Store)(nil)

func NewStore(pool *pgxpool.Pool, table string) (*Store, error) {
	if !tableNameRE.MatchString(table) {
		return nil, fmt.Errorf("postgres: invalid table name %q", table)
	}
	return &Store{pool: pool, table: table}, nil
}

// EnsureSchema cria a tabela e os índices se não existirem.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, strings.ReplaceAll(schemaSQL, "{{table}}", s.table))
	return err
}

func (s *Store) columns() string {
	return "pk, sk, gsi1pk, gsi1sk, gsi2pk, gsi2sk, data"
}

func scanItem(row pgx.Row) (store.Item, error) {
	var it store.Item
	if err := row.Scan(&it.PK, &it.SK, &it.GSI1PK, &it.GSI1SK, &it.GSI2PK, &it.GSI2SK, &it.Data); err != nil {
		return store.Item{}, err
	}
	if it.Data == nil {
		it.Data = map[string]any{}
	}
	return it, nil
}

func collect(rows pgx.Rows, err error) ([]store.Item, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, key store.Key) (store.Item, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+s.columns()+`
		FROM `+s.table+`
		WHERE pk = $1 AND sk = $2
	`, key.PK, key.SK)
	it, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Item{}, store.ErrNotFound
	}
	return it, err
}

func (s *Store) Put(ctx context.Context, p store.Put) error {
	return s.put(ctx, s.pool, p)
}

func (s *Store) put(ctx context.Context, q querier, p store.Put) error {
	data, err := json.Marshal(nonNil(p.Item.Data))
	if err != nil {
		return fmt.Errorf("postgres: encode %s: %w", p.Item.Key(), err)
	}
	it := p.Item
	args := []any{it.PK, it.SK, it.GSI1PK, it.GSI1SK, it.GSI2PK, it.GSI2SK, string(data)}

	var sql string
	switch p.Condition {
	case store.CondNotExists:
		sql = `INSERT INTO ` + s.table + ` (` + s.columns() + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb)
			ON CONFLICT (pk, sk) DO NOTHING`
	case store.CondExists:
		sql = `UPDATE ` + s.table + `
			SET gsi1pk = $3, gsi1sk = $4, gsi2pk = $5, gsi2sk = $6, data = $7::jsonb
			WHERE pk = $1 AND sk = $2`
	default:
		sql = `INSERT INTO ` + s.table + ` (` + s.columns() + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb)
			ON CONFLICT (pk, sk) DO UPDATE
			SET gsi1pk = EXCLUDED.gsi1pk, gsi1sk = EXCLUDED.gsi1sk,
			    gsi2pk = EXCLUDED.gsi2pk, gsi2sk = EXCLUDED.gsi2sk,
			    data = EXCLUDED.data`
	}
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if p.Condition != store.CondNone && tag.RowsAffected() == 0 {
		return store.ErrConditionFailed
	}
	return nil
}

func (s *Store) Update(ctx context.Context, key store.Key, u *store.Update) (store.Item, error) {
	return s.update(ctx, s.pool, key, u)
}

// update traduz o plano para expressões jsonb aninhadas sobre a coluna data.
func (s *Store) update(ctx context.Context, q querier, key store.Key, u *store.Update) (store.Item, error) {
	if u == nil {
		u = store.NewUpdate()
	}
	plan, err := u.Plan()
	if err != nil {
		return store.Item{}, err
	}

	args := []any{key.PK, key.SK}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	expr := "data"
	for _, set := range plan.Sets {
		expr = fmt.Sprintf("jsonb_set(%s, ARRAY[%s::text], %s::jsonb, true)", expr, arg(set.Name), arg(string(set.JSON)))
	}
	for _, add := range plan.Adds {
		name := arg(add.Name)
		expr = fmt.Sprintf("jsonb_set(%s, ARRAY[%s::text], to_jsonb(COALESCE((data->>%s::text)::numeric, 0) + %s::bigint), true)",
			expr, name, name, arg(add.Delta))
	}
	for _, name := range plan.Removes {
		expr = fmt.Sprintf("(%s - %s::text)", expr, arg(name))
	}

	sets := []string{"data = " + expr}
	for _, ix := range plan.Index {
		sets = append(sets,
			fmt.Sprintf("%spk = %s", ix.Index, arg(ix.PK)),
			fmt.Sprintf("%ssk = %s", ix.Index, arg(ix.SK)),
		)
	}

	where := []string{"pk = $1", "sk = $2"}
	for _, e := range plan.Expect {
		where = append(where, fmt.Sprintf("COALESCE(data->>%s::text, '') = ANY(%s::text[])", arg(e.Name), arg(e.Values)))
	}

	row := q.QueryRow(ctx, `
		UPDATE `+s.table+`
		SET `+strings.Join(sets, ", ")+`
		WHERE `+strings.Join(where, " AND ")+`
		RETURNING `+s.columns(), args...)
	it, err := scanItem(row)
	if !errors.Is(err, pgx.ErrNoRows) {
		return it, err
	}
	if len(plan.Expect) == 0 {
		return store.Item{}, store.ErrNotFound
	}

	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM `+s.table+` WHERE pk = $1 AND sk = $2)`, key.PK, key.SK).Scan(&exists); err != nil {
		return store.Item{}, err
	}
	if exists {
		return store.Item{}, store.ErrConditionFailed
	}
	return store.Item{}, store.ErrNotFound
}

func (s *Store) Delete(ctx context.Context, key store.Key) error {
	return s.delete(ctx, s.pool, store.Delete{Key: key})
}

func (s *Store) delete(ctx context.Context, q querier, d store.Delete) error {
	tag, err := q.Exec(ctx, `DELETE FROM `+s.table+` WHERE pk = $1 AND sk = $2`, d.Key.PK, d.Key.SK)
	if err != nil {
		return err
	}
	if d.Condition == store.CondExists && tag.RowsAffected() == 0 {
		return store.ErrConditionFailed
	}
	return nil
}

func (s *Store) Query(ctx context.Context, q store.Query) ([]store.Item, error) {
	pkCol, skCol := "pk", "sk"
	if q.Index != store.IndexTable {
		pkCol, skCol = string(q.Index)+"pk", string(q.Index)+"sk"
	}
	sql := `SELECT ` + s.columns() + `
		FROM ` + s.table + `
		WHERE ` + pkCol + ` = $1 AND starts_with(` + skCol + `, $2)
		ORDER BY ` + skCol + ` ASC, pk ASC, sk ASC`
	args := []any{q.PK, q.SKPrefix}
	if q.Limit > 0 {
		sql += ` LIMIT $3`
		args = append(args, q.Limit)
	}
	return collect(s.pool.Query(ctx, sql, args...))
}

func (s *Store) BatchGet(ctx context.Context, keys []store.Key) ([]store.Item, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	pks := make([]string, len(keys))
	sks := make([]string, len(keys))
	for i, k := range keys {
		pks[i], sks[i] = k.PK, k.SK
	}
	return collect(s.pool.Query(ctx, `
		SELECT `+s.columns()+`
		FROM `+s.table+`
		WHERE (pk, sk) IN (SELECT * FROM unnest($1::text[], $2::text[]))
	`, pks, sks))
}

// Scan pagina por chave para não segurar um cursor aberto enquanto fn escreve.
func (s *Store) Scan(ctx context.Context, pkPrefix string, fn func(store.Item) error) error {
	var lastPK, lastSK string
	for {
		page, err := collect(s.pool.Query(ctx, `
			SELECT `+s.columns()+`
			FROM `+s.table+`
			WHERE starts_with(pk, $1) AND (pk, sk) > ($2, $3)
			ORDER BY pk ASC, sk ASC
			LIMIT $4
		`, pkPrefix, lastPK, lastSK, scanPageSize))
		if err != nil {
			return err
		}
		for _, it := range page {
			if err := fn(it); err != nil {
				return err
			}
		}
		if len(page) < scanPageSize {
			return nil
		}
		last := page[len(page)-1]
		lastPK, lastSK = last.PK, last.SK
	}
}

func (s *Store) Transact(ctx context.Context, ops ...store.TxOp) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	for i, op := range ops {
		var opErr error
		switch o := op.(type) {
		case store.Put:
			opErr = s.put(ctx, tx, o)
		case store.Delete:
			opErr = s.delete(ctx, tx, o)
		case store.UpdateOp:
			_, opErr = s.update(ctx, tx, o.Key, o.Update)
		default:
			opErr = fmt.Errorf("unsupported op %T", op)
		}
		if opErr != nil {
			return fmt.Errorf("%w: op %d: %w", store.ErrTxAborted, i, opErr)
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %w", store.ErrTxAborted, err)
	}
	return nil
}

func nonNil(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
