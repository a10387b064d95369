// Package sqlitestore is the durable single-box Store backend: a generic
// three-table schema (kv_hash, kv_list, kv_string) over modernc.org/sqlite,
// used when a standalone Redis isn't available but state must survive a
// restart.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"github.com/splitmind/broker/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv_hash (
	key TEXT NOT NULL,
	field TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (key, field)
);
CREATE TABLE IF NOT EXISTS kv_list (
	key TEXT NOT NULL,
	seq INTEGER NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (key, seq)
);
CREATE INDEX IF NOT EXISTS idx_kv_list_key ON kv_list(key);
CREATE TABLE IF NOT EXISTS kv_string (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	expires_at INTEGER NOT NULL DEFAULT 0
);
`

// Store is a sqlite-backed Store. The zero value is not usable; use New.
type Store struct {
	db *sql.DB
}

// New opens (creating if necessary) the sqlite database at path and ensures
// the schema exists.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite: serialize writers, per teacher's repository/sqlite convention
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

var _ store.Store = (*Store)(nil)

type transientErr struct{ err error }

func (t transientErr) Error() string   { return t.err.Error() }
func (t transientErr) Unwrap() error   { return t.err }
func (t transientErr) Transient() bool { return true }

func wrap(err error) error {
	if err == nil {
		return nil
	}
	return transientErr{err: err}
}

func (s *Store) HGet(ctx context.Context, key, field string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_hash WHERE key = ? AND field = ?`, key, field).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrap(err)
	}
	return v, true, nil
}

func (s *Store) HSet(ctx context.Context, key, field, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv_hash (key, field, value) VALUES (?, ?, ?)
		 ON CONFLICT(key, field) DO UPDATE SET value = excluded.value`,
		key, field, value)
	return wrap(err)
}

func (s *Store) HDel(ctx context.Context, key, field string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv_hash WHERE key = ? AND field = ?`, key, field)
	return wrap(err)
}

func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT field, value FROM kv_hash WHERE key = ?`, key)
	if err != nil {
		return nil, wrap(err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var f, v string
		if err := rows.Scan(&f, &v); err != nil {
			return nil, wrap(err)
		}
		out[f] = v
	}
	return out, wrap(rows.Err())
}

func (s *Store) HKeys(ctx context.Context, key string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT field FROM kv_hash WHERE key = ? ORDER BY field`, key)
	if err != nil {
		return nil, wrap(err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, wrap(err)
		}
		out = append(out, f)
	}
	return out, wrap(rows.Err())
}

func (s *Store) HExists(ctx context.Context, key, field string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM kv_hash WHERE key = ? AND field = ?`, key, field).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, wrap(err)
	}
	return true, nil
}

// listBounds returns the current [min(seq), max(seq), count] for key, so
// push/range/trim can compute contiguous sequence numbers.
func (s *Store) listBounds(ctx context.Context, tx *sql.Tx, key string) (min, max, count int, err error) {
	var minN, maxN sql.NullInt64
	if err = tx.QueryRowContext(ctx, `SELECT MIN(seq), MAX(seq) FROM kv_list WHERE key = ?`, key).Scan(&minN, &maxN); err != nil {
		return 0, 0, 0, err
	}
	if err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM kv_list WHERE key = ?`, key).Scan(&count); err != nil {
		return 0, 0, 0, err
	}
	return int(minN.Int64), int(maxN.Int64), count, nil
}

func (s *Store) RPush(ctx context.Context, key, value string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap(err)
	}
	defer tx.Rollback()
	_, max, count, err := s.listBounds(ctx, tx, key)
	if err != nil {
		return wrap(err)
	}
	next := max + 1
	if count == 0 {
		next = 0
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO kv_list (key, seq, value) VALUES (?, ?, ?)`, key, next, value); err != nil {
		return wrap(err)
	}
	return wrap(tx.Commit())
}

func (s *Store) LPush(ctx context.Context, key, value string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap(err)
	}
	defer tx.Rollback()
	min, _, count, err := s.listBounds(ctx, tx, key)
	if err != nil {
		return wrap(err)
	}
	next := min - 1
	if count == 0 {
		next = 0
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO kv_list (key, seq, value) VALUES (?, ?, ?)`, key, next, value); err != nil {
		return wrap(err)
	}
	return wrap(tx.Commit())
}

func (s *Store) allSeqValues(ctx context.Context, key string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT value FROM kv_list WHERE key = ? ORDER BY seq ASC`, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func normRange(n, start, stop int) (lo, hi int) {
	if start < 0 {
		start = n + start
	}
	if stop < 0 {
		stop = n + stop
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || n == 0 {
		return 0, 0
	}
	return start, stop + 1
}

func (s *Store) LRange(ctx context.Context, key string, start, stop int) ([]string, error) {
	all, err := s.allSeqValues(ctx, key)
	if err != nil {
		return nil, wrap(err)
	}
	lo, hi := normRange(len(all), start, stop)
	out := make([]string, hi-lo)
	copy(out, all[lo:hi])
	return out, nil
}

func (s *Store) LTrim(ctx context.Context, key string, start, stop int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap(err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT seq, value FROM kv_list WHERE key = ? ORDER BY seq ASC`, key)
	if err != nil {
		return wrap(err)
	}
	type row struct {
		seq int
		val string
	}
	var all []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.seq, &r.val); err != nil {
			rows.Close()
			return wrap(err)
		}
		all = append(all, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return wrap(err)
	}

	lo, hi := normRange(len(all), start, stop)
	if _, err := tx.ExecContext(ctx, `DELETE FROM kv_list WHERE key = ?`, key); err != nil {
		return wrap(err)
	}
	for i := lo; i < hi; i++ {
		if _, err := tx.ExecContext(ctx, `INSERT INTO kv_list (key, seq, value) VALUES (?, ?, ?)`, key, all[i].seq, all[i].val); err != nil {
			return wrap(err)
		}
	}
	return wrap(tx.Commit())
}

func (s *Store) LLen(ctx context.Context, key string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM kv_list WHERE key = ?`, key).Scan(&n)
	return n, wrap(err)
}

func (s *Store) LSet(ctx context.Context, key string, index int, value string) error {
	all, err := s.allSeqValues(ctx, key)
	if err != nil {
		return wrap(err)
	}
	if index < 0 {
		index = len(all) + index
	}
	if index < 0 || index >= len(all) {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap(err)
	}
	defer tx.Rollback()
	rows, err := tx.QueryContext(ctx, `SELECT seq FROM kv_list WHERE key = ? ORDER BY seq ASC`, key)
	if err != nil {
		return wrap(err)
	}
	var seqs []int
	for rows.Next() {
		var sq int
		if err := rows.Scan(&sq); err != nil {
			rows.Close()
			return wrap(err)
		}
		seqs = append(seqs, sq)
	}
	rows.Close()
	if _, err := tx.ExecContext(ctx, `UPDATE kv_list SET value = ? WHERE key = ? AND seq = ?`, value, key, seqs[index]); err != nil {
		return wrap(err)
	}
	return wrap(tx.Commit())
}

func (s *Store) LRemFirst(ctx context.Context, key, value string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, wrap(err)
	}
	defer tx.Rollback()
	var seq int
	err = tx.QueryRowContext(ctx, `SELECT seq FROM kv_list WHERE key = ? AND value = ? ORDER BY seq ASC LIMIT 1`, key, value).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, wrap(err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM kv_list WHERE key = ? AND seq = ?`, key, seq); err != nil {
		return false, wrap(err)
	}
	return true, wrap(tx.Commit())
}

func (s *Store) SetEX(ctx context.Context, key, value string, ttl time.Duration) error {
	var exp int64
	if ttl > 0 {
		exp = time.Now().Add(ttl).UnixNano()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv_string (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, exp)
	return wrap(err)
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	var exp int64
	err := s.db.QueryRowContext(ctx, `SELECT value, expires_at FROM kv_string WHERE key = ?`, key).Scan(&v, &exp)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrap(err)
	}
	if exp != 0 && time.Now().UnixNano() > exp {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM kv_string WHERE key = ?`, key)
		return "", false, nil
	}
	return v, true, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap(err)
	}
	defer tx.Rollback()
	for _, q := range []string{
		`DELETE FROM kv_hash WHERE key = ?`,
		`DELETE FROM kv_list WHERE key = ?`,
		`DELETE FROM kv_string WHERE key = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, key); err != nil {
			return wrap(err)
		}
	}
	return wrap(tx.Commit())
}

func (s *Store) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	like := sqliteGlobToLike(pattern)
	seen := make(map[string]struct{})
	var out []string
	for _, q := range []string{
		`SELECT DISTINCT key FROM kv_hash WHERE key GLOB ?`,
		`SELECT DISTINCT key FROM kv_list WHERE key GLOB ?`,
	} {
		rows, err := s.db.QueryContext(ctx, q, pattern)
		if err != nil {
			return nil, wrap(err)
		}
		for rows.Next() {
			var k string
			if err := rows.Scan(&k); err != nil {
				rows.Close()
				return nil, wrap(err)
			}
			if _, dup := seen[k]; !dup {
				seen[k] = struct{}{}
				out = append(out, k)
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, wrap(err)
		}
	}
	_ = like // GLOB is used directly (sqlite's pattern language matches our glob patterns already)

	now := time.Now().UnixNano()
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM kv_string WHERE key GLOB ? AND (expires_at = 0 OR expires_at > ?)`, pattern, now)
	if err != nil {
		return nil, wrap(err)
	}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			rows.Close()
			return nil, wrap(err)
		}
		if _, dup := seen[k]; !dup {
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, wrap(err)
	}

	sort.Strings(out)
	return out, nil
}

// sqliteGlobToLike is unused directly (sqlite's GLOB already speaks
// shell-style wildcards) but kept as the documented translation point
// should a backend need LIKE semantics instead.
func sqliteGlobToLike(pattern string) string {
	return pattern
}

func (s *Store) CompareAndSetHashField(ctx context.Context, key, field, newValue, expectIfPresent string, expectIfPresentOK bool) (bool, string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, "", wrap(err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT value FROM kv_hash WHERE key = ? AND field = ?`, key, field).Scan(&current)
	present := true
	if errors.Is(err, sql.ErrNoRows) {
		present = false
		err = nil
	}
	if err != nil {
		return false, "", wrap(err)
	}

	if present && expectIfPresentOK && current != expectIfPresent {
		return false, current, wrap(tx.Commit())
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO kv_hash (key, field, value) VALUES (?, ?, ?)
		 ON CONFLICT(key, field) DO UPDATE SET value = excluded.value`,
		key, field, newValue); err != nil {
		return false, "", wrap(err)
	}
	if err := tx.Commit(); err != nil {
		return false, "", wrap(err)
	}
	return true, newValue, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
