package snapshot

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/John-Robertt/boxoffice/internal/domain"
	"github.com/John-Robertt/boxoffice/internal/infra/fsx"
)

//go:embed schema.sql
var schema string

func quotedColumns() string {
	cols := make([]string, len(domain.Columns))
	for i, c := range domain.Columns {
		cols[i] = `"` + c + `"`
	}
	return strings.Join(cols, ", ")
}

// writeSQLite 先写同目录临时库，完整提交后再 rename 到位。
func writeSQLite(dir, name string, recs []domain.MovieRecord) (err error) {
	tmp, err := fsx.TempPath(dir, name)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	db, err := sql.Open("sqlite", tmp)
	if err != nil {
		return err
	}
	if err := fillSQLite(db, recs); err != nil {
		_ = db.Close()
		return err
	}
	if err := db.Close(); err != nil {
		return err
	}
	return fsx.Commit(tmp, dir, name)
}

func fillSQLite(db *sql.DB, recs []domain.MovieRecord) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("建表失败：%w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(domain.Columns)), ", ")
	stmt, err := tx.Prepare("INSERT INTO movies (" + quotedColumns() + ") VALUES (" + placeholders + ")")
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, r := range recs {
		if _, err := stmt.Exec(values(r)...); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func values(r domain.MovieRecord) []any {
	v := make([]any, 0, len(domain.Columns))
	v = append(v, r.Title, r.ReleaseMonth, r.ContentRating)
	for _, f := range r.RatingFlags {
		v = append(v, f)
	}
	for _, f := range r.MonthFlags {
		v = append(v, f)
	}
	return append(v, r.RuntimeM, r.Budget, r.OpeningWeekend, r.DomesticGross, r.WorldwideGross, r.UserRating)
}

func loadSQLite(path string) ([]domain.MovieRecord, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query("SELECT " + quotedColumns() + " FROM movies ORDER BY rowid")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.MovieRecord
	for rows.Next() {
		var r domain.MovieRecord
		dst := []any{&r.Title, &r.ReleaseMonth, &r.ContentRating}
		for i := range r.RatingFlags {
			dst = append(dst, &r.RatingFlags[i])
		}
		for i := range r.MonthFlags {
			dst = append(dst, &r.MonthFlags[i])
		}
		dst = append(dst, &r.RuntimeM, &r.Budget, &r.OpeningWeekend, &r.DomesticGross, &r.WorldwideGross, &r.UserRating)
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
