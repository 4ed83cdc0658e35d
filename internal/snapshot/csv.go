package snapshot

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/John-Robertt/boxoffice/internal/domain"
	"github.com/John-Robertt/boxoffice/internal/infra/fsx"
)

func writeCSV(dir, name string, recs []domain.MovieRecord) error {
	return fsx.WriteAtomicFunc(dir, name, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(domain.Columns); err != nil {
			return err
		}
		for _, r := range recs {
			if err := cw.Write(r.Row()); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

func loadCSV(path string) ([]domain.MovieRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = len(domain.Columns)

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("快照为空：%s", path)
		}
		return nil, err
	}
	for i, c := range domain.Columns {
		if header[i] != c {
			return nil, fmt.Errorf("快照列不匹配：第 %d 列期望 %q，实际 %q", i+1, c, header[i])
		}
	}

	var out []domain.MovieRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		r, err := fromRow(row)
		if err != nil {
			return nil, fmt.Errorf("%s 第 %d 行：%w", path, line, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// fromRow 是 MovieRecord.Row 的逆过程。
func fromRow(row []string) (domain.MovieRecord, error) {
	var r domain.MovieRecord
	r.Title, r.ReleaseMonth, r.ContentRating = row[0], row[1], row[2]

	ints := make([]int64, 0, 21)
	for _, s := range row[3:24] {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return domain.MovieRecord{}, err
		}
		ints = append(ints, n)
	}
	for i := range r.RatingFlags {
		r.RatingFlags[i] = int(ints[i])
	}
	for i := range r.MonthFlags {
		r.MonthFlags[i] = int(ints[4+i])
	}
	r.RuntimeM = int(ints[16])
	r.Budget = ints[17]
	r.OpeningWeekend = ints[18]
	r.DomesticGross = ints[19]
	r.WorldwideGross = ints[20]

	f, err := strconv.ParseFloat(row[24], 64)
	if err != nil {
		return domain.MovieRecord{}, err
	}
	r.UserRating = f
	return r, nil
}
