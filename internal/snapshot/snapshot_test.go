package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/boxoffice/internal/domain"
)

func sampleRecords() []domain.MovieRecord {
	a := domain.MovieRecord{
		Title:          "Avatar (2009)",
		ReleaseMonth:   "December",
		ContentRating:  "PG-13",
		RuntimeM:       162,
		Budget:         237000000,
		OpeningWeekend: 77025481,
		DomesticGross:  760507625,
		WorldwideGross: 2790439092,
		UserRating:     7.8,
	}
	a.DeriveFlags()
	b := domain.MovieRecord{
		Title:          "Up, Up and Away",
		ReleaseMonth:   "",
		ContentRating:  "Not Rated",
		RuntimeM:       96,
		Budget:         10,
		OpeningWeekend: 1,
		DomesticGross:  2,
		WorldwideGross: 3,
		UserRating:     6,
	}
	b.DeriveFlags()
	return []domain.MovieRecord{a, b}
}

func TestWriteCSV_ExactBytes(t *testing.T) {
	dir := t.TempDir()

	path, err := Write(dir, FormatCSV, sampleRecords())
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "movie_dataframe.csv"), path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)

	want := "Title,Release Month,MPAA Rating,G Dummy,PG Dummy,PG-13 Dummy,R Dummy," +
		"January,February,March,April,May,June,July,August,September,October,November,December," +
		"Runtime,Budget,Opening Weekend Box Office Earnings,Total Domestic Gross Earnings," +
		"Total Worldwide Gross Earnings,IMDb User Ratings\n" +
		"Avatar (2009),December,PG-13,0,0,1,0,0,0,0,0,0,0,0,0,0,0,0,1,162,237000000,77025481,760507625,2790439092,7.8\n" +
		"\"Up, Up and Away\",,Not Rated,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,96,10,1,2,3,6\n"
	require.Equal(t, want, string(b))
}

func TestCSV_LoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	recs := sampleRecords()

	path, err := Write(dir, FormatCSV, recs)
	require.NoError(t, err)

	got, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, recs, got)
}

func TestLoadCSV_HeaderMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "movie_dataframe.csv")
	bad := "Name,Release Month,MPAA Rating,G Dummy,PG Dummy,PG-13 Dummy,R Dummy," +
		"January,February,March,April,May,June,July,August,September,October,November,December," +
		"Runtime,Budget,Opening Weekend Box Office Earnings,Total Domestic Gross Earnings," +
		"Total Worldwide Gross Earnings,IMDb User Ratings\n"
	require.NoError(t, os.WriteFile(path, []byte(bad), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestSQLite_WriteAndLoad(t *testing.T) {
	dir := t.TempDir()
	recs := sampleRecords()

	path, err := Write(dir, FormatSQLite, recs)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "movie_dataframe.db"), path)

	got, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, recs, got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "临时库应已清理")
}

func TestSQLite_EmptySnapshot(t *testing.T) {
	dir := t.TempDir()

	path, err := Write(dir, FormatSQLite, nil)
	require.NoError(t, err)

	got, err := Load(path)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestFileName_UnknownFormat(t *testing.T) {
	_, err := FileName("parquet")
	require.Error(t, err)

	_, err = Write(t.TempDir(), "parquet", nil)
	require.Error(t, err)
}
