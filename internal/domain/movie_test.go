package domain

import (
	"reflect"
	"strings"
	"testing"
)

func TestRatingFlags_OneHotOrZero(t *testing.T) {
	cases := map[string][4]int{
		"G":         {1, 0, 0, 0},
		"PG":        {0, 1, 0, 0},
		"PG-13":     {0, 0, 1, 0},
		"R":         {0, 0, 0, 1},
		"Not Rated": {0, 0, 0, 0},
		"":          {0, 0, 0, 0},
		"pg-13":     {0, 0, 0, 0},
	}
	for in, want := range cases {
		got := RatingFlags(in)
		if got != want {
			t.Fatalf("RatingFlags(%q)=%v，期望 %v", in, got, want)
		}
		sum := 0
		for _, f := range got {
			sum += f
		}
		if sum > 1 {
			t.Fatalf("RatingFlags(%q) 不止一个 flag：%v", in, got)
		}
	}
}

func TestMonthFlags(t *testing.T) {
	got := MonthFlags("May")
	if got[4] != 1 {
		t.Fatalf("期望 May 对应下标 4：%v", got)
	}
	for i, f := range got {
		if i != 4 && f != 0 {
			t.Fatalf("除 May 外不应有 flag：%v", got)
		}
	}
	if MonthFlags("") != [12]int{} {
		t.Fatalf("空月份应全 0")
	}
	if MonthFlags("Smarch") != [12]int{} {
		t.Fatalf("未知月份应全 0")
	}
}

func TestMovieRecord_RowOrderAndDeterminism(t *testing.T) {
	r := MovieRecord{
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
	r.DeriveFlags()

	row := r.Row()
	if len(row) != len(Columns) {
		t.Fatalf("列数不一致：row=%d columns=%d", len(row), len(Columns))
	}
	want := "Avatar (2009),December,PG-13,0,0,1,0,0,0,0,0,0,0,0,0,0,0,0,1,162,237000000,77025481,760507625,2790439092,7.8"
	if got := strings.Join(row, ","); got != want {
		t.Fatalf("row 不符合预期：\n got=%s\nwant=%s", got, want)
	}
	if !reflect.DeepEqual(row, r.Row()) {
		t.Fatalf("同一记录两次 Row 输出不一致")
	}
}

func TestDefaultListings_OrderAndOffsets(t *testing.T) {
	refs := DefaultListings(2009, 2018, 2)
	if len(refs) != 20 {
		t.Fatalf("期望 20 个榜单页，实际 %d", len(refs))
	}
	if refs[0] != (ListingPageRef{Year: 2018, Start: 1}) || refs[1] != (ListingPageRef{Year: 2018, Start: 51}) {
		t.Fatalf("首年顺序不正确：%+v", refs[:2])
	}
	if refs[19] != (ListingPageRef{Year: 2009, Start: 51}) {
		t.Fatalf("末尾不正确：%+v", refs[19])
	}
	if DefaultListings(2018, 2009, 2) != nil {
		t.Fatalf("年份倒置时应返回 nil")
	}
}
