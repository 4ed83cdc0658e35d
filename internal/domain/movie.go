package domain

import (
	"strconv"
)

// 内容分级（MPAA）。只有这四种会被 one-hot 编码；其它原始文本照样保留在 ContentRating 中。
const (
	RatingG    = "G"
	RatingPG   = "PG"
	RatingPG13 = "PG-13"
	RatingR    = "R"
)

// Ratings 是 RatingFlags 的固定顺序。
var Ratings = [4]string{RatingG, RatingPG, RatingPG13, RatingR}

// Months 是 MonthFlags 的固定顺序（January→December）。
var Months = [12]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// MovieRecord 是一条完整的抽取结果（snapshot 的一行）。
//
// 不变量：
// - 所有数值字段都来自清洗后的纯数字文本；任何字段失败 => 整条记录丢弃，绝不部分填充
// - RatingFlags/MonthFlags 由 ContentRating/ReleaseMonth 推导，最多一个为 1
type MovieRecord struct {
	Title         string  `json:"title"`
	ReleaseMonth  string  `json:"release_month"` // "" 表示未识别
	ContentRating string  `json:"content_rating"`
	RatingFlags   [4]int  `json:"rating_flags"`
	MonthFlags    [12]int `json:"month_flags"`

	RuntimeM       int   `json:"runtime_m"`
	Budget         int64 `json:"budget"`
	OpeningWeekend int64 `json:"opening_weekend"`
	DomesticGross  int64 `json:"domestic_gross"`
	WorldwideGross int64 `json:"worldwide_gross"`

	UserRating float64 `json:"user_rating"`
}

// RatingFlags 返回 {G, PG, PG-13, R} 的 one-hot 编码；无法识别时全 0。
func RatingFlags(rating string) [4]int {
	var out [4]int
	for i, r := range Ratings {
		if rating == r {
			out[i] = 1
			break
		}
	}
	return out
}

// MonthFlags 返回十二个月的 one-hot 编码；month 为空或无法识别时全 0。
func MonthFlags(month string) [12]int {
	var out [12]int
	for i, m := range Months {
		if month == m {
			out[i] = 1
			break
		}
	}
	return out
}

// DeriveFlags 根据 ContentRating/ReleaseMonth 重新计算两组 flag。
func (r *MovieRecord) DeriveFlags() {
	r.RatingFlags = RatingFlags(r.ContentRating)
	r.MonthFlags = MonthFlags(r.ReleaseMonth)
}

// Columns 是 snapshot 的固定列顺序（下游分析按列名读取）。
var Columns = []string{
	"Title", "Release Month", "MPAA Rating",
	"G Dummy", "PG Dummy", "PG-13 Dummy", "R Dummy",
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
	"Runtime", "Budget",
	"Opening Weekend Box Office Earnings",
	"Total Domestic Gross Earnings",
	"Total Worldwide Gross Earnings",
	"IMDb User Ratings",
}

// Row 按 Columns 顺序输出一行文本。相同记录 => 相同字节。
func (r MovieRecord) Row() []string {
	row := make([]string, 0, len(Columns))
	row = append(row, r.Title, r.ReleaseMonth, r.ContentRating)
	for _, f := range r.RatingFlags {
		row = append(row, strconv.Itoa(f))
	}
	for _, f := range r.MonthFlags {
		row = append(row, strconv.Itoa(f))
	}
	row = append(row,
		strconv.Itoa(r.RuntimeM),
		strconv.FormatInt(r.Budget, 10),
		strconv.FormatInt(r.OpeningWeekend, 10),
		strconv.FormatInt(r.DomesticGross, 10),
		strconv.FormatInt(r.WorldwideGross, 10),
		strconv.FormatFloat(r.UserRating, 'f', -1, 64),
	)
	return row
}
