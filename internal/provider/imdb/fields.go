package imdb

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/John-Robertt/boxoffice/internal/domain"
)

// FieldError 标记是哪个字段抽取失败（记录整体作废）。
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field=%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

var (
	ErrRegionMissing = errors.New("页面区域缺失")
	ErrNoDollar      = errors.New("文本中没有 $ 金额")
	ErrNotNumber     = errors.New("清洗后不是纯数字")
)

var (
	intRe    = regexp.MustCompile(`^\d+$`)
	ratingRe = regexp.MustCompile(`^\d+(\.\d+)?$`)
)

// CleanContentRating：去换行，截断到第一个 '|'，去首尾空白。
// 不做取值校验：非 G/PG/PG-13/R 的文本原样保留，由 domain.RatingFlags 置零。
func CleanContentRating(subtext string) string {
	s := strings.ReplaceAll(subtext, "\n", "")
	if i := strings.Index(s, "|"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

var releaseDateRe = regexp.MustCompile(`\b(\d{1,2})[\s\x{00a0}]+(` + strings.Join(domain.Months[:], "|") + `)[\s\x{00a0}]+(\d{4})\b`)

// ReleaseMonth 从“See more release dates”文本中取上映月份。
// 先匹配结构化日期（"18 December 2009"，分隔符可以是 &nbsp;），失败再走 FirstMonthName。都没有 => ""。
func ReleaseMonth(text string) string {
	if m := releaseDateRe.FindStringSubmatch(text); m != nil {
		return m[2]
	}
	return FirstMonthName(text)
}

// FirstMonthName 按 January→December 顺序做包含判断，返回第一个命中的月份名。
// 注意是按月份顺序而不是文本位置："May ... June" => "May"，"June ... May" 也是 "May"。
func FirstMonthName(text string) string {
	for _, m := range domain.Months {
		if strings.Contains(text, m) {
			return m
		}
	}
	return ""
}

// CleanBudget：去换行；丢弃最后一个 '$' 及其之前的内容；去逗号与 "(estimated)"；解析整数。
func CleanBudget(text string) (int64, error) {
	s := strings.ReplaceAll(text, "\n", "")
	i := strings.LastIndex(s, "$")
	if i < 0 {
		return 0, ErrNoDollar
	}
	s = s[i+1:]
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(strings.ReplaceAll(s, "(estimated)", ""))
	if !intRe.MatchString(s) {
		return 0, fmt.Errorf("%w：%q", ErrNotNumber, s)
	}
	return strconv.ParseInt(s, 10, 64)
}

// CleanOpeningWeekend：去掉 "\nO" 残片后取第一行非空文本，保留最后一个 '$' 之后的数字。
// 日期等后续行被丢弃，因此 "20 December 2009" 不会混进金额。
func CleanOpeningWeekend(text string) (int64, error) {
	s := strings.ReplaceAll(text, "\nO", "")
	line := ""
	for _, l := range strings.Split(s, "\n") {
		if strings.TrimSpace(l) != "" {
			line = l
			break
		}
	}
	i := strings.LastIndex(line, "$")
	if i < 0 {
		return 0, ErrNoDollar
	}
	return DigitsInt(line[i+1:])
}

// DigitsInt 只保留 0-9 后解析整数（"$1,348,258,224" => 1348258224）。
func DigitsInt(text string) (int64, error) {
	var b strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, fmt.Errorf("没有数字：%q", strings.TrimSpace(text))
	}
	return strconv.ParseInt(b.String(), 10, 64)
}

// CleanUserRating：去换行，截断到第一个 '/'，去空白后解析浮点数（"8.4/10\n" => 8.4）。
// 只接受 "8" / "8.4" 这样的形式；符号、NaN、Inf、指数一律失败。
func CleanUserRating(text string) (float64, error) {
	s := strings.ReplaceAll(text, "\n", "")
	if i := strings.Index(s, "/"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if !ratingRe.MatchString(s) {
		return 0, fmt.Errorf("%w：%q", ErrNotNumber, s)
	}
	return strconv.ParseFloat(s, 64)
}
