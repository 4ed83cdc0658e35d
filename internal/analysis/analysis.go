package analysis

import (
	"fmt"

	"github.com/John-Robertt/boxoffice/internal/domain"
)

const (
	// Seed 固定训练/测试划分，保证同一快照的分析结果可复现。
	Seed     = 10
	TestFrac = 0.2
	Folds    = 5

	TargetName = "Total Worldwide Gross Earnings"
)

// FeatureNames 是回归特征的固定顺序：预算、片长、12 个月份哑变量、4 个分级哑变量。
var FeatureNames = func() []string {
	out := []string{"Budget", "Runtime"}
	out = append(out, domain.Months[:]...)
	return append(out, "G Dummy", "PG Dummy", "PG-13 Dummy", "R Dummy")
}()

func Features(r domain.MovieRecord) []float64 {
	x := make([]float64, 0, len(FeatureNames))
	x = append(x, float64(r.Budget), float64(r.RuntimeM))
	for _, f := range r.MonthFlags {
		x = append(x, float64(f))
	}
	for _, f := range r.RatingFlags {
		x = append(x, float64(f))
	}
	return x
}

// Design 把记录转成特征矩阵与目标向量（全球总票房）。
func Design(recs []domain.MovieRecord) ([][]float64, []float64) {
	X := make([][]float64, len(recs))
	y := make([]float64, len(recs))
	for i, r := range recs {
		X[i] = Features(r)
		y[i] = float64(r.WorldwideGross)
	}
	return X, y
}

// Report 是一次分析的结果。
type Report struct {
	Rows   int
	TrainN int
	TestN  int

	Model    Model
	CVScores []float64
	CVMean   float64
	TestR2   float64
}

// Analyze：80/20 划分（种子 10）→ 训练集拟合 → 训练集 5 折 CV → 测试集 R²。
func Analyze(recs []domain.MovieRecord) (Report, error) {
	X, y := Design(recs)
	train, test := TrainTestSplit(len(recs), TestFrac, Seed)
	if len(train) < Folds || len(test) == 0 {
		return Report{}, fmt.Errorf("%w：共 %d 条记录，训练集 %d 条", ErrTooFewRows, len(recs), len(train))
	}

	trX, trY := pick(X, y, train)
	teX, teY := pick(X, y, test)

	m, err := Fit(trX, trY)
	if err != nil {
		return Report{}, err
	}
	cv, err := CrossValScore(trX, trY, Folds)
	if err != nil {
		return Report{}, err
	}
	mean := 0.0
	for _, s := range cv {
		mean += s
	}
	mean /= float64(len(cv))

	return Report{
		Rows:     len(recs),
		TrainN:   len(train),
		TestN:    len(test),
		Model:    m,
		CVScores: cv,
		CVMean:   mean,
		TestR2:   Score(m, teX, teY),
	}, nil
}

func pick(X [][]float64, y []float64, idx []int) ([][]float64, []float64) {
	px := make([][]float64, len(idx))
	py := make([]float64, len(idx))
	for i, j := range idx {
		px[i] = X[j]
		py[i] = y[j]
	}
	return px, py
}
