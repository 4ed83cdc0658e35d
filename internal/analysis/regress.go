package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// rcond 是相对奇异值阈值：低于 rcond*σmax 的方向视为共线，取最小范数解。
const rcond = 1e-10

var ErrTooFewRows = errors.New("样本数不足")

// Model 是带截距的线性模型：y = Intercept + Σ Coef[j]*x[j]。
type Model struct {
	Intercept float64
	Coef      []float64
}

// Fit 用 SVD 求最小二乘的最小范数解。
// one-hot 分组与截距列共线时不会失败：共线方向的系数为 0。
func Fit(X [][]float64, y []float64) (Model, error) {
	n := len(X)
	if n == 0 || n != len(y) {
		return Model{}, fmt.Errorf("%w：X=%d y=%d", ErrTooFewRows, n, len(y))
	}
	p := len(X[0])

	// 列按最大绝对值缩放，避免预算（1e8 量级）淹没 0/1 哑变量的奇异值。
	scale := make([]float64, p+1)
	scale[0] = 1
	for j := 0; j < p; j++ {
		m := 0.0
		for i := range X {
			m = math.Max(m, math.Abs(X[i][j]))
		}
		if m == 0 {
			m = 1
		}
		scale[j+1] = m
	}

	a := mat.NewDense(n, p+1, nil)
	for i, row := range X {
		if len(row) != p {
			return Model{}, fmt.Errorf("第 %d 行特征数 %d，期望 %d", i, len(row), p)
		}
		a.Set(i, 0, 1)
		for j, v := range row {
			a.Set(i, j+1, v/scale[j+1])
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return Model{}, errors.New("SVD 分解失败")
	}
	rank := svd.Rank(rcond)
	if rank == 0 {
		return Model{}, errors.New("设计矩阵秩为 0")
	}

	var beta mat.VecDense
	svd.SolveVecTo(&beta, mat.NewVecDense(n, append([]float64(nil), y...)), rank)

	m := Model{Intercept: beta.AtVec(0), Coef: make([]float64, p)}
	for j := 0; j < p; j++ {
		m.Coef[j] = beta.AtVec(j+1) / scale[j+1]
	}
	return m, nil
}

func (m Model) Predict(x []float64) float64 {
	v := m.Intercept
	for j, c := range m.Coef {
		v += c * x[j]
	}
	return v
}

// Score 返回决定系数 R²。y 为常数时：完美预测 => 1，否则 0。
func Score(m Model, X [][]float64, y []float64) float64 {
	if len(y) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range y {
		mean += v
	}
	mean /= float64(len(y))

	var ssRes, ssTot float64
	for i, row := range X {
		d := y[i] - m.Predict(row)
		ssRes += d * d
		t := y[i] - mean
		ssTot += t * t
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}

// TrainTestSplit 用固定种子打乱下标，前 ceil(testFrac*n) 个作为测试集。
func TrainTestSplit(n int, testFrac float64, seed int64) (train, test []int) {
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	nTest := int(math.Ceil(testFrac * float64(n)))
	if nTest > n {
		nTest = n
	}
	return perm[nTest:], perm[:nTest]
}

// CrossValScore 做 k 折连续切分（不打乱）的交叉验证，返回每折在验证折上的 R²。
// 前 n%k 折各多 1 个样本。
func CrossValScore(X [][]float64, y []float64, k int) ([]float64, error) {
	n := len(X)
	if k < 2 || n < k {
		return nil, fmt.Errorf("%w：%d 个样本无法做 %d 折交叉验证", ErrTooFewRows, n, k)
	}

	scores := make([]float64, 0, k)
	start := 0
	for f := 0; f < k; f++ {
		size := n / k
		if f < n%k {
			size++
		}
		end := start + size

		trX := make([][]float64, 0, n-size)
		trY := make([]float64, 0, n-size)
		trX = append(trX, X[:start]...)
		trX = append(trX, X[end:]...)
		trY = append(trY, y[:start]...)
		trY = append(trY, y[end:]...)

		m, err := Fit(trX, trY)
		if err != nil {
			return nil, fmt.Errorf("第 %d 折：%w", f+1, err)
		}
		scores = append(scores, Score(m, X[start:end], y[start:end]))
		start = end
	}
	return scores, nil
}
