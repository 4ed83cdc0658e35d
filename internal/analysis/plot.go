package analysis

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/John-Robertt/boxoffice/internal/domain"
	"github.com/John-Robertt/boxoffice/internal/infra/fsx"
)

const (
	ScatterFile = "budget_worldwide_gross_scatterplot.png"
	LinRegFile  = "budget_worldwide_gross_linreg.png"
)

// RatingPlots 是按分级拆分的拟合图（文件名固定）。
var RatingPlots = []struct {
	Rating string
	File   string
}{
	{domain.RatingG, "earnings_g.png"},
	{domain.RatingPG, "earnings_pg.png"},
	{domain.RatingPG13, "earnings_pg13.png"},
	{domain.RatingR, "earnings_r.png"},
}

// WritePlots 在 dir 下写出全部 PNG，返回实际写出的路径。
// 某个分级没有任何记录时跳过该图（记 warn），不算错误。
func WritePlots(dir string, recs []domain.MovieRecord) ([]string, error) {
	var written []string

	if len(recs) == 0 {
		slog.Warn("no records, skipping plots")
		return nil, nil
	}

	if err := savePlot(dir, ScatterFile, "Budget vs Worldwide Gross", recs, false); err != nil {
		return written, err
	}
	written = append(written, filepath.Join(dir, ScatterFile))

	if err := savePlot(dir, LinRegFile, "Budget vs Worldwide Gross (fit)", recs, true); err != nil {
		return written, err
	}
	written = append(written, filepath.Join(dir, LinRegFile))

	for _, rp := range RatingPlots {
		subset := filterRating(recs, rp.Rating)
		if len(subset) == 0 {
			slog.Warn("no records for rating, skipping plot", "rating", rp.Rating, "file", rp.File)
			continue
		}
		if err := savePlot(dir, rp.File, rp.Rating+": Budget vs Worldwide Gross", subset, true); err != nil {
			return written, err
		}
		written = append(written, filepath.Join(dir, rp.File))
	}
	return written, nil
}

func filterRating(recs []domain.MovieRecord, rating string) []domain.MovieRecord {
	var out []domain.MovieRecord
	for _, r := range recs {
		if r.ContentRating == rating {
			out = append(out, r)
		}
	}
	return out
}

func savePlot(dir, name, title string, recs []domain.MovieRecord, fit bool) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Budget"
	p.Y.Label.Text = TargetName

	xs := make([]float64, len(recs))
	ys := make([]float64, len(recs))
	xys := make(plotter.XYs, len(recs))
	for i, r := range recs {
		xs[i] = float64(r.Budget)
		ys[i] = float64(r.WorldwideGross)
		xys[i].X, xys[i].Y = xs[i], ys[i]
	}

	sc, err := plotter.NewScatter(xys)
	if err != nil {
		return fmt.Errorf("%s：%w", name, err)
	}
	p.Add(sc)

	// 拟合线至少需要两个不同的预算值。
	if fit && distinct(xs) >= 2 {
		alpha, beta := stat.LinearRegression(xs, ys, nil, false)
		line := plotter.NewFunction(func(x float64) float64 { return alpha + beta*x })
		line.Width = vg.Points(1.5)
		p.Add(line)
	}

	wt, err := p.WriterTo(6*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("%s：%w", name, err)
	}
	return fsx.WriteAtomicFunc(dir, name, func(w io.Writer) error {
		_, err := wt.WriteTo(w)
		return err
	})
}

func distinct(xs []float64) int {
	seen := make(map[float64]struct{}, len(xs))
	for _, x := range xs {
		seen[x] = struct{}{}
	}
	return len(seen)
}
