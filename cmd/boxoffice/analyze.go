package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/John-Robertt/boxoffice/internal/analysis"
	"github.com/John-Robertt/boxoffice/internal/config"
	"github.com/John-Robertt/boxoffice/internal/snapshot"
)

type analyzeArgs struct {
	ConfigPath string
	Snapshot   string
	OutDir     string
	NoPlots    bool
}

func newAnalyzeCmd(stdout, stderr io.Writer) *cobra.Command {
	var aa analyzeArgs

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "读取快照，拟合全球票房的线性回归并输出图表",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnalyze(aa, cmd.Flags().Changed("out"), stdout, stderr)
		},
	}

	f := cmd.Flags()
	f.StringVar(&aa.ConfigPath, "config", "", "配置文件路径（用于确定默认输出目录与快照格式）")
	f.StringVar(&aa.Snapshot, "snapshot", "", "快照文件（.csv 或 .db）；默认取输出目录下的 movie_dataframe")
	f.StringVar(&aa.OutDir, "out", "", "图表输出目录")
	f.BoolVar(&aa.NoPlots, "no-plots", false, "不生成图表")
	return cmd
}

func runAnalyze(aa analyzeArgs, outSet bool, stdout, stderr io.Writer) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fail(1, fmt.Errorf("读取当前目录失败：%w", err))
	}
	eff, err := config.LoadEffective(cwd, config.CLIArgs{
		ConfigPath: aa.ConfigPath,
		OutDir:     aa.OutDir,
		OutDirSet:  outSet,
	})
	if err != nil {
		return fail(1, err)
	}
	setupLogger(stderr, eff.LogLevel)

	path := aa.Snapshot
	if path == "" {
		name, err := snapshot.FileName(eff.Format)
		if err != nil {
			return fail(1, err)
		}
		path = filepath.Join(eff.OutDir, name)
	} else if !filepath.IsAbs(path) {
		path = filepath.Join(cwd, path)
	}

	recs, err := snapshot.Load(path)
	if err != nil {
		return fail(1, fmt.Errorf("读取快照失败：%w", err))
	}
	rep, err := analysis.Analyze(recs)
	if err != nil {
		return fail(1, fmt.Errorf("回归分析失败：%w", err))
	}
	renderAnalysis(stdout, rep)

	if aa.NoPlots {
		return nil
	}
	files, err := analysis.WritePlots(eff.OutDir, recs)
	if err != nil {
		return fail(1, fmt.Errorf("生成图表失败：%w", err))
	}
	for _, p := range files {
		fmt.Fprintf(stderr, "plot: %s\n", p)
	}
	return nil
}

func renderAnalysis(w io.Writer, rep analysis.Report) {
	fmt.Fprintf(w, "样本: rows=%d train=%d test=%d  目标: %s\n", rep.Rows, rep.TrainN, rep.TestN, analysis.TargetName)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"特征", "系数"})
	t.AppendRow(table.Row{"(intercept)", fmt.Sprintf("%.6g", rep.Model.Intercept)})
	for i, name := range analysis.FeatureNames {
		t.AppendRow(table.Row{name, fmt.Sprintf("%.6g", rep.Model.Coef[i])})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()

	s := table.NewWriter()
	s.SetOutputMirror(w)
	s.AppendHeader(table.Row{"指标", "R²"})
	for i, v := range rep.CVScores {
		s.AppendRow(table.Row{fmt.Sprintf("cv fold %d", i+1), fmt.Sprintf("%.4f", v)})
	}
	s.AppendRow(table.Row{"cv mean", fmt.Sprintf("%.4f", rep.CVMean)})
	s.AppendRow(table.Row{"test", fmt.Sprintf("%.4f", rep.TestR2)})
	s.SetStyle(table.StyleRounded)
	s.Render()
}
