package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/John-Robertt/boxoffice/internal/app/run"
	"github.com/John-Robertt/boxoffice/internal/config"
	"github.com/John-Robertt/boxoffice/internal/domain"
)

func newScrapeCmd(stdout, stderr io.Writer) *cobra.Command {
	var cli config.CLIArgs

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "按年份抓取榜单页与详情页，写出 movie_dataframe 快照和 report.json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := cmd.Flags()
			cli.OutDirSet = f.Changed("out")
			cli.FormatSet = f.Changed("format")
			cli.ArchiveDirSet = f.Changed("archive")
			return runScrape(cmd, cli, stdout, stderr)
		},
	}

	f := cmd.Flags()
	f.StringVar(&cli.ConfigPath, "config", "", "配置文件路径（默认 ./"+config.DefaultFileName+"，不存在则忽略）")
	f.StringVar(&cli.OutDir, "out", "", "输出目录（snapshot 与 report.json）")
	f.StringVar(&cli.Format, "format", "", "快照格式：csv|sqlite")
	f.StringVar(&cli.ArchiveDir, "archive", "", "页面归档目录：抓取时录制原始 HTML")
	f.BoolVar(&cli.Replay, "replay", false, "只从归档目录回放，不访问网络")
	f.BoolVarP(&cli.Verbose, "verbose", "v", false, "输出 debug 日志")
	return cmd
}

func runScrape(cmd *cobra.Command, cli config.CLIArgs, stdout, stderr io.Writer) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fail(1, fmt.Errorf("读取当前目录失败：%w", err))
	}

	eff, err := config.LoadEffective(cwd, cli)
	if err != nil {
		setupLogger(stderr, config.DefaultLogLevel)
		emitReport(stdout, stderr, reportForConfigError(err))
		return fail(1, nil)
	}
	setupLogger(stderr, eff.LogLevel)

	prog := newProgressUI(stderr)
	res := run.ExecuteWithObserver(cmd.Context(), eff, run.Deps{}, prog)
	rr := res.Report

	if err := writeReportFile(eff.OutDir, rr); err != nil {
		emitReport(stdout, stderr, rr)
		return fail(1, fmt.Errorf("写入 %s 失败：%w", reportFileName, err))
	}

	emitReport(stdout, stderr, rr)
	emitLocations(stderr, eff, rr)
	if rr.HasFailures() {
		return fail(1, nil)
	}
	return nil
}

// emitReport：stdout 是终端时打印汇总表；否则 stdout 只输出一个 RunReport JSON。
func emitReport(stdout, stderr io.Writer, rr domain.RunReport) {
	s := rr.Summary
	if !isTTY(stdout) {
		enc := json.NewEncoder(stdout)
		_ = enc.Encode(rr)
		fmt.Fprintf(stderr, "完成：listing=%d/%d links=%d succeeded=%d failed=%d\n",
			s.ListingPages-s.ListingFailed, s.ListingPages, s.Links, s.Succeeded, s.Failed,
		)
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(stdout)
	t.AppendHeader(table.Row{"榜单页", "失败页", "链接", "尝试", "成功", "失败"})
	t.AppendRow(table.Row{s.ListingPages, s.ListingFailed, s.Links, s.Attempted, s.Succeeded, s.Failed})
	t.SetStyle(table.StyleRounded)
	t.Render()

	for _, it := range rr.Items {
		if it.Status != domain.StatusFailed {
			continue
		}
		key := it.URL
		if key == "" {
			key = "<" + it.Kind + ">"
		}
		fmt.Fprintf(stderr, "%s %s: %s\n", key, it.ErrorCode, it.ErrorMsg)
	}
}

func reportForConfigError(err error) domain.RunReport {
	now := time.Now().UTC()
	rr := domain.RunReport{
		StartedAt:  now,
		FinishedAt: now,
		Items: []domain.ItemResult{{
			Kind:      domain.KindSetup,
			Status:    domain.StatusFailed,
			ErrorCode: config.Code(err),
			ErrorMsg:  err.Error(),
		}},
	}
	rr.Finalize()
	return rr
}

func emitLocations(w io.Writer, eff config.EffectiveConfig, rr domain.RunReport) {
	if rr.Snapshot != "" {
		fmt.Fprintf(w, "snapshot: %s\n", rr.Snapshot)
	}
	fmt.Fprintf(w, "report: %s\n", filepath.Join(eff.OutDir, reportFileName))
}
