package run

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/John-Robertt/boxoffice/internal/domain"
	"github.com/John-Robertt/boxoffice/internal/snapshot"
)

const detailTmpl = `<html><body>
<div class="ratingValue"><strong><span>%s</span></strong><span>/</span><span>10</span></div>
<div class="title_wrapper">
<h1>%s</h1>
<div class="subtext">
    %s
    <span class="ghost">|</span>
<time datetime="PT100M">1h 40min</time>
    <span class="ghost">|</span>
<a href="/releaseinfo" title="See more release dates">%s (USA)
</a>
</div>
</div>
<h3 class="subheading">Box Office</h3>
<div class="txt-block"><h4 class="inline">Budget:</h4>$%s
<span class="attribute">(estimated)</span></div>
<div class="txt-block"><h4 class="inline">Opening Weekend USA:</h4> $1,000,
<span class="attribute">%s</span></div>
<div class="txt-block"><h4 class="inline">Gross USA:</h4> $2,000</div>
<div class="txt-block"><h4 class="inline">Cumulative Worldwide Gross:</h4> $%s</div>
<hr/>
<h3 class="subheading">Technical Specs</h3>
<div class="txt-block"><h4 class="inline">Runtime:</h4><time datetime="PT%sM">%s min</time></div>
</body></html>`

func detailPage(title, rating, date, budget, worldwide, runtime, userRating string) string {
	return fmt.Sprintf(detailTmpl, userRating, title, rating, date, budget, date, worldwide, runtime, runtime)
}

func TestExecute_EndToEnd_RecordThenReplay(t *testing.T) {
	var hits int32
	mux := http.NewServeMux()
	mux.HandleFunc("/search/title/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.URL.Query().Get("start") != "" {
			http.Error(w, "slow down", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `<html><body>
<h3><span class="lister-item-index unbold text-primary">1.</span><a href="/title/tt1/">A</a></h3>
<h3><span class="lister-item-index unbold text-primary">2.</span><a href="/title/tt2/">B</a></h3>
<h3><span class="lister-item-index unbold text-primary">3.</span><a href="/title/tt3/">C</a></h3>
</body></html>`)
	})
	mux.HandleFunc("/title/tt1/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		fmt.Fprint(w, detailPage("Alpha (2018)", "PG-13", "4 May 2018", "63,000,000", "1,348,258,224", "149", "8.4"))
	})
	mux.HandleFunc("/title/tt2/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		// 缺少 Budget 标签 => 整条失败。
		fmt.Fprint(w, strings.Replace(detailPage("Beta (2018)", "R", "1 June 2018", "1", "2", "90", "5.0"), "Budget:", "Aspect Ratio:", 1))
	})
	mux.HandleFunc("/title/tt3/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		fmt.Fprint(w, detailPage("Gamma (2018)", "Not Rated", "TBA", "10", "30", "95", "6.1"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	eff := testConfig(t, 2018, 2018, 2)
	eff.SiteRoot = srv.URL
	eff.ArchiveDir = t.TempDir()
	eff.Timeout = 5 * time.Second

	live := Execute(context.Background(), eff, Deps{})

	s := live.Report.Summary
	if s.ListingPages != 2 || s.ListingFailed != 1 || s.Links != 3 {
		t.Fatalf("listing 统计不正确：%+v", s)
	}
	if s.Attempted != 3 || s.Succeeded != 2 || s.Failed != 1 {
		t.Fatalf("detail 统计不正确：%+v", s)
	}

	alpha := live.Records[0]
	if alpha.Title != "Alpha (2018)" || alpha.ReleaseMonth != "May" || alpha.RuntimeM != 149 {
		t.Fatalf("Alpha 记录不正确：%+v", alpha)
	}
	if alpha.Budget != 63000000 || alpha.WorldwideGross != 1348258224 || alpha.UserRating != 8.4 {
		t.Fatalf("Alpha 金额/评分不正确：%+v", alpha)
	}
	if alpha.RatingFlags != [4]int{0, 0, 1, 0} {
		t.Fatalf("Alpha 分级 flags 不正确：%v", alpha.RatingFlags)
	}
	gamma := live.Records[1]
	if gamma.ContentRating != "Not Rated" || gamma.RatingFlags != [4]int{} || gamma.ReleaseMonth != "" || gamma.MonthFlags != [12]int{} {
		t.Fatalf("Gamma 记录不正确：%+v", gamma)
	}

	liveHits := atomic.LoadInt32(&hits)
	srv.Close()

	// 回放：不访问网络，得到逐字节相同的记录。
	eff.Replay = true
	eff.OutDir = t.TempDir()
	replay := Execute(context.Background(), eff, Deps{})
	if atomic.LoadInt32(&hits) != liveHits {
		t.Fatalf("回放不应访问网络")
	}
	if diff := cmp.Diff(live.Records, replay.Records); diff != "" {
		t.Fatalf("回放记录与在线记录不一致（-live +replay）：\n%s", diff)
	}
	for i := range live.Records {
		if strings.Join(live.Records[i].Row(), ",") != strings.Join(replay.Records[i].Row(), ",") {
			t.Fatalf("第 %d 条 row 不一致", i)
		}
	}
	// 失败的榜单页没有被归档，回放时同样失败。
	if replay.Report.Summary.ListingFailed != 1 {
		t.Fatalf("回放 listing 失败数应为 1：%+v", replay.Report.Summary)
	}

	loaded, err := snapshot.Load(replay.Report.Snapshot)
	if err != nil {
		t.Fatalf("读取 snapshot 失败：%v", err)
	}
	if len(loaded) != 2 || loaded[0].Title != "Alpha (2018)" {
		t.Fatalf("snapshot 内容不正确：%+v", loaded)
	}
	for _, it := range replay.Report.Items {
		if it.Kind == domain.KindDetail && it.Status == domain.StatusFailed && it.ErrorCode != domain.ErrCodeParseFailed {
			t.Fatalf("回放中的 Beta 仍应是 parse_failed：%+v", it)
		}
	}
}
