package rainfall

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/a0pawar/DCA-dashboard/pkg/models"
)

// chartPage mimics the IMD page: decoy scripts plus the AmCharts initializer
// holding a relaxed map-data literal with bare keys.
const chartPage = `<!DOCTYPE html>
<html><head>
<script src="/static/jquery.js"></script>
<script>var analytics = {page: "rainfall"};</script>
</head><body>
<div id="mapdiv"></div>
<script>
var map = AmCharts.makeChart("mapdiv", {
  "type": "map",
  "dataProvider": {
    "map": "indiaLow",
    "areas": [
      {id: "IN-AP", title: "ANDHRA PRADESH", balloonText: "Actual : 12.4 mm<br>Normal : 10.0 mm<br>Departure : 24%"},
      {id: "IN-JK", title: "JAMMU & KASHMIR (Ut)", balloonText: "Actual : 3.0 mm<br>Normal : 8.5 mm<br>Departure : -65%"},
      {id: "IN-LD", title: "LAKSHADWEEP", balloonText: "No data available"},
      {id: "null", title: "LEGEND", balloonText: ""},
      {id: "", title: "", balloonText: ""}
    ]
  }
});
</script>
</body></html>`

func serve(t *testing.T, handler http.HandlerFunc) *Scraper {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewScraper(srv.URL, 5*time.Second)
}

func TestFetchParsesAreas(t *testing.T) {
	var gotPeriod string
	s := serve(t, func(w http.ResponseWriter, r *http.Request) {
		gotPeriod = r.URL.Query().Get("period")
		w.Write([]byte(chartPage))
	})

	records, err := s.Fetch(context.Background(), models.PeriodWeekly)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotPeriod != "W" {
		t.Errorf("period code %q, want W", gotPeriod)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	ap := records[0]
	if ap.State != "Andhra Pradesh" {
		t.Errorf("state %q, want Andhra Pradesh", ap.State)
	}
	if ap.ActualMM == nil || *ap.ActualMM != 12.4 {
		t.Errorf("actual %v, want 12.4", ap.ActualMM)
	}
	if ap.NormalMM == nil || *ap.NormalMM != 10.0 {
		t.Errorf("normal %v, want 10.0", ap.NormalMM)
	}
	if ap.DeviationPct == nil || *ap.DeviationPct != 24 {
		t.Errorf("departure %v, want 24", ap.DeviationPct)
	}

	jk := records[1]
	if jk.State != "Jammu and Kashmir" {
		t.Errorf("state %q, want Jammu and Kashmir", jk.State)
	}
	if jk.DeviationPct == nil || *jk.DeviationPct != -65 {
		t.Errorf("departure %v, want -65", jk.DeviationPct)
	}
}

func TestFetchMissingFieldsDegradeToNil(t *testing.T) {
	s := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chartPage))
	})

	records, err := s.Fetch(context.Background(), models.PeriodDaily)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	ld := records[2]
	if ld.State != "Lakshadweep" {
		t.Fatalf("state %q, want Lakshadweep", ld.State)
	}
	if ld.ActualMM != nil || ld.NormalMM != nil || ld.DeviationPct != nil {
		t.Errorf("missing balloon fields should be nil, got %+v", ld)
	}
}

func TestFetchMissingMarkerFails(t *testing.T) {
	s := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><script>var x = 1;</script></body></html>"))
	})

	_, err := s.Fetch(context.Background(), models.PeriodMonthly)
	var se *ScrapeError
	if !errors.As(err, &se) {
		t.Fatalf("expected ScrapeError, got %v", err)
	}
	if se.Stage != "locate" {
		t.Errorf("stage %q, want locate", se.Stage)
	}
}

func TestFetchHTTPErrorFails(t *testing.T) {
	s := serve(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	})

	_, err := s.Fetch(context.Background(), models.PeriodCumulative)
	var se *ScrapeError
	if !errors.As(err, &se) {
		t.Fatalf("expected ScrapeError, got %v", err)
	}
}

func TestFetchContextCancellation(t *testing.T) {
	s := serve(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.Fetch(ctx, models.PeriodDaily)
	if err == nil {
		t.Fatal("expected an error from a cancelled fetch")
	}
}

func TestNormalizeState(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"ANDHRA PRADESH", "Andhra Pradesh"},
		{"  TAMIL NADU  ", "Tamil Nadu"},
		{"DELHI (Ut)", "Delhi"},
		{"JAMMU & KASHMIR (Ut)", "Jammu and Kashmir"},
		{"DADRA & NAGAR HAVELI", "Dadra & Nagar Haveli"},
	}
	for _, tc := range cases {
		if got := NormalizeState(tc.in); got != tc.want {
			t.Errorf("NormalizeState(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestExtractAreasMalformedLiteral(t *testing.T) {
	_, err := extractAreas(`AmCharts.makeChart("m", {"areas": [ {id: } ]});`)
	if err == nil {
		t.Fatal("expected an error for a malformed literal")
	}
}
