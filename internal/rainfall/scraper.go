// Package rainfall scrapes the IMD state-wise rainfall map page. The page
// embeds its map data as a relaxed object literal inside an inline AmCharts
// initializer script; the scraper repairs that literal into JSON and maps it
// to per-state records.
package rainfall

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"github.com/a0pawar/DCA-dashboard/pkg/models"
)

// DefaultURL is the IMD rainfall information page.
const DefaultURL = "https://mausam.imd.gov.in/responsive/rainfallinformation.php"

// DefaultTimeout bounds a single fetch including body read.
const DefaultTimeout = 20 * time.Second

// scriptMarker identifies the inline script that builds the rainfall map.
const scriptMarker = "AmCharts.makeChart"

// areasMarker opens the map-data array inside the marked script.
const areasMarker = `"areas": [`

// ScrapeError reports a failed fetch. A fetch either yields the full record
// set or fails: there are no partial results.
type ScrapeError struct {
	URL   string
	Stage string
	Err   error
}

func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rainfall scrape (%s) %s: %v", e.Stage, e.URL, e.Err)
	}
	return fmt.Sprintf("rainfall scrape (%s) %s", e.Stage, e.URL)
}

func (e *ScrapeError) Unwrap() error { return e.Err }

// Scraper fetches and parses one rainfall page per call. It holds no state
// between calls; memoization lives in the cache service.
type Scraper struct {
	baseURL string
	client  *http.Client
}

// NewScraper creates a scraper against the given page URL. Empty url means
// DefaultURL; zero timeout means DefaultTimeout.
func NewScraper(pageURL string, timeout time.Duration) *Scraper {
	if pageURL == "" {
		pageURL = DefaultURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Scraper{
		baseURL: pageURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// area is one state polygon entry in the repaired map data.
type area struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	BalloonText string `json:"balloonText"`
}

var (
	// bareKeyRe quotes relaxed object-literal keys: an identifier followed
	// immediately by a colon. The balloon labels ("Actual : ...") carry a
	// space before the colon and are left alone.
	bareKeyRe = regexp.MustCompile(`(\w+):`)

	actualRe    = regexp.MustCompile(`Actual : ([0-9]*\.?[0-9]+) mm`)
	normalRe    = regexp.MustCompile(`Normal : ([0-9]*\.?[0-9]+) mm`)
	departureRe = regexp.MustCompile(`Departure : (-?[0-9]+)%`)
)

// Fetch retrieves the rainfall page for the period and returns one record per
// state. Network failure, a missing script marker or a malformed map literal
// all fail the whole call with a *ScrapeError.
func (s *Scraper) Fetch(ctx context.Context, period models.Period) ([]models.RainfallRecord, error) {
	pageURL := s.periodURL(period)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &ScrapeError{URL: pageURL, Stage: "request", Err: err}
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; dca-dashboard/1.0)")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &ScrapeError{URL: pageURL, Stage: "fetch", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ScrapeError{URL: pageURL, Stage: "fetch", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &ScrapeError{URL: pageURL, Stage: "parse", Err: err}
	}

	script := findChartScript(doc)
	if script == "" {
		return nil, &ScrapeError{URL: pageURL, Stage: "locate", Err: fmt.Errorf("no inline script contains %q", scriptMarker)}
	}

	areas, err := extractAreas(script)
	if err != nil {
		return nil, &ScrapeError{URL: pageURL, Stage: "extract", Err: err}
	}

	var records []models.RainfallRecord
	for _, a := range areas {
		if a.ID == "" || a.ID == "null" {
			continue
		}
		records = append(records, models.RainfallRecord{
			State:        NormalizeState(a.Title),
			ActualMM:     matchFloat(actualRe, a.BalloonText),
			NormalMM:     matchFloat(normalRe, a.BalloonText),
			DeviationPct: matchInt(departureRe, a.BalloonText),
		})
	}
	return records, nil
}

// periodURL appends the single-letter period code as the page's query
// parameter.
func (s *Scraper) periodURL(period models.Period) string {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return s.baseURL
	}
	q := u.Query()
	q.Set("period", period.Code())
	u.RawQuery = q.Encode()
	return u.String()
}

// findChartScript returns the text of the first inline script holding the
// AmCharts initializer.
func findChartScript(doc *goquery.Document) string {
	var script string
	doc.Find("script").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := sel.Text()
		if strings.Contains(text, scriptMarker) {
			script = text
			return false
		}
		return true
	})
	return script
}

// extractAreas cuts the map-data array literal out of the script, repairs its
// bare keys into quoted JSON keys and unmarshals it.
func extractAreas(script string) ([]area, error) {
	start := strings.Index(script, areasMarker)
	if start < 0 {
		return nil, fmt.Errorf("script has no %q literal", areasMarker)
	}
	rest := script[start:]
	end := strings.Index(rest, "]")
	if end < 0 {
		return nil, fmt.Errorf("map-data array literal is unterminated")
	}
	literal := rest[:end+1]

	repaired := bareKeyRe.ReplaceAllString(literal, `"$1":`)
	repaired = strings.TrimPrefix(repaired, `"areas": `)

	var areas []area
	if err := json.Unmarshal([]byte(repaired), &areas); err != nil {
		return nil, fmt.Errorf("unmarshal map data: %w", err)
	}
	return areas, nil
}

// NormalizeState canonicalizes a scraped state name so it matches the
// boundary dataset's key field: trim, drop the union-territory suffix,
// title-case, and spell out the ampersand in Jammu and Kashmir.
func NormalizeState(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimSuffix(name, " (Ut)")
	name = titleCase(name)
	if strings.Contains(name, "Jammu") {
		name = strings.ReplaceAll(name, "&", "and")
	}
	return name
}

// titleCase uppercases the first letter of every alphabetic run and
// lowercases the rest, leaving punctuation untouched.
func titleCase(s string) string {
	runes := []rune(s)
	prevLetter := false
	for i, r := range runes {
		if unicode.IsLetter(r) {
			if prevLetter {
				runes[i] = unicode.ToLower(r)
			} else {
				runes[i] = unicode.ToUpper(r)
			}
			prevLetter = true
		} else {
			prevLetter = false
		}
	}
	return string(runes)
}

func matchFloat(re *regexp.Regexp, text string) *float64 {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	return &v
}

func matchInt(re *regexp.Regexp, text string) *int {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &v
}
