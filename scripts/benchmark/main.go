package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// CLI flags
var (
	apiURL = flag.String("api-url", "http://localhost:8080", "Jangter API base URL")
	apiKey = flag.String("api-key", "", "API key for authenticated requests")
	runs   = flag.Int("runs", 3, "Number of runs per query for averaging")
	limit  = flag.Int("limit", 20, "Result limit per search")
	output = flag.String("output", "benchmark-results.json", "JSON output file path")
)

// Test queries covering common second-hand categories. The first run per
// query forces a refresh so the cold path gets measured; later runs show
// the cached path.
var testQueries = []struct {
	Label string
	Query string
}{
	{"Phone", "아이폰 15 프로"},
	{"Laptop", "맥북 프로 M3"},
	{"Appliance", "다이슨 청소기"},
	{"Bike", "로드 자전거"},
	{"Rare", "빈티지 필름카메라"},
}

// --- Request / Response types (mirrors models package) ---

type searchRequest struct {
	Query        string `json:"query"`
	Limit        int    `json:"limit"`
	ForceRefresh bool   `json:"forceRefresh"`
}

type searchResponse struct {
	Success         bool         `json:"success"`
	Products        []product    `json:"products"`
	Count           int          `json:"count"`
	ExecutionTimeMs int64        `json:"executionTimeMs"`
	Error           *errorDetail `json:"error,omitempty"`
}

type product struct {
	Price  int    `json:"price"`
	Source string `json:"source"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// --- Benchmark result types ---

type runResult struct {
	Run             int            `json:"run"`
	Cold            bool           `json:"cold"`
	ExecutionTimeMs int64          `json:"execution_time_ms"`
	Count           int            `json:"count"`
	PerSource       map[string]int `json:"per_source,omitempty"`
	PriceKnown      int            `json:"price_known"`
	Success         bool           `json:"success"`
	Error           string         `json:"error,omitempty"`
}

type queryAverages struct {
	ColdMs   float64 `json:"cold_ms"`
	CachedMs float64 `json:"cached_ms"`
	Count    float64 `json:"count"`
}

type queryResult struct {
	Query    string         `json:"query"`
	Label    string         `json:"label"`
	Runs     []runResult    `json:"runs"`
	Averages *queryAverages `json:"averages,omitempty"`
}

type benchmarkReport struct {
	Timestamp    string        `json:"timestamp"`
	APIURL       string        `json:"api_url"`
	RunsPerQuery int           `json:"runs_per_query"`
	Results      []queryResult `json:"results"`
}

func main() {
	flag.Parse()

	fmt.Println("=== Jangter Benchmark Suite ===")
	fmt.Printf("API URL:    %s\n", *apiURL)
	fmt.Printf("Runs/query: %d\n", *runs)
	fmt.Printf("Output:     %s\n", *output)
	fmt.Println()

	// Quick connectivity check.
	if err := checkAPI(*apiURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		fmt.Fprintf(os.Stderr, "Make sure jangter is running (e.g. make run)\n")
		os.Exit(1)
	}

	report := benchmarkReport{
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		APIURL:       *apiURL,
		RunsPerQuery: *runs,
	}

	for _, q := range testQueries {
		fmt.Printf("Benchmarking [%s] %q ...\n", q.Label, q.Query)
		qr := queryResult{Query: q.Query, Label: q.Label}

		for i := 1; i <= *runs; i++ {
			cold := i == 1
			fmt.Printf("  Run %d/%d (%s) ... ", i, *runs, coldLabel(cold))
			rr := benchmarkQuery(q.Query, i, cold)
			if rr.Success {
				fmt.Printf("OK  %dms  %d results\n", rr.ExecutionTimeMs, rr.Count)
			} else {
				fmt.Printf("FAILED: %s\n", rr.Error)
			}
			qr.Runs = append(qr.Runs, rr)
		}

		qr.Averages = computeAverages(qr.Runs)
		report.Results = append(report.Results, qr)
		fmt.Println()
	}

	// Print summary table.
	printTable(report.Results)

	// Write JSON report.
	if err := writeJSON(*output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

func coldLabel(cold bool) string {
	if cold {
		return "cold"
	}
	return "cached"
}

func checkAPI(baseURL string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(baseURL + "/api/v1/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func benchmarkQuery(query string, run int, cold bool) runResult {
	rr := runResult{Run: run, Cold: cold}

	reqBody := searchRequest{
		Query:        query,
		Limit:        *limit,
		ForceRefresh: cold,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		rr.Error = fmt.Sprintf("marshal error: %v", err)
		return rr
	}

	req, err := http.NewRequest("POST", *apiURL+"/api/v1/search", bytes.NewReader(bodyBytes))
	if err != nil {
		rr.Error = fmt.Sprintf("request error: %v", err)
		return rr
	}
	req.Header.Set("Content-Type", "application/json")
	if *apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+*apiKey)
	}

	client := &http.Client{Timeout: 90 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		rr.Error = fmt.Sprintf("request failed: %v", err)
		return rr
	}
	defer resp.Body.Close()

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		rr.Error = fmt.Sprintf("decode error: %v", err)
		return rr
	}

	rr.Success = sr.Success
	rr.ExecutionTimeMs = sr.ExecutionTimeMs
	rr.Count = sr.Count
	rr.PerSource = map[string]int{}
	for _, p := range sr.Products {
		rr.PerSource[p.Source]++
		if p.Price > 0 {
			rr.PriceKnown++
		}
	}

	if sr.Error != nil {
		rr.Error = sr.Error.Message
	}

	return rr
}

func computeAverages(runs []runResult) *queryAverages {
	var coldCount, cachedCount, successCount int
	var avg queryAverages

	for _, r := range runs {
		if !r.Success {
			continue
		}
		successCount++
		avg.Count += float64(r.Count)
		if r.Cold {
			coldCount++
			avg.ColdMs += float64(r.ExecutionTimeMs)
		} else {
			cachedCount++
			avg.CachedMs += float64(r.ExecutionTimeMs)
		}
	}

	if successCount == 0 {
		return nil
	}

	if coldCount > 0 {
		avg.ColdMs /= float64(coldCount)
	}
	if cachedCount > 0 {
		avg.CachedMs /= float64(cachedCount)
	}
	avg.Count /= float64(successCount)
	return &avg
}

func printTable(results []queryResult) {
	fmt.Println(strings.Repeat("─", 80))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Query\tCold\tCached\tAvg Results\n")
	fmt.Fprintf(w, "─────\t────\t──────\t───────────\n")

	for _, r := range results {
		if r.Averages == nil {
			fmt.Fprintf(w, "%s\tFAILED\t-\t-\n", truncateQuery(r.Query, 30))
			continue
		}

		fmt.Fprintf(w, "%s\t%dms\t%dms\t%.1f\n",
			truncateQuery(r.Query, 30),
			int64(r.Averages.ColdMs),
			int64(r.Averages.CachedMs),
			r.Averages.Count,
		)
	}

	w.Flush()
	fmt.Println(strings.Repeat("─", 80))
}

func truncateQuery(q string, max int) string {
	runes := []rune(q)
	if len(runes) <= max {
		return q
	}
	return string(runes[:max-1]) + "…"
}

func writeJSON(path string, report benchmarkReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
