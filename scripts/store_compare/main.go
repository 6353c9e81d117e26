// Command store_compare replays read-only API calls against two deployments
// (typically the in-memory store and the PostgreSQL store) and reports diverging responses.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"
)

type target struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	Critical bool   `json:"critical"`
}

type config struct {
	Targets []target `json:"targets"`
}

var defaultTargets = []target{
	{Method: http.MethodGet, Path: "/api/law-amendments", Critical: true},
	{Method: http.MethodGet, Path: "/api/law-amendments?status=REVIEW", Critical: true},
	{Method: http.MethodGet, Path: "/api/dashboard/stats", Critical: true},
	{Method: http.MethodGet, Path: "/api/notifications?limit=20"},
	{Method: http.MethodGet, Path: "/api/laws/1/notifications"},
}

type comparison struct {
	Target            target
	BaselineStatus    int
	CandidateStatus   int
	StatusMatch       bool
	BodyMatch         bool
	Error             error
	DurationBaseline  time.Duration
	DurationCandidate time.Duration
}

func main() {
	var (
		baselineBase  string
		candidateBase string
		targetsPath   string
		ignore        string
		timeout       time.Duration
	)

	flag.StringVar(&baselineBase, "baseline", "http://localhost:4000", "Baseline deployment base URL")
	flag.StringVar(&candidateBase, "candidate", "http://localhost:4001", "Candidate deployment base URL")
	flag.StringVar(&targetsPath, "targets", filepath.Join("scripts", "store_compare", "targets.json"), "Path to JSON targets file")
	flag.StringVar(&ignore, "ignore", "meta,generatedAt,createdAt,updatedAt", "Comma separated JSON keys excluded from body comparison")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	targets, err := loadTargets(targetsPath)
	if err != nil {
		log.Fatalf("failed to load targets: %v", err)
	}
	ignored := parseIgnored(ignore)

	client := &http.Client{Timeout: timeout}
	var (
		comparisons  []comparison
		breaking     int
		optionalDiff int
	)

	for _, t := range targets {
		comp := compareTarget(client, baselineBase, candidateBase, t, ignored)
		switch {
		case comp.Error != nil:
			if t.Critical {
				breaking++
			}
		case !comp.StatusMatch || !comp.BodyMatch:
			if t.Critical {
				breaking++
			} else {
				optionalDiff++
			}
		}
		comparisons = append(comparisons, comp)
	}

	printReport(os.Stdout, comparisons)

	fmt.Printf("Breaking diffs: %d, Optional diffs: %d\n", breaking, optionalDiff)
	if breaking > 0 {
		os.Exit(1)
	}
}

// loadTargets reads the target list, falling back to the built-in read routes when the file is absent.
func loadTargets(path string) ([]target, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return defaultTargets, nil
	}
	if err != nil {
		return nil, err
	}
	var cfg config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	for _, t := range cfg.Targets {
		if m := strings.ToUpper(strings.TrimSpace(t.Method)); m != "" && m != http.MethodGet {
			return nil, fmt.Errorf("target %s %s is not read-only", t.Method, t.Path)
		}
	}
	return cfg.Targets, nil
}

func parseIgnored(raw string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, key := range strings.Split(raw, ",") {
		if key = strings.TrimSpace(key); key != "" {
			out[key] = struct{}{}
		}
	}
	return out
}

func compareTarget(client *http.Client, baselineBase, candidateBase string, tgt target, ignored map[string]struct{}) comparison {
	comp := comparison{Target: tgt}
	baseBody, baseStatus, baseDur, baseErr := fetch(client, baselineBase, tgt)
	candBody, candStatus, candDur, candErr := fetch(client, candidateBase, tgt)
	comp.DurationBaseline = baseDur
	comp.DurationCandidate = candDur

	if baseErr != nil {
		comp.Error = fmt.Errorf("baseline request failed: %w", baseErr)
		return comp
	}
	if candErr != nil {
		comp.Error = fmt.Errorf("candidate request failed: %w", candErr)
		return comp
	}

	comp.BaselineStatus = baseStatus
	comp.CandidateStatus = candStatus
	comp.StatusMatch = baseStatus == candStatus
	comp.BodyMatch = bodiesEqual(baseBody, candBody, ignored)
	return comp
}

func fetch(client *http.Client, base string, tgt target) ([]byte, int, time.Duration, error) {
	if client == nil {
		return nil, 0, 0, errors.New("nil client")
	}
	method := strings.ToUpper(strings.TrimSpace(tgt.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := tgt.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	req, err := http.NewRequest(method, strings.TrimRight(base, "/")+path, nil)
	if err != nil {
		return nil, 0, 0, err
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, time.Since(start), fmt.Errorf("read body: %w", err)
	}
	return body, resp.StatusCode, time.Since(start), nil
}

func bodiesEqual(a, b []byte, ignored map[string]struct{}) bool {
	if bytes.Equal(bytes.TrimSpace(a), bytes.TrimSpace(b)) {
		return true
	}

	var aj, bj interface{}
	if err := json.Unmarshal(a, &aj); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &bj); err != nil {
		return false
	}
	return reflect.DeepEqual(normalize(aj, ignored), normalize(bj, ignored))
}

// normalize drops ignored keys at any depth and folds integral floats.
func normalize(v interface{}, ignored map[string]struct{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		for k, inner := range val {
			if _, skip := ignored[k]; skip {
				delete(val, k)
				continue
			}
			val[k] = normalize(inner, ignored)
		}
		return val
	case []interface{}:
		for i, inner := range val {
			val[i] = normalize(inner, ignored)
		}
		return val
	case float64:
		if val == float64(int64(val)) {
			return int64(val)
		}
		return val
	default:
		return val
	}
}

func printReport(w io.Writer, results []comparison) {
	fmt.Fprintln(w, "Store Compare Report")
	fmt.Fprintln(w, "====================")
	for _, res := range results {
		status := "OK"
		if res.Error != nil {
			status = "ERROR"
		} else if !res.StatusMatch || !res.BodyMatch {
			status = "DIFF"
		}
		fmt.Fprintf(w, "[%s] %s %s\n", status, res.Target.Method, res.Target.Path)
		fmt.Fprintf(w, "  Baseline status: %d (%s)\n", res.BaselineStatus, res.DurationBaseline)
		fmt.Fprintf(w, "  Candidate status: %d (%s)\n", res.CandidateStatus, res.DurationCandidate)
		if res.Error != nil {
			fmt.Fprintf(w, "  Error: %v\n", res.Error)
		} else {
			fmt.Fprintf(w, "  Status match: %t | Body match: %t | Critical: %t\n", res.StatusMatch, res.BodyMatch, res.Target.Critical)
		}
	}
}
