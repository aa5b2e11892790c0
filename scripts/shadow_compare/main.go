// Command shadow_compare replays registration requests against the legacy
// API and this service and reports status or payload drift.
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
	Method   string          `json:"method"`
	Path     string          `json:"path"`
	Body     json.RawMessage `json:"body,omitempty"`
	Auth     bool            `json:"auth"`
	Critical bool            `json:"critical"`
}

type targetFile struct {
	Targets []target `json:"targets"`
}

type endpoint struct {
	base  string
	token string
}

type comparison struct {
	Target         target
	LegacyStatus   int
	GoStatus       int
	StatusMatch    bool
	BodyMatch      bool
	Error          error
	DurationGo     time.Duration
	DurationLegacy time.Duration
}

func main() {
	var (
		goSide      endpoint
		legacySide  endpoint
		targetsPath string
		ignoreRaw   string
		timeout     time.Duration
	)

	flag.StringVar(&goSide.base, "go-base", "http://localhost:8080/api/v1", "Go API base URL")
	flag.StringVar(&goSide.token, "go-token", os.Getenv("SHADOW_GO_TOKEN"), "Bearer token for the Go API")
	flag.StringVar(&legacySide.base, "legacy-base", "http://localhost:3333", "Legacy API base URL")
	flag.StringVar(&legacySide.token, "legacy-token", os.Getenv("SHADOW_LEGACY_TOKEN"), "Bearer token for the legacy API")
	flag.StringVar(&targetsPath, "targets", filepath.Join("scripts", "shadow_compare", "targets.json"), "Path to JSON targets file")
	flag.StringVar(&ignoreRaw, "ignore", "created_at,updated_at,createdAt,updatedAt,active", "Comma separated fields excluded from body comparison")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	targets, err := loadTargets(targetsPath)
	if err != nil {
		log.Fatalf("failed to load targets: %v", err)
	}
	ignored := ignoreSet(ignoreRaw)

	client := &http.Client{Timeout: timeout}
	var (
		comparisons  []comparison
		breaking     int
		optionalDiff int
	)

	for _, t := range targets {
		comp := compareTarget(client, goSide, legacySide, t, ignored)
		if comp.Error != nil || !comp.StatusMatch || !comp.BodyMatch {
			if t.Critical {
				breaking++
			} else {
				optionalDiff++
			}
		}
		comparisons = append(comparisons, comp)
	}

	printReport(comparisons)

	fmt.Printf("Breaking diffs: %d, Optional diffs: %d\n", breaking, optionalDiff)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadTargets(path string) ([]target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg targetFile
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return cfg.Targets, nil
}

func ignoreSet(raw string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, field := range strings.Split(raw, ",") {
		if field = strings.TrimSpace(field); field != "" {
			set[field] = struct{}{}
		}
	}
	return set
}

func compareTarget(client *http.Client, goSide, legacySide endpoint, tgt target, ignored map[string]struct{}) comparison {
	comp := comparison{Target: tgt}

	goStatus, goBody, goDur, err := fetch(client, goSide, tgt)
	comp.DurationGo = goDur
	if err != nil {
		comp.Error = fmt.Errorf("go request failed: %w", err)
		return comp
	}
	legacyStatus, legacyBody, legacyDur, err := fetch(client, legacySide, tgt)
	comp.DurationLegacy = legacyDur
	if err != nil {
		comp.Error = fmt.Errorf("legacy request failed: %w", err)
		return comp
	}

	comp.GoStatus = goStatus
	comp.LegacyStatus = legacyStatus
	comp.StatusMatch = goStatus == legacyStatus
	// Error payloads are not compared, only successful bodies.
	comp.BodyMatch = goStatus >= http.StatusBadRequest || bodiesEqual(unwrapEnvelope(goBody), legacyBody, ignored)
	return comp
}

func fetch(client *http.Client, side endpoint, tgt target) (int, []byte, time.Duration, error) {
	if client == nil {
		return 0, nil, 0, errors.New("nil client")
	}
	method := strings.ToUpper(strings.TrimSpace(tgt.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := tgt.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	var body io.Reader
	if len(tgt.Body) > 0 {
		body = bytes.NewReader(tgt.Body)
	}
	req, err := http.NewRequest(method, strings.TrimRight(side.base, "/")+path, body)
	if err != nil {
		return 0, nil, 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tgt.Auth && side.token != "" {
		req.Header.Set("Authorization", "Bearer "+side.token)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, 0, err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, 0, fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, payload, time.Since(start), nil
}

// unwrapEnvelope returns the data member of a response envelope, null for an
// envelope without data, or raw when the body is not an envelope.
func unwrapEnvelope(raw []byte) []byte {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(raw, &env); err != nil {
		return raw
	}
	if data, ok := env["data"]; ok {
		return data
	}
	for _, key := range []string{"meta", "pagination", "error"} {
		if _, ok := env[key]; ok {
			return []byte("null")
		}
	}
	return raw
}

func bodiesEqual(a, b []byte, ignored map[string]struct{}) bool {
	a, b = bytes.TrimSpace(a), bytes.TrimSpace(b)
	if bytes.Equal(a, b) {
		return true
	}
	if len(a) == 0 || len(b) == 0 {
		return isNullish(a) && isNullish(b)
	}

	var aj, bj interface{}
	if err := json.Unmarshal(a, &aj); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &bj); err != nil {
		return false
	}
	normalize(&aj, ignored)
	normalize(&bj, ignored)
	return reflect.DeepEqual(aj, bj)
}

func isNullish(raw []byte) bool {
	s := string(raw)
	return s == "" || s == "null" || s == "{}"
}

func normalize(v *interface{}, ignored map[string]struct{}) {
	switch val := (*v).(type) {
	case map[string]interface{}:
		for k, v2 := range val {
			if _, skip := ignored[k]; skip {
				delete(val, k)
				continue
			}
			normalize(&v2, ignored)
			val[k] = v2
		}
	case []interface{}:
		for i, v2 := range val {
			normalize(&v2, ignored)
			val[i] = v2
		}
	case float64:
		if val == float64(int64(val)) {
			*v = int64(val)
		}
	case string:
		if ts, err := time.Parse(time.RFC3339Nano, val); err == nil {
			*v = ts.UTC().Format(time.RFC3339)
		}
	}
}

func printReport(results []comparison) {
	fmt.Println("Shadow Compare Report")
	fmt.Println("======================")
	for _, res := range results {
		status := "OK"
		if res.Error != nil {
			status = "ERROR"
		} else if !res.StatusMatch || !res.BodyMatch {
			status = "DIFF"
		}
		fmt.Printf("[%s] %s %s\n", status, res.Target.Method, res.Target.Path)
		fmt.Printf("  Go Status: %d (%s)\n", res.GoStatus, res.DurationGo)
		fmt.Printf("  Legacy Status: %d (%s)\n", res.LegacyStatus, res.DurationLegacy)
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
		} else {
			fmt.Printf("  Status match: %t | Body match: %t | Critical: %t\n", res.StatusMatch, res.BodyMatch, res.Target.Critical)
		}
	}
}
