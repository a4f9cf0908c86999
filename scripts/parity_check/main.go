// Command parity_check replays read-only billing endpoints against both the
// legacy console and this API and reports response differences. It is run
// manually during the migration window; a breaking diff on a critical
// endpoint fails the run.
package main

import (
	"encoding/json"
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

type endpoint struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	Critical bool   `json:"critical"`
}

type manifest struct {
	Endpoints []endpoint `json:"endpoints"`
}

type result struct {
	Endpoint     endpoint
	NewStatus    int
	LegacyStatus int
	StatusMatch  bool
	BodyMatch    bool
	NewLatency   time.Duration
	LegacyLat    time.Duration
	Err          error
}

// volatileFields are response keys whose values legitimately differ between
// the two systems (generated ids, server clocks) and are ignored in the
// body comparison.
var volatileFields = map[string]bool{
	"id":         true,
	"session_id": true,
	"batch_id":   true,
	"created_at": true,
	"updated_at": true,
	"issued_at":  true,
	"request_id": true,
}

func main() {
	var (
		newBase      string
		legacyBase   string
		manifestPath string
		timeout      time.Duration
	)

	flag.StringVar(&newBase, "new-base", "http://localhost:8080", "billing API base URL")
	flag.StringVar(&legacyBase, "legacy-base", "http://localhost:3000", "legacy console base URL")
	flag.StringVar(&manifestPath, "endpoints", filepath.Join("scripts", "parity_check", "endpoints.json"), "path to the endpoint manifest")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "per-request timeout")
	flag.Parse()

	endpoints, err := loadManifest(manifestPath)
	if err != nil {
		log.Fatalf("failed to load endpoint manifest: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	var (
		results  []result
		breaking int
		minor    int
	)
	for _, ep := range endpoints {
		res := compare(client, newBase, legacyBase, ep)
		if res.Err != nil || !res.StatusMatch || !res.BodyMatch {
			if ep.Critical {
				breaking++
			} else {
				minor++
			}
		}
		results = append(results, res)
	}

	report(results)
	fmt.Printf("breaking: %d, minor: %d\n", breaking, minor)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadManifest(path string) ([]endpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if len(m.Endpoints) == 0 {
		return nil, fmt.Errorf("no endpoints defined in %s", path)
	}
	return m.Endpoints, nil
}

func compare(client *http.Client, newBase, legacyBase string, ep endpoint) result {
	res := result{Endpoint: ep}

	newBody, newStatus, newLat, err := fetch(client, newBase, ep)
	if err != nil {
		res.Err = fmt.Errorf("billing api: %w", err)
		return res
	}
	legacyBody, legacyStatus, legacyLat, err := fetch(client, legacyBase, ep)
	if err != nil {
		res.Err = fmt.Errorf("legacy console: %w", err)
		return res
	}

	res.NewStatus = newStatus
	res.LegacyStatus = legacyStatus
	res.NewLatency = newLat
	res.LegacyLat = legacyLat
	res.StatusMatch = newStatus == legacyStatus
	res.BodyMatch = bodiesEqual(newBody, legacyBody)
	return res
}

func fetch(client *http.Client, base string, ep endpoint) ([]byte, int, time.Duration, error) {
	method := strings.ToUpper(strings.TrimSpace(ep.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := ep.Path
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
		return nil, 0, 0, err
	}
	return body, resp.StatusCode, time.Since(start), nil
}

func bodiesEqual(a, b []byte) bool {
	var aj, bj interface{}
	if err := json.Unmarshal(a, &aj); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &bj); err != nil {
		return false
	}
	scrub(&aj)
	scrub(&bj)
	return reflect.DeepEqual(aj, bj)
}

// scrub drops volatile fields and collapses whole-number floats so that
// 5000 and 5000.0 compare equal across the two JSON encoders.
func scrub(v *interface{}) {
	switch val := (*v).(type) {
	case map[string]interface{}:
		for k, inner := range val {
			if volatileFields[k] {
				delete(val, k)
				continue
			}
			scrub(&inner)
			val[k] = inner
		}
	case []interface{}:
		for i, inner := range val {
			scrub(&inner)
			val[i] = inner
		}
	case float64:
		if val == float64(int64(val)) {
			*v = int64(val)
		}
	}
}

func report(results []result) {
	fmt.Println("Billing parity report")
	fmt.Println("=====================")
	for _, res := range results {
		status := "OK"
		if res.Err != nil {
			status = "ERROR"
		} else if !res.StatusMatch || !res.BodyMatch {
			status = "DIFF"
		}
		fmt.Printf("[%s] %s %s\n", status, res.Endpoint.Method, res.Endpoint.Path)
		if res.Err != nil {
			fmt.Printf("  error: %v\n", res.Err)
			continue
		}
		fmt.Printf("  status: %d vs %d | body match: %t | critical: %t\n",
			res.NewStatus, res.LegacyStatus, res.BodyMatch, res.Endpoint.Critical)
		fmt.Printf("  latency: %s vs %s\n", res.NewLatency, res.LegacyLat)
	}
}
