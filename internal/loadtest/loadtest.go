// Package loadtest provides load testing utilities for the CampusReg server.
// This tool generates realistic registration traffic patterns to validate
// monitoring dashboards and test the server under load.
package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"text/tabwriter"
	"time"

	"github.com/campusreg/server/tests/testdata"
)

// LoadProfile defines different load testing scenarios.
type LoadProfile string

const (
	ProfileLight  LoadProfile = "light"  // 5 req/s, 1 minute
	ProfileMedium LoadProfile = "medium" // 20 req/s, 2 minutes
	ProfileHeavy  LoadProfile = "heavy"  // 50 req/s, 5 minutes
	ProfileStress LoadProfile = "stress" // 100 req/s, 10 minutes
	ProfileBurst  LoadProfile = "burst"  // Spike pattern: 10 req/s -> 100 req/s -> 10 req/s
	ProfilePeak   LoadProfile = "peak"   // Simulates enrollment week with gradual ramp-up/down
)

// ProfileConfig defines the parameters for a load test.
type ProfileConfig struct {
	RequestsPerSecond int           // Target requests per second
	Duration          time.Duration // How long to run the test
	RampUpTime        time.Duration // Time to gradually reach target RPS
	RampDownTime      time.Duration // Time to gradually decrease RPS
	ReadWriteRatio    float64       // Ratio of reads to writes (0.8 = 80% reads, 20% writes)
	SeedStudents      int           // Students created up front for registration traffic
	SeedCourses       int           // Courses created up front for registration traffic
}

// LoadProfiles contains predefined load testing scenarios.
var LoadProfiles = map[LoadProfile]ProfileConfig{
	ProfileLight: {
		RequestsPerSecond: 5,
		Duration:          1 * time.Minute,
		RampUpTime:        10 * time.Second,
		RampDownTime:      10 * time.Second,
		ReadWriteRatio:    0.8,
		SeedStudents:      20,
		SeedCourses:       8,
	},
	ProfileMedium: {
		RequestsPerSecond: 20,
		Duration:          2 * time.Minute,
		RampUpTime:        20 * time.Second,
		RampDownTime:      20 * time.Second,
		ReadWriteRatio:    0.8,
		SeedStudents:      50,
		SeedCourses:       15,
	},
	ProfileHeavy: {
		RequestsPerSecond: 50,
		Duration:          5 * time.Minute,
		RampUpTime:        30 * time.Second,
		RampDownTime:      30 * time.Second,
		ReadWriteRatio:    0.7,
		SeedStudents:      150,
		SeedCourses:       30,
	},
	ProfileStress: {
		RequestsPerSecond: 100,
		Duration:          10 * time.Minute,
		RampUpTime:        1 * time.Minute,
		RampDownTime:      1 * time.Minute,
		ReadWriteRatio:    0.6,
		SeedStudents:      300,
		SeedCourses:       50,
	},
	ProfileBurst: {
		RequestsPerSecond: 10, // Base RPS (will spike to 100)
		Duration:          5 * time.Minute,
		RampUpTime:        0,
		RampDownTime:      0,
		ReadWriteRatio:    0.8,
		SeedStudents:      50,
		SeedCourses:       15,
	},
	ProfilePeak: {
		RequestsPerSecond: 40, // Peak RPS
		Duration:          10 * time.Minute,
		RampUpTime:        3 * time.Minute,
		RampDownTime:      3 * time.Minute,
		ReadWriteRatio:    0.75,
		SeedStudents:      150,
		SeedCourses:       30,
	},
}

// LoadTester orchestrates load testing operations.
type LoadTester struct {
	baseURL    string
	httpClient *http.Client
	generator  *testdata.Generator
	stats      *Statistics

	// Known entity IDs for registration and detail traffic. Creates made
	// during the run keep feeding these pools.
	idMu       sync.RWMutex
	studentIDs []int64
	courseIDs  []int64
}

// NewLoadTester creates a new load tester targeting the specified base URL.
func NewLoadTester(baseURL string) *LoadTester {
	return &LoadTester{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		generator: testdata.NewGenerator(time.Now().UnixNano()),
		stats:     &Statistics{},
	}
}

// Statistics accumulates the results of one run.
type Statistics struct {
	mu sync.Mutex

	totalRequests    int64
	successRequests  int64
	conflictRequests int64
	failedRequests   int64

	responseTimes []int64       // milliseconds, in completion order
	errors        map[int]int64 // non-2xx counts keyed by status code
	endpointStats map[string]*EndpointStats

	startTime time.Time
	endTime   time.Time
}

// EndpointStats tracks one endpoint's share of the run.
type EndpointStats struct {
	count     int64
	total     int64 // summed response time in ms
	times     []int64
	conflicts int64
	errors    int64
	minTime   int64
	maxTime   int64
}

// Run executes the named predefined profile.
func (lt *LoadTester) Run(ctx context.Context, profile LoadProfile) (*Statistics, error) {
	config, ok := LoadProfiles[profile]
	if !ok {
		return nil, fmt.Errorf("unknown profile: %s", profile)
	}
	return lt.RunCustom(ctx, config)
}

// RunCustom executes a load test with an explicit configuration.
func (lt *LoadTester) RunCustom(ctx context.Context, config ProfileConfig) (*Statistics, error) {
	lt.stats = &Statistics{
		errors:        make(map[int]int64),
		endpointStats: make(map[string]*EndpointStats),
		startTime:     time.Now(),
	}

	fmt.Printf("Load test against %s\n", lt.baseURL)
	fmt.Printf("  %d req/s for %s, ramp up %s, ramp down %s\n",
		config.RequestsPerSecond, config.Duration, config.RampUpTime, config.RampDownTime)
	fmt.Printf("  %.0f%% reads / %.0f%% writes\n\n",
		config.ReadWriteRatio*100, (1-config.ReadWriteRatio)*100)

	if err := lt.seed(ctx, config); err != nil {
		return nil, fmt.Errorf("seeding fixtures: %w", err)
	}

	// Two workers per target RPS keeps slow responses from stalling the pace.
	workers := max(config.RequestsPerSecond*2, 10)

	workChan := make(chan workItem, workers*2)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lt.worker(ctx, workChan)
		}()
	}

	go func() {
		defer close(workChan)
		lt.generateWork(ctx, config, workChan)
	}()

	wg.Wait()
	lt.stats.endTime = time.Now()

	return lt.stats, nil
}

// seed creates an initial pool of students and courses so registration
// traffic has real IDs to pair up from the first second.
func (lt *LoadTester) seed(ctx context.Context, config ProfileConfig) error {
	students := config.SeedStudents
	if students <= 0 {
		students = 20
	}
	courses := config.SeedCourses
	if courses <= 0 {
		courses = 8
	}

	fmt.Printf("Seeding %d students and %d courses...\n\n", students, courses)

	for i := 0; i < students; i++ {
		id, err := lt.createEntity(ctx, "/api/v1/students", lt.generator.RandomStudentInput())
		if err != nil {
			return fmt.Errorf("seed student: %w", err)
		}
		lt.addStudentID(id)
	}

	for i := 0; i < courses; i++ {
		id, err := lt.createEntity(ctx, "/api/v1/courses", lt.generator.RandomCourseInput())
		if err != nil {
			return fmt.Errorf("seed course: %w", err)
		}
		lt.addCourseID(id)
	}

	return nil
}

// createEntity POSTs a create request and returns the new entity's ID.
// Seeding happens before the measurement window so nothing is recorded.
func (lt *LoadTester) createEntity(ctx context.Context, path string, body interface{}) (int64, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, lt.baseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := lt.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("POST %s returned %d: %s", path, resp.StatusCode, string(data))
	}

	var created struct {
		ID int64 `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return 0, fmt.Errorf("decoding create response: %w", err)
	}
	if created.ID == 0 {
		return 0, fmt.Errorf("create response missing id")
	}
	return created.ID, nil
}

// workItem represents a single HTTP request to be executed.
type workItem struct {
	method   string
	path     string
	body     interface{}
	endpoint string // for stats tracking
	capture  string // "student" or "course" to pool the created ID
}

// generateWork feeds the worker pool at the profile's pace, resetting the
// ticker whenever the ramped RPS changes.
func (lt *LoadTester) generateWork(ctx context.Context, config ProfileConfig, workChan chan<- workItem) {
	startTime := time.Now()
	totalDuration := config.RampUpTime + config.Duration + config.RampDownTime

	currentRPS := 1
	if config.RampUpTime == 0 {
		currentRPS = config.RequestsPerSecond
	}
	ticker := time.NewTicker(time.Second / time.Duration(currentRPS))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			elapsed := time.Since(startTime)
			if elapsed > totalDuration {
				return
			}

			if rps := rampedRPS(elapsed, config); rps != currentRPS {
				ticker.Reset(time.Second / time.Duration(rps))
				currentRPS = rps
			}

			if rand.Float64() < config.ReadWriteRatio {
				workChan <- lt.generateReadRequest()
			} else {
				workChan <- lt.generateWriteRequest()
			}
		}
	}
}

// rampedRPS interpolates the target RPS linearly during the ramp-up and
// ramp-down windows, never dropping below 1.
func rampedRPS(elapsed time.Duration, config ProfileConfig) int {
	target := config.RequestsPerSecond

	if elapsed < config.RampUpTime {
		progress := float64(elapsed) / float64(config.RampUpTime)
		return max(int(float64(target)*progress), 1)
	}

	steadyEnd := config.RampUpTime + config.Duration
	if elapsed < steadyEnd {
		return target
	}

	if sinceSteady := elapsed - steadyEnd; sinceSteady < config.RampDownTime {
		progress := float64(sinceSteady) / float64(config.RampDownTime)
		return max(int(float64(target)*(1.0-progress)), 1)
	}

	return 1
}

// generateReadRequest creates a random read operation.
func (lt *LoadTester) generateReadRequest() workItem {
	operations := []workItem{
		{method: "GET", path: "/health", endpoint: "health"},
		{method: "GET", path: "/api/v1/students", endpoint: "list_students"},
		{method: "GET", path: "/api/v1/courses", endpoint: "list_courses"},
		{method: "GET", path: "/metrics", endpoint: "metrics"},
	}

	// Student detail reads exercise the join path, but only once IDs exist.
	if id, ok := lt.randomStudentID(); ok {
		operations = append(operations, workItem{
			method:   "GET",
			path:     fmt.Sprintf("/api/v1/students/%d", id),
			endpoint: "get_student",
		})
	}

	return operations[rand.Intn(len(operations))]
}

// generateWriteRequest creates a random write operation. Registrations get
// the largest share because they are the system's hot path.
func (lt *LoadTester) generateWriteRequest() workItem {
	roll := rand.Float64()

	switch {
	case roll < 0.35:
		return workItem{
			method:   "POST",
			path:     "/api/v1/students",
			body:     lt.generator.RandomStudentInput(),
			endpoint: "create_student",
			capture:  "student",
		}
	case roll < 0.5:
		return workItem{
			method:   "POST",
			path:     "/api/v1/courses",
			body:     lt.generator.RandomCourseInput(),
			endpoint: "create_course",
			capture:  "course",
		}
	default:
		studentID, okS := lt.randomStudentID()
		courseID, okC := lt.randomCourseID()
		if !okS || !okC {
			// Pools empty (seeding skipped); fall back to a student create
			return workItem{
				method:   "POST",
				path:     "/api/v1/students",
				body:     lt.generator.RandomStudentInput(),
				endpoint: "create_student",
				capture:  "student",
			}
		}
		return workItem{
			method: "POST",
			path:   "/api/v1/registrations",
			body: testdata.RegistrationInput{
				StudentID: studentID,
				CourseID:  courseID,
			},
			endpoint: "create_registration",
		}
	}
}

// worker drains the work channel until it closes or the context ends.
func (lt *LoadTester) worker(ctx context.Context, workChan <-chan workItem) {
	for work := range workChan {
		if ctx.Err() != nil {
			return
		}
		lt.executeRequest(ctx, work)
	}
}

// executeRequest performs one HTTP request and records the outcome. Only the
// round trip is timed, not request construction.
func (lt *LoadTester) executeRequest(ctx context.Context, work workItem) {
	atomic.AddInt64(&lt.stats.totalRequests, 1)

	req, err := lt.buildRequest(ctx, work)
	if err != nil {
		lt.recordError(0, work.endpoint)
		return
	}

	start := time.Now()
	resp, err := lt.httpClient.Do(req)
	if err != nil {
		lt.recordError(0, work.endpoint)
		return
	}
	duration := time.Since(start).Milliseconds()
	defer func() { _ = resp.Body.Close() }()

	// Pool IDs from successful creates so later traffic can reference them
	if work.capture != "" && resp.StatusCode == http.StatusCreated {
		var created struct {
			ID int64 `json:"id"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&created); err == nil && created.ID != 0 {
			switch work.capture {
			case "student":
				lt.addStudentID(created.ID)
			case "course":
				lt.addCourseID(created.ID)
			}
		}
	}

	_, _ = io.Copy(io.Discard, resp.Body)

	lt.recordResponse(resp.StatusCode, duration, work.endpoint)
}

func (lt *LoadTester) buildRequest(ctx context.Context, work workItem) (*http.Request, error) {
	var body io.Reader
	if work.body != nil {
		payload, err := json.Marshal(work.body)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, work.method, lt.baseURL+work.path, body)
	if err != nil {
		return nil, err
	}
	if work.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (lt *LoadTester) addStudentID(id int64) {
	lt.idMu.Lock()
	lt.studentIDs = append(lt.studentIDs, id)
	lt.idMu.Unlock()
}

func (lt *LoadTester) addCourseID(id int64) {
	lt.idMu.Lock()
	lt.courseIDs = append(lt.courseIDs, id)
	lt.idMu.Unlock()
}

func (lt *LoadTester) randomStudentID() (int64, bool) {
	lt.idMu.RLock()
	defer lt.idMu.RUnlock()
	if len(lt.studentIDs) == 0 {
		return 0, false
	}
	return lt.studentIDs[rand.Intn(len(lt.studentIDs))], true
}

func (lt *LoadTester) randomCourseID() (int64, bool) {
	lt.idMu.RLock()
	defer lt.idMu.RUnlock()
	if len(lt.courseIDs) == 0 {
		return 0, false
	}
	return lt.courseIDs[rand.Intn(len(lt.courseIDs))], true
}

// recordResponse records a completed response. Conflicts are tracked apart
// from failures because duplicate registrations are an expected outcome of
// random pairing, not a server fault.
func (lt *LoadTester) recordResponse(statusCode int, durationMs int64, endpoint string) {
	lt.stats.mu.Lock()
	defer lt.stats.mu.Unlock()

	lt.stats.responseTimes = append(lt.stats.responseTimes, durationMs)

	switch {
	case statusCode >= 200 && statusCode < 300:
		lt.stats.successRequests++
	case statusCode == http.StatusConflict:
		lt.stats.conflictRequests++
		lt.stats.errors[statusCode]++
	default:
		lt.stats.failedRequests++
		lt.stats.errors[statusCode]++
	}

	ep := lt.stats.endpointStats[endpoint]
	if ep == nil {
		ep = &EndpointStats{minTime: durationMs, maxTime: durationMs}
		lt.stats.endpointStats[endpoint] = ep
	}
	ep.count++
	ep.total += durationMs
	ep.times = append(ep.times, durationMs)
	ep.minTime = min(ep.minTime, durationMs)
	ep.maxTime = max(ep.maxTime, durationMs)

	switch {
	case statusCode == http.StatusConflict:
		ep.conflicts++
	case statusCode < 200 || statusCode >= 300:
		ep.errors++
	}
}

// recordError records a request that never produced a response.
func (lt *LoadTester) recordError(statusCode int, endpoint string) {
	lt.stats.mu.Lock()
	defer lt.stats.mu.Unlock()

	lt.stats.failedRequests++
	lt.stats.errors[statusCode]++

	if lt.stats.endpointStats[endpoint] == nil {
		lt.stats.endpointStats[endpoint] = &EndpointStats{}
	}
	lt.stats.endpointStats[endpoint].errors++
}

// Report renders a human-readable summary of the run.
func (s *Statistics) Report() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	duration := s.endTime.Sub(s.startTime)
	total := atomic.LoadInt64(&s.totalRequests)
	rule := strings.Repeat("=", 64)

	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n%s\n%s\n\n", rule, centered("LOAD TEST RESULTS", 64), rule)

	fmt.Fprintf(&b, "Duration:        %s\n", duration.Round(time.Second))
	fmt.Fprintf(&b, "Total Requests:  %d\n", total)
	fmt.Fprintf(&b, "Successful:      %d (%s)\n", s.successRequests, share(s.successRequests, total))
	fmt.Fprintf(&b, "Conflicts:       %d (%s)\n", s.conflictRequests, share(s.conflictRequests, total))
	fmt.Fprintf(&b, "Failed:          %d (%s)\n", s.failedRequests, share(s.failedRequests, total))
	fmt.Fprintf(&b, "Requests/sec:    %.2f\n\n", float64(total)/duration.Seconds())

	if len(s.responseTimes) > 0 {
		fmt.Fprintf(&b, "Response Times (ms):\n")
		fmt.Fprintf(&b, "  Average:  %d\n", mean(s.responseTimes))
		fmt.Fprintf(&b, "  p50:      %d\n", percentile(s.responseTimes, 0.50))
		fmt.Fprintf(&b, "  p95:      %d\n", percentile(s.responseTimes, 0.95))
		fmt.Fprintf(&b, "  p99:      %d\n\n", percentile(s.responseTimes, 0.99))
	}

	if len(s.errors) > 0 {
		fmt.Fprintf(&b, "Non-2xx by Status Code:\n")
		for code, count := range s.errors {
			if code != 0 {
				fmt.Fprintf(&b, "  %d: %d\n", code, count)
			}
		}
		fmt.Fprintf(&b, "\n")
	}

	if len(s.endpointStats) > 0 {
		fmt.Fprintf(&b, "Per-Endpoint Statistics:\n")
		tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "Endpoint\tCount\tAvg(ms)\tp95(ms)\tErrors\tConflicts")
		for endpoint, ep := range s.endpointStats {
			if ep.count == 0 {
				continue
			}
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n",
				endpoint, ep.count, ep.total/ep.count, percentile(ep.times, 0.95), ep.errors, ep.conflicts)
		}
		_ = tw.Flush()
		fmt.Fprintf(&b, "\n")
	}

	b.WriteString(rule + "\n")
	return b.String()
}

func centered(text string, width int) string {
	pad := (width - len(text)) / 2
	if pad < 0 {
		pad = 0
	}
	return strings.Repeat(" ", pad) + text
}

func share(part, total int64) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(part)/float64(total)*100)
}

func mean(times []int64) int64 {
	if len(times) == 0 {
		return 0
	}
	var sum int64
	for _, t := range times {
		sum += t
	}
	return sum / int64(len(times))
}

// percentile returns the value at the given rank. The input is copied so
// callers can keep appending while a report renders.
func percentile(times []int64, p float64) int64 {
	if len(times) == 0 {
		return 0
	}
	sorted := slices.Clone(times)
	slices.Sort(sorted)

	idx := int(float64(len(sorted)) * p)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
