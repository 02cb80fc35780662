package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

// LoadTestConfig holds configuration for load testing
type LoadTestConfig struct {
	URL             string
	Paths           []string
	ConcurrentUsers int
	RequestsPerUser int
	Timeout         time.Duration
	TestDuration    time.Duration
	RampUpDuration  time.Duration
	ThinkTime       time.Duration
}

// Validate rejects configurations that cannot produce any request
func (config LoadTestConfig) Validate() error {
	switch {
	case config.URL == "":
		return errors.New("--url must not be empty")
	case config.ConcurrentUsers < 1:
		return fmt.Errorf("--users must be at least 1, got %d", config.ConcurrentUsers)
	case config.RequestsPerUser < 1:
		return fmt.Errorf("--requests must be at least 1, got %d", config.RequestsPerUser)
	}
	return nil
}

// Targets lists the URLs users rotate through
func (config LoadTestConfig) Targets() []string {
	if len(config.Paths) == 0 {
		return []string{config.URL}
	}

	base := strings.TrimRight(config.URL, "/")
	targets := make([]string, len(config.Paths))
	for i, path := range config.Paths {
		targets[i] = base + "/" + strings.TrimLeft(path, "/")
	}
	return targets
}

// LoadTestResult holds the result of a single request
type LoadTestResult struct {
	UserID     int
	RequestID  int
	Target     string
	StatusCode int
	Duration   time.Duration
	Success    bool
	Error      error
}

// LoadTestSummary holds the summary of load test results
type LoadTestSummary struct {
	TotalRequests       int
	SuccessfulRequests  int
	FailedRequests      int
	StatusCodes         map[int]int
	TotalDuration       time.Duration
	AverageResponseTime time.Duration
	MinResponseTime     time.Duration
	MaxResponseTime     time.Duration
	RequestsPerSecond   float64
	ErrorRate           float64
	ResponseTime50th    time.Duration
	ResponseTime95th    time.Duration
	ResponseTime99th    time.Duration
}

func runLoadTest(parent context.Context, config LoadTestConfig) LoadTestSummary {
	if parent == nil {
		parent = context.Background()
	}
	ctx := parent
	if config.TestDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, config.TestDuration)
		defer cancel()
	}

	client := &http.Client{Timeout: config.Timeout}
	targets := config.Targets()
	results := make(chan LoadTestResult, config.ConcurrentUsers*config.RequestsPerUser)

	startTime := time.Now()
	rampUpDelay := config.RampUpDuration / time.Duration(config.ConcurrentUsers)

	var wg sync.WaitGroup
	for userID := 0; userID < config.ConcurrentUsers; userID++ {
		wg.Add(1)
		go func(uid int) {
			defer wg.Done()

			if !sleepContext(ctx, time.Duration(uid)*rampUpDelay) {
				return
			}

			for reqID := 0; reqID < config.RequestsPerUser; reqID++ {
				if ctx.Err() != nil {
					return
				}

				target := targets[(uid+reqID)%len(targets)]
				results <- makeRequest(ctx, client, target, uid, reqID)

				if !sleepContext(ctx, config.ThinkTime) {
					return
				}
			}
		}(userID)
	}

	wg.Wait()
	close(results)

	return processResults(results, time.Since(startTime))
}

func sleepContext(ctx context.Context, delay time.Duration) bool {
	if delay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func makeRequest(ctx context.Context, client *http.Client, target string, userID, requestID int) LoadTestResult {
	result := LoadTestResult{UserID: userID, RequestID: requestID, Target: target}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		result.Error = err
		return result
	}

	start := time.Now()
	resp, err := client.Do(request)
	if err != nil {
		result.Duration = time.Since(start)
		result.Error = err
		return result
	}
	// Drain so the connection is reused
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	result.Duration = time.Since(start)
	result.StatusCode = resp.StatusCode
	result.Success = resp.StatusCode >= 200 && resp.StatusCode < 300
	return result
}

func processResults(results <-chan LoadTestResult, totalDuration time.Duration) LoadTestSummary {
	summary := LoadTestSummary{
		TotalDuration: totalDuration,
		StatusCodes:   make(map[int]int),
	}
	var responseTimes []time.Duration

	for result := range results {
		summary.TotalRequests++
		summary.StatusCodes[result.StatusCode]++
		responseTimes = append(responseTimes, result.Duration)

		if result.Success {
			summary.SuccessfulRequests++
		} else {
			summary.FailedRequests++
		}
	}

	if summary.TotalRequests == 0 {
		return summary
	}

	summary.ErrorRate = float64(summary.FailedRequests) / float64(summary.TotalRequests) * 100
	if totalDuration > 0 {
		summary.RequestsPerSecond = float64(summary.TotalRequests) / totalDuration.Seconds()
	}

	sort.Slice(responseTimes, func(i, j int) bool { return responseTimes[i] < responseTimes[j] })

	var totalResponseTime time.Duration
	for _, rt := range responseTimes {
		totalResponseTime += rt
	}
	summary.AverageResponseTime = totalResponseTime / time.Duration(len(responseTimes))
	summary.MinResponseTime = responseTimes[0]
	summary.MaxResponseTime = responseTimes[len(responseTimes)-1]
	summary.ResponseTime50th = percentile(responseTimes, 50)
	summary.ResponseTime95th = percentile(responseTimes, 95)
	summary.ResponseTime99th = percentile(responseTimes, 99)

	return summary
}

// percentile expects sorted input
func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * float64(p) / 100.0)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}

func printConfig(out io.Writer, config LoadTestConfig) {
	fmt.Fprintf(out, "Starting load test...\n")
	for _, target := range config.Targets() {
		fmt.Fprintf(out, "Target: %s\n", target)
	}
	fmt.Fprintf(out, "Concurrent Users: %d\n", config.ConcurrentUsers)
	fmt.Fprintf(out, "Requests per User: %d\n", config.RequestsPerUser)
	fmt.Fprintf(out, "Timeout: %v\n", config.Timeout)
	fmt.Fprintf(out, "Ramp-up Duration: %v\n", config.RampUpDuration)
	fmt.Fprintf(out, "Think Time: %v\n", config.ThinkTime)
	fmt.Fprintf(out, "Test Duration: %v\n\n", config.TestDuration)
}

func printSummary(out io.Writer, summary LoadTestSummary) {
	fmt.Fprintln(out, "=== Load Test Results ===")
	if summary.TotalRequests == 0 {
		fmt.Fprintln(out, "No requests were sent")
		return
	}

	fmt.Fprintf(out, "Total Requests: %d\n", summary.TotalRequests)
	fmt.Fprintf(out, "Successful Requests: %d (%.2f%%)\n", summary.SuccessfulRequests,
		float64(summary.SuccessfulRequests)/float64(summary.TotalRequests)*100)
	fmt.Fprintf(out, "Failed Requests: %d (%.2f%%)\n", summary.FailedRequests, summary.ErrorRate)

	codes := make([]int, 0, len(summary.StatusCodes))
	for code := range summary.StatusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		label := fmt.Sprint(code)
		if code == 0 {
			label = "transport error"
		}
		fmt.Fprintf(out, "  %s: %d\n", label, summary.StatusCodes[code])
	}

	fmt.Fprintf(out, "Total Duration: %v\n", summary.TotalDuration)
	fmt.Fprintf(out, "Requests per Second: %.2f\n", summary.RequestsPerSecond)
	fmt.Fprintf(out, "Average Response Time: %v\n", summary.AverageResponseTime)
	fmt.Fprintf(out, "Min Response Time: %v\n", summary.MinResponseTime)
	fmt.Fprintf(out, "Max Response Time: %v\n", summary.MaxResponseTime)
	fmt.Fprintf(out, "50th Percentile Response Time: %v\n", summary.ResponseTime50th)
	fmt.Fprintf(out, "95th Percentile Response Time: %v\n", summary.ResponseTime95th)
	fmt.Fprintf(out, "99th Percentile Response Time: %v\n", summary.ResponseTime99th)

	fmt.Fprintln(out, "\n=== Performance Assessment ===")
	if summary.ErrorRate > 5.0 {
		fmt.Fprintf(out, "⚠️  High error rate: %.2f%% (target: < 5%%)\n", summary.ErrorRate)
	} else {
		fmt.Fprintf(out, "✅ Error rate: %.2f%% (good)\n", summary.ErrorRate)
	}

	if summary.AverageResponseTime > 2*time.Second {
		fmt.Fprintf(out, "⚠️  High average response time: %v (target: < 2s)\n", summary.AverageResponseTime)
	} else {
		fmt.Fprintf(out, "✅ Average response time: %v (good)\n", summary.AverageResponseTime)
	}

	if summary.RequestsPerSecond < 10 {
		fmt.Fprintf(out, "⚠️  Low throughput: %.2f req/s (target: > 10 req/s)\n", summary.RequestsPerSecond)
	} else {
		fmt.Fprintf(out, "✅ Throughput: %.2f req/s (good)\n", summary.RequestsPerSecond)
	}
}
