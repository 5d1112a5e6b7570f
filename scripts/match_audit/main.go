// Command match_audit sweeps the recommendation endpoint across every
// course and reports which requests were served by the external model,
// the rule-based fallback, or the cache. Exit code 1 when the fallback
// rate exceeds the threshold, so it can gate a deploy.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

type loginResponse struct {
	Data struct {
		Token string `json:"token"`
	} `json:"data"`
}

type course struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type matchResponse struct {
	Data struct {
		Source         string `json:"source"`
		UsedCache      bool   `json:"usedCache"`
		FallbackReason string `json:"fallbackReason"`
		Suggestions    []struct {
			TrainerID int64 `json:"trainerId"`
			Score     int   `json:"score"`
		} `json:"suggestions"`
	} `json:"data"`
}

type audit struct {
	Course      course
	Source      string
	Reason      string
	Suggestions int
	TopScore    int
	Duration    time.Duration
	Error       error
}

func main() {
	var (
		base         string
		email        string
		password     string
		timeout      time.Duration
		maxFallbackP float64
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&email, "email", os.Getenv("ADMIN_EMAIL"), "Admin email")
	flag.StringVar(&password, "password", os.Getenv("ADMIN_PASSWORD"), "Admin password")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "HTTP client timeout")
	flag.Float64Var(&maxFallbackP, "max-fallback", 1.0, "Maximum tolerated fallback ratio (0..1)")
	flag.Parse()

	client := &http.Client{Timeout: timeout}
	token, err := login(client, base, email, password)
	if err != nil {
		log.Fatalf("login failed: %v", err)
	}

	courses, err := listCourses(client, base, token)
	if err != nil {
		log.Fatalf("failed to list courses: %v", err)
	}
	if len(courses) == 0 {
		fmt.Println("No courses to audit.")
		return
	}

	var (
		audits    []audit
		fallbacks int
		failures  int
	)
	for _, crs := range courses {
		a := auditCourse(client, base, token, crs)
		if a.Error != nil {
			failures++
		} else if a.Source == "fallback" {
			fallbacks++
		}
		audits = append(audits, a)
	}

	printReport(audits)

	ratio := float64(fallbacks) / float64(len(courses))
	fmt.Printf("Courses: %d, Fallbacks: %d (%.0f%%), Failures: %d\n",
		len(courses), fallbacks, ratio*100, failures)
	if failures > 0 || ratio > maxFallbackP {
		os.Exit(1)
	}
}

func login(client *http.Client, base, email, password string) (string, error) {
	payload := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	resp, err := client.Post(apiURL(base, "/auth/login"), "application/json", strings.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var parsed loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if parsed.Data.Token == "" {
		return "", fmt.Errorf("empty token in login response")
	}
	return parsed.Data.Token, nil
}

func listCourses(client *http.Client, base, token string) ([]course, error) {
	resp, err := get(client, apiURL(base, "/courses"), token)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	var parsed struct {
		Data []course `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	return parsed.Data, nil
}

func auditCourse(client *http.Client, base, token string, crs course) audit {
	a := audit{Course: crs}
	start := time.Now()
	resp, err := get(client, fmt.Sprintf("%s/%d/match", apiURL(base, "/courses"), crs.ID), token)
	a.Duration = time.Since(start)
	if err != nil {
		a.Error = err
		return a
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		a.Error = fmt.Errorf("status %d", resp.StatusCode)
		return a
	}

	var parsed matchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		a.Error = fmt.Errorf("decode match response: %w", err)
		return a
	}
	a.Source = parsed.Data.Source
	a.Reason = parsed.Data.FallbackReason
	a.Suggestions = len(parsed.Data.Suggestions)
	if a.Suggestions > 0 {
		a.TopScore = parsed.Data.Suggestions[0].Score
	}
	return a
}

func get(client *http.Client, url, token string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return client.Do(req)
}

func apiURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/api/v1" + path
}

func printReport(results []audit) {
	fmt.Println("Trainer Match Audit")
	fmt.Println("===================")
	for _, res := range results {
		status := strings.ToUpper(res.Source)
		if res.Error != nil {
			status = "ERROR"
		}
		fmt.Printf("[%s] course %d %q (%s)\n", status, res.Course.ID, res.Course.Name, res.Duration)
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
			continue
		}
		fmt.Printf("  Suggestions: %d | Top score: %d\n", res.Suggestions, res.TopScore)
		if res.Reason != "" {
			fmt.Printf("  Fallback reason: %s\n", res.Reason)
		}
	}
}
