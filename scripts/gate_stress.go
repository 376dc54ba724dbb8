//go:build ignore
// +build ignore

// Package main provides a manual stress test for the book-mutation
// permission gates.
//
// Usage:
//
//	go run ./scripts/gate_stress.go <author_id> <token1> [token2 ...]
//
// Or use the convenience environment variables:
//
//	AUTHOR_ID=<uuid> TOKENS=<t1>,<t2>,... go run ./scripts/gate_stress.go
//
// What it does:
//  1. Fires one goroutine per token, all submitting POST /add_book/ for the
//     same author simultaneously.
//  2. Prints how many requests were admitted (redirect to /books/) vs.
//     rejected by the can_add_book gate (403).
//  3. Compares the catalog size before and after: growth must equal the
//     number of admitted requests, i.e. no gate-rejected request may have
//     created a book.
//
// Prerequisites:
//   - Server must be running and permissions seeded.
//   - The author must exist; tokens come from /login/ responses.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

const defaultServerAddr = "http://localhost:8080"

type attemptResult struct {
	Token      string
	StatusCode int
	Err        error
}

func main() {
	serverAddr := os.Getenv("SERVER_ADDR")
	if serverAddr == "" {
		serverAddr = defaultServerAddr
	}

	authorID := os.Getenv("AUTHOR_ID")
	var tokens []string
	if tokensEnv := os.Getenv("TOKENS"); tokensEnv != "" {
		tokens = strings.Split(tokensEnv, ",")
	}

	args := os.Args[1:]
	if len(args) >= 1 {
		authorID = args[0]
	}
	if len(args) >= 2 {
		tokens = args[1:]
	}

	if authorID == "" || len(tokens) == 0 {
		log.Fatal("Usage: AUTHOR_ID=<uuid> TOKENS=<t1,t2,...> go run ./scripts/gate_stress.go\n" +
			"  or: go run ./scripts/gate_stress.go <author_id> <token1> [token2 ...]")
	}

	fmt.Printf("=== Permission Gate Stress Test ===\n")
	fmt.Printf("Server : %s\n", serverAddr)
	fmt.Printf("Author : %s\n", authorID)
	fmt.Printf("Tokens : %d\n\n", len(tokens))

	before, err := countBooks(serverAddr)
	if err != nil {
		log.Fatalf("failed to count books: %v", err)
	}

	results := make([]attemptResult, len(tokens))
	var wg sync.WaitGroup

	// Fire all goroutines simultaneously using a barrier.
	start := make(chan struct{})

	for i, token := range tokens {
		wg.Add(1)
		go func(idx int, token string) {
			defer wg.Done()
			<-start
			results[idx] = attemptAddBook(serverAddr, authorID, strings.TrimSpace(token), idx)
		}(i, token)
	}

	fmt.Println("Firing all requests simultaneously...")
	close(start)
	wg.Wait()
	fmt.Println("All requests completed.")
	fmt.Println()

	var admitted, rejected, failures int
	for _, r := range results {
		switch {
		case r.Err != nil:
			failures++
			fmt.Printf("  [ERR ] token=%.12s... err=%v\n", r.Token, r.Err)
		case r.StatusCode == http.StatusFound:
			admitted++
			fmt.Printf("  [PASS] token=%.12s... status=%d admitted\n", r.Token, r.StatusCode)
		case r.StatusCode == http.StatusForbidden || r.StatusCode == http.StatusUnauthorized:
			rejected++
			fmt.Printf("  [GATE] token=%.12s... status=%d rejected\n", r.Token, r.StatusCode)
		default:
			failures++
			fmt.Printf("  [FAIL] token=%.12s... status=%d unexpected response\n", r.Token, r.StatusCode)
		}
	}

	after, err := countBooks(serverAddr)
	if err != nil {
		log.Fatalf("failed to count books: %v", err)
	}

	fmt.Printf("\n--- Summary ---\n")
	fmt.Printf("Admitted : %d\n", admitted)
	fmt.Printf("Rejected : %d\n", rejected)
	fmt.Printf("Failures : %d\n", failures)
	fmt.Printf("Catalog  : %d -> %d\n\n", before, after)

	fmt.Println("--- Invariant Check ---")
	fmt.Println("Catalog growth must equal the number of admitted requests:")
	fmt.Println("a request rejected by the can_add_book gate must create nothing.")
	if after-before != admitted {
		fmt.Printf("[VIOLATION] grew by %d, admitted %d\n", after-before, admitted)
		os.Exit(1)
	}
	fmt.Println("OK")

	if failures > 0 {
		fmt.Printf("\n[WARNING] %d request(s) failed, check server logs for details.\n", failures)
		os.Exit(1)
	}
}

// attemptAddBook submits POST /add_book/ with a unique title using the given
// bearer token and reports the raw status code (redirects not followed).
func attemptAddBook(serverAddr, authorID, token string, idx int) attemptResult {
	form := url.Values{}
	form.Set("title", fmt.Sprintf("Stress Book %d @ %d", idx, time.Now().UnixNano()))
	form.Set("author_id", authorID)

	req, err := http.NewRequest(http.MethodPost, serverAddr+"/add_book/", strings.NewReader(form.Encode()))
	if err != nil {
		return attemptResult{Token: token, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+token)

	client := &http.Client{
		Timeout: 10 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Do(req)
	if err != nil {
		return attemptResult{Token: token, Err: err}
	}
	defer resp.Body.Close()

	return attemptResult{Token: token, StatusCode: resp.StatusCode}
}

func countBooks(serverAddr string) (int, error) {
	resp, err := http.Get(serverAddr + "/books/")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var parsed struct {
		Books []json.RawMessage `json:"books"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, err
	}
	return len(parsed.Books), nil
}
