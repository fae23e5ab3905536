// Package main provides a CI-friendly HTTP smoke test for a running warden server.
//
// It validates:
//   - /healthz and /readyz
//   - signup -> 201, duplicate signup -> 409
//   - login -> 200, wrong password and unknown user -> identical 401 bodies
//   - missing fields -> 400
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

type smokeClient struct {
	base    string
	http    *http.Client
	timeout time.Duration
	verbose bool
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func main() {
	var (
		baseURL = flag.String("url", "http://127.0.0.1:8080", "Server base URL")
		prefix  = flag.String("prefix", "/", "Route prefix: \"/\" for /signup,/login or \"/auth/\" for /auth/register,/auth/login")
		timeout = flag.Duration("timeout", 7*time.Second, "Per-step timeout")
		verbose = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	if err := validateBaseURL(*baseURL); err != nil {
		fatalf("invalid -url: %v", err)
	}

	c := &smokeClient{
		base:    strings.TrimRight(*baseURL, "/"),
		http:    &http.Client{Timeout: *timeout},
		timeout: *timeout,
		verbose: *verbose,
	}

	signupPath, loginPath := "/signup", "/login"
	if strings.Trim(*prefix, "/") == "auth" {
		signupPath, loginPath = "/auth/register", "/auth/login"
	}

	username := "smoke_" + strings.ToLower(ulid.Make().String())
	good := credentials{Username: username, Password: "smoke-Password-1!"}

	steps := []struct {
		name string
		run  func() error
	}{
		{"healthz", func() error { return c.expectGet("/healthz", http.StatusOK) }},
		{"readyz", func() error { return c.expectGet("/readyz", http.StatusOK) }},
		{"signup", func() error { _, err := c.expectPost(signupPath, good, http.StatusCreated); return err }},
		{"signup duplicate", func() error {
			_, err := c.expectPost(signupPath, credentials{Username: username, Password: "other"}, http.StatusConflict)
			return err
		}},
		{"login", func() error { _, err := c.expectPost(loginPath, good, http.StatusOK); return err }},
		{"login enumeration", func() error {
			wrong, err := c.expectPost(loginPath, credentials{Username: username, Password: "wrong"}, http.StatusUnauthorized)
			if err != nil {
				return err
			}
			unknown, err := c.expectPost(loginPath, credentials{Username: username + "_missing", Password: "wrong"}, http.StatusUnauthorized)
			if err != nil {
				return err
			}
			if !bytes.Equal(wrong, unknown) {
				return fmt.Errorf("401 bodies differ: %q vs %q", wrong, unknown)
			}
			return nil
		}},
		{"missing fields", func() error {
			_, err := c.expectPost(signupPath, credentials{Username: username}, http.StatusBadRequest)
			return err
		}},
	}

	for _, s := range steps {
		if err := s.run(); err != nil {
			fatalf("%s: %v", s.name, err)
		}
		c.logf("ok  %s", s.name)
	}
	fmt.Println("smoke: PASS")
}

func (c *smokeClient) expectGet(path string, want int) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	_, err = c.do(req, want)
	return err
}

func (c *smokeClient) expectPost(path string, body credentials, want int) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, want)
}

func (c *smokeClient) do(req *http.Request, want int) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	c.logf("    %s %s -> %d %s", req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(b)))
	if resp.StatusCode != want {
		return b, fmt.Errorf("%s %s: status %d, want %d", req.Method, req.URL.Path, resp.StatusCode, want)
	}
	return b, nil
}

func (c *smokeClient) logf(format string, args ...any) {
	if c.verbose {
		fmt.Printf(format+"\n", args...)
	}
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("scheme must be http or https")
	}
	if u.Host == "" {
		return errors.New("host is required")
	}
	return nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "smoke: FAIL: "+format+"\n", args...)
	os.Exit(1)
}
