package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/newmanyatta/manyatta/pkg/healthcheck"
)

const defaultHealthURL = "http://localhost:8080/health/ready"

type healthOptions struct {
	url        string
	timeout    time.Duration
	retries    int
	retryDelay time.Duration
	format     string
}

func newHealthCmd() *cobra.Command {
	ho := &healthOptions{}

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check a running server's health endpoint",
		Long: `Fetches the health report and exits non-zero unless the server answers 200.
Suitable as a container HEALTHCHECK. HEALTH_CHECK_URL overrides the default URL.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("url") {
				if env := os.Getenv("HEALTH_CHECK_URL"); env != "" {
					ho.url = env
				}
			}
			return runHealth(cmd, ho)
		},
	}
	cmd.Flags().StringVar(&ho.url, "url", defaultHealthURL, "health endpoint")
	cmd.Flags().DurationVar(&ho.timeout, "timeout", 5*time.Second, "request timeout")
	cmd.Flags().IntVar(&ho.retries, "retry", 0, "retries on connection failure")
	cmd.Flags().DurationVar(&ho.retryDelay, "retry-delay", time.Second, "delay between retries")
	cmd.Flags().StringVar(&ho.format, "format", "text", "output format: text, json")
	return cmd
}

func runHealth(cmd *cobra.Command, ho *healthOptions) error {
	client := &http.Client{Timeout: ho.timeout}

	var lastErr error
	for attempt := 0; attempt <= ho.retries; attempt++ {
		if attempt > 0 {
			time.Sleep(ho.retryDelay)
		}

		req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, ho.url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		defer resp.Body.Close()
		return reportHealth(cmd.OutOrStdout(), resp, ho.format)
	}

	return fmt.Errorf("health check failed after %d attempts: %w", ho.retries+1, lastErr)
}

func reportHealth(w io.Writer, resp *http.Response, format string) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var report healthcheck.Response
	parsed := json.Unmarshal(body, &report) == nil && report.Status != ""

	switch {
	case format == "json":
		writeLine(w, string(body))
	case parsed:
		fmt.Fprintf(w, "status: %s (version %s)\n", report.Status, report.Version)
		for _, c := range report.Checks {
			line := fmt.Sprintf("  %-14s %s", c.Name, c.Status)
			if c.Message != "" {
				line += ": " + c.Message
			}
			writeLine(w, line)
		}
	default:
		fmt.Fprintf(w, "status: %d %s\n", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server answered %d", resp.StatusCode)
	}
	return nil
}
