package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/nao1215/sitescore/internal/model"
)

const (
	// DefaultBinary is the name of the Lighthouse CLI.
	DefaultBinary = "lighthouse"

	// DefaultChromeFlags runs Chrome without a window.
	DefaultChromeFlags = "--headless"

	// stderrTailSize is how much of the auditor's stderr is kept in errors.
	stderrTailSize = 1024
)

// Lighthouse audits pages with the Lighthouse CLI.
type Lighthouse struct {
	binary      string
	chromeFlags string
	extraArgs   []string
	headers     map[string]string
	tempDir     string
	logger      *slog.Logger
}

// Option configures a Lighthouse auditor.
type Option func(*Lighthouse)

// WithBinary sets the path or name of the lighthouse executable.
func WithBinary(path string) Option {
	return func(l *Lighthouse) {
		l.binary = path
	}
}

// WithChromeFlags sets the flags passed to Chrome, e.g. "--headless --no-sandbox".
func WithChromeFlags(flags string) Option {
	return func(l *Lighthouse) {
		l.chromeFlags = flags
	}
}

// WithExtraArgs appends arguments to every lighthouse invocation.
func WithExtraArgs(args []string) Option {
	return func(l *Lighthouse) {
		l.extraArgs = args
	}
}

// WithExtraHeaders sets HTTP headers Lighthouse sends with every request
// it makes for the audited page.
func WithExtraHeaders(headers map[string]string) Option {
	return func(l *Lighthouse) {
		l.headers = headers
	}
}

// WithTempDir sets the directory for report files. Empty means os.TempDir.
func WithTempDir(dir string) Option {
	return func(l *Lighthouse) {
		l.tempDir = dir
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Lighthouse) {
		l.logger = logger
	}
}

// NewLighthouse creates a Lighthouse auditor.
func NewLighthouse(opts ...Option) *Lighthouse {
	l := &Lighthouse{
		binary:      DefaultBinary,
		chromeFlags: DefaultChromeFlags,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Version returns the version printed by the lighthouse binary.
// It returns ErrAuditorNotFound if the binary cannot be found.
func (l *Lighthouse) Version(ctx context.Context) (string, error) {
	path, err := exec.LookPath(l.binary)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrAuditorNotFound, l.binary)
	}

	out, err := exec.CommandContext(ctx, path, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("failed to get lighthouse version: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Audit runs lighthouse against pageURL and returns the decoded report.
func (l *Lighthouse) Audit(ctx context.Context, pageURL string) (*model.AuditReport, error) {
	tmp, err := os.CreateTemp(l.tempDir, "sitescore-report-*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to create report file: %w", err)
	}
	reportPath := tmp.Name()
	defer func() {
		if err := os.Remove(reportPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			l.logger.Warn("failed to remove report file", "path", reportPath, "error", err)
		}
	}()
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close report file: %w", err)
	}

	cmd := exec.CommandContext(ctx, l.binary, l.args(pageURL, reportPath)...)
	var stderr bytes.Buffer
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	l.logger.Debug("running lighthouse", "url", pageURL, "command", cmd.String())

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("audit of %s interrupted: %w", pageURL, ctxErr)
		}
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrAuditorNotFound, l.binary)
		}
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return nil, &Error{
			URL:      pageURL,
			ExitCode: exitCode,
			Stderr:   tail(stderr.String(), stderrTailSize),
			Err:      err,
		}
	}

	data, err := os.ReadFile(reportPath) //nolint:gosec // path comes from os.CreateTemp
	if err != nil {
		return nil, fmt.Errorf("failed to read report for %s: %w", pageURL, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrReportNotFound, pageURL)
	}

	report, err := ParseReport(data)
	if err != nil {
		return nil, fmt.Errorf("audit of %s: %w", pageURL, err)
	}
	if report.RequestedURL == "" {
		report.RequestedURL = pageURL
	}
	return report, nil
}

// args builds the lighthouse command line.
func (l *Lighthouse) args(pageURL, reportPath string) []string {
	args := []string{
		pageURL,
		"--output", "json",
		"--output-path", reportPath,
		"--quiet",
	}
	if l.chromeFlags != "" {
		args = append(args, "--chrome-flags="+l.chromeFlags)
	}
	if len(l.headers) > 0 {
		// A map of strings always encodes.
		headers, _ := json.Marshal(l.headers) //nolint:errchkjson
		args = append(args, "--extra-headers="+string(headers))
	}
	return append(args, l.extraArgs...)
}

// tail returns the last n bytes of s, trimmed.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
