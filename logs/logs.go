// Package logs retrieves debug logs from the test execution service.
package logs

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ethereum-optimism/infra/op-testrun/reporting"
	"github.com/ethereum-optimism/infra/op-testrun/types"
)

const NoResultsMessage = "No results found"

// Fetcher fetches debug logs, either one by id or the most recent number
type Fetcher interface {
	Logs(ctx context.Context, logID string, number int) ([]types.LogRecord, error)
}

// Options selects the logs and where they go
type Options struct {
	LogID     string
	Number    int
	OutputDir string
	Color     bool
}

// Result is what a retrieval produced. Files is set instead of Logs when the
// logs were written to an output directory.
type Result struct {
	Logs  []types.LogRecord `json:"logs,omitempty"`
	Files []string          `json:"files,omitempty"`
}

// Getter prints or persists fetched logs
type Getter struct {
	log     log.Logger
	fetcher Fetcher
	out     io.Writer
}

// NewGetter creates a getter printing to out
func NewGetter(logger log.Logger, fetcher Fetcher, out io.Writer) *Getter {
	if logger == nil {
		logger = log.New()
	}
	return &Getter{log: logger, fetcher: fetcher, out: out}
}

// Get fetches the selected logs. With an output directory each log is
// written to <id>.log and the paths are returned, otherwise every log is
// printed.
func (g *Getter) Get(ctx context.Context, opts Options) (*Result, error) {
	records, err := g.fetcher.Logs(ctx, opts.LogID, opts.Number)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch logs: %w", err)
	}
	g.log.Debug("Fetched logs", "count", len(records), "id", opts.LogID, "number", opts.Number)

	if len(records) == 0 {
		fmt.Fprintln(g.out, NoResultsMessage)
		return &Result{}, nil
	}

	if opts.OutputDir != "" {
		for _, record := range records {
			if err := checkLogID(record.ID); err != nil {
				return nil, err
			}
		}
		sink, err := reporting.OpenDir(opts.OutputDir)
		if err != nil {
			return nil, err
		}
		result := &Result{}
		for _, record := range records {
			name := record.ID + ".log"
			if err := sink.WriteArtifact(name, []byte(record.Log)); err != nil {
				return nil, err
			}
			result.Files = append(result.Files, filepath.Join(sink.Dir(), name))
		}
		fmt.Fprintf(g.out, "Log files written to %s\n", sink.Dir())
		return result, nil
	}

	for _, record := range records {
		content := record.Log
		if opts.Color {
			content = Colorize(content)
		}
		fmt.Fprintln(g.out, content)
	}
	return &Result{Logs: records}, nil
}

// checkLogID rejects ids that cannot be used as a file name inside the
// output directory
func checkLogID(id string) error {
	if id == "" || id == "." || id == ".." || filepath.Base(id) != id || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("invalid log id %q", id)
	}
	return nil
}

var levelPattern = regexp.MustCompile(`\b(FATAL_ERROR|ERROR|WARN|INFO|DEBUG)\b`)

var levelColors = map[string]text.Colors{
	"FATAL_ERROR": {text.FgHiRed, text.Bold},
	"ERROR":       {text.FgRed},
	"WARN":        {text.FgYellow},
	"INFO":        {text.FgGreen},
	"DEBUG":       {text.FgCyan},
}

// Colorize highlights log level keywords
func Colorize(content string) string {
	return levelPattern.ReplaceAllStringFunc(content, func(level string) string {
		return levelColors[level].Sprint(level)
	})
}
