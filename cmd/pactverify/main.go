// Command pactverify is the CLI front end over pkg/verify: it reads a
// pact auditor pack from disk and prints either the human summary line
// or the canonical Report as JSON, per spec.md §6-7. Grounded on the
// teacher's core/cmd/helm flag-based dispatch, adapted from a
// multi-command kernel CLI down to this tool's single verification
// command.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/pactaudit/verifier/pkg/verdict"
	"github.com/pactaudit/verifier/pkg/verify"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr *os.File) int {
	fs := flag.NewFlagSet("pactverify", flag.ContinueOnError)
	fs.SetOutput(stderr)

	bundlePath := fs.String("bundle", "", "path to the pact auditor pack (.zip)")
	allowNonstandard := fs.Bool("allow-nonstandard", false, "tolerate a Constitution whose hash does not match the -standard-constitution text")
	standardConstitutionPath := fs.String("standard-constitution", "", "path to the one standard Constitution text file this run recognizes (optional)")
	jsonOut := fs.Bool("json", false, "print the canonical Report as JSON instead of the human summary line")
	jsonOutPath := fs.String("json-out", "", "also write the canonical Report as JSON to this path")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *bundlePath == "" {
		fmt.Fprintln(stderr, "pactverify: -bundle is required")
		return 2
	}

	runID := uuid.NewString()
	logger := slog.New(slog.NewTextHandler(stderr, nil)).With("run_id", runID)

	archiveBytes, err := os.ReadFile(*bundlePath)
	if err != nil {
		logger.Error("failed to read bundle", "path", *bundlePath, "error", err)
		return 2
	}

	var standardTexts [][]byte
	if *standardConstitutionPath != "" {
		text, err := os.ReadFile(*standardConstitutionPath)
		if err != nil {
			logger.Error("failed to read standard constitution", "path", *standardConstitutionPath, "error", err)
			return 2
		}
		standardTexts = append(standardTexts, text)
	}

	logger.Info("verifying bundle", "path", *bundlePath, "allow_nonstandard", *allowNonstandard)

	report := verify.Verify(archiveBytes, verify.Options{
		AllowNonstandard:         *allowNonstandard,
		StandardConstitutionText: standardTexts,
	})

	logger.Info("verification complete", "status", report.Status, "ok", report.OK)

	if *jsonOutPath != "" {
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			logger.Error("failed to marshal report", "error", err)
			return 2
		}
		if err := os.WriteFile(*jsonOutPath, out, 0o644); err != nil {
			logger.Error("failed to write json-out", "path", *jsonOutPath, "error", err)
			return 2
		}
	}

	if *jsonOut {
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			logger.Error("failed to marshal report", "error", err)
			return 2
		}
		fmt.Fprintln(stdout, string(out))
	} else {
		outcome := "SETTLED"
		if !report.OK {
			outcome = "FLAGGED"
		}
		fmt.Fprintln(stdout, verdict.Summary(outcome, report.MoneyMoved, report.Judgment, report.Status, report.Confidence))
	}

	if report.OK {
		return 0
	}
	return 1
}
