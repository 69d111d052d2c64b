package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/multimediallc/covdiff/internal/app"
	f "github.com/multimediallc/covdiff/pkg/functional"
)

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func ignoreError[V any, E error](res V, _ E) V {
	return res
}

var (
	WarningBuffer = bytes.NewBuffer([]byte{})
	InfoBuffer    = bytes.NewBuffer([]byte{})
)

type flags struct {
	token          *string
	repoDir        *string
	pr             *int
	repo           *string
	uploadsDir     *string
	ignoredUploads *string
	comment        *bool
	failOnSignal   *bool
	verbose        *bool
}

func newFlags(fs *flag.FlagSet) *flags {
	return &flags{
		token:          fs.String("token", getEnv("INPUT_GITHUB-TOKEN", ""), "GitHub authentication token"),
		repoDir:        fs.String("dir", getEnv("GITHUB_WORKSPACE", "/"), "Path to local Git repo"),
		pr:             fs.Int("pr", ignoreError(strconv.Atoi(getEnv("INPUT_PR", ""))), "Pull Request number"),
		repo:           fs.String("repo", getEnv("INPUT_REPOSITORY", ""), "GitHub repo name"),
		uploadsDir:     fs.String("uploads", getEnv("INPUT_UPLOADS", ""), "Directory with coverage upload reports"),
		ignoredUploads: fs.String("ignore", getEnv("INPUT_IGNORED-UPLOADS", ""), "Comma separated upload ids to leave out of hit counts"),
		comment:        fs.Bool("comment", ignoreError(strconv.ParseBool(getEnv("INPUT_COMMENT", "true"))), "Post a summary comment"),
		failOnSignal:   fs.Bool("fail-on-unavailable", ignoreError(strconv.ParseBool(getEnv("INPUT_FAIL-ON-UNAVAILABLE", "0"))), "Fail when the comparison cannot be loaded"),
		verbose:        fs.Bool("v", ignoreError(strconv.ParseBool(getEnv("INPUT_VERBOSE", "0"))), "Verbose output"),
	}
}

func (fl *flags) missing() []string {
	badFlags := make([]string, 0, 3)
	if *fl.token == "" {
		badFlags = append(badFlags, "token")
	}
	if *fl.pr == 0 {
		badFlags = append(badFlags, "pr")
	}
	if *fl.repo == "" {
		badFlags = append(badFlags, "repo")
	}
	return badFlags
}

func parseIgnored(value string) ([]int, error) {
	ids := make([]int, 0)
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid upload id %q", part)
		}
		ids = append(ids, id)
	}
	return f.RemoveDuplicates(ids), nil
}

// shouldFail should always be true for errors that are not recoverable
func errorAndExit(shouldFail bool, verbose bool, format string, args ...interface{}) {
	_, err := WarningBuffer.WriteTo(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing warning buffer: %v\n", err)
	}
	if verbose {
		_, err := InfoBuffer.WriteTo(os.Stderr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing info buffer: %v\n", err)
		}
	}
	fmt.Fprintf(os.Stderr, format, args...)
	if shouldFail {
		os.Exit(1)
	} else {
		os.Exit(0)
	}
}

// writeOutput writes the run result in the GITHUB_OUTPUT file format
func writeOutput(w io.Writer, out *app.OutputData) error {
	data, err := json.Marshal(out)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data<<COVDIFF_EOF\n%s\nCOVDIFF_EOF\nsuccess=%t\n", data, out.Success)
	return err
}

func appendOutput(path string, out *app.OutputData) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	if err := writeOutput(file, out); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func main() {
	fl := newFlags(flag.CommandLine)
	flag.Parse()
	if badFlags := fl.missing(); len(badFlags) > 0 {
		errorAndExit(true, *fl.verbose, "Required flags or environment variables not set: %s\n", badFlags)
	}
	ignored, err := parseIgnored(*fl.ignoredUploads)
	if err != nil {
		errorAndExit(true, *fl.verbose, "%v\n", err)
	}

	a, err := app.New(app.Config{
		Token:          *fl.token,
		RepoDir:        *fl.repoDir,
		PR:             *fl.pr,
		Repo:           *fl.repo,
		UploadsDir:     *fl.uploadsDir,
		IgnoredUploads: ignored,
		Comment:        *fl.comment,
		Verbose:        *fl.verbose,
		InfoBuffer:     InfoBuffer,
		WarningBuffer:  WarningBuffer,
	})
	if err != nil {
		errorAndExit(true, *fl.verbose, "Failed to initialize app: %v\n", err)
	}

	out, err := a.Run()
	if err != nil {
		errorAndExit(true, *fl.verbose, "%v\n", err)
	}

	if path := os.Getenv("GITHUB_OUTPUT"); path != "" {
		if err := appendOutput(path, out); err != nil {
			errorAndExit(true, *fl.verbose, "Error writing GITHUB_OUTPUT: %v\n", err)
		}
	}

	if out.Signal != nil {
		errorAndExit(*fl.failOnSignal, *fl.verbose, "Coverage diff unavailable: %s\n", out.Signal.Error())
	}
	errorAndExit(false, *fl.verbose, "%s\n", out.Message)
}
