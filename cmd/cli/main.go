package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/multimediallc/covdiff/internal/app"
	"github.com/multimediallc/covdiff/internal/uploads"
	f "github.com/multimediallc/covdiff/pkg/functional"
	"github.com/multimediallc/covdiff/pkg/impacted"
	"github.com/urfave/cli/v2"
)

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   string(FormatDefault),
		Usage:   "Output format: default, one-line or json",
	}
}

func ignoreFlag() cli.Flag {
	return &cli.IntSliceFlag{
		Name:    "ignore",
		Aliases: []string{"i"},
		Usage:   "Upload ids whose hits are left out of hit counts",
	}
}

func uploadsFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "uploads",
		Aliases: []string{"u"},
		Usage:   "Directory with coverage upload reports",
	}
}

func newApp(stdout io.Writer) *cli.App {
	return &cli.App{
		Name:        "covdiff",
		Usage:       "Coverage-annotated diffs",
		Description: "Render coverage annotated diffs of impacted files",
		Writer:      stdout,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Verbose output",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "render",
				Aliases:   []string{"r"},
				Usage:     "Render impacted file payloads",
				ArgsUsage: "[payload.json...]",
				Flags: []cli.Flag{
					formatFlag(),
					ignoreFlag(),
					&cli.BoolFlag{
						Name:  "bundle-analysis",
						Usage: "Bundle analysis is enabled for the repository",
					},
				},
				Action: func(cCtx *cli.Context) error {
					format, err := validateFormat(cCtx.String("format"))
					if err != nil {
						return err
					}
					caps := impacted.Capabilities{LineCoverage: true, BundleAnalysis: cCtx.Bool("bundle-analysis")}
					return renderPayloads(cCtx.App.Writer, cCtx.Args().Slice(), f.NewSet(cCtx.IntSlice("ignore")...), caps, format, cCtx.Bool("verbose"))
				},
			},
			{
				Name:    "local",
				Aliases: []string{"l"},
				Usage:   "Compare two refs of a local Git repo",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "root",
						Aliases: []string{"r", "repo"},
						Value:   "./",
						Usage:   "Path to local Git repo",
					},
					&cli.StringFlag{
						Name:     "base",
						Aliases:  []string{"b"},
						Usage:    "Base ref",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "head",
						Value: "HEAD",
						Usage: "Head ref",
					},
					uploadsFlag(),
					ignoreFlag(),
					formatFlag(),
				},
				Action: func(cCtx *cli.Context) error {
					return runApp(cCtx, app.Config{
						RepoDir:        cCtx.String("root"),
						Base:           cCtx.String("base"),
						Head:           cCtx.String("head"),
						UploadsDir:     cCtx.String("uploads"),
						IgnoredUploads: cCtx.IntSlice("ignore"),
					})
				},
			},
			{
				Name:    "github",
				Aliases: []string{"gh"},
				Usage:   "Compare the base and head of a GitHub pull request",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "repo",
						Usage:    "GitHub repo name (owner/name)",
						Required: true,
					},
					&cli.IntFlag{
						Name:     "pr",
						Usage:    "Pull Request number",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "token",
						Usage:   "GitHub authentication token",
						EnvVars: []string{"GITHUB_TOKEN"},
					},
					&cli.BoolFlag{
						Name:  "comment",
						Usage: "Post a summary comment on the pull request",
					},
					uploadsFlag(),
					ignoreFlag(),
					formatFlag(),
				},
				Action: func(cCtx *cli.Context) error {
					return runApp(cCtx, app.Config{
						Repo:           cCtx.String("repo"),
						PR:             cCtx.Int("pr"),
						Token:          cCtx.String("token"),
						Comment:        cCtx.Bool("comment"),
						UploadsDir:     cCtx.String("uploads"),
						IgnoredUploads: cCtx.IntSlice("ignore"),
					})
				},
			},
			{
				Name:      "uploads",
				Aliases:   []string{"u"},
				Usage:     "List the coverage uploads found in a directory",
				ArgsUsage: "<dir>",
				Flags:     []cli.Flag{formatFlag()},
				Action: func(cCtx *cli.Context) error {
					format, err := validateFormat(cCtx.String("format"))
					if err != nil {
						return err
					}
					if cCtx.NArg() != 1 {
						return fmt.Errorf("expected one uploads directory")
					}
					return listUploads(cCtx.App.Writer, cCtx.Args().First(), format, cCtx.Bool("verbose"))
				},
			},
		},
	}
}

func main() {
	err := newApp(os.Stdout).Run(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func runApp(cCtx *cli.Context, cfg app.Config) error {
	format, err := validateFormat(cCtx.String("format"))
	if err != nil {
		return err
	}
	cfg.Verbose = cCtx.Bool("verbose")
	cfg.WarningBuffer = os.Stderr
	cfg.InfoBuffer = os.Stderr

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	out, err := a.Run()
	if err != nil {
		return err
	}
	return printOutput(cCtx.App.Writer, out, format)
}

// renderPayloads renders impacted file payloads read from files, or from
// stdin when no file is given
func renderPayloads(w io.Writer, paths []string, ignored f.Set[int], caps impacted.Capabilities, format OutputFormat, verbose bool) error {
	payloads := make([][]byte, 0, len(paths))
	names := make([]string, 0, len(paths))
	if len(paths) == 0 {
		if !isStdinPiped() {
			return fmt.Errorf("no payload files given and nothing piped to stdin")
		}
		data, err := readStdin()
		if err != nil {
			return err
		}
		payloads = append(payloads, data)
		names = append(names, "stdin")
	}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading payload: %w", err)
		}
		payloads = append(payloads, data)
		names = append(names, path)
	}

	warn := &bytes.Buffer{}
	log := app.NewLogger(warn, os.Stderr, verbose)
	assembler, err := impacted.NewAssembler(impacted.DefaultMaxEntries, log)
	if err != nil {
		return err
	}
	for i, payload := range payloads {
		model, sig := assembler.Assemble(payload, ignored, caps)
		result := app.FileResult{Path: names[i], Model: model, Signal: sig}
		if model != nil {
			result.Path = model.HeadName
		}
		if err := printResult(w, result, format); err != nil {
			return err
		}
	}
	_, err = warn.WriteTo(os.Stderr)
	return err
}

func listUploads(w io.Writer, dir string, format OutputFormat, verbose bool) error {
	log := app.NewLogger(os.Stderr, os.Stderr, verbose)
	reports, err := uploads.Load(dir, log)
	if err != nil {
		return err
	}
	if _, err := uploads.NewIndex(reports...); err != nil {
		return err
	}
	if format == FormatJSON {
		type upload struct {
			UploadID int          `json:"uploadId"`
			Side     uploads.Side `json:"side"`
			Flags    []string     `json:"flags"`
			Files    int          `json:"files"`
		}
		return printJSON(w, f.Map(reports, func(r uploads.Report) upload {
			return upload{UploadID: r.UploadID, Side: r.Side, Flags: r.Flags, Files: len(r.Files)}
		}))
	}
	for _, r := range reports {
		if format == FormatOneLine {
			_, _ = fmt.Fprintf(w, "%d\n", r.UploadID)
			continue
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%d files\t%v\n", r.UploadID, r.Side, len(r.Files), r.Flags)
	}
	return nil
}
