package app

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/multimediallc/covdiff/internal/config"
	"github.com/multimediallc/covdiff/internal/git"
	gh "github.com/multimediallc/covdiff/internal/github"
	"github.com/multimediallc/covdiff/internal/uploads"
	f "github.com/multimediallc/covdiff/pkg/functional"
	"github.com/multimediallc/covdiff/pkg/impacted"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/go-diff/diff"
	"golang.org/x/sync/errgroup"
)

// FileResult is the outcome for one impacted file: a render model, or the
// signal a renderer shows instead
type FileResult struct {
	Path   string                `json:"path"`
	Model  *impacted.RenderModel `json:"model,omitempty"`
	Signal *impacted.ErrorSignal `json:"signal,omitempty"`
}

// OutputData holds the data that will be written to GITHUB_OUTPUT
type OutputData struct {
	Base      string                `json:"base"`
	Head      string                `json:"head"`
	UploadIDs []int                 `json:"upload_ids"`
	Files     []FileResult          `json:"files"`
	Totals    impacted.Stats        `json:"totals"`
	Signal    *impacted.ErrorSignal `json:"signal,omitempty"`
	Success   bool                  `json:"success"`
	Message   string                `json:"message"`
}

// Config holds the application configuration
type Config struct {
	Token          string
	RepoDir        string
	PR             int
	Repo           string
	Base           string
	Head           string
	UploadsDir     string
	IgnoredUploads []int
	Comment        bool
	Verbose        bool
	InfoBuffer     io.Writer
	WarningBuffer  io.Writer
}

// App represents the application with its dependencies
type App struct {
	Conf      *config.Config
	config    *Config
	client    gh.Client
	log       zerolog.Logger
	newDiff   func(git.DiffContext) (git.Diff, error)
	newReader func(ref string) fileReader
}

type fileReader interface {
	ReadFile(path string) ([]byte, error)
	PathExists(path string) bool
}

// New creates a new App instance with the given configuration. A GitHub
// client is set up only when a repo is given; otherwise the local git
// checkout is compared.
func New(cfg Config) (*App, error) {
	log := NewLogger(cfg.WarningBuffer, cfg.InfoBuffer, cfg.Verbose)
	app := &App{
		config:  &cfg,
		log:     log,
		newDiff: git.NewDiff,
		newReader: func(ref string) fileReader {
			return git.NewGitRefFileReader(ref, cfg.RepoDir)
		},
	}
	if cfg.Repo == "" {
		if cfg.Base == "" || cfg.Head == "" {
			return nil, fmt.Errorf("base and head refs are required without a repo")
		}
		return app, nil
	}

	repoSplit := strings.Split(cfg.Repo, "/")
	if len(repoSplit) != 2 {
		return nil, fmt.Errorf("invalid repo name: %s", cfg.Repo)
	}
	app.client = gh.NewClient(repoSplit[0], repoSplit[1], cfg.Token, log)
	return app, nil
}

// Run executes the application logic
func (a *App) Run() (*OutputData, error) {
	base, head, err := a.refs()
	if err != nil {
		return a.failed(err)
	}
	out := &OutputData{Base: base, Head: head, Files: []FileResult{}}
	a.log.Debug().Str("base", base).Str("head", head).Msg("comparing")

	baseReader, headReader := a.readers(base, head)
	conf, err := config.ReadConfig("", baseReader)
	if err != nil {
		a.log.Warn().Err(err).Msgf("error reading %s - using default config", config.FileName)
	}
	a.Conf = conf

	fileDiffs, err := a.fileDiffs(base, head)
	if err != nil {
		var pe *gh.ProviderError
		if errors.As(err, &pe) && pe.Signal() != nil {
			out.Signal = pe.Signal()
			out.Message = out.Signal.Error()
			return out, nil
		}
		return a.failed(err)
	}

	index, err := a.coverageIndex()
	if err != nil {
		return a.failed(err)
	}
	out.UploadIDs = index.UploadIDs()

	comparison := &git.Comparison{
		Coverage:   index,
		HeadReader: headReader,
		IsCritical: func(path string) bool { return conf.IsCritical(path, a.log) },
		Log:        a.log,
	}
	rawFiles := comparison.ImpactedFiles(fileDiffs)

	assembler, err := impacted.NewAssembler(conf.Cache.MaxEntries, a.log)
	if err != nil {
		return a.failed(err)
	}
	out.Files = AssembleAll(assembler, rawFiles, conf.IgnoredSet(a.config.IgnoredUploads...), *conf.Capabilities)
	for _, file := range out.Files {
		if file.Signal != nil {
			a.log.Warn().Str("file", file.Path).Str("kind", string(file.Signal.Kind)).Msg(file.Signal.Reason)
			continue
		}
		out.Totals.Covered += file.Model.Stats.Covered
		out.Totals.Uncovered += file.Model.Stats.Uncovered
		out.Totals.Partial += file.Model.Stats.Partial
	}
	out.Success = true
	out.Message = fmt.Sprintf("%d impacted files", len(out.Files))

	if a.config.Comment && a.client != nil && a.config.PR != 0 {
		if err := a.client.UpsertComment(CommentPrefix, Summary(out)); err != nil {
			a.log.Warn().Err(err).Msg("could not post coverage comment")
		}
	}
	return out, nil
}

func (a *App) failed(err error) (*OutputData, error) {
	return &OutputData{Message: err.Error()}, err
}

func (a *App) refs() (string, string, error) {
	if a.client == nil || a.config.PR == 0 {
		if a.config.Base == "" || a.config.Head == "" {
			return "", "", fmt.Errorf("base and head refs are required without a PR")
		}
		return a.config.Base, a.config.Head, nil
	}
	if err := a.client.InitPR(a.config.PR); err != nil {
		return "", "", fmt.Errorf("InitPR Error: %w", err)
	}
	a.log.Debug().Int("pr", a.client.PR().GetNumber()).Msg("PR initialized")
	return a.client.Refs()
}

func (a *App) readers(base, head string) (fileReader, fileReader) {
	if a.client != nil {
		return a.client.ReaderAt(base), a.client.ReaderAt(head)
	}
	return a.newReader(base), a.newReader(head)
}

func (a *App) fileDiffs(base, head string) ([]*diff.FileDiff, error) {
	if a.client != nil {
		raw, err := a.client.CompareDiff(base, head)
		if err != nil {
			return nil, fmt.Errorf("CompareDiff Error: %w", err)
		}
		return git.ParseDiff(raw, a.Conf.Ignore)
	}
	gitDiff, err := a.newDiff(git.DiffContext{
		Base:         base,
		Head:         head,
		Dir:          a.config.RepoDir,
		IgnoreDirs:   a.Conf.Ignore,
		ContextLines: *a.Conf.ContextLines,
	})
	if err != nil {
		return nil, fmt.Errorf("NewGitDiff Error: %w", err)
	}
	return gitDiff.Files(), nil
}

func (a *App) coverageIndex() (*uploads.Index, error) {
	if a.config.UploadsDir == "" {
		a.log.Warn().Msg("no uploads dir given - every line is blank")
		return uploads.NewIndex()
	}
	reports, err := uploads.Load(a.config.UploadsDir, a.log)
	if err != nil {
		return nil, err
	}
	return uploads.NewIndex(reports...)
}

// AssembleAll builds the render model of every file concurrently through the
// shared assembler. Results keep the order of rawFiles.
func AssembleAll(assembler *impacted.Assembler, rawFiles []*impacted.RawFile, ignored f.Set[int], caps impacted.Capabilities) []FileResult {
	results := make([]FileResult, len(rawFiles))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, raw := range rawFiles {
		g.Go(func() error {
			model, sig := assembler.AssembleFile(raw, ignored, caps)
			results[i] = FileResult{Path: raw.HeadName, Model: model, Signal: sig}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
