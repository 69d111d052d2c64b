package git

import (
	"fmt"
	"os/exec"
	"slices"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

type Diff interface {
	Files() []*diff.FileDiff
	Context() DiffContext
}

type GitDiff struct {
	context DiffContext
	diff    []*diff.FileDiff
}

type DiffContext struct {
	Base         string
	Head         string
	Dir          string
	IgnoreDirs   []string
	ContextLines int
}

type gitCommandExecutor interface {
	execute(command string, args ...string) ([]byte, error)
}

type realGitExecutor struct {
	dir string
}

func newRealGitExecutor(dir string) *realGitExecutor {
	return &realGitExecutor{dir: dir}
}

func (e *realGitExecutor) execute(command string, args ...string) ([]byte, error) {
	cmd := exec.Command(command, args...)
	cmd.Dir = e.dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w\n%s", command, strings.Join(args, " "), err, output)
	}
	return output, nil
}

func NewDiff(context DiffContext) (Diff, error) {
	return NewDiffWithExecutor(context, newRealGitExecutor(context.Dir))
}

func NewDiffWithExecutor(context DiffContext, executor gitCommandExecutor) (Diff, error) {
	output, err := executor.execute(
		"git", "diff", "-M",
		fmt.Sprintf("-U%d", context.ContextLines),
		fmt.Sprintf("%s...%s", context.Base, context.Head),
	)
	if err != nil {
		return nil, fmt.Errorf("Diff Error: %w", err)
	}
	gitDiff, err := ParseDiff(output, context.IgnoreDirs)
	if err != nil {
		return nil, err
	}
	return &GitDiff{
		context: context,
		diff:    gitDiff,
	}, nil
}

func (gd *GitDiff) Files() []*diff.FileDiff {
	return gd.diff
}

func (gd *GitDiff) Context() DiffContext {
	return gd.context
}

// ParseDiff parses a multi-file unified diff, dropping files under any of
// ignoreDirs
func ParseDiff(data []byte, ignoreDirs []string) ([]*diff.FileDiff, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return []*diff.FileDiff{}, nil
	}
	fileDiffs, err := diff.ParseMultiFileDiff(data)
	if err != nil {
		return nil, fmt.Errorf("parsing diff: %w", err)
	}
	fileDiffs = slices.DeleteFunc(fileDiffs, func(d *diff.FileDiff) bool {
		name := HeadName(d)
		if name == "" {
			name = BaseName(d)
		}
		for _, dir := range ignoreDirs {
			if strings.HasPrefix(name, dir) {
				return true
			}
		}
		return false
	})
	return fileDiffs, nil
}

const devNull = "/dev/null"

func stripPrefix(name string) string {
	if name == devNull {
		return ""
	}
	if strings.HasPrefix(name, "a/") || strings.HasPrefix(name, "b/") {
		return name[2:]
	}
	return name
}

// HeadName is the path of the file at head, empty for deleted files
func HeadName(d *diff.FileDiff) string {
	return stripPrefix(d.NewName)
}

// BaseName is the path of the file at base, empty for new files
func BaseName(d *diff.FileDiff) string {
	return stripPrefix(d.OrigName)
}
