package gh

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/google/go-github/v63/github"
	"github.com/multimediallc/covdiff/pkg/impacted"
	"github.com/rs/zerolog"
)

type NoPRError struct{}

func (e NoPRError) Error() string {
	return "PR not initialized"
}

// ProviderError is a failed GitHub call. Auth and visibility failures map to
// an unavailable comparison the user can fix by signing in again.
type ProviderError struct {
	Status int
	Err    error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("github request failed (%d): %v", e.Status, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func (e *ProviderError) Signal() *impacted.ErrorSignal {
	switch e.Status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return impacted.NewUnavailable(fmt.Sprintf("comparison not accessible (%d)", e.Status))
	}
	return nil
}

// FileReader reads repository files at one ref
type FileReader interface {
	ReadFile(path string) ([]byte, error)
	PathExists(path string) bool
}

type Client interface {
	InitPR(prID int) error
	PR() *github.PullRequest
	Refs() (base string, head string, err error)
	CompareDiff(base, head string) ([]byte, error)
	ReaderAt(ref string) FileReader
	UpsertComment(prefix, body string) error
}

type GHClient struct {
	ctx    context.Context
	owner  string
	repo   string
	client *github.Client
	pr     *github.PullRequest
	log    zerolog.Logger
}

func NewClient(owner, repo, token string, log zerolog.Logger) Client {
	client := github.NewClient(nil).WithAuthToken(token)
	return &GHClient{
		ctx:    context.Background(),
		owner:  owner,
		repo:   repo,
		client: client,
		log:    log,
	}
}

func (gh *GHClient) PR() *github.PullRequest {
	return gh.pr
}

func (gh *GHClient) InitPR(prID int) error {
	pull, res, err := gh.client.PullRequests.Get(gh.ctx, gh.owner, gh.repo, prID)
	if err != nil {
		return providerError(res, err)
	}
	defer func() {
		_ = res.Body.Close()
	}()
	gh.pr = pull
	return nil
}

// Refs returns the base and head commit SHAs of the initialized PR
func (gh *GHClient) Refs() (string, string, error) {
	if gh.pr == nil {
		return "", "", &NoPRError{}
	}
	return gh.pr.GetBase().GetSHA(), gh.pr.GetHead().GetSHA(), nil
}

// CompareDiff returns the unified diff between base and head
func (gh *GHClient) CompareDiff(base, head string) ([]byte, error) {
	gh.log.Debug().Str("base", base).Str("head", head).Msg("comparing commits")
	raw, res, err := gh.client.Repositories.CompareCommitsRaw(gh.ctx, gh.owner, gh.repo, base, head, github.RawOptions{Type: github.Diff})
	if err != nil {
		return nil, providerError(res, err)
	}
	defer func() {
		_ = res.Body.Close()
	}()
	return []byte(raw), nil
}

// ReaderAt reads repository files at ref through the contents API
func (gh *GHClient) ReaderAt(ref string) FileReader {
	return &RefReader{gh: gh, ref: ref}
}

func (gh *GHClient) fileContent(path, ref string) ([]byte, error) {
	opts := &github.RepositoryContentGetOptions{Ref: ref}
	file, _, res, err := gh.client.Repositories.GetContents(gh.ctx, gh.owner, gh.repo, path, opts)
	if err != nil {
		return nil, providerError(res, err)
	}
	defer func() {
		_ = res.Body.Close()
	}()
	if file == nil {
		return nil, fmt.Errorf("%s is a directory at %s", path, ref)
	}
	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("decoding %s at %s: %w", path, ref, err)
	}
	return []byte(content), nil
}

// UpsertComment edits the first PR comment starting with prefix, or adds a
// new one when there is none
func (gh *GHClient) UpsertComment(prefix, body string) error {
	if gh.pr == nil {
		return &NoPRError{}
	}
	if !strings.HasPrefix(body, prefix) {
		body = prefix + body
	}
	id, found, err := gh.findExistingComment(prefix)
	if err != nil {
		return err
	}
	comment := &github.IssueComment{Body: &body}
	if found {
		gh.log.Info().Int64("comment_id", id).Msg("updating coverage comment")
		_, res, err := gh.client.Issues.EditComment(gh.ctx, gh.owner, gh.repo, id, comment)
		if err != nil {
			return providerError(res, err)
		}
		return res.Body.Close()
	}
	gh.log.Info().Int("pr", gh.pr.GetNumber()).Msg("adding coverage comment")
	_, res, err := gh.client.Issues.CreateComment(gh.ctx, gh.owner, gh.repo, gh.pr.GetNumber(), comment)
	if err != nil {
		return providerError(res, err)
	}
	return res.Body.Close()
}

func (gh *GHClient) findExistingComment(prefix string) (int64, bool, error) {
	var (
		id    int64
		found bool
	)
	listComments := func(page int) (*github.Response, error) {
		listOptions := &github.IssueListCommentsOptions{ListOptions: github.ListOptions{PerPage: 100, Page: page}}
		comments, res, err := gh.client.Issues.ListComments(gh.ctx, gh.owner, gh.repo, gh.pr.GetNumber(), listOptions)
		if err != nil {
			return nil, providerError(res, err)
		}
		defer func() {
			_ = res.Body.Close()
		}()
		for _, comment := range comments {
			if !found && strings.HasPrefix(comment.GetBody(), prefix) {
				id, found = comment.GetID(), true
			}
		}
		return res, nil
	}
	if err := walkPaginatedApi(listComments); err != nil {
		return 0, false, err
	}
	return id, found, nil
}

// RefReader reads files at a fixed ref. Contents are cached per path.
type RefReader struct {
	gh  *GHClient
	ref string

	mu    sync.Mutex
	cache map[string][]byte
}

func (r *RefReader) ReadFile(path string) ([]byte, error) {
	path = strings.TrimPrefix(path, "/")
	r.mu.Lock()
	defer r.mu.Unlock()
	if content, ok := r.cache[path]; ok {
		return content, nil
	}
	content, err := r.gh.fileContent(path, r.ref)
	if err != nil {
		return nil, err
	}
	if r.cache == nil {
		r.cache = make(map[string][]byte)
	}
	r.cache[path] = content
	return content, nil
}

func (r *RefReader) PathExists(path string) bool {
	_, err := r.ReadFile(path)
	return err == nil
}

func providerError(res *github.Response, err error) error {
	status := 0
	if res != nil && res.Response != nil {
		status = res.StatusCode
	}
	var errResp *github.ErrorResponse
	if status == 0 && errors.As(err, &errResp) && errResp.Response != nil {
		status = errResp.Response.StatusCode
	}
	return &ProviderError{Status: status, Err: err}
}

func walkPaginatedApi(apiCall func(int) (*github.Response, error)) error {
	page := 1
	for {
		res, err := apiCall(page)
		if err != nil {
			return err
		}
		if res.NextPage == 0 {
			break
		}
		page = res.NextPage
	}
	return nil
}
