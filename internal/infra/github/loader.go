// Package github loads topic documents from a public GitHub repository.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"exam-paper-service/internal/domain"
)

const (
	DefaultAPIBase = "https://api.github.com"
	DefaultRawBase = "https://raw.githubusercontent.com"
)

// Repo identifies the repository holding topics/<file>. An empty Branch is resolved to
// the repository's default branch on first use.
type Repo struct {
	Owner  string
	Name   string
	Branch string
}

type Loader struct {
	httpClient *http.Client
	repo       Repo
	apiBase    string
	rawBase    string
	logger     *slog.Logger

	mu     sync.Mutex
	branch string
}

// New builds a loader; empty bases fall back to the public GitHub endpoints.
func New(repo Repo, apiBase, rawBase string, logger *slog.Logger) *Loader {
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	if rawBase == "" {
		rawBase = DefaultRawBase
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		repo:       repo,
		apiBase:    strings.TrimRight(apiBase, "/"),
		rawBase:    strings.TrimRight(rawBase, "/"),
		logger:     logger.With("component", "github"),
		branch:     repo.Branch,
	}
}

// Branch returns the configured branch or asks the API for the default one. A repository
// without a default branch uses "main".
func (l *Loader) Branch(ctx context.Context) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.branch != "" {
		return l.branch, nil
	}

	url := fmt.Sprintf("%s/repos/%s/%s", l.apiBase, l.repo.Owner, l.repo.Name)
	var meta struct {
		DefaultBranch string `json:"default_branch"`
	}
	if err := l.getJSON(ctx, url, &meta); err != nil {
		return "", fmt.Errorf("resolve default branch: %w", err)
	}
	l.branch = meta.DefaultBranch
	if l.branch == "" {
		l.branch = "main"
	}
	l.logger.Info("resolved default branch", "repo", l.repo.Owner+"/"+l.repo.Name, "branch", l.branch)
	return l.branch, nil
}

func (l *Loader) LoadTopic(ctx context.Context, topic domain.Topic) (domain.TopicDocument, error) {
	branch, err := l.Branch(ctx)
	if err != nil {
		return domain.TopicDocument{}, err
	}
	url := fmt.Sprintf("%s/%s/%s/%s/topics/%s", l.rawBase, l.repo.Owner, l.repo.Name, branch, topic.File)

	start := time.Now()
	var doc domain.TopicDocument
	if err := l.getJSON(ctx, url, &doc); err != nil {
		return domain.TopicDocument{}, fmt.Errorf("load topic %s: %w", topic.ID, err)
	}
	l.logger.Debug("topic fetched", "topic", topic.ID, "questions", len(doc.Questions), "elapsed", time.Since(start))
	return doc, nil
}

// ResolveImageURL turns a repository-relative image path into a raw URL. Absolute URLs and
// empty paths are returned unchanged.
func (l *Loader) ResolveImageURL(ctx context.Context, path string) string {
	if path == "" || strings.HasPrefix(path, "http") {
		return path
	}
	branch, err := l.Branch(ctx)
	if err != nil {
		return path
	}
	return fmt.Sprintf("%s/%s/%s/%s/%s", l.rawBase, l.repo.Owner, l.repo.Name, branch, strings.TrimPrefix(path, "/"))
}

func (l *Loader) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}
