package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"exam-paper-service/internal/app"
	"exam-paper-service/internal/domain"
	"exam-paper-service/internal/paper"
	"exam-paper-service/internal/questionbank"
	"github.com/go-chi/chi/v5"
)

// HistoryReader lists finalized attempts.
type HistoryReader interface {
	LoadHistory(ctx context.Context) ([]domain.AttemptHistoryEntry, error)
}

// ImageResolver turns repository-relative image paths into fetchable URLs.
type ImageResolver interface {
	ResolveImageURL(ctx context.Context, path string) string
}

// API serves the read-only catalogue endpoints and practice runs.
type API struct {
	bank     *questionbank.Bank
	practice *app.PracticeService
	stats    *app.StatisticsRecorder
	history  HistoryReader
	images   ImageResolver
	logger   *slog.Logger
}

func NewAPI(bank *questionbank.Bank, practice *app.PracticeService, stats *app.StatisticsRecorder, history HistoryReader, images ImageResolver, logger *slog.Logger) *API {
	return &API{
		bank:     bank,
		practice: practice,
		stats:    stats,
		history:  history,
		images:   images,
		logger:   logger.With("component", "api"),
	}
}

type topicSummary struct {
	domain.Topic
	Loaded         bool `json:"loaded"`
	MultipleChoice int  `json:"multipleChoice"`
	Structural     int  `json:"structural"`
}

func (a *API) handleTopics(w http.ResponseWriter, r *http.Request) {
	loaded := make(map[string]bool)
	for _, t := range a.bank.LoadedTopics() {
		loaded[t.ID] = true
	}
	topics := a.bank.Topics()
	out := make([]topicSummary, 0, len(topics))
	for _, t := range topics {
		sum := topicSummary{Topic: t, Loaded: loaded[t.ID]}
		if set, err := a.bank.TopicSets(t.ID); err == nil {
			sum.MultipleChoice = len(set.MultipleChoice)
			sum.Structural = len(set.Structural)
		}
		out = append(out, sum)
	}
	writeJSON(w, http.StatusOK, out)
}

type reloadSummary struct {
	Topics    int `json:"topics"`
	Questions int `json:"questions"`
}

// handleReload refetches the topic catalogue and rebuilds the paper index.
func (a *API) handleReload(w http.ResponseWriter, r *http.Request) {
	n, err := a.bank.Reload(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reloadSummary{Topics: len(a.bank.LoadedTopics()), Questions: n})
}

type paperSummary struct {
	Key    string                   `json:"key"`
	Source string                   `json:"source"`
	Year   string                   `json:"year"`
	Parts  map[domain.PaperPart]int `json:"parts"`
}

func (a *API) handlePapers(w http.ResponseWriter, r *http.Request) {
	keys := a.bank.YearKeys()
	out := make([]paperSummary, 0, len(keys))
	for _, key := range keys {
		group, ok := a.bank.YearGroup(key)
		if !ok {
			continue
		}
		sum := paperSummary{Key: key, Source: group.Source, Year: group.Year, Parts: make(map[domain.PaperPart]int)}
		for _, part := range domain.AllParts {
			sum.Parts[part] = len(group.Questions(part))
		}
		out = append(out, sum)
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) handlePaper(w http.ResponseWriter, r *http.Request) {
	key, err := url.PathUnescape(chi.URLParam(r, "yearKey"))
	if err != nil {
		a.writeError(w, r, domain.ErrYearNotFound)
		return
	}
	group, ok := a.bank.YearGroup(key)
	if !ok {
		a.writeError(w, r, domain.ErrYearNotFound)
		return
	}
	resolved := paper.YearGroup{Key: group.Key, Source: group.Source, Year: group.Year, Parts: make(map[domain.PaperPart][]domain.Question)}
	for part, qs := range group.Parts {
		resolved.Parts[part] = a.resolveImages(r.Context(), qs)
	}
	writeJSON(w, http.StatusOK, resolved)
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.stats.Statistics(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := a.history.LoadHistory(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type practiceRequest struct {
	TopicID string `json:"topicId"`
	Kind    string `json:"kind"`
	YearKey string `json:"yearKey"`
}

func (a *API) handleStartPractice(w http.ResponseWriter, r *http.Request) {
	var req practiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid practice request"))
		return
	}

	var (
		title     string
		questions []domain.Question
	)
	switch {
	case req.YearKey != "":
		qs, err := a.bank.YearSet(req.YearKey)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		title, questions = req.YearKey, qs
	case req.TopicID != "":
		set, err := a.bank.TopicSets(req.TopicID)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		topic, _ := a.bank.Topic(req.TopicID)
		switch req.Kind {
		case "mc", "":
			title, questions = topic.Name+" (multiple choice)", set.MultipleChoice
		case "structural":
			title, questions = topic.Name+" (structural)", set.Structural
		default:
			writeJSON(w, http.StatusBadRequest, errorBody("kind must be mc or structural"))
			return
		}
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("topicId or yearKey required"))
		return
	}

	view, err := a.practice.Start(r.Context(), title, questions)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a.resolveView(r.Context(), view))
}

func (a *API) handleCurrentPractice(w http.ResponseWriter, r *http.Request) {
	view, err := a.practice.Current()
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.resolveView(r.Context(), view))
}

func (a *API) handleCheckPractice(w http.ResponseWriter, r *http.Request) {
	var resp domain.Response
	if err := json.NewDecoder(r.Body).Decode(&resp); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid response"))
		return
	}
	result, err := a.practice.Check(r.Context(), resp)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleNextPractice(w http.ResponseWriter, r *http.Request) {
	view, err := a.practice.Next()
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.resolveView(r.Context(), view))
}

func (a *API) resolveView(ctx context.Context, v app.PracticeView) app.PracticeView {
	if v.Question != nil {
		q := a.resolveImages(ctx, []domain.Question{*v.Question})[0]
		v.Question = &q
	}
	return v
}

// resolveImages returns copies of qs with every image path made absolute.
func (a *API) resolveImages(ctx context.Context, qs []domain.Question) []domain.Question {
	if a.images == nil {
		return qs
	}
	out := make([]domain.Question, len(qs))
	for i, q := range qs {
		q.Image = a.images.ResolveImageURL(ctx, q.Image)
		if len(q.Options) > 0 {
			opts := make([]domain.Option, len(q.Options))
			for j, o := range q.Options {
				o.Image = a.images.ResolveImageURL(ctx, o.Image)
				opts[j] = o
			}
			q.Options = opts
		}
		if q.StructuralAnswer != nil {
			sa := *q.StructuralAnswer
			sa.Image = a.images.ResolveImageURL(ctx, sa.Image)
			q.StructuralAnswer = &sa
		}
		out[i] = q
	}
	return out
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed", "path", r.URL.Path, "error", err)
	} else {
		a.logger.Debug("request rejected", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorBody(err.Error()))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrYearNotFound),
		errors.Is(err, domain.ErrTopicNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrNoPracticeSession),
		errors.Is(err, domain.ErrNoActiveAttempt):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNoQuestionsAvailable),
		errors.Is(err, domain.ErrInvalidResponse),
		errors.Is(err, domain.ErrOptionNotFound),
		errors.Is(err, domain.ErrInvalidMode):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrConfirmationDeclined),
		errors.Is(err, domain.ErrAttemptFinished),
		errors.Is(err, domain.ErrAttemptNotFinished):
		return http.StatusConflict
	case errors.Is(err, domain.ErrTopicsUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func errorBody(msg string) errorResponse {
	return errorResponse{Error: msg}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
