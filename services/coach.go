package services

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"time"
	"unicode/utf16"
	"unicode/utf8"

	"essaycoach/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MinEssayLength is counted in UTF-16 code units after trimming.
const MinEssayLength = 100

const errEssayTooShort = "Essay text must be at least 100 characters long"

// AnalysisStore persists audit records of completed analyses.
type AnalysisStore interface {
	Insert(ctx context.Context, rec models.AnalysisRecord) error
	ListByUser(ctx context.Context, userID string, limit int) ([]models.AnalysisRecord, error)
}

type CoachService struct {
	generator TextGenerator
	store     AnalysisStore
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

// NewCoachService accepts a nil store; persistence is then skipped.
func NewCoachService(generator TextGenerator, store AnalysisStore, logger *zap.Logger) *CoachService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CoachService{
		generator: generator,
		store:     store,
		logger:    logger,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
}

func (s *CoachService) HasStore() bool { return s.store != nil }

// Analyze validates the essay, asks the generator for feedback and
// normalizes the reply. Persistence failures are logged, never returned.
func (s *CoachService) Analyze(ctx context.Context, req models.FeedbackRequest) (*models.FeedbackResponse, error) {
	if err := ValidateEssay(req.EssayText); err != nil {
		return nil, err
	}
	if s.generator == nil {
		return nil, NewConfigError("text generator not configured")
	}

	prompt := BuildPrompt(req.EssayText, req.Context)
	raw, err := s.generator.GenerateJSON(ctx, prompt.System, prompt.User)
	if err != nil {
		return nil, err
	}

	reply, err := parseReply(raw)
	if err != nil {
		s.logger.Error("malformed model reply", zap.Error(err), zap.Int("reply_len", len(raw)))
		return nil, err
	}

	resp := s.normalize(reply, req.EssayText)

	if req.UserID != "" && s.store != nil {
		s.persist(ctx, req, *resp)
	}
	return resp, nil
}

// History lists stored analyses for a user, newest first.
func (s *CoachService) History(ctx context.Context, userID string, limit int) ([]models.AnalysisRecord, error) {
	if s.store == nil {
		return nil, NewConfigError("persistence not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return nil, NewInvalidError("userId required")
	}
	return s.store.ListByUser(ctx, userID, limit)
}

func (s *CoachService) persist(ctx context.Context, req models.FeedbackRequest, resp models.FeedbackResponse) {
	rec := models.AnalysisRecord{
		ID:        s.newID(),
		UserID:    req.UserID,
		EssayText: req.EssayText,
		Context:   req.Context,
		Analysis:  resp,
		CreatedAt: s.now().UTC(),
	}
	// The caller may have gone away; the audit row should still land.
	ctx = context.WithoutCancel(ctx)
	if err := s.store.Insert(ctx, rec); err != nil {
		s.logger.Warn("failed to store analysis",
			zap.String("user_id", req.UserID),
			zap.String("analysis_id", rec.ID),
			zap.Error(err))
	}
}

func ValidateEssay(text string) error {
	if utf16Len(strings.TrimSpace(text)) < MinEssayLength {
		return NewInvalidError(errEssayTooShort)
	}
	return nil
}

// WordCount mirrors the submission view's advisory word gate.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

type modelReply struct {
	StructureScore    *float64            `json:"structureScore"`
	ClarityScore      *float64            `json:"clarityScore"`
	MindsetScore      *float64            `json:"mindsetScore"`
	Strengths         []string            `json:"strengths"`
	Weaknesses        []string            `json:"weaknesses"`
	Suggestions       []models.Suggestion `json:"suggestions"`
	HighlightedIssues []struct {
		Text       string `json:"text"`
		Issue      string `json:"issue"`
		Suggestion string `json:"suggestion"`
	} `json:"highlightedIssues"`
}

func parseReply(raw string) (*modelReply, error) {
	var reply modelReply
	if err := json.Unmarshal([]byte(cleanModelOutput(raw)), &reply); err != nil {
		return nil, NewMalformedReplyError("invalid analysis format", err)
	}
	if reply.StructureScore == nil || reply.ClarityScore == nil || reply.MindsetScore == nil {
		return nil, NewMalformedReplyError("invalid analysis format: missing scores", nil)
	}
	return &reply, nil
}

func (s *CoachService) normalize(reply *modelReply, essay string) *models.FeedbackResponse {
	resp := &models.FeedbackResponse{
		StructureScore:    s.score("structureScore", *reply.StructureScore),
		ClarityScore:      s.score("clarityScore", *reply.ClarityScore),
		MindsetScore:      s.score("mindsetScore", *reply.MindsetScore),
		Strengths:         nonEmpty(reply.Strengths),
		Weaknesses:        nonEmpty(reply.Weaknesses),
		Suggestions:       []models.Suggestion{},
		HighlightedIssues: []models.HighlightedIssue{},
	}
	resp.OverallScore = OverallScore(resp.StructureScore, resp.ClarityScore, resp.MindsetScore)

	for _, sg := range reply.Suggestions {
		if !sg.Type.Valid() || !sg.Priority.Valid() {
			s.logger.Warn("dropping suggestion with unknown tag",
				zap.String("type", string(sg.Type)), zap.String("priority", string(sg.Priority)))
			continue
		}
		resp.Suggestions = append(resp.Suggestions, sg)
	}

	for _, hi := range reply.HighlightedIssues {
		if hi.Text == "" {
			continue
		}
		issue := models.HighlightedIssue{Text: hi.Text, Issue: hi.Issue, Suggestion: hi.Suggestion}
		if start, end, ok := LocateSnippet(essay, hi.Text); ok {
			issue.StartIndex, issue.EndIndex, issue.Located = start, end, true
		}
		resp.HighlightedIssues = append(resp.HighlightedIssues, issue)
	}
	return resp
}

func (s *CoachService) score(name string, v float64) int {
	n := int(math.Round(v))
	switch {
	case n < 0:
		s.logger.Warn("clamping out-of-range score", zap.String("score", name), zap.Float64("value", v))
		return 0
	case n > 100:
		s.logger.Warn("clamping out-of-range score", zap.String("score", name), zap.Float64("value", v))
		return 100
	}
	return n
}

// OverallScore is the rounded unweighted mean of the three sub-scores.
func OverallScore(structure, clarity, mindset int) int {
	return int(math.Round(float64(structure+clarity+mindset) / 3))
}

// LocateSnippet finds the first exact occurrence of snippet in text and
// returns its UTF-16 offsets. ok is false when the snippet does not occur.
func LocateSnippet(text, snippet string) (start, end int, ok bool) {
	if snippet == "" {
		return 0, 0, false
	}
	i := strings.Index(text, snippet)
	if i < 0 {
		return 0, 0, false
	}
	start = utf16Len(text[:i])
	return start, start + utf16Len(snippet), true
}

func utf16Len(s string) int {
	n := 0
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		n += utf16.RuneLen(r)
		s = s[size:]
	}
	return n
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
