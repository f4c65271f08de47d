package models

import "time"

// FeedbackRequest is the payload sent by the essay submission view
type FeedbackRequest struct {
	EssayText string `json:"essayText"`
	Context   string `json:"context,omitempty"`
	UserID    string `json:"userId,omitempty"`
}

type SuggestionType string

const (
	SuggestionStructure SuggestionType = "structure"
	SuggestionClarity   SuggestionType = "clarity"
	SuggestionMindset   SuggestionType = "mindset"
	SuggestionImpact    SuggestionType = "impact"
)

func (t SuggestionType) Valid() bool {
	switch t {
	case SuggestionStructure, SuggestionClarity, SuggestionMindset, SuggestionImpact:
		return true
	}
	return false
}

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

type Suggestion struct {
	Type     SuggestionType `json:"type" bson:"type"`
	Title    string         `json:"title" bson:"title"`
	Message  string         `json:"message" bson:"message"`
	Priority Priority       `json:"priority" bson:"priority"`
}

// HighlightedIssue is a flagged passage of the essay. StartIndex and EndIndex
// are UTF-16 offsets into the submitted text; both are 0 when Located is false.
type HighlightedIssue struct {
	Text       string `json:"text" bson:"text"`
	Issue      string `json:"issue" bson:"issue"`
	Suggestion string `json:"suggestion" bson:"suggestion"`
	StartIndex int    `json:"startIndex" bson:"startIndex"`
	EndIndex   int    `json:"endIndex" bson:"endIndex"`
	Located    bool   `json:"located" bson:"located"`
}

// FeedbackResponse is the normalized analysis returned to the caller
type FeedbackResponse struct {
	StructureScore    int                `json:"structureScore" bson:"structureScore"`
	ClarityScore      int                `json:"clarityScore" bson:"clarityScore"`
	MindsetScore      int                `json:"mindsetScore" bson:"mindsetScore"`
	OverallScore      int                `json:"overallScore" bson:"overallScore"`
	Strengths         []string           `json:"strengths" bson:"strengths"`
	Weaknesses        []string           `json:"weaknesses" bson:"weaknesses"`
	Suggestions       []Suggestion       `json:"suggestions" bson:"suggestions"`
	HighlightedIssues []HighlightedIssue `json:"highlightedIssues" bson:"highlightedIssues"`
}

// AnalysisRecord is one audit row in coach_analyses
type AnalysisRecord struct {
	ID        string           `json:"id" bson:"_id"`
	UserID    string           `json:"user_id" bson:"user_id"`
	EssayText string           `json:"essay_text" bson:"essay_text"`
	Context   string           `json:"context,omitempty" bson:"context,omitempty"`
	Analysis  FeedbackResponse `json:"analysis" bson:"analysis"`
	CreatedAt time.Time        `json:"created_at" bson:"created_at"`
}
