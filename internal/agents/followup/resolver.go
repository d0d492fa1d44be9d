// Package followup detects questions that lean on earlier turns and
// rewrites them into standalone queries.
package followup

import (
	"context"
	"strings"

	"ledger-assistant/internal/common/logger"
	"ledger-assistant/internal/entities"
)

// rewriteWindow is how many recent turns the rewriter sees.
const rewriteWindow = 3

// shortQuestionTokens marks a question as a likely follow-up when history
// exists: elliptical questions tend to be very short.
const shortQuestionTokens = 5

// Rewriter produces a standalone version of a context-dependent question.
// Implemented by the NL collaborator client.
type Rewriter interface {
	RewriteQuery(ctx context.Context, query string, history []entities.Turn) (string, error)
}

// Result reports what the resolver decided for this question.
type Result struct {
	Query           string
	WasFollowUp     bool
	ClearTimeframes bool
	Note            string
}

// Resolver flags follow-ups and asks the Rewriter to expand them.
type Resolver struct {
	rewriter Rewriter
	logger   logger.Logger
}

func New(rewriter Rewriter, log logger.Logger) *Resolver {
	return &Resolver{
		rewriter: rewriter,
		logger:   log.WithFields(map[string]interface{}{"agent": "followup-resolver"}),
	}
}

var referringPronouns = []string{
	"it", "its", "they", "them", "their", "that", "those", "this", "these",
	"same",
}

var continuationMarkers = []string{
	"what about", "how about", "and what", "and how", "and for", "and in",
	"also", "too", "as well", "instead", "compare", "versus", "vs",
}

// IsFollowUp reports whether the question depends on prior turns. Without
// history nothing is a follow-up.
func (r *Resolver) IsFollowUp(query string, history []entities.Turn) bool {
	if len(history) == 0 {
		return false
	}

	lower := strings.ToLower(strings.TrimSpace(query))
	tokens := strings.Fields(lower)
	if len(tokens) == 0 {
		return false
	}
	if len(tokens) <= shortQuestionTokens {
		return true
	}
	if tokens[0] == "and" || tokens[0] == "but" || tokens[0] == "or" {
		return true
	}
	for _, marker := range continuationMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	for _, token := range tokens {
		token = strings.Trim(token, "?,.!")
		for _, pronoun := range referringPronouns {
			if token == pronoun {
				return true
			}
		}
	}
	return false
}

// Resolve rewrites a flagged follow-up using the last few turns. Rewrite
// failure is non-fatal: the original question proceeds with a note.
// Questions asking for "overall" figures additionally request that
// downstream stages drop inherited time filters.
func (r *Resolver) Resolve(ctx context.Context, query string, history []entities.Turn) Result {
	res := Result{Query: query}

	lower := strings.ToLower(query)
	if strings.Contains(lower, "overall") || strings.Contains(lower, "in total") || strings.Contains(lower, "all time") {
		res.ClearTimeframes = true
	}

	if !r.IsFollowUp(query, history) {
		return res
	}
	res.WasFollowUp = true

	window := history
	if len(window) > rewriteWindow {
		window = window[len(window)-rewriteWindow:]
	}

	rewritten, err := r.rewriter.RewriteQuery(ctx, query, window)
	if err != nil {
		r.logger.Warn("rewrite failed, keeping original question", map[string]interface{}{
			"error": err.Error(),
		})
		res.Note = "follow-up rewrite unavailable; interpreted the question as asked"
		return res
	}

	if rewritten != query {
		res.Note = "expanded follow-up using conversation context"
	}
	res.Query = rewritten
	return res
}
