// Package orchestrator wires the pipeline agents into a static state
// machine: followup → intent → extract → datenorm → validate →
// {query | clarify | disambiguate} → format. Routing out of validate is a
// pure function of the outcome status; out of disambiguate, of its
// needs-clarification flag. Every visited state appends one trace record,
// and no panic or error ever escapes a turn.
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"ledger-assistant/internal/agents/datenorm"
	"ledger-assistant/internal/agents/disambiguate"
	"ledger-assistant/internal/agents/followup"
	"ledger-assistant/internal/agents/format"
	"ledger-assistant/internal/agents/query"
	"ledger-assistant/internal/agents/validate"
	"ledger-assistant/internal/common/errors"
	"ledger-assistant/internal/common/logger"
	"ledger-assistant/internal/common/metrics"
	"ledger-assistant/internal/common/observability"
	"ledger-assistant/internal/entities"
	"ledger-assistant/internal/nlp"
)

// Classifier labels a question with an intent. *nlp.Client satisfies it.
type Classifier interface {
	ClassifyIntent(ctx context.Context, query string, history []entities.Turn) (*nlp.IntentResult, error)
}

// Extractor pulls an entity bag out of a question. *nlp.Client satisfies
// it; on failure it returns the regex-fallback bag together with the error.
type Extractor interface {
	ExtractEntities(ctx context.Context, query string, intent entities.Intent, history []entities.Turn) (entities.Bag, error)
}

// Deps are the pipeline's collaborators, injected so tests can stub the NL
// surface while keeping the real agents.
type Deps struct {
	Followup      *followup.Resolver
	Classifier    Classifier
	Extractor     Extractor
	Normalizer    *datenorm.Normalizer
	Validator     *validate.Validator
	Disambiguator *disambiguate.Resolver
	Engine        *query.Engine
	Formatter     *format.Formatter
	Sessions      *SessionManager
	Observability *observability.Observability
	Logger        logger.Logger
}

type Pipeline struct {
	deps   Deps
	logger logger.Logger
}

func New(deps Deps) *Pipeline {
	return &Pipeline{
		deps:   deps,
		logger: deps.Logger.WithFields(map[string]interface{}{"component": "orchestrator"}),
	}
}

// Response is the per-turn API payload. The trace is a first-class
// deliverable, not incidental logging.
type Response struct {
	SessionID string          `json:"session_id"`
	Answer    string          `json:"answer"`
	Intent    entities.Intent `json:"intent,omitempty"`
	Entities  entities.Bag    `json:"entities"`
	Trace     []TraceRecord   `json:"trace"`
}

// HandleTurn runs one question through the state machine. A panic anywhere
// inside the turn is recovered at this boundary into a generic error answer
// plus a failing trace record.
func (p *Pipeline) HandleTurn(ctx context.Context, sessionID, question string) (resp *Response) {
	turnStart := time.Now()
	tracker := &Tracker{}
	sessionID = p.deps.Sessions.Resolve(sessionID)
	resp = &Response{SessionID: sessionID}

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("internal fault: %v", r)
			p.logger.Error("turn aborted by panic", map[string]interface{}{
				"session_id": sessionID,
				"panic":      fmt.Sprintf("%v", r),
			})
			tracker.Record("orchestrator", "recover", turnStart, question, nil,
				"turn aborted; no partial answer is returned", err)
			resp.Answer = "Something went wrong while answering that. Please try again."
			resp.Trace = tracker.Records()
			p.finishTurn(ctx, turnStart, "panic")
		}
	}()

	if strings.TrimSpace(question) == "" {
		start := time.Now()
		tracker.Record("orchestrator", "reject_empty_query", start, question, nil,
			"a blank question cannot be routed", nil)
		resp.Answer = `Please ask a question about the portfolio, for example "net profit for Building 1 in 2024".`
		resp.Trace = tracker.Records()
		p.finishTurn(ctx, turnStart, "rejected")
		return resp
	}

	history := p.deps.Sessions.History(sessionID)

	start := time.Now()
	fres := p.deps.Followup.Resolve(ctx, question, history)
	tracker.Record("followup-resolver", "resolve", start, question, fres.Query, fres.Note, nil)
	question = fres.Query

	start = time.Now()
	intent := entities.IntentGeneralQuery
	ires, err := p.deps.Classifier.ClassifyIntent(ctx, question, history)
	if err != nil {
		tracker.Record("intent-classifier", "classify", start, question, string(intent),
			"classifier unavailable, treating as a general question", err)
	} else {
		intent = ires.Intent
		tracker.Record("intent-classifier", "classify", start, question, string(intent), ires.Reasoning, nil)
	}

	start = time.Now()
	bag, err := p.deps.Extractor.ExtractEntities(ctx, question, intent, history)
	if err != nil {
		metrics.ExtractionFallbacks.Inc()
		tracker.Record("entity-extractor", "extract", start, question, bag,
			"pattern fallback supplied the entities", err)
	} else {
		tracker.Record("entity-extractor", "extract", start, question, bag, "", nil)
	}

	if fres.ClearTimeframes {
		bag = bag.ClearTimeframes()
	}

	start = time.Now()
	nres := p.deps.Normalizer.Normalize(bag)
	reason := ""
	if len(nres.AmbiguousDates) > 0 {
		reason = "could not map date tokens: " + strings.Join(nres.AmbiguousDates, ", ")
	}
	tracker.Record("date-normalizer", "normalize", start, bag, nres.Entities, reason, nil)
	bag = nres.Entities

	start = time.Now()
	outcome := p.deps.Validator.Validate(intent, bag)
	tracker.Record("entity-validator", "validate", start, bag, outcome, outcome.Notes, nil)

	var result *entities.QueryResult
	switch outcome.Status {
	case entities.StatusOK:
		bag = outcome.Entities
		result = p.runQuery(ctx, tracker, intent, bag)

	case entities.StatusAmbiguous:
		start = time.Now()
		dres := p.deps.Disambiguator.Resolve(outcome)
		tracker.Record("disambiguation-resolver", "resolve", start,
			outcome.AmbiguousEntities, dres.Entities, dres.ClarificationMessage, nil)
		if dres.NeedsClarification {
			result = clarification(dres.ClarificationMessage, errors.ErrCodeAmbiguousEntity, outcome)
			metrics.ClarificationsRequested.Inc()
		} else {
			bag = dres.Entities
			result = p.runQuery(ctx, tracker, intent, bag)
		}

	default:
		code := errors.ErrCodeMissingRequiredField
		if len(outcome.InvalidEntities) > 0 {
			code = errors.ErrCodeInvalidEntity
		}
		result = clarification(missingMessage(outcome), code, outcome)
		metrics.ClarificationsRequested.Inc()
	}

	start = time.Now()
	answer := p.deps.Formatter.Format(ctx, question, result)
	tracker.Record("formatter", "format", start, string(result.Type), answer, "", nil)

	metrics.PipelineTurnsTotal.WithLabelValues(string(intent)).Inc()
	p.finishTurn(ctx, turnStart, turnStatus(result))

	p.deps.Sessions.Append(sessionID, entities.Turn{
		Query:     question,
		Intent:    intent,
		Entities:  bag,
		Response:  answer,
		Timestamp: time.Now().UTC(),
	})

	resp.Answer = answer
	resp.Intent = intent
	resp.Entities = bag
	resp.Trace = tracker.Records()
	return resp
}

func (p *Pipeline) runQuery(ctx context.Context, tracker *Tracker, intent entities.Intent, bag entities.Bag) *entities.QueryResult {
	start := time.Now()
	result := p.deps.Engine.Execute(ctx, intent, bag)
	reason := ""
	if result.IsError() && result.Error != nil {
		reason = string(result.Error.Code)
	}
	tracker.Record("query-engine", string(intent), start, bag, string(result.Type), reason, nil)
	return result
}

func (p *Pipeline) finishTurn(ctx context.Context, start time.Time, status string) {
	p.deps.Observability.RecordTurnProcessed(ctx, status)
	p.deps.Observability.RecordTurnDuration(ctx, time.Since(start), status)
}

func turnStatus(result *entities.QueryResult) string {
	switch result.Type {
	case entities.ResultClarification:
		return "clarification"
	case entities.ResultError:
		return "error"
	default:
		return "ok"
	}
}

// clarification wraps validator context into the result union so the
// formatter and API clients see why the turn stopped.
func clarification(message string, code errors.ErrorCode, outcome entities.Outcome) *entities.QueryResult {
	return &entities.QueryResult{
		Type: entities.ResultClarification,
		Error: &entities.ErrorResult{
			Code:                 code,
			Message:              message,
			InvalidEntities:      outcome.InvalidEntities,
			MissingFields:        outcome.MissingFields,
			Suggestions:          outcome.Suggestions,
			AmbiguousEntities:    outcome.AmbiguousEntities,
			ClarificationMessage: message,
		},
	}
}

var missingFieldLabels = map[string]string{
	"properties": "property",
	"tenants":    "tenant",
}

// missingMessage phrases a missing/invalid outcome as a question back to
// the user.
func missingMessage(outcome entities.Outcome) string {
	var parts []string

	fields := make([]string, 0, len(outcome.InvalidEntities))
	for field := range outcome.InvalidEntities {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		label := missingFieldLabels[field]
		if label == "" {
			label = field
		}
		for _, input := range outcome.InvalidEntities[field] {
			line := fmt.Sprintf("I couldn't find a %s named '%s'.", label, input)
			if sugg := outcome.Suggestions[field]; len(sugg) > 0 {
				line += " Did you mean: " + strings.Join(sugg, ", ") + "?"
			}
			parts = append(parts, line)
		}
	}

	if len(outcome.MissingFields) > 0 {
		parts = append(parts, "Please specify: "+strings.Join(outcome.MissingFields, ", ")+".")
	}

	if len(parts) == 0 {
		return "I need a bit more detail to answer that."
	}
	return strings.Join(parts, " ")
}
