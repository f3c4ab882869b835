package chat

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"filmsage-backend/internal/format"
	"filmsage-backend/internal/logging"
	"filmsage-backend/internal/metrics"
	"filmsage-backend/internal/models"
	"filmsage-backend/internal/services"
)

// ErrEmptyMessage is returned for blank user messages.
var ErrEmptyMessage = errors.New("message cannot be empty")

// InternalError wraps a failure inside the pipeline itself. Handlers answer
// it with the generic apology.
type InternalError struct {
	Cause error
}

func (e *InternalError) Error() string {
	return "chat pipeline: " + e.Cause.Error()
}

func (e *InternalError) Unwrap() error {
	return e.Cause
}

const (
	replyUnreachable      = "I'm sorry, I cannot connect to the language model service right now. Please ensure it's running."
	replyModelUnavailable = "I'm sorry, the configured model '%s' seems to be unavailable. Please check the server."
	replyBackendFailed    = "I encountered an error while trying to generate a response. Please try again."
	// ReplyInternalError is shown when the pipeline itself fails.
	ReplyInternalError = "Sorry, an internal error occurred. Please try again."
)

// Path records which branch produced a reply.
type Path string

const (
	PathQuickReply     Path = "quick_reply"
	PathDirectSearch   Path = "direct_search"
	PathDisambiguation Path = "disambiguation"
	PathLLM            Path = "llm"
	PathLLMFallback    Path = "llm_fallback"
)

// Reply is the display-ready answer to one user message.
type Reply struct {
	Response string
	Path     Path
	MovieID  *int64
}

// Options configure an Orchestrator.
type Options struct {
	Params services.GenerationParams
	// Model is named in the "model unavailable" apology.
	Model string
	// TrendingInPrompt caps the trending titles in the system prompt.
	TrendingInPrompt int
}

// Orchestrator runs one chat request end to end: classify, answer locally
// when possible, otherwise ground the prompt and ask the model.
type Orchestrator struct {
	classifier *Classifier
	enhancer   *ContextEnhancer
	catalog    Catalog
	llm        services.ChatClient
	formatter  *format.Formatter
	opts       Options
}

func NewOrchestrator(classifier *Classifier, catalog Catalog, llm services.ChatClient, formatter *format.Formatter, opts Options) *Orchestrator {
	return &Orchestrator{
		classifier: classifier,
		enhancer:   NewContextEnhancer(catalog),
		catalog:    catalog,
		llm:        llm,
		formatter:  formatter,
		opts:       opts,
	}
}

// Respond answers message given the prior turns. The only errors are
// ErrEmptyMessage and *InternalError; backend failures become apologies.
func (o *Orchestrator) Respond(ctx context.Context, message string, history []models.ChatTurn) (reply Reply, err error) {
	if strings.TrimSpace(message) == "" {
		return Reply{}, ErrEmptyMessage
	}

	defer func() {
		if r := recover(); r != nil {
			logging.Ctx(ctx).Error().Str("panic", fmt.Sprint(r)).Bytes("stack", debug.Stack()).Msg("chat pipeline panicked")
			metrics.ChatErrors.Inc()
			reply = Reply{}
			err = &InternalError{Cause: fmt.Errorf("panic: %v", r)}
		}
	}()

	c := o.classifier.Classify(message)
	logging.Ctx(ctx).Debug().Str("path", c.Kind.String()).Msg("message classified")

	switch c.Kind {
	case QuickReply:
		reply = Reply{Response: o.formatter.FormatSimple(c.Text), Path: PathQuickReply}
	case Disambiguation:
		reply = Reply{Response: o.formatter.FormatDisambiguation(c.Text), Path: PathDisambiguation}
	case DirectSearch:
		reply = Reply{Response: o.formatter.FormatListing(o.searchListing(ctx, c.Text)), Path: PathDirectSearch}
	default:
		reply = o.askModel(ctx, message, history)
	}

	metrics.ChatRequests.WithLabelValues(string(reply.Path)).Inc()
	return reply, nil
}

func (o *Orchestrator) askModel(ctx context.Context, message string, history []models.ChatTurn) Reply {
	enh := o.enhancer.Enhance(ctx, message)
	turns := o.buildHistory(ctx, history, enh.Prompt)

	raw, err := o.llm.SendChat(ctx, turns, o.opts.Params)
	if err == nil && strings.TrimSpace(raw) == "" {
		err = errors.New("empty completion")
	}
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("language model call failed")
		return Reply{Response: o.apology(err), Path: PathLLMFallback, MovieID: enh.MovieID}
	}

	return Reply{Response: o.formatter.Format(raw), Path: PathLLM, MovieID: enh.MovieID}
}

// buildHistory is system prompt, prior turns verbatim, then the user turn.
func (o *Orchestrator) buildHistory(ctx context.Context, history []models.ChatTurn, prompt string) []models.ChatTurn {
	var trending []models.MovieSummary
	if o.opts.TrendingInPrompt > 0 {
		t, err := o.catalog.Trending(ctx)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("trending movies unavailable for system prompt")
		}
		trending = t
	}

	turns := make([]models.ChatTurn, 0, len(history)+2)
	turns = append(turns, models.ChatTurn{Role: models.RoleSystem, Content: SystemPrompt(trending, o.opts.TrendingInPrompt)})
	turns = append(turns, history...)
	turns = append(turns, models.ChatTurn{Role: models.RoleUser, Content: prompt})
	return turns
}

func (o *Orchestrator) apology(err error) string {
	var unavailable *services.ModelUnavailableError
	switch {
	case errors.As(err, &unavailable):
		model := unavailable.Model
		if model == "" {
			model = o.opts.Model
		}
		return fmt.Sprintf(replyModelUnavailable, model)
	case errors.Is(err, services.ErrBackendUnreachable):
		return replyUnreachable
	default:
		return replyBackendFailed
	}
}
