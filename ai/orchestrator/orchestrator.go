// Package orchestrator drives one chat exchange: safety screening,
// retrieval, up to two LLM invocations with tool dispatch in between, and
// the session memory update.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/booksage/booksage/ai/llm"
	"github.com/booksage/booksage/ai/memory"
	"github.com/booksage/booksage/ai/metrics"
	"github.com/booksage/booksage/ai/prompt"
	"github.com/booksage/booksage/ai/protocol"
	"github.com/booksage/booksage/ai/retrieval"
	"github.com/booksage/booksage/ai/safety"
	"github.com/booksage/booksage/ai/tools"
)

// state names the phases of the tool-calling protocol.
type state int

const (
	stateInitial state = iota
	stateNoTool
	stateToolRequested
	stateForcedRetry
	stateToolDispatched
	stateFinalized
)

func (s state) String() string {
	switch s {
	case stateInitial:
		return "INITIAL_QUERY"
	case stateNoTool:
		return "NO_TOOL_NEEDED"
	case stateToolRequested:
		return "TOOL_REQUESTED"
	case stateForcedRetry:
		return "FORCED_RETRY"
	case stateToolDispatched:
		return "TOOL_DISPATCHED"
	case stateFinalized:
		return "FINALIZED"
	default:
		return "UNKNOWN"
	}
}

// Response is the outcome of one chat exchange.
type Response struct {
	Text string

	// RecommendedTitle is set only when the final text carries the
	// recommendation grammar's first line.
	RecommendedTitle string

	// Blocked reports that the safety filter rejected the input; Text is
	// then the fixed safe reply and nothing else ran.
	Blocked bool
}

// Config configures the orchestrator.
type Config struct {
	// SafeReply is returned verbatim when the safety filter matches.
	SafeReply string

	// RetrieveK is the number of candidates fetched per request.
	RetrieveK int
}

// Orchestrator wires the chat core together. All handles are constructed
// once at process start and injected; the orchestrator itself is stateless
// apart from the session store.
type Orchestrator struct {
	llm       llm.Service
	retriever *retrieval.Retriever
	registry  *tools.Registry
	screener  *safety.Screener
	sessions  *memory.SessionStore
	exporter  *metrics.Exporter
	safeReply string
	retrieveK int
}

// New creates an orchestrator. The metrics exporter may be nil.
func New(
	llmService llm.Service,
	retriever *retrieval.Retriever,
	registry *tools.Registry,
	screener *safety.Screener,
	sessions *memory.SessionStore,
	exporter *metrics.Exporter,
	cfg Config,
) (*Orchestrator, error) {
	if llmService == nil || retriever == nil || registry == nil || screener == nil || sessions == nil {
		return nil, fmt.Errorf("orchestrator requires llm, retriever, registry, screener and sessions")
	}
	k := cfg.RetrieveK
	if k <= 0 {
		k = 5
	}
	return &Orchestrator{
		llm:       llmService,
		retriever: retriever,
		registry:  registry,
		screener:  screener,
		sessions:  sessions,
		exporter:  exporter,
		safeReply: cfg.SafeReply,
		retrieveK: k,
	}, nil
}

// Chat runs one full exchange for the given session. At most two LLM
// invocations and one tool-dispatch round happen per call.
func (o *Orchestrator) Chat(ctx context.Context, sessionID, question string) (*Response, error) {
	start := time.Now()

	if pattern, matched := o.screener.Screen(question); matched {
		slog.Info("chat: input blocked by safety filter", "session_id", sessionID, "pattern", pattern)
		o.count("blocked", start)
		if o.exporter != nil {
			o.exporter.IncSafetyBlock()
		}
		return &Response{Text: o.safeReply, Blocked: true}, nil
	}

	candidates, err := o.retriever.Retrieve(ctx, question, o.retrieveK)
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}

	conv := o.sessions.Get(sessionID)
	messages := prompt.BuildMessages(conv.Turns(), question, candidates)

	finalText, err := o.runProtocol(ctx, sessionID, messages)
	if err != nil {
		return nil, err
	}

	// Memory records every exchange, refusals included.
	conv.Append(question, finalText)

	resp := &Response{Text: finalText}
	if title, ok := protocol.ExtractTitle(finalText); ok {
		resp.RecommendedTitle = title
		o.count("recommendation", start)
	} else {
		o.count("refusal", start)
	}
	return resp, nil
}

// runProtocol executes the tool-calling state machine over the assembled
// messages and returns the final response text.
func (o *Orchestrator) runProtocol(ctx context.Context, sessionID string, messages []llm.Message) (string, error) {
	st := stateInitial

	resp, err := o.llm.ChatWithTools(ctx, messages, o.registry.Descriptors(), "")
	if err != nil {
		return "", err
	}
	o.incLLMCall("initial")

	if len(resp.ToolCalls) == 0 {
		st = stateNoTool
		// Disambiguation safeguard: recommendation text without a prior
		// tool call means the summary was fabricated. Force a second
		// invocation with tool choice pinned before accepting anything.
		if strings.Contains(resp.Content, protocol.RecommendationMarker) {
			st = stateForcedRetry
			slog.Warn("chat: recommendation without tool call, forcing tool use", "session_id", sessionID)
			if o.exporter != nil {
				o.exporter.IncForcedRetry()
			}
			resp, err = o.llm.ChatWithTools(ctx, messages, o.registry.Descriptors(), tools.BookSummaryToolName)
			if err != nil {
				return "", err
			}
			o.incLLMCall("forced_retry")
		}
	} else {
		st = stateToolRequested
	}
	slog.Debug("chat: first round complete", "session_id", sessionID, "state", st.String())

	if len(resp.ToolCalls) == 0 {
		st = stateFinalized
		slog.Debug("chat: finalized without tools", "session_id", sessionID, "state", st.String())
		return resp.Content, nil
	}

	// One dispatch round: every requested call is resolved independently
	// and its result correlated back by call ID.
	assistantMsg := llm.Message{
		Role:      "assistant",
		Content:   resp.Content,
		ToolCalls: resp.ToolCalls,
	}
	toolMessages := make([]llm.Message, 0, len(resp.ToolCalls))
	for _, call := range resp.ToolCalls {
		result := o.registry.Dispatch(ctx, call)
		if o.exporter != nil {
			o.exporter.IncToolDispatch(call.Function.Name)
		}
		toolMessages = append(toolMessages, llm.Message{
			Role:       "tool",
			Name:       call.Function.Name,
			Content:    result,
			ToolCallID: call.ID,
		})
	}
	st = stateToolDispatched

	finalMessages := make([]llm.Message, 0, len(messages)+1+len(toolMessages))
	finalMessages = append(finalMessages, messages...)
	finalMessages = append(finalMessages, assistantMsg)
	finalMessages = append(finalMessages, toolMessages...)

	finalText, err := o.llm.Chat(ctx, finalMessages)
	if err != nil {
		return "", err
	}
	o.incLLMCall("finalize")

	st = stateFinalized
	slog.Debug("chat: finalized after tool round", "session_id", sessionID, "state", st.String(), "tool_calls", len(toolMessages))
	return finalText, nil
}

func (o *Orchestrator) count(outcome string, start time.Time) {
	if o.exporter != nil {
		o.exporter.ObserveChat(outcome, time.Since(start))
	}
}

func (o *Orchestrator) incLLMCall(phase string) {
	if o.exporter != nil {
		o.exporter.IncLLMCall(phase)
	}
}
