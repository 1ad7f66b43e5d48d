package rag

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/careloop/server/internal/retrieval"
	"github.com/careloop/server/internal/store"
)

// Options tunes the reply pipeline.
type Options struct {
	ShortTermWindow  int // verbatim turns included in the prompt and optimizer input
	SummaryThreshold int // summarization fires once turn count exceeds this
	RetrieveK        int // passages requested per query
	SummaryMaxTokens int // output cap for summary generation
	TitleTokens      int // target title length in tokens
}

// DefaultOptions returns the tuning the pipeline was designed around.
func DefaultOptions() Options {
	return Options{
		ShortTermWindow:  3,
		SummaryThreshold: 2,
		RetrieveK:        5,
		SummaryMaxTokens: 1250,
		TitleTokens:      5,
	}
}

// Engine coordinates one reply: optimize the follow-up query, retrieve
// passages, load both memory tiers, assemble the prompt, generate, persist
// the turn, and fold it into the long-term summary when the chat is long
// enough. Collaborator handles are injected once at startup; the engine
// holds no global state.
type Engine struct {
	generator Generator
	retriever Retriever
	store     Store
	strategy  SummaryStrategy
	estimator *TokenEstimator
	locks     *chatLocks
	opts      Options
}

// NewEngine creates an Engine with the relevance-gated summary strategy.
func NewEngine(g Generator, r Retriever, s Store, opts Options) *Engine {
	if opts.ShortTermWindow <= 0 {
		opts.ShortTermWindow = 3
	}
	if opts.SummaryThreshold <= 0 {
		opts.SummaryThreshold = 2
	}
	if opts.RetrieveK <= 0 {
		opts.RetrieveK = 5
	}
	if opts.SummaryMaxTokens <= 0 {
		opts.SummaryMaxTokens = 1250
	}
	if opts.TitleTokens <= 0 {
		opts.TitleTokens = 5
	}
	return &Engine{
		generator: g,
		retriever: r,
		store:     s,
		strategy:  NewRelevanceGated(g, opts.SummaryMaxTokens),
		estimator: NewTokenEstimator(),
		locks:     newChatLocks(),
		opts:      opts,
	}
}

// WithStrategy overrides the summary strategy.
func (e *Engine) WithStrategy(s SummaryStrategy) *Engine {
	e.strategy = s
	return e
}

// NewChat creates a chat for the opening query, generating its title once from
// that query, and produces the first reply turn.
func (e *Engine) NewChat(ctx context.Context, userID int64, query string) (*store.Chat, *store.Turn, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil, ErrEmptyQuery
	}

	title := e.generateTitle(ctx, query)
	chat, err := e.store.CreateChat(ctx, userID, title)
	if err != nil {
		return nil, nil, fmt.Errorf("create chat: %w", err)
	}

	turn, err := e.Reply(ctx, chat.ID, query)
	if err != nil {
		return nil, nil, err
	}
	return chat, turn, nil
}

// Reply runs the full pipeline for one query against an existing chat and
// returns the persisted turn.
//
// Two contracts are deliberate and load-bearing:
//   - retrieval always receives the ORIGINAL query (literal phrasing ranks
//     passages best), while generation sees the optimized one;
//   - the turn is persisted only after generation succeeds, so a failed
//     generation leaves no partial state behind.
func (e *Engine) Reply(ctx context.Context, chatID int64, query string) (*store.Turn, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	if _, err := e.store.GetChat(ctx, chatID); err != nil {
		return nil, err
	}

	turns, err := e.store.GetTurns(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("load turns: %w", err)
	}

	// A fresh chat has nothing to resolve against; skip optimization.
	optimized := query
	if len(turns) > 0 {
		optimized = e.optimizeQuery(ctx, query, lastN(turns, e.opts.ShortTermWindow))
	}

	passages := e.retrievePassages(ctx, query)

	summary := ""
	if sum, err := e.store.GetSummary(ctx, chatID); err != nil {
		log.Printf("chat %d: loading summary failed, omitting long-term memory: %v", chatID, err)
	} else if sum != nil {
		summary = sum.Content
	}

	shortTerm := FormatTurns(lastN(turns, e.opts.ShortTermWindow))

	prompt := assemblePrompt(optimized, passages, summary, shortTerm)
	log.Printf("chat %d: assembled prompt ~%d tokens (%d passages, summary=%t, history=%d turns)",
		chatID, e.estimator.Estimate(prompt), len(passages), summary != "", min(len(turns), e.opts.ShortTermWindow))

	answer, err := e.generator.Generate(ctx, prompt, 0)
	if err != nil {
		return nil, &GenerationError{Err: err}
	}

	turn, err := e.store.CreateTurn(ctx, chatID, query, strings.TrimSpace(answer))
	if err != nil {
		return nil, fmt.Errorf("persist turn: %w", err)
	}

	// Summarization runs after the turn is committed; its failure must never
	// invalidate the reply above.
	if len(turns)+1 > e.opts.SummaryThreshold {
		e.updateSummary(ctx, chatID, *turn)
	}

	return turn, nil
}

// retrievePassages asks the retriever for passages using the raw query.
// Retrieval failure is recoverable: the reply proceeds without passages.
func (e *Engine) retrievePassages(ctx context.Context, query string) []retrieval.Passage {
	passages, err := e.retriever.Retrieve(ctx, query, e.opts.RetrieveK)
	if err != nil {
		log.Printf("retrieval failed, continuing without passages: %v", err)
		return nil
	}
	return passages
}

// updateSummary applies the summary strategy under the chat's lock so
// concurrent merges for the same chat serialize instead of racing. Failures
// are logged and swallowed; the user's reply is already committed.
func (e *Engine) updateSummary(ctx context.Context, chatID int64, latest store.Turn) {
	unlock := e.locks.Lock(chatID)
	defer unlock()

	existing := ""
	if sum, err := e.store.GetSummary(ctx, chatID); err != nil {
		log.Printf("chat %d: summary load failed, skipping update: %v", chatID, err)
		return
	} else if sum != nil {
		existing = sum.Content
	}

	history, err := e.store.GetTurns(ctx, chatID)
	if err != nil {
		log.Printf("chat %d: history load failed, skipping summary update: %v", chatID, err)
		return
	}

	text, changed, err := e.strategy.Update(ctx, existing, latest, history)
	if err != nil {
		log.Printf("chat %d: summarization failed, keeping prior summary: %v", chatID, err)
		return
	}
	if !changed {
		return
	}

	if err := e.store.UpsertSummary(ctx, chatID, text); err != nil {
		log.Printf("chat %d: summary persist failed: %v", chatID, err)
	}
}

// assemblePrompt concatenates the prompt sections in their fixed order.
// Sections with no content are omitted entirely; an empty section header
// would invite the model to comment on missing context. The instruction
// block is always last.
func assemblePrompt(query string, passages []retrieval.Passage, longTerm, shortTerm string) string {
	sections := []string{
		systemFraming,
		"\n[User Query]\n" + query,
	}

	if len(passages) > 0 {
		texts := make([]string, len(passages))
		for i, p := range passages {
			texts[i] = p.Text
		}
		sections = append(sections, "\n[Relevant Medical Documents]\n"+strings.Join(texts, "\n"))
	}
	if longTerm != "" {
		sections = append(sections, "\n[Long-Term Memory]\n"+longTerm)
	}
	if shortTerm != "" {
		sections = append(sections, "\n[Short-Term Memory]\n"+shortTerm)
	}

	sections = append(sections, "\n"+responseInstructions)
	return strings.Join(sections, "\n")
}
