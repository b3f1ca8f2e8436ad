package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/verasca/lociq/internal/conversation"
	"github.com/verasca/lociq/internal/generator"
)

// ErrGenerationFailed covers every failure between submitting a query and
// obtaining a valid structured answer: transport errors, empty bodies,
// malformed JSON, and schema mismatches. Callers get the underlying cause
// joined in.
var ErrGenerationFailed = errors.New("answer generation failed")

// ErrBusy is returned when a Submit arrives while another is still pending.
// Requests are serialized per conversation; there is no queueing.
var ErrBusy = errors.New("a request is already pending")

// Archiver records completed turns for operational history. Archive failures
// never fail a Submit.
type Archiver interface {
	SaveTurn(t conversation.Turn) error
}

// Pipeline converts a raw query string into a new Turn: it validates input,
// invokes the generator with the fixed schema and system instruction,
// parses the result, and appends it to the conversation store. At most one
// request is in flight at a time.
type Pipeline struct {
	gen      generator.Generator
	store    *conversation.Store
	archive  Archiver // optional
	inflight *semaphore.Weighted
	timeout  time.Duration
	logger   *slog.Logger
}

// NewPipeline creates a Pipeline. archive may be nil to disable turn
// archiving. timeout bounds each generator call; <= 0 disables the bound.
func NewPipeline(gen generator.Generator, store *conversation.Store, archive Archiver, timeout time.Duration) *Pipeline {
	return &Pipeline{
		gen:      gen,
		store:    store,
		archive:  archive,
		inflight: semaphore.NewWeighted(1),
		timeout:  timeout,
		logger:   slog.Default(),
	}
}

// Submit turns a raw query into a new appended Turn.
//
// A query that trims to empty is a silent no-op: no generator call, no state
// change, nil Turn and nil error. A Submit while another is pending returns
// ErrBusy. On any generation failure it returns an error matching
// ErrGenerationFailed and appends nothing; the pipeline is idle again as
// soon as Submit returns, success or not.
func (p *Pipeline) Submit(ctx context.Context, query string) (*conversation.Turn, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, nil
	}

	if !p.inflight.TryAcquire(1) {
		return nil, ErrBusy
	}
	defer p.inflight.Release(1)

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	raw, err := p.gen.Generate(ctx, systemInstruction, q, ResponseSchema())
	if err != nil {
		p.logger.Warn("generator call failed", "error", err)
		return nil, errors.Join(ErrGenerationFailed, err)
	}

	parsed, err := parseAnswer(raw)
	if err != nil {
		p.logger.Warn("generator response rejected", "error", err)
		return nil, errors.Join(ErrGenerationFailed, err)
	}

	turn := conversation.Turn{
		ID:        uuid.New().String(),
		Query:     q,
		AskedAt:   time.Now().UTC(),
		Overview:  parsed.Overview,
		Citations: parsed.Citations,
		FollowUps: parsed.FollowUps,
	}

	if err := p.store.Append(turn); err != nil {
		// Fresh uuid colliding with an existing id is a bug, not a
		// recoverable request failure.
		return nil, fmt.Errorf("appending turn: %w", err)
	}

	if p.archive != nil {
		if err := p.archive.SaveTurn(turn); err != nil {
			p.logger.Warn("archiving turn failed", "turn_id", turn.ID, "error", err)
		}
	}

	return &turn, nil
}
