package definitions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/context-subtitles/relay/config"
	"github.com/context-subtitles/relay/internal/metrics"
)

// SentinelSkip is the definition value for terms the provider flags as not
// worth defining (filler words). It is a valid result, not an error.
const SentinelSkip = "skip"

// Typed failures surfaced to the gateway. The gateway maps them to client
// responses; the queue itself never retries.
var (
	ErrEmptyTerm  = errors.New("term is required")
	ErrQueueFull  = errors.New("definition queue is full")
	ErrTimeout    = errors.New("definition request timed out")
	ErrDegenerate = errors.New("provider returned an unusable definition")
)

// Result is a completed definition lookup.
type Result struct {
	Definition string `json:"definition"`
	Model      string `json:"model"`
	Cached     bool   `json:"cached"`
}

// Service dispatches definition lookups to the provider behind a bounded
// concurrency gate with a per-job timeout, consulting the cache first.
type Service struct {
	provider Provider
	store    Store // nil disables caching
	logger   *zap.Logger

	sem     chan struct{} // in-flight provider calls
	pending chan struct{} // admission ceiling for waiting + in-flight jobs

	timeout     time.Duration
	contextMax  int
	defaultLang string
}

// NewService creates a definition service. store may be nil to disable the
// cache entirely.
func NewService(provider Provider, store Store, logger *zap.Logger, cfg config.DefineConfig) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	depth := cfg.QueueDepth
	if depth < concurrency {
		depth = concurrency
	}
	return &Service{
		provider:    provider,
		store:       store,
		logger:      logger,
		sem:         make(chan struct{}, concurrency),
		pending:     make(chan struct{}, depth),
		timeout:     cfg.Timeout,
		contextMax:  cfg.ContextMaxChars,
		defaultLang: "en",
	}
}

// Define resolves a single term. Exactly one provider call is made per
// accepted submission; provider failures, timeouts, and degenerate output
// come back as typed errors for the caller to map.
func (s *Service) Define(ctx context.Context, term, contextText, lang string) (Result, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return Result{}, ErrEmptyTerm
	}
	lang = strings.TrimSpace(lang)
	if lang == "" {
		lang = s.defaultLang
	}
	contextText = trailingWindow(strings.TrimSpace(contextText), s.contextMax)

	key := CacheKey(term, lang, contextText)
	if s.store != nil {
		if v, ok := s.store.Get(key); ok {
			v.Cached = true
			metrics.CacheHits.Inc()
			metrics.DefineRequests.WithLabelValues("cache_hit").Inc()
			return v, nil
		}
		metrics.CacheMisses.Inc()
	}

	// Admission ceiling: under sustained overload new submissions fail fast
	// instead of queueing without bound.
	select {
	case s.pending <- struct{}{}:
	default:
		metrics.DefineRequests.WithLabelValues("overload").Inc()
		return Result{}, ErrQueueFull
	}
	defer func() { <-s.pending }()

	// Concurrency slot. Waiting here is the FIFO backpressure point.
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
	defer func() { <-s.sem }()

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	metrics.DefineInFlight.Inc()
	raw, err := s.provider.Complete(callCtx, buildPrompt(term, contextText, lang))
	metrics.DefineInFlight.Dec()
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			metrics.DefineRequests.WithLabelValues("timeout").Inc()
			return Result{}, fmt.Errorf("%w after %s", ErrTimeout, s.timeout)
		}
		metrics.DefineRequests.WithLabelValues("provider_error").Inc()
		return Result{}, fmt.Errorf("provider: %w", err)
	}

	cleaned := Clean(raw)
	result := Result{Model: s.provider.Model()}
	if IsSkip(cleaned) {
		result.Definition = SentinelSkip
	} else {
		if utf8.RuneCountInString(cleaned) < 2 {
			metrics.DefineRequests.WithLabelValues("degenerate").Inc()
			return Result{}, fmt.Errorf("%w: %q", ErrDegenerate, cleaned)
		}
		result.Definition = cleaned
	}

	if s.store != nil {
		s.store.Put(key, result)
	}
	metrics.DefineRequests.WithLabelValues("ok").Inc()
	s.logger.Debug("definition resolved",
		zap.String("term", term),
		zap.String("lang", lang),
		zap.Bool("skip", result.Definition == SentinelSkip),
	)
	return result, nil
}
