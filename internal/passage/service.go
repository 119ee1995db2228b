// Package passage turns a scripture reference request into cleaned passage
// text: parse, fetch every reference, and assemble the results in request order.
package passage

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"derrclan.com/bible-passage/internal/gateway"
	"derrclan.com/bible-passage/internal/reference"
)

// DefaultConcurrency bounds in-flight upstream fetches per request.
const DefaultConcurrency = 4

// ErrUnsupportedTranslation is reported for translation codes outside the supported set.
var ErrUnsupportedTranslation = errors.New("unsupported translation")

// Source returns the cleaned text of one passage. *gateway.Client implements it.
type Source interface {
	Passage(ctx context.Context, ref reference.Reference, translation string) (string, error)
}

// Result is the outcome of one reference. Exactly one of Text and Error is set.
type Result struct {
	Reference   reference.Reference `json:"reference"`
	Translation string              `json:"translation"`
	Text        *string             `json:"text"`
	Error       *string             `json:"error"`
}

// OK reports whether the passage was retrieved.
func (r Result) OK() bool {
	return r.Error == nil
}

// Aggregate holds the results of one request in reference order.
type Aggregate struct {
	Success bool
	Results []Result
}

// NewAggregate wraps results; Success is true iff no result failed.
func NewAggregate(results []Result) Aggregate {
	agg := Aggregate{Success: true, Results: results}
	for _, r := range results {
		if !r.OK() {
			agg.Success = false
		}
	}
	return agg
}

// Service runs the parse, fetch and assemble pipeline.
type Service struct {
	source         Source
	translations   Translations
	parser         *reference.Parser
	concurrency    int
	defaultVersion string
	logger         *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithConcurrency bounds concurrent fetches within one request. Values below 1 mean sequential.
func WithConcurrency(n int) Option {
	return func(s *Service) { s.concurrency = max(n, 1) }
}

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithDefaultVersion sets the translation used when a request names none.
func WithDefaultVersion(code string) Option {
	return func(s *Service) { s.defaultVersion = code }
}

// WithParser replaces the reference parser, e.g. to add alias tables.
func WithParser(p *reference.Parser) Option {
	return func(s *Service) { s.parser = p }
}

// NewService returns a service that fetches from src and accepts the codes in tr.
func NewService(src Source, tr Translations, opts ...Option) *Service {
	s := &Service{
		source:         src,
		translations:   tr,
		parser:         reference.NewParser(reference.DefaultBooks),
		concurrency:    DefaultConcurrency,
		defaultVersion: DefaultVersion,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Translations returns the supported translation set.
func (s *Service) Translations() Translations {
	return s.translations
}

// Lookup parses passage and fetches every reference in version. A
// *reference.ParseError is returned before any fetch is attempted; all other
// failures are reported per passage inside the Response.
func (s *Service) Lookup(ctx context.Context, passage, version string) (Response, error) {
	if strings.TrimSpace(version) == "" {
		version = s.defaultVersion
	}
	if code, ok := s.translations.Canonical(version); ok {
		version = code
	}

	refs, err := s.parser.Parse(passage)
	if err != nil {
		s.logger.Info("rejected passage request", zap.String("passage", passage), zap.Error(err))
		return Response{}, err
	}

	start := time.Now()
	agg := s.FetchAll(ctx, refs, version)
	s.logger.Info("passage request completed",
		zap.String("passage", passage),
		zap.String("version", version),
		zap.Int("references", len(refs)),
		zap.Bool("success", agg.Success),
		zap.Duration("duration", time.Since(start)),
	)
	return NewResponse(passage, version, agg), nil
}

// FetchAll fetches every reference, concurrently up to the configured limit,
// and returns the results in the order of refs. A failed reference never
// stops the others.
func (s *Service) FetchAll(ctx context.Context, refs []reference.Reference, translation string) Aggregate {
	type indexed struct {
		index  int
		result Result
	}

	done := make(chan indexed, len(refs))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, ref := range refs {
		g.Go(func() error {
			done <- indexed{index: i, result: s.FetchAndClean(ctx, ref, translation)}
			return nil
		})
	}
	_ = g.Wait()
	close(done)

	collected := make([]indexed, 0, len(refs))
	for r := range done {
		collected = append(collected, r)
	}
	slices.SortStableFunc(collected, func(a, b indexed) int {
		return cmp.Compare(a.index, b.index)
	})

	results := make([]Result, 0, len(collected))
	for _, r := range collected {
		results = append(results, r.result)
	}
	return NewAggregate(results)
}

// FetchAndClean fetches one reference. It never fails: errors are recorded
// in the Result. Unsupported translations are rejected without a fetch.
func (s *Service) FetchAndClean(ctx context.Context, ref reference.Reference, translation string) Result {
	code, ok := s.translations.Canonical(translation)
	if !ok {
		return failed(ref, translation, ErrUnsupportedTranslation.Error())
	}

	text, err := s.source.Passage(ctx, ref, code)
	if err == nil && strings.TrimSpace(text) == "" {
		err = gateway.ErrFormat
	}
	if err != nil {
		class := gateway.Class(err)
		s.logger.Warn("failed to fetch passage",
			zap.Stringer("reference", ref),
			zap.String("version", code),
			zap.String("class", class),
			zap.Error(err),
		)
		return failed(ref, code, class)
	}
	return Result{Reference: ref, Translation: code, Text: &text}
}

func failed(ref reference.Reference, translation, class string) Result {
	return Result{Reference: ref, Translation: translation, Error: &class}
}
