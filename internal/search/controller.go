// Package search drives password candidates through an archive verifier and
// stops on the first password that decrypts the archive.
package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"zipcrack/internal/archive"
	"zipcrack/internal/candidate"
)

// Mode selects how candidates are generated.
type Mode string

const (
	ModeBrute Mode = "brute"
	ModeDict  Mode = "dict"
)

// Config describes one search.
type Config struct {
	ArchivePath string

	Mode      Mode
	Wordlist  string
	Alphabet  string
	MinLength int
	MaxLength int

	// Workers > 1 verifies candidates concurrently.
	Workers int
	// StatsInterval > 0 logs attempts and rate periodically.
	StatsInterval time.Duration
}

// Progress receives cosmetic progress updates. total is -1 when unknown.
type Progress interface {
	Start(total int64)
	Add(n int)
	Finish()
}

type Option func(*Controller)

func WithLogger(log *zap.Logger) Option {
	return func(c *Controller) { c.log = log }
}

func WithProgress(p Progress) Option {
	return func(c *Controller) { c.progress = p }
}

// WithGenerator replaces the generator described by Config.Mode.
func WithGenerator(g candidate.Generator) Option {
	return func(c *Controller) { c.gen = g }
}

// WithTarget replaces the archive at Config.ArchivePath.
func WithTarget(t Target) Option {
	return func(c *Controller) { c.target = t }
}

// Controller runs a single search. It is not reusable.
type Controller struct {
	cfg      Config
	log      *zap.Logger
	progress Progress
	gen      candidate.Generator
	target   Target

	state    atomic.Int32
	attempts atomic.Int64
	length   int
	// line is the word-list line of the last candidate pulled.
	line atomic.Int64

	mu       sync.Mutex
	suspect  *result
	suspects int
}

func New(cfg Config, opts ...Option) *Controller {
	c := &Controller{cfg: cfg, log: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run is shorthand for New(cfg, opts...).Run(ctx).
func Run(ctx context.Context, cfg Config, opts ...Option) (*Outcome, error) {
	return New(cfg, opts...).Run(ctx)
}

func (c *Controller) State() State { return State(c.state.Load()) }

// Attempts is the number of verifications made so far.
func (c *Controller) Attempts() int64 { return c.attempts.Load() }

// result is what a search loop ends with; index orders concurrent results.
type result struct {
	index    int64
	found    bool
	password string
	err      error
}

// Run performs the search and returns its outcome. The error is non-nil
// exactly when the outcome status is Failed, and is the outcome's Err.
func (c *Controller) Run(ctx context.Context) (*Outcome, error) {
	if c.State() != Idle {
		return nil, errors.New("search: controller already used")
	}
	start := time.Now()

	gen, err := c.openGenerator()
	if err != nil {
		return c.finish(start, result{err: err})
	}
	defer gen.Close()

	target := c.target
	if target == nil {
		if target, err = openArchive(c.cfg.ArchivePath); err != nil {
			return c.finish(start, result{err: err})
		}
	}
	defer target.Close()

	c.state.Store(int32(Searching))
	fields := []zap.Field{
		zap.String("archive", c.cfg.ArchivePath),
		zap.String("mode", string(c.mode())),
		zap.Int("workers", max(c.cfg.Workers, 1)),
	}
	if a, ok := target.(interface {
		Scheme() archive.Scheme
		Entries() int
	}); ok {
		fields = append(fields, zap.String("scheme", string(a.Scheme())), zap.Int("entries", a.Entries()))
	}
	c.log.Info("search started", fields...)

	if c.progress != nil {
		c.progress.Start(c.total(gen))
		defer c.progress.Finish()
	}
	if c.cfg.StatsInterval > 0 {
		stop := make(chan struct{})
		defer close(stop)
		go c.reportStats(stop, start)
	}

	var res result
	if c.cfg.Workers > 1 {
		res = c.parallel(ctx, gen, target)
	} else {
		res = c.sequential(ctx, gen, target)
	}
	if !res.found && res.err == nil {
		res.err = c.suspectedCorruption()
	}
	return c.finish(start, res)
}

func (c *Controller) sequential(ctx context.Context, gen candidate.Generator, target Target) result {
	v, err := target.NewVerifier()
	if err != nil {
		return result{err: err}
	}
	var i int64
	for pwd := range candidate.Seq(gen) {
		if err := ctx.Err(); err != nil {
			return result{err: err}
		}
		c.observe(gen)

		if res, done := c.judge(i, pwd, v.Verify(pwd)); done {
			return res
		}
		i++
	}
	return result{err: gen.Err()}
}

// judge counts one verification and turns it into a terminal result, or
// returns false when the search goes on.
func (c *Controller) judge(index int64, pwd string, err error) (result, bool) {
	c.attempted()
	switch {
	case err == nil:
		return result{index: index, found: true, password: pwd}, true
	case errors.Is(err, archive.ErrWrongPassword):
		if errors.Is(err, archive.ErrIntegrity) {
			c.noteIntegrity(index, pwd, err)
		}
		return result{}, false
	default:
		return result{index: index, err: err}, true
	}
}

// noteIntegrity remembers a candidate that passed the password check but
// not the data. The lowest index is kept.
func (c *Controller) noteIntegrity(index int64, pwd string, err error) {
	c.mu.Lock()
	c.suspects++
	if c.suspect == nil || index < c.suspect.index {
		c.suspect = &result{index: index, password: pwd, err: err}
	}
	c.mu.Unlock()
	c.log.Warn("candidate passed the password check but failed the integrity check",
		zap.Int64("index", index), zap.Error(err))
}

// suspectedCorruption is the error for an exhausted search in which some
// candidate decrypted past the password check: either the archive data is
// damaged or that candidate was a rare false match.
func (c *Controller) suspectedCorruption() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.suspect == nil {
		return nil
	}
	return fmt.Errorf("%w: %w: no candidate decrypted the archive, %d passed the password check, first %q",
		archive.ErrFatalArchive, archive.ErrIntegrity, c.suspects, c.suspect.password)
}

func (c *Controller) finish(start time.Time, res result) (*Outcome, error) {
	out := &Outcome{
		Attempts: c.attempts.Load(),
		Elapsed:  time.Since(start),
	}
	switch {
	case res.found:
		c.state.Store(int32(Succeeded))
		out.Status = Found
		out.Password = res.password
	case res.err != nil:
		c.state.Store(int32(Fatal))
		out.Status = Failed
		out.Err = res.err
	default:
		c.state.Store(int32(Exhausted))
		out.Status = NotFound
	}

	fields := []zap.Field{
		zap.Stringer("status", out.Status),
		zap.Int64("attempts", out.Attempts),
		zap.Duration("elapsed", out.Elapsed),
	}
	if c.mode() == ModeDict {
		fields = append(fields, zap.Int64("line", c.line.Load()))
	}
	if out.Err != nil {
		c.log.Error("search finished", append(fields, zap.Error(out.Err))...)
		return out, out.Err
	}
	c.log.Info("search finished", fields...)
	return out, nil
}

func (c *Controller) mode() Mode {
	if c.cfg.Mode == "" {
		return ModeBrute
	}
	return c.cfg.Mode
}

func (c *Controller) openGenerator() (candidate.Generator, error) {
	if c.gen != nil {
		return c.gen, nil
	}
	switch c.mode() {
	case ModeDict:
		if c.cfg.Wordlist == "" {
			return nil, fmt.Errorf("%w: dictionary mode needs a word list", candidate.ErrInvalidConfiguration)
		}
		return candidate.OpenDictionary(c.cfg.Wordlist)
	case ModeBrute:
		minLen := c.cfg.MinLength
		if minLen == 0 {
			minLen = 1
		}
		return candidate.NewBruteForce(c.cfg.Alphabet, minLen, c.cfg.MaxLength)
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", candidate.ErrInvalidConfiguration, c.cfg.Mode)
	}
}

// total sizes the progress bar. Word lists are only counted when a bar is
// shown, since counting reads the whole file once more.
func (c *Controller) total(gen candidate.Generator) int64 {
	if s, ok := gen.(candidate.Sized); ok {
		return s.Total()
	}
	if c.mode() == ModeDict && c.cfg.Wordlist != candidate.StdinPath && c.gen == nil {
		if n, err := candidate.CountLines(c.cfg.Wordlist); err == nil {
			return n
		}
	}
	return -1
}

// observe tracks the generator position: the word-list line, or the
// brute-force length, logged when it grows. Only the goroutine pulling from
// gen calls it.
func (c *Controller) observe(gen candidate.Generator) {
	switch g := gen.(type) {
	case interface{ Line() int64 }:
		c.line.Store(g.Line())
	case interface{ Length() int }:
		if l := g.Length(); l != c.length {
			c.length = l
			c.log.Info("trying passwords of length", zap.Int("length", l))
		}
	}
}

func (c *Controller) attempted() {
	c.attempts.Add(1)
	if c.progress != nil {
		c.progress.Add(1)
	}
}

func (c *Controller) reportStats(stop <-chan struct{}, start time.Time) {
	ticker := time.NewTicker(c.cfg.StatsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			n := c.attempts.Load()
			elapsed := time.Since(start)
			fields := []zap.Field{
				zap.Int64("attempts", n),
				zap.Float64("per_second", float64(n)/elapsed.Seconds()),
				zap.Duration("elapsed", elapsed),
			}
			if c.mode() == ModeDict {
				fields = append(fields, zap.Int64("line", c.line.Load()))
			}
			c.log.Info("search progress", fields...)
		}
	}
}
