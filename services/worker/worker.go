package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"sjsage522/passoworker/internal/browser"
	"sjsage522/passoworker/internal/crawler"
	"sjsage522/passoworker/logger"
	scrape "sjsage522/passoworker/pkg/errors"
	"sjsage522/passoworker/services/cache"
	"sjsage522/passoworker/services/publisher"
)

// ErrNoCategory is reported for a detail request made before any list was
// fetched successfully
var ErrNoCategory = errors.New("no match list fetched yet")

// ErrStopped is returned by Submit once the worker has stopped
var ErrStopped = errors.New("worker stopped")

const defaultEventBuffer = 64

// Options configures a Worker
type Options struct {
	StartURL string
	Category string
	Crawler  crawler.CrawlerConfig

	// Cache and Publisher are optional
	Cache     *cache.CategoryCache
	Publisher publisher.Publisher

	EventBuffer int
	Production  bool
}

// Worker owns the browser session and runs jobs against it one at a time on
// a single goroutine. Results come back as Events.
type Worker struct {
	ctx        context.Context
	drv        browser.Driver
	crawler    *crawler.Crawler
	cache      *cache.CategoryCache
	publisher  publisher.Publisher
	startURL   string
	category   string
	production bool
	log        *logger.Logger

	jobs     chan Job
	events   chan Event
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	started  atomic.Bool

	// Only touched by the worker goroutine.
	current     Job
	categoryURL string
}

// NewWorker creates a worker. Start must be called to process jobs.
func NewWorker(ctx context.Context, drv browser.Driver, opts Options) *Worker {
	buffer := opts.EventBuffer
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}
	pub := opts.Publisher
	if pub == nil {
		pub = publisher.NopPublisher{}
	}

	w := &Worker{
		ctx:        ctx,
		drv:        drv,
		cache:      opts.Cache,
		publisher:  pub,
		startURL:   opts.StartURL,
		category:   opts.Category,
		production: opts.Production,
		log:        logger.ForWorker(),
		jobs:       make(chan Job),
		events:     make(chan Event, buffer),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	w.crawler = crawler.NewCrawler(opts.Crawler, w.status)
	return w
}

// Events returns the event stream. It is closed when the worker stops.
func (w *Worker) Events() <-chan Event {
	return w.events
}

// Submit hands job to the worker goroutine, blocking while another job runs.
func (w *Worker) Submit(job Job) error {
	select {
	case w.jobs <- job:
		return nil
	case <-w.quit:
		return ErrStopped
	case <-w.done:
		return ErrStopped
	case <-w.ctx.Done():
		return w.ctx.Err()
	}
}

// Start runs the job loop until Stop is called or the context ends
func (w *Worker) Start() {
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	defer close(w.done)
	defer close(w.events)

	w.log.Info().Str("category", w.category).Msg("worker started")
	for {
		select {
		case <-w.ctx.Done():
			w.log.Info().Msg("worker stopped: context done")
			return
		case <-w.quit:
			w.log.Info().Msg("worker stopped")
			return
		case job := <-w.jobs:
			w.run(job)
		}
	}
}

// Stop asks the job loop to exit after the running job
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.quit) })
}

// Close stops the worker, waits for the job loop and shuts the browser
// session down.
func (w *Worker) Close() error {
	w.Stop()
	if w.started.Load() {
		<-w.done
	}
	if err := w.publisher.Close(); err != nil {
		w.log.Error().Err(err).Msg("closing publisher")
	}
	if closer, ok := w.drv.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (w *Worker) run(job Job) {
	w.current = job
	start := time.Now()

	switch job.Kind {
	case JobList:
		w.runList()
	case JobDetail:
		w.runDetail(job.Index)
	default:
		w.log.Warn().Str("job", string(job.Kind)).Msg("unknown job")
		return
	}

	if !w.production {
		w.log.Info().Str("job", string(job.Kind)).Dur("elapsed", time.Since(start)).Msg("job finished")
	}
}

func (w *Worker) runList() {
	matches, err := w.fetchList()
	if err != nil {
		w.logFailure(err, "list fetch failed")
		w.emit(Event{Kind: EventErrorOccurred, Message: fmt.Sprintf("Error fetching match list: %v", err), Err: err})
		return
	}

	if !w.production && logger.IsDebugEnabled() && len(matches) > 0 {
		w.log.Debug().Interface("first", matches[0]).Int("count", len(matches)).Msg("list data")
	}
	w.emit(Event{Kind: EventListReady, Matches: matches})

	if err := w.publisher.TrimStreams(); err != nil {
		w.log.Error().Err(err).Msg("stream trimming failed")
	}
}

// fetchList resolves the category URL, from cache when possible, and loads
// the list. The category context is only replaced after a successful fetch.
func (w *Worker) fetchList() ([]crawler.MatchSummary, error) {
	url, cached := w.cache.Lookup(w.category)
	if cached {
		w.status(fmt.Sprintf("Category link (cached): %s", url))
	} else {
		resolved, err := w.crawler.ResolveCategoryURL(w.ctx, w.drv, w.startURL, w.category)
		if err != nil {
			return nil, err
		}
		url = resolved
		_ = w.cache.Store(w.category, url)
	}

	matches, err := w.crawler.FetchMatchList(w.ctx, w.drv, url)
	if err != nil {
		if cached {
			if ferr := w.cache.Forget(w.category); ferr != nil {
				w.log.Warn().Err(ferr).Msg("dropping cached category url")
			}
		}
		return nil, err
	}

	w.categoryURL = url
	return matches, nil
}

func (w *Worker) runDetail(index int) {
	if w.categoryURL == "" {
		w.emit(Event{Kind: EventLogLine, Message: fmt.Sprintf("Error fetching details: %v", ErrNoCategory), Err: ErrNoCategory})
		return
	}

	detail, err := w.crawler.FetchMatchDetail(w.ctx, w.drv, w.categoryURL, index)
	if err != nil {
		w.logFailure(err, "detail fetch failed")
		w.emit(Event{Kind: EventLogLine, Message: fmt.Sprintf("Error fetching details: %v", err), Err: err})
		return
	}
	w.emit(Event{Kind: EventDetailReady, Detail: detail})
}

// logFailure logs a failed job, at warn level when the request itself was stale
func (w *Worker) logFailure(err error, msg string) {
	ev := w.log.Error()
	if se, ok := scrape.As(err); ok {
		if se.IsCallerError() {
			ev = w.log.Warn()
		}
		ev = ev.Str("type", string(se.Type)).
			Str("stage", se.Stage).
			Bool("recoverable", se.IsRecoverable())
	}
	ev.Err(err).Str("job", string(w.current.Kind)).Int("index", w.current.Index).Msg(msg)
}

// status forwards crawler progress lines as log events
func (w *Worker) status(msg string) {
	w.emit(Event{Kind: EventLogLine, Message: msg})
}

func (w *Worker) emit(ev Event) {
	ev.Job = w.current
	ev.Time = time.Now()
	w.mirror(ev)

	select {
	case w.events <- ev:
	case <-w.ctx.Done():
	}
}

// mirror publishes ev to the configured stream
func (w *Worker) mirror(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		w.log.Error().Err(err).Msg("encoding event")
		return
	}
	if err := w.publisher.Publish(string(ev.Kind), data); err != nil {
		w.log.Error().Err(err).Str("kind", string(ev.Kind)).Msg("mirroring event")
	}
}
