package modellist

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// GrazieModel is the only model offered on the Grazie platform.
const GrazieModel = "GPT-4"

const platformGrazie = "Grazie"

// Source lists models for a token. *Lister implements it.
type Source interface {
	List(ctx context.Context, token string) ([]string, error)
}

// State is what a model selector shows: the ordered choices and whether
// the user may pick among them.
type State struct {
	Models  []string
	Enabled bool
}

// Catalog holds the current State and refreshes it in the background.
// Readers never observe a partially built list: a refresh publishes its
// State in one atomic swap when the fetch completes or fails, and a
// refresh that has been superseded by a later one publishes nothing.
type Catalog struct {
	src    Source
	logger zerolog.Logger

	state atomic.Pointer[State]
	gen   atomic.Uint64

	publishMu sync.Mutex
	group     singleflight.Group
	wg        sync.WaitGroup
}

// CatalogOption configures a Catalog.
type CatalogOption func(*Catalog)

// WithCatalogLogger sets the logger. The default discards everything.
func WithCatalogLogger(logger zerolog.Logger) CatalogOption {
	return func(c *Catalog) {
		c.logger = logger
	}
}

// NewCatalog returns a Catalog that starts empty and disabled.
func NewCatalog(src Source, opts ...CatalogOption) *Catalog {
	c := &Catalog{src: src, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	c.state.Store(&State{})
	return c
}

// Current returns the last published State.
func (c *Catalog) Current() State {
	return *c.state.Load()
}

// Refresh starts fetching the models for platform and token. The returned
// channel yields the State this refresh produced and is then closed; the
// State is published only if no later Refresh has started meanwhile.
// Concurrent refreshes for the same token share one request, which runs
// until it completes regardless of which caller started it. A refresh
// whose ctx ends first yields nothing and publishes nothing.
func (c *Catalog) Refresh(ctx context.Context, platform, token, lastChosen string) <-chan State {
	gen := c.gen.Add(1)
	out := make(chan State, 1)

	if platform == platformGrazie {
		s := State{Models: []string{GrazieModel}, Enabled: false}
		c.publish(gen, s)
		out <- s
		close(out)
		return out
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(out)

		fetch := context.WithoutCancel(ctx)
		ch := c.group.DoChan(token, func() (any, error) {
			return c.src.List(fetch, token)
		})
		var res singleflight.Result
		select {
		case res = <-ch:
		case <-ctx.Done():
			c.logger.Debug().Uint64("generation", gen).Err(ctx.Err()).Msg("model list refresh abandoned")
			return
		}

		var s State
		if res.Err != nil {
			c.logger.Warn().Err(res.Err).Msg("model list unavailable")
		} else {
			s = State{Models: SortModels(res.Val.([]string), lastChosen), Enabled: true}
		}
		c.logger.Debug().Uint64("generation", gen).Bool("shared", res.Shared).Int("count", len(s.Models)).Msg("model list refreshed")
		c.publish(gen, s)
		out <- s
	}()
	return out
}

// Wait blocks until every started refresh has finished.
func (c *Catalog) Wait() {
	c.wg.Wait()
}

func (c *Catalog) publish(gen uint64, s State) {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()
	if gen != c.gen.Load() {
		c.logger.Debug().Uint64("generation", gen).Msg("discarding stale model list")
		return
	}
	c.state.Store(&s)
}
