package legend

import (
	"time"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/seenimoa/openviz/internal/infra"
	"github.com/seenimoa/openviz/internal/logging"
	"github.com/seenimoa/openviz/pkg/models"
)

// Classifier memoizes classifications keyed by CacheKey(dataset, config).
// It is safe for concurrent use.
type Classifier struct {
	cache *infra.Cache
	log   *bolt.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithCache sets the memo cache. A nil cache disables memoization.
func WithCache(c *infra.Cache) Option {
	return func(cl *Classifier) { cl.cache = c }
}

// WithLogger sets the logger used for cache and truncation diagnostics.
func WithLogger(l *bolt.Logger) Option {
	return func(cl *Classifier) { cl.log = l }
}

// NewClassifier creates a Classifier with a 5 minute, 64 entry cache by default.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{
		cache: infra.NewCache(5 * time.Minute).WithMaxEntries(64),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logging.Get()
	}
	return c
}

// Classify returns the legend for ds and cfg, reusing a cached result when
// both are unchanged. The returned Result is the caller's to modify.
func (c *Classifier) Classify(ds models.Dataset, cfg models.LegendConfig) (*Result, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	var key string
	if c.cache != nil {
		key = CacheKey(ds, cfg)
		if v, ok := c.cache.Get(key); ok {
			logging.With(c.log.Debug(), logging.LegendType(string(cfg.Type)), logging.Cached(true)).Msg("legend cache hit")
			return v.(*Result).Clone(), nil
		}
	}

	res, err := Classify(ds, cfg)
	if err != nil {
		return nil, err
	}

	if res.Truncated > 0 {
		logging.With(c.log.Debug(),
			logging.Column(cfg.PrimaryColumn),
			logging.Dropped(res.Truncated),
		).Msg("categorical legend capped; extra values left unclassified")
	}
	logging.With(c.log.Debug(),
		logging.LegendType(string(cfg.Type)),
		logging.Classes(len(res.Classes)),
		logging.Rows(len(res.Lookup)),
		logging.Cached(false),
	).Msg("legend classified")

	if c.cache != nil {
		c.cache.Set(key, res.Clone())
	}
	return res, nil
}

// Prune drops expired cache entries and reports how many remain.
func (c *Classifier) Prune() int {
	if c.cache == nil {
		return 0
	}
	c.cache.Cleanup()
	return c.cache.Len()
}

// Reset empties the cache.
func (c *Classifier) Reset() {
	if c.cache != nil {
		c.cache.Flush()
	}
}

// ClassifyView bins the full dataset when cfg.Unified is set and the
// currently visible subset otherwise.
func (c *Classifier) ClassifyView(full, visible models.Dataset, cfg models.LegendConfig) (*Result, error) {
	return c.Classify(Source(full, visible, cfg), cfg)
}

// Source picks the dataset a legend is built against.
func Source(full, visible models.Dataset, cfg models.LegendConfig) models.Dataset {
	if cfg.Unified {
		return full
	}
	return visible
}
