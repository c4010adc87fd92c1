package ftsearch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rpcpool/ftsearch/blobstore"
	"github.com/rpcpool/ftsearch/mhash"
	"github.com/rpcpool/ftsearch/tokenize"
)

const (
	defaultWordSegmentTokenThreshold = 100_000
	defaultCharSegmentTokenThreshold = 500_000
	defaultMinWordTokenSave          = 0
	defaultMinCharTokenSave          = 0
)

// config holds the resolved settings for a New call, built from the
// required Store option plus any Options applied on top of defaults. This
// is the same apply-options-onto-a-defaulted-struct shape as
// gsfa/store.Option: a private config type, a public Option func(*config),
// and one constructor that applies them in order.
type config struct {
	store blobstore.Store

	indexingTokenizer func(Document) []string
	searchTokenizer   func(Query) []string

	wordSegmentTokenThreshold uint64
	charSegmentTokenThreshold uint64
	minWordTokenSave          uint64
	minCharTokenSave          uint64

	hashAlgorithm mhash.Algorithm
	hash          mhash.Hash

	registerer prometheus.Registerer
}

// Option configures a New call.
type Option func(*config)

func (c *config) apply(opts []Option) {
	for _, opt := range opts {
		opt(c)
	}
}

func defaultConfig() *config {
	return &config{
		indexingTokenizer:         func(doc Document) []string { return tokenize.DefaultTokenizer(doc.Text) },
		searchTokenizer:           func(q Query) []string { return tokenize.DefaultTokenizer(q.Text) },
		wordSegmentTokenThreshold: defaultWordSegmentTokenThreshold,
		charSegmentTokenThreshold: defaultCharSegmentTokenThreshold,
		minWordTokenSave:          defaultMinWordTokenSave,
		minCharTokenSave:          defaultMinCharTokenSave,
		hashAlgorithm:             mhash.Algorithm64,
	}
}

// WithStore injects the blob store namespace the engine persists to. This
// is the one required option; New returns ErrConfigInvalid without it.
func WithStore(store blobstore.Store) Option {
	return func(c *config) { c.store = store }
}

// WithIndexingTokenizer overrides the tokenizer used for AddDocument(s).
// The function receives the whole Document, so it can inspect Extra as well
// as Text. Defaults to tokenize.DefaultTokenizer applied to doc.Text.
func WithIndexingTokenizer(fn func(Document) []string) Option {
	return func(c *config) { c.indexingTokenizer = fn }
}

// WithSearchTokenizer overrides the tokenizer used for Search queries. The
// function receives the whole Query, so it can inspect Extra as well as
// Text. Defaults to tokenize.DefaultTokenizer applied to query.Text.
func WithSearchTokenizer(fn func(Query) []string) Option {
	return func(c *config) { c.searchTokenizer = fn }
}

// WithWordSegmentTokenThreshold sets the token-count cap at which a new
// word segment starts instead of extending the tail. Default 100000.
func WithWordSegmentTokenThreshold(threshold uint64) Option {
	return func(c *config) { c.wordSegmentTokenThreshold = threshold }
}

// WithCharSegmentTokenThreshold is WithWordSegmentTokenThreshold for the
// character pipeline. Default 500000.
func WithCharSegmentTokenThreshold(threshold uint64) Option {
	return func(c *config) { c.charSegmentTokenThreshold = threshold }
}

// WithMinWordTokenSave sets the minimum tokenCount before a word segment is
// materialized to disk rather than left as log-only. Default 0.
func WithMinWordTokenSave(minSave uint64) Option {
	return func(c *config) { c.minWordTokenSave = minSave }
}

// WithMinCharTokenSave is WithMinWordTokenSave for the character pipeline.
// Default 0.
func WithMinCharTokenSave(minSave uint64) Option {
	return func(c *config) { c.minCharTokenSave = minSave }
}

// WithHashAlgorithm selects the 32-bit or 64-bit dictionary hash width.
// Default Algorithm64. Two engines opened against the same base directory
// must agree on this setting.
func WithHashAlgorithm(alg mhash.Algorithm) Option {
	return func(c *config) { c.hashAlgorithm = alg }
}

// WithHash injects a custom mhash.Hash implementation instead of the
// default murmur3-backed one — for callers who need a different seed or a
// hash they can prove is stable across their own process fleet.
func WithHash(h mhash.Hash) Option {
	return func(c *config) { c.hash = h; c.hashAlgorithm = h.Algorithm() }
}

// WithMetricsRegisterer enables optional Prometheus instrumentation,
// registering the engine's collectors against registerer. Unset by
// default: the core has no import-time registration side effect, because
// an embeddable library should not reach for a global registry on its own.
func WithMetricsRegisterer(registerer prometheus.Registerer) Option {
	return func(c *config) { c.registerer = registerer }
}

func (c *config) validate() error {
	if c.store == nil {
		return newError(KindConfigInvalid, "New", errStoreRequired)
	}
	if c.minWordTokenSave >= c.wordSegmentTokenThreshold {
		return newError(KindConfigInvalid, "New", errWordThresholdInvalid)
	}
	if c.minCharTokenSave >= c.charSegmentTokenThreshold {
		return newError(KindConfigInvalid, "New", errCharThresholdInvalid)
	}
	return nil
}
