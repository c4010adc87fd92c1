// Package ftsearch is an embeddable full-text indexing and retrieval core:
// it accepts numbered documents, tokenizes them, persists a segmented
// inverted index behind a caller-supplied blob store, and answers term-set
// queries with ranked document ids. There is no server and no concurrency
// inside the core; callers serialize calls against one Engine the same way
// gsfa/gsfa-write.go and gsfa/gsfa-read.go serialize calls against their
// own store/linkedlog/manifest collaborators.
package ftsearch

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"unicode/utf8"

	"github.com/rpcpool/ftsearch/cachelog"
	"github.com/rpcpool/ftsearch/catalog"
	"github.com/rpcpool/ftsearch/mhash"
	"github.com/rpcpool/ftsearch/segment"
	"github.com/rpcpool/ftsearch/tokenize"
)

const (
	wordCacheFilename = "word_cache.bin"
	charCacheFilename = "char_cache.bin"
)

type batchState uint8

const (
	batchIdle batchState = iota
	batchInBatch
)

// Document is one record handed to AddDocument(s): an id plus the text the
// indexing tokenizer consumes, plus any extra fields a custom tokenizer
// wants to see.
type Document struct {
	ID    uint32
	Text  string
	Extra map[string]any
}

// Query is handed to Search: free text plus any extra fields a custom
// search tokenizer wants to see.
type Query struct {
	Text  string
	Extra map[string]any
}

// Hit is one search result: a document id, its accumulated score, and the
// query terms that matched it.
type Hit struct {
	ID     uint32
	Score  float64
	Tokens []string
}

// Engine is the indexing core. It is not safe for concurrent use: all
// public methods must be called serially on one goroutine, and only one
// Engine should ever be opened against a given store namespace at a time.
type Engine struct {
	cfg     *config
	cat     *catalog.Catalog
	wordLog *cachelog.Log
	charLog *cachelog.Log
	hash    mhash.Hash

	segments map[string]*segment.Segment

	initialized       bool
	batch             batchState
	pendingWordTokens uint64
	pendingCharTokens uint64

	metrics *metricsCollectors
}

// New builds an Engine from the given options. WithStore is required; see
// config.go for the full option set and its defaults.
func New(opts ...Option) (*Engine, error) {
	cfg := defaultConfig()
	cfg.apply(opts)
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	h := cfg.hash
	if h == nil {
		h = mhash.New(cfg.hashAlgorithm)
	}

	e := &Engine{
		cfg:      cfg,
		cat:      catalog.New(cfg.store),
		wordLog:  cachelog.Open(cfg.store, wordCacheFilename),
		charLog:  cachelog.Open(cfg.store, charCacheFilename),
		hash:     h,
		segments: make(map[string]*segment.Segment),
	}

	if cfg.registerer != nil {
		e.metrics = newMetricsCollectors()
		if err := e.metrics.register(cfg.registerer); err != nil {
			return nil, newError(KindConfigInvalid, "New", err)
		}
	}
	return e, nil
}

// Init loads the catalog and constructs a segment handle for every
// materialized descriptor it finds. Idempotent; safe to call more than
// once or to skip — every mutating and query method calls it internally.
func (e *Engine) Init(ctx context.Context) error {
	if e.initialized {
		return nil
	}
	if err := e.cat.Load(ctx); err != nil {
		return newError(KindStorageFailure, "Init", err)
	}
	for _, kind := range []catalog.SegmentKind{catalog.Word, catalog.Char} {
		for _, desc := range e.cat.Segments(kind) {
			if err := e.loadSegment(ctx, desc.Filename); err != nil {
				slog.Warn("ftsearch: segment failed to load, treating as missing", "file", desc.Filename, "error", err)
			}
		}
	}
	e.initialized = true
	return nil
}

func (e *Engine) ensureInit(ctx context.Context) error {
	if e.initialized {
		return nil
	}
	return e.Init(ctx)
}

// loadSegment reads filename from the store and, if present, decodes it
// into e.segments. A missing file is not an error — its tokens may still
// live only in the log, below minSave. A decode failure is CorruptIndex;
// the engine treats that segment as missing rather than failing the
// caller, and logs a warning so the condition is at least visible.
func (e *Engine) loadSegment(ctx context.Context, filename string) error {
	data, ok, err := e.cfg.store.Read(ctx, filename)
	if err != nil {
		return newError(KindStorageFailure, "loadSegment", err)
	}
	if !ok {
		return nil
	}
	seg, err := segment.Load(data)
	if err != nil {
		return newError(KindCorruptIndex, "loadSegment", err)
	}
	e.segments[filename] = seg
	return nil
}

func (e *Engine) ensureLoaded(ctx context.Context, filename string) {
	if _, ok := e.segments[filename]; ok {
		return
	}
	if err := e.loadSegment(ctx, filename); err != nil {
		slog.Warn("ftsearch: segment failed to load, treating as missing", "file", filename, "error", err)
	}
}

// StartBatch enters batch mode, deferring segment rollover and catalog
// saves until EndBatch. Re-entering batch mode resets the pending token
// counters.
func (e *Engine) StartBatch() {
	e.batch = batchInBatch
	e.pendingWordTokens = 0
	e.pendingCharTokens = 0
}

// EndBatch processes any accumulated token deltas, once per index type,
// and saves the catalog. It is idempotent: if a prior call failed partway,
// the pending counters for the type(s) that already succeeded have been
// cleared, so re-invoking only retries what is left.
func (e *Engine) EndBatch(ctx context.Context) error {
	if e.batch != batchInBatch {
		return nil
	}
	if err := e.ensureInit(ctx); err != nil {
		return err
	}
	if e.pendingWordTokens > 0 {
		if err := e.processSegment(ctx, catalog.Word, e.pendingWordTokens); err != nil {
			return err
		}
		e.pendingWordTokens = 0
	}
	if e.pendingCharTokens > 0 {
		if err := e.processSegment(ctx, catalog.Char, e.pendingCharTokens); err != nil {
			return err
		}
		e.pendingCharTokens = 0
	}
	if err := e.save(ctx, "EndBatch"); err != nil {
		return err
	}
	e.batch = batchIdle
	return nil
}

// AddDocument is the strict, single-document form of AddDocuments.
func (e *Engine) AddDocument(ctx context.Context, doc Document) error {
	return e.addDocuments(ctx, []Document{doc}, false)
}

// AddDocuments rejects the whole call if any document's id is already
// added or tombstoned.
func (e *Engine) AddDocuments(ctx context.Context, docs []Document) error {
	return e.addDocuments(ctx, docs, false)
}

// AddDocumentIfMissing is the lenient, single-document form of
// AddDocumentsIfMissing.
func (e *Engine) AddDocumentIfMissing(ctx context.Context, doc Document) error {
	return e.addDocuments(ctx, []Document{doc}, true)
}

// AddDocumentsIfMissing silently skips any document whose id is already
// added or tombstoned, processing the rest.
func (e *Engine) AddDocumentsIfMissing(ctx context.Context, docs []Document) error {
	return e.addDocuments(ctx, docs, true)
}

func (e *Engine) addDocuments(ctx context.Context, docs []Document, lenient bool) error {
	if err := e.ensureInit(ctx); err != nil {
		return err
	}

	var wordDocs, charDocs []cachelog.TokenizedDoc
	var newIds []uint32
	for _, doc := range docs {
		if e.cat.IsDeleted(doc.ID) {
			if lenient {
				continue
			}
			return newError(KindIdTombstoned, "AddDocument", fmt.Errorf("id %d", doc.ID))
		}
		if e.cat.IsAdded(doc.ID) {
			if lenient {
				continue
			}
			return newError(KindIdConflict, "AddDocument", fmt.Errorf("id %d", doc.ID))
		}

		tokens := e.cfg.indexingTokenizer(doc)
		words, chars := tokenize.Partition(tokens)
		if len(words) > 0 {
			wordDocs = append(wordDocs, cachelog.TokenizedDoc{ID: doc.ID, Tokens: words})
		}
		if len(chars) > 0 {
			charDocs = append(charDocs, cachelog.TokenizedDoc{ID: doc.ID, Tokens: chars})
		}
		newIds = append(newIds, doc.ID)
	}
	if len(newIds) == 0 {
		return nil
	}

	var wordDelta, charDelta uint64
	if len(wordDocs) > 0 {
		if _, err := e.wordLog.AppendBatch(ctx, wordDocs); err != nil {
			return newError(KindStorageFailure, "AddDocument", err)
		}
		for _, d := range wordDocs {
			wordDelta += uint64(len(d.Tokens))
		}
	}
	if len(charDocs) > 0 {
		if _, err := e.charLog.AppendBatch(ctx, charDocs); err != nil {
			return newError(KindStorageFailure, "AddDocument", err)
		}
		for _, d := range charDocs {
			charDelta += uint64(len(d.Tokens))
		}
	}

	for _, id := range newIds {
		e.cat.AddAddedId(id)
	}
	if e.metrics != nil {
		e.metrics.documentsAdded.Add(float64(len(newIds)))
	}

	if e.batch == batchInBatch {
		e.pendingWordTokens += wordDelta
		e.pendingCharTokens += charDelta
		return nil
	}

	if wordDelta > 0 {
		if err := e.processSegment(ctx, catalog.Word, wordDelta); err != nil {
			return err
		}
	}
	if charDelta > 0 {
		if err := e.processSegment(ctx, catalog.Char, charDelta); err != nil {
			return err
		}
	}
	return e.save(ctx, "AddDocument")
}

// processSegment applies the "don't spill" rollover decision for one index
// type: extend the tail segment if it has room, otherwise open a new one;
// materialize to disk only once the type's minSave threshold is met.
func (e *Engine) processSegment(ctx context.Context, kind catalog.SegmentKind, addedTokenCount uint64) error {
	log := e.logFor(kind)
	cacheSize, err := log.Size(ctx)
	if err != nil {
		return newError(KindStorageFailure, "processSegment", err)
	}

	threshold := e.thresholdFor(kind)
	minSave := e.minSaveFor(kind)
	last, hasLast := e.cat.LastSegment(kind)

	var isNew bool
	var startOffset, newTotal uint64
	var filename string

	switch {
	case !hasLast:
		isNew = true
		startOffset = 0
		newTotal = addedTokenCount
		filename = segmentFilename(kind, e.cat.NextSegmentNumber(kind))
	case last.TokenCount >= threshold || last.TokenCount+addedTokenCount >= threshold:
		isNew = true
		startOffset = last.End
		newTotal = addedTokenCount
		filename = segmentFilename(kind, e.cat.NextSegmentNumber(kind))
		if e.metrics != nil {
			e.metrics.segmentsRollover.WithLabelValues(kind.String()).Inc()
		}
	default:
		isNew = false
		startOffset = last.Start
		newTotal = last.TokenCount + addedTokenCount
		filename = last.Filename
	}

	if e.metrics != nil {
		e.metrics.logBytes.WithLabelValues(kind.String()).Set(float64(cacheSize))
	}

	if newTotal < minSave {
		e.cat.UpdateSegment(kind, filename, startOffset, cacheSize, newTotal, isNew)
		return nil
	}

	docs, err := cachelog.ReadRange(ctx, e.cfg.store, e.logNameFor(kind), startOffset, cacheSize)
	if err != nil {
		return newError(KindStorageFailure, "processSegment", err)
	}

	buf := segment.Build(docs, e.hash)
	if err := e.cfg.store.Write(ctx, filename, buf); err != nil {
		return newError(KindStorageFailure, "processSegment", err)
	}
	seg, err := segment.Load(buf)
	if err != nil {
		return newError(KindCorruptIndex, "processSegment", err)
	}
	e.segments[filename] = seg
	e.cat.UpdateSegment(kind, filename, startOffset, cacheSize, newTotal, isNew)
	slog.Debug("ftsearch: segment materialized", "file", filename, "tokenCount", newTotal)
	return nil
}

// Search tokenizes query, partitions it the same way intake does, and
// unions per-segment postings into scored hits. limit <= 0 means no limit.
func (e *Engine) Search(ctx context.Context, query Query, limit int) ([]Hit, error) {
	if err := e.ensureInit(ctx); err != nil {
		return nil, err
	}

	tokens := e.cfg.searchTokenizer(query)
	words, chars := tokenize.Partition(tokens)

	type accum struct {
		score  float64
		tokens map[string]struct{}
	}
	hits := make(map[uint32]*accum)

	record := func(kind catalog.SegmentKind, terms []string) {
		for _, term := range terms {
			weight := 1 + 0.1*float64(utf8.RuneCountInString(term))
			for _, desc := range e.cat.Segments(kind) {
				e.ensureLoaded(ctx, desc.Filename)
				seg, ok := e.segments[desc.Filename]
				if !ok {
					continue
				}
				for _, id := range seg.Search(term, e.hash) {
					if e.cat.IsDeleted(id) {
						continue
					}
					a, ok := hits[id]
					if !ok {
						a = &accum{tokens: make(map[string]struct{})}
						hits[id] = a
					}
					a.score += weight
					a.tokens[term] = struct{}{}
				}
			}
		}
	}
	record(catalog.Word, words)
	record(catalog.Char, chars)

	results := make([]Hit, 0, len(hits))
	for id, a := range hits {
		toks := make([]string, 0, len(a.tokens))
		for t := range a.tokens {
			toks = append(toks, t)
		}
		sort.Strings(toks)
		results = append(results, Hit{ID: id, Score: a.score, Tokens: toks})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// HasDocument reports whether id has ever been seen: added or tombstoned.
func (e *Engine) HasDocument(ctx context.Context, id uint32) (bool, error) {
	if err := e.ensureInit(ctx); err != nil {
		return false, err
	}
	return e.cat.HasDocument(id), nil
}

// RemoveDocument tombstones id. Postings are never rewritten; Search
// filters deleted ids out at query time.
func (e *Engine) RemoveDocument(ctx context.Context, id uint32) error {
	if err := e.ensureInit(ctx); err != nil {
		return err
	}
	e.cat.AddDeletedId(id)
	e.cat.RemoveAddedId(id)
	if e.metrics != nil {
		e.metrics.documentsDeleted.Inc()
	}
	return e.save(ctx, "RemoveDocument")
}

// Status reports segment counts, log sizes, the tombstone count, and
// whether the engine is currently in batch mode.
func (e *Engine) Status(ctx context.Context) (Status, error) {
	if err := e.ensureInit(ctx); err != nil {
		return Status{}, err
	}
	wordSize, err := e.wordLog.Size(ctx)
	if err != nil {
		return Status{}, newError(KindStorageFailure, "Status", err)
	}
	charSize, err := e.charLog.Size(ctx)
	if err != nil {
		return Status{}, newError(KindStorageFailure, "Status", err)
	}
	return Status{
		WordSegments:  len(e.cat.Segments(catalog.Word)),
		CharSegments:  len(e.cat.Segments(catalog.Char)),
		Deleted:       e.cat.DeletedCount(),
		WordCacheSize: wordSize,
		CharCacheSize: charSize,
		InBatch:       e.batch == batchInBatch,
	}, nil
}

// ClearAll wipes the store namespace and resets the engine to an
// uninitialized, idle state.
func (e *Engine) ClearAll(ctx context.Context) error {
	if err := e.cfg.store.ClearAll(ctx); err != nil {
		return newError(KindStorageFailure, "ClearAll", err)
	}
	e.cat.Reset()
	e.segments = make(map[string]*segment.Segment)
	e.initialized = false
	e.batch = batchIdle
	e.pendingWordTokens = 0
	e.pendingCharTokens = 0
	return nil
}

func (e *Engine) save(ctx context.Context, op string) error {
	if err := e.cat.Save(ctx); err != nil {
		return newError(KindStorageFailure, op, err)
	}
	return nil
}

func (e *Engine) logFor(kind catalog.SegmentKind) *cachelog.Log {
	if kind == catalog.Word {
		return e.wordLog
	}
	return e.charLog
}

func (e *Engine) logNameFor(kind catalog.SegmentKind) string {
	if kind == catalog.Word {
		return wordCacheFilename
	}
	return charCacheFilename
}

func (e *Engine) thresholdFor(kind catalog.SegmentKind) uint64 {
	if kind == catalog.Word {
		return e.cfg.wordSegmentTokenThreshold
	}
	return e.cfg.charSegmentTokenThreshold
}

func (e *Engine) minSaveFor(kind catalog.SegmentKind) uint64 {
	if kind == catalog.Word {
		return e.cfg.minWordTokenSave
	}
	return e.cfg.minCharTokenSave
}

func segmentFilename(kind catalog.SegmentKind, n int) string {
	if kind == catalog.Word {
		return fmt.Sprintf("word_seg_%d.bin", n)
	}
	return fmt.Sprintf("char_seg_%d.bin", n)
}
