package fields

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/bobmcallan/finsight/internal/common"
	"github.com/bobmcallan/finsight/internal/fieldindex"
	"github.com/bobmcallan/finsight/internal/models"
)

// Snapshot is an immutable view of the merged configuration. Readers hold a
// Snapshot for the duration of a call; reloads publish a new one.
type Snapshot struct {
	sources []string
	fields  map[models.Market][]models.FieldDefinition
	indexes map[models.Market]*fieldindex.Index
}

var emptySnapshot = &Snapshot{
	fields:  map[models.Market][]models.FieldDefinition{},
	indexes: map[models.Market]*fieldindex.Index{},
}

// Index returns the keyword index for market. Markets with no loaded
// configuration get an empty index, never nil.
func (s *Snapshot) Index(m models.Market) *fieldindex.Index {
	if ix, ok := s.indexes[m]; ok {
		return ix
	}
	return fieldindex.Build(m, nil)
}

// Markets returns the markets present in any loaded source, in display order.
func (s *Snapshot) Markets() []models.Market {
	var out []models.Market
	for _, m := range models.AllMarkets {
		if _, ok := s.indexes[m]; ok {
			out = append(out, m)
		}
	}
	return out
}

// Sources returns the names of the sources merged into this snapshot, in load order.
func (s *Snapshot) Sources() []string {
	return append([]string(nil), s.sources...)
}

// Store holds the merged field configuration. Reads are lock-free against
// the current Snapshot; writers build a new Snapshot and swap it in.
type Store struct {
	mu      sync.Mutex // serialises Load/Reload/Reset
	current atomic.Pointer[Snapshot]
	loaded  []Source
	logger  *common.Logger
}

// NewStore creates an empty Store
func NewStore(logger *common.Logger) *Store {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	s := &Store{logger: logger}
	s.current.Store(emptySnapshot)
	return s
}

// Snapshot returns the currently published configuration.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Load merges sources, in order, on top of what is already loaded. A source
// that fails is skipped and reported as a *ConfigurationLoadError in the
// joined error; the remaining sources are still published.
func (s *Store) Load(sources ...Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := cloneState(s.current.Load())
	errs := s.applySources(st, sources)

	for _, src := range sources {
		if !failed(errs, src.Name()) && !s.retained(src.Name()) {
			s.loaded = append(s.loaded, src)
		}
	}

	s.publish(st)
	return errors.Join(errs...)
}

// Reload re-reads every previously loaded source into a fresh snapshot and
// swaps it in. When every source fails the current snapshot is kept.
func (s *Store) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.loaded) == 0 {
		return nil
	}

	st := newMergeState()
	errs := s.applySources(st, s.loaded)
	if len(errs) == len(s.loaded) {
		s.logger.Error().Int("sources", len(s.loaded)).Msg("Field configuration reload failed for every source; keeping current configuration")
		return errors.Join(errs...)
	}

	s.publish(st)
	return errors.Join(errs...)
}

// Reset drops all loaded configuration.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = nil
	s.current.Store(emptySnapshot)
}

func (s *Store) applySources(st *mergeState, sources []Source) []error {
	var errs []error
	for _, src := range sources {
		content, err := src.Load()
		if err != nil {
			s.logger.Warn().Str("source", src.Name()).Err(err).Msg("Field source failed to load")
			errs = append(errs, &ConfigurationLoadError{Source: src.Name(), Err: err})
			continue
		}
		st.apply(src.Name(), content)

		count := 0
		for _, defs := range content {
			count += len(defs)
		}
		s.logger.Debug().Str("source", src.Name()).Int("fields", count).Msg("Field source loaded")
	}
	return errs
}

func (s *Store) publish(st *mergeState) {
	snap := st.snapshot()
	s.current.Store(snap)

	total := 0
	for _, defs := range snap.fields {
		total += len(defs)
	}
	s.logger.Info().
		Int("sources", len(snap.sources)).
		Int("markets", len(snap.indexes)).
		Int("fields", total).
		Msg("Field index rebuilt")
}

func (s *Store) retained(name string) bool {
	for _, src := range s.loaded {
		if src.Name() == name {
			return true
		}
	}
	return false
}

func failed(errs []error, name string) bool {
	for _, err := range errs {
		var cle *ConfigurationLoadError
		if errors.As(err, &cle) && cle.Source == name {
			return true
		}
	}
	return false
}

// MarketFields returns the merged definitions for market, ordered by
// priority then field_id.
func (s *Store) MarketFields(m models.Market) []models.FieldDefinition {
	return s.Snapshot().Index(m).Fields()
}

// Markets returns the markets present in any loaded source.
func (s *Store) Markets() []models.Market {
	return s.Snapshot().Markets()
}

// Search ranks market fields against term.
func (s *Store) Search(m models.Market, term string, limit int) []models.Candidate {
	return s.Snapshot().Index(m).Search(term, limit)
}

// Summary reports source and field counts.
func (s *Store) Summary() models.ConfigSummary {
	snap := s.Snapshot()
	sum := models.ConfigSummary{
		SourceCount:         len(snap.sources),
		Sources:             snap.Sources(),
		PerMarketFieldCount: make(map[models.Market]int, len(snap.fields)),
	}
	markets := snap.Markets()
	for _, m := range markets {
		n := len(snap.fields[m])
		sum.PerMarketFieldCount[m] = n
		sum.TotalFieldCount += n
	}
	sum.MarketCount = len(markets)
	return sum
}
