package fields

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/bobmcallan/finsight/internal/common"
	"github.com/bobmcallan/finsight/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func static(label string, m models.Market, defs ...models.FieldDefinition) StaticSource {
	return StaticSource{Label: label, Fields: MarketFields{m: defs}}
}

func TestStore_MergeUnionsAliases(t *testing.T) {
	s := NewStore(common.NewSilentLogger())
	err := s.Load(
		static("A", models.MarketMainland, models.FieldDefinition{FieldID: "X", DisplayName: "x", Aliases: []string{"foo"}}),
		static("B", models.MarketMainland, models.FieldDefinition{FieldID: "X", Aliases: []string{"bar"}}),
	)
	require.NoError(t, err)

	defs := s.MarketFields(models.MarketMainland)
	require.Len(t, defs, 1)
	assert.Equal(t, []string{"foo", "bar"}, defs[0].Aliases)
	assert.Equal(t, []string{"A", "B"}, defs[0].Sources)

	got := s.Search(models.MarketMainland, "bar", 1)
	require.Len(t, got, 1)
	assert.Equal(t, "X", got[0].FieldID)
	assert.Equal(t, 1.0, got[0].Score)
}

func TestStore_MergeLastWriteWinsUnlessEmpty(t *testing.T) {
	s := NewStore(nil)
	require.NoError(t, s.Load(
		static("A", models.MarketUS, models.FieldDefinition{FieldID: "EPS", DisplayName: "EPS", Unit: "USD", Priority: 3, Aliases: []string{"Earnings", "eps"}}),
		static("B", models.MarketUS, models.FieldDefinition{FieldID: "eps", DisplayName: "Basic EPS", Aliases: []string{"EARNINGS", "per share"}}),
	))

	defs := s.MarketFields(models.MarketUS)
	require.Len(t, defs, 1)
	d := defs[0]
	assert.Equal(t, "EPS", d.FieldID, "first spelling of the id is kept")
	assert.Equal(t, "Basic EPS", d.DisplayName)
	assert.Equal(t, "USD", d.Unit, "empty unit in later source keeps earlier value")
	assert.Equal(t, 3, d.Priority, "zero priority in later source keeps earlier value")
	assert.Equal(t, []string{"Earnings", "eps", "per share"}, d.Aliases)
}

func TestStore_LoadIsAdditiveAndIdempotent(t *testing.T) {
	s := NewStore(nil)
	a := static("A", models.MarketMainland, models.FieldDefinition{FieldID: "X", Aliases: []string{"foo"}})
	b := static("B", models.MarketHongKong, models.FieldDefinition{FieldID: "Y", Aliases: []string{"bar"}})

	require.NoError(t, s.Load(a))
	require.NoError(t, s.Load(b))
	require.NoError(t, s.Load(a))

	sum := s.Summary()
	assert.Equal(t, 2, sum.SourceCount)
	assert.Equal(t, []string{"A", "B"}, sum.Sources)
	assert.Equal(t, 2, sum.TotalFieldCount)
	assert.Equal(t, 2, sum.MarketCount)
	assert.Equal(t, []string{"foo"}, s.MarketFields(models.MarketMainland)[0].Aliases)
	assert.Equal(t, []models.Market{models.MarketMainland, models.MarketHongKong}, s.Markets())
}

func TestStore_MalformedSourceIsNonFatal(t *testing.T) {
	s := NewStore(nil)
	good := BytesSource{Label: "good", Data: []byte("markets:\n  CN:\n    fields:\n      NET_PROFIT:\n        aliases: [净利润]\n")}
	missing := BytesSource{Label: "missing-markets", Data: []byte("fields: []\n")}
	broken := BytesSource{Label: "broken", Data: []byte("markets: [unclosed\n")}
	badMarket := BytesSource{Label: "bad-market", Data: []byte("markets:\n  JP:\n    fields: {}\n")}

	err := s.Load(missing, good, broken, badMarket)
	require.Error(t, err)

	var cle *ConfigurationLoadError
	require.True(t, errors.As(err, &cle))
	assert.True(t, errors.Is(err, ErrMalformedSource))
	for _, name := range []string{"missing-markets", "broken", "bad-market"} {
		assert.Contains(t, err.Error(), name)
	}

	sum := s.Summary()
	assert.Equal(t, []string{"good"}, sum.Sources)
	assert.Equal(t, 1, sum.PerMarketFieldCount[models.MarketMainland])
}

func TestStore_EmptyMarketIsValid(t *testing.T) {
	s := NewStore(nil)
	require.NoError(t, s.Load(BytesSource{Label: "hk-empty", Data: []byte("markets:\n  HK:\n    fields: {}\n")}))

	assert.Equal(t, []models.Market{models.MarketHongKong}, s.Markets())
	assert.Empty(t, s.MarketFields(models.MarketHongKong))
	assert.Empty(t, s.Search(models.MarketHongKong, "净利润", 3))
	assert.Equal(t, 0, s.Summary().PerMarketFieldCount[models.MarketHongKong])
}

func TestStore_ResetAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fields.yaml")
	require.NoError(t, os.WriteFile(path, []byte("markets:\n  US:\n    fields:\n      EPS:\n        aliases: [eps]\n"), 0644))

	s := NewStore(nil)
	require.NoError(t, s.Load(FileSource{Path: path}))
	before := s.Snapshot()
	require.Len(t, s.MarketFields(models.MarketUS), 1)

	require.NoError(t, os.WriteFile(path, []byte("markets:\n  US:\n    fields:\n      EPS:\n        aliases: [eps]\n      ROE:\n        aliases: [roe]\n"), 0644))
	require.NoError(t, s.Reload())
	assert.Len(t, s.MarketFields(models.MarketUS), 2)

	// readers holding the old snapshot keep a consistent view
	assert.Equal(t, 1, before.Index(models.MarketUS).Len())

	// a reload where every source fails keeps the current configuration
	require.NoError(t, os.Remove(path))
	require.Error(t, s.Reload())
	assert.Len(t, s.MarketFields(models.MarketUS), 2)

	s.Reset()
	assert.Empty(t, s.Markets())
	assert.Equal(t, 0, s.Summary().SourceCount)
	assert.NoError(t, s.Reload(), "reload with nothing loaded is a no-op")
}

func TestStore_ConcurrentReadersDuringReload(t *testing.T) {
	s := NewStore(nil)
	require.NoError(t, s.Load(DefaultSources()...))
	want := len(s.MarketFields(models.MarketMainland))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				snap := s.Snapshot()
				if n := snap.Index(models.MarketMainland).Len(); n != want {
					t.Errorf("reader saw partial index: %d fields, want %d", n, want)
					return
				}
			}
		}()
	}
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Reload())
	}
	wg.Wait()
}

func TestDefaultSources_Load(t *testing.T) {
	srcs := DefaultSources()
	require.Len(t, srcs, 2)

	s := NewStore(nil)
	require.NoError(t, s.Load(srcs...))

	sum := s.Summary()
	assert.Equal(t, []string{"embedded:core.yaml", "embedded:extended.yaml"}, sum.Sources)
	assert.Equal(t, 3, sum.MarketCount)
	assert.Equal(t, 23, sum.PerMarketFieldCount[models.MarketMainland])
	assert.Equal(t, 20, sum.PerMarketFieldCount[models.MarketHongKong])
	assert.Equal(t, 20, sum.PerMarketFieldCount[models.MarketUS])

	// extended.yaml adds aliases and native names to core fields
	ix := s.Snapshot().Index(models.MarketMainland)
	np, ok := ix.Field("NET_PROFIT")
	require.True(t, ok)
	assert.Contains(t, np.Aliases, "归母净利润")
	assert.Contains(t, np.Aliases, "纯利")
	assert.Equal(t, "净利润", np.DisplayName)
	assert.Equal(t, []string{"embedded:core.yaml", "embedded:extended.yaml"}, np.Sources)

	rev, ok := ix.Field("TOTAL_REVENUE")
	require.True(t, ok)
	assert.Equal(t, []string{"营业总收入", "营业收入"}, rev.NativeNames)
}

func TestFileSources_SkipsBlank(t *testing.T) {
	got := FileSources([]string{" a.yaml ", "", "  "})
	require.Len(t, got, 1)
	assert.Equal(t, "a.yaml", got[0].Name())
}

func TestStaticSource_Validation(t *testing.T) {
	_, err := StaticSource{Label: "nil"}.Load()
	assert.ErrorIs(t, err, ErrMalformedSource)

	_, err = StaticSource{Label: "jp", Fields: MarketFields{"JP": nil}}.Load()
	assert.ErrorIs(t, err, ErrMalformedSource)
}
