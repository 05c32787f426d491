package fieldindex

import (
	"testing"

	"github.com/bobmcallan/finsight/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFields() []models.FieldDefinition {
	return []models.FieldDefinition{
		{FieldID: "TOTAL_REVENUE", DisplayName: "营业总收入", Priority: 1, NativeNames: []string{"营业总收入"}, Aliases: []string{"revenue", "营收"}},
		{FieldID: "NET_PROFIT", DisplayName: "净利润", Priority: 2, NativeNames: []string{"净利润"}, Aliases: []string{"net income", "净利"}},
		{FieldID: "NET_PROFIT_YOY", DisplayName: "净利润同比增长率", Unit: "%", Priority: 5, NativeNames: []string{"净利润同比增长率"}, Aliases: []string{"profit growth"}},
		{FieldID: "ROE", DisplayName: "净资产收益率", Unit: "%", Priority: 3, NativeNames: []string{"净资产收益率"}, Aliases: []string{"return on equity"}},
		{FieldID: "UNRANKED", DisplayName: "Unranked Field"},
	}
}

func TestBuild_OrdersByPriorityThenID(t *testing.T) {
	ix := Build(models.MarketMainland, sampleFields())
	ids := make([]string, 0, ix.Len())
	for _, f := range ix.Fields() {
		ids = append(ids, f.FieldID)
	}
	assert.Equal(t, []string{"TOTAL_REVENUE", "NET_PROFIT", "ROE", "NET_PROFIT_YOY", "UNRANKED"}, ids)
	assert.Equal(t, models.MarketMainland, ix.Market())
}

func TestBuild_SkipsBlankIDsAndIsolatesInput(t *testing.T) {
	defs := sampleFields()
	defs = append(defs, models.FieldDefinition{FieldID: "  "})
	ix := Build(models.MarketMainland, defs)
	assert.Equal(t, 5, ix.Len())

	defs[0].Aliases[0] = "mutated"
	f, ok := ix.Field("total_revenue")
	require.True(t, ok)
	assert.Equal(t, "revenue", f.Aliases[0])
}

func TestLookupExact(t *testing.T) {
	ix := Build(models.MarketMainland, sampleFields())
	assert.Equal(t, []string{"NET_PROFIT"}, ix.LookupExact("  NET income "))
	assert.Equal(t, []string{"NET_PROFIT"}, ix.LookupExact("net_profit"))
	assert.Empty(t, ix.LookupExact("总资产"))
}

func TestIndex_FullWidthInput(t *testing.T) {
	ix := Build(models.MarketMainland, sampleFields())

	f, ok := ix.Field("ｒｏｅ")
	require.True(t, ok)
	assert.Equal(t, "ROE", f.FieldID)
	assert.Equal(t, []string{"ROE"}, ix.LookupExact("ＲＯＥ"))

	got := ix.Search("ＲＯＥ", 1)
	require.Len(t, got, 1)
	assert.Equal(t, "ROE", got[0].FieldID)
	assert.Equal(t, 1.0, got[0].Score)
}

func TestSearch_OrderingAndLimit(t *testing.T) {
	ix := Build(models.MarketMainland, sampleFields())

	got := ix.Search("净利润", 0)
	require.NotEmpty(t, got)
	assert.Equal(t, "NET_PROFIT", got[0].FieldID)
	assert.Equal(t, 1.0, got[0].Score)
	assert.Equal(t, MatchExact, got[0].Strategy)

	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Score, got[i].Score)
	}

	limited := ix.Search("净利润", 1)
	assert.Len(t, limited, 1)
}

func TestSearch_TieBreaksOnPriorityThenID(t *testing.T) {
	defs := []models.FieldDefinition{
		{FieldID: "B_FIELD", Priority: 2, Aliases: []string{"cash"}},
		{FieldID: "A_FIELD", Priority: 2, Aliases: []string{"cash"}},
		{FieldID: "C_FIELD", Priority: 1, Aliases: []string{"cash"}},
	}
	ix := Build(models.MarketUS, defs)
	got := ix.Search("cash", 0)
	require.Len(t, got, 3)
	assert.Equal(t, "C_FIELD", got[0].FieldID)
	assert.Equal(t, "A_FIELD", got[1].FieldID)
	assert.Equal(t, "B_FIELD", got[2].FieldID)
}

func TestSearch_FieldIDScoresExactWithoutAlias(t *testing.T) {
	ix := Build(models.MarketUS, []models.FieldDefinition{{FieldID: "EPS_DILUTED", DisplayName: "Diluted EPS"}})
	got := ix.Search("eps_diluted", 0)
	require.Len(t, got, 1)
	assert.Equal(t, 1.0, got[0].Score)
}

func TestSearch_BlankTermAndEmptyIndex(t *testing.T) {
	ix := Build(models.MarketMainland, sampleFields())
	assert.Nil(t, ix.Search("   ", 5))
	assert.Empty(t, Build(models.MarketHongKong, nil).Search("净利润", 5))
}

func TestTop(t *testing.T) {
	ix := Build(models.MarketMainland, sampleFields())
	top := ix.Top(2)
	require.Len(t, top, 2)
	assert.Equal(t, "TOTAL_REVENUE", top[0].FieldID)
	assert.Len(t, ix.Top(0), 5)
	assert.Len(t, ix.Top(99), 5)
}
