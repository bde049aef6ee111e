package games

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fair-casino-backend/internal/apperrors"
	"fair-casino-backend/internal/config"
	"fair-casino-backend/internal/models"
)

func TestDefaultRegistry(t *testing.T) {
	reg, err := DefaultRegistry(nil)
	require.NoError(t, err)

	want := []string{models.GameCoinFlip, models.GameKeno, models.GameRoulette, models.GameSlots, models.GameWheel}
	assert.Equal(t, want, reg.IDs())
	assert.Equal(t, want, DefaultGameIDs())
	assert.Equal(t, len(want), reg.Len())

	for _, id := range want {
		r, err := reg.Lookup(id)
		require.NoError(t, err, id)
		assert.Equal(t, id, r.Info().ID)
	}
}

func TestRegistryUnknownGame(t *testing.T) {
	reg, err := DefaultRegistry(nil)
	require.NoError(t, err)

	_, err = reg.Lookup("crash")
	assert.Equal(t, apperrors.KindUnknownGame, apperrors.KindOf(err))
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(Keno{}, Roulette{}, Keno{})
	assert.ErrorContains(t, err, "duplicate game id")
}

type unnamedResolver struct{ Keno }

func (unnamedResolver) Info() Info { return Info{} }

func TestRegistryRejectsEmptyID(t *testing.T) {
	_, err := NewRegistry(unnamedResolver{})
	assert.ErrorContains(t, err, "empty id")

	_, err = NewRegistry(nil)
	assert.Error(t, err)
}

func TestRegistryCatalog(t *testing.T) {
	reg, err := DefaultRegistry(nil)
	require.NoError(t, err)

	catalog := reg.Catalog()
	require.Len(t, catalog, 5)
	for _, g := range catalog {
		assert.NotEmpty(t, g.Name)
		assert.NotEmpty(t, g.Category)
		assert.Greater(t, g.HouseEdge, 0.0)
		assert.True(t, g.MinBet.LessThan(g.MaxBet), g.GameID)
	}
	assert.Equal(t, models.GameCoinFlip, catalog[0].GameID)
}

func TestRegistryLimitOverrides(t *testing.T) {
	reg, err := DefaultRegistry(map[string]config.GameLimits{
		models.GameKeno:  {MinBet: dec("1"), MaxBet: dec("50")},
		models.GameWheel: {MaxBet: dec("10")},
	})
	require.NoError(t, err)

	keno, err := reg.Lookup(models.GameKeno)
	require.NoError(t, err)
	assertDecimal(t, "1", keno.Info().MinBet)
	assertDecimal(t, "50", keno.Info().MaxBet)

	// the wrapped resolver still plays
	opts, stake := mustDecode(t, keno, "1", `{"picks":[1]}`)
	_, err = keno.Resolve(make([]float64, KenoDrawCount), stake, opts)
	require.NoError(t, err)

	wheel, err := reg.Lookup(models.GameWheel)
	require.NoError(t, err)
	assertDecimal(t, "0.01", wheel.Info().MinBet)
	assertDecimal(t, "10", wheel.Info().MaxBet)
}

func TestRegistryLimitOverrideErrors(t *testing.T) {
	_, err := DefaultRegistry(map[string]config.GameLimits{"crash": {MaxBet: dec("1")}})
	assert.ErrorContains(t, err, "unknown game")

	_, err = DefaultRegistry(map[string]config.GameLimits{models.GameSlots: {MinBet: dec("2000")}})
	assert.ErrorContains(t, err, "exceeds max bet")
}
