package games

import (
	"fmt"
	"sort"

	"github.com/samber/lo"

	"fair-casino-backend/internal/apperrors"
	"fair-casino-backend/internal/config"
	"fair-casino-backend/internal/models"
)

// Registry maps game ids to resolvers. It is built once and never mutated,
// so it is safe to share between goroutines.
type Registry struct {
	resolvers map[string]Resolver
	order     []string
}

// NewRegistry builds a registry from resolvers. Ids must be non-empty and
// unique. Iteration order is sorted by id.
func NewRegistry(resolvers ...Resolver) (*Registry, error) {
	r := &Registry{resolvers: make(map[string]Resolver, len(resolvers))}
	for _, res := range resolvers {
		if res == nil {
			return nil, fmt.Errorf("nil resolver")
		}
		id := res.Info().ID
		if id == "" {
			return nil, fmt.Errorf("resolver %T has an empty id", res)
		}
		if _, ok := r.resolvers[id]; ok {
			return nil, fmt.Errorf("duplicate game id %q", id)
		}
		r.resolvers[id] = res
		r.order = append(r.order, id)
	}
	sort.Strings(r.order)
	return r, nil
}

// BuiltinResolvers returns one instance of every game shipped with the
// engine.
func BuiltinResolvers() []Resolver {
	return []Resolver{Roulette{}, Slots{}, Keno{}, Wheel{}, CoinFlip{}}
}

// DefaultGameIDs lists the ids of the built-in games in sorted order.
func DefaultGameIDs() []string {
	ids := lo.Map(BuiltinResolvers(), func(r Resolver, _ int) string { return r.Info().ID })
	sort.Strings(ids)
	return ids
}

// DefaultRegistry registers the built-in games, applying bet limit overrides
// keyed by game id.
func DefaultRegistry(overrides map[string]config.GameLimits) (*Registry, error) {
	resolvers := BuiltinResolvers()
	known := lo.SliceToMap(resolvers, func(r Resolver) (string, bool) { return r.Info().ID, true })
	for id := range overrides {
		if !known[id] {
			return nil, fmt.Errorf("limits configured for unknown game %q", id)
		}
	}

	for i, res := range resolvers {
		limits, ok := overrides[res.Info().ID]
		if !ok {
			continue
		}
		limited, err := withLimits(res, limits)
		if err != nil {
			return nil, err
		}
		resolvers[i] = limited
	}
	return NewRegistry(resolvers...)
}

// Lookup returns the resolver for id.
func (r *Registry) Lookup(id string) (Resolver, error) {
	res, ok := r.resolvers[id]
	if !ok {
		return nil, apperrors.New(apperrors.KindUnknownGame, "unknown game %q", id)
	}
	return res, nil
}

// IDs returns the registered game ids in sorted order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}

func (r *Registry) Len() int {
	return len(r.order)
}

// Catalog describes every registered game.
func (r *Registry) Catalog() []models.GameInfo {
	return lo.Map(r.order, func(id string, _ int) models.GameInfo {
		return r.resolvers[id].Info().GameInfo()
	})
}

// limitedResolver overrides the declared bet bounds of another resolver.
type limitedResolver struct {
	Resolver
	info Info
}

func withLimits(res Resolver, limits config.GameLimits) (Resolver, error) {
	info := res.Info()
	if limits.MinBet.IsPositive() {
		info.MinBet = limits.MinBet
	}
	if limits.MaxBet.IsPositive() {
		info.MaxBet = limits.MaxBet
	}
	if info.MinBet.GreaterThan(info.MaxBet) {
		return nil, fmt.Errorf("game %s: min bet %s exceeds max bet %s", info.ID, info.MinBet, info.MaxBet)
	}
	return limitedResolver{Resolver: res, info: info}, nil
}

func (l limitedResolver) Info() Info {
	return l.info
}
