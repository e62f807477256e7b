package usecase

import (
	"context"
	"sort"
	"time"

	"CryptoVision/internal/domain/models"
	domrepo "CryptoVision/internal/domain/repository"
	domsvc "CryptoVision/internal/domain/service"
	"CryptoVision/internal/services/features"
	applogger "CryptoVision/pkg/logger"
)

// Registry holds one trained model per asset. It is built once and never
// modified afterwards, so it is safe for concurrent readers.
type Registry struct {
	models map[string]domsvc.Model
	evals  map[string]models.Evaluation
	assets []string
}

// NewRegistry copies the given models and evaluations into a frozen registry.
func NewRegistry(trained map[string]domsvc.Model, evals map[string]models.Evaluation) *Registry {
	r := &Registry{
		models: make(map[string]domsvc.Model, len(trained)),
		evals:  make(map[string]models.Evaluation, len(evals)),
	}
	for asset, m := range trained {
		r.models[asset] = m
		r.assets = append(r.assets, asset)
		if ev, ok := evals[asset]; ok {
			r.evals[asset] = ev
		}
	}
	sort.Strings(r.assets)
	return r
}

// BuildRegistry loads, frames and trains every configured asset in sorted
// order. The first failure aborts the build and no registry is returned.
func BuildRegistry(
	ctx context.Context,
	assets map[string]string,
	src domrepo.DatasetSource,
	trainer *Trainer,
	l *applogger.Logger,
) (*Registry, error) {
	if len(assets) == 0 {
		return nil, models.Errorf(models.KindTraining, "build registry", "no assets configured")
	}
	ids := make([]string, 0, len(assets))
	for id := range assets {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	start := time.Now()
	trained := make(map[string]domsvc.Model, len(ids))
	evals := make(map[string]models.Evaluation, len(ids))
	for _, id := range ids {
		ds, err := src.Load(ctx, id, assets[id])
		if err != nil {
			return nil, err
		}
		X, y, err := features.Frame(ds)
		if err != nil {
			return nil, err
		}
		m, ev, err := trainer.Fit(ctx, id, X, y)
		if err != nil {
			return nil, err
		}
		trained[id] = m
		evals[id] = ev
	}

	if l != nil {
		l.Info("model registry ready",
			applogger.Strings("assets", ids),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return NewRegistry(trained, evals), nil
}

// Get returns the model of asset.
func (r *Registry) Get(asset string) (domsvc.Model, error) {
	m, ok := r.models[asset]
	if !ok {
		return nil, models.Errorf(models.KindUnknownAsset, "get model", "asset %q is not registered", asset).WithAsset(asset)
	}
	return m, nil
}

// Assets returns the registered asset identifiers, sorted.
func (r *Registry) Assets() []string {
	out := make([]string, len(r.assets))
	copy(out, r.assets)
	return out
}

// Len returns the number of registered assets.
func (r *Registry) Len() int { return len(r.assets) }

func (r *Registry) Evaluation(asset string) (models.Evaluation, bool) {
	ev, ok := r.evals[asset]
	return ev, ok
}

// Evaluations returns every evaluation ordered by sortBy: "asset" ascending,
// "r2" descending, "rmse" or "mae" ascending. Ties keep asset order.
func (r *Registry) Evaluations(sortBy string) []models.Evaluation {
	out := make([]models.Evaluation, 0, len(r.evals))
	for _, asset := range r.assets {
		if ev, ok := r.evals[asset]; ok {
			out = append(out, ev)
		}
	}
	var less func(a, b models.Evaluation) bool
	switch sortBy {
	case "r2":
		less = func(a, b models.Evaluation) bool { return a.R2 > b.R2 }
	case "rmse":
		less = func(a, b models.Evaluation) bool { return a.RMSE < b.RMSE }
	case "mae":
		less = func(a, b models.Evaluation) bool { return a.MAE < b.MAE }
	default:
		return out
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
