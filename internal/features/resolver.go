package features

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/wonny/pvpforecast/internal/contracts"
)

// Resolver feature row 조회 + 파이프라인별 벡터 생성
// ⭐ SSOT: 매니페스트는 기동 시 1회 로드 후 읽기 전용
type Resolver struct {
	store     Store
	manifestA *Manifest
	manifestB *Manifest
	log       zerolog.Logger
}

// NewResolver 새 Resolver 생성
func NewResolver(store Store, manifestA, manifestB *Manifest, log zerolog.Logger) *Resolver {
	return &Resolver{
		store:     store,
		manifestA: manifestA,
		manifestB: manifestB,
		log:       log.With().Str("component", "features.resolver").Logger(),
	}
}

// Resolve fetches the row for key and projects it into the A and B vectors.
// 조회/변환 실패는 재시도하지 않음
func (r *Resolver) Resolve(ctx context.Context, key contracts.Key) (Vector, Vector, error) {
	row, err := r.store.Fetch(ctx, key)
	if err != nil {
		if errors.Is(err, ErrFeaturesNotFound) {
			return Vector{}, Vector{}, err
		}
		return Vector{}, Vector{}, fmt.Errorf("fetch features %s: %w", key, err)
	}

	vecA, err := Project(row, r.manifestA)
	if err != nil {
		r.logDtype(key, err)
		return Vector{}, Vector{}, err
	}

	vecB, err := Project(row, r.manifestB)
	if err != nil {
		r.logDtype(key, err)
		return Vector{}, Vector{}, err
	}

	r.log.Debug().
		Str("key", key.String()).
		Int("columns_a", len(vecA.Features)).
		Int("columns_b", len(vecB.Features)).
		Msg("features resolved")

	return vecA, vecB, nil
}

func (r *Resolver) logDtype(key contracts.Key, err error) {
	var dtypeErr *DtypeError
	if errors.As(err, &dtypeErr) {
		r.log.Warn().
			Str("key", key.String()).
			Str("pipeline", dtypeErr.Pipeline).
			Str("column", dtypeErr.Column).
			Str("dtype", string(dtypeErr.Dtype)).
			Str("reason", dtypeErr.Reason).
			Msg("feature coercion failed")
	}
}
