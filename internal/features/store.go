package features

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/pvpforecast/internal/contracts"
)

// ErrFeaturesNotFound 키에 해당하는 feature row 없음 (정상 결과)
var ErrFeaturesNotFound = errors.New("features not found")

// DtypeError 컬럼 타입 변환 실패 (upstream 스키마 드리프트)
type DtypeError struct {
	Pipeline string
	Column   string
	Dtype    Dtype
	Value    any
	Reason   string
}

func (e *DtypeError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("pipeline %s column %q to %s: %s", e.Pipeline, e.Column, e.Dtype, e.Reason)
	}
	return fmt.Sprintf("pipeline %s column %q value %v (%T) to %s: %s",
		e.Pipeline, e.Column, e.Value, e.Value, e.Dtype, e.Reason)
}

// Store feature row 조회 인터페이스
// ⭐ SSOT: 정확한 복합 키 조회만 지원. 없으면 ErrFeaturesNotFound
type Store interface {
	Fetch(ctx context.Context, key contracts.Key) (Row, error)
}
