package contracts

import (
	"fmt"
	"time"
)

// Key 예측 식별자 (SKU, 기간)
// ⭐ SSOT: feature row와 forecast는 모두 이 복합 키로 식별
type Key struct {
	SKU     string `json:"sku"`
	TimeKey int64  `json:"time_key"`
}

// String 로그/트레이스용 표현
func (k Key) String() string {
	return fmt.Sprintf("%s@%d", k.SKU, k.TimeKey)
}

// Forecast 저장된 예측 레코드
// 생성은 키당 1회, 이후 actuals로만 갱신되고 삭제되지 않음
type Forecast struct {
	SKU            string     `json:"sku"`
	TimeKey        int64      `json:"time_key"`
	PredA          float64    `json:"pvp_pred_A"`
	PredB          float64    `json:"pvp_pred_B"`
	ActualA        *float64   `json:"pvp_actual_A"`
	ActualB        *float64   `json:"pvp_actual_B"`
	CreatedAt      time.Time  `json:"created_at"`
	ReconciledAt   *time.Time `json:"reconciled_at,omitempty"`
	ReconcileCount int        `json:"reconcile_count"`
}

// Key 레코드의 복합 키
func (f Forecast) Key() Key {
	return Key{SKU: f.SKU, TimeKey: f.TimeKey}
}

// Reconciled actuals가 기록되었는지 여부
func (f Forecast) Reconciled() bool {
	return f.ActualA != nil && f.ActualB != nil
}

// ErrorA 실제 - 예측 (A). 미정산이면 false
func (f Forecast) ErrorA() (float64, bool) {
	if f.ActualA == nil {
		return 0, false
	}
	return *f.ActualA - f.PredA, true
}

// ErrorB 실제 - 예측 (B). 미정산이면 false
func (f Forecast) ErrorB() (float64, bool) {
	if f.ActualB == nil {
		return 0, false
	}
	return *f.ActualB - f.PredB, true
}

// Prediction 두 파이프라인의 추론 결과
// Proba는 predict_proba 분포의 최댓값 (confidence)
type Prediction struct {
	PredA  float64 `json:"pred_A"`
	ProbaA float64 `json:"proba_A"`
	PredB  float64 `json:"pred_B"`
	ProbaB float64 `json:"proba_B"`
}

// ForecastResult forecast 요청 성공 응답
type ForecastResult struct {
	SKU     string  `json:"sku"`
	TimeKey int64   `json:"time_key"`
	PredA   float64 `json:"pred_A"`
	ProbaA  float64 `json:"proba_A"`
	PredB   float64 `json:"pred_B"`
	ProbaB  float64 `json:"proba_B"`
}

// NewForecastResult 키와 추론 결과로 응답 생성
func NewForecastResult(key Key, p Prediction) ForecastResult {
	return ForecastResult{
		SKU:     key.SKU,
		TimeKey: key.TimeKey,
		PredA:   p.PredA,
		ProbaA:  p.ProbaA,
		PredB:   p.PredB,
		ProbaB:  p.ProbaB,
	}
}

// ActualsResult actuals 요청 성공 응답
type ActualsResult struct {
	SKU     string  `json:"sku"`
	TimeKey int64   `json:"time_key"`
	ActualA float64 `json:"actual_A"`
	ActualB float64 `json:"actual_B"`
}

// ReconciliationSummary ledger 전체의 예측 vs 실제 집계
type ReconciliationSummary struct {
	Total      int64     `json:"total"`
	Reconciled int64     `json:"reconciled"`
	Pending    int64     `json:"pending"`
	MAEA       float64   `json:"mae_A"` // mean |actual - pred|
	MAEB       float64   `json:"mae_B"`
	BiasA      float64   `json:"bias_A"` // mean (actual - pred)
	BiasB      float64   `json:"bias_B"`
	ComputedAt time.Time `json:"computed_at"`
}

// Coverage 정산 비율 (0~1)
func (s ReconciliationSummary) Coverage() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Reconciled) / float64(s.Total)
}
