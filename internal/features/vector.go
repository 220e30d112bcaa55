package features

import "fmt"

// Row 외부 feature 테이블의 한 행 (컬럼명 → 원시 값)
type Row map[string]any

// Feature 타입 변환이 끝난 컬럼 하나
type Feature struct {
	Column string
	Dtype  Dtype
	Value  any
}

// Float returns the numeric value of a numeric feature
func (f Feature) Float() (float64, bool) {
	switch v := f.Value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case int16:
		return float64(v), true
	case int8:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// Text returns the value of a string-like feature
func (f Feature) Text() (string, bool) {
	s, ok := f.Value.(string)
	return s, ok
}

// Vector 파이프라인 하나의 입력 (매니페스트 컬럼 순서 유지)
// 요청 단위로 생성되고 저장되지 않음
type Vector struct {
	Pipeline string
	Features []Feature
}

// Columns returns the column names in manifest order
func (v Vector) Columns() []string {
	cols := make([]string, len(v.Features))
	for i, f := range v.Features {
		cols[i] = f.Column
	}
	return cols
}

// Values returns the coerced values in manifest order
func (v Vector) Values() []any {
	vals := make([]any, len(v.Features))
	for i, f := range v.Features {
		vals[i] = f.Value
	}
	return vals
}

// Get looks up a feature by column name
func (v Vector) Get(column string) (Feature, bool) {
	for _, f := range v.Features {
		if f.Column == column {
			return f, true
		}
	}
	return Feature{}, false
}

// Project restricts row to the manifest columns and coerces each value.
// 첫 번째 실패 컬럼에서 중단
func Project(row Row, m *Manifest) (Vector, error) {
	vec := Vector{
		Pipeline: m.Name,
		Features: make([]Feature, 0, len(m.Columns)),
	}

	for _, col := range m.Columns {
		dtype := m.Dtypes[col]

		raw, ok := row[col]
		if !ok {
			return Vector{}, &DtypeError{
				Pipeline: m.Name,
				Column:   col,
				Dtype:    dtype,
				Reason:   "column missing from feature row",
			}
		}

		val, err := Coerce(raw, dtype)
		if err != nil {
			return Vector{}, &DtypeError{
				Pipeline: m.Name,
				Column:   col,
				Dtype:    dtype,
				Value:    raw,
				Reason:   err.Error(),
			}
		}

		vec.Features = append(vec.Features, Feature{Column: col, Dtype: dtype, Value: val})
	}

	return vec, nil
}

// String 로그용 요약
func (v Vector) String() string {
	return fmt.Sprintf("%s%v", v.Pipeline, v.Columns())
}
