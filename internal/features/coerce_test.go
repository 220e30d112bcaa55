package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerce(t *testing.T) {
	tests := []struct {
		name  string
		value any
		dtype Dtype
		want  any
	}{
		{"float64 from float", 10.5, DtypeFloat64, 10.5},
		{"float64 from int", int64(3), DtypeFloat64, 3.0},
		{"float64 from numeric string", " 2.25 ", DtypeFloat64, 2.25},
		{"float64 from bool", true, DtypeFloat64, 1.0},
		{"float32 from float", 1.5, DtypeFloat32, float32(1.5)},
		{"int64 from int32", int32(7), DtypeInt64, int64(7)},
		{"int64 from integral float", 20240101.0, DtypeInt64, int64(20240101)},
		{"int64 from string", "42", DtypeInt64, int64(42)},
		{"int32 from int64", int64(100000), DtypeInt32, int32(100000)},
		{"int16 from int64", int64(-300), DtypeInt16, int16(-300)},
		{"int8 at max", int64(127), DtypeInt8, int8(127)},
		{"int8 at min", int64(-128), DtypeInt8, int8(-128)},
		{"bool from bool", false, DtypeBool, false},
		{"bool from one", int64(1), DtypeBool, true},
		{"bool from string", "true", DtypeBool, true},
		{"category from string", "north", DtypeCategory, "north"},
		{"category from int", int64(3), DtypeCategory, "3"},
		{"object from float", 2.5, DtypeObject, "2.5"},
		{"string from bool", true, DtypeString, "true"},
		{"string from bytes", []byte("raw"), DtypeString, "raw"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Coerce(tt.value, tt.dtype)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCoerce_Failures(t *testing.T) {
	tests := []struct {
		name  string
		value any
		dtype Dtype
	}{
		{"null float", nil, DtypeFloat64},
		{"null string", nil, DtypeString},
		{"null bool", nil, DtypeBool},
		{"text as float", "abc", DtypeFloat64},
		{"nan float", math.NaN(), DtypeFloat64},
		{"inf float", math.Inf(1), DtypeFloat64},
		{"float32 overflow", 1e300, DtypeFloat32},
		{"fraction as int", 1.5, DtypeInt64},
		{"int8 overflow", int64(128), DtypeInt8},
		{"int16 underflow", int64(-40000), DtypeInt16},
		{"int32 overflow from string", "3000000000", DtypeInt32},
		{"int64 overflow from string", "99999999999999999999", DtypeInt64},
		{"float string as int", "3.0", DtypeInt64},
		{"uint64 overflow", uint64(math.MaxUint64), DtypeInt64},
		{"bool from two", int64(2), DtypeBool},
		{"bool from text", "maybe", DtypeBool},
		{"unsupported type", struct{}{}, DtypeFloat64},
		{"unsupported type as string", struct{}{}, DtypeString},
		{"unsupported type as bool", struct{}{}, DtypeBool},
		{"unknown dtype", 1.0, Dtype("decimal")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Coerce(tt.value, tt.dtype)
			assert.Error(t, err)
			assert.Nil(t, got)
		})
	}
}

func TestDtype_Classes(t *testing.T) {
	assert.True(t, DtypeInt8.Valid())
	assert.False(t, Dtype("datetime64").Valid())

	assert.True(t, DtypeBool.Numeric())
	assert.False(t, DtypeCategory.Numeric())

	assert.True(t, DtypeObject.Categorical())
	assert.False(t, DtypeFloat32.Categorical())
}
