package features

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Dtype 컬럼 스칼라 타입 (pandas dtype 이름)
type Dtype string

const (
	DtypeFloat64  Dtype = "float64"
	DtypeFloat32  Dtype = "float32"
	DtypeInt64    Dtype = "int64"
	DtypeInt32    Dtype = "int32"
	DtypeInt16    Dtype = "int16"
	DtypeInt8     Dtype = "int8"
	DtypeBool     Dtype = "bool"
	DtypeCategory Dtype = "category"
	DtypeObject   Dtype = "object"
	DtypeString   Dtype = "string"
)

// Valid reports whether the dtype is supported
func (d Dtype) Valid() bool {
	switch d {
	case DtypeFloat64, DtypeFloat32,
		DtypeInt64, DtypeInt32, DtypeInt16, DtypeInt8,
		DtypeBool, DtypeCategory, DtypeObject, DtypeString:
		return true
	}
	return false
}

// Numeric reports whether values of this dtype are numbers (bool included)
func (d Dtype) Numeric() bool {
	switch d {
	case DtypeFloat64, DtypeFloat32, DtypeInt64, DtypeInt32, DtypeInt16, DtypeInt8, DtypeBool:
		return true
	}
	return false
}

// Categorical reports whether values of this dtype are strings
func (d Dtype) Categorical() bool {
	switch d {
	case DtypeCategory, DtypeObject, DtypeString:
		return true
	}
	return false
}

func (d Dtype) intBits() int {
	switch d {
	case DtypeInt64:
		return 64
	case DtypeInt32:
		return 32
	case DtypeInt16:
		return 16
	case DtypeInt8:
		return 8
	}
	return 0
}

var (
	errNull      = errors.New("null value")
	errNonFinite = errors.New("non-finite value")
	errFraction  = errors.New("non-integral value")
	errOverflow  = errors.New("value out of range")
)

// Coerce converts a raw store value to the Go type of dtype.
// float64/float32 → float64/float32, intN → intN, bool → bool,
// category/object/string → string. 실패 시 기본값 대체 없음
func Coerce(value any, dtype Dtype) (any, error) {
	if value == nil {
		return nil, errNull
	}
	if b, ok := value.([]byte); ok {
		value = string(b)
	}

	switch dtype {
	case DtypeFloat64, DtypeFloat32:
		f, err := toFloat(value)
		if err != nil {
			return nil, err
		}
		if dtype == DtypeFloat32 {
			if math.Abs(f) > math.MaxFloat32 {
				return nil, errOverflow
			}
			return float32(f), nil
		}
		return f, nil

	case DtypeInt64, DtypeInt32, DtypeInt16, DtypeInt8:
		n, err := toInt(value, dtype.intBits())
		if err != nil {
			return nil, err
		}
		switch dtype {
		case DtypeInt32:
			return int32(n), nil
		case DtypeInt16:
			return int16(n), nil
		case DtypeInt8:
			return int8(n), nil
		}
		return n, nil

	case DtypeBool:
		b, err := toBool(value)
		if err != nil {
			return nil, err
		}
		return b, nil

	case DtypeCategory, DtypeObject, DtypeString:
		str, err := toString(value)
		if err != nil {
			return nil, err
		}
		return str, nil
	}

	return nil, fmt.Errorf("unsupported dtype %q", dtype)
}

func toFloat(value any) (float64, error) {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		n, _ := numberValue(v)
		f = n
	case bool:
		if v {
			f = 1
		}
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot parse %q as number", v)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("unsupported type %T", value)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errNonFinite
	}
	return f, nil
}

func toInt(value any, bits int) (int64, error) {
	var n int64
	switch v := value.(type) {
	case int, int8, int16, int32, int64:
		n = signedValue(v)
	case uint, uint8, uint16, uint32, uint64:
		u := unsignedValue(v)
		if u > math.MaxInt64 {
			return 0, errOverflow
		}
		n = int64(u)
	case float32, float64:
		f, _ := numberValue(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, errNonFinite
		}
		if f != math.Trunc(f) {
			return 0, errFraction
		}
		if f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, errOverflow
		}
		n = int64(f)
	case bool:
		if v {
			n = 1
		}
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			if errors.Is(err, strconv.ErrRange) {
				return 0, errOverflow
			}
			return 0, fmt.Errorf("cannot parse %q as integer", v)
		}
		n = parsed
	default:
		return 0, fmt.Errorf("unsupported type %T", value)
	}

	if bits < 64 {
		limit := int64(1) << (bits - 1)
		if n < -limit || n >= limit {
			return 0, errOverflow
		}
	}
	return n, nil
}

func toBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, fmt.Errorf("cannot parse %q as bool", v)
		}
		return b, nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		f, _ := numberValue(v)
		switch f {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
		return false, fmt.Errorf("%v is not 0 or 1", value)
	}
	return false, fmt.Errorf("unsupported type %T", value)
}

func toString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case int, int8, int16, int32, int64:
		return strconv.FormatInt(signedValue(v), 10), nil
	case uint, uint8, uint16, uint32, uint64:
		return strconv.FormatUint(unsignedValue(v), 10), nil
	case time.Time:
		return v.Format(time.RFC3339), nil
	case fmt.Stringer:
		return v.String(), nil
	}
	return "", fmt.Errorf("unsupported type %T", value)
}

// numberValue widens any Go number to float64
func numberValue(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint, uint8, uint16, uint32, uint64:
		return float64(unsignedValue(v)), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

func signedValue(value any) int64 {
	switch v := value.(type) {
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	}
	return 0
}

func unsignedValue(value any) uint64 {
	switch v := value.(type) {
	case uint:
		return uint64(v)
	case uint8:
		return uint64(v)
	case uint16:
		return uint64(v)
	case uint32:
		return uint64(v)
	case uint64:
		return v
	}
	return 0
}
