package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/wonny/pvpforecast/internal/contracts"
)

const maxBodyBytes = 1 << 20

var errInvalidField = errors.New("invalid field")

// decodeBody JSON 객체를 숫자 원형(json.Number)으로 디코딩
func decodeBody(w http.ResponseWriter, r *http.Request) (map[string]interface{}, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()

	var body map[string]interface{}
	if err := dec.Decode(&body); err != nil {
		return nil, err
	}
	if body == nil {
		return nil, errInvalidField
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errInvalidField
	}
	return body, nil
}

// parseKey sku: 비어있지 않은 문자열 (공백만 있어도 허용, 원문 그대로 저장),
// time_key: 정수 (소수/지수 표기/bool 불가)
func parseKey(body map[string]interface{}) (contracts.Key, error) {
	sku, ok := body["sku"].(string)
	if !ok || sku == "" {
		return contracts.Key{}, errInvalidField
	}

	num, ok := body["time_key"].(json.Number)
	if !ok {
		return contracts.Key{}, errInvalidField
	}
	timeKey, err := strconv.ParseInt(string(num), 10, 64)
	if err != nil {
		return contracts.Key{}, errInvalidField
	}

	return contracts.Key{SKU: sku, TimeKey: timeKey}, nil
}

// parseNumber JSON 숫자만 허용 (문자열/bool/null 불가)
func parseNumber(body map[string]interface{}, field string) (float64, error) {
	num, ok := body[field].(json.Number)
	if !ok {
		return 0, errInvalidField
	}
	f, err := num.Float64()
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, errInvalidField
	}
	return f, nil
}

// parsePathKey GET /forecasts/{sku}/{time_key}
func parsePathKey(sku, timeKey string) (contracts.Key, error) {
	if sku == "" {
		return contracts.Key{}, errInvalidField
	}
	tk, err := strconv.ParseInt(timeKey, 10, 64)
	if err != nil {
		return contracts.Key{}, errInvalidField
	}
	return contracts.Key{SKU: sku, TimeKey: tk}, nil
}
