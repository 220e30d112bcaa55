package features

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Manifest 파이프라인 하나의 입력 스키마와 모델 정의
// ⭐ SSOT: 컬럼 목록/dtype 맵은 이 파일에서만 로드
type Manifest struct {
	Name    string           `yaml:"name" json:"name"`
	Columns []string         `yaml:"columns" json:"columns"`
	Dtypes  map[string]Dtype `yaml:"dtypes" json:"dtypes"`
	Model   ModelSpec        `yaml:"model" json:"model"`
}

// ModelSpec 파이프라인 구현 선택 (kind: linear | remote)
type ModelSpec struct {
	Kind string `yaml:"kind" json:"kind"`

	// remote
	URL     string        `yaml:"url,omitempty" json:"url,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	// linear
	Regression LinearHead  `yaml:"regression,omitempty" json:"regression,omitempty"`
	Classes    []ClassHead `yaml:"classes,omitempty" json:"classes,omitempty"`
}

// LinearHead intercept + Σ w·x. 범주형 컬럼은 값별 가중치
type LinearHead struct {
	Intercept   float64                       `yaml:"intercept" json:"intercept"`
	Weights     map[string]float64            `yaml:"weights,omitempty" json:"weights,omitempty"`
	Categorical map[string]map[string]float64 `yaml:"categorical,omitempty" json:"categorical,omitempty"`
}

// ClassHead 분류 헤드의 클래스 하나 (softmax logit)
type ClassHead struct {
	Label      string `yaml:"label" json:"label"`
	LinearHead `yaml:",inline"`
}

// Model kinds
const (
	ModelLinear = "linear"
	ModelRemote = "remote"
)

// ManifestError 매니페스트 검증 실패 (기동 중단)
type ManifestError struct {
	Field   string
	Message string
}

func (e ManifestError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LoadManifest reads a pipeline manifest from YAML.
// 알 수 없는 필드는 즉시 실패 (KnownFields)
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}

	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// ParseManifest decodes and validates manifest YAML
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the column list against the dtype map and the model spec
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return ManifestError{"name", "required"}
	}
	if len(m.Columns) == 0 {
		return ManifestError{"columns", "at least one column required"}
	}

	seen := make(map[string]struct{}, len(m.Columns))
	for _, col := range m.Columns {
		if col == "" {
			return ManifestError{"columns", "empty column name"}
		}
		if _, dup := seen[col]; dup {
			return ManifestError{"columns", fmt.Sprintf("duplicate column %q", col)}
		}
		seen[col] = struct{}{}

		dt, ok := m.Dtypes[col]
		if !ok {
			return ManifestError{"dtypes", fmt.Sprintf("column %q has no dtype", col)}
		}
		if !dt.Valid() {
			return ManifestError{"dtypes." + col, fmt.Sprintf("unknown dtype %q", dt)}
		}
	}
	for col := range m.Dtypes {
		if _, ok := seen[col]; !ok {
			return ManifestError{"dtypes." + col, "not in columns"}
		}
	}

	switch m.Model.Kind {
	case ModelLinear:
		if len(m.Model.Classes) == 0 {
			return ManifestError{"model.classes", "linear model needs at least one class"}
		}
		if err := m.validateHead("model.regression", m.Model.Regression); err != nil {
			return err
		}
		for i, c := range m.Model.Classes {
			if err := m.validateHead(fmt.Sprintf("model.classes[%d]", i), c.LinearHead); err != nil {
				return err
			}
		}
	case ModelRemote:
		if m.Model.URL == "" {
			return ManifestError{"model.url", "required for remote model"}
		}
	default:
		return ManifestError{"model.kind", fmt.Sprintf("unknown kind %q", m.Model.Kind)}
	}

	return nil
}

func (m *Manifest) validateHead(field string, head LinearHead) error {
	for col := range head.Weights {
		dt, ok := m.Dtypes[col]
		if !ok {
			return ManifestError{field + ".weights." + col, "not in columns"}
		}
		if !dt.Numeric() {
			return ManifestError{field + ".weights." + col, fmt.Sprintf("dtype %s is not numeric", dt)}
		}
	}
	for col := range head.Categorical {
		if _, ok := m.Dtypes[col]; !ok {
			return ManifestError{field + ".categorical." + col, "not in columns"}
		}
	}
	return nil
}

// Hash SHA256 of the canonical JSON form, logged as the pipeline version
func (m *Manifest) Hash() (string, error) {
	jsonBytes, err := json.Marshal(m)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}
