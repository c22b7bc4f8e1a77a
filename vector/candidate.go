package vector

import (
	"math"

	"github.com/goccy/go-json"

	"github.com/rushteam/marketrec/core"
)

// Candidate 是参与检索的一个 (id, embedding)。
// JSON 形式为二元数组：[id, [v0, v1, ...]]
type Candidate struct {
	ID     core.ID
	Vector []float64
}

func (c *Candidate) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return core.WrapDomainError(core.ModuleVector, core.ErrorCodeValidation, "invalid candidate", err)
	}
	if len(pair) != 2 {
		return core.Validationf(core.ModuleVector, "candidate must be [id, vector], got %d elements", len(pair))
	}
	var id core.ID
	if err := id.UnmarshalJSON(pair[0]); err != nil {
		return err
	}
	var vec []float64
	if err := json.Unmarshal(pair[1], &vec); err != nil {
		return core.WrapDomainError(core.ModuleVector, core.ErrorCodeValidation, "candidate "+id.String()+" has invalid vector", err)
	}
	if err := validateVector(vec); err != nil {
		return err
	}
	*c = Candidate{ID: id, Vector: vec}
	return nil
}

func (c Candidate) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{c.ID, c.Vector})
}

func validateVector(v []float64) error {
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return core.Validationf(core.ModuleVector, "vector component %d is not finite", i)
		}
	}
	return nil
}

// ParseQuery 解析查询向量 JSON
func ParseQuery(data []byte) ([]float64, error) {
	var vec []float64
	if err := json.Unmarshal(data, &vec); err != nil {
		return nil, core.WrapDomainError(core.ModuleVector, core.ErrorCodeValidation, "invalid query vector", err)
	}
	if err := validateVector(vec); err != nil {
		return nil, err
	}
	return vec, nil
}

// ParseCandidates 解析候选集 JSON：[[id, [...]], ...]
func ParseCandidates(data []byte) ([]Candidate, error) {
	var cands []Candidate
	if err := json.Unmarshal(data, &cands); err != nil {
		if core.IsDomainError(err) {
			return nil, err
		}
		return nil, core.WrapDomainError(core.ModuleVector, core.ErrorCodeValidation, "invalid candidates", err)
	}
	return cands, nil
}
