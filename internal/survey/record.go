// Package survey defines the sixteen-answer health questionnaire that feeds
// the heart risk classifier, its value domains and the two feature layouts
// built from it.
package survey

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Record is one respondent's complete set of answers. Records are values;
// nothing downstream mutates them.
type Record struct {
	HighBP            int `json:"HighBP"`
	HighChol          int `json:"HighChol"`
	CholCheck         int `json:"CholCheck"`
	BMI               int `json:"BMI"`
	Smoker            int `json:"Smoker"`
	Stroke            int `json:"Stroke"`
	Diabetes          int `json:"Diabetes"`
	PhysActivity      int `json:"PhysActivity"`
	HvyAlcoholConsump int `json:"HvyAlcoholConsump"`
	AnyHealthcare     int `json:"AnyHealthcare"`
	NoDocbcCost       int `json:"NoDocbcCost"`
	GenHlth           int `json:"GenHlth"`
	MentHlth          int `json:"MentHlth"`
	PhysHlth          int `json:"PhysHlth"`
	Sex               int `json:"Sex"`
	Age               int `json:"Age"`
}

// values returns the answers in direct-vector order.
func (r Record) values() [16]int {
	return [16]int{
		r.HighBP, r.HighChol, r.CholCheck, r.BMI, r.Smoker, r.Stroke, r.Diabetes,
		r.PhysActivity, r.HvyAlcoholConsump, r.AnyHealthcare, r.NoDocbcCost,
		r.GenHlth, r.MentHlth, r.PhysHlth, r.Sex, r.Age,
	}
}

// Vector assembles the direct feature vector:
// [HighBP, HighChol, CholCheck, BMI, Smoker, Stroke, Diabetes, PhysActivity,
// HvyAlcoholConsump, AnyHealthcare, NoDocbcCost, GenHlth, MentHlth, PhysHlth, Sex, Age].
func (r Record) Vector() []float64 {
	vals := r.values()
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = float64(v)
	}
	return out
}

// Features assembles the named feature record consumed by the preprocessing
// transform. Keys are the field names; order carries no meaning.
func (r Record) Features() map[string]float64 {
	vals := r.values()
	out := make(map[string]float64, len(vals))
	for i, f := range Fields {
		out[f.Name] = float64(vals[i])
	}
	return out
}

// Get returns the answer for a field name.
func (r Record) Get(name string) (int, bool) {
	for i, f := range Fields {
		if f.Name == name {
			return r.values()[i], true
		}
	}
	return 0, false
}

// FromFeatures builds a Record from named values, e.g. a dataset row.
// Missing names are left at zero and will fail Validate where zero is out of domain.
func FromFeatures(features map[string]float64) Record {
	get := func(name string) int { return int(features[name]) }
	return Record{
		HighBP:            get("HighBP"),
		HighChol:          get("HighChol"),
		CholCheck:         get("CholCheck"),
		BMI:               get("BMI"),
		Smoker:            get("Smoker"),
		Stroke:            get("Stroke"),
		Diabetes:          get("Diabetes"),
		PhysActivity:      get("PhysActivity"),
		HvyAlcoholConsump: get("HvyAlcoholConsump"),
		AnyHealthcare:     get("AnyHealthcare"),
		NoDocbcCost:       get("NoDocbcCost"),
		GenHlth:           get("GenHlth"),
		MentHlth:          get("MentHlth"),
		PhysHlth:          get("PhysHlth"),
		Sex:               get("Sex"),
		Age:               get("Age"),
	}
}

// Fingerprint is a stable hash of the answers, used as a cache key.
func (r Record) Fingerprint() string {
	vals := r.values()
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(v)
	}
	return strconv.FormatUint(xxhash.Sum64String(strings.Join(parts, ",")), 16)
}
