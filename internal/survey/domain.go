package survey

import (
	"fmt"

	"heart-risk-workers/internal/common/errors"
)

// Kind distinguishes how a field is treated by the preprocessing transform.
type Kind string

const (
	KindNumeric     Kind = "numeric"
	KindCategorical Kind = "categorical"
)

// Field describes one survey answer and its allowed integer range.
type Field struct {
	Name        string
	Min         int
	Max         int
	Kind        Kind
	Description string
}

// Contains reports whether v lies inside the field's domain.
func (f Field) Contains(v int) bool {
	return v >= f.Min && v <= f.Max
}

// Fields lists the survey in direct-vector order.
var Fields = []Field{
	{Name: "HighBP", Min: 0, Max: 1, Kind: KindCategorical, Description: "High blood pressure (0 no, 1 yes)"},
	{Name: "HighChol", Min: 0, Max: 1, Kind: KindCategorical, Description: "High cholesterol (0 no, 1 yes)"},
	{Name: "CholCheck", Min: 0, Max: 1, Kind: KindCategorical, Description: "Cholesterol check in 5 years (0 no, 1 yes)"},
	{Name: "BMI", Min: 12, Max: 98, Kind: KindNumeric, Description: "Body mass index"},
	{Name: "Smoker", Min: 0, Max: 1, Kind: KindCategorical, Description: "Smoker (0 no, 1 yes)"},
	{Name: "Stroke", Min: 0, Max: 1, Kind: KindCategorical, Description: "History of stroke (0 no, 1 yes)"},
	{Name: "Diabetes", Min: 0, Max: 2, Kind: KindCategorical, Description: "Diabetes (0 no, 1 yes, 2 borderline)"},
	{Name: "PhysActivity", Min: 0, Max: 1, Kind: KindCategorical, Description: "Physical activity in past 30 days (0 no, 1 yes)"},
	{Name: "HvyAlcoholConsump", Min: 0, Max: 1, Kind: KindCategorical, Description: "Heavy alcohol consumption (0 no, 1 yes)"},
	{Name: "AnyHealthcare", Min: 0, Max: 1, Kind: KindCategorical, Description: "Any healthcare coverage (0 no, 1 yes)"},
	{Name: "NoDocbcCost", Min: 0, Max: 1, Kind: KindCategorical, Description: "Could not see doctor because of cost (0 no, 1 yes)"},
	{Name: "GenHlth", Min: 1, Max: 5, Kind: KindCategorical, Description: "General health (1 excellent to 5 poor)"},
	{Name: "MentHlth", Min: 0, Max: 30, Kind: KindNumeric, Description: "Days of poor mental health in past 30 days"},
	{Name: "PhysHlth", Min: 0, Max: 30, Kind: KindNumeric, Description: "Days of poor physical health in past 30 days"},
	{Name: "Sex", Min: 0, Max: 1, Kind: KindCategorical, Description: "Sex (0 female, 1 male)"},
	{Name: "Age", Min: 1, Max: 13, Kind: KindNumeric, Description: "Age band (1 is 18-24, 13 is 80+)"},
}

// NumericColumns and CategoricalColumns are the transform's fit order.
var (
	NumericColumns     = []string{"BMI", "MentHlth", "PhysHlth", "Age"}
	CategoricalColumns = []string{
		"HighBP", "HighChol", "CholCheck", "Smoker", "Stroke",
		"Diabetes", "PhysActivity", "HvyAlcoholConsump", "AnyHealthcare",
		"NoDocbcCost", "GenHlth", "Sex",
	}
)

// ExcludedColumns appear in the training dataset but never feed the model.
var ExcludedColumns = []string{"HeartDiseaseorAttack", "Education", "Income", "DiffWalk", "Fruits", "Veggies"}

// VectorLength is the width of the direct feature vector.
var VectorLength = len(Fields)

var fieldsByName = func() map[string]Field {
	m := make(map[string]Field, len(Fields))
	for _, f := range Fields {
		m[f.Name] = f
	}
	return m
}()

// Lookup returns the field definition for name.
func Lookup(name string) (Field, bool) {
	f, ok := fieldsByName[name]
	return f, ok
}

// Validate checks every answer against its domain and reports all
// violations at once as OUT_OF_DOMAIN_INPUT.
func (r Record) Validate() error {
	var violations []string
	for i, f := range Fields {
		v := r.values()[i]
		if !f.Contains(v) {
			violations = append(violations, fmt.Sprintf("%s=%d outside [%d,%d]", f.Name, v, f.Min, f.Max))
		}
	}
	if len(violations) > 0 {
		return errors.NewOutOfDomainError(violations)
	}
	return nil
}
