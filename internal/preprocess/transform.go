// Package preprocess fits and applies the tabular transform used by the
// preprocessed variant: mean imputation and standard scaling for numeric
// columns, mode imputation and one-hot encoding for categorical ones.
package preprocess

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"heart-risk-workers/internal/survey"
)

// zero-variance columns are scaled by 1, matching StandardScaler
const varianceEpsilon = 10 * 2.220446049250313e-16

// NumericColumn holds the frozen statistics of one standardized column.
type NumericColumn struct {
	Column string  `json:"column"`
	Mean   float64 `json:"mean"`
	Scale  float64 `json:"scale"`
}

// CategoricalColumn holds the imputation value and vocabulary of one
// one-hot encoded column. Categories are sorted ascending.
type CategoricalColumn struct {
	Column     string    `json:"column"`
	Mode       float64   `json:"mode"`
	Categories []float64 `json:"categories"`
}

// Transform is the fitted preprocessing artifact. It is read-only once fitted.
type Transform struct {
	Version        string              `json:"version"`
	FittedAt       time.Time           `json:"fitted_at"`
	Rows           int                 `json:"rows"`
	DroppedColumns []string            `json:"dropped_columns,omitempty"`
	Numeric        []NumericColumn     `json:"numeric"`
	Categorical    []CategoricalColumn `json:"categorical"`
}

// Fit learns the transform from ds. Every survey feature column must be
// present; outcome and excluded columns are dropped, anything else is ignored.
func Fit(ds *Dataset) (*Transform, error) {
	if len(ds.Rows) == 0 {
		return nil, fmt.Errorf("dataset has no rows")
	}

	var missing []string
	for _, f := range survey.Fields {
		if !ds.Has(f.Name) {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("dataset missing feature columns %v", missing)
	}

	t := &Transform{Rows: len(ds.Rows)}
	for _, c := range survey.ExcludedColumns {
		if ds.Has(c) {
			t.DroppedColumns = append(t.DroppedColumns, c)
		}
	}

	for _, name := range survey.NumericColumns {
		values, _ := ds.Column(name)
		col, err := fitNumeric(name, values)
		if err != nil {
			return nil, err
		}
		t.Numeric = append(t.Numeric, col)
	}

	for _, name := range survey.CategoricalColumns {
		values, _ := ds.Column(name)
		col, err := fitCategorical(name, values)
		if err != nil {
			return nil, err
		}
		t.Categorical = append(t.Categorical, col)
	}

	t.FittedAt = time.Now().UTC()
	t.Version = "transform-" + t.FittedAt.Format("20060102T150405Z")
	return t, nil
}

func fitNumeric(name string, values []float64) (NumericColumn, error) {
	var sum float64
	var n int
	for _, v := range values {
		if !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return NumericColumn{}, fmt.Errorf("column %s has no observed values", name)
	}
	mean := sum / float64(n)

	// variance over the imputed column: imputed cells sit on the mean
	var sq float64
	for _, v := range values {
		if !math.IsNaN(v) {
			sq += (v - mean) * (v - mean)
		}
	}
	variance := sq / float64(len(values))

	scale := math.Sqrt(variance)
	if scale < varianceEpsilon {
		scale = 1
	}
	return NumericColumn{Column: name, Mean: mean, Scale: scale}, nil
}

func fitCategorical(name string, values []float64) (CategoricalColumn, error) {
	counts := make(map[float64]int)
	for _, v := range values {
		if !math.IsNaN(v) {
			counts[v]++
		}
	}
	if len(counts) == 0 {
		return CategoricalColumn{}, fmt.Errorf("column %s has no observed values", name)
	}

	categories := make([]float64, 0, len(counts))
	for v := range counts {
		categories = append(categories, v)
	}
	sort.Float64s(categories)

	// ties resolve to the smallest value
	mode := categories[0]
	for _, v := range categories[1:] {
		if counts[v] > counts[mode] {
			mode = v
		}
	}

	return CategoricalColumn{Column: name, Mode: mode, Categories: categories}, nil
}

// OutputDim is the length of every vector Apply returns.
func (t *Transform) OutputDim() int {
	dim := len(t.Numeric)
	for _, c := range t.Categorical {
		dim += len(c.Categories)
	}
	return dim
}

// FeatureNames names each output position, num__<col> then cat__<col>_<category>.
func (t *Transform) FeatureNames() []string {
	names := make([]string, 0, t.OutputDim())
	for _, c := range t.Numeric {
		names = append(names, "num__"+c.Column)
	}
	for _, c := range t.Categorical {
		for _, cat := range c.Categories {
			names = append(names, fmt.Sprintf("cat__%s_%s", c.Column, formatCategory(cat)))
		}
	}
	return names
}

func formatCategory(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Apply maps a named feature record to
// [standardized numeric columns][one-hot block per categorical column].
// Absent or NaN values take the fit-time mean or mode. A category not seen
// at fit time yields an all-zero block.
func (t *Transform) Apply(features map[string]float64) []float64 {
	out := make([]float64, 0, t.OutputDim())

	for _, c := range t.Numeric {
		v, ok := features[c.Column]
		if !ok || math.IsNaN(v) {
			v = c.Mean
		}
		out = append(out, (v-c.Mean)/c.Scale)
	}

	for _, c := range t.Categorical {
		v, ok := features[c.Column]
		if !ok || math.IsNaN(v) {
			v = c.Mode
		}
		for _, cat := range c.Categories {
			if v == cat {
				out = append(out, 1)
			} else {
				out = append(out, 0)
			}
		}
	}

	return out
}

// DecodeCategorical reads the one-hot blocks of vec back into category
// values. Columns whose block is all zero are omitted.
func (t *Transform) DecodeCategorical(vec []float64) (map[string]float64, error) {
	if len(vec) != t.OutputDim() {
		return nil, fmt.Errorf("vector has %d values, transform produces %d", len(vec), t.OutputDim())
	}

	out := make(map[string]float64, len(t.Categorical))
	pos := len(t.Numeric)
	for _, c := range t.Categorical {
		block := vec[pos : pos+len(c.Categories)]
		for i, hot := range block {
			if hot == 1 {
				out[c.Column] = c.Categories[i]
				break
			}
		}
		pos += len(c.Categories)
	}
	return out, nil
}

// Check verifies the transform is internally consistent and covers the
// survey's numeric and categorical columns in fit order.
func (t *Transform) Check() error {
	if len(t.Numeric) != len(survey.NumericColumns) {
		return fmt.Errorf("expected %d numeric columns, got %d", len(survey.NumericColumns), len(t.Numeric))
	}
	for i, c := range t.Numeric {
		if c.Column != survey.NumericColumns[i] {
			return fmt.Errorf("numeric column %d is %q, expected %q", i, c.Column, survey.NumericColumns[i])
		}
		if c.Scale <= 0 || math.IsNaN(c.Scale) || math.IsNaN(c.Mean) {
			return fmt.Errorf("numeric column %s has invalid statistics", c.Column)
		}
	}

	if len(t.Categorical) != len(survey.CategoricalColumns) {
		return fmt.Errorf("expected %d categorical columns, got %d", len(survey.CategoricalColumns), len(t.Categorical))
	}
	for i, c := range t.Categorical {
		if c.Column != survey.CategoricalColumns[i] {
			return fmt.Errorf("categorical column %d is %q, expected %q", i, c.Column, survey.CategoricalColumns[i])
		}
		if len(c.Categories) == 0 {
			return fmt.Errorf("categorical column %s has no categories", c.Column)
		}
		if !sort.Float64sAreSorted(c.Categories) {
			return fmt.Errorf("categorical column %s categories are not sorted", c.Column)
		}
	}
	return nil
}
