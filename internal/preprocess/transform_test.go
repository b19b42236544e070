package preprocess

import (
	"bytes"
	stderrors "errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heart-risk-workers/internal/common/errors"
	"heart-risk-workers/internal/survey"
)

const trainingCSV = `HeartDiseaseorAttack,HighBP,HighChol,CholCheck,BMI,Smoker,Stroke,Diabetes,PhysActivity,Fruits,Veggies,HvyAlcoholConsump,AnyHealthcare,NoDocbcCost,GenHlth,MentHlth,PhysHlth,DiffWalk,Sex,Age,Education,Income
0,1,0,0,20,0,0,0,0,1,1,0,0,0,1,0,0,0,1,1,4,5
1,0,1,1,30,1,0,2,1,0,1,1,1,1,2,0,10,1,1,5,5,6
0,1,1,1,NA,1,0,2,1,1,0,1,1,1,3,0,20,0,0,9,6,7
1,0,1,1,40,1,0,,1,1,1,1,1,1,4,0,30,1,,13,3,2
`

func fitTestTransform(t *testing.T) *Transform {
	t.Helper()
	ds, err := ReadCSV(strings.NewReader(trainingCSV))
	require.NoError(t, err)
	tr, err := Fit(ds)
	require.NoError(t, err)
	return tr
}

func sampleRecord() survey.Record {
	return survey.Record{
		HighBP: 1, HighChol: 1, CholCheck: 1, BMI: 30, Smoker: 1, Stroke: 0,
		Diabetes: 2, PhysActivity: 0, HvyAlcoholConsump: 1, AnyHealthcare: 1,
		NoDocbcCost: 0, GenHlth: 3, MentHlth: 5, PhysHlth: 10, Sex: 0, Age: 9,
	}
}

func TestReadCSV_MissingCells(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader(trainingCSV))
	require.NoError(t, err)
	assert.Len(t, ds.Rows, 4)

	bmi, err := ds.Column("BMI")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(bmi[2]))

	diabetes, _ := ds.Column("Diabetes")
	assert.True(t, math.IsNaN(diabetes[3]))

	_, err = ds.Column("Cholesterol")
	assert.Error(t, err)
}

func TestReadCSV_RejectsNonNumeric(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("BMI,Age\n25,young\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Age")
}

func TestFit_Statistics(t *testing.T) {
	tr := fitTestTransform(t)

	assert.Equal(t, 4, tr.Rows)
	assert.ElementsMatch(t, survey.ExcludedColumns, tr.DroppedColumns)
	require.NoError(t, tr.Check())

	byName := map[string]NumericColumn{}
	for _, c := range tr.Numeric {
		byName[c.Column] = c
	}
	assert.InDelta(t, 30.0, byName["BMI"].Mean, 1e-9)
	assert.InDelta(t, math.Sqrt(50), byName["BMI"].Scale, 1e-9)
	assert.Equal(t, 1.0, byName["MentHlth"].Scale, "zero variance scales by one")
	assert.InDelta(t, math.Sqrt(125), byName["PhysHlth"].Scale, 1e-9)
	assert.InDelta(t, 7.0, byName["Age"].Mean, 1e-9)

	cats := map[string]CategoricalColumn{}
	for _, c := range tr.Categorical {
		cats[c.Column] = c
	}
	assert.Equal(t, 0.0, cats["HighBP"].Mode, "tie resolves to the smallest value")
	assert.Equal(t, []float64{0, 1}, cats["HighBP"].Categories)
	assert.Equal(t, 2.0, cats["Diabetes"].Mode)
	assert.Equal(t, []float64{0, 2}, cats["Diabetes"].Categories)
	assert.Equal(t, []float64{1, 2, 3, 4}, cats["GenHlth"].Categories)
	assert.Equal(t, []float64{0}, cats["Stroke"].Categories)
	assert.Equal(t, 1.0, cats["Sex"].Mode)

	assert.Equal(t, 29, tr.OutputDim())
	names := tr.FeatureNames()
	require.Len(t, names, 29)
	assert.Equal(t, "num__BMI", names[0])
	assert.Equal(t, "num__Age", names[3])
	assert.Equal(t, "cat__HighBP_0", names[4])
	assert.Equal(t, "cat__Sex_1", names[28])
}

func TestFit_RequiresEveryFeatureColumn(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader("BMI,MentHlth\n25,0\n"))
	require.NoError(t, err)

	_, err = Fit(ds)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HighBP")
}

func TestApply_Layout(t *testing.T) {
	tr := fitTestTransform(t)
	vec := tr.Apply(sampleRecord().Features())
	require.Len(t, vec, tr.OutputDim())

	// standardized numeric block
	assert.InDelta(t, 0.0, vec[0], 1e-9)
	assert.InDelta(t, 5.0, vec[1], 1e-9)
	assert.InDelta(t, -5/math.Sqrt(125), vec[2], 1e-9)
	assert.InDelta(t, 2/math.Sqrt(20), vec[3], 1e-9)

	// HighBP=1 in block [0,1]
	assert.Equal(t, []float64{0, 1}, vec[4:6])
}

func TestApply_IsPure(t *testing.T) {
	tr := fitTestTransform(t)
	features := sampleRecord().Features()
	assert.Equal(t, tr.Apply(features), tr.Apply(features))
}

func TestApply_UnknownCategoryGivesZeroBlock(t *testing.T) {
	tr := fitTestTransform(t)
	rec := sampleRecord()
	rec.Diabetes = 1 // never seen at fit time
	rec.Stroke = 1

	vec := tr.Apply(rec.Features())
	decoded, err := tr.DecodeCategorical(vec)
	require.NoError(t, err)

	_, hasDiabetes := decoded["Diabetes"]
	_, hasStroke := decoded["Stroke"]
	assert.False(t, hasDiabetes)
	assert.False(t, hasStroke)

	// 12 categorical blocks, two of them empty
	total := 0.0
	for _, v := range vec[len(tr.Numeric):] {
		total += v
	}
	assert.Equal(t, 10.0, total)
}

func TestApply_MissingValuesAreImputed(t *testing.T) {
	tr := fitTestTransform(t)
	features := sampleRecord().Features()
	delete(features, "BMI")
	features["Sex"] = math.NaN()

	vec := tr.Apply(features)
	assert.InDelta(t, 0.0, vec[0], 1e-9, "BMI imputed with the fit mean")

	decoded, err := tr.DecodeCategorical(vec)
	require.NoError(t, err)
	assert.Equal(t, 1.0, decoded["Sex"], "Sex imputed with the fit mode")
}

func TestDecodeCategorical_RoundTrip(t *testing.T) {
	tr := fitTestTransform(t)
	rec := sampleRecord()

	decoded, err := tr.DecodeCategorical(tr.Apply(rec.Features()))
	require.NoError(t, err)

	for _, name := range survey.CategoricalColumns {
		want, _ := rec.Get(name)
		assert.Equal(t, float64(want), decoded[name], name)
	}

	_, err = tr.DecodeCategorical([]float64{1, 2})
	assert.Error(t, err)
}

func TestApply_DomainBoundaries(t *testing.T) {
	tr := fitTestTransform(t)
	for _, bmi := range []int{12, 98} {
		rec := sampleRecord()
		rec.BMI = bmi
		require.NoError(t, rec.Validate())
		vec := tr.Apply(rec.Features())
		assert.Len(t, vec, tr.OutputDim())
	}
}

func TestArtifact_SaveAndLoad(t *testing.T) {
	tr := fitTestTransform(t)
	path := filepath.Join(t.TempDir(), "transform.json")
	require.NoError(t, tr.SaveFile(path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, tr.Version, loaded.Version)
	assert.Equal(t, tr.Apply(sampleRecord().Features()), loaded.Apply(sampleRecord().Features()))
}

func TestArtifact_LoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "absent.json"))
		assert.True(t, stderrors.Is(err, errors.ErrMissingArtifact))
	})

	t.Run("malformed json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "transform.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"numeric": [`), 0o600))
		_, err := LoadFile(path)
		assert.True(t, stderrors.Is(err, errors.ErrInvalidArtifact))
	})

	t.Run("wrong column order", func(t *testing.T) {
		tr := fitTestTransform(t)
		tr.Numeric[0], tr.Numeric[1] = tr.Numeric[1], tr.Numeric[0]
		var buf bytes.Buffer
		require.NoError(t, tr.Write(&buf))

		_, err := Read(&buf)
		assert.True(t, stderrors.Is(err, errors.ErrInvalidArtifact))
	})
}
