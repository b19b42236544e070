package registry

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activity(id, taskType string) Activity {
	return Activity{ID: id, DisplayName: id, Category: "risk", TaskType: taskType, Timeout: "30s"}
}

func TestRegistry_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configs", "activity-registry.json")
	reg := &ActivityRegistry{Version: "1.0.0"}
	reg.Upsert(activity("predict-heart-risk", "predict-heart-risk"))

	require.NoError(t, Save(reg, path))

	loaded, err := LoadRegistry(path)
	require.NoError(t, err)
	require.Len(t, loaded.Activities, 1)
	_, ok := loaded.Find("predict-heart-risk")
	assert.True(t, ok)
	assert.NotEmpty(t, loaded.LastUpdated)
}

func TestRegistry_Upsert(t *testing.T) {
	reg := &ActivityRegistry{}
	reg.Upsert(activity("a", "task-a"))
	updated := activity("a", "task-a")
	updated.Retries = 5
	reg.Upsert(updated)

	require.Len(t, reg.Activities, 1)
	assert.Equal(t, 5, reg.Activities[0].Retries)
}

func TestRegistry_Validate(t *testing.T) {
	tests := []struct {
		name       string
		activities []Activity
		wantErr    bool
	}{
		{"valid", []Activity{activity("a", "task-a"), activity("b", "task-b")}, false},
		{"empty", nil, true},
		{"duplicate id", []Activity{activity("a", "task-a"), activity("a", "task-b")}, true},
		{"duplicate task type", []Activity{activity("a", "task-a"), activity("b", "task-a")}, true},
		{"missing category", []Activity{{ID: "a", DisplayName: "A", TaskType: "task-a"}}, true},
		{"bad timeout", []Activity{{ID: "a", DisplayName: "A", TaskType: "task-a", Category: "risk", Timeout: "soon"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := (&ActivityRegistry{Activities: tt.activities}).Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
