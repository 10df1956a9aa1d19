package schemas

import (
	"testing"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParams_String(t *testing.T) {
	threshold := 0.25
	tests := []struct {
		name     string
		params   Params
		expected string
	}{
		{"Empty", Params{}, "{}"},
		{"Threshold", Params{Threshold: &threshold}, "{threshold=0.25}"},
		{"All", Params{Threshold: &threshold, Closure: ClosureComponents, SkipBlank: true}, "{threshold=0.25 closure=components skip_blank=true}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.params.String())
		})
	}
}

func TestParams_Defaults(t *testing.T) {
	threshold := 0.0
	assert.Equal(t, 0.5, Params{}.ThresholdOr(0.5))
	assert.Equal(t, 0.0, Params{Threshold: &threshold}.ThresholdOr(0.5), "an explicit zero is kept")
	assert.Equal(t, ClosureSinglePass, Params{}.ClosureOr(ClosureSinglePass))
	assert.Equal(t, ClosureNone, Params{Closure: ClosureNone}.ClosureOr(ClosureSinglePass))
}

func TestFlexibleInt(t *testing.T) {
	var c Collection
	require.NoError(t, json.Unmarshal([]byte(`{"id": "7", "name": "x", "findings": [{"id": 3, "tool": "zap"}]}`), &c))
	assert.Equal(t, LabelKey{CollectionID: 7, Name: "x"}, c.Key())
	assert.Equal(t, FlexibleInt(3), c.Findings[0].ID)

	var bad FlexibleInt
	assert.Error(t, bad.UnmarshalJSON([]byte(`"seven"`)))
}

func TestCluster_OrderAndKey(t *testing.T) {
	clusters := []Cluster{{2}, {1, 3}, {1, 2, 3}, {1, 2}}
	SortClusters(clusters)

	assert.Equal(t, []Cluster{{1, 2}, {1, 2, 3}, {1, 3}, {2}}, clusters)
	assert.Equal(t, "1,2,3", clusters[1].Key())
	assert.Equal(t, []FindingID{1, 4, 9}, Corpus{9: "", 1: "a", 4: "b"}.IDs())
}
