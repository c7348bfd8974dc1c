package corrective

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/corrag/gate"
	"github.com/BaSui01/corrag/strategy"
)

func TestAuditTrail_QueryTruncation(t *testing.T) {
	long := strings.Repeat("q", 500)
	trail := newAuditTrail(long, gate.Evaluation{})

	assert.Len(t, trail.Query, maxAuditQueryLen)
	assert.NotEmpty(t, trail.ID)
	assert.False(t, trail.StartedAt.IsZero())
}

func TestAuditTrail_ShortQueryKept(t *testing.T) {
	trail := newAuditTrail("what is rrf", gate.Evaluation{})
	assert.Equal(t, "what is rrf", trail.Query)
}

func TestAuditTrail_FinalizeOnce(t *testing.T) {
	trail := newAuditTrail("q", gate.Evaluation{EvidenceLevel: gate.EvidenceLow})

	trail.Finalize(gate.Evaluation{EvidenceLevel: gate.EvidenceStrong, GatePassed: true}, 5)
	first := trail.FinalEvaluation

	time.Sleep(2 * time.Millisecond)
	trail.Finalize(gate.Evaluation{EvidenceLevel: gate.EvidenceInsufficient}, 0)

	assert.Equal(t, first, trail.FinalEvaluation, "重复封口无效果")
	assert.Equal(t, 5, trail.FinalResultCount)
}

func TestAuditTrail_ToMap(t *testing.T) {
	trail := newAuditTrail("q", gate.Evaluation{
		EvidenceLevel: gate.EvidenceLow,
		BestScore:     0.2,
	})
	trail.append(CorrectiveAction{
		StrategyName: gate.ActionAggressiveHybrid,
		Parameters:   strategy.RetryParameters{StrategyName: gate.ActionAggressiveHybrid, TopK: 20},
		Success:      true,
		ResultCount:  3,
		BestScore:    0.6,
	})
	trail.Finalize(gate.Evaluation{EvidenceLevel: gate.EvidenceModerate, GatePassed: true}, 3)

	m := trail.ToMap()

	assert.Equal(t, trail.ID, m["id"])
	assert.Equal(t, "q", m["query"])
	assert.Equal(t, 1, m["rounds"])
	assert.Equal(t, 3, m["final_result_count"])

	initial, ok := m["initial_evaluation"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "low", initial["evidence_level"])

	actions, ok := m["actions"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, actions, 1)
	assert.Equal(t, gate.ActionAggressiveHybrid, actions[0]["strategy_name"])
	assert.Equal(t, true, actions[0]["success"])
}
