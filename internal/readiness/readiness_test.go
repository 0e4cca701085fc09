package readiness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fredsystems/zabbid/internal/domain"
)

func TestReady_FalseWhenScheduleMissing(t *testing.T) {
	by := &domain.BidYear{BidYearID: "by1", LifecycleState: domain.BootstrapComplete}
	state := domain.NewState(by)
	state.Areas["sys"] = &domain.Area{AreaID: "sys", IsSystemArea: true, AreaCode: domain.SystemAreaCode}

	assert.False(t, Ready(state))
	reasons := Evaluate(state)
	require.NotEmpty(t, reasons)
	assert.Equal(t, "schedule_not_configured", reasons[0].Code)
}

func TestReady_TrueWhenFullyConfigured(t *testing.T) {
	by := &domain.BidYear{
		BidYearID:      "by1",
		LifecycleState: domain.BootstrapComplete,
		Schedule: &domain.BidSchedule{
			Timezone: "UTC", StartDate: time.Now(), WindowStartTime: "08:00", WindowEndTime: "17:00", BiddersPerDay: 1,
		},
	}
	state := domain.NewState(by)
	state.Areas["sys"] = &domain.Area{AreaID: "sys", IsSystemArea: true, AreaCode: domain.SystemAreaCode}

	assert.True(t, Ready(state))
}
