package bidorder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fredsystems/zabbid/internal/domain"
)

func TestPreview_OrdersBySeniorityAndExcludesNonBidders(t *testing.T) {
	by := &domain.BidYear{BidYearID: "by1"}
	state := domain.NewState(by)
	state.Areas["area1"] = &domain.Area{AreaID: "area1", AreaCode: "ZAB"}

	earlier := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	later := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	state.Users["u1"] = &domain.User{UserID: "u1", AreaID: "area1", Initials: "AB", Seniority: domain.Seniority{EODFAADate: later}}
	state.Users["u2"] = &domain.User{UserID: "u2", AreaID: "area1", Initials: "CD", Seniority: domain.Seniority{EODFAADate: earlier}}
	state.Users["u3"] = &domain.User{UserID: "u3", AreaID: "area1", Initials: "EF", Seniority: domain.Seniority{EODFAADate: earlier}, ExcludedFromBidding: true}

	ordered, err := Preview(state, "area1")
	require.NoError(t, err)
	require.Len(t, ordered, 2)
	assert.Equal(t, domain.Initials("CD"), ordered[0].Initials)
	assert.Equal(t, domain.Initials("AB"), ordered[1].Initials)
}

func TestPreview_UnknownArea(t *testing.T) {
	state := domain.NewState(&domain.BidYear{BidYearID: "by1"})
	_, err := Preview(state, "missing")
	assert.Error(t, err)
}
