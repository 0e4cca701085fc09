package csvimport

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fredsystems/zabbid/internal/domain"
)

func testState() *domain.State {
	start, _ := time.Parse("2006-01-02", "2026-01-04")
	by := &domain.BidYear{BidYearID: "by-1", Year: 2026, StartDate: start, NumPayPeriods: 26}
	state := domain.NewState(by)
	state.Areas["area-zab"] = &domain.Area{AreaID: "area-zab", BidYearID: "by-1", AreaCode: "ZAB"}
	state.Areas["area-nobid"] = &domain.Area{AreaID: "area-nobid", BidYearID: "by-1", AreaCode: domain.SystemAreaCode, IsSystemArea: true}
	return state
}

const csvHeader = "initials,name,area_code,crew,user_type,service_computation_date,eod_faa_date\n"

func TestPreview_AllValidRows(t *testing.T) {
	state := testState()
	csv := csvHeader + "AB,Alice Brown,ZAB,1,CPC,2020-01-01,2020-01-01\n"

	result, err := Preview(context.Background(), nil, strings.NewReader(csv), state)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalRows)
	assert.Equal(t, 1, result.ValidCount)
	assert.Equal(t, 0, result.InvalidCount)
	require.NotNil(t, result.Rows[0].Parsed)
	assert.Equal(t, "AB", result.Rows[0].Parsed.Initials)
}

func TestPreview_RowsAreIndependent(t *testing.T) {
	state := testState()
	csv := csvHeader +
		"AB,Alice Brown,ZAB,1,CPC,2020-01-01,2020-01-01\n" + // valid
		"A,Short Initials,ZAB,1,CPC,2020-01-01,2020-01-01\n" + // invalid: initials length 1
		"CD,Charlie Day,ZZZ,1,CPC,2020-01-01,2020-01-01\n" // invalid: area does not exist

	result, err := Preview(context.Background(), nil, strings.NewReader(csv), state)
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalRows)
	assert.Equal(t, 1, result.ValidCount)
	assert.Equal(t, 2, result.InvalidCount)

	assert.Equal(t, RowValid, result.Rows[0].Status)
	assert.Equal(t, RowInvalid, result.Rows[1].Status)
	assert.Equal(t, RowInvalid, result.Rows[2].Status)

	// row 2's errors never mention area, row 3's errors never mention initials
	for _, e := range result.Rows[1].Errors {
		assert.NotEqual(t, "area_code", e.Field)
	}
	for _, e := range result.Rows[2].Errors {
		assert.NotEqual(t, "initials", e.Field)
	}
}

func TestPreview_DuplicateInitialsWithinCSV(t *testing.T) {
	state := testState()
	csv := csvHeader +
		"AB,Alice Brown,ZAB,1,CPC,2020-01-01,2020-01-01\n" +
		"AB,Alice Clone,ZAB,2,CPC,2020-01-01,2020-01-01\n"

	result, err := Preview(context.Background(), nil, strings.NewReader(csv), state)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ValidCount)
	assert.Equal(t, 1, result.InvalidCount)

	found := false
	for _, e := range result.Rows[1].Errors {
		if e.Code == "DUPLICATE_IN_CSV" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestPreview_MissingHeaderFailsAtFormatLevel(t *testing.T) {
	state := testState()
	csv := "initials,name\nAB,Alice\n"

	_, err := Preview(context.Background(), nil, strings.NewReader(csv), state)
	require.Error(t, err)
}

func TestPreview_DuplicateAgainstExistingState(t *testing.T) {
	state := testState()
	state.Users["u-1"] = &domain.User{UserID: "u-1", BidYearID: "by-1", AreaID: "area-zab", Initials: "AB"}
	csv := csvHeader + "AB,Alice Brown,ZAB,1,CPC,2020-01-01,2020-01-01\n"

	result, err := Preview(context.Background(), nil, strings.NewReader(csv), state)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ValidCount)
	assert.Equal(t, 1, result.InvalidCount)
}
