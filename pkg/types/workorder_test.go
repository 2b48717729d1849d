package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWeightConfig() *WeightConfig {
	intMap := map[string]uint64{
		"0": 1, "1": 9, "2": 8, "3": 7, "4": 6,
		"5": 5, "6": 4, "7": 3, "8": 2,
	}
	return &WeightConfig{
		OrderTypeWeights: map[string]uint64{"WDF": 10, "WGN": 8, "WPM": 6, "Other": 1},
		StatusWeights:    map[string]uint64{"AWSC": 100, "SECE": 80, "PCNF_NMAT_SMAT": 50},
		WdfPriorityMap:   intMap,
		WgnPriorityMap:   intMap,
		WpmPriorityMap:   map[string]uint64{"A": 8, "B": 4, "C": 2, "D": 1},
	}
}

func testWorkOrder(number WorkOrderNumber) *WorkOrder {
	return &WorkOrder{
		Number:       number,
		MainResource: MtnMech,
		Operations: map[ActivityNumber]*Operation{
			10: {Activity: 10, Resource: MtnMech, WorkerCount: 1, Work: 20, OperatingTime: 6},
			20: {Activity: 20, Resource: MtnElec, WorkerCount: 2, Work: 10, OperatingTime: 6},
		},
		FunctionalLocation: FunctionalLocation{Raw: "DF-100-PA-001", Asset: AssetDF},
		Type:               TypeWDF,
		Priority:           IntPriority(1),
		EarliestStart:      time.Date(2024, 5, 16, 0, 0, 0, 0, time.UTC),
		LatestFinish:       time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestWorkOrderLoad(t *testing.T) {
	wo := testWorkOrder(2400471691)

	load, err := wo.Load()
	require.NoError(t, err)
	assert.Equal(t, 20.0, load[MtnMech])
	assert.Equal(t, 10.0, load[MtnElec])

	wo.Operations[10].Work = -1
	_, err = wo.Load()
	assert.Error(t, err)
}

func TestWorkOrderWeight(t *testing.T) {
	cfg := testWeightConfig()
	wo := testWorkOrder(2400471691)

	// WDF priority 1: 9 * 10 = 90 base, times 30 total hours.
	weight, err := wo.Weight(cfg)
	require.NoError(t, err)
	assert.Equal(t, uint64(90*30), weight)

	// AWSC adds its status weight before the hour scaling.
	wo.UserStatus.AWSC = true
	weight, err = wo.Weight(cfg)
	require.NoError(t, err)
	assert.Equal(t, uint64((90+100)*30), weight)

	// Character priority on a WPM order.
	wpm := testWorkOrder(2400471692)
	wpm.Type = TypeWPM
	wpm.Priority = CharPriority('A')
	weight, err = wpm.Weight(cfg)
	require.NoError(t, err)
	assert.Equal(t, uint64(8*6*30), weight)

	// Out-of-range priorities are input errors.
	bad := testWorkOrder(2400471693)
	bad.Priority = IntPriority(9)
	_, err = bad.Weight(cfg)
	assert.Error(t, err)
}

func TestWorkOrderVendor(t *testing.T) {
	wo := testWorkOrder(2400471691)
	assert.False(t, wo.Vendor())

	wo.Operations[30] = &Operation{Activity: 30, Resource: VenMech, WorkerCount: 1, Work: 5}
	assert.True(t, wo.Vendor())
}

func TestExcludedPeriods(t *testing.T) {
	start := time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC)
	periods := NewPeriods(13, start)
	offsets := MaterialOffsets{Cmat: 2, Pmat: 3, Wmat: 3}

	wo := testWorkOrder(2400471691)
	excluded := wo.ExcludedPeriods(periods, offsets)
	assert.Empty(t, excluded)

	// A vendor order loses the first four periods.
	wo.Operations[30] = &Operation{Activity: 30, Resource: VenScaf, WorkerCount: 1, Work: 5}
	excluded = wo.ExcludedPeriods(periods, offsets)
	for id := 0; id <= 3; id++ {
		assert.Contains(t, excluded, id)
	}
	assert.NotContains(t, excluded, 4)

	// Material status pushes the earliest allowed start period out.
	plain := testWorkOrder(2400471694)
	plain.UserStatus.WMAT = true
	excluded = plain.ExcludedPeriods(periods, offsets)
	assert.Contains(t, excluded, 0)
	assert.Contains(t, excluded, 2)
	assert.NotContains(t, excluded, 3)

	// A shutdown revision behaves like a vendor order.
	shutdown := testWorkOrder(2400471695)
	shutdown.Revision = Revision{Code: "SD180", Shutdown: true}
	excluded = shutdown.ExcludedPeriods(periods, offsets)
	assert.Contains(t, excluded, 3)
}

func TestStatusParsing(t *testing.T) {
	system := ParseSystemStatus("REL PCNF NMAT PRT")
	assert.True(t, system.REL)
	assert.True(t, system.PCNF)
	assert.True(t, system.NMAT)
	assert.True(t, system.PRT)
	assert.False(t, system.TECO)

	user := ParseUserStatus("SMAT SCH AWSC")
	assert.True(t, user.SMAT)
	assert.True(t, user.SCH)
	assert.True(t, user.AWSC)
	assert.False(t, user.SECE)
}

func TestMaterialStatusPrecedence(t *testing.T) {
	tests := []struct {
		name     string
		status   UserStatus
		expected MaterialStatus
	}{
		{"no material bits defaults to nmat", UserStatus{}, MaterialNmat},
		{"smat alone", UserStatus{SMAT: true}, MaterialSmat},
		{"cmat alone", UserStatus{CMAT: true}, MaterialCmat},
		{"wmat beats smat", UserStatus{SMAT: true, WMAT: true}, MaterialWmat},
		{"wmat beats pmat", UserStatus{PMAT: true, WMAT: true}, MaterialWmat},
		{"pmat beats cmat", UserStatus{CMAT: true, PMAT: true}, MaterialPmat},
		{"pmat beats smat", UserStatus{SMAT: true, PMAT: true}, MaterialPmat},
		{"cmat beats smat", UserStatus{SMAT: true, CMAT: true}, MaterialCmat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.status.MaterialStatus())
		})
	}
}

func TestWorkOrderValidate(t *testing.T) {
	wo := testWorkOrder(2400471691)
	assert.NoError(t, wo.Validate())

	inverted := testWorkOrder(2400471696)
	inverted.EarliestStart = inverted.LatestFinish.Add(24 * time.Hour)
	assert.Error(t, inverted.Validate())
}
