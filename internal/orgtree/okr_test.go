package orgtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekQuarter(t *testing.T) {
	cases := []struct {
		week    string
		year    int
		quarter string
	}{
		{"2024-W1", 2024, "Q1"},
		{"2024-W13", 2024, "Q1"},
		{"2024-W14", 2024, "Q2"},
		{"2024-W26", 2024, "Q2"},
		{"2024-W39", 2024, "Q3"},
		{"2025-W40", 2025, "Q4"},
		{"2025-W52", 2025, "Q4"},
	}
	for _, tc := range cases {
		year, q, err := WeekQuarter(tc.week)
		require.NoError(t, err, tc.week)
		assert.Equal(t, tc.year, year, tc.week)
		assert.Equal(t, tc.quarter, q, tc.week)
	}

	for _, bad := range []string{"", "2024", "2024-W0", "2024-W60", "abcd-W3", "2024-Wx"} {
		_, _, err := WeekQuarter(bad)
		assert.ErrorIs(t, err, ErrInvalidWeek, bad)
	}
}

func TestDepartmentOKRLifecycle(t *testing.T) {
	tree := Rebuild(deepForest())

	next, okr, err := AddDepartmentOKR(tree, "buy", 2024, "Q2")
	require.NoError(t, err)
	assert.Equal(t, NewDepartmentObjective, okr.Objective)
	assert.Equal(t, []string{NewDepartmentKeyResult}, okr.KeyResults)

	buy, _ := Find(next, "buy")
	require.Len(t, buy.OKRs[2024]["Q2"], 1)
	original, _ := Find(tree, "buy")
	assert.Empty(t, original.OKRs)

	objective := "缩短采购周期"
	krs := []string{" 周期 < 7 天 ", "", "供应商 ≥ 3 家"}
	aligned := "c-okr-missing"
	next, updated, err := UpdateDepartmentOKR(next, "buy", okr.ID, OKRPatch{Objective: &objective, KeyResults: &krs, AlignedToID: &aligned})
	require.NoError(t, err)
	assert.Equal(t, objective, updated.Objective)
	assert.Equal(t, []string{"周期 < 7 天", "供应商 ≥ 3 家"}, updated.KeyResults)
	assert.Equal(t, aligned, updated.AlignedToID)

	_, _, err = UpdateDepartmentOKR(next, "buy", "nope", OKRPatch{})
	assert.ErrorIs(t, err, ErrOKRNotFound)
	_, _, err = AddDepartmentOKR(tree, "buy", 2024, "Q5")
	assert.ErrorIs(t, err, ErrInvalidQuarter)
}

func TestAlignableOKRsFallsBackToAllDepartments(t *testing.T) {
	tree := Rebuild(deepForest())
	tree, buyOKR, err := AddDepartmentOKR(tree, "buy", 2024, "Q1")
	require.NoError(t, err)
	tree, feOKR, err := AddDepartmentOKR(tree, "fe", 2024, "Q1")
	require.NoError(t, err)

	own := AlignableOKRs(tree, "buy", 2024, "Q1")
	require.Len(t, own, 1)
	assert.Equal(t, AlignableOKR{ID: buyOKR.ID, Objective: NewDepartmentObjective, Department: "采购部"}, own[0])

	fallback := AlignableOKRs(tree, "wh", 2024, "Q1")
	require.Len(t, fallback, 2)
	assert.Equal(t, buyOKR.ID, fallback[0].ID)
	assert.Equal(t, feOKR.ID, fallback[1].ID)

	assert.Empty(t, AlignableOKRs(tree, "buy", 2024, "Q3"))
}
