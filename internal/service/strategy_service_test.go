package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratflow-go/internal/model"
	"stratflow-go/internal/orgtree"
)

func TestStrategyDefaultsAndCompanyOKRs(t *testing.T) {
	svc := NewStrategyService(newMemStrategyRepo())

	st, err := svc.Get("acme")
	require.NoError(t, err)
	assert.Equal(t, "acme", st.EntName)
	assert.NotNil(t, st.CompanyOKRs)

	require.NoError(t, svc.Save("acme", model.Strategy{Mission: "使命", Vision: "愿景"}))

	okr, err := svc.AddCompanyOKR("acme", 2025)
	require.NoError(t, err)
	assert.Equal(t, orgtree.NewCompanyObjective, okr.Objective)
	_, err = svc.AddCompanyOKR("acme", 2025)
	require.NoError(t, err)

	st, err = svc.Get("acme")
	require.NoError(t, err)
	assert.Equal(t, "使命", st.Mission)
	assert.Len(t, st.CompanyOKRs[2025], 2)
	assert.Equal(t, okr.ID, st.CompanyOKRs[2025][0].ID)

	_, err = svc.AddCompanyOKR("acme", 0)
	assert.ErrorIs(t, err, ErrValidation)
}
