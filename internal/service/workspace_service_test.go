package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratflow-go/internal/model"
	"stratflow-go/pkg/hash"
	"stratflow-go/pkg/token"
)

type workspaceFixture struct {
	procs *memProcessRepo
	depts *memDepartmentRepo
	strat *memStrategyRepo
	users *memUserRepo
	pads  *memPADRepo
	store *memStore
	admin *model.User
	svc   WorkspaceService
}

func newWorkspaceFixture(t *testing.T) *workspaceFixture {
	t.Helper()
	f := &workspaceFixture{
		procs: newMemProcessRepo(),
		depts: newMemDepartmentRepo(),
		strat: newMemStrategyRepo(),
		users: newMemUserRepo(),
		pads:  newMemPADRepo(),
		store: newMemStore(),
	}
	h, err := hash.HashPassword("pw")
	require.NoError(t, err)
	f.admin = &model.User{ID: "u-admin", EntName: "acme", Username: "admin", PasswordHash: h, Role: model.RoleAdmin}
	require.NoError(t, f.users.Create(f.admin))

	f.svc = NewWorkspaceService(
		NewProcessService(f.procs, nil, nil, nil, nil),
		NewDepartmentService(f.depts, f.procs),
		NewStrategyService(f.strat),
		NewUserService(f.users, &memTokenRepo{}, token.NewJWTManager("k", 1, 1), testSecurity),
		NewPADService(f.pads, f.depts, f.users),
		f.store,
	)
	return f
}

func sampleState() model.AppState {
	return model.AppState{
		Processes: []model.ProcessDefinition{{ID: "p1", Name: "采购", Category: model.CategorySupply, Level: 1, Version: "V1"}},
		Departments: []model.Department{{ID: "ops", Name: "运营中心", Roles: []string{}, SubDepartments: []model.Department{
			{ID: "buy", Name: "采购部", Roles: []string{"采购专员"}},
		}}},
		Strategy:   model.Strategy{Mission: "使命", CompanyOKRs: map[int][]model.OKR{}},
		Users:      []model.User{{ID: "u-admin", Username: "admin", Name: "管理员", Role: model.RoleAdmin}},
		WeeklyPADs: []model.WeeklyPAD{{ID: "pad1", WeekID: "2025-W2", Type: model.PADTypeDept, OwnerID: "buy"}},
	}
}

func TestWorkspaceSaveThenLoad(t *testing.T) {
	f := newWorkspaceFixture(t)
	ctx := context.Background()

	report := f.svc.Save(ctx, f.admin, sampleState())
	require.NoError(t, report.Err())
	require.Len(t, report.Results, 5)
	for _, r := range report.Results {
		assert.True(t, r.OK, r.Resource)
	}

	state, err := f.svc.Load(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, state.Processes, 1)
	assert.Equal(t, model.ProcessTypeMain, state.Processes[0].Type)
	require.Len(t, state.Departments, 1)
	assert.Equal(t, "buy", state.Departments[0].SubDepartments[0].ID)
	assert.Equal(t, "使命", state.Strategy.Mission)
	require.Len(t, state.Users, 1)
	assert.Equal(t, "管理员", state.Users[0].Name)
	assert.True(t, hash.CheckPasswordHash("pw", f.users.users["u-admin"].PasswordHash), "workspace save keeps password hashes")
	assert.Len(t, state.WeeklyPADs, 1)

	other, err := f.svc.Load(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, other.Processes)
	assert.NotNil(t, other.Users)
}

func TestWorkspaceSaveReportsPartialFailure(t *testing.T) {
	f := newWorkspaceFixture(t)
	state := sampleState()
	state.Processes[0].Category = "不存在的分类"

	report := f.svc.Save(context.Background(), f.admin, state)
	err := report.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), ResourceProcesses)

	byName := map[string]ResourceResult{}
	for _, r := range report.Results {
		byName[r.Resource] = r
	}
	assert.False(t, byName[ResourceProcesses].OK)
	assert.NotEmpty(t, byName[ResourceProcesses].Error)
	assert.True(t, byName[ResourceDepartments].OK)
	assert.True(t, byName[ResourceStrategy].OK)

	st, err := f.strat.Find("acme")
	require.NoError(t, err)
	assert.Equal(t, "使命", st.Mission, "successful resources stay committed")
}

func TestWorkspaceLoadTreatsPADFailureAsEmpty(t *testing.T) {
	f := newWorkspaceFixture(t)
	f.pads.findErr = errors.New("table missing")

	state, err := f.svc.Load(context.Background(), "acme")
	require.NoError(t, err)
	assert.NotNil(t, state.WeeklyPADs)
	assert.Empty(t, state.WeeklyPADs)
}

func TestWorkspaceExport(t *testing.T) {
	f := newWorkspaceFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Save(ctx, f.admin, sampleState()).Err())

	res, err := f.svc.Export(ctx, "acme")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Object, "exports/acme/"))
	assert.Contains(t, res.URL, res.Object)
	assert.Positive(t, res.ExpiresAt)

	var state model.AppState
	require.NoError(t, json.Unmarshal(f.store.objects[res.Object], &state))
	assert.Len(t, state.Processes, 1)

	f.store.putErr = errors.New("bucket gone")
	_, err = f.svc.Export(ctx, "acme")
	assert.Error(t, err)
}

func TestWorkspaceExportWithoutStore(t *testing.T) {
	f := newWorkspaceFixture(t)
	svc := NewWorkspaceService(
		NewProcessService(f.procs, nil, nil, nil, nil),
		NewDepartmentService(f.depts, f.procs),
		NewStrategyService(f.strat),
		NewUserService(f.users, &memTokenRepo{}, token.NewJWTManager("k", 1, 1), testSecurity),
		NewPADService(f.pads, f.depts, f.users),
		nil,
	)
	_, err := svc.Export(context.Background(), "acme")
	assert.ErrorIs(t, err, ErrDependencyUnavailable)
}
