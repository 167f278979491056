package repository

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"stratflow-go/internal/model"
	"stratflow-go/pkg/database"
)

// newTestDB 返回一个已迁移全部表的内存 SQLite 库。
// 内存库只存在于单个连接上，所以连接池限制为 1。
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func strPtr(s string) *string { return &s }

func TestProcessSaveStaysInTenant(t *testing.T) {
	repo := NewProcessRepository(newTestDB(t))

	require.NoError(t, repo.Save(&model.ProcessDefinition{ID: "p1", EntName: "acme", Name: "采购流程", Version: "Draft"}))

	err := repo.Save(&model.ProcessDefinition{ID: "p1", EntName: "globex", Name: "hijacked"})
	require.Error(t, err)

	acme, err := repo.FindAll("acme")
	require.NoError(t, err)
	require.Len(t, acme, 1)
	assert.Equal(t, "采购流程", acme[0].Name)

	globex, err := repo.FindAll("globex")
	require.NoError(t, err)
	assert.Empty(t, globex)
	_, err = repo.FindByID("globex", "p1")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.NoError(t, repo.Delete("globex", "p1"))
	_, err = repo.FindByID("acme", "p1")
	require.NoError(t, err, "deletes are tenant scoped")
}

func TestProcessSaveOverwritesWholeRow(t *testing.T) {
	repo := NewProcessRepository(newTestDB(t))

	proc := &model.ProcessDefinition{
		ID:       "p1",
		EntName:  "acme",
		Name:     "采购流程",
		Version:  "V1.0",
		IsActive: true,
		Nodes:    []model.ProcessNode{{ID: "n1", Label: "开始", Type: model.NodeStart}},
		Links:    []model.ProcessLink{},
		History:  []model.ProcessHistory{{ID: "h1", Version: "V1.0"}},
	}
	require.NoError(t, repo.Save(proc))

	next := *proc
	next.Name = "采购与付款"
	next.IsActive = false
	next.Nodes = []model.ProcessNode{}
	require.NoError(t, repo.Save(&next))

	got, err := repo.FindByID("acme", "p1")
	require.NoError(t, err)
	assert.Equal(t, "采购与付款", got.Name)
	assert.False(t, got.IsActive, "zero values are written too")
	assert.Empty(t, got.Nodes)
	require.Len(t, got.History, 1)
	assert.Equal(t, "V1.0", got.History[0].Version)
	assert.Equal(t, "acme", got.EntName)
}

func TestUserSaveStaysInTenant(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))

	require.NoError(t, repo.Create(&model.User{ID: "u1", EntName: "acme", Username: "alice", PasswordHash: "h1", Role: model.RoleAdmin}))

	err := repo.Save(&model.User{ID: "u1", EntName: "globex", Username: "mallory", PasswordHash: "h2", Role: model.RoleAdmin})
	require.Error(t, err)

	alice, err := repo.FindByID("acme", "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice", alice.Username)
	assert.Equal(t, "h1", alice.PasswordHash)
	_, err = repo.FindByUsername("globex", "mallory")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	alice.Name = "Alice"
	alice.Role = model.RoleUser
	require.NoError(t, repo.Save(alice))
	got, err := repo.FindByUsername("acme", "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Name)
	assert.Equal(t, model.RoleUser, got.Role)

	// 用户名在租户内唯一，跨租户可以重名
	assert.Error(t, repo.Create(&model.User{ID: "u2", EntName: "acme", Username: "alice", Role: model.RoleUser}))
	require.NoError(t, repo.Create(&model.User{ID: "u3", EntName: "globex", Username: "alice", Role: model.RoleUser}))

	assert.ErrorIs(t, repo.UpdatePassword("globex", "u1", "h3"), gorm.ErrRecordNotFound)
	require.NoError(t, repo.Delete("globex", "u1"))
	users, err := repo.FindAll("acme")
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestDepartmentReplaceAllKeepsSiblingOrder(t *testing.T) {
	repo := NewDepartmentRepository(newTestDB(t))

	okrs := map[int]map[string][]model.OKR{2024: {"Q1": {{ID: "o1", Objective: "降本", KeyResults: []string{"10%"}}}}}
	rows := []model.DepartmentRow{
		{ID: "hq", Name: "总部", Roles: []string{"总经理"}},
		{ID: "ops", Name: "运营中心", Roles: []string{}, ParentID: strPtr("hq")},
		{ID: "wh", Name: "仓储部", Roles: []string{"仓管员"}, ParentID: strPtr("ops")},
		{ID: "buy", Name: "采购部", Roles: []string{"采购专员"}, ParentID: strPtr("ops"), OKRs: okrs},
		{ID: "fin", Name: "财务部", Roles: []string{}, ParentID: strPtr("hq")},
		{ID: "rd", Name: "研发中心", Roles: []string{}},
	}
	require.NoError(t, repo.ReplaceAll("acme", rows))
	require.NoError(t, repo.ReplaceAll("globex", []model.DepartmentRow{{ID: "g1", Name: "Globex HQ", Roles: []string{}}}))

	got, err := repo.FindAll("acme")
	require.NoError(t, err)
	require.Len(t, got, len(rows))
	for i := range rows {
		assert.Equal(t, rows[i].ID, got[i].ID)
		assert.Equal(t, rows[i].ParentID, got[i].ParentID)
		assert.Equal(t, rows[i].Roles, got[i].Roles)
		assert.Equal(t, "acme", got[i].EntName)
	}
	assert.Equal(t, okrs, got[3].OKRs)

	// 整体替换：旧行被删除，新顺序生效
	require.NoError(t, repo.ReplaceAll("acme", []model.DepartmentRow{rows[5], rows[0]}))
	got, err = repo.FindAll("acme")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "rd", got[0].ID)
	assert.Equal(t, "hq", got[1].ID)

	other, err := repo.FindAll("globex")
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, "g1", other[0].ID)

	require.NoError(t, repo.ReplaceAll("acme", nil))
	got, err = repo.FindAll("acme")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPADReplaceAllAndSave(t *testing.T) {
	repo := NewPADRepository(newTestDB(t))

	entry := model.PADEntry{Plan: "梳理供应商", Action: "走访三家", Deliverable: "评估报告"}
	require.NoError(t, repo.ReplaceAll("acme", []model.WeeklyPAD{
		{ID: "pad1", WeekID: "2024-W2", OwnerID: "buy", Type: model.PADTypeDept, Entries: []model.PADEntry{entry}},
		{ID: "pad2", WeekID: "2024-W1", OwnerID: "u1", Type: model.PADTypeUser, Entries: []model.PADEntry{}},
	}))
	require.NoError(t, repo.ReplaceAll("globex", []model.WeeklyPAD{
		{ID: "gpad", WeekID: "2024-W1", OwnerID: "g1", Type: model.PADTypeDept},
	}))

	pads, err := repo.FindAll("acme")
	require.NoError(t, err)
	require.Len(t, pads, 2)
	assert.Equal(t, "pad2", pads[0].ID, "ordered by week")
	assert.Equal(t, []model.PADEntry{entry}, pads[1].Entries)

	require.NoError(t, repo.ReplaceAll("acme", []model.WeeklyPAD{pads[1]}))
	pads, err = repo.FindAll("acme")
	require.NoError(t, err)
	require.Len(t, pads, 1)

	updated := pads[0]
	updated.Entries = append(updated.Entries, model.PADEntry{Plan: "比价"})
	require.NoError(t, repo.Save(&updated))
	pads, err = repo.FindAll("acme")
	require.NoError(t, err)
	require.Len(t, pads, 1)
	assert.Len(t, pads[0].Entries, 2)

	hijack := model.WeeklyPAD{ID: "pad1", EntName: "globex", WeekID: "2024-W9"}
	assert.Error(t, repo.Save(&hijack))
	pads, err = repo.FindAll("acme")
	require.NoError(t, err)
	assert.Equal(t, "2024-W2", pads[0].WeekID)
	other, err := repo.FindAll("globex")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestStrategySaveUpserts(t *testing.T) {
	repo := NewStrategyRepository(newTestDB(t))

	_, err := repo.Find("acme")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	s := model.EmptyStrategy("acme")
	s.Mission = "数字化治理"
	require.NoError(t, repo.Save(&s))
	s.Vision = "行业标准"
	s.CompanyOKRs = map[int][]model.OKR{2024: {{ID: "c1", Objective: "增长", KeyResults: []string{"营收 +20%"}}}}
	require.NoError(t, repo.Save(&s))

	got, err := repo.Find("acme")
	require.NoError(t, err)
	assert.Equal(t, "数字化治理", got.Mission)
	assert.Equal(t, "行业标准", got.Vision)
	assert.Equal(t, s.CompanyOKRs, got.CompanyOKRs)
}

func TestEnterpriseDeleteCascades(t *testing.T) {
	db := newTestDB(t)
	ents := NewEnterpriseRepository(db)
	procs := NewProcessRepository(db)
	depts := NewDepartmentRepository(db)
	pads := NewPADRepository(db)

	for _, name := range []string{"acme", "globex"} {
		strategy := model.EmptyStrategy(name)
		require.NoError(t, ents.CreateWorkspace(
			&model.Enterprise{Name: name, DisplayName: name},
			&model.User{ID: "admin-" + name, EntName: name, Username: "admin", Role: model.RoleAdmin},
			&strategy,
		))
		require.NoError(t, procs.Save(&model.ProcessDefinition{ID: "p-" + name, EntName: name, Name: "流程"}))
		require.NoError(t, depts.ReplaceAll(name, []model.DepartmentRow{{ID: "d-" + name, Name: "总部", Roles: []string{}}}))
		require.NoError(t, pads.ReplaceAll(name, []model.WeeklyPAD{{ID: "pad-" + name, WeekID: "2024-W1"}}))
	}
	n, err := ents.Count()
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	require.NoError(t, ents.Delete("acme"))

	for _, m := range tenantTables {
		var left int64
		require.NoError(t, db.Model(m).Where("ent_name = ?", "acme").Count(&left).Error)
		assert.Zero(t, left, "%T rows of deleted tenant", m)

		var kept int64
		require.NoError(t, db.Model(m).Where("ent_name = ?", "globex").Count(&kept).Error)
		assert.EqualValues(t, 1, kept, "%T rows of other tenant", m)
	}
	_, err = ents.FindByName("acme")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.ErrorIs(t, ents.Delete("acme"), gorm.ErrRecordNotFound)

	all, err := ents.FindAll()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "globex", all[0].Name)
}

func TestCreateWorkspaceIsAtomic(t *testing.T) {
	db := newTestDB(t)
	ents := NewEnterpriseRepository(db)
	users := NewUserRepository(db)

	require.NoError(t, users.Create(&model.User{ID: "taken", EntName: "other", Username: "x", Role: model.RoleUser}))

	err := ents.CreateWorkspace(
		&model.Enterprise{Name: "acme", DisplayName: "Acme"},
		&model.User{ID: "taken", EntName: "acme", Username: "admin", Role: model.RoleAdmin},
		nil,
	)
	require.Error(t, err)
	_, err = ents.FindByName("acme")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound, "enterprise row is rolled back with the admin")

	require.NoError(t, ents.CreateWorkspace(&model.Enterprise{Name: "acme", DisplayName: "Acme"}, nil, nil))
	err = ents.CreateWorkspace(&model.Enterprise{Name: "acme", DisplayName: "Again"}, nil, nil)
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}
