package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratflow-go/internal/config"
	"stratflow-go/internal/model"
	"stratflow-go/pkg/hash"
	"stratflow-go/pkg/tasks"
)

type enterpriseFixture struct {
	users     *memUserRepo
	strats    *memStrategyRepo
	ents      *memEnterpriseRepo
	procs     *memProcessRepo
	publisher *recordingPublisher
	svc       EnterpriseService
}

func newEnterpriseFixture(security config.SecurityConfig) *enterpriseFixture {
	f := &enterpriseFixture{
		users:     newMemUserRepo(),
		strats:    newMemStrategyRepo(),
		procs:     newMemProcessRepo(),
		publisher: &recordingPublisher{},
	}
	f.ents = newMemEnterpriseRepo(f.users, f.strats)
	f.svc = NewEnterpriseService(f.ents, f.procs, f.publisher, security)
	return f
}

func TestEnterpriseCreateProvisionsWorkspace(t *testing.T) {
	f := newEnterpriseFixture(testSecurity)

	summary, err := f.svc.Create(" acme ", "Acme 集团", "")
	require.NoError(t, err)
	assert.Equal(t, "acme", summary.Name)
	assert.Equal(t, "Acme 集团", summary.DisplayName)

	admin, err := f.users.FindByUsername("acme", AdminUsername)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, admin.Role)
	assert.Equal(t, AdminDisplayName, admin.Name)
	assert.True(t, hash.CheckPasswordHash("888888", admin.PasswordHash))

	strategy, err := f.strats.Find("acme")
	require.NoError(t, err)
	assert.Empty(t, strategy.CompanyOKRs)

	list, err := f.svc.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "acme", list[0].Name)
}

func TestEnterpriseCreateErrors(t *testing.T) {
	f := newEnterpriseFixture(testSecurity)

	_, err := f.svc.Create("", "显示名", "pw")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.svc.Create("acme", " ", "pw")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.Create("acme", "Acme", "secret")
	require.NoError(t, err)
	_, err = f.svc.Create("acme", "Acme 2", "secret")
	assert.ErrorIs(t, err, ErrEnterpriseExists)
}

func TestEnterpriseCreateRequiresExplicitPassword(t *testing.T) {
	f := newEnterpriseFixture(config.SecurityConfig{DefaultPassword: "888888", RequireExplicitPassword: true})

	_, err := f.svc.Create("acme", "Acme", "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.Create("acme", "Acme", "s3cret!")
	require.NoError(t, err)
	admin, err := f.users.FindByUsername("acme", AdminUsername)
	require.NoError(t, err)
	assert.True(t, hash.CheckPasswordHash("s3cret!", admin.PasswordHash))
}

func TestEnterpriseDeletePublishesProcessEvents(t *testing.T) {
	f := newEnterpriseFixture(testSecurity)
	_, err := f.svc.Create("acme", "Acme", "pw")
	require.NoError(t, err)
	require.NoError(t, f.procs.Save(&model.ProcessDefinition{ID: "p1", EntName: "acme"}))
	require.NoError(t, f.procs.Save(&model.ProcessDefinition{ID: "p2", EntName: "acme"}))
	require.NoError(t, f.procs.Save(&model.ProcessDefinition{ID: "p3", EntName: "other"}))

	require.NoError(t, f.svc.Delete(context.Background(), "acme"))
	assert.Equal(t, []string{"acme"}, f.ents.deleted)

	require.Len(t, f.publisher.events, 2)
	for _, evt := range f.publisher.events {
		assert.Equal(t, tasks.ActionDeleted, evt.Action)
		assert.Equal(t, "acme", evt.EntName)
		assert.NotEmpty(t, evt.EventID)
	}

	err = f.svc.Delete(context.Background(), "acme")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEnterpriseSeedOnlyWhenEmpty(t *testing.T) {
	f := newEnterpriseFixture(testSecurity)
	seed := config.SeedConfig{
		Enabled:     true,
		Enterprise:  "demo",
		DisplayName: "演示企业",
		Mission:     "让规划落地",
		Vision:      "行业第一",
	}

	require.NoError(t, f.svc.Seed(config.SeedConfig{Enabled: false, Enterprise: "off"}))
	n, _ := f.ents.Count()
	assert.Zero(t, n)

	require.NoError(t, f.svc.Seed(seed))
	strategy, err := f.strats.Find("demo")
	require.NoError(t, err)
	assert.Equal(t, "让规划落地", strategy.Mission)
	assert.Equal(t, "行业第一", strategy.Vision)

	seed.Enterprise = "demo2"
	require.NoError(t, f.svc.Seed(seed))
	n, _ = f.ents.Count()
	assert.EqualValues(t, 1, n)
}
