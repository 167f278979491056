package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"gorm.io/gorm"

	"stratflow-go/internal/config"
	"stratflow-go/internal/model"
	"stratflow-go/pkg/llm"
	"stratflow-go/pkg/tasks"
)

var testSecurity = config.SecurityConfig{DefaultPassword: "888888"}

// --- 仓储 ---

type memEnterpriseRepo struct {
	mu      sync.Mutex
	ents    map[string]model.Enterprise
	users   *memUserRepo
	strats  *memStrategyRepo
	deleted []string
}

func newMemEnterpriseRepo(users *memUserRepo, strats *memStrategyRepo) *memEnterpriseRepo {
	return &memEnterpriseRepo{ents: map[string]model.Enterprise{}, users: users, strats: strats}
}

func (r *memEnterpriseRepo) FindAll() ([]model.Enterprise, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Enterprise{}
	for _, e := range r.ents {
		out = append(out, e)
	}
	return out, nil
}

func (r *memEnterpriseRepo) FindByName(name string) (*model.Enterprise, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.ents[name]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &e, nil
}

func (r *memEnterpriseRepo) Count() (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.ents)), nil
}

func (r *memEnterpriseRepo) CreateWorkspace(ent *model.Enterprise, admin *model.User, strategy *model.Strategy) error {
	r.mu.Lock()
	if _, ok := r.ents[ent.Name]; ok {
		r.mu.Unlock()
		return gorm.ErrDuplicatedKey
	}
	r.ents[ent.Name] = *ent
	r.mu.Unlock()
	if admin != nil {
		if err := r.users.Create(admin); err != nil {
			return err
		}
	}
	if strategy != nil {
		return r.strats.Save(strategy)
	}
	return nil
}

func (r *memEnterpriseRepo) Delete(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ents[name]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.ents, name)
	r.deleted = append(r.deleted, name)
	return nil
}

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]model.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[string]model.User{}}
}

func (r *memUserRepo) FindAll(entName string) ([]model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.User
	for _, u := range r.users {
		if u.EntName == entName {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *memUserRepo) FindByID(entName, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || u.EntName != entName {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r *memUserRepo) FindByUsername(entName, username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.EntName == entName && u.Username == username {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memUserRepo) conflict(user *model.User) bool {
	for _, u := range r.users {
		if u.ID != user.ID && u.EntName == user.EntName && u.Username == user.Username {
			return true
		}
	}
	return false
}

func (r *memUserRepo) Create(user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; ok || r.conflict(user) {
		return gorm.ErrDuplicatedKey
	}
	r.users[user.ID] = *user
	return nil
}

func (r *memUserRepo) Save(user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conflict(user) {
		return gorm.ErrDuplicatedKey
	}
	r.users[user.ID] = *user
	return nil
}

func (r *memUserRepo) UpdatePassword(entName, id, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || u.EntName != entName {
		return gorm.ErrRecordNotFound
	}
	u.PasswordHash = passwordHash
	r.users[id] = u
	return nil
}

func (r *memUserRepo) Delete(entName, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok && u.EntName == entName {
		delete(r.users, id)
	}
	return nil
}

type memProcessRepo struct {
	mu      sync.Mutex
	procs   map[string]model.ProcessDefinition
	order   []string
	saveErr error
}

func newMemProcessRepo() *memProcessRepo {
	return &memProcessRepo{procs: map[string]model.ProcessDefinition{}}
}

func (r *memProcessRepo) FindAll(entName string) ([]model.ProcessDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.ProcessDefinition
	for _, id := range r.order {
		if p, ok := r.procs[id]; ok && p.EntName == entName {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memProcessRepo) FindByID(entName, id string) (*model.ProcessDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.procs[id]
	if !ok || p.EntName != entName {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (r *memProcessRepo) Save(proc *model.ProcessDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	old, ok := r.procs[proc.ID]
	if ok && old.EntName != proc.EntName {
		return gorm.ErrDuplicatedKey
	}
	if !ok {
		r.order = append(r.order, proc.ID)
	}
	r.procs[proc.ID] = *proc
	return nil
}

func (r *memProcessRepo) Delete(entName, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.procs[id]; ok && p.EntName == entName {
		delete(r.procs, id)
	}
	return nil
}

type memDepartmentRepo struct {
	mu   sync.Mutex
	rows map[string][]model.DepartmentRow
}

func newMemDepartmentRepo() *memDepartmentRepo {
	return &memDepartmentRepo{rows: map[string][]model.DepartmentRow{}}
}

func (r *memDepartmentRepo) FindAll(entName string) ([]model.DepartmentRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.DepartmentRow(nil), r.rows[entName]...), nil
}

func (r *memDepartmentRepo) ReplaceAll(entName string, rows []model.DepartmentRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.DepartmentRow, len(rows))
	for i, row := range rows {
		row.EntName = entName
		row.Position = i
		out[i] = row
	}
	r.rows[entName] = out
	return nil
}

type memStrategyRepo struct {
	mu     sync.Mutex
	strats map[string]model.Strategy
}

func newMemStrategyRepo() *memStrategyRepo {
	return &memStrategyRepo{strats: map[string]model.Strategy{}}
}

func (r *memStrategyRepo) Find(entName string) (*model.Strategy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.strats[entName]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &s, nil
}

func (r *memStrategyRepo) Save(strategy *model.Strategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strats[strategy.EntName] = *strategy
	return nil
}

type memPADRepo struct {
	mu      sync.Mutex
	pads    map[string][]model.WeeklyPAD
	findErr error
}

func newMemPADRepo() *memPADRepo {
	return &memPADRepo{pads: map[string][]model.WeeklyPAD{}}
}

func (r *memPADRepo) FindAll(entName string) ([]model.WeeklyPAD, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	return append([]model.WeeklyPAD(nil), r.pads[entName]...), nil
}

func (r *memPADRepo) ReplaceAll(entName string, pads []model.WeeklyPAD) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pads[entName] = append([]model.WeeklyPAD(nil), pads...)
	return nil
}

func (r *memPADRepo) Save(pad *model.WeeklyPAD) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.pads[pad.EntName]
	for i := range list {
		if list[i].ID == pad.ID {
			list[i] = *pad
			return nil
		}
	}
	r.pads[pad.EntName] = append(list, *pad)
	return nil
}

type memTokenRepo struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
}

func (r *memTokenRepo) Revoke(_ context.Context, tok string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.revoked == nil {
		r.revoked = map[string]time.Duration{}
	}
	r.revoked[tok] = ttl
	return nil
}

func (r *memTokenRepo) IsRevoked(_ context.Context, tok string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.revoked[tok]
	return ok, nil
}

type memReviewRepo struct {
	mu      sync.Mutex
	history map[string][]model.ReviewRecord
	tokens  map[string]string
}

func newMemReviewRepo() *memReviewRepo {
	return &memReviewRepo{history: map[string][]model.ReviewRecord{}, tokens: map[string]string{}}
}

func (r *memReviewRepo) GetHistory(_ context.Context, entName, userID string) ([]model.ReviewRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.ReviewRecord{}, r.history[entName+"/"+userID]...), nil
}

func (r *memReviewRepo) Append(_ context.Context, entName, userID string, record model.ReviewRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history[entName+"/"+userID] = append(r.history[entName+"/"+userID], record)
	return nil
}

func (r *memReviewRepo) SaveStopToken(_ context.Context, entName, userID, tok string, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[entName+"/"+userID] = tok
	return nil
}

func (r *memReviewRepo) GetStopToken(_ context.Context, entName, userID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tokens[entName+"/"+userID], nil
}

// --- 外部依赖 ---

type recordingPublisher struct {
	mu     sync.Mutex
	events []tasks.ProcessEvent
	err    error
}

func (p *recordingPublisher) PublishProcessEvent(_ context.Context, evt tasks.ProcessEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

type stubExtractor struct {
	text string
	err  error
}

func (e stubExtractor) ExtractText(_ context.Context, r io.Reader, _ string) (string, error) {
	_, _ = io.ReadAll(r)
	return e.text, e.err
}

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (s *memStore) Put(_ context.Context, name string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.objects[name] = data
	return nil
}

func (s *memStore) PresignedURL(_ context.Context, name string, _ time.Duration) (string, error) {
	return "https://minio.local/" + name + "?sig=x", nil
}

// stubLLM 按调用方式返回预设的回复。
type stubLLM struct {
	reply   string
	chunks  []string
	err     error
	prompts []string
}

func (s *stubLLM) Chat(_ context.Context, messages []llm.Message, _ *llm.GenerationParams) (string, error) {
	for _, m := range messages {
		s.prompts = append(s.prompts, m.Content)
	}
	return s.reply, s.err
}

func (s *stubLLM) StreamChatMessages(_ context.Context, messages []llm.Message, _ *llm.GenerationParams, w llm.MessageWriter) error {
	if s.err != nil {
		return s.err
	}
	for _, c := range s.chunks {
		if err := w.WriteMessage(1, []byte(c)); err != nil {
			return err
		}
	}
	return nil
}

func (s *stubLLM) Vision(_ context.Context, prompt string, image []byte, _ string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if len(image) == 0 {
		return "", errors.New("empty image")
	}
	return s.reply, s.err
}

type captureWriter struct {
	messages []string
}

func (c *captureWriter) WriteMessage(_ int, data []byte) error {
	c.messages = append(c.messages, string(data))
	return nil
}
