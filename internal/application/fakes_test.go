package application

import (
	"strings"
	"sync"
	"time"

	"gatewarden/internal/models"
	"gatewarden/pkg/config"

	"github.com/google/uuid"
)

// memStore is an in-memory stand-in for the postgres repositories. It keeps
// the same semantics the SQL layer has: destructive claims, accumulating
// upserts, and an optional forced failure for write-through tests.
type memStore struct {
	mu        sync.Mutex
	accounts  map[string]models.LinkedAccount
	pending   map[uuid.UUID]models.PendingLink
	attempts  map[string]int64
	whitelist map[string]models.WhitelistEntry
	records   map[string]models.RewardRecord
	cached    map[string]models.CachedReward

	failWith error
}

func newMemStore() *memStore {
	return &memStore{
		accounts:  make(map[string]models.LinkedAccount),
		pending:   make(map[uuid.UUID]models.PendingLink),
		attempts:  make(map[string]int64),
		whitelist: make(map[string]models.WhitelistEntry),
		records:   make(map[string]models.RewardRecord),
		cached:    make(map[string]models.CachedReward),
	}
}

func (m *memStore) fail(err error) {
	m.mu.Lock()
	m.failWith = err
	m.mu.Unlock()
}

func recordKey(chatID string, gameUUID uuid.UUID, rewardType string) string {
	return chatID + "|" + gameUUID.String() + "|" + rewardType
}

func cacheKey(gameUUID uuid.UUID, rewardType string) string {
	return gameUUID.String() + "|" + rewardType
}

func (m *memStore) AllAccounts() ([]models.LinkedAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	out := make([]models.LinkedAccount, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, a)
	}
	return out, nil
}

func (m *memStore) AllPending() ([]models.PendingLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	out := make([]models.PendingLink, 0, len(m.pending))
	for _, l := range m.pending {
		out = append(out, l)
	}
	return out, nil
}

func (m *memStore) CreatePending(link models.PendingLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	for id, other := range m.pending {
		if id != link.GameUUID && other.Code == link.Code {
			return models.ErrConflict
		}
	}
	m.pending[link.GameUUID] = link
	return nil
}

func (m *memStore) DeletePending(gameUUID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	delete(m.pending, gameUUID)
	return nil
}

func (m *memStore) Redeem(chatID string, link models.PendingLink) (models.LinkedAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return models.LinkedAccount{}, m.failWith
	}
	stored, ok := m.pending[link.GameUUID]
	if !ok || stored.Code != link.Code {
		return models.LinkedAccount{}, models.ErrNotFound
	}
	delete(m.pending, link.GameUUID)

	account := models.LinkedAccount{
		ChatID:       chatID,
		GameUUID:     link.GameUUID,
		GameUsername: link.DisplayName,
		LastUpdated:  time.Now().UTC(),
	}
	if old, ok := m.accounts[chatID]; ok {
		account.ActivityCount = old.ActivityCount
	}
	m.accounts[chatID] = account
	return account, nil
}

func (m *memStore) UpdateUsername(chatID, gameUsername string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	a, ok := m.accounts[chatID]
	if !ok {
		return models.ErrNotFound
	}
	a.GameUsername = gameUsername
	m.accounts[chatID] = a
	return nil
}

func (m *memStore) IncrementActivity(chatID string) (int64, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return 0, time.Time{}, m.failWith
	}
	a, ok := m.accounts[chatID]
	if !ok {
		return 0, time.Time{}, models.ErrNotFound
	}
	a.ActivityCount++
	a.LastUpdated = time.Now().UTC()
	m.accounts[chatID] = a
	return a.ActivityCount, a.LastUpdated, nil
}

func (m *memStore) Delete(chatID string, gameUUID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	delete(m.accounts, chatID)
	delete(m.pending, gameUUID)
	delete(m.attempts, chatID)
	for key, e := range m.whitelist {
		if e.ChatID == chatID {
			delete(m.whitelist, key)
		}
	}
	for key, r := range m.records {
		if r.ChatID == chatID {
			delete(m.records, key)
		}
	}
	for key, c := range m.cached {
		if c.GameUUID == gameUUID {
			delete(m.cached, key)
		}
	}
	return nil
}

func (m *memStore) IncrementFailedAttempts(chatID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.attempts[chatID]++
	return nil
}

func (m *memStore) GetFailedAttempts(chatID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return 0, m.failWith
	}
	return m.attempts[chatID], nil
}

func (m *memStore) ResetFailedAttempts(chatID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	delete(m.attempts, chatID)
	return nil
}

func (m *memStore) Upsert(entry models.WhitelistEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.whitelist[strings.ToLower(entry.GameUsername)] = entry
	return nil
}

func (m *memStore) ContainsUsername(username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return false, m.failWith
	}
	lower := strings.ToLower(username)
	for _, e := range m.whitelist {
		if strings.ToLower(e.GameUsername) == lower || strings.ToLower(e.BedrockUsername) == lower {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) All() ([]models.WhitelistEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	out := make([]models.WhitelistEntry, 0, len(m.whitelist))
	for _, e := range m.whitelist {
		out = append(out, e)
	}
	return out, nil
}

func (m *memStore) AddToRecord(chatID string, gameUUID uuid.UUID, rewardType string, count int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	key := recordKey(chatID, gameUUID, rewardType)
	r, ok := m.records[key]
	if !ok {
		r = models.RewardRecord{ChatID: chatID, GameUUID: gameUUID, RewardType: rewardType}
	}
	r.RewardCount += count
	r.LastUpdated = time.Now().UTC()
	m.records[key] = r
	return nil
}

func (m *memStore) AddToCache(gameUUID uuid.UUID, rewardType string, count int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	key := cacheKey(gameUUID, rewardType)
	c, ok := m.cached[key]
	if !ok {
		c = models.CachedReward{GameUUID: gameUUID, RewardType: rewardType}
	}
	c.RewardCount += count
	m.cached[key] = c
	return nil
}

func (m *memStore) ClaimCached(gameUUID uuid.UUID) ([]models.CachedReward, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	var out []models.CachedReward
	for key, c := range m.cached {
		if c.GameUUID == gameUUID {
			out = append(out, c)
			delete(m.cached, key)
		}
	}
	return out, nil
}

func (m *memStore) RecordsByChatID(chatID string) ([]models.RewardRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	var out []models.RewardRecord
	for _, r := range m.records {
		if r.ChatID == chatID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) AllRecords() ([]models.RewardRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	out := make([]models.RewardRecord, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r)
	}
	return out, nil
}

type nopLogger struct{}

func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Debug(string, ...interface{}) {}

// fakeGrades records grade assignments as "uuid/grade" strings.
type fakeGrades struct {
	mu       sync.Mutex
	assigned []string
	revoked  []string
	failWith error
}

func (g *fakeGrades) AssignGrade(gameUUID uuid.UUID, grade string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWith != nil {
		return g.failWith
	}
	g.assigned = append(g.assigned, gameUUID.String()+"/"+grade)
	return nil
}

func (g *fakeGrades) RevokeGrade(gameUUID uuid.UUID, grade string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWith != nil {
		return g.failWith
	}
	g.revoked = append(g.revoked, gameUUID.String()+"/"+grade)
	return nil
}

func (g *fakeGrades) has(list string, gameUUID uuid.UUID, grade string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	entries := g.assigned
	if list == "revoked" {
		entries = g.revoked
	}
	want := gameUUID.String() + "/" + grade
	for _, e := range entries {
		if e == want {
			return true
		}
	}
	return false
}

type fakePresence struct {
	mu     sync.Mutex
	online map[uuid.UUID]string
}

func newFakePresence() *fakePresence {
	return &fakePresence{online: make(map[uuid.UUID]string)}
}

func (p *fakePresence) setOnline(gameUUID uuid.UUID, username string) {
	p.mu.Lock()
	p.online[gameUUID] = username
	p.mu.Unlock()
}

func (p *fakePresence) setOffline(gameUUID uuid.UUID) {
	p.mu.Lock()
	delete(p.online, gameUUID)
	p.mu.Unlock()
}

func (p *fakePresence) IsOnline(gameUUID uuid.UUID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.online[gameUUID]
	return ok
}

func (p *fakePresence) ResolveUUID(username string) (uuid.UUID, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, name := range p.online {
		if strings.EqualFold(name, username) {
			return id, true
		}
	}
	return uuid.UUID{}, false
}

type appliedReward struct {
	gameUUID uuid.UUID
	username string
	spec     models.RewardSpec
}

type fakeRewardSink struct {
	mu       sync.Mutex
	applied  []appliedReward
	failWith error
}

func (s *fakeRewardSink) ApplyReward(gameUUID uuid.UUID, username string, spec models.RewardSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	s.applied = append(s.applied, appliedReward{gameUUID: gameUUID, username: username, spec: spec})
	return nil
}

func (s *fakeRewardSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.applied)
}

type fakeNotifier struct {
	mu    sync.Mutex
	notes []string
}

func (n *fakeNotifier) Notify(text string) {
	n.mu.Lock()
	n.notes = append(n.notes, text)
	n.mu.Unlock()
}

// newTestRules returns a gate policy with test-friendly values. Tests that
// exercise real timers shorten ProvisionalDuration themselves.
func newTestRules() *config.Rules {
	return &config.Rules{
		VerificationPhrase:  "weird",
		ProvisionalSeconds:  300,
		ProvisionalDuration: 5 * time.Minute,
		ProvisionalGrade:    "temp_access",
		PermanentGrade:      "certified",
		BedrockPrefix:       ".",
		CodeLength:          8,
		ActivityRewards:     map[int64][]models.RewardSpec{},
	}
}
