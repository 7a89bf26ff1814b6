package application

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"gatewarden/internal/models"
	"gatewarden/internal/repository"
	"gatewarden/pkg/config"

	"github.com/google/uuid"
)

type LinkService interface {
	RequestLink(gameUUID uuid.UUID, displayName string) (string, error)
	Redeem(chatID, code string) (models.LinkedAccount, error)
	IsLinked(chatID string) bool
	IsLinkedGame(gameUUID uuid.UUID) bool
	Lookup(chatID string) (models.LinkedAccount, bool)
	LookupByGame(gameUUID uuid.UUID) (models.LinkedAccount, bool)
	LookupByUsername(username string) (models.LinkedAccount, bool)
	Unlink(chatID string) error
	Promote(chatID string) error
	IsWhitelisted(username string) (bool, error)
	UpdateGameUsername(chatID, username string) error
	RecordActivity(chatID string) (int64, error)
	FailedAttempts(chatID string) (int64, error)
	IncrementFailedAttempts(chatID string) error
	ResetFailedAttempts(chatID string) error
	Accounts() []models.LinkedAccount
	SetUnlinkHook(hook func(gameUUID uuid.UUID))
}

// maxCodeAttempts bounds regeneration when a fresh code collides with one
// already pending.
const maxCodeAttempts = 5

// LinkServiceImpl is the single authority over linked accounts and pending
// codes. The maps are a cache of the durable store: every mutation is written
// through before the cache changes, and a failed write leaves the cache as it
// was. Per-identity keyed locks serialize mutations without stalling
// unrelated players behind blocking I/O.
type LinkServiceImpl struct {
	accounts  repository.Accounts
	whitelist repository.Whitelist
	rules     *config.Rules
	logger    Logger

	keys *keyedMutex

	mu      sync.RWMutex
	byChat  map[string]models.LinkedAccount
	byGame  map[uuid.UUID]string
	pending map[uuid.UUID]models.PendingLink
	codes   map[string]uuid.UUID

	unlinkHook func(gameUUID uuid.UUID)
}

func NewLinkServiceImpl(accounts repository.Accounts, whitelist repository.Whitelist,
	rules *config.Rules, logger Logger) (*LinkServiceImpl, error) {

	s := &LinkServiceImpl{
		accounts:  accounts,
		whitelist: whitelist,
		rules:     rules,
		logger:    logger,
		keys:      newKeyedMutex(),
		byChat:    make(map[string]models.LinkedAccount),
		byGame:    make(map[uuid.UUID]string),
		pending:   make(map[uuid.UUID]models.PendingLink),
		codes:     make(map[string]uuid.UUID),
	}

	if err := s.rehydrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// rehydrate loads the durable state into the cache so pending links survive a
// process restart.
func (s *LinkServiceImpl) rehydrate() error {
	accounts, err := s.accounts.AllAccounts()
	if err != nil {
		return fmt.Errorf("rehydrate accounts: %w", err)
	}
	links, err := s.accounts.AllPending()
	if err != nil {
		return fmt.Errorf("rehydrate pending links: %w", err)
	}

	for _, a := range accounts {
		s.byChat[a.ChatID] = a
		s.byGame[a.GameUUID] = a.ChatID
	}
	for _, l := range links {
		s.pending[l.GameUUID] = l
		s.codes[l.Code] = l.GameUUID
	}

	s.logger.Info("link registry loaded: %d accounts, %d pending codes", len(accounts), len(links))
	return nil
}

func gameKey(id uuid.UUID) string { return "game:" + id.String() }
func chatKey(id string) string    { return "chat:" + id }

func (s *LinkServiceImpl) SetUnlinkHook(hook func(gameUUID uuid.UUID)) {
	s.unlinkHook = hook
}

// RequestLink issues a fresh code for the game identity, invalidating any
// code issued earlier for it. Collisions with other pending codes are retried
// transparently.
func (s *LinkServiceImpl) RequestLink(gameUUID uuid.UUID, displayName string) (string, error) {
	s.keys.Lock(gameKey(gameUUID))
	defer s.keys.Unlock(gameKey(gameUUID))

	var lastErr error
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := GenerateCode(s.rules.CodeLength)
		if err != nil {
			return "", err
		}

		s.mu.RLock()
		_, taken := s.codes[code]
		s.mu.RUnlock()
		if taken {
			lastErr = models.ErrConflict
			continue
		}

		link := models.PendingLink{
			GameUUID:    gameUUID,
			DisplayName: displayName,
			Code:        code,
			CreatedAt:   time.Now().UTC(),
		}
		if err := s.accounts.CreatePending(link); err != nil {
			if errors.Is(err, models.ErrConflict) {
				lastErr = err
				continue
			}
			return "", err
		}

		s.mu.Lock()
		if old, ok := s.pending[gameUUID]; ok {
			delete(s.codes, old.Code)
		}
		s.pending[gameUUID] = link
		s.codes[code] = gameUUID
		s.mu.Unlock()

		s.logger.Info("issued link code for %s", gameUUID)
		return code, nil
	}

	return "", fmt.Errorf("could not issue a unique code: %w", lastErr)
}

// Redeem exchanges a pending code for a linked account. Misses of every kind
// come back as ErrNotFound so replies cannot distinguish wrong, expired and
// foreign codes.
func (s *LinkServiceImpl) Redeem(chatID, code string) (models.LinkedAccount, error) {
	var account models.LinkedAccount

	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || isBlockedCode(code) {
		return account, models.ErrNotFound
	}

	s.mu.RLock()
	gameUUID, ok := s.codes[code]
	s.mu.RUnlock()
	if !ok {
		return account, models.ErrNotFound
	}

	s.keys.Lock(gameKey(gameUUID))
	defer s.keys.Unlock(gameKey(gameUUID))
	s.keys.Lock(chatKey(chatID))
	defer s.keys.Unlock(chatKey(chatID))

	// Re-check under the key lock: the code may have been replaced or
	// consumed while we waited.
	s.mu.RLock()
	link, ok := s.pending[gameUUID]
	s.mu.RUnlock()
	if !ok || link.Code != code {
		return account, models.ErrNotFound
	}

	account, err := s.accounts.Redeem(chatID, link)
	if err != nil {
		return models.LinkedAccount{}, err
	}

	s.mu.Lock()
	delete(s.pending, gameUUID)
	delete(s.codes, code)
	if old, ok := s.byChat[chatID]; ok && old.GameUUID != account.GameUUID {
		delete(s.byGame, old.GameUUID)
	}
	s.byChat[chatID] = account
	s.byGame[account.GameUUID] = chatID
	s.mu.Unlock()

	s.logger.Info("linked chat %s to game identity %s (%s)", chatID, account.GameUUID, account.GameUsername)
	return account, nil
}

func (s *LinkServiceImpl) IsLinked(chatID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byChat[chatID]
	return ok
}

func (s *LinkServiceImpl) IsLinkedGame(gameUUID uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byGame[gameUUID]
	return ok
}

func (s *LinkServiceImpl) Lookup(chatID string) (models.LinkedAccount, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byChat[chatID]
	return a, ok
}

func (s *LinkServiceImpl) LookupByGame(gameUUID uuid.UUID) (models.LinkedAccount, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chatID, ok := s.byGame[gameUUID]
	if !ok {
		return models.LinkedAccount{}, false
	}
	a, ok := s.byChat[chatID]
	return a, ok
}

// LookupByUsername is the fallback for servers whose join UUIDs do not match
// the UUID the link was requested under.
func (s *LinkServiceImpl) LookupByUsername(username string) (models.LinkedAccount, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.byChat {
		if strings.EqualFold(a.GameUsername, username) {
			return a, true
		}
	}
	return models.LinkedAccount{}, false
}

func (s *LinkServiceImpl) Accounts() []models.LinkedAccount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	accounts := make([]models.LinkedAccount, 0, len(s.byChat))
	for _, a := range s.byChat {
		accounts = append(accounts, a)
	}
	return accounts
}

// Unlink removes the account and all derived state, then cancels any
// in-flight access timer for the identity.
func (s *LinkServiceImpl) Unlink(chatID string) error {
	s.mu.RLock()
	account, ok := s.byChat[chatID]
	s.mu.RUnlock()
	if !ok {
		return models.ErrNotFound
	}

	s.keys.Lock(gameKey(account.GameUUID))
	defer s.keys.Unlock(gameKey(account.GameUUID))
	s.keys.Lock(chatKey(chatID))
	defer s.keys.Unlock(chatKey(chatID))

	s.mu.RLock()
	account, ok = s.byChat[chatID]
	s.mu.RUnlock()
	if !ok {
		return models.ErrNotFound
	}

	if err := s.accounts.Delete(chatID, account.GameUUID); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.byChat, chatID)
	delete(s.byGame, account.GameUUID)
	if link, ok := s.pending[account.GameUUID]; ok {
		delete(s.codes, link.Code)
		delete(s.pending, account.GameUUID)
	}
	s.mu.Unlock()

	if s.unlinkHook != nil {
		s.unlinkHook(account.GameUUID)
	}

	s.logger.Info("unlinked chat %s from game identity %s", chatID, account.GameUUID)
	return nil
}

// Promote is the only path that creates whitelist entries. Both the java
// username and its bedrock-prefixed alias are written so either form passes
// the join gate.
func (s *LinkServiceImpl) Promote(chatID string) error {
	s.keys.Lock(chatKey(chatID))
	defer s.keys.Unlock(chatKey(chatID))

	s.mu.RLock()
	account, ok := s.byChat[chatID]
	s.mu.RUnlock()
	if !ok {
		return models.ErrNotFound
	}

	entry := models.WhitelistEntry{
		ChatID:          chatID,
		GameUsername:    account.GameUsername,
		BedrockUsername: s.rules.BedrockPrefix + account.GameUsername,
	}
	if err := s.whitelist.Upsert(entry); err != nil {
		return err
	}

	s.logger.Info("whitelisted %s (and %s) for chat %s", entry.GameUsername, entry.BedrockUsername, chatID)
	return nil
}

// IsWhitelisted checks both username forms against the durable whitelist.
func (s *LinkServiceImpl) IsWhitelisted(username string) (bool, error) {
	ok, err := s.whitelist.ContainsUsername(username)
	if err != nil || ok {
		return ok, err
	}
	return s.whitelist.ContainsUsername(s.rules.BedrockPrefix + username)
}

func (s *LinkServiceImpl) UpdateGameUsername(chatID, username string) error {
	s.keys.Lock(chatKey(chatID))
	defer s.keys.Unlock(chatKey(chatID))

	s.mu.RLock()
	account, ok := s.byChat[chatID]
	s.mu.RUnlock()
	if !ok {
		return models.ErrNotFound
	}
	if account.GameUsername == username {
		return nil
	}

	if err := s.accounts.UpdateUsername(chatID, username); err != nil {
		return err
	}

	s.mu.Lock()
	account.GameUsername = username
	s.byChat[chatID] = account
	s.mu.Unlock()
	return nil
}

// RecordActivity bumps the activity counter, durably first. The returned
// count is the value the write produced, not a cache read, so concurrent
// increments never observe the same result.
func (s *LinkServiceImpl) RecordActivity(chatID string) (int64, error) {
	s.keys.Lock(chatKey(chatID))
	defer s.keys.Unlock(chatKey(chatID))

	count, updated, err := s.accounts.IncrementActivity(chatID)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	if account, ok := s.byChat[chatID]; ok {
		account.ActivityCount = count
		account.LastUpdated = updated
		s.byChat[chatID] = account
	}
	s.mu.Unlock()
	return count, nil
}

func (s *LinkServiceImpl) FailedAttempts(chatID string) (int64, error) {
	return s.accounts.GetFailedAttempts(chatID)
}

func (s *LinkServiceImpl) IncrementFailedAttempts(chatID string) error {
	s.keys.Lock(chatKey(chatID))
	defer s.keys.Unlock(chatKey(chatID))
	return s.accounts.IncrementFailedAttempts(chatID)
}

func (s *LinkServiceImpl) ResetFailedAttempts(chatID string) error {
	s.keys.Lock(chatKey(chatID))
	defer s.keys.Unlock(chatKey(chatID))
	return s.accounts.ResetFailedAttempts(chatID)
}
