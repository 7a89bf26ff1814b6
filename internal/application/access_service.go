package application

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"gatewarden/internal/models"
	"gatewarden/pkg/config"

	"github.com/google/uuid"
)

type AccessState int

const (
	StateUnverified AccessState = iota
	StateProvisional
	StateVerified
	StateExpired
)

func (s AccessState) String() string {
	switch s {
	case StateProvisional:
		return "provisional"
	case StateVerified:
		return "verified"
	case StateExpired:
		return "expired"
	default:
		return "unverified"
	}
}

type AccessService interface {
	HandleJoin(gameUUID uuid.UUID, username string)
	HandleGameChat(gameUUID uuid.UUID, message string)
	HandleQuit(gameUUID uuid.UUID)
	CancelSession(gameUUID uuid.UUID)
	State(gameUUID uuid.UUID) AccessState
}

type session struct {
	state    AccessState
	username string
	gen      uint64
	timer    *time.Timer
}

// AccessServiceImpl runs the per-player verification state machine. Timers
// never trust the state they were armed under: they re-check the session (and
// its generation, which changes on every rejoin) at fire time, so a stale
// timer from a previous session is a no-op.
type AccessServiceImpl struct {
	links    LinkService
	rules    *config.Rules
	grades   GradeSink
	presence Presence
	notifier Notifier
	logger   Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*session
}

func NewAccessServiceImpl(links LinkService, rules *config.Rules, grades GradeSink,
	presence Presence, notifier Notifier, logger Logger) (*AccessServiceImpl, error) {

	if strings.TrimSpace(rules.VerificationPhrase) == "" {
		return nil, fmt.Errorf("verification phrase is empty: %w", models.ErrInvalidArgument)
	}

	return &AccessServiceImpl{
		links:    links,
		rules:    rules,
		grades:   grades,
		presence: presence,
		notifier: notifier,
		logger:   logger,
		sessions: make(map[uuid.UUID]*session),
	}, nil
}

// HandleJoin gates a connecting player: whitelisted players get the permanent
// grade immediately, everyone else gets the provisional grade and a running
// expiry clock.
func (a *AccessServiceImpl) HandleJoin(gameUUID uuid.UUID, username string) {
	if account, ok := a.links.LookupByGame(gameUUID); ok && account.GameUsername != username {
		if err := a.links.UpdateGameUsername(account.ChatID, username); err != nil {
			a.logger.Warn("could not record username change for %s: %v", gameUUID, err)
		}
	}

	whitelisted, err := a.links.IsWhitelisted(username)
	if err != nil {
		// Treat the player as unverified rather than locking them out while
		// the store is down; promotion would fail right now anyway.
		a.logger.Error("whitelist check failed for %s: %v", username, err)
		whitelisted = false
	}

	a.mu.Lock()
	if old, ok := a.sessions[gameUUID]; ok && old.timer != nil {
		old.timer.Stop()
	}
	sess := &session{username: username}
	if prev := a.sessions[gameUUID]; prev != nil {
		sess.gen = prev.gen
	}
	sess.gen++
	a.sessions[gameUUID] = sess

	if whitelisted {
		sess.state = StateVerified
		a.mu.Unlock()

		if err := a.grades.AssignGrade(gameUUID, a.rules.PermanentGrade); err != nil {
			a.logger.Error("assign %s to %s: %v", a.rules.PermanentGrade, username, err)
		}
		a.logger.Debug("%s joined verified", username)
		return
	}

	sess.state = StateProvisional
	gen := sess.gen
	sess.timer = time.AfterFunc(a.rules.ProvisionalDuration, func() {
		a.expire(gameUUID, gen)
	})
	a.mu.Unlock()

	if err := a.grades.AssignGrade(gameUUID, a.rules.ProvisionalGrade); err != nil {
		a.logger.Error("assign %s to %s: %v", a.rules.ProvisionalGrade, username, err)
	}
	a.logger.Info("%s joined unverified, provisional window of %s started", username, a.rules.ProvisionalDuration)
}

// HandleGameChat promotes a provisional player who sends the verification
// phrase. A failed durable write leaves the session provisional with the
// clock still running.
func (a *AccessServiceImpl) HandleGameChat(gameUUID uuid.UUID, message string) {
	if !strings.EqualFold(strings.TrimSpace(message), a.rules.VerificationPhrase) {
		return
	}

	a.mu.Lock()
	sess, ok := a.sessions[gameUUID]
	if !ok || sess.state != StateProvisional {
		a.mu.Unlock()
		return
	}
	gen := sess.gen
	username := sess.username
	a.mu.Unlock()

	account, ok := a.links.LookupByGame(gameUUID)
	if !ok {
		account, ok = a.links.LookupByUsername(username)
	}
	if !ok {
		a.logger.Debug("verification phrase from unlinked player %s", username)
		return
	}

	if err := a.links.Promote(account.ChatID); err != nil {
		a.logger.Error("promote %s: %v", account.ChatID, err)
		return
	}

	a.mu.Lock()
	sess, ok = a.sessions[gameUUID]
	if ok && sess.gen == gen && sess.state == StateProvisional {
		sess.state = StateVerified
		if sess.timer != nil {
			sess.timer.Stop()
		}
	}
	a.mu.Unlock()

	if err := a.grades.AssignGrade(gameUUID, a.rules.PermanentGrade); err != nil {
		a.logger.Error("assign %s to %s: %v", a.rules.PermanentGrade, username, err)
	}
	if err := a.grades.RevokeGrade(gameUUID, a.rules.ProvisionalGrade); err != nil {
		a.logger.Error("revoke %s from %s: %v", a.rules.ProvisionalGrade, username, err)
	}

	a.notifier.Notify(fmt.Sprintf("%s verified and whitelisted (chat %s)", username, account.ChatID))
	a.logger.Info("%s verified, permanent access granted", username)
}

// HandleQuit drops finished sessions. A provisional session stays so its
// timer can still expire and count the failed attempt.
func (a *AccessServiceImpl) HandleQuit(gameUUID uuid.UUID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	sess, ok := a.sessions[gameUUID]
	if !ok || sess.state == StateProvisional {
		return
	}
	if sess.timer != nil {
		sess.timer.Stop()
	}
	delete(a.sessions, gameUUID)
}

// CancelSession tears down any session and timer for the identity. Used when
// the account behind it is unlinked or reset.
func (a *AccessServiceImpl) CancelSession(gameUUID uuid.UUID) {
	a.mu.Lock()
	sess, ok := a.sessions[gameUUID]
	if ok {
		if sess.timer != nil {
			sess.timer.Stop()
		}
		delete(a.sessions, gameUUID)
	}
	wasProvisional := ok && sess.state == StateProvisional
	a.mu.Unlock()

	if wasProvisional && a.presence.IsOnline(gameUUID) {
		if err := a.grades.RevokeGrade(gameUUID, a.rules.ProvisionalGrade); err != nil {
			a.logger.Error("revoke %s from %s: %v", a.rules.ProvisionalGrade, gameUUID, err)
		}
	}
}

func (a *AccessServiceImpl) State(gameUUID uuid.UUID) AccessState {
	a.mu.Lock()
	defer a.mu.Unlock()
	if sess, ok := a.sessions[gameUUID]; ok {
		return sess.state
	}
	return StateUnverified
}

// expire fires when the provisional window closes. The generation check makes
// a timer armed for an earlier join harmless, and a session already verified
// through a race is left alone.
func (a *AccessServiceImpl) expire(gameUUID uuid.UUID, gen uint64) {
	a.mu.Lock()
	sess, ok := a.sessions[gameUUID]
	if !ok || sess.gen != gen || sess.state != StateProvisional {
		a.mu.Unlock()
		return
	}
	sess.state = StateExpired
	sess.timer = nil
	username := sess.username
	a.mu.Unlock()

	// The player may be long gone; only revoke a grade that still applies.
	if a.presence.IsOnline(gameUUID) {
		if err := a.grades.RevokeGrade(gameUUID, a.rules.ProvisionalGrade); err != nil {
			a.logger.Error("revoke %s from %s: %v", a.rules.ProvisionalGrade, username, err)
		}
	}

	account, ok := a.links.LookupByGame(gameUUID)
	if !ok {
		account, ok = a.links.LookupByUsername(username)
	}
	if ok {
		if err := a.links.IncrementFailedAttempts(account.ChatID); err != nil {
			a.logger.Error("count failed attempt for %s: %v", account.ChatID, err)
		}
	}

	a.notifier.Notify(fmt.Sprintf("provisional access for %s expired without verification", username))
	a.logger.Info("provisional access for %s expired", username)
}
