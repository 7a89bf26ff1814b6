package application

import (
	"errors"

	"gatewarden/internal/models"
	"gatewarden/internal/repository"
	"gatewarden/pkg/config"

	"github.com/google/uuid"
)

type RewardService interface {
	HandleChatActivity(chatID string) error
	ReconcileOnReconnect(gameUUID uuid.UUID) error
	ThresholdsFor(count int64) []models.RewardSpec
	RecordsFor(chatID string) ([]models.RewardRecord, error)
	SetAnnouncer(a RewardAnnouncer)
}

// RewardAnnouncer posts a public note when a threshold reward is issued.
// Optional; the discord delivery provides one when announcements are enabled.
type RewardAnnouncer interface {
	AnnounceReward(chatID string, spec models.RewardSpec, count int64)
}

type RewardServiceImpl struct {
	links     LinkService
	rewards   repository.Rewards
	rules     *config.Rules
	sink      RewardSink
	presence  Presence
	announcer RewardAnnouncer
	logger    Logger
}

func NewRewardServiceImpl(links LinkService, rewards repository.Rewards, rules *config.Rules,
	sink RewardSink, presence Presence, logger Logger) *RewardServiceImpl {

	return &RewardServiceImpl{
		links:    links,
		rewards:  rewards,
		rules:    rules,
		sink:     sink,
		presence: presence,
		logger:   logger,
	}
}

func (s *RewardServiceImpl) SetAnnouncer(a RewardAnnouncer) {
	s.announcer = a
}

// HandleChatActivity counts one qualifying chat message for a linked account
// and issues whatever rewards the new count unlocks. Messages from unlinked
// users are ignored.
func (s *RewardServiceImpl) HandleChatActivity(chatID string) error {
	account, ok := s.links.Lookup(chatID)
	if !ok {
		return nil
	}

	count, err := s.links.RecordActivity(chatID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		return err
	}

	for _, spec := range s.ThresholdsFor(count) {
		if err := s.issue(spec, account); err != nil {
			s.logger.Error("issue %s to %s: %v", spec.Type, account.GameUsername, err)
			continue
		}
		if s.announcer != nil && s.rules.AnnounceRewards {
			s.announcer.AnnounceReward(chatID, spec, count)
		}
	}
	return nil
}

// ThresholdsFor is an exact-count lookup: rewards fire at the configured
// message count, not at every count above it.
func (s *RewardServiceImpl) ThresholdsFor(count int64) []models.RewardSpec {
	return s.rules.ActivityRewards[count]
}

// issue applies the reward now when the recipient is online, otherwise parks
// it in the cache for the next reconnect.
func (s *RewardServiceImpl) issue(spec models.RewardSpec, account models.LinkedAccount) error {
	if !s.presence.IsOnline(account.GameUUID) {
		s.logger.Debug("%s offline, caching %s", account.GameUsername, spec.Type)
		return s.rewards.AddToCache(account.GameUUID, spec.Type, spec.Count)
	}

	if err := s.sink.ApplyReward(account.GameUUID, account.GameUsername, spec); err != nil {
		return err
	}
	return s.rewards.AddToRecord(account.ChatID, account.GameUUID, spec.Type, spec.Count)
}

// ReconcileOnReconnect delivers rewards that accrued while the player was
// offline. The repository claim is destructive, so a reward claimed here can
// never be claimed by a concurrent reconcile; anything we fail to apply is
// put back in the cache.
func (s *RewardServiceImpl) ReconcileOnReconnect(gameUUID uuid.UUID) error {
	cached, err := s.rewards.ClaimCached(gameUUID)
	if err != nil {
		return err
	}
	if len(cached) == 0 {
		return nil
	}

	account, linked := s.links.LookupByGame(gameUUID)

	for _, c := range cached {
		spec := models.RewardSpec{Type: c.RewardType, Count: c.RewardCount, Command: s.commandFor(c.RewardType)}
		if err := s.sink.ApplyReward(gameUUID, account.GameUsername, spec); err != nil {
			s.logger.Error("deliver cached %s to %s: %v", c.RewardType, gameUUID, err)
			if cacheErr := s.rewards.AddToCache(gameUUID, c.RewardType, c.RewardCount); cacheErr != nil {
				s.logger.Error("re-cache %s for %s: %v", c.RewardType, gameUUID, cacheErr)
			}
			continue
		}
		if linked {
			if err := s.rewards.AddToRecord(account.ChatID, gameUUID, c.RewardType, c.RewardCount); err != nil {
				s.logger.Error("record cached %s for %s: %v", c.RewardType, account.ChatID, err)
			}
		}
	}

	s.logger.Info("delivered %d cached reward types to %s", len(cached), gameUUID)
	return nil
}

// commandFor finds the configured command template for a reward type so a
// cached reward can still execute its effect.
func (s *RewardServiceImpl) commandFor(rewardType string) string {
	for _, specs := range s.rules.ActivityRewards {
		for _, spec := range specs {
			if spec.Type == rewardType {
				return spec.Command
			}
		}
	}
	return ""
}

func (s *RewardServiceImpl) RecordsFor(chatID string) ([]models.RewardRecord, error) {
	return s.rewards.RecordsByChatID(chatID)
}
