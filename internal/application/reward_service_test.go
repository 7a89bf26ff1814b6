package application

import (
	"testing"
	"time"

	"gatewarden/internal/models"
	"gatewarden/pkg/config"

	"github.com/google/uuid"
)

type rewardFixture struct {
	links    *LinkServiceImpl
	rewards  *RewardServiceImpl
	store    *memStore
	sink     *fakeRewardSink
	presence *fakePresence
}

func newRewardFixture(t *testing.T, rules *config.Rules) *rewardFixture {
	t.Helper()
	f := &rewardFixture{
		store:    newMemStore(),
		sink:     &fakeRewardSink{},
		presence: newFakePresence(),
	}

	var err error
	f.links, err = NewLinkServiceImpl(f.store, f.store, rules, nopLogger{})
	if err != nil {
		t.Fatalf("NewLinkServiceImpl: %v", err)
	}
	f.rewards = NewRewardServiceImpl(f.links, f.store, rules, f.sink, f.presence, nopLogger{})
	return f
}

func (f *rewardFixture) linkAccount(t *testing.T, chatID string, gameUUID uuid.UUID, username string) {
	t.Helper()
	err := f.store.CreatePending(models.PendingLink{
		GameUUID:    gameUUID,
		DisplayName: username,
		Code:        "LINKCODE",
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreatePending: %v", err)
	}
	f.links.pending[gameUUID] = models.PendingLink{GameUUID: gameUUID, DisplayName: username, Code: "LINKCODE"}
	f.links.codes["LINKCODE"] = gameUUID
	if _, err := f.links.Redeem(chatID, "LINKCODE"); err != nil {
		t.Fatalf("Redeem: %v", err)
	}
}

func rewardRules(thresholds map[int64][]models.RewardSpec) *config.Rules {
	rules := newTestRules()
	rules.ActivityRewards = thresholds
	return rules
}

func TestHandleChatActivityIgnoresUnlinked(t *testing.T) {
	f := newRewardFixture(t, rewardRules(nil))
	if err := f.rewards.HandleChatActivity("stranger"); err != nil {
		t.Fatalf("HandleChatActivity: %v", err)
	}
	if f.sink.count() != 0 {
		t.Error("reward applied for an unlinked user")
	}
}

func TestThresholdFiresExactlyAtCount(t *testing.T) {
	badge := models.RewardSpec{Type: "badge", Count: 1, Command: "give {player_name} badge 1"}
	f := newRewardFixture(t, rewardRules(map[int64][]models.RewardSpec{3: {badge}}))

	gameUUID := uuid.New()
	f.linkAccount(t, "chat-1", gameUUID, "steve")
	f.presence.setOnline(gameUUID, "steve")

	for i := 0; i < 5; i++ {
		if err := f.rewards.HandleChatActivity("chat-1"); err != nil {
			t.Fatalf("HandleChatActivity: %v", err)
		}
	}

	if f.sink.count() != 1 {
		t.Fatalf("sink applications = %d, want 1", f.sink.count())
	}
	records, err := f.rewards.RecordsFor("chat-1")
	if err != nil {
		t.Fatalf("RecordsFor: %v", err)
	}
	if len(records) != 1 || records[0].RewardType != "badge" || records[0].RewardCount != 1 {
		t.Errorf("records = %+v, want one badge", records)
	}
}

func TestOfflineRewardIsCachedThenReconciled(t *testing.T) {
	badge := models.RewardSpec{Type: "badge", Count: 1, Command: "give {player_name} badge 1"}
	f := newRewardFixture(t, rewardRules(map[int64][]models.RewardSpec{2: {badge}}))

	gameUUID := uuid.New()
	f.linkAccount(t, "chat-1", gameUUID, "steve")

	for i := 0; i < 2; i++ {
		if err := f.rewards.HandleChatActivity("chat-1"); err != nil {
			t.Fatalf("HandleChatActivity: %v", err)
		}
	}

	if f.sink.count() != 0 {
		t.Fatal("reward applied while the player was offline")
	}
	cached, err := f.store.ClaimCached(gameUUID)
	if err != nil {
		t.Fatalf("ClaimCached: %v", err)
	}
	if len(cached) != 1 || cached[0].RewardType != "badge" {
		t.Fatalf("cached = %+v, want one badge", cached)
	}
	// Put the claim back so reconcile has something to deliver.
	if err := f.store.AddToCache(gameUUID, "badge", 1); err != nil {
		t.Fatalf("AddToCache: %v", err)
	}

	f.presence.setOnline(gameUUID, "steve")
	if err := f.rewards.ReconcileOnReconnect(gameUUID); err != nil {
		t.Fatalf("ReconcileOnReconnect: %v", err)
	}

	if f.sink.count() != 1 {
		t.Fatalf("sink applications = %d, want 1", f.sink.count())
	}
	if got := f.sink.applied[0].spec.Command; got != badge.Command {
		t.Errorf("cached reward command = %q, want %q", got, badge.Command)
	}
	records, err := f.rewards.RecordsFor("chat-1")
	if err != nil {
		t.Fatalf("RecordsFor: %v", err)
	}
	if len(records) != 1 || records[0].RewardCount != 1 {
		t.Errorf("records = %+v, want one badge", records)
	}

	// A second reconcile finds nothing: the first claim was destructive.
	if err := f.rewards.ReconcileOnReconnect(gameUUID); err != nil {
		t.Fatalf("second ReconcileOnReconnect: %v", err)
	}
	if f.sink.count() != 1 {
		t.Errorf("sink applications after second reconcile = %d, want 1", f.sink.count())
	}
}

func TestReconcileReCachesOnSinkFailure(t *testing.T) {
	f := newRewardFixture(t, rewardRules(nil))
	gameUUID := uuid.New()
	f.linkAccount(t, "chat-1", gameUUID, "steve")
	if err := f.store.AddToCache(gameUUID, "coins", 100); err != nil {
		t.Fatalf("AddToCache: %v", err)
	}

	f.sink.failWith = models.ErrUnavailable
	if err := f.rewards.ReconcileOnReconnect(gameUUID); err != nil {
		t.Fatalf("ReconcileOnReconnect: %v", err)
	}

	cached, err := f.store.ClaimCached(gameUUID)
	if err != nil {
		t.Fatalf("ClaimCached: %v", err)
	}
	if len(cached) != 1 || cached[0].RewardCount != 100 {
		t.Errorf("cached after failed delivery = %+v, want 100 coins back", cached)
	}
	records, err := f.rewards.RecordsFor("chat-1")
	if err != nil {
		t.Fatalf("RecordsFor: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("records = %+v, want none after failed delivery", records)
	}
}

type recordingAnnouncer struct {
	calls []string
}

func (r *recordingAnnouncer) AnnounceReward(chatID string, spec models.RewardSpec, count int64) {
	r.calls = append(r.calls, chatID+"/"+spec.Type)
}

func TestAnnouncerInvokedWhenEnabled(t *testing.T) {
	badge := models.RewardSpec{Type: "badge", Count: 1, Command: "give {player_name} badge 1"}
	rules := rewardRules(map[int64][]models.RewardSpec{1: {badge}})
	rules.AnnounceRewards = true

	f := newRewardFixture(t, rules)
	gameUUID := uuid.New()
	f.linkAccount(t, "chat-1", gameUUID, "steve")
	f.presence.setOnline(gameUUID, "steve")

	ann := &recordingAnnouncer{}
	f.rewards.SetAnnouncer(ann)

	if err := f.rewards.HandleChatActivity("chat-1"); err != nil {
		t.Fatalf("HandleChatActivity: %v", err)
	}
	if len(ann.calls) != 1 || ann.calls[0] != "chat-1/badge" {
		t.Errorf("announcer calls = %v, want one for chat-1/badge", ann.calls)
	}
}
