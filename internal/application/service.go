package application

import (
	"gatewarden/internal/models"
	"gatewarden/internal/repository"
	"gatewarden/pkg/config"

	"github.com/google/uuid"
)

type Logger interface {
	Error(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Info(format string, v ...interface{})
	Debug(format string, v ...interface{})
}

// GradeSink applies permission grades on the game side. The core never talks
// to the permission backend directly.
type GradeSink interface {
	AssignGrade(gameUUID uuid.UUID, grade string) error
	RevokeGrade(gameUUID uuid.UUID, grade string) error
}

// RewardSink executes a reward's in-game effect for an online player.
type RewardSink interface {
	ApplyReward(gameUUID uuid.UUID, username string, spec models.RewardSpec) error
}

// Presence answers who is currently connected to the game network.
type Presence interface {
	IsOnline(gameUUID uuid.UUID) bool
	ResolveUUID(username string) (uuid.UUID, bool)
}

// Notifier pushes moderation alerts to an admin channel. Implementations must
// tolerate being called from any goroutine.
type Notifier interface {
	Notify(text string)
}

type NopNotifier struct{}

func (NopNotifier) Notify(string) {}

type Service struct {
	Links   LinkService
	Access  AccessService
	Rewards RewardService
	Reports ReportService
}

func NewService(repos *repository.Repository, rules *config.Rules, grades GradeSink,
	rewardSink RewardSink, presence Presence, notifier Notifier, logger Logger) (*Service, error) {

	if notifier == nil {
		notifier = NopNotifier{}
	}

	links, err := NewLinkServiceImpl(repos.Accounts, repos.Whitelist, rules, logger)
	if err != nil {
		return nil, err
	}

	access, err := NewAccessServiceImpl(links, rules, grades, presence, notifier, logger)
	if err != nil {
		return nil, err
	}
	links.SetUnlinkHook(access.CancelSession)

	rewards := NewRewardServiceImpl(links, repos.Rewards, rules, rewardSink, presence, logger)

	return &Service{
		Links:   links,
		Access:  access,
		Rewards: rewards,
		Reports: NewReportServiceImpl(links, repos.Whitelist, repos.Rewards, logger),
	}, nil
}
