package application

import "github.com/bnema/lfg-coordinator/internal/domain"

// Actor identifies who issued a command and in which community.
type Actor struct {
	ID          domain.MemberID    `validate:"required"`
	Name        string
	CommunityID domain.CommunityID `validate:"required"`
	CanManage   bool
}

func (a Actor) rateKey() string {
	return string(a.ID)
}

type CreateSessionCommand struct {
	Actor        Actor
	Game         string `validate:"required,max=100"`
	Platform     string `validate:"max=50"`
	Activity     string `validate:"max=50"`
	Gametag      string `validate:"max=100"`
	Description  string `validate:"max=1000"`
	StreamURL    string `validate:"omitempty,streamurl"`
	Capacity     int    `validate:"min=1,max=10"`
	InvokeRoomID string
}

// ModifySessionCommand leaves a field unchanged when it is nil.
type ModifySessionCommand struct {
	Actor       Actor
	SessionID   domain.SessionID `validate:"required"`
	Capacity    *int             `validate:"omitempty,min=1,max=10"`
	Description *string          `validate:"omitempty,max=1000"`
}

type JoinSessionCommand struct {
	Actor     Actor
	SessionID domain.SessionID `validate:"required"`
}

type LeaveSessionCommand struct {
	Actor     Actor
	SessionID domain.SessionID `validate:"required"`
}

type RemoveMemberCommand struct {
	Actor     Actor
	SessionID domain.SessionID   `validate:"required"`
	Target    domain.MemberID    `validate:"required"`
	Mode      domain.RemovalMode `validate:"required,oneof=kick ban"`
}

type DeleteSessionCommand struct {
	Actor     Actor
	SessionID domain.SessionID `validate:"required"`
}

type SetAnnouncementTargetCommand struct {
	Actor  Actor
	RoomID string `validate:"required"`
}

type SetGameFilterCommand struct {
	Actor Actor
	Games []string `validate:"dive,max=100"`
}

type OccupancyEvent struct {
	SessionID domain.SessionID
	Empty     bool
}
