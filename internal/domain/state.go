package domain

// Stats holds the monotonically increasing aggregate counters.
type Stats struct {
	TotalSessions int64
	TotalPlayers  int64
}

// State is the full durable mirror written by a StateRepository.
type State struct {
	Sessions []Session
	Rosters  map[SessionID]Roster
	Stats    Stats
	Targets  map[CommunityID]string
	Filters  map[CommunityID]GameFilter
}

func NewState() State {
	return State{
		Rosters: map[SessionID]Roster{},
		Targets: map[CommunityID]string{},
		Filters: map[CommunityID]GameFilter{},
	}
}

// Normalize fills nil maps so loaded state is always safe to range over.
func (s *State) Normalize() {
	if s.Rosters == nil {
		s.Rosters = map[SessionID]Roster{}
	}
	if s.Targets == nil {
		s.Targets = map[CommunityID]string{}
	}
	if s.Filters == nil {
		s.Filters = map[CommunityID]GameFilter{}
	}
}

type RemovalMode string

const (
	RemovalKick RemovalMode = "kick"
	RemovalBan  RemovalMode = "ban"
)

func (m RemovalMode) Valid() bool {
	switch m {
	case RemovalKick, RemovalBan:
		return true
	default:
		return false
	}
}

// SessionSnapshot is the display-relevant view of a session emitted after
// every mutation.
type SessionSnapshot struct {
	Session Session
	Members []MemberID
}

func (s SessionSnapshot) OpenSlots() int {
	open := s.Session.Capacity - len(s.Members)
	if open < 0 {
		return 0
	}
	return open
}

type StatsSnapshot struct {
	TotalSessions  int64
	TotalPlayers   int64
	ActiveSessions int
	JoinedPlayers  int
}
