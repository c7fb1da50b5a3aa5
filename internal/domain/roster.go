package domain

import "github.com/samber/lo"

// Roster is the ordered set of members enrolled in a session. Order is join
// order.
type Roster struct {
	Members []MemberID
}

func NewRoster(organizer MemberID) Roster {
	return Roster{Members: []MemberID{organizer}}
}

func (r Roster) Size() int {
	return len(r.Members)
}

func (r Roster) Contains(member MemberID) bool {
	return lo.Contains(r.Members, member)
}

// With returns a copy of r with member appended. Appending an existing
// member returns an unchanged copy.
func (r Roster) With(member MemberID) Roster {
	if r.Contains(member) {
		return r.Clone()
	}

	members := make([]MemberID, 0, len(r.Members)+1)
	members = append(members, r.Members...)
	members = append(members, member)
	return Roster{Members: members}
}

func (r Roster) Without(member MemberID) Roster {
	return Roster{Members: lo.Without(r.Members, member)}
}

// First returns at most n members in join order.
func (r Roster) First(n int) []MemberID {
	if n <= 0 {
		return []MemberID{}
	}
	if n > len(r.Members) {
		n = len(r.Members)
	}

	return append([]MemberID(nil), r.Members[:n]...)
}

func (r Roster) Clone() Roster {
	return Roster{Members: append([]MemberID{}, r.Members...)}
}

// Normalize drops empty and duplicate entries while keeping first-seen order.
func (r *Roster) Normalize() {
	if r == nil {
		return
	}

	r.Members = lo.Uniq(lo.Filter(r.Members, func(member MemberID, _ int) bool {
		return member != ""
	}))
}
