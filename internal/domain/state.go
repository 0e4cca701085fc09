package domain

// State is the in-memory view of one bid year that apply() reads and
// refreshes. The persistence layer is responsible for loading it before a
// command and for diffing/writing the pieces that changed after.
type State struct {
	BidYear     *BidYear
	Areas       map[string]*Area       // by AreaID
	Users       map[string]*User       // by UserID
	RoundGroups map[string]*RoundGroup // by RoundGroupID
	Rounds      map[string]*Round      // by RoundID

	// Canonical* are populated once by CanonicalizeBidYear and thereafter
	// mutated only by the override commands (spec.md §4.3/§4.6). Nil before
	// canonicalization.
	CanonicalMembership map[string]*CanonicalAreaMembership // by UserID
	CanonicalEligibility map[string]*CanonicalEligibility    // by UserID
	CanonicalBidOrder    map[string]*CanonicalBidOrder       // by UserID
	CanonicalBidWindow   map[string]*CanonicalBidWindow      // by UserID

	// CanonicalizationEventID is the event id of the CanonicalizeBidYear
	// event, used for apply()'s idempotency check (spec.md §4.1).
	CanonicalizationEventID int64
}

// CanonicalPopulated reports whether CanonicalizeBidYear has already run
// for this bid year.
func (s *State) CanonicalPopulated() bool {
	return s.CanonicalMembership != nil
}

// NewState builds an empty State for a freshly created bid year.
func NewState(by *BidYear) *State {
	return &State{
		BidYear:     by,
		Areas:       make(map[string]*Area),
		Users:       make(map[string]*User),
		RoundGroups: make(map[string]*RoundGroup),
		Rounds:      make(map[string]*Round),
	}
}

// Clone produces a deep-enough copy for apply()'s before/after snapshot
// pairs: a new State value with fresh maps, but value objects themselves
// (Area, User) are copied by value.
func (s *State) Clone() *State {
	clone := &State{
		Areas:                   make(map[string]*Area, len(s.Areas)),
		Users:                   make(map[string]*User, len(s.Users)),
		RoundGroups:             make(map[string]*RoundGroup, len(s.RoundGroups)),
		Rounds:                  make(map[string]*Round, len(s.Rounds)),
		CanonicalizationEventID: s.CanonicalizationEventID,
	}
	if s.BidYear != nil {
		by := *s.BidYear
		clone.BidYear = &by
	}
	for id, a := range s.Areas {
		area := *a
		clone.Areas[id] = &area
	}
	for id, u := range s.Users {
		user := *u
		clone.Users[id] = &user
	}
	for id, rg := range s.RoundGroups {
		group := *rg
		clone.RoundGroups[id] = &group
	}
	for id, r := range s.Rounds {
		round := *r
		clone.Rounds[id] = &round
	}
	if s.CanonicalMembership != nil {
		clone.CanonicalMembership = make(map[string]*CanonicalAreaMembership, len(s.CanonicalMembership))
		for id, v := range s.CanonicalMembership {
			row := *v
			clone.CanonicalMembership[id] = &row
		}
		clone.CanonicalEligibility = make(map[string]*CanonicalEligibility, len(s.CanonicalEligibility))
		for id, v := range s.CanonicalEligibility {
			row := *v
			clone.CanonicalEligibility[id] = &row
		}
		clone.CanonicalBidOrder = make(map[string]*CanonicalBidOrder, len(s.CanonicalBidOrder))
		for id, v := range s.CanonicalBidOrder {
			row := *v
			clone.CanonicalBidOrder[id] = &row
		}
		clone.CanonicalBidWindow = make(map[string]*CanonicalBidWindow, len(s.CanonicalBidWindow))
		for id, v := range s.CanonicalBidWindow {
			row := *v
			clone.CanonicalBidWindow[id] = &row
		}
	}
	return clone
}

// AreaByCode finds an area by its normalized code, or nil.
func (s *State) AreaByCode(code AreaCode) *Area {
	for _, a := range s.Areas {
		if a.AreaCode == code {
			return a
		}
	}
	return nil
}

// UserByInitials finds a user by their normalized initials, or nil.
func (s *State) UserByInitials(initials Initials) *User {
	for _, u := range s.Users {
		if u.Initials == initials {
			return u
		}
	}
	return nil
}

// SystemArea returns the bid year's exactly-one system area, or nil if it
// has not been created yet.
func (s *State) SystemArea() *Area {
	for _, a := range s.Areas {
		if a.IsSystemArea {
			return a
		}
	}
	return nil
}

// UsersInArea returns every user assigned to the given area.
func (s *State) UsersInArea(areaID string) []*User {
	var out []*User
	for _, u := range s.Users {
		if u.AreaID == areaID {
			out = append(out, u)
		}
	}
	return out
}

// RoundsInGroup returns every round belonging to the given round group.
func (s *State) RoundsInGroup(roundGroupID string) []*Round {
	var out []*Round
	for _, r := range s.Rounds {
		if r.RoundGroupID == roundGroupID {
			out = append(out, r)
		}
	}
	return out
}
