package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/fredsystems/zabbid/internal/pkg/apperrors"
)

// LifecycleState is a bid year's position in the Draft→BiddingClosed chain.
// The ordering of the constants matters: comparisons like
// `state >= Canonicalized` are used throughout the lifecycle engine.
type LifecycleState int

const (
	Draft LifecycleState = iota
	BootstrapComplete
	Canonicalized
	BiddingActive
	BiddingClosed
)

func (s LifecycleState) String() string {
	switch s {
	case Draft:
		return "Draft"
	case BootstrapComplete:
		return "BootstrapComplete"
	case Canonicalized:
		return "Canonicalized"
	case BiddingActive:
		return "BiddingActive"
	case BiddingClosed:
		return "BiddingClosed"
	default:
		return fmt.Sprintf("LifecycleState(%d)", int(s))
	}
}

// SystemAreaCode is the bit-exact reserved area code every bid year gets
// exactly one of.
const SystemAreaCode = "NO BID"

// Initials is a 2-uppercase-letter operator/user identifier, unique within a
// bid year.
type Initials string

// NewInitials validates and normalizes raw into an Initials value.
func NewInitials(raw string) (Initials, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if len(s) != 2 {
		return "", apperrors.Validation("INVALID_INITIALS", "initials must be exactly 2 characters", "initials")
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return "", apperrors.Validation("INVALID_INITIALS", "initials must be alphabetic", "initials")
		}
	}
	return Initials(s), nil
}

// AreaCode is a normalized, uppercased area identifier, unique within a bid
// year.
type AreaCode string

// NewAreaCode validates and normalizes raw into an AreaCode value.
func NewAreaCode(raw string) (AreaCode, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return "", apperrors.Validation("INVALID_AREA_CODE", "area code must not be empty", "area_code")
	}
	return AreaCode(s), nil
}

// UserType enumerates the workforce classifications a bidder can hold.
type UserType string

const (
	UserTypeCPC    UserType = "CPC"
	UserTypeCPCIT  UserType = "CPC-IT"
	UserTypeDevR   UserType = "Dev-R"
	UserTypeDevD   UserType = "Dev-D"
)

// ParseUserType validates raw against the closed UserType enum.
func ParseUserType(raw string) (UserType, error) {
	switch UserType(raw) {
	case UserTypeCPC, UserTypeCPCIT, UserTypeDevR, UserTypeDevD:
		return UserType(raw), nil
	default:
		return "", apperrors.Validation("INVALID_USER_TYPE", fmt.Sprintf("unknown user type %q", raw), "user_type")
	}
}

// Crew is an optional crew assignment, 1 through 7.
type Crew int

// ParseCrew validates n as a crew number.
func ParseCrew(n int) (Crew, error) {
	if n < 1 || n > 7 {
		return 0, apperrors.Validation("INVALID_CREW", "crew must be between 1 and 7", "crew")
	}
	return Crew(n), nil
}

// Seniority carries the four ordering dates plus the lottery tiebreaker.
// The core treats the dates opaquely except for ordering (internal/bidorder)
// and leave accrual (internal/leaveaccrual).
type Seniority struct {
	EODFAADate            time.Time
	ServiceComputationDate time.Time
	NATCABUDate            time.Time
	CumulativeNATCABUDate  time.Time
	LotteryValue           *float64
}

// BidSchedule is the optional bid-window configuration checked by the
// readiness evaluator's "schedule configured" rule.
type BidSchedule struct {
	Timezone        string
	StartDate       time.Time
	WindowStartTime string
	WindowEndTime   string
	BiddersPerDay   int
}

// Configured reports whether all five fields are populated.
func (s *BidSchedule) Configured() bool {
	return s != nil &&
		s.Timezone != "" &&
		!s.StartDate.IsZero() &&
		s.WindowStartTime != "" &&
		s.WindowEndTime != "" &&
		s.BiddersPerDay > 0
}

// BidYear is the annual unit of bidding.
type BidYear struct {
	BidYearID         string
	Year              int
	StartDate         time.Time
	NumPayPeriods     int // 26 or 27
	IsActive          bool
	LifecycleState    LifecycleState
	ExpectedAreaCount *int
	Label             string
	Notes             string
	Schedule          *BidSchedule
}

// EndDate derives the bid year's end date: start_date + pay_periods*14 - 1 day.
func (b *BidYear) EndDate() time.Time {
	return b.StartDate.AddDate(0, 0, b.NumPayPeriods*14-1)
}

// ValidatePayPeriods enforces the 26/27 closed set.
func ValidatePayPeriods(n int) error {
	if n != 26 && n != 27 {
		return apperrors.Validation("INVALID_PAY_PERIODS", "num_pay_periods must be 26 or 27", "num_pay_periods")
	}
	return nil
}

// Area is an administrative subdivision within a bid year.
type Area struct {
	AreaID             string
	BidYearID          string
	AreaCode           AreaCode
	AreaName           string
	IsSystemArea       bool
	ExpectedUserCount  *int
	RoundGroupID       *string
}

// User is a registered workforce member within a bid year.
type User struct {
	UserID                       string
	BidYearID                    string
	AreaID                       string
	Initials                     Initials
	Name                         string
	UserType                     UserType
	Crew                         *Crew
	Seniority                    Seniority
	ExcludedFromBidding          bool
	ExcludedFromLeaveCalculation bool
	NoBidReviewed                bool
}

// ValidateParticipationInvariant enforces "excluded_from_leave_calculation
// implies excluded_from_bidding" (spec universal invariant 4).
func (u *User) ValidateParticipationInvariant() error {
	if u.ExcludedFromLeaveCalculation && !u.ExcludedFromBidding {
		return apperrors.DomainRule("participation_invariant",
			"a user excluded from leave calculation must also be excluded from bidding")
	}
	return nil
}

// Role is an operator's access level.
type Role string

const (
	RoleAdmin  Role = "Admin"
	RoleBidder Role = "Bidder"
)

// Operator is an authenticated account able to act on the system.
type Operator struct {
	OperatorID     string
	LoginName      string
	DisplayName    string
	PasswordHash   string
	Role           Role
	IsDisabled     bool
	CreatedAt      time.Time
	LastLoginAt    *time.Time
}

// Session is an opaque bearer token tied to an operator.
type Session struct {
	Token          string
	OperatorID     string
	ExpiresAt      time.Time
	LastActivityAt time.Time
}

// RoundGroup groups areas for bidding-round scheduling.
type RoundGroup struct {
	RoundGroupID string
	BidYearID    string
	Name         string
}

// Round is a single bidding round within a RoundGroup.
type Round struct {
	RoundID      string
	RoundGroupID string
	RoundNumber  int
	SlotLimit    *int
	GroupLimit   *int
	HourLimit    *int
	IsHoliday    bool
	AllowOverbid bool
}
