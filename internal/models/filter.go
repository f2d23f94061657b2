package models

import (
	"fmt"
	"strings"
	"time"
)

// TypeFilter partitions records by ledger side.
type TypeFilter string

const (
	TypeAll   TypeFilter = "all"
	TypeGiven TypeFilter = "given"
	TypeTaken TypeFilter = "taken"
)

// ParseTypeFilter parses "all", "given" or "taken"; empty means all.
func ParseTypeFilter(s string) (TypeFilter, error) {
	switch TypeFilter(strings.ToLower(strings.TrimSpace(s))) {
	case "", TypeAll:
		return TypeAll, nil
	case TypeGiven:
		return TypeGiven, nil
	case TypeTaken:
		return TypeTaken, nil
	}
	return "", fmt.Errorf("unknown type filter %q (want all, given or taken)", s)
}

// Matches reports whether a record of kind k passes the partition.
// Given admits everything that is not taken.
func (t TypeFilter) Matches(k Kind) bool {
	switch t {
	case TypeGiven:
		return k != KindTaken
	case TypeTaken:
		return k == KindTaken
	default:
		return true
	}
}

// StatusFilter selects records by settled state.
type StatusFilter string

const (
	StatusAll       StatusFilter = "all"
	StatusSettled   StatusFilter = "settled"
	StatusUnsettled StatusFilter = "unsettled"
)

// ParseStatusFilter accepts settled/unsettled and the returned/unreturned aliases.
func ParseStatusFilter(s string) (StatusFilter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return StatusAll, nil
	case "settled", "returned":
		return StatusSettled, nil
	case "unsettled", "unreturned":
		return StatusUnsettled, nil
	}
	return "", fmt.Errorf("unknown status filter %q (want all, settled or unsettled)", s)
}

// SortKey is the field records are ordered by.
type SortKey string

const (
	SortByDate    SortKey = "date"
	SortByName    SortKey = "name"
	SortByAmount  SortKey = "amount"
	SortBySettled SortKey = "settled"
)

// SortDirection is asc or desc.
type SortDirection string

const (
	Asc  SortDirection = "asc"
	Desc SortDirection = "desc"
)

// FilterState is the set of predicates applied to a record list.
// Zero values disable the corresponding filter.
type FilterState struct {
	Type         TypeFilter
	Counterparty string
	Query        string
	BranchID     *int
	Status       StatusFilter
	From         *time.Time
	To           *time.Time
}

// HasDateRange reports whether both range bounds are set.
func (f FilterState) HasDateRange() bool {
	return f.From != nil && f.To != nil
}

// SortState selects the comparator and direction.
type SortState struct {
	Key       SortKey
	Direction SortDirection
}

// DefaultSort orders newest first.
var DefaultSort = SortState{Key: SortByDate, Direction: Desc}

// ParseSortState parses "key" or "key:dir", e.g. "amount:asc".
func ParseSortState(s string) (SortState, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultSort, nil
	}
	keyPart, dirPart, _ := strings.Cut(s, ":")

	var state SortState
	switch SortKey(keyPart) {
	case SortByDate, SortByName, SortByAmount, SortBySettled:
		state.Key = SortKey(keyPart)
	default:
		return SortState{}, fmt.Errorf("unknown sort key %q (want date, name, amount or settled)", keyPart)
	}

	switch SortDirection(dirPart) {
	case "", Asc:
		state.Direction = Asc
	case Desc:
		state.Direction = Desc
	default:
		return SortState{}, fmt.Errorf("unknown sort direction %q (want asc or desc)", dirPart)
	}
	return state, nil
}

func (s SortState) String() string {
	return fmt.Sprintf("%s:%s", s.Key, s.Direction)
}
