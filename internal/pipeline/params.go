package pipeline

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"shopdesk/ledger-csv/internal/dateutils"
	"shopdesk/ledger-csv/internal/ledgererror"
	"shopdesk/ledger-csv/internal/models"
)

// Params is the raw, string-typed form of a filter and sort request as it
// arrives from CLI flags or query parameters.
type Params struct {
	Type         string
	Counterparty string
	Query        string
	BranchID     string
	Status       string
	From         string
	To           string
	Sort         string
}

// Parse converts raw params into filter and sort state. Empty values leave
// the corresponding filter disabled.
func (p Params) Parse() (models.FilterState, models.SortState, error) {
	var f models.FilterState

	typeFilter, err := models.ParseTypeFilter(p.Type)
	if err != nil {
		return f, models.SortState{}, &ledgererror.ValidationError{Field: "type", Reason: err.Error()}
	}
	f.Type = typeFilter

	status, err := models.ParseStatusFilter(p.Status)
	if err != nil {
		return f, models.SortState{}, &ledgererror.ValidationError{Field: "status", Reason: err.Error()}
	}
	f.Status = status

	f.Counterparty = strings.TrimSpace(p.Counterparty)
	f.Query = strings.TrimSpace(p.Query)

	if s := strings.TrimSpace(p.BranchID); s != "" {
		id, err := strconv.Atoi(s)
		if err != nil {
			return f, models.SortState{}, &ledgererror.ValidationError{Field: "branch", Reason: fmt.Sprintf("not a number: %q", s)}
		}
		f.BranchID = &id
	}

	if f.From, err = parseBound("from", p.From); err != nil {
		return f, models.SortState{}, err
	}
	if f.To, err = parseBound("to", p.To); err != nil {
		return f, models.SortState{}, err
	}

	sortState, err := models.ParseSortState(p.Sort)
	if err != nil {
		return f, models.SortState{}, &ledgererror.ValidationError{Field: "sort", Reason: err.Error()}
	}
	return f, sortState, nil
}

func parseBound(field, s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, _, err := dateutils.ParseDate(s)
	if err != nil {
		return nil, &ledgererror.ValidationError{Field: field, Reason: err.Error()}
	}
	return &t, nil
}
