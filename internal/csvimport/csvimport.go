// Package csvimport implements CSV preview and bulk user import (spec.md
// §4.9, grounded on original_source/crates/api/src/csv_preview.rs). Each
// row is validated independently — header normalization, field presence,
// value ranges, uppercase initials, user-type parse, crew parse, area
// existence, intra-CSV and cross-state initials uniqueness — and a row's
// failure never suppresses or contaminates any other row's result.
package csvimport

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fredsystems/zabbid/internal/domain"
	"github.com/fredsystems/zabbid/internal/lifecycle"
	"github.com/fredsystems/zabbid/internal/pkg/apperrors"
	"github.com/fredsystems/zabbid/internal/pkg/worker"
)

// requiredHeaders mirrors original_source's REQUIRED_HEADERS, normalized
// (lowercase, spaces to underscores) for case-insensitive matching.
var requiredHeaders = []string{
	"initials",
	"name",
	"area_code",
	"crew",
	"user_type",
	"service_computation_date",
	"eod_faa_date",
}

// FieldError is a single field-scoped validation failure, the three-part
// shape (field, code, message) original_source's richer error model uses.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RowStatus is a CSV row's validation outcome.
type RowStatus string

const (
	RowValid   RowStatus = "Valid"
	RowInvalid RowStatus = "Invalid"
)

// RowResult is one CSV row's preview outcome. Parsed is nil when the row
// could not be fully parsed into a domain.RegisterUser command.
type RowResult struct {
	RowNumber int                   `json:"row_number"` // 1-based, excluding header
	Status    RowStatus             `json:"status"`
	Errors    []FieldError          `json:"errors"`
	Parsed    *domain.RegisterUser  `json:"parsed"`
}

// PreviewResult summarizes a CSV's per-row validation.
type PreviewResult struct {
	Rows         []RowResult `json:"rows"`
	TotalRows    int         `json:"total_rows"`
	ValidCount   int         `json:"valid_count"`
	InvalidCount int         `json:"invalid_count"`
}

func normalizeHeader(h string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
}

func fieldErr(field, code, message string) FieldError {
	return FieldError{Field: field, Code: code, Message: message}
}

// Preview parses r as CSV and validates every row against state
// independently, fanning row validation out across pool. Header-level
// failures (missing required columns, malformed CSV structure) return an
// InvalidCsvFormat *apperrors.AppError immediately; per-row failures never
// do — they are reported in the returned PreviewResult instead.
func Preview(ctx context.Context, pool *worker.Pool, r io.Reader, state *domain.State) (*PreviewResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	headerRow, err := reader.Read()
	if err != nil {
		return nil, apperrors.InvalidCSV(fmt.Sprintf("cannot read CSV header: %v", err))
	}

	headerIdx := make(map[string]int, len(headerRow))
	for i, h := range headerRow {
		headerIdx[normalizeHeader(h)] = i
	}

	var missing []string
	for _, h := range requiredHeaders {
		if _, ok := headerIdx[h]; !ok {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.InvalidCSV(fmt.Sprintf("missing required headers: %s", strings.Join(missing, ", ")))
	}

	var records [][]string
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.InvalidCSV(fmt.Sprintf("malformed CSV row: %v", err))
		}
		records = append(records, rec)
	}

	results := make([]RowResult, len(records))

	var (
		mu           sync.Mutex
		seenInitials = make(map[string]int) // initials -> first row number seen
		wg           sync.WaitGroup
	)

	for i, rec := range records {
		i, rec := i, rec
		rowNumber := i + 1
		wg.Add(1)
		submit := func(ctx context.Context) {
			defer wg.Done()
			results[i] = validateRow(rowNumber, rec, headerIdx, state, &mu, seenInitials)
		}
		if pool != nil {
			if err := pool.Submit(ctx, submit); err != nil {
				submit(ctx)
			}
		} else {
			submit(ctx)
		}
	}
	wg.Wait()

	out := &PreviewResult{Rows: results, TotalRows: len(results)}
	for _, row := range out.Rows {
		if row.Status == RowValid {
			out.ValidCount++
		} else {
			out.InvalidCount++
		}
	}
	return out, nil
}

func validateRow(rowNumber int, rec []string, headerIdx map[string]int, state *domain.State, mu *sync.Mutex, seenInitials map[string]int) RowResult {
	get := func(name string) string {
		idx, ok := headerIdx[name]
		if !ok || idx >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[idx])
	}

	var errs []FieldError

	rawInitials := get("initials")
	name := get("name")
	areaCode := get("area_code")
	userType := get("user_type")
	scd := get("service_computation_date")
	eodFAA := get("eod_faa_date")
	crewRaw := get("crew")

	if rawInitials == "" {
		errs = append(errs, fieldErr("initials", "REQUIRED", "initials is required"))
	}
	if name == "" {
		errs = append(errs, fieldErr("name", "REQUIRED", "name is required"))
	}
	if areaCode == "" {
		errs = append(errs, fieldErr("area_code", "REQUIRED", "area_code is required"))
	}
	if scd == "" {
		errs = append(errs, fieldErr("service_computation_date", "REQUIRED", "service_computation_date is required"))
	}
	if eodFAA == "" {
		errs = append(errs, fieldErr("eod_faa_date", "REQUIRED", "eod_faa_date is required"))
	}

	var initials domain.Initials
	if rawInitials != "" {
		var err error
		initials, err = domain.NewInitials(rawInitials)
		if err != nil {
			errs = append(errs, fieldErr("initials", "INVALID", err.Error()))
		}
	}

	var crew *int
	if crewRaw == "" {
		errs = append(errs, fieldErr("crew", "REQUIRED", "crew is required"))
	} else {
		n, err := strconv.Atoi(crewRaw)
		if err != nil {
			errs = append(errs, fieldErr("crew", "INVALID", fmt.Sprintf("invalid number %q", crewRaw)))
		} else if _, err := domain.ParseCrew(n); err != nil {
			errs = append(errs, fieldErr("crew", "INVALID", err.Error()))
		} else {
			crew = &n
		}
	}

	if userType == "" {
		errs = append(errs, fieldErr("user_type", "REQUIRED", "user_type is required"))
	} else if _, err := domain.ParseUserType(userType); err != nil {
		errs = append(errs, fieldErr("user_type", "INVALID", err.Error()))
	}

	var scdDate, eodDate time.Time
	if scd != "" {
		t, err := parseDate(scd)
		if err != nil {
			errs = append(errs, fieldErr("service_computation_date", "INVALID", err.Error()))
		} else {
			scdDate = t
		}
	}
	if eodFAA != "" {
		t, err := parseDate(eodFAA)
		if err != nil {
			errs = append(errs, fieldErr("eod_faa_date", "INVALID", err.Error()))
		} else {
			eodDate = t
		}
	}

	natcaBU := get("natca_bu_date")
	cumulativeNatcaBU := get("cumulative_natca_bu_date")
	var natcaBUDate, cumulativeNatcaBUDate time.Time
	if natcaBU != "" {
		if t, err := parseDate(natcaBU); err != nil {
			errs = append(errs, fieldErr("natca_bu_date", "INVALID", err.Error()))
		} else {
			natcaBUDate = t
		}
	}
	if cumulativeNatcaBU != "" {
		if t, err := parseDate(cumulativeNatcaBU); err != nil {
			errs = append(errs, fieldErr("cumulative_natca_bu_date", "INVALID", err.Error()))
		} else {
			cumulativeNatcaBUDate = t
		}
	}

	var lottery *float64
	if raw := get("lottery_value"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			errs = append(errs, fieldErr("lottery_value", "INVALID", fmt.Sprintf("invalid number %q", raw)))
		} else {
			lottery = &v
		}
	}

	// Area existence and initials uniqueness can only be checked once
	// parsing itself succeeded for the fields they depend on.
	var area *domain.Area
	if areaCode != "" {
		code, err := domain.NewAreaCode(areaCode)
		if err != nil {
			errs = append(errs, fieldErr("area_code", "INVALID", err.Error()))
		} else {
			area = state.AreaByCode(code)
			if area == nil {
				errs = append(errs, fieldErr("area_code", "NOT_FOUND", fmt.Sprintf("area %q does not exist in this bid year", code)))
			}
		}
	}

	if rawInitials != "" && initials != "" {
		if existing := state.UserByInitials(initials); existing != nil {
			errs = append(errs, fieldErr("initials", "DUPLICATE", fmt.Sprintf("user with initials %q already exists in this bid year", initials)))
		}

		mu.Lock()
		if firstRow, seen := seenInitials[string(initials)]; seen {
			errs = append(errs, fieldErr("initials", "DUPLICATE_IN_CSV", fmt.Sprintf("duplicate of row %d within this CSV", firstRow)))
		} else {
			seenInitials[string(initials)] = rowNumber
		}
		mu.Unlock()
	}

	if len(errs) > 0 {
		return RowResult{RowNumber: rowNumber, Status: RowInvalid, Errors: errs}
	}

	cmd := &domain.RegisterUser{
		AreaID:   area.AreaID,
		Initials: string(initials),
		Name:     name,
		UserType: userType,
		Crew:     crew,
		Seniority: domain.Seniority{
			EODFAADate:             eodDate,
			ServiceComputationDate: scdDate,
			NATCABUDate:            natcaBUDate,
			CumulativeNATCABUDate:  cumulativeNatcaBUDate,
			LotteryValue:           lottery,
		},
	}
	return RowResult{RowNumber: rowNumber, Status: RowValid, Parsed: cmd}
}

func parseDate(raw string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid ISO date %q", raw)
	}
	return t, nil
}

// ImportRowResult reports one committed row's outcome.
type ImportRowResult struct {
	RowNumber int
	UserID    string
	EventID   int64
	Error     *apperrors.AppError
}

// Import commits only the rows in preview marked Valid and whose row number
// is present in selectedRows (nil means "import every valid row"). Each
// committed row produces its own audit event (spec.md §4.9 "partial success
// ... each row producing its own audit event"); a later row's failure
// (e.g. a race against a concurrent registration) never rolls back an
// earlier row's commit, since each RegisterUser is independently
// transactional at the persistence layer.
func Import(ctx context.Context, eng *lifecycle.Engine, bidYearID string, preview *PreviewResult, selectedRows map[int]bool, actor domain.Actor) []ImportRowResult {
	var out []ImportRowResult
	for _, row := range preview.Rows {
		if row.Status != RowValid || row.Parsed == nil {
			continue
		}
		if selectedRows != nil && !selectedRows[row.RowNumber] {
			continue
		}

		cause := domain.Cause{Description: fmt.Sprintf("CSV import row %d", row.RowNumber)}
		result, err := eng.Execute(ctx, bidYearID, *row.Parsed, actor, cause, "")
		if err != nil {
			appErr, _ := apperrors.As(err)
			if appErr == nil {
				appErr = apperrors.Internal("CSV row import failed", err)
			}
			out = append(out, ImportRowResult{RowNumber: row.RowNumber, Error: appErr})
			continue
		}

		var userID string
		for id, u := range result.NewState.Users {
			if u.Initials == domain.Initials(row.Parsed.Initials) {
				userID = id
				break
			}
		}
		out = append(out, ImportRowResult{RowNumber: row.RowNumber, UserID: userID, EventID: result.AuditEvent.EventID})
	}
	return out
}
