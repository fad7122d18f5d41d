package orchestrators

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"ledenbeheer/internal/adapters/storage"
	auditDomain "ledenbeheer/internal/domain/audit"
	volunteerDomain "ledenbeheer/internal/domain/volunteer"
)

// VolunteerWriter reads and upserts member-directory entries.
type VolunteerWriter interface {
	GetByID(ctx context.Context, id int64) (volunteerDomain.Volunteer, error)
	Save(ctx context.Context, v volunteerDomain.Volunteer) error
}

// ImportVolunteersInput carries the CSV stream and import options.
// PRE: Reader is a CSV stream with a header row
// POST: Returns aggregate counts and per-row errors; writes are skipped when DryRun=true
// INVARIANT: Volunteers are never deleted; a recorded certificate date is only replaced by a later one, in UpdateMode
type ImportVolunteersInput struct {
	Reader     io.Reader
	DryRun     bool
	UpdateMode bool
	RequestID  string
}

// ImportVolunteersResult holds aggregate counts and per-row errors.
type ImportVolunteersResult struct {
	Total      int
	Created    int
	Updated    int
	Skipped    int
	SeededVOG  int
	RenewedVOG int
	Errors     []ImportVolunteersRowError
	DryRun     bool
	Unknown    []string
}

// ImportVolunteersRowError describes a problem with a single CSV row.
type ImportVolunteersRowError struct {
	Row     int
	Message string
}

// ImportVolunteersDeps holds dependencies for ExecuteImportVolunteers.
type ImportVolunteersDeps struct {
	VolunteerStore VolunteerWriter
	RecordStore    RecordStore
	AuditStore     AuditRecorder
	Now            func() time.Time
}

// ImportVolunteersValidationError is returned when the CSV structure is
// invalid, e.g. a required column is missing.
type ImportVolunteersValidationError struct {
	Message string
}

// Error implements the error interface.
func (e *ImportVolunteersValidationError) Error() string {
	return e.Message
}

var importColumns = map[string]bool{
	"ID": true, "FIRST_NAME": true, "LAST_NAME": true, "EMAIL": true,
	"FUNCTIONS": true, "COMMITTEES": true, "CURRENT": true, "VOG_DATE": true,
}

// ExecuteImportVolunteers loads member-directory entries from CSV. Multi-value
// columns (FUNCTIONS, COMMITTEES) are separated by ';'. VOG_DATE seeds the
// certificate date of volunteers that have none recorded yet; in UpdateMode a
// later VOG_DATE replaces the recorded one.
// PRE: CSV has at least the ID and FIRST_NAME columns
// POST: Volunteers are created, updated or skipped according to DryRun and UpdateMode
func ExecuteImportVolunteers(ctx context.Context, input ImportVolunteersInput, deps ImportVolunteersDeps) (ImportVolunteersResult, error) {
	cr := csv.NewReader(input.Reader)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return ImportVolunteersResult{}, &ImportVolunteersValidationError{Message: "cannot read CSV header: " + err.Error()}
	}

	colIdx := make(map[string]int, len(header))
	var unknownCols []string
	for i, h := range header {
		key := strings.ToUpper(strings.TrimSpace(h))
		colIdx[key] = i
		if !importColumns[key] {
			unknownCols = append(unknownCols, h)
		}
	}
	for _, required := range []string{"ID", "FIRST_NAME"} {
		if _, ok := colIdx[required]; !ok {
			return ImportVolunteersResult{}, &ImportVolunteersValidationError{Message: "CSV missing required column: " + required}
		}
	}

	getCol := func(row []string, col string) string {
		i, ok := colIdx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}

	result := ImportVolunteersResult{DryRun: input.DryRun, Unknown: unknownCols}
	rowNum := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNum++
		if err != nil {
			result.Total++
			result.Errors = append(result.Errors, ImportVolunteersRowError{Row: rowNum, Message: "malformed row: " + err.Error()})
			continue
		}
		result.Total++

		v, certDate, msg := parseVolunteerRow(row, getCol)
		if msg != "" {
			result.Errors = append(result.Errors, ImportVolunteersRowError{Row: rowNum, Message: msg})
			continue
		}

		_, lookupErr := deps.VolunteerStore.GetByID(ctx, v.ID)
		if lookupErr != nil && !errors.Is(lookupErr, storage.ErrNotFound) {
			slog.Error("volunteers_import_lookup_failed", "row", rowNum, "id", v.ID, "err", lookupErr)
			result.Errors = append(result.Errors, ImportVolunteersRowError{Row: rowNum, Message: "lookup failed (see server log)"})
			continue
		}
		exists := lookupErr == nil
		if exists && !input.UpdateMode {
			result.Skipped++
			continue
		}

		if input.DryRun {
			if exists {
				result.Updated++
			} else {
				result.Created++
			}
			continue
		}

		if err := deps.VolunteerStore.Save(ctx, v); err != nil {
			slog.Error("volunteers_import_save_failed", "row", rowNum, "id", v.ID, "err", err)
			result.Errors = append(result.Errors, ImportVolunteersRowError{Row: rowNum, Message: "save failed (see server log)"})
			continue
		}
		if exists {
			result.Updated++
		} else {
			result.Created++
		}

		if !certDate.IsZero() && deps.RecordStore != nil {
			seeded, renewed, err := recordCertificate(ctx, deps.RecordStore, v.ID, certDate, input.UpdateMode)
			if err != nil {
				slog.Error("volunteers_import_seed_failed", "row", rowNum, "id", v.ID, "err", err)
				result.Errors = append(result.Errors, ImportVolunteersRowError{Row: rowNum, Message: "volunteer saved but VOG date not stored (see server log)"})
				continue
			}
			if seeded {
				result.SeededVOG++
			}
			if renewed {
				result.RenewedVOG++
			}
		}
	}

	slog.Info("volunteers_import",
		"request_id", input.RequestID,
		"dry_run", input.DryRun,
		"update_mode", input.UpdateMode,
		"total", result.Total,
		"created", result.Created,
		"updated", result.Updated,
		"skipped", result.Skipped,
		"seeded_vog", result.SeededVOG,
		"errors", len(result.Errors),
	)

	if !input.DryRun && deps.AuditStore != nil {
		ev := auditDomain.NewEvent(now(), auditDomain.CategoryImport, auditDomain.ActionVolunteersImported).
			WithResource(auditDomain.ResourceVolunteer, "").
			WithDescription(fmt.Sprintf("created %d, updated %d, skipped %d, errors %d", result.Created, result.Updated, result.Skipped, len(result.Errors))).
			WithRequest(input.RequestID, "")
		if err := deps.AuditStore.Save(ctx, ev); err != nil {
			slog.Warn("volunteers_import", "event", "audit_save_failed", "err", err)
		}
	}
	return result, nil
}

// parseVolunteerRow returns the volunteer, the optional certificate date and
// a row error message.
func parseVolunteerRow(row []string, getCol func([]string, string) string) (volunteerDomain.Volunteer, time.Time, string) {
	id, err := strconv.ParseInt(getCol(row, "ID"), 10, 64)
	if err != nil || id <= 0 {
		return volunteerDomain.Volunteer{}, time.Time{}, "id must be a positive number: " + getCol(row, "ID")
	}

	v := volunteerDomain.Volunteer{
		ID:        id,
		FirstName: getCol(row, "FIRST_NAME"),
		LastName:  getCol(row, "LAST_NAME"),
		Current:   true,
	}

	if raw := getCol(row, "EMAIL"); raw != "" {
		addr, err := mail.ParseAddress(raw)
		if err != nil {
			return volunteerDomain.Volunteer{}, time.Time{}, "invalid email: " + raw
		}
		v.Email = strings.ToLower(addr.Address)
	}

	v.Functions = splitMulti(getCol(row, "FUNCTIONS"))
	for _, raw := range splitMulti(getCol(row, "COMMITTEES")) {
		c, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || c <= 0 {
			return volunteerDomain.Volunteer{}, time.Time{}, "invalid committee id: " + raw
		}
		v.CommitteeMemberships = append(v.CommitteeMemberships, c)
	}

	if raw := getCol(row, "CURRENT"); raw != "" {
		cur, ok := parseBool(raw)
		if !ok {
			return volunteerDomain.Volunteer{}, time.Time{}, "invalid CURRENT value: " + raw
		}
		v.Current = cur
	}

	if err := v.Validate(); err != nil {
		return volunteerDomain.Volunteer{}, time.Time{}, err.Error()
	}

	var cert time.Time
	if raw := getCol(row, "VOG_DATE"); raw != "" {
		cert, err = parseImportDate(raw)
		if err != nil {
			return volunteerDomain.Volunteer{}, time.Time{}, "invalid VOG_DATE: " + raw
		}
	}
	return v, cert, ""
}

// recordCertificate seeds the certificate date when none is stored. In
// update mode a later date replaces the stored one, which starts a new cycle.
func recordCertificate(ctx context.Context, store RecordStore, id int64, cert time.Time, update bool) (seeded, renewed bool, err error) {
	seeded, err = store.SeedCertificate(ctx, id, cert)
	if err != nil || seeded || !update {
		return seeded, false, err
	}
	renewed, err = store.RenewCertificate(ctx, id, cert)
	return false, renewed, err
}

func splitMulti(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ";") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "ja", "j", "y":
		return true, true
	case "0", "false", "no", "nee", "n":
		return false, true
	}
	return false, false
}

// parseImportDate accepts ISO dates and the Dutch day-month-year form.
func parseImportDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "02-01-2006", "2-1-2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}
