package guests

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/marigold-events/wedding-rsvp-api/internal/app/apperr"
	"github.com/marigold-events/wedding-rsvp-api/internal/app/patch"
	"github.com/marigold-events/wedding-rsvp-api/internal/domain"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/guestrepo"
)

var importColumns = []string{"first_name", "last_name", "email", "phone", "group", "plus_ones", "dietary_notes"}

type importRow struct {
	firstName string
	lastName  string
	email     string
	phone     string
	group     string
	plusOnes  *int
	dietary   string
}

// ImportCSV upserts guests from a header-driven CSV. Rows match existing guests by
// email, or by full name when the row has no email. Row numbers in errors are 1-based
// file lines, so the first data row is 2.
func (s *Service) ImportCSV(ctx context.Context, r io.Reader) (ImportResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return ImportResult{}, apperr.Validation("file", "missing header row")
	}
	if err != nil {
		return ImportResult{}, apperr.Validation("file", "unreadable CSV: "+err.Error())
	}
	cols := indexHeader(header)
	if _, ok := cols["first_name"]; !ok {
		return ImportResult{}, apperr.Validation("file", "header must include first_name")
	}

	existing, err := s.guests.List(ctx, guestrepo.Filter{})
	if err != nil {
		return ImportResult{}, err
	}
	byEmail := map[string]guestrepo.Guest{}
	byName := map[string]guestrepo.Guest{}
	for _, g := range existing {
		if g.Email != nil {
			byEmail[domain.NormalizeEmail(*g.Email)] = g
		}
		byName[strings.ToLower(g.FullName())] = g
	}
	groups := map[string]domain.Group{}

	var res ImportResult
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			res.Errors = append(res.Errors, RowError{Row: line, Message: err.Error()})
			continue
		}
		if s.MaxImportRows > 0 && line-1 > s.MaxImportRows {
			return ImportResult{}, apperr.Validation("file", fmt.Sprintf("at most %d rows per import", s.MaxImportRows))
		}
		if blankRecord(rec) {
			res.Skipped++
			continue
		}
		row, perr := parseImportRow(cols, rec)
		if perr != nil {
			res.Errors = append(res.Errors, RowError{Row: line, Message: perr.Error()})
			continue
		}

		var groupID *domain.GroupID
		if row.group != "" {
			key := domain.CanonicalGroupKey(row.group)
			grp, ok := groups[key]
			if !ok {
				grp, _, err = s.findOrCreateGroup(ctx, row.group)
				if err != nil {
					res.Errors = append(res.Errors, RowError{Row: line, Message: errMessage(err)})
					continue
				}
				groups[key] = grp
			}
			groupID = &grp.ID
		}

		var match *guestrepo.Guest
		if row.email != "" {
			if g, ok := byEmail[domain.NormalizeEmail(row.email)]; ok {
				match = &g
			}
		} else if g, ok := byName[strings.ToLower(domain.NormalizeHumanName(row.firstName+" "+row.lastName))]; ok {
			match = &g
		}

		var saved domain.Guest
		if match == nil {
			saved, err = s.CreateGuest(ctx, CreateGuestInput{
				FirstName:    row.firstName,
				LastName:     row.lastName,
				Email:        optional(row.email),
				Phone:        optional(row.phone),
				GroupID:      groupID,
				PlusOnes:     valueOr(row.plusOnes, 0),
				DietaryNotes: optional(row.dietary),
			})
			if err == nil {
				res.Created++
			}
		} else {
			in := UpdateGuestInput{}
			in.FirstName = patch.Some(row.firstName)
			in.LastName = patch.Some(row.lastName)
			if row.email != "" {
				in.Email = patch.Some(row.email)
			}
			if row.phone != "" {
				in.Phone = patch.Some(row.phone)
			}
			if groupID != nil {
				in.GroupID = patch.Some(*groupID)
			}
			if row.plusOnes != nil {
				in.PlusOnes = patch.Some(*row.plusOnes)
			}
			if row.dietary != "" {
				in.DietaryNotes = patch.Some(row.dietary)
			}
			saved, err = s.UpdateGuest(ctx, match.ID, in)
			if err == nil {
				res.Updated++
			}
		}
		if err != nil {
			if _, ok := apperr.As(err); !ok {
				return ImportResult{}, err
			}
			res.Errors = append(res.Errors, RowError{Row: line, Message: errMessage(err)})
			continue
		}

		rg := guestrepo.Guest{Guest: saved}
		if saved.Email != nil {
			byEmail[domain.NormalizeEmail(*saved.Email)] = rg
		}
		byName[strings.ToLower(saved.FullName())] = rg
	}
	return res, nil
}

func indexHeader(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		h = strings.ToLower(strings.TrimSpace(h))
		h = strings.ReplaceAll(h, " ", "_")
		for _, known := range importColumns {
			if h == known {
				if _, dup := cols[h]; !dup {
					cols[h] = i
				}
			}
		}
	}
	return cols
}

func parseImportRow(cols map[string]int, rec []string) (importRow, error) {
	get := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	row := importRow{
		firstName: domain.NormalizeHumanName(get("first_name")),
		lastName:  domain.NormalizeHumanName(get("last_name")),
		email:     get("email"),
		phone:     get("phone"),
		group:     get("group"),
		dietary:   get("dietary_notes"),
	}
	if row.firstName == "" {
		return importRow{}, errors.New("first_name is required")
	}
	if v := get("plus_ones"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > domain.MaxPlusOnes {
			return importRow{}, fmt.Errorf("plus_ones must be a whole number between 0 and %d", domain.MaxPlusOnes)
		}
		row.plusOnes = &n
	}
	return row, nil
}

func blankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func errMessage(err error) string {
	if ae, ok := apperr.As(err); ok {
		for k, v := range ae.Details {
			return fmt.Sprintf("%s %v", k, v)
		}
		return ae.Message
	}
	return err.Error()
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func valueOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
