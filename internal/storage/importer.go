package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"wedding-seatbot/internal/models"
)

// ParseGuestsCSV reads a guest list export with a header row. Columns are
// guest_code, name, alias, seat_number, attending, group_code,
// relation_role, representative and display_name; only guest_code is
// required and missing columns read as empty.
func ParseGuestsCSV(r io.Reader) ([]models.GuestRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("guest csv is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		index[h] = i
	}
	if _, ok := index["guest_code"]; !ok {
		return nil, errors.New("guest csv has no guest_code column")
	}

	var guests []models.GuestRecord
	seen := make(map[string]int)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		line, _ := reader.FieldPos(0)

		get := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		guest, err := parseGuestRow(get)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if prev, dup := seen[guest.GuestCode]; dup {
			return nil, fmt.Errorf("line %d: guest_code %q already used on line %d", line, guest.GuestCode, prev)
		}
		seen[guest.GuestCode] = line
		guests = append(guests, guest)
	}
	return guests, nil
}

func parseGuestRow(get func(string) string) (models.GuestRecord, error) {
	g := models.GuestRecord{
		GuestCode:    get("guest_code"),
		Name:         get("name"),
		Alias:        get("alias"),
		DisplayName:  get("display_name"),
		GroupCode:    get("group_code"),
		RelationRole: models.ParseRelationRole(strings.ToLower(get("relation_role"))),
		Attending:    parseAttending(get("attending")),
	}
	if g.GuestCode == "" {
		return g, errors.New("guest_code is empty")
	}
	if rep := get("representative"); rep != "" {
		g.Representative = &rep
	}
	if raw := get("seat_number"); raw != "" {
		seat, err := strconv.Atoi(raw)
		if err != nil {
			return g, fmt.Errorf("invalid seat_number %q", raw)
		}
		if seat > 0 {
			g.SeatNumber = &seat
		}
	}
	return g, nil
}

func parseAttending(v string) bool {
	switch strings.ToLower(v) {
	case "true", "t", "1", "yes", "y", "是":
		return true
	}
	return false
}
