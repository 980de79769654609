package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"wedding-seatbot/internal/models"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"

	guestsTable = "guests"

	// insertBatchSize keeps a single INSERT under SQLite's bound variable
	// limit.
	insertBatchSize = 100
)

var guestColumns = []string{
	"guest_code",
	"name",
	"alias",
	"display_name",
	"seat_number",
	"attending",
	"group_code",
	"relation_role",
	"representative",
}

// roleRank mirrors models.RelationRole.Rank so rows come back in family order.
const roleRank = "CASE relation_role WHEN 'self' THEN 0 WHEN 'spouse' THEN 1 WHEN 'child' THEN 2 WHEN 'guest' THEN 3 ELSE 4 END"

// Storage is the guest store. Every query borrows a pooled connection for
// its own duration only.
type Storage struct {
	db     *sqlx.DB
	flavor sqlbuilder.Flavor
	log    zerolog.Logger
}

// guestRow is the nullable shape of a guests row
type guestRow struct {
	GuestCode      string         `db:"guest_code"`
	Name           sql.NullString `db:"name"`
	Alias          sql.NullString `db:"alias"`
	DisplayName    sql.NullString `db:"display_name"`
	SeatNumber     sql.NullInt64  `db:"seat_number"`
	Attending      bool           `db:"attending"`
	GroupCode      sql.NullString `db:"group_code"`
	RelationRole   sql.NullString `db:"relation_role"`
	Representative sql.NullString `db:"representative"`
}

func (r guestRow) toModel() models.GuestRecord {
	g := models.GuestRecord{
		GuestCode:    r.GuestCode,
		Name:         r.Name.String,
		Alias:        r.Alias.String,
		DisplayName:  r.DisplayName.String,
		GroupCode:    r.GroupCode.String,
		RelationRole: models.ParseRelationRole(r.RelationRole.String),
		Attending:    r.Attending,
	}
	if r.SeatNumber.Valid && r.SeatNumber.Int64 > 0 {
		seat := int(r.SeatNumber.Int64)
		g.SeatNumber = &seat
	}
	if r.Representative.Valid && r.Representative.String != "" {
		rep := r.Representative.String
		g.Representative = &rep
	}
	return g
}

// Open connects to the guest database
func Open(driver, dsn string, logger zerolog.Logger) (*Storage, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}
	return NewStorage(db, logger), nil
}

// NewStorage wraps an existing connection pool
func NewStorage(db *sqlx.DB, logger zerolog.Logger) *Storage {
	return &Storage{
		db:     db,
		flavor: flavorFor(db.DriverName()),
		log:    logger.With().Str("component", "storage").Logger(),
	}
}

func flavorFor(driver string) sqlbuilder.Flavor {
	if driver == DriverSQLite {
		return sqlbuilder.SQLite
	}
	return sqlbuilder.PostgreSQL
}

// Close releases the connection pool
func (s *Storage) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SearchAttending returns attending guests whose name, alias or display name
// contains keyword, ignoring case.
func (s *Storage) SearchAttending(ctx context.Context, keyword string) ([]models.GuestRecord, error) {
	pattern := "%" + strings.ToLower(keyword) + "%"

	sb := s.flavor.NewSelectBuilder()
	sb.Select(guestColumns...)
	sb.From(guestsTable)
	sb.Where(
		sb.Or(
			sb.Like("LOWER(name)", pattern),
			sb.Like("LOWER(alias)", pattern),
			sb.Like("LOWER(display_name)", pattern),
		),
		sb.Equal("attending", true),
	)
	sb.OrderBy("guest_code")

	guests, err := s.selectGuests(ctx, sb)
	if err != nil {
		return nil, fmt.Errorf("failed to search guests: %w", err)
	}
	s.log.Debug().Int("rows", len(guests)).Msg("Searched guests")
	return guests, nil
}

// FamilyByAnchor returns the anchor and every attending guest it represents,
// in role order.
func (s *Storage) FamilyByAnchor(ctx context.Context, anchor string) ([]models.GuestRecord, error) {
	sb := s.flavor.NewSelectBuilder()
	sb.Select(guestColumns...)
	sb.From(guestsTable)
	sb.Where(
		sb.Or(
			sb.Equal("representative", anchor),
			sb.Equal("guest_code", anchor),
		),
		sb.Equal("attending", true),
	)
	sb.OrderBy(roleRank, "COALESCE(display_name, name, alias)", "guest_code")

	guests, err := s.selectGuests(ctx, sb)
	if err != nil {
		return nil, fmt.Errorf("failed to load family %s: %w", anchor, err)
	}
	return guests, nil
}

func (s *Storage) selectGuests(ctx context.Context, sb *sqlbuilder.SelectBuilder) ([]models.GuestRecord, error) {
	query, args := sb.Build()

	var rows []guestRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	guests := make([]models.GuestRecord, 0, len(rows))
	for _, r := range rows {
		guests = append(guests, r.toModel())
	}
	return guests, nil
}

// ReplaceGuests swaps the whole guest list in one transaction
func (s *Storage) ReplaceGuests(ctx context.Context, guests []models.GuestRecord) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+guestsTable); err != nil {
		return 0, fmt.Errorf("failed to clear guests: %w", err)
	}

	for start := 0; start < len(guests); start += insertBatchSize {
		end := min(start+insertBatchSize, len(guests))

		ib := s.flavor.NewInsertBuilder()
		ib.InsertInto(guestsTable)
		ib.Cols(guestColumns...)
		for _, g := range guests[start:end] {
			ib.Values(
				g.GuestCode,
				nullString(g.Name),
				nullString(g.Alias),
				nullString(g.DisplayName),
				nullSeat(g.SeatNumber),
				g.Attending,
				nullString(g.GroupCode),
				string(g.RelationRole),
				nullStringPtr(g.Representative),
			)
		}

		query, args := ib.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return 0, fmt.Errorf("failed to insert guests %d-%d: %w", start, end, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit guests: %w", err)
	}

	s.log.Info().Int("guests", len(guests)).Msg("Replaced guest list")
	return len(guests), nil
}

// CountGuests returns the number of stored rows
func (s *Storage) CountGuests(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM "+guestsTable); err != nil {
		return 0, fmt.Errorf("failed to count guests: %w", err)
	}
	return n, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return nullString(*s)
}

func nullSeat(seat *int) sql.NullInt64 {
	if seat == nil || *seat <= 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*seat), Valid: true}
}
