package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/netip"

	"github.com/dmitrijs2005/pushauth/internal/common"
	"github.com/dmitrijs2005/pushauth/internal/dbx"
	"github.com/dmitrijs2005/pushauth/internal/server/models"
	"github.com/dmitrijs2005/pushauth/internal/uuidx"
	"github.com/google/uuid"
)

// PostgresRepository implements Repository over dbx.DBTX. Identifiers are
// stored in the time-ordered layout from uuidx.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func (r *PostgresRepository) Create(ctx context.Context, t *models.RefreshToken) error {
	query :=
		`INSERT INTO refresh_tokens (id, token, account_id, expiry, ip_address, user_agent,
			browser, browser_version, mobile, os, city, country, latitude, longitude)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING created, modified
		 `

	var ip sql.NullString
	if t.Client.IPAddress != nil {
		ip = sql.NullString{String: t.Client.IPAddress.String(), Valid: true}
	}

	c := t.Client
	err := r.db.QueryRowContext(ctx, query,
		uuidx.ToOrderedBytes(t.ID), t.Token, t.AccountID, t.Expiry, ip,
		nullString(c.UserAgent), nullString(c.Browser), nullString(c.BrowserVersion), nullBool(c.Mobile),
		nullString(c.OS), nullString(c.City), nullString(c.Country), nullFloat(c.Latitude), nullFloat(c.Longitude),
	).Scan(&t.Created, &t.Modified)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Find(ctx context.Context, id uuid.UUID) (*models.RefreshToken, error) {
	query :=
		`SELECT id, token, account_id, expiry, host(ip_address), user_agent, browser, browser_version,
			mobile, os, city, country, latitude, longitude, created, modified
		 FROM refresh_tokens
		 WHERE id = $1
		 `

	var (
		t                                           models.RefreshToken
		rawID                                       []byte
		ip, ua, browser, version, osName, city, cty sql.NullString
		mobile                                      sql.NullBool
		lat, long                                   sql.NullFloat64
	)
	err := r.db.QueryRowContext(ctx, query, uuidx.ToOrderedBytes(id)).Scan(
		&rawID, &t.Token, &t.AccountID, &t.Expiry, &ip, &ua, &browser, &version,
		&mobile, &osName, &city, &cty, &lat, &long, &t.Created, &t.Modified,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if t.ID, err = uuidx.FromOrderedBytes(rawID); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	if ip.Valid {
		if addr, err := netip.ParseAddr(ip.String); err == nil {
			t.Client.IPAddress = &addr
		}
	}
	str := func(ns sql.NullString) *string {
		if !ns.Valid {
			return nil
		}
		return &ns.String
	}
	t.Client.UserAgent = str(ua)
	t.Client.Browser = str(browser)
	t.Client.BrowserVersion = str(version)
	t.Client.OS = str(osName)
	t.Client.City = str(city)
	t.Client.Country = str(cty)
	if mobile.Valid {
		t.Client.Mobile = &mobile.Bool
	}
	if lat.Valid {
		t.Client.Latitude = &lat.Float64
	}
	if long.Valid {
		t.Client.Longitude = &long.Float64
	}

	return &t, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		DELETE FROM refresh_tokens
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, uuidx.ToOrderedBytes(id)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteByAccount(ctx context.Context, accountID int64) (int64, error) {
	query := `
		DELETE FROM refresh_tokens
		WHERE account_id = $1
	`
	res, err := r.db.ExecContext(ctx, query, accountID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
