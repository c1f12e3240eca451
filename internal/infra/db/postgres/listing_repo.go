package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v4"

	"cityguide-billing/internal/domain"
	"cityguide-billing/internal/domain/model"
	"cityguide-billing/internal/domain/ports/repository"
)

var _ repository.ListingRepository = (*PostgresListingRepo)(nil)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const listingColumns = "id, owner_id, name, is_premium, premium_expires_at, is_hidden, updated_at"

type PostgresListingRepo struct {
	db DB
}

func NewPostgresListingRepo(db DB) *PostgresListingRepo {
	return &PostgresListingRepo{db: db}
}

func scanListing(row pgx.Row) (*model.Listing, error) {
	var l model.Listing
	if err := row.Scan(&l.ID, &l.OwnerID, &l.Name, &l.IsPremium, &l.PremiumExpiresAt, &l.IsHidden, &l.UpdatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *PostgresListingRepo) GetListing(ctx context.Context, tx repository.Tx, placeID string) (*model.Listing, error) {
	exec, err := getExecutor(r.db, tx)
	if err != nil {
		return nil, err
	}
	q := "SELECT " + listingColumns + " FROM places WHERE id = $1"
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	l, err := scanListing(exec.QueryRow(ctx, q, placeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrListingNotFound
		}
		return nil, fmt.Errorf("get listing: %w", err)
	}
	return l, nil
}

// buildListingUpdate renders the partial UPDATE for the fields set in u.
func buildListingUpdate(placeID string, u model.ListingFlagsUpdate) (string, []interface{}, error) {
	b := psql.Update("places")
	if u.IsPremium != nil {
		b = b.Set("is_premium", *u.IsPremium)
	}
	switch {
	case u.ClearPremiumExpiry:
		b = b.Set("premium_expires_at", sq.Expr("NULL"))
	case u.PremiumExpiresAt != nil:
		b = b.Set("premium_expires_at", *u.PremiumExpiresAt)
	}
	if u.IsHidden != nil {
		b = b.Set("is_hidden", *u.IsHidden)
	}
	return b.Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": placeID}).
		Suffix("RETURNING " + listingColumns).
		ToSql()
}

func (r *PostgresListingRepo) UpdateListingFlags(ctx context.Context, tx repository.Tx, placeID string, u model.ListingFlagsUpdate) (*model.Listing, error) {
	if u.IsEmpty() {
		return r.GetListing(ctx, tx, placeID)
	}
	exec, err := getExecutor(r.db, tx)
	if err != nil {
		return nil, err
	}
	q, args, err := buildListingUpdate(placeID, u)
	if err != nil {
		return nil, fmt.Errorf("build listing update: %w", err)
	}
	l, err := scanListing(exec.QueryRow(ctx, q, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrListingNotFound
		}
		return nil, fmt.Errorf("update listing flags: %w", err)
	}
	return l, nil
}

func (r *PostgresListingRepo) FindExpiredPremium(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.Listing, error) {
	exec, err := getExecutor(r.db, tx)
	if err != nil {
		return nil, err
	}
	const q = `
SELECT ` + listingColumns + `
  FROM places
 WHERE is_premium AND premium_expires_at IS NOT NULL AND premium_expires_at <= $1
 ORDER BY premium_expires_at, id
 LIMIT $2`
	rows, err := exec.Query(ctx, q, now, limit)
	if err != nil {
		return nil, fmt.Errorf("find expired premium: %w", err)
	}
	defer rows.Close()

	var out []*model.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
