package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/kirillkom/freelance-docs/internal/core/domain"
)

const profilesTable = "user_profiles"

var profileColumns = []string{
	"user_id", "seller", "logo_ref", "default_vat_rate", "vat_not_applicable", "quote_validity_days",
	"payment_terms", "late_penalty_notice", "legal_mentions", "default_contract_title", "tone",
}

// Store reads per-user profiles from the user_profiles table.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	query, args, err := squirrel.Select(profileColumns...).
		From(profilesTable).
		Where(squirrel.Eq{"user_id": userID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build profile query: %w", err)
	}

	var (
		profile domain.Profile
		seller  []byte
		vatRate sql.NullFloat64
	)
	err = s.db.QueryRowContext(ctx, query, args...).Scan(
		&profile.UserID, &seller, &profile.LogoRef, &vatRate, &profile.VATNotApplicable, &profile.QuoteValidityDays,
		&profile.PaymentTerms, &profile.LatePenaltyNotice, &profile.LegalMentions, &profile.DefaultContractTitle, &profile.Tone,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get profile", fmt.Errorf("user %s", userID))
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}

	if len(seller) > 0 {
		if err := json.Unmarshal(seller, &profile.Seller); err != nil {
			return nil, fmt.Errorf("unmarshal profile seller: %w", err)
		}
	}
	if vatRate.Valid {
		rate := vatRate.Float64
		profile.DefaultVATRate = &rate
	}
	return &profile, nil
}
