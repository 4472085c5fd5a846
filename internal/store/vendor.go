// Package store - Vendor operations
//
// The vendor table holds exactly one generation of the OUI registry.
// RebuildVendors replaces it wholesale; there is no per-row update.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/xtxerr/speedlog/internal/errors"
	"github.com/xtxerr/speedlog/internal/logging"
	"github.com/xtxerr/speedlog/internal/oui"
	"github.com/xtxerr/speedlog/internal/validation"
)

var vendorSchema = []string{
	`CREATE SEQUENCE IF NOT EXISTS vendors_id_seq`,
	`CREATE TABLE IF NOT EXISTS vendors (
		id BIGINT PRIMARY KEY DEFAULT nextval('vendors_id_seq'),
		hex VARCHAR NOT NULL,
		base16 VARCHAR NOT NULL,
		name1 VARCHAR NOT NULL,
		name2 VARCHAR NOT NULL,
		address VARCHAR NOT NULL
	)`,
}

// ensureVendorSchema creates the vendor table on first use.
// A failed attempt is retried by the next caller.
func (s *Store) ensureVendorSchema(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	s.vendorMu.Lock()
	defer s.vendorMu.Unlock()

	if s.vendorReady {
		return nil
	}
	for _, stmt := range vendorSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return dbError("create vendor schema", err)
		}
	}
	s.vendorReady = true
	return nil
}

// =============================================================================
// Rebuild
// =============================================================================

// RebuildVendors replaces the vendor table with records in one transaction.
//
// Every record is validated inside the transaction. On any error the
// transaction is rolled back and the previous generation stays in place.
func (s *Store) RebuildVendors(ctx context.Context, records []oui.VendorRecord) error {
	if err := s.ensureVendorSchema(ctx); err != nil {
		return err
	}

	err := s.TransactionContext(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM vendors`); err != nil {
			return dbError("clear vendors", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO vendors (hex, base16, name1, name2, address)
			VALUES (?, ?, ?, ?, ?)
		`)
		if err != nil {
			return dbError("prepare insert", err)
		}
		defer stmt.Close()

		seen := make(map[string]struct{}, len(records))
		for i, r := range records {
			if err := validateVendor(r); err != nil {
				return fmt.Errorf("vendor %d: %w", i, err)
			}
			key := strings.ToUpper(r.PrefixBase16)
			if _, dup := seen[key]; dup {
				return fmt.Errorf("vendor %d: duplicate base16 prefix %s: %w", i, r.PrefixBase16, errors.ErrInvalidPrefix)
			}
			seen[key] = struct{}{}

			if _, err := stmt.ExecContext(ctx, r.PrefixHex, r.PrefixBase16, r.NameLong, r.NameShort, r.Address); err != nil {
				return dbError("insert vendor "+r.PrefixBase16, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logging.Component("store").Info("vendors rebuilt", "records", len(records))
	return nil
}

func validateVendor(r oui.VendorRecord) error {
	if err := validation.ValidatePrefix(r.PrefixHex); err != nil {
		return fmt.Errorf("hex: %w", err)
	}
	if err := validation.ValidatePrefix(r.PrefixBase16); err != nil {
		return fmt.Errorf("base16: %w", err)
	}
	return nil
}

// =============================================================================
// Queries
// =============================================================================

// LookupVendor returns the vendor whose base16 prefix equals prefix,
// ignoring case. A miss is reported with found == false and a nil error.
func (s *Store) LookupVendor(ctx context.Context, prefix string) (rec oui.VendorRecord, found bool, err error) {
	if err := s.ensureVendorSchema(ctx); err != nil {
		return oui.VendorRecord{}, false, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err = s.db.QueryRowContext(ctx, `
		SELECT hex, base16, name1, name2, address
		FROM vendors
		WHERE upper(base16) = upper(?)
		ORDER BY id
		LIMIT 1
	`, strings.TrimSpace(prefix)).Scan(
		&rec.PrefixHex, &rec.PrefixBase16, &rec.NameLong, &rec.NameShort, &rec.Address,
	)

	if err == sql.ErrNoRows {
		return oui.VendorRecord{}, false, nil
	}
	if err != nil {
		return oui.VendorRecord{}, false, dbError("query vendor", err)
	}
	return rec, true, nil
}

// SearchVendors returns vendors whose name contains term, ignoring case.
func (s *Store) SearchVendors(ctx context.Context, term string, limit int) ([]oui.VendorRecord, error) {
	if err := s.ensureVendorSchema(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	pattern := strings.ToLower(validation.SafeLikeContains(term))
	rows, err := s.db.QueryContext(ctx, `
		SELECT hex, base16, name1, name2, address
		FROM vendors
		WHERE lower(name1) LIKE ? ESCAPE '\' OR lower(name2) LIKE ? ESCAPE '\'
		ORDER BY base16
		LIMIT ?
	`, pattern, pattern, limit)
	if err != nil {
		return nil, dbError("search vendors", err)
	}
	defer rows.Close()

	var out []oui.VendorRecord
	for rows.Next() {
		var r oui.VendorRecord
		if err := rows.Scan(&r.PrefixHex, &r.PrefixBase16, &r.NameLong, &r.NameShort, &r.Address); err != nil {
			return nil, dbError("scan vendor", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountVendors returns the number of rows in the current generation.
func (s *Store) CountVendors(ctx context.Context) (int64, error) {
	if err := s.ensureVendorSchema(ctx); err != nil {
		return 0, err
	}

	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM vendors`).Scan(&n); err != nil {
		return 0, dbError("count vendors", err)
	}
	return n, nil
}
