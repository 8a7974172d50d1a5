package database

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"

	"compliance_reminders/internal/domain/directory"

	"github.com/lib/pq"
)

// PostgresDirectoryRepository reads profiles and resolves access tokens.
type PostgresDirectoryRepository struct {
	db *sql.DB
}

func NewPostgresDirectoryRepository(db *sql.DB) *PostgresDirectoryRepository {
	return &PostgresDirectoryRepository{db: db}
}

func (r *PostgresDirectoryRepository) ListAll(ctx context.Context) ([]*directory.Person, error) {
	query := `SELECT id::text, email, COALESCE(full_name, '') FROM profiles ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing profiles: %w", err)
	}
	defer rows.Close()

	people := make([]*directory.Person, 0)
	for rows.Next() {
		p := &directory.Person{}
		if err := rows.Scan(&p.ID, &p.Email, &p.FullName); err != nil {
			return nil, fmt.Errorf("error scanning profile: %w", err)
		}
		people = append(people, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating profiles: %w", err)
	}
	return people, nil
}

// GetByToken looks the token up by its sha256 digest; only unexpired tokens count.
func (r *PostgresDirectoryRepository) GetByToken(ctx context.Context, token string) (*directory.Principal, error) {
	query := `SELECT t.user_id::text, COALESCE(ARRAY_AGG(ur.role) FILTER (WHERE ur.role IS NOT NULL), '{}')
               FROM access_tokens t
               LEFT JOIN user_roles ur ON ur.user_id = t.user_id
               WHERE t.token_hash = $1 AND t.expires_at > NOW()
               GROUP BY t.user_id`

	sum := sha256.Sum256([]byte(token))
	p := &directory.Principal{}
	err := r.db.QueryRowContext(ctx, query, hex.EncodeToString(sum[:])).Scan(&p.UserID, pq.Array(&p.Roles))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, directory.ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("error resolving access token: %w", err)
	}
	return p, nil
}
