package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"personad/internal/person/models"
	"personad/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// PostgresStore persists the person aggregate in PostgreSQL. Schema lives in
// migrations/; personas carry a UNIQUE(person_id, version) constraint that
// backstops the per-person lock against concurrent recomputations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a PostgreSQL-backed aggregate store.
func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) CreatePerson(ctx context.Context, person *models.Person) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO persons (id, first_name, last_name, gender, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		person.ID, person.FirstName, person.LastName, person.Gender, person.CreatedAt, person.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert person: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPerson(ctx context.Context, personID uuid.UUID) (*models.Person, error) {
	var p models.Person
	err := s.pool.QueryRow(ctx, `
		SELECT id, first_name, last_name, gender, created_at, updated_at
		FROM persons WHERE id = $1`, personID,
	).Scan(&p.ID, &p.FirstName, &p.LastName, &p.Gender, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get person: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) GetPersonSummary(ctx context.Context, personID uuid.UUID) (*models.PersonSummary, error) {
	var out models.PersonSummary
	err := s.pool.QueryRow(ctx, `
		SELECT p.id, p.first_name, p.last_name, p.gender, p.created_at, p.updated_at,
		       (SELECT COUNT(*) FROM person_data d WHERE d.person_id = p.id),
		       COALESCE((SELECT MAX(version) FROM personas dp WHERE dp.person_id = p.id), 0)
		FROM persons p WHERE p.id = $1`, personID,
	).Scan(&out.ID, &out.FirstName, &out.LastName, &out.Gender, &out.CreatedAt, &out.UpdatedAt,
		&out.HistoryCount, &out.LatestVersion)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get person summary: %w", err)
	}
	return &out, nil
}

func (s *PostgresStore) ListPersons(ctx context.Context, limit, offset int) ([]models.PersonSummary, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM persons`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count persons: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT p.id, p.first_name, p.last_name, p.gender, p.created_at, p.updated_at,
		       (SELECT COUNT(*) FROM person_data d WHERE d.person_id = p.id),
		       COALESCE((SELECT MAX(version) FROM personas dp WHERE dp.person_id = p.id), 0)
		FROM persons p
		ORDER BY p.created_at, p.id
		LIMIT $1 OFFSET $2`, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list persons: %w", err)
	}
	defer rows.Close()

	summaries := []models.PersonSummary{}
	for rows.Next() {
		var out models.PersonSummary
		if err := rows.Scan(&out.ID, &out.FirstName, &out.LastName, &out.Gender, &out.CreatedAt, &out.UpdatedAt,
			&out.HistoryCount, &out.LatestVersion); err != nil {
			return nil, 0, fmt.Errorf("scan person summary: %w", err)
		}
		summaries = append(summaries, out)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list persons: %w", err)
	}
	return summaries, total, nil
}

func (s *PostgresStore) DeletePerson(ctx context.Context, personID uuid.UUID) error {
	// person_data and personas cascade via foreign keys.
	tag, err := s.pool.Exec(ctx, `DELETE FROM persons WHERE id = $1`, personID)
	if err != nil {
		return fmt.Errorf("delete person: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) AppendHistory(ctx context.Context, entry *models.HistoryEntry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO person_data (id, person_id, raw_text, source, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		entry.ID, entry.PersonID, entry.RawText, entry.Source, entry.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListHistory(ctx context.Context, personID uuid.UUID, limit, offset int) ([]models.HistoryEntry, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM person_data WHERE person_id = $1`, personID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count history: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, person_id, raw_text, source, created_at
		FROM person_data
		WHERE person_id = $1
		ORDER BY created_at, id
		LIMIT $2 OFFSET $3`, personID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	entries, err := scanHistory(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (s *PostgresStore) FullHistory(ctx context.Context, personID uuid.UUID) ([]models.HistoryEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, person_id, raw_text, source, created_at
		FROM person_data
		WHERE person_id = $1
		ORDER BY created_at, id`, personID,
	)
	if err != nil {
		return nil, fmt.Errorf("full history: %w", err)
	}
	defer rows.Close()
	return scanHistory(rows)
}

func (s *PostgresStore) LatestProfile(ctx context.Context, personID uuid.UUID) (*models.DerivedProfile, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, person_id, profile, version, computed_from_ids, created_at
		FROM personas
		WHERE person_id = $1
		ORDER BY version DESC
		LIMIT 1`, personID,
	)
	profile, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("latest profile: %w", err)
	}
	return profile, nil
}

func (s *PostgresStore) ListProfiles(ctx context.Context, personID uuid.UUID) ([]models.DerivedProfile, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, person_id, profile, version, computed_from_ids, created_at
		FROM personas
		WHERE person_id = $1
		ORDER BY version DESC`, personID,
	)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	profiles := []models.DerivedProfile{}
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, *profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return profiles, nil
}

func (s *PostgresStore) SaveProfile(ctx context.Context, profile *models.DerivedProfile) error {
	profileJSON, err := json.Marshal(profile.Profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO personas (id, person_id, profile, version, computed_from_ids, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		profile.ID, profile.PersonID, profileJSON, profile.Version, profile.ComputedFromIDs, profile.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		if isForeignKeyViolation(err) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("insert derived profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveRecomputation(ctx context.Context, entry *models.HistoryEntry, profile *models.DerivedProfile) error {
	profileJSON, err := json.Marshal(profile.Profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin recomputation tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO person_data (id, person_id, raw_text, source, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		entry.ID, entry.PersonID, entry.RawText, entry.Source, entry.CreatedAt,
	); err != nil {
		if isForeignKeyViolation(err) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("insert history entry: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO personas (id, person_id, profile, version, computed_from_ids, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		profile.ID, profile.PersonID, profileJSON, profile.Version, profile.ComputedFromIDs, profile.CreatedAt,
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert derived profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit recomputation tx: %w", err)
	}
	return nil
}

func scanHistory(rows pgx.Rows) ([]models.HistoryEntry, error) {
	entries := []models.HistoryEntry{}
	for rows.Next() {
		var e models.HistoryEntry
		if err := rows.Scan(&e.ID, &e.PersonID, &e.RawText, &e.Source, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

func scanProfile(row pgx.Row) (*models.DerivedProfile, error) {
	var p models.DerivedProfile
	var profileJSON []byte
	if err := row.Scan(&p.ID, &p.PersonID, &profileJSON, &p.Version, &p.ComputedFromIDs, &p.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(profileJSON, &p.Profile); err != nil {
		return nil, fmt.Errorf("decode profile json: %w", err)
	}
	return &p, nil
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
