// Package postgresdb provides a PostgreSQL-based implementation of the storage
// contract: users with hashed passwords and short links with ad counters.
package postgresdb

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/patric-chuzhbe/adshrt/internal/models"
	"github.com/patric-chuzhbe/adshrt/internal/user"
)

const uniqueViolationCode = "23505"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

const embeddedMigrationsDir = "migrations"

// PostgresDB is the PostgreSQL-backed storage.
type PostgresDB struct {
	database          *sql.DB
	connectionTimeout time.Duration
}

type initOptions struct {
	DBPreReset bool
}

// InitOption defines a functional option for configuring database initialization.
type InitOption func(*initOptions)

// WithDBPreReset drops every table of the public schema before migrating. Tests only.
func WithDBPreReset(value bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = value
	}
}

// New opens the database, applies goose migrations and returns the storage.
// An empty migrationsDir uses the migrations compiled into the binary;
// otherwise they are read from that directory on disk.
func New(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	migrationsDir string,
	optionsProto ...InitOption,
) (*PostgresDB, error) {
	options := &initOptions{
		DBPreReset: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	database, err := sql.Open("pgx", databaseDSN)
	if err != nil {
		return nil, err
	}

	result := &PostgresDB{
		database:          database,
		connectionTimeout: connectionTimeout,
	}

	if options.DBPreReset {
		if err := result.resetDB(ctx); err != nil {
			return nil,
				fmt.Errorf(
					"in internal/db/postgresdb/postgresdb.go/New(): error while `result.resetDB()` calling: %w",
					err,
				)
		}
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `goose.SetDialect()` calling: %w",
				err,
			)
	}

	if migrationsDir == "" {
		goose.SetBaseFS(embeddedMigrations)
		migrationsDir = embeddedMigrationsDir
	} else {
		goose.SetBaseFS(nil)
	}

	if err := goose.UpContext(ctx, result.database, migrationsDir); err != nil {
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `goose.UpContext()` calling: %w",
				err,
			)
	}

	return result, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

// CreateUser inserts a user and returns its ID.
// A taken username yields models.ErrUsernameTaken.
func (db *PostgresDB) CreateUser(ctx context.Context, usr *user.User) (int64, error) {
	row := db.database.QueryRowContext(
		ctx,
		`INSERT INTO users (username, password) VALUES ($1, $2) RETURNING id`,
		usr.Username,
		usr.PasswordHash,
	)
	var userID int64
	if err := row.Scan(&userID); err != nil {
		if isUniqueViolation(err) {
			return 0, models.ErrUsernameTaken
		}
		return 0, err
	}

	return userID, nil
}

// GetUserByID fetches a user. An unknown ID yields a user with a zero ID and no error.
func (db *PostgresDB) GetUserByID(ctx context.Context, userID int64) (*user.User, error) {
	if userID == 0 {
		return &user.User{}, nil
	}

	return db.getUser(
		ctx,
		`SELECT id, username, password FROM users WHERE id = $1`,
		userID,
	)
}

// GetUserByUsername fetches a user. An unknown username yields a user with a zero ID and no error.
func (db *PostgresDB) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	return db.getUser(
		ctx,
		`SELECT id, username, password FROM users WHERE username = $1`,
		username,
	)
}

func (db *PostgresDB) getUser(ctx context.Context, query string, arg any) (*user.User, error) {
	usr := &user.User{}
	err := db.database.QueryRowContext(ctx, query, arg).Scan(&usr.ID, &usr.Username, &usr.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &user.User{}, nil
		}
		return &user.User{}, err
	}

	return usr, nil
}

// InsertShortLink stores a new mapping and fills link.ID.
// A taken short code yields models.ErrShortCodeTaken.
func (db *PostgresDB) InsertShortLink(ctx context.Context, link *models.ShortLink) error {
	row := db.database.QueryRowContext(
		ctx,
		`INSERT INTO urls (short, long, user_id) VALUES ($1, $2, $3) RETURNING id`,
		link.Short,
		link.Long,
		link.UserID,
	)
	if err := row.Scan(&link.ID); err != nil {
		if isUniqueViolation(err) {
			return models.ErrShortCodeTaken
		}
		return err
	}

	return nil
}

// FindFullByShort returns the long URL of a short code without touching the counters.
func (db *PostgresDB) FindFullByShort(ctx context.Context, short string) (string, bool, error) {
	var full string
	err := db.database.QueryRowContext(
		ctx,
		`SELECT long FROM urls WHERE short = $1`,
		short,
	).Scan(&full)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}

	return full, true, nil
}

// IncrementCounters adds the deltas to a link's counters in one statement and returns its long URL.
func (db *PostgresDB) IncrementCounters(
	ctx context.Context,
	short string,
	impressions,
	clicks int64,
) (string, bool, error) {
	var full string
	err := db.database.QueryRowContext(
		ctx,
		`
			UPDATE urls
				SET impressions = impressions + $2,
					clicks = clicks + $3
				WHERE short = $1
				RETURNING long
		`,
		short,
		impressions,
		clicks,
	).Scan(&full)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}

	return full, true, nil
}

// GetUserLinks lists the links owned by a user, oldest first.
func (db *PostgresDB) GetUserLinks(ctx context.Context, userID int64) ([]models.ShortLink, error) {
	rows, err := db.database.QueryContext(
		ctx,
		`
			SELECT id, short, long, user_id, clicks, impressions
				FROM urls
				WHERE user_id = $1
				ORDER BY id
		`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []models.ShortLink{}
	for rows.Next() {
		var link models.ShortLink
		err = rows.Scan(&link.ID, &link.Short, &link.Long, &link.UserID, &link.Clicks, &link.Impressions)
		if err != nil {
			return nil, err
		}
		result = append(result, link)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// ResetUserCounters zeroes clicks and impressions of every link the user owns.
func (db *PostgresDB) ResetUserCounters(ctx context.Context, userID int64) error {
	_, err := db.database.ExecContext(
		ctx,
		`UPDATE urls SET clicks = 0, impressions = 0 WHERE user_id = $1`,
		userID,
	)

	return err
}

func (db *PostgresDB) GetNumberOfShortenedURLs(ctx context.Context) (int64, error) {
	return db.count(ctx, `SELECT COUNT(*) FROM urls`)
}

func (db *PostgresDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	return db.count(ctx, `SELECT COUNT(*) FROM users`)
}

func (db *PostgresDB) count(ctx context.Context, query string) (int64, error) {
	var n int64
	if err := db.database.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, err
	}

	return n, nil
}

// Ping verifies connectivity within the configured timeout.
func (db *PostgresDB) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(ctxWithTimeout)
}

func (db *PostgresDB) Close() error {
	return db.database.Close()
}

func (db *PostgresDB) resetDB(ctx context.Context) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			DO $$
			DECLARE
				r RECORD;
			BEGIN
				FOR r IN (SELECT tablename FROM pg_tables WHERE schemaname = 'public') LOOP
					EXECUTE 'DROP TABLE IF EXISTS ' || quote_ident(r.tablename) || ' CASCADE';
				END LOOP;
			END $$;
		`,
	)
	if err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/resetDB(): error while `db.database.ExecContext()` calling: %w",
			err,
		)
	}
	return nil
}
