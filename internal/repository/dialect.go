package repository

import (
	"fmt"
	"net/url"
	"strings"
)

// Dialect names a supported SQL backend.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// sqlitePragmas are appended to every sqlite DSN that sets none itself.
const sqlitePragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// DetectDialect infers the dialect from a DATABASE_URL value and returns
// the DSN to hand to the matching database/sql driver.
func DetectDialect(dsn string) (Dialect, string, error) {
	trimmed := strings.TrimSpace(dsn)
	lower := strings.ToLower(trimmed)

	switch {
	case trimmed == "":
		return "", "", fmt.Errorf("db: empty dsn")
	case strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://"):
		return DialectPostgres, trimmed, nil
	case strings.Contains(lower, "host=") || strings.Contains(lower, "dbname=") || strings.Contains(lower, "sslmode="):
		return DialectPostgres, trimmed, nil
	case strings.HasPrefix(lower, "sqlite://"):
		return DialectSQLite, sqliteDSN(trimmed[len("sqlite://"):]), nil
	case strings.HasPrefix(lower, "sqlite3://"):
		return DialectSQLite, sqliteDSN(trimmed[len("sqlite3://"):]), nil
	case strings.HasPrefix(lower, "file:"), !strings.Contains(lower, "://"):
		return DialectSQLite, sqliteDSN(trimmed), nil
	default:
		return "", "", fmt.Errorf("db: unsupported dsn: %s", redact(trimmed))
	}
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "_pragma=") {
		return path
	}
	if strings.Contains(path, "?") {
		return path + "&" + sqlitePragmas
	}

	return path + "?" + sqlitePragmas
}

// redact hides the password of a URL shaped DSN.
func redact(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "<invalid dsn>"
	}

	return u.Redacted()
}

type queries struct {
	createTable string
	insert      string
	selectByID  string
}

func queriesFor(d Dialect) queries {
	q := queries{
		createTable: `
		CREATE TABLE IF NOT EXISTS proxy (
			id VARCHAR(32) PRIMARY KEY,
			url TEXT NOT NULL,
			user_agent VARCHAR(1024) NULL
		);`,
		insert:     "INSERT INTO proxy (id, url, user_agent) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING;",
		selectByID: "SELECT id, url, user_agent FROM proxy WHERE id = $1;",
	}

	if d == DialectSQLite {
		q.insert = "INSERT INTO proxy (id, url, user_agent) VALUES (?, ?, ?) ON CONFLICT (id) DO NOTHING;"
		q.selectByID = "SELECT id, url, user_agent FROM proxy WHERE id = ?;"
	}

	return q
}
