package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rwidjaja/atscale-gatling/internal/archiver/config"
)

// DSN converts the configured repository URL into a lib/pq connection string.
// AtScale installs record the repository as a JDBC URL
// (jdbc:postgresql://host:port/db), so the jdbc: prefix is stripped and the
// configured credentials are injected. sslmode defaults to disable, matching
// the repository's usual on-host listener; a URL that already carries sslmode
// wins.
func DSN(cfg config.Postgres) (string, error) {
	raw := strings.TrimSpace(cfg.URL)
	if raw == "" {
		return "", fmt.Errorf("postgres url is empty")
	}
	raw = strings.TrimPrefix(raw, "jdbc:")

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse postgres url %q: %w", cfg.URL, err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return "", fmt.Errorf("unsupported postgres url scheme %q", u.Scheme)
	}

	if cfg.User != "" {
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.User, cfg.Password)
		} else {
			u.User = url.User(cfg.User)
		}
	}

	q := u.Query()
	if q.Get("sslmode") == "" {
		q.Set("sslmode", "disable")
		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}
