package database

import (
	"net"
	"net/url"
	"strconv"

	"github.com/rickgao/empire-bidder/internal/config"
)

// ApplicationName tags bidder sessions in pg_stat_activity.
const ApplicationName = "empire-bidder"

// BuildConnString builds a PostgreSQL URL from config. Credentials are
// escaped by net/url; an empty ssl mode means prefer.
func BuildConnString(cfg config.DBConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	q := url.Values{}
	q.Set("sslmode", sslMode)
	q.Set("application_name", ApplicationName)

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}
