package factory

import (
	"errors"
	"net/url"
	"strings"

	"github.com/loykin/converge/internal/history"
	"github.com/loykin/converge/internal/history/clickhouse"
)

// NewSinkFromDSN creates a history sink based on DSN format.
// Supported formats:
//   - "clickhouse://host:port?table=table" (native protocol)
//   - "http://host:8123?table=table" (ClickHouse HTTP interface)
//   - "https://host:8443?table=table"
//   - "memory://" (in-process buffer)
func NewSinkFromDSN(dsn string) (history.Sink, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("empty DSN")
	}

	lower := strings.ToLower(dsn)

	if strings.HasPrefix(lower, "memory://") {
		return history.NewMemorySink(), nil
	}

	if strings.HasPrefix(lower, "clickhouse://") {
		host, table, err := parseHostTable(dsn, "localhost:9000")
		if err != nil {
			return nil, err
		}
		return clickhouse.New(host, table)
	}

	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return nil, err
		}
		table := u.Query().Get("table")
		if table == "" {
			table = "reconcile_history"
		}
		base := u.Scheme + "://" + u.Host
		return history.NewClickHouseHTTPSink(base, table), nil
	}

	return nil, errors.New("unsupported DSN format: " + dsn)
}

func parseHostTable(dsn, defaultHost string) (string, string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", "", err
	}
	host := u.Host
	if host == "" {
		host = defaultHost
	}
	table := u.Query().Get("table")
	if table == "" {
		table = "reconcile_history"
	}
	return host, table, nil
}
