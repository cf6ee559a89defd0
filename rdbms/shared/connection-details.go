package shared

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/relloyd/visitload/constants"
	"github.com/xo/dburl"
)

// ConnectionDetails is intended to hold credentials for a logical database connection.
type ConnectionDetails struct {
	Type        string `json:"type" errorTxt:"database type" mandatory:"yes" yaml:"type"`
	LogicalName string `json:"logicalName" yaml:"logicalName"`
	Dsn         string `json:"dsn" errorTxt:"data source name i.e. connect string" mandatory:"yes" yaml:"dsn"`
}

// String redacts passwords and pretty-prints the contents of ConnectionDetails.
func (c ConnectionDetails) String() string {
	return fmt.Sprintf("type = %v; logicalName = %v; dsn = %v", c.Type, c.LogicalName, c.RedactedDsn())
}

// RedactedDsn returns the DSN with any password masked.
// File based DSNs are returned as-is since they carry no credentials.
func (c ConnectionDetails) RedactedDsn() string {
	if c.Type == constants.ConnectionTypeSqlite {
		return c.Dsn
	}
	u, err := dburl.Parse(c.Dsn)
	if err != nil {
		return "<unparseable DSN>"
	}
	return u.Redacted()
}

// MarshalJSON keeps credentials out of pipe definitions printed by the dry-run output.
func (c ConnectionDetails) MarshalJSON() ([]byte, error) {
	type redacted struct {
		Type        string `json:"type"`
		LogicalName string `json:"logicalName,omitempty"`
		Dsn         string `json:"dsn"`
	}
	return json.Marshal(redacted{Type: c.Type, LogicalName: c.LogicalName, Dsn: c.RedactedDsn()})
}

// Parse checks the DSN can be understood by the driver for the connection type.
// It returns the database/sql driver name and the driver specific connect string.
func (c ConnectionDetails) Parse() (driverName string, connectString string, err error) {
	if c.Dsn == "" { // if the Dsn is invalid...
		return "", "", errors.New("DSN not found")
	}
	switch c.Type {
	case constants.ConnectionTypeSqlite:
		return constants.DriverNameSqlite, strings.TrimPrefix(c.Dsn, "sqlite3:"), nil
	case constants.ConnectionTypePostgres:
		u, err := dburl.Parse(c.Dsn)
		if err != nil {
			return "", "", errors.Wrap(err, "DSN could not be parsed")
		}
		if u.Driver != "postgres" {
			return "", "", errors.Errorf("DSN scheme %q is not a postgres scheme", u.OriginalScheme)
		}
		// dburl generates a libpq style key=value string that the pgx stdlib driver accepts.
		return constants.DriverNamePgx, u.DSN, nil
	default:
		return "", "", errors.Errorf("unsupported database type, %q", c.Type)
	}
}
