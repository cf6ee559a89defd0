package config

import (
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	c "github.com/relloyd/visitload/constants"
	"github.com/relloyd/visitload/helper"
	"github.com/relloyd/visitload/logger"
	"github.com/relloyd/visitload/rdbms/shared"
	"github.com/spf13/viper"
	"github.com/xo/dburl"
)

// DatabaseConfig holds the target database settings read from the environment and an optional dotenv file.
type DatabaseConfig struct {
	Dsn      string `mapstructure:"VISITS_DSN" json:"-" yaml:"-"`
	Name     string `mapstructure:"POSTGRES_DB" json:"name" errorTxt:"POSTGRES_DB" mandatory:"yes"`
	User     string `mapstructure:"POSTGRES_USER" json:"user" errorTxt:"POSTGRES_USER" mandatory:"yes"`
	Password string `mapstructure:"POSTGRES_PASSWORD" json:"-"`
	Host     string `mapstructure:"DB_HOST" json:"host" errorTxt:"DB_HOST" mandatory:"yes"`
	Port     int    `mapstructure:"DB_PORT" json:"port"`
	SslMode  string `mapstructure:"DB_SSLMODE" json:"sslMode"`
}

var databaseEnvVars = []string{
	c.EnvVarDsn,
	c.EnvVarPostgresDb,
	c.EnvVarPostgresUser,
	c.EnvVarPostgresPassword,
	c.EnvVarDbHost,
	c.EnvVarDbPort,
	c.EnvVarDbSslMode,
}

// LoadDatabaseConfig reads the database settings from the process environment, falling back to values in
// envFile when it exists. Variables set in the environment win.
// A missing envFile is not an error.
func LoadDatabaseConfig(log logger.Logger, envFile string) (*DatabaseConfig, error) {
	v := viper.New()
	for _, k := range databaseEnvVars {
		if err := v.BindEnv(k); err != nil {
			return nil, errors.Wrapf(err, "unable to bind environment variable %v", k)
		}
	}
	v.SetDefault(c.EnvVarDbPort, c.DefaultPostgresPort)
	v.SetDefault(c.EnvVarDbSslMode, c.DefaultPostgresSslMode)
	if envFile != "" {
		p, err := helper.ExpandPath(envFile)
		if err != nil {
			return nil, err
		}
		if _, err = os.Stat(p); err == nil {
			v.SetConfigFile(p)
			v.SetConfigType("env")
			if err = v.ReadInConfig(); err != nil {
				return nil, errors.Wrapf(err, "unable to read env file %v", p)
			}
			log.Debug("read database settings from env file ", p)
		} else if os.IsNotExist(err) {
			log.Debug("env file ", p, " not found; using the environment only")
		} else {
			return nil, errors.Wrapf(err, "unable to read env file %v", p)
		}
	}
	cfg := &DatabaseConfig{}
	d, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true, // DB_PORT arrives as a string.
		Result:           cfg,
	})
	if err != nil {
		return nil, err
	}
	if err = d.Decode(v.AllSettings()); err != nil {
		return nil, errors.Wrap(err, "unable to decode database settings")
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks mandatory values are present and the port is in range.
// Nothing else is required when a DSN is supplied.
func (d *DatabaseConfig) Validate() error {
	if d.Dsn != "" {
		return nil
	}
	if err := helper.ValidateStructIsPopulated(d); err != nil {
		return err
	}
	if d.Port < 1 || d.Port > 65535 {
		return errors.Errorf("%v must be between 1 and 65535; got %d", c.EnvVarDbPort, d.Port)
	}
	return nil
}

// ConnectionDetails converts the settings to a connection that rdbms.OpenDbConnection can open.
// The connection type is taken from the DSN scheme when a DSN is supplied.
func (d *DatabaseConfig) ConnectionDetails() (shared.ConnectionDetails, error) {
	if d.Dsn != "" {
		u, err := dburl.Parse(d.Dsn)
		if err != nil {
			return shared.ConnectionDetails{}, errors.Wrapf(err, "unable to parse %v", c.EnvVarDsn)
		}
		switch u.Driver {
		case "postgres":
			return shared.ConnectionDetails{Type: c.ConnectionTypePostgres, LogicalName: c.DefaultConnectionName, Dsn: d.Dsn}, nil
		case "sqlite3":
			// Keep the file path that follows the scheme.
			path := strings.SplitN(d.Dsn, ":", 2)[1]
			return shared.ConnectionDetails{Type: c.ConnectionTypeSqlite, LogicalName: c.DefaultConnectionName, Dsn: path}, nil
		default:
			return shared.ConnectionDetails{}, errors.Errorf("unsupported database scheme %q in %v", u.OriginalScheme, c.EnvVarDsn)
		}
	}
	u := url.URL{
		Scheme: c.ConnectionTypePostgres,
		User:   url.UserPassword(d.User, d.Password),
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   "/" + d.Name,
	}
	if d.SslMode != "" {
		u.RawQuery = url.Values{"sslmode": []string{d.SslMode}}.Encode()
	}
	return shared.ConnectionDetails{Type: c.ConnectionTypePostgres, LogicalName: c.DefaultConnectionName, Dsn: u.String()}, nil
}
