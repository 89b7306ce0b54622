package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// MySQLTLSConfigName is the name under which DatabaseTLS is registered with
// the MySQL driver and referenced from the DSN.
const MySQLTLSConfigName = "mail-api"

// DatabaseTLS builds a *tls.Config from the MAIL_MYSQL_TLS_* fields.
// Returns nil, nil if neither a CA nor a client cert is configured.
func (c *Config) DatabaseTLS() (*tls.Config, error) {
	if c.DBTLSCACert == "" && c.DBTLSCert == "" {
		return nil, nil
	}

	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}

	if c.DBTLSCert != "" {
		cert, err := tls.LoadX509KeyPair(c.DBTLSCert, c.DBTLSKey)
		if err != nil {
			return nil, fmt.Errorf("load database client cert: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	if c.DBTLSCACert != "" {
		caPEM, err := os.ReadFile(c.DBTLSCACert)
		if err != nil {
			return nil, fmt.Errorf("read database CA cert: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, fmt.Errorf("failed to parse database CA cert")
		}
		tlsConfig.RootCAs = pool
	}

	if c.DBTLSServerName != "" {
		tlsConfig.ServerName = c.DBTLSServerName
	} else {
		tlsConfig.ServerName = c.DBHost
	}

	return tlsConfig, nil
}
