package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	temporalclient "go.temporal.io/sdk/client"
)

// TemporalTLS builds a *tls.Config from the Temporal TLS fields.
// Returns nil, nil if no cert/key is configured (plaintext mode).
func (c *Config) TemporalTLS() (*tls.Config, error) {
	if c.TemporalTLSCert == "" && c.TemporalTLSKey == "" {
		return nil, nil
	}

	cert, err := tls.LoadX509KeyPair(c.TemporalTLSCert, c.TemporalTLSKey)
	if err != nil {
		return nil, fmt.Errorf("load temporal client cert: %w", err)
	}
	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		ServerName:   c.TemporalTLSServerName,
	}

	if c.TemporalTLSCACert != "" {
		caPEM, err := os.ReadFile(c.TemporalTLSCACert)
		if err != nil {
			return nil, fmt.Errorf("read temporal CA cert: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, fmt.Errorf("failed to parse temporal CA cert")
		}
		tlsConfig.RootCAs = pool
	}

	return tlsConfig, nil
}

// TemporalClientOptions returns dial options for the configured Temporal
// frontend, including mTLS when certificates are set.
func (c *Config) TemporalClientOptions() (temporalclient.Options, error) {
	opts := temporalclient.Options{
		HostPort:  c.TemporalAddress,
		Namespace: c.TemporalNamespace,
	}
	tlsCfg, err := c.TemporalTLS()
	if err != nil {
		return opts, err
	}
	if tlsCfg != nil {
		opts.ConnectionOptions = temporalclient.ConnectionOptions{TLS: tlsCfg}
	}
	return opts, nil
}
