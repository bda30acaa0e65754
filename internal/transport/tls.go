package transport

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"
)

func clientTLSConfig(c Config) (*tls.Config, error) {
	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: !c.TLS.Verify(),
	}
	serverName := strings.TrimSpace(c.TLS.ServerName)
	if serverName == "" {
		serverName = c.Host
	}
	cfg.ServerName = serverName

	if caPath := strings.TrimSpace(c.TLS.CAFile); caPath != "" {
		caPEM, err := os.ReadFile(caPath)
		if err != nil {
			return nil, err
		}
		pool := x509.NewCertPool()
		if ok := pool.AppendCertsFromPEM(caPEM); !ok {
			return nil, fmt.Errorf("transport: parse tls ca bundle: %s", caPath)
		}
		cfg.RootCAs = pool
	}
	return cfg, nil
}
