package config

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseTLS_Disabled(t *testing.T) {
	cfg := &Config{DBHost: "mariadb"}
	tlsCfg, err := cfg.DatabaseTLS()
	require.NoError(t, err)
	assert.Nil(t, tlsCfg)
}

func TestDatabaseTLS_CAOnly(t *testing.T) {
	pki := newTestPKI(t)

	cfg := &Config{DBHost: "mariadb", DBTLSCACert: pki.caPath}
	tlsCfg, err := cfg.DatabaseTLS()
	require.NoError(t, err)
	require.NotNil(t, tlsCfg)
	assert.NotNil(t, tlsCfg.RootCAs)
	assert.Empty(t, tlsCfg.Certificates)
	assert.Equal(t, "mariadb", tlsCfg.ServerName)
}

func TestDatabaseTLS_ClientCert(t *testing.T) {
	pki := newTestPKI(t)

	cfg := &Config{
		DBHost:          "10.0.0.5",
		DBTLSCert:       pki.certPath,
		DBTLSKey:        pki.keyPath,
		DBTLSServerName: "db.mail.internal",
	}
	tlsCfg, err := cfg.DatabaseTLS()
	require.NoError(t, err)
	require.NotNil(t, tlsCfg)
	assert.Len(t, tlsCfg.Certificates, 1)
	assert.Equal(t, "db.mail.internal", tlsCfg.ServerName)
}

func TestDatabaseTLS_MissingCertFile(t *testing.T) {
	cfg := &Config{
		DBTLSCert: "/nonexistent/cert.pem",
		DBTLSKey:  "/nonexistent/key.pem",
	}
	_, err := cfg.DatabaseTLS()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load database client cert")
}

func TestDatabaseTLS_InvalidCACert(t *testing.T) {
	badCA := filepath.Join(t.TempDir(), "bad-ca.pem")
	require.NoError(t, os.WriteFile(badCA, []byte("not a cert"), 0o600))

	cfg := &Config{DBTLSCACert: badCA}
	_, err := cfg.DatabaseTLS()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse database CA cert")
}

type testPKI struct {
	caPath   string
	certPath string
	keyPath  string
}

// newTestPKI writes a throwaway CA and a client certificate signed by it.
func newTestPKI(t *testing.T) testPKI {
	t.Helper()
	dir := t.TempDir()

	caKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	caTemplate := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "Mail DB CA"},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
	}
	caDER, err := x509.CreateCertificate(rand.Reader, caTemplate, caTemplate, &caKey.PublicKey, caKey)
	require.NoError(t, err)

	clientKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	clientTemplate := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject:      pkix.Name{CommonName: "mailu_api"},
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}
	clientDER, err := x509.CreateCertificate(rand.Reader, clientTemplate, caTemplate, &clientKey.PublicKey, caKey)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(clientKey)
	require.NoError(t, err)

	pki := testPKI{
		caPath:   filepath.Join(dir, "ca.pem"),
		certPath: filepath.Join(dir, "client.pem"),
		keyPath:  filepath.Join(dir, "client-key.pem"),
	}
	writePEM(t, pki.caPath, "CERTIFICATE", caDER)
	writePEM(t, pki.certPath, "CERTIFICATE", clientDER)
	writePEM(t, pki.keyPath, "EC PRIVATE KEY", keyDER)
	return pki
}

func writePEM(t *testing.T, path, blockType string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: data}), 0o600))
}
