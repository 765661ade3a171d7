// Package tls bootstraps the certificate pair the API server listens
// with, generating a self-signed one for installs that have no PKI.
package tls

import (
	"errors"
	"fmt"
	"os"
)

// Ensure makes certFile and keyFile usable: existing files are left
// alone, a fully absent pair is generated self-signed for commonName.
// A half-present pair is an error rather than a silent regeneration.
func Ensure(certFile, keyFile, commonName string) error {
	certExists := fileExists(certFile)
	keyExists := fileExists(keyFile)

	switch {
	case certExists && keyExists:
		return nil
	case certExists != keyExists:
		return errors.New("certificate and key must both exist or both be absent")
	}

	if err := GenerateSelfSignedCert(CertConfig{
		CommonName: commonName,
		DNSNames:   []string{commonName, "localhost"},
		IPAddresses: []string{
			"127.0.0.1",
		},
		CertPath: certFile,
		KeyPath:  keyFile,
	}); err != nil {
		return fmt.Errorf("generate self-signed certificate: %w", err)
	}
	return nil
}

func fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}
