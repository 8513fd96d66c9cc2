package config

import (
	"crypto/tls"

	"github.com/pkg/errors"
)

type TLSClientOptions struct {
	CertFile           string `json:"certFile"`
	KeyFile            string `json:"keyFile"`
	InsecureSkipVerify bool   `json:"insecureSkipVerify"`
}

func (to *TLSClientOptions) ToTLSConfig() (*tls.Config, error) {
	certs, err := loadCertificates(to.CertFile, to.KeyFile)
	if err != nil {
		return nil, err
	}

	if to.InsecureSkipVerify {
		log.Warn("redis TLS certificate verification is disabled")
	}

	return &tls.Config{
		Certificates:       certs,
		InsecureSkipVerify: to.InsecureSkipVerify,
	}, nil
}

type TLSServerOptions struct {
	CertFile string `json:"certFile"`
	KeyFile  string `json:"keyFile"`
}

func (to *TLSServerOptions) ToTLSConfig() (*tls.Config, error) {
	certs, err := loadCertificates(to.CertFile, to.KeyFile)
	if err != nil {
		return nil, err
	}

	return &tls.Config{
		Certificates: certs,
	}, nil
}

func loadCertificates(certFile, keyFile string) ([]tls.Certificate, error) {
	certs := make([]tls.Certificate, 0)
	if len(certFile) > 0 && len(keyFile) > 0 {
		cert, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load TLS key pair")
		}
		certs = append(certs, cert)
	}

	return certs, nil
}
