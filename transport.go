package stowhub

import (
	"crypto/tls"
	"net/http"
)

// InsecureTransport returns an http.Transport which does not verify TLS
// certificates. It is intended for talking to test servers.
func InsecureTransport() *http.Transport {
	return &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: true,
		},
	}
}
