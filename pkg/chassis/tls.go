package chassis

import (
	"crypto/tls"

	"github.com/hazyhaar/placestd/pkg/mcpquic"
)

// alpnProtocols are negotiated on the shared UDP port.
var alpnProtocols = []string{"h3", mcpquic.ALPNProtocolMCP}

// DevelopmentTLSConfig generates a self-signed certificate advertising both
// HTTP/3 and MCP over QUIC. Development only.
func DevelopmentTLSConfig() (*tls.Config, error) {
	return mcpquic.SelfSignedTLSConfig(alpnProtocols...)
}

// ProductionTLSConfig loads cert/key from files with the same dual ALPN.
func ProductionTLSConfig(certFile, keyFile string) (*tls.Config, error) {
	return mcpquic.ServerTLSConfig(certFile, keyFile, alpnProtocols...)
}
