// Package x402a2a implements the x402 payment extension for agent-to-agent
// conversational tasks: server- and client-side executors that gate a
// delegate's work behind a verified and settled on-chain payment, a state
// accessor that persists protocol state on task metadata, and the
// facilitator, wallet, and merchant collaborator contracts around them.
package x402a2a

import "strings"

// ExtensionURI identifies the x402 payment extension in agent capability
// declarations and activation headers.
const ExtensionURI = "https://github.com/google-a2a/a2a-x402/v0.1"

// ExtensionHeader is the transport-level header through which peers declare
// active extensions.
const ExtensionHeader = "X-A2A-Extensions"

// Version information.
const (
	Version          = "0.1.0"
	ProtocolVersion  = 1
	ExtensionVersion = "0.1"
)

// ExtensionConfig configures how executors participate in the extension.
type ExtensionConfig struct {
	ExtensionURI string
	Version      string
	X402Version  int
	Required     bool
}

// DefaultExtensionConfig returns the standard extension configuration.
func DefaultExtensionConfig() ExtensionConfig {
	return ExtensionConfig{
		ExtensionURI: ExtensionURI,
		Version:      ExtensionVersion,
		X402Version:  ProtocolVersion,
		Required:     true,
	}
}

// ExtensionDeclaration is the capability entry an agent publishes on its
// card to advertise x402 support.
type ExtensionDeclaration struct {
	URI         string `json:"uri"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// NewExtensionDeclaration creates the declaration for an agent card.
func NewExtensionDeclaration(description string, required bool) ExtensionDeclaration {
	if description == "" {
		description = "Supports x402 payments"
	}
	return ExtensionDeclaration{
		URI:         ExtensionURI,
		Description: description,
		Required:    required,
	}
}

// CheckExtensionActivation reports whether the peer opted into the x402
// extension. This is a presence check on the extensions header, not a
// negotiation; no downgrade path exists.
func CheckExtensionActivation(headers map[string]string) bool {
	return strings.Contains(headers[ExtensionHeader], ExtensionURI)
}

// AddExtensionActivationHeader echoes the extension URI on a response header
// map to confirm activation.
func AddExtensionActivationHeader(headers map[string]string) map[string]string {
	if headers == nil {
		headers = make(map[string]string)
	}
	headers[ExtensionHeader] = ExtensionURI
	return headers
}
