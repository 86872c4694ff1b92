package x402a2a

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckExtensionActivation(t *testing.T) {
	assert.True(t, CheckExtensionActivation(map[string]string{
		ExtensionHeader: ExtensionURI,
	}))
	assert.True(t, CheckExtensionActivation(map[string]string{
		ExtensionHeader: "https://example.com/other/v1, " + ExtensionURI,
	}), "uri may appear among other extensions")

	assert.False(t, CheckExtensionActivation(nil))
	assert.False(t, CheckExtensionActivation(map[string]string{}))
	assert.False(t, CheckExtensionActivation(map[string]string{
		ExtensionHeader: "https://example.com/other/v1",
	}))
}

func TestAddExtensionActivationHeader(t *testing.T) {
	headers := AddExtensionActivationHeader(nil)
	assert.Equal(t, ExtensionURI, headers[ExtensionHeader])

	headers = AddExtensionActivationHeader(map[string]string{"X-Other": "1"})
	assert.Equal(t, ExtensionURI, headers[ExtensionHeader])
	assert.Equal(t, "1", headers["X-Other"])
}

func TestNewExtensionDeclaration(t *testing.T) {
	decl := NewExtensionDeclaration("", true)
	assert.Equal(t, ExtensionURI, decl.URI)
	assert.True(t, decl.Required)
	assert.NotEmpty(t, decl.Description)

	decl = NewExtensionDeclaration("Paid image generation", false)
	assert.Equal(t, "Paid image generation", decl.Description)
	assert.False(t, decl.Required)
}

func TestDefaultExtensionConfig(t *testing.T) {
	cfg := DefaultExtensionConfig()
	assert.Equal(t, ExtensionURI, cfg.ExtensionURI)
	assert.Equal(t, ProtocolVersion, cfg.X402Version)
	assert.True(t, cfg.Required)
}
