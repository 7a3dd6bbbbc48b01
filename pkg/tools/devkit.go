package tools

import (
	"context"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"net/url"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/osbridge/pkgmgr-mcp/pkg/types"
)

// Developer utility tools: pure in-process transforms with no backend and no
// executor. The only failure mode they can produce is INVALID_REQUEST.

// --- encode_base64 ---

type EncodeBase64Tool struct{ BaseTool }

func (t *EncodeBase64Tool) Name() string        { return "encode_base64" }
func (t *EncodeBase64Tool) Description() string { return "Encodes text to standard base64" }
func (t *EncodeBase64Tool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"text": map[string]interface{}{
				"type":        "string",
				"description": "Text to encode",
			},
		},
		"required": []string{"text"},
	}
}

func (t *EncodeBase64Tool) Run(_ context.Context, args map[string]interface{}) (*StandardResponse, error) {
	text, ok := args["text"].(string)
	if !ok {
		err := types.InvalidRequest("parameter %q is required", "text")
		err.Tool = t.Name()
		return nil, err
	}
	encoded := base64.StdEncoding.EncodeToString([]byte(text))
	return t.newResponse(t.Name(), map[string]interface{}{"encoded": encoded}), nil
}

// --- decode_base64 ---

type DecodeBase64Tool struct{ BaseTool }

func (t *DecodeBase64Tool) Name() string        { return "decode_base64" }
func (t *DecodeBase64Tool) Description() string { return "Decodes standard base64 to text" }
func (t *DecodeBase64Tool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"text": map[string]interface{}{
				"type":        "string",
				"description": "Base64 text to decode",
			},
		},
		"required": []string{"text"},
	}
}

func (t *DecodeBase64Tool) Run(_ context.Context, args map[string]interface{}) (*StandardResponse, error) {
	text, ok := args["text"].(string)
	if !ok {
		argErr := types.InvalidRequest("parameter %q is required", "text")
		argErr.Tool = t.Name()
		return nil, argErr
	}
	decoded, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		mcpErr := types.InvalidRequest("input is not valid base64: %v", err)
		mcpErr.Tool = t.Name()
		return nil, mcpErr
	}
	return t.newResponse(t.Name(), map[string]interface{}{"decoded": string(decoded)}), nil
}

// --- url_encode ---

type URLEncodeTool struct{ BaseTool }

func (t *URLEncodeTool) Name() string        { return "url_encode" }
func (t *URLEncodeTool) Description() string { return "Percent-encodes text for use in a URL query" }
func (t *URLEncodeTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"text": map[string]interface{}{
				"type":        "string",
				"description": "Text to percent-encode",
			},
		},
		"required": []string{"text"},
	}
}

func (t *URLEncodeTool) Run(_ context.Context, args map[string]interface{}) (*StandardResponse, error) {
	text, ok := args["text"].(string)
	if !ok {
		err := types.InvalidRequest("parameter %q is required", "text")
		err.Tool = t.Name()
		return nil, err
	}
	return t.newResponse(t.Name(), map[string]interface{}{"encoded": url.QueryEscape(text)}), nil
}

// --- generate_guid ---

type GenerateGUIDTool struct{ BaseTool }

func (t *GenerateGUIDTool) Name() string { return "generate_guid" }
func (t *GenerateGUIDTool) Description() string {
	return "Generates a random GUID, optionally joining its segments with a custom delimiter"
}
func (t *GenerateGUIDTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"delimiter": map[string]interface{}{
				"type":        "string",
				"description": "Delimiter placed between GUID segments; empty string removes the dashes",
			},
		},
	}
}

func (t *GenerateGUIDTool) Run(_ context.Context, args map[string]interface{}) (*StandardResponse, error) {
	guid := uuid.NewString()
	if raw, present := args["delimiter"]; present {
		if delim, ok := raw.(string); ok {
			guid = strings.Join(strings.Split(guid, "-"), delim)
		}
	}
	return t.newResponse(t.Name(), map[string]interface{}{"guid": guid}), nil
}

// --- decode_jwt ---

type DecodeJWTTool struct{ BaseTool }

type decodedJWT struct {
	Headers   map[string]interface{} `json:"headers"`
	Claims    map[string]interface{} `json:"claims"`
	Signature string                 `json:"signature"`
	// nil when no key material was supplied.
	SignatureVerified *bool `json:"signature_verified,omitempty"`
}

func (t *DecodeJWTTool) Name() string { return "decode_jwt" }
func (t *DecodeJWTTool) Description() string {
	return "Decodes a JWT without verification; verifies the signature when a public key or certificate is supplied"
}
func (t *DecodeJWTTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"token": map[string]interface{}{
				"type":        "string",
				"description": "The JWT to decode",
			},
			"public_key": map[string]interface{}{
				"type":        "string",
				"description": "Optional PEM public key (or HMAC secret for HS* tokens) to verify the signature",
			},
			"certificate": map[string]interface{}{
				"type":        "string",
				"description": "Optional PEM certificate whose public key verifies the signature",
			},
		},
		"required": []string{"token"},
	}
}

func (t *DecodeJWTTool) Run(_ context.Context, args map[string]interface{}) (*StandardResponse, error) {
	tokenStr, argErr := requireStringArg(args, "token", t.Name())
	if argErr != nil {
		return nil, argErr
	}

	parser := jwt.NewParser()
	token, parts, err := parser.ParseUnverified(tokenStr, jwt.MapClaims{})
	if err != nil {
		mcpErr := types.InvalidRequest("failed to decode JWT: %v", err)
		mcpErr.Tool = t.Name()
		return nil, mcpErr
	}

	claims := map[string]interface{}(token.Claims.(jwt.MapClaims))
	result := &decodedJWT{
		Headers:   token.Header,
		Claims:    claims,
		Signature: parts[2],
	}

	if keyMaterial, fromCert := pickKeyMaterial(args); keyMaterial != "" {
		verified := verifySignature(tokenStr, keyMaterial, fromCert)
		result.SignatureVerified = &verified
	}

	return t.newResponse(t.Name(), result), nil
}

// pickKeyMaterial selects the certificate over the public key when both are
// supplied, matching the precedence of the original tool surface.
func pickKeyMaterial(args map[string]interface{}) (material string, fromCert bool) {
	if cert := getStringArg(args, "certificate", ""); cert != "" {
		return cert, true
	}
	return getStringArg(args, "public_key", ""), false
}

// verifySignature re-parses the token with the supplied key. Claim
// validation (expiry etc.) is disabled: this tool answers "does the
// signature match", nothing more.
func verifySignature(tokenStr, keyMaterial string, fromCert bool) bool {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	_, err := parser.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); ok {
			if fromCert {
				return nil, fmt.Errorf("a certificate cannot verify an HMAC-signed token")
			}
			return []byte(keyMaterial), nil
		}
		if fromCert {
			return publicKeyFromCertificate(keyMaterial)
		}
		return parsePublicKey(keyMaterial)
	})
	return err == nil
}

func publicKeyFromCertificate(material string) (interface{}, error) {
	block, _ := pem.Decode([]byte(ensurePEM(material, "CERTIFICATE")))
	if block == nil {
		return nil, fmt.Errorf("certificate is not valid PEM")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, err
	}
	return cert.PublicKey, nil
}

func parsePublicKey(material string) (interface{}, error) {
	block, _ := pem.Decode([]byte(ensurePEM(material, "PUBLIC KEY")))
	if block == nil {
		return nil, fmt.Errorf("public key is not valid PEM")
	}
	return x509.ParsePKIXPublicKey(block.Bytes)
}

// ensurePEM wraps bare base64 key material in PEM armor when the caller
// stripped it.
func ensurePEM(material, blockType string) string {
	trimmed := strings.TrimSpace(material)
	if strings.HasPrefix(trimmed, "-----BEGIN") {
		return trimmed
	}
	return fmt.Sprintf("-----BEGIN %s-----\n%s\n-----END %s-----", blockType, trimmed, blockType)
}

// RegisterDevkitTools registers the developer utility tool set.
func RegisterDevkitTools(registry *Registry, base BaseTool) {
	registry.Register(&EncodeBase64Tool{base})
	registry.Register(&DecodeBase64Tool{base})
	registry.Register(&URLEncodeTool{base})
	registry.Register(&GenerateGUIDTool{base})
	registry.Register(&DecodeJWTTool{base})
}
