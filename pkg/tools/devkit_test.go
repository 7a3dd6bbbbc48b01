package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osbridge/pkgmgr-mcp/pkg/config"
	"github.com/osbridge/pkgmgr-mcp/pkg/types"
)

func devkitBase() BaseTool {
	return BaseTool{Cfg: &config.Config{ServerName: "mcp-devkit"}}
}

func TestEncodeDecodeBase64(t *testing.T) {
	t.Parallel()

	encode := &EncodeBase64Tool{devkitBase()}
	resp, err := encode.Run(context.Background(), map[string]interface{}{"text": "hello world"})
	require.NoError(t, err)
	encoded := resp.Data.(map[string]interface{})["encoded"].(string)
	assert.Equal(t, "aGVsbG8gd29ybGQ=", encoded)

	decode := &DecodeBase64Tool{devkitBase()}
	resp, err = decode.Run(context.Background(), map[string]interface{}{"text": encoded})
	require.NoError(t, err)
	assert.Equal(t, "hello world", resp.Data.(map[string]interface{})["decoded"])
}

func TestDecodeBase64Invalid(t *testing.T) {
	t.Parallel()

	decode := &DecodeBase64Tool{devkitBase()}
	_, err := decode.Run(context.Background(), map[string]interface{}{"text": "@@not-base64@@"})
	require.Error(t, err)
	assert.Equal(t, types.ErrKindInvalidRequest, err.(*types.MCPError).Kind)
}

func TestURLEncode(t *testing.T) {
	t.Parallel()

	tool := &URLEncodeTool{devkitBase()}
	resp, err := tool.Run(context.Background(), map[string]interface{}{"text": "a b&c=d"})
	require.NoError(t, err)
	assert.Equal(t, "a+b%26c%3Dd", resp.Data.(map[string]interface{})["encoded"])
}

func TestGenerateGUID(t *testing.T) {
	t.Parallel()

	tool := &GenerateGUIDTool{devkitBase()}

	resp, err := tool.Run(context.Background(), map[string]interface{}{})
	require.NoError(t, err)
	guid := resp.Data.(map[string]interface{})["guid"].(string)
	_, parseErr := uuid.Parse(guid)
	assert.NoError(t, parseErr)

	resp, err = tool.Run(context.Background(), map[string]interface{}{"delimiter": "_"})
	require.NoError(t, err)
	guid = resp.Data.(map[string]interface{})["guid"].(string)
	assert.Equal(t, 4, strings.Count(guid, "_"))
	assert.NotContains(t, guid, "-")

	resp, err = tool.Run(context.Background(), map[string]interface{}{"delimiter": ""})
	require.NoError(t, err)
	guid = resp.Data.(map[string]interface{})["guid"].(string)
	assert.Len(t, guid, 32)
}

func TestDecodeJWTUnverified(t *testing.T) {
	t.Parallel()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "1234567890",
		"name": "Jane Doe",
	}).SignedString([]byte("topsecret"))
	require.NoError(t, err)

	tool := &DecodeJWTTool{devkitBase()}
	resp, err := tool.Run(context.Background(), map[string]interface{}{"token": token})
	require.NoError(t, err)

	decoded := resp.Data.(*decodedJWT)
	assert.Equal(t, "HS256", decoded.Headers["alg"])
	assert.Equal(t, "Jane Doe", decoded.Claims["name"])
	assert.NotEmpty(t, decoded.Signature)
	assert.Nil(t, decoded.SignatureVerified)
}

func TestDecodeJWTHMACVerification(t *testing.T) {
	t.Parallel()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "abc",
	}).SignedString([]byte("topsecret"))
	require.NoError(t, err)

	tool := &DecodeJWTTool{devkitBase()}

	resp, err := tool.Run(context.Background(), map[string]interface{}{
		"token":      token,
		"public_key": "topsecret",
	})
	require.NoError(t, err)
	decoded := resp.Data.(*decodedJWT)
	require.NotNil(t, decoded.SignatureVerified)
	assert.True(t, *decoded.SignatureVerified)

	resp, err = tool.Run(context.Background(), map[string]interface{}{
		"token":      token,
		"public_key": "wrongsecret",
	})
	require.NoError(t, err)
	decoded = resp.Data.(*decodedJWT)
	require.NotNil(t, decoded.SignatureVerified)
	assert.False(t, *decoded.SignatureVerified)
}

func TestDecodeJWTMalformed(t *testing.T) {
	t.Parallel()

	tool := &DecodeJWTTool{devkitBase()}
	_, err := tool.Run(context.Background(), map[string]interface{}{"token": "not.a.jwt.at.all"})
	require.Error(t, err)
	assert.Equal(t, types.ErrKindInvalidRequest, err.(*types.MCPError).Kind)
}
