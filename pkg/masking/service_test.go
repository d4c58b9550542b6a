package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewService(t *testing.T) {
	svc := NewService()
	assert.NotEmpty(t, svc.patterns, "should have compiled patterns")
	assert.NotEmpty(t, svc.codeMaskers, "should have registered code maskers")
	assert.Contains(t, svc.codeMaskers, "kubernetes_secret")
}

func TestMask_EmptyContent(t *testing.T) {
	svc := NewService()
	assert.Empty(t, svc.Mask(""))
}

func TestMask_DefaultsToSecurityGroup(t *testing.T) {
	svc := NewService()
	content := `api_key: "FAKE-NOT-REAL-API-KEY-XXXX"
password: "FAKE-S3CRET-PASS-NOT-REAL"
user@example.com contacted us`

	result := svc.Mask(content)

	assert.NotContains(t, result, "FAKE-NOT-REAL-API-KEY-XXXX")
	assert.NotContains(t, result, "FAKE-S3CRET-PASS-NOT-REAL")
	assert.NotContains(t, result, "user@example.com")
	assert.Contains(t, result, "[MASKED_API_KEY]")
	assert.Contains(t, result, "[MASKED_PASSWORD]")
	assert.Contains(t, result, "[MASKED_EMAIL]")
}

func TestMask_PreservesNonSensitiveContent(t *testing.T) {
	svc := NewService()
	content := `Configuration:
api_key: "FAKE-NOT-REAL-API-KEY-XXXX"
debug: true`

	result := svc.Mask(content, "basic")
	assert.Contains(t, result, "debug: true")
	assert.Contains(t, result, "[MASKED_API_KEY]")
}

func TestMask_UnknownGroupIsNoop(t *testing.T) {
	svc := NewService()
	content := `password: "FAKE-S3CRET-PASS-NOT-REAL"`
	result := svc.Mask(content, "nonexistent")
	assert.Equal(t, content, result)
}

func TestMask_CustomPatternApplied(t *testing.T) {
	svc := NewService(WithCustomPattern("internal_token", `INTERNAL_TOKEN_[A-Z0-9]+`, "[MASKED_INTERNAL_TOKEN]", "internal tokens"))

	content := `token: INTERNAL_TOKEN_ABC123DEF`
	result := svc.Mask(content, "basic")

	assert.NotContains(t, result, "INTERNAL_TOKEN_ABC123DEF")
	assert.Contains(t, result, "[MASKED_INTERNAL_TOKEN]")
}

func TestMask_InvalidCustomPatternSkipped(t *testing.T) {
	svc := NewService(WithCustomPattern("bad", `[invalid`, "[MASKED]", "broken"))
	_, exists := svc.patterns["bad"]
	assert.False(t, exists, "invalid regex pattern should be skipped")
}

func TestMask_KubernetesSecretCodeMaskerAndRegexCombined(t *testing.T) {
	svc := NewService()
	content := `apiVersion: v1
kind: Secret
metadata:
  name: db-creds
type: Opaque
data:
  token: c3VwZXJzZWNyZXQ=
  tls.key: RkFLRS10bHMta2V5LW5vdC1yZWFs`

	result := svc.Mask(content, "kubernetes")

	assert.NotContains(t, result, "c3VwZXJzZWNyZXQ=", "secret data should be masked by the code masker")
	assert.NotContains(t, result, "RkFLRS10bHMta2V5LW5vdC1yZWFs")
	assert.Contains(t, result, "name: db-creds")
}
