package masking

import (
	"log/slog"
	"regexp"
)

// CompiledPattern holds a pre-compiled regex pattern with its replacement.
type CompiledPattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
	Description string
}

// patternSpec is the uncompiled form of a built-in masking pattern.
type patternSpec struct {
	pattern     string
	replacement string
	description string
}

// builtinPatterns is the fixed catalog of regex-based masking rules applied
// to LLM output and tool results before they leave the platform. Secret
// assignments are matched as "key: value" / "key=value" pairs so the
// surrounding line structure survives masking; the value is what gets
// replaced.
var builtinPatterns = map[string]patternSpec{
	"api_key": {
		pattern:     `(?i)(api[_-]?key\s*[:=]\s*"?)[A-Za-z0-9_\-]{12,}("?)`,
		replacement: "${1}[MASKED_API_KEY]${2}",
		description: "Generic API key assignment",
	},
	"password": {
		pattern:     `(?i)(password\s*[:=]\s*"?)[^\s"]{8,}("?)`,
		replacement: "${1}[MASKED_PASSWORD]${2}",
		description: "Password assignment",
	},
	"certificate": {
		pattern:     `(?s)-----BEGIN (?:RSA |EC )?(?:PRIVATE KEY|CERTIFICATE)-----.*?-----END (?:RSA |EC )?(?:PRIVATE KEY|CERTIFICATE)-----`,
		replacement: "[MASKED_CERTIFICATE]",
		description: "PEM certificate or private key block",
	},
	"certificate_authority_data": {
		pattern:     `(?i)(certificate-authority-data\s*:\s*)[A-Za-z0-9+/=]{16,}`,
		replacement: "${1}[MASKED_CA_CERTIFICATE]",
		description: "Kubernetes kubeconfig CA data",
	},
	"token": {
		pattern:     `(?i)(bearer|token)(\s*[:=]\s*"?)[A-Za-z0-9_\-\.]{20,}("?)`,
		replacement: "${1}${2}[MASKED_TOKEN]${3}",
		description: "Bearer/auth token",
	},
	"email": {
		pattern:     `[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`,
		replacement: "[MASKED_EMAIL]",
		description: "Email address",
	},
	"ssh_key": {
		pattern:     `ssh-(?:rsa|ed25519|dss) [A-Za-z0-9+/]{20,}={0,2}(?: \S+)?`,
		replacement: "[MASKED_SSH_KEY]",
		description: "SSH public key",
	},
	"private_key": {
		pattern:     `(?i)(private_key\s*[:=]\s*"?)[A-Za-z0-9_\-]{10,}("?)`,
		replacement: "${1}[MASKED_PRIVATE_KEY]${2}",
		description: "Generic private-key-labeled secret",
	},
	"secret_key": {
		pattern:     `(?i)(secret_key\s*[:=]\s*"?)[A-Za-z0-9_\-]{10,}("?)`,
		replacement: "${1}[MASKED_SECRET_KEY]${2}",
		description: "Generic secret-key-labeled value",
	},
	"aws_access_key": {
		pattern:     `AKIA[A-Z0-9]{12,}`,
		replacement: "[MASKED_AWS_KEY]",
		description: "AWS access key ID",
	},
	"aws_secret_key": {
		pattern:     `(?i)(aws_secret_access_key\s*[:=]\s*"?)[A-Za-z0-9/+=]{30,}("?)`,
		replacement: "${1}[MASKED_AWS_SECRET]${2}",
		description: "AWS secret access key",
	},
	"github_token": {
		pattern:     `ghp_[A-Za-z0-9]{20,}`,
		replacement: "[MASKED_GITHUB_TOKEN]",
		description: "GitHub personal access token",
	},
	"slack_token": {
		pattern:     `xox[bapr]-[A-Za-z0-9\-]{10,}`,
		replacement: "[MASKED_SLACK_TOKEN]",
		description: "Slack API token",
	},
	"base64_secret": {
		pattern:     `[A-Za-z0-9+/]{44,}={0,2}`,
		replacement: "[MASKED_BASE64_VALUE]",
		description: "Long base64-encoded blob, likely a key or cert",
	},
	"base64_short": {
		pattern:     `(?i)(key\s*:\s*)[A-Za-z0-9+/]{4,40}={1,2}`,
		replacement: "${1}[MASKED_SHORT_BASE64]",
		description: "Short base64-encoded value assigned to a key field",
	},
}

// builtinPatternGroups bundle related patterns for one-name wiring into a
// guard stage or MCP server config.
var builtinPatternGroups = map[string][]string{
	"basic":      {"api_key", "password"},
	"security":   {"api_key", "password", "email", "certificate", "token", "private_key", "secret_key"},
	"kubernetes": {"certificate_authority_data", "api_key", "password"},
	"cloud":      {"aws_access_key", "aws_secret_key", "github_token", "slack_token"},
}

// compileOne compiles a single pattern string, used for operator-supplied
// custom patterns added via masking.WithCustomPattern.
func compileOne(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile(pattern)
}

// compileBuiltinPatterns compiles every entry in builtinPatterns, logging
// and skipping any that fail to compile rather than panicking at startup.
func compileBuiltinPatterns() map[string]*CompiledPattern {
	out := make(map[string]*CompiledPattern, len(builtinPatterns))
	for name, spec := range builtinPatterns {
		compiled, err := regexp.Compile(spec.pattern)
		if err != nil {
			slog.Error("failed to compile built-in masking pattern, skipping", "pattern", name, "error", err)
			continue
		}
		out[name] = &CompiledPattern{Name: name, Regex: compiled, Replacement: spec.replacement, Description: spec.description}
	}
	return out
}
