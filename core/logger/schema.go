package logger

import "strings"

// levelNames maps accepted spellings to the rendered level.
var levelNames = map[string]string{
	"debug":   "DEBUG",
	"info":    "INFO",
	"warn":    "WARN",
	"warning": "WARN",
	"error":   "ERROR",
	"fatal":   "FATAL",
}

// Closed vocabularies of the status and outcome fields. Aliases fold into
// the canonical spelling.
var (
	statusWords  = vocabulary("ok", "fail", "skip", "retry", "rate_limited", "cancelled")
	outcomeWords = vocabulary("ok", "fail", "denied", "unknown", "rearmed", "cancelled", "rate_limited")
	wordAliases  = map[string]string{"canceled": "cancelled", "error": "fail", "failed": "fail", "success": "ok"}
)

func vocabulary(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func canonical(word string, set map[string]struct{}) (string, bool) {
	word = strings.ToLower(strings.TrimSpace(word))
	if alias, ok := wordAliases[word]; ok {
		word = alias
	}
	_, ok := set[word]
	return word, ok
}

func normalizeLevel(level string) string {
	if level == "" {
		return "INFO"
	}
	if name, ok := levelNames[strings.ToLower(level)]; ok {
		return name
	}
	return strings.ToUpper(level)
}

// normalizeStatus lowercases status; unknown words pass through unflagged.
func normalizeStatus(status string) (string, bool) {
	return canonical(status, statusWords)
}

// normalizeOutcome accepts only the outcome vocabulary.
func normalizeOutcome(outcome string) (string, bool) {
	word, ok := canonical(outcome, outcomeWords)
	if !ok {
		return "", false
	}
	return word, true
}

// defaultKeyOrder fixes the leading keys of every line; the rest follow sorted.
var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"chat_type",
	"handler",
	"operation",
	"cb_key",
	"outcome",
	"duration_ms",
	"messages",
	"kb",
	"scope",
	"message_ids",
	"tag",
	"role",
	"capability",
	"category_id",
	"product_id",
	"variant_id",
	"count",
	"page",
	"pages",
	"payload",
	"lang",
	"username",
	"mode",
	"listen",
	"public_url",
	"http_code",
	"driver",
	"db",
	"host",
	"port",
	"path",
	"size",
	"categories",
	"products",
	"memberships",
	"variants",
	"photos",
	"pruned",
	"err",
	"err_code",
	"cause",
	"retryable",
	"attempts",
	"backoff_ms",
	"rate_limited",
}
