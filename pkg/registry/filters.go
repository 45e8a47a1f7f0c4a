package registry

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/trigion/trigion/pkg/models"
)

// FilterResult is the outcome of evaluating one subscription's declarative
// filters against a message.
type FilterResult struct {
	Matched bool `json:"matched"`

	// MatchedFilters lists each non-trivial filter key that passed, in
	// evaluation order. Flows can read it through input.trigger.matchedFilters.
	MatchedFilters []string `json:"matchedFilters"`

	// Reason explains the first failing check. Empty on match.
	Reason string `json:"reason,omitempty"`
}

func noMatch(reason string) FilterResult {
	return FilterResult{Matched: false, MatchedFilters: []string{}, Reason: reason}
}

// allowFlags maps each content type to the boolean filter flag that can block
// it. Plain text and anything unrecognized fall into the allowChat bucket.
var allowFlags = map[models.ContentType]string{
	models.ContentTypeText:     "allowChat",
	models.ContentTypeChat:     "allowChat",
	models.ContentTypeImage:    "allowImage",
	models.ContentTypeVideo:    "allowVideo",
	models.ContentTypeAudio:    "allowAudio",
	models.ContentTypeVoice:    "allowVoice",
	models.ContentTypeDocument: "allowDocument",
	models.ContentTypeSticker:  "allowSticker",
	models.ContentTypeLocation: "allowLocation",
	models.ContentTypeContact:  "allowContact",
	models.ContentTypeCallLog:  "allowCallLog",
}

// EvaluateMessageFilters runs the ordered filter chain of a message
// subscription. The chain short-circuits on the first failing check; later
// checks assume the earlier ones passed. Every filter is optional, and an
// absent allow flag permits its content type.
func EvaluateMessageFilters(message *models.Message, filters map[string]any) FilterResult {
	matched := make([]string, 0, 4)

	// 1. Platform.
	if platform, ok := stringFilter(filters, "platform"); ok && platform != "any" {
		if !strings.EqualFold(platform, message.Platform) {
			return noMatch(fmt.Sprintf("platform mismatch: want %s, got %s", platform, message.Platform))
		}

		matched = append(matched, "platform")
	}

	// 2. Message type allow table. Only an explicit false blocks.
	flag, ok := allowFlags[message.ContentType]
	if !ok {
		flag = "allowChat"
	}

	if allowed, present := boolFilter(filters, flag); present && !allowed {
		return noMatch(fmt.Sprintf("message type %s blocked by %s", message.ContentType, flag))
	}

	matched = append(matched, "messageType")

	// 3. Content patterns.
	result, ok := matchContentPatterns(message, filters, &matched)
	if !ok {
		return result
	}

	// 4. Sender.
	result, ok = matchSenderFilters(message, filters, &matched)
	if !ok {
		return result
	}

	// 5. Attachment.
	if wantAttachment, present := boolFilter(filters, "hasAttachment"); present {
		if wantAttachment != message.ContentType.IsAttachment() {
			return noMatch("attachment presence mismatch")
		}

		matched = append(matched, "hasAttachment")
	}

	if attachmentType, ok := stringFilter(filters, "attachmentType"); ok {
		if !strings.EqualFold(attachmentType, string(message.ContentType)) {
			return noMatch(fmt.Sprintf("attachment type mismatch: want %s, got %s", attachmentType, message.ContentType))
		}

		matched = append(matched, "attachmentType")
	}

	// 6. Visibility.
	if wantGroup, present := boolFilter(filters, "isGroup"); present {
		if wantGroup != message.IsGroup {
			return noMatch("group visibility mismatch")
		}

		matched = append(matched, "isGroup")
	}

	if fromGroups, present := boolFilter(filters, "fromGroups"); present && !fromGroups && message.IsGroup {
		return noMatch("group messages blocked")
	}

	if fromPrivate, present := boolFilter(filters, "fromPrivate"); present && !fromPrivate && !message.IsGroup {
		return noMatch("private messages blocked")
	}

	return FilterResult{Matched: true, MatchedFilters: matched}
}

// matchContentPatterns checks the textual pattern filters. The whole stage is
// skipped when patternType is "any". String comparisons are case-folded; the
// regular expression honors the caseSensitive option.
func matchContentPatterns(message *models.Message, filters map[string]any, matched *[]string) (FilterResult, bool) {
	if patternType, ok := stringFilter(filters, "patternType"); ok && patternType == "any" {
		return FilterResult{}, true
	}

	content := strings.ToLower(message.Content)

	if contains, ok := stringFilter(filters, "contains"); ok {
		if !strings.Contains(content, strings.ToLower(contains)) {
			return noMatch(fmt.Sprintf("content does not contain %q", contains)), false
		}

		*matched = append(*matched, "contains")
	}

	if prefix, ok := stringFilter(filters, "startsWith"); ok {
		if !strings.HasPrefix(content, strings.ToLower(prefix)) {
			return noMatch(fmt.Sprintf("content does not start with %q", prefix)), false
		}

		*matched = append(*matched, "startsWith")
	}

	if suffix, ok := stringFilter(filters, "endsWith"); ok {
		if !strings.HasSuffix(content, strings.ToLower(suffix)) {
			return noMatch(fmt.Sprintf("content does not end with %q", suffix)), false
		}

		*matched = append(*matched, "endsWith")
	}

	if exact, ok := stringFilter(filters, "exactMatch"); ok {
		if content != strings.ToLower(exact) {
			return noMatch(fmt.Sprintf("content is not exactly %q", exact)), false
		}

		*matched = append(*matched, "exactMatch")
	}

	if pattern, ok := stringFilter(filters, "pattern"); ok {
		expr := pattern
		if caseSensitive, present := boolFilter(filters, "caseSensitive"); !present || !caseSensitive {
			expr = "(?i)" + expr
		}

		re, err := regexp.Compile(expr)
		if err != nil {
			return noMatch(fmt.Sprintf("invalid pattern %q: %v", pattern, err)), false
		}

		if !re.MatchString(message.Content) {
			return noMatch(fmt.Sprintf("content does not match pattern %q", pattern)), false
		}

		*matched = append(*matched, "pattern")
	}

	return FilterResult{}, true
}

func matchSenderFilters(message *models.Message, filters map[string]any, matched *[]string) (FilterResult, bool) {
	sender := message.Sender()

	if want, ok := stringFilter(filters, "sender"); ok {
		if !strings.EqualFold(want, sender) {
			return noMatch(fmt.Sprintf("sender mismatch: want %s", want)), false
		}

		*matched = append(*matched, "sender")
	}

	if allowed := stringListFilter(filters, "allowedSenders"); len(allowed) > 0 {
		if !containsFold(allowed, sender) {
			return noMatch("sender not in allow list"), false
		}

		*matched = append(*matched, "allowedSenders")
	}

	if blocked, ok := stringFilter(filters, "blockedSender"); ok {
		if strings.EqualFold(blocked, sender) {
			return noMatch("sender blocked"), false
		}

		*matched = append(*matched, "blockedSender")
	}

	// Free-form multi-value filter, comma separated, substring match.
	if raw, ok := stringFilter(filters, "senderFilter"); ok {
		hit := false

		for _, candidate := range strings.Split(raw, ",") {
			candidate = strings.TrimSpace(candidate)
			if candidate == "" {
				continue
			}

			if strings.Contains(strings.ToLower(sender), strings.ToLower(candidate)) {
				hit = true

				break
			}
		}

		if !hit {
			return noMatch("sender did not match sender filter"), false
		}

		*matched = append(*matched, "senderFilter")
	}

	return FilterResult{}, true
}

// stringFilter returns the trimmed string value of a filter key. Empty
// strings count as absent.
func stringFilter(filters map[string]any, key string) (string, bool) {
	value, ok := filters[key].(string)
	if !ok {
		return "", false
	}

	value = strings.TrimSpace(value)

	return value, value != ""
}

// boolFilter returns the filter flag and whether it was present at all.
// Presence matters: an absent allow flag permits, an explicit false blocks.
func boolFilter(filters map[string]any, key string) (bool, bool) {
	value, ok := filters[key].(bool)

	return value, ok
}

// stringListFilter accepts both []string and the []any produced by JSON
// decoding.
func stringListFilter(filters map[string]any, key string) []string {
	switch raw := filters[key].(type) {
	case []string:
		return raw
	case []any:
		values := make([]string, 0, len(raw))

		for _, item := range raw {
			if s, ok := item.(string); ok && s != "" {
				values = append(values, s)
			}
		}

		return values
	default:
		return nil
	}
}

func containsFold(values []string, target string) bool {
	for _, value := range values {
		if strings.EqualFold(value, target) {
			return true
		}
	}

	return false
}
