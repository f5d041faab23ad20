package naming

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// maxNameLength is the voice platform's limit for function and resource names.
const maxNameLength = 64

var unsafeChars = regexp.MustCompile(`[^a-z0-9_]+`)

// Tool returns the lookup key of a template tool at a template version.
// Content changes that were not accompanied by a version bump still produce a
// new key, so an existing tool is only reused when it is equivalent.
func Tool(logicalName, version string, content []byte) string {
	return bounded(fmt.Sprintf("%s_v%s_%s", sanitize(logicalName), sanitize(version), shortHash(content)))
}

// KnowledgeTool returns the lookup key of a tenant's knowledge-query tool.
func KnowledgeTool(tenantID, version string, fileIDs []string) string {
	return bounded(fmt.Sprintf("kb_%s_v%s_%s",
		shortHash([]byte(tenantID)), sanitize(version), shortHash([]byte(strings.Join(fileIDs, ",")))))
}

// CallAnalysisOutput returns the lookup key of the structured output used
// for post-call analysis at a template version.
func CallAnalysisOutput(version string, schema []byte) string {
	return bounded(fmt.Sprintf("call_analysis_v%s_%s", sanitize(version), shortHash(schema)))
}

// Squad returns the name of a tenant's squad.
func Squad(tenantID string) string {
	return bounded("squad_" + sanitize(tenantID))
}

// PhoneNumber returns the display name of an imported phone number.
func PhoneNumber(tenantID string) string {
	return bounded("line_" + sanitize(tenantID))
}

func sanitize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = unsafeChars.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

func shortHash(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:4])
}

// bounded keeps the hash suffix intact when a name exceeds the platform limit.
func bounded(name string) string {
	if len(name) <= maxNameLength {
		return name
	}
	idx := strings.LastIndex(name, "_")
	if idx < 0 {
		return name[:maxNameLength]
	}
	suffix := name[idx:]
	return name[:maxNameLength-len(suffix)] + suffix
}
