// Package codecheck is the safety gate between generated presentation code
// and the render worker. It is a pure allow-list filter over text: nothing
// here executes, parses as a real compiler would, or touches the network.
// Code that fails any check is never dispatched.
package codecheck

import (
	"fmt"
	"regexp"
	"strings"
)

// Result is the outcome of validating generated code. Code holds the cleaned
// payload (fences and surrounding prose stripped) regardless of OK.
type Result struct {
	OK     bool
	Reason string
	Code   string
}

// allowedImports is the sanctioned module set. Anything else is a module
// escape.
var allowedImports = map[string]bool{
	"remotion": true,
	"react":    true,
}

var (
	fenceRe         = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*\\n(.*?)```")
	importRe        = regexp.MustCompile(`(?m)^\s*import\s+(?:type\s+)?(?:[^'"]+?\s+from\s+)?['"]([^'"]+)['"]`)
	exportDefaultRe = regexp.MustCompile(`\bexport\s+default\b`)
	remotionRe      = regexp.MustCompile(`['"]remotion['"]`)
)

// bannedPatterns are deny-rules applied to the cleaned code. Each entry names
// the capability the pattern would grant.
var bannedPatterns = []struct {
	re     *regexp.Regexp
	reason string
}{
	{regexp.MustCompile(`\beval\s*\(`), "dynamic code evaluation (eval)"},
	{regexp.MustCompile(`\bnew\s+Function\b`), "dynamic code evaluation (Function constructor)"},
	{regexp.MustCompile(`\brequire\s*\(`), "module loading (require)"},
	{regexp.MustCompile(`\bimport\s*\(`), "dynamic module loading (import())"},
	{regexp.MustCompile(`\bchild_process\b`), "subprocess spawning (child_process)"},
	{regexp.MustCompile(`\bexecSync\b|\bspawnSync\b|\bspawn\s*\(|\bexec\s*\(`), "subprocess spawning"},
	{regexp.MustCompile(`\bprocess\s*\.`), "process/environment access"},
	{regexp.MustCompile(`\b(?:readFileSync|writeFileSync|readFile|writeFile|createReadStream|createWriteStream)\b`), "filesystem access"},
	{regexp.MustCompile(`\bfetch\s*\(`), "network access (fetch)"},
	{regexp.MustCompile(`\bXMLHttpRequest\b`), "network access (XMLHttpRequest)"},
	{regexp.MustCompile(`\bWebSocket\b`), "network access (WebSocket)"},
	{regexp.MustCompile(`\b__dirname\b|\b__filename\b`), "filesystem access"},
	{regexp.MustCompile(`\bglobalThis\s*\[`), "dynamic global access"},
}

// ExtractCode recovers the code payload from raw model output: the first
// fenced block when present, otherwise everything from the first code-looking
// line onward with trailing prose trimmed.
func ExtractCode(raw string) string {
	raw = strings.TrimSpace(raw)
	if match := fenceRe.FindStringSubmatch(raw); match != nil {
		return strings.TrimSpace(match[1])
	}

	lines := strings.Split(raw, "\n")
	start := 0
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "import ") || strings.HasPrefix(trimmed, "export ") ||
			strings.HasPrefix(trimmed, "const ") || strings.HasPrefix(trimmed, "function ") {
			start = i
			break
		}
	}
	return strings.TrimSpace(strings.Join(lines[start:], "\n"))
}

// Validate cleans raw model output and applies the structural allow-list.
// It is a pure function; a passing Result means the code may be handed to
// the isolated worker, nothing more.
func Validate(raw string) Result {
	code := ExtractCode(raw)
	if code == "" {
		return Result{Reason: "no code found in model output"}
	}
	result := Result{Code: code}

	for _, match := range importRe.FindAllStringSubmatch(code, -1) {
		if module := match[1]; !allowedImports[module] {
			result.Reason = fmt.Sprintf("import of unsanctioned module %q", module)
			return result
		}
	}
	if !remotionRe.MatchString(code) {
		result.Reason = "missing remotion import"
		return result
	}

	switch count := len(exportDefaultRe.FindAllString(code, -1)); {
	case count == 0:
		result.Reason = "missing default export"
		return result
	case count > 1:
		result.Reason = fmt.Sprintf("expected exactly one default export, found %d", count)
		return result
	}

	for _, banned := range bannedPatterns {
		if banned.re.MatchString(code) {
			result.Reason = "banned pattern: " + banned.reason
			return result
		}
	}

	if !strings.Contains(code, "AbsoluteFill") {
		result.Reason = "missing AbsoluteFill root layout"
		return result
	}
	if !strings.Contains(code, "Sequence") && !strings.Contains(code, "useCurrentFrame") && !strings.Contains(code, "interpolate") {
		result.Reason = "missing frame-based timing (Sequence, useCurrentFrame, or interpolate)"
		return result
	}

	result.OK = true
	return result
}
