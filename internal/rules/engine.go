// Package rules cleans up finalized answer transcripts: it removes filler
// words and applies literal and regex substitutions until the text is stable.
package rules

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultRules []byte

type compiledRule interface {
	Apply(input string) (output string, changed bool)
}

// File is the YAML layout of a cleanup rules file.
type File struct {
	Fillers       []string       `yaml:"fillers"`
	Substitutions []Substitution `yaml:"substitutions"`
}

// Substitution is either a literal (from/to) or a sed-style expression
// such as `s/deep\s*gram/Deepgram/g`.
type Substitution struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
	Expr string `yaml:"expr"`
}

// Engine applies deterministic cleanup rules.
type Engine struct {
	rules     []compiledRule
	loopLimit int
}

// NewEngine loads rules from a YAML file. An empty or missing path uses the
// built-in filler list.
func NewEngine(path string, loopLimit int) (*Engine, error) {
	if strings.TrimSpace(path) == "" {
		return Parse(defaultRules, loopLimit)
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Parse(defaultRules, loopLimit)
		}
		return nil, fmt.Errorf("failed to read rules file %q: %w", path, err)
	}
	engine, err := Parse(contents, loopLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rules file %q: %w", path, err)
	}
	return engine, nil
}

// Parse compiles a YAML rules document.
func Parse(contents []byte, loopLimit int) (*Engine, error) {
	if loopLimit <= 0 {
		loopLimit = 30
	}
	var file File
	if err := yaml.Unmarshal(contents, &file); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	rules, err := compile(file)
	if err != nil {
		return nil, err
	}
	return &Engine{rules: rules, loopLimit: loopLimit}, nil
}

// Apply transforms text deterministically. Whitespace is collapsed after
// every pass so that removed words leave no gaps.
func (e *Engine) Apply(text string) (string, error) {
	result := collapseSpaces(text)
	for i := 0; i < e.loopLimit; i++ {
		changed := false
		for _, rule := range e.rules {
			next, ruleChanged := rule.Apply(result)
			if ruleChanged {
				result = next
				changed = true
			}
		}
		result = collapseSpaces(result)
		if !changed {
			break
		}
	}
	return result, nil
}

func compile(file File) ([]compiledRule, error) {
	rules := make([]compiledRule, 0, len(file.Fillers)+len(file.Substitutions))
	for index, filler := range file.Fillers {
		rule, err := parseFillerRule(filler)
		if err != nil {
			return nil, fmt.Errorf("filler %d: %w", index+1, err)
		}
		rules = append(rules, rule)
	}
	for index, sub := range file.Substitutions {
		var (
			rule compiledRule
			err  error
		)
		switch {
		case sub.Expr != "" && sub.From != "":
			err = errors.New("expr and from are mutually exclusive")
		case sub.Expr != "":
			rule, err = parseRegexRule(strings.TrimSpace(sub.Expr))
		case sub.From != "":
			rule, err = parseLiteralRule(sub.From, sub.To)
		default:
			err = errors.New("unsupported rule format")
		}
		if err != nil {
			return nil, fmt.Errorf("substitution %d: %w", index+1, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

var spaceRun = regexp.MustCompile(`\s+`)
var spaceBeforePunct = regexp.MustCompile(`\s+([,.!?;:])`)
var repeatedComma = regexp.MustCompile(`,(\s*,)+`)

func collapseSpaces(text string) string {
	text = spaceRun.ReplaceAllString(text, " ")
	text = spaceBeforePunct.ReplaceAllString(text, "$1")
	text = repeatedComma.ReplaceAllString(text, ",")
	return strings.Trim(strings.TrimSpace(text), ",")
}

// fillerRule removes a whole-word filler and a comma directly after it.
type fillerRule struct {
	re *regexp.Regexp
}

func parseFillerRule(word string) (compiledRule, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return nil, errors.New("filler cannot be empty")
	}
	re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(word) + `\b,?`)
	if err != nil {
		return nil, fmt.Errorf("invalid filler: %w", err)
	}
	return fillerRule{re: re}, nil
}

func (r fillerRule) Apply(input string) (string, bool) {
	output := r.re.ReplaceAllString(input, "")
	return output, output != input
}

type literalRule struct {
	replacement string
	re          *regexp.Regexp
}

func parseLiteralRule(from string, to string) (compiledRule, error) {
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	if from == "" {
		return nil, errors.New("literal rule source cannot be empty")
	}
	re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(from))
	if err != nil {
		return nil, fmt.Errorf("invalid literal source: %w", err)
	}
	return literalRule{replacement: to, re: re}, nil
}

func (r literalRule) Apply(input string) (string, bool) {
	output := r.re.ReplaceAllLiteralString(input, r.replacement)
	return output, output != input
}

type regexRule struct {
	re          *regexp.Regexp
	replacement string
	global      bool
}

func parseRegexRule(expr string) (compiledRule, error) {
	if len(expr) < 2 || expr[0] != 's' {
		return nil, errors.New("regex rule must look like s/pattern/replacement/flags")
	}
	delim := expr[1]
	if isAlphaNumericOrSpace(delim) {
		return nil, errors.New("regex delimiter must be non-alphanumeric")
	}

	pattern, pos, err := parseDelimited(expr, 2, delim)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern: %w", err)
	}
	replacement, pos, err := parseDelimited(expr, pos, delim)
	if err != nil {
		return nil, fmt.Errorf("invalid regex replacement: %w", err)
	}

	ignoreCase, global, multiLine, dotAll := true, false, false, false
	for _, flag := range strings.TrimSpace(expr[pos:]) {
		switch flag {
		case 'i':
			ignoreCase = true
		case 'g':
			global = true
		case 'm':
			multiLine = true
		case 's':
			dotAll = true
		case ' ':
			continue
		default:
			return nil, fmt.Errorf("unsupported regex flag %q", flag)
		}
	}

	prefixFlags := ""
	if ignoreCase {
		prefixFlags += "i"
	}
	if multiLine {
		prefixFlags += "m"
	}
	if dotAll {
		prefixFlags += "s"
	}
	if prefixFlags != "" {
		pattern = "(?" + prefixFlags + ")" + pattern
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex: %w", err)
	}
	return regexRule{re: re, replacement: replacement, global: global}, nil
}

func (r regexRule) Apply(input string) (string, bool) {
	if r.global {
		output := r.re.ReplaceAllString(input, r.replacement)
		return output, output != input
	}

	loc := r.re.FindStringIndex(input)
	if loc == nil {
		return input, false
	}
	segment := input[loc[0]:loc[1]]
	replaced := r.re.ReplaceAllString(segment, r.replacement)
	output := input[:loc[0]] + replaced + input[loc[1]:]
	return output, output != input
}

func parseDelimited(expr string, start int, delim byte) (string, int, error) {
	if start >= len(expr) {
		return "", 0, errors.New("unexpected end of expression")
	}
	var builder strings.Builder
	escaped := false
	for index := start; index < len(expr); index++ {
		char := expr[index]
		if escaped {
			builder.WriteByte(char)
			escaped = false
			continue
		}
		if char == '\\' {
			escaped = true
			builder.WriteByte(char)
			continue
		}
		if char == delim {
			return builder.String(), index + 1, nil
		}
		builder.WriteByte(char)
	}
	return "", 0, errors.New("unterminated expression")
}

func isAlphaNumericOrSpace(char byte) bool {
	return (char >= 'a' && char <= 'z') ||
		(char >= 'A' && char <= 'Z') ||
		(char >= '0' && char <= '9') ||
		char == ' ' || char == '\t'
}
