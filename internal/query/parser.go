package query

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

const defaultMinKeywordLength = 3

var backtickSpan = regexp.MustCompile("`[^`]*`")
var fileLike = regexp.MustCompile(`\.[A-Za-z0-9]{1,8}$|/`)
var functionCallToken = regexp.MustCompile(`\b[A-Za-z_][A-Za-z0-9_]*\(`)
var pascalCaseToken = regexp.MustCompile(`\b[A-Z][a-z0-9]+(?:[A-Z][a-z0-9]*)+\b`)
var trailingPunct = regexp.MustCompile(`[.!?,;:]+$`)
var whitespaceRun = regexp.MustCompile(`\s+`)
var wordToken = regexp.MustCompile(`[A-Za-z0-9_']+`)
var conjunctionSplit = regexp.MustCompile(`\s+(?:and|or)\s+|,\s*`)

type intentFamily struct {
	intent   Intent
	patterns []*regexp.Regexp
}

// intentFamilies is ordered by tie-break priority: earlier wins ties.
var intentFamilies = []intentFamily{
	{IntentDebug, compileAll(`\b(debug(ging)?|bug)\b`, `\b(fail(s|ing|ed)?|crash(es|ing|ed)?|broken|not work(ing)?)\b`)},
	{IntentWhy, compileAll(`^why\b`, `\bwhy\s+(is|are|does|do|did)\b`)},
	{IntentHow, compileAll(`^how\b`, `\bhow\s+(do|does|can|to|should)\b`)},
	{IntentCompare, compileAll(`\bcompare\b`, `\bversus\b`, `\bvs\.?\b`, `\bdifference\s+between\b`)},
	{IntentList, compileAll(`\blist\b`, `\benumerate\b`, `\bshow\s+all\b`, `\bwhat\s+are\s+(the|all)\b`)},
	{IntentRefactor, compileAll(`\brefactor\b`, `\bclean\s?up\b`, `\brestructure\b`, `\bsimplify\b`)},
	{IntentImplement, compileAll(`\bimplement\b`, `\badd\b`, `\bcreate\b`, `\bbuild\b`, `\bwrite\b`)},
	{IntentFind, compileAll(`\bfind\b`, `\blocate\b`, `\bshow\b`, `\bsearch\b`, `\bwhere\s+is\b`)},
	{IntentExplain, compileAll(`\bexplain\b`, `\bdescribe\b`, `\bwhat\s+is\b`, `\bwhat\s+does\b`)},
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(`(?i)`+p))
	}
	return out
}

// classifyIntent picks the family with the most pattern matches; ties
// resolve by intentFamilies order.
func classifyIntent(q string) Intent {
	best := IntentGeneral
	bestScore := 0
	for _, fam := range intentFamilies {
		score := 0
		for _, p := range fam.patterns {
			if p.MatchString(q) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = fam.intent
		}
	}
	return best
}

// Normalize strips backticks (keeping content), collapses whitespace,
// strips trailing punctuation, and trims.
func Normalize(raw string) string {
	stripped := strings.ReplaceAll(raw, "`", "")
	collapsed := whitespaceRun.ReplaceAllString(stripped, " ")
	collapsed = strings.TrimSpace(collapsed)
	collapsed = trailingPunct.ReplaceAllString(collapsed, "")
	return strings.TrimSpace(collapsed)
}

func classifyBacktickMention(text string) MentionType {
	switch {
	case strings.Contains(text, "("):
		return MentionFunction
	case fileLike.MatchString(text):
		return MentionFile
	default:
		return MentionClass
	}
}

func extractMentions(raw string) []Mention {
	var mentions []Mention

	masked := []byte(raw)
	for _, span := range backtickSpan.FindAllStringIndex(raw, -1) {
		start, end := span[0], span[1]
		inner := raw[start+1 : end-1]
		mentions = append(mentions, Mention{
			Text:  inner,
			Type:  classifyBacktickMention(inner),
			Start: start + 1,
			End:   end - 1,
		})
		for i := start; i < end; i++ {
			masked[i] = ' '
		}
	}
	maskedStr := string(masked)

	coveredByFunc := make([]bool, len(maskedStr)+1)
	for _, span := range functionCallToken.FindAllStringIndex(maskedStr, -1) {
		start, end := span[0], span[1]-1 // drop trailing '('
		mentions = append(mentions, Mention{
			Text:  maskedStr[start:end],
			Type:  MentionFunction,
			Start: start,
			End:   end,
		})
		for i := start; i < end; i++ {
			coveredByFunc[i] = true
		}
	}

	for _, span := range pascalCaseToken.FindAllStringIndex(maskedStr, -1) {
		start, end := span[0], span[1]
		if coveredByFunc[start] {
			continue
		}
		mentions = append(mentions, Mention{
			Text:  maskedStr[start:end],
			Type:  MentionClass,
			Start: start,
			End:   end,
		})
	}

	sort.SliceStable(mentions, func(i, j int) bool { return mentions[i].Start < mentions[j].Start })

	var deduped []Mention
	for _, m := range mentions {
		dup := false
		for _, existing := range deduped {
			if existing.Text == m.Text && m.Start < existing.End && existing.Start < m.End {
				dup = true
				break
			}
		}
		if !dup {
			deduped = append(deduped, m)
		}
	}
	return deduped
}

func maskMentions(raw string, mentions []Mention) string {
	masked := []byte(raw)
	for _, m := range mentions {
		for i := m.Start; i < m.End && i < len(masked); i++ {
			masked[i] = ' '
		}
	}
	// also blank the backtick characters themselves so they don't glue
	// adjacent words together during tokenization.
	for i, c := range masked {
		if c == '`' {
			masked[i] = ' '
		}
	}
	return string(masked)
}

func extractKeywords(raw string, mentions []Mention, table *SynonymTable, minLen int) []string {
	masked := maskMentions(raw, mentions)

	seen := map[string]struct{}{}
	var keywords []string

	add := func(word string) {
		w := strings.ToLower(word)
		if _, ok := seen[w]; ok {
			return
		}
		seen[w] = struct{}{}
		keywords = append(keywords, w)
	}

	for _, tok := range wordToken.FindAllString(masked, -1) {
		if len(tok) < minLen {
			continue
		}
		if table != nil && table.IsStopWord(tok) {
			continue
		}
		add(tok)
	}

	for _, m := range mentions {
		add(m.Text)
	}

	return keywords
}

func expandKeywords(keywords []string, table *SynonymTable) []string {
	if table == nil {
		return nil
	}
	present := map[string]struct{}{}
	for _, k := range keywords {
		present[k] = struct{}{}
	}

	seen := map[string]struct{}{}
	var out []string
	for _, k := range keywords {
		for _, exp := range table.Expansions(k) {
			if _, already := present[exp]; already {
				continue
			}
			if _, dup := seen[exp]; dup {
				continue
			}
			seen[exp] = struct{}{}
			out = append(out, exp)
		}
	}
	return out
}

var (
	typeFilterRe  = regexp.MustCompile(`\btype:(\S+)`)
	limitFilterRe = regexp.MustCompile(`\blimit:(\d+)`)
	inFilterRe    = regexp.MustCompile(`\bin\s+(\S+)`)
	sinceFilterRe = regexp.MustCompile(`\bsince:(\d{4}-\d{2}-\d{2})`)
	lastDaysRe    = regexp.MustCompile(`\blast\s+(\d+)\s+days?\b`)
)

func parseFilters(raw string) Filters {
	var f Filters

	for _, m := range typeFilterRe.FindAllStringSubmatch(raw, -1) {
		f.Types = append(f.Types, m[1])
	}
	for _, m := range inFilterRe.FindAllStringSubmatch(raw, -1) {
		f.Files = append(f.Files, m[1])
	}
	if m := limitFilterRe.FindStringSubmatch(raw); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			f.Limit = n
		}
	}
	if m := sinceFilterRe.FindStringSubmatch(raw); m != nil {
		if t, err := time.Parse("2006-01-02", m[1]); err == nil {
			f.Since = &t
		}
	}
	if f.Since == nil {
		if m := lastDaysRe.FindStringSubmatch(raw); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				t := nowFunc().AddDate(0, 0, -n)
				f.Since = &t
			}
		}
	}

	return f
}

// nowFunc is indirected so filter tests (the "last N days" window) can pin "now"; tests
// may swap it inside this package only.
var nowFunc = time.Now

func decompose(normalized string) (bool, []SubQuery) {
	parts := conjunctionSplit.Split(normalized, -1)
	var trimmed []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			trimmed = append(trimmed, p)
		}
	}
	if len(trimmed) < 2 {
		return false, nil
	}

	weight := 1.0 / float64(len(trimmed))
	subQueries := make([]SubQuery, 0, len(trimmed))
	for _, p := range trimmed {
		subQueries = append(subQueries, SubQuery{Text: p, Weight: weight})
	}
	return true, subQueries
}

// ParseOpts narrows Parse.
type ParseOpts struct {
	MinKeywordLength int
	Synonyms         *SynonymTable
	Decompose        bool
}

// Parse turns raw query text into a ParsedQuery. It is a pure function:
// the same (raw, opts) always yields an equivalent result.
func Parse(raw string, opts ParseOpts) ParsedQuery {
	minLen := opts.MinKeywordLength
	if minLen <= 0 {
		minLen = defaultMinKeywordLength
	}

	normalized := Normalize(raw)
	intent := classifyIntent(normalized)
	mentions := extractMentions(raw)
	keywords := extractKeywords(raw, mentions, opts.Synonyms, minLen)
	expansions := expandKeywords(keywords, opts.Synonyms)
	filters := parseFilters(raw)

	pq := ParsedQuery{
		Raw:        raw,
		Normalized: normalized,
		Intent:     intent,
		Mentions:   mentions,
		Keywords:   keywords,
		Expansions: expansions,
		Filters:    filters,
	}

	if opts.Decompose {
		wasDecomposed, subQueries := decompose(normalized)
		pq.WasDecomposed = wasDecomposed
		pq.SubQueries = subQueries
	}

	return pq
}
