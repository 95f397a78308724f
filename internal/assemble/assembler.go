package assemble

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"

	"github.com/contextforge/retrieval-core/internal/search"
	"github.com/contextforge/retrieval-core/internal/store"
)

// Format selects the output rendering of the assembled context.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatXML      Format = "xml"
	FormatPlain    Format = "plain"
)

// Options configures one assembly call.
type Options struct {
	MaxTokens          int
	IncludeSources     bool
	Format             Format
	MinRelevance       float64
	GroupByType        bool
	IncludeCodeContent bool
	MaxContentLength   int
	Prefix             string
	Suffix             string
}

// DefaultOptions mirrors the spec's defaults.
func DefaultOptions() Options {
	return Options{
		MaxTokens:      4000,
		IncludeSources: true,
		Format:         FormatMarkdown,
		MinRelevance:   0.1,
	}
}

// Source is one attribution entry in the assembled result.
type Source struct {
	EntityID string  `json:"entityId"`
	Name     string  `json:"name"`
	Type     store.EntityType `json:"type"`
	FilePath string  `json:"filePath,omitempty"`
	Line     int     `json:"line,omitempty"`
	Relevance float64 `json:"relevance"`
}

// Result is the assembler's output.
type Result struct {
	Context    string
	Sources    []Source
	TokenCount int
	Truncated  bool
}

const sourcesCap = 10

// EstimateTokens implements the spec's token estimate: ceil(chars / 4).
func EstimateTokens(s string) int {
	if s == "" {
		return 0
	}
	return int(math.Ceil(float64(len(s)) / 4.0))
}

var codeGroupTypes = map[store.EntityType]bool{
	store.EntityFunction:  true,
	store.EntityClass:     true,
	store.EntityMethod:    true,
	store.EntityInterface: true,
	store.EntityModule:    true,
	store.EntityVariable:  true,
	store.EntityFile:      true,
}

var docGroupTypes = map[store.EntityType]bool{
	store.EntityDocument:    true,
	store.EntityRequirement: true,
}

var conversationGroupTypes = map[store.EntityType]bool{
	store.EntitySession:  true,
	store.EntityDecision: true,
}

// groupLabel classifies an entity type into one of the three assembly
// groups; entities matching none of the three (e.g. concept) fall into
// the code group as the most general bucket.
func groupLabel(t store.EntityType) string {
	switch {
	case docGroupTypes[t]:
		return "Related Documentation"
	case conversationGroupTypes[t]:
		return "Previous Conversations"
	default:
		return "Relevant Code"
	}
}

var groupOrder = []string{"Relevant Code", "Related Documentation", "Previous Conversations"}

// Assemble renders ranked candidates into a token-budgeted context string.
// Candidates are added in score order, each tentatively rendered into the
// full context (with separators and any group headings) so the admitted
// set never pushes the final token count over MaxTokens. Candidates are
// pre-sorted by score descending by the caller's pipeline; Assemble
// re-sorts defensively to guarantee it.
func Assemble(candidates []search.Result, opts Options) Result {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 4000
	}
	if opts.Format == "" {
		opts.Format = FormatMarkdown
	}

	sorted := make([]search.Result, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	var selected []search.Result
	var sources []Source
	context := renderContext(selected, opts)
	truncated := false

	for _, c := range sorted {
		if c.Score < opts.MinRelevance {
			continue
		}

		candidate := append(append([]search.Result{}, selected...), search.Result{Entity: c.Entity, Score: c.Score, Source: c.Source})
		rendered := renderContext(candidate, opts)

		if EstimateTokens(rendered) > opts.MaxTokens {
			truncated = true
			continue
		}

		selected = candidate
		context = rendered

		if len(sources) < sourcesCap {
			sources = append(sources, Source{
				EntityID:  c.Entity.ID,
				Name:      c.Entity.Name,
				Type:      c.Entity.Type,
				FilePath:  c.Entity.FilePath,
				Line:      c.Entity.StartLine,
				Relevance: c.Score,
			})
		}
	}

	result := Result{
		Context:    context,
		TokenCount: EstimateTokens(context),
		Truncated:  truncated,
	}
	if opts.IncludeSources {
		result.Sources = sources
	}
	return result
}

func renderContext(selected []search.Result, opts Options) string {
	var b strings.Builder
	if opts.Prefix != "" {
		b.WriteString(opts.Prefix)
		b.WriteString("\n")
	}

	if opts.GroupByType {
		groups := map[string][]search.Result{}
		for _, c := range selected {
			label := groupLabel(c.Entity.Type)
			groups[label] = append(groups[label], c)
		}
		for _, label := range groupOrder {
			items := groups[label]
			if len(items) == 0 {
				continue
			}
			b.WriteString(groupHeading(label, opts.Format))
			for _, c := range items {
				content := c.Entity.Content
				if opts.MaxContentLength > 0 && len(content) > opts.MaxContentLength {
					content = content[:opts.MaxContentLength]
				}
				b.WriteString(renderItem(c.Entity, content, opts.Format))
				b.WriteString("\n")
			}
		}
	} else {
		for _, c := range selected {
			content := c.Entity.Content
			if opts.MaxContentLength > 0 && len(content) > opts.MaxContentLength {
				content = content[:opts.MaxContentLength]
			}
			b.WriteString(renderItem(c.Entity, content, opts.Format))
			b.WriteString("\n")
		}
	}

	if opts.Suffix != "" {
		b.WriteString(opts.Suffix)
	}
	return strings.TrimRight(b.String(), "\n")
}

func groupHeading(label string, format Format) string {
	switch format {
	case FormatXML:
		return fmt.Sprintf("<!-- %s -->\n", label)
	default:
		return fmt.Sprintf("## %s\n\n", label)
	}
}

func renderItem(e store.Entity, content string, format Format) string {
	switch format {
	case FormatXML:
		return fmt.Sprintf(
			`<entity name=%q type=%q file=%q><summary>%s</summary><content>%s</content></entity>`,
			e.Name, string(e.Type), e.FilePath, xmlEscape(e.Summary), xmlEscape(content),
		)
	case FormatPlain:
		return fmt.Sprintf("%s [%s:%d]\n%s\n%s", e.Name, e.FilePath, e.StartLine, e.Summary, content)
	default: // markdown
		lang := languageFromExtension(e.FilePath)
		return fmt.Sprintf("### %s\n*%s:%d*\n%s\n\n```%s\n%s\n```",
			e.Name, e.FilePath, e.StartLine, e.Summary, lang, content)
	}
}

func xmlEscape(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)
	return replacer.Replace(s)
}

var extToLang = map[string]string{
	".go":   "go",
	".py":   "python",
	".js":   "javascript",
	".ts":   "typescript",
	".tsx":  "tsx",
	".jsx":  "jsx",
	".rs":   "rust",
	".java": "java",
	".rb":   "ruby",
	".md":   "markdown",
	".yaml": "yaml",
	".yml":  "yaml",
	".json": "json",
}

func languageFromExtension(path string) string {
	if lang, ok := extToLang[filepath.Ext(path)]; ok {
		return lang
	}
	return ""
}

// SourcesSummary renders the sources block for a non-structured output
// caller (e.g. a CLI), listing up to 10 entries and an "and N more" tail.
func SourcesSummary(sources []Source, totalMatched int) string {
	if len(sources) == 0 {
		return ""
	}
	var b strings.Builder
	for _, s := range sources {
		b.WriteString(fmt.Sprintf("- %s (%s) %s relevance=%.2f\n", s.Name, s.Type, s.FilePath, s.Relevance))
	}
	if totalMatched > len(sources) {
		b.WriteString(fmt.Sprintf("...and %d more\n", totalMatched-len(sources)))
	}
	return strings.TrimRight(b.String(), "\n")
}
