package answer

import (
	"fmt"
	"strings"

	"github.com/bookquill/bookquill/internal/rerank"
)

const systemPrompt = `You are a reading companion answering questions about books the reader is subscribed to.
Answer using only the provided excerpts. Cite excerpts as [1], [2] and so on.
If the excerpts do not contain the answer, say so plainly instead of guessing.`

type assembledPrompt struct {
	user    string
	sources []Source
	tokens  int
}

// assemble builds the user prompt from the highest-ranked chunks that fit
// the context token ceiling. Chunks are considered in rank order; one that
// does not fit is skipped rather than truncated, so a citation always maps
// to a complete excerpt.
func (o *Orchestrator) assemble(query string, scored []rerank.Scored) assembledPrompt {
	maxChunks := o.cfg.MaxChunks
	if maxChunks <= 0 || maxChunks > len(scored) {
		maxChunks = len(scored)
	}

	var (
		sb      strings.Builder
		sources []Source
		budget  = o.cfg.ContextTokenCeiling
		used    int
	)
	for _, s := range scored {
		if len(sources) == maxChunks {
			break
		}
		cost := o.counter.Count(s.Text)
		if budget > 0 && used+cost > budget {
			continue
		}
		used += cost

		n := len(sources) + 1
		fmt.Fprintf(&sb, "[%d] %s", n, s.Title)
		if s.SectionTitle != "" {
			fmt.Fprintf(&sb, ", %s", s.SectionTitle)
		}
		if s.PageNumber > 0 {
			fmt.Fprintf(&sb, " (p. %d)", s.PageNumber)
		}
		sb.WriteString(":\n")
		sb.WriteString(s.Text)
		sb.WriteString("\n\n")

		sources = append(sources, Source{
			ChunkID:      s.ChunkID,
			DocumentID:   s.DocumentID,
			Title:        s.Title,
			SectionTitle: s.SectionTitle,
			PageNumber:   s.PageNumber,
			Excerpt:      s.Text,
			Score:        s.Score,
		})
	}

	if len(sources) == 0 {
		return assembledPrompt{}
	}

	user := fmt.Sprintf("Excerpts:\n\n%sQuestion: %s", sb.String(), query)
	return assembledPrompt{
		user:    user,
		sources: sources,
		tokens:  o.counter.Count(user) + o.counter.Count(systemPrompt),
	}
}
