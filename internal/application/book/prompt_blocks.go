package book

import (
	"fmt"
	"strings"
)

func referencesBlock(references []string) string {
	var b strings.Builder
	for _, r := range references {
		if r = strings.TrimSpace(r); r != "" {
			b.WriteString("- ")
			b.WriteString(r)
			b.WriteString("\n")
		}
	}
	if b.Len() == 0 {
		return "None supplied."
	}
	return strings.TrimRight(b.String(), "\n")
}

func inlineList(items []string) string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	if len(out) == 0 {
		return "not specified"
	}
	return strings.Join(out, "; ")
}

// priorTitlesBlock 已写章节标题，按 ordinal 升序逐行列出
func priorTitlesBlock(prior []priorUnit) string {
	if len(prior) == 0 {
		return "None yet. This is the first chapter."
	}
	var b strings.Builder
	for _, p := range prior {
		fmt.Fprintf(&b, "- Chapter %d: %s\n", p.Ordinal, p.Title)
	}
	return strings.TrimRight(b.String(), "\n")
}

func researchBlock(research string) string {
	research = strings.TrimSpace(research)
	if research == "" {
		return ""
	}
	return "Supporting research. Use it where relevant and cite it inline as (Source, Year):\n" + research
}
