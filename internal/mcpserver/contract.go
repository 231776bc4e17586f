package mcpserver

import "strings"

const contractHead = `# Memory Bank Metadata Contract

Every Markdown document in the memory bank MUST start with a frontmatter
block that graphlint can parse.

## Structure

` + "```" + `markdown
---
id: unique-document-id
type: concept
title: "Human-readable title"
status: active
---

Body text in standard Markdown. Link to other documents with
[relative links](../concepts/other.md).
` + "```" + `

## Required keys

`

const contractRules = `
## Rules

1. **The opening ` + "`---`" + ` must be the first line.** No leading blank lines.
2. **The block must be closed** by a line containing only ` + "`---`" + `.
3. **One key per line**, written as ` + "`key: value`" + `. The value may be wrapped
   in double quotes. Nested YAML is not understood.
4. **` + "`id`" + ` values are unique** across the whole memory bank.
5. **Links** use Markdown syntax ` + "`[text](path.md)`" + ` with a path relative to
   the linking document. Fragments and query strings are ignored.
6. **Every link must resolve** to an existing file.
7. **Every document except the root index** must be linked from at least one
   other document.
8. Links inside fenced code blocks are not checked.
`

// MetadataContract renders the frontmatter contract for the given
// required keys.
func MetadataContract(required []string) string {
	var b strings.Builder
	b.WriteString(contractHead)
	for _, k := range required {
		b.WriteString("- `" + k + "`\n")
	}
	b.WriteString(contractRules)
	return b.String()
}
