package mcpserver

// DocsContract describes the conventions the memory doctor checks, so LLM
// consumers can write documents that keep the docs root healthy.
const DocsContract = `# OpenKit Docs Contract

Every Markdown document under the docs root (the first of ` + "`" + `memory/` + "`" + `,
` + "`" + `openkit-memory/` + "`" + `, ` + "`" + `docs/` + "`" + ` that exists) follows these rules.

## Hubs

These hub documents MUST exist and MUST contain a ` + "`" + `## Related` + "`" + ` heading:

- ` + "`" + `HUB-DOCS.md` + "`" + `
- ` + "`" + `CONTEXT.md` + "`" + `
- ` + "`" + `SECURITY.md` + "`" + `
- ` + "`" + `QUALITY_GATES.md` + "`" + `
- ` + "`" + `requirements/HUB-REQUIREMENTS.md` + "`" + `
- ` + "`" + `sprint/HUB-SPRINTS.md` + "`" + `

## Wikilinks

1. Link with double brackets and the path relative to the docs root, including
   ` + "`" + `.md` + "`" + `: ` + "`" + `[[requirements/HUB-REQUIREMENTS.md]]` + "`" + `.
2. A ` + "`" + `#fragment` + "`" + ` is ignored when resolving: ` + "`" + `[[CONTEXT.md#scope]]` + "`" + ` points at ` + "`" + `CONTEXT.md` + "`" + `.
3. A leading ` + "`" + `memory/` + "`" + `, ` + "`" + `openkit-memory/` + "`" + ` or ` + "`" + `docs/` + "`" + ` is stripped, so
   ` + "`" + `[[docs/SECURITY.md]]` + "`" + ` and ` + "`" + `[[SECURITY.md]]` + "`" + ` resolve to the same file.
4. Every link MUST resolve to an existing document. One broken link fails the doctor.
5. At least one document should link from its body, not only from its Related section.

## Related section

End each document with:

` + "```" + `markdown
## Related

- [[HUB-DOCS.md]]
` + "```" + `

## Freshness

Documents untouched for more than 45 days count as stale and lower the score.

## Score

The doctor starts at 100 and subtracts 25 for no inline links, 20 for a hub
without a Related section, 30 for any broken wikilink and 10 for any stale
document. 85 and above is healthy, 70 and above is warning, anything lower is
critical.
`
