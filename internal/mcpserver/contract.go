package mcpserver

// ArticleFormatContract describes how article sources are written so that
// LLM consumers editing them produce pages the build accepts.
const ArticleFormatContract = `# quire Article Format

Every article is a Markdown file at <category path>/<name>.md below the
source root. Its name must be listed under the category's ` + "`files`" + ` in the
site configuration, otherwise it is not built.

## Structure

` + "```" + `markdown
---
title: Human-readable title   # OPTIONAL, overrides the first H1
---

# Heading

Body text in Markdown.
` + "```" + `

## Rules

1. **Title.** A title set in the configuration wins. Otherwise the
   front matter ` + "`title`" + ` is used, then the first H1, then the file name.
2. **Front matter** is stripped before compilation and never rendered.
3. **Figures.** A paragraph holding only an image becomes a <figure> with
   the alt text as caption.
4. **Attributes** may follow headings: ` + "`## Setup {#setup .wide}`" + `.
5. **Footnotes** use ` + "`[^1]`" + ` references and ` + "`[^1]: text`" + ` definitions.
6. **Code blocks** with a language tag are syntax highlighted.
7. **Assets** are referenced relative to the page, e.g. ` + "`images/diagram.png`" + `,
   and live in the category's images directory.
8. **Encoding** is UTF-8 with a trailing newline.
`
