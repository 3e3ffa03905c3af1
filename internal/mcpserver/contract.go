package mcpserver

// PostFormatContract describes the canonical Markdown post format that
// LLM consumers should follow when creating posts.
const PostFormatContract = `# Ansuz Post Format Contract

Every Markdown post registered by Ansuz MUST follow this structure.

## Structure

` + "```" + `markdown
---
title: Human-readable title            # REQUIRED – also the slug source
date: 2025-01-15 09:30:00 +0000        # REQUIRED – "YYYY-MM-DD HH:MM:SS ±HHMM",
                                       #   offset-less, or bare "YYYY-MM-DD"
description: One-line summary           # OPTIONAL
author: Author Name                     # OPTIONAL
categories: [DevOps, Kubernetes]        # OPTIONAL – list or single value
tags: [ckad, kubernetes]                # OPTIONAL – list or single value
image:                                  # OPTIONAL
  path: /img/cover.png
toc: true                               # OPTIONAL – defaults to false
---

Body text in standard Markdown (GFM tables and task lists supported).
` + "```" + `

## Rules

1. **YAML front matter is mandatory for registration.** The ` + "`" + `---` + "`" + ` fences
   must each occupy a line of their own; an unterminated block fails the build.
2. **` + "`" + `title` + "`" + ` and ` + "`" + `date` + "`" + ` are required.** Posts missing either are
   rejected with the reason reported per file.
3. **Slugs are derived**, never written by hand: calendar date plus the
   kebab-cased title (` + "`" + `2025-01-15-my-post-title` + "`" + `). Two posts that derive
   the same slug fail the whole build; rename one.
4. **Scalars normalize to lists**: ` + "`" + `categories: DevOps` + "`" + ` is the same as
   ` + "`" + `categories: [DevOps]` + "`" + `.
5. **Unknown keys are preserved**, not rejected; renderers may use them.
6. **File paths** end with ` + "`" + `.md` + "`" + ` and use forward slashes.
7. **Encoding** is UTF-8 with a trailing newline.

## Example

` + "```" + `markdown
---
title: CKAD Exam Notes
date: 2024-06-02 12:09:45 +0000
categories: DevOps
tags: [ckad, kubernetes]
---

# CKAD Exam Notes

Core commands to memorize before the exam.
` + "```" + `
`
