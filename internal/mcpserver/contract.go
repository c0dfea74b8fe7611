package mcpserver

// DocumentFormatContract describes how documents are written and read
// through the MCP tools.
const DocumentFormatContract = `# Folio Document Format Contract

Folio stores every document as a JSON snapshot of its node tree. Tools accept
and return HTML so that LLM consumers never edit snapshots by hand.

## Writing

Pass HTML to ` + "`" + `create_document` + "`" + `. Only these elements survive import:

- Blocks: ` + "`" + `<p>` + "`" + `, ` + "`" + `<h1>` + "`" + `, ` + "`" + `<blockquote>` + "`" + `. Other headings become paragraphs.
- Inline: ` + "`" + `<strong>` + "`" + `/` + "`" + `<b>` + "`" + ` (bold), ` + "`" + `<s>` + "`" + ` (strikethrough), ` + "`" + `<a href>` + "`" + `, ` + "`" + `<br>` + "`" + `.
- Images: ` + "`" + `<img src alt>` + "`" + `, optionally inside ` + "`" + `<figure>` + "`" + ` with a ` + "`" + `<figcaption>` + "`" + `.
- Embeds: ` + "`" + `<div class="embed-youtube|embed-twitter|embed-instagram" data-url="...">` + "`" + `.

Everything else is dropped or reduced to its text.

## Rules

1. **Paths** are relative, use forward slashes and end with ` + "`" + `.json` + "`" + `
   (the extension is added when missing).
2. **Title** is the text of the first ` + "`" + `<h1>` + "`" + `, else the first non-empty line.
3. **Tags** are ` + "`" + `#words` + "`" + ` in the text (e.g. ` + "`" + `#reading-list` + "`" + `).
4. **Images** reference uploaded assets. Upload with ` + "`" + `upload_image` + "`" + `, then use
   the returned ` + "`" + `url` + "`" + ` (` + "`" + `/assets/<name>` + "`" + `) as the ` + "`" + `src` + "`" + `.
   Supported formats: png, jpg, jpeg, gif, webp.
5. **Links** are found again with ` + "`" + `find_linking_documents` + "`" + `; embeds count as links to
   their canonical URL.

## Reading

` + "`" + `read_document` + "`" + ` renders a document as ` + "`" + `html` + "`" + ` (default), ` + "`" + `markdown` + "`" + ` (with YAML
frontmatter), ` + "`" + `text` + "`" + ` or the raw ` + "`" + `json` + "`" + ` snapshot.

## Example

` + "```" + `html
<h1>Reading list</h1>
<p>Start with <strong>The Go Programming Language</strong>. #books</p>
<figure><img src="/assets/cover.png" alt="Cover"><figcaption>Cover</figcaption></figure>
<div class="embed-youtube" data-url="https://www.youtube.com/watch?v=dQw4w9WgXcQ"></div>
` + "```" + `
`
