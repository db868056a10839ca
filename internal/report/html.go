package report

import (
	"bytes"
	"html"

	"github.com/rotisserie/eris"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const htmlStyle = `<style>
body { font-family: Arial, Helvetica, sans-serif; font-size: 13px; color: #222; margin: 24px; }
table { border-collapse: collapse; margin-bottom: 18px; }
th { background: #4472C4; color: #fff; padding: 4px 8px; }
td { border: 1px solid #ddd; padding: 3px 8px; }
blockquote { border-left: 4px solid #4472C4; margin: 0 0 18px; padding: 4px 12px; background: #f3f6fb; }
</style>`

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// HTML converts a rendered Markdown report into a standalone HTML document.
func HTML(title, markdown string) (string, error) {
	var body bytes.Buffer
	if err := md.Convert([]byte(markdown), &body); err != nil {
		return "", eris.Wrap(err, "report: convert markdown")
	}

	var b bytes.Buffer
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>")
	b.WriteString(html.EscapeString(title))
	b.WriteString("</title>\n")
	b.WriteString(htmlStyle)
	b.WriteString("\n</head>\n<body>\n")
	b.Write(body.Bytes())
	b.WriteString("</body>\n</html>\n")
	return b.String(), nil
}
