package render

// answerTemplate is the Go html/template for a rendered answer page.
const answerTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Question}} — bookquill</title>
  <style>
    body { font-family: Georgia, serif; max-width: 680px; margin: 3rem auto; padding: 0 1rem; color: #222; line-height: 1.6; }
    h1 { font-size: 1.4rem; border-bottom: 1px solid #ddd; padding-bottom: 0.5rem; }
    .answer { margin: 1.5rem 0; }
    .partial { background: #fff4e0; border: 1px solid #e8c98a; padding: 0.5rem 1rem; border-radius: 4px; font-size: 0.9rem; }
    .sources { border-top: 1px solid #ddd; margin-top: 2rem; padding-top: 1rem; font-size: 0.9rem; color: #555; }
    .sources ol { padding-left: 1.4rem; }
    .meta { margin-top: 2rem; font-size: 0.8rem; color: #999; }
    pre { background: #f6f8fa; padding: 0.75rem; border-radius: 4px; overflow-x: auto; }
    blockquote { border-left: 3px solid #ddd; margin-left: 0; padding-left: 1rem; color: #555; }
  </style>
</head>
<body>
  <h1>{{.Question}}</h1>
  {{if .Partial}}<p class="partial">Generation was interrupted; this answer is incomplete.</p>{{end}}
  <div class="answer">{{.Answer}}</div>
  {{if .Sources}}
  <div class="sources">
    <strong>Sources</strong>
    <ol>
      {{range .Sources}}<li>{{.Location}}</li>
      {{end}}
    </ol>
  </div>
  {{end}}
  <p class="meta">Answered from your subscribed books{{if .Model}} by {{.Model}}{{end}}.</p>
</body>
</html>`
