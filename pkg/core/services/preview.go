package services

import (
	"bytes"
	"html/template"

	"github.com/wadjakorntonsri/linkgate/pkg/core/domain"
)

var previewTemplate = template.Must(template.New("preview").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
{{- if .Link.OGTitle}}
<meta property="og:title" content="{{.Link.OGTitle}}">
{{- end}}
{{- if .Link.OGDescription}}
<meta property="og:description" content="{{.Link.OGDescription}}">
{{- end}}
{{- if .Link.OGImage}}
<meta property="og:image" content="{{.Link.OGImage}}">
{{- end}}
<meta property="og:url" content="{{.Target}}">
<meta property="og:type" content="website">
<meta name="twitter:card" content="{{if .Link.OGImage}}summary_large_image{{else}}summary{{end}}">
{{- if .Link.OGTitle}}
<meta name="twitter:title" content="{{.Link.OGTitle}}">
{{- end}}
{{- if .Link.OGDescription}}
<meta name="twitter:description" content="{{.Link.OGDescription}}">
{{- end}}
{{- if .Link.OGImage}}
<meta name="twitter:image" content="{{.Link.OGImage}}">
{{- end}}
<meta http-equiv="refresh" content="0;url={{.Target}}">
<script>window.location.replace({{.Target}});</script>
</head>
<body>
<p>Redirecting to <a href="{{.Target}}">{{.Target}}</a></p>
</body>
</html>
`))

// renderPreview builds the social-card page that forwards to target.
func renderPreview(link *domain.Link, target string) ([]byte, error) {
	title := link.OGTitle
	if title == "" {
		title = link.Title
	}
	if title == "" {
		title = target
	}

	var buf bytes.Buffer
	err := previewTemplate.Execute(&buf, struct {
		Link   *domain.Link
		Target string
		Title  string
	}{link, target, title})
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
