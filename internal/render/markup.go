package render

import "html/template"

// Section markup shared by every template. Styles differ per template; the
// structure never does.

var headerTmpl = template.Must(template.New("header").Parse(`<header class="cv-header">
{{- if .PhotoURL}}<img class="cv-photo" src="{{.PhotoURL}}" alt="">{{end}}
<h1 class="cv-name">{{.Personal.FirstName}} {{.Personal.LastName}}</h1>
{{- if .Personal.Headline}}<div class="cv-headline">{{.Personal.Headline}}</div>{{end}}
<div class="cv-contact">
{{- if .Personal.Email}}<span>{{.Personal.Email}}</span>{{end}}
{{- if .Personal.Phone}}<span>{{.Personal.Phone}}</span>{{end}}
{{- if .Personal.Location}}<span>{{.Personal.Location}}</span>{{end}}
{{- if .Personal.Website}}<span>{{.Personal.Website}}</span>{{end}}
</div>
{{- if .Summary}}<div class="cv-summary">{{.Summary}}</div>{{end}}
</header>`))

var entryTmpl = template.Must(template.New("entry").Parse(`{{if .Label}}<h2 class="cv-section-title">{{.Label}}</h2>{{end}}<div class="cv-entry">
<div class="cv-entry-head"><span>{{.Entry.Title}}</span>{{if .Entry.Dates}}<span class="cv-entry-dates">{{.Entry.Dates}}</span>{{end}}</div>
{{- if .Entry.Subtitle}}<div class="cv-entry-sub">{{.Entry.Subtitle}}</div>{{end}}
{{- if .Entry.Desc}}<div class="cv-entry-desc">{{.Entry.Desc}}</div>{{end}}
</div>`))

var inlineSectionTmpl = template.Must(template.New("inline").Parse(`<h2 class="cv-section-title">{{.Label}}</h2>
<div class="cv-inline-list">
{{- range .Items}}<span class="cv-inline-item">{{.Name}}{{if .Level}} <span class="cv-level">{{.Level}}</span>{{end}}</span>
{{- end}}
</div>`))

var documentTmpl = template.Must(template.New("document").Parse(`<!DOCTYPE html>
<html lang="{{.Language}}">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<style>
:root { --accent: {{.Accent}}; }
{{.CSS}}
@media print {
  body { background: white; }
  .page { margin: 0; page-break-after: always; }
  .page:last-child { page-break-after: auto; }
  @page { size: A4; margin: 0; }
}
</style>
</head>
<body data-kind="{{.KindClass}}">
{{- range $i, $p := .Pages}}
<div class="page {{$.KindClass}}" data-page="{{$i}}">{{$p}}</div>
{{- end}}
<script>{{.Script}}</script>
</body>
</html>`))

// previewScript wires the rendered document to its host frame. On load it
// reports the page count; the host replies with changePage to switch the
// visible page in paginated mode. Digital documents always show everything.
const previewScript = `(function () {
  var pages = document.querySelectorAll('.page');
  var paginated = document.body.dataset.kind === 'page';

  function show(n) {
    if (!paginated) return;
    if (n < 0 || n >= pages.length) return;
    pages.forEach(function (p, i) {
      p.style.display = i === n ? 'block' : 'none';
    });
  }

  window.addEventListener('message', function (ev) {
    var msg = ev.data || {};
    if (msg.type === 'changePage') show(msg.page);
  });

  if (window.parent !== window) {
    window.parent.postMessage({ type: 'totalPages', count: pages.length }, '*');
  }
  show(0);
})();`
