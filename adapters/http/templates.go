package http

import "html/template"

// pageData feeds the host page template.
type pageData struct {
	Title   string
	Balance string
	Notice  *notice
	Slots   []slotData
}

type notice struct {
	Kind string // "success" or "error"
	Text string
}

type slotData struct {
	Name    string
	Remote  string
	Phase   string
	Err     string
	Content template.HTML
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<header class="shell-header">
  <h1>{{.Title}}</h1>
  <div class="balance">
    <p>Saldo Disponible</p>
    <p class="balance-amount">{{.Balance}}</p>
  </div>
</header>
{{with .Notice}}<div class="notice notice-{{.Kind}}">{{.Text}}</div>{{end}}
<main>
{{- range .Slots}}
  <section class="slot" data-slot="{{.Name}}" data-remote="{{.Remote}}" data-phase="{{.Phase}}">
  {{- if eq .Phase "failed"}}
    <div class="mfe-error"><p>Error al cargar el módulo: {{.Err}}</p></div>
  {{- else if eq .Phase "ready"}}
    {{.Content}}
  {{- else}}
    <div class="mfe-loading"><p>Cargando...</p></div>
  {{- end}}
  </section>
{{- end}}
</main>
</body>
</html>
`))

// transferFormData feeds the transfer form fragment.
type transferFormData struct {
	Action    string
	MinAmount string
	MaxAmount string
}

var transferFormTemplate = template.Must(template.New("transfer").Parse(`<div class="mfe-transfers">
  <h2>Nueva Transferencia</h2>
  <form method="post" action="{{.Action}}">
    <label>Cuenta Origen
      <input name="sourceAccount" pattern="[0-9]{10}" placeholder="1234567890" required>
    </label>
    <label>Cuenta Destino
      <input name="destinationAccount" pattern="[0-9]{10}" placeholder="0987654321" required>
    </label>
    <label>Monto
      <input name="amount" type="number" step="0.01" min="{{.MinAmount}}" max="{{.MaxAmount}}" placeholder="0.00" required>
    </label>
    <label>Descripción
      <textarea name="description" placeholder="Concepto de la transferencia"></textarea>
    </label>
    <button type="submit">Realizar Transferencia</button>
  </form>
</div>`))
