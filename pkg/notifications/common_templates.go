package notifications

var commonTemplates = map[string]string{
	`default`: `
{{- if .Error -}}
  Update of {{.Project}}/{{.Service}} failed: {{.Error}}
{{- else -}}
  {{- .ContainerName}} ({{.ImageTag}}): {{.OldImageID}} updated to {{.NewImageID}}
{{- end -}}`,

	`porcelain.v1.summary`: `
{{- .Project}}/{{.Service}}: {{if .Error}}failed{{else}}recreated{{end -}}
{{- with .Error}} Error: {{.}}{{end}}`,

	`json.v1`: `{{ . | ToJSON }}`,
}
