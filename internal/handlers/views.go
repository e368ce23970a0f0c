package handlers

import (
	"html/template"
	"time"

	"github.com/gin-contrib/multitemplate"
)

const layoutTemplate = `<!DOCTYPE html>
<html lang="ru">
<head>
<meta charset="utf-8">
<title>{{template "title" .}}</title>
<style>
body { font-family: sans-serif; max-width: 40rem; margin: 2rem auto; }
table { width: 100%; border-collapse: collapse; }
td, th { border-bottom: 1px solid #ccc; padding: .3rem; text-align: left; }
td.amount { text-align: right; }
@media print { .noprint { display: none; } }
</style>
</head>
<body>
{{template "content" .}}
</body>
</html>`

const shoppingListTemplate = `{{define "title"}}Список покупок{{end}}
{{define "content"}}
<h1>Список покупок</h1>
{{if .CurrentUser}}<p>{{.CurrentUser.FirstName}} {{.CurrentUser.LastName}}, {{formatDate .GeneratedAt}}</p>{{end}}
{{if .Items}}
<table>
<tr><th>#</th><th>Ингредиент</th><th>Количество</th><th>Ед.</th></tr>
{{range $i, $it := .Items}}<tr><td>{{add $i 1}}</td><td>{{$it.Name}}</td><td class="amount">{{$it.TotalAmount}}</td><td>{{$it.MeasurementUnit}}</td></tr>
{{end}}</table>
{{else}}
<p>Корзина пуста.</p>
{{end}}
<p class="noprint"><a href="{{.CurrentPath}}">CSV</a></p>
{{end}}`

// NewRenderer 注册打印版购物清单等 HTML 视图
func NewRenderer() multitemplate.Renderer {
	r := multitemplate.NewRenderer()

	funcMap := template.FuncMap{
		"add": func(a, b int) int {
			return a + b
		},
		"formatDate": func(t time.Time) string {
			return t.Format("02.01.2006")
		},
	}

	r.AddFromStringsFuncs("shopping/list.html", funcMap, layoutTemplate, shoppingListTemplate)
	return r
}
