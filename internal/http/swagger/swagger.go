package swagger

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"

	apicontract "github.com/tuanvumaihuynh/tenant-inventory/api-contract"
)

const (
	// DocsPath serves the Swagger UI.
	DocsPath = "/docs"

	// SpecPath serves the OpenAPI document the UI renders.
	SpecPath = "/docs/openapi.yml"

	swaggerUIVersion = "5.29.3"
)

var pageTemplate = template.Must(template.New("swagger").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>{{.Title}}</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@{{.Version}}/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@{{.Version}}/swagger-ui-bundle.js" crossorigin></script>
<script>
  window.onload = () => {
    window.ui = SwaggerUIBundle({
      url: {{.SpecURL}},
      dom_id: '#swagger-ui',
      deepLinking: true,
      requestInterceptor: (req) => {
        const storeID = window.localStorage.getItem('storeId');
        if (storeID) req.headers['X-Store-ID'] = storeID;
        return req;
      },
    });
  };
</script>
</body>
</html>
`))

// Register serves the Swagger UI and the embedded OpenAPI document on r.
func Register(r chi.Router) {
	var page bytes.Buffer
	if err := pageTemplate.Execute(&page, struct {
		Title   string
		Version string
		SpecURL string
	}{"Tenant Inventory API", swaggerUIVersion, SpecPath}); err != nil {
		panic(err)
	}
	pageBytes := page.Bytes()

	r.Get(DocsPath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		//nolint:errcheck
		w.Write(pageBytes)
	})

	specBytes := apicontract.GetSpecBytes()
	r.Get(SpecPath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
		//nolint:errcheck
		w.Write(specBytes)
	})
}
