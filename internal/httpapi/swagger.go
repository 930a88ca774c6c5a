//go:build swagger

package httpapi

import (
	_ "embed"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/swaggo/swag"
)

//go:embed swagger.json
var swaggerDoc string

func init() {
	swag.Register(swag.Name, &swag.Spec{
		Version:          "1.0",
		BasePath:         "/",
		Title:            "fitd API",
		Description:      "Train, load, serve and delete supervised-learning models.",
		InfoInstanceName: swag.Name,
		SwaggerTemplate:  swaggerDoc,
	})
}

// MountSwagger serves the Swagger UI under /swagger/.
func MountSwagger(r chi.Router) {
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}
