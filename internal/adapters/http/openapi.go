package httpadapter

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
)

//go:embed openapi.yaml
var openAPIDocument []byte

func loadRequestValidator() (routers.Router, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openAPIDocument)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("validate openapi document: %w", err)
	}
	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("build openapi router: %w", err)
	}
	return router, nil
}

func mustLoadRequestValidator() routers.Router {
	router, err := loadRequestValidator()
	if err != nil {
		panic(err)
	}
	return router
}

// openAPIValidationMiddleware checks requests whose route is described in
// openapi.yaml. Anything else passes through untouched.
func openAPIValidationMiddleware(next http.Handler, router routers.Router) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, pathParams, err := router.FindRoute(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		input := &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: pathParams,
			Route:      route,
			Options: &openapi3filter.Options{
				AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
			},
		}
		if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": validationMessage(err)})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func validationMessage(err error) string {
	var reqErr *openapi3filter.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.RequestBody != nil && reqErr.Err != nil {
			return "invalid request body: " + reqErr.Err.Error()
		}
		return reqErr.Error()
	}
	return err.Error()
}
