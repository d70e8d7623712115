package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
)

// openapiSpec describes the API surface for request validation.
const openapiSpec = `
openapi: 3.0.3
info:
  title: canopy API
  version: "1.0"
paths:
  /api/v1/runs:
    post:
      summary: Start a run and stream its events
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: object
              required: [prompt]
              properties:
                prompt:
                  type: string
                  minLength: 1
                collections:
                  type: array
                  items:
                    type: string
                history:
                  type: array
                  items:
                    type: object
                    required: [role, content]
                    properties:
                      role:
                        type: string
                      content:
                        type: string
                metadata:
                  type: object
                  additionalProperties: true
      responses:
        "200":
          description: SSE event stream
    get:
      summary: List recorded runs
      responses:
        "200":
          description: Run summaries
  /api/v1/runs/{id}:
    get:
      summary: Fetch one recorded run
      parameters:
        - name: id
          in: path
          required: true
          schema:
            type: string
      responses:
        "200":
          description: Ordered step records
        "404":
          description: Unknown run
  /api/v1/tree:
    get:
      summary: Inspect the assembled tree
      responses:
        "200":
          description: Tree snapshot
`

// newRequestValidator loads and validates the embedded document, then
// returns a middleware enforcing it. Requests that match no documented
// route pass through untouched (chi produces the 404).
func newRequestValidator() (func(http.Handler) http.Handler, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData([]byte(openapiSpec))
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}
	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("build openapi router: %w", err)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route, pathParams, err := router.FindRoute(r)
			if err != nil {
				if err == routers.ErrPathNotFound || err == routers.ErrMethodNotAllowed {
					next.ServeHTTP(w, r)
					return
				}
				http.Error(w, "request validation failed", http.StatusInternalServerError)
				return
			}

			input := &openapi3filter.RequestValidationInput{
				Request:    r,
				PathParams: pathParams,
				Route:      route,
			}
			if err := openapi3filter.ValidateRequest(context.Background(), input); err != nil {
				http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
				return
			}
			next.ServeHTTP(w, r)
		})
	}, nil
}
