// Package openapi describes the enrollment HTTP API as an OpenAPI 3 document
// derived from the form definition and its rules. The document is built,
// loaded and validated with kin-openapi, so what is served is always a
// document kin-openapi accepts.
package openapi
