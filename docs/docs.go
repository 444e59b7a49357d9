// Package docs registers the OpenAPI document served at /swagger/doc.json.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "paths": {
        "/agency": {"get": {"tags": ["agency"], "summary": "The caller's agency", "security": [{"BearerAuth": []}]}},
        "/{resource}": {
            "get": {"tags": ["resources"], "summary": "List resources", "security": [{"BearerAuth": []}]},
            "post": {"tags": ["resources"], "summary": "Create a resource", "security": [{"BearerAuth": []}]}
        },
        "/{resource}/{id}": {
            "get": {"tags": ["resources"], "summary": "Get a resource", "security": [{"BearerAuth": []}]},
            "patch": {"tags": ["resources"], "summary": "Update a resource", "security": [{"BearerAuth": []}]},
            "delete": {"tags": ["resources"], "summary": "Delete a resource", "security": [{"BearerAuth": []}]}
        },
        "/customers/export.csv": {"get": {"tags": ["customers"], "summary": "Export customers as CSV", "produces": ["text/csv"], "security": [{"BearerAuth": []}]}},
        "/images/{id}/upload": {"post": {"tags": ["images"], "summary": "Upload a base image", "consumes": ["multipart/form-data"], "security": [{"BearerAuth": []}]}},
        "/images/{id}/render": {"get": {"tags": ["images"], "summary": "Render a preview", "produces": ["image/png"], "security": [{"BearerAuth": []}]}},
        "/widgets/position/snap": {"post": {"tags": ["widgets"], "summary": "Snap a widget position", "security": [{"BearerAuth": []}]}},
        "/widgets/{id}/events": {"get": {"tags": ["widgets"], "summary": "Recent social-proof events", "security": [{"BearerAuth": []}]}},
        "/drafts/{resource}/{id}": {
            "get": {"tags": ["drafts"], "summary": "Open or inspect a draft", "security": [{"BearerAuth": []}]},
            "put": {"tags": ["drafts"], "summary": "Update the draft snapshot", "security": [{"BearerAuth": []}]},
            "delete": {"tags": ["drafts"], "summary": "Close the draft", "security": [{"BearerAuth": []}]}
        },
        "/drafts/{resource}/{id}/flush": {"post": {"tags": ["drafts"], "summary": "Save the draft now", "security": [{"BearerAuth": []}]}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "Agency Toolkit API",
	Description:      "Tenant CRUD, drafts, image personalization and the public embed API.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
