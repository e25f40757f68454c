// Package docs registra la especificación Swagger embebida que sirve el
// middleware de documentación. Se mantiene a mano junto con los handlers.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/orders": {
            "post": {
                "security": [{"Bearer": []}],
                "tags": ["orders"],
                "summary": "Crear una orden de salida (estado inicial HOLD)",
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}}
            }
        },
        "/api/orders/{id}": {
            "get": {
                "security": [{"Bearer": []}],
                "tags": ["orders"],
                "summary": "Obtener una orden con sus asignaciones y timestamps",
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/api/orders/{id}/{event}": {
            "post": {
                "security": [{"Bearer": []}],
                "tags": ["orders"],
                "summary": "Aplicar un evento de la máquina de estados a la orden",
                "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}
            }
        },
        "/api/stock/receive": {
            "post": {
                "security": [{"Bearer": []}],
                "tags": ["stock"],
                "summary": "Registrar recepción de stock",
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}}
            }
        },
        "/api/stock/lots/{lotId}/adjust": {
            "post": {
                "security": [{"Bearer": []}],
                "tags": ["stock"],
                "summary": "Ajuste manual de un lote (conteo cíclico, merma)",
                "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}
            }
        },
        "/api/stock/lots/{lotId}/movements": {
            "get": {
                "security": [{"Bearer": []}],
                "tags": ["stock"],
                "summary": "Movimientos de un lote posteriores a un cursor",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/stock/{sku}/lots": {
            "get": {
                "security": [{"Bearer": []}],
                "tags": ["stock"],
                "summary": "Lotes de un SKU con on-hand, reservado y disponible",
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "securityDefinitions": {
        "Bearer": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "WMS API",
	Description:      "Ledger de inventario y máquina de estados de fulfillment para bodega multicliente",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
