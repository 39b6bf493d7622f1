// Package docs holds the swag-registered API document.
// Regenerate with: swag init -g cmd/gateway/main.go -o internal/docs --outputTypes go
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
        "/api/v1/payments/initiate": {
            "post": {
                "description": "Validates the request, records a pending attempt and sends a push prompt to the payer's phone.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["payments"],
                "summary": "Initiate a coin purchase",
                "operationId": "initiatePayment",
                "parameters": [
                    {
                        "description": "Purchase details",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/handler.InitiateRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "Push accepted", "schema": {"$ref": "#/definitions/handler.InitiateResponse"}},
                    "400": {"description": "Invalid input", "schema": {"$ref": "#/definitions/handler.InitiateResponse"}},
                    "429": {"description": "Too many attempts", "schema": {"$ref": "#/definitions/handler.InitiateResponse"}},
                    "502": {"description": "Gateway refused the push", "schema": {"$ref": "#/definitions/handler.InitiateResponse"}}
                }
            }
        },
        "/api/v1/payments/status/{checkoutRef}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["payments"],
                "summary": "Query the gateway for a checkout reference",
                "operationId": "queryGatewayStatus",
                "parameters": [
                    {"type": "string", "description": "Gateway checkout reference", "name": "checkoutRef", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "Gateway status", "schema": {"$ref": "#/definitions/handler.APIResponse"}},
                    "502": {"description": "Gateway error", "schema": {"$ref": "#/definitions/handler.APIResponse"}}
                }
            }
        },
        "/api/v1/payments/{paymentID}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["payments"],
                "summary": "Get a payment attempt",
                "operationId": "getPayment",
                "parameters": [
                    {"type": "string", "description": "Payment attempt id", "name": "paymentID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "Payment attempt", "schema": {"$ref": "#/definitions/handler.APIResponse"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/handler.APIResponse"}}
                }
            }
        },
        "/api/v1/payments/{paymentID}/poll": {
            "post": {
                "produces": ["application/json"],
                "tags": ["payments"],
                "summary": "Start a status polling session",
                "operationId": "startPolling",
                "parameters": [
                    {"type": "string", "description": "Payment attempt id", "name": "paymentID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "Session state", "schema": {"$ref": "#/definitions/handler.APIResponse"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/handler.APIResponse"}}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["payments"],
                "summary": "Cancel a status polling session",
                "operationId": "cancelPolling",
                "parameters": [
                    {"type": "string", "description": "Payment attempt id", "name": "paymentID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "Session state", "schema": {"$ref": "#/definitions/handler.APIResponse"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/handler.APIResponse"}}
                }
            }
        },
        "/api/v1/callbacks/mpesa": {
            "post": {
                "description": "Always acknowledged; processing happens after the response.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["callbacks"],
                "summary": "Gateway push-result callback",
                "operationId": "receiveCallback",
                "responses": {
                    "200": {"description": "Acknowledged", "schema": {"$ref": "#/definitions/handler.CallbackAck"}}
                }
            }
        },
        "/api/v1/admin/payments": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "List attempts awaiting review",
                "operationId": "listReviewQueue",
                "parameters": [
                    {"type": "array", "items": {"type": "string"}, "collectionFormat": "csv", "description": "completed and/or pending_review", "name": "status", "in": "query"},
                    {"type": "string", "description": "Restrict to one user", "name": "userId", "in": "query"},
                    {"type": "integer", "minimum": 1, "maximum": 200, "name": "limit", "in": "query"},
                    {"type": "integer", "minimum": 0, "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Attempts", "schema": {"$ref": "#/definitions/handler.APIResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.APIResponse"}}
                }
            }
        },
        "/api/v1/admin/payments/{paymentID}/approve": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Approve a completed attempt and credit its coins",
                "operationId": "approvePayment",
                "parameters": [
                    {"type": "string", "description": "Payment attempt id", "name": "paymentID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "Approved", "schema": {"$ref": "#/definitions/handler.APIResponse"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/handler.APIResponse"}},
                    "409": {"description": "Invalid transition", "schema": {"$ref": "#/definitions/handler.APIResponse"}}
                }
            }
        },
        "/api/v1/admin/payments/{paymentID}/reject": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Reject an attempt without crediting",
                "operationId": "rejectPayment",
                "parameters": [
                    {"type": "string", "description": "Payment attempt id", "name": "paymentID", "in": "path", "required": true},
                    {"description": "Rejection reason", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.RejectRequest"}}
                ],
                "responses": {
                    "200": {"description": "Rejected", "schema": {"$ref": "#/definitions/handler.APIResponse"}},
                    "409": {"description": "Invalid transition", "schema": {"$ref": "#/definitions/handler.APIResponse"}}
                }
            }
        },
        "/api/v1/admin/users/{userID}/adjustments": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Adjust a user's balance",
                "operationId": "adjustBalance",
                "parameters": [
                    {"type": "string", "name": "userID", "in": "path", "required": true},
                    {"description": "Adjustment", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.AdjustmentRequest"}}
                ],
                "responses": {
                    "200": {"description": "Adjusted", "schema": {"$ref": "#/definitions/handler.APIResponse"}},
                    "422": {"description": "Insufficient balance", "schema": {"$ref": "#/definitions/handler.APIResponse"}}
                }
            }
        },
        "/api/v1/users/{userID}/balance": {
            "get": {
                "produces": ["application/json"],
                "tags": ["ledger"],
                "summary": "Get a user's coin balance",
                "operationId": "getBalance",
                "parameters": [
                    {"type": "string", "name": "userID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "Balance", "schema": {"$ref": "#/definitions/handler.APIResponse"}}
                }
            }
        },
        "/api/v1/users/{userID}/ledger": {
            "get": {
                "produces": ["application/json"],
                "tags": ["ledger"],
                "summary": "List a user's ledger entries",
                "operationId": "listLedgerEntries",
                "parameters": [
                    {"type": "string", "name": "userID", "in": "path", "required": true},
                    {"type": "integer", "minimum": 1, "maximum": 200, "name": "limit", "in": "query"},
                    {"type": "integer", "minimum": 0, "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Entries", "schema": {"$ref": "#/definitions/handler.APIResponse"}}
                }
            }
        },
        "/api/v1/users/{userID}/usage": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["ledger"],
                "summary": "Spend coins",
                "operationId": "spendCoins",
                "parameters": [
                    {"type": "string", "name": "userID", "in": "path", "required": true},
                    {"description": "Usage", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.UsageRequest"}}
                ],
                "responses": {
                    "200": {"description": "Debited", "schema": {"$ref": "#/definitions/handler.APIResponse"}},
                    "422": {"description": "Insufficient balance", "schema": {"$ref": "#/definitions/handler.APIResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handler.APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "handler.APIResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/handler.APIError"}
            }
        },
        "handler.CallbackAck": {
            "type": "object",
            "properties": {
                "ResultCode": {"type": "integer"},
                "ResultDesc": {"type": "string"}
            }
        },
        "handler.InitiateRequest": {
            "type": "object",
            "required": ["phone", "amount", "userId", "coins"],
            "properties": {
                "phone": {"type": "string", "minLength": 1},
                "amount": {"type": "number"},
                "reference": {"type": "string", "maxLength": 12},
                "description": {"type": "string", "maxLength": 13},
                "userId": {"type": "string", "minLength": 1},
                "userEmail": {"type": "string"},
                "userName": {"type": "string"},
                "coins": {"type": "integer", "minimum": 1},
                "packageId": {"type": "string"},
                "packageInfo": {"type": "string"}
            }
        },
        "handler.InitiateResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "checkoutRef": {"type": "string"},
                "merchantRef": {"type": "string"},
                "paymentId": {"type": "string"},
                "customerMessage": {"type": "string"},
                "message": {"type": "string"},
                "errorCode": {"type": "string"}
            }
        },
        "handler.RejectRequest": {
            "type": "object",
            "required": ["reason"],
            "properties": {
                "reason": {"type": "string", "minLength": 1}
            }
        },
        "handler.AdjustmentRequest": {
            "type": "object",
            "required": ["delta", "note"],
            "properties": {
                "delta": {"type": "integer"},
                "note": {"type": "string", "minLength": 1}
            }
        },
        "handler.UsageRequest": {
            "type": "object",
            "required": ["coins"],
            "properties": {
                "coins": {"type": "integer", "minimum": 1},
                "note": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "CoinPay Gateway API",
	Description:      "Push-payment initiation, reconciliation and coin ledger.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
