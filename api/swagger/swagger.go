package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SISB Backoffice Billing API",
        "description": "Fee catalog, selection, pricing and invoicing for campus back offices",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login, token refresh and logout"},
        {"name": "Catalog", "description": "Fee items and bundle templates"},
        {"name": "Selections", "description": "Invoice-creation selection sessions"},
        {"name": "Pricing", "description": "Seasonal registration pricing rules and quotes"},
        {"name": "Invoices", "description": "Invoice batches, listing and export"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Expired or revoked token"}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Logout current session",
                "responses": {
                    "204": {"description": "Logged out"}
                }
            }
        },
        "/fee-items": {
            "get": {
                "tags": ["Catalog"],
                "summary": "List fee items for a grade and category",
                "parameters": [
                    {"name": "grade", "in": "query", "type": "string", "required": true},
                    {"name": "category", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Catalog"],
                "summary": "Create fee item",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/fee-items/{id}": {
            "get": {
                "tags": ["Catalog"],
                "summary": "Get fee item",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["Catalog"],
                "summary": "Update fee item",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "delete": {
                "tags": ["Catalog"],
                "summary": "Retire fee item",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "204": {"description": "Retired"}
                }
            }
        },
        "/fee-templates": {
            "get": {
                "tags": ["Catalog"],
                "summary": "List fee templates for a grade",
                "parameters": [
                    {"name": "grade", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Catalog"],
                "summary": "Create fee template",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/fee-templates/{id}/items": {
            "get": {
                "tags": ["Catalog"],
                "summary": "Resolve a template into its fee items",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Template or referenced item missing"}
                }
            }
        },
        "/selections": {
            "post": {
                "tags": ["Selections"],
                "summary": "Start a selection session for a grade",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/selections/{id}": {
            "get": {
                "tags": ["Selections"],
                "summary": "Get session state",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Session not found"}
                }
            }
        },
        "/selections/{id}/category": {
            "post": {
                "tags": ["Selections"],
                "summary": "Switch category panel",
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Category locked by payment mode"}
                }
            }
        },
        "/selections/{id}/items/{itemId}/toggle": {
            "post": {
                "tags": ["Selections"],
                "summary": "Toggle a fee item",
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Category locked"},
                    "422": {"description": "Grade mismatch"}
                }
            }
        },
        "/selections/{id}/templates/{templateId}/apply": {
            "post": {
                "tags": ["Selections"],
                "summary": "Apply a template (merge, never replace)",
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Category locked"},
                    "422": {"description": "Grade mismatch"}
                }
            }
        },
        "/selections/{id}/templates/{templateId}": {
            "delete": {
                "tags": ["Selections"],
                "summary": "Clear a template's contribution",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/selections/{id}/payment-mode": {
            "post": {
                "tags": ["Selections"],
                "summary": "Set tuition payment mode",
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "No tuition selected or mixed categories"}
                }
            }
        },
        "/selections/{id}/finalize": {
            "post": {
                "tags": ["Selections"],
                "summary": "Finalize the selection",
                "responses": {
                    "200": {"description": "Immutable selection snapshot"},
                    "422": {"description": "Empty selection"}
                }
            }
        },
        "/pricing-rules": {
            "get": {
                "tags": ["Pricing"],
                "summary": "List pricing rule versions",
                "parameters": [
                    {"name": "period", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Pricing"],
                "summary": "Create pricing rule",
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/pricing-rules/{id}": {
            "get": {
                "tags": ["Pricing"],
                "summary": "Get pricing rule",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["Pricing"],
                "summary": "Issue a new rule version",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "New version"}
                }
            }
        },
        "/pricing/quote": {
            "post": {
                "tags": ["Pricing"],
                "summary": "Compute a tiered price quote",
                "responses": {
                    "200": {"description": "Quote", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/invoices": {
            "get": {
                "tags": ["Invoices"],
                "summary": "List invoices",
                "parameters": [
                    {"name": "batch", "in": "query", "type": "string"},
                    {"name": "student", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Invoices"],
                "summary": "Generate an invoice batch from a finalized selection",
                "responses": {
                    "201": {"description": "Batch created"},
                    "422": {"description": "Precondition violations"}
                }
            }
        },
        "/invoices/export": {
            "get": {
                "tags": ["Invoices"],
                "summary": "Export an invoice batch as CSV or PDF",
                "parameters": [
                    {"name": "batch", "in": "query", "type": "string", "required": true},
                    {"name": "format", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File download"},
                    "404": {"description": "Batch not found"}
                }
            }
        },
        "/invoices/{id}": {
            "get": {
                "tags": ["Invoices"],
                "summary": "Get invoice with line items",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not found"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "object"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
