package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA ADP Admin",
        "description": "Students dashboard of the school admin front end. Page actions accept form posts and answer JSON when asked with Accept: application/json.",
        "version": "0.2.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Students", "description": "Students page state and actions"},
        {"name": "Exports", "description": "Signed export downloads"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "A dependency is unavailable"}
                }
            }
        },
        "/students/state": {
            "get": {
                "tags": ["Students"],
                "summary": "Fetch the current page and return the page state",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ViewEnvelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/search": {
            "post": {
                "tags": ["Students"],
                "summary": "Update the search term (debounced)",
                "consumes": ["application/x-www-form-urlencoded"],
                "parameters": [
                    {"name": "name", "in": "formData", "type": "string", "maxLength": 100}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ViewEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/page": {
            "post": {
                "tags": ["Students"],
                "summary": "Change page",
                "consumes": ["application/x-www-form-urlencoded"],
                "parameters": [
                    {"name": "page", "in": "formData", "type": "integer", "minimum": 1, "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ViewEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/selection/all": {
            "post": {
                "tags": ["Students"],
                "summary": "Select or clear every row on the loaded page",
                "consumes": ["application/x-www-form-urlencoded"],
                "parameters": [
                    {"name": "checked", "in": "formData", "type": "boolean", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ViewEnvelope"}}
                }
            }
        },
        "/students/selection/rows/{id}": {
            "post": {
                "tags": ["Students"],
                "summary": "Select or deselect one row",
                "consumes": ["application/x-www-form-urlencoded"],
                "parameters": [
                    {"name": "id", "in": "path", "type": "integer", "required": true},
                    {"name": "checked", "in": "formData", "type": "boolean", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ViewEnvelope"}},
                    "400": {"description": "Row not on the loaded page", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/rows/{id}/delete": {
            "post": {
                "tags": ["Students"],
                "summary": "Open the delete confirmation for a row",
                "parameters": [
                    {"name": "id", "in": "path", "type": "integer", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ViewEnvelope"}},
                    "409": {"description": "A delete is already running", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/delete/cancel": {
            "post": {
                "tags": ["Students"],
                "summary": "Close the delete confirmation",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ViewEnvelope"}}
                }
            }
        },
        "/students/delete/confirm": {
            "post": {
                "tags": ["Students"],
                "summary": "Delete the student awaiting confirmation",
                "responses": {
                    "200": {"description": "Upstream message", "schema": {"$ref": "#/definitions/MessageEnvelope"}},
                    "409": {"description": "No dialog open or a delete is already running", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Student API failure", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/export": {
            "post": {
                "tags": ["Students"],
                "summary": "Export the selected students through the student API",
                "responses": {
                    "200": {"description": "Signed link", "schema": {"$ref": "#/definitions/ExportLinkEnvelope"}},
                    "400": {"description": "Nothing selected", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Student API failure", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/export/snapshot": {
            "get": {
                "tags": ["Students"],
                "summary": "Download the selected rows of the loaded page",
                "produces": ["text/csv", "application/pdf", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "xlsx", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "400": {"description": "Nothing selected or unknown format", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a stored export",
                "parameters": [
                    {"name": "token", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "410": {"description": "Link invalid or expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "Student": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "first_name": {"type": "string"},
                "middle_name": {"type": "string"},
                "last_name": {"type": "string"},
                "email": {"type": "string"},
                "student_number": {"type": "string"},
                "phone_number": {"type": "string"}
            }
        },
        "Row": {
            "type": "object",
            "properties": {
                "student": {"$ref": "#/definitions/Student"},
                "selected": {"type": "boolean"}
            }
        },
        "Notice": {
            "type": "object",
            "properties": {
                "kind": {"type": "string", "enum": ["success", "error"]},
                "title_id": {"type": "string"},
                "description": {"type": "string"}
            }
        },
        "DialogView": {
            "type": "object",
            "properties": {
                "open": {"type": "boolean"},
                "submitting": {"type": "boolean"},
                "confirm_locked": {"type": "boolean"},
                "student": {"$ref": "#/definitions/Student"}
            }
        },
        "View": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "search": {"type": "string"},
                "applied_search": {"type": "string"},
                "search_pending": {"type": "boolean"},
                "status": {"type": "string", "enum": ["idle", "loading", "success", "error"]},
                "loading": {"type": "boolean"},
                "failed": {"type": "boolean"},
                "rows": {"type": "array", "items": {"$ref": "#/definitions/Row"}},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "all_selected": {"type": "boolean"},
                "selected_ids": {"type": "array", "items": {"type": "integer"}},
                "selection_count": {"type": "integer"},
                "export_visible": {"type": "boolean"},
                "dialog": {"$ref": "#/definitions/DialogView"},
                "notices": {"type": "array", "items": {"$ref": "#/definitions/Notice"}}
            }
        },
        "ExportLink": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "url": {"type": "string"},
                "filename": {"type": "string"},
                "size": {"type": "integer"},
                "count": {"type": "integer"},
                "expires_at": {"type": "string", "format": "date-time"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "current_page": {"type": "integer"},
                "last_page": {"type": "integer"},
                "per_page": {"type": "integer"},
                "total": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
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
        },
        "ViewEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/View"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        },
        "MessageEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object", "properties": {"message": {"type": "string"}}}
            }
        },
        "ExportLinkEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/ExportLink"}
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
