package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Childcare Reservation API",
        "description": "Drop-off reservations with automatic admission control",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"},
        "BasicAuth": {"type": "basic"}
    },
    "tags": [
        {"name": "Reservations", "description": "Guardian availability and submission"},
        {"name": "Calendar", "description": "Closure calendar"},
        {"name": "Authentication", "description": "Staff login"},
        {"name": "Admin", "description": "Staff reservation console"},
        {"name": "Exports", "description": "CSV and PDF downloads"}
    ],
    "paths": {
        "/availability": {
            "get": {
                "tags": ["Reservations"],
                "summary": "Availability for a date",
                "parameters": [
                    {"name": "date", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "time", "in": "query", "required": false, "type": "string", "description": "HH:MM"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Store timeout", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reservations": {
            "post": {
                "tags": ["Reservations"],
                "summary": "Submit a reservation",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitReservationRequest"}}
                ],
                "responses": {
                    "201": {"description": "Admitted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "DAILY_FULL, PERIOD_FULL or DUPLICATE_CHILD", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "CLOSED or OUTSIDE_WINDOW", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "STORE_TIMEOUT", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/calendar": {
            "get": {
                "tags": ["Calendar"],
                "summary": "Month calendar",
                "parameters": [
                    {"name": "month", "in": "query", "required": true, "type": "string", "description": "YYYY-MM"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Staff login",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/StaffLoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current staff session",
                "security": [{"BearerAuth": []}, {"BasicAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/admin/reservations": {
            "get": {
                "tags": ["Admin"],
                "summary": "List reservations",
                "security": [{"BearerAuth": []}, {"BasicAuth": []}],
                "parameters": [
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "q", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"},
                    {"name": "sort", "in": "query", "type": "string", "enum": ["asc", "desc"]}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/reservations/{id}": {
            "get": {
                "tags": ["Admin"],
                "summary": "Get a reservation",
                "security": [{"BearerAuth": []}, {"BasicAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/reservations/{id}/status": {
            "patch": {
                "tags": ["Admin"],
                "summary": "Change reservation status",
                "security": [{"BearerAuth": []}, {"BasicAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Child already active on that date", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Stale version", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/reservations/{id}/dropoff": {
            "patch": {
                "tags": ["Admin"],
                "summary": "Correct the drop-off time",
                "security": [{"BearerAuth": []}, {"BasicAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateDropoffRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/reservations/{id}/history": {
            "get": {
                "tags": ["Admin"],
                "summary": "Reservation audit trail",
                "security": [{"BearerAuth": []}, {"BasicAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/overrides/{date}": {
            "get": {
                "tags": ["Admin"],
                "summary": "Get the override for a date",
                "security": [{"BearerAuth": []}, {"BasicAuth": []}],
                "parameters": [{"name": "date", "in": "path", "required": true, "type": "string", "format": "date"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "put": {
                "tags": ["Admin"],
                "summary": "Set the override for a date",
                "security": [{"BearerAuth": []}, {"BasicAuth": []}],
                "parameters": [
                    {"name": "date", "in": "path", "required": true, "type": "string", "format": "date"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpsertOverrideRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/capacity": {
            "get": {
                "tags": ["Admin"],
                "summary": "Capacity for a date",
                "security": [{"BearerAuth": []}, {"BasicAuth": []}],
                "parameters": [{"name": "date", "in": "query", "required": true, "type": "string", "format": "date"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/export/reservations.csv": {
            "get": {
                "tags": ["Exports"],
                "summary": "Export reservations as CSV",
                "produces": ["text/csv"],
                "security": [{"BearerAuth": []}, {"BasicAuth": []}],
                "parameters": [
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"},
                    {"name": "status", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "CSV file", "schema": {"type": "file"}}}
            }
        },
        "/admin/export/people.csv": {
            "get": {
                "tags": ["Exports"],
                "summary": "Export guardians and children as CSV",
                "produces": ["text/csv"],
                "security": [{"BearerAuth": []}, {"BasicAuth": []}],
                "parameters": [
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"},
                    {"name": "q", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "CSV file", "schema": {"type": "file"}}}
            }
        },
        "/admin/export/roster.pdf": {
            "get": {
                "tags": ["Exports"],
                "summary": "Daily roster PDF",
                "produces": ["application/pdf"],
                "security": [{"BearerAuth": []}, {"BasicAuth": []}],
                "parameters": [{"name": "date", "in": "query", "required": true, "type": "string", "format": "date"}],
                "responses": {"200": {"description": "PDF file", "schema": {"type": "file"}}}
            }
        }
    },
    "definitions": {
        "SubmitReservationRequest": {
            "type": "object",
            "required": ["guardianName", "email", "preferredDate", "dropoffTime"],
            "properties": {
                "guardianName": {"type": "string", "description": "guardian_name is also accepted"},
                "email": {"type": "string"},
                "childName": {"type": "string"},
                "childBirthdate": {"type": "string", "format": "date"},
                "preferredDate": {"type": "string", "format": "date"},
                "dropoffTime": {"type": "string", "example": "09:30"}
            }
        },
        "StaffLoginRequest": {
            "type": "object",
            "required": ["username", "password"],
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "UpdateStatusRequest": {
            "type": "object",
            "required": ["status"],
            "properties": {
                "status": {"type": "string", "enum": ["pending", "approved", "rejected", "canceled"]},
                "version": {"type": "integer"}
            }
        },
        "UpdateDropoffRequest": {
            "type": "object",
            "required": ["dropoff_time"],
            "properties": {
                "dropoff_time": {"type": "string"},
                "version": {"type": "integer"}
            }
        },
        "UpsertOverrideRequest": {
            "type": "object",
            "required": ["is_open"],
            "properties": {
                "is_open": {"type": "boolean"},
                "daily_limit": {"type": "integer"},
                "note": {"type": "string"}
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
