// Package docs holds the OpenAPI description served at /swagger when
// SWAGGER_ENABLED is set. Regenerate with `swag init -g cmd/server/main.go`.
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
        "/auth/register": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Register a customer account",
                "operationId": "register",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.RegisterRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handlers.AuthResponse"}},
                    "400": {"description": "Missing fields", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Username already exists", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Log in",
                "operationId": "login",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.LoginRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.AuthResponse"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/auth/admin/create": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Provision an administrator",
                "operationId": "createAdmin",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.CreateAdminRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handlers.MessageResponse"}},
                    "403": {"description": "Invalid admin secret", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/auth/profile": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Current account",
                "operationId": "getProfile",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ProfileResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Update the current account",
                "operationId": "updateProfile",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.UpdateProfileRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.UpdateProfileResponse"}},
                    "401": {"description": "Unauthorized or wrong current password", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/complaints": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Complaints"],
                "summary": "List complaints",
                "operationId": "listComplaints",
                "parameters": [
                    {"type": "string", "name": "If-None-Match", "in": "header"},
                    {"type": "integer", "minimum": 1, "name": "page", "in": "query"},
                    {"type": "integer", "maximum": 100, "minimum": 1, "default": 20, "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListComplaintsResponse"}, "headers": {"ETag": {"type": "string"}}},
                    "304": {"description": "Not Modified"},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Complaints"],
                "summary": "Submit a complaint",
                "operationId": "createComplaint",
                "parameters": [
                    {"type": "string", "name": "Idempotency-Key", "in": "header"},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.CreateComplaintRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handlers.ComplaintMessageResponse"}, "headers": {"Idempotency-Replayed": {"type": "string"}}},
                    "400": {"description": "Missing fields or bad Idempotency-Key", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/complaints/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Complaints"],
                "summary": "Get a complaint",
                "operationId": "getComplaint",
                "parameters": [{"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ComplaintResponse"}},
                    "403": {"description": "Not the owner", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Complaint not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/complaints/{id}/respond": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Complaints"],
                "summary": "Add a response to the thread",
                "operationId": "respondToComplaint",
                "parameters": [
                    {"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.RespondRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ComplaintMessageResponse"}},
                    "409": {"description": "Closed complaint, reply limit or concurrent update", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/complaints/{id}/status": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Complaints"],
                "summary": "Change a complaint's status (admin)",
                "operationId": "updateComplaintStatus",
                "parameters": [
                    {"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.UpdateStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ComplaintMessageResponse"}},
                    "403": {"description": "Admin access required", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/complaints/{id}/rate": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Complaints"],
                "summary": "Rate a resolved complaint",
                "operationId": "rateComplaint",
                "parameters": [
                    {"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.RateRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ComplaintMessageResponse"}},
                    "409": {"description": "Not resolved, or already rated", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/homepage/data": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Homepage"],
                "summary": "Public statistics",
                "operationId": "homepageData",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.HomepageData"}}
                }
            }
        }
    },
    "definitions": {
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string"},
                "code": {"type": "string", "example": "not_found"},
                "message": {"type": "string", "example": "Complaint not found"}
            }
        },
        "handlers.MessageResponse": {
            "type": "object",
            "properties": {"message": {"type": "string"}}
        },
        "handlers.RegisterRequest": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"},
                "name": {"type": "string"},
                "email": {"type": "string"}
            }
        },
        "handlers.LoginRequest": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "handlers.CreateAdminRequest": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"},
                "name": {"type": "string"},
                "email": {"type": "string"},
                "adminSecret": {"type": "string"}
            }
        },
        "handlers.UpdateProfileRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "email": {"type": "string"},
                "currentPassword": {"type": "string"},
                "newPassword": {"type": "string"}
            }
        },
        "handlers.UserResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "username": {"type": "string"},
                "name": {"type": "string"},
                "email": {"type": "string"},
                "role": {"type": "string", "enum": ["customer", "admin"]},
                "createdAt": {"type": "string", "format": "date-time"}
            }
        },
        "handlers.AuthResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "user": {"$ref": "#/definitions/handlers.UserResponse"},
                "token": {"type": "string"}
            }
        },
        "handlers.ProfileResponse": {
            "type": "object",
            "properties": {"user": {"$ref": "#/definitions/handlers.UserResponse"}}
        },
        "handlers.UpdateProfileResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "user": {"$ref": "#/definitions/handlers.UserResponse"}
            }
        },
        "handlers.CreateComplaintRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "category": {"type": "string"}
            }
        },
        "handlers.RespondRequest": {
            "type": "object",
            "properties": {
                "response": {"type": "string"},
                "status": {"type": "string", "enum": ["pending", "in-progress", "resolved", "closed"]}
            }
        },
        "handlers.UpdateStatusRequest": {
            "type": "object",
            "properties": {"status": {"type": "string", "enum": ["pending", "in-progress", "resolved", "closed"]}}
        },
        "handlers.RateRequest": {
            "type": "object",
            "properties": {"rating": {"type": "integer", "minimum": 1, "maximum": 5}}
        },
        "handlers.Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total": {"type": "integer"},
                "total_pages": {"type": "integer"},
                "has_next": {"type": "boolean"}
            }
        },
        "domain.Response": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "adminId": {"type": "string"},
                "adminName": {"type": "string"},
                "message": {"type": "string"},
                "statusChange": {"type": "string"},
                "createdAt": {"type": "string", "format": "date-time"}
            }
        },
        "domain.Complaint": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "userId": {"type": "string"},
                "userName": {"type": "string"},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "category": {"type": "string"},
                "status": {"type": "string", "enum": ["pending", "in-progress", "resolved", "closed"]},
                "responses": {"type": "array", "items": {"$ref": "#/definitions/domain.Response"}},
                "rating": {"type": "integer"},
                "version": {"type": "integer"},
                "createdAt": {"type": "string", "format": "date-time"},
                "updatedAt": {"type": "string", "format": "date-time"}
            }
        },
        "handlers.ListComplaintsResponse": {
            "type": "object",
            "properties": {
                "complaints": {"type": "array", "items": {"$ref": "#/definitions/domain.Complaint"}},
                "pagination": {"$ref": "#/definitions/handlers.Pagination"}
            }
        },
        "handlers.ComplaintResponse": {
            "type": "object",
            "properties": {"complaint": {"$ref": "#/definitions/domain.Complaint"}}
        },
        "handlers.ComplaintMessageResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "complaint": {"$ref": "#/definitions/domain.Complaint"}
            }
        },
        "services.HomepageData": {
            "type": "object",
            "properties": {
                "stats": {"type": "object"},
                "recentComplaints": {"type": "array", "items": {"type": "object"}},
                "topRatedComplaints": {"type": "array", "items": {"type": "object"}},
                "categories": {"type": "object", "additionalProperties": {"type": "integer"}},
                "statusDistribution": {"type": "object"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and the token.",
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
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Complaints API",
	Description:      "Customer complaint desk: accounts, complaint threads, ratings and public statistics.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
