// Package docs holds the OpenAPI description served at /swagger/*.
// Regenerate with: swag init -g cmd/trackerapi/main.go
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
        "/applications": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["applications"],
                "summary": "List applications, or fetch one",
                "parameters": [
                    {"type": "string", "description": "Return only this application", "name": "Application-Id", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/tracker.Application"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["applications"],
                "summary": "Create or replace an application",
                "parameters": [
                    {"type": "string", "description": "Application to replace", "name": "Application-Id", "in": "header"},
                    {"type": "string", "description": "Collapses retried creates into one record", "name": "Idempotency-Key", "in": "header"},
                    {"description": "Application", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.saveApplicationRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/tracker.Application"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["applications"],
                "summary": "Delete an application",
                "parameters": [
                    {"type": "string", "description": "Application to delete", "name": "Application-Id", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/tracker.Application"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/profiles": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["profiles"],
                "summary": "Get the caller's profile",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/tracker.Profile"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["profiles"],
                "summary": "Replace the caller's profile",
                "parameters": [
                    {"description": "Profile", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.profileRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/tracker.Profile"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/sessions": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["sessions"],
                "summary": "Sign out everywhere",
                "responses": {
                    "204": {"description": "No Content"},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/authorize": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["authorizer"],
                "summary": "Evaluate a token authorizer request",
                "parameters": [
                    {"description": "Authorizer request", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/authorizer.Request"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/authorizer.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "authorizer.Request": {
            "type": "object",
            "properties": {
                "type": {"type": "string"},
                "authorizationToken": {"type": "string"},
                "methodArn": {"type": "string"}
            }
        },
        "authorizer.Statement": {
            "type": "object",
            "properties": {
                "Action": {"type": "string"},
                "Effect": {"type": "string", "enum": ["Allow", "Deny"]},
                "Resource": {"type": "string"}
            }
        },
        "authorizer.PolicyDocument": {
            "type": "object",
            "properties": {
                "Version": {"type": "string"},
                "Statement": {"type": "array", "items": {"$ref": "#/definitions/authorizer.Statement"}}
            }
        },
        "authorizer.Response": {
            "type": "object",
            "properties": {
                "principalId": {"type": "string"},
                "policyDocument": {"$ref": "#/definitions/authorizer.PolicyDocument"},
                "context": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "handler.errorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"}
            }
        },
        "handler.saveApplicationRequest": {
            "type": "object",
            "required": ["company", "position"],
            "properties": {
                "position": {"type": "string"},
                "company": {"type": "string"},
                "location": {"type": "string"},
                "salary": {"type": "string"},
                "date": {"type": "string"},
                "status": {"type": "string"},
                "url": {"type": "string"},
                "notes": {"type": "string"}
            }
        },
        "handler.profileRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "firstName": {"type": "string"},
                "lastName": {"type": "string"}
            }
        },
        "tracker.Application": {
            "type": "object",
            "properties": {
                "applicationId": {"type": "string"},
                "userId": {"type": "string"},
                "position": {"type": "string"},
                "company": {"type": "string"},
                "location": {"type": "string"},
                "salary": {"type": "string"},
                "date": {"type": "string"},
                "status": {"type": "string"},
                "url": {"type": "string"},
                "notes": {"type": "string"}
            }
        },
        "tracker.Profile": {
            "type": "object",
            "properties": {
                "userId": {"type": "string"},
                "email": {"type": "string"},
                "firstName": {"type": "string"},
                "lastName": {"type": "string"}
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
	Title:            "Application Tracker API",
	Description:      "Per-user job application records behind a bearer-token authorizer.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
