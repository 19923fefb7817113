// Package docs registers the OpenAPI description served at /swagger.
// Regenerate with: swag init -g cmd/server/main.go
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
                "tags": ["auth"],
                "summary": "Register a new user",
                "parameters": [{"description": "User registration details", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.registerRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.authResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Login",
                "parameters": [{"description": "Login credentials", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.loginRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.authResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/health": {
            "get": {"produces": ["application/json"], "tags": ["health"], "summary": "Liveness probe", "responses": {"200": {"description": "OK"}}}
        },
        "/health/ready": {
            "get": {"produces": ["application/json"], "tags": ["health"], "summary": "Readiness probe", "responses": {"200": {"description": "OK"}, "503": {"description": "Service Unavailable"}}}
        },
        "/v1/incidents": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["incidents"],
                "summary": "List active incidents",
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.Incident"}}}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Creates an active incident and notifies eligible users within the radius.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["incidents"],
                "summary": "Trigger an SOS alert",
                "parameters": [{"description": "Alert", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.triggerRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.triggerResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/v1/incidents/nearby": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["incidents"],
                "summary": "Active incidents near a point, nearest first",
                "parameters": [
                    {"type": "number", "description": "Latitude", "name": "lat", "in": "query", "required": true},
                    {"type": "number", "description": "Longitude", "name": "lng", "in": "query", "required": true},
                    {"type": "number", "description": "Radius in meters (default 5000)", "name": "radius", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.nearbyResponse"}}}
            }
        },
        "/v1/incidents/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["incidents"],
                "summary": "Get an incident",
                "parameters": [{"type": "string", "description": "Incident id", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Incident"}}, "404": {"description": "Not Found"}}
            }
        },
        "/v1/incidents/{id}/respond": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["incidents"],
                "summary": "Respond to an incident",
                "parameters": [
                    {"type": "string", "description": "Incident id", "name": "id", "in": "path", "required": true},
                    {"description": "Responder's current location", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.pointRequest"}}
                ],
                "responses": {"201": {"description": "Created"}, "404": {"description": "Not Found"}, "409": {"description": "Conflict"}}
            }
        },
        "/v1/incidents/{id}/status": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "tags": ["incidents"],
                "summary": "Report responder progress",
                "parameters": [
                    {"type": "string", "description": "Incident id", "name": "id", "in": "path", "required": true},
                    {"description": "Progress", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.statusRequest"}}
                ],
                "responses": {"204": {"description": "No Content"}, "404": {"description": "Not Found"}, "409": {"description": "Conflict"}}
            }
        },
        "/v1/incidents/{id}/resolve": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["incidents"],
                "summary": "Resolve an incident (triggerer only)",
                "parameters": [{"type": "string", "description": "Incident id", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}, "409": {"description": "Conflict"}}
            }
        },
        "/v1/incidents/{id}/messages": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["chat"],
                "summary": "Coordination log, oldest first",
                "parameters": [{"type": "string", "description": "Incident id", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "The message is delivered to the incident room even when storage is degraded; \"persisted\" reports whether it reached the log.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["chat"],
                "summary": "Send a coordination message",
                "parameters": [
                    {"type": "string", "description": "Incident id", "name": "id", "in": "path", "required": true},
                    {"description": "Message", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.messageRequest"}}
                ],
                "responses": {"201": {"description": "Created"}, "404": {"description": "Not Found"}, "409": {"description": "Conflict"}}
            }
        },
        "/v1/incidents/{id}/guidance": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["incidents"],
                "summary": "First-aid guidance for an incident",
                "parameters": [{"type": "string", "description": "Incident id", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/v1/users/me/location": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "tags": ["users"],
                "summary": "Report the caller's current location",
                "parameters": [{"description": "Location", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.pointRequest"}}],
                "responses": {"204": {"description": "No Content"}, "422": {"description": "Unprocessable Entity"}}
            }
        },
        "/v1/ws": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Upgrades to a websocket. Pass the JWT as ?token= when headers cannot be set.",
                "tags": ["realtime"],
                "summary": "Open the realtime channel",
                "parameters": [{"type": "string", "description": "JWT", "name": "token", "in": "query"}],
                "responses": {"101": {"description": "Switching Protocols"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/v1/admin/incidents": {
            "get": {"security": [{"BearerAuth": []}], "produces": ["application/json"], "tags": ["admin"], "summary": "List all incidents, newest first", "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}}}
        },
        "/v1/admin/incidents/{id}/flag": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Flag an incident as a false alert",
                "parameters": [{"type": "string", "description": "Incident id", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}, "409": {"description": "Conflict"}}
            }
        },
        "/v1/admin/users": {
            "get": {"security": [{"BearerAuth": []}], "produces": ["application/json"], "tags": ["admin"], "summary": "List all users", "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}}}
        },
        "/v1/admin/users/{id}/suspend": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Suspend a user",
                "parameters": [{"type": "string", "description": "User id", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}, "404": {"description": "Not Found"}}
            }
        },
        "/v1/admin/users/{id}/unsuspend": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Lift a suspension and reset the false alert count",
                "parameters": [{"type": "string", "description": "User id", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/v1/admin/stats": {
            "get": {"security": [{"BearerAuth": []}], "produces": ["application/json"], "tags": ["admin"], "summary": "Incident and user counters", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.IncidentStats"}}}}
        }
    },
    "definitions": {
        "domain.Point": {"type": "object", "properties": {"lat": {"type": "number"}, "lng": {"type": "number"}}},
        "domain.Responder": {"type": "object", "properties": {"user_id": {"type": "string"}, "progress": {"type": "string", "enum": ["en_route", "arrived"]}, "joined_at": {"type": "string"}}},
        "domain.Incident": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "crisis_type": {"type": "string", "enum": ["Medical", "Fire", "Breakdown", "Gas Leak", "Other"]},
                "origin": {"$ref": "#/definitions/domain.Point"},
                "radius": {"type": "integer", "enum": [500, 1000, 2000]},
                "triggered_by": {"type": "string"},
                "triggered_by_name": {"type": "string"},
                "status": {"type": "string", "enum": ["active", "resolved"]},
                "responders": {"type": "array", "items": {"$ref": "#/definitions/domain.Responder"}},
                "flagged_false_alert": {"type": "boolean"},
                "created_at": {"type": "string"},
                "resolved_at": {"type": "string"}
            }
        },
        "domain.IncidentStats": {
            "type": "object",
            "properties": {
                "total_incidents": {"type": "integer"},
                "active_incidents": {"type": "integer"},
                "resolved_incidents": {"type": "integer"},
                "today_incidents": {"type": "integer"},
                "total_users": {"type": "integer"},
                "suspended_users": {"type": "integer"}
            }
        },
        "handler.errorResponse": {"type": "object", "properties": {"error": {"type": "string"}}},
        "handler.registerRequest": {
            "type": "object",
            "required": ["name", "email", "password"],
            "properties": {"name": {"type": "string"}, "email": {"type": "string"}, "password": {"type": "string", "minLength": 6}, "skills": {"type": "array", "items": {"type": "string"}}}
        },
        "handler.loginRequest": {"type": "object", "required": ["email", "password"], "properties": {"email": {"type": "string"}, "password": {"type": "string"}}},
        "handler.authResponse": {"type": "object", "properties": {"token": {"type": "string"}, "user": {"type": "object"}}},
        "handler.pointRequest": {"type": "object", "required": ["lat", "lng"], "properties": {"lat": {"type": "number"}, "lng": {"type": "number"}}},
        "handler.triggerRequest": {
            "type": "object",
            "required": ["crisis_type", "lat", "lng"],
            "properties": {"crisis_type": {"type": "string"}, "lat": {"type": "number"}, "lng": {"type": "number"}, "radius": {"type": "integer", "enum": [500, 1000, 2000]}}
        },
        "handler.triggerResponse": {"type": "object", "properties": {"incident": {"$ref": "#/definitions/domain.Incident"}, "notified": {"type": "integer"}}},
        "handler.statusRequest": {"type": "object", "required": ["progress"], "properties": {"progress": {"type": "string", "enum": ["en_route", "arrived"]}}},
        "handler.messageRequest": {"type": "object", "required": ["text"], "properties": {"text": {"type": "string", "maxLength": 2000}}},
        "handler.nearbyResponse": {"type": "object", "properties": {"incidents": {"type": "array", "items": {"type": "object"}}}}
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "SOS Coordination Engine API",
	Description:      "Emergency alerts, responder coordination and realtime fan-out.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
