// Package docs registers the OpenAPI document served under /swagger/.
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
    "paths": {
        "/authenticate": {
            "post": {
                "summary": "Check a username and password",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/AuthenticateRequest"}}],
                "responses": {
                    "200": {"description": "authenticated", "schema": {"$ref": "#/definitions/AuthenticateResponse"}},
                    "401": {"description": "authentication failed", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "423": {"description": "account locked", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/users": {
            "get": {
                "summary": "List user names",
                "parameters": [
                    {"in": "query", "name": "filter", "type": "string", "description": "'*' wildcard pattern"},
                    {"in": "query", "name": "limit", "type": "integer"}
                ],
                "responses": {"200": {"description": "user names", "schema": {"$ref": "#/definitions/ListUsersResponse"}}}
            },
            "post": {
                "summary": "Add a user",
                "parameters": [
                    {"in": "header", "name": "X-Actor-Id", "type": "string", "required": true},
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/AddUserRequest"}}
                ],
                "responses": {
                    "201": {"description": "created", "schema": {"$ref": "#/definitions/UserResponse"}},
                    "400": {"description": "invalid input", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "409": {"description": "user exists", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/users/{username}": {
            "get": {
                "summary": "Get a user",
                "parameters": [{"in": "path", "name": "username", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "user", "schema": {"$ref": "#/definitions/UserResponse"}},
                    "404": {"description": "not found", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            },
            "delete": {
                "summary": "Delete a user",
                "parameters": [
                    {"in": "header", "name": "X-Actor-Id", "type": "string", "required": true},
                    {"in": "path", "name": "username", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "deleted", "schema": {"$ref": "#/definitions/StatusResponse"}},
                    "403": {"description": "reserved principal or vetoed", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/users/{username}/credential": {
            "put": {
                "summary": "Change own password",
                "parameters": [
                    {"in": "header", "name": "X-Actor-Id", "type": "string", "required": true},
                    {"in": "path", "name": "username", "type": "string", "required": true},
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/UpdateCredentialRequest"}}
                ],
                "responses": {"200": {"description": "updated", "schema": {"$ref": "#/definitions/StatusResponse"}}}
            }
        },
        "/users/{username}/credential/admin": {
            "put": {
                "summary": "Reset a password",
                "parameters": [
                    {"in": "header", "name": "X-Actor-Id", "type": "string", "required": true},
                    {"in": "path", "name": "username", "type": "string", "required": true},
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/UpdateCredentialRequest"}}
                ],
                "responses": {"200": {"description": "updated", "schema": {"$ref": "#/definitions/StatusResponse"}}}
            }
        },
        "/users/{username}/claims": {
            "get": {
                "summary": "Get claim values",
                "parameters": [
                    {"in": "path", "name": "username", "type": "string", "required": true},
                    {"in": "query", "name": "profile", "type": "string"}
                ],
                "responses": {"200": {"description": "claims", "schema": {"$ref": "#/definitions/ClaimsResponse"}}}
            },
            "put": {
                "summary": "Set claim values",
                "parameters": [
                    {"in": "header", "name": "X-Actor-Id", "type": "string", "required": true},
                    {"in": "path", "name": "username", "type": "string", "required": true},
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/SetClaimsRequest"}}
                ],
                "responses": {"200": {"description": "updated", "schema": {"$ref": "#/definitions/StatusResponse"}}}
            },
            "delete": {
                "summary": "Delete claim values",
                "parameters": [
                    {"in": "header", "name": "X-Actor-Id", "type": "string", "required": true},
                    {"in": "path", "name": "username", "type": "string", "required": true},
                    {"in": "query", "name": "claim", "type": "array", "items": {"type": "string"}, "collectionFormat": "multi", "required": true},
                    {"in": "query", "name": "profile", "type": "string"}
                ],
                "responses": {"200": {"description": "deleted", "schema": {"$ref": "#/definitions/StatusResponse"}}}
            }
        },
        "/users/{username}/groups": {
            "get": {
                "summary": "List groups of a user",
                "parameters": [{"in": "path", "name": "username", "type": "string", "required": true}],
                "responses": {"200": {"description": "groups", "schema": {"$ref": "#/definitions/UserGroupsResponse"}}}
            },
            "patch": {
                "summary": "Edit groups of a user",
                "parameters": [
                    {"in": "header", "name": "X-Actor-Id", "type": "string", "required": true},
                    {"in": "path", "name": "username", "type": "string", "required": true},
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/UpdateUserGroupsRequest"}}
                ],
                "responses": {"200": {"description": "groups", "schema": {"$ref": "#/definitions/UserGroupsResponse"}}}
            }
        },
        "/groups": {
            "get": {
                "summary": "List group names",
                "parameters": [
                    {"in": "query", "name": "filter", "type": "string"},
                    {"in": "query", "name": "limit", "type": "integer"}
                ],
                "responses": {"200": {"description": "group names", "schema": {"$ref": "#/definitions/ListGroupsResponse"}}}
            },
            "post": {
                "summary": "Add a group",
                "parameters": [
                    {"in": "header", "name": "X-Actor-Id", "type": "string", "required": true},
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/AddGroupRequest"}}
                ],
                "responses": {"201": {"description": "created", "schema": {"$ref": "#/definitions/GroupResponse"}}}
            }
        },
        "/groups/{group}": {
            "delete": {
                "summary": "Delete a group",
                "parameters": [
                    {"in": "header", "name": "X-Actor-Id", "type": "string", "required": true},
                    {"in": "path", "name": "group", "type": "string", "required": true}
                ],
                "responses": {"200": {"description": "deleted", "schema": {"$ref": "#/definitions/StatusResponse"}}}
            }
        },
        "/groups/{group}/name": {
            "put": {
                "summary": "Rename a group",
                "parameters": [
                    {"in": "header", "name": "X-Actor-Id", "type": "string", "required": true},
                    {"in": "path", "name": "group", "type": "string", "required": true},
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/RenameGroupRequest"}}
                ],
                "responses": {"200": {"description": "renamed", "schema": {"$ref": "#/definitions/StatusResponse"}}}
            }
        },
        "/groups/{group}/users": {
            "get": {
                "summary": "List members of a group",
                "parameters": [{"in": "path", "name": "group", "type": "string", "required": true}],
                "responses": {"200": {"description": "members", "schema": {"$ref": "#/definitions/GroupMembersResponse"}}}
            },
            "patch": {
                "summary": "Edit members of a group",
                "parameters": [
                    {"in": "header", "name": "X-Actor-Id", "type": "string", "required": true},
                    {"in": "path", "name": "group", "type": "string", "required": true},
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/UpdateGroupMembersRequest"}}
                ],
                "responses": {"200": {"description": "members", "schema": {"$ref": "#/definitions/GroupMembersResponse"}}}
            }
        }
    },
    "definitions": {
        "AuthenticateRequest": {"type": "object", "properties": {"username": {"type": "string"}, "password": {"type": "string"}}},
        "AuthenticateResponse": {"type": "object", "properties": {"username": {"type": "string"}, "authenticated": {"type": "boolean"}}},
        "AddUserRequest": {"type": "object", "properties": {
            "username": {"type": "string"}, "password": {"type": "string"},
            "groups": {"type": "array", "items": {"type": "string"}},
            "claims": {"type": "object", "additionalProperties": {"type": "string"}},
            "profile": {"type": "string"}
        }},
        "UserResponse": {"type": "object", "properties": {
            "user_id": {"type": "string"}, "username": {"type": "string"}, "tenant_id": {"type": "integer"},
            "require_change": {"type": "boolean"}, "created_at": {"type": "string", "format": "date-time"},
            "updated_at": {"type": "string", "format": "date-time"}
        }},
        "ListUsersResponse": {"type": "object", "properties": {"users": {"type": "array", "items": {"type": "string"}}}},
        "UpdateCredentialRequest": {"type": "object", "properties": {"old_password": {"type": "string"}, "new_password": {"type": "string"}}},
        "ClaimsResponse": {"type": "object", "properties": {
            "username": {"type": "string"}, "profile": {"type": "string"},
            "claims": {"type": "object", "additionalProperties": {"type": "string"}}
        }},
        "SetClaimsRequest": {"type": "object", "properties": {
            "profile": {"type": "string"}, "claims": {"type": "object", "additionalProperties": {"type": "string"}}
        }},
        "UpdateUserGroupsRequest": {"type": "object", "properties": {
            "deleted_groups": {"type": "array", "items": {"type": "string"}},
            "added_groups": {"type": "array", "items": {"type": "string"}}
        }},
        "UserGroupsResponse": {"type": "object", "properties": {"username": {"type": "string"}, "groups": {"type": "array", "items": {"type": "string"}}}},
        "AddGroupRequest": {"type": "object", "properties": {"name": {"type": "string"}, "users": {"type": "array", "items": {"type": "string"}}}},
        "GroupResponse": {"type": "object", "properties": {
            "group_id": {"type": "string"}, "name": {"type": "string"}, "tenant_id": {"type": "integer"},
            "created_at": {"type": "string", "format": "date-time"}
        }},
        "ListGroupsResponse": {"type": "object", "properties": {"groups": {"type": "array", "items": {"type": "string"}}}},
        "RenameGroupRequest": {"type": "object", "properties": {"new_name": {"type": "string"}}},
        "UpdateGroupMembersRequest": {"type": "object", "properties": {
            "deleted_users": {"type": "array", "items": {"type": "string"}},
            "added_users": {"type": "array", "items": {"type": "string"}}
        }},
        "GroupMembersResponse": {"type": "object", "properties": {"group": {"type": "string"}, "users": {"type": "array", "items": {"type": "string"}}}},
        "StatusResponse": {"type": "object", "properties": {"status": {"type": "string"}}},
        "ErrorResponse": {"type": "object", "properties": {"code": {"type": "string"}, "message": {"type": "string"}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/userstore/v1",
	Schemes:          []string{},
	Title:            "userrealm user store API",
	Description:      "Users, groups, credentials and claims of the identity realm.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
