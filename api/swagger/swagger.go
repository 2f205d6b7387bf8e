// Package swagger registers the hand-maintained OpenAPI document served at /docs.
package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "CourseHub API",
        "description": "Course delivery backend: courses, segments, students and enrollments.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http", "https"],
    "tags": [
        {"name": "Actions", "description": "Form-encoded mutations selected by intent"},
        {"name": "Courses", "description": "Admin view of courses, segments and rosters"},
        {"name": "Students", "description": "Admin view of students"},
        {"name": "Me", "description": "The signed-in student's visible content"}
    ],
    "securityDefinitions": {
        "SessionCookie": {"type": "apiKey", "in": "header", "name": "Cookie"},
        "Bearer": {"type": "apiKey", "in": "header", "name": "Authorization"}
    },
    "paths": {
        "/actions": {
            "post": {
                "tags": ["Actions"],
                "summary": "Submit a mutation intent",
                "consumes": ["application/x-www-form-urlencoded", "multipart/form-data"],
                "produces": ["application/json"],
                "parameters": [
                    {
                        "name": "intent", "in": "formData", "required": true, "type": "string",
                        "enum": [
                            "activate-student", "create-course", "create-segment", "create-student",
                            "deactivate-student", "delete-course", "delete-segment", "edit-course",
                            "edit-segment", "make-private", "make-public", "make-segment-private",
                            "make-segment-public", "sign-in-admin", "sign-in-student", "sign-out",
                            "update-course-assignment", "update-student", "update-student-password"
                        ]
                    },
                    {"name": "course_id", "in": "formData", "type": "string"},
                    {"name": "course_slug", "in": "formData", "type": "string"},
                    {"name": "segment_id", "in": "formData", "type": "string"},
                    {"name": "student_id", "in": "formData", "type": "string"},
                    {"name": "name", "in": "formData", "type": "string"},
                    {"name": "description", "in": "formData", "type": "string"},
                    {"name": "video_url", "in": "formData", "type": "string"},
                    {"name": "email", "in": "formData", "type": "string"},
                    {"name": "phone", "in": "formData", "type": "string"},
                    {"name": "password", "in": "formData", "type": "string"},
                    {"name": "confirm_password", "in": "formData", "type": "string"},
                    {"name": "assigned", "in": "formData", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "Applied", "schema": {"$ref": "#/definitions/ActionEnvelope"}},
                    "400": {"description": "Validation failed or conflict", "schema": {"$ref": "#/definitions/ActionEnvelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ActionEnvelope"}},
                    "404": {"description": "Referenced entity not found", "schema": {"$ref": "#/definitions/ActionEnvelope"}},
                    "500": {"description": "Unexpected failure", "schema": {"$ref": "#/definitions/ActionEnvelope"}}
                }
            }
        },
        "/courses": {
            "get": {
                "tags": ["Courses"], "summary": "List courses",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthorized"}}
            }
        },
        "/courses/{slug}": {
            "get": {
                "tags": ["Courses"], "summary": "Get a course with all of its segments",
                "parameters": [{"name": "slug", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "404": {"description": "Not found"}}
            }
        },
        "/courses/{slug}/segments": {
            "get": {
                "tags": ["Courses"], "summary": "List the segments of a course",
                "parameters": [{"name": "slug", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "404": {"description": "Not found"}}
            }
        },
        "/courses/{slug}/students": {
            "get": {
                "tags": ["Courses"], "summary": "List students enrolled in a course",
                "parameters": [{"name": "slug", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "404": {"description": "Not found"}}
            }
        },
        "/courses/{slug}/students/export": {
            "get": {
                "tags": ["Courses"], "summary": "Download a course roster",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "slug", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"], "default": "csv"}
                ],
                "responses": {"200": {"description": "File", "schema": {"type": "file"}}, "400": {"description": "Unsupported format"}, "404": {"description": "Not found"}}
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"], "summary": "List students",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "activated", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Invalid query"}}
            }
        },
        "/students/{id}": {
            "get": {
                "tags": ["Students"], "summary": "Get a student and the ids of assigned courses",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "404": {"description": "Not found"}}
            }
        },
        "/me": {
            "get": {
                "tags": ["Me"], "summary": "Current identity",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthorized"}}
            }
        },
        "/me/courses": {
            "get": {
                "tags": ["Me"], "summary": "Public courses the student is enrolled in",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Unauthorized"}}
            }
        },
        "/me/courses/{slug}": {
            "get": {
                "tags": ["Me"], "summary": "A visible course with its public segments",
                "parameters": [{"name": "slug", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "404": {"description": "Not found"}}
            }
        },
        "/me/courses/{slug}/segments/{segmentSlug}": {
            "get": {
                "tags": ["Me"], "summary": "A public segment of a visible course",
                "parameters": [
                    {"name": "slug", "in": "path", "required": true, "type": "string"},
                    {"name": "segmentSlug", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "404": {"description": "Not found"}}
            }
        }
    },
    "definitions": {
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
                "fields": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "ActionResult": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "code": {"type": "string"},
                "fields": {"type": "object", "additionalProperties": {"type": "string"}},
                "course_slug": {"type": "string"},
                "segment_slug": {"type": "string"},
                "student_id": {"type": "string"},
                "redirect": {"type": "string"},
                "token": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ActionEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/ActionResult"}
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
