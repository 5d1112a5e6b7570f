package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Seminar Ops Scheduling API",
        "description": "Course scheduling, trainer assignment and recommendation service",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Admin session management"},
        {"name": "Courses", "description": "Course lifecycle and conflict checks"},
        {"name": "Trainers", "description": "Trainer profiles"},
        {"name": "Assignments", "description": "Trainer assignment and audit history"},
        {"name": "Matching", "description": "Trainer recommendations"},
        {"name": "Exports", "description": "Schedule and history downloads"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate the admin user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current session",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/courses": {
            "get": {
                "tags": ["Courses"],
                "summary": "List courses",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Courses"],
                "summary": "Create course",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CourseRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Conflicts detected"}
                }
            }
        },
        "/courses/{id}": {
            "get": {
                "tags": ["Courses"],
                "summary": "Get course",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["Courses"],
                "summary": "Update course",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CourseRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Conflicts detected"}
                }
            },
            "delete": {
                "tags": ["Courses"],
                "summary": "Delete course",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/courses/{id}/assign": {
            "post": {
                "tags": ["Assignments"],
                "summary": "Assign a trainer to a course",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssignRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Conflicts detected"}
                }
            }
        },
        "/courses/{id}/match": {
            "get": {
                "tags": ["Matching"],
                "summary": "Recommend trainers for a course",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/trainers": {
            "get": {
                "tags": ["Trainers"],
                "summary": "List trainers",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Trainers"],
                "summary": "Create trainer",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TrainerRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Email already in use"}
                }
            }
        },
        "/trainers/{id}": {
            "get": {
                "tags": ["Trainers"],
                "summary": "Get trainer with assigned courses",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["Trainers"],
                "summary": "Update trainer",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TrainerRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Trainers"],
                "summary": "Delete trainer and unassign their courses",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/assignments/history": {
            "get": {
                "tags": ["Assignments"],
                "summary": "List assignment history",
                "parameters": [
                    {"name": "courseId", "in": "query", "type": "integer"},
                    {"name": "trainerId", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/export/schedule": {
            "get": {
                "tags": ["Exports"],
                "summary": "Export the course schedule as CSV",
                "produces": ["text/csv"],
                "responses": {
                    "200": {"description": "CSV file"}
                }
            }
        },
        "/export/history": {
            "get": {
                "tags": ["Exports"],
                "summary": "Export assignment history as PDF",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "courseId", "in": "query", "type": "integer"},
                    {"name": "trainerId", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "PDF file"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "CourseRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "startDate": {"type": "string", "format": "date-time"},
                "endDate": {"type": "string", "format": "date-time"},
                "subject": {"type": "array", "items": {"type": "string"}},
                "location": {"type": "string"},
                "participants": {"type": "integer"},
                "notes": {"type": "string"},
                "price": {"type": "number"},
                "trainerPrice": {"type": "number"},
                "status": {"type": "string", "enum": ["draft", "scheduled", "completed", "cancelled"]},
                "assignedTrainerId": {"type": "integer"},
                "allowOverride": {"type": "boolean"}
            },
            "required": ["name", "startDate", "endDate", "subject", "location", "participants"]
        },
        "TrainerRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "email": {"type": "string"},
                "location": {"type": "string"},
                "trainingSubjects": {"type": "array", "items": {"type": "string"}},
                "availabilityRanges": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/AvailabilityRange"}
                },
                "hourlyRate": {"type": "number"},
                "rating": {"type": "integer"}
            },
            "required": ["name", "email", "location", "trainingSubjects"]
        },
        "AvailabilityRange": {
            "type": "object",
            "properties": {
                "start": {"type": "string", "format": "date-time"},
                "end": {"type": "string", "format": "date-time"}
            }
        },
        "AssignRequest": {
            "type": "object",
            "properties": {
                "trainerId": {"type": "integer"},
                "allowOverride": {"type": "boolean"}
            },
            "required": ["trainerId"]
        },
        "Conflict": {
            "type": "object",
            "properties": {
                "type": {"type": "string", "enum": ["location", "trainer"]},
                "courseId": {"type": "integer"},
                "courseName": {"type": "string"},
                "reason": {"type": "string"}
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
