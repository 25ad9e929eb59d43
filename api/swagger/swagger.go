package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Department Timetable API",
        "description": "Scheduling engine for university department timetables",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Semesters", "description": "Semester calendar management"},
        {"name": "Timetable", "description": "Generation, validation and publication"},
        {"name": "Schedules", "description": "Manual schedule placement"},
        {"name": "Sections", "description": "Course section management"},
        {"name": "Doctors", "description": "Teaching staff management"},
        {"name": "Classrooms", "description": "Classroom inventory"},
        {"name": "TimeSlots", "description": "Semester slot grid"},
        {"name": "Exports", "description": "Timetable document exports"},
        {"name": "Audit", "description": "Timetable operation audit trail"}
    ],
    "paths": {
        "/semesters": {
            "get": {
                "tags": ["Semesters"],
                "summary": "List semesters",
                "parameters": [
                    {"name": "year", "in": "query", "type": "integer"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Semesters"],
                "summary": "Create semester",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateSemesterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/semesters/{id}/timetable": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Get the semester timetable view",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/semesters/{id}/timetable/generate": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Generate the semester timetable",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/semesters/{id}/timetable/validate": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Validate the semester timetable",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/semesters/{id}/timetable/publish": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Publish the semester timetable",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Published", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Blocking conflicts remain", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/semesters/{id}/timetable/export": {
            "get": {
                "tags": ["Exports"],
                "summary": "Export the semester timetable",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Rendered document"}
                }
            }
        },
        "/semesters/{id}/audit": {
            "get": {
                "tags": ["Audit"],
                "summary": "List timetable operations for a semester",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetable/check": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Check a candidate placement for conflicts",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ConflictCheckRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules": {
            "post": {
                "tags": ["Schedules"],
                "summary": "Create schedule",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateScheduleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Blocking conflicts", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CreateSemesterRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "code": {"type": "string"},
                "year": {"type": "integer"},
                "start_date": {"type": "string"},
                "end_date": {"type": "string"}
            },
            "required": ["name", "code", "year", "start_date", "end_date"]
        },
        "ConflictCheckRequest": {
            "type": "object",
            "properties": {
                "semester_id": {"type": "string"},
                "doctor_id": {"type": "string"},
                "classroom_id": {"type": "string"},
                "section_id": {"type": "string"},
                "teaching_assistants": {"type": "array", "items": {"type": "string"}},
                "slots": {"type": "array", "items": {"$ref": "#/definitions/SlotInput"}},
                "exclude_schedule_id": {"type": "string"}
            },
            "required": ["semester_id", "doctor_id", "classroom_id", "slots"]
        },
        "CreateScheduleRequest": {
            "type": "object",
            "properties": {
                "semester_id": {"type": "string"},
                "section_id": {"type": "string"},
                "doctor_id": {"type": "string"},
                "classroom_id": {"type": "string"},
                "slots": {"type": "array", "items": {"$ref": "#/definitions/SlotInput"}},
                "teaching_assistants": {"type": "array", "items": {"type": "string"}}
            },
            "required": ["semester_id", "section_id", "doctor_id", "classroom_id", "slots"]
        },
        "SlotInput": {
            "type": "object",
            "properties": {
                "day": {"type": "string"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "type": {"type": "string"}
            },
            "required": ["day", "start_time", "end_time"]
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
