package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SitePay API",
        "description": "Payroll, loan and approval workflow engine",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Authentication"},
        {"name": "Payroll", "description": "Salary calculation, approval and exports"},
        {"name": "Loans", "description": "Loans, repayments and postponements"},
        {"name": "Approvals", "description": "Approval chain configuration"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate a user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/payroll/calculate": {
            "post": {
                "tags": ["Payroll"],
                "summary": "Calculate one employee's salary for a period",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CalculatePayrollRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/payroll/run": {
            "post": {
                "tags": ["Payroll"],
                "summary": "Run payroll for every active employee",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RunPayrollRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/payroll/register": {
            "get": {
                "tags": ["Payroll"],
                "summary": "Monthly register, latest version per employee",
                "parameters": [
                    {"name": "period", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/payroll/register.csv": {
            "get": {
                "tags": ["Payroll"],
                "summary": "Monthly register as CSV",
                "parameters": [
                    {"name": "period", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "CSV file"}
                }
            }
        },
        "/payroll/pending": {
            "get": {
                "tags": ["Payroll"],
                "summary": "Salaries awaiting the caller's approval",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/payroll/{id}": {
            "get": {
                "tags": ["Payroll"],
                "summary": "Fetch one salary header with its component lines",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/payroll/{id}/approve": {
            "post": {
                "tags": ["Payroll"],
                "summary": "Approve a pending salary at the caller's level",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/payroll/{id}/reject": {
            "post": {
                "tags": ["Payroll"],
                "summary": "Reject a pending salary with a reason",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RejectionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/payroll/{id}/payslip.pdf": {
            "get": {
                "tags": ["Payroll"],
                "summary": "Payslip PDF for an approved salary",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF file"}
                }
            }
        },
        "/loans": {
            "post": {
                "tags": ["Loans"],
                "summary": "Submit a loan for approval",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitLoanRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/loans/{id}": {
            "get": {
                "tags": ["Loans"],
                "summary": "Fetch one loan with its repayment schedule",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/loans/{id}/approve": {
            "post": {
                "tags": ["Loans"],
                "summary": "Approve a pending loan at the caller's level",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/loans/{id}/reject": {
            "post": {
                "tags": ["Loans"],
                "summary": "Reject a pending loan with a reason",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RejectionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/loans/{id}/payments": {
            "post": {
                "tags": ["Loans"],
                "summary": "Record a repayment against a loan",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordPaymentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/loans/{id}/postponements": {
            "post": {
                "tags": ["Loans"],
                "summary": "Request postponement of one unpaid installment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PostponeInstallmentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/loan-postponements/{id}/approve": {
            "post": {
                "tags": ["Loans"],
                "summary": "Approve a pending postponement at the caller's level",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/loan-postponements/{id}/reject": {
            "post": {
                "tags": ["Loans"],
                "summary": "Reject a pending postponement with a reason",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RejectionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/approval-chains": {
            "get": {
                "tags": ["Approvals"],
                "summary": "List approval chain levels",
                "parameters": [
                    {"name": "requestType", "in": "query", "type": "string"},
                    {"name": "scopeKind", "in": "query", "type": "string"},
                    {"name": "scopeId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Approvals"],
                "summary": "Configure one approval chain level",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateChainLevelRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
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
        "CalculatePayrollRequest": {
            "type": "object",
            "properties": {
                "employeeId": {"type": "string"},
                "period": {"type": "string", "example": "2025-04"}
            },
            "required": ["employeeId", "period"]
        },
        "RunPayrollRequest": {
            "type": "object",
            "properties": {
                "period": {"type": "string", "example": "2025-04"}
            },
            "required": ["period"]
        },
        "RejectionRequest": {
            "type": "object",
            "properties": {
                "reason": {"type": "string"}
            },
            "required": ["reason"]
        },
        "SubmitLoanRequest": {
            "type": "object",
            "properties": {
                "employeeId": {"type": "string"},
                "principal": {"type": "string", "example": "1000.00"},
                "installmentCount": {"type": "integer"},
                "firstInstallmentDate": {"type": "string", "example": "2025-05-31"}
            },
            "required": ["employeeId", "principal", "installmentCount", "firstInstallmentDate"]
        },
        "RecordPaymentRequest": {
            "type": "object",
            "properties": {
                "amount": {"type": "string", "example": "333.3333"}
            },
            "required": ["amount"]
        },
        "PostponeInstallmentRequest": {
            "type": "object",
            "properties": {
                "installmentId": {"type": "string"},
                "newDueDate": {"type": "string", "example": "2025-07-31"},
                "reason": {"type": "string"}
            },
            "required": ["installmentId", "newDueDate", "reason"]
        },
        "CreateChainLevelRequest": {
            "type": "object",
            "properties": {
                "requestType": {"type": "string", "example": "PAYROLL"},
                "scopeKind": {"type": "string", "example": "GLOBAL"},
                "scopeId": {"type": "string"},
                "levelNo": {"type": "integer"},
                "approverKind": {"type": "string", "example": "DIRECT_MANAGER"},
                "closesChain": {"type": "boolean"}
            },
            "required": ["requestType", "levelNo", "approverKind"]
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
