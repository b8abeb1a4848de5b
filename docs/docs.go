// Package docs holds the swagger specification served at /swagger.
// Regenerate with: swag init -g cmd/api/main.go
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "API Support",
            "email": "it@demarchifood.it"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/price-control": {
            "get": {
                "produces": ["application/json"],
                "tags": ["PriceControl"],
                "summary": "Run the monthly price control analysis",
                "description": "Evaluates every open sale order line of the requested month against the customer's price agreements and partitions the results into fixed-price and base-price findings. A missing or malformed month falls back to the current month.",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Month to analyze (YYYY-MM), defaults to current month",
                        "name": "month",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/domain.PriceControlReport"}
                    },
                    "502": {
                        "description": "Bad Gateway",
                        "schema": {"$ref": "#/definitions/domain.APIError"}
                    }
                }
            }
        },
        "/price-control/runs": {
            "get": {
                "produces": ["application/json"],
                "tags": ["PriceControl"],
                "summary": "List recent analysis runs",
                "description": "Returns metadata for recent analysis runs (month, trigger, line counts, duration). The computed report itself is never stored.",
                "parameters": [
                    {
                        "type": "integer",
                        "description": "Maximum number of runs to return (1-100, default 20)",
                        "name": "limit",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "array",
                            "items": {"$ref": "#/definitions/domain.AnalysisRun"}
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {"$ref": "#/definitions/domain.APIError"}
                    }
                }
            }
        }
    },
    "definitions": {
        "domain.APIError": {
            "type": "object",
            "properties": {
                "type": {"type": "string"},
                "title": {"type": "string"},
                "status": {"type": "integer"},
                "detail": {"type": "string"},
                "errors": {
                    "type": "object",
                    "additionalProperties": {"type": "string"}
                }
            }
        },
        "domain.AnalysisLine": {
            "type": "object",
            "properties": {
                "orderId": {"type": "integer"},
                "lineId": {"type": "integer"},
                "customerName": {"type": "string"},
                "productId": {"type": "integer"},
                "productCode": {"type": "string"},
                "description": {"type": "string"},
                "quantity": {"type": "number"},
                "soldPrice": {"type": "number"},
                "discountPercent": {"type": "number"},
                "effectivePrice": {"type": "number"},
                "referencePrice": {"type": "number"},
                "costPrice": {"type": "number"},
                "diff": {"type": "number"},
                "diffPercent": {"type": "number"},
                "profit": {"type": "number"},
                "marginPercent": {"type": "number"},
                "tier": {"type": "string"},
                "classification": {"type": "string"},
                "priceSource": {"type": "string"}
            }
        },
        "domain.TierStats": {
            "type": "object",
            "properties": {
                "count": {"type": "integer"},
                "higher": {"type": "integer"},
                "lower": {"type": "integer"},
                "diffTotal": {"type": "number"}
            }
        },
        "domain.AnalysisStats": {
            "type": "object",
            "properties": {
                "fixed": {"$ref": "#/definitions/domain.TierStats"},
                "base": {"$ref": "#/definitions/domain.TierStats"},
                "totalProfit": {"type": "number"},
                "averageMargin": {"type": "number"},
                "totalLines": {"type": "integer"}
            }
        },
        "domain.PriceControlReport": {
            "type": "object",
            "properties": {
                "month": {"type": "string"},
                "stats": {"$ref": "#/definitions/domain.AnalysisStats"},
                "fixedPriceLines": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/domain.AnalysisLine"}
                },
                "basePriceLines": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/domain.AnalysisLine"}
                },
                "performanceMs": {"type": "integer"}
            }
        },
        "domain.AnalysisRun": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "month": {"type": "string"},
                "triggeredBy": {"type": "string"},
                "orderCount": {"type": "integer"},
                "lineCount": {"type": "integer"},
                "skippedLines": {"type": "integer"},
                "durationMs": {"type": "integer"},
                "succeeded": {"type": "boolean"},
                "error": {"type": "string"},
                "createdAt": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "De Marchi Price Control API",
	Description:      "Monthly pricing variance analysis against customer price agreements",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
