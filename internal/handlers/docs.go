package handlers

import (
	"encoding/json"
	"net/http"
)

// OpenAPISpec returns the OpenAPI 3.0 specification for the Herd Platform API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	skipParam := map[string]interface{}{
		"name":     "skip",
		"in":       "query",
		"required": false,
		"schema":   map[string]interface{}{"type": "integer", "default": 0},
	}
	limitParam := map[string]interface{}{
		"name":     "limit",
		"in":       "query",
		"required": false,
		"schema":   map[string]interface{}{"type": "integer"},
	}

	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "Herd Platform API",
			"description": "Cow monitoring backend: cow/sensor identities, timestamped measurements, CSV reports",
			"version":     "1.0.0",
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": map[string]interface{}{
			"/api/v1/cows": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":    "List cows with latest-per-unit measurements",
					"parameters": []map[string]interface{}{skipParam, limitParam},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "Paged cows plus total count"},
					},
				},
			},
			"/api/v1/cows/{cow_id}": map[string]interface{}{
				"post": map[string]interface{}{
					"summary": "Create a cow under a caller-supplied id",
					"requestBody": map[string]interface{}{
						"required": true,
						"content": map[string]interface{}{
							"application/json": map[string]interface{}{
								"schema": map[string]interface{}{
									"type":     "object",
									"required": []string{"name", "birthdate"},
									"properties": map[string]interface{}{
										"name":      map[string]string{"type": "string"},
										"birthdate": map[string]string{"type": "string", "format": "date"},
									},
								},
							},
						},
					},
					"responses": map[string]interface{}{
						"201": map[string]interface{}{"description": "Cow created"},
						"409": map[string]interface{}{"description": "Cow id already exists"},
					},
				},
				"get": map[string]interface{}{
					"summary": "Get a cow with its latest-per-unit measurements",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "Cow record"},
						"404": map[string]interface{}{"description": "Cow not found"},
					},
				},
				"delete": map[string]interface{}{
					"summary": "Delete a cow and cascade to its measurements",
					"responses": map[string]interface{}{
						"204": map[string]interface{}{"description": "Cow deleted"},
						"404": map[string]interface{}{"description": "Cow not found"},
					},
				},
			},
			"/api/v1/sensors": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":    "List sensors",
					"parameters": []map[string]interface{}{skipParam, limitParam},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "Paged sensors plus total count"},
					},
				},
			},
			"/api/v1/sensors/{sensor_id}": map[string]interface{}{
				"post": map[string]interface{}{
					"summary": "Create a sensor under a caller-supplied id",
					"responses": map[string]interface{}{
						"201": map[string]interface{}{"description": "Sensor created"},
						"409": map[string]interface{}{"description": "Sensor id already exists"},
					},
				},
				"get": map[string]interface{}{
					"summary": "Get a sensor",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "Sensor record"},
						"404": map[string]interface{}{"description": "Sensor not found"},
					},
				},
				"delete": map[string]interface{}{
					"summary": "Delete a sensor and cascade to its measurements",
					"responses": map[string]interface{}{
						"204": map[string]interface{}{"description": "Sensor deleted"},
						"404": map[string]interface{}{"description": "Sensor not found"},
					},
				},
			},
			"/api/v1/measurements": map[string]interface{}{
				"post": map[string]interface{}{
					"summary": "Create a measurement; value validity is computed, never rejected",
					"requestBody": map[string]interface{}{
						"required": true,
						"content": map[string]interface{}{
							"application/json": map[string]interface{}{
								"schema": map[string]interface{}{
									"type":     "object",
									"required": []string{"sensor_id", "cow_id", "timestamp"},
									"properties": map[string]interface{}{
										"sensor_id": map[string]string{"type": "string"},
										"cow_id":    map[string]string{"type": "string"},
										"timestamp": map[string]string{"type": "number", "description": "epoch seconds"},
										"value":     map[string]interface{}{"type": "number", "nullable": true},
									},
								},
							},
						},
					},
					"responses": map[string]interface{}{
						"201": map[string]interface{}{"description": "Measurement created with is_valid/validation_error"},
						"404": map[string]interface{}{"description": "Unknown sensor or cow"},
						"400": map[string]interface{}{"description": "Invalid timestamp"},
					},
				},
				"get": map[string]interface{}{
					"summary": "List measurements",
					"parameters": []map[string]interface{}{
						skipParam,
						limitParam,
						{
							"name":     "cow_id",
							"in":       "query",
							"required": false,
							"schema":   map[string]string{"type": "string"},
						},
						{
							"name":     "sensor_id",
							"in":       "query",
							"required": false,
							"schema":   map[string]string{"type": "string"},
						},
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "Paged measurements plus total count"},
					},
				},
			},
			"/api/v1/measurements/{measurement_id}": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Get a measurement",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "Measurement record"},
						"404": map[string]interface{}{"description": "Measurement not found"},
					},
				},
				"delete": map[string]interface{}{
					"summary": "Delete a measurement",
					"responses": map[string]interface{}{
						"204": map[string]interface{}{"description": "Measurement deleted"},
						"404": map[string]interface{}{"description": "Measurement not found"},
					},
				},
			},
			"/api/v1/reports/weights": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Weight status report as CSV",
					"parameters": []map[string]interface{}{
						{
							"name":     "date",
							"in":       "query",
							"required": false,
							"schema":   map[string]string{"type": "string", "format": "date"},
						},
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "CSV report"},
						"400": map[string]interface{}{"description": "Malformed date"},
					},
				},
			},
			"/api/v1/reports/milk": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Daily milk production report as CSV",
					"parameters": []map[string]interface{}{
						{
							"name":     "start_date",
							"in":       "query",
							"required": false,
							"schema":   map[string]string{"type": "string", "format": "date"},
						},
						{
							"name":     "end_date",
							"in":       "query",
							"required": false,
							"schema":   map[string]string{"type": "string", "format": "date"},
						},
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "CSV report"},
						"400": map[string]interface{}{"description": "Malformed date range"},
					},
				},
			},
			"/health": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Health check",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "Service healthy"},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}
