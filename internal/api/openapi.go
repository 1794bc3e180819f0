package api

import (
	"net/http"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

const apiVersion = "1.0.0"

var (
	docOnce sync.Once
	doc     *openapi3.T
)

// Document returns the OpenAPI description of the HTTP surface.
func Document() *openapi3.T {
	docOnce.Do(func() { doc = buildDocument() })
	return doc
}

func schemaRef(name string, s *openapi3.Schema) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef("#/components/schemas/"+name, s)
}

func stringList() *openapi3.Schema {
	return openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema())
}

func jsonResponse(description string, schema *openapi3.SchemaRef) *openapi3.ResponseRef {
	resp := openapi3.NewResponse().WithDescription(description)
	resp.Content = openapi3.NewContentWithJSONSchemaRef(schema)
	return &openapi3.ResponseRef{Value: resp}
}

func buildDocument() *openapi3.T {
	errorSchema := openapi3.NewObjectSchema().
		WithProperty("error", openapi3.NewStringSchema()).
		WithRequired([]string{"error"})

	fileRecord := openapi3.NewObjectSchema().
		WithProperty("path", openapi3.NewStringSchema()).
		WithProperty("imports", openapi3.NewArraySchema().WithItems(openapi3.NewObjectSchema().
			WithProperty("kind", openapi3.NewStringSchema().WithEnum("default", "named", "namespace", "dynamic", "side_effect", "require")).
			WithProperty("name", openapi3.NewStringSchema()).
			WithProperty("source", openapi3.NewStringSchema()).
			WithProperty("resolved", openapi3.NewStringSchema()))).
		WithProperty("exports", openapi3.NewArraySchema().WithItems(openapi3.NewObjectSchema().
			WithProperty("kind", openapi3.NewStringSchema()).
			WithProperty("name", openapi3.NewStringSchema()))).
		WithProperty("functions", stringList()).
		WithProperty("components", stringList()).
		WithProperty("hooks", stringList()).
		WithProperty("apiCalls", openapi3.NewArraySchema().WithItems(openapi3.NewObjectSchema().
			WithProperty("url", openapi3.NewStringSchema()).
			WithProperty("method", openapi3.NewStringSchema()))).
		WithProperty("tables", stringList()).
		WithProperty("dependencies", stringList()).
		WithProperty("dependents", stringList())

	entity := openapi3.NewObjectSchema().
		WithProperty("name", openapi3.NewStringSchema()).
		WithProperty("file", openapi3.NewStringSchema())
	affectedSet := openapi3.NewObjectSchema().
		WithProperty("direct", stringList()).
		WithProperty("indirect", stringList()).
		WithProperty("components", openapi3.NewArraySchema().WithItems(entity)).
		WithProperty("hooks", openapi3.NewArraySchema().WithItems(entity)).
		WithProperty("apis", openapi3.NewArraySchema().WithItems(openapi3.NewObjectSchema().
			WithProperty("url", openapi3.NewStringSchema()).
			WithProperty("method", openapi3.NewStringSchema()).
			WithProperty("file", openapi3.NewStringSchema()))).
		WithProperty("tables", openapi3.NewArraySchema().WithItems(entity))

	breakingChange := openapi3.NewObjectSchema().
		WithProperty("kind", openapi3.NewStringSchema().WithEnum("removed_export", "removed_function", "changed_signature")).
		WithProperty("name", openapi3.NewStringSchema()).
		WithProperty("severity", openapi3.NewStringSchema().WithEnum("high", "medium", "low")).
		WithProperty("before", openapi3.NewStringSchema()).
		WithProperty("after", openapi3.NewStringSchema())

	judgeOutput := openapi3.NewObjectSchema().
		WithProperty("summary", openapi3.NewStringSchema()).
		WithProperty("intent", openapi3.NewStringSchema()).
		WithProperty("issues", openapi3.NewArraySchema().WithItems(openapi3.NewObjectSchema().
			WithProperty("severity", openapi3.NewStringSchema()).
			WithProperty("message", openapi3.NewStringSchema()).
			WithProperty("line", openapi3.NewIntegerSchema()))).
		WithProperty("breakingChanges", stringList()).
		WithProperty("affectedAreas", stringList()).
		WithProperty("recommendations", stringList()).
		WithProperty("riskScore", openapi3.NewIntegerSchema().WithMin(0).WithMax(10)).
		WithProperty("riskLevel", openapi3.NewStringSchema()).
		WithProperty("source", openapi3.NewStringSchema())

	analysisResult := openapi3.NewObjectSchema().
		WithProperty("id", openapi3.NewUUIDSchema()).
		WithProperty("file", openapi3.NewStringSchema()).
		WithProperty("timestamp", openapi3.NewDateTimeSchema()).
		WithProperty("durationMs", openapi3.NewInt64Schema()).
		WithPropertyRef("dependencySnapshot", schemaRef("FileRecord", fileRecord)).
		WithPropertyRef("affectedSet", schemaRef("AffectedSet", affectedSet)).
		WithProperty("judgeOutput", judgeOutput).
		WithProperty("riskScore", openapi3.NewIntegerSchema().WithMin(0).WithMax(10)).
		WithProperty("riskLevel", openapi3.NewStringSchema().WithEnum("low", "medium", "high")).
		WithProperty("structuralScore", openapi3.NewIntegerSchema().WithMin(0).WithMax(10)).
		WithProperty("diffStats", openapi3.NewObjectSchema().
			WithProperty("added", openapi3.NewIntegerSchema()).
			WithProperty("removed", openapi3.NewIntegerSchema()).
			WithProperty("breakingChanges", openapi3.NewArraySchema().WithItems(breakingChange))).
		WithProperty("contentDigest", openapi3.NewStringSchema())

	rebuildStats := openapi3.NewObjectSchema().
		WithProperty("fileCount", openapi3.NewIntegerSchema()).
		WithProperty("durationMs", openapi3.NewInt64Schema())

	riskSummary := openapi3.NewObjectSchema().
		WithProperty("high", openapi3.NewIntegerSchema()).
		WithProperty("medium", openapi3.NewIntegerSchema()).
		WithProperty("low", openapi3.NewIntegerSchema()).
		WithProperty("total", openapi3.NewIntegerSchema()).
		WithProperty("recentHigh", openapi3.NewArraySchema().WithItems(analysisResult))

	health := openapi3.NewObjectSchema().
		WithProperty("status", openapi3.NewStringSchema()).
		WithProperty("files", openapi3.NewIntegerSchema()).
		WithProperty("edges", openapi3.NewIntegerSchema()).
		WithProperty("historyLength", openapi3.NewIntegerSchema()).
		WithProperty("busy", openapi3.NewBoolSchema())

	importance := openapi3.NewObjectSchema().
		WithProperty("file", openapi3.NewStringSchema()).
		WithProperty("fanIn", openapi3.NewIntegerSchema()).
		WithProperty("fanOut", openapi3.NewIntegerSchema()).
		WithProperty("score", openapi3.NewFloat64Schema())

	errRef := schemaRef("Error", errorSchema)
	limitParam := &openapi3.ParameterRef{Value: openapi3.NewQueryParameter("limit").
		WithSchema(openapi3.NewIntegerSchema().WithMin(0))}
	resultRef := schemaRef("AnalysisResult", analysisResult)
	fileParam := &openapi3.ParameterRef{Value: openapi3.NewPathParameter("file").
		WithDescription("File id relative to the project root.").
		WithSchema(openapi3.NewStringSchema())}

	paths := openapi3.NewPaths()
	paths.Set("/api/dependencies", &openapi3.PathItem{Get: &openapi3.Operation{
		OperationID: "listDependencies",
		Summary:     "Full dependency graph keyed by file id",
		Responses: openapi3.NewResponses(openapi3.WithStatus(http.StatusOK, jsonResponse("Graph",
			openapi3.NewSchemaRef("", openapi3.NewObjectSchema().WithAdditionalProperties(fileRecord))))),
	}})
	paths.Set("/api/dependencies/{file}", &openapi3.PathItem{Get: &openapi3.Operation{
		OperationID: "getDependency",
		Summary:     "One file's record",
		Parameters:  openapi3.Parameters{fileParam},
		Responses: openapi3.NewResponses(
			openapi3.WithStatus(http.StatusOK, jsonResponse("File record", schemaRef("FileRecord", fileRecord))),
			openapi3.WithStatus(http.StatusNotFound, jsonResponse("File not in graph", errRef)),
		),
	}})
	paths.Set("/api/affected/{file}", &openapi3.PathItem{Get: &openapi3.Operation{
		OperationID: "getAffected",
		Summary:     "Files and entities affected by a change to file",
		Parameters:  openapi3.Parameters{fileParam},
		Responses: openapi3.NewResponses(
			openapi3.WithStatus(http.StatusOK, jsonResponse("Affected set", schemaRef("AffectedSet", affectedSet))),
		),
	}})
	paths.Set("/api/query", &openapi3.PathItem{Get: &openapi3.Operation{
		OperationID: "queryFiles",
		Summary:     "Files matching a SELECT files [WHERE ...] statement, ranked by importance",
		Parameters: openapi3.Parameters{
			&openapi3.ParameterRef{Value: openapi3.NewQueryParameter("q").
				WithRequired(true).
				WithDescription("For example: SELECT files WHERE fan_in > 2 AND path CONTAINS 'api'").
				WithSchema(openapi3.NewStringSchema())},
			limitParam,
		},
		Responses: openapi3.NewResponses(
			openapi3.WithStatus(http.StatusOK, jsonResponse("Matching files",
				openapi3.NewSchemaRef("", openapi3.NewArraySchema().WithItems(importance)))),
			openapi3.WithStatus(http.StatusBadRequest, jsonResponse("Invalid query or limit", errRef)),
		),
	}})
	paths.Set("/api/analyze", &openapi3.PathItem{Post: &openapi3.Operation{
		OperationID: "analyze",
		Summary:     "Run the pipeline for one file",
		RequestBody: &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().
			WithRequired(true).
			WithJSONSchema(openapi3.NewObjectSchema().
				WithProperty("file", openapi3.NewStringSchema()).
				WithRequired([]string{"file"}))},
		Responses: openapi3.NewResponses(
			openapi3.WithStatus(http.StatusOK, jsonResponse("Analysis result", resultRef)),
			openapi3.WithStatus(http.StatusBadRequest, jsonResponse("Missing or invalid file", errRef)),
			openapi3.WithStatus(http.StatusNotFound, jsonResponse("File does not exist", errRef)),
			openapi3.WithStatus(http.StatusConflict, jsonResponse("An analysis is already running", errRef)),
			openapi3.WithStatus(http.StatusTooManyRequests, jsonResponse("Rate limited", errRef)),
		),
	}})
	paths.Set("/api/build-graph", &openapi3.PathItem{Post: &openapi3.Operation{
		OperationID: "buildGraph",
		Summary:     "Rebuild the dependency graph from disk",
		Responses: openapi3.NewResponses(
			openapi3.WithStatus(http.StatusOK, jsonResponse("Rebuild stats", schemaRef("RebuildStats", rebuildStats))),
		),
	}})
	paths.Set("/api/history", &openapi3.PathItem{Get: &openapi3.Operation{
		OperationID: "listHistory",
		Summary:     "Recent analysis results, newest first",
		Parameters:  openapi3.Parameters{limitParam},
		Responses: openapi3.NewResponses(
			openapi3.WithStatus(http.StatusOK, jsonResponse("Results",
				openapi3.NewSchemaRef("", openapi3.NewArraySchema().WithItems(analysisResult)))),
			openapi3.WithStatus(http.StatusBadRequest, jsonResponse("Invalid limit", errRef)),
		),
	}})
	paths.Set("/api/risk-summary", &openapi3.PathItem{Get: &openapi3.Operation{
		OperationID: "riskSummary",
		Summary:     "Result counts by risk level and recent high-risk results",
		Responses: openapi3.NewResponses(
			openapi3.WithStatus(http.StatusOK, jsonResponse("Summary", schemaRef("RiskSummary", riskSummary))),
		),
	}})
	paths.Set("/health", &openapi3.PathItem{Get: &openapi3.Operation{
		OperationID: "health",
		Summary:     "Service health",
		Responses: openapi3.NewResponses(
			openapi3.WithStatus(http.StatusOK, jsonResponse("Health", schemaRef("Health", health))),
		),
	}})

	return &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       "changeimpact",
			Description: "Change-impact analysis for a JavaScript and TypeScript source tree.",
			Version:     apiVersion,
		},
		Paths: paths,
		Components: &openapi3.Components{
			Schemas: openapi3.Schemas{
				"Error":          openapi3.NewSchemaRef("", errorSchema),
				"FileRecord":     openapi3.NewSchemaRef("", fileRecord),
				"AffectedSet":    openapi3.NewSchemaRef("", affectedSet),
				"AnalysisResult": openapi3.NewSchemaRef("", analysisResult),
				"RebuildStats":   openapi3.NewSchemaRef("", rebuildStats),
				"RiskSummary":    openapi3.NewSchemaRef("", riskSummary),
				"Health":         openapi3.NewSchemaRef("", health),
				"FileImportance": openapi3.NewSchemaRef("", importance),
			},
		},
	}
}
