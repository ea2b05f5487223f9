package httpapi

import (
	"net/http"

	"github.com/w2w-movies/w2w/internal/httpjson"
)

func ref(name string) map[string]any {
	return map[string]any{"$ref": "#/components/schemas/" + name}
}

func jsonContent(schema map[string]any) map[string]any {
	return map[string]any{"application/json": map[string]any{"schema": schema}}
}

func jsonOK(schema map[string]any) map[string]any {
	return map[string]any{"description": "OK", "content": jsonContent(schema)}
}

func arrayOf(name string) map[string]any {
	return map[string]any{"type": "array", "items": ref(name)}
}

func pathParam(name string) map[string]any {
	return map[string]any{"name": name, "in": "path", "required": true, "schema": map[string]any{"type": "string"}}
}

func queryParam(name, typ string) map[string]any {
	return map[string]any{"name": name, "in": "query", "schema": map[string]any{"type": typ}}
}

// handleOpenAPI décrit l'API v1 (document construit à la main).
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	jsonErr := map[string]any{"description": "Error", "content": jsonContent(ref("Error"))}
	errs := func(resp map[string]any, codes ...string) map[string]any {
		for _, c := range codes {
			resp[c] = jsonErr
		}
		return resp
	}
	wait := queryParam("wait", "boolean")

	obj := func(props map[string]any) map[string]any {
		return map[string]any{"type": "object", "properties": props}
	}
	str := map[string]any{"type": "string"}
	integer := map[string]any{"type": "integer"}
	boolean := map[string]any{"type": "boolean"}

	feedAction := obj(map[string]any{"accepted": boolean, "feed": ref("Feed")})
	feedPath := func(summary string) map[string]any {
		return map[string]any{
			"post": map[string]any{
				"summary":    summary,
				"parameters": []any{pathParam("id"), pathParam("feed"), wait},
				"responses":  errs(map[string]any{"200": jsonOK(feedAction)}, "404"),
			},
		}
	}

	spec := map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":   "W2W API",
			"version": "v1",
		},
		"components": map[string]any{
			"schemas": map[string]any{
				"Error": map[string]any{
					"type":     "object",
					"required": []any{"error"},
					"properties": map[string]any{
						"error": str,
						"code":  map[string]any{"type": "string", "enum": []any{"invalid_params", "http_status", "network_error", "upstream_error", "decode_error", "not_found"}},
					},
				},
				"Settings": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"pageSize":              map[string]any{"type": "integer", "minimum": 1, "maximum": 64},
						"featuredLimit":         map[string]any{"type": "integer", "minimum": 1, "maximum": 64},
						"searchLimit":           map[string]any{"type": "integer", "minimum": 1, "maximum": 64},
						"searchDebounceMs":      map[string]any{"type": "integer", "minimum": 1},
						"maxConcurrentRequests": map[string]any{"type": "integer", "minimum": 1},
						"preferredStream":       map[string]any{"type": "string", "enum": []any{"m3u8", "embed"}},
					},
				},
				"Movie": map[string]any{"type": "object", "additionalProperties": true},
				"Feed": obj(map[string]any{
					"name":        str,
					"kind":        str,
					"items":       arrayOf("Movie"),
					"page":        integer,
					"totalPages":  integer,
					"isFetching":  boolean,
					"hasError":    boolean,
					"error":       str,
					"state":       map[string]any{"type": "string", "enum": []any{"idle", "loading_first", "ready", "loading_more", "error", "closed"}},
					"canLoadMore": boolean,
					"epoch":       integer,
				}),
				"ScreenSpec": obj(map[string]any{
					"layout":   map[string]any{"type": "string", "enum": []any{"home", "movies", "tvshows", "category"}},
					"kind":     str,
					"category": str,
					"country":  str,
					"lang":     str,
					"year":     integer,
					"sort":     obj(map[string]any{"field": str, "order": str}),
				}),
				"Screen": obj(map[string]any{
					"id":        str,
					"layout":    str,
					"spec":      ref("ScreenSpec"),
					"createdAt": map[string]any{"type": "string", "format": "date-time"},
					"feeds":     arrayOf("Feed"),
				}),
				"SearchSession": obj(map[string]any{
					"id":          str,
					"text":        str,
					"keyword":     str,
					"items":       arrayOf("Movie"),
					"totalItems":  integer,
					"pending":     boolean,
					"isSearching": boolean,
					"error":       str,
					"generation":  integer,
				}),
				"SearchInput": obj(map[string]any{"text": str, "submit": boolean}),
				"Watch":       map[string]any{"type": "object", "additionalProperties": true},
				"HistoryEntry": obj(map[string]any{
					"id":        str,
					"slug":      str,
					"name":      str,
					"server":    integer,
					"episode":   integer,
					"streamUrl": str,
					"watchedAt": map[string]any{"type": "string", "format": "date-time"},
				}),
			},
		},
		"paths": map[string]any{
			"/api/v1/health":       map[string]any{"get": map[string]any{"responses": map[string]any{"200": jsonOK(obj(map[string]any{"status": str, "requests": obj(map[string]any{"limit": integer, "inFlight": integer, "waiting": integer})}))}}},
			"/api/v1/version":      map[string]any{"get": map[string]any{"responses": map[string]any{"200": jsonOK(obj(map[string]any{"version": str, "commit": str, "date": str}))}}},
			"/api/v1/openapi.json": map[string]any{"get": map[string]any{"responses": map[string]any{"200": jsonOK(map[string]any{"type": "object"})}}},
			"/api/v1/events": map[string]any{"get": map[string]any{
				"summary":    "Server-Sent Events (feed.*, search.*, screen.*, watch.*)",
				"parameters": []any{queryParam("topics", "string")},
				"responses":  map[string]any{"200": map[string]any{"description": "text/event-stream"}},
			}},
			"/api/v1/settings": map[string]any{
				"get": map[string]any{"responses": errs(map[string]any{"200": jsonOK(ref("Settings"))}, "500")},
				"put": map[string]any{
					"requestBody": map[string]any{"required": true, "content": jsonContent(ref("Settings"))},
					"responses":   errs(map[string]any{"200": jsonOK(ref("Settings"))}, "400", "500"),
				},
				"patch": map[string]any{
					"summary":     "Merge the sent fields into the current settings",
					"requestBody": map[string]any{"required": true, "content": jsonContent(ref("Settings"))},
					"responses":   errs(map[string]any{"200": jsonOK(ref("Settings"))}, "400", "500"),
				},
			},
			"/api/v1/screens": map[string]any{
				"post": map[string]any{
					"parameters":  []any{wait},
					"requestBody": map[string]any{"content": jsonContent(ref("ScreenSpec"))},
					"responses":   errs(map[string]any{"201": jsonOK(ref("Screen"))}, "400"),
				},
				"get": map[string]any{"responses": map[string]any{"200": jsonOK(arrayOf("Screen"))}},
			},
			"/api/v1/screens/{id}": map[string]any{
				"get":    map[string]any{"parameters": []any{pathParam("id")}, "responses": errs(map[string]any{"200": jsonOK(ref("Screen"))}, "404")},
				"delete": map[string]any{"parameters": []any{pathParam("id")}, "responses": errs(map[string]any{"204": map[string]any{"description": "Closed"}}, "404")},
			},
			"/api/v1/screens/{id}/refresh": map[string]any{"post": map[string]any{
				"parameters": []any{pathParam("id"), wait},
				"responses":  errs(map[string]any{"200": jsonOK(ref("Screen"))}, "404"),
			}},
			"/api/v1/screens/{id}/feeds/{feed}": map[string]any{"get": map[string]any{
				"parameters": []any{pathParam("id"), pathParam("feed")},
				"responses":  errs(map[string]any{"200": jsonOK(ref("Feed"))}, "404"),
			}},
			"/api/v1/screens/{id}/feeds/{feed}/more":  feedPath("Load the next page"),
			"/api/v1/screens/{id}/feeds/{feed}/retry": feedPath("Retry a failed first page"),
			"/api/v1/screens/{id}/feeds/{feed}/refresh": map[string]any{"post": map[string]any{
				"parameters": []any{pathParam("id"), pathParam("feed"), wait},
				"responses":  errs(map[string]any{"200": jsonOK(ref("Feed"))}, "404"),
			}},
			"/api/v1/movies/{slug}": map[string]any{"get": map[string]any{
				"parameters": []any{pathParam("slug")},
				"responses":  errs(map[string]any{"200": jsonOK(map[string]any{"type": "object"})}, "404", "502"),
			}},
			"/api/v1/movies/{slug}/watch": map[string]any{"get": map[string]any{
				"parameters": []any{pathParam("slug"), queryParam("server", "integer"), queryParam("episode", "integer"), queryParam("direct", "boolean")},
				"responses":  errs(map[string]any{"200": jsonOK(ref("Watch"))}, "400", "404", "502"),
			}},
			"/api/v1/search": map[string]any{"get": map[string]any{
				"parameters": []any{queryParam("keyword", "string"), queryParam("page", "integer"), queryParam("limit", "integer")},
				"responses":  errs(map[string]any{"200": jsonOK(map[string]any{"type": "object"})}, "400", "502"),
			}},
			"/api/v1/search-sessions": map[string]any{"post": map[string]any{
				"requestBody": map[string]any{"content": jsonContent(ref("SearchInput"))},
				"responses":   map[string]any{"201": jsonOK(ref("SearchSession"))},
			}},
			"/api/v1/search-sessions/{id}": map[string]any{
				"get": map[string]any{"parameters": []any{pathParam("id"), wait}, "responses": errs(map[string]any{"200": jsonOK(ref("SearchSession"))}, "404")},
				"put": map[string]any{
					"parameters":  []any{pathParam("id")},
					"requestBody": map[string]any{"required": true, "content": jsonContent(ref("SearchInput"))},
					"responses":   errs(map[string]any{"202": jsonOK(ref("SearchSession"))}, "400", "404", "409"),
				},
				"delete": map[string]any{"parameters": []any{pathParam("id")}, "responses": errs(map[string]any{"204": map[string]any{"description": "Closed"}}, "404")},
			},
			"/api/v1/categories": map[string]any{"get": map[string]any{"responses": errs(map[string]any{"200": jsonOK(map[string]any{"type": "array"})}, "502")}},
			"/api/v1/countries":  map[string]any{"get": map[string]any{"responses": errs(map[string]any{"200": jsonOK(map[string]any{"type": "array"})}, "502")}},
			"/api/v1/history": map[string]any{"get": map[string]any{
				"parameters": []any{queryParam("limit", "integer"), queryParam("q", "string")},
				"responses":  map[string]any{"200": jsonOK(arrayOf("HistoryEntry"))},
			}},
			"/api/v1/history/{slug}": map[string]any{
				"get":    map[string]any{"parameters": []any{pathParam("slug")}, "responses": errs(map[string]any{"200": jsonOK(ref("HistoryEntry"))}, "404")},
				"delete": map[string]any{"parameters": []any{pathParam("slug")}, "responses": errs(map[string]any{"204": map[string]any{"description": "Deleted"}}, "404")},
			},
		},
	}

	httpjson.Write(w, http.StatusOK, spec)
}
