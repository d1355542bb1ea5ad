package cel

// RoutePredicateExamples are `when` expressions accepted on gateway routes.
var RoutePredicateExamples = map[string]string{
	"reads_only":      `method == "GET"`,
	"writes_only":     `method in ["POST", "PUT", "DELETE"]`,
	"json_body":       `"content-type" in headers && headers["content-type"].startsWith("application/json")`,
	"by_creator":      `has(query.createdBy) && query.createdBy.endsWith("@inabottle.app")`,
	"reaction_routes": `path.contains("/message/") && path.endsWith("Reaction")`,
	"canary_header":   `headers["x-canary"] == "true"`,
	"path_prefix":     `path.startsWith("/hub/")`,
}
