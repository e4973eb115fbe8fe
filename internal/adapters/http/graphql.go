package http

import (
	"math"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/mapsurvey/internal/core/domain"
	"github.com/samirrijal/mapsurvey/internal/core/projector"
)

// buildSchema creates the read-only GraphQL schema over the session views.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lng": &graphql.Field{Type: graphql.Float},
		},
	})

	axisType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Axis",
		Fields: graphql.Fields{
			"key":   &graphql.Field{Type: graphql.String},
			"label": &graphql.Field{Type: graphql.String},
			"max":   &graphql.Field{Type: graphql.Int},
		},
	})

	ratingValueType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RatingValue",
		Fields: graphql.Fields{
			"axis":  &graphql.Field{Type: graphql.String},
			"value": &graphql.Field{Type: graphql.Float},
		},
	})

	ratingLabelType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RatingLabel",
		Fields: graphql.Fields{
			"axis":  &graphql.Field{Type: graphql.String},
			"label": &graphql.Field{Type: graphql.String},
			"value": &graphql.Field{Type: graphql.Int},
			"max":   &graphql.Field{Type: graphql.Int},
		},
	})

	featureType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Feature",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.String},
			"timestamp":  &graphql.Field{Type: graphql.String},
			"location":   &graphql.Field{Type: geoPointType},
			"place_name": &graphql.Field{Type: graphql.String},
			"ratings":    &graphql.Field{Type: graphql.NewList(ratingValueType)},
			"comment":    &graphql.Field{Type: graphql.String},
			"age_group":  &graphql.Field{Type: graphql.String},
			"gender":     &graphql.Field{Type: graphql.String},
		},
	})

	cardType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Card",
		Fields: graphql.Fields{
			"feature_id": &graphql.Field{Type: graphql.String},
			"title":      &graphql.Field{Type: graphql.String},
			"coords":     &graphql.Field{Type: graphql.String},
			"when":       &graphql.Field{Type: graphql.String},
			"ratings":    &graphql.Field{Type: graphql.NewList(ratingLabelType)},
			"comment":    &graphql.Field{Type: graphql.String},
			"renderable": &graphql.Field{Type: graphql.Boolean},
		},
	})

	markerType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Marker",
		Fields: graphql.Fields{
			"feature_id": &graphql.Field{Type: graphql.String},
			"point":      &graphql.Field{Type: geoPointType},
			"style": &graphql.Field{Type: graphql.NewObject(graphql.ObjectConfig{
				Name: "MarkerStyle",
				Fields: graphql.Fields{
					"color":  &graphql.Field{Type: graphql.String},
					"stroke": &graphql.Field{Type: graphql.String},
					"radius": &graphql.Field{Type: graphql.Float},
				},
			})},
			"popup": &graphql.Field{Type: graphql.NewObject(graphql.ObjectConfig{
				Name: "Popup",
				Fields: graphql.Fields{
					"title":     &graphql.Field{Type: graphql.String},
					"ratings":   &graphql.Field{Type: graphql.NewList(ratingLabelType)},
					"age_group": &graphql.Field{Type: graphql.String},
					"gender":    &graphql.Field{Type: graphql.String},
					"comment":   &graphql.Field{Type: graphql.String},
					"when":      &graphql.Field{Type: graphql.String},
				},
			})},
		},
	})

	statsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Stats",
		Fields: graphql.Fields{
			"count": &graphql.Field{Type: graphql.Int},
			"axes": &graphql.Field{Type: graphql.NewList(graphql.NewObject(graphql.ObjectConfig{
				Name: "AxisStat",
				Fields: graphql.Fields{
					"axis":    &graphql.Field{Type: graphql.String},
					"label":   &graphql.Field{Type: graphql.String},
					"average": &graphql.Field{Type: graphql.String},
					"samples": &graphql.Field{Type: graphql.Int},
				},
			}))},
		},
	})

	statusType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Status",
		Fields: graphql.Fields{
			"level":             &graphql.Field{Type: graphql.String},
			"text":              &graphql.Field{Type: graphql.String},
			"submission":        &graphql.Field{Type: graphql.String},
			"notice_kind":       &graphql.Field{Type: graphql.String},
			"notice_text":       &graphql.Field{Type: graphql.String},
			"notice_expires_at": &graphql.Field{Type: graphql.String},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"axes": &graphql.Field{
				Type:        graphql.NewList(axisType),
				Description: "Configured rating axes",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Session.Axes(), nil
				},
			},
			"features": &graphql.Field{
				Type:        graphql.NewList(featureType),
				Description: "Features in insertion order",
				Args: graphql.FieldConfigArgument{
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: defaultPageSize},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					offset, limit := clampPage(p.Args["offset"].(int), p.Args["limit"].(int))
					page, _ := paginate(deps.Session.Snapshot(), offset, limit)
					out := make([]map[string]interface{}, len(page))
					for i, f := range page {
						out[i] = featureFields(f)
					}
					return out, nil
				},
			},
			"feature": &graphql.Field{
				Type:        featureType,
				Description: "Get a feature by id",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					f, err := deps.Session.Store().Get(p.Args["id"].(string))
					if err != nil {
						return nil, err
					}
					return featureFields(f), nil
				},
			},
			"cards": &graphql.Field{
				Type:        graphql.NewList(cardType),
				Description: "List view, newest first",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return projector.Cards(deps.Session.Snapshot(), deps.Session.Axes()), nil
				},
			},
			"markers": &graphql.Field{
				Type:        graphql.NewList(markerType),
				Description: "Renderable markers, newest first",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return projector.Markers(deps.Session.Snapshot(), deps.Session.Axes()), nil
				},
			},
			"stats": &graphql.Field{
				Type:        statsType,
				Description: "Response count and per-axis means",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return projector.Stats(deps.Session.Snapshot(), deps.Session.Axes()), nil
				},
			},
			"status": &graphql.Field{
				Type:        statusType,
				Description: "Status indicator, active notice and submission state",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return statusFields(deps.Submissions.View()), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

func clampPage(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	return offset, limit
}

// featureFields flattens a feature for GraphQL; ratings become a list sorted
// by axis key and non-finite values are dropped.
func featureFields(f domain.Feature) map[string]interface{} {
	keys := make([]string, 0, len(f.Ratings))
	for k, v := range f.Ratings {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	ratings := make([]map[string]interface{}, len(keys))
	for i, k := range keys {
		ratings[i] = map[string]interface{}{"axis": k, "value": f.Ratings[k]}
	}

	m := map[string]interface{}{
		"id":         f.ID,
		"timestamp":  f.Timestamp.UTC().Format(time.RFC3339Nano),
		"place_name": f.PlaceName,
		"ratings":    ratings,
		"comment":    f.Comment,
		"age_group":  f.AgeGroup,
		"gender":     f.Gender,
	}
	if f.Location.Finite() {
		m["location"] = map[string]interface{}{"lat": f.Location.Lat, "lng": f.Location.Lng}
	}
	return m
}

func statusFields(v domain.StatusView) map[string]interface{} {
	m := map[string]interface{}{
		"level":      string(v.Status.Level),
		"text":       v.Status.Text,
		"submission": string(v.Submission),
	}
	if v.Notice != nil {
		m["notice_kind"] = string(v.Notice.Kind)
		m["notice_text"] = v.Notice.Text
		m["notice_expires_at"] = v.Notice.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return m
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
