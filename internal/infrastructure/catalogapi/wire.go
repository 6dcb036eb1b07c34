package catalogapi

import (
	"encoding/json"
	"time"

	"github.com/dupelens/backend/internal/domain"
)

type graphqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

type graphqlResponse struct {
	Data   *graphqlData   `json:"data"`
	Errors []graphqlError `json:"errors"`
}

type graphqlData struct {
	Products *productConnection `json:"products"`
}

type graphqlError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

type productConnection struct {
	Edges []struct {
		Node productNode `json:"node"`
	} `json:"edges"`
	PageInfo struct {
		HasNextPage bool   `json:"hasNextPage"`
		EndCursor   string `json:"endCursor"`
	} `json:"pageInfo"`
}

type productNode struct {
	ID          string                         `json:"id"`
	Title       string                         `json:"title"`
	Handle      string                         `json:"handle"`
	Status      string                         `json:"status"`
	CreatedAt   time.Time                      `json:"createdAt"`
	UpdatedAt   time.Time                      `json:"updatedAt"`
	ProductType string                         `json:"productType"`
	Vendor      string                         `json:"vendor"`
	Tags        []string                       `json:"tags"`
	Variants    nodeList[domain.SourceVariant] `json:"variants"`
	Images      nodeList[domain.SourceImage]   `json:"images"`
}

func (n productNode) toSource() domain.SourceProduct {
	return domain.SourceProduct{
		ID:          n.ID,
		Title:       n.Title,
		Handle:      n.Handle,
		Status:      n.Status,
		CreatedAt:   n.CreatedAt,
		UpdatedAt:   n.UpdatedAt,
		ProductType: n.ProductType,
		Vendor:      n.Vendor,
		Tags:        n.Tags,
		Variants:    n.Variants,
		Images:      n.Images,
	}
}

// nodeList decodes a nested collection that upstream sends either as a
// connection ({"edges":[{"node":{...}}]} or {"nodes":[...]}) or as a plain
// array. Every consumer sees the flat slice.
type nodeList[T any] []T

func (l *nodeList[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*l = nil
		return nil
	}

	var flat []T
	if err := json.Unmarshal(data, &flat); err == nil {
		*l = flat
		return nil
	}

	var conn struct {
		Edges []struct {
			Node T `json:"node"`
		} `json:"edges"`
		Nodes []T `json:"nodes"`
	}
	if err := json.Unmarshal(data, &conn); err != nil {
		return err
	}

	out := make([]T, 0, len(conn.Edges)+len(conn.Nodes))
	for _, e := range conn.Edges {
		out = append(out, e.Node)
	}
	out = append(out, conn.Nodes...)
	*l = out
	return nil
}
