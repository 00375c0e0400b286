// Package connections answers whether two users are connected. Connections
// are edges in a graph database; this service only reads them.
package connections

import (
	"context"
	"fmt"
)

type Status string

const (
	StatusNone     Status = "none"
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
)

// Graph reports the state of the connection identified by connectionID
// between userA and userB, in either direction.
type Graph interface {
	Status(ctx context.Context, connectionID, userA, userB string) (Status, error)
}

const statusQuery = `
MATCH (a:User {id: $userA})-[c:CONNECTED {id: $connectionID}]-(b:User {id: $userB})
RETURN c.status AS status
LIMIT 1`

type Neo4jGraph struct {
	client Client
}

func NewNeo4jGraph(c Client) *Neo4jGraph {
	return &Neo4jGraph{client: c}
}

func (g *Neo4jGraph) Status(ctx context.Context, connectionID, userA, userB string) (Status, error) {
	res, err := g.client.ExecuteRead(ctx, statusQuery, map[string]any{
		"connectionID": connectionID,
		"userA":        userA,
		"userB":        userB,
	})
	if err != nil {
		return StatusNone, fmt.Errorf("query connection: %w", err)
	}
	if len(res.Records) == 0 {
		return StatusNone, nil
	}

	s, _ := res.Records[0]["status"].(string)
	switch Status(s) {
	case StatusAccepted, StatusPending:
		return Status(s), nil
	default:
		return StatusNone, nil
	}
}
