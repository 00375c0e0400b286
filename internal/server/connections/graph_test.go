package connections

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	res    Result
	err    error
	params map[string]any
}

func (f *fakeClient) ExecuteRead(_ context.Context, _ string, params map[string]any) (Result, error) {
	f.params = params
	return f.res, f.err
}

func (f *fakeClient) Close(context.Context) error { return nil }

func TestNeo4jGraph_Status(t *testing.T) {
	tests := []struct {
		name string
		res  Result
		want Status
	}{
		{"accepted", Result{Records: []Record{{"status": "accepted"}}}, StatusAccepted},
		{"pending", Result{Records: []Record{{"status": "pending"}}}, StatusPending},
		{"no edge", Result{}, StatusNone},
		{"unknown value", Result{Records: []Record{{"status": "blocked"}}}, StatusNone},
		{"null status", Result{Records: []Record{{"status": nil}}}, StatusNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &fakeClient{res: tt.res}
			got, err := NewNeo4jGraph(c).Status(context.Background(), "c1", "u1", "u2")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, map[string]any{"connectionID": "c1", "userA": "u1", "userB": "u2"}, c.params)
		})
	}
}

func TestNeo4jGraph_Error(t *testing.T) {
	_, err := NewNeo4jGraph(&fakeClient{err: errors.New("down")}).Status(context.Background(), "c", "a", "b")
	assert.Error(t, err)
}
